// Package params implements the binary codec for the parameter records
// exchanged with the device.
//
// Every record starts with a one-byte layout version followed by fixed-width
// big-endian fields in declared order. Variable-length sections (config block
// lists, names, port-type variants, bus channel lists) are preceded by a
// one-byte count or length. Records implement encoding.BinaryMarshaler and
// encoding.BinaryUnmarshaler; MarshalBinary(UnmarshalBinary(b)) reproduces b
// byte for byte.
package params

import (
	"errors"
	"fmt"
)

// Codec errors.
var (
	// ErrMalformedRecord indicates an unknown layout version or a record whose
	// declared lengths disagree with its contents.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrTruncatedRecord indicates fewer bytes than a field or count demands.
	ErrTruncatedRecord = errors.New("truncated record")

	// ErrUnknownVariant indicates a port type with no mapped variant shape.
	ErrUnknownVariant = errors.New("unknown variant")

	// ErrBlockNotFound indicates a patchbay has no input block for a channel.
	ErrBlockNotFound = errors.New("input block not found")

	// ErrBusFull indicates a mixer bus channel list is at its device limit.
	ErrBusFull = errors.New("mixer bus full")

	// ErrOutOfRange indicates a mutation outside the record's declared range.
	ErrOutOfRange = errors.New("value out of range")
)

// LayoutVersion is the only record layout version this codec understands.
const LayoutVersion uint8 = 1

// Family identifies a parameter record type. Command identifiers are derived
// from it (see package command).
type Family uint8

// Parameter record families.
const (
	FamilyAudioGlobal        Family = 0x01
	FamilyAudioPort          Family = 0x02
	FamilyPatchbay           Family = 0x03
	FamilyMixer              Family = 0x04
	FamilyMixerPort          Family = 0x05
	FamilyMixerInput         Family = 0x06
	FamilyMixerOutput        Family = 0x07
	FamilyMixerInputControl  Family = 0x08
	FamilyMixerOutputControl Family = 0x09
	FamilyMixerInputValue    Family = 0x0A
	FamilyMixerOutputValue   Family = 0x0B
	FamilyAudioControl       Family = 0x0C
	FamilyAudioControlValue  Family = 0x0D
)

var familyNames = map[Family]string{
	FamilyAudioGlobal:        "AudioGlobalParm",
	FamilyAudioPort:          "AudioPortParm",
	FamilyPatchbay:           "PatchbayParm",
	FamilyMixer:              "MixerParm",
	FamilyMixerPort:          "MixerPortParm",
	FamilyMixerInput:         "MixerInputParm",
	FamilyMixerOutput:        "MixerOutputParm",
	FamilyMixerInputControl:  "MixerInputControlParm",
	FamilyMixerOutputControl: "MixerOutputControlParm",
	FamilyMixerInputValue:    "MixerInputControlValue",
	FamilyMixerOutputValue:   "MixerOutputControlValue",
	FamilyAudioControl:       "AudioControlParm",
	FamilyAudioControlValue:  "AudioControlValue",
}

func (f Family) String() string {
	if n, ok := familyNames[f]; ok {
		return n
	}
	return fmt.Sprintf("Family(0x%02X)", uint8(f))
}

// Valid reports whether f names a known record family.
func (f Family) Valid() bool {
	_, ok := familyNames[f]
	return ok
}

// Key addresses one parameter record in the registry.
// PortID and Sub are zero for families that do not use them.
type Key struct {
	Family Family
	PortID uint16
	Sub    uint16
}

func (k Key) String() string {
	return fmt.Sprintf("%s[port=%d sub=%d]", k.Family, k.PortID, k.Sub)
}

// MixerControlSub packs a mixer output and input number into the Sub field of
// a MixerInputControlValue key.
func MixerControlSub(output, input uint8) uint16 {
	return uint16(output)<<8 | uint16(input)
}

// Record is a parameter block exchanged with the device.
//
// Family must not dereference its receiver so it can be called on a nil
// pointer of the concrete type.
type Record interface {
	Family() Family
	Key() Key
	MarshalBinary() ([]byte, error)
	UnmarshalBinary(data []byte) error
}

var factories = map[Family]func() Record{
	FamilyAudioGlobal:        func() Record { return new(AudioGlobalParm) },
	FamilyAudioPort:          func() Record { return new(AudioPortParm) },
	FamilyPatchbay:           func() Record { return new(PatchbayParm) },
	FamilyMixer:              func() Record { return new(MixerParm) },
	FamilyMixerPort:          func() Record { return new(MixerPortParm) },
	FamilyMixerInput:         func() Record { return new(MixerInputParm) },
	FamilyMixerOutput:        func() Record { return new(MixerOutputParm) },
	FamilyMixerInputControl:  func() Record { return new(MixerInputControlParm) },
	FamilyMixerOutputControl: func() Record { return new(MixerOutputControlParm) },
	FamilyMixerInputValue:    func() Record { return new(MixerInputControlValue) },
	FamilyMixerOutputValue:   func() Record { return new(MixerOutputControlValue) },
	FamilyAudioControl:       func() Record { return new(AudioControlParm) },
	FamilyAudioControlValue:  func() Record { return new(AudioControlValue) },
}

// Parse decodes data as a record of the given family.
func Parse(f Family, data []byte) (Record, error) {
	newRecord, ok := factories[f]
	if !ok {
		return nil, fmt.Errorf("%w: unknown family 0x%02X", ErrMalformedRecord, uint8(f))
	}
	r := newRecord()
	if err := r.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("parse %s: %w", f, err)
	}
	return r, nil
}

// Generate encodes r. It is the inverse of Parse.
func Generate(r Record) ([]byte, error) {
	data, err := r.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("generate %s: %w", r.Family(), err)
	}
	return data, nil
}
