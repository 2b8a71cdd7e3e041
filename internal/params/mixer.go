package params

import (
	"fmt"
	"slices"
)

// MixerParm holds the device-wide mixer limits. Its presence in the registry
// means the device has a mixer subsystem.
type MixerParm struct {
	ConfigNumber uint8
	MaxInputs    uint8
	MaxOutputs   uint8
}

func (*MixerParm) Family() Family { return FamilyMixer }

func (p *MixerParm) Key() Key { return Key{Family: FamilyMixer} }

func (p *MixerParm) MarshalBinary() ([]byte, error) {
	e := newEncoder()
	e.u8(p.ConfigNumber)
	e.u8(p.MaxInputs)
	e.u8(p.MaxOutputs)
	return e.buf, nil
}

func (p *MixerParm) UnmarshalBinary(data []byte) error {
	d := newDecoder(data)
	d.version("mixer")
	r := MixerParm{
		ConfigNumber: d.u8("config number"),
		MaxInputs:    d.u8("max inputs"),
		MaxOutputs:   d.u8("max outputs"),
	}
	if err := d.finish("mixer"); err != nil {
		return err
	}
	*p = r
	return nil
}

// MixerPortParm sizes the mixer paired with one audio port.
type MixerPortParm struct {
	PortID     uint16
	NumInputs  uint8
	NumOutputs uint8
}

func (*MixerPortParm) Family() Family { return FamilyMixerPort }

func (p *MixerPortParm) Key() Key { return Key{Family: FamilyMixerPort, PortID: p.PortID} }

func (p *MixerPortParm) MarshalBinary() ([]byte, error) {
	e := newEncoder()
	e.u16(p.PortID)
	e.u8(p.NumInputs)
	e.u8(p.NumOutputs)
	return e.buf, nil
}

func (p *MixerPortParm) UnmarshalBinary(data []byte) error {
	d := newDecoder(data)
	d.version("mixer port")
	r := MixerPortParm{
		PortID:     d.u16("port id"),
		NumInputs:  d.u8("mixer inputs"),
		NumOutputs: d.u8("mixer outputs"),
	}
	if err := d.finish("mixer port"); err != nil {
		return err
	}
	*p = r
	return nil
}

// MixerInputParm records which port output channel feeds one mixer input.
// A zero source port or channel means unpatched.
type MixerInputParm struct {
	PortID        uint16
	Input         uint8
	SourcePortID  uint16
	SourceChannel uint8
}

func (*MixerInputParm) Family() Family { return FamilyMixerInput }

func (p *MixerInputParm) Key() Key {
	return Key{Family: FamilyMixerInput, PortID: p.PortID, Sub: uint16(p.Input)}
}

// Patched reports whether the input has a source.
func (p *MixerInputParm) Patched() bool {
	return p.SourcePortID != 0 && p.SourceChannel != 0
}

func (p *MixerInputParm) MarshalBinary() ([]byte, error) {
	e := newEncoder()
	e.u16(p.PortID)
	e.u8(p.Input)
	e.u16(p.SourcePortID)
	e.u8(p.SourceChannel)
	return e.buf, nil
}

func (p *MixerInputParm) UnmarshalBinary(data []byte) error {
	d := newDecoder(data)
	d.version("mixer input")
	r := MixerInputParm{
		PortID:        d.u16("port id"),
		Input:         d.u8("mixer input"),
		SourcePortID:  d.u16("source port id"),
		SourceChannel: d.u8("source channel"),
	}
	if err := d.finish("mixer input"); err != nil {
		return err
	}
	*p = r
	return nil
}

// MixerOutputParm lists the destination channels of PortID fed by one mixer
// bus. The list is bounded by MaxChannels.
type MixerOutputParm struct {
	PortID      uint16
	Output      uint8
	MaxChannels uint8
	Channels    []uint8
}

func (*MixerOutputParm) Family() Family { return FamilyMixerOutput }

func (p *MixerOutputParm) Key() Key {
	return Key{Family: FamilyMixerOutput, PortID: p.PortID, Sub: uint16(p.Output)}
}

// Clone returns a deep copy.
func (p *MixerOutputParm) Clone() *MixerOutputParm {
	c := *p
	c.Channels = slices.Clone(p.Channels)
	return &c
}

// Has reports whether ch is fed by this bus.
func (p *MixerOutputParm) Has(ch uint8) bool {
	return slices.Contains(p.Channels, ch)
}

// Add appends ch to the bus. Adding a member again is a no-op.
func (p *MixerOutputParm) Add(ch uint8) error {
	if p.Has(ch) {
		return nil
	}
	if len(p.Channels) >= int(p.MaxChannels) {
		return fmt.Errorf("%w: port %d bus %d holds %d channels", ErrBusFull, p.PortID, p.Output, p.MaxChannels)
	}
	p.Channels = append(p.Channels, ch)
	return nil
}

// Remove drops ch from the bus and reports whether it was a member.
func (p *MixerOutputParm) Remove(ch uint8) bool {
	i := slices.Index(p.Channels, ch)
	if i < 0 {
		return false
	}
	p.Channels = slices.Delete(p.Channels, i, i+1)
	if len(p.Channels) == 0 {
		p.Channels = nil
	}
	return true
}

func (p *MixerOutputParm) MarshalBinary() ([]byte, error) {
	e := newEncoder()
	e.u16(p.PortID)
	e.u8(p.Output)
	e.u8(p.MaxChannels)
	if err := e.count(len(p.Channels), "bus channels"); err != nil {
		return nil, err
	}
	e.raw(p.Channels)
	return e.buf, nil
}

func (p *MixerOutputParm) UnmarshalBinary(data []byte) error {
	d := newDecoder(data)
	d.version("mixer output")
	var r MixerOutputParm
	r.PortID = d.u16("port id")
	r.Output = d.u8("mixer output")
	r.MaxChannels = d.u8("max channels")
	n := int(d.u8("channel count"))
	if n > 0 {
		r.Channels = d.bytes(n, "bus channels")
	}
	if err := d.finish("mixer output"); err != nil {
		return err
	}
	if len(r.Channels) > int(r.MaxChannels) {
		return fmt.Errorf("%w: %d bus channels exceed limit %d", ErrMalformedRecord, len(r.Channels), r.MaxChannels)
	}
	*p = r
	return nil
}
