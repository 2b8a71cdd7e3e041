package params

import "strings"

// Control is a bit set of per-channel controls. The same bits describe
// capabilities (available, editable) and on/off state (mute, solo, ...).
type Control uint8

const (
	ControlMute       Control = 0x01
	ControlSolo       Control = 0x02
	ControlInvert     Control = 0x04
	ControlStereoLink Control = 0x08
	ControlVolume     Control = 0x10
	ControlPan        Control = 0x20
)

var controlNames = []struct {
	c    Control
	name string
}{
	{ControlMute, "mute"},
	{ControlSolo, "solo"},
	{ControlInvert, "invert"},
	{ControlStereoLink, "stereo-link"},
	{ControlVolume, "volume"},
	{ControlPan, "pan"},
}

// Has reports whether all bits of x are set.
func (c Control) Has(x Control) bool { return c&x == x }

func (c Control) String() string {
	var parts []string
	for _, n := range controlNames {
		if c.Has(n.c) {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// ControlCaps describes which controls a channel exposes and their ranges.
// Volume is in 1/256 dB.
type ControlCaps struct {
	Available Control
	Editable  Control
	VolumeMin int16
	VolumeMax int16
	PanMax    uint16
}

func (c ControlCaps) appendTo(e *encoder) {
	e.u8(uint8(c.Available))
	e.u8(uint8(c.Editable))
	e.i16(c.VolumeMin)
	e.i16(c.VolumeMax)
	e.u16(c.PanMax)
}

func parseCaps(d *decoder) ControlCaps {
	return ControlCaps{
		Available: Control(d.u8("available controls")),
		Editable:  Control(d.u8("editable controls")),
		VolumeMin: d.i16("volume min"),
		VolumeMax: d.i16("volume max"),
		PanMax:    d.u16("pan max"),
	}
}

// ControlValue is the current state of one channel's controls. Flags carries
// the on/off controls; Volume is in 1/256 dB; Pan is signed around centre.
type ControlValue struct {
	Flags  Control
	Volume int16
	Pan    int16
}

func (v ControlValue) appendTo(e *encoder) {
	e.u8(uint8(v.Flags))
	e.i16(v.Volume)
	e.i16(v.Pan)
}

func parseValue(d *decoder) ControlValue {
	return ControlValue{
		Flags:  Control(d.u8("control flags")),
		Volume: d.i16("volume"),
		Pan:    d.i16("pan"),
	}
}

// Set turns the on/off control x on or off.
func (v *ControlValue) Set(x Control, on bool) {
	if on {
		v.Flags |= x
	} else {
		v.Flags &^= x
	}
}

// MixerInputControlParm holds the control capabilities of a port's mixer inputs.
type MixerInputControlParm struct {
	PortID uint16
	Caps   ControlCaps
}

func (*MixerInputControlParm) Family() Family { return FamilyMixerInputControl }

func (p *MixerInputControlParm) Key() Key {
	return Key{Family: FamilyMixerInputControl, PortID: p.PortID}
}

func (p *MixerInputControlParm) MarshalBinary() ([]byte, error) {
	return marshalCaps(p.PortID, p.Caps), nil
}

func (p *MixerInputControlParm) UnmarshalBinary(data []byte) error {
	id, caps, err := unmarshalCaps(data, "mixer input control")
	if err != nil {
		return err
	}
	*p = MixerInputControlParm{PortID: id, Caps: caps}
	return nil
}

// MixerOutputControlParm holds the control capabilities of a port's mixer buses.
type MixerOutputControlParm struct {
	PortID uint16
	Caps   ControlCaps
}

func (*MixerOutputControlParm) Family() Family { return FamilyMixerOutputControl }

func (p *MixerOutputControlParm) Key() Key {
	return Key{Family: FamilyMixerOutputControl, PortID: p.PortID}
}

func (p *MixerOutputControlParm) MarshalBinary() ([]byte, error) {
	return marshalCaps(p.PortID, p.Caps), nil
}

func (p *MixerOutputControlParm) UnmarshalBinary(data []byte) error {
	id, caps, err := unmarshalCaps(data, "mixer output control")
	if err != nil {
		return err
	}
	*p = MixerOutputControlParm{PortID: id, Caps: caps}
	return nil
}

// AudioControlParm holds the control capabilities of a port's own channels.
type AudioControlParm struct {
	PortID uint16
	Caps   ControlCaps
}

func (*AudioControlParm) Family() Family { return FamilyAudioControl }

func (p *AudioControlParm) Key() Key {
	return Key{Family: FamilyAudioControl, PortID: p.PortID}
}

func (p *AudioControlParm) MarshalBinary() ([]byte, error) {
	return marshalCaps(p.PortID, p.Caps), nil
}

func (p *AudioControlParm) UnmarshalBinary(data []byte) error {
	id, caps, err := unmarshalCaps(data, "audio control")
	if err != nil {
		return err
	}
	*p = AudioControlParm{PortID: id, Caps: caps}
	return nil
}

func marshalCaps(portID uint16, caps ControlCaps) []byte {
	e := newEncoder()
	e.u16(portID)
	caps.appendTo(e)
	return e.buf
}

func unmarshalCaps(data []byte, kind string) (uint16, ControlCaps, error) {
	d := newDecoder(data)
	d.version(kind)
	id := d.u16("port id")
	caps := parseCaps(d)
	if err := d.finish(kind); err != nil {
		return 0, ControlCaps{}, err
	}
	return id, caps, nil
}

// MixerInputControlValue is the state of one mixer input on one bus.
type MixerInputControlValue struct {
	PortID uint16
	Output uint8
	Input  uint8
	Value  ControlValue
}

func (*MixerInputControlValue) Family() Family { return FamilyMixerInputValue }

func (p *MixerInputControlValue) Key() Key {
	return Key{Family: FamilyMixerInputValue, PortID: p.PortID, Sub: MixerControlSub(p.Output, p.Input)}
}

func (p *MixerInputControlValue) MarshalBinary() ([]byte, error) {
	e := newEncoder()
	e.u16(p.PortID)
	e.u8(p.Output)
	e.u8(p.Input)
	p.Value.appendTo(e)
	return e.buf, nil
}

func (p *MixerInputControlValue) UnmarshalBinary(data []byte) error {
	d := newDecoder(data)
	d.version("mixer input value")
	r := MixerInputControlValue{
		PortID: d.u16("port id"),
		Output: d.u8("mixer output"),
		Input:  d.u8("mixer input"),
	}
	r.Value = parseValue(d)
	if err := d.finish("mixer input value"); err != nil {
		return err
	}
	*p = r
	return nil
}

// MixerOutputControlValue is the state of one mixer bus.
type MixerOutputControlValue struct {
	PortID uint16
	Output uint8
	Value  ControlValue
}

func (*MixerOutputControlValue) Family() Family { return FamilyMixerOutputValue }

func (p *MixerOutputControlValue) Key() Key {
	return Key{Family: FamilyMixerOutputValue, PortID: p.PortID, Sub: uint16(p.Output)}
}

func (p *MixerOutputControlValue) MarshalBinary() ([]byte, error) {
	e := newEncoder()
	e.u16(p.PortID)
	e.u8(p.Output)
	p.Value.appendTo(e)
	return e.buf, nil
}

func (p *MixerOutputControlValue) UnmarshalBinary(data []byte) error {
	d := newDecoder(data)
	d.version("mixer output value")
	r := MixerOutputControlValue{
		PortID: d.u16("port id"),
		Output: d.u8("mixer output"),
	}
	r.Value = parseValue(d)
	if err := d.finish("mixer output value"); err != nil {
		return err
	}
	*p = r
	return nil
}

// AudioControlValue is the state of one channel of an audio port.
type AudioControlValue struct {
	PortID  uint16
	Channel uint8
	Value   ControlValue
}

func (*AudioControlValue) Family() Family { return FamilyAudioControlValue }

func (p *AudioControlValue) Key() Key {
	return Key{Family: FamilyAudioControlValue, PortID: p.PortID, Sub: uint16(p.Channel)}
}

func (p *AudioControlValue) MarshalBinary() ([]byte, error) {
	e := newEncoder()
	e.u16(p.PortID)
	e.u8(p.Channel)
	p.Value.appendTo(e)
	return e.buf, nil
}

func (p *AudioControlValue) UnmarshalBinary(data []byte) error {
	d := newDecoder(data)
	d.version("audio control value")
	r := AudioControlValue{
		PortID:  d.u16("port id"),
		Channel: d.u8("channel"),
	}
	r.Value = parseValue(d)
	if err := d.finish("audio control value"); err != nil {
		return err
	}
	*p = r
	return nil
}
