// Package controls provides typed views over the per-channel control records
// of mixer inputs, mixer outputs and audio port channels.
//
// Availability and editability are reported independently. Setters do not
// check editability; callers must ask first. A setter that would not change
// the stored value reports false and sends nothing.
package controls

import (
	"math"

	"github.com/micro-nova/audioconfig-go/internal/params"
	"github.com/micro-nova/audioconfig-go/internal/registry"
)

// Channel is the control surface of one mixer input, mixer bus or port channel.
type Channel struct {
	caps  func() (params.ControlCaps, error)
	value func() (params.ControlValue, error)
	store func(params.ControlValue) error
}

// MixerInput returns the controls of mixer input `input` on bus `output` of
// the mixer paired with port.
func MixerInput(reg registry.Registry, port uint16, output, input uint8) *Channel {
	return &Channel{
		caps: func() (params.ControlCaps, error) {
			p, err := registry.Get[*params.MixerInputControlParm](reg, port, 0)
			if err != nil {
				return params.ControlCaps{}, err
			}
			return p.Caps, nil
		},
		value: func() (params.ControlValue, error) {
			v, err := registry.Get[*params.MixerInputControlValue](reg, port, params.MixerControlSub(output, input))
			if err != nil {
				return params.ControlValue{}, err
			}
			return v.Value, nil
		},
		store: func(v params.ControlValue) error {
			return registry.Send(reg, &params.MixerInputControlValue{PortID: port, Output: output, Input: input, Value: v})
		},
	}
}

// MixerOutput returns the controls of bus `output` of the mixer paired with port.
func MixerOutput(reg registry.Registry, port uint16, output uint8) *Channel {
	return &Channel{
		caps: func() (params.ControlCaps, error) {
			p, err := registry.Get[*params.MixerOutputControlParm](reg, port, 0)
			if err != nil {
				return params.ControlCaps{}, err
			}
			return p.Caps, nil
		},
		value: func() (params.ControlValue, error) {
			v, err := registry.Get[*params.MixerOutputControlValue](reg, port, uint16(output))
			if err != nil {
				return params.ControlValue{}, err
			}
			return v.Value, nil
		},
		store: func(v params.ControlValue) error {
			return registry.Send(reg, &params.MixerOutputControlValue{PortID: port, Output: output, Value: v})
		},
	}
}

// AudioPort returns the controls of one channel of port.
func AudioPort(reg registry.Registry, port uint16, channel uint8) *Channel {
	return &Channel{
		caps: func() (params.ControlCaps, error) {
			p, err := registry.Get[*params.AudioControlParm](reg, port, 0)
			if err != nil {
				return params.ControlCaps{}, err
			}
			return p.Caps, nil
		},
		value: func() (params.ControlValue, error) {
			v, err := registry.Get[*params.AudioControlValue](reg, port, uint16(channel))
			if err != nil {
				return params.ControlValue{}, err
			}
			return v.Value, nil
		},
		store: func(v params.ControlValue) error {
			return registry.Send(reg, &params.AudioControlValue{PortID: port, Channel: channel, Value: v})
		},
	}
}

// Caps returns the capability record behind the channel.
func (c *Channel) Caps() (params.ControlCaps, error) { return c.caps() }

// Value returns the current control state.
func (c *Channel) Value() (params.ControlValue, error) { return c.value() }

// IsAvailable reports whether the device exposes control x. It is false when
// the capability record is missing.
func (c *Channel) IsAvailable(x params.Control) bool {
	caps, err := c.caps()
	return err == nil && caps.Available.Has(x)
}

// IsEditable reports whether control x may currently be changed.
func (c *Channel) IsEditable(x params.Control) bool {
	caps, err := c.caps()
	return err == nil && caps.Editable.Has(x)
}

// update applies fn to a copy of the current value and sends the result if
// it differs.
func (c *Channel) update(fn func(*params.ControlValue)) (bool, error) {
	cur, err := c.value()
	if err != nil {
		return false, err
	}
	next := cur
	fn(&next)
	if next == cur {
		return false, nil
	}
	if err := c.store(next); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Channel) flag(x params.Control) (bool, error) {
	v, err := c.value()
	if err != nil {
		return false, err
	}
	return v.Flags.Has(x), nil
}

func (c *Channel) setFlag(x params.Control, on bool) (bool, error) {
	return c.update(func(v *params.ControlValue) { v.Set(x, on) })
}

func (c *Channel) IsMuteAvailable() bool               { return c.IsAvailable(params.ControlMute) }
func (c *Channel) IsMuteEditable() bool                { return c.IsEditable(params.ControlMute) }
func (c *Channel) Mute() (bool, error)                 { return c.flag(params.ControlMute) }
func (c *Channel) SetMute(on bool) (bool, error)       { return c.setFlag(params.ControlMute, on) }
func (c *Channel) IsSoloAvailable() bool               { return c.IsAvailable(params.ControlSolo) }
func (c *Channel) IsSoloEditable() bool                { return c.IsEditable(params.ControlSolo) }
func (c *Channel) Solo() (bool, error)                 { return c.flag(params.ControlSolo) }
func (c *Channel) SetSolo(on bool) (bool, error)       { return c.setFlag(params.ControlSolo, on) }
func (c *Channel) IsInvertAvailable() bool             { return c.IsAvailable(params.ControlInvert) }
func (c *Channel) IsInvertEditable() bool              { return c.IsEditable(params.ControlInvert) }
func (c *Channel) Invert() (bool, error)               { return c.flag(params.ControlInvert) }
func (c *Channel) SetInvert(on bool) (bool, error)     { return c.setFlag(params.ControlInvert, on) }
func (c *Channel) IsStereoLinkAvailable() bool         { return c.IsAvailable(params.ControlStereoLink) }
func (c *Channel) IsStereoLinkEditable() bool          { return c.IsEditable(params.ControlStereoLink) }
func (c *Channel) StereoLink() (bool, error)           { return c.flag(params.ControlStereoLink) }
func (c *Channel) SetStereoLink(on bool) (bool, error) { return c.setFlag(params.ControlStereoLink, on) }
func (c *Channel) IsVolumeAvailable() bool             { return c.IsAvailable(params.ControlVolume) }
func (c *Channel) IsVolumeEditable() bool              { return c.IsEditable(params.ControlVolume) }
func (c *Channel) IsPanAvailable() bool                { return c.IsAvailable(params.ControlPan) }
func (c *Channel) IsPanEditable() bool                 { return c.IsEditable(params.ControlPan) }

// Volume returns the raw volume in 1/256 dB.
func (c *Channel) Volume() (int16, error) {
	v, err := c.value()
	return v.Volume, err
}

// SetVolume sets the raw volume in 1/256 dB.
func (c *Channel) SetVolume(vol int16) (bool, error) {
	return c.update(func(v *params.ControlValue) { v.Volume = vol })
}

// VolumeDB returns the volume in dB.
func (c *Channel) VolumeDB() (float64, error) {
	v, err := c.Volume()
	return VolumeToDB(v), err
}

// SetVolumeDB sets the volume in dB, clamped to the channel's range.
func (c *Channel) SetVolumeDB(db float64) (bool, error) {
	caps, err := c.caps()
	if err != nil {
		return false, err
	}
	return c.SetVolume(DBToVolume(db, caps))
}

// Pan returns the pan position; negative is left.
func (c *Channel) Pan() (int16, error) {
	v, err := c.value()
	return v.Pan, err
}

// SetPan sets the pan position, clamped to the channel's range.
func (c *Channel) SetPan(pan int16) (bool, error) {
	caps, err := c.caps()
	if err != nil {
		return false, err
	}
	pan = ClampPan(pan, caps)
	return c.update(func(v *params.ControlValue) { v.Pan = pan })
}

// VolumeToDB converts a 1/256 dB fixed point volume to dB.
func VolumeToDB(v int16) float64 {
	return float64(v) / 256
}

// ClampPan limits pan to [-caps.PanMax, caps.PanMax]. A zero PanMax leaves
// pan unchanged.
func ClampPan(pan int16, caps params.ControlCaps) int16 {
	if caps.PanMax == 0 {
		return pan
	}
	limit := int16(min(int(caps.PanMax), math.MaxInt16))
	return max(-limit, min(limit, pan))
}

// DBToVolume converts dB to 1/256 dB fixed point, rounded to nearest and
// clamped to [caps.VolumeMin, caps.VolumeMax] when the range is set.
func DBToVolume(db float64, caps params.ControlCaps) int16 {
	lo, hi := float64(math.MinInt16), float64(math.MaxInt16)
	if caps.VolumeMin < caps.VolumeMax {
		lo, hi = float64(caps.VolumeMin), float64(caps.VolumeMax)
	}
	v := math.Round(db * 256)
	if math.IsNaN(v) {
		return int16(lo)
	}
	return int16(math.Max(lo, math.Min(hi, v)))
}
