package controller

import (
	"fmt"
	"math"

	"github.com/micro-nova/audioconfig-go/internal/controls"
	"github.com/micro-nova/audioconfig-go/internal/models"
	"github.com/micro-nova/audioconfig-go/internal/params"
	"github.com/micro-nova/audioconfig-go/internal/registry"
)

// MixerInputControl returns the controls of one mixer input on one bus.
func (c *Controller) MixerInputControl(port, output, input int) (models.Control, *models.AppError) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch, appErr := c.mixerInput(port, output, input)
	if appErr != nil {
		return models.Control{}, appErr
	}
	return controlView(ch)
}

// SetMixerInputControl updates one mixer input on one bus.
func (c *Controller) SetMixerInputControl(port, output, input int, upd models.ControlUpdate) (models.Control, *models.AppError) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch, appErr := c.mixerInput(port, output, input)
	if appErr != nil {
		return models.Control{}, appErr
	}
	return applyControl(ch, upd)
}

// MixerOutputControl returns the controls of one mixer bus.
func (c *Controller) MixerOutputControl(port, output int) (models.Control, *models.AppError) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch, appErr := c.mixerOutput(port, output)
	if appErr != nil {
		return models.Control{}, appErr
	}
	return controlView(ch)
}

// SetMixerOutputControl updates one mixer bus.
func (c *Controller) SetMixerOutputControl(port, output int, upd models.ControlUpdate) (models.Control, *models.AppError) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch, appErr := c.mixerOutput(port, output)
	if appErr != nil {
		return models.Control{}, appErr
	}
	return applyControl(ch, upd)
}

// PortControl returns the controls of one output channel of a port.
func (c *Controller) PortControl(port, channel int) (models.Control, *models.AppError) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch, appErr := c.portChannel(port, channel)
	if appErr != nil {
		return models.Control{}, appErr
	}
	return controlView(ch)
}

// SetPortControl updates one output channel of a port.
func (c *Controller) SetPortControl(port, channel int, upd models.ControlUpdate) (models.Control, *models.AppError) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch, appErr := c.portChannel(port, channel)
	if appErr != nil {
		return models.Control{}, appErr
	}
	return applyControl(ch, upd)
}

func (c *Controller) mixerPort(port int) (*params.MixerPortParm, *models.AppError) {
	p, appErr := c.port(port)
	if appErr != nil {
		return nil, appErr
	}
	mp, err := registry.Get[*params.MixerPortParm](c.store, p.PortID, 0)
	if err != nil || !c.resolver.HasMixer() || (mp.NumInputs == 0 && mp.NumOutputs == 0) {
		return nil, models.ErrNotFound(fmt.Sprintf("port %d has no mixer", port))
	}
	return mp, nil
}

func (c *Controller) mixerInput(port, output, input int) (*controls.Channel, *models.AppError) {
	mp, appErr := c.mixerPort(port)
	if appErr != nil {
		return nil, appErr
	}
	if output < 1 || output > int(mp.NumOutputs) {
		return nil, models.ErrNotFound(fmt.Sprintf("mixer output %d not found", output))
	}
	if input < 1 || input > int(mp.NumInputs) {
		return nil, models.ErrNotFound(fmt.Sprintf("mixer input %d not found", input))
	}
	return controls.MixerInput(c.store, mp.PortID, uint8(output), uint8(input)), nil
}

func (c *Controller) mixerOutput(port, output int) (*controls.Channel, *models.AppError) {
	mp, appErr := c.mixerPort(port)
	if appErr != nil {
		return nil, appErr
	}
	if output < 1 || output > int(mp.NumOutputs) {
		return nil, models.ErrNotFound(fmt.Sprintf("mixer output %d not found", output))
	}
	return controls.MixerOutput(c.store, mp.PortID, uint8(output)), nil
}

func (c *Controller) portChannel(port, channel int) (*controls.Channel, *models.AppError) {
	p, appErr := c.port(port)
	if appErr != nil {
		return nil, appErr
	}
	if channel < 1 || channel > int(p.Outputs.Current) {
		return nil, models.ErrNotFound(fmt.Sprintf("port %d channel %d not found", port, channel))
	}
	return controls.AudioPort(c.store, p.PortID, uint8(channel)), nil
}

func controlView(ch *controls.Channel) (models.Control, *models.AppError) {
	caps, err := ch.Caps()
	if err != nil {
		return models.Control{}, toAppError(err)
	}
	v, err := ch.Value()
	if err != nil {
		return models.Control{}, toAppError(err)
	}
	return models.Control{
		Available:   caps.Available.String(),
		Editable:    caps.Editable.String(),
		Mute:        v.Flags.Has(params.ControlMute),
		Solo:        v.Flags.Has(params.ControlSolo),
		Invert:      v.Flags.Has(params.ControlInvert),
		StereoLink:  v.Flags.Has(params.ControlStereoLink),
		VolumeDB:    controls.VolumeToDB(v.Volume),
		VolumeMinDB: controls.VolumeToDB(caps.VolumeMin),
		VolumeMaxDB: controls.VolumeToDB(caps.VolumeMax),
		Pan:         int(v.Pan),
		PanMax:      int(caps.PanMax),
	}, nil
}

// applyControl checks every requested field is editable before changing any.
func applyControl(ch *controls.Channel, upd models.ControlUpdate) (models.Control, *models.AppError) {
	caps, err := ch.Caps()
	if err != nil {
		return models.Control{}, toAppError(err)
	}

	flags := []struct {
		field string
		ctl   params.Control
		want  *bool
		set   func(bool) (bool, error)
	}{
		{"mute", params.ControlMute, upd.Mute, ch.SetMute},
		{"solo", params.ControlSolo, upd.Solo, ch.SetSolo},
		{"invert", params.ControlInvert, upd.Invert, ch.SetInvert},
		{"stereo_link", params.ControlStereoLink, upd.StereoLink, ch.SetStereoLink},
	}
	for _, f := range flags {
		if f.want != nil && !ch.IsEditable(f.ctl) {
			return models.Control{}, models.ErrForbidden(fmt.Sprintf("%s is not editable", f.field))
		}
	}
	if upd.VolumeDB != nil && !ch.IsVolumeEditable() {
		return models.Control{}, models.ErrForbidden("volume is not editable")
	}
	if upd.Pan != nil {
		if !ch.IsPanEditable() {
			return models.Control{}, models.ErrForbidden("pan is not editable")
		}
		if limit := min(int(caps.PanMax), math.MaxInt16); *upd.Pan < -limit || *upd.Pan > limit {
			return models.Control{}, models.FieldError("pan", fmt.Sprintf("pan must be between -%d and %d", limit, limit))
		}
	}

	for _, f := range flags {
		if f.want == nil {
			continue
		}
		if _, err := f.set(*f.want); err != nil {
			return models.Control{}, toAppError(err)
		}
	}
	if upd.VolumeDB != nil {
		if _, err := ch.SetVolumeDB(*upd.VolumeDB); err != nil {
			return models.Control{}, toAppError(err)
		}
	}
	if upd.Pan != nil {
		if _, err := ch.SetPan(int16(*upd.Pan)); err != nil {
			return models.Control{}, toAppError(err)
		}
	}
	return controlView(ch)
}
