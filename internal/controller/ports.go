package controller

import (
	"fmt"
	"net/netip"

	"github.com/micro-nova/audioconfig-go/internal/models"
	"github.com/micro-nova/audioconfig-go/internal/params"
	"github.com/micro-nova/audioconfig-go/internal/registry"
)

// Global returns the device-wide configuration.
func (c *Controller) Global() (models.Global, *models.AppError) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.global()
}

func (c *Controller) global() (models.Global, *models.AppError) {
	g, err := registry.Get[*params.AudioGlobalParm](c.store, 0, 0)
	if err != nil {
		return models.Global{}, models.ErrUnavailable("device configuration not loaded")
	}
	v := models.Global{
		DeviceID:     c.store.DeviceID(),
		NumPorts:     int(g.NumPorts),
		HasMixer:     c.resolver.HasMixer(),
		ActiveConfig: int(g.ActiveConfig),
		Configs:      make([]models.ConfigBlock, 0, len(g.Configs)),
		Frames:       models.Range{Min: int(g.MinFrames), Max: int(g.MaxFrames), Current: int(g.CurFrames)},
		SyncFactor:   models.Range{Min: int(g.MinSync), Max: int(g.MaxSync), Current: int(g.CurSync)},
	}
	for _, cb := range g.Configs {
		v.Configs = append(v.Configs, models.ConfigBlock{
			Number:     int(cb.Number),
			BitDepth:   cb.BitDepth.Bits(),
			SampleRate: cb.SampleRate.Hz(),
		})
	}
	return v, nil
}

// SetGlobal changes the active config, frame count or sync factor.
func (c *Controller) SetGlobal(upd models.GlobalUpdate) (models.Global, *models.AppError) {
	c.mu.Lock()
	defer c.mu.Unlock()

	g, err := registry.Get[*params.AudioGlobalParm](c.store, 0, 0)
	if err != nil {
		return models.Global{}, models.ErrUnavailable("device configuration not loaded")
	}
	next := g.Clone()

	if upd.ActiveConfig != nil {
		n, appErr := toU8("active_config", *upd.ActiveConfig)
		if appErr != nil {
			return models.Global{}, appErr
		}
		if err := next.SetActiveConfig(n); err != nil {
			return models.Global{}, fieldError("active_config", err)
		}
	}
	if upd.Frames != nil {
		n, appErr := toU16("frames", *upd.Frames)
		if appErr != nil {
			return models.Global{}, appErr
		}
		if err := next.SetAudioFrames(n); err != nil {
			return models.Global{}, fieldError("frames", err)
		}
	}
	if upd.SyncFactor != nil {
		n, appErr := toU8("sync_factor", *upd.SyncFactor)
		if appErr != nil {
			return models.Global{}, appErr
		}
		if err := next.SetSyncFactor(n); err != nil {
			return models.Global{}, fieldError("sync_factor", err)
		}
	}

	if err := registry.Send(c.store, next); err != nil {
		return models.Global{}, toAppError(err)
	}
	return c.global()
}

// Ports returns every port in ID order.
func (c *Controller) Ports() []models.Port {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.resolver.NumPorts()
	ports := make([]models.Port, 0, n)
	for id := 1; id <= n; id++ {
		p, err := registry.Get[*params.AudioPortParm](c.store, uint16(id), 0)
		if err != nil {
			continue
		}
		ports = append(ports, c.portView(p))
	}
	return ports
}

// Port returns one port.
func (c *Controller) Port(id int) (models.Port, *models.AppError) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, appErr := c.port(id)
	if appErr != nil {
		return models.Port{}, appErr
	}
	return c.portView(p), nil
}

// SetPort renames a port or changes its active channel counts.
func (c *Controller) SetPort(id int, upd models.PortUpdate) (models.Port, *models.AppError) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, appErr := c.port(id)
	if appErr != nil {
		return models.Port{}, appErr
	}
	next := *p

	if upd.Name != nil {
		if err := next.SetName(*upd.Name); err != nil {
			return models.Port{}, fieldError("name", err)
		}
	}
	if upd.Inputs != nil {
		n, appErr := toU8("inputs", *upd.Inputs)
		if appErr != nil {
			return models.Port{}, appErr
		}
		if err := next.SetInputChannels(n); err != nil {
			return models.Port{}, fieldError("inputs", err)
		}
	}
	if upd.Outputs != nil {
		n, appErr := toU8("outputs", *upd.Outputs)
		if appErr != nil {
			return models.Port{}, appErr
		}
		if err := next.SetOutputChannels(n); err != nil {
			return models.Port{}, fieldError("outputs", err)
		}
	}

	if err := registry.Send(c.store, &next); err != nil {
		return models.Port{}, toAppError(err)
	}
	return c.portView(&next), nil
}

func (c *Controller) port(id int) (*params.AudioPortParm, *models.AppError) {
	pid, appErr := toU16("port", id)
	if appErr != nil {
		return nil, models.ErrNotFound(fmt.Sprintf("port %d not found", id))
	}
	p, err := registry.Get[*params.AudioPortParm](c.store, pid, 0)
	if err != nil {
		return nil, models.ErrNotFound(fmt.Sprintf("port %d not found", id))
	}
	return p, nil
}

func (c *Controller) portView(p *params.AudioPortParm) models.Port {
	v := models.Port{
		ID:      int(p.PortID),
		Type:    p.Type().String(),
		Number:  int(p.Number),
		Name:    p.Name,
		NameMax: int(p.NameMax),
		Inputs:  models.Range{Min: int(p.Inputs.Min), Max: int(p.Inputs.Max), Current: int(p.Inputs.Current)},
		Outputs: models.Range{Min: int(p.Outputs.Min), Max: int(p.Outputs.Max), Current: int(p.Outputs.Current)},
		Details: portDetails(p.Details),
	}
	if c.resolver.HasMixer() {
		mp, err := registry.Get[*params.MixerPortParm](c.store, p.PortID, 0)
		if err == nil && (mp.NumInputs > 0 || mp.NumOutputs > 0) {
			v.Mixer = &models.MixerPort{Inputs: int(mp.NumInputs), Outputs: int(mp.NumOutputs)}
		}
	}
	return v
}

func portDetails(d params.PortDetails) map[string]any {
	switch d := d.(type) {
	case params.USBDeviceDetails:
		return map[string]any{
			"host_type": d.HostType,
			"connected": d.Connected(),
			"ios_host":  d.Flags&params.USBDeviceIOSHost != 0,
		}
	case params.USBHostDetails:
		return map[string]any{
			"vendor_id":   d.VendorID,
			"product_id":  d.ProductID,
			"device_name": d.DeviceName,
		}
	case params.EthernetDetails:
		return map[string]any{
			"max_sessions":    d.MaxSessions,
			"active_sessions": d.ActiveSessions,
			"address":         netip.AddrFrom4(d.Address).String(),
		}
	case params.AnalogueDetails:
		return map[string]any{
			"jack_count":      d.JackCount,
			"phantom_capable": d.Flags&params.AnaloguePhantomCapable != 0,
			"level_switch":    d.Flags&params.AnalogueLevelSwitch != 0,
		}
	default:
		return nil
	}
}
