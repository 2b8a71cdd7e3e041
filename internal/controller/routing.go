package controller

import (
	"fmt"

	"github.com/micro-nova/audioconfig-go/internal/models"
	"github.com/micro-nova/audioconfig-go/internal/params"
	"github.com/micro-nova/audioconfig-go/internal/registry"
	"github.com/micro-nova/audioconfig-go/internal/routing"
)

// Routing returns the patch matrix as displayed, with collapse applied.
func (c *Controller) Routing() models.Routing {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.routing()
}

func (c *Controller) routing() models.Routing {
	r := models.Routing{
		Sections:     []models.Section{},
		Patches:      []models.Patch{},
		MixerPatches: []models.Patch{},
	}
	for s := 1; s <= c.resolver.NumSections(); s++ {
		port, mixer, err := c.resolver.Section(s)
		if err != nil {
			continue
		}
		r.Sections = append(r.Sections, models.Section{
			ID:        s,
			Port:      int(port),
			Mixer:     mixer,
			Name:      c.sectionName(port, mixer),
			Inputs:    c.resolver.NumInputsPerSection(s),
			Outputs:   c.resolver.NumOutputsPerSection(s),
			Collapsed: c.resolver.IsCollapsed(s),
		})
	}
	c.resolver.ForEach(func(out, in routing.Address) bool {
		r.Patches = append(r.Patches, models.Patch{Out: endpoint(out), In: endpoint(in)})
		return true
	})
	c.resolver.ForEachMixer(func(out, in routing.Address) bool {
		r.MixerPatches = append(r.MixerPatches, models.Patch{Out: endpoint(out), In: endpoint(in)})
		return true
	})
	return r
}

func (c *Controller) sectionName(port uint16, mixer bool) string {
	name := fmt.Sprintf("Port %d", port)
	if p, err := registry.Get[*params.AudioPortParm](c.store, port, 0); err == nil && p.Name != "" {
		name = p.Name
	}
	if mixer {
		name += " Mixer"
	}
	return name
}

// IsPatched reports whether out feeds in.
func (c *Controller) IsPatched(out, in models.Endpoint) models.Patched {
	c.mu.Lock()
	defer c.mu.Unlock()
	return models.Patched{
		Out:     out,
		In:      in,
		Patched: c.resolver.IsPatched(address(out), address(in)),
	}
}

// SetPatch applies a link change and returns the resulting matrix.
func (c *Controller) SetPatch(req models.PatchRequest) (models.Routing, *models.AppError) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var remove routing.Address
	if req.Remove != nil {
		remove = address(*req.Remove)
	}
	if err := c.resolver.SetPatch(address(req.Out), address(req.In), remove); err != nil {
		return models.Routing{}, toAppError(err)
	}
	return c.routing(), nil
}

// SetCollapsed sets a section's display collapse flag and persists it.
func (c *Controller) SetCollapsed(section int, collapsed bool) (models.Routing, *models.AppError) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.resolver.SetCollapsed(section, collapsed); err != nil {
		return models.Routing{}, models.ErrNotFound(err.Error())
	}
	c.savePreferences()
	return c.routing(), nil
}

func endpoint(a routing.Address) models.Endpoint {
	return models.Endpoint{Section: a.Section, Channel: a.Channel}
}

func address(e models.Endpoint) routing.Address {
	return routing.Address{Section: e.Section, Channel: e.Channel}
}
