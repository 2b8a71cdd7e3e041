// Package controller is the single mutation path between the HTTP API and the
// device registry. Every call holds one lock, reads through the registry,
// mutates through the control facades or the routing resolver, and returns a
// fresh view.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/micro-nova/audioconfig-go/internal/config"
	"github.com/micro-nova/audioconfig-go/internal/models"
	"github.com/micro-nova/audioconfig-go/internal/params"
	"github.com/micro-nova/audioconfig-go/internal/registry"
	"github.com/micro-nova/audioconfig-go/internal/routing"
)

// Device re-reads the device's parameters into the registry.
type Device interface {
	Populate(ctx context.Context) error
}

// Controller serializes access to the registry and the routing resolver.
type Controller struct {
	mu       sync.Mutex
	store    *registry.Store
	resolver *routing.Resolver
	prefs    config.Store
	dev      Device
}

// New creates a controller over store and restores the saved collapse flags.
// dev may be nil, in which case Refresh does nothing.
func New(store *registry.Store, prefs config.Store, dev Device) (*Controller, error) {
	p, err := prefs.Load()
	if err != nil {
		return nil, fmt.Errorf("loading preferences: %w", err)
	}
	c := &Controller{
		store:    store,
		resolver: routing.New(store),
		prefs:    prefs,
		dev:      dev,
	}
	p.Normalize()
	for _, sp := range p.Collapsed {
		c.resolver.SetCollapsedRef(routing.SectionRef{Port: uint16(sp.Port), Mixer: sp.Mixer}, true)
	}
	return c, nil
}

// Refresh reloads every parameter from the device. Collapse flags follow
// their port, so they land on the right sections even if numbering changes.
func (c *Controller) Refresh(ctx context.Context) *models.AppError {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dev != nil {
		if err := c.dev.Populate(ctx); err != nil {
			return models.ErrUnavailable(err.Error())
		}
	}
	return nil
}

// savePreferences persists every collapse flag, including those of sections
// the device does not currently have.
func (c *Controller) savePreferences() {
	p := models.Preferences{Collapsed: []models.SectionPref{}}
	for _, ref := range c.resolver.CollapsedRefs() {
		p.Collapsed = append(p.Collapsed, models.SectionPref{Port: int(ref.Port), Mixer: ref.Mixer})
	}
	p.Normalize()
	if err := c.prefs.Save(&p); err != nil {
		slog.Warn("controller: failed to save preferences", "err", err)
	}
}

// Info describes the registry behind the controller.
func (c *Controller) Info() models.Info {
	return models.Info{
		DeviceID: c.store.DeviceID(),
		Records:  c.store.Len(),
	}
}

// toAppError maps registry, codec and routing errors to API errors.
func toAppError(err error) *models.AppError {
	var appErr *models.AppError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, registry.ErrSendFailed):
		return models.ErrUnavailable(err.Error())
	case errors.Is(err, registry.ErrKeyNotFound):
		return models.ErrNotFound(err.Error())
	case errors.Is(err, params.ErrBusFull):
		return models.ErrConflict(err.Error())
	case errors.Is(err, routing.ErrInvalidPath),
		errors.Is(err, routing.ErrInvalidSection),
		errors.Is(err, params.ErrOutOfRange),
		errors.Is(err, params.ErrBlockNotFound):
		return models.ErrBadRequest(err.Error())
	default:
		return models.ErrInternal(err.Error())
	}
}

// fieldError reports a setter failure against the request field that caused it.
func fieldError(field string, err error) *models.AppError {
	if errors.Is(err, registry.ErrSendFailed) {
		return models.ErrUnavailable(err.Error())
	}
	return models.FieldError(field, err.Error())
}

func toU8(field string, v int) (uint8, *models.AppError) {
	if v < 0 || v > math.MaxUint8 {
		return 0, models.FieldError(field, fmt.Sprintf("%s must be 0-%d", field, math.MaxUint8))
	}
	return uint8(v), nil
}

func toU16(field string, v int) (uint16, *models.AppError) {
	if v < 0 || v > math.MaxUint16 {
		return 0, models.FieldError(field, fmt.Sprintf("%s must be 0-%d", field, math.MaxUint16))
	}
	return uint16(v), nil
}
