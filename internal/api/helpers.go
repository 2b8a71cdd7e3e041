// Package api implements the HTTP REST API of the audio configurator.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/micro-nova/audioconfig-go/internal/events"
	"github.com/micro-nova/audioconfig-go/internal/models"
)

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	ctrl   Controller
	events EventBus
	opts   Options
}

// Options describes the running service for /api/info.
type Options struct {
	Version   string
	Transport string
}

// Controller is the interface the handlers use to read and change the device.
type Controller interface {
	Global() (models.Global, *models.AppError)
	SetGlobal(upd models.GlobalUpdate) (models.Global, *models.AppError)
	Ports() []models.Port
	Port(id int) (models.Port, *models.AppError)
	SetPort(id int, upd models.PortUpdate) (models.Port, *models.AppError)
	Routing() models.Routing
	IsPatched(out, in models.Endpoint) models.Patched
	SetPatch(req models.PatchRequest) (models.Routing, *models.AppError)
	SetCollapsed(section int, collapsed bool) (models.Routing, *models.AppError)
	MixerInputControl(port, output, input int) (models.Control, *models.AppError)
	SetMixerInputControl(port, output, input int, upd models.ControlUpdate) (models.Control, *models.AppError)
	MixerOutputControl(port, output int) (models.Control, *models.AppError)
	SetMixerOutputControl(port, output int, upd models.ControlUpdate) (models.Control, *models.AppError)
	PortControl(port, channel int) (models.Control, *models.AppError)
	SetPortControl(port, channel int, upd models.ControlUpdate) (models.Control, *models.AppError)
	Info() models.Info
	Refresh(ctx context.Context) *models.AppError
}

// EventBus is the interface for subscribing to registry updates.
type EventBus interface {
	Subscribe(id string) <-chan events.Update
	Unsubscribe(id string)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an AppError as a JSON response.
func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	if appErr, ok := err.(*models.AppError); ok {
		w.WriteHeader(appErr.Status)
		_ = json.NewEncoder(w).Encode(appErr)
		return
	}
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(models.ErrInternal(err.Error()))
}

// intParam reads an integer path parameter by name.
func intParam(r *http.Request, name string) (int, error) {
	s := chi.URLParam(r, name)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, models.ErrBadRequest("invalid " + name + " parameter")
	}
	return n, nil
}

// intParams reads several integer path parameters in order.
func intParams(r *http.Request, names ...string) ([]int, error) {
	out := make([]int, len(names))
	for i, name := range names {
		n, err := intParam(r, name)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

// decodeBody decodes a JSON request body into v.
func decodeBody(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return models.ErrBadRequest("invalid JSON: " + err.Error())
	}
	return nil
}
