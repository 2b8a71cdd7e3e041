package api

import (
	"net/http"

	"github.com/micro-nova/audioconfig-go/internal/models"
)

// controlHandler serves GET and PATCH for one kind of channel control. The
// path parameters named in params are passed to get and set in order.
type controlHandler struct {
	params []string
	get    func(ids []int) (models.Control, *models.AppError)
	set    func(ids []int, upd models.ControlUpdate) (models.Control, *models.AppError)
}

func (c controlHandler) serveGet(w http.ResponseWriter, r *http.Request) {
	ids, err := intParams(r, c.params...)
	if err != nil {
		writeError(w, err)
		return
	}
	ctl, appErr := c.get(ids)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, ctl)
}

func (c controlHandler) servePatch(w http.ResponseWriter, r *http.Request) {
	ids, err := intParams(r, c.params...)
	if err != nil {
		writeError(w, err)
		return
	}
	var upd models.ControlUpdate
	if err := decodeBody(r, &upd); err != nil {
		writeError(w, err)
		return
	}
	ctl, appErr := c.set(ids, upd)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, ctl)
}

func (h *Handlers) mixerInput() controlHandler {
	return controlHandler{
		params: []string{"pid", "oid", "iid"},
		get: func(ids []int) (models.Control, *models.AppError) {
			return h.ctrl.MixerInputControl(ids[0], ids[1], ids[2])
		},
		set: func(ids []int, upd models.ControlUpdate) (models.Control, *models.AppError) {
			return h.ctrl.SetMixerInputControl(ids[0], ids[1], ids[2], upd)
		},
	}
}

func (h *Handlers) mixerOutput() controlHandler {
	return controlHandler{
		params: []string{"pid", "oid"},
		get: func(ids []int) (models.Control, *models.AppError) {
			return h.ctrl.MixerOutputControl(ids[0], ids[1])
		},
		set: func(ids []int, upd models.ControlUpdate) (models.Control, *models.AppError) {
			return h.ctrl.SetMixerOutputControl(ids[0], ids[1], upd)
		},
	}
}

func (h *Handlers) portChannel() controlHandler {
	return controlHandler{
		params: []string{"pid", "ch"},
		get: func(ids []int) (models.Control, *models.AppError) {
			return h.ctrl.PortControl(ids[0], ids[1])
		},
		set: func(ids []int, upd models.ControlUpdate) (models.Control, *models.AppError) {
			return h.ctrl.SetPortControl(ids[0], ids[1], upd)
		},
	}
}

func (h *Handlers) getMixerInputControl(w http.ResponseWriter, r *http.Request) {
	h.mixerInput().serveGet(w, r)
}

func (h *Handlers) setMixerInputControl(w http.ResponseWriter, r *http.Request) {
	h.mixerInput().servePatch(w, r)
}

func (h *Handlers) getMixerOutputControl(w http.ResponseWriter, r *http.Request) {
	h.mixerOutput().serveGet(w, r)
}

func (h *Handlers) setMixerOutputControl(w http.ResponseWriter, r *http.Request) {
	h.mixerOutput().servePatch(w, r)
}

func (h *Handlers) getPortControl(w http.ResponseWriter, r *http.Request) {
	h.portChannel().serveGet(w, r)
}

func (h *Handlers) setPortControl(w http.ResponseWriter, r *http.Request) {
	h.portChannel().servePatch(w, r)
}
