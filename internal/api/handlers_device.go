package api

import (
	"net/http"

	"github.com/micro-nova/audioconfig-go/internal/models"
)

func (h *Handlers) getInfo(w http.ResponseWriter, r *http.Request) {
	info := h.ctrl.Info()
	info.Version = h.opts.Version
	info.Transport = h.opts.Transport
	writeJSON(w, http.StatusOK, info)
}

func (h *Handlers) refresh(w http.ResponseWriter, r *http.Request) {
	if appErr := h.ctrl.Refresh(r.Context()); appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, h.ctrl.Routing())
}

func (h *Handlers) getGlobal(w http.ResponseWriter, r *http.Request) {
	g, appErr := h.ctrl.Global()
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (h *Handlers) setGlobal(w http.ResponseWriter, r *http.Request) {
	var upd models.GlobalUpdate
	if err := decodeBody(r, &upd); err != nil {
		writeError(w, err)
		return
	}
	g, appErr := h.ctrl.SetGlobal(upd)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (h *Handlers) getPorts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"ports": h.ctrl.Ports()})
}

func (h *Handlers) getPort(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "pid")
	if err != nil {
		writeError(w, err)
		return
	}
	p, appErr := h.ctrl.Port(id)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handlers) setPort(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "pid")
	if err != nil {
		writeError(w, err)
		return
	}
	var upd models.PortUpdate
	if err := decodeBody(r, &upd); err != nil {
		writeError(w, err)
		return
	}
	p, appErr := h.ctrl.SetPort(id, upd)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
