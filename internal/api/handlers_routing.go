package api

import (
	"net/http"

	"github.com/micro-nova/audioconfig-go/internal/models"
	"github.com/micro-nova/audioconfig-go/internal/routing"
)

func (h *Handlers) getRouting(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.Routing())
}

// getPatched answers /api/routing/patched?out=s.c&in=s.c.
func (h *Handlers) getPatched(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	out, err := routing.ParseAddress(q.Get("out"))
	if err != nil {
		writeError(w, models.FieldError("out", err.Error()))
		return
	}
	in, err := routing.ParseAddress(q.Get("in"))
	if err != nil {
		writeError(w, models.FieldError("in", err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, h.ctrl.IsPatched(
		models.Endpoint{Section: out.Section, Channel: out.Channel},
		models.Endpoint{Section: in.Section, Channel: in.Channel},
	))
}

func (h *Handlers) setPatch(w http.ResponseWriter, r *http.Request) {
	var req models.PatchRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	routes, appErr := h.ctrl.SetPatch(req)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, routes)
}

func (h *Handlers) setCollapsed(w http.ResponseWriter, r *http.Request) {
	sid, err := intParam(r, "sid")
	if err != nil {
		writeError(w, err)
		return
	}
	var req models.CollapseRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	routes, appErr := h.ctrl.SetCollapsed(sid, req.Collapsed)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, routes)
}
