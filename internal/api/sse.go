package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/micro-nova/audioconfig-go/internal/models"
)

// sseEvents handles the SSE (Server-Sent Events) endpoint.
// Clients receive an "info" event immediately, then one "update" event per
// registry change.
func (h *Handlers) sseEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	id := uuid.New().String()
	ch := h.events.Subscribe(id)
	defer h.events.Unsubscribe(id)

	info := h.ctrl.Info()
	info.Version = h.opts.Version
	info.Transport = h.opts.Transport
	sendSSE(w, flusher, "info", info)

	for {
		select {
		case u, ok := <-ch:
			if !ok {
				return
			}
			sendSSE(w, flusher, "update", models.NewUpdate(string(u.Kind), u.Key))
		case <-r.Context().Done():
			return
		}
	}
}

func sendSSE(w http.ResponseWriter, flusher http.Flusher, event string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	flusher.Flush()
}
