package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/micro-nova/audioconfig-go/internal/auth"
	"github.com/micro-nova/audioconfig-go/internal/models"
)

// NewRouter creates and returns the main HTTP router.
func NewRouter(ctrl Controller, authSvc *auth.Service, bus EventBus, opts Options) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(corsMiddleware)
	r.Use(middleware.CleanPath)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, models.ErrNotFound("no route for "+r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, &models.AppError{Code: "METHOD_NOT_ALLOWED", Message: r.Method + " not allowed", Status: http.StatusMethodNotAllowed})
	})

	h := &Handlers{ctrl: ctrl, events: bus, opts: opts}

	r.Route("/api", func(r chi.Router) {
		if authSvc != nil {
			r.Use(authSvc.Middleware)
		}

		// Device
		r.Get("/info", h.getInfo)
		r.Post("/refresh", h.refresh)
		r.Get("/global", h.getGlobal)
		r.Patch("/global", h.setGlobal)

		// Ports
		r.Get("/ports", h.getPorts)
		r.Get("/ports/{pid}", h.getPort)
		r.Patch("/ports/{pid}", h.setPort)
		r.Get("/ports/{pid}/channels/{ch}", h.getPortControl)
		r.Patch("/ports/{pid}/channels/{ch}", h.setPortControl)

		// Mixers
		r.Get("/mixers/{pid}/outputs/{oid}", h.getMixerOutputControl)
		r.Patch("/mixers/{pid}/outputs/{oid}", h.setMixerOutputControl)
		r.Get("/mixers/{pid}/outputs/{oid}/inputs/{iid}", h.getMixerInputControl)
		r.Patch("/mixers/{pid}/outputs/{oid}/inputs/{iid}", h.setMixerInputControl)

		// Routing
		r.Get("/routing", h.getRouting)
		r.Get("/routing/patched", h.getPatched)
		r.Put("/routing/patch", h.setPatch)
		r.Put("/routing/sections/{sid}/collapsed", h.setCollapsed)

		// SSE
		r.Get("/subscribe", h.sseEvents)
	})

	return r
}

// corsMiddleware adds permissive CORS headers for local network access.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, api-key")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
