package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/micro-nova/audioconfig-go/internal/models"
)

const (
	apiKeyHeader     = "api-key"
	apiKeyQueryParam = "api-key"
)

// Middleware enforces authentication. In open mode all requests pass. Otherwise
// the key is read from the api-key header or query parameter; read-scoped keys
// may only use safe methods.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.IsOpenMode() {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get(apiKeyHeader)
		if key == "" {
			key = r.URL.Query().Get(apiKeyQueryParam)
		}
		name, client, ok := s.Lookup(key)
		if !ok {
			deny(w, models.ErrUnauthorized)
			return
		}
		if client.Scope == ScopeRead && !safeMethod(r.Method) {
			slog.Debug("auth: read-only client attempted write", "client", name, "method", r.Method, "path", r.URL.Path)
			deny(w, models.ErrForbidden("api key is read-only"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func safeMethod(m string) bool {
	return m == http.MethodGet || m == http.MethodHead || m == http.MethodOptions
}

func deny(w http.ResponseWriter, appErr *models.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.Status)
	_ = json.NewEncoder(w).Encode(appErr)
}
