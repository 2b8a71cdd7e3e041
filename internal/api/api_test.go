package api_test

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/micro-nova/audioconfig-go/internal/api"
	"github.com/micro-nova/audioconfig-go/internal/auth"
	"github.com/micro-nova/audioconfig-go/internal/config"
	"github.com/micro-nova/audioconfig-go/internal/controller"
	"github.com/micro-nova/audioconfig-go/internal/device"
	"github.com/micro-nova/audioconfig-go/internal/events"
	"github.com/micro-nova/audioconfig-go/internal/models"
	"github.com/micro-nova/audioconfig-go/internal/registry"
)

// newTestServer spins up a full router over a registry seeded with the
// simulated device's records.
func newTestServer(t *testing.T, stateDir string) *httptest.Server {
	t.Helper()

	bus := events.NewBus()
	store := registry.NewStore(1, bus)
	for _, rec := range device.DefaultRecords() {
		store.Put(rec)
	}

	ctrl, err := controller.New(store, config.NewMemStore(), nil)
	if err != nil {
		t.Fatalf("controller.New: %v", err)
	}

	authSvc, err := auth.NewService(stateDir)
	if err != nil {
		t.Fatalf("auth.NewService: %v", err)
	}

	router := api.NewRouter(ctrl, authSvc, bus, api.Options{Version: "test", Transport: "mock"})
	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		srv.Close()
		authSvc.Close()
	})
	return srv
}

// do is a convenience helper for making requests to the test server.
func do(t *testing.T, srv *httptest.Server, method, path, body string) *http.Response {
	t.Helper()
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, srv.URL+path, bodyReader)
	if err != nil {
		t.Fatalf("NewRequest %s %s: %v", method, path, err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("Do %s %s: %v", method, path, err)
	}
	return resp
}

// decodeJSON reads and decodes a JSON response body into v.
func decodeJSON(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
}

// requireStatus fails the test if the response status doesn't match.
func requireStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("status = %d, want %d; body: %s", resp.StatusCode, expected, body)
	}
}

// requireError checks the status and decodes the AppError body.
func requireError(t *testing.T, resp *http.Response, expected int) models.AppError {
	t.Helper()
	requireStatus(t, resp, expected)
	var appErr models.AppError
	decodeJSON(t, resp, &appErr)
	if appErr.Code == "" {
		t.Error("error body has no code")
	}
	return appErr
}

// --- Tests ---

func TestGetGlobal(t *testing.T) {
	srv := newTestServer(t, t.TempDir())

	resp := do(t, srv, "GET", "/api/global", "")
	requireStatus(t, resp, http.StatusOK)

	var g models.Global
	decodeJSON(t, resp, &g)
	if g.NumPorts != 4 || !g.HasMixer || len(g.Configs) != 3 {
		t.Errorf("GET /api/global = %+v", g)
	}
}

func TestPatchGlobal(t *testing.T) {
	srv := newTestServer(t, t.TempDir())

	resp := do(t, srv, "PATCH", "/api/global", `{"active_config":1}`)
	requireStatus(t, resp, http.StatusOK)
	var g models.Global
	decodeJSON(t, resp, &g)
	if g.ActiveConfig != 1 {
		t.Errorf("active_config = %d, want 1", g.ActiveConfig)
	}

	appErr := requireError(t, do(t, srv, "PATCH", "/api/global", `{"active_config":7}`), http.StatusBadRequest)
	if appErr.Field != "active_config" {
		t.Errorf("field = %q, want active_config", appErr.Field)
	}
}

func TestGetPorts(t *testing.T) {
	srv := newTestServer(t, t.TempDir())

	resp := do(t, srv, "GET", "/api/ports", "")
	requireStatus(t, resp, http.StatusOK)
	var body struct {
		Ports []models.Port `json:"ports"`
	}
	decodeJSON(t, resp, &body)
	if len(body.Ports) != 4 {
		t.Fatalf("len(ports) = %d, want 4", len(body.Ports))
	}
	if body.Ports[3].Type != "analogue" {
		t.Errorf("ports[3].type = %q", body.Ports[3].Type)
	}
}

func TestGetPort(t *testing.T) {
	srv := newTestServer(t, t.TempDir())

	resp := do(t, srv, "GET", "/api/ports/3", "")
	requireStatus(t, resp, http.StatusOK)
	var p models.Port
	decodeJSON(t, resp, &p)
	if p.ID != 3 || p.Name != "Network" {
		t.Errorf("GET /api/ports/3 = %+v", p)
	}

	requireError(t, do(t, srv, "GET", "/api/ports/9", ""), http.StatusNotFound)
	requireError(t, do(t, srv, "GET", "/api/ports/abc", ""), http.StatusBadRequest)
}

func TestPatchPort(t *testing.T) {
	srv := newTestServer(t, t.TempDir())

	resp := do(t, srv, "PATCH", "/api/ports/2", `{"name":"Laptop"}`)
	requireStatus(t, resp, http.StatusOK)
	var p models.Port
	decodeJSON(t, resp, &p)
	if p.Name != "Laptop" {
		t.Errorf("name = %q, want Laptop", p.Name)
	}

	requireError(t, do(t, srv, "PATCH", "/api/ports/2", `{not valid json`), http.StatusBadRequest)
}

func TestRouting_PatchAndQuery(t *testing.T) {
	srv := newTestServer(t, t.TempDir())

	resp := do(t, srv, "PUT", "/api/routing/patch", `{"out":{"section":1,"channel":2},"in":{"section":5,"channel":1}}`)
	requireStatus(t, resp, http.StatusOK)
	var routes models.Routing
	decodeJSON(t, resp, &routes)
	if len(routes.Sections) != 8 || len(routes.Patches) != 1 {
		t.Fatalf("routing = %+v", routes)
	}

	resp = do(t, srv, "GET", "/api/routing/patched?out=1.2&in=5.1", "")
	requireStatus(t, resp, http.StatusOK)
	var patched models.Patched
	decodeJSON(t, resp, &patched)
	if !patched.Patched {
		t.Error("patched = false after PUT /api/routing/patch")
	}

	resp = do(t, srv, "GET", "/api/routing/patched?out=1.1&in=5.1", "")
	decodeJSON(t, resp, &patched)
	if patched.Patched {
		t.Error("patched = true for an unrelated source")
	}

	requireError(t, do(t, srv, "GET", "/api/routing/patched?out=bogus&in=5.1", ""), http.StatusBadRequest)
}

func TestRouting_InvalidPath(t *testing.T) {
	srv := newTestServer(t, t.TempDir())

	// Bus 1 of the USB mixer into the same mixer's input.
	resp := do(t, srv, "PUT", "/api/routing/patch", `{"out":{"section":2,"channel":1},"in":{"section":2,"channel":1}}`)
	requireError(t, resp, http.StatusBadRequest)
}

func TestRouting_Collapse(t *testing.T) {
	srv := newTestServer(t, t.TempDir())

	resp := do(t, srv, "PUT", "/api/routing/sections/2/collapsed", `{"collapsed":true}`)
	requireStatus(t, resp, http.StatusOK)
	var routes models.Routing
	decodeJSON(t, resp, &routes)
	if !routes.Sections[1].Collapsed || routes.Sections[1].Inputs != 1 {
		t.Errorf("section 2 = %+v", routes.Sections[1])
	}

	requireError(t, do(t, srv, "PUT", "/api/routing/sections/42/collapsed", `{"collapsed":true}`), http.StatusNotFound)
}

func TestControls(t *testing.T) {
	srv := newTestServer(t, t.TempDir())

	paths := []string{
		"/api/ports/1/channels/2",
		"/api/mixers/1/outputs/2",
		"/api/mixers/4/outputs/1/inputs/3",
	}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			resp := do(t, srv, "PATCH", path, `{"mute":true,"volume_db":-6.5}`)
			requireStatus(t, resp, http.StatusOK)
			var c models.Control
			decodeJSON(t, resp, &c)
			if !c.Mute || c.VolumeDB != -6.5 {
				t.Errorf("PATCH %s = %+v", path, c)
			}

			resp = do(t, srv, "GET", path, "")
			requireStatus(t, resp, http.StatusOK)
			decodeJSON(t, resp, &c)
			if !c.Mute {
				t.Errorf("GET %s: mute not persisted", path)
			}
		})
	}

	requireError(t, do(t, srv, "GET", "/api/mixers/2/outputs/1", ""), http.StatusNotFound)
	requireError(t, do(t, srv, "PATCH", "/api/ports/1/channels/1", `{"pan":1000}`), http.StatusBadRequest)
}

func TestGetInfo(t *testing.T) {
	srv := newTestServer(t, t.TempDir())

	resp := do(t, srv, "GET", "/api/info", "")
	requireStatus(t, resp, http.StatusOK)

	var info models.Info
	decodeJSON(t, resp, &info)
	if info.Version != "test" || info.Transport != "mock" || info.Records == 0 {
		t.Errorf("GET /api/info = %+v", info)
	}
}

func TestRefresh_NoDevice(t *testing.T) {
	srv := newTestServer(t, t.TempDir())

	resp := do(t, srv, "POST", "/api/refresh", "")
	requireStatus(t, resp, http.StatusOK)
	resp.Body.Close()
}

func TestNotFound_JSON(t *testing.T) {
	srv := newTestServer(t, t.TempDir())

	requireError(t, do(t, srv, "GET", "/api/nonexistent", ""), http.StatusNotFound)
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, t.TempDir())

	requireError(t, do(t, srv, "POST", "/api/global", `{}`), http.StatusMethodNotAllowed)
}

func TestAuth_SecuredServer(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "api_keys.json"), []byte(`{"ui":{"key":"k1"}}`), 0600); err != nil {
		t.Fatal(err)
	}
	srv := newTestServer(t, dir)

	requireError(t, do(t, srv, "GET", "/api/global", ""), http.StatusUnauthorized)

	resp := do(t, srv, "GET", "/api/global?api-key=k1", "")
	requireStatus(t, resp, http.StatusOK)
	resp.Body.Close()
}

func TestSSESubscribe(t *testing.T) {
	srv := newTestServer(t, t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/subscribe", nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}

	client := &http.Client{
		Transport: &http.Transport{
			DisableCompression: true,
		},
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}

	scanner := bufio.NewScanner(resp.Body)
	next := func() (event, data string) {
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case strings.HasPrefix(line, "event: "):
				event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				return event, strings.TrimPrefix(line, "data: ")
			}
		}
		return "", ""
	}

	event, data := next()
	if event != "info" {
		t.Fatalf("first event = %q, want info", event)
	}
	var info models.Info
	if err := json.Unmarshal([]byte(data), &info); err != nil {
		t.Errorf("info data is not valid JSON: %v", err)
	}

	patch := do(t, srv, "PATCH", "/api/ports/1/channels/1", `{"solo":true}`)
	requireStatus(t, patch, http.StatusOK)
	patch.Body.Close()

	event, data = next()
	if event != "update" {
		t.Fatalf("second event = %q, want update", event)
	}
	var u models.Update
	if err := json.Unmarshal([]byte(data), &u); err != nil {
		t.Fatalf("update data is not valid JSON: %v", err)
	}
	if u.Kind != "put" || u.Family != "AudioControlValue" || u.Port != 1 || u.Sub != 1 {
		t.Errorf("update = %+v", u)
	}
}
