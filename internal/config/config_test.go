package config_test

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/micro-nova/audioconfig-go/internal/config"
	"github.com/micro-nova/audioconfig-go/internal/models"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// --- Config tests ---

func TestLoad_ValidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audioconfig.yaml")
	writeFile(t, path, `
device:
  transport: mock
  device_id: 7
  query_timeout: 250ms
api:
  addr: "127.0.0.1:9000"
mqtt:
  enabled: true
  broker: "tcp://broker:1883"
logging:
  level: debug
  format: json
capture:
  path: /tmp/frames.cap
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Device.Transport != config.TransportMock {
		t.Errorf("Device.Transport = %q, want mock", cfg.Device.Transport)
	}
	if cfg.Device.DeviceID != 7 {
		t.Errorf("Device.DeviceID = %d, want 7", cfg.Device.DeviceID)
	}
	if cfg.Device.QueryTimeout != 250*time.Millisecond {
		t.Errorf("Device.QueryTimeout = %v, want 250ms", cfg.Device.QueryTimeout)
	}
	if cfg.API.Addr != "127.0.0.1:9000" {
		t.Errorf("API.Addr = %q", cfg.API.Addr)
	}
	if !cfg.MQTT.Enabled || cfg.MQTT.Broker != "tcp://broker:1883" {
		t.Errorf("MQTT = %+v", cfg.MQTT)
	}
	// Unset fields keep their defaults.
	if cfg.Device.BaudRate != 115200 {
		t.Errorf("Device.BaudRate = %d, want default 115200", cfg.Device.BaudRate)
	}
	if cfg.Capture.Path != "/tmp/frames.cap" {
		t.Errorf("Capture.Path = %q", cfg.Capture.Path)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	def := config.Default()
	if cfg.Device != def.Device || cfg.API != def.API {
		t.Errorf("Load() = %+v, want defaults", cfg)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	writeFile(t, path, "device: [not, a, map")
	if _, err := config.Load(path); err == nil {
		t.Error("Load() expected error for invalid YAML")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("AUDIOCONFIG_DEVICE_TRANSPORT", "mock")
	t.Setenv("AUDIOCONFIG_API_ADDR", ":1234")
	t.Setenv("AUDIOCONFIG_MQTT_BROKER", "tcp://env:1883")
	t.Setenv("AUDIOCONFIG_LOG_LEVEL", "warn")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Device.Transport != config.TransportMock {
		t.Errorf("Device.Transport = %q, want mock", cfg.Device.Transport)
	}
	if cfg.API.Addr != ":1234" {
		t.Errorf("API.Addr = %q, want :1234", cfg.API.Addr)
	}
	if !cfg.MQTT.Enabled || cfg.MQTT.Broker != "tcp://env:1883" {
		t.Errorf("MQTT = %+v, want enabled with env broker", cfg.MQTT)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn", cfg.Logging.Level)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*config.Config)
		want   string
	}{
		{"unknown transport", func(c *config.Config) { c.Device.Transport = "carrier-pigeon" }, "device.transport"},
		{"serial without path", func(c *config.Config) { c.Device.Path = "" }, "device.path"},
		{"zero baud", func(c *config.Config) { c.Device.BaudRate = 0 }, "device.baud_rate"},
		{"zero query timeout", func(c *config.Config) { c.Device.QueryTimeout = 0 }, "device.query_timeout"},
		{"bad qos", func(c *config.Config) {
			c.MQTT.Enabled = true
			c.MQTT.QoS = 3
		}, "mqtt.qos"},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"no state dir", func(c *config.Config) { c.StateDir = "" }, "state_dir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want error mentioning %q", err, tt.want)
			}
		})
	}

	mock := config.Default()
	mock.Device.Transport = config.TransportMock
	mock.Device.Path = ""
	if err := mock.Validate(); err != nil {
		t.Errorf("mock transport without path: %v", err)
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audioconfig.yaml")
	writeFile(t, path, "logging:\n  level: info\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan string, 16)
	done := make(chan error, 1)
	go func() {
		done <- config.Watch(ctx, path, func(c *config.Config) { got <- c.Logging.Level })
	}()

	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case level := <-got:
			if level != "debug" {
				t.Errorf("reloaded level = %q, want debug", level)
			}
			cancel()
			if err := <-done; err != nil {
				t.Errorf("Watch() = %v", err)
			}
			return
		case <-tick.C:
			writeFile(t, path, "logging:\n  level: debug\n")
		case <-deadline:
			t.Fatal("Watch never reported the change")
		}
	}
}

// --- JSONStore tests ---

func TestJSONStore_LoadMissingFile_ReturnsDefault(t *testing.T) {
	store := config.NewJSONStore(t.TempDir())

	p, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}
	if p == nil || p.Collapsed == nil || len(p.Collapsed) != 0 {
		t.Errorf("Load() = %+v, want default preferences", p)
	}
}

func TestJSONStore_SaveLoadRoundTrip(t *testing.T) {
	store := config.NewJSONStore(t.TempDir())

	if err := store.Save(&models.Preferences{Collapsed: []models.SectionPref{{Port: 3}, {Port: 1, Mixer: true}}}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if _, err := os.Stat(store.Path()); err != nil {
		t.Fatalf("file not written: %v", err)
	}

	p, err := config.NewJSONStore(filepath.Dir(store.Path())).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if want := []models.SectionPref{{Port: 1, Mixer: true}, {Port: 3}}; !slices.Equal(p.Collapsed, want) {
		t.Errorf("Collapsed = %v, want %v", p.Collapsed, want)
	}
}

func TestJSONStore_CorruptFile_ReturnsDefault(t *testing.T) {
	dir := t.TempDir()
	store := config.NewJSONStore(dir)
	writeFile(t, store.Path(), "{not json")

	p, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(p.Collapsed) != 0 {
		t.Errorf("Collapsed = %v, want empty", p.Collapsed)
	}
}

func TestJSONStore_NormalizesOnLoad(t *testing.T) {
	dir := t.TempDir()
	store := config.NewJSONStore(dir)
	writeFile(t, store.Path(), `{"collapsed":[{"port":5},{"port":5},{"port":0},{"port":2,"mixer":true}]}`)

	p, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if want := []models.SectionPref{{Port: 2, Mixer: true}, {Port: 5}}; !slices.Equal(p.Collapsed, want) {
		t.Errorf("Collapsed = %v, want %v", p.Collapsed, want)
	}
}

func TestJSONStore_DebouncedWrite(t *testing.T) {
	store := config.NewJSONStore(t.TempDir())
	store.Save(&models.Preferences{Collapsed: []models.SectionPref{{Port: 1}}})
	store.Save(&models.Preferences{Collapsed: []models.SectionPref{{Port: 2}}})

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if p, err := store.Load(); err == nil && slices.Equal(p.Collapsed, []models.SectionPref{{Port: 2}}) {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Error("debounced write never landed with the last saved value")
}

func TestJSONStore_FlushWithoutSave_NoError(t *testing.T) {
	store := config.NewJSONStore(t.TempDir())
	if err := store.Flush(); err != nil {
		t.Errorf("Flush() without Save = %v, want nil", err)
	}
}

// --- MemStore tests ---

func TestMemStore_MutationIsolation(t *testing.T) {
	store := config.NewMemStore()
	p := &models.Preferences{Collapsed: []models.SectionPref{{Port: 1}, {Port: 2}}}
	store.Save(p)
	p.Collapsed[0].Port = 99

	loaded, _ := store.Load()
	if loaded.Collapsed[0].Port != 1 {
		t.Error("MemStore shares the caller's slice after Save")
	}
	loaded.Collapsed[1].Port = 42
	again, _ := store.Load()
	if again.Collapsed[1].Port != 2 {
		t.Error("MemStore shares its slice with Load callers")
	}
	if store.Path() != ":memory:" {
		t.Errorf("Path() = %q", store.Path())
	}
}
