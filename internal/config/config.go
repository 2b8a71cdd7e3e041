package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Device transports.
const (
	TransportSerial = "serial"
	TransportMock   = "mock"
)

// Config is the daemon configuration. It is loaded from YAML and can be
// overridden by AUDIOCONFIG_* environment variables and command-line flags.
type Config struct {
	Device   DeviceConfig   `yaml:"device"`
	API      APIConfig      `yaml:"api"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Logging  LoggingConfig  `yaml:"logging"`
	Capture  CaptureConfig  `yaml:"capture"`
	Zeroconf ZeroconfConfig `yaml:"zeroconf"`
	// StateDir holds preferences and the API key file.
	StateDir string `yaml:"state_dir"`
}

// DeviceConfig selects and addresses the audio interface.
type DeviceConfig struct {
	Transport    string        `yaml:"transport"`
	Path         string        `yaml:"path"`
	BaudRate     int           `yaml:"baud_rate"`
	WritesPerSec int           `yaml:"writes_per_sec"`
	DeviceID     uint32        `yaml:"device_id"`
	QueryTimeout time.Duration `yaml:"query_timeout"`
}

// APIConfig contains HTTP server settings.
type APIConfig struct {
	Addr string `yaml:"addr"`
}

// MQTTConfig contains the update publisher's broker settings.
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         int    `yaml:"qos"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// CaptureConfig enables the frame capture log. An empty path disables it.
type CaptureConfig struct {
	Path string `yaml:"path"`
}

// ZeroconfConfig controls the mDNS advert.
type ZeroconfConfig struct {
	Enabled bool   `yaml:"enabled"`
	Name    string `yaml:"name"`
}

// Load reads configuration in this order:
//  1. Default values
//  2. YAML file values (a missing file keeps the defaults)
//  3. Environment variables
//
// and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			slog.Info("config: no config file, using defaults", "path", path)
		case err != nil:
			return nil, fmt.Errorf("reading config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Default returns a Config with defaults suitable for a Raspberry Pi host.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			Transport:    TransportSerial,
			Path:         "/dev/ttyACM0",
			BaudRate:     115200,
			WritesPerSec: 200,
			DeviceID:     1,
			QueryTimeout: 500 * time.Millisecond,
		},
		API: APIConfig{
			Addr: ":8080",
		},
		MQTT: MQTTConfig{
			Broker:      "tcp://localhost:1883",
			ClientID:    "audioconfig",
			TopicPrefix: "audioconfig",
			QoS:         1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Zeroconf: ZeroconfConfig{
			Enabled: true,
			Name:    "audioconfig",
		},
		StateDir: "/var/lib/audioconfig",
	}
}

// applyEnvOverrides applies environment variable overrides.
// Variables follow the pattern AUDIOCONFIG_SECTION_KEY.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AUDIOCONFIG_DEVICE_TRANSPORT"); v != "" {
		cfg.Device.Transport = v
	}
	if v := os.Getenv("AUDIOCONFIG_DEVICE_PATH"); v != "" {
		cfg.Device.Path = v
	}
	if v := os.Getenv("AUDIOCONFIG_DEVICE_BAUD_RATE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Device.BaudRate = n
		} else {
			slog.Warn("config: ignoring invalid AUDIOCONFIG_DEVICE_BAUD_RATE", "value", v)
		}
	}
	if v := os.Getenv("AUDIOCONFIG_API_ADDR"); v != "" {
		cfg.API.Addr = v
	}
	if v := os.Getenv("AUDIOCONFIG_MQTT_BROKER"); v != "" {
		cfg.MQTT.Broker = v
		cfg.MQTT.Enabled = true
	}
	if v := os.Getenv("AUDIOCONFIG_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Username = v
	}
	if v := os.Getenv("AUDIOCONFIG_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Password = v
	}
	if v := os.Getenv("AUDIOCONFIG_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("AUDIOCONFIG_CAPTURE_PATH"); v != "" {
		cfg.Capture.Path = v
	}
	if v := os.Getenv("AUDIOCONFIG_STATE_DIR"); v != "" {
		cfg.StateDir = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	switch c.Device.Transport {
	case TransportSerial:
		if c.Device.Path == "" {
			errs = append(errs, "device.path is required for the serial transport")
		}
		if c.Device.BaudRate <= 0 {
			errs = append(errs, "device.baud_rate must be positive")
		}
	case TransportMock:
	default:
		errs = append(errs, fmt.Sprintf("device.transport must be %q or %q", TransportSerial, TransportMock))
	}
	if c.Device.WritesPerSec < 0 {
		errs = append(errs, "device.writes_per_sec must not be negative")
	}
	if c.Device.QueryTimeout <= 0 {
		errs = append(errs, "device.query_timeout must be positive")
	}

	if c.API.Addr == "" {
		errs = append(errs, "api.addr is required")
	}

	if c.MQTT.Enabled {
		if c.MQTT.Broker == "" {
			errs = append(errs, "mqtt.broker is required when mqtt is enabled")
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1, or 2")
		}
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		errs = append(errs, "logging.format must be text or json")
	}

	if c.StateDir == "" {
		errs = append(errs, "state_dir is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
