// Package logging configures the process-wide slog logger from the
// logging section of the configuration.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/micro-nova/audioconfig-go/internal/config"
)

// New builds a logger writing to w. The level is read from level on every
// call, so changing it takes effect immediately.
func New(w io.Writer, cfg config.LoggingConfig, level *slog.LevelVar, version string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler.WithAttrs([]slog.Attr{
		slog.String("service", "audioconfig"),
		slog.String("version", version),
	}))
}

// Setup installs a logger for cfg as the slog default and returns its level
// so it can be changed later.
func Setup(cfg config.LoggingConfig, version string) *slog.LevelVar {
	level := new(slog.LevelVar)
	level.Set(ParseLevel(cfg.Level))
	slog.SetDefault(New(output(cfg.Output), cfg, level, version))
	return level
}

func output(name string) io.Writer {
	if strings.ToLower(name) == "stdout" {
		return os.Stdout
	}
	return os.Stderr
}

// ParseLevel converts a level name to slog.Level. Unknown names are info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
