// Command audioconfig is the audio device configurator daemon. It keeps a
// registry of the device's parameters and serves it over HTTP.
// Run with --mock to use a simulated device (no serial port required).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/micro-nova/audioconfig-go/internal/api"
	"github.com/micro-nova/audioconfig-go/internal/auth"
	"github.com/micro-nova/audioconfig-go/internal/capture"
	"github.com/micro-nova/audioconfig-go/internal/config"
	"github.com/micro-nova/audioconfig-go/internal/controller"
	"github.com/micro-nova/audioconfig-go/internal/device"
	"github.com/micro-nova/audioconfig-go/internal/events"
	"github.com/micro-nova/audioconfig-go/internal/identity"
	"github.com/micro-nova/audioconfig-go/internal/logging"
	"github.com/micro-nova/audioconfig-go/internal/mqtt"
	"github.com/micro-nova/audioconfig-go/internal/registry"
	"github.com/micro-nova/audioconfig-go/internal/zeroconf"
)

func main() {
	var (
		cfgPath = flag.String("config", "/etc/audioconfig/config.yaml", "path to the YAML config file")
		mock    = flag.Bool("mock", false, "use a simulated device (no serial port required)")
		addr    = flag.String("addr", "", "HTTP listen address (overrides api.addr)")
		debug   = flag.Bool("debug", false, "enable debug logging")
		version = flag.Bool("version", false, "print the version and exit")
	)
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "audioconfig:", err)
		os.Exit(1)
	}
	if *mock {
		cfg.Device.Transport = config.TransportMock
	}
	if *addr != "" {
		cfg.API.Addr = *addr
	}
	if *debug {
		cfg.Logging.Level = "debug"
	}

	ver := identity.Version(cfg.StateDir)
	if *version {
		fmt.Println(ver)
		return
	}

	level := logging.Setup(cfg.Logging, ver)

	if err := os.MkdirAll(cfg.StateDir, 0755); err != nil {
		slog.Error("cannot create state directory", "path", cfg.StateDir, "err", err)
		os.Exit(1)
	}

	// Graceful shutdown context
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Only the log level is applied live; other sections need a restart.
	go func() {
		err := config.Watch(ctx, *cfgPath, func(next *config.Config) {
			if *debug {
				return
			}
			level.Set(logging.ParseLevel(next.Logging.Level))
			slog.Info("log level updated", "level", next.Logging.Level)
		})
		if err != nil {
			slog.Warn("config watch disabled", "err", err)
		}
	}()

	// Device link
	link, err := openLink(cfg.Device)
	if err != nil {
		slog.Error("device link failed", "err", err)
		os.Exit(1)
	}

	var recorder capture.Recorder
	if cfg.Capture.Path != "" {
		fl, err := capture.OpenFile(cfg.Capture.Path)
		if err != nil {
			slog.Error("cannot open capture file", "path", cfg.Capture.Path, "err", err)
			os.Exit(1)
		}
		defer fl.Close()
		recorder = fl
		slog.Info("capturing frames", "path", cfg.Capture.Path)
	}

	// Registry and device session
	bus := events.NewBus()
	store := registry.NewStore(cfg.Device.DeviceID, bus)
	session := device.NewSession(link, store, device.SessionOptions{
		QueryTimeout: cfg.Device.QueryTimeout,
		Recorder:     recorder,
	})

	// Controller
	prefs := config.NewJSONStore(cfg.StateDir)
	ctrl, err := controller.New(store, prefs, session)
	if err != nil {
		slog.Error("controller initialization failed", "err", err)
		os.Exit(1)
	}
	if appErr := ctrl.Refresh(ctx); appErr != nil {
		// The API stays up; POST /api/refresh retries.
		slog.Warn("initial device read failed", "err", appErr.Message)
	}
	slog.Info("device registry loaded", "device_id", store.DeviceID(), "records", store.Len())

	// Auth service
	authSvc, err := auth.NewService(cfg.StateDir)
	if err != nil {
		slog.Error("auth service initialization failed", "err", err)
		os.Exit(1)
	}
	defer authSvc.Close()

	// Zeroconf mDNS registration
	if cfg.Zeroconf.Enabled {
		port, err := zeroconf.PortFromAddr(cfg.API.Addr)
		if err != nil {
			slog.Warn("zeroconf disabled", "err", err)
		} else {
			zc := zeroconf.New(identity.InstanceName(cfg.Zeroconf.Name), port, zeroconf.Advert{
				Version:   ver,
				Transport: cfg.Device.Transport,
				DeviceID:  cfg.Device.DeviceID,
			})
			go func() {
				if err := zc.Start(ctx); err != nil {
					slog.Warn("zeroconf failed", "err", err)
				}
			}()
		}
	}

	// MQTT update forwarding
	var mq *mqtt.Client
	if cfg.MQTT.Enabled {
		mq, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			slog.Warn("mqtt disabled", "broker", cfg.MQTT.Broker, "err", err)
		} else {
			go mqtt.Forward(ctx, bus, mq, mq.Topics(), mq.QoS())
		}
	}

	// HTTP server
	router := api.NewRouter(ctrl, authSvc, bus, api.Options{
		Version:   ver,
		Transport: cfg.Device.Transport,
	})
	srv := &http.Server{
		Addr:         cfg.API.Addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // 0 = no timeout (needed for SSE)
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("audioconfig listening", "addr", cfg.API.Addr, "transport", cfg.Device.Transport, "state", cfg.StateDir)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			cancel()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()

	// Graceful HTTP shutdown
	if err := srv.Shutdown(shutCtx); err != nil {
		slog.Warn("server shutdown error", "err", err)
	}

	if mq != nil {
		if err := mq.Close(); err != nil {
			slog.Warn("mqtt close error", "err", err)
		}
	}

	if err := session.Close(); err != nil {
		slog.Warn("device close error", "err", err)
	}

	// Flush pending preference writes
	if err := prefs.Flush(); err != nil {
		slog.Warn("failed to flush preferences", "err", err)
	}

	slog.Info("shutdown complete")
}

func openLink(cfg config.DeviceConfig) (device.Link, error) {
	if cfg.Transport == config.TransportMock {
		slog.Info("using simulated device", "device_id", cfg.DeviceID)
		return device.NewMock(cfg.DeviceID, device.DefaultRecords()), nil
	}
	slog.Info("using serial device", "path", cfg.Path)
	return device.OpenSerial(device.SerialConfig{
		Device:       cfg.Path,
		BaudRate:     cfg.BaudRate,
		WritesPerSec: cfg.WritesPerSec,
	})
}
