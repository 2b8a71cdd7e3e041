// Package zeroconf advertises the configurator's HTTP API over mDNS/DNS-SD so
// control surfaces can find it on the LAN.
package zeroconf

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/grandcat/zeroconf"
)

const serviceType = "_audioconfig._tcp"

// Advert describes the running service in TXT records.
type Advert struct {
	Version   string
	Transport string
	DeviceID  uint32
}

// TXT returns the TXT records for a.
func (a Advert) TXT() []string {
	return []string{
		"version=" + a.Version,
		"transport=" + a.Transport,
		"device_id=" + strconv.FormatUint(uint64(a.DeviceID), 10),
		"api=/api",
	}
}

// Service manages mDNS service registration.
type Service struct {
	name   string // instance name, e.g. "audioconfig"
	port   int
	advert Advert
}

// New creates a Service that will advertise name on port.
func New(name string, port int, advert Advert) *Service {
	return &Service{
		name:   name,
		port:   port,
		advert: advert,
	}
}

// Start registers the mDNS service and blocks until ctx is cancelled, at which
// point it shuts down the server cleanly.
func (s *Service) Start(ctx context.Context) error {
	txt := s.advert.TXT()

	server, err := zeroconf.Register(
		s.name,      // instance name
		serviceType, // service type
		"local.",    // domain
		s.port,      // port
		txt,         // TXT records
		nil,         // ifaces, nil means all interfaces
	)
	if err != nil {
		return fmt.Errorf("zeroconf register: %w", err)
	}
	slog.Info("zeroconf: registered mDNS service",
		"name", s.name,
		"type", serviceType,
		"port", s.port,
		"txt", txt,
	)

	<-ctx.Done()

	server.Shutdown()
	slog.Info("zeroconf: mDNS service unregistered")
	return nil
}

// PortFromAddr extracts the TCP port from a listen address such as ":8080"
// or "0.0.0.0:8080".
func PortFromAddr(addr string) (int, error) {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			return strconv.Atoi(addr[i+1:])
		}
	}
	return 0, fmt.Errorf("zeroconf: no port in %q", addr)
}
