package device

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"go.bug.st/serial"
	"golang.org/x/time/rate"
)

const (
	frameQueueSize = 64
	writeBurst     = 8
)

// StreamLink runs the frame protocol over a byte stream.
type StreamLink struct {
	rwc     io.ReadWriteCloser
	limiter *rate.Limiter
	frames  chan []byte
	done    chan struct{}
	release func() error

	wmu       sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// NewStreamLink starts reading frames from rwc. writesPerSec limits outgoing
// frames; zero or less means unlimited.
func NewStreamLink(rwc io.ReadWriteCloser, writesPerSec int) *StreamLink {
	limiter := rate.NewLimiter(rate.Inf, writeBurst)
	if writesPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(writesPerSec), writeBurst)
	}
	l := &StreamLink{
		rwc:     rwc,
		limiter: limiter,
		frames:  make(chan []byte, frameQueueSize),
		done:    make(chan struct{}),
	}
	go l.readLoop()
	return l
}

// SerialConfig selects and paces a serial device.
type SerialConfig struct {
	Device       string
	BaudRate     int
	WritesPerSec int
}

// OpenSerial locks and opens a serial device.
func OpenSerial(cfg SerialConfig) (*StreamLink, error) {
	release, err := lockDevice(cfg.Device)
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(cfg.Device, &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		_ = release()
		return nil, fmt.Errorf("device: open %s: %w", cfg.Device, err)
	}
	slog.Info("device: serial link open", "device", cfg.Device, "baud", cfg.BaudRate)
	l := NewStreamLink(port, cfg.WritesPerSec)
	l.release = release
	return l, nil
}

func (l *StreamLink) readLoop() {
	defer close(l.frames)
	fr := NewFrameReader(l.rwc)
	for {
		payload, err := fr.ReadFrame()
		if err != nil {
			if recoverable(err) {
				slog.Warn("device: dropping bad frame", "err", err)
				continue
			}
			select {
			case <-l.done:
			default:
				slog.Warn("device: link read stopped", "err", err)
			}
			return
		}
		select {
		case l.frames <- payload:
		case <-l.done:
			return
		}
	}
}

func (l *StreamLink) Write(ctx context.Context, payload []byte) error {
	frame, err := EncodeFrame(payload)
	if err != nil {
		return err
	}
	if err := l.limiter.Wait(ctx); err != nil {
		return err
	}
	l.wmu.Lock()
	defer l.wmu.Unlock()
	select {
	case <-l.done:
		return ErrClosed
	default:
	}
	if _, err := l.rwc.Write(frame); err != nil {
		return fmt.Errorf("device: write: %w", err)
	}
	return nil
}

func (l *StreamLink) Frames() <-chan []byte { return l.frames }

// Close stops the read loop, closes the stream and releases the device lock.
func (l *StreamLink) Close() error {
	l.closeOnce.Do(func() {
		close(l.done)
		l.closeErr = l.rwc.Close()
		if l.release != nil {
			if err := l.release(); err != nil && l.closeErr == nil {
				l.closeErr = err
			}
		}
	})
	return l.closeErr
}

var _ Link = (*StreamLink)(nil)
