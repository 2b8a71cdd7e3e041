// Package device connects the parameter registry to an audio interface.
//
// A Link carries command envelopes to and from the device, framed as
// 0xA5 | length u16 | payload | xor. StreamLink runs the framing over a byte
// stream such as a serial port; Mock simulates a device in memory. A Session
// ties a Link to a registry.Store.
package device

import (
	"context"
	"errors"
)

var (
	// ErrClosed is returned by operations on a closed link or session.
	ErrClosed = errors.New("device: link closed")
	// ErrDeviceBusy means another process holds the device lock.
	ErrDeviceBusy = errors.New("device: in use by another process")
	// ErrNoResponse means a query timed out without an answer.
	ErrNoResponse = errors.New("device: no response")
)

// Link is a bidirectional envelope transport.
type Link interface {
	// Write sends one envelope.
	Write(ctx context.Context, payload []byte) error
	// Frames delivers received envelopes. The channel is closed when the
	// link stops.
	Frames() <-chan []byte
	Close() error
}
