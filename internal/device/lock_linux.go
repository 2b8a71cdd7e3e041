//go:build linux

package device

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// lockDevice takes an exclusive advisory lock on path. The returned function
// releases it.
func lockDevice(path string) (func() error, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("device: open %s for locking: %w", path, err)
	}
	if err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		unix.Close(fd)
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%w: %s", ErrDeviceBusy, path)
		}
		return nil, fmt.Errorf("device: lock %s: %w", path, err)
	}
	return func() error { return unix.Close(fd) }, nil
}
