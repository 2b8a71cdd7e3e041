//go:build !linux

package device

func lockDevice(string) (func() error, error) {
	return func() error { return nil }, nil
}
