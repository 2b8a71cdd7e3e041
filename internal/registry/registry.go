// Package registry holds the parameter records last reported by the device.
//
// The routing resolver and accessor facades consume the Registry interface
// only. Store is the in-memory implementation owned by the device session:
// it is populated on connect, updated wholesale as responses arrive and
// cleared on disconnect.
package registry

import (
	"errors"
	"fmt"

	"github.com/micro-nova/audioconfig-go/internal/command"
	"github.com/micro-nova/audioconfig-go/internal/params"
)

// ErrKeyNotFound indicates a lookup for a record the registry does not hold.
var ErrKeyNotFound = errors.New("key not found")

// ErrSendFailed wraps transport errors returned by Dispatch. The record has
// already been stored locally when it is returned.
var ErrSendFailed = errors.New("send failed")

// Registry is the keyed record store the core reads and writes through.
type Registry interface {
	// Lookup returns the record stored under key.
	Lookup(key params.Key) (params.Record, bool)
	// Each calls fn for every record of family f in arrival order until fn
	// returns false.
	Each(f params.Family, fn func(params.Record) bool)
	// Dispatch hands cmd to the transport. It does not wait for the device.
	Dispatch(cmd command.Command) error
}

func familyOf[T params.Record]() params.Family {
	var zero T
	return zero.Family()
}

// Get returns the record of type T stored under (portID, sub).
func Get[T params.Record](r Registry, portID, sub uint16) (T, error) {
	key := params.Key{Family: familyOf[T](), PortID: portID, Sub: sub}
	rec, ok := r.Lookup(key)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	v, ok := rec.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %s holds %T", ErrKeyNotFound, key, rec)
	}
	return v, nil
}

// Contains reports whether a record of type T is stored under (portID, sub).
func Contains[T params.Record](r Registry, portID, sub uint16) bool {
	rec, ok := r.Lookup(params.Key{Family: familyOf[T](), PortID: portID, Sub: sub})
	if !ok {
		return false
	}
	_, ok = rec.(T)
	return ok
}

// ForEach calls fn for every stored record of type T until fn returns false.
func ForEach[T params.Record](r Registry, fn func(T) bool) {
	r.Each(familyOf[T](), func(rec params.Record) bool {
		v, ok := rec.(T)
		if !ok {
			return true
		}
		return fn(v)
	})
}

// Send dispatches a Set command carrying rec.
func Send[T params.Record](r Registry, rec T) error {
	return r.Dispatch(command.NewSet(rec))
}
