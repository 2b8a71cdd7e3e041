package registry

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/micro-nova/audioconfig-go/internal/command"
	"github.com/micro-nova/audioconfig-go/internal/events"
	"github.com/micro-nova/audioconfig-go/internal/params"
)

// Sender transmits an encoded command envelope.
type Sender interface {
	Send(frame []byte) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(frame []byte) error

func (f SenderFunc) Send(frame []byte) error { return f(frame) }

// Store is an in-memory Registry. It is safe for concurrent use; records
// handed out must be treated as immutable and replaced through Put.
type Store struct {
	mu       sync.RWMutex
	records  map[params.Key]params.Record
	order    map[params.Family][]params.Key
	deviceID uint32
	nextTxn  uint16
	sender   Sender
	bus      *events.Bus
}

// NewStore creates an empty store. bus may be nil.
func NewStore(deviceID uint32, bus *events.Bus) *Store {
	return &Store{
		records:  make(map[params.Key]params.Record),
		order:    make(map[params.Family][]params.Key),
		deviceID: deviceID,
		bus:      bus,
	}
}

// SetSender attaches the transport. Commands dispatched without a sender
// are only applied locally.
func (s *Store) SetSender(sender Sender) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sender = sender
}

// DeviceID returns the device identifier stamped on outgoing commands.
func (s *Store) DeviceID() uint32 { return s.deviceID }

// Put stores rec, replacing any record under the same key.
func (s *Store) Put(rec params.Record) {
	key := rec.Key()
	s.mu.Lock()
	if _, ok := s.records[key]; !ok {
		s.order[key.Family] = append(s.order[key.Family], key)
	}
	s.records[key] = rec
	s.mu.Unlock()
	s.publish(events.Update{Kind: events.KindPut, Key: key})
}

// Clear drops every record.
func (s *Store) Clear() {
	s.mu.Lock()
	s.records = make(map[params.Key]params.Record)
	s.order = make(map[params.Family][]params.Key)
	s.mu.Unlock()
	s.publish(events.Update{Kind: events.KindCleared})
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *Store) Lookup(key params.Key) (params.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key]
	return rec, ok
}

func (s *Store) Each(f params.Family, fn func(params.Record) bool) {
	s.mu.RLock()
	keys := make([]params.Key, len(s.order[f]))
	copy(keys, s.order[f])
	s.mu.RUnlock()

	for _, k := range keys {
		rec, ok := s.Lookup(k)
		if !ok {
			continue
		}
		if !fn(rec) {
			return
		}
	}
}

// Dispatch stamps cmd, stores a Set payload optimistically and hands the
// encoded envelope to the sender.
func (s *Store) Dispatch(cmd command.Command) error {
	s.mu.Lock()
	s.nextTxn++
	txn := s.nextTxn
	sender := s.sender
	s.mu.Unlock()

	cmd.Stamp(s.deviceID, txn)
	frame, err := cmd.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encode %s: %w", cmd.ID(), err)
	}

	if rec := cmd.Payload(); rec != nil {
		s.Put(rec)
	}
	if sender == nil {
		slog.Debug("registry: no sender attached", "command", cmd.ID(), "key", cmd.Key())
		return nil
	}
	if err := sender.Send(frame); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSendFailed, cmd.ID(), err)
	}
	if cmd.Payload() != nil {
		s.publish(events.Update{Kind: events.KindSent, Key: cmd.Key()})
	}
	return nil
}

func (s *Store) publish(u events.Update) {
	if s.bus != nil {
		s.bus.Publish(u)
	}
}
