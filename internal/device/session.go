package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/micro-nova/audioconfig-go/internal/capture"
	"github.com/micro-nova/audioconfig-go/internal/command"
	"github.com/micro-nova/audioconfig-go/internal/params"
	"github.com/micro-nova/audioconfig-go/internal/registry"
)

// DefaultQueryTimeout bounds a query and each outgoing write.
const DefaultQueryTimeout = 500 * time.Millisecond

// SessionOptions configures a Session.
type SessionOptions struct {
	QueryTimeout time.Duration
	// Recorder, if set, receives every frame in both directions.
	Recorder capture.Recorder
}

// Session attaches a Store to a Link: commands dispatched through the store
// are written to the link, and records received from the device are stored.
type Session struct {
	link     Link
	store    *registry.Store
	recorder capture.Recorder
	timeout  time.Duration

	mu      sync.Mutex
	waiters map[params.Key][]chan params.Record
	closed  bool

	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

// NewSession starts reading from link and installs itself as the store's
// sender. The session owns link.
func NewSession(link Link, store *registry.Store, opts SessionOptions) *Session {
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = DefaultQueryTimeout
	}
	s := &Session{
		link:     link,
		store:    store,
		recorder: opts.Recorder,
		timeout:  opts.QueryTimeout,
		waiters:  make(map[params.Key][]chan params.Record),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	store.SetSender(registry.SenderFunc(s.send))
	go s.readLoop()
	return s
}

func (s *Session) send(frame []byte) error {
	s.capture(capture.DirectionOut, frame, nil)
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.link.Write(ctx, frame)
}

func (s *Session) capture(dir capture.Direction, frame []byte, err error) {
	if s.recorder == nil {
		return
	}
	e := capture.Entry{
		Timestamp: time.Now(),
		Direction: dir,
		DeviceID:  s.store.DeviceID(),
		Payload:   frame,
	}
	if err != nil {
		e.Error = err.Error()
	}
	s.recorder.Record(e)
}

func (s *Session) readLoop() {
	defer close(s.stopped)
	for payload := range s.link.Frames() {
		s.handle(payload)
	}
	slog.Debug("device: session read loop finished")
}

func (s *Session) handle(payload []byte) {
	msg, err := command.Decode(payload)
	s.capture(capture.DirectionIn, payload, err)
	if err != nil {
		slog.Warn("device: discarding envelope", "err", err)
		return
	}
	if msg.DeviceID != s.store.DeviceID() {
		slog.Debug("device: envelope for other device", "device_id", msg.DeviceID, "command", msg.Command)
		return
	}
	if msg.Command.IsGet() {
		slog.Debug("device: ignoring query from device", "key", msg.Key)
		return
	}
	s.store.Put(msg.Record)

	s.mu.Lock()
	for _, ch := range s.waiters[msg.Key] {
		select {
		case ch <- msg.Record:
		default:
		}
	}
	delete(s.waiters, msg.Key)
	s.mu.Unlock()
}

// Query asks the device for the record under key and waits for the answer,
// which is also stored in the registry.
func (s *Session) Query(ctx context.Context, key params.Key) (params.Record, error) {
	ch := make(chan params.Record, 1)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	s.waiters[key] = append(s.waiters[key], ch)
	s.mu.Unlock()
	defer s.forget(key, ch)

	if err := s.store.Dispatch(command.NewQuery(key)); err != nil {
		return nil, err
	}

	qctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	select {
	case rec := <-ch:
		return rec, nil
	case <-qctx.Done():
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", ErrNoResponse, key)
	case <-s.done:
		return nil, ErrClosed
	}
}

func (s *Session) forget(key params.Key, ch chan params.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.waiters[key]
	for i, c := range list {
		if c == ch {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(s.waiters, key)
	} else {
		s.waiters[key] = list
	}
}

// queryAs queries key and asserts the answer's type. ok is false when the
// device does not answer.
func queryAs[T params.Record](ctx context.Context, s *Session, key params.Key) (rec T, ok bool, err error) {
	r, err := s.Query(ctx, key)
	if errors.Is(err, ErrNoResponse) {
		slog.Debug("device: parameter absent", "key", key)
		return rec, false, nil
	}
	if err != nil {
		return rec, false, err
	}
	rec, ok = r.(T)
	if !ok {
		return rec, false, fmt.Errorf("device: %s answered with %s", key, r.Family())
	}
	return rec, true, nil
}

// Populate clears the store and reads the device's records: global
// parameters, then each port with its patchbay and controls, then the mixer.
// Only the global record is required.
func (s *Session) Populate(ctx context.Context) error {
	s.store.Clear()

	global, ok, err := queryAs[*params.AudioGlobalParm](ctx, s, params.Key{Family: params.FamilyAudioGlobal})
	if err != nil {
		return fmt.Errorf("device: read global parameters: %w", err)
	}
	if !ok {
		return fmt.Errorf("device: read global parameters: %w", ErrNoResponse)
	}

	for id := uint16(1); id <= global.NumPorts; id++ {
		if err := s.populatePort(ctx, id); err != nil {
			return err
		}
	}

	_, hasMixer, err := queryAs[*params.MixerParm](ctx, s, params.Key{Family: params.FamilyMixer})
	if err != nil {
		return err
	}
	if hasMixer {
		for id := uint16(1); id <= global.NumPorts; id++ {
			if err := s.populateMixer(ctx, id); err != nil {
				return err
			}
		}
	}

	slog.Info("device: registry populated", "ports", global.NumPorts, "mixer", hasMixer, "records", s.store.Len())
	return nil
}

func (s *Session) populatePort(ctx context.Context, id uint16) error {
	port, ok, err := queryAs[*params.AudioPortParm](ctx, s, params.Key{Family: params.FamilyAudioPort, PortID: id})
	if err != nil {
		return fmt.Errorf("device: read port %d: %w", id, err)
	}
	if !ok {
		slog.Warn("device: port did not answer", "port", id)
		return nil
	}
	keys := []params.Key{
		{Family: params.FamilyPatchbay, PortID: id},
		{Family: params.FamilyAudioControl, PortID: id},
	}
	for ch := uint8(1); ch <= port.Outputs.Current; ch++ {
		keys = append(keys, params.Key{Family: params.FamilyAudioControlValue, PortID: id, Sub: uint16(ch)})
	}
	return s.queryAll(ctx, keys)
}

func (s *Session) populateMixer(ctx context.Context, id uint16) error {
	mp, ok, err := queryAs[*params.MixerPortParm](ctx, s, params.Key{Family: params.FamilyMixerPort, PortID: id})
	if err != nil {
		return fmt.Errorf("device: read mixer port %d: %w", id, err)
	}
	if !ok || (mp.NumInputs == 0 && mp.NumOutputs == 0) {
		return nil
	}
	keys := []params.Key{
		{Family: params.FamilyMixerInputControl, PortID: id},
		{Family: params.FamilyMixerOutputControl, PortID: id},
	}
	for in := uint8(1); in <= mp.NumInputs; in++ {
		keys = append(keys, params.Key{Family: params.FamilyMixerInput, PortID: id, Sub: uint16(in)})
	}
	for out := uint8(1); out <= mp.NumOutputs; out++ {
		keys = append(keys,
			params.Key{Family: params.FamilyMixerOutput, PortID: id, Sub: uint16(out)},
			params.Key{Family: params.FamilyMixerOutputValue, PortID: id, Sub: uint16(out)},
		)
		for in := uint8(1); in <= mp.NumInputs; in++ {
			keys = append(keys, params.Key{Family: params.FamilyMixerInputValue, PortID: id, Sub: params.MixerControlSub(out, in)})
		}
	}
	return s.queryAll(ctx, keys)
}

func (s *Session) queryAll(ctx context.Context, keys []params.Key) error {
	for _, k := range keys {
		if _, err := s.Query(ctx, k); err != nil {
			if errors.Is(err, ErrNoResponse) {
				slog.Debug("device: parameter absent", "key", k)
				continue
			}
			return fmt.Errorf("device: read %s: %w", k, err)
		}
	}
	return nil
}

// Close detaches the store, closes the link and waits for the read loop.
func (s *Session) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		s.store.SetSender(nil)
		close(s.done)
		err = s.link.Close()
		<-s.stopped
	})
	return err
}
