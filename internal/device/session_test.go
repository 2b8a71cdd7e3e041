package device_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/micro-nova/audioconfig-go/internal/capture"
	"github.com/micro-nova/audioconfig-go/internal/command"
	"github.com/micro-nova/audioconfig-go/internal/device"
	"github.com/micro-nova/audioconfig-go/internal/params"
	"github.com/micro-nova/audioconfig-go/internal/registry"
)

const testDeviceID = 0x00C0FFEE

type recorder struct {
	mu      sync.Mutex
	entries []capture.Entry
}

func (r *recorder) Record(e capture.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

func (r *recorder) count(dir capture.Direction) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.entries {
		if e.Direction == dir {
			n++
		}
	}
	return n
}

func newSession(t *testing.T, opts device.SessionOptions) (*device.Mock, *registry.Store, *device.Session) {
	t.Helper()
	if opts.QueryTimeout == 0 {
		opts.QueryTimeout = 50 * time.Millisecond
	}
	mock := device.NewMock(testDeviceID, device.DefaultRecords())
	store := registry.NewStore(testDeviceID, nil)
	s := device.NewSession(mock, store, opts)
	t.Cleanup(func() { s.Close() })
	return mock, store, s
}

func TestSession_Populate(t *testing.T) {
	rec := &recorder{}
	_, store, s := newSession(t, device.SessionOptions{Recorder: rec})

	if err := s.Populate(context.Background()); err != nil {
		t.Fatalf("Populate: %v", err)
	}
	if got, want := store.Len(), len(device.DefaultRecords()); got != want {
		t.Errorf("store holds %d records, want %d", got, want)
	}

	global, err := registry.Get[*params.AudioGlobalParm](store, 0, 0)
	if err != nil {
		t.Fatalf("global: %v", err)
	}
	if global.NumPorts != 4 {
		t.Errorf("NumPorts = %d, want 4", global.NumPorts)
	}
	if !registry.Contains[*params.MixerOutputParm](store, 4, 2) {
		t.Error("mixer bus 2 of port 4 not populated")
	}
	if registry.Contains[*params.MixerInputParm](store, 2, 1) {
		t.Error("unpaired port 2 should have no mixer inputs")
	}

	if rec.count(capture.DirectionOut) != store.Len() {
		t.Errorf("captured %d outgoing frames, want %d", rec.count(capture.DirectionOut), store.Len())
	}
	if rec.count(capture.DirectionIn) != store.Len() {
		t.Errorf("captured %d incoming frames, want %d", rec.count(capture.DirectionIn), store.Len())
	}
}

func TestSession_SetReachesDevice(t *testing.T) {
	mock, store, s := newSession(t, device.SessionOptions{})
	if err := s.Populate(context.Background()); err != nil {
		t.Fatalf("Populate: %v", err)
	}

	pb, err := registry.Get[*params.PatchbayParm](store, 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	next := pb.Clone()
	blk, _ := next.Block(1)
	blk.OutputPortID, blk.OutputChannel = 1, 2
	if err := registry.Send(store, next); err != nil {
		t.Fatalf("Send: %v", err)
	}

	got, ok := mock.Record(next.Key())
	if !ok {
		t.Fatal("device lost the patchbay")
	}
	devBlk, _ := got.(*params.PatchbayParm).Block(1)
	if devBlk.OutputPortID != 1 || devBlk.OutputChannel != 2 {
		t.Errorf("device block = %+v, want source 1.2", *devBlk)
	}

	ids := mock.Received()
	if last := ids[len(ids)-1]; last != command.SetID(params.FamilyPatchbay) {
		t.Errorf("last command = %s, want SetPatchbayParm", last)
	}
}

func TestSession_QueryNoResponse(t *testing.T) {
	mock, _, s := newSession(t, device.SessionOptions{QueryTimeout: 20 * time.Millisecond})
	mock.SetSilent(true)

	_, err := s.Query(context.Background(), params.Key{Family: params.FamilyAudioGlobal})
	if !errors.Is(err, device.ErrNoResponse) {
		t.Errorf("Query = %v, want ErrNoResponse", err)
	}
	if err := s.Populate(context.Background()); !errors.Is(err, device.ErrNoResponse) {
		t.Errorf("Populate = %v, want ErrNoResponse", err)
	}
}

func TestSession_QueryCancelled(t *testing.T) {
	mock, _, s := newSession(t, device.SessionOptions{QueryTimeout: time.Second})
	mock.SetSilent(true)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := s.Query(ctx, params.Key{Family: params.FamilyMixer}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Query = %v, want context.DeadlineExceeded", err)
	}
}

func TestSession_UnsolicitedUpdate(t *testing.T) {
	mock, store, _ := newSession(t, device.SessionOptions{})

	err := mock.Inject(&params.AudioPortParm{
		PortID:  1,
		NameMax: 16,
		Name:    "Renamed",
		Details: params.USBDeviceDetails{},
	})
	if err != nil {
		t.Fatalf("Inject: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if p, err := registry.Get[*params.AudioPortParm](store, 1, 0); err == nil && p.Name == "Renamed" {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("unsolicited port update never reached the store")
}

func TestSession_WriteFailure(t *testing.T) {
	mock, store, _ := newSession(t, device.SessionOptions{})
	mock.SetFailWrite(true)

	err := registry.Send(store, &params.MixerParm{ConfigNumber: 2})
	if !errors.Is(err, device.ErrMockWrite) {
		t.Errorf("Send = %v, want ErrMockWrite", err)
	}
}

func TestSession_Close(t *testing.T) {
	_, store, s := newSession(t, device.SessionOptions{})
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := s.Query(context.Background(), params.Key{Family: params.FamilyAudioGlobal}); !errors.Is(err, device.ErrClosed) {
		t.Errorf("Query after close = %v, want ErrClosed", err)
	}
	// The store keeps working locally once detached.
	if err := registry.Send(store, &params.MixerParm{ConfigNumber: 1}); err != nil {
		t.Errorf("local Send after close: %v", err)
	}
}
