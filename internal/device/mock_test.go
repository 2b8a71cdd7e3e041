package device_test

import (
	"context"
	"errors"
	"testing"

	"github.com/micro-nova/audioconfig-go/internal/command"
	"github.com/micro-nova/audioconfig-go/internal/device"
	"github.com/micro-nova/audioconfig-go/internal/params"
)

func TestMock_AnswersQueries(t *testing.T) {
	m := device.NewMock(7, device.DefaultRecords())
	defer m.Close()

	q := command.NewQuery(params.Key{Family: params.FamilyMixerPort, PortID: 1})
	q.Stamp(7, 42)
	b, _ := q.MarshalBinary()
	if err := m.Write(context.Background(), b); err != nil {
		t.Fatalf("Write: %v", err)
	}

	msg, err := command.Decode(<-m.Frames())
	if err != nil {
		t.Fatalf("Decode reply: %v", err)
	}
	if msg.TransactionID != 42 {
		t.Errorf("reply transaction = %d, want 42", msg.TransactionID)
	}
	mp, ok := msg.Record.(*params.MixerPortParm)
	if !ok || mp.NumInputs != 4 || mp.NumOutputs != 2 {
		t.Errorf("reply record = %#v", msg.Record)
	}
}

func TestMock_IgnoresOtherDevicesAndUnknownKeys(t *testing.T) {
	m := device.NewMock(7, device.DefaultRecords())
	defer m.Close()

	for _, q := range []*command.Query{
		command.NewQuery(params.Key{Family: params.FamilyAudioPort, PortID: 1}),
		command.NewQuery(params.Key{Family: params.FamilyAudioPort, PortID: 99}),
	} {
		q.Stamp(7, 1)
		if q.Key().PortID == 1 {
			q.Stamp(8, 1)
		}
		b, _ := q.MarshalBinary()
		if err := m.Write(context.Background(), b); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	select {
	case f := <-m.Frames():
		t.Errorf("unexpected reply % X", f)
	default:
	}
	if n := len(m.Received()); n != 1 {
		t.Errorf("accepted %d commands, want 1", n)
	}
}

func TestMock_FailureAndClose(t *testing.T) {
	m := device.NewMock(7, nil)
	m.SetFailWrite(true)
	if err := m.Write(context.Background(), []byte{0}); !errors.Is(err, device.ErrMockWrite) {
		t.Errorf("Write = %v, want ErrMockWrite", err)
	}
	m.Close()
	if err := m.Write(context.Background(), []byte{0}); !errors.Is(err, device.ErrClosed) {
		t.Errorf("Write after close = %v, want ErrClosed", err)
	}
	if err := m.Inject(&params.MixerParm{}); !errors.Is(err, device.ErrClosed) {
		t.Errorf("Inject after close = %v, want ErrClosed", err)
	}
}
