package device_test

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/micro-nova/audioconfig-go/internal/device"
)

func TestStreamLink_ReadWrite(t *testing.T) {
	a, b := net.Pipe()
	defer b.Close()
	link := device.NewStreamLink(a, 0)
	defer link.Close()

	go func() {
		f, _ := device.EncodeFrame([]byte("hello"))
		b.Write(append([]byte{0xFF}, f...))
	}()

	select {
	case p := <-link.Frames():
		if string(p) != "hello" {
			t.Errorf("received %q, want %q", p, "hello")
		}
	case <-time.After(time.Second):
		t.Fatal("no frame received")
	}

	errc := make(chan error, 1)
	go func() { errc <- link.Write(context.Background(), []byte("world")) }()

	p, err := device.NewFrameReader(b).ReadFrame()
	if err != nil {
		t.Fatalf("peer ReadFrame: %v", err)
	}
	if string(p) != "world" {
		t.Errorf("peer received %q, want %q", p, "world")
	}
	if err := <-errc; err != nil {
		t.Errorf("Write: %v", err)
	}
}

func TestStreamLink_Close(t *testing.T) {
	a, b := net.Pipe()
	defer b.Close()
	link := device.NewStreamLink(a, 0)

	if err := link.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	select {
	case _, ok := <-link.Frames():
		if ok {
			t.Error("unexpected frame after close")
		}
	case <-time.After(time.Second):
		t.Fatal("frames channel not closed")
	}
	if err := link.Write(context.Background(), []byte{1}); !errors.Is(err, device.ErrClosed) {
		t.Errorf("Write after close = %v, want ErrClosed", err)
	}
	if err := link.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestStreamLink_WriteHonoursContext(t *testing.T) {
	a, b := net.Pipe()
	defer b.Close()
	link := device.NewStreamLink(a, 1)
	defer link.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := link.Write(ctx, []byte{1}); !errors.Is(err, context.Canceled) {
		t.Errorf("Write with cancelled context = %v, want context.Canceled", err)
	}
}
