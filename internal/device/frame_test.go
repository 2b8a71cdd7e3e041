package device_test

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/micro-nova/audioconfig-go/internal/device"
)

func TestEncodeFrame(t *testing.T) {
	f, err := device.EncodeFrame([]byte{0x01, 0x02, 0x04})
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	want := []byte{0xA5, 0x00, 0x03, 0x01, 0x02, 0x04, 0x07}
	if !bytes.Equal(f, want) {
		t.Errorf("EncodeFrame = % X, want % X", f, want)
	}

	if _, err := device.EncodeFrame(nil); !errors.Is(err, device.ErrPayloadEmpty) {
		t.Errorf("empty payload err = %v, want ErrPayloadEmpty", err)
	}
	if _, err := device.EncodeFrame(make([]byte, device.MaxPayload+1)); !errors.Is(err, device.ErrPayloadTooLarge) {
		t.Errorf("oversized payload err = %v, want ErrPayloadTooLarge", err)
	}
}

func TestFrameReader_SkipsNoiseAndRecovers(t *testing.T) {
	good1, _ := device.EncodeFrame([]byte("first"))
	bad, _ := device.EncodeFrame([]byte("corrupt"))
	bad[len(bad)-1] ^= 0xFF
	good2, _ := device.EncodeFrame([]byte("second"))

	var stream []byte
	stream = append(stream, 0x00, 0x13, 0x37) // line noise
	stream = append(stream, good1...)
	stream = append(stream, bad...)
	stream = append(stream, 0xA5, 0x00, 0x00) // empty frame
	stream = append(stream, good2...)

	fr := device.NewFrameReader(bytes.NewReader(stream))

	p, err := fr.ReadFrame()
	if err != nil || string(p) != "first" {
		t.Fatalf("frame 1 = %q, %v", p, err)
	}
	if _, err := fr.ReadFrame(); !errors.Is(err, device.ErrChecksum) {
		t.Fatalf("frame 2 err = %v, want ErrChecksum", err)
	}
	if _, err := fr.ReadFrame(); !errors.Is(err, device.ErrPayloadEmpty) {
		t.Fatalf("frame 3 err = %v, want ErrPayloadEmpty", err)
	}
	p, err = fr.ReadFrame()
	if err != nil || string(p) != "second" {
		t.Fatalf("frame 4 = %q, %v", p, err)
	}
	if _, err := fr.ReadFrame(); err != io.EOF {
		t.Errorf("end of stream err = %v, want io.EOF", err)
	}
}

func TestFrameReader_Truncated(t *testing.T) {
	f, _ := device.EncodeFrame([]byte("payload"))
	for n := 1; n < len(f); n++ {
		fr := device.NewFrameReader(bytes.NewReader(f[:n]))
		if _, err := fr.ReadFrame(); !errors.Is(err, device.ErrFrameTruncated) {
			t.Errorf("prefix %d: err = %v, want ErrFrameTruncated", n, err)
		}
	}
}
