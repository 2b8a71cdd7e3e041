package device

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	startByte     = 0xA5
	frameOverhead = 4 // start + length + checksum

	// MaxPayload is the largest envelope a frame can carry.
	MaxPayload = 0xFFFF
)

var (
	ErrPayloadEmpty    = errors.New("device: empty frame payload")
	ErrPayloadTooLarge = errors.New("device: frame payload too large")
	ErrChecksum        = errors.New("device: frame checksum mismatch")
	ErrFrameTruncated  = errors.New("device: frame truncated")
)

func checksum(b []byte) byte {
	var x byte
	for _, c := range b {
		x ^= c
	}
	return x
}

// EncodeFrame wraps payload in a frame. The checksum is the XOR of the
// payload bytes.
func EncodeFrame(payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, ErrPayloadEmpty
	}
	if len(payload) > MaxPayload {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(payload))
	}
	f := make([]byte, 0, len(payload)+frameOverhead)
	f = append(f, startByte)
	f = binary.BigEndian.AppendUint16(f, uint16(len(payload)))
	f = append(f, payload...)
	return append(f, checksum(payload)), nil
}

// FrameReader reads frames from a byte stream. Bytes before a start byte
// are skipped.
type FrameReader struct {
	r *bufio.Reader
}

func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: bufio.NewReader(r)}
}

// ReadFrame returns the payload of the next frame. After ErrChecksum or
// ErrPayloadEmpty the reader is positioned past the bad frame and may be
// read again; other errors are final.
func (fr *FrameReader) ReadFrame() ([]byte, error) {
	for {
		b, err := fr.r.ReadByte()
		if err != nil {
			return nil, err
		}
		if b == startByte {
			break
		}
	}

	var hdr [2]byte
	if _, err := io.ReadFull(fr.r, hdr[:]); err != nil {
		return nil, truncated(err)
	}
	n := int(binary.BigEndian.Uint16(hdr[:]))
	if n == 0 {
		return nil, ErrPayloadEmpty
	}

	buf := make([]byte, n+1)
	if _, err := io.ReadFull(fr.r, buf); err != nil {
		return nil, truncated(err)
	}
	payload, sum := buf[:n], buf[n]
	if want := checksum(payload); sum != want {
		return nil, fmt.Errorf("%w: got 0x%02X, want 0x%02X", ErrChecksum, sum, want)
	}
	return payload, nil
}

// recoverable reports whether reading may continue after err.
func recoverable(err error) bool {
	return errors.Is(err, ErrChecksum) || errors.Is(err, ErrPayloadEmpty)
}

func truncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrFrameTruncated
	}
	return err
}
