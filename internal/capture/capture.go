// Package capture records the frames exchanged with the device to a CBOR
// log file for offline inspection and replay.
package capture

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Direction indicates frame flow relative to the host.
type Direction uint8

const (
	// DirectionIn is a frame received from the device.
	DirectionIn Direction = 0
	// DirectionOut is a frame sent to the device.
	DirectionOut Direction = 1
)

func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Entry is one captured frame. CBOR encoding uses integer keys.
type Entry struct {
	Timestamp time.Time `cbor:"1,keyasint"`
	Direction Direction `cbor:"2,keyasint"`
	DeviceID  uint32    `cbor:"3,keyasint,omitempty"`
	Payload   []byte    `cbor:"4,keyasint"`
	// Error is set when the payload failed to decode.
	Error string `cbor:"5,keyasint,omitempty"`
}

// Recorder receives captured frames.
type Recorder interface {
	Record(e Entry)
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("capture: CBOR encoder mode: %v", err))
	}
	decMode, err = cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyQuiet,
		IndefLength: cbor.IndefLengthAllowed,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("capture: CBOR decoder mode: %v", err))
	}
}

// FileLog appends entries to a file. It is safe for concurrent use.
type FileLog struct {
	mu     sync.Mutex
	file   *os.File
	enc    *cbor.Encoder
	closed bool
}

// OpenFile opens path for appending, creating it if needed.
func OpenFile(path string) (*FileLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("capture: open %s: %w", path, err)
	}
	return &FileLog{file: f, enc: encMode.NewEncoder(f)}, nil
}

// Record appends e. Encoding errors are dropped; capture never disrupts the
// session.
func (l *FileLog) Record(e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	_ = l.enc.Encode(e)
}

// Close closes the file. Later Record calls are ignored.
func (l *FileLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.file.Close()
}

var _ Recorder = (*FileLog)(nil)

// Reader iterates the entries of a capture file.
type Reader struct {
	file *os.File
	dec  *cbor.Decoder
}

// OpenReader opens a capture file for reading.
func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("capture: open %s: %w", path, err)
	}
	return &Reader{file: f, dec: decMode.NewDecoder(f)}, nil
}

// Next returns the next entry, or io.EOF at the end of the file.
func (r *Reader) Next() (Entry, error) {
	var e Entry
	if err := r.dec.Decode(&e); err != nil {
		if err == io.EOF {
			return Entry{}, io.EOF
		}
		return Entry{}, fmt.Errorf("capture: decode: %w", err)
	}
	return e, nil
}

// Close closes the underlying file.
func (r *Reader) Close() error { return r.file.Close() }
