package params

import (
	"encoding/binary"
	"fmt"
)

// decoder walks a record buffer. The first failure sticks; later reads
// return zero values so field sequences can be written straight through and
// checked once at the end.
type decoder struct {
	buf []byte
	off int
	err error
}

func newDecoder(data []byte) *decoder {
	return &decoder{buf: data}
}

func (d *decoder) need(n int, field string) bool {
	if d.err != nil {
		return false
	}
	if len(d.buf)-d.off < n {
		d.err = fmt.Errorf("%w: %s needs %d bytes at offset %d, have %d",
			ErrTruncatedRecord, field, n, d.off, len(d.buf)-d.off)
		return false
	}
	return true
}

func (d *decoder) u8(field string) uint8 {
	if !d.need(1, field) {
		return 0
	}
	v := d.buf[d.off]
	d.off++
	return v
}

func (d *decoder) u16(field string) uint16 {
	if !d.need(2, field) {
		return 0
	}
	v := binary.BigEndian.Uint16(d.buf[d.off:])
	d.off += 2
	return v
}

func (d *decoder) i16(field string) int16 {
	return int16(d.u16(field))
}

func (d *decoder) bytes(n int, field string) []byte {
	if !d.need(n, field) {
		return nil
	}
	v := make([]byte, n)
	copy(v, d.buf[d.off:d.off+n])
	d.off += n
	return v
}

// str reads a length-prefixed character string.
func (d *decoder) str(field string) string {
	n := int(d.u8(field + " length"))
	return string(d.bytes(n, field))
}

// version consumes the leading layout byte.
func (d *decoder) version(kind string) {
	v := d.u8(kind + " version")
	if d.err == nil && v != LayoutVersion {
		d.err = fmt.Errorf("%w: %s layout version %d", ErrMalformedRecord, kind, v)
	}
}

// sub returns a decoder over the next n bytes and advances past them.
func (d *decoder) sub(n int, field string) *decoder {
	if !d.need(n, field) {
		return &decoder{err: d.err}
	}
	s := &decoder{buf: d.buf[d.off : d.off+n]}
	d.off += n
	return s
}

// finish reports the sticky error, or ErrMalformedRecord when bytes remain.
func (d *decoder) finish(kind string) error {
	if d.err != nil {
		return d.err
	}
	if d.off != len(d.buf) {
		return fmt.Errorf("%w: %s has %d trailing bytes", ErrMalformedRecord, kind, len(d.buf)-d.off)
	}
	return nil
}

type encoder struct {
	buf []byte
}

func newEncoder() *encoder {
	e := &encoder{buf: make([]byte, 0, 32)}
	e.u8(LayoutVersion)
	return e
}

func (e *encoder) u8(v uint8) { e.buf = append(e.buf, v) }

func (e *encoder) u16(v uint16) { e.buf = binary.BigEndian.AppendUint16(e.buf, v) }

func (e *encoder) i16(v int16) { e.u16(uint16(v)) }

func (e *encoder) raw(b []byte) { e.buf = append(e.buf, b...) }

// str writes a length-prefixed string. Strings longer than 255 bytes cannot
// be represented.
func (e *encoder) str(s, field string) error {
	if len(s) > 0xFF {
		return fmt.Errorf("%w: %s is %d bytes, limit 255", ErrMalformedRecord, field, len(s))
	}
	e.u8(uint8(len(s)))
	e.buf = append(e.buf, s...)
	return nil
}

// count writes a one-byte element count.
func (e *encoder) count(n int, field string) error {
	if n > 0xFF {
		return fmt.Errorf("%w: %s has %d entries, limit 255", ErrMalformedRecord, field, n)
	}
	e.u8(uint8(n))
	return nil
}
