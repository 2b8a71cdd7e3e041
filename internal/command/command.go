// Package command wraps parameter records in the addressed envelope the device
// exchanges: an 8-byte header followed by either a query key or a record.
//
// Header layout (big-endian): deviceID u32 | transactionID u16 | commandID u16.
// A Get command carries portID u16 | subIndex u16. A Set command carries the
// full record as produced by params.Generate. The device answers a Get with a
// Set-shaped message echoing the transaction ID.
package command

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/micro-nova/audioconfig-go/internal/params"
)

// ErrUnknownCommand indicates a command identifier with no mapped family.
var ErrUnknownCommand = errors.New("unknown command")

// HeaderSize is the encoded size of Header.
const HeaderSize = 8

const querySize = 4

const (
	getBase ID = 0x0100
	setBase ID = 0x0200
)

// ID is a command identifier: one value per (Get|Set, family) pair.
type ID uint16

// GetID returns the query command for family f.
func GetID(f params.Family) ID { return getBase | ID(f) }

// SetID returns the set command for family f.
func SetID(f params.Family) ID { return setBase | ID(f) }

// Family returns the record family the command addresses.
func (id ID) Family() params.Family { return params.Family(id & 0xFF) }

// IsGet reports whether id is a query command.
func (id ID) IsGet() bool { return id&0xFF00 == getBase }

// IsSet reports whether id is a set command.
func (id ID) IsSet() bool { return id&0xFF00 == setBase }

// Valid reports whether id maps to a known family and direction.
func (id ID) Valid() bool {
	return (id.IsGet() || id.IsSet()) && id.Family().Valid()
}

func (id ID) String() string {
	switch {
	case !id.Valid():
		return fmt.Sprintf("Command(0x%04X)", uint16(id))
	case id.IsGet():
		return "Get" + id.Family().String()
	default:
		return "Set" + id.Family().String()
	}
}

// Header addresses one command.
type Header struct {
	DeviceID      uint32
	TransactionID uint16
	Command       ID
}

func (h Header) appendTo(b []byte) []byte {
	b = binary.BigEndian.AppendUint32(b, h.DeviceID)
	b = binary.BigEndian.AppendUint16(b, h.TransactionID)
	return binary.BigEndian.AppendUint16(b, uint16(h.Command))
}

// Command is an outbound envelope. Stamp fills in the addressing fields owned
// by the transport before encoding.
type Command interface {
	ID() ID
	Key() params.Key
	// Payload returns the record a Set carries, nil for a query.
	Payload() params.Record
	Stamp(deviceID uint32, transactionID uint16)
	MarshalBinary() ([]byte, error)
}

// Query requests the record stored under Key.
type Query struct {
	Header
	key params.Key
}

// NewQuery returns a query for key.
func NewQuery(key params.Key) *Query {
	return &Query{Header: Header{Command: GetID(key.Family)}, key: key}
}

func (q *Query) ID() ID                 { return q.Command }
func (q *Query) Key() params.Key        { return q.key }
func (q *Query) Payload() params.Record { return nil }

func (q *Query) Stamp(deviceID uint32, transactionID uint16) {
	q.DeviceID = deviceID
	q.TransactionID = transactionID
}

func (q *Query) MarshalBinary() ([]byte, error) {
	b := make([]byte, 0, HeaderSize+querySize)
	b = q.Header.appendTo(b)
	b = binary.BigEndian.AppendUint16(b, q.key.PortID)
	b = binary.BigEndian.AppendUint16(b, q.key.Sub)
	return b, nil
}

// Set pushes Record to the device. The command identifier is derived from T,
// so a record can only travel under its own Set command.
type Set[T params.Record] struct {
	Header
	Record T
}

// NewSet wraps r in a Set command.
func NewSet[T params.Record](r T) *Set[T] {
	return &Set[T]{Header: Header{Command: setFor[T]()}, Record: r}
}

// setFor relies on Record.Family not dereferencing its receiver.
func setFor[T params.Record]() ID {
	var zero T
	return SetID(zero.Family())
}

func (s *Set[T]) ID() ID                 { return setFor[T]() }
func (s *Set[T]) Key() params.Key        { return s.Record.Key() }
func (s *Set[T]) Payload() params.Record { return s.Record }

func (s *Set[T]) Stamp(deviceID uint32, transactionID uint16) {
	s.DeviceID = deviceID
	s.TransactionID = transactionID
}

func (s *Set[T]) MarshalBinary() ([]byte, error) {
	body, err := params.Generate(s.Record)
	if err != nil {
		return nil, err
	}
	h := s.Header
	h.Command = setFor[T]()
	b := make([]byte, 0, HeaderSize+len(body))
	b = h.appendTo(b)
	return append(b, body...), nil
}

// EncodeResponse encodes rec under its Set command with the addressing of
// the request it answers. It serves devices that hold records by interface.
func EncodeResponse(req Header, rec params.Record) ([]byte, error) {
	body, err := params.Generate(rec)
	if err != nil {
		return nil, err
	}
	h := Header{DeviceID: req.DeviceID, TransactionID: req.TransactionID, Command: SetID(rec.Family())}
	b := make([]byte, 0, HeaderSize+len(body))
	b = h.appendTo(b)
	return append(b, body...), nil
}

// Message is a decoded inbound envelope. Exactly one of Key (queries) or
// Record (sets and responses) is meaningful.
type Message struct {
	Header
	Key    params.Key
	Record params.Record
}

// Decode parses one envelope.
func Decode(b []byte) (*Message, error) {
	if len(b) < HeaderSize {
		return nil, fmt.Errorf("%w: envelope is %d bytes, header needs %d", params.ErrTruncatedRecord, len(b), HeaderSize)
	}
	m := &Message{Header: Header{
		DeviceID:      binary.BigEndian.Uint32(b[0:4]),
		TransactionID: binary.BigEndian.Uint16(b[4:6]),
		Command:       ID(binary.BigEndian.Uint16(b[6:8])),
	}}
	if !m.Command.Valid() {
		return nil, fmt.Errorf("%w: 0x%04X", ErrUnknownCommand, uint16(m.Command))
	}
	body := b[HeaderSize:]

	if m.Command.IsGet() {
		switch {
		case len(body) < querySize:
			return nil, fmt.Errorf("%w: %s key needs %d bytes, have %d", params.ErrTruncatedRecord, m.Command, querySize, len(body))
		case len(body) > querySize:
			return nil, fmt.Errorf("%w: %s has %d trailing bytes", params.ErrMalformedRecord, m.Command, len(body)-querySize)
		}
		m.Key = params.Key{
			Family: m.Command.Family(),
			PortID: binary.BigEndian.Uint16(body[0:2]),
			Sub:    binary.BigEndian.Uint16(body[2:4]),
		}
		return m, nil
	}

	r, err := params.Parse(m.Command.Family(), body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m.Command, err)
	}
	m.Record = r
	m.Key = r.Key()
	return m, nil
}
