package device

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/micro-nova/audioconfig-go/internal/command"
	"github.com/micro-nova/audioconfig-go/internal/params"
)

// ErrMockWrite is returned by Mock.Write when write failures are configured.
var ErrMockWrite = errors.New("device: mock write failure configured")

// Mock is an in-memory device for tests and development. It answers queries
// from its record set and applies Set commands to it.
type Mock struct {
	mu        sync.Mutex
	deviceID  uint32
	records   map[params.Key]params.Record
	frames    chan []byte
	received  []command.ID
	closed    bool
	failWrite bool
	silent    bool
}

// NewMock creates a device holding records.
func NewMock(deviceID uint32, records []params.Record) *Mock {
	m := &Mock{
		deviceID: deviceID,
		records:  make(map[params.Key]params.Record, len(records)),
		frames:   make(chan []byte, frameQueueSize),
	}
	for _, r := range records {
		m.records[r.Key()] = r
	}
	return m
}

// SetFailWrite makes every Write fail.
func (m *Mock) SetFailWrite(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWrite = fail
}

// SetSilent stops the mock answering queries.
func (m *Mock) SetSilent(silent bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.silent = silent
}

// Record returns the device-side record under key.
func (m *Mock) Record(key params.Key) (params.Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[key]
	return r, ok
}

// Received returns the commands accepted so far, in order.
func (m *Mock) Received() []command.ID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]command.ID(nil), m.received...)
}

// Inject replaces a device-side record and reports it unsolicited, as a
// device does when its state changes locally.
func (m *Mock) Inject(rec params.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.records[rec.Key()] = rec
	return m.reply(command.Header{DeviceID: m.deviceID}, rec)
}

func (m *Mock) Write(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if m.failWrite {
		return ErrMockWrite
	}

	msg, err := command.Decode(payload)
	if err != nil {
		slog.Warn("device: mock dropped envelope", "err", err)
		return nil
	}
	if msg.DeviceID != m.deviceID {
		slog.Debug("device: mock ignoring envelope for other device", "device_id", msg.DeviceID)
		return nil
	}
	m.received = append(m.received, msg.Command)

	if msg.Command.IsSet() {
		m.records[msg.Key] = msg.Record
		return nil
	}
	rec, ok := m.records[msg.Key]
	if !ok || m.silent {
		return nil
	}
	return m.reply(msg.Header, rec)
}

// reply queues a response. Caller holds m.mu.
func (m *Mock) reply(req command.Header, rec params.Record) error {
	b, err := command.EncodeResponse(req, rec)
	if err != nil {
		return err
	}
	select {
	case m.frames <- b:
	default:
		slog.Warn("device: mock frame queue full, dropping reply", "key", rec.Key())
	}
	return nil
}

func (m *Mock) Frames() <-chan []byte { return m.frames }

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.frames)
	}
	return nil
}

var _ Link = (*Mock)(nil)

// DefaultRecords describes a four-port interface with a mixer paired with
// the USB device port and the analogue port.
func DefaultRecords() []params.Record {
	const (
		mixerInputs  = 4
		mixerOutputs = 2
		busWidth     = 2
	)
	caps := params.ControlCaps{
		Available: params.ControlMute | params.ControlSolo | params.ControlInvert | params.ControlStereoLink | params.ControlVolume | params.ControlPan,
		Editable:  params.ControlMute | params.ControlSolo | params.ControlInvert | params.ControlStereoLink | params.ControlVolume | params.ControlPan,
		VolumeMin: -80 * 256,
		VolumeMax: 12 * 256,
		PanMax:    100,
	}

	recs := []params.Record{
		&params.AudioGlobalParm{
			NumPorts:  4,
			MinFrames: 16, MaxFrames: 1024, CurFrames: 256,
			MinSync: 1, MaxSync: 8, CurSync: 1,
			ActiveConfig: 2,
			Configs: []params.ConfigBlock{
				{BitDepth: params.BitDepth16, SampleRate: params.SampleRate44100, Number: 1},
				{BitDepth: params.BitDepth24, SampleRate: params.SampleRate48000, Number: 2},
				{BitDepth: params.BitDepth24, SampleRate: params.SampleRate96000, Number: 3},
			},
		},
		&params.MixerParm{ConfigNumber: 1, MaxInputs: mixerInputs, MaxOutputs: mixerOutputs},
	}

	ports := []struct {
		name     string
		channels uint8
		details  params.PortDetails
		mixer    bool
	}{
		{"USB Device", 4, params.USBDeviceDetails{Flags: params.USBDeviceConnected}, true},
		{"USB Host", 2, params.USBHostDetails{}, false},
		{"Network", 2, params.EthernetDetails{MaxSessions: 4}, false},
		{"Analogue", 4, params.AnalogueDetails{JackCount: 4, Flags: params.AnalogueLevelSwitch}, true},
	}
	for i, p := range ports {
		id := uint16(i + 1)
		recs = append(recs, &params.AudioPortParm{
			PortID:  id,
			Number:  1,
			Inputs:  params.ChannelRange{Min: 0, Max: p.channels, Current: p.channels},
			Outputs: params.ChannelRange{Min: 0, Max: p.channels, Current: p.channels},
			NameMax: 16,
			Name:    p.name,
			Details: p.details,
		})

		pb := &params.PatchbayParm{PortID: id}
		for ch := uint8(1); ch <= p.channels; ch++ {
			pb.Blocks = append(pb.Blocks, params.InputBlock{InputChannel: ch})
		}
		recs = append(recs, pb)

		recs = append(recs, &params.AudioControlParm{PortID: id, Caps: caps})
		for ch := uint8(1); ch <= p.channels; ch++ {
			recs = append(recs, &params.AudioControlValue{PortID: id, Channel: ch})
		}

		if !p.mixer {
			recs = append(recs, &params.MixerPortParm{PortID: id})
			continue
		}
		recs = append(recs,
			&params.MixerPortParm{PortID: id, NumInputs: mixerInputs, NumOutputs: mixerOutputs},
			&params.MixerInputControlParm{PortID: id, Caps: caps},
			&params.MixerOutputControlParm{PortID: id, Caps: caps},
		)
		for in := uint8(1); in <= mixerInputs; in++ {
			recs = append(recs, &params.MixerInputParm{PortID: id, Input: in})
		}
		for out := uint8(1); out <= mixerOutputs; out++ {
			recs = append(recs,
				&params.MixerOutputParm{PortID: id, Output: out, MaxChannels: busWidth},
				&params.MixerOutputControlValue{PortID: id, Output: out},
			)
			for in := uint8(1); in <= mixerInputs; in++ {
				recs = append(recs, &params.MixerInputControlValue{PortID: id, Output: out, Input: in})
			}
		}
	}
	return recs
}
