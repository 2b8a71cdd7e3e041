package params

import (
	"fmt"
	"slices"
)

// BitDepth is the wire code for a sample bit depth (bits / 4).
type BitDepth uint8

const (
	BitDepth8  BitDepth = 2
	BitDepth12 BitDepth = 3
	BitDepth16 BitDepth = 4
	BitDepth20 BitDepth = 5
	BitDepth24 BitDepth = 6
	BitDepth32 BitDepth = 8
)

// Bits returns the sample width in bits.
func (b BitDepth) Bits() int { return int(b) * 4 }

func (b BitDepth) String() string {
	switch b {
	case BitDepth8, BitDepth12, BitDepth16, BitDepth20, BitDepth24, BitDepth32:
		return fmt.Sprintf("%dbit", b.Bits())
	default:
		return fmt.Sprintf("BitDepth(%d)", uint8(b))
	}
}

// SampleRate is the wire code for a sample rate.
type SampleRate uint8

const (
	SampleRate11025 SampleRate = iota + 1
	SampleRate12000
	SampleRate22050
	SampleRate24000
	SampleRate44100
	SampleRate48000
	SampleRate88200
	SampleRate96000
	SampleRate176400
	SampleRate192000
)

var sampleRateHz = [...]int{0, 11025, 12000, 22050, 24000, 44100, 48000, 88200, 96000, 176400, 192000}

// Hz returns the rate in hertz, or 0 for an unknown code.
func (s SampleRate) Hz() int {
	if int(s) >= len(sampleRateHz) {
		return 0
	}
	return sampleRateHz[s]
}

func (s SampleRate) String() string {
	if hz := s.Hz(); hz != 0 {
		return fmt.Sprintf("%dHz", hz)
	}
	return fmt.Sprintf("SampleRate(%d)", uint8(s))
}

// SampleRateFromHz returns the code for hz.
func SampleRateFromHz(hz int) (SampleRate, bool) {
	for code, v := range sampleRateHz {
		if code > 0 && v == hz {
			return SampleRate(code), true
		}
	}
	return 0, false
}

// ConfigBlock is one selectable operating configuration.
type ConfigBlock struct {
	BitDepth   BitDepth
	SampleRate SampleRate
	Number     uint8
}

const configBlockSize = 3

func (c ConfigBlock) appendTo(e *encoder) {
	e.u8(uint8(c.BitDepth))
	e.u8(uint8(c.SampleRate))
	e.u8(c.Number)
}

func parseConfigBlock(d *decoder) ConfigBlock {
	return ConfigBlock{
		BitDepth:   BitDepth(d.u8("config bit depth")),
		SampleRate: SampleRate(d.u8("config sample rate")),
		Number:     d.u8("config number"),
	}
}

// MarshalBinary encodes the block on its own (without a record header).
func (c ConfigBlock) MarshalBinary() ([]byte, error) {
	e := &encoder{}
	c.appendTo(e)
	return e.buf, nil
}

// UnmarshalBinary decodes a bare block.
func (c *ConfigBlock) UnmarshalBinary(data []byte) error {
	d := newDecoder(data)
	r := parseConfigBlock(d)
	if err := d.finish("config block"); err != nil {
		return err
	}
	*c = r
	return nil
}

// AudioGlobalParm holds the device-wide audio capabilities.
//
// NumPorts, the frame and sync factor ranges and Configs are read-only on the
// device. ActiveConfig is 1-based into Configs and only 0 when Configs is
// empty.
type AudioGlobalParm struct {
	NumPorts     uint16
	MinFrames    uint16
	MaxFrames    uint16
	CurFrames    uint16
	MinSync      uint8
	MaxSync      uint8
	CurSync      uint8
	ActiveConfig uint8
	Configs      []ConfigBlock
}

func (*AudioGlobalParm) Family() Family { return FamilyAudioGlobal }

func (p *AudioGlobalParm) Key() Key { return Key{Family: FamilyAudioGlobal} }

// Clone returns a deep copy.
func (p *AudioGlobalParm) Clone() *AudioGlobalParm {
	c := *p
	c.Configs = slices.Clone(p.Configs)
	return &c
}

// Active returns the active config block.
func (p *AudioGlobalParm) Active() (ConfigBlock, bool) {
	if p.ActiveConfig == 0 || int(p.ActiveConfig) > len(p.Configs) {
		return ConfigBlock{}, false
	}
	return p.Configs[p.ActiveConfig-1], true
}

// SetActiveConfig selects config block n (1-based).
func (p *AudioGlobalParm) SetActiveConfig(n uint8) error {
	if n == 0 || int(n) > len(p.Configs) {
		return fmt.Errorf("%w: config %d of %d", ErrOutOfRange, n, len(p.Configs))
	}
	p.ActiveConfig = n
	return nil
}

// SetAudioFrames sets the current audio frame count.
func (p *AudioGlobalParm) SetAudioFrames(n uint16) error {
	if n < p.MinFrames || n > p.MaxFrames {
		return fmt.Errorf("%w: frames %d not in [%d,%d]", ErrOutOfRange, n, p.MinFrames, p.MaxFrames)
	}
	p.CurFrames = n
	return nil
}

// SetSyncFactor sets the current sync factor.
func (p *AudioGlobalParm) SetSyncFactor(n uint8) error {
	if n < p.MinSync || n > p.MaxSync {
		return fmt.Errorf("%w: sync factor %d not in [%d,%d]", ErrOutOfRange, n, p.MinSync, p.MaxSync)
	}
	p.CurSync = n
	return nil
}

func (p *AudioGlobalParm) MarshalBinary() ([]byte, error) {
	e := newEncoder()
	e.u16(p.NumPorts)
	e.u16(p.MinFrames)
	e.u16(p.MaxFrames)
	e.u16(p.CurFrames)
	e.u8(p.MinSync)
	e.u8(p.MaxSync)
	e.u8(p.CurSync)
	e.u8(p.ActiveConfig)
	if err := e.count(len(p.Configs), "config blocks"); err != nil {
		return nil, err
	}
	for _, c := range p.Configs {
		c.appendTo(e)
	}
	return e.buf, nil
}

func (p *AudioGlobalParm) UnmarshalBinary(data []byte) error {
	d := newDecoder(data)
	d.version("audio global")
	var r AudioGlobalParm
	r.NumPorts = d.u16("port count")
	r.MinFrames = d.u16("min frames")
	r.MaxFrames = d.u16("max frames")
	r.CurFrames = d.u16("current frames")
	r.MinSync = d.u8("min sync factor")
	r.MaxSync = d.u8("max sync factor")
	r.CurSync = d.u8("current sync factor")
	r.ActiveConfig = d.u8("active config")
	n := int(d.u8("config block count"))
	if d.need(n*configBlockSize, "config blocks") {
		for i := 0; i < n; i++ {
			r.Configs = append(r.Configs, parseConfigBlock(d))
		}
	}
	if err := d.finish("audio global"); err != nil {
		return err
	}
	if (n == 0 && r.ActiveConfig != 0) || (n > 0 && (r.ActiveConfig == 0 || int(r.ActiveConfig) > n)) {
		return fmt.Errorf("%w: active config %d of %d blocks", ErrMalformedRecord, r.ActiveConfig, n)
	}
	*p = r
	return nil
}
