package params

import (
	"fmt"
	"slices"
)

// InputBlock records which source output channel feeds one input channel of
// a destination port. Zero in either source field means unpatched.
type InputBlock struct {
	InputChannel  uint8
	OutputPortID  uint16
	OutputChannel uint8
}

const inputBlockSize = 4

// Patched reports whether the block has a source.
func (b InputBlock) Patched() bool {
	return b.OutputPortID != 0 && b.OutputChannel != 0
}

// Clear removes the source.
func (b *InputBlock) Clear() {
	b.OutputPortID = 0
	b.OutputChannel = 0
}

// PatchbayParm is the direct-routing table of one destination port: one
// InputBlock per input channel, each with at most one source.
type PatchbayParm struct {
	PortID uint16
	Blocks []InputBlock
}

func (*PatchbayParm) Family() Family { return FamilyPatchbay }

func (p *PatchbayParm) Key() Key { return Key{Family: FamilyPatchbay, PortID: p.PortID} }

// Clone returns a deep copy.
func (p *PatchbayParm) Clone() *PatchbayParm {
	c := *p
	c.Blocks = slices.Clone(p.Blocks)
	return &c
}

// Block returns the block for input channel ch.
func (p *PatchbayParm) Block(ch uint8) (*InputBlock, error) {
	for i := range p.Blocks {
		if p.Blocks[i].InputChannel == ch {
			return &p.Blocks[i], nil
		}
	}
	return nil, fmt.Errorf("%w: port %d channel %d", ErrBlockNotFound, p.PortID, ch)
}

func (p *PatchbayParm) MarshalBinary() ([]byte, error) {
	e := newEncoder()
	e.u16(p.PortID)
	if err := e.count(len(p.Blocks), "input blocks"); err != nil {
		return nil, err
	}
	for _, b := range p.Blocks {
		e.u8(b.InputChannel)
		e.u16(b.OutputPortID)
		e.u8(b.OutputChannel)
	}
	return e.buf, nil
}

func (p *PatchbayParm) UnmarshalBinary(data []byte) error {
	d := newDecoder(data)
	d.version("patchbay")
	var r PatchbayParm
	r.PortID = d.u16("port id")
	n := int(d.u8("input block count"))
	if d.need(n*inputBlockSize, "input blocks") {
		for i := 0; i < n; i++ {
			r.Blocks = append(r.Blocks, InputBlock{
				InputChannel:  d.u8("input channel"),
				OutputPortID:  d.u16("output port id"),
				OutputChannel: d.u8("output channel"),
			})
		}
	}
	if err := d.finish("patchbay"); err != nil {
		return err
	}
	*p = r
	return nil
}
