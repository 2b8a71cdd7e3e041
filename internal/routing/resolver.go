// Package routing presents the device's patchbay and mixer buses as one
// logical patch matrix addressed by (section, channel) pairs.
//
// Sources are the output channels of a section: a port's output channels or
// the buses of a mixer. Destinations are the input channels of a section: a
// port's input channels or the inputs of a mixer. Three paths exist:
//
//	port   -> port         PatchbayParm of the destination port
//	bus    -> port         MixerOutputParm channel list (own port only)
//	port   -> mixer input  MixerInputParm source
//
// A destination channel has at most one source across the patchbay and the
// buses of its port. Bus to mixer input paths do not exist.
package routing

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/micro-nova/audioconfig-go/internal/params"
	"github.com/micro-nova/audioconfig-go/internal/registry"
)

var (
	// ErrInvalidPath indicates an address pair that cannot be patched.
	ErrInvalidPath = errors.New("invalid routing path")

	// ErrInvalidSection indicates a section outside 1..NumSections.
	ErrInvalidSection = errors.New("invalid section")
)

// Address is a logical (section, channel) pair. Both are 1-based; the zero
// Address means none.
type Address struct {
	Section int `json:"section"`
	Channel int `json:"channel"`
}

// IsZero reports whether a is the empty address.
func (a Address) IsZero() bool { return a.Section == 0 && a.Channel == 0 }

func (a Address) String() string { return fmt.Sprintf("%d.%d", a.Section, a.Channel) }

// ParseAddress parses the "section.channel" form produced by String.
func ParseAddress(s string) (Address, error) {
	sec, ch, ok := strings.Cut(s, ".")
	if !ok {
		return Address{}, fmt.Errorf("address %q: want section.channel", s)
	}
	a, err1 := strconv.Atoi(sec)
	b, err2 := strconv.Atoi(ch)
	if err := errors.Join(err1, err2); err != nil {
		return Address{}, fmt.Errorf("address %q: %w", s, err)
	}
	return Address{Section: a, Channel: b}, nil
}

type endpoint struct {
	port    uint16
	mixer   bool
	channel uint8
}

// SectionRef names a section by what it shows rather than by its number,
// which changes when the mixer subsystem comes or goes.
type SectionRef struct {
	Port  uint16
	Mixer bool
}

// Resolver answers and mutates routing through a registry. It holds no
// parameter state of its own, only the display collapse flags. It is not
// safe for concurrent use.
type Resolver struct {
	reg       registry.Registry
	collapsed map[SectionRef]bool
}

// New returns a resolver bound to reg.
func New(reg registry.Registry) *Resolver {
	return &Resolver{reg: reg, collapsed: make(map[SectionRef]bool)}
}

// HasMixer reports whether the device has a mixer subsystem.
func (r *Resolver) HasMixer() bool {
	return registry.Contains[*params.MixerParm](r.reg, 0, 0)
}

// NumPorts returns the device's port count, 0 before the global record arrives.
func (r *Resolver) NumPorts() int {
	g, err := registry.Get[*params.AudioGlobalParm](r.reg, 0, 0)
	if err != nil {
		return 0
	}
	return int(g.NumPorts)
}

// NumSections returns the number of logical sections.
func (r *Resolver) NumSections() int {
	if r.HasMixer() {
		return 2 * r.NumPorts()
	}
	return r.NumPorts()
}

// Section returns the port behind section s and whether s is its mixer.
func (r *Resolver) Section(s int) (port uint16, mixer bool, err error) {
	if s < 1 || s > r.NumSections() {
		return 0, false, fmt.Errorf("%w: %d of %d", ErrInvalidSection, s, r.NumSections())
	}
	p, m, _ := FromSection(s, r.HasMixer())
	return uint16(p), m, nil
}

// NumInputsPerSection returns the destination channel count of section s.
func (r *Resolver) NumInputsPerSection(s int) int { return r.count(s, true) }

// NumOutputsPerSection returns the source channel count of section s.
func (r *Resolver) NumOutputsPerSection(s int) int { return r.count(s, false) }

// A collapsed section reports one channel unless it has none at all.
func (r *Resolver) count(s int, inputs bool) int {
	n := r.physicalCount(s, inputs)
	if n > 0 && r.IsCollapsed(s) {
		return 1
	}
	return n
}

func (r *Resolver) physicalCount(s int, inputs bool) int {
	port, mixer, err := r.Section(s)
	if err != nil {
		return 0
	}
	if !mixer {
		p, err := registry.Get[*params.AudioPortParm](r.reg, port, 0)
		if err != nil {
			return 0
		}
		if inputs {
			return int(p.Inputs.Current)
		}
		return int(p.Outputs.Current)
	}
	mp, err := registry.Get[*params.MixerPortParm](r.reg, port, 0)
	if err != nil {
		return 0
	}
	if inputs {
		return int(mp.NumInputs)
	}
	return int(mp.NumOutputs)
}

// SetCollapsed sets the display collapse flag of section s.
func (r *Resolver) SetCollapsed(s int, collapsed bool) error {
	port, mixer, err := r.Section(s)
	if err != nil {
		return err
	}
	r.SetCollapsedRef(SectionRef{Port: port, Mixer: mixer}, collapsed)
	return nil
}

// SetCollapsedRef sets the collapse flag of ref whether or not the device
// currently has that section. The flag takes effect while it does.
func (r *Resolver) SetCollapsedRef(ref SectionRef, collapsed bool) {
	if collapsed {
		r.collapsed[ref] = true
	} else {
		delete(r.collapsed, ref)
	}
}

// ToggleCollapsed flips the collapse flag of section s and returns the new value.
func (r *Resolver) ToggleCollapsed(s int) (bool, error) {
	v := !r.IsCollapsed(s)
	if err := r.SetCollapsed(s, v); err != nil {
		return false, err
	}
	return v, nil
}

// IsCollapsed reports whether section s exists and is collapsed.
func (r *Resolver) IsCollapsed(s int) bool {
	port, mixer, err := r.Section(s)
	if err != nil {
		return false
	}
	return r.collapsed[SectionRef{Port: port, Mixer: mixer}]
}

// CollapsedRefs returns every collapse flag, including those of sections the
// device does not currently have, ordered by port with the port before its
// mixer.
func (r *Resolver) CollapsedRefs() []SectionRef {
	refs := make([]SectionRef, 0, len(r.collapsed))
	for ref := range r.collapsed {
		refs = append(refs, ref)
	}
	slices.SortFunc(refs, func(a, b SectionRef) int {
		if a.Port != b.Port {
			return cmp.Compare(a.Port, b.Port)
		}
		switch {
		case a.Mixer == b.Mixer:
			return 0
		case b.Mixer:
			return -1
		default:
			return 1
		}
	})
	return refs
}

func decode(a Address, hasMixer bool) (endpoint, bool) {
	if a.Channel < 1 || a.Channel > math.MaxUint8 {
		return endpoint{}, false
	}
	port, mixer, ok := FromSection(a.Section, hasMixer)
	if !ok || port > math.MaxUint16 {
		return endpoint{}, false
	}
	return endpoint{port: uint16(port), mixer: mixer, channel: uint8(a.Channel)}, true
}

func (r *Resolver) address(port uint16, mixer bool, ch uint8, hasMixer bool) (Address, bool) {
	s, ok := ToSection(int(port), mixer, hasMixer)
	if !ok || ch == 0 {
		return Address{}, false
	}
	a := Address{Section: s, Channel: int(ch)}
	if r.collapsed[SectionRef{Port: port, Mixer: mixer}] {
		a.Channel = 1
	}
	return a, true
}

func (r *Resolver) mixerHas(port uint16, inputs bool) bool {
	mp, err := registry.Get[*params.MixerPortParm](r.reg, port, 0)
	if err != nil {
		return false
	}
	if inputs {
		return mp.NumInputs > 0
	}
	return mp.NumOutputs > 0
}

// noPatch logs a lookup miss that routing treats as "not patched".
func noPatch(op string, err error) {
	slog.Debug("routing: treating as unpatched", "op", op, "err", err)
}

// IsPatched reports whether source out feeds destination in. Pairs touching a
// collapsed section and bus to mixer input pairs report true.
func (r *Resolver) IsPatched(out, in Address) bool {
	if r.IsCollapsed(out.Section) || r.IsCollapsed(in.Section) {
		return true
	}
	hasMixer := r.HasMixer()
	src, ok := decode(out, hasMixer)
	if !ok {
		return false
	}
	dst, ok := decode(in, hasMixer)
	if !ok {
		return false
	}

	switch {
	case src.mixer && dst.mixer:
		return true

	case !src.mixer && !dst.mixer:
		pb, err := registry.Get[*params.PatchbayParm](r.reg, dst.port, 0)
		if err != nil {
			noPatch("is patched", err)
			return false
		}
		blk, err := pb.Block(dst.channel)
		if err != nil {
			noPatch("is patched", err)
			return false
		}
		return blk.OutputPortID == src.port && blk.OutputChannel == src.channel

	case src.mixer:
		if src.port != dst.port {
			return false
		}
		bus, err := registry.Get[*params.MixerOutputParm](r.reg, src.port, uint16(src.channel))
		if err != nil {
			noPatch("is patched", err)
			return false
		}
		return bus.Has(dst.channel)

	default:
		mi, err := registry.Get[*params.MixerInputParm](r.reg, dst.port, uint16(dst.channel))
		if err != nil {
			noPatch("is patched", err)
			return false
		}
		return mi.SourcePortID == src.port && mi.SourceChannel == src.channel
	}
}

// SetPatch makes out feed in. When out is zero it removes the link from
// toRemove to in instead; when both are zero it clears every source of in.
// Records the device has not reported are skipped and logged.
func (r *Resolver) SetPatch(out, in, toRemove Address) error {
	hasMixer := r.HasMixer()
	dst, ok := decode(in, hasMixer)
	if !ok {
		return fmt.Errorf("%w: destination %s", ErrInvalidPath, in)
	}
	remove := out.IsZero()
	ref := out
	if remove {
		ref = toRemove
		if ref.IsZero() {
			return r.clearDestination(dst)
		}
	}
	src, ok := decode(ref, hasMixer)
	if !ok {
		return fmt.Errorf("%w: source %s", ErrInvalidPath, ref)
	}

	switch {
	case src.mixer && dst.mixer:
		return fmt.Errorf("%w: bus %s cannot feed mixer input %s", ErrInvalidPath, ref, in)
	case !src.mixer && !dst.mixer:
		return r.patchPort(src, dst, remove)
	case src.mixer:
		return r.patchBus(src, dst, remove)
	default:
		return r.patchMixerInput(src, dst, remove)
	}
}

func (r *Resolver) patchPort(src, dst endpoint, remove bool) error {
	pb, err := registry.Get[*params.PatchbayParm](r.reg, dst.port, 0)
	if err != nil {
		noPatch("set patch", err)
		return nil
	}
	next := pb.Clone()
	blk, err := next.Block(dst.channel)
	if err != nil {
		noPatch("set patch", err)
		return nil
	}
	same := blk.OutputPortID == src.port && blk.OutputChannel == src.channel

	if remove {
		if !same {
			return nil
		}
		blk.Clear()
		return registry.Send(r.reg, next)
	}
	if !same {
		blk.OutputPortID = src.port
		blk.OutputChannel = src.channel
		if err := registry.Send(r.reg, next); err != nil {
			return err
		}
	}
	return r.purgeBuses(dst.port, dst.channel, 0)
}

func (r *Resolver) patchBus(src, dst endpoint, remove bool) error {
	if src.port != dst.port {
		return fmt.Errorf("%w: mixer of port %d cannot feed port %d", ErrInvalidPath, src.port, dst.port)
	}
	if !r.mixerHas(src.port, false) {
		return fmt.Errorf("%w: port %d has no mixer outputs", ErrInvalidPath, src.port)
	}
	bus, err := registry.Get[*params.MixerOutputParm](r.reg, src.port, uint16(src.channel))
	if err != nil {
		noPatch("set patch", err)
		return nil
	}

	if remove {
		if !bus.Has(dst.channel) {
			return nil
		}
		next := bus.Clone()
		next.Remove(dst.channel)
		return registry.Send(r.reg, next)
	}

	var next *params.MixerOutputParm
	if !bus.Has(dst.channel) {
		next = bus.Clone()
		if err := next.Add(dst.channel); err != nil {
			return err
		}
	}
	if err := r.purgeBuses(dst.port, dst.channel, src.channel); err != nil {
		return err
	}
	if err := r.clearPatchbay(dst.port, dst.channel); err != nil {
		return err
	}
	if next == nil {
		return nil
	}
	return registry.Send(r.reg, next)
}

func (r *Resolver) patchMixerInput(src, dst endpoint, remove bool) error {
	if !r.mixerHas(dst.port, true) {
		return fmt.Errorf("%w: port %d has no mixer inputs", ErrInvalidPath, dst.port)
	}
	mi, err := registry.Get[*params.MixerInputParm](r.reg, dst.port, uint16(dst.channel))
	if err != nil {
		noPatch("set patch", err)
		return nil
	}
	same := mi.SourcePortID == src.port && mi.SourceChannel == src.channel
	next := *mi
	switch {
	case remove && same:
		next.SourcePortID, next.SourceChannel = 0, 0
	case !remove && !same:
		next.SourcePortID, next.SourceChannel = src.port, src.channel
	default:
		return nil
	}
	return registry.Send(r.reg, &next)
}

func (r *Resolver) clearDestination(dst endpoint) error {
	if !dst.mixer {
		if err := r.clearPatchbay(dst.port, dst.channel); err != nil {
			return err
		}
		return r.purgeBuses(dst.port, dst.channel, 0)
	}
	mi, err := registry.Get[*params.MixerInputParm](r.reg, dst.port, uint16(dst.channel))
	if err != nil {
		noPatch("clear", err)
		return nil
	}
	if !mi.Patched() {
		return nil
	}
	next := *mi
	next.SourcePortID, next.SourceChannel = 0, 0
	return registry.Send(r.reg, &next)
}

func (r *Resolver) clearPatchbay(port uint16, ch uint8) error {
	pb, err := registry.Get[*params.PatchbayParm](r.reg, port, 0)
	if err != nil {
		noPatch("clear", err)
		return nil
	}
	next := pb.Clone()
	blk, err := next.Block(ch)
	if err != nil {
		noPatch("clear", err)
		return nil
	}
	if !blk.Patched() {
		return nil
	}
	blk.Clear()
	return registry.Send(r.reg, next)
}

// purgeBuses removes ch from every bus of port except keep (0 keeps none).
func (r *Resolver) purgeBuses(port uint16, ch, keep uint8) error {
	var changed []*params.MixerOutputParm
	registry.ForEach(r.reg, func(bus *params.MixerOutputParm) bool {
		if bus.PortID == port && bus.Output != keep && bus.Has(ch) {
			next := bus.Clone()
			next.Remove(ch)
			changed = append(changed, next)
		}
		return true
	})
	for _, bus := range changed {
		if err := registry.Send(r.reg, bus); err != nil {
			return err
		}
	}
	return nil
}

type pair struct{ out, in Address }

// visitor yields each pair once and remembers when the callback stops.
type visitor struct {
	fn      func(out, in Address) bool
	seen    map[pair]bool
	stopped bool
}

func newVisitor(fn func(out, in Address) bool) *visitor {
	return &visitor{fn: fn, seen: make(map[pair]bool)}
}

func (v *visitor) visit(out, in Address) bool {
	p := pair{out, in}
	if v.seen[p] {
		return true
	}
	v.seen[p] = true
	if !v.fn(out, in) {
		v.stopped = true
	}
	return !v.stopped
}

// ForEach calls fn for every active port to port link until fn returns
// false. Links into or out of a collapsed section report channel 1 and are
// yielded once.
func (r *Resolver) ForEach(fn func(out, in Address) bool) {
	hasMixer := r.HasMixer()
	v := newVisitor(fn)
	registry.ForEach(r.reg, func(pb *params.PatchbayParm) bool {
		for _, b := range pb.Blocks {
			if !b.Patched() {
				continue
			}
			out, ok1 := r.address(b.OutputPortID, false, b.OutputChannel, hasMixer)
			in, ok2 := r.address(pb.PortID, false, b.InputChannel, hasMixer)
			if !ok1 || !ok2 {
				continue
			}
			if !v.visit(out, in) {
				return false
			}
		}
		return true
	})
}

// ForEachMixer calls fn for every active bus to port and port to mixer input
// link until fn returns false. Collapse is applied as in ForEach.
func (r *Resolver) ForEachMixer(fn func(out, in Address) bool) {
	if !r.HasMixer() {
		return
	}
	v := newVisitor(fn)
	registry.ForEach(r.reg, func(bus *params.MixerOutputParm) bool {
		out, ok := r.address(bus.PortID, true, bus.Output, true)
		if !ok {
			return true
		}
		for _, ch := range bus.Channels {
			in, ok := r.address(bus.PortID, false, ch, true)
			if !ok {
				continue
			}
			if !v.visit(out, in) {
				return false
			}
		}
		return true
	})
	if v.stopped {
		return
	}
	registry.ForEach(r.reg, func(mi *params.MixerInputParm) bool {
		if !mi.Patched() {
			return true
		}
		out, ok1 := r.address(mi.SourcePortID, false, mi.SourceChannel, true)
		in, ok2 := r.address(mi.PortID, true, mi.Input, true)
		if !ok1 || !ok2 {
			return true
		}
		return v.visit(out, in)
	})
}
