package models

import (
	"cmp"
	"math"
	"slices"
)

// DefaultPreferences returns the preferences used when none are stored:
// every section expanded.
func DefaultPreferences() Preferences {
	return Preferences{Collapsed: []SectionPref{}}
}

// Normalize sorts Collapsed by port with the port before its mixer, drops
// duplicates and drops ports outside 1..65535, which older or hand-edited
// files may contain.
func (p *Preferences) Normalize() {
	if p.Collapsed == nil {
		p.Collapsed = []SectionPref{}
		return
	}
	p.Collapsed = slices.DeleteFunc(p.Collapsed, func(s SectionPref) bool {
		return s.Port < 1 || s.Port > math.MaxUint16
	})
	slices.SortFunc(p.Collapsed, compareSectionPref)
	p.Collapsed = slices.Compact(p.Collapsed)
}

func compareSectionPref(a, b SectionPref) int {
	if c := cmp.Compare(a.Port, b.Port); c != 0 {
		return c
	}
	switch {
	case a.Mixer == b.Mixer:
		return 0
	case b.Mixer:
		return -1
	default:
		return 1
	}
}
