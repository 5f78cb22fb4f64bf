// Package selection holds the single mutable selection state of the browser
// and the controller that performs every transition on it.
package selection

import (
	"errors"

	"github.com/npratt/dandiatlas/internal/atlas"
)

var (
	// ErrInvalidTransition is returned when an operation is not valid in the
	// current selection mode. The state is left untouched.
	ErrInvalidTransition = errors.New("invalid selection transition")
	// ErrUnknownDandiset is returned for dandiset ids absent from the catalog.
	ErrUnknownDandiset = errors.New("unknown dandiset")
	// ErrUnknownSubject is returned for subject or session ids absent from
	// the selected dandiset.
	ErrUnknownSubject = errors.New("unknown subject")
)

// Kind identifies the shape of a State.
type Kind int

const (
	// KindNone is the default view: nothing selected.
	KindNone Kind = iota
	// KindRegion isolates one structure's subtree.
	KindRegion
	// KindDandiset shows the regions tagged by one dandiset.
	KindDandiset
	// KindSubject narrows a dandiset to one subject or session.
	KindSubject
)

// String returns a string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindRegion:
		return "region"
	case KindDandiset:
		return "dandiset"
	case KindSubject:
		return "subject"
	default:
		return "none"
	}
}

// State is the tagged union of selection shapes. Fields outside the active
// Kind are zero. The hidden set is shared between copies and never mutated
// in place; transitions install a fresh set.
type State struct {
	Kind    Kind
	Version uint64

	region    int // KindRegion target, or KindDandiset filter when hasFilter
	hasFilter bool

	DandisetID     string
	SubjectID      string
	SessionAssetID string

	hidden atlas.IDSet
}

// None returns the empty selection.
func None() State { return State{} }

// Region returns the isolated structure in KindRegion.
func (s State) Region() (int, bool) {
	if s.Kind != KindRegion {
		return 0, false
	}
	return s.region, true
}

// RegionFilter returns the region filter of a KindDandiset selection.
func (s State) RegionFilter() (int, bool) {
	if s.Kind != KindDandiset || !s.hasFilter {
		return 0, false
	}
	return s.region, true
}

// HasDandiset reports whether a dandiset context is active.
func (s State) HasDandiset() bool {
	return s.Kind == KindDandiset || s.Kind == KindSubject
}

// Hidden reports whether id is individually hidden.
func (s State) Hidden(id int) bool {
	return s.hidden.Has(id)
}

// HiddenIDs returns the hidden structure ids in ascending order.
func (s State) HiddenIDs() []int {
	return s.hidden.Sorted()
}

// HiddenSet returns a copy of the hidden set.
func (s State) HiddenSet() atlas.IDSet {
	return s.hidden.Clone()
}

// Equal reports whether two states describe the same selection, ignoring
// Version.
func (s State) Equal(o State) bool {
	return s.Kind == o.Kind &&
		s.region == o.region &&
		s.hasFilter == o.hasFilter &&
		s.DandisetID == o.DandisetID &&
		s.SubjectID == o.SubjectID &&
		s.SessionAssetID == o.SessionAssetID &&
		s.hidden.Equal(o.hidden)
}
