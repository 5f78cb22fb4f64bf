package selection

import (
	"fmt"

	"github.com/npratt/dandiatlas/internal/atlas"
	"github.com/npratt/dandiatlas/internal/dandiset"
)

// Controller owns the live State. Every successful operation replaces the
// whole state and bumps its version; failed operations leave it untouched.
// A Controller is not safe for concurrent use; callers serialise mutations
// on one goroutine.
type Controller struct {
	idx     *atlas.Index
	catalog dandiset.Catalog

	state    State
	version  uint64
	subjects []dandiset.Subject
	counts   dandiset.Counts
}

// NewController returns a controller in the empty selection.
func NewController(idx *atlas.Index, catalog dandiset.Catalog) *Controller {
	return &Controller{idx: idx, catalog: catalog}
}

// State returns the current selection.
func (c *Controller) State() State { return c.state }

// Index returns the structure index the controller validates against.
func (c *Controller) Index() *atlas.Index { return c.idx }

// Catalog returns the dandiset catalog.
func (c *Controller) Catalog() dandiset.Catalog { return c.catalog }

// Subjects returns the subjects of the current dandiset, or nil.
func (c *Controller) Subjects() []dandiset.Subject { return c.subjects }

// Counts returns the subject counts of the current dandiset. They are
// computed once per SelectDandiset and kept through subject narrowing.
func (c *Controller) Counts() dandiset.Counts { return c.counts }

// Scope derives the region sets implied by the current state.
func (c *Controller) Scope() Scope {
	return Derive(c.state, c.idx, c.subjects)
}

func (c *Controller) set(s State) {
	c.version++
	s.Version = c.version
	c.state = s
}

// Clear returns to the empty selection.
func (c *Controller) Clear() {
	c.subjects = nil
	c.counts = dandiset.Counts{}
	c.set(None())
}

// SelectRegion isolates id's subtree. Any dandiset context and hidden set
// are dropped.
func (c *Controller) SelectRegion(id int) error {
	if err := c.idx.Require(id); err != nil {
		return err
	}
	c.subjects = nil
	c.counts = dandiset.Counts{}
	c.set(State{Kind: KindRegion, region: id})
	return nil
}

// SelectDandiset selects a dandiset, recomputes its subject counts and
// resets the region filter and hidden set.
func (c *Controller) SelectDandiset(id string) error {
	assets, ok := c.catalog.Assets(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDandiset, id)
	}
	c.subjects = dandiset.GroupSubjects(assets)
	c.counts = dandiset.ComputeSubjectCounts(assets, c.idx)
	c.set(State{Kind: KindDandiset, DandisetID: id})
	return nil
}

// FilterDandisetByRegion narrows the displayed subjects of the selected
// dandiset to those tagging id or one of its descendants.
func (c *Controller) FilterDandisetByRegion(id int) error {
	if c.state.Kind != KindDandiset {
		return fmt.Errorf("%w: region filter needs a dandiset selection, have %s", ErrInvalidTransition, c.state.Kind)
	}
	if err := c.idx.Require(id); err != nil {
		return err
	}
	s := c.state
	s.region = id
	s.hasFilter = true
	c.set(s)
	return nil
}

// ClearRegionFilter removes the region filter of a dandiset selection.
func (c *Controller) ClearRegionFilter() error {
	if c.state.Kind != KindDandiset {
		return fmt.Errorf("%w: no dandiset selected", ErrInvalidTransition)
	}
	s := c.state
	s.region = 0
	s.hasFilter = false
	c.set(s)
	return nil
}

// SelectSubjectOrSession narrows the current dandiset to one subject, or to
// one session asset of that subject when sessionAssetID is non-empty.
// Valid while a dandiset or another subject of it is selected. The hidden
// set is reset because the toggleable regions change.
func (c *Controller) SelectSubjectOrSession(subjectID, sessionAssetID string) error {
	if !c.state.HasDandiset() {
		return fmt.Errorf("%w: subject needs a dandiset selection, have %s", ErrInvalidTransition, c.state.Kind)
	}
	subj, ok := dandiset.FindSubject(c.subjects, subjectID)
	if !ok {
		return fmt.Errorf("%w: %s in dandiset %s", ErrUnknownSubject, subjectID, c.state.DandisetID)
	}
	if sessionAssetID != "" {
		if _, ok := subj.Asset(sessionAssetID); !ok {
			return fmt.Errorf("%w: session %s of %s", ErrUnknownSubject, sessionAssetID, subjectID)
		}
	}
	c.set(State{
		Kind:           KindSubject,
		DandisetID:     c.state.DandisetID,
		SubjectID:      subjectID,
		SessionAssetID: sessionAssetID,
	})
	return nil
}

// ToggleRegionVisibility hides or shows one region.
func (c *Controller) ToggleRegionVisibility(id int, hidden bool) error {
	if !c.state.HasDandiset() {
		return fmt.Errorf("%w: visibility toggles need a dandiset selection, have %s", ErrInvalidTransition, c.state.Kind)
	}
	next := c.state.hidden.Clone()
	if hidden {
		next.Add(id)
	} else {
		delete(next, id)
	}
	s := c.state
	s.hidden = next
	c.set(s)
	return nil
}

// ToggleAllRegionsVisibility hides or shows every currently toggleable
// region.
func (c *Controller) ToggleAllRegionsVisibility(hidden bool) error {
	if !c.state.HasDandiset() {
		return fmt.Errorf("%w: visibility toggles need a dandiset selection, have %s", ErrInvalidTransition, c.state.Kind)
	}
	scope := c.Scope()
	next := c.state.hidden.Clone()
	for id := range scope.Toggleable {
		if hidden {
			next.Add(id)
		} else {
			delete(next, id)
		}
	}
	s := c.state
	s.hidden = next
	c.set(s)
	return nil
}
