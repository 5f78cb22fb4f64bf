package selection

import (
	"github.com/npratt/dandiatlas/internal/atlas"
	"github.com/npratt/dandiatlas/internal/dandiset"
)

// Scope is the set of structures a selection refers to. Projectors read
// only a State and its Scope, never each other's output.
type Scope struct {
	// Target is the exact isolated structure in region mode.
	Target    int
	HasTarget bool

	// Active holds the selection-active structures. Nil in the default view,
	// where every data structure is shown.
	Active atlas.IDSet

	// Hidden is the individually hidden set of the state.
	Hidden atlas.IDSet

	// Subjects are the subjects listed in the detail panel.
	Subjects []dandiset.Subject
	// Assets restricts the listing to one session in subject mode.
	Assets []dandiset.Asset

	// Toggleable are the regions offered as visibility checkboxes: the union
	// over displayed subjects (or the selected session).
	Toggleable atlas.IDSet

	// TreeActive is Active plus the ancestors of its members. Nil means the
	// tree is neutral.
	TreeActive atlas.IDSet
}

// Default reports whether the scope is the unselected default view.
func (sc Scope) Default() bool { return sc.Active == nil }

// Shown reports whether id is selection-active and not hidden.
func (sc Scope) Shown(id int) bool {
	if sc.Active == nil {
		return true
	}
	return sc.Active.Has(id) && !sc.Hidden.Has(id)
}

// Derive computes the scope of s. subjects are the grouped subjects of the
// selected dandiset and are ignored outside dandiset modes.
func Derive(s State, idx *atlas.Index, subjects []dandiset.Subject) Scope {
	switch s.Kind {
	case KindRegion:
		active := idx.DescendantsOf(s.region)
		tree := active.Clone()
		for _, a := range idx.AncestorsOf(s.region) {
			tree.Add(a)
		}
		return Scope{
			Target:     s.region,
			HasTarget:  true,
			Active:     active,
			Hidden:     atlas.NewIDSet(),
			TreeActive: tree,
		}

	case KindDandiset:
		displayed := subjects
		if filter, ok := s.RegionFilter(); ok {
			within := idx.DescendantsOf(filter)
			displayed = nil
			for _, subj := range subjects {
				if subj.Regions.Intersects(within) {
					displayed = append(displayed, subj)
				}
			}
		}
		toggleable := atlas.NewIDSet()
		for _, subj := range displayed {
			toggleable.AddAll(subj.Regions)
		}
		return Scope{
			Active:     toggleable,
			Hidden:     s.hidden.Clone(),
			Subjects:   displayed,
			Toggleable: toggleable,
			TreeActive: idx.WithAncestors(toggleable),
		}

	case KindSubject:
		subj, ok := dandiset.FindSubject(subjects, s.SubjectID)
		if !ok {
			return Scope{Active: atlas.NewIDSet(), Hidden: atlas.NewIDSet(), Toggleable: atlas.NewIDSet(), TreeActive: atlas.NewIDSet()}
		}
		regions := subj.Regions
		var assets []dandiset.Asset
		if s.SessionAssetID != "" {
			if a, ok := subj.Asset(s.SessionAssetID); ok {
				assets = []dandiset.Asset{a}
				regions = dandiset.Regions(assets)
			}
		}
		toggleable := regions.Clone()
		return Scope{
			Active:     toggleable,
			Hidden:     s.hidden.Clone(),
			Subjects:   []dandiset.Subject{subj},
			Assets:     assets,
			Toggleable: toggleable,
			TreeActive: idx.WithAncestors(toggleable),
		}
	}
	return Scope{Hidden: atlas.NewIDSet()}
}
