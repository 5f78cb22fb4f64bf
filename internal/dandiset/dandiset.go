// Package dandiset groups per-asset region tags into subjects and computes
// the subject counts shown on the region tree while a dandiset is selected.
package dandiset

import (
	"sort"
	"strings"

	"github.com/npratt/dandiatlas/internal/atlas"
)

// Asset is one file record of a dandiset.
type Asset struct {
	Path    string
	AssetID string
	Regions []int // structure ids tagged on this asset
	Session string
	Desc    string
}

// Subject returns the subject identifier derived from the asset path.
func (a Asset) Subject() string {
	return SubjectOf(a.Path)
}

// Catalog maps dandiset ids to their assets.
type Catalog map[string][]Asset

// Assets returns the assets of a dandiset and whether it is known.
func (c Catalog) Assets(id string) ([]Asset, bool) {
	a, ok := c[id]
	return a, ok
}

// IDs returns the dandiset ids in ascending order.
func (c Catalog) IDs() []string {
	ids := make([]string, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SubjectOf returns the leading directory segment of path. Paths without a
// directory fall back to the prefix before the first underscore.
func SubjectOf(path string) string {
	if i := strings.IndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	if i := strings.IndexByte(path, '_'); i >= 0 {
		return path[:i]
	}
	return path
}

// Subject is a group of assets sharing a subject identifier.
type Subject struct {
	ID      string
	Assets  []Asset
	Regions atlas.IDSet // union over Assets
}

// IsGroup reports whether the subject renders as an expandable session list.
func (s Subject) IsGroup() bool {
	return len(s.Assets) > 1
}

// Asset returns the asset with the given id within this subject.
func (s Subject) Asset(assetID string) (Asset, bool) {
	for _, a := range s.Assets {
		if a.AssetID == assetID {
			return a, true
		}
	}
	return Asset{}, false
}

// GroupSubjects groups assets by subject. Subjects are sorted by id; assets
// keep their input order within a subject.
func GroupSubjects(assets []Asset) []Subject {
	byID := make(map[string]*Subject)
	var order []string
	for _, a := range assets {
		id := a.Subject()
		s, ok := byID[id]
		if !ok {
			s = &Subject{ID: id, Regions: atlas.NewIDSet()}
			byID[id] = s
			order = append(order, id)
		}
		s.Assets = append(s.Assets, a)
		for _, r := range a.Regions {
			s.Regions.Add(r)
		}
	}

	sort.Strings(order)
	out := make([]Subject, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out
}

// FindSubject returns the subject with id from subjects.
func FindSubject(subjects []Subject, id string) (Subject, bool) {
	for _, s := range subjects {
		if s.ID == id {
			return s, true
		}
	}
	return Subject{}, false
}

// Regions returns the union of structures tagged across assets.
func Regions(assets []Asset) atlas.IDSet {
	out := atlas.NewIDSet()
	for _, a := range assets {
		for _, r := range a.Regions {
			out.Add(r)
		}
	}
	return out
}

// Counts holds per-structure subject counts for one dandiset.
type Counts struct {
	Direct map[int]int // distinct subjects tagging exactly this structure
	Total  map[int]int // distinct subjects tagging this structure or a descendant
}

// ComputeSubjectCounts counts distinct subjects per structure and propagates
// them up the hierarchy with the same rule used for dataset totals.
// The result depends only on its inputs.
func ComputeSubjectCounts(assets []Asset, idx *atlas.Index) Counts {
	subjectsBy := make(map[int]map[string]struct{})
	for _, a := range assets {
		subj := a.Subject()
		for _, r := range a.Regions {
			set, ok := subjectsBy[r]
			if !ok {
				set = make(map[string]struct{})
				subjectsBy[r] = set
			}
			set[subj] = struct{}{}
		}
	}

	direct := make(map[int][]string, len(subjectsBy))
	counts := Counts{
		Direct: make(map[int]int, len(subjectsBy)),
		Total:  make(map[int]int),
	}
	for r, set := range subjectsBy {
		list := make([]string, 0, len(set))
		for s := range set {
			list = append(list, s)
		}
		direct[r] = list
		counts.Direct[r] = len(list)
	}

	for r, list := range idx.AggregateUp(direct) {
		counts.Total[r] = len(list)
	}
	return counts
}
