// Package atlas holds the anatomical structure hierarchy, the per-region
// dataset statistics, and the mesh availability manifest. All of it is
// loaded once at startup and treated as read-only afterwards.
package atlas

import (
	"errors"
	"image/color"
	"sort"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// NoParent marks a structure at the top of the forest.
const NoParent = -1

// DefaultColorHex is used when a structure carries no colour.
const DefaultColorHex = "AAAAAA"

var (
	// ErrMalformedHierarchy is returned when the structure graph has a cycle,
	// a dangling parent reference, or duplicate ids.
	ErrMalformedHierarchy = errors.New("malformed hierarchy")
	// ErrNotFound is returned for structure ids absent from the index.
	ErrNotFound = errors.New("structure not found")
)

// StructureNode is one anatomical region.
type StructureNode struct {
	ID       int
	Name     string
	Acronym  string
	ColorHex string // six hex digits, no leading '#'
	ParentID int    // NoParent at the forest roots
	Children []int  // ordered as in the hierarchy document
}

// HasParent reports whether the node sits below another structure.
func (n StructureNode) HasParent() bool {
	return n.ParentID != NoParent
}

// Color returns the node colour, falling back to DefaultColorHex.
func (n StructureNode) Color() color.RGBA {
	return ParseColor(n.ColorHex)
}

// RegionStats are the dataset counts of one structure.
// Total sets include every descendant's direct set.
type RegionStats struct {
	StructureID     int
	Name            string
	Acronym         string
	ColorHex        string
	DirectDandisets []string // sorted
	TotalDandisets  []string // sorted, superset of DirectDandisets
	DirectFileCount int
	TotalFileCount  int
}

// DirectCount returns the number of dandisets tagged to this exact structure.
func (s RegionStats) DirectCount() int { return len(s.DirectDandisets) }

// TotalCount returns the number of dandisets in this structure's subtree.
func (s RegionStats) TotalCount() int { return len(s.TotalDandisets) }

// Validate reports whether the total set contains the direct set.
func (s RegionStats) Validate() bool {
	total := make(map[string]struct{}, len(s.TotalDandisets))
	for _, d := range s.TotalDandisets {
		total[d] = struct{}{}
	}
	for _, d := range s.DirectDandisets {
		if _, ok := total[d]; !ok {
			return false
		}
	}
	return true
}

// Repair unions the direct set into the total set so Validate holds.
func (s *RegionStats) Repair() {
	seen := make(map[string]struct{}, len(s.TotalDandisets)+len(s.DirectDandisets))
	merged := make([]string, 0, len(s.TotalDandisets)+len(s.DirectDandisets))
	for _, list := range [][]string{s.TotalDandisets, s.DirectDandisets} {
		for _, d := range list {
			if _, ok := seen[d]; ok {
				continue
			}
			seen[d] = struct{}{}
			merged = append(merged, d)
		}
	}
	sort.Strings(merged)
	s.TotalDandisets = merged
}

// DescendantOnly returns the total dandisets that are not direct ones.
func (s RegionStats) DescendantOnly() []string {
	direct := make(map[string]struct{}, len(s.DirectDandisets))
	for _, d := range s.DirectDandisets {
		direct[d] = struct{}{}
	}
	var out []string
	for _, d := range s.TotalDandisets {
		if _, ok := direct[d]; !ok {
			out = append(out, d)
		}
	}
	return out
}

// StatsTable maps structure ids to their statistics.
type StatsTable map[int]RegionStats

// Get returns the stats for id and whether they exist.
func (t StatsTable) Get(id int) (RegionStats, bool) {
	s, ok := t[id]
	return s, ok
}

// Category classifies a structure id against the mesh manifest.
type Category int

const (
	// CategoryNone means the manifest does not mention the id.
	CategoryNone Category = iota
	// CategoryData structures have a mesh and dataset statistics.
	CategoryData
	// CategoryAncestor structures have a mesh shown for context only.
	CategoryAncestor
	// CategoryNoMesh structures have statistics but no geometry.
	CategoryNoMesh
	// CategoryRoot is the always-loaded forest root outline.
	CategoryRoot
)

// String returns a string representation of the Category.
func (c Category) String() string {
	switch c {
	case CategoryData:
		return "data"
	case CategoryAncestor:
		return "ancestor"
	case CategoryNoMesh:
		return "no-mesh"
	case CategoryRoot:
		return "root"
	default:
		return "none"
	}
}

// MeshAvailability is the mesh manifest. The three sets are disjoint.
type MeshAvailability struct {
	Data     IDSet
	Ancestor IDSet
	NoMesh   IDSet
	RootID   int
}

// NewMeshAvailability builds the manifest, dropping ids that appear in more
// than one list (first list wins: data, then ancestor, then no-mesh).
func NewMeshAvailability(data, ancestor, noMesh []int, rootID int) MeshAvailability {
	a := MeshAvailability{
		Data:     NewIDSet(),
		Ancestor: NewIDSet(),
		NoMesh:   NewIDSet(),
		RootID:   rootID,
	}
	for _, id := range data {
		if id != rootID {
			a.Data.Add(id)
		}
	}
	for _, id := range ancestor {
		if id != rootID && !a.Data.Has(id) {
			a.Ancestor.Add(id)
		}
	}
	for _, id := range noMesh {
		if id != rootID && !a.Data.Has(id) && !a.Ancestor.Has(id) {
			a.NoMesh.Add(id)
		}
	}
	return a
}

// Category returns which manifest category id falls into.
func (a MeshAvailability) Category(id int) Category {
	switch {
	case id == a.RootID:
		return CategoryRoot
	case a.Data.Has(id):
		return CategoryData
	case a.Ancestor.Has(id):
		return CategoryAncestor
	case a.NoMesh.Has(id):
		return CategoryNoMesh
	default:
		return CategoryNone
	}
}

// HasMesh reports whether geometry exists for id.
func (a MeshAvailability) HasMesh(id int) bool {
	switch a.Category(id) {
	case CategoryData, CategoryAncestor, CategoryRoot:
		return true
	default:
		return false
	}
}

// ParseColor parses a six digit hex triplet (with or without '#').
// Unparseable input yields DefaultColorHex.
func ParseColor(hex string) color.RGBA {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")
	c, err := colorful.Hex("#" + hex)
	if err != nil {
		c, _ = colorful.Hex("#" + DefaultColorHex)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}
