package mesh

import (
	"image/color"
	"math"

	"github.com/npratt/dandiatlas/internal/atlas"
)

// Opacity levels.
const (
	MinOpacity     = 0.3
	MaxOpacity     = 0.9
	SolidOpacity   = 1.0
	RootOpacity    = 0.06
	ContextOpacity = 0.15
)

// DisplayOpacity maps a subtree dandiset count to the normal display
// opacity: min(0.3 + 0.2*log2(total+1), 0.9).
func DisplayOpacity(total int) float64 {
	if total < 0 {
		total = 0
	}
	return math.Min(MinOpacity+0.2*math.Log2(float64(total+1)), MaxOpacity)
}

// Role is the visual role a projection assigns to a loaded mesh.
type Role int

const (
	// RoleDimmed meshes are neither rendered nor pickable.
	RoleDimmed Role = iota
	// RoleActive meshes are drawn in region colour and can be picked.
	RoleActive
	// RoleContext meshes are wireframe ancestors giving spatial context.
	RoleContext
	// RoleRootOutline is the near-invisible forest root.
	RoleRootOutline
)

// String returns a string representation of the Role.
func (r Role) String() string {
	switch r {
	case RoleActive:
		return "active"
	case RoleContext:
		return "context"
	case RoleRootOutline:
		return "root-outline"
	default:
		return "dimmed"
	}
}

// Material is the selection-independent look of a mesh, derived once when
// its geometry loads.
type Material struct {
	Color     color.RGBA
	Opacity   float64 // normal display opacity
	Wireframe bool    // ancestor-only structures render as outlines
	Category  atlas.Category
}

// BaseMaterial derives the base material of structure id. Region statistics
// colour wins over the hierarchy colour.
func BaseMaterial(id int, stats atlas.StatsTable, avail atlas.MeshAvailability, idx *atlas.Index) Material {
	m := Material{Category: avail.Category(id)}

	hex := ""
	if s, ok := stats.Get(id); ok {
		hex = s.ColorHex
		m.Opacity = DisplayOpacity(s.TotalCount())
	} else {
		m.Opacity = DisplayOpacity(0)
	}
	if hex == "" {
		if n, ok := idx.Lookup(id); ok {
			hex = n.ColorHex
		}
	}
	m.Color = atlas.ParseColor(hex)

	switch m.Category {
	case atlas.CategoryRoot:
		m.Opacity = RootOpacity
	case atlas.CategoryAncestor:
		m.Wireframe = true
	}
	return m
}

// Appearance is the look currently applied to a mesh.
type Appearance struct {
	Role      Role
	Color     color.RGBA
	Opacity   float64
	Wireframe bool
	Visible   bool
	Pickable  bool
}
