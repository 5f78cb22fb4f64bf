// Package electrode normalizes per-asset electrode coordinates into atlas
// space (µm).
package electrode

import (
	"math"
	"sort"
)

// Unit heuristic thresholds. Coordinate files carry no unit tag; files whose
// largest absolute coordinate falls in [ScaledMin, ScaledMax] are taken to
// be in 10 µm voxels and multiplied by ScaleFactor. This is an
// approximation, not a guarantee.
const (
	ScaledMin   = 100.0
	ScaledMax   = 1500.0
	ScaleFactor = 10.0
)

// Point is one electrode position.
type Point [3]float64

// Set maps asset ids to their electrode positions.
type Set map[string][]Point

// MaxAbs returns the largest absolute coordinate over every point.
func (s Set) MaxAbs() float64 {
	m := 0.0
	for _, pts := range s {
		for _, p := range pts {
			for _, c := range p {
				m = math.Max(m, math.Abs(c))
			}
		}
	}
	return m
}

// Scaled reports whether the unit heuristic would rescale s.
func (s Set) Scaled() bool {
	m := s.MaxAbs()
	return m >= ScaledMin && m <= ScaledMax
}

// Normalize returns s in µm, applying the unit heuristic to the whole set.
// The input is not modified.
func Normalize(s Set) Set {
	factor := 1.0
	if s.Scaled() {
		factor = ScaleFactor
	}
	out := make(Set, len(s))
	for id, pts := range s {
		scaled := make([]Point, len(pts))
		for i, p := range pts {
			scaled[i] = Point{p[0] * factor, p[1] * factor, p[2] * factor}
		}
		out[id] = scaled
	}
	return out
}

// Filter returns the points of the given assets. A nil assetIDs keeps all.
func (s Set) Filter(assetIDs []string) []Point {
	var out []Point
	if assetIDs == nil {
		for _, id := range s.AssetIDs() {
			out = append(out, s[id]...)
		}
		return out
	}
	for _, id := range assetIDs {
		out = append(out, s[id]...)
	}
	return out
}

// AssetIDs returns the asset ids in ascending order.
func (s Set) AssetIDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the total number of points.
func (s Set) Len() int {
	n := 0
	for _, pts := range s {
		n += len(pts)
	}
	return n
}
