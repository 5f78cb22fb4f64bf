// Package mesh decodes region geometry, tracks per-structure mesh runtime
// entries and fetches geometry lazily with deduplication and a negative cache.
package mesh

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chewxy/math32"
)

// Vec3 is a point in atlas space (µm).
type Vec3 [3]float32

// Geometry is a triangulated region surface.
type Geometry struct {
	Vertices  []Vec3
	Triangles [][3]int32 // zero-based vertex indices
}

// Box is an axis-aligned bounding box.
type Box struct {
	Min, Max Vec3
}

// Size returns the box extent per axis.
func (b Box) Size() Vec3 {
	return Vec3{b.Max[0] - b.Min[0], b.Max[1] - b.Min[1], b.Max[2] - b.Min[2]}
}

// Center returns the box midpoint.
func (b Box) Center() Vec3 {
	return Vec3{(b.Min[0] + b.Max[0]) / 2, (b.Min[1] + b.Max[1]) / 2, (b.Min[2] + b.Max[2]) / 2}
}

// Union returns the smallest box holding b and o.
func (b Box) Union(o Box) Box {
	var out Box
	for i := 0; i < 3; i++ {
		out.Min[i] = math32.Min(b.Min[i], o.Min[i])
		out.Max[i] = math32.Max(b.Max[i], o.Max[i])
	}
	return out
}

// EmptyBox returns an inverted box that any Union replaces.
func EmptyBox() Box {
	inf := math32.Inf(1)
	return Box{Min: Vec3{inf, inf, inf}, Max: Vec3{-inf, -inf, -inf}}
}

// Bounds returns the bounding box of the vertices.
func (g *Geometry) Bounds() Box {
	b := EmptyBox()
	for _, v := range g.Vertices {
		for i := 0; i < 3; i++ {
			b.Min[i] = math32.Min(b.Min[i], v[i])
			b.Max[i] = math32.Max(b.Max[i], v[i])
		}
	}
	return b
}

// Centroid returns the mean vertex position.
func (g *Geometry) Centroid() Vec3 {
	var c Vec3
	if len(g.Vertices) == 0 {
		return c
	}
	for _, v := range g.Vertices {
		c[0] += v[0]
		c[1] += v[1]
		c[2] += v[2]
	}
	n := float32(len(g.Vertices))
	return Vec3{c[0] / n, c[1] / n, c[2] / n}
}

// DecodeOBJ reads Wavefront OBJ geometry. Only v and f records are used;
// polygons are fan-triangulated and negative indices are resolved relative
// to the vertices parsed so far.
func DecodeOBJ(r io.Reader) (*Geometry, error) {
	g := &Geometry{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || text[0] == '#' {
			continue
		}
		fields := strings.Fields(text)
		switch fields[0] {
		case "v":
			v, err := parseVertex(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("obj line %d: %w", line, err)
			}
			g.Vertices = append(g.Vertices, v)
		case "f":
			idx, err := parseFace(fields[1:], len(g.Vertices))
			if err != nil {
				return nil, fmt.Errorf("obj line %d: %w", line, err)
			}
			for i := 1; i+1 < len(idx); i++ {
				g.Triangles = append(g.Triangles, [3]int32{idx[0], idx[i], idx[i+1]})
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read obj: %w", err)
	}
	if len(g.Vertices) == 0 || len(g.Triangles) == 0 {
		return nil, fmt.Errorf("obj has no geometry")
	}
	return g, nil
}

func parseVertex(fields []string) (Vec3, error) {
	var v Vec3
	if len(fields) < 3 {
		return v, fmt.Errorf("vertex with %d coordinates", len(fields))
	}
	for i := 0; i < 3; i++ {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return v, fmt.Errorf("vertex coordinate %q: %w", fields[i], err)
		}
		v[i] = float32(f)
	}
	return v, nil
}

func parseFace(fields []string, nverts int) ([]int32, error) {
	if len(fields) < 3 {
		return nil, fmt.Errorf("face with %d vertices", len(fields))
	}
	out := make([]int32, len(fields))
	for pos, f := range fields {
		// v, v/vt, v//vn or v/vt/vn; only the position index matters.
		head, _, _ := strings.Cut(f, "/")
		val, err := strconv.ParseInt(head, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("face index %q: %w", f, err)
		}
		var idx int
		switch {
		case val > 0:
			idx = int(val) - 1
		case val < 0:
			idx = nverts + int(val)
		default:
			return nil, fmt.Errorf("face index 0")
		}
		if idx < 0 || idx >= nverts {
			return nil, fmt.Errorf("face index %d out of range (%d vertices)", val, nverts)
		}
		out[pos] = int32(idx)
	}
	return out, nil
}
