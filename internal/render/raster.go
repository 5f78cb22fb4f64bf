package render

import (
	"image/color"

	"github.com/chewxy/math32"

	"github.com/npratt/dandiatlas/internal/electrode"
	"github.com/npratt/dandiatlas/internal/mesh"
)

// Cell is one raster sample.
type Cell struct {
	Color color.RGBA
	// ID is the topmost filled mesh when Filled is set.
	ID        int
	Filled    bool
	Outline   bool
	Electrode bool
}

// Raster is a coarse rendering of the scene, row-major.
type Raster struct {
	W, H  int
	Cells []Cell
}

// At returns the cell at column x, row y.
func (r *Raster) At(x, y int) Cell {
	return r.Cells[y*r.W+x]
}

// Raster samples the scene at cell centres. Active meshes are filled from
// their triangles, outline roles draw their projected bounds.
func (s *Scene) Raster(vp Viewport) *Raster {
	r := &Raster{W: max(vp.W, 0), H: max(vp.H, 0)}
	r.Cells = make([]Cell, r.W*r.H)
	for i := range r.Cells {
		r.Cells[i].Color = s.background
	}
	if r.W == 0 || r.H == 0 {
		return r
	}
	t := s.transform(vp)

	cover := make([]bool, len(r.Cells))
	for _, m := range s.drawOrder() {
		clear(cover)
		if m.look.Wireframe || m.look.Role == mesh.RoleRootOutline {
			s.outlineMask(t, m, r.W, r.H, cover)
		} else {
			s.fillMask(t, m, r.W, r.H, cover)
		}
		for i, hit := range cover {
			if !hit {
				continue
			}
			c := &r.Cells[i]
			c.Color = blend(c.Color, m.look.Color, m.look.Opacity)
			if m.look.Wireframe || m.look.Role == mesh.RoleRootOutline {
				c.Outline = true
				continue
			}
			c.ID, c.Filled = m.id, true
		}
	}

	for _, p := range s.electrodes {
		x, y := s.electrodeScreen(t, p)
		cx, cy := int(math32.Floor(x)), int(math32.Floor(y))
		if cx < 0 || cy < 0 || cx >= r.W || cy >= r.H {
			continue
		}
		c := &r.Cells[cy*r.W+cx]
		c.Electrode = true
		c.Color = ElectrodeColor
	}
	return r
}

func (s *Scene) electrodeScreen(t transform, p electrode.Point) (x, y float32) {
	u, v := s.plane.Project(mesh.Vec3{float32(p[0]), float32(p[1]), float32(p[2])})
	return t.screen(u, v)
}

func (s *Scene) fillMask(t transform, m *sceneMesh, w, h int, cover []bool) {
	verts := m.geom.Vertices
	for _, tri := range m.geom.Triangles {
		var xs, ys [3]float32
		for k := 0; k < 3; k++ {
			u, v := s.plane.Project(verts[tri[k]])
			xs[k], ys[k] = t.screen(u, v)
		}
		x0 := max(int(math32.Floor(min(xs[0], xs[1], xs[2]))), 0)
		x1 := min(int(math32.Ceil(max(xs[0], xs[1], xs[2]))), w-1)
		y0 := max(int(math32.Floor(min(ys[0], ys[1], ys[2]))), 0)
		y1 := min(int(math32.Ceil(max(ys[0], ys[1], ys[2]))), h-1)
		for y := y0; y <= y1; y++ {
			for x := x0; x <= x1; x++ {
				if insideTriangle(float32(x)+0.5, float32(y)+0.5, xs, ys) {
					cover[y*w+x] = true
				}
			}
		}
	}
}

func edge(ax, ay, bx, by, px, py float32) float32 {
	return (bx-ax)*(py-ay) - (by-ay)*(px-ax)
}

// insideTriangle accepts either winding; degenerate triangles cover nothing.
func insideTriangle(px, py float32, xs, ys [3]float32) bool {
	e0 := edge(xs[0], ys[0], xs[1], ys[1], px, py)
	e1 := edge(xs[1], ys[1], xs[2], ys[2], px, py)
	e2 := edge(xs[2], ys[2], xs[0], ys[0], px, py)
	if e0 == 0 && e1 == 0 && e2 == 0 {
		return false
	}
	return (e0 >= 0 && e1 >= 0 && e2 >= 0) || (e0 <= 0 && e1 <= 0 && e2 <= 0)
}

func (s *Scene) outlineMask(t transform, m *sceneMesh, w, h int, cover []bool) {
	r := s.plane.ProjectBox(m.box)
	fx0, fy0 := t.screen(r.MinU, r.MinV)
	fx1, fy1 := t.screen(r.MaxU, r.MaxV)
	x0, y0 := int(math32.Floor(fx0)), int(math32.Floor(fy0))
	x1, y1 := int(math32.Floor(fx1)), int(math32.Floor(fy1))
	set := func(x, y int) {
		if x >= 0 && y >= 0 && x < w && y < h {
			cover[y*w+x] = true
		}
	}
	for x := x0; x <= x1; x++ {
		set(x, y0)
		set(x, y1)
	}
	for y := y0; y <= y1; y++ {
		set(x0, y)
		set(x1, y)
	}
}
