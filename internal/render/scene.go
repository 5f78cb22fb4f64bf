package render

import (
	"image/color"
	"sort"

	"github.com/npratt/dandiatlas/internal/electrode"
	"github.com/npratt/dandiatlas/internal/mesh"
	"github.com/npratt/dandiatlas/internal/view"
)

// DefaultBackground is the scene clear colour.
var DefaultBackground = color.RGBA{R: 0x1a, G: 0x1b, B: 0x26, A: 0xff}

// ElectrodeColor marks electrode positions.
var ElectrodeColor = color.RGBA{R: 0xff, G: 0xd7, B: 0x00, A: 0xff}

type sceneMesh struct {
	id   int
	geom *mesh.Geometry
	box  mesh.Box
	look mesh.Appearance
}

// Scene holds the registered meshes and their applied appearances. It is
// not safe for concurrent use.
type Scene struct {
	plane      Plane
	background color.RGBA
	meshes     map[int]*sceneMesh
	electrodes []electrode.Point
	version    uint64
}

// Option configures a Scene.
type Option func(*Scene)

// WithPlane sets the view plane.
func WithPlane(p Plane) Option {
	return func(s *Scene) { s.plane = p }
}

// WithBackground sets the clear colour.
func WithBackground(c color.RGBA) Option {
	return func(s *Scene) { s.background = c }
}

// NewScene returns an empty scene.
func NewScene(opts ...Option) *Scene {
	s := &Scene{
		plane:      Sagittal,
		background: DefaultBackground,
		meshes:     make(map[int]*sceneMesh),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Plane returns the current view plane.
func (s *Scene) Plane() Plane { return s.plane }

// SetPlane changes the view plane.
func (s *Scene) SetPlane(p Plane) { s.plane = p }

// Background returns the clear colour.
func (s *Scene) Background() color.RGBA { return s.background }

// Version returns the version of the last applied plan.
func (s *Scene) Version() uint64 { return s.version }

// AddMesh registers geometry for id. New meshes start dimmed until the next
// Apply.
func (s *Scene) AddMesh(id int, g *mesh.Geometry) {
	if g == nil {
		return
	}
	s.meshes[id] = &sceneMesh{id: id, geom: g, box: g.Bounds(), look: mesh.Appearance{Role: mesh.RoleDimmed}}
}

// Len returns the number of registered meshes.
func (s *Scene) Len() int { return len(s.meshes) }

// Apply sets every registered mesh to its planned appearance. Meshes the
// plan does not mention are dimmed.
func (s *Scene) Apply(plan view.MeshPlan) {
	for id, m := range s.meshes {
		look, ok := plan.Appearances[id]
		if !ok {
			look = mesh.Appearance{Role: mesh.RoleDimmed}
		}
		m.look = look
	}
	s.version = plan.Version
}

// Appearance returns the applied look of id.
func (s *Scene) Appearance(id int) (mesh.Appearance, bool) {
	m, ok := s.meshes[id]
	if !ok {
		return mesh.Appearance{}, false
	}
	return m.look, true
}

// SetElectrodes replaces the electrode overlay.
func (s *Scene) SetElectrodes(pts []electrode.Point) {
	s.electrodes = append([]electrode.Point(nil), pts...)
}

// Electrodes returns the electrode overlay.
func (s *Scene) Electrodes() []electrode.Point { return s.electrodes }

// Visible returns the ids of visible meshes in draw order.
func (s *Scene) Visible() []int {
	ms := s.drawOrder()
	ids := make([]int, len(ms))
	for i, m := range ms {
		ids[i] = m.id
	}
	return ids
}

func roleRank(r mesh.Role) int {
	switch r {
	case mesh.RoleRootOutline:
		return 0
	case mesh.RoleContext:
		return 1
	default:
		return 2
	}
}

// drawOrder returns visible meshes back to front: root outline, context,
// then active meshes by decreasing projected area.
func (s *Scene) drawOrder() []*sceneMesh {
	var out []*sceneMesh
	for _, m := range s.meshes {
		if m.look.Visible {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := roleRank(out[i].look.Role), roleRank(out[j].look.Role)
		if ri != rj {
			return ri < rj
		}
		ai, aj := s.plane.ProjectBox(out[i].box).Area(), s.plane.ProjectBox(out[j].box).Area()
		if ai != aj {
			return ai > aj
		}
		return out[i].id < out[j].id
	})
	return out
}

// Extent returns the projected bounds of visible meshes and electrodes. With
// nothing visible it falls back to every registered mesh.
func (s *Scene) Extent() Rect {
	r := emptyRect()
	for _, m := range s.meshes {
		if m.look.Visible {
			r = r.Union(s.plane.ProjectBox(m.box))
		}
	}
	for _, p := range s.electrodes {
		u, v := s.plane.Project(mesh.Vec3{float32(p[0]), float32(p[1]), float32(p[2])})
		r = r.Union(Rect{MinU: u, MinV: v, MaxU: u, MaxV: v})
	}
	if !r.Empty() {
		return r
	}
	for _, m := range s.meshes {
		r = r.Union(s.plane.ProjectBox(m.box))
	}
	return r
}

func (s *Scene) transform(vp Viewport) transform {
	return newTransform(s.Extent(), vp)
}

// Pick returns the pickable mesh under viewport pixel (x, y). Hit-testing
// uses projected bounds; the smallest hit wins.
func (s *Scene) Pick(vp Viewport, x, y float64) (int, bool) {
	t := s.transform(vp)
	u, v := t.world(float32(x), float32(y))

	best, found := 0, false
	var bestArea float32
	for _, m := range s.meshes {
		if !m.look.Pickable {
			continue
		}
		r := s.plane.ProjectBox(m.box)
		if !r.Contains(u, v) {
			continue
		}
		a := r.Area()
		if !found || a < bestArea || (a == bestArea && m.id < best) {
			best, bestArea, found = m.id, a, true
		}
	}
	return best, found
}

// blend composites c at opacity a over bg.
func blend(bg, c color.RGBA, a float64) color.RGBA {
	if a <= 0 {
		return bg
	}
	if a > 1 {
		a = 1
	}
	mix := func(b, f uint8) uint8 {
		return uint8(float64(b)*(1-a) + float64(f)*a + 0.5)
	}
	return color.RGBA{R: mix(bg.R, c.R), G: mix(bg.G, c.G), B: mix(bg.B, c.B), A: 0xff}
}
