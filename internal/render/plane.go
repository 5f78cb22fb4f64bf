// Package render draws the region meshes of a view.MeshPlan as a 2D
// orthographic projection. The same projection backs terminal rasters,
// PNG and SVG snapshots and hit-testing.
package render

import (
	"fmt"
	"strings"

	"github.com/chewxy/math32"

	"github.com/npratt/dandiatlas/internal/mesh"
)

// Plane is an anatomical view plane. Atlas axes are x anterior to
// posterior, y dorsal to ventral, z left to right.
type Plane int

const (
	// Sagittal looks from the side (x right, y down).
	Sagittal Plane = iota
	// Coronal looks from the front (z right, y down).
	Coronal
	// Horizontal looks from above (x right, z down).
	Horizontal
)

// Planes lists every view plane in cycle order.
var Planes = []Plane{Sagittal, Coronal, Horizontal}

// String returns a string representation of the Plane.
func (p Plane) String() string {
	switch p {
	case Coronal:
		return "coronal"
	case Horizontal:
		return "horizontal"
	default:
		return "sagittal"
	}
}

// Next returns the following plane in cycle order.
func (p Plane) Next() Plane {
	return Planes[(int(p)+1)%len(Planes)]
}

// ParsePlane parses a plane name.
func ParsePlane(s string) (Plane, error) {
	for _, p := range Planes {
		if strings.EqualFold(s, p.String()) {
			return p, nil
		}
	}
	return Sagittal, fmt.Errorf("unknown view plane %q (want sagittal, coronal or horizontal)", s)
}

func (p Plane) axes() (u, v int) {
	switch p {
	case Coronal:
		return 2, 1
	case Horizontal:
		return 0, 2
	default:
		return 0, 1
	}
}

// Project drops the axis normal to p.
func (p Plane) Project(pt mesh.Vec3) (u, v float32) {
	a, b := p.axes()
	return pt[a], pt[b]
}

// Rect is a projected axis-aligned rectangle.
type Rect struct {
	MinU, MinV, MaxU, MaxV float32
}

// Empty reports whether r holds no area.
func (r Rect) Empty() bool { return r.MaxU < r.MinU || r.MaxV < r.MinV }

// Area returns the rectangle area.
func (r Rect) Area() float32 {
	if r.Empty() {
		return 0
	}
	return (r.MaxU - r.MinU) * (r.MaxV - r.MinV)
}

// Contains reports whether (u, v) lies inside r, edges included.
func (r Rect) Contains(u, v float32) bool {
	return u >= r.MinU && u <= r.MaxU && v >= r.MinV && v <= r.MaxV
}

// Union returns the smallest rectangle holding r and o.
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	return Rect{
		MinU: math32.Min(r.MinU, o.MinU), MinV: math32.Min(r.MinV, o.MinV),
		MaxU: math32.Max(r.MaxU, o.MaxU), MaxV: math32.Max(r.MaxV, o.MaxV),
	}
}

func emptyRect() Rect {
	inf := math32.Inf(1)
	return Rect{MinU: inf, MinV: inf, MaxU: -inf, MaxV: -inf}
}

// ProjectBox returns the projection of b onto p.
func (p Plane) ProjectBox(b mesh.Box) Rect {
	a, c := p.axes()
	return Rect{MinU: b.Min[a], MinV: b.Min[c], MaxU: b.Max[a], MaxV: b.Max[c]}
}

// Viewport is an output surface. Aspect is the height of one pixel over
// its width: 1 for images, about 2 for terminal cells.
type Viewport struct {
	W, H   int
	Aspect float32
}

// Pixels returns an image viewport.
func Pixels(w, h int) Viewport { return Viewport{W: w, H: h, Aspect: 1} }

// TermCellAspect approximates a terminal cell's height over width.
const TermCellAspect = 2

// Cells returns a terminal viewport.
func Cells(w, h int) Viewport { return Viewport{W: w, H: h, Aspect: TermCellAspect} }

// Margin is the fraction of the viewport left empty on each side.
const Margin = 0.05

// transform maps projected coordinates to viewport pixels, fitting extent
// with a uniform world scale.
type transform struct {
	extent     Rect
	scale      float32
	aspect     float32
	offX, offY float32
}

func newTransform(extent Rect, vp Viewport) transform {
	aspect := vp.Aspect
	if aspect <= 0 {
		aspect = 1
	}
	t := transform{extent: extent, aspect: aspect, scale: 1}
	if extent.Empty() || vp.W <= 0 || vp.H <= 0 {
		return t
	}
	du := math32.Max(extent.MaxU-extent.MinU, 1)
	dv := math32.Max(extent.MaxV-extent.MinV, 1)
	w := float32(vp.W) * (1 - 2*Margin)
	h := float32(vp.H) * aspect * (1 - 2*Margin)
	t.scale = math32.Min(w/du, h/dv)
	t.offX = (float32(vp.W) - du*t.scale) / 2
	t.offY = (float32(vp.H) - dv*t.scale/aspect) / 2
	return t
}

func (t transform) screen(u, v float32) (x, y float32) {
	return t.offX + (u-t.extent.MinU)*t.scale, t.offY + (v-t.extent.MinV)*t.scale/t.aspect
}

func (t transform) world(x, y float32) (u, v float32) {
	return t.extent.MinU + (x-t.offX)/t.scale, t.extent.MinV + (y-t.offY)*t.aspect/t.scale
}
