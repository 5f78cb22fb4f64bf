package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"

	"git.sr.ht/~sbinet/gg"
	svg "github.com/ajstarks/svgo"
	"github.com/chewxy/math32"

	"github.com/npratt/dandiatlas/internal/mesh"
)

// ElectrodeRadius is the marker radius in image pixels.
const ElectrodeRadius = 3

func hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func outlined(look mesh.Appearance) bool {
	return look.Wireframe || look.Role == mesh.RoleRootOutline
}

// WritePNG renders the scene into a PNG image. Each filled mesh is drawn
// opaque on its own layer and composited at its opacity.
func (s *Scene) WritePNG(out io.Writer, vp Viewport) error {
	if vp.W <= 0 || vp.H <= 0 {
		return fmt.Errorf("invalid image size %dx%d", vp.W, vp.H)
	}
	t := s.transform(vp)
	dc := gg.NewContext(vp.W, vp.H)
	dc.SetColor(s.background)
	dc.Clear()

	dst, ok := dc.Image().(draw.Image)
	if !ok {
		return fmt.Errorf("render: context image is not drawable")
	}

	for _, m := range s.drawOrder() {
		if outlined(m.look) {
			r := s.plane.ProjectBox(m.box)
			x0, y0 := t.screen(r.MinU, r.MinV)
			x1, y1 := t.screen(r.MaxU, r.MaxV)
			dc.SetRGBA255(int(m.look.Color.R), int(m.look.Color.G), int(m.look.Color.B), int(m.look.Opacity*255))
			dc.SetLineWidth(1)
			dc.DrawRectangle(float64(x0), float64(y0), float64(x1-x0), float64(y1-y0))
			dc.Stroke()
			continue
		}

		layer := gg.NewContext(vp.W, vp.H)
		layer.SetColor(m.look.Color)
		for _, tri := range m.geom.Triangles {
			for k := 0; k < 3; k++ {
				u, v := s.plane.Project(m.geom.Vertices[tri[k]])
				x, y := t.screen(u, v)
				if k == 0 {
					layer.MoveTo(float64(x), float64(y))
				} else {
					layer.LineTo(float64(x), float64(y))
				}
			}
			layer.ClosePath()
			layer.Fill()
		}
		alpha := uint8(math32.Round(float32(m.look.Opacity) * 255))
		mask := image.NewUniform(color.Alpha{A: alpha})
		draw.DrawMask(dst, dst.Bounds(), layer.Image(), image.Point{}, mask, image.Point{}, draw.Over)
	}

	dc.SetColor(ElectrodeColor)
	for _, p := range s.electrodes {
		x, y := s.electrodeScreen(t, p)
		dc.DrawCircle(float64(x), float64(y), ElectrodeRadius)
		dc.Fill()
	}
	return dc.EncodePNG(out)
}

// WriteSVG renders the scene as SVG, one group per mesh.
func (s *Scene) WriteSVG(out io.Writer, vp Viewport) error {
	if vp.W <= 0 || vp.H <= 0 {
		return fmt.Errorf("invalid image size %dx%d", vp.W, vp.H)
	}
	t := s.transform(vp)
	canvas := svg.New(out)
	canvas.Start(vp.W, vp.H)
	canvas.Title(fmt.Sprintf("%s view", s.plane))
	canvas.Rect(0, 0, vp.W, vp.H, "fill:"+hex(s.background))

	round := func(f float32) int { return int(math32.Round(f)) }
	for _, m := range s.drawOrder() {
		canvas.Group(fmt.Sprintf(`id="structure-%d"`, m.id), fmt.Sprintf("opacity:%.3f", m.look.Opacity))
		if outlined(m.look) {
			r := s.plane.ProjectBox(m.box)
			x0, y0 := t.screen(r.MinU, r.MinV)
			x1, y1 := t.screen(r.MaxU, r.MaxV)
			canvas.Rect(round(x0), round(y0), round(x1-x0), round(y1-y0), "fill:none;stroke:"+hex(m.look.Color))
			canvas.Gend()
			continue
		}
		style := "fill:" + hex(m.look.Color)
		for _, tri := range m.geom.Triangles {
			xs, ys := make([]int, 3), make([]int, 3)
			for k := 0; k < 3; k++ {
				u, v := s.plane.Project(m.geom.Vertices[tri[k]])
				x, y := t.screen(u, v)
				xs[k], ys[k] = round(x), round(y)
			}
			canvas.Polygon(xs, ys, style)
		}
		canvas.Gend()
	}

	for _, p := range s.electrodes {
		x, y := s.electrodeScreen(t, p)
		canvas.Circle(round(x), round(y), ElectrodeRadius, "fill:"+hex(ElectrodeColor))
	}
	canvas.End()
	return nil
}
