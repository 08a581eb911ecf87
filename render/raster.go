package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"

	"github.com/vsariola/scrawl"
)

// Rasterizer draws frames as round-capped polylines on a solid background.
// The canvas is one unit wide and Aspect[1]/Aspect[0] units tall. It is
// scaled to fit the frame and centered, leaving background bars when the
// frame has a different aspect ratio. A Rasterizer is not safe for
// concurrent use.
type Rasterizer struct {
	Width, Height int
	Aspect        [2]int
	Background    color.Color
	r             *vector.Rasterizer
}

// placement maps canvas units to pixels.
type placement struct {
	scale, x, y float32
}

func (p placement) at(pt scrawl.Point) (float32, float32) {
	return p.x + pt.X*p.scale, p.y + pt.Y*p.scale
}

func NewRasterizer(width, height int) *Rasterizer {
	return &Rasterizer{
		Width:      width,
		Height:     height,
		Aspect:     scrawl.DefaultAspect,
		Background: color.White,
		r:          vector.NewRasterizer(width, height),
	}
}

// NewImage returns an image the size of the frames.
func (z *Rasterizer) NewImage() *image.RGBA {
	return image.NewRGBA(image.Rect(0, 0, z.Width, z.Height))
}

// Draw renders f into dst, which must be Width x Height.
func (z *Rasterizer) Draw(dst *image.RGBA, f *Frame) {
	draw.Draw(dst, dst.Bounds(), image.NewUniform(z.Background), image.Point{}, draw.Src)
	for i := range f.Strokes {
		z.drawStroke(dst, &f.Strokes[i])
	}
}

func (z *Rasterizer) drawStroke(dst *image.RGBA, s *StrokeFrame) {
	if s.Opacity <= 0 || len(s.Samples) == 0 {
		return
	}
	c := s.Style.Color
	alpha := float32(c[3]) * min(s.Opacity, 1)
	src := image.NewUniform(color.NRGBA{R: c[0], G: c[1], B: c[2], A: uint8(alpha + 0.5)})
	p := z.placement()
	z.r.Reset(z.Width, z.Height)
	prev := s.Samples[0]
	z.dot(p, prev.Point, z.radius(s.Style, prev))
	for _, smp := range s.Samples[1:] {
		z.segment(p, prev.Point, smp.Point, z.radius(s.Style, smp))
		z.dot(p, smp.Point, z.radius(s.Style, smp))
		prev = smp
	}
	z.r.Draw(dst, dst.Bounds(), src, image.Point{})
}

func (z *Rasterizer) placement() placement {
	aspect := z.Aspect
	if aspect[0] <= 0 || aspect[1] <= 0 {
		aspect = scrawl.DefaultAspect
	}
	w, h := float32(z.Width), float32(z.Height)
	height := float32(aspect[1]) / float32(aspect[0])
	scale := min(w, h/height)
	return placement{scale: scale, x: (w - scale) / 2, y: (h - scale*height) / 2}
}

// radius returns the half width of the pen in canvas units. A zero pressure
// means the device does not report pressure.
func (z *Rasterizer) radius(style scrawl.Style, smp scrawl.Sample) float32 {
	r := style.Thickness / 2
	if smp.Pressure > 0 {
		r *= min(smp.Pressure, 1)
	}
	return r
}

// All subpaths are wound the same way, so overlapping parts of a stroke are
// not cancelled out.
func (z *Rasterizer) segment(p placement, a, b scrawl.Point, radius float32) {
	dx, dy := b.X-a.X, b.Y-a.Y
	l := float32(math.Hypot(float64(dx), float64(dy)))
	if l == 0 {
		return
	}
	n := scrawl.Point{X: -dy / l * radius, Y: dx / l * radius}
	z.r.MoveTo(p.at(scrawl.Point{X: a.X + n.X, Y: a.Y + n.Y}))
	z.r.LineTo(p.at(scrawl.Point{X: b.X + n.X, Y: b.Y + n.Y}))
	z.r.LineTo(p.at(scrawl.Point{X: b.X - n.X, Y: b.Y - n.Y}))
	z.r.LineTo(p.at(scrawl.Point{X: a.X - n.X, Y: a.Y - n.Y}))
	z.r.ClosePath()
}

func (z *Rasterizer) dot(p placement, pt scrawl.Point, radius float32) {
	r := radius * p.scale
	n := max(8, int(r))
	cx, cy := p.at(pt)
	z.r.MoveTo(cx+r, cy)
	for i := 1; i < n; i++ {
		a := -2 * math.Pi * float64(i) / float64(n)
		z.r.LineTo(cx+r*float32(math.Cos(a)), cy+r*float32(math.Sin(a)))
	}
	z.r.ClosePath()
}
