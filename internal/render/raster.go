package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/math/f64"
	"golang.org/x/image/vector"
)

// Raster is a Surface that rasterizes into an RGBA buffer. Paths are
// flattened to polygons and filled with golang.org/x/image/vector, so edges
// are anti-aliased.
type Raster struct {
	transformStack

	img *image.RGBA
	z   *vector.Rasterizer
}

var _ Surface = (*Raster)(nil)

// NewRaster creates a transparent raster of the given size.
func NewRaster(width, height int) *Raster {
	r := &Raster{z: vector.NewRasterizer(0, 0)}
	r.transformStack.reset()
	r.img = image.NewRGBA(image.Rect(0, 0, max(width, 0), max(height, 0)))
	return r
}

// Size returns the pixel dimensions.
func (r *Raster) Size() (int, int) {
	b := r.img.Bounds()
	return b.Dx(), b.Dy()
}

// Resize reallocates the buffer when the size differs and reports whether it
// did. Like an HTML canvas, resizing clears the pixels and the transform.
func (r *Raster) Resize(width, height int) bool {
	if w, h := r.Size(); w == width && h == height {
		return false
	}
	r.img = image.NewRGBA(image.Rect(0, 0, max(width, 0), max(height, 0)))
	r.transformStack.reset()
	return true
}

// Clear makes every pixel transparent.
func (r *Raster) Clear() {
	clear(r.img.Pix)
}

// Image returns the live buffer. Callers must not hold it across draws.
func (r *Raster) Image() *image.RGBA { return r.img }

// Snapshot returns a copy of the buffer.
func (r *Raster) Snapshot() *image.RGBA {
	cp := image.NewRGBA(r.img.Bounds())
	copy(cp.Pix, r.img.Pix)
	return cp
}

// Transparent reports whether every pixel has zero alpha.
func (r *Raster) Transparent() bool {
	for i := 3; i < len(r.img.Pix); i += 4 {
		if r.img.Pix[i] != 0 {
			return false
		}
	}
	return true
}

// FillCircle implements Surface.
func (r *Raster) FillCircle(cx, cy, radius float64, p Paint) {
	if radius <= 0 {
		return
	}
	n := segmentsFor(radius * scaleFactor(r.m))
	r.fill([]polygon{ellipse(cx, cy, radius, radius, n, false)}, p)
}

// StrokeEllipse implements Surface. The stroke is centered on the outline.
func (r *Raster) StrokeEllipse(cx, cy, rx, ry float64, s Stroke) {
	if s.Width <= 0 || rx <= 0 || ry <= 0 {
		return
	}
	n := segmentsFor((math.Max(rx, ry) + s.Width/2) * scaleFactor(r.m))
	r.fill(ringOutline(cx, cy, rx, ry, s.Width, n), s.Paint)
}

// StrokeLine implements Surface.
func (r *Raster) StrokeLine(x0, y0, x1, y1 float64, s Stroke) {
	if s.Width <= 0 {
		return
	}
	n := segmentsFor(s.Width/2*scaleFactor(r.m)) / 2
	if p := lineOutline(x0, y0, x1, y1, s.Width, s.Cap, n); len(p) > 0 {
		r.fill([]polygon{p}, s.Paint)
	}
}

// fill composites the union of polys, given in the local frame, over the
// buffer using paint p.
func (r *Raster) fill(polys []polygon, p Paint) {
	if p == nil {
		return
	}
	w, h := r.Size()
	if w == 0 || h == 0 {
		return
	}

	device := make([]polygon, 0, len(polys))
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, poly := range polys {
		c := clip(transformPolygon(r.m, poly), float64(w), float64(h))
		if len(c) < 3 {
			continue
		}
		for _, pt := range c {
			minX, minY = math.Min(minX, pt.x), math.Min(minY, pt.y)
			maxX, maxY = math.Max(maxX, pt.x), math.Max(maxY, pt.y)
		}
		device = append(device, c)
	}
	if len(device) == 0 {
		return
	}

	bounds := image.Rect(
		int(math.Floor(minX)), int(math.Floor(minY)),
		int(math.Ceil(maxX)), int(math.Ceil(maxY)),
	).Intersect(r.img.Bounds())
	if bounds.Empty() {
		return
	}

	ox, oy := float64(bounds.Min.X), float64(bounds.Min.Y)
	r.z.Reset(bounds.Dx(), bounds.Dy())
	r.z.DrawOp = draw.Over
	for _, poly := range device {
		r.z.MoveTo(float32(poly[0].x-ox), float32(poly[0].y-oy))
		for _, pt := range poly[1:] {
			r.z.LineTo(float32(pt.x-ox), float32(pt.y-oy))
		}
		r.z.ClosePath()
	}
	r.z.Draw(r.img, bounds, r.source(p), bounds.Min)
}

func (r *Raster) source(p Paint) image.Image {
	if s, ok := p.(Solid); ok {
		return image.NewUniform(color.NRGBA(s))
	}
	return &paintImage{paint: p, inv: invert(r.m), bounds: r.img.Bounds()}
}

// paintImage evaluates a Paint at each pixel center mapped back into the
// local frame the primitive was drawn in.
type paintImage struct {
	paint  Paint
	inv    f64.Aff3
	bounds image.Rectangle
}

func (p *paintImage) ColorModel() color.Model { return color.NRGBAModel }

func (p *paintImage) Bounds() image.Rectangle { return p.bounds }

func (p *paintImage) At(x, y int) color.Color {
	lx, ly := apply(p.inv, float64(x)+0.5, float64(y)+0.5)
	return p.paint.ColorAt(lx, ly)
}
