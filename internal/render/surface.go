// Package render draws the try-on ring as an ordered list of layered 2D
// primitives onto an immediate-mode drawing surface.
package render

import (
	"math"

	"golang.org/x/image/math/f64"
)

// Cap is the shape at the ends of stroked lines.
type Cap int

const (
	ButtCap Cap = iota
	RoundCap
)

// Stroke describes how an outline is painted.
type Stroke struct {
	Width float64
	Paint Paint
	Cap   Cap
}

// Surface is an immediate-mode 2D drawing target. Coordinates passed to the
// draw calls, and to the Paint values they carry, are in the local frame set
// up by Translate, Rotate and Scale; Save and Restore push and pop that frame.
type Surface interface {
	Save()
	Restore()
	Translate(x, y float64)
	Rotate(theta float64)
	Scale(sx, sy float64)

	FillCircle(cx, cy, r float64, p Paint)
	StrokeEllipse(cx, cy, rx, ry float64, s Stroke)
	StrokeLine(x0, y0, x1, y1 float64, s Stroke)
}

// identity is the identity affine transform.
var identity = f64.Aff3{1, 0, 0, 0, 1, 0}

// mul returns m·t: t is applied first, then m.
func mul(m, t f64.Aff3) f64.Aff3 {
	return f64.Aff3{
		m[0]*t[0] + m[1]*t[3],
		m[0]*t[1] + m[1]*t[4],
		m[0]*t[2] + m[1]*t[5] + m[2],
		m[3]*t[0] + m[4]*t[3],
		m[3]*t[1] + m[4]*t[4],
		m[3]*t[2] + m[4]*t[5] + m[5],
	}
}

func translation(x, y float64) f64.Aff3 { return f64.Aff3{1, 0, x, 0, 1, y} }

func rotation(theta float64) f64.Aff3 {
	s, c := math.Sincos(theta)
	return f64.Aff3{c, -s, 0, s, c, 0}
}

func scaling(sx, sy float64) f64.Aff3 { return f64.Aff3{sx, 0, 0, 0, sy, 0} }

func apply(m f64.Aff3, x, y float64) (float64, float64) {
	return m[0]*x + m[1]*y + m[2], m[3]*x + m[4]*y + m[5]
}

// invert returns the inverse of m; singular transforms invert to the zero matrix.
func invert(m f64.Aff3) f64.Aff3 {
	det := m[0]*m[4] - m[1]*m[3]
	if det == 0 {
		return f64.Aff3{}
	}
	return f64.Aff3{
		m[4] / det,
		-m[1] / det,
		(m[1]*m[5] - m[4]*m[2]) / det,
		-m[3] / det,
		m[0] / det,
		(m[3]*m[2] - m[0]*m[5]) / det,
	}
}

// scaleFactor is the geometric mean stretch of m, used to pick curve resolution.
func scaleFactor(m f64.Aff3) float64 {
	return math.Sqrt(math.Abs(m[0]*m[4] - m[1]*m[3]))
}

// transformStack is the Save/Restore state shared by surface implementations.
type transformStack struct {
	m     f64.Aff3
	saved []f64.Aff3
}

func (s *transformStack) reset() {
	s.m = identity
	s.saved = s.saved[:0]
}

// Save pushes the current transform.
func (s *transformStack) Save() { s.saved = append(s.saved, s.m) }

// Restore pops the last saved transform. Unbalanced calls are ignored.
func (s *transformStack) Restore() {
	if n := len(s.saved); n > 0 {
		s.m = s.saved[n-1]
		s.saved = s.saved[:n-1]
	}
}

// Translate moves the local origin to (x,y).
func (s *transformStack) Translate(x, y float64) { s.m = mul(s.m, translation(x, y)) }

// Rotate turns the local frame by theta radians.
func (s *transformStack) Rotate(theta float64) { s.m = mul(s.m, rotation(theta)) }

// Scale stretches the local frame.
func (s *transformStack) Scale(sx, sy float64) { s.m = mul(s.m, scaling(sx, sy)) }
