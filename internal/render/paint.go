package render

import (
	"image/color"
	"math"
	"sort"
)

// Paint yields a color for a point in the local coordinate frame that was
// current when the primitive was drawn.
type Paint interface {
	ColorAt(x, y float64) color.NRGBA
}

// Solid is a single color paint.
type Solid color.NRGBA

// ColorAt implements Paint.
func (s Solid) ColorAt(x, y float64) color.NRGBA { return color.NRGBA(s) }

// Stop is one color stop of a gradient. Offset is in [0,1].
type Stop struct {
	Offset float64
	Color  color.NRGBA
}

// Stops is an ordered list of gradient stops.
type Stops []Stop

// at interpolates the stops at t, padding beyond both ends.
func (s Stops) at(t float64) color.NRGBA {
	if len(s) == 0 {
		return color.NRGBA{}
	}
	if t <= s[0].Offset {
		return s[0].Color
	}
	last := s[len(s)-1]
	if t >= last.Offset {
		return last.Color
	}

	i := sort.Search(len(s), func(i int) bool { return s[i].Offset >= t })
	a, b := s[i-1], s[i]
	span := b.Offset - a.Offset
	if span <= 0 {
		return b.Color
	}
	return lerpColor(a.Color, b.Color, (t-a.Offset)/span)
}

func lerpColor(a, b color.NRGBA, t float64) color.NRGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t))
	}
	return color.NRGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: mix(a.A, b.A)}
}

// LinearGradient varies along the line from (X0,Y0) to (X1,Y1).
type LinearGradient struct {
	X0, Y0, X1, Y1 float64
	Stops          Stops
}

// ColorAt implements Paint.
func (g LinearGradient) ColorAt(x, y float64) color.NRGBA {
	dx, dy := g.X1-g.X0, g.Y1-g.Y0
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return g.Stops.at(0)
	}
	return g.Stops.at(((x-g.X0)*dx + (y-g.Y0)*dy) / l2)
}

// RadialGradient interpolates between a start circle (X0,Y0,R0) and an end
// circle (X1,Y1,R1), the two-circle model of HTML canvas gradients. Equal
// centers give a plain concentric gradient; an offset start circle moves the
// bright spot off-center.
type RadialGradient struct {
	X0, Y0, R0 float64
	X1, Y1, R1 float64
	Stops      Stops
}

// Concentric returns a radial gradient centered at (cx,cy) from r0 to r1.
func Concentric(cx, cy, r0, r1 float64, stops Stops) RadialGradient {
	return RadialGradient{X0: cx, Y0: cy, R0: r0, X1: cx, Y1: cy, R1: r1, Stops: stops}
}

// ColorAt implements Paint. It solves for the largest t whose interpolated
// circle passes through (x,y) with a non-negative radius.
func (g RadialGradient) ColorAt(x, y float64) color.NRGBA {
	cdx, cdy := g.X1-g.X0, g.Y1-g.Y0
	dr := g.R1 - g.R0
	px, py := x-g.X0, y-g.Y0

	a := cdx*cdx + cdy*cdy - dr*dr
	b := px*cdx + py*cdy + g.R0*dr
	c := px*px + py*py - g.R0*g.R0

	var t float64
	if math.Abs(a) < 1e-12 {
		if b == 0 {
			return color.NRGBA{}
		}
		t = c / (2 * b)
	} else {
		disc := b*b - a*c
		if disc < 0 {
			return color.NRGBA{}
		}
		sq := math.Sqrt(disc)
		t1, t2 := (b+sq)/a, (b-sq)/a
		if t2 > t1 {
			t1, t2 = t2, t1
		}
		t = t1
		if g.R0+t*dr < 0 {
			t = t2
		}
	}
	if g.R0+t*dr < 0 {
		return color.NRGBA{}
	}
	return g.Stops.at(t)
}

// RGBA is a shorthand for a non-premultiplied color with alpha in [0,1].
func RGBA(r, g, b uint8, alpha float64) color.NRGBA {
	return color.NRGBA{R: r, G: g, B: b, A: uint8(math.Round(clamp01(alpha) * 255))}
}

// WithAlpha returns c with its alpha replaced.
func WithAlpha(c color.NRGBA, alpha float64) color.NRGBA {
	c.A = uint8(math.Round(clamp01(alpha) * 255))
	return c
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
