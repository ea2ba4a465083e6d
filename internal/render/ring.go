package render

import (
	"image"
	"math"

	"github.com/ayusman/ringfit/internal/material"
	"github.com/ayusman/ringfit/internal/pose"
)

// Ring motif proportions, relative to the pose's band radius (R),
// band thickness (T) and gem size (G).
const (
	// BandAspect squashes the band vertically to fake a torus seen at an angle.
	BandAspect = 0.38

	shadowDrop   = 0.4 // of T
	shadowSpread = 1.0 // of T, added to R
	haloRadius   = 1.8 // of G
	gemLift      = 0.5 // of G, above the band's top edge
	facetCount   = 6
	prongOuter   = 1.05 // of G
	prongInner   = 0.7  // of G
)

var (
	shadowInk   = RGBA(0, 0, 0, 0.35)
	gemCore     = RGBA(255, 255, 255, 1)
	gemMid      = RGBA(235, 244, 255, 0.95)
	gemEdge     = RGBA(196, 216, 240, 0.9)
	gemOutline  = RGBA(255, 255, 255, 0.8)
	facetInk    = RGBA(255, 255, 255, 0.45)
	sparkleInk  = RGBA(255, 255, 255, 0.95)
	occlusion   = RGBA(0, 0, 0, 0.35)
	transparent = RGBA(0, 0, 0, 0)
)

// DrawRing paints the ring for one frame onto s, back to front: drop
// shadow, base band, specular sheen, ambient occlusion, gem halo, gem body,
// facet lines, sparkles and prongs. Everything is drawn in a frame moved to
// the pose anchor and turned by the pose angle; the surface transform is
// restored on return. DrawRing does not clear s and paints nothing outside
// Extent(p).
func DrawRing(s Surface, p pose.RingPose, m material.Parameters) {
	r := p.BandRadius
	t := p.BandThickness
	g := p.GemSize
	if r <= 0 {
		return
	}
	ry := r * BandAspect
	gy := -ry - gemLift*g

	s.Save()
	defer s.Restore()
	s.Translate(p.X, p.Y)
	s.Rotate(p.Angle)

	// Drop shadow.
	s.Save()
	s.Translate(0, shadowDrop*t)
	s.Scale(1, BandAspect)
	s.FillCircle(0, 0, r+shadowSpread*t, Concentric(0, 0, 0, r+shadowSpread*t, Stops{
		{Offset: 0.6, Color: shadowInk},
		{Offset: 1, Color: WithAlpha(shadowInk, 0)},
	}))
	s.Restore()

	// Band.
	s.StrokeEllipse(0, 0, r, ry, Stroke{Width: t, Paint: Solid(m.Base), Cap: RoundCap})

	// Sheen.
	s.StrokeEllipse(0, 0, r, ry, Stroke{
		Width: t / 2,
		Cap:   RoundCap,
		Paint: LinearGradient{X0: -r, Y0: 0, X1: r, Y1: 0, Stops: Stops{
			{Offset: 0, Color: WithAlpha(m.Highlight, 0)},
			{Offset: 0.5, Color: WithAlpha(m.Highlight, 0.9)},
			{Offset: 1, Color: WithAlpha(m.Highlight, 0)},
		}},
	})

	// Ambient occlusion, darker toward the bottom.
	s.StrokeEllipse(0, 0, r, ry, Stroke{
		Width: t,
		Cap:   RoundCap,
		Paint: LinearGradient{X0: 0, Y0: -ry, X1: 0, Y1: ry, Stops: Stops{
			{Offset: 0, Color: transparent},
			{Offset: 1, Color: occlusion},
		}},
	})

	if g <= 0 {
		return
	}

	// Halo.
	s.FillCircle(0, gy, haloRadius*g, Concentric(0, gy, 0, haloRadius*g, Stops{
		{Offset: 0, Color: RGBA(255, 255, 255, 0.55)},
		{Offset: 0.5, Color: WithAlpha(m.Highlight, 0.2)},
		{Offset: 1, Color: WithAlpha(m.Highlight, 0)},
	}))

	// Gem body with an off-center hot spot, then its outline.
	s.FillCircle(0, gy, g, RadialGradient{
		X0: -0.3 * g, Y0: gy - 0.3*g, R0: 0.05 * g,
		X1: 0, Y1: gy, R1: g,
		Stops: Stops{
			{Offset: 0, Color: gemCore},
			{Offset: 0.45, Color: gemMid},
			{Offset: 1, Color: gemEdge},
		},
	})
	s.StrokeEllipse(0, gy, g, g, Stroke{Width: math.Max(1, 0.06*g), Paint: Solid(gemOutline)})

	// Facets.
	facet := Stroke{Width: math.Max(0.5, 0.04*g), Paint: Solid(facetInk)}
	for i := 0; i < facetCount; i++ {
		sin, cos := math.Sincos(2 * math.Pi * float64(i) / facetCount)
		s.StrokeLine(0, gy, g*cos, gy+g*sin, facet)
	}

	// Sparkles.
	s.FillCircle(-0.35*g, gy-0.35*g, 0.12*g, Solid(sparkleInk))
	s.FillCircle(0.3*g, gy-0.15*g, 0.07*g, Solid(WithAlpha(sparkleInk, 0.8)))

	// Prongs on the diagonals.
	prong := Stroke{Width: math.Max(1, 0.12*g), Paint: Solid(m.Base), Cap: RoundCap}
	for i := 0; i < 4; i++ {
		sin, cos := math.Sincos(math.Pi/4 + math.Pi/2*float64(i))
		s.StrokeLine(prongOuter*g*cos, gy+prongOuter*g*sin, prongInner*g*cos, gy+prongInner*g*sin, prong)
	}
}

// Extent returns a pixel box that contains everything DrawRing paints for p.
// It is empty when the pose has no band.
func Extent(p pose.RingPose) image.Rectangle {
	r, t, g := p.BandRadius, p.BandThickness, math.Max(p.GemSize, 0)
	if r <= 0 {
		return image.Rectangle{}
	}

	band := r + (shadowSpread+shadowDrop)*t
	gem := r*BandAspect + gemLift*g + haloRadius*g
	d := math.Max(band, gem) + 1

	return image.Rect(
		int(math.Floor(p.X-d)), int(math.Floor(p.Y-d)),
		int(math.Ceil(p.X+d)), int(math.Ceil(p.Y+d)),
	)
}
