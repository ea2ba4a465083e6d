package render

import (
	"math"

	"golang.org/x/image/math/f64"
)

type point struct{ x, y float64 }

// polygon is a closed ring of points. Filled paths may hold several
// polygons; opposite orientations cancel, which is how holes are cut.
type polygon []point

const (
	minSegments = 16
	maxSegments = 512
)

// segmentsFor picks how many straight segments approximate an arc of the
// given device-space radius, about one per two pixels of circumference.
func segmentsFor(radius float64) int {
	n := int(math.Ceil(math.Pi * radius))
	if n < minSegments {
		return minSegments
	}
	if n > maxSegments {
		return maxSegments
	}
	return n
}

// ellipse returns the ellipse outline counter-clockwise, or clockwise when reverse is set.
func ellipse(cx, cy, rx, ry float64, n int, reverse bool) polygon {
	pts := make(polygon, n)
	for i := 0; i < n; i++ {
		a := 2 * math.Pi * float64(i) / float64(n)
		if reverse {
			a = -a
		}
		s, c := math.Sincos(a)
		pts[i] = point{cx + rx*c, cy + ry*s}
	}
	return pts
}

// arc appends points on the circle (cx,cy,r) from angle a0 to a1.
func arc(pts polygon, cx, cy, r, a0, a1 float64, n int) polygon {
	for i := 0; i <= n; i++ {
		a := a0 + (a1-a0)*float64(i)/float64(n)
		s, c := math.Sincos(a)
		pts = append(pts, point{cx + r*c, cy + r*s})
	}
	return pts
}

// ringOutline is the area covered by stroking the ellipse (cx,cy,rx,ry) with
// width w: an outer ellipse and, when it does not collapse, a reversed inner one.
func ringOutline(cx, cy, rx, ry, w float64, n int) []polygon {
	h := w / 2
	outer := ellipse(cx, cy, rx+h, ry+h, n, false)
	if rx-h <= 0 || ry-h <= 0 {
		return []polygon{outer}
	}
	return []polygon{outer, ellipse(cx, cy, rx-h, ry-h, n, true)}
}

// lineOutline is the area covered by stroking the segment p0-p1 with width w.
func lineOutline(x0, y0, x1, y1, w float64, c Cap, capSegments int) polygon {
	h := w / 2
	dx, dy := x1-x0, y1-y0
	length := math.Hypot(dx, dy)
	if length == 0 {
		if c == RoundCap {
			return ellipse(x0, y0, h, h, 2*capSegments, false)
		}
		return nil
	}

	ux, uy := dx/length, dy/length
	nx, ny := -uy*h, ux*h

	if c != RoundCap {
		return polygon{
			{x0 + nx, y0 + ny},
			{x1 + nx, y1 + ny},
			{x1 - nx, y1 - ny},
			{x0 - nx, y0 - ny},
		}
	}

	an := math.Atan2(ny, nx)
	pts := make(polygon, 0, 2*capSegments+2)
	pts = arc(pts, x1, y1, h, an, an-math.Pi, capSegments)
	pts = arc(pts, x0, y0, h, an-math.Pi, an-2*math.Pi, capSegments)
	return pts
}

func transformPolygon(m f64.Aff3, p polygon) polygon {
	out := make(polygon, len(p))
	for i, pt := range p {
		out[i].x, out[i].y = apply(m, pt.x, pt.y)
	}
	return out
}

// clip cuts p to the rectangle [0,w]x[0,h] (Sutherland–Hodgman).
func clip(p polygon, w, h float64) polygon {
	edges := []struct {
		inside    func(point) bool
		intersect func(a, b point) point
	}{
		{
			inside:    func(q point) bool { return q.x >= 0 },
			intersect: func(a, b point) point { return atX(a, b, 0) },
		},
		{
			inside:    func(q point) bool { return q.x <= w },
			intersect: func(a, b point) point { return atX(a, b, w) },
		},
		{
			inside:    func(q point) bool { return q.y >= 0 },
			intersect: func(a, b point) point { return atY(a, b, 0) },
		},
		{
			inside:    func(q point) bool { return q.y <= h },
			intersect: func(a, b point) point { return atY(a, b, h) },
		},
	}

	out := p
	for _, e := range edges {
		if len(out) == 0 {
			return nil
		}
		in := out
		out = make(polygon, 0, len(in)+4)
		prev := in[len(in)-1]
		for _, cur := range in {
			switch {
			case e.inside(cur):
				if !e.inside(prev) {
					out = append(out, e.intersect(prev, cur))
				}
				out = append(out, cur)
			case e.inside(prev):
				out = append(out, e.intersect(prev, cur))
			}
			prev = cur
		}
	}
	return out
}

func atX(a, b point, x float64) point {
	t := (x - a.x) / (b.x - a.x)
	return point{x, a.y + t*(b.y-a.y)}
}

func atY(a, b point, y float64) point {
	t := (y - a.y) / (b.y - a.y)
	return point{a.x + t*(b.x-a.x), y}
}
