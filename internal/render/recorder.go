package render

import (
	"image"
	"math"

	"golang.org/x/image/math/f64"
)

// OpKind names a recorded draw call.
type OpKind string

const (
	OpFillCircle    OpKind = "fill_circle"
	OpStrokeEllipse OpKind = "stroke_ellipse"
	OpStrokeLine    OpKind = "stroke_line"
)

// Op is one recorded draw call with the transform current at the time.
type Op struct {
	Kind   OpKind
	Matrix f64.Aff3
	Args   []float64
	Paint  Paint
	Stroke Stroke
}

// Recorder is a Surface that records draw calls instead of painting them.
type Recorder struct {
	transformStack
	Ops []Op
}

var _ Surface = (*Recorder)(nil)

// NewRecorder returns an empty recorder with an identity transform.
func NewRecorder() *Recorder {
	r := &Recorder{}
	r.transformStack.reset()
	return r
}

// Depth is the number of unbalanced Save calls.
func (r *Recorder) Depth() int { return len(r.saved) }

// FillCircle implements Surface.
func (r *Recorder) FillCircle(cx, cy, radius float64, p Paint) {
	r.Ops = append(r.Ops, Op{Kind: OpFillCircle, Matrix: r.m, Args: []float64{cx, cy, radius}, Paint: p})
}

// StrokeEllipse implements Surface.
func (r *Recorder) StrokeEllipse(cx, cy, rx, ry float64, s Stroke) {
	r.Ops = append(r.Ops, Op{Kind: OpStrokeEllipse, Matrix: r.m, Args: []float64{cx, cy, rx, ry}, Paint: s.Paint, Stroke: s})
}

// StrokeLine implements Surface.
func (r *Recorder) StrokeLine(x0, y0, x1, y1 float64, s Stroke) {
	r.Ops = append(r.Ops, Op{Kind: OpStrokeLine, Matrix: r.m, Args: []float64{x0, y0, x1, y1}, Paint: s.Paint, Stroke: s})
}

// Bounds returns the device-space box covered by op.
func (o Op) Bounds() image.Rectangle {
	var local polygon
	switch o.Kind {
	case OpFillCircle:
		local = ellipse(o.Args[0], o.Args[1], o.Args[2], o.Args[2], 64, false)
	case OpStrokeEllipse:
		local = ringOutline(o.Args[0], o.Args[1], o.Args[2], o.Args[3], o.Stroke.Width, 64)[0]
	case OpStrokeLine:
		local = lineOutline(o.Args[0], o.Args[1], o.Args[2], o.Args[3], o.Stroke.Width, o.Stroke.Cap, 16)
	}
	if len(local) == 0 {
		return image.Rectangle{}
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, pt := range transformPolygon(o.Matrix, local) {
		minX, minY = math.Min(minX, pt.x), math.Min(minY, pt.y)
		maxX, maxY = math.Max(maxX, pt.x), math.Max(maxY, pt.y)
	}
	return image.Rect(
		int(math.Floor(minX)), int(math.Floor(minY)),
		int(math.Ceil(maxX)), int(math.Ceil(maxY)),
	)
}
