package render

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/ayusman/ringfit/internal/material"
	"github.com/ayusman/ringfit/internal/pose"
)

var (
	red  = color.NRGBA{R: 255, A: 255}
	blue = color.NRGBA{B: 255, A: 255}
)

func TestStops(t *testing.T) {
	stops := Stops{{Offset: 0.2, Color: red}, {Offset: 0.8, Color: blue}}

	tests := []struct {
		name string
		t    float64
		want color.NRGBA
	}{
		{name: "pads before first", t: 0, want: red},
		{name: "first stop", t: 0.2, want: red},
		{name: "midpoint", t: 0.5, want: color.NRGBA{R: 128, B: 128, A: 255}},
		{name: "last stop", t: 0.8, want: blue},
		{name: "pads after last", t: 1.5, want: blue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stops.at(tt.t); got != tt.want {
				t.Errorf("at(%v) = %v, want %v", tt.t, got, tt.want)
			}
		})
	}

	if got := (Stops{}).at(0.5); got != (color.NRGBA{}) {
		t.Errorf("empty stops = %v, want transparent", got)
	}
}

func TestLinearGradient(t *testing.T) {
	g := LinearGradient{X0: 0, Y0: 0, X1: 10, Y1: 0, Stops: Stops{{0, red}, {1, blue}}}

	if got := g.ColorAt(0, 99); got != red {
		t.Errorf("start = %v, want red", got)
	}
	if got := g.ColorAt(10, -5); got != blue {
		t.Errorf("end = %v, want blue", got)
	}
	if got := g.ColorAt(5, 3); got.R != 128 || got.B != 128 {
		t.Errorf("middle = %v, want even mix", got)
	}
}

func TestRadialGradient(t *testing.T) {
	t.Run("concentric", func(t *testing.T) {
		g := Concentric(0, 0, 0, 10, Stops{{0, red}, {1, blue}})

		if got := g.ColorAt(0, 0); got != red {
			t.Errorf("center = %v, want red", got)
		}
		if got := g.ColorAt(0, 5); got.R != 128 || got.B != 128 {
			t.Errorf("half radius = %v, want even mix", got)
		}
		if got := g.ColorAt(20, 0); got != blue {
			t.Errorf("outside = %v, want padded blue", got)
		}
	})

	t.Run("offset focus", func(t *testing.T) {
		g := RadialGradient{X0: -3, Y0: -3, R0: 0.5, X1: 0, Y1: 0, R1: 10, Stops: Stops{{0, red}, {1, blue}}}

		if got := g.ColorAt(-3, -3); got != red {
			t.Errorf("focus = %v, want red", got)
		}
		near := g.ColorAt(-2, -2)
		far := g.ColorAt(4, 4)
		if near.B >= far.B {
			t.Errorf("color should move toward the end stop away from the focus: near %v far %v", near, far)
		}
	})
}

func TestRaster_FillCircle(t *testing.T) {
	r := NewRaster(20, 20)
	if !r.Transparent() {
		t.Fatal("new raster should be transparent")
	}

	r.FillCircle(10, 10, 5, Solid(red))

	img := r.Image()
	if a := img.RGBAAt(10, 10).A; a < 250 {
		t.Errorf("center alpha = %d, want opaque", a)
	}
	if a := img.RGBAAt(1, 1).A; a != 0 {
		t.Errorf("corner alpha = %d, want 0", a)
	}
}

func TestRaster_StrokeEllipseLeavesHole(t *testing.T) {
	r := NewRaster(40, 40)
	r.StrokeEllipse(20, 20, 10, 10, Stroke{Width: 4, Paint: Solid(blue)})

	img := r.Image()
	if a := img.RGBAAt(20, 20).A; a != 0 {
		t.Errorf("center alpha = %d, want hole", a)
	}
	if a := img.RGBAAt(30, 20).A; a < 200 {
		t.Errorf("band alpha = %d, want painted", a)
	}
	if a := img.RGBAAt(36, 20).A; a != 0 {
		t.Errorf("outside alpha = %d, want 0", a)
	}
}

func TestRaster_Transform(t *testing.T) {
	r := NewRaster(30, 30)

	r.Save()
	r.Translate(20, 20)
	r.FillCircle(0, 0, 3, Solid(red))
	r.Restore()
	r.FillCircle(5, 5, 3, Solid(blue))

	img := r.Image()
	if c := img.RGBAAt(20, 20); c.R < 250 {
		t.Errorf("translated circle missing: %v", c)
	}
	if c := img.RGBAAt(5, 5); c.B < 250 {
		t.Errorf("restored circle missing: %v", c)
	}
}

func TestRaster_GradientFollowsLocalFrame(t *testing.T) {
	r := NewRaster(40, 10)
	r.Translate(20, 5)
	r.StrokeLine(-18, 0, 18, 0, Stroke{
		Width: 6,
		Paint: LinearGradient{X0: -18, X1: 18, Stops: Stops{{0, WithAlpha(red, 0)}, {1, red}}},
	})

	img := r.Image()
	left, right := img.RGBAAt(4, 5).A, img.RGBAAt(36, 5).A
	if left >= right {
		t.Errorf("alpha should grow along the gradient: left %d right %d", left, right)
	}
}

func TestRaster_ClipsOffscreen(t *testing.T) {
	r := NewRaster(10, 10)
	r.FillCircle(-50, -50, 20, Solid(red))
	r.FillCircle(0, 0, 4, Solid(red))

	if a := r.Image().RGBAAt(0, 0).A; a < 200 {
		t.Errorf("corner alpha = %d, want painted", a)
	}
	if a := r.Image().RGBAAt(9, 9).A; a != 0 {
		t.Errorf("far corner alpha = %d, want 0", a)
	}
}

func TestRaster_ResizeAndClear(t *testing.T) {
	r := NewRaster(10, 10)
	r.FillCircle(5, 5, 4, Solid(red))

	if r.Resize(10, 10) {
		t.Error("Resize to same size should be a no-op")
	}
	if r.Transparent() {
		t.Error("no-op resize must keep pixels")
	}

	snap := r.Snapshot()
	r.Clear()
	if !r.Transparent() {
		t.Error("Clear should leave a transparent buffer")
	}
	if snap.RGBAAt(5, 5).A == 0 {
		t.Error("snapshot must not alias the live buffer")
	}

	r.FillCircle(5, 5, 4, Solid(red))
	if !r.Resize(64, 48) {
		t.Fatal("Resize to a new size should report a change")
	}
	if w, h := r.Size(); w != 64 || h != 48 {
		t.Errorf("Size() = %dx%d, want 64x48", w, h)
	}
	if !r.Transparent() {
		t.Error("resized raster should be transparent")
	}
}

func testPose() pose.RingPose {
	return pose.RingPose{X: 120, Y: 100, Angle: 0.4, BandRadius: 40, BandThickness: 11.2, GemSize: 20}
}

func TestDrawRing_LayerOrder(t *testing.T) {
	params := material.Resolve("#B76E79", 1)
	rec := NewRecorder()

	DrawRing(rec, testPose(), params)

	want := []OpKind{
		// shadow
		OpFillCircle,
		// band, sheen, occlusion
		OpStrokeEllipse, OpStrokeEllipse, OpStrokeEllipse,
		// halo, gem, gem outline
		OpFillCircle, OpFillCircle, OpStrokeEllipse,
		// facets
		OpStrokeLine, OpStrokeLine, OpStrokeLine, OpStrokeLine, OpStrokeLine, OpStrokeLine,
		// sparkles
		OpFillCircle, OpFillCircle,
		// prongs
		OpStrokeLine, OpStrokeLine, OpStrokeLine, OpStrokeLine,
	}
	if len(rec.Ops) != len(want) {
		t.Fatalf("recorded %d ops, want %d", len(rec.Ops), len(want))
	}
	for i, k := range want {
		if rec.Ops[i].Kind != k {
			t.Errorf("op %d = %s, want %s", i, rec.Ops[i].Kind, k)
		}
	}

	if rec.Depth() != 0 {
		t.Errorf("Save/Restore unbalanced: depth %d", rec.Depth())
	}

	band := rec.Ops[1]
	if band.Paint != Solid(params.Base) || band.Stroke.Cap != RoundCap {
		t.Errorf("band should be a round-capped stroke in the base color, got %+v", band.Stroke)
	}
	if ry := band.Args[3] / band.Args[2]; math.Abs(ry-BandAspect) > 1e-9 {
		t.Errorf("band aspect = %v, want %v", ry, BandAspect)
	}
	if sheen := rec.Ops[2]; sheen.Stroke.Width != band.Stroke.Width/2 {
		t.Errorf("sheen width = %v, want half the band", sheen.Stroke.Width)
	}
	if _, ok := rec.Ops[2].Paint.(LinearGradient); !ok {
		t.Errorf("sheen paint = %T, want LinearGradient", rec.Ops[2].Paint)
	}
	for _, op := range rec.Ops[15:] {
		if op.Paint != Solid(params.Base) {
			t.Errorf("prong paint = %v, want base metal", op.Paint)
		}
	}
}

func TestDrawRing_RigidTransform(t *testing.T) {
	p := testPose()
	rec := NewRecorder()
	DrawRing(rec, p, material.Resolve(material.DefaultMetal, 1))

	// Every primitive except the shadow shares the anchor frame.
	frame := rec.Ops[1].Matrix
	for i, op := range rec.Ops[1:] {
		if op.Matrix != frame {
			t.Errorf("op %d drawn in a different frame", i+1)
		}
	}
	if x, y := apply(frame, 0, 0); math.Abs(x-p.X) > 1e-9 || math.Abs(y-p.Y) > 1e-9 {
		t.Errorf("origin maps to (%v,%v), want anchor (%v,%v)", x, y, p.X, p.Y)
	}
}

func TestDrawRing_StaysInExtent(t *testing.T) {
	poses := []pose.RingPose{
		testPose(),
		{X: 60, Y: 80, Angle: math.Pi / 2, BandRadius: 25, BandThickness: 7, GemSize: 30},
		{X: 90, Y: 90, Angle: -2.5, BandRadius: 5, BandThickness: 1.4, GemSize: 0.5},
	}

	for _, p := range poses {
		ext := Extent(p)

		rec := NewRecorder()
		DrawRing(rec, p, material.Resolve(material.DefaultMetal, 1))
		for i, op := range rec.Ops {
			if b := op.Bounds(); !b.In(ext) {
				t.Errorf("pose %+v: op %d bounds %v outside extent %v", p, i, b, ext)
			}
		}

		r := NewRaster(240, 200)
		DrawRing(r, p, material.Resolve(material.DefaultMetal, 1))
		if r.Transparent() {
			t.Errorf("pose %+v: nothing drawn", p)
		}
		img := r.Image()
		for y := 0; y < 200; y++ {
			for x := 0; x < 240; x++ {
				if img.RGBAAt(x, y).A != 0 && !image.Pt(x, y).In(ext) {
					t.Fatalf("pose %+v: pixel (%d,%d) painted outside extent %v", p, x, y, ext)
				}
			}
		}
	}
}

func TestDrawRing_DegeneratePose(t *testing.T) {
	rec := NewRecorder()
	DrawRing(rec, pose.RingPose{X: 10, Y: 10}, material.Resolve(material.DefaultMetal, 1))

	if len(rec.Ops) != 0 {
		t.Errorf("zero radius should draw nothing, got %d ops", len(rec.Ops))
	}
	if !Extent(pose.RingPose{}).Empty() {
		t.Error("zero radius extent should be empty")
	}
}
