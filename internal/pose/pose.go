// Package pose places the ring on the ring finger from detected hand landmarks.
package pose

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/ayusman/ringfit/internal/detector"
)

// Placement proportions. All lengths derive from the pixel length of the
// ring finger's proximal segment (MCP to PIP), so the ring scales with the
// hand's distance from the camera.
const (
	// AnchorBlend is how far from the MCP toward the PIP the ring sits.
	AnchorBlend = 0.35
	// BandRadiusRatio is band radius over segment length.
	BandRadiusRatio = 0.55
	// BandThicknessRatio is band thickness over band radius.
	BandThicknessRatio = 0.28
	// GemBaseRatio is gem size over band radius before carat is applied.
	GemBaseRatio = 0.35
	// GemCaratRatio is the gem size added per carat, over band radius.
	GemCaratRatio = 0.15
)

// Joints used to place the ring.
const (
	BaseKnuckle   = detector.RingMCP
	MiddleKnuckle = detector.RingPIP
)

// RingPose is where and how large the ring is drawn on one frame.
type RingPose struct {
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	Angle         float64 `json:"angle"`
	BandRadius    float64 `json:"band_radius"`
	BandThickness float64 `json:"band_thickness"`
	GemSize       float64 `json:"gem_size"`
}

// Resolve computes the ring pose for hand on a frame of width x height
// pixels. gemScale is the carat size; values <= 0 are treated as 1.
func Resolve(hand *detector.HandLandmarks, width, height int, gemScale float64) RingPose {
	if gemScale <= 0 {
		gemScale = 1
	}

	w, h := float64(width), float64(height)
	bx, by := hand.Pixel(BaseKnuckle, w, h)
	mx, my := hand.Pixel(MiddleKnuckle, w, h)
	base := r2.Vec{X: bx, Y: by}
	middle := r2.Vec{X: mx, Y: my}

	segment := r2.Sub(middle, base)
	anchor := r2.Add(base, r2.Scale(AnchorBlend, segment))
	radius := BandRadiusRatio * r2.Norm(segment)

	return RingPose{
		X:             anchor.X,
		Y:             anchor.Y,
		Angle:         math.Atan2(segment.Y, segment.X) + math.Pi/2,
		BandRadius:    radius,
		BandThickness: BandThicknessRatio * radius,
		GemSize:       radius * (GemBaseRatio + GemCaratRatio*gemScale),
	}
}
