package detector

import (
	"time"

	"gocv.io/x/gocv"
)

// Detector defines the interface for hand detection implementations.
// Detect is synchronous; AsyncSource adapts it to the callback style the
// try-on loop needs.
type Detector interface {
	// Detect analyzes a video frame and returns detected hand landmarks.
	// Returns an empty slice if no hands are detected.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 1).
	MaxHands int

	// ModelComplexity selects the landmark model variant (0 = lite, 1 = full).
	ModelComplexity int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// Python is the interpreter used to run the MediaPipe service.
	// Empty means a virtualenv interpreter if one is found, else python3.
	Python string

	// Script is the path of the MediaPipe service script.
	// Empty means search the usual install locations.
	Script string

	// IdleTimeout shuts the service process down after this long without
	// a detection. It is restarted transparently on the next frame.
	IdleTimeout time.Duration
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxHands:        1,
		ModelComplexity: 1,
		MinConfidence:   0.7,
		MinTrackingConf: 0.5,
		IdleTimeout:     30 * time.Second,
	}
}

// Factory constructs a Detector. The try-on controller calls it lazily, at
// most once per successful construction.
type Factory func(Config) (Detector, error)
