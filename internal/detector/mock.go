package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results and, with Hold, to
// keep a detection in flight until Release is called.
type MockDetector struct {
	mu       sync.Mutex
	hands    []HandLandmarks
	err      error
	gate     chan struct{}
	calls    int
	inFlight int
	peak     int
	closed   bool
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Hold makes subsequent Detect calls block until Release.
func (m *MockDetector) Hold() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gate == nil {
		m.gate = make(chan struct{})
	}
}

// Release unblocks every Detect call waiting on Hold.
func (m *MockDetector) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gate != nil {
		close(m.gate)
		m.gate = nil
	}
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	m.calls++
	m.inFlight++
	if m.inFlight > m.peak {
		m.peak = m.inFlight
	}
	gate := m.gate
	m.mu.Unlock()

	if gate != nil {
		<-gate
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.inFlight--

	if m.err != nil {
		return nil, m.err
	}
	return m.hands, nil
}

// Calls returns how many times Detect has been entered.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// PeakInFlight returns the highest number of concurrent Detect calls seen.
func (m *MockDetector) PeakInFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peak
}

// Close marks the detector closed.
func (m *MockDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (m *MockDetector) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// OpenPalmLandmarks returns a preset HandLandmarks representing an open palm
// facing the camera with fingers pointing up.
func OpenPalmLandmarks() HandLandmarks {
	landmarks := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}

	landmarks.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	landmarks.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.02}
	landmarks.Points[ThumbMCP] = Point3D{X: 0.62, Y: 0.70, Z: 0.03}
	landmarks.Points[ThumbIP] = Point3D{X: 0.68, Y: 0.65, Z: 0.03}
	landmarks.Points[ThumbTip] = Point3D{X: 0.73, Y: 0.60, Z: 0.03}

	landmarks.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.68, Z: 0.0}
	landmarks.Points[IndexPIP] = Point3D{X: 0.57, Y: 0.55, Z: 0.0}
	landmarks.Points[IndexDIP] = Point3D{X: 0.58, Y: 0.45, Z: 0.0}
	landmarks.Points[IndexTip] = Point3D{X: 0.58, Y: 0.35, Z: 0.0}

	landmarks.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.66, Z: 0.0}
	landmarks.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.52, Z: 0.0}
	landmarks.Points[MiddleDIP] = Point3D{X: 0.50, Y: 0.40, Z: 0.0}
	landmarks.Points[MiddleTip] = Point3D{X: 0.50, Y: 0.28, Z: 0.0}

	landmarks.Points[RingMCP] = Point3D{X: 0.45, Y: 0.68, Z: 0.0}
	landmarks.Points[RingPIP] = Point3D{X: 0.43, Y: 0.55, Z: 0.0}
	landmarks.Points[RingDIP] = Point3D{X: 0.42, Y: 0.45, Z: 0.0}
	landmarks.Points[RingTip] = Point3D{X: 0.42, Y: 0.35, Z: 0.0}

	landmarks.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.70, Z: 0.0}
	landmarks.Points[PinkyPIP] = Point3D{X: 0.37, Y: 0.60, Z: 0.0}
	landmarks.Points[PinkyDIP] = Point3D{X: 0.35, Y: 0.50, Z: 0.0}
	landmarks.Points[PinkyTip] = Point3D{X: 0.34, Y: 0.42, Z: 0.0}

	return landmarks
}

// SidewaysHandLandmarks returns a preset with the fingers pointing right,
// so the ring finger segment runs along +X.
func SidewaysHandLandmarks() HandLandmarks {
	landmarks := HandLandmarks{
		Handedness: "Left",
		Score:      0.9,
	}

	landmarks.Points[Wrist] = Point3D{X: 0.20, Y: 0.50}

	landmarks.Points[ThumbCMC] = Point3D{X: 0.25, Y: 0.40}
	landmarks.Points[ThumbMCP] = Point3D{X: 0.30, Y: 0.34}
	landmarks.Points[ThumbIP] = Point3D{X: 0.35, Y: 0.30}
	landmarks.Points[ThumbTip] = Point3D{X: 0.40, Y: 0.27}

	landmarks.Points[IndexMCP] = Point3D{X: 0.38, Y: 0.44}
	landmarks.Points[IndexPIP] = Point3D{X: 0.50, Y: 0.44}
	landmarks.Points[IndexDIP] = Point3D{X: 0.58, Y: 0.44}
	landmarks.Points[IndexTip] = Point3D{X: 0.65, Y: 0.44}

	landmarks.Points[MiddleMCP] = Point3D{X: 0.39, Y: 0.50}
	landmarks.Points[MiddlePIP] = Point3D{X: 0.52, Y: 0.50}
	landmarks.Points[MiddleDIP] = Point3D{X: 0.61, Y: 0.50}
	landmarks.Points[MiddleTip] = Point3D{X: 0.69, Y: 0.50}

	landmarks.Points[RingMCP] = Point3D{X: 0.38, Y: 0.56}
	landmarks.Points[RingPIP] = Point3D{X: 0.50, Y: 0.56}
	landmarks.Points[RingDIP] = Point3D{X: 0.58, Y: 0.56}
	landmarks.Points[RingTip] = Point3D{X: 0.65, Y: 0.56}

	landmarks.Points[PinkyMCP] = Point3D{X: 0.36, Y: 0.62}
	landmarks.Points[PinkyPIP] = Point3D{X: 0.45, Y: 0.62}
	landmarks.Points[PinkyDIP] = Point3D{X: 0.51, Y: 0.62}
	landmarks.Points[PinkyTip] = Point3D{X: 0.56, Y: 0.62}

	return landmarks
}
