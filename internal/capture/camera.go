// Package capture acquires camera streams using GoCV (OpenCV).
package capture

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"
)

// Default stream constraints: front camera, 1280x720 at 30 fps.
const (
	DefaultWidth           = 1280
	DefaultHeight          = 720
	DefaultFPS             = 30
	DefaultFacingMode      = FacingUser
	DefaultMetadataTimeout = 5 * time.Second
)

// Facing modes understood by device selection.
const (
	FacingUser        = "user"
	FacingEnvironment = "environment"
)

// AutoDevice lets FacingMode choose the device.
const AutoDevice = -1

var (
	// ErrPermissionDenied is returned when the OS refuses access to the camera.
	ErrPermissionDenied = errors.New("camera permission denied")
	// ErrNoDevice is returned when no camera matches the constraints.
	ErrNoDevice = errors.New("no camera device")
	// ErrMetadataTimeout is returned by Play when no frame arrives in time.
	ErrMetadataTimeout = errors.New("timed out waiting for video metadata")
	// ErrStreamStopped is returned when reading from a stopped stream.
	ErrStreamStopped = errors.New("stream is stopped")
	// ErrNoFrame is returned when the stream has not produced a frame yet.
	ErrNoFrame = errors.New("no frame available")
)

// Constraints describe the stream a caller asks for. Width, Height and FPS
// are ideals; the device may deliver something else. FacingMode is only
// consulted when DeviceID is AutoDevice.
type Constraints struct {
	DeviceID        int
	Width           int
	Height          int
	FPS             int
	FacingMode      string
	MetadataTimeout time.Duration
}

// DefaultConstraints returns the constraints used for ring try-on.
func DefaultConstraints() Constraints {
	return Constraints{
		DeviceID:        AutoDevice,
		Width:           DefaultWidth,
		Height:          DefaultHeight,
		FPS:             DefaultFPS,
		FacingMode:      DefaultFacingMode,
		MetadataTimeout: DefaultMetadataTimeout,
	}
}

// Camera acquires video streams.
type Camera interface {
	// Open acquires the device. Errors wrap ErrPermissionDenied or
	// ErrNoDevice when the cause is known.
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// Stream is one acquired, video-only camera stream.
type Stream interface {
	// Play starts delivery and blocks until the first frame fixes the
	// native size, the metadata timeout passes (ErrMetadataTimeout) or ctx ends.
	Play(ctx context.Context) error
	// Ready reports whether a frame is available to read.
	Ready() bool
	// ReadFrame returns a copy of the newest frame. The caller owns it.
	ReadFrame() (*gocv.Mat, error)
	// Size returns the native frame size, zero before Play succeeds.
	Size() (width, height int)
	// ActiveTracks is the number of live video tracks, 0 or 1.
	ActiveTracks() int
	// Stop releases the device. It is idempotent.
	Stop()
}

// deviceCamera opens local capture devices.
type deviceCamera struct{}

// NewCamera returns a Camera backed by local capture devices.
func NewCamera() Camera {
	return deviceCamera{}
}

// Open probes and opens the device chosen by c.DeviceID and c.FacingMode.
func (deviceCamera) Open(ctx context.Context, c Constraints) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id := selectDevice(c)
	if err := probeDevice(id); err != nil {
		return nil, err
	}

	vc, err := gocv.OpenVideoCapture(id)
	if err != nil {
		return nil, errors.Wrapf(err, "open camera %d", id)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, errors.Errorf("camera %d did not open", id)
	}

	if c.Width > 0 && c.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(c.Width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(c.Height))
	}
	if c.FPS > 0 {
		vc.Set(gocv.VideoCaptureFPS, float64(c.FPS))
	}

	timeout := c.MetadataTimeout
	if timeout <= 0 {
		timeout = DefaultMetadataTimeout
	}

	log.Debug().Int("device", id).Str("facing", c.FacingMode).Int("width", c.Width).Int("height", c.Height).
		Int("fps", c.FPS).Msg("camera opened")

	return &deviceStream{
		capture: vc,
		timeout: timeout,
		latest:  gocv.NewMat(),
		first:   make(chan struct{}),
		done:    make(chan struct{}),
	}, nil
}

// deviceStream reads frames on its own goroutine and keeps only the newest
// one; readers always see the latest frame and never a backlog.
type deviceStream struct {
	capture *gocv.VideoCapture
	timeout time.Duration

	mu      sync.Mutex
	latest  gocv.Mat
	width   int
	height  int
	playing bool
	stopped bool

	first     chan struct{}
	firstOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

func (s *deviceStream) Play(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrStreamStopped
	}
	if !s.playing {
		s.playing = true
		s.wg.Add(1)
		go s.readLoop()
	}
	s.mu.Unlock()

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case <-s.first:
		return nil
	case <-timer.C:
		return ErrMetadataTimeout
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrStreamStopped
	}
}

func (s *deviceStream) readLoop() {
	defer s.wg.Done()

	mat := gocv.NewMat()
	defer mat.Close()

	for {
		select {
		case <-s.done:
			return
		default:
		}

		if ok := s.capture.Read(&mat); !ok || mat.Empty() {
			time.Sleep(5 * time.Millisecond)
			continue
		}

		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			return
		}
		mat.CopyTo(&s.latest)
		s.width, s.height = mat.Cols(), mat.Rows()
		s.mu.Unlock()

		s.firstOnce.Do(func() { close(s.first) })
	}
}

func (s *deviceStream) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.stopped && s.width > 0
}

func (s *deviceStream) ReadFrame() (*gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil, ErrStreamStopped
	}
	if s.width == 0 {
		return nil, ErrNoFrame
	}
	frame := s.latest.Clone()
	return &frame, nil
}

func (s *deviceStream) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

func (s *deviceStream) ActiveTracks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return 0
	}
	return 1
}

func (s *deviceStream) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	close(s.done)
	s.mu.Unlock()

	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.capture.Close(); err != nil {
		log.Warn().Err(err).Msg("close camera")
	}
	s.latest.Close()
	s.width, s.height = 0, 0
}
