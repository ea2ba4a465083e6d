package capture

import (
	"context"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// MockCamera hands out streams that play back fixed frames, and counts the
// tracks they hold so tests can check nothing leaks.
type MockCamera struct {
	mu       sync.Mutex
	frames   []*gocv.Mat
	openErr  error
	noData   bool
	gate     chan struct{}
	opened   int
	streams  []*MockStream
	openings []Constraints

	liveAtOpen []int
}

// NewMockCamera creates a camera whose streams loop over frames.
func NewMockCamera(frames []*gocv.Mat) *MockCamera {
	return &MockCamera{frames: frames}
}

// SetOpenError makes subsequent Open calls fail with err.
func (c *MockCamera) SetOpenError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.openErr = err
}

// SetNoMetadata makes subsequent streams never deliver a first frame, so
// Play runs into its timeout.
func (c *MockCamera) SetNoMetadata(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.noData = v
}

// Hold blocks subsequent Open calls until Release is called or their
// context ends.
func (c *MockCamera) Hold() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gate == nil {
		c.gate = make(chan struct{})
	}
}

// Release unblocks Open calls waiting in Hold.
func (c *MockCamera) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gate != nil {
		close(c.gate)
		c.gate = nil
	}
}

func (c *MockCamera) Open(ctx context.Context, cons Constraints) (Stream, error) {
	c.mu.Lock()
	gate := c.gate
	c.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.openings = append(c.openings, cons)
	live := 0
	for _, s := range c.streams {
		live += s.ActiveTracks()
	}
	c.liveAtOpen = append(c.liveAtOpen, live)
	if c.openErr != nil {
		return nil, c.openErr
	}

	c.opened++
	s := &MockStream{frames: c.frames, noData: c.noData, timeout: cons.MetadataTimeout, live: true}
	c.streams = append(c.streams, s)
	return s, nil
}

// Opened returns how many streams were acquired.
func (c *MockCamera) Opened() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opened
}

// LiveTracks sums the active tracks of every stream handed out.
func (c *MockCamera) LiveTracks() int {
	c.mu.Lock()
	streams := append([]*MockStream(nil), c.streams...)
	c.mu.Unlock()

	n := 0
	for _, s := range streams {
		n += s.ActiveTracks()
	}
	return n
}

// LiveTracksAtOpen returns, for every Open call, how many tracks were
// still live when it was made.
func (c *MockCamera) LiveTracksAtOpen() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.liveAtOpen...)
}

// LastConstraints returns the constraints of the latest Open call.
func (c *MockCamera) LastConstraints() (Constraints, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.openings) == 0 {
		return Constraints{}, false
	}
	return c.openings[len(c.openings)-1], true
}

// Streams returns the streams handed out so far, oldest first.
func (c *MockCamera) Streams() []*MockStream {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*MockStream(nil), c.streams...)
}

// MockStream plays back frames in a loop.
type MockStream struct {
	mu      sync.Mutex
	frames  []*gocv.Mat
	index   int
	noData  bool
	timeout time.Duration
	playing bool
	live    bool
}

func (s *MockStream) Play(ctx context.Context) error {
	s.mu.Lock()
	if !s.live {
		s.mu.Unlock()
		return ErrStreamStopped
	}
	if !s.noData && len(s.frames) > 0 {
		s.playing = true
		s.mu.Unlock()
		return nil
	}
	timeout := s.timeout
	s.mu.Unlock()

	if timeout <= 0 {
		timeout = DefaultMetadataTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-timer.C:
		return ErrMetadataTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *MockStream) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live && s.playing
}

func (s *MockStream) ReadFrame() (*gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.live {
		return nil, ErrStreamStopped
	}
	if !s.playing {
		return nil, ErrNoFrame
	}

	frame := s.frames[s.index%len(s.frames)].Clone()
	s.index++
	return &frame, nil
}

func (s *MockStream) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.playing {
		return 0, 0
	}
	f := s.frames[0]
	return f.Cols(), f.Rows()
}

func (s *MockStream) ActiveTracks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.live {
		return 1
	}
	return 0
}

func (s *MockStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live = false
	s.playing = false
}

// Reads returns how many frames were read from the stream.
func (s *MockStream) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}
