package detector

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"
)

var (
	// ErrNotConfigured is returned by Submit before a successful Configure.
	ErrNotConfigured = errors.New("hand landmark source not configured")
	// ErrBusy is returned by Submit while a previous frame is still pending.
	ErrBusy = errors.New("hand landmark source busy")
	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("hand landmark source closed")
)

// closeTimeout bounds how long Close waits for an in-flight detection.
const closeTimeout = 3 * time.Second

// Results is one answer of the landmark source. Tag echoes the value passed
// to Submit so callers can discard answers that belong to an older session.
type Results struct {
	Tag    uint64
	Hands  []HandLandmarks
	Width  int
	Height int
	Err    error
}

// Source is the callback-style hand landmark boundary: configure once,
// submit frames, receive results asynchronously.
type Source interface {
	Configure(cfg Config) error
	Submit(frame *gocv.Mat, tag uint64) error
	OnResults(fn func(Results))
	Close() error
}

type job struct {
	frame *gocv.Mat
	tag   uint64
}

// AsyncSource runs a synchronous Detector on its own goroutine and delivers
// results to the registered callback. It holds at most one pending frame;
// frames submitted while one is pending are dropped, never queued.
type AsyncSource struct {
	factory Factory

	mu       sync.Mutex
	det      Detector
	callback func(Results)
	jobs     chan job
	done     chan struct{}
	wg       sync.WaitGroup
	closed   bool
}

// NewAsyncSource creates a source that builds its detector with factory on Configure.
func NewAsyncSource(factory Factory) *AsyncSource {
	return &AsyncSource{factory: factory}
}

// Configure constructs the underlying detector and starts the worker.
// Calling it again after success is a no-op.
func (s *AsyncSource) Configure(cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.det != nil {
		return nil
	}

	det, err := s.factory(cfg)
	if err != nil {
		return errors.Wrap(err, "load hand detector")
	}

	s.det = det
	s.jobs = make(chan job, 1)
	s.done = make(chan struct{})
	s.wg.Add(1)
	go s.run(det, s.jobs, s.done)

	return nil
}

// OnResults registers the result callback. The callback runs on the source
// goroutine and must not call Close.
func (s *AsyncSource) OnResults(fn func(Results)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callback = fn
}

// Submit hands frame to the detector. The source owns the frame from here on
// and closes it, including when Submit returns an error.
func (s *AsyncSource) Submit(frame *gocv.Mat, tag uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.closed:
		frame.Close()
		return ErrClosed
	case s.det == nil:
		frame.Close()
		return ErrNotConfigured
	}

	select {
	case s.jobs <- job{frame: frame, tag: tag}:
		return nil
	default:
		frame.Close()
		return ErrBusy
	}
}

// Close stops the worker and releases the detector.
func (s *AsyncSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	det := s.det
	done := s.done
	s.mu.Unlock()

	if det == nil {
		return nil
	}

	close(done)

	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(closeTimeout):
		log.Warn().Dur("timeout", closeTimeout).Msg("hand detector still busy at close")
	}

	return det.Close()
}

func (s *AsyncSource) run(det Detector, jobs chan job, done chan struct{}) {
	defer s.wg.Done()

	for {
		select {
		case <-done:
			select {
			case j := <-jobs:
				j.frame.Close()
			default:
			}
			return
		case j := <-jobs:
			res := Results{
				Tag:    j.tag,
				Width:  j.frame.Cols(),
				Height: j.frame.Rows(),
			}
			res.Hands, res.Err = det.Detect(j.frame)
			j.frame.Close()

			s.mu.Lock()
			cb := s.callback
			s.mu.Unlock()

			if cb != nil {
				cb(res)
			}
		}
	}
}
