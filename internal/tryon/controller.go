// Package tryon runs the ring try-on session: it owns the camera stream,
// paces frames into the hand landmark source one at a time, and redraws the
// ring overlay from each detection result.
package tryon

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"github.com/ayusman/ringfit/internal/capture"
	"github.com/ayusman/ringfit/internal/detector"
	"github.com/ayusman/ringfit/internal/material"
	"github.com/ayusman/ringfit/internal/pose"
	"github.com/ayusman/ringfit/internal/render"
)

// DefaultRestartDelay is the pause between stop and start on Restart.
const DefaultRestartDelay = 100 * time.Millisecond

var (
	// ErrStartInProgress is returned by Start while another Start is acquiring the camera.
	ErrStartInProgress = errors.New("camera start already in progress")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("try-on controller closed")
)

// Options configure a Controller.
type Options struct {
	Camera      capture.Camera
	Constraints capture.Constraints

	// NewSource builds the hand landmark source on the first successful
	// start. The source is kept for the life of the controller.
	NewSource      func() detector.Source
	DetectorConfig detector.Config

	Scheduler    Scheduler
	Selection    *material.Tracker
	RestartDelay time.Duration
}

// Controller owns one camera stream at a time and the overlay canvas. All
// methods are safe for concurrent use.
type Controller struct {
	camera      capture.Camera
	constraints capture.Constraints
	newSource   func() detector.Source
	detCfg      detector.Config
	sched       Scheduler
	selection   *material.Tracker
	delay       time.Duration

	mu           sync.Mutex
	state        State
	reason       Reason
	handDetected bool
	gen          uint64
	busy         bool
	stream       capture.Stream
	cancelStart  context.CancelFunc
	frame        FrameHandle
	scheduled    bool
	source       detector.Source
	sourceReady  bool
	session      *Session
	closed       bool
	pending      []Event
	outbox       []Event
	emitting     bool
	drained      *sync.Cond
	subs         []subscriber
	nextSub      int

	// canvasMu guards canvas. It is taken after mu, never before.
	canvasMu sync.Mutex
	canvas   *render.Raster
}

// New creates an idle controller.
func New(opts Options) *Controller {
	if opts.NewSource == nil {
		opts.NewSource = func() detector.Source {
			return detector.NewAsyncSource(detector.NewFactory())
		}
	}
	if opts.DetectorConfig == (detector.Config{}) {
		opts.DetectorConfig = detector.DefaultConfig()
	}
	if opts.Constraints == (capture.Constraints{}) {
		opts.Constraints = capture.DefaultConstraints()
	}
	if opts.Scheduler == nil {
		opts.Scheduler = NewTickerScheduler(opts.Constraints.FPS)
	}
	if opts.Selection == nil {
		opts.Selection = material.NewTracker(material.DefaultSelection())
	}
	if opts.RestartDelay <= 0 {
		opts.RestartDelay = DefaultRestartDelay
	}

	c := &Controller{
		camera:      opts.Camera,
		constraints: opts.Constraints,
		newSource:   opts.NewSource,
		detCfg:      opts.DetectorConfig,
		sched:       opts.Scheduler,
		selection:   opts.Selection,
		delay:       opts.RestartDelay,
		state:       StateIdle,
		canvas:      render.NewRaster(0, 0),
	}
	c.drained = sync.NewCond(&c.mu)
	return c
}

// Selection returns the tracker the overlay reads metal and carat from.
func (c *Controller) Selection() *material.Tracker { return c.selection }

type subscriber struct {
	id int
	fn func(Event)
}

// Subscribe registers fn for status events and returns a function that
// removes it. Subscribers see every event in the order the state changed,
// one event at a time, in registration order. fn runs outside the
// controller lock and may call any method; events it causes are delivered
// after it returns.
func (c *Controller) Subscribe(fn func(Event)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSub
	c.nextSub++
	c.subs = append(c.subs, subscriber{id: id, fn: fn})
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, s := range c.subs {
			if s.id == id {
				c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
				return
			}
		}
	}
}

// Status returns a snapshot of the controller state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// Start acquires the camera and begins detection. Acquisition failures are
// reported through Status, not returned. Start on an active controller is a
// no-op; Start while another Start is acquiring returns ErrStartInProgress.
// If ctx ends during acquisition the controller goes back to idle and Start
// returns ctx.Err().
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return ErrClosed
	case c.state == StateStarting:
		c.mu.Unlock()
		return ErrStartInProgress
	case c.state == StateActive:
		c.mu.Unlock()
		return nil
	}

	prev := c.snapshot()
	c.gen++
	gen := c.gen
	startCtx, cancel := context.WithCancel(ctx)
	c.cancelStart = cancel
	c.state = StateStarting
	c.reason = ReasonNone
	c.session = &Session{ID: uuid.NewString(), StartedAt: time.Now()}
	id := c.session.ID
	c.changed(prev, nil)
	c.unlockAndEmit()

	log.Info().Str("session", id).Msg("starting camera")

	stream, err := c.acquire(startCtx)
	cancel()

	c.mu.Lock()
	if gen != c.gen {
		// Stopped or closed while acquiring.
		c.mu.Unlock()
		if stream != nil {
			stream.Stop()
		}
		return nil
	}
	c.cancelStart = nil
	prev = c.snapshot()

	if err != nil && ctx.Err() != nil {
		// The caller gave up; this is not a camera failure.
		if stream != nil {
			stream.Stop()
		}
		c.state = StateIdle
		ended := c.endSession(OutcomeCanceled)
		c.changed(prev, ended)
		c.unlockAndEmit()

		log.Info().Err(ctx.Err()).Str("session", id).Msg("camera start abandoned by caller")
		return ctx.Err()
	}
	if err != nil {
		if stream != nil {
			stream.Stop()
		}
		c.reason = classify(err)
		c.state = StateError
		reason := c.reason
		ended := c.endSession(OutcomeFailed)
		c.changed(prev, ended)
		c.unlockAndEmit()

		log.Error().Err(err).Str("session", id).Str("reason", string(reason)).Msg("camera start failed")
		return nil
	}

	c.stream = stream
	c.busy = false
	c.handDetected = false
	c.ensureSource()
	c.state = StateActive
	c.schedule(gen)
	c.changed(prev, nil)
	c.unlockAndEmit()

	w, h := stream.Size()
	log.Info().Str("session", id).Int("width", w).Int("height", h).Msg("camera active")
	return nil
}

// acquire opens and plays a stream. On error the returned stream, if any,
// is still live and must be stopped by the caller.
func (c *Controller) acquire(ctx context.Context) (capture.Stream, error) {
	if c.camera == nil {
		return nil, capture.ErrNoDevice
	}

	stream, err := c.camera.Open(ctx, c.constraints)
	if err != nil {
		return nil, err
	}

	timeout := c.constraints.MetadataTimeout
	if timeout <= 0 {
		timeout = capture.DefaultMetadataTimeout
	}
	playCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := stream.Play(playCtx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = capture.ErrMetadataTimeout
		}
		return stream, errors.Wrap(err, "play camera stream")
	}
	return stream, nil
}

// ensureSource builds and configures the landmark source once. A load
// failure is logged and retried on the next start; the session still runs
// without an overlay.
func (c *Controller) ensureSource() {
	if c.sourceReady {
		return
	}
	if c.source == nil {
		c.source = c.newSource()
		c.source.OnResults(c.onResults)
	}
	if err := c.source.Configure(c.detCfg); err != nil {
		log.Error().Err(err).Msg("hand detector unavailable, overlay disabled")
		return
	}
	c.sourceReady = true
}

// Stop ends the session. It is safe in every state: it cancels a pending
// start, the scheduled frame and any in-flight result, releases the stream
// and clears the overlay. The landmark source is kept.
func (c *Controller) Stop() {
	c.mu.Lock()
	c.stopLocked()
	c.unlockAndEmit()
}

func (c *Controller) stopLocked() {
	prev := c.snapshot()

	c.gen++
	if c.cancelStart != nil {
		c.cancelStart()
		c.cancelStart = nil
	}
	if c.scheduled {
		c.sched.CancelFrame(c.frame)
		c.scheduled = false
	}
	if c.stream != nil {
		c.stream.Stop()
		c.stream = nil
	}
	c.busy = false
	c.handDetected = false

	c.canvasMu.Lock()
	c.canvas.Clear()
	c.canvasMu.Unlock()

	var ended *Session
	switch c.state {
	case StateStarting:
		c.state = StateIdle
		ended = c.endSession(OutcomeCanceled)
	case StateActive:
		c.state = StateIdle
		ended = c.endSession(OutcomeStopped)
	}
	c.changed(prev, ended)

	if ended != nil {
		log.Info().Str("session", ended.ID).Str("outcome", string(ended.Outcome)).
			Int("frames", ended.FramesSubmitted).Int("hand_frames", ended.HandFrames).Msg("camera stopped")
	}
}

// Restart stops, waits the restart delay and starts again.
func (c *Controller) Restart(ctx context.Context) error {
	c.Stop()

	timer := time.NewTimer(c.delay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return ctx.Err()
	}

	return c.Start(ctx)
}

// Close stops the session and destroys the landmark source. The controller
// cannot be started again. Close returns after subscribers have seen the
// final event, so it must not be called from a subscriber.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.stopLocked()
	c.closed = true
	src := c.source
	c.source = nil
	c.sourceReady = false
	c.unlockAndEmit()

	c.mu.Lock()
	for c.emitting {
		c.drained.Wait()
	}
	c.mu.Unlock()

	if src == nil {
		return nil
	}
	return src.Close()
}

func (c *Controller) schedule(gen uint64) {
	c.frame = c.sched.RequestFrame(func() { c.tick(gen) })
	c.scheduled = true
}

// tick runs once per display frame. It submits the current frame when no
// detection is in flight and always schedules the next tick; frames that
// arrive while the detector is busy are skipped.
func (c *Controller) tick(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.state != StateActive {
		c.mu.Unlock()
		return
	}
	c.scheduled = false

	var frame *gocv.Mat
	if !c.busy && c.sourceReady && c.stream.Ready() {
		f, err := c.stream.ReadFrame()
		if err != nil {
			log.Debug().Err(err).Msg("read frame")
		} else {
			frame = f
			c.busy = true
			c.session.FramesSubmitted++
		}
	}
	c.schedule(gen)
	src := c.source
	c.mu.Unlock()

	if frame == nil {
		return
	}
	if err := src.Submit(frame, gen); err != nil {
		log.Warn().Err(err).Msg("submit frame")
		c.mu.Lock()
		if gen == c.gen {
			c.busy = false
		}
		c.mu.Unlock()
	}
}

// onResults handles one detection. Results tagged with an older session are
// dropped. Otherwise the canvas is resized to the frame, cleared, and the
// ring drawn on the first hand if there is one. HandDetected always matches
// what the canvas shows.
func (c *Controller) onResults(res detector.Results) {
	c.mu.Lock()
	if res.Tag != c.gen || c.state != StateActive {
		c.mu.Unlock()
		log.Debug().Uint64("tag", res.Tag).Msg("dropping stale detection")
		return
	}
	prev := c.snapshot()
	c.busy = false

	w, h := res.Width, res.Height
	if w == 0 || h == 0 {
		w, h = c.stream.Size()
	}

	c.canvasMu.Lock()
	c.canvas.Resize(w, h)
	c.canvas.Clear()
	switch {
	case res.Err != nil:
		log.Warn().Err(res.Err).Msg("hand detection failed")
		c.handDetected = false
	case len(res.Hands) > 0:
		params := c.selection.Parameters()
		p := pose.Resolve(&res.Hands[0], w, h, params.GemScale)
		render.DrawRing(c.canvas, p, params)
		c.handDetected = true
		c.session.HandFrames++
	default:
		c.handDetected = false
	}
	c.canvasMu.Unlock()

	c.changed(prev, nil)
	c.unlockAndEmit()
}

// Overlay returns a copy of the overlay canvas.
func (c *Controller) Overlay() *image.RGBA {
	c.canvasMu.Lock()
	defer c.canvasMu.Unlock()
	return c.canvas.Snapshot()
}

// Preview returns the newest camera frame, which the caller must close, and
// a copy of the overlay drawn for the latest detection.
func (c *Controller) Preview() (*gocv.Mat, *image.RGBA, error) {
	c.mu.Lock()
	stream := c.stream
	c.mu.Unlock()

	if stream == nil {
		return nil, nil, capture.ErrStreamStopped
	}
	frame, err := stream.ReadFrame()
	if err != nil {
		return nil, nil, err
	}
	return frame, c.Overlay(), nil
}

// Tracks returns the number of live camera tracks held by the controller.
func (c *Controller) Tracks() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream == nil {
		return 0
	}
	return c.stream.ActiveTracks()
}

func (c *Controller) snapshot() Status {
	s := Status{
		State:        c.state,
		Active:       c.state == StateActive,
		HandDetected: c.handDetected,
		Loading:      c.state == StateStarting,
		Reason:       c.reason,
		Error:        c.reason.Message(),
	}
	if c.session != nil {
		s.SessionID = c.session.ID
	}
	return s
}

func (c *Controller) endSession(outcome Outcome) *Session {
	if c.session == nil {
		return nil
	}
	s := *c.session
	s.EndedAt = time.Now()
	s.Outcome = outcome
	s.Reason = c.reason
	c.session = nil
	return &s
}

// changed queues an event if the status moved or a session ended.
func (c *Controller) changed(prev Status, ended *Session) {
	next := c.snapshot()
	if next == prev && ended == nil {
		return
	}
	c.pending = append(c.pending, Event{Prev: prev, Status: next, Ended: ended})
}

// unlockAndEmit releases mu and delivers queued events to subscribers.
// Events are appended to the outbox while mu is held, so outbox order is
// state order. Only one goroutine drains it at a time; any other caller
// leaves its events behind for the drainer and returns.
func (c *Controller) unlockAndEmit() {
	c.outbox = append(c.outbox, c.pending...)
	c.pending = nil
	if c.emitting {
		c.mu.Unlock()
		return
	}
	c.emitting = true

	for len(c.outbox) > 0 {
		events := c.outbox
		c.outbox = nil
		subs := make([]func(Event), len(c.subs))
		for i, s := range c.subs {
			subs[i] = s.fn
		}
		c.mu.Unlock()

		for _, e := range events {
			for _, fn := range subs {
				fn(e)
			}
		}

		c.mu.Lock()
	}
	c.emitting = false
	c.drained.Broadcast()
	c.mu.Unlock()
}
