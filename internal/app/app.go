// Package app wires the try-on controller to persistence: the last builder
// selection and the session journal.
package app

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/ayusman/ringfit/internal/capture"
	"github.com/ayusman/ringfit/internal/detector"
	"github.com/ayusman/ringfit/internal/material"
	"github.com/ayusman/ringfit/internal/store"
	"github.com/ayusman/ringfit/internal/tryon"
)

// Config holds configuration options for the application.
type Config struct {
	// Store persists the selection and journal. Nil runs without persistence.
	Store *store.Store

	Camera      capture.Camera
	Constraints capture.Constraints
	Detector    detector.Config

	// NewSource overrides the MediaPipe landmark source.
	NewSource func() detector.Source

	// Scheduler overrides the frame-rate ticker.
	Scheduler tryon.Scheduler

	// Selection is used when no selection has been saved yet.
	Selection material.Selection

	RestartDelay time.Duration
}

// App owns the try-on controller and records what it does.
type App struct {
	config      Config
	controller  *tryon.Controller
	unsubscribe func()

	mu       sync.Mutex
	closed   bool
	recorded int
}

// New creates the controller, restoring the saved selection.
func New(config Config) *App {
	if config.Camera == nil {
		config.Camera = capture.NewCamera()
	}

	a := &App{config: config}

	tracker := material.NewTracker(a.loadSelection())
	tracker.OnChange(a.saveSelection)

	a.controller = tryon.New(tryon.Options{
		Camera:         config.Camera,
		Constraints:    config.Constraints,
		NewSource:      config.NewSource,
		DetectorConfig: config.Detector,
		Scheduler:      config.Scheduler,
		Selection:      tracker,
		RestartDelay:   config.RestartDelay,
	})
	a.unsubscribe = a.controller.Subscribe(a.record)

	return a
}

// Controller returns the try-on controller.
func (a *App) Controller() *tryon.Controller {
	return a.controller
}

// Sessions returns the session journal, or nil without a store.
func (a *App) Sessions() *store.SessionRepository {
	if a.config.Store == nil {
		return nil
	}
	return a.config.Store.Sessions()
}

// Recorded returns how many sessions this App has journaled.
func (a *App) Recorded() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.recorded
}

// Close stops the camera, journals the final session and releases the
// detector. It does not close the store.
func (a *App) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	err := a.controller.Close()
	a.unsubscribe()
	return errors.Wrap(err, "close try-on controller")
}

func (a *App) loadSelection() material.Selection {
	fallback := a.config.Selection.Normalize()
	if a.config.Store == nil {
		return fallback
	}

	var sel material.Selection
	err := a.config.Store.Settings().GetJSON(store.KeySelection, &sel)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fallback
	case err != nil:
		log.Warn().Err(err).Msg("saved selection unreadable, using default")
		return fallback
	}

	log.Debug().Str("metal", sel.Metal).Float64("carat", sel.Carat).Msg("restored selection")
	return sel.Normalize()
}

func (a *App) saveSelection(sel material.Selection) {
	if a.config.Store == nil {
		return
	}
	if err := a.config.Store.Settings().SetJSON(store.KeySelection, sel); err != nil {
		log.Error().Err(err).Msg("save selection")
	}
}
