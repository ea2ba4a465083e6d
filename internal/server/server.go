// Package server provides the HTTP shell for the ring try-on overlay.
package server

import (
	"context"
	"image"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"github.com/ayusman/ringfit/internal/material"
	"github.com/ayusman/ringfit/internal/store"
	"github.com/ayusman/ringfit/internal/tryon"
)

// TryOn is the part of the try-on controller the shell drives.
type TryOn interface {
	Status() tryon.Status
	Start(ctx context.Context) error
	Stop()
	Restart(ctx context.Context) error
	Subscribe(fn func(tryon.Event)) (unsubscribe func())
	Preview() (*gocv.Mat, *image.RGBA, error)
	Selection() *material.Tracker
}

// SessionLister reads the session journal.
type SessionLister interface {
	List(limit int) ([]*store.Session, error)
}

// Config holds the server configuration.
type Config struct {
	StaticDir string
	TryOn     TryOn
	Sessions  SessionLister

	// StreamFPS caps the MJPEG preview rate (default 15).
	StreamFPS int
}

// Server is the HTTP server for the try-on shell.
type Server struct {
	config Config
	engine *gin.Engine
	start  time.Time
	http   *http.Server
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.StreamFPS <= 0 {
		config.StreamFPS = 15
	}

	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	engine.Use(gin.Recovery(), requestLogger())

	s := &Server{
		config: config,
		engine: engine,
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.engine.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/metals", handleMetals)

	if s.config.TryOn != nil {
		t := api.Group("/tryon")
		t.GET("/status", s.handleStatus)
		t.POST("/start", s.handleStart)
		t.POST("/stop", s.handleStop)
		t.POST("/restart", s.handleRestart)
		t.GET("/stream", s.handleStream)
		t.GET("/ws", s.handleWS)

		api.GET("/selection", s.handleGetSelection)
		api.PUT("/selection", s.handlePutSelection)
	}

	if s.config.Sessions != nil {
		api.GET("/sessions", s.handleSessions)
	}

	// Static files share the root with /api, which gin's router cannot
	// express as a wildcard route.
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.engine.NoRoute(func(c *gin.Context) {
			if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
				c.Status(http.StatusNotFound)
				return
			}
			fs.ServeHTTP(c.Writer, c.Request)
		})
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	})
}

// ListenAndServe starts the HTTP server on addr and blocks until Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops accepting connections and waits for in-flight requests.
// Streaming responses end when their request context is canceled.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("request")
	}
}
