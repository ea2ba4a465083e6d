package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/ayusman/ringfit/internal/material"
	"github.com/ayusman/ringfit/internal/store"
	"github.com/ayusman/ringfit/internal/tryon"
)

const defaultSessionLimit = 20

// statusResponse is a status snapshot plus the badge line shown to the user.
type statusResponse struct {
	tryon.Status
	Badge string `json:"badge"`
}

func newStatusResponse(st tryon.Status) statusResponse {
	return statusResponse{Status: st, Badge: st.Badge()}
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, newStatusResponse(s.config.TryOn.Status()))
}

// handleStart reports camera failures through the returned status; only a
// start that is already acquiring is a request error. The start outlives the
// request: a client that disconnects while the camera warms up still leaves
// it running.
func (s *Server) handleStart(c *gin.Context) {
	err := s.config.TryOn.Start(context.WithoutCancel(c.Request.Context()))
	s.respondAfter(c, err)
}

func (s *Server) handleStop(c *gin.Context) {
	s.config.TryOn.Stop()
	c.JSON(http.StatusOK, newStatusResponse(s.config.TryOn.Status()))
}

func (s *Server) handleRestart(c *gin.Context) {
	err := s.config.TryOn.Restart(context.WithoutCancel(c.Request.Context()))
	s.respondAfter(c, err)
}

func (s *Server) respondAfter(c *gin.Context, err error) {
	st := s.config.TryOn.Status()
	switch {
	case err == nil:
		c.JSON(http.StatusOK, newStatusResponse(st))
	case errors.Is(err, tryon.ErrStartInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "status": newStatusResponse(st)})
	case errors.Is(err, tryon.ErrClosed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		log.Error().Err(err).Msg("try-on request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (s *Server) handleGetSelection(c *gin.Context) {
	c.JSON(http.StatusOK, s.config.TryOn.Selection().Selection())
}

func (s *Server) handlePutSelection(c *gin.Context) {
	var sel material.Selection
	if err := c.ShouldBindJSON(&sel); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid selection: " + err.Error()})
		return
	}
	if sel.Carat < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "carat must not be negative"})
		return
	}

	tracker := s.config.TryOn.Selection()
	if tracker.Set(sel) {
		log.Info().Str("metal", sel.Metal).Float64("carat", sel.Carat).Msg("selection changed")
	}
	c.JSON(http.StatusOK, tracker.Selection())
}

func handleMetals(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"metals": material.Palette})
}

func (s *Server) handleSessions(c *gin.Context) {
	limit := defaultSessionLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	sessions, err := s.config.Sessions.List(limit)
	if err != nil {
		log.Error().Err(err).Msg("list sessions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list sessions"})
		return
	}
	if sessions == nil {
		sessions = []*store.Session{}
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}
