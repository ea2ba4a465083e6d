package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/ayusman/ringfit/internal/preview"
)

// handleStream serves the mirrored camera frame with the ring overlay as
// MJPEG. While the camera is off the stream stays open and sends nothing.
func (s *Server) handleStream(c *gin.Context) {
	w := c.Writer
	w.Header().Set("Content-Type", fmt.Sprintf("multipart/x-mixed-replace; boundary=%s", preview.MJPEGBoundary))
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	ticker := time.NewTicker(time.Second / time.Duration(s.config.StreamFPS))
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		frame, overlay, err := s.config.TryOn.Preview()
		if err != nil {
			continue
		}

		jpeg, err := preview.Frame(frame, overlay, preview.DefaultQuality)
		frame.Close()
		if err != nil {
			log.Warn().Err(err).Msg("encode preview frame")
			continue
		}

		if err := preview.WritePart(w, jpeg); err != nil {
			return
		}
		w.Flush()
	}
}
