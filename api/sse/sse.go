package sse

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/miniworld/server/cache"
	"github.com/kasuganosora/miniworld/server/config"
	"github.com/kasuganosora/miniworld/server/game/action"
	"go.uber.org/zap"
)

const defaultKeepalive = 30 * time.Second

// Handler handles the SSE endpoint.
type Handler struct {
	pubsub    cache.PubSub
	sec       config.SecurityConfig
	keepalive time.Duration
	logger    *zap.Logger
}

// NewHandler creates a new SSE Handler.
func NewHandler(pubsub cache.PubSub, sec config.SecurityConfig, logger *zap.Logger) *Handler {
	return &Handler{pubsub: pubsub, sec: sec, keepalive: defaultKeepalive, logger: logger}
}

// SetKeepalive changes the interval between keepalive comments.
func (h *Handler) SetKeepalive(d time.Duration) { h.keepalive = d }

// ServeSSE handles GET /api/events.
// It streams every world change published on the changes channel as a
// "change" event carrying the JSON change event.
func (h *Handler) ServeSSE(c *gin.Context) {
	if origin := c.GetHeader("Origin"); origin != "" && len(h.sec.AllowedOrigins) > 0 {
		if !slices.Contains(h.sec.AllowedOrigins, origin) {
			c.JSON(http.StatusForbidden, gin.H{"error": "origin not allowed"})
			return
		}
		c.Header("Access-Control-Allow-Origin", origin)
	}

	subCtx, subCancel := context.WithCancel(c.Request.Context())
	defer subCancel()

	msgCh, unsub, err := h.pubsub.Subscribe(subCtx, action.ChangesChannel)
	if err != nil {
		h.logger.Error("sse subscribe failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "event stream unavailable"})
		return
	}
	defer unsub()

	// Set SSE headers.
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	// Send initial connected event.
	fmt.Fprintf(c.Writer, "event: connected\ndata: {}\n\n")
	c.Writer.Flush()

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	var seq int64
	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				return
			}
			seq++
			fmt.Fprintf(c.Writer, "id: %d\nevent: change\ndata: %s\n\n", seq, msg.Payload)
			c.Writer.Flush()

		case <-ticker.C:
			// Keepalive comment to prevent proxy timeouts.
			fmt.Fprintf(c.Writer, ": keepalive\n\n")
			c.Writer.Flush()

		case <-c.Request.Context().Done():
			return
		}
	}
}
