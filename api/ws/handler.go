package ws

import (
	"context"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/kasuganosora/miniworld/server/cache"
	"github.com/kasuganosora/miniworld/server/config"
	"github.com/kasuganosora/miniworld/server/game/action"
	"go.uber.org/zap"
)

// Handler is the Gin handler for GET /api/ws.
type Handler struct {
	pubsub   cache.PubSub
	sm       *SessionManager
	router   *Router
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a new WebSocket Handler.
// sec.AllowedOrigins controls which WebSocket origins are accepted.
// An empty slice permits all origins (development only).
func NewHandler(pubsub cache.PubSub, sec config.SecurityConfig, sm *SessionManager, router *Router, logger *zap.Logger) *Handler {
	h := &Handler{
		pubsub: pubsub,
		sm:     sm,
		router: router,
		logger: logger,
	}
	allowed := sec.AllowedOrigins
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowed) == 0 {
				return true // dev mode: allow all
			}
			return slices.Contains(allowed, r.Header.Get("Origin"))
		},
	}
	return h
}

// StartRelay subscribes to world changes and forwards each one to every
// session as a "world_change" packet until ctx is done.
func (h *Handler) StartRelay(ctx context.Context) error {
	msgCh, unsub, err := h.pubsub.Subscribe(ctx, action.ChangesChannel)
	if err != nil {
		return err
	}
	go func() {
		defer unsub()
		for {
			select {
			case msg, ok := <-msgCh:
				if !ok {
					return
				}
				data := []byte(`{"type":"` + TypeWorldChange + `","payload":` + msg.Payload + `}`)
				h.sm.BroadcastAll(data)
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// ServeWS upgrades the connection and runs the read pump until it closes.
func (h *Handler) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}

	sess := NewSession(conn, h.logger)
	h.sm.Register(sess)
	sess.Send(0, TypeWelcome, map[string]string{"session_id": sess.ID})
	h.readPump(c.Request.Context(), sess)
}

// readPump reads messages from the connection and dispatches them.
func (h *Handler) readPump(ctx context.Context, s *Session) {
	defer func() {
		s.Close()
		h.sm.Unregister(s.ID)
	}()

	s.SetReadDeadline()
	s.Conn.SetPongHandler(func(string) error {
		s.SetReadDeadline()
		return nil
	})

	for {
		_, raw, err := s.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
				websocket.CloseNoStatusReceived) {
				h.logger.Warn("ws unexpected close", zap.String("session_id", s.ID), zap.Error(err))
			}
			return
		}
		s.SetReadDeadline()
		h.router.Dispatch(ctx, s, raw)
	}
}
