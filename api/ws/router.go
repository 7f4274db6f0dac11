package ws

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/kasuganosora/miniworld/server/audit"
	"go.uber.org/zap"
)

// HandlerFunc processes one decoded packet.
type HandlerFunc func(ctx context.Context, s *Session, pkt Packet) error

// Router dispatches incoming WS packets to registered handlers.
type Router struct {
	handlers map[string]HandlerFunc
	logger   *zap.Logger
}

// NewRouter creates a new Router.
func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		handlers: make(map[string]HandlerFunc),
		logger:   logger,
	}
}

// On registers fn for the given message type.
func (r *Router) On(msgType string, fn HandlerFunc) {
	r.handlers[msgType] = fn
}

// Dispatch decodes raw bytes, checks seq and invokes the matching handler.
// Each dispatch gets a fresh trace id that follows the packet into the audit
// log.
func (r *Router) Dispatch(ctx context.Context, s *Session, raw []byte) {
	var pkt Packet
	if err := json.Unmarshal(raw, &pkt); err != nil {
		r.logger.Warn("malformed packet", zap.String("session_id", s.ID), zap.Error(err))
		s.Send(0, TypeError, errorPayload{Error: "malformed packet", Code: CodeBadPacket})
		return
	}

	// Monotonic seq check (anti-replay). Seq == 0 means no seq tracking.
	if pkt.Seq != 0 && pkt.Seq <= s.LastSeq {
		r.logger.Warn("replayed or out-of-order packet",
			zap.String("session_id", s.ID),
			zap.Uint64("seq", pkt.Seq),
			zap.Uint64("last_seq", s.LastSeq))
		return
	}
	if pkt.Seq != 0 {
		s.LastSeq = pkt.Seq
	}

	fn, ok := r.handlers[pkt.Type]
	if !ok {
		s.Send(pkt.Seq, TypeError, errorPayload{Error: "unknown message type " + pkt.Type, Code: CodeBadPacket})
		return
	}

	traceID := uuid.NewString()
	if err := fn(audit.WithTraceID(ctx, traceID), s, pkt); err != nil {
		r.logger.Error("ws handler error",
			zap.String("type", pkt.Type),
			zap.String("session_id", s.ID),
			zap.String("trace_id", traceID),
			zap.Error(err))
	}
}
