package ws

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/kasuganosora/miniworld/server/game/action"
)

// Message types.
const (
	TypePing         = "ping"
	TypePong         = "pong"
	TypeAction       = "action"
	TypeActionResult = "action_result"
	TypeWelcome      = "welcome"
	TypeWorldChange  = "world_change"
	TypeError        = "error"
)

// CodeBadPacket marks envelopes that could not be routed.
const CodeBadPacket = "BAD_PACKET"

type errorPayload struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// RegisterWorldHandlers wires ping and action handling onto r.
func RegisterWorldHandlers(r *Router, p *action.Processor) {
	r.On(TypePing, handlePing)
	r.On(TypeAction, actionHandler(p))
}

func handlePing(_ context.Context, s *Session, pkt Packet) error {
	var req struct {
		ClientTS int64 `json:"client_ts"`
	}
	if len(pkt.Payload) > 0 {
		_ = json.Unmarshal(pkt.Payload, &req)
	}
	s.Send(pkt.Seq, TypePong, map[string]int64{
		"client_ts": req.ClientTS,
		"server_ts": time.Now().UnixMilli(),
	})
	return nil
}

// actionHandler runs an "action" packet through the processor. Rejections
// are answered with an error packet carrying the action code.
func actionHandler(p *action.Processor) HandlerFunc {
	return func(ctx context.Context, s *Session, pkt Packet) error {
		var req action.Request
		if err := json.Unmarshal(pkt.Payload, &req); err != nil {
			s.Send(pkt.Seq, TypeError, errorPayload{Error: "invalid action: " + err.Error(), Code: string(action.CodeInvalidPayload)})
			return nil
		}
		res, err := p.Process(ctx, req)
		if err != nil {
			var ae *action.Error
			if errors.As(err, &ae) && ae.Code != action.CodeInternal {
				s.Send(pkt.Seq, TypeError, errorPayload{Error: ae.Msg, Code: string(ae.Code)})
				return nil
			}
			s.Send(pkt.Seq, TypeError, errorPayload{Error: "internal error", Code: string(action.CodeInternal)})
			return err
		}
		s.Send(pkt.Seq, TypeActionResult, res)
		return nil
	}
}
