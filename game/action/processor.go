package action

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/kasuganosora/miniworld/server/audit"
	"github.com/kasuganosora/miniworld/server/game/world"
	"github.com/kasuganosora/miniworld/server/metrics"
	"github.com/kasuganosora/miniworld/server/store"
	"go.uber.org/zap"
)

// ChangesChannel is the pub/sub channel applied changes are announced on.
const ChangesChannel = "world:changes"

// QuestNotifier receives the change set of every applied action.
type QuestNotifier interface {
	OnActionSuccess(ctx context.Context, req Request, changes []Change) error
}

// Auditor appends to the action log.
type Auditor interface {
	Append(ctx context.Context, e audit.Entry) error
}

// Publisher announces applied changes to listeners. Optional.
type Publisher interface {
	Publish(ctx context.Context, channel, message string) error
}

// ChangeEvent is the message published on ChangesChannel.
type ChangeEvent struct {
	Kind    string   `json:"kind"` // "action" or "tick"
	Actor   string   `json:"actor"`
	Action  string   `json:"action"`
	Changes []Change `json:"changes"`
}

// Processor validates and applies actions. Process holds the store's writer
// lock for the whole pipeline, so calls are serialized.
type Processor struct {
	store     *store.Store
	perms     Permissions
	quests    QuestNotifier
	auditor   Auditor
	publisher Publisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewProcessor wires a Processor. quests and m may be nil.
func NewProcessor(st *store.Store, perms Permissions, quests QuestNotifier, auditor Auditor, m *metrics.Metrics, logger *zap.Logger) *Processor {
	return &Processor{
		store:   st,
		perms:   perms,
		quests:  quests,
		auditor: auditor,
		metrics: m,
		logger:  logger,
	}
}

// SetPublisher enables change announcements.
func (p *Processor) SetPublisher(pub Publisher) { p.publisher = pub }

// Permissions returns the role matrix the processor enforces.
func (p *Processor) Permissions() Permissions { return p.perms }

// Process runs one request through the pipeline. Every rejection before the
// chunk is saved leaves chunks, quests and the audit log untouched. The
// usage ledger is charged once the usage check passes, even if a later rule
// rejects the request.
func (p *Processor) Process(ctx context.Context, req Request) (*Result, error) {
	p.store.Lock()
	defer p.store.Unlock()

	changes, err := p.process(ctx, req)
	outcome := metrics.OutcomeOK
	if err != nil {
		outcome = strings.ToLower(string(CodeOf(err)))
		p.logRejection(req, err)
	}
	p.metrics.ActionObserved(string(req.Type), outcome)
	if err != nil {
		return nil, err
	}
	return &Result{Success: true, Message: "action applied", Changes: changes}, nil
}

func (p *Processor) process(ctx context.Context, req Request) ([]Change, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	// 1. role
	perm, ok := p.perms.Lookup(req.Actor)
	if !ok {
		return nil, newError(CodeUnknownActor, "unknown actor %q", req.Actor)
	}
	// 2. authorization
	if !perm.Allows(req.Type) {
		return nil, newError(CodeForbidden, "%s may not perform %s", req.Actor, req.Type)
	}
	// 3. forbidden regions
	if perm.InForbiddenRegion(req.Chunk, req.Pos) {
		return nil, newError(CodeForbidden, "position %s in chunk %s is forbidden for %s", req.Pos, req.Chunk, req.Actor)
	}
	// 4. quota and cooldown
	err := p.store.Usage.CheckAndRecord(req.Actor, string(req.Type), req.ClientTS, perm.Quota(req.Type), perm.Cooldown(req.Type))
	switch {
	case errors.Is(err, store.ErrQuotaExceeded):
		return nil, wrapError(CodeRateLimited, err, "daily quota reached")
	case errors.Is(err, store.ErrCooldownActive):
		return nil, wrapError(CodeRateLimited, err, "action is cooling down")
	case err != nil:
		return nil, wrapError(CodeInternal, err, "usage ledger unavailable")
	}
	// 5. chunk and bounds
	chunk, err := p.store.Chunks.Load(req.Chunk.CX, req.Chunk.CY)
	if err != nil {
		return nil, wrapError(CodeInternal, err, "load chunk")
	}
	if !chunk.InBounds(req.Pos.X, req.Pos.Y) {
		return nil, newError(CodeInvalidPosition, "position %s outside chunk of size %d", req.Pos, chunk.Size)
	}
	// 6. rules and mutation
	change, err := applyRule(req, chunk, perm)
	if err != nil {
		return nil, err
	}
	changes := []Change{change}
	// 7. persist
	if err := p.store.Chunks.Save(chunk); err != nil {
		return nil, wrapError(CodeInternal, err, "save chunk")
	}
	// 8. audit
	payload := req.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	if err := p.auditor.Append(ctx, audit.Entry{
		Actor:   req.Actor,
		Action:  string(req.Type),
		Chunk:   req.Chunk,
		Pos:     req.Pos,
		Payload: payload,
	}); err != nil {
		return nil, wrapError(CodeInternal, err, "append audit log")
	}
	// 9. quests
	if p.quests != nil {
		if err := p.quests.OnActionSuccess(ctx, req, changes); err != nil {
			p.metrics.QuestProgressFailed()
			p.logger.Error("quest progression failed after applied action",
				zap.String("actor", req.Actor),
				zap.String("action", string(req.Type)),
				zap.Error(err))
		}
	}
	p.publish(ctx, ChangeEvent{Kind: "action", Actor: req.Actor, Action: string(req.Type), Changes: changes})

	p.logger.Info("action applied",
		zap.String("actor", req.Actor),
		zap.String("action", string(req.Type)),
		zap.Int("cx", req.Chunk.CX), zap.Int("cy", req.Chunk.CY),
		zap.Int("x", req.Pos.X), zap.Int("y", req.Pos.Y))
	// 10. done
	return changes, nil
}

func (p *Processor) publish(ctx context.Context, ev ChangeEvent) {
	if p.publisher == nil {
		return
	}
	PublishChanges(ctx, p.publisher, ev, p.logger)
}

// PublishChanges encodes ev and publishes it on ChangesChannel. Failures are
// logged; listeners are best effort.
func PublishChanges(ctx context.Context, pub Publisher, ev ChangeEvent, logger *zap.Logger) {
	msg, err := json.Marshal(ev)
	if err != nil {
		logger.Warn("encode change event", zap.Error(err))
		return
	}
	if err := pub.Publish(ctx, ChangesChannel, string(msg)); err != nil {
		logger.Warn("publish change event", zap.String("kind", ev.Kind), zap.Error(err))
	}
}

func (p *Processor) logRejection(req Request, err error) {
	fields := []zap.Field{
		zap.String("actor", req.Actor),
		zap.String("action", string(req.Type)),
		zap.Error(err),
	}
	if CodeOf(err) == CodeInternal {
		p.logger.Error("action failed", fields...)
		return
	}
	p.logger.Info("action rejected", fields...)
}

func validateRequest(req Request) error {
	if !req.Type.Valid() {
		return newError(CodeInvalidPayload, "unknown action type %q", req.Type)
	}
	if req.Actor == "" {
		return newError(CodeUnknownActor, "actor is required")
	}
	if req.Pos.Negative() {
		return newError(CodeInvalidPosition, "position %s must be non-negative", req.Pos)
	}
	return nil
}

// cellChange records the transition of one cell and applies it to chunk.
func cellChange(req Request, chunk *world.Chunk, before, after world.Cell) (Change, error) {
	if err := chunk.ApplyCell(req.Pos.X, req.Pos.Y, after); err != nil {
		return Change{}, wrapError(CodeInternal, err, "apply cell")
	}
	return Change{Chunk: req.Chunk, Pos: req.Pos, Before: before, After: after}, nil
}
