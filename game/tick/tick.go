// Package tick advances world time. Each tick grows every sapling by one
// stage and turns it into a tree once it reaches the configured step count.
package tick

import (
	"context"
	"fmt"

	"github.com/kasuganosora/miniworld/server/audit"
	"github.com/kasuganosora/miniworld/server/game/action"
	"github.com/kasuganosora/miniworld/server/game/world"
	"github.com/kasuganosora/miniworld/server/metrics"
	"github.com/kasuganosora/miniworld/server/store"
	"go.uber.org/zap"
)

// ActionWorldTick is the audit action recorded for a tick that changed cells.
const ActionWorldTick = "WORLD_TICK"

// Result lists the cells changed by one tick.
type Result struct {
	Message string          `json:"message"`
	Changes []action.Change `json:"changes"`
}

// Runner applies world ticks.
type Runner struct {
	store     *store.Store
	auditor   action.Auditor
	publisher action.Publisher
	metrics   *metrics.Metrics
	growSteps int
	logger    *zap.Logger
}

// NewRunner creates a Runner. growSteps is the number of ticks a sapling
// needs to mature and must be at least 1.
func NewRunner(st *store.Store, auditor action.Auditor, growSteps int, m *metrics.Metrics, logger *zap.Logger) *Runner {
	return &Runner{
		store:     st,
		auditor:   auditor,
		metrics:   m,
		growSteps: max(growSteps, 1),
		logger:    logger,
	}
}

// SetPublisher enables change announcements.
func (r *Runner) SetPublisher(pub action.Publisher) { r.publisher = pub }

// Run performs one tick. It holds the store's writer lock so no action
// interleaves with it. Changed chunks are saved before the audit entry is
// written; a tick with no sapling writes nothing.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	r.store.Lock()
	defer r.store.Unlock()

	var changes []action.Change
	for chunk, err := range r.store.Chunks.All() {
		if err != nil {
			return nil, fmt.Errorf("tick: %w", err)
		}
		grown, err := r.grow(chunk)
		if err != nil {
			return nil, err
		}
		if len(grown) == 0 {
			continue
		}
		if err := r.store.Chunks.Save(chunk); err != nil {
			return nil, fmt.Errorf("tick: save chunk %s: %w", chunk.Coord(), err)
		}
		changes = append(changes, grown...)
	}

	r.metrics.TickApplied(len(changes))
	if len(changes) == 0 {
		r.logger.Debug("world tick: nothing to grow")
		return &Result{Message: "world tick complete", Changes: []action.Change{}}, nil
	}

	first := changes[0]
	if err := r.auditor.Append(ctx, audit.Entry{
		Actor:   audit.SystemActor,
		Action:  ActionWorldTick,
		Chunk:   first.Chunk,
		Pos:     first.Pos,
		Payload: map[string]any{"change_count": len(changes)},
	}); err != nil {
		return nil, fmt.Errorf("tick: audit: %w", err)
	}
	if r.publisher != nil {
		action.PublishChanges(ctx, r.publisher, action.ChangeEvent{
			Kind:    "tick",
			Actor:   audit.SystemActor,
			Action:  ActionWorldTick,
			Changes: changes,
		}, r.logger)
	}
	r.logger.Info("world tick applied", zap.Int("changes", len(changes)))
	return &Result{Message: "world tick complete", Changes: changes}, nil
}

// grow advances every sapling in chunk, row by row.
func (r *Runner) grow(chunk *world.Chunk) ([]action.Change, error) {
	var out []action.Change
	for y := range chunk.Size {
		for x := range chunk.Size {
			before, err := chunk.CellAt(x, y)
			if err != nil {
				return nil, fmt.Errorf("tick: %w", err)
			}
			if !before.Deco.Growable() {
				continue
			}
			after := before
			stage, _ := before.Growth.Get()
			if next := stage + 1; next >= r.growSteps {
				after.Deco = before.Deco.Matured()
				after.Growth = world.Stage{}
			} else {
				after.Growth = world.StageOf(next)
			}
			if err := chunk.ApplyCell(x, y, after); err != nil {
				return nil, fmt.Errorf("tick: %w", err)
			}
			out = append(out, action.Change{
				Chunk:  chunk.Coord(),
				Pos:    world.Pos{X: x, Y: y},
				Before: before,
				After:  after,
			})
		}
	}
	return out, nil
}
