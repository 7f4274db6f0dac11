package quest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kasuganosora/miniworld/server/audit"
	"github.com/kasuganosora/miniworld/server/game/action"
	"github.com/kasuganosora/miniworld/server/game/world"
	"github.com/kasuganosora/miniworld/server/metrics"
	"github.com/kasuganosora/miniworld/server/store"
	"go.uber.org/zap"
)

// ActionQuestDone is the audit action recorded when a quest completes.
const ActionQuestDone = "QUEST_DONE"

// Service owns the quest list document and advances quests from applied
// actions.
type Service struct {
	mu      sync.Mutex
	doc     *store.Doc[[]Quest]
	auditor action.Auditor
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewService creates a quest Service over the store's quest document.
func NewService(st *store.Store, auditor action.Auditor, m *metrics.Metrics, logger *zap.Logger) *Service {
	return &Service{
		doc:     store.NewDoc[[]Quest](st.QuestsPath()),
		auditor: auditor,
		metrics: m,
		logger:  logger,
	}
}

// List returns every quest in stored order.
func (svc *Service) List(_ context.Context) ([]Quest, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.load()
}

// Save replaces the whole quest list.
func (svc *Service) Save(_ context.Context, quests []Quest) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.save(quests)
}

func (svc *Service) load() ([]Quest, error) {
	quests, _, err := svc.doc.Load()
	if err != nil {
		return nil, err
	}
	if err := validateAll(quests); err != nil {
		return nil, fmt.Errorf("quest: %s: %w", svc.doc.Path(), err)
	}
	if quests == nil {
		quests = []Quest{}
	}
	return quests, nil
}

func (svc *Service) save(quests []Quest) error {
	if err := validateAll(quests); err != nil {
		return fmt.Errorf("quest: %w", err)
	}
	if quests == nil {
		quests = []Quest{}
	}
	return svc.doc.Save(quests)
}

func validateAll(quests []Quest) error {
	seen := make(map[string]bool, len(quests))
	for _, q := range quests {
		if err := q.Validate(); err != nil {
			return err
		}
		if seen[q.ID] {
			return fmt.Errorf("duplicate quest id %q", q.ID)
		}
		seen[q.ID] = true
	}
	return nil
}

// OnActionSuccess advances every unfinished quest whose requirements match
// the applied changes. The quest file is rewritten only when something
// moved.
func (svc *Service) OnActionSuccess(ctx context.Context, req action.Request, changes []action.Change) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	quests, err := svc.load()
	if err != nil {
		return err
	}

	var completed []string
	updated := false
	for i := range quests {
		q := &quests[i]
		if q.Status == StatusDone {
			continue
		}
		changed := false
		for j := range q.Requirements {
			r := &q.Requirements[j]
			for _, c := range changes {
				if r.Matches(c, req.Type) && r.Apply(c) {
					changed = true
				}
			}
		}
		if !changed {
			continue
		}
		updated = true
		q.UpdatedAt = req.ClientTS
		if q.Status == StatusOpen {
			q.Status = StatusInProgress
		}
		if q.Completed() {
			q.Status = StatusDone
			completed = append(completed, q.ID)
		}
	}
	if !updated {
		return nil
	}
	if err := svc.save(quests); err != nil {
		return err
	}

	for _, id := range completed {
		svc.metrics.QuestCompleted()
		svc.logger.Info("quest completed", zap.String("quest_id", id), zap.String("actor", req.Actor))
		if err := svc.auditor.Append(ctx, audit.Entry{
			Actor:   audit.SystemActor,
			Action:  ActionQuestDone,
			Chunk:   req.Chunk,
			Pos:     req.Pos,
			Payload: map[string]any{"quest_id": id, "actor": req.Actor},
		}); err != nil {
			return fmt.Errorf("quest: audit completion of %s: %w", id, err)
		}
	}
	return nil
}

// EnsureSeedQuests writes the starter quests if the list is empty and
// returns the current list either way.
func (svc *Service) EnsureSeedQuests(_ context.Context, ws world.State) ([]Quest, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	quests, err := svc.load()
	if err != nil {
		return nil, err
	}
	if len(quests) > 0 {
		return quests, nil
	}
	quests = SeedQuests(ws)
	if err := svc.save(quests); err != nil {
		return nil, err
	}
	svc.logger.Info("seed quests created", zap.Int("count", len(quests)), zap.Int64("seed", ws.Seed))
	return quests, nil
}

// Digest summarizes quests for chat prompts, e.g.
// "Lay the main road(status:OPEN, remaining:40) | ...".
func Digest(quests []Quest) string {
	parts := make([]string, 0, len(quests))
	for _, q := range quests {
		parts = append(parts, fmt.Sprintf("%s(status:%s, remaining:%d)", q.Title, q.Status, q.Remaining()))
	}
	return strings.Join(parts, " | ")
}
