// Package chat simulates the party group chat: each selected persona replies
// to a user message with text that reflects the world and the active quests.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/kasuganosora/miniworld/server/cache"
	"github.com/kasuganosora/miniworld/server/game/quest"
	"github.com/kasuganosora/miniworld/server/store"
	"go.uber.org/zap"
)

const historyKey = "chat:history"

var (
	// ErrUnknownRole is returned when a request names a role with no persona.
	ErrUnknownRole = errors.New("chat: unknown role")
	// ErrEmptyContent is returned for a blank message.
	ErrEmptyContent = errors.New("chat: content is required")
)

// Request is one user message to the group.
type Request struct {
	Content  string   `json:"content"`
	Roles    []string `json:"roles,omitempty"`
	Location string   `json:"location,omitempty"`
}

// Reply is one persona's answer.
type Reply struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Response carries the replies in persona order.
type Response struct {
	Replies []Reply `json:"replies"`
}

// Service wires the world, the quest list and the persona catalog into the
// generator, and keeps a bounded reply history in the cache.
type Service struct {
	store       *store.Store
	quests      *quest.Service
	catalog     *Catalog
	templates   []string
	cache       cache.Cache
	historySize int
	logger      *zap.Logger
}

// NewService creates a chat Service. c may be nil to disable history.
func NewService(st *store.Store, quests *quest.Service, catalog *Catalog, templates []string, c cache.Cache, historySize int, logger *zap.Logger) *Service {
	return &Service{
		store:       st,
		quests:      quests,
		catalog:     catalog,
		templates:   templates,
		cache:       c,
		historySize: historySize,
		logger:      logger,
	}
}

// Catalog returns the persona catalog.
func (svc *Service) Catalog() *Catalog { return svc.catalog }

// Simulate generates one reply per selected persona. A location override
// applies to this request only and is never persisted.
func (svc *Service) Simulate(ctx context.Context, req Request) (*Response, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	personas, err := svc.catalog.Select(req.Roles)
	if err != nil {
		return nil, err
	}

	ws, err := svc.store.World.Load()
	if err != nil {
		return nil, fmt.Errorf("chat: %w", err)
	}
	if req.Location != "" {
		ws = ws.WithLocation(req.Location)
	}
	quests, err := svc.quests.EnsureSeedQuests(ctx, ws)
	if err != nil {
		return nil, fmt.Errorf("chat: %w", err)
	}

	base, err := NewLocalGenerator(ws.Seed, svc.templates)
	if err != nil {
		return nil, err
	}
	gen := NewPersonaAwareGenerator(base, ws, svc.catalog, quest.Digest(quests), svc.logger)

	prompt := strings.Join([]string{
		content,
		"location:" + ws.Location,
		"season:" + ws.Season,
		"events:" + strings.Join(ws.MajorEvents, ", "),
	}, "|")

	resp := &Response{Replies: make([]Reply, 0, len(personas))}
	for _, p := range personas {
		resp.Replies = append(resp.Replies, Reply{Role: p.Name, Text: gen.Generate(p.Name, prompt)})
	}
	svc.remember(ctx, resp.Replies)
	svc.logger.Debug("chat simulated", zap.Int("replies", len(resp.Replies)), zap.String("location", ws.Location))
	return resp, nil
}

// remember pushes replies to the history list. Failures only cost history.
func (svc *Service) remember(ctx context.Context, replies []Reply) {
	if svc.cache == nil || svc.historySize <= 0 || len(replies) == 0 {
		return
	}
	lines := make([]string, 0, len(replies))
	for _, r := range replies {
		b, err := json.Marshal(r)
		if err != nil {
			continue
		}
		lines = append(lines, string(b))
	}
	if err := svc.cache.LPush(ctx, historyKey, lines...); err != nil {
		svc.logger.Warn("chat history push failed", zap.Error(err))
		return
	}
	if err := svc.cache.LTrim(ctx, historyKey, 0, int64(svc.historySize-1)); err != nil {
		svc.logger.Warn("chat history trim failed", zap.Error(err))
	}
}

// History returns up to limit recent replies, oldest first. limit <= 0
// returns the whole retained history.
func (svc *Service) History(ctx context.Context, limit int) ([]Reply, error) {
	if svc.cache == nil {
		return []Reply{}, nil
	}
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	lines, err := svc.cache.LRange(ctx, historyKey, 0, stop)
	if err != nil {
		return nil, fmt.Errorf("chat: history: %w", err)
	}
	out := make([]Reply, 0, len(lines))
	for _, l := range lines {
		var r Reply
		if err := json.Unmarshal([]byte(l), &r); err != nil {
			svc.logger.Warn("skipping bad history entry", zap.Error(err))
			continue
		}
		out = append(out, r)
	}
	slices.Reverse(out)
	return out, nil
}

// ClearHistory drops the retained replies.
func (svc *Service) ClearHistory(ctx context.Context) error {
	if svc.cache == nil {
		return nil
	}
	return svc.cache.Del(ctx, historyKey)
}
