package store

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"sync"

	"go.uber.org/zap"
)

// DayMillis is the length of one usage bucket in client milliseconds.
const DayMillis int64 = 86_400_000

var (
	// ErrQuotaExceeded means the daily count for the action is used up.
	ErrQuotaExceeded = errors.New("store: daily quota exceeded")
	// ErrCooldownActive means the previous accepted action is too recent.
	ErrCooldownActive = errors.New("store: cooldown active")
)

// UsageRecord tracks one (actor, action) pair.
type UsageRecord struct {
	Count  int    `json:"count"`
	Day    *int64 `json:"day"`
	LastTS *int64 `json:"last_ts"`
}

type usageFile map[string]map[string]UsageRecord

// Ledger enforces per-actor daily quotas and cooldowns. The day bucket and
// cooldown are both computed from the caller's client timestamp.
type Ledger struct {
	mu     sync.Mutex
	doc    *Doc[usageFile]
	usage  usageFile
	loaded bool
	logger *zap.Logger
}

// DayBucket returns the day index for a client timestamp.
func DayBucket(clientTS int64) int64 {
	d := clientTS / DayMillis
	if clientTS%DayMillis < 0 {
		d--
	}
	return d
}

func (l *Ledger) load() error {
	if l.loaded {
		return nil
	}
	u, _, err := l.doc.Load()
	if err != nil {
		return err
	}
	if u == nil {
		u = make(usageFile)
	}
	l.usage, l.loaded = u, true
	return nil
}

// CheckAndRecord admits one action for actor or fails with ErrQuotaExceeded
// or ErrCooldownActive. Nil quota or cooldown means unlimited. Nothing is
// changed on failure, including when the write itself fails.
func (l *Ledger) CheckAndRecord(actor, action string, clientTS int64, quota, cooldown *int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.load(); err != nil {
		return err
	}

	rec := l.usage[actor][action]
	day := DayBucket(clientTS)
	if rec.Day == nil || *rec.Day != day {
		rec.Count = 0
		rec.Day = &day
	}
	if quota != nil && rec.Count >= *quota {
		return ErrQuotaExceeded
	}
	if cooldown != nil && rec.LastTS != nil {
		elapsed := float64(clientTS-*rec.LastTS) / 1000
		if elapsed < float64(*cooldown) {
			return ErrCooldownActive
		}
	}
	rec.Count++
	ts := clientTS
	rec.LastTS = &ts

	next := maps.Clone(l.usage)
	actions := maps.Clone(next[actor])
	if actions == nil {
		actions = make(map[string]UsageRecord)
	}
	actions[action] = rec
	next[actor] = actions
	if err := l.doc.Save(next); err != nil {
		l.logger.Error("persist usage ledger", zap.String("actor", actor), zap.Error(err))
		return err
	}
	l.usage = next
	return nil
}

// Record returns a copy of the usage record for (actor, action).
func (l *Ledger) Record(actor, action string) (UsageRecord, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.load(); err != nil {
		return UsageRecord{}, false, err
	}
	rec, ok := l.usage[actor][action]
	return rec, ok, nil
}

// Reset clears every usage record and removes the persisted document.
func (l *Ledger) Reset() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := os.Remove(l.doc.Path()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("store: reset usage: %w", err)
	}
	l.doc = NewDoc[usageFile](l.doc.Path())
	l.usage, l.loaded = make(usageFile), true
	return nil
}
