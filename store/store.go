// Package store is the file-backed persistence layer: one JSON document per
// chunk, plus documents for world state, quests and the usage ledger.
//
// Layout under the root directory:
//
//	world/chunks/{cx}_{cy}.json
//	world/world_state.json
//	world/quests.json
//	world/actor_usage.json
//	logs/actions.log
//
// The store assumes it is the only process writing to root.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/kasuganosora/miniworld/server/game/world"
	"go.uber.org/zap"
)

const (
	worldDir       = "world"
	chunksDir      = "chunks"
	worldStateFile = "world_state.json"
	questsFile     = "quests.json"
	usageDocFile   = "actor_usage.json"
	logsDir        = "logs"
	auditFile      = "actions.log"
)

// Options configures a Store.
type Options struct {
	ChunkSize    int
	DefaultWorld world.State
}

// Store groups the persisted documents of one world and the writer lock that
// serializes mutations across them.
type Store struct {
	root   string
	writer sync.Mutex

	Chunks *ChunkStore
	World  *WorldStore
	Usage  *Ledger
}

// Open prepares root and returns a Store over it. Documents are read lazily.
func Open(root string, opts Options, logger *zap.Logger) (*Store, error) {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = world.DefaultChunkSize
	}
	if opts.DefaultWorld.Location == "" {
		opts.DefaultWorld = world.DefaultState()
	}
	if err := opts.DefaultWorld.Validate(); err != nil {
		return nil, fmt.Errorf("store: default %w", err)
	}
	for _, dir := range []string{
		filepath.Join(root, worldDir, chunksDir),
		filepath.Join(root, logsDir),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: mkdir %s: %w", dir, err)
		}
	}
	st := &Store{root: root}
	st.Chunks = newChunkStore(filepath.Join(root, worldDir, chunksDir), opts.ChunkSize, logger)
	st.World = &WorldStore{
		doc: NewDoc[world.State](filepath.Join(root, worldDir, worldStateFile)),
		def: opts.DefaultWorld,
	}
	st.Usage = &Ledger{
		doc:    NewDoc[usageFile](filepath.Join(root, worldDir, usageDocFile)),
		logger: logger,
	}
	logger.Info("store opened", zap.String("root", root), zap.Int("chunk_size", opts.ChunkSize))
	return st, nil
}

// Root returns the data directory.
func (s *Store) Root() string { return s.root }

// QuestsPath is the quest list document.
func (s *Store) QuestsPath() string { return filepath.Join(s.root, worldDir, questsFile) }

// AuditPath is the append-only action log.
func (s *Store) AuditPath() string { return filepath.Join(s.root, logsDir, auditFile) }

// Lock acquires the process-wide writer lock. Every read-modify-write
// sequence spanning chunks, usage and quests must hold it.
func (s *Store) Lock() { s.writer.Lock() }

// Unlock releases the writer lock.
func (s *Store) Unlock() { s.writer.Unlock() }
