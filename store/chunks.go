package store

import (
	"cmp"
	"encoding/json"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/kasuganosora/miniworld/server/game/world"
	"go.uber.org/zap"
)

// ChunkStore owns every chunk document under dir. Loaded and saved chunks
// are cached by coordinate; callers always receive a private copy.
type ChunkStore struct {
	dir    string
	size   int
	mu     sync.RWMutex
	cache  map[world.Coord]*world.Chunk
	logger *zap.Logger
}

func newChunkStore(dir string, size int, logger *zap.Logger) *ChunkStore {
	return &ChunkStore{
		dir:    dir,
		size:   size,
		cache:  make(map[world.Coord]*world.Chunk),
		logger: logger,
	}
}

// Size is the configured chunk side length.
func (s *ChunkStore) Size() int { return s.size }

func (s *ChunkStore) path(c world.Coord) string {
	return filepath.Join(s.dir, c.Key()+".json")
}

// Load returns the chunk at (cx, cy). A chunk that was never saved is
// synthesized as all grass and is not written until Save.
func (s *ChunkStore) Load(cx, cy int) (*world.Chunk, error) {
	coord := world.Coord{CX: cx, CY: cy}

	s.mu.RLock()
	cached, ok := s.cache[coord]
	s.mu.RUnlock()
	if ok {
		return cached.Clone(), nil
	}

	c, found, err := s.read(coord)
	if err != nil {
		return nil, err
	}
	if !found {
		return world.NewChunk(cx, cy, s.size), nil
	}

	s.mu.Lock()
	// A concurrent Save may have won; its copy is newer than what we read.
	if existing, ok := s.cache[coord]; ok {
		c = existing
	} else {
		s.cache[coord] = c
	}
	s.mu.Unlock()
	return c.Clone(), nil
}

func (s *ChunkStore) read(coord world.Coord) (*world.Chunk, bool, error) {
	path := s.path(coord)
	data, found, err := readFile(path)
	if err != nil || !found {
		return nil, false, err
	}
	var c world.Chunk
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, false, fmt.Errorf("store: decode %s: %w", path, err)
	}
	if c.CX != coord.CX || c.CY != coord.CY {
		return nil, false, fmt.Errorf("store: %s holds chunk %s", path, c.Coord())
	}
	if c.Size != s.size {
		return nil, false, fmt.Errorf("store: %s has size %d, configured %d", path, c.Size, s.size)
	}
	if err := c.Validate(); err != nil {
		return nil, false, fmt.Errorf("store: %s: %w", path, err)
	}
	s.logger.Debug("chunk loaded from disk", zap.Int("cx", c.CX), zap.Int("cy", c.CY))
	return &c, true, nil
}

// Save persists the whole chunk and refreshes the cache.
func (s *ChunkStore) Save(c *world.Chunk) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("store: refusing to save chunk %s: %w", c.Coord(), err)
	}
	snapshot := c.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeJSON(s.path(snapshot.Coord()), snapshot); err != nil {
		return err
	}
	s.cache[snapshot.Coord()] = snapshot
	return nil
}

// Coords lists every persisted chunk coordinate ordered by (cx, cy).
func (s *ChunkStore) Coords() ([]world.Coord, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan %s: %w", s.dir, err)
	}
	var coords []world.Coord
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		coord, ok := parseChunkName(e.Name())
		if !ok {
			continue
		}
		coords = append(coords, coord)
	}
	slices.SortFunc(coords, func(a, b world.Coord) int {
		return cmp.Or(cmp.Compare(a.CX, b.CX), cmp.Compare(a.CY, b.CY))
	})
	return coords, nil
}

// All yields every persisted chunk in coordinate order. The directory is
// rescanned on each call, so the sequence can be ranged over repeatedly.
// A scan or decode failure is yielded once and ends the sequence.
func (s *ChunkStore) All() iter.Seq2[*world.Chunk, error] {
	return func(yield func(*world.Chunk, error) bool) {
		coords, err := s.Coords()
		if err != nil {
			yield(nil, err)
			return
		}
		for _, coord := range coords {
			c, err := s.Load(coord.CX, coord.CY)
			if !yield(c, err) || err != nil {
				return
			}
		}
	}
}

func parseChunkName(name string) (world.Coord, bool) {
	base, ok := strings.CutSuffix(name, ".json")
	if !ok {
		return world.Coord{}, false
	}
	xs, ys, ok := strings.Cut(base, "_")
	if !ok {
		return world.Coord{}, false
	}
	cx, err := strconv.Atoi(xs)
	if err != nil {
		return world.Coord{}, false
	}
	cy, err := strconv.Atoi(ys)
	if err != nil {
		return world.Coord{}, false
	}
	return world.Coord{CX: cx, CY: cy}, true
}
