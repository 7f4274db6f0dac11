package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/kasuganosora/miniworld/server/game/world"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SystemActor is the actor recorded for events not caused by a role.
const SystemActor = "system"

// Entry is one line of the action log.
type Entry struct {
	Actor   string         `json:"actor"`
	Action  string         `json:"action"`
	Chunk   world.Coord    `json:"chunk"`
	Pos     world.Pos      `json:"pos"`
	Payload map[string]any `json:"payload"`
}

// Service appends entries to a line-delimited JSON file. When a database is
// attached every entry is also mirrored there asynchronously; the file stays
// authoritative.
type Service struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	mirror *mirror
	logger *zap.Logger
}

// New opens (or creates) the log at path. db may be nil.
func New(path string, db *gorm.DB, logger *zap.Logger) (*Service, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("audit: mkdir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", path, err)
	}
	svc := &Service{path: path, file: f, logger: logger}
	if db != nil {
		svc.mirror = newMirror(db, logger)
	}
	return svc, nil
}

// Path returns the log file path.
func (svc *Service) Path() string { return svc.path }

// Append writes one entry. The line is on disk when Append returns.
func (svc *Service) Append(ctx context.Context, e Entry) error {
	if e.Payload == nil {
		e.Payload = map[string]any{}
	}
	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("audit: encode %s: %w", e.Action, err)
	}
	line = append(line, '\n')

	svc.mu.Lock()
	if svc.file == nil {
		svc.mu.Unlock()
		return fmt.Errorf("audit: service stopped")
	}
	_, err = svc.file.Write(line)
	svc.mu.Unlock()
	if err != nil {
		svc.logger.Error("audit append failed", zap.String("action", e.Action), zap.Error(err))
		return fmt.Errorf("audit: write: %w", err)
	}

	if svc.mirror != nil {
		svc.mirror.enqueue(TraceID(ctx), e)
	}
	return nil
}

// Stop flushes the mirror and closes the log. It is safe to call twice.
func (svc *Service) Stop(ctx context.Context) {
	if svc.mirror != nil {
		svc.mirror.stop(ctx)
	}
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.file != nil {
		if err := svc.file.Close(); err != nil {
			svc.logger.Warn("audit close", zap.Error(err))
		}
		svc.file = nil
	}
}
