package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/kasuganosora/miniworld/server/model"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	mirrorBuffer   = 1024
	mirrorBatch    = 100
	mirrorInterval = 2 * time.Second
)

// mirror writes audit rows to the database in batches from a background
// worker.
type mirror struct {
	db       *gorm.DB
	ch       chan *model.AuditLog
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	logger   *zap.Logger
}

func newMirror(db *gorm.DB, logger *zap.Logger) *mirror {
	m := &mirror{
		db:     db,
		ch:     make(chan *model.AuditLog, mirrorBuffer),
		stopCh: make(chan struct{}),
		logger: logger,
	}
	m.wg.Add(1)
	go m.worker()
	return m
}

func (m *mirror) enqueue(traceID string, e Entry) {
	payload, _ := json.Marshal(e.Payload)
	row := &model.AuditLog{
		TraceID: traceID,
		Actor:   e.Actor,
		Action:  e.Action,
		ChunkX:  e.Chunk.CX,
		ChunkY:  e.Chunk.CY,
		X:       e.Pos.X,
		Y:       e.Pos.Y,
		Payload: datatypes.JSON(payload),
	}
	select {
	case m.ch <- row:
	default:
		m.logger.Warn("audit mirror full, dropping row", zap.String("action", e.Action))
	}
}

// stop drains pending rows and blocks until the worker has exited.
func (m *mirror) stop(_ context.Context) {
	m.stopOnce.Do(func() { close(m.stopCh) })
	m.wg.Wait()
}

func (m *mirror) worker() {
	defer m.wg.Done()
	ticker := time.NewTicker(mirrorInterval)
	defer ticker.Stop()

	batch := make([]*model.AuditLog, 0, mirrorBatch)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := m.db.Create(&batch).Error; err != nil {
			m.logger.Error("audit mirror batch write failed", zap.Int("rows", len(batch)), zap.Error(err))
		}
		batch = batch[:0]
	}

	for {
		select {
		case row := <-m.ch:
			batch = append(batch, row)
			if len(batch) >= mirrorBatch {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-m.stopCh:
			for {
				select {
				case row := <-m.ch:
					batch = append(batch, row)
				default:
					flush()
					return
				}
			}
		}
	}
}
