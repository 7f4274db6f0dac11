package model

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog mirrors one line of the action log into the database.
type AuditLog struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	TraceID   string         `gorm:"index:idx_audit_trace;size:36" json:"trace_id"`
	Actor     string         `gorm:"index:idx_audit_actor;size:64;not null" json:"actor"`
	Action    string         `gorm:"size:64;not null" json:"action"`
	ChunkX    int            `gorm:"index:idx_audit_chunk" json:"cx"`
	ChunkY    int            `gorm:"index:idx_audit_chunk" json:"cy"`
	X         int            `json:"x"`
	Y         int            `json:"y"`
	Payload   datatypes.JSON `json:"payload"`
	CreatedAt time.Time      `gorm:"index:idx_audit_created;autoCreateTime:milli" json:"created_at"`
}
