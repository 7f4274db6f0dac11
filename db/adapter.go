package db

import (
	"fmt"

	"github.com/kasuganosora/miniworld/server/config"
	dbmysql "github.com/kasuganosora/miniworld/server/db/mysql"
	dbsqlite "github.com/kasuganosora/miniworld/server/db/sqlite"
	"github.com/kasuganosora/miniworld/server/model"
	"gorm.io/gorm"
)

const (
	ModeNone   = "none"
	ModeMemory = "memory"
	ModeSQLite = "sqlite"
	ModeMySQL  = "mysql"
)

// Open returns a *gorm.DB for the configured database mode. ModeNone (or an
// empty mode) returns a nil DB: the audit mirror is then disabled.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	switch cfg.Mode {
	case ModeNone, "":
		return nil, nil
	case ModeMemory:
		return dbsqlite.OpenMemory()
	case ModeSQLite:
		return dbsqlite.Open(cfg.SQLitePath)
	case ModeMySQL:
		return dbmysql.Open(cfg.MySQLDSN, cfg.MySQLMaxOpen, cfg.MySQLMaxIdle, cfg.MySQLMaxLife)
	default:
		return nil, fmt.Errorf("db: unknown mode %q", cfg.Mode)
	}
}

// OpenAndMigrate opens the database and migrates every model. It returns a
// nil DB for ModeNone.
func OpenAndMigrate(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gdb, err := Open(cfg)
	if err != nil || gdb == nil {
		return gdb, err
	}
	if err := model.AutoMigrate(gdb); err != nil {
		return nil, fmt.Errorf("db: migrate: %w", err)
	}
	return gdb, nil
}
