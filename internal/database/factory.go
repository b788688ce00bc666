package database

import (
	"fmt"
	"os"
	"path/filepath"

	"tagflow/internal/catalog"
	"tagflow/internal/config"
	"tagflow/internal/database/migrations"
)

// DatabaseFileName is the catalog file created under data_dir.
const DatabaseFileName = "tagflow.db"

// NewDatabaseFromConfig opens the catalog database described by cfg and
// brings its schema up to date.
func NewDatabaseFromConfig(cfg config.DatabaseConfig, clock catalog.Clock, logger catalog.Logger) (catalog.Database, error) {
	var path string
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data dir: %w", err)
		}
		path = filepath.Join(cfg.DataDir, DatabaseFileName)
	case "memory":
		path = memoryPath
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}

	db, err := NewSQLiteDatabase(path, clock, logger)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(db.DB()); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	if err := migrations.CheckDBMigrationStatus(db.DB()); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
