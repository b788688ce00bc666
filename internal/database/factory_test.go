package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"tagflow/internal/config"
)

func TestNewDatabaseFromConfig(t *testing.T) {
	t.Run("memory database", func(t *testing.T) {
		got, err := NewDatabaseFromConfig(config.DatabaseConfig{Type: "memory"}, nil, nil)
		if err != nil {
			t.Fatalf("NewDatabaseFromConfig() unexpected error: %v", err)
		}
		defer got.Close()

		libs, err := got.ListLibraries(context.Background())
		if err != nil {
			t.Fatalf("ListLibraries() on migrated database error = %v", err)
		}
		if len(libs) != 0 {
			t.Errorf("len(libraries) = %d, want 0", len(libs))
		}
	})

	t.Run("sqlite database creates data dir", func(t *testing.T) {
		dataDir := filepath.Join(t.TempDir(), "nested", "db")
		got, err := NewDatabaseFromConfig(config.DatabaseConfig{Type: "sqlite", DataDir: dataDir}, nil, nil)
		if err != nil {
			t.Fatalf("NewDatabaseFromConfig() unexpected error: %v", err)
		}
		defer got.Close()

		if _, err := os.Stat(filepath.Join(dataDir, DatabaseFileName)); err != nil {
			t.Errorf("database file not created: %v", err)
		}
	})

	t.Run("sqlite database reopens existing file", func(t *testing.T) {
		dataDir := t.TempDir()
		cfg := config.DatabaseConfig{Type: "sqlite", DataDir: dataDir}

		first, err := NewDatabaseFromConfig(cfg, nil, nil)
		if err != nil {
			t.Fatalf("first open error = %v", err)
		}
		first.Close()

		second, err := NewDatabaseFromConfig(cfg, nil, nil)
		if err != nil {
			t.Fatalf("second open error = %v", err)
		}
		second.Close()
	})

	t.Run("sqlite database without data_dir", func(t *testing.T) {
		got, err := NewDatabaseFromConfig(config.DatabaseConfig{Type: "sqlite"}, nil, nil)
		if err == nil {
			t.Error("NewDatabaseFromConfig() expected error for missing data_dir, got nil")
		}
		if got != nil {
			t.Error("NewDatabaseFromConfig() should return nil on error")
			got.Close()
		}
	})

	t.Run("unknown database type", func(t *testing.T) {
		got, err := NewDatabaseFromConfig(config.DatabaseConfig{Type: "unknown"}, nil, nil)
		if err == nil {
			t.Error("NewDatabaseFromConfig() expected error for unknown type, got nil")
		}
		if got != nil {
			t.Error("NewDatabaseFromConfig() should return nil on error")
			got.Close()
		}
	})
}
