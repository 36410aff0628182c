package sqlite

import (
	"context"
	"path/filepath"
	"testing"
)

// setupTestPool opens a migrated database in a temp directory and registers
// cleanup.
func setupTestPool(t *testing.T) *ConnectionPool {
	t.Helper()

	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "test.db")

	pool, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() {
		_ = pool.Close()
	})

	if err := pool.Migrate(context.Background()); err != nil {
		t.Fatalf("Failed to migrate schema: %v", err)
	}

	return pool
}

func TestConnectionPool_Ping(t *testing.T) {
	pool := setupTestPool(t)

	if err := pool.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}

func TestConnectionPool_MigrateIdempotent(t *testing.T) {
	pool := setupTestPool(t)

	// A second run must not fail; every statement is IF NOT EXISTS.
	if err := pool.Migrate(context.Background()); err != nil {
		t.Fatalf("Second Migrate failed: %v", err)
	}
}
