package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/room-access/internal/persistence"
)

func seedUser(t *testing.T, pool *ConnectionPool, id string) {
	t.Helper()

	if err := NewUserRepository(pool).CreateUser(context.Background(), testUser(id, id+"@example.com")); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
}

func testSession(id, userID string, expiresAt time.Time) persistence.Session {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	return persistence.Session{
		ID:        id,
		UserID:    userID,
		ExpiresAt: expiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestSessionRepository_CreateAndGet(t *testing.T) {
	pool := setupTestPool(t)
	seedUser(t, pool, "user1")
	repo := NewSessionRepository(pool)
	ctx := context.Background()

	expiresAt := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	if _, err := repo.CreateSession(ctx, testSession("session1", "user1", expiresAt)); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	stored, err := repo.GetSession(ctx, "session1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if stored.UserID != "user1" {
		t.Errorf("Expected user1, got %q", stored.UserID)
	}
	if !stored.ExpiresAt.Equal(expiresAt) {
		t.Errorf("Expected expiry %v, got %v", expiresAt, stored.ExpiresAt)
	}
	if stored.RevokedAt != nil {
		t.Errorf("Expected fresh session to not be revoked")
	}
}

func TestSessionRepository_RevokeSession(t *testing.T) {
	pool := setupTestPool(t)
	seedUser(t, pool, "user1")
	repo := NewSessionRepository(pool)
	ctx := context.Background()

	expiresAt := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	if _, err := repo.CreateSession(ctx, testSession("session1", "user1", expiresAt)); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	revokedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	revoked, err := repo.RevokeSession(ctx, "session1", revokedAt)
	if err != nil {
		t.Fatalf("RevokeSession failed: %v", err)
	}
	if revoked.RevokedAt == nil || !revoked.RevokedAt.Equal(revokedAt) {
		t.Errorf("Expected revoked_at %v, got %v", revokedAt, revoked.RevokedAt)
	}

	// Revoking twice misses the revoked_at IS NULL guard.
	if _, err := repo.RevokeSession(ctx, "session1", revokedAt); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for second revoke, got %v", err)
	}
	if _, err := repo.RevokeSession(ctx, "missing", revokedAt); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for unknown session, got %v", err)
	}
}

func TestSessionRepository_DeleteExpiredSessions(t *testing.T) {
	pool := setupTestPool(t)
	seedUser(t, pool, "user1")
	repo := NewSessionRepository(pool)
	ctx := context.Background()

	old := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	fresh := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	if _, err := repo.CreateSession(ctx, testSession("session1", "user1", old)); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if _, err := repo.CreateSession(ctx, testSession("session2", "user1", fresh)); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	if err := repo.DeleteExpiredSessions(ctx, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("DeleteExpiredSessions failed: %v", err)
	}

	if _, err := repo.GetSession(ctx, "session1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("Expected expired session to be deleted, got %v", err)
	}
	if _, err := repo.GetSession(ctx, "session2"); err != nil {
		t.Fatalf("Expected live session to survive, got %v", err)
	}
}
