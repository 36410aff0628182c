package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/example/room-access/internal/persistence"
)

func appendLog(t *testing.T, repo *AccessLogRepository, id, roomID string, userID *string, granted bool, at time.Time) {
	t.Helper()

	err := repo.AppendAccessLog(context.Background(), persistence.AccessLog{
		ID:        id,
		RoomID:    roomID,
		UserID:    userID,
		Method:    "passcode",
		Granted:   granted,
		Reason:    "window",
		CreatedAt: at,
	})
	if err != nil {
		t.Fatalf("AppendAccessLog failed: %v", err)
	}
}

func TestAccessLogRepository_ListNewestFirst(t *testing.T) {
	pool := setupTestPool(t)
	repo := NewAccessLogRepository(pool)
	seedRoom(t, pool, "room1")
	seedUser(t, pool, "user1")

	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	user := "user1"
	appendLog(t, repo, "log1", "room1", &user, true, base)
	appendLog(t, repo, "log2", "room1", &user, false, base.Add(time.Minute))
	appendLog(t, repo, "log3", "room1", nil, false, base.Add(2*time.Minute))

	logs, err := repo.ListAccessLogsByRoom(context.Background(), "room1", 2)
	if err != nil {
		t.Fatalf("ListAccessLogsByRoom failed: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("Expected 2 logs with limit, got %d", len(logs))
	}
	if logs[0].ID != "log3" || logs[1].ID != "log2" {
		t.Errorf("Expected newest first log3, log2; got %s, %s", logs[0].ID, logs[1].ID)
	}
	if logs[0].UserID != nil {
		t.Errorf("Expected unmatched attempt to have nil user, got %v", *logs[0].UserID)
	}
}

func TestAccessLogRepository_CountAccessOutcomes(t *testing.T) {
	pool := setupTestPool(t)
	repo := NewAccessLogRepository(pool)
	seedRoom(t, pool, "room1")
	seedUser(t, pool, "user1")

	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	user := "user1"
	appendLog(t, repo, "log1", "room1", &user, true, base)
	appendLog(t, repo, "log2", "room1", &user, true, base.Add(time.Minute))
	appendLog(t, repo, "log3", "room1", &user, false, base.Add(2*time.Minute))
	appendLog(t, repo, "log4", "room1", nil, false, base.Add(3*time.Minute))

	stats, err := repo.CountAccessOutcomes(context.Background(), "room1")
	if err != nil {
		t.Fatalf("CountAccessOutcomes failed: %v", err)
	}
	if stats.Granted != 2 || stats.Denied != 1 || stats.Unknown != 1 {
		t.Errorf("Expected granted=2 denied=1 unknown=1, got %+v", stats)
	}
}

func TestAccessLogRepository_CountAttemptsByUser(t *testing.T) {
	pool := setupTestPool(t)
	repo := NewAccessLogRepository(pool)
	seedRoom(t, pool, "room1")
	seedUser(t, pool, "user1")
	seedUser(t, pool, "user2")

	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	busy, quiet := "user1", "user2"
	appendLog(t, repo, "log1", "room1", &busy, true, base)
	appendLog(t, repo, "log2", "room1", &busy, false, base.Add(time.Minute))
	appendLog(t, repo, "log3", "room1", &quiet, true, base.Add(2*time.Minute))
	appendLog(t, repo, "log4", "room1", nil, false, base.Add(3*time.Minute))

	counts, err := repo.CountAttemptsByUser(context.Background(), "room1")
	if err != nil {
		t.Fatalf("CountAttemptsByUser failed: %v", err)
	}
	if len(counts) != 2 {
		t.Fatalf("Expected 2 users counted, got %d", len(counts))
	}
	if counts[0].UserID != "user1" || counts[0].Attempts != 2 || counts[0].Granted != 1 {
		t.Errorf("Expected user1 with 2 attempts 1 granted, got %+v", counts[0])
	}
	if counts[1].UserID != "user2" || counts[1].Attempts != 1 {
		t.Errorf("Expected user2 with 1 attempt, got %+v", counts[1])
	}
}
