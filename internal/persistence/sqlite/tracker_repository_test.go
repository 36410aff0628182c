package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/room-access/internal/persistence"
)

func seedRoom(t *testing.T, pool *ConnectionPool, id string) {
	t.Helper()

	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	err := NewRoomRepository(pool).CreateRoom(context.Background(), persistence.Room{
		ID:        id,
		Name:      "Lab",
		Building:  "North",
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
}

func testTracker(id, roomID string) persistence.Tracker {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	return persistence.Tracker{
		ID:            id,
		RoomID:        roomID,
		Name:          "Door left open",
		TimeReference: now,
		Participants:  []string{"user1", "user2"},
		CreatorID:     "user1",
		CreatorName:   "Ada Lovelace",
		UpdatedByID:   "user1",
		UpdatedByName: "Ada Lovelace",
		ResetByID:     "user1",
		ResetByName:   "Ada Lovelace",
		IsActive:      true,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func testLapse(id, trackerID, changeType string) persistence.Lapse {
	return persistence.Lapse{
		ID:         id,
		TrackerID:  trackerID,
		IssuerID:   "user1",
		IssuerName: "Ada Lovelace",
		CreatedAt:  time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		ChangeType: changeType,
		Payload:    []byte(`{"name":"Door left open"}`),
	}
}

func TestTrackerRepository_CreateAndGet(t *testing.T) {
	pool := setupTestPool(t)
	repo := NewTrackerRepository(pool)
	ctx := context.Background()
	seedRoom(t, pool, "room1")

	trk := testTracker("trk1", "room1")
	if err := repo.CreateTracker(ctx, trk, testLapse("lapse1", "trk1", "add")); err != nil {
		t.Fatalf("CreateTracker failed: %v", err)
	}

	retrieved, err := repo.GetTracker(ctx, "trk1")
	if err != nil {
		t.Fatalf("GetTracker failed: %v", err)
	}

	if retrieved.Name != "Door left open" {
		t.Errorf("Expected name 'Door left open', got '%s'", retrieved.Name)
	}
	if retrieved.Version != 1 {
		t.Errorf("Expected version 1, got %d", retrieved.Version)
	}
	if retrieved.RecordMillis != nil {
		t.Errorf("Expected nil record, got %d", *retrieved.RecordMillis)
	}
	if len(retrieved.Participants) != 2 || retrieved.Participants[0] != "user1" || retrieved.Participants[1] != "user2" {
		t.Errorf("Expected participants [user1 user2], got %v", retrieved.Participants)
	}

	// The creation lapse lands in the same transaction.
	lapses, err := NewLapseRepository(pool).ListLapsesByTracker(ctx, "trk1")
	if err != nil {
		t.Fatalf("ListLapsesByTracker failed: %v", err)
	}
	if len(lapses) != 1 {
		t.Fatalf("Expected 1 lapse, got %d", len(lapses))
	}
	if lapses[0].ChangeType != "add" {
		t.Errorf("Expected change type 'add', got '%s'", lapses[0].ChangeType)
	}
}

func TestTrackerRepository_ApplyMutation(t *testing.T) {
	pool := setupTestPool(t)
	repo := NewTrackerRepository(pool)
	ctx := context.Background()
	seedRoom(t, pool, "room1")

	trk := testTracker("trk1", "room1")
	if err := repo.CreateTracker(ctx, trk, testLapse("lapse1", "trk1", "add")); err != nil {
		t.Fatalf("CreateTracker failed: %v", err)
	}

	record := int64(3_600_000)
	resetAt := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	trk.RecordMillis = &record
	trk.ResetAt = &resetAt
	trk.TimeReference = resetAt
	trk.Participants = []string{"user2", "user3"}
	trk.Version = 2

	lapse := testLapse("lapse2", "trk1", "reset")
	lapse.Payload = []byte(`{"record":3600000}`)
	lapse.PreviousState = []byte(`{"record":null}`)

	if err := repo.ApplyMutation(ctx, trk, lapse); err != nil {
		t.Fatalf("ApplyMutation failed: %v", err)
	}

	retrieved, err := repo.GetTracker(ctx, "trk1")
	if err != nil {
		t.Fatalf("GetTracker failed: %v", err)
	}
	if retrieved.Version != 2 {
		t.Errorf("Expected version 2, got %d", retrieved.Version)
	}
	if retrieved.RecordMillis == nil || *retrieved.RecordMillis != record {
		t.Errorf("Expected record %d, got %v", record, retrieved.RecordMillis)
	}
	if retrieved.ResetAt == nil || !retrieved.ResetAt.Equal(resetAt) {
		t.Errorf("Expected reset at %v, got %v", resetAt, retrieved.ResetAt)
	}
	if len(retrieved.Participants) != 2 || retrieved.Participants[0] != "user2" {
		t.Errorf("Expected participants [user2 user3], got %v", retrieved.Participants)
	}

	lapses, err := NewLapseRepository(pool).ListLapsesByTracker(ctx, "trk1")
	if err != nil {
		t.Fatalf("ListLapsesByTracker failed: %v", err)
	}
	if len(lapses) != 2 {
		t.Fatalf("Expected 2 lapses, got %d", len(lapses))
	}
	if string(lapses[0].PreviousState) != `{"record":null}` {
		t.Errorf("Expected previous state preserved verbatim, got %s", lapses[0].PreviousState)
	}
}

func TestTrackerRepository_ApplyMutation_VersionConflict(t *testing.T) {
	pool := setupTestPool(t)
	repo := NewTrackerRepository(pool)
	ctx := context.Background()
	seedRoom(t, pool, "room1")

	trk := testTracker("trk1", "room1")
	if err := repo.CreateTracker(ctx, trk, testLapse("lapse1", "trk1", "add")); err != nil {
		t.Fatalf("CreateTracker failed: %v", err)
	}

	// Stale writer: claims version 3 but the stored row is still at 1.
	stale := trk
	stale.Version = 3

	err := repo.ApplyMutation(ctx, stale, testLapse("lapse2", "trk1", "edit"))
	if !errors.Is(err, persistence.ErrConflict) {
		t.Fatalf("Expected ErrConflict, got %v", err)
	}

	// The conflicting lapse must not have been written.
	lapses, err := NewLapseRepository(pool).ListLapsesByTracker(ctx, "trk1")
	if err != nil {
		t.Fatalf("ListLapsesByTracker failed: %v", err)
	}
	if len(lapses) != 1 {
		t.Errorf("Expected lapse log untouched after conflict, got %d entries", len(lapses))
	}
}

func TestTrackerRepository_ApplyMutation_NotFound(t *testing.T) {
	pool := setupTestPool(t)
	repo := NewTrackerRepository(pool)
	ctx := context.Background()
	seedRoom(t, pool, "room1")

	trk := testTracker("missing", "room1")
	trk.Version = 2

	err := repo.ApplyMutation(ctx, trk, testLapse("lapse1", "missing", "edit"))
	if !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestTrackerRepository_ListTrackersByRoom(t *testing.T) {
	pool := setupTestPool(t)
	repo := NewTrackerRepository(pool)
	ctx := context.Background()
	seedRoom(t, pool, "room1")
	seedRoom(t, pool, "room2")

	first := testTracker("trk1", "room1")
	second := testTracker("trk2", "room1")
	second.CreatedAt = second.CreatedAt.Add(time.Hour)
	other := testTracker("trk3", "room2")

	for i, trk := range []persistence.Tracker{first, second, other} {
		lapse := testLapse("lapse"+string(rune('1'+i)), trk.ID, "add")
		if err := repo.CreateTracker(ctx, trk, lapse); err != nil {
			t.Fatalf("CreateTracker failed: %v", err)
		}
	}

	trackers, err := repo.ListTrackersByRoom(ctx, "room1")
	if err != nil {
		t.Fatalf("ListTrackersByRoom failed: %v", err)
	}
	if len(trackers) != 2 {
		t.Fatalf("Expected 2 trackers, got %d", len(trackers))
	}
	if trackers[0].ID != "trk1" || trackers[1].ID != "trk2" {
		t.Errorf("Expected creation order trk1, trk2; got %s, %s", trackers[0].ID, trackers[1].ID)
	}
	if len(trackers[0].Participants) != 2 {
		t.Errorf("Expected participants loaded for listed trackers, got %v", trackers[0].Participants)
	}
}

func TestLapseRepository_GetLapse(t *testing.T) {
	pool := setupTestPool(t)
	repo := NewTrackerRepository(pool)
	lapseRepo := NewLapseRepository(pool)
	ctx := context.Background()
	seedRoom(t, pool, "room1")

	message := "fresh start"
	lapse := testLapse("lapse1", "trk1", "add")
	lapse.Message = &message

	if err := repo.CreateTracker(ctx, testTracker("trk1", "room1"), lapse); err != nil {
		t.Fatalf("CreateTracker failed: %v", err)
	}

	retrieved, err := lapseRepo.GetLapse(ctx, "lapse1")
	if err != nil {
		t.Fatalf("GetLapse failed: %v", err)
	}
	if retrieved.Message == nil || *retrieved.Message != "fresh start" {
		t.Errorf("Expected message 'fresh start', got %v", retrieved.Message)
	}
	if retrieved.PreviousState != nil {
		t.Errorf("Expected nil previous state, got %s", retrieved.PreviousState)
	}

	if _, err := lapseRepo.GetLapse(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
