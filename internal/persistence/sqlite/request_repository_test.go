package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/room-access/internal/persistence"
)

func testRequest(id, roomID, userID string) persistence.MembershipRequest {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	return persistence.MembershipRequest{
		ID:        id,
		RoomID:    roomID,
		RoomName:  "Lab",
		UserID:    userID,
		UserName:  "Ada Lovelace",
		Status:    "pending",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestRequestRepository_CreateAndGet(t *testing.T) {
	pool := setupTestPool(t)
	seedRoom(t, pool, "room1")
	seedUser(t, pool, "user1")
	repo := NewRequestRepository(pool)
	ctx := context.Background()

	if err := repo.CreateRequest(ctx, testRequest("request1", "room1", "user1")); err != nil {
		t.Fatalf("CreateRequest failed: %v", err)
	}

	stored, err := repo.GetRequest(ctx, "request1")
	if err != nil {
		t.Fatalf("GetRequest failed: %v", err)
	}
	if stored.Status != "pending" {
		t.Errorf("Expected pending status, got %q", stored.Status)
	}
	if stored.RoomName != "Lab" || stored.UserName != "Ada Lovelace" {
		t.Errorf("Unexpected denormalized names: %q / %q", stored.RoomName, stored.UserName)
	}
	if stored.AdminID != nil || stored.AdminName != nil {
		t.Errorf("Expected no admin on a pending request, got %+v", stored)
	}
}

func TestRequestRepository_SecondPendingRequestRejected(t *testing.T) {
	pool := setupTestPool(t)
	seedRoom(t, pool, "room1")
	seedUser(t, pool, "user1")
	repo := NewRequestRepository(pool)
	ctx := context.Background()

	if err := repo.CreateRequest(ctx, testRequest("request1", "room1", "user1")); err != nil {
		t.Fatalf("CreateRequest failed: %v", err)
	}
	err := repo.CreateRequest(ctx, testRequest("request2", "room1", "user1"))
	if !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("Expected ErrDuplicate for second pending request, got %v", err)
	}
}

func TestRequestRepository_UpdateClearsPendingSlot(t *testing.T) {
	pool := setupTestPool(t)
	seedRoom(t, pool, "room1")
	seedUser(t, pool, "user1")
	repo := NewRequestRepository(pool)
	ctx := context.Background()

	if err := repo.CreateRequest(ctx, testRequest("request1", "room1", "user1")); err != nil {
		t.Fatalf("CreateRequest failed: %v", err)
	}

	adminID := "admin1"
	adminName := "Grace Hopper"
	decided := testRequest("request1", "room1", "user1")
	decided.Status = "rejected"
	decided.AdminID = &adminID
	decided.AdminName = &adminName
	decided.UpdatedAt = decided.UpdatedAt.Add(time.Hour)
	if err := repo.UpdateRequest(ctx, decided); err != nil {
		t.Fatalf("UpdateRequest failed: %v", err)
	}

	stored, err := repo.GetRequest(ctx, "request1")
	if err != nil {
		t.Fatalf("GetRequest failed: %v", err)
	}
	if stored.Status != "rejected" {
		t.Errorf("Expected rejected status, got %q", stored.Status)
	}
	if stored.AdminID == nil || *stored.AdminID != "admin1" {
		t.Errorf("Expected admin attribution, got %+v", stored.AdminID)
	}

	// A decided request no longer occupies the pending slot.
	if err := repo.CreateRequest(ctx, testRequest("request2", "room1", "user1")); err != nil {
		t.Fatalf("CreateRequest after decision failed: %v", err)
	}
}

func TestRequestRepository_UpdateMissing(t *testing.T) {
	pool := setupTestPool(t)
	repo := NewRequestRepository(pool)

	err := repo.UpdateRequest(context.Background(), testRequest("ghost", "room1", "user1"))
	if !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestRequestRepository_ListByRoomAndUser(t *testing.T) {
	pool := setupTestPool(t)
	seedRoom(t, pool, "room1")
	seedRoom(t, pool, "room2")
	seedUser(t, pool, "user1")
	seedUser(t, pool, "user2")
	repo := NewRequestRepository(pool)
	ctx := context.Background()

	first := testRequest("request1", "room1", "user1")
	second := testRequest("request2", "room1", "user2")
	second.CreatedAt = second.CreatedAt.Add(time.Minute)
	third := testRequest("request3", "room2", "user1")
	third.CreatedAt = third.CreatedAt.Add(2 * time.Minute)
	for _, request := range []persistence.MembershipRequest{first, second, third} {
		if err := repo.CreateRequest(ctx, request); err != nil {
			t.Fatalf("CreateRequest failed: %v", err)
		}
	}

	byRoom, err := repo.ListRequestsByRoom(ctx, "room1")
	if err != nil {
		t.Fatalf("ListRequestsByRoom failed: %v", err)
	}
	if len(byRoom) != 2 || byRoom[0].ID != "request2" || byRoom[1].ID != "request1" {
		t.Fatalf("Expected newest-first room requests, got %+v", byRoom)
	}

	byUser, err := repo.ListRequestsByUser(ctx, "user1")
	if err != nil {
		t.Fatalf("ListRequestsByUser failed: %v", err)
	}
	if len(byUser) != 2 || byUser[0].ID != "request3" || byUser[1].ID != "request1" {
		t.Fatalf("Expected newest-first user requests, got %+v", byUser)
	}
}

func TestRequestRepository_DeletedWithRoom(t *testing.T) {
	pool := setupTestPool(t)
	seedRoom(t, pool, "room1")
	seedUser(t, pool, "user1")
	ctx := context.Background()

	repo := NewRequestRepository(pool)
	if err := repo.CreateRequest(ctx, testRequest("request1", "room1", "user1")); err != nil {
		t.Fatalf("CreateRequest failed: %v", err)
	}

	if err := NewRoomRepository(pool).DeleteRoom(ctx, "room1"); err != nil {
		t.Fatalf("DeleteRoom failed: %v", err)
	}
	if _, err := repo.GetRequest(ctx, "request1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("Expected request to cascade with room, got %v", err)
	}
}
