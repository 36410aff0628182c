package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/room-access/internal/restriction"
)

type stubRestrictionRepo struct {
	restrictions map[string]Restriction
}

func newStubRestrictionRepo() *stubRestrictionRepo {
	return &stubRestrictionRepo{restrictions: make(map[string]Restriction)}
}

func (s *stubRestrictionRepo) CreateRestriction(_ context.Context, r Restriction) (Restriction, error) {
	s.restrictions[r.ID] = r
	return r, nil
}

func (s *stubRestrictionRepo) GetRestriction(_ context.Context, id string) (Restriction, error) {
	r, ok := s.restrictions[id]
	if !ok {
		return Restriction{}, ErrNotFound
	}
	return r, nil
}

func (s *stubRestrictionRepo) UpdateRestriction(_ context.Context, r Restriction) (Restriction, error) {
	if _, ok := s.restrictions[r.ID]; !ok {
		return Restriction{}, ErrNotFound
	}
	s.restrictions[r.ID] = r
	return r, nil
}

func (s *stubRestrictionRepo) ListRestrictionsByRoom(_ context.Context, roomID string) ([]Restriction, error) {
	var result []Restriction
	for _, r := range s.restrictions {
		if r.RoomID == roomID {
			result = append(result, r)
		}
	}
	return result, nil
}

func (s *stubRestrictionRepo) ListRestrictionsByRoomRole(_ context.Context, roomID, roleID string) ([]Restriction, error) {
	var result []Restriction
	for _, r := range s.restrictions {
		if r.RoomID == roomID && r.RoleID == roleID {
			result = append(result, r)
		}
	}
	return result, nil
}

func (s *stubRestrictionRepo) DeleteRestriction(_ context.Context, id string) error {
	if _, ok := s.restrictions[id]; !ok {
		return ErrNotFound
	}
	delete(s.restrictions, id)
	return nil
}

func newRestrictionServiceForTest(repo *stubRestrictionRepo) *RestrictionService {
	return NewRestrictionService(repo, nil, nil, sequentialIDs("restriction"), fixedClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)))
}

func adminPrincipal() Principal {
	return Principal{UserID: "admin", Name: "Admin", IsAdmin: true}
}

func TestRestrictionService_CreateRestriction(t *testing.T) {
	repo := newStubRestrictionRepo()
	svc := newRestrictionServiceForTest(repo)

	created, err := svc.CreateRestriction(context.Background(), CreateRestrictionParams{
		Principal: adminPrincipal(),
		RoomID:    "room1",
		Input: RestrictionInput{
			RoleID:   "role1",
			Days:     85, // Sun, Tue, Thu, Sat
			Start:    "09:00:00",
			End:      "17:30:00",
			IsActive: true,
		},
	})
	if err != nil {
		t.Fatalf("CreateRestriction failed: %v", err)
	}

	if created.Rule.DaysBitmask != 85 {
		t.Errorf("Expected bitmask 85, got %d", created.Rule.DaysBitmask)
	}
	want := [7]bool{true, false, true, false, true, false, true}
	if got := restriction.DecodeDays(created.Rule.DaysBitmask); got != want {
		t.Errorf("Expected days %v, got %v", want, got)
	}
	if created.Rule.Start.String() != "09:00:00" || created.Rule.End.String() != "17:30:00" {
		t.Errorf("Expected parsed window, got %s-%s", created.Rule.Start, created.Rule.End)
	}
}

func TestRestrictionService_CreateRestriction_Validation(t *testing.T) {
	tests := []struct {
		name  string
		input RestrictionInput
		field string
	}{
		{
			name:  "bitmask too large",
			input: RestrictionInput{RoleID: "role1", Days: 128, Start: "09:00:00", End: "17:00:00"},
			field: "days",
		},
		{
			name:  "negative bitmask",
			input: RestrictionInput{RoleID: "role1", Days: -1, Start: "09:00:00", End: "17:00:00"},
			field: "days",
		},
		{
			name:  "malformed start",
			input: RestrictionInput{RoleID: "role1", Days: 1, Start: "9:00:00", End: "17:00:00"},
			field: "start",
		},
		{
			name:  "out of range end",
			input: RestrictionInput{RoleID: "role1", Days: 1, Start: "09:00:00", End: "24:00:00"},
			field: "end",
		},
		{
			name:  "overnight window rejected",
			input: RestrictionInput{RoleID: "role1", Days: 1, Start: "22:00:00", End: "06:00:00"},
			field: "end",
		},
		{
			name:  "empty window rejected",
			input: RestrictionInput{RoleID: "role1", Days: 1, Start: "09:00:00", End: "09:00:00"},
			field: "end",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newRestrictionServiceForTest(newStubRestrictionRepo())

			_, err := svc.CreateRestriction(context.Background(), CreateRestrictionParams{
				Principal: adminPrincipal(),
				RoomID:    "room1",
				Input:     tt.input,
			})

			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("Expected validation error, got %v", err)
			}
			if _, ok := vErr.FieldErrors[tt.field]; !ok {
				t.Errorf("Expected %q field error, got %v", tt.field, vErr.FieldErrors)
			}
		})
	}
}

func TestRestrictionService_CreateRestriction_RequiresAdmin(t *testing.T) {
	svc := newRestrictionServiceForTest(newStubRestrictionRepo())

	_, err := svc.CreateRestriction(context.Background(), CreateRestrictionParams{
		Principal: Principal{UserID: "user1"},
		RoomID:    "room1",
		Input:     RestrictionInput{RoleID: "role1", Days: 1, Start: "09:00:00", End: "17:00:00"},
	})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("Expected ErrUnauthorized, got %v", err)
	}
}

func TestRestrictionService_UpdateRestriction(t *testing.T) {
	repo := newStubRestrictionRepo()
	svc := newRestrictionServiceForTest(repo)

	created, err := svc.CreateRestriction(context.Background(), CreateRestrictionParams{
		Principal: adminPrincipal(),
		RoomID:    "room1",
		Input:     RestrictionInput{RoleID: "role1", Days: 85, Start: "09:00:00", End: "17:00:00", IsActive: true},
	})
	if err != nil {
		t.Fatalf("CreateRestriction failed: %v", err)
	}

	updated, err := svc.UpdateRestriction(context.Background(), UpdateRestrictionParams{
		Principal:     adminPrincipal(),
		RestrictionID: created.ID,
		Input:         RestrictionInput{RoleID: "role1", Days: 127, Start: "08:00:00", End: "18:00:00", IsActive: false},
	})
	if err != nil {
		t.Fatalf("UpdateRestriction failed: %v", err)
	}
	if updated.Rule.DaysBitmask != restriction.AllDays {
		t.Errorf("Expected all-days bitmask, got %d", updated.Rule.DaysBitmask)
	}
	if updated.Rule.Active {
		t.Error("Expected rule deactivated")
	}
}

func TestRestrictionService_DeleteRestriction(t *testing.T) {
	repo := newStubRestrictionRepo()
	svc := newRestrictionServiceForTest(repo)

	created, err := svc.CreateRestriction(context.Background(), CreateRestrictionParams{
		Principal: adminPrincipal(),
		RoomID:    "room1",
		Input:     RestrictionInput{RoleID: "role1", Days: 1, Start: "09:00:00", End: "17:00:00"},
	})
	if err != nil {
		t.Fatalf("CreateRestriction failed: %v", err)
	}

	if err := svc.DeleteRestriction(context.Background(), adminPrincipal(), created.ID); err != nil {
		t.Fatalf("DeleteRestriction failed: %v", err)
	}
	if err := svc.DeleteRestriction(context.Background(), adminPrincipal(), created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound on second delete, got %v", err)
	}
}
