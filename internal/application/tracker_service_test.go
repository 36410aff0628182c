package application

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/example/room-access/internal/tracker"
)

type stubTrackerRepo struct {
	trackers map[string]tracker.Tracker
	lapses   map[string]tracker.Lapse
	order    []string
}

func newStubTrackerRepo() *stubTrackerRepo {
	return &stubTrackerRepo{
		trackers: make(map[string]tracker.Tracker),
		lapses:   make(map[string]tracker.Lapse),
	}
}

func (r *stubTrackerRepo) CreateTracker(_ context.Context, trk tracker.Tracker, lapse tracker.Lapse) (tracker.Tracker, error) {
	r.trackers[trk.ID] = trk
	r.lapses[lapse.ID] = lapse
	r.order = append(r.order, lapse.ID)
	return trk, nil
}

func (r *stubTrackerRepo) GetTracker(_ context.Context, id string) (tracker.Tracker, error) {
	trk, ok := r.trackers[id]
	if !ok {
		return tracker.Tracker{}, ErrNotFound
	}
	return trk, nil
}

func (r *stubTrackerRepo) ListTrackersByRoom(_ context.Context, roomID string) ([]tracker.Tracker, error) {
	var result []tracker.Tracker
	for _, trk := range r.trackers {
		if trk.RoomID == roomID {
			result = append(result, trk)
		}
	}
	return result, nil
}

func (r *stubTrackerRepo) ApplyMutation(_ context.Context, trk tracker.Tracker, lapse tracker.Lapse) (tracker.Tracker, error) {
	stored, ok := r.trackers[trk.ID]
	if !ok {
		return tracker.Tracker{}, ErrNotFound
	}
	if stored.Version != trk.Version-1 {
		return tracker.Tracker{}, ErrConflict
	}
	r.trackers[trk.ID] = trk
	r.lapses[lapse.ID] = lapse
	r.order = append(r.order, lapse.ID)
	return trk, nil
}

func (r *stubTrackerRepo) GetLapse(_ context.Context, id string) (tracker.Lapse, error) {
	lapse, ok := r.lapses[id]
	if !ok {
		return tracker.Lapse{}, ErrNotFound
	}
	return lapse, nil
}

func (r *stubTrackerRepo) ListLapsesByTracker(_ context.Context, trackerID string) ([]tracker.Lapse, error) {
	var result []tracker.Lapse
	for i := len(r.order) - 1; i >= 0; i-- {
		lapse := r.lapses[r.order[i]]
		if lapse.TrackerID == trackerID {
			result = append(result, lapse)
		}
	}
	return result, nil
}

func (r *stubTrackerRepo) lastLapse(t *testing.T) tracker.Lapse {
	t.Helper()
	if len(r.order) == 0 {
		t.Fatal("no lapses recorded")
	}
	return r.lapses[r.order[len(r.order)-1]]
}

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func newTrackerServiceForTest(repo *stubTrackerRepo, now func() time.Time) *TrackerService {
	return NewTrackerService(repo, repo, nil, sequentialIDs("id"), now)
}

func testPrincipal() Principal {
	return Principal{UserID: "user1", Name: "Ada Lovelace"}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestTrackerService_CreateTracker(t *testing.T) {
	repo := newStubTrackerRepo()
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	svc := newTrackerServiceForTest(repo, fixedClock(now))

	created, err := svc.CreateTracker(context.Background(), CreateTrackerParams{
		Principal: testPrincipal(),
		RoomID:    "room1",
		Input: TrackerInput{
			Name:         "Door left open",
			Participants: []string{"user1", "user2", "user1"},
		},
	})
	if err != nil {
		t.Fatalf("CreateTracker failed: %v", err)
	}

	if created.Version != 1 {
		t.Errorf("Expected version 1, got %d", created.Version)
	}
	if !created.TimeReference.Equal(now) {
		t.Errorf("Expected reference defaulted to now, got %v", created.TimeReference)
	}
	if created.Record != nil {
		t.Errorf("Expected no record on a new tracker, got %v", created.Record)
	}

	lapse := repo.lastLapse(t)
	if lapse.ChangeType != tracker.ChangeAdd {
		t.Errorf("Expected add lapse, got %s", lapse.ChangeType)
	}
	if lapse.PreviousState != nil {
		t.Error("Creation lapse must not carry a previous state")
	}
	if lapse.Reversible() {
		t.Error("Creation lapse must not be reversible")
	}
}

func TestTrackerService_CreateTracker_Validation(t *testing.T) {
	repo := newStubTrackerRepo()
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	svc := newTrackerServiceForTest(repo, fixedClock(now))

	_, err := svc.CreateTracker(context.Background(), CreateTrackerParams{
		Principal: testPrincipal(),
		RoomID:    "room1",
		Input: TrackerInput{
			Name:          "   ",
			TimeReference: now.Add(time.Hour),
		},
	})

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("Expected validation error, got %v", err)
	}
	if _, ok := vErr.FieldErrors["name"]; !ok {
		t.Error("Expected name field error")
	}
	if _, ok := vErr.FieldErrors["timeReference"]; !ok {
		t.Error("Expected timeReference field error")
	}
}

func TestTrackerService_Mutate_SnapshotMirrorsPayload(t *testing.T) {
	repo := newStubTrackerRepo()
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	svc := newTrackerServiceForTest(repo, fixedClock(now))

	created, err := svc.CreateTracker(context.Background(), CreateTrackerParams{
		Principal: testPrincipal(),
		RoomID:    "room1",
		Input:     TrackerInput{Name: "Door left open"},
	})
	if err != nil {
		t.Fatalf("CreateTracker failed: %v", err)
	}

	var payload tracker.Patch
	payload.SetName("Window left open")
	payload.SetParticipants([]string{"user3"})

	updated, err := svc.Mutate(context.Background(), MutateTrackerParams{
		Principal: testPrincipal(),
		TrackerID: created.ID,
		Payload:   payload,
	})
	if err != nil {
		t.Fatalf("Mutate failed: %v", err)
	}
	if updated.Name != "Window left open" {
		t.Errorf("Expected renamed tracker, got %q", updated.Name)
	}
	if updated.Version != 2 {
		t.Errorf("Expected version 2, got %d", updated.Version)
	}

	lapse := repo.lastLapse(t)
	if lapse.PreviousState == nil {
		t.Fatal("Edit lapse must carry a previous state")
	}
	payloadKeys := lapse.Payload.Fields().Keys()
	snapshotKeys := lapse.PreviousState.Fields().Keys()
	if !reflect.DeepEqual(payloadKeys, snapshotKeys) {
		t.Errorf("Key sets must match: payload=%v snapshot=%v", payloadKeys, snapshotKeys)
	}
	if name, _ := lapse.PreviousState.Name(); name != "Door left open" {
		t.Errorf("Snapshot must hold the prior name, got %q", name)
	}
}

func TestTrackerService_Mutate_EmptyPayload(t *testing.T) {
	repo := newStubTrackerRepo()
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	svc := newTrackerServiceForTest(repo, fixedClock(now))

	created, err := svc.CreateTracker(context.Background(), CreateTrackerParams{
		Principal: testPrincipal(),
		RoomID:    "room1",
		Input:     TrackerInput{Name: "Door left open"},
	})
	if err != nil {
		t.Fatalf("CreateTracker failed: %v", err)
	}

	_, err = svc.Mutate(context.Background(), MutateTrackerParams{
		Principal: testPrincipal(),
		TrackerID: created.ID,
	})

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("Expected validation error for empty payload, got %v", err)
	}
}

func TestTrackerService_Reset_PromotesRecord(t *testing.T) {
	repo := newStubTrackerRepo()
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	current := start
	svc := newTrackerServiceForTest(repo, func() time.Time { return current })

	created, err := svc.CreateTracker(context.Background(), CreateTrackerParams{
		Principal: testPrincipal(),
		RoomID:    "room1",
		Input:     TrackerInput{Name: "Door left open"},
	})
	if err != nil {
		t.Fatalf("CreateTracker failed: %v", err)
	}

	// First reset after 2h: no record yet, so the elapsed time always wins.
	current = start.Add(2 * time.Hour)
	updated, err := svc.Reset(context.Background(), ResetTrackerParams{
		Principal: testPrincipal(),
		TrackerID: created.ID,
	})
	if err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if updated.Record == nil || *updated.Record != 2*time.Hour {
		t.Fatalf("Expected record 2h, got %v", updated.Record)
	}
	if !updated.TimeReference.Equal(current) {
		t.Errorf("Expected reference moved to reset instant, got %v", updated.TimeReference)
	}

	// The first reset's snapshot must record the prior null explicitly.
	lapse := repo.lastLapse(t)
	prior, present := lapse.PreviousState.Record()
	if !present {
		t.Fatal("Snapshot must include the record key")
	}
	if prior != nil {
		t.Errorf("Expected prior record null, got %v", prior)
	}

	// Second reset after only 30m: the 2h record stands.
	current = current.Add(30 * time.Minute)
	updated, err = svc.Reset(context.Background(), ResetTrackerParams{
		Principal: testPrincipal(),
		TrackerID: created.ID,
	})
	if err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if updated.Record == nil || *updated.Record != 2*time.Hour {
		t.Errorf("Expected record to stand at 2h, got %v", updated.Record)
	}

	// Third reset after 3h beats it.
	current = current.Add(3 * time.Hour)
	updated, err = svc.Reset(context.Background(), ResetTrackerParams{
		Principal: testPrincipal(),
		TrackerID: created.ID,
	})
	if err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if updated.Record == nil || *updated.Record != 3*time.Hour {
		t.Errorf("Expected record 3h, got %v", updated.Record)
	}
}

func TestTrackerService_Rollback_RestoresExactly(t *testing.T) {
	repo := newStubTrackerRepo()
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	current := start
	svc := newTrackerServiceForTest(repo, func() time.Time { return current })

	created, err := svc.CreateTracker(context.Background(), CreateTrackerParams{
		Principal: testPrincipal(),
		RoomID:    "room1",
		Input:     TrackerInput{Name: "Door left open", Participants: []string{"user1"}},
	})
	if err != nil {
		t.Fatalf("CreateTracker failed: %v", err)
	}

	current = start.Add(2 * time.Hour)
	if _, err := svc.Reset(context.Background(), ResetTrackerParams{
		Principal: testPrincipal(),
		TrackerID: created.ID,
	}); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	resetLapse := repo.lastLapse(t)

	current = current.Add(time.Minute)
	restored, err := svc.Rollback(context.Background(), RollbackParams{
		Principal: testPrincipal(),
		LapseID:   resetLapse.ID,
	})
	if err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}

	// The reset's effects are gone: no record, no reset instant, original
	// reference.
	if restored.Record != nil {
		t.Errorf("Expected record restored to null, got %v", restored.Record)
	}
	if restored.ResetAt != nil {
		t.Errorf("Expected resetAt restored to null, got %v", restored.ResetAt)
	}
	if !restored.TimeReference.Equal(start) {
		t.Errorf("Expected reference restored to %v, got %v", start, restored.TimeReference)
	}
	if restored.Version != 3 {
		t.Errorf("Expected version 3 after create+reset+rollback, got %d", restored.Version)
	}
}

func TestTrackerService_Rollback_OfRollbackFails(t *testing.T) {
	repo := newStubTrackerRepo()
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	current := start
	svc := newTrackerServiceForTest(repo, func() time.Time { return current })

	created, err := svc.CreateTracker(context.Background(), CreateTrackerParams{
		Principal: testPrincipal(),
		RoomID:    "room1",
		Input:     TrackerInput{Name: "Door left open"},
	})
	if err != nil {
		t.Fatalf("CreateTracker failed: %v", err)
	}

	current = start.Add(time.Hour)
	if _, err := svc.Reset(context.Background(), ResetTrackerParams{
		Principal: testPrincipal(),
		TrackerID: created.ID,
	}); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	resetLapse := repo.lastLapse(t)

	if _, err := svc.Rollback(context.Background(), RollbackParams{
		Principal: testPrincipal(),
		LapseID:   resetLapse.ID,
	}); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}
	rollbackLapse := repo.lastLapse(t)
	if rollbackLapse.ChangeType != tracker.ChangeRollback {
		t.Fatalf("Expected rollback lapse, got %s", rollbackLapse.ChangeType)
	}

	_, err = svc.Rollback(context.Background(), RollbackParams{
		Principal: testPrincipal(),
		LapseID:   rollbackLapse.ID,
	})
	if !errors.Is(err, ErrNotReversible) {
		t.Fatalf("Expected ErrNotReversible, got %v", err)
	}
}

func TestTrackerService_Rollback_OfCreationFails(t *testing.T) {
	repo := newStubTrackerRepo()
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	svc := newTrackerServiceForTest(repo, fixedClock(now))

	_, err := svc.CreateTracker(context.Background(), CreateTrackerParams{
		Principal: testPrincipal(),
		RoomID:    "room1",
		Input:     TrackerInput{Name: "Door left open"},
	})
	if err != nil {
		t.Fatalf("CreateTracker failed: %v", err)
	}
	addLapse := repo.lastLapse(t)

	_, err = svc.Rollback(context.Background(), RollbackParams{
		Principal: testPrincipal(),
		LapseID:   addLapse.ID,
	})
	if !errors.Is(err, ErrNotReversible) {
		t.Fatalf("Expected ErrNotReversible, got %v", err)
	}
}

func TestTrackerService_Mutate_ConflictPropagates(t *testing.T) {
	repo := newStubTrackerRepo()
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	svc := newTrackerServiceForTest(repo, fixedClock(now))

	created, err := svc.CreateTracker(context.Background(), CreateTrackerParams{
		Principal: testPrincipal(),
		RoomID:    "room1",
		Input:     TrackerInput{Name: "Door left open"},
	})
	if err != nil {
		t.Fatalf("CreateTracker failed: %v", err)
	}

	// Simulate a concurrent writer bumping the stored version.
	stored := repo.trackers[created.ID]
	stored.Version = 5
	repo.trackers[created.ID] = stored

	var payload tracker.Patch
	payload.SetName("Renamed")
	_, err = svc.Mutate(context.Background(), MutateTrackerParams{
		Principal: testPrincipal(),
		TrackerID: created.ID,
		Payload:   payload,
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("Expected ErrConflict, got %v", err)
	}
}

func TestTrackerService_Deactivate(t *testing.T) {
	repo := newStubTrackerRepo()
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	svc := newTrackerServiceForTest(repo, fixedClock(now))

	created, err := svc.CreateTracker(context.Background(), CreateTrackerParams{
		Principal: testPrincipal(),
		RoomID:    "room1",
		Input:     TrackerInput{Name: "Door left open"},
	})
	if err != nil {
		t.Fatalf("CreateTracker failed: %v", err)
	}

	updated, err := svc.Deactivate(context.Background(), testPrincipal(), created.ID, "no longer tracked")
	if err != nil {
		t.Fatalf("Deactivate failed: %v", err)
	}
	if updated.IsActive {
		t.Error("Expected tracker deactivated")
	}

	// Deactivation goes through a delete lapse and stays reversible.
	lapse := repo.lastLapse(t)
	if lapse.ChangeType != tracker.ChangeDelete {
		t.Fatalf("Expected delete lapse, got %s", lapse.ChangeType)
	}
	if !lapse.Reversible() {
		t.Fatal("Delete lapse must be reversible")
	}
	if lapse.Message != "no longer tracked" {
		t.Errorf("Expected message preserved, got %q", lapse.Message)
	}

	restored, err := svc.Rollback(context.Background(), RollbackParams{
		Principal: testPrincipal(),
		LapseID:   lapse.ID,
	})
	if err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}
	if !restored.IsActive {
		t.Error("Expected rollback to reactivate the tracker")
	}
}
