package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/room-access/internal/tracker"
)

// TrackerRepository captures the persistence interactions for trackers.
// ApplyMutation persists the tracker and appends its lapse atomically and
// reports ErrConflict when a concurrent write advanced the version first.
type TrackerRepository interface {
	CreateTracker(ctx context.Context, trk tracker.Tracker, lapse tracker.Lapse) (tracker.Tracker, error)
	GetTracker(ctx context.Context, id string) (tracker.Tracker, error)
	ListTrackersByRoom(ctx context.Context, roomID string) ([]tracker.Tracker, error)
	ApplyMutation(ctx context.Context, trk tracker.Tracker, lapse tracker.Lapse) (tracker.Tracker, error)
}

// LapseLog reads the immutable lapse history.
type LapseLog interface {
	GetLapse(ctx context.Context, id string) (tracker.Lapse, error)
	ListLapsesByTracker(ctx context.Context, trackerID string) ([]tracker.Lapse, error)
}

// TrackerService implements tracker lifecycle flows. Every mutation passes
// through a lapse so history stays complete and reversible mutations can be
// rolled back.
type TrackerService struct {
	trackers    TrackerRepository
	lapses      LapseLog
	rooms       RoomRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewTrackerService constructs a TrackerService with the provided dependencies.
func NewTrackerService(trackers TrackerRepository, lapses LapseLog, rooms RoomRepository, idGenerator func() string, now func() time.Time) *TrackerService {
	return NewTrackerServiceWithLogger(trackers, lapses, rooms, idGenerator, now, nil)
}

// NewTrackerServiceWithLogger constructs a TrackerService with a specified logger.
func NewTrackerServiceWithLogger(trackers TrackerRepository, lapses LapseLog, rooms RoomRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *TrackerService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &TrackerService{
		trackers:    trackers,
		lapses:      lapses,
		rooms:       rooms,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *TrackerService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "TrackerService", operation, attrs...)
}

// CreateTracker registers a new tracker and writes its creation lapse. The
// creation lapse carries the initial state as payload and no previous state,
// so it can never be rolled back.
func (s *TrackerService) CreateTracker(ctx context.Context, params CreateTrackerParams) (created tracker.Tracker, err error) {
	if s == nil || s.trackers == nil {
		err = fmt.Errorf("tracker repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateTracker",
		"principal_id", params.Principal.UserID,
		"room_id", params.RoomID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create tracker", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("tracker_id", created.ID).InfoContext(ctx, "tracker created")
	}()

	name := strings.TrimSpace(params.Input.Name)
	vErr := &ValidationError{}
	if name == "" {
		vErr.add("name", "name is required")
	}
	now := s.now()
	reference := params.Input.TimeReference
	if reference.IsZero() {
		reference = now
	}
	if reference.After(now) {
		vErr.add("timeReference", "time reference must not be in the future")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if s.rooms != nil {
		if _, err = s.rooms.GetRoom(ctx, params.RoomID); err != nil {
			return
		}
	}

	issuer := params.Principal.UserRef()
	trk := tracker.Tracker{
		ID:            s.idGenerator(),
		RoomID:        params.RoomID,
		Name:          name,
		TimeReference: reference,
		Participants:  params.Input.Participants,
		Creator:       issuer,
		UpdatedBy:     issuer,
		ResetBy:       issuer,
		IsActive:      true,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	var payload tracker.Patch
	payload.SetName(trk.Name)
	payload.SetTimeReference(trk.TimeReference)
	payload.SetParticipants(trk.Participants)
	payload.SetIsActive(true)

	lapse := tracker.Lapse{
		ID:         s.idGenerator(),
		TrackerID:  trk.ID,
		Issuer:     issuer,
		CreatedAt:  now,
		ChangeType: tracker.ChangeAdd,
		Payload:    payload,
	}

	created, err = s.trackers.CreateTracker(ctx, trk, lapse)
	return
}

// GetTracker returns one tracker.
func (s *TrackerService) GetTracker(ctx context.Context, id string) (tracker.Tracker, error) {
	if s == nil || s.trackers == nil {
		return tracker.Tracker{}, fmt.Errorf("tracker repository not configured")
	}
	return s.trackers.GetTracker(ctx, id)
}

// ListTrackers returns a room's trackers.
func (s *TrackerService) ListTrackers(ctx context.Context, roomID string) ([]tracker.Tracker, error) {
	if s == nil || s.trackers == nil {
		return nil, fmt.Errorf("tracker repository not configured")
	}
	return s.trackers.ListTrackersByRoom(ctx, roomID)
}

// ListLapses returns a tracker's lapse history, newest first.
func (s *TrackerService) ListLapses(ctx context.Context, trackerID string) ([]tracker.Lapse, error) {
	if s == nil || s.lapses == nil {
		return nil, fmt.Errorf("lapse log not configured")
	}
	if _, err := s.trackers.GetTracker(ctx, trackerID); err != nil {
		return nil, err
	}
	return s.lapses.ListLapsesByTracker(ctx, trackerID)
}

// Mutate applies a sparse patch to a tracker and records a reversible lapse.
// The previous-state snapshot covers exactly the patched fields, so payload
// and snapshot key sets always match.
func (s *TrackerService) Mutate(ctx context.Context, params MutateTrackerParams) (updated tracker.Tracker, err error) {
	if s == nil || s.trackers == nil {
		err = fmt.Errorf("tracker repository not configured")
		return
	}

	changeType := tracker.ChangeType(params.ChangeType)
	if changeType == "" {
		changeType = tracker.ChangeEdit
	}

	logger := s.loggerWith(ctx, "Mutate",
		"principal_id", params.Principal.UserID,
		"tracker_id", params.TrackerID,
		"change_type", string(changeType),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to mutate tracker", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("version", updated.Version).InfoContext(ctx, "tracker mutated")
	}()

	vErr := &ValidationError{}
	if !changeType.Valid() || changeType == tracker.ChangeAdd || changeType == tracker.ChangeRollback {
		vErr.add("changeType", "change type must be edit, reset or delete")
	}
	if params.Payload.IsZero() {
		vErr.add("payload", "at least one field must be provided")
	}
	if name, ok := params.Payload.Name(); ok && strings.TrimSpace(name) == "" {
		vErr.add("name", "name must not be blank")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var current tracker.Tracker
	current, err = s.trackers.GetTracker(ctx, params.TrackerID)
	if err != nil {
		return
	}

	updated, err = s.applyLapse(ctx, current, changeType, params.Payload, params.Principal, params.Message)
	return
}

// Reset restarts a tracker's timer. The elapsed time since the reference is
// promoted to the record when it beats the current one; a tracker that never
// held a record always promotes.
func (s *TrackerService) Reset(ctx context.Context, params ResetTrackerParams) (updated tracker.Tracker, err error) {
	if s == nil || s.trackers == nil {
		err = fmt.Errorf("tracker repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "Reset",
		"principal_id", params.Principal.UserID,
		"tracker_id", params.TrackerID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to reset tracker", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("version", updated.Version).InfoContext(ctx, "tracker reset")
	}()

	var current tracker.Tracker
	current, err = s.trackers.GetTracker(ctx, params.TrackerID)
	if err != nil {
		return
	}

	now := s.now()
	record := current.Record
	if tracker.BeatsRecord(current.TimeReference, current.Record, now) {
		elapsed := now.Sub(current.TimeReference)
		if elapsed < 0 {
			elapsed = 0
		}
		record = &elapsed
	}

	var payload tracker.Patch
	payload.SetRecord(record)
	payload.SetResetAt(&now)
	payload.SetTimeReference(now)

	updated, err = s.applyLapse(ctx, current, tracker.ChangeReset, payload, params.Principal, params.Message)
	return
}

// Deactivate soft-deletes a tracker through a delete lapse, so the
// deactivation itself can be rolled back.
func (s *TrackerService) Deactivate(ctx context.Context, principal Principal, trackerID, message string) (updated tracker.Tracker, err error) {
	if s == nil || s.trackers == nil {
		err = fmt.Errorf("tracker repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "Deactivate",
		"principal_id", principal.UserID,
		"tracker_id", trackerID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to deactivate tracker", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "tracker deactivated")
	}()

	var current tracker.Tracker
	current, err = s.trackers.GetTracker(ctx, trackerID)
	if err != nil {
		return
	}

	var payload tracker.Patch
	payload.SetIsActive(false)

	updated, err = s.applyLapse(ctx, current, tracker.ChangeDelete, payload, principal, message)
	return
}

// Rollback restores the previous state captured by a reversible lapse. The
// rollback lapse carries no previous state of its own: a rollback cannot be
// rolled back.
func (s *TrackerService) Rollback(ctx context.Context, params RollbackParams) (updated tracker.Tracker, err error) {
	if s == nil || s.trackers == nil || s.lapses == nil {
		err = fmt.Errorf("tracker repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "Rollback",
		"principal_id", params.Principal.UserID,
		"lapse_id", params.LapseID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to roll back lapse", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("tracker_id", updated.ID, "version", updated.Version).InfoContext(ctx, "lapse rolled back")
	}()

	var lapse tracker.Lapse
	lapse, err = s.lapses.GetLapse(ctx, params.LapseID)
	if err != nil {
		return
	}

	if !lapse.Reversible() {
		err = ErrNotReversible
		return
	}

	var current tracker.Tracker
	current, err = s.trackers.GetTracker(ctx, lapse.TrackerID)
	if err != nil {
		return
	}

	now := s.now()
	restored := current.Apply(*lapse.PreviousState)
	restored.UpdatedBy = params.Principal.UserRef()
	restored.UpdatedAt = now
	restored.Version = current.Version + 1

	rollback := tracker.Lapse{
		ID:         s.idGenerator(),
		TrackerID:  current.ID,
		Issuer:     params.Principal.UserRef(),
		CreatedAt:  now,
		ChangeType: tracker.ChangeRollback,
		Payload:    *lapse.PreviousState,
	}

	updated, err = s.trackers.ApplyMutation(ctx, restored, rollback)
	return
}

// applyLapse snapshots the patched fields, applies the patch and persists
// both sides atomically.
func (s *TrackerService) applyLapse(ctx context.Context, current tracker.Tracker, changeType tracker.ChangeType, payload tracker.Patch, principal Principal, message string) (tracker.Tracker, error) {
	now := s.now()
	previous := tracker.Snapshot(current, payload.Fields())

	updated := current.Apply(payload)
	updated.UpdatedBy = principal.UserRef()
	updated.UpdatedAt = now
	updated.Version = current.Version + 1
	if changeType == tracker.ChangeReset {
		updated.ResetBy = principal.UserRef()
	}

	lapse := tracker.Lapse{
		ID:            s.idGenerator(),
		TrackerID:     current.ID,
		Issuer:        principal.UserRef(),
		CreatedAt:     now,
		ChangeType:    changeType,
		Message:       strings.TrimSpace(message),
		Payload:       payload,
		PreviousState: &previous,
	}

	return s.trackers.ApplyMutation(ctx, updated, lapse)
}
