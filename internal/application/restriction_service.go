package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/room-access/internal/restriction"
)

// RestrictionRepository captures the persistence interactions for weekly
// access windows.
type RestrictionRepository interface {
	CreateRestriction(ctx context.Context, r Restriction) (Restriction, error)
	GetRestriction(ctx context.Context, id string) (Restriction, error)
	UpdateRestriction(ctx context.Context, r Restriction) (Restriction, error)
	ListRestrictionsByRoom(ctx context.Context, roomID string) ([]Restriction, error)
	ListRestrictionsByRoomRole(ctx context.Context, roomID, roleID string) ([]Restriction, error)
	DeleteRestriction(ctx context.Context, id string) error
}

// RestrictionService implements weekly access-window management.
type RestrictionService struct {
	restrictions RestrictionRepository
	rooms        RoomRepository
	roles        RoleCatalog
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewRestrictionService constructs a RestrictionService with the provided dependencies.
func NewRestrictionService(restrictions RestrictionRepository, rooms RoomRepository, roles RoleCatalog, idGenerator func() string, now func() time.Time) *RestrictionService {
	return NewRestrictionServiceWithLogger(restrictions, rooms, roles, idGenerator, now, nil)
}

// NewRestrictionServiceWithLogger constructs a RestrictionService with a specified logger.
func NewRestrictionServiceWithLogger(restrictions RestrictionRepository, rooms RoomRepository, roles RoleCatalog, idGenerator func() string, now func() time.Time, logger *slog.Logger) *RestrictionService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &RestrictionService{
		restrictions: restrictions,
		rooms:        rooms,
		roles:        roles,
		idGenerator:  idGenerator,
		now:          now,
		logger:       defaultLogger(logger),
	}
}

func (s *RestrictionService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RestrictionService", operation, attrs...)
}

// validateRule checks the bitmask and time window and returns the parsed
// rule on success. Windows must stay within one day; an end at or before the
// start is rejected rather than interpreted as crossing midnight.
func validateRule(input RestrictionInput) (restriction.Rule, *ValidationError) {
	vErr := &ValidationError{}

	if input.Days < restriction.NoDays || input.Days > restriction.AllDays {
		vErr.add("days", fmt.Sprintf("days bitmask must be between %d and %d", restriction.NoDays, restriction.AllDays))
	}

	start, err := restriction.ParseTimeOfDay(input.Start)
	if err != nil {
		vErr.add("start", "start must be a HH:mm:ss time of day")
	}
	end, err := restriction.ParseTimeOfDay(input.End)
	if err != nil {
		vErr.add("end", "end must be a HH:mm:ss time of day")
	}
	if !vErr.HasErrors() && !start.Before(end) {
		vErr.add("end", "end must be after start")
	}

	if vErr.HasErrors() {
		return restriction.Rule{}, vErr
	}
	return restriction.Rule{
		DaysBitmask: input.Days,
		Start:       start,
		End:         end,
		Active:      input.IsActive,
	}, nil
}

// CreateRestriction adds a weekly access window to a room. Restricted to
// administrators.
func (s *RestrictionService) CreateRestriction(ctx context.Context, params CreateRestrictionParams) (created Restriction, err error) {
	if s == nil || s.restrictions == nil {
		err = fmt.Errorf("restriction repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateRestriction",
		"principal_id", params.Principal.UserID,
		"room_id", params.RoomID,
		"role_id", params.Input.RoleID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create restriction", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("restriction_id", created.ID).InfoContext(ctx, "restriction created")
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	rule, vErr := validateRule(params.Input)
	if vErr != nil {
		err = vErr
		return
	}

	if s.rooms != nil {
		if _, err = s.rooms.GetRoom(ctx, params.RoomID); err != nil {
			return
		}
	}
	if s.roles != nil {
		if _, err = s.roles.GetRole(ctx, params.Input.RoleID); err != nil {
			return
		}
	}

	now := s.now()
	created, err = s.restrictions.CreateRestriction(ctx, Restriction{
		ID:        s.idGenerator(),
		RoomID:    params.RoomID,
		RoleID:    params.Input.RoleID,
		Rule:      rule,
		CreatedAt: now,
		UpdatedAt: now,
	})
	return
}

// GetRestriction returns one restriction.
func (s *RestrictionService) GetRestriction(ctx context.Context, id string) (Restriction, error) {
	if s == nil || s.restrictions == nil {
		return Restriction{}, fmt.Errorf("restriction repository not configured")
	}
	return s.restrictions.GetRestriction(ctx, id)
}

// ListRestrictions returns a room's restrictions.
func (s *RestrictionService) ListRestrictions(ctx context.Context, roomID string) ([]Restriction, error) {
	if s == nil || s.restrictions == nil {
		return nil, fmt.Errorf("restriction repository not configured")
	}
	return s.restrictions.ListRestrictionsByRoom(ctx, roomID)
}

// UpdateRestriction replaces a restriction's window, bitmask and active flag.
// Restricted to administrators.
func (s *RestrictionService) UpdateRestriction(ctx context.Context, params UpdateRestrictionParams) (updated Restriction, err error) {
	if s == nil || s.restrictions == nil {
		err = fmt.Errorf("restriction repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateRestriction",
		"principal_id", params.Principal.UserID,
		"restriction_id", params.RestrictionID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update restriction", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "restriction updated")
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	rule, vErr := validateRule(params.Input)
	if vErr != nil {
		err = vErr
		return
	}

	var current Restriction
	current, err = s.restrictions.GetRestriction(ctx, params.RestrictionID)
	if err != nil {
		return
	}

	current.Rule = rule
	current.UpdatedAt = s.now()

	updated, err = s.restrictions.UpdateRestriction(ctx, current)
	return
}

// DeleteRestriction removes a restriction. Restricted to administrators.
func (s *RestrictionService) DeleteRestriction(ctx context.Context, principal Principal, id string) (err error) {
	if s == nil || s.restrictions == nil {
		return fmt.Errorf("restriction repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteRestriction",
		"principal_id", principal.UserID,
		"restriction_id", id,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete restriction", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "restriction deleted")
	}()

	if !principal.IsAdmin {
		return ErrUnauthorized
	}
	return s.restrictions.DeleteRestriction(ctx, id)
}
