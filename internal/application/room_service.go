package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// RoomRepository captures the persistence interactions required by the room service.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room Room) (Room, error)
	GetRoom(ctx context.Context, id string) (Room, error)
	UpdateRoom(ctx context.Context, room Room) (Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
	DeleteRoom(ctx context.Context, id string) error
}

// RoleCatalog captures the persistence interactions for membership roles.
type RoleCatalog interface {
	CreateRole(ctx context.Context, role Role) (Role, error)
	GetRole(ctx context.Context, id string) (Role, error)
	ListRoles(ctx context.Context) ([]Role, error)
}

// MembershipRepository captures the persistence interactions for room members.
type MembershipRepository interface {
	AddMember(ctx context.Context, member Member) (Member, error)
	RemoveMember(ctx context.Context, roomID, userID string) error
	GetMember(ctx context.Context, roomID, userID string) (Member, error)
	ListMembersByRoom(ctx context.Context, roomID string) ([]Member, error)
}

// UserDirectory is the subset of user lookups the room service needs to
// validate memberships.
type UserDirectory interface {
	GetUser(ctx context.Context, id string) (User, error)
}

// RoomService implements room, role and membership management.
type RoomService struct {
	rooms       RoomRepository
	roles       RoleCatalog
	members     MembershipRepository
	users       UserDirectory
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewRoomService constructs a RoomService with the provided dependencies.
func NewRoomService(rooms RoomRepository, roles RoleCatalog, members MembershipRepository, users UserDirectory, idGenerator func() string, now func() time.Time) *RoomService {
	return NewRoomServiceWithLogger(rooms, roles, members, users, idGenerator, now, nil)
}

// NewRoomServiceWithLogger constructs a RoomService with a specified logger.
func NewRoomServiceWithLogger(rooms RoomRepository, roles RoleCatalog, members MembershipRepository, users UserDirectory, idGenerator func() string, now func() time.Time, logger *slog.Logger) *RoomService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &RoomService{
		rooms:       rooms,
		roles:       roles,
		members:     members,
		users:       users,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *RoomService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RoomService", operation, attrs...)
}

func validateRoomInput(input RoomInput) *ValidationError {
	vErr := &ValidationError{}
	if strings.TrimSpace(input.Name) == "" {
		vErr.add("name", "name is required")
	}
	if strings.TrimSpace(input.Building) == "" {
		vErr.add("building", "building is required")
	}
	if input.RoomNumber != nil && strings.TrimSpace(*input.RoomNumber) == "" {
		vErr.add("roomNumber", "room number must not be blank when provided")
	}
	if vErr.HasErrors() {
		return vErr
	}
	return nil
}

// CreateRoom registers a new room. Restricted to administrators.
func (s *RoomService) CreateRoom(ctx context.Context, params CreateRoomParams) (created Room, err error) {
	if s == nil || s.rooms == nil {
		err = fmt.Errorf("room repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateRoom",
		"principal_id", params.Principal.UserID,
		"room_name", params.Input.Name,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("room_id", created.ID).InfoContext(ctx, "room created")
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if vErr := validateRoomInput(params.Input); vErr != nil {
		err = vErr
		return
	}

	now := s.now()
	room := Room{
		ID:         s.idGenerator(),
		Name:       strings.TrimSpace(params.Input.Name),
		Building:   strings.TrimSpace(params.Input.Building),
		RoomNumber: params.Input.RoomNumber,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	created, err = s.rooms.CreateRoom(ctx, room)
	return
}

// GetRoom returns one room.
func (s *RoomService) GetRoom(ctx context.Context, id string) (Room, error) {
	if s == nil || s.rooms == nil {
		return Room{}, fmt.Errorf("room repository not configured")
	}
	return s.rooms.GetRoom(ctx, id)
}

// ListRooms returns all registered rooms.
func (s *RoomService) ListRooms(ctx context.Context) ([]Room, error) {
	if s == nil || s.rooms == nil {
		return nil, fmt.Errorf("room repository not configured")
	}
	return s.rooms.ListRooms(ctx)
}

// UpdateRoom updates a room's descriptive fields. Restricted to administrators.
func (s *RoomService) UpdateRoom(ctx context.Context, params UpdateRoomParams) (updated Room, err error) {
	if s == nil || s.rooms == nil {
		err = fmt.Errorf("room repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateRoom",
		"principal_id", params.Principal.UserID,
		"room_id", params.RoomID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "room updated")
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if vErr := validateRoomInput(params.Input); vErr != nil {
		err = vErr
		return
	}

	var current Room
	current, err = s.rooms.GetRoom(ctx, params.RoomID)
	if err != nil {
		return
	}

	current.Name = strings.TrimSpace(params.Input.Name)
	current.Building = strings.TrimSpace(params.Input.Building)
	current.RoomNumber = params.Input.RoomNumber
	current.UpdatedAt = s.now()

	updated, err = s.rooms.UpdateRoom(ctx, current)
	return
}

// DeleteRoom removes a room and everything attached to it. Restricted to
// administrators.
func (s *RoomService) DeleteRoom(ctx context.Context, principal Principal, id string) (err error) {
	if s == nil || s.rooms == nil {
		return fmt.Errorf("room repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteRoom",
		"principal_id", principal.UserID,
		"room_id", id,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "room deleted")
	}()

	if !principal.IsAdmin {
		return ErrUnauthorized
	}
	return s.rooms.DeleteRoom(ctx, id)
}

// CreateRole adds a role to the catalog. Restricted to administrators.
func (s *RoomService) CreateRole(ctx context.Context, params CreateRoleParams) (created Role, err error) {
	if s == nil || s.roles == nil {
		err = fmt.Errorf("role catalog not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateRole",
		"principal_id", params.Principal.UserID,
		"role_name", params.Name,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create role", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("role_id", created.ID).InfoContext(ctx, "role created")
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	name := strings.TrimSpace(params.Name)
	if name == "" {
		vErr := &ValidationError{}
		vErr.add("name", "name is required")
		err = vErr
		return
	}

	created, err = s.roles.CreateRole(ctx, Role{
		ID:        s.idGenerator(),
		Name:      name,
		Level:     params.Level,
		CreatedAt: s.now(),
	})
	return
}

// ListRoles returns the role catalog.
func (s *RoomService) ListRoles(ctx context.Context) ([]Role, error) {
	if s == nil || s.roles == nil {
		return nil, fmt.Errorf("role catalog not configured")
	}
	return s.roles.ListRoles(ctx)
}

// AddMember grants a user membership in a room under a role. Restricted to
// administrators.
func (s *RoomService) AddMember(ctx context.Context, params AddMemberParams) (member Member, err error) {
	if s == nil || s.members == nil {
		err = fmt.Errorf("membership repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "AddMember",
		"principal_id", params.Principal.UserID,
		"room_id", params.RoomID,
		"user_id", params.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to add member", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "member added")
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	// Referenced room, user and role must all exist.
	if _, err = s.rooms.GetRoom(ctx, params.RoomID); err != nil {
		return
	}
	if s.users != nil {
		if _, err = s.users.GetUser(ctx, params.UserID); err != nil {
			return
		}
	}
	if _, err = s.roles.GetRole(ctx, params.RoleID); err != nil {
		return
	}

	member, err = s.members.AddMember(ctx, Member{
		RoomID:    params.RoomID,
		UserID:    params.UserID,
		RoleID:    params.RoleID,
		CreatedAt: s.now(),
	})
	return
}

// RemoveMember revokes a user's membership in a room. Restricted to
// administrators.
func (s *RoomService) RemoveMember(ctx context.Context, principal Principal, roomID, userID string) (err error) {
	if s == nil || s.members == nil {
		return fmt.Errorf("membership repository not configured")
	}

	logger := s.loggerWith(ctx, "RemoveMember",
		"principal_id", principal.UserID,
		"room_id", roomID,
		"user_id", userID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to remove member", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "member removed")
	}()

	if !principal.IsAdmin {
		return ErrUnauthorized
	}
	return s.members.RemoveMember(ctx, roomID, userID)
}

// ListMembers returns a room's memberships.
func (s *RoomService) ListMembers(ctx context.Context, roomID string) ([]Member, error) {
	if s == nil || s.members == nil {
		return nil, fmt.Errorf("membership repository not configured")
	}
	if _, err := s.rooms.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}
	return s.members.ListMembersByRoom(ctx, roomID)
}
