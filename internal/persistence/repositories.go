package persistence

import (
	"context"
	"time"
)

// UserRepository exposes CRUD operations for user accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	DeleteUser(ctx context.Context, id string) error
}

// RoomRepository exposes CRUD operations for rooms.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room Room) error
	UpdateRoom(ctx context.Context, room Room) error
	GetRoom(ctx context.Context, id string) (Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
	DeleteRoom(ctx context.Context, id string) error
}

// RoleRepository stores the role catalog referenced by restrictions.
type RoleRepository interface {
	CreateRole(ctx context.Context, role Role) error
	GetRole(ctx context.Context, id string) (Role, error)
	ListRoles(ctx context.Context) ([]Role, error)
}

// MemberRepository stores room membership assignments.
type MemberRepository interface {
	AddMember(ctx context.Context, member Member) error
	RemoveMember(ctx context.Context, roomID, userID string) error
	GetMember(ctx context.Context, roomID, userID string) (Member, error)
	ListMembersByRoom(ctx context.Context, roomID string) ([]Member, error)
}

// MembershipRequestRepository stores room-join petitions. At most one pending
// request may exist per room and user; CreateRequest returns ErrDuplicate when
// a second one is attempted.
type MembershipRequestRepository interface {
	CreateRequest(ctx context.Context, request MembershipRequest) error
	UpdateRequest(ctx context.Context, request MembershipRequest) error
	GetRequest(ctx context.Context, id string) (MembershipRequest, error)
	ListRequestsByRoom(ctx context.Context, roomID string) ([]MembershipRequest, error)
	ListRequestsByUser(ctx context.Context, userID string) ([]MembershipRequest, error)
}

// RestrictionRepository stores weekly access windows.
type RestrictionRepository interface {
	CreateRestriction(ctx context.Context, restriction Restriction) error
	UpdateRestriction(ctx context.Context, restriction Restriction) error
	GetRestriction(ctx context.Context, id string) (Restriction, error)
	ListRestrictionsByRoom(ctx context.Context, roomID string) ([]Restriction, error)
	ListRestrictionsByRoomRole(ctx context.Context, roomID, roleID string) ([]Restriction, error)
	DeleteRestriction(ctx context.Context, id string) error
}

// AccessLogRepository stores the append-only attempt log. Rows are never
// updated or deleted.
type AccessLogRepository interface {
	AppendAccessLog(ctx context.Context, log AccessLog) error
	ListAccessLogsByRoom(ctx context.Context, roomID string, limit int) ([]AccessLog, error)
	CountAccessOutcomes(ctx context.Context, roomID string) (AccessStats, error)
	CountAttemptsByUser(ctx context.Context, roomID string) ([]UserAttemptCount, error)
}

// TrackerRepository stores trackers and their lapse log. ApplyMutation must
// persist the updated tracker and append the lapse atomically, and must
// reject the write with ErrConflict when the tracker's stored version does
// not match tracker.Version-1 (the version read before the mutation).
type TrackerRepository interface {
	CreateTracker(ctx context.Context, trk Tracker, lapse Lapse) error
	GetTracker(ctx context.Context, id string) (Tracker, error)
	ListTrackersByRoom(ctx context.Context, roomID string) ([]Tracker, error)
	ApplyMutation(ctx context.Context, trk Tracker, lapse Lapse) error
}

// LapseRepository reads the immutable lapse log.
type LapseRepository interface {
	GetLapse(ctx context.Context, id string) (Lapse, error)
	ListLapsesByTracker(ctx context.Context, trackerID string) ([]Lapse, error)
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, id string) (Session, error)
	RevokeSession(ctx context.Context, id string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}
