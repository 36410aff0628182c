package application

import (
	"time"

	"github.com/example/room-access/internal/restriction"
	"github.com/example/room-access/internal/tracker"
)

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID  string
	Name    string
	IsAdmin bool
}

// UserRef returns the principal as a tracker issuer reference.
func (p Principal) UserRef() tracker.UserRef {
	return tracker.UserRef{ID: p.UserID, Name: p.Name}
}

// UserInput captures caller provided user attributes.
type UserInput struct {
	Email     string
	FirstName string
	LastName  string
	Birthday  *time.Time
	Passcode  string
	IsAdmin   bool
}

// User represents an account exposed by the application services.
type User struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
	Birthday  *time.Time
	IsAdmin   bool
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DisplayName returns the name shown in logs and tracker attributions.
func (u User) DisplayName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}

// SignupParams wraps the data required for self-service account creation.
type SignupParams struct {
	Input UserInput
}

// CreateUserParams wraps the data required for an admin to create a user.
type CreateUserParams struct {
	Principal Principal
	Input     UserInput
}

// UpdateUserParams wraps the data required to update a user.
type UpdateUserParams struct {
	Principal Principal
	UserID    string
	Input     UserInput
}

// UserCredentials models the authentication attributes persisted for a user.
type UserCredentials struct {
	User         User
	PasscodeHash string
	Disabled     bool
}

// Session represents an authenticated session issued to a user.
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}

// AuthenticateParams captures the data required to authenticate a user.
type AuthenticateParams struct {
	Email    string
	Passcode string
}

// AuthenticateResult captures the outcome of a successful authentication attempt.
type AuthenticateResult struct {
	User    User
	Session Session
	Token   string
}

// RoomInput captures caller provided room fields.
type RoomInput struct {
	Name       string
	Building   string
	RoomNumber *string
}

// Room represents a physical room guarded by an access-control device.
type Room struct {
	ID         string
	Name       string
	Building   string
	RoomNumber *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CreateRoomParams wraps the data required to create a room.
type CreateRoomParams struct {
	Principal Principal
	Input     RoomInput
}

// UpdateRoomParams wraps the data required to update a room.
type UpdateRoomParams struct {
	Principal Principal
	RoomID    string
	Input     RoomInput
}

// Role represents a membership role referenced by restrictions.
type Role struct {
	ID        string
	Name      string
	Level     int
	CreatedAt time.Time
}

// CreateRoleParams wraps the data required to create a role.
type CreateRoleParams struct {
	Principal Principal
	Name      string
	Level     int
}

// Member associates a user with a room under a role.
type Member struct {
	RoomID    string
	UserID    string
	RoleID    string
	CreatedAt time.Time
}

// AddMemberParams wraps the data required to add a room member.
type AddMemberParams struct {
	Principal Principal
	RoomID    string
	UserID    string
	RoleID    string
}

// RequestStatus enumerates the membership-request lifecycle states.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// MembershipRequest is a user's petition to join a room. The requester, room
// and deciding admin names are captured at write time so listings survive
// later renames; Admin fields stay nil while the request is pending.
type MembershipRequest struct {
	ID        string
	RoomID    string
	RoomName  string
	UserID    string
	UserName  string
	AdminID   *string
	AdminName *string
	Status    RequestStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateRequestParams wraps a self-service petition to join a room.
type CreateRequestParams struct {
	Principal Principal
	RoomID    string
}

// DecideRequestParams wraps an admin decision on a pending request. RoleID is
// only consulted on approval, where the resulting membership needs a role.
type DecideRequestParams struct {
	Principal Principal
	RequestID string
	RoleID    string
}

// RestrictionInput captures caller provided restriction fields. Start and End
// are "HH:mm:ss" strings; Days is the packed weekday bitmask.
type RestrictionInput struct {
	RoleID   string
	Days     int
	Start    string
	End      string
	IsActive bool
}

// Restriction represents a weekly access window for a room and role.
type Restriction struct {
	ID        string
	RoomID    string
	RoleID    string
	Rule      restriction.Rule
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateRestrictionParams wraps the data required to create a restriction.
type CreateRestrictionParams struct {
	Principal Principal
	RoomID    string
	Input     RestrictionInput
}

// UpdateRestrictionParams wraps the data required to update a restriction.
type UpdateRestrictionParams struct {
	Principal     Principal
	RestrictionID string
	Input         RestrictionInput
}

// AccessAttemptParams captures one access attempt reported by a device.
type AccessAttemptParams struct {
	RoomID   string
	Email    string
	Passcode string
	Method   string
}

// AccessDecision is the outcome of evaluating an access attempt.
type AccessDecision struct {
	Granted bool
	Reason  string
	UserID  *string
}

// AccessLog is one append-only access-attempt record.
type AccessLog struct {
	ID        string
	RoomID    string
	UserID    *string
	Method    string
	Granted   bool
	Reason    string
	CreatedAt time.Time
}

// AccessStats aggregates a room's attempt outcomes.
type AccessStats struct {
	Granted int
	Denied  int
	Unknown int
}

// UserAttemptCount is a per-user attempt tally for a room.
type UserAttemptCount struct {
	UserID   string
	Attempts int
	Granted  int
}

// TrackerInput captures caller provided fields for creating a tracker.
type TrackerInput struct {
	Name          string
	TimeReference time.Time
	Participants  []string
}

// CreateTrackerParams wraps the data required to create a tracker.
type CreateTrackerParams struct {
	Principal Principal
	RoomID    string
	Input     TrackerInput
}

// MutateTrackerParams wraps a sparse tracker mutation. Payload carries only
// the fields the caller wants to change.
type MutateTrackerParams struct {
	Principal  Principal
	TrackerID  string
	ChangeType string
	Message    string
	Payload    tracker.Patch
}

// ResetTrackerParams wraps the data required to reset a tracker's timer.
type ResetTrackerParams struct {
	Principal Principal
	TrackerID string
	Message   string
}

// RollbackParams wraps the data required to roll back a lapse.
type RollbackParams struct {
	Principal Principal
	LapseID   string
}
