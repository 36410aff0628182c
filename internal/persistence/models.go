package persistence

import "time"

// User represents an account in the access-control domain.
type User struct {
	ID           string
	Email        string
	FirstName    string
	LastName     string
	Birthday     *time.Time
	PasscodeHash string
	IsAdmin      bool
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
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

// Role represents a membership role referenced by restrictions.
type Role struct {
	ID        string
	Name      string
	Level     int
	CreatedAt time.Time
}

// Member associates a user with a room under a role.
type Member struct {
	RoomID    string
	UserID    string
	RoleID    string
	CreatedAt time.Time
}

// MembershipRequest is a user's petition to join a room. Requester, room and
// deciding admin names are denormalized at write time; AdminID and AdminName
// stay null while the request is pending.
type MembershipRequest struct {
	ID        string
	RoomID    string
	RoomName  string
	UserID    string
	UserName  string
	AdminID   *string
	AdminName *string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Restriction stores a weekly access window for a room and role. DaysBitmask
// packs the permitted weekdays (bit 0 = Sunday); StartTime and EndTime are
// "HH:mm:ss" wall-clock strings.
type Restriction struct {
	ID          string
	RoomID      string
	RoleID      string
	DaysBitmask int
	StartTime   string
	EndTime     string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
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

// AccessStats aggregates a room's attempt outcomes for the dashboard.
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

// Tracker mirrors the tracker domain record. RecordMillis is the best
// duration in milliseconds, null when no record has been set. Version is the
// optimistic-concurrency counter guarding mutations.
type Tracker struct {
	ID            string
	RoomID        string
	Name          string
	TimeReference time.Time
	ResetAt       *time.Time
	RecordMillis  *int64
	Participants  []string
	CreatorID     string
	CreatorName   string
	UpdatedByID   string
	UpdatedByName string
	ResetByID     string
	ResetByName   string
	IsActive      bool
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Lapse is one immutable tracker change-log row. Payload and PreviousState
// are the sparse JSON documents produced by the tracker domain package;
// PreviousState is nil when the lapse is not reversible.
type Lapse struct {
	ID            string
	TrackerID     string
	IssuerID      string
	IssuerName    string
	CreatedAt     time.Time
	ChangeType    string
	Message       *string
	Payload       []byte
	PreviousState []byte
}

// Session represents an issued authentication session. Tokens themselves are
// signed JWTs; only the session id they reference is stored.
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}
