package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/room-access/internal/application"
	"github.com/example/room-access/internal/persistence"
	"github.com/example/room-access/internal/restriction"
	"github.com/example/room-access/internal/tracker"
)

var (
	userCounter        uint64
	roomCounter        uint64
	roleCounter        uint64
	restrictionCounter uint64
	trackerCounter     uint64
)

var referenceTime = time.Date(2025, time.June, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
// It falls on a Monday so weekday-window tests read naturally.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- User fixtures -----------------------------

// UserFixture represents a deterministic user record that can be materialised
// for application or persistence tests.
type UserFixture struct {
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

// UserOption configures the generated user fixture.
type UserOption func(*UserFixture)

// NewUserFixture returns a deterministic user fixture with optional overrides.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := UserFixture{
		ID:           id,
		Email:        fmt.Sprintf("%s@example.com", id),
		FirstName:    "User",
		LastName:     fmt.Sprintf("%03d", idx),
		PasscodeHash: fmt.Sprintf("hash-%03d", idx),
		IsAdmin:      false,
		IsActive:     true,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) UserOption {
	return func(f *UserFixture) {
		f.ID = id
	}
}

// WithUserEmail overrides the generated email address.
func WithUserEmail(email string) UserOption {
	return func(f *UserFixture) {
		f.Email = email
	}
}

// WithUserName overrides the generated first and last names.
func WithUserName(first, last string) UserOption {
	return func(f *UserFixture) {
		f.FirstName = first
		f.LastName = last
	}
}

// WithUserBirthday sets the birthday on the fixture.
func WithUserBirthday(t time.Time) UserOption {
	return func(f *UserFixture) {
		f.Birthday = &t
	}
}

// WithUserPasscodeHash overrides the generated passcode hash.
func WithUserPasscodeHash(hash string) UserOption {
	return func(f *UserFixture) {
		f.PasscodeHash = hash
	}
}

// WithUserAdmin sets the admin flag on the generated fixture.
func WithUserAdmin(isAdmin bool) UserOption {
	return func(f *UserFixture) {
		f.IsAdmin = isAdmin
	}
}

// WithUserActive sets the active flag on the generated fixture.
func WithUserActive(isActive bool) UserOption {
	return func(f *UserFixture) {
		f.IsActive = isActive
	}
}

// WithUserTimestamps sets both created and updated timestamps on the fixture.
func WithUserTimestamps(created, updated time.Time) UserOption {
	return func(f *UserFixture) {
		f.CreatedAt = created
		f.UpdatedAt = updated
	}
}

// Application returns the fixture as an application.User value.
func (f UserFixture) Application() application.User {
	return application.User{
		ID:        f.ID,
		Email:     f.Email,
		FirstName: f.FirstName,
		LastName:  f.LastName,
		Birthday:  f.Birthday,
		IsAdmin:   f.IsAdmin,
		IsActive:  f.IsActive,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Credentials returns the fixture as application.UserCredentials.
func (f UserFixture) Credentials() application.UserCredentials {
	return application.UserCredentials{
		User:         f.Application(),
		PasscodeHash: f.PasscodeHash,
		Disabled:     !f.IsActive,
	}
}

// Principal returns an application.Principal derived from the fixture.
func (f UserFixture) Principal() application.Principal {
	return application.Principal{UserID: f.ID, Name: f.Application().DisplayName(), IsAdmin: f.IsAdmin}
}

// Persistence returns the fixture as a persistence.User value.
func (f UserFixture) Persistence() persistence.User {
	return persistence.User{
		ID:           f.ID,
		Email:        f.Email,
		FirstName:    f.FirstName,
		LastName:     f.LastName,
		Birthday:     f.Birthday,
		PasscodeHash: f.PasscodeHash,
		IsAdmin:      f.IsAdmin,
		IsActive:     f.IsActive,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// ----------------------------- Room fixtures -----------------------------

// RoomFixture represents a deterministic room record.
type RoomFixture struct {
	ID         string
	Name       string
	Building   string
	RoomNumber *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// RoomOption configures the generated room fixture.
type RoomOption func(*RoomFixture)

// NewRoomFixture returns a deterministic room fixture with optional overrides.
func NewRoomFixture(opts ...RoomOption) RoomFixture {
	idx := atomic.AddUint64(&roomCounter, 1)
	id := fmt.Sprintf("room-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Hour)
	number := fmt.Sprintf("%d", 100+idx)
	fixture := RoomFixture{
		ID:         id,
		Name:       fmt.Sprintf("Room %03d", idx),
		Building:   "North Wing",
		RoomNumber: &number,
		CreatedAt:  created,
		UpdatedAt:  created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithRoomID overrides the generated room ID.
func WithRoomID(id string) RoomOption {
	return func(f *RoomFixture) {
		f.ID = id
	}
}

// WithRoomName overrides the generated room name.
func WithRoomName(name string) RoomOption {
	return func(f *RoomFixture) {
		f.Name = name
	}
}

// WithRoomBuilding overrides the generated building.
func WithRoomBuilding(building string) RoomOption {
	return func(f *RoomFixture) {
		f.Building = building
	}
}

// Application returns the fixture as an application.Room value.
func (f RoomFixture) Application() application.Room {
	return application.Room{
		ID:         f.ID,
		Name:       f.Name,
		Building:   f.Building,
		RoomNumber: f.RoomNumber,
		CreatedAt:  f.CreatedAt,
		UpdatedAt:  f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Room value.
func (f RoomFixture) Persistence() persistence.Room {
	return persistence.Room{
		ID:         f.ID,
		Name:       f.Name,
		Building:   f.Building,
		RoomNumber: f.RoomNumber,
		CreatedAt:  f.CreatedAt,
		UpdatedAt:  f.UpdatedAt,
	}
}

// ----------------------------- Role fixtures -----------------------------

// RoleFixture represents a deterministic role record.
type RoleFixture struct {
	ID        string
	Name      string
	Level     int
	CreatedAt time.Time
}

// NewRoleFixture returns a deterministic role fixture.
func NewRoleFixture(name string, level int) RoleFixture {
	idx := atomic.AddUint64(&roleCounter, 1)
	if name == "" {
		name = fmt.Sprintf("role-%03d", idx)
	}
	return RoleFixture{
		ID:        fmt.Sprintf("role-%03d", idx),
		Name:      name,
		Level:     level,
		CreatedAt: referenceTime,
	}
}

// Persistence returns the fixture as a persistence.Role value.
func (f RoleFixture) Persistence() persistence.Role {
	return persistence.Role{ID: f.ID, Name: f.Name, Level: f.Level, CreatedAt: f.CreatedAt}
}

// ------------------------- Restriction fixtures --------------------------

// RestrictionFixture represents a deterministic weekly access window.
type RestrictionFixture struct {
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

// RestrictionOption configures the generated restriction fixture.
type RestrictionOption func(*RestrictionFixture)

// NewRestrictionFixture returns a weekday business-hours window by default.
func NewRestrictionFixture(roomID, roleID string, opts ...RestrictionOption) RestrictionFixture {
	idx := atomic.AddUint64(&restrictionCounter, 1)
	fixture := RestrictionFixture{
		ID:          fmt.Sprintf("restriction-%03d", idx),
		RoomID:      roomID,
		RoleID:      roleID,
		DaysBitmask: restriction.EncodeDays([7]bool{false, true, true, true, true, true, false}),
		StartTime:   "09:00:00",
		EndTime:     "17:00:00",
		IsActive:    true,
		CreatedAt:   referenceTime,
		UpdatedAt:   referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithRestrictionDays overrides the weekday bitmask.
func WithRestrictionDays(bitmask int) RestrictionOption {
	return func(f *RestrictionFixture) {
		f.DaysBitmask = bitmask
	}
}

// WithRestrictionWindow overrides the daily window bounds.
func WithRestrictionWindow(start, end string) RestrictionOption {
	return func(f *RestrictionFixture) {
		f.StartTime = start
		f.EndTime = end
	}
}

// WithRestrictionActive sets the active flag.
func WithRestrictionActive(active bool) RestrictionOption {
	return func(f *RestrictionFixture) {
		f.IsActive = active
	}
}

// Persistence returns the fixture as a persistence.Restriction value.
func (f RestrictionFixture) Persistence() persistence.Restriction {
	return persistence.Restriction{
		ID:          f.ID,
		RoomID:      f.RoomID,
		RoleID:      f.RoleID,
		DaysBitmask: f.DaysBitmask,
		StartTime:   f.StartTime,
		EndTime:     f.EndTime,
		IsActive:    f.IsActive,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// Rule returns the fixture as a parsed restriction.Rule. It panics on
// malformed bounds, which only happens when a test supplies bad input.
func (f RestrictionFixture) Rule() restriction.Rule {
	start, err := restriction.ParseTimeOfDay(f.StartTime)
	if err != nil {
		panic(fmt.Sprintf("testfixtures: bad start time %q: %v", f.StartTime, err))
	}
	end, err := restriction.ParseTimeOfDay(f.EndTime)
	if err != nil {
		panic(fmt.Sprintf("testfixtures: bad end time %q: %v", f.EndTime, err))
	}
	return restriction.Rule{
		DaysBitmask: f.DaysBitmask,
		Start:       start,
		End:         end,
		Active:      f.IsActive,
	}
}

// --------------------------- Tracker fixtures ----------------------------

// TrackerFixture represents a deterministic tracker record.
type TrackerFixture struct {
	ID            string
	RoomID        string
	Name          string
	TimeReference time.Time
	ResetAt       *time.Time
	Record        *time.Duration
	Participants  []string
	Creator       tracker.UserRef
	IsActive      bool
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TrackerOption configures the generated tracker fixture.
type TrackerOption func(*TrackerFixture)

// NewTrackerFixture returns a deterministic tracker fixture.
func NewTrackerFixture(roomID string, opts ...TrackerOption) TrackerFixture {
	idx := atomic.AddUint64(&trackerCounter, 1)
	fixture := TrackerFixture{
		ID:            fmt.Sprintf("tracker-%03d", idx),
		RoomID:        roomID,
		Name:          fmt.Sprintf("Tracker %03d", idx),
		TimeReference: referenceTime.Add(-time.Duration(idx) * time.Hour),
		Creator:       tracker.UserRef{ID: "user-001", Name: "User 001"},
		IsActive:      true,
		Version:       1,
		CreatedAt:     referenceTime,
		UpdatedAt:     referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithTrackerRecord sets the best-streak record.
func WithTrackerRecord(record time.Duration) TrackerOption {
	return func(f *TrackerFixture) {
		f.Record = &record
	}
}

// WithTrackerParticipants sets the participant list.
func WithTrackerParticipants(ids ...string) TrackerOption {
	return func(f *TrackerFixture) {
		f.Participants = ids
	}
}

// WithTrackerVersion sets the optimistic-concurrency version.
func WithTrackerVersion(version int64) TrackerOption {
	return func(f *TrackerFixture) {
		f.Version = version
	}
}

// Domain returns the fixture as a tracker.Tracker value.
func (f TrackerFixture) Domain() tracker.Tracker {
	return tracker.Tracker{
		ID:            f.ID,
		RoomID:        f.RoomID,
		Name:          f.Name,
		TimeReference: f.TimeReference,
		ResetAt:       f.ResetAt,
		Record:        f.Record,
		Participants:  f.Participants,
		Creator:       f.Creator,
		UpdatedBy:     f.Creator,
		IsActive:      f.IsActive,
		Version:       f.Version,
		CreatedAt:     f.CreatedAt,
		UpdatedAt:     f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Tracker value.
func (f TrackerFixture) Persistence() persistence.Tracker {
	var recordMillis *int64
	if f.Record != nil {
		millis := f.Record.Milliseconds()
		recordMillis = &millis
	}
	return persistence.Tracker{
		ID:            f.ID,
		RoomID:        f.RoomID,
		Name:          f.Name,
		TimeReference: f.TimeReference,
		ResetAt:       f.ResetAt,
		RecordMillis:  recordMillis,
		Participants:  f.Participants,
		CreatorID:     f.Creator.ID,
		CreatorName:   f.Creator.Name,
		UpdatedByID:   f.Creator.ID,
		UpdatedByName: f.Creator.Name,
		IsActive:      f.IsActive,
		Version:       f.Version,
		CreatedAt:     f.CreatedAt,
		UpdatedAt:     f.UpdatedAt,
	}
}
