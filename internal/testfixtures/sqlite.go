package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/room-access/internal/persistence"
	"github.com/example/room-access/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary SQLite
// database for integration-style persistence tests.
type SQLiteHarness struct {
	Users        persistence.UserRepository
	Rooms        persistence.RoomRepository
	Roles        persistence.RoleRepository
	Members      persistence.MemberRepository
	Restrictions persistence.RestrictionRepository
	AccessLogs   persistence.AccessLogRepository
	Requests     persistence.MembershipRequestRepository
	Trackers     persistence.TrackerRepository
	Lapses       persistence.LapseRepository
	Sessions     persistence.SessionRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness using a temporary file that is
// migrated automatically. Callers may optionally invoke Close, but the helper
// will also register a cleanup callback with the provided testing.TB.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	dir := tb.TempDir()
	path := filepath.Join(dir, "access.db")

	pool, err := sqlite.Open(path)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := pool.Migrate(context.Background()); err != nil {
		_ = pool.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Users:        sqlite.NewUserRepository(pool),
		Rooms:        sqlite.NewRoomRepository(pool),
		Roles:        sqlite.NewRoleRepository(pool),
		Members:      sqlite.NewMemberRepository(pool),
		Restrictions: sqlite.NewRestrictionRepository(pool),
		AccessLogs:   sqlite.NewAccessLogRepository(pool),
		Requests:     sqlite.NewRequestRepository(pool),
		Trackers:     sqlite.NewTrackerRepository(pool),
		Lapses:       sqlite.NewLapseRepository(pool),
		Sessions:     sqlite.NewSessionRepository(pool),
		cleanup: func() {
			_ = pool.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}
