package sqlite

import (
	"context"
	"fmt"
)

// The schema is small and fixed, so migrations are plain embedded DDL
// executed in order. Every statement is idempotent.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE COLLATE NOCASE,
		first_name    TEXT NOT NULL,
		last_name     TEXT NOT NULL,
		birthday      TEXT,
		passcode_hash TEXT NOT NULL,
		is_admin      INTEGER NOT NULL DEFAULT 0,
		is_active     INTEGER NOT NULL DEFAULT 1,
		created_at    TEXT NOT NULL,
		updated_at    TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS rooms (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		building    TEXT NOT NULL,
		room_number TEXT,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL,
		UNIQUE (name, building, room_number)
	)`,
	`CREATE TABLE IF NOT EXISTS roles (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL UNIQUE,
		level      INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS room_members (
		room_id    TEXT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
		user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		role_id    TEXT NOT NULL REFERENCES roles(id),
		created_at TEXT NOT NULL,
		PRIMARY KEY (room_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS membership_requests (
		id         TEXT PRIMARY KEY,
		room_id    TEXT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
		room_name  TEXT NOT NULL,
		user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		user_name  TEXT NOT NULL,
		admin_id   TEXT,
		admin_name TEXT,
		status     TEXT NOT NULL CHECK (status IN ('pending','approved','rejected')),
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_membership_requests_pending
		ON membership_requests (room_id, user_id) WHERE status = 'pending'`,
	`CREATE TABLE IF NOT EXISTS restrictions (
		id           TEXT PRIMARY KEY,
		room_id      TEXT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
		role_id      TEXT NOT NULL REFERENCES roles(id),
		days_bitmask INTEGER NOT NULL CHECK (days_bitmask BETWEEN 0 AND 127),
		start_time   TEXT NOT NULL,
		end_time     TEXT NOT NULL,
		is_active    INTEGER NOT NULL DEFAULT 1,
		created_at   TEXT NOT NULL,
		updated_at   TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS access_logs (
		id         TEXT PRIMARY KEY,
		room_id    TEXT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
		user_id    TEXT REFERENCES users(id),
		method     TEXT NOT NULL,
		granted    INTEGER NOT NULL,
		reason     TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_access_logs_room_created
		ON access_logs (room_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS trackers (
		id              TEXT PRIMARY KEY,
		room_id         TEXT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
		name            TEXT NOT NULL,
		time_reference  TEXT NOT NULL,
		reset_at        TEXT,
		record_millis   INTEGER CHECK (record_millis IS NULL OR record_millis >= 0),
		creator_id      TEXT NOT NULL,
		creator_name    TEXT NOT NULL,
		updated_by_id   TEXT NOT NULL,
		updated_by_name TEXT NOT NULL,
		reset_by_id     TEXT NOT NULL,
		reset_by_name   TEXT NOT NULL,
		is_active       INTEGER NOT NULL DEFAULT 1,
		version         INTEGER NOT NULL DEFAULT 1,
		created_at      TEXT NOT NULL,
		updated_at      TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tracker_participants (
		tracker_id TEXT NOT NULL REFERENCES trackers(id) ON DELETE CASCADE,
		user_id    TEXT NOT NULL,
		position   INTEGER NOT NULL,
		PRIMARY KEY (tracker_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS lapses (
		id             TEXT PRIMARY KEY,
		tracker_id     TEXT NOT NULL REFERENCES trackers(id) ON DELETE CASCADE,
		issuer_id      TEXT NOT NULL,
		issuer_name    TEXT NOT NULL,
		created_at     TEXT NOT NULL,
		change_type    TEXT NOT NULL CHECK (change_type IN ('add','reset','edit','delete','rollback')),
		message        TEXT,
		payload        TEXT NOT NULL,
		previous_state TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_lapses_tracker_created
		ON lapses (tracker_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		expires_at TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		revoked_at TEXT
	)`,
}

// Migrate applies the schema to the connected database.
func (cp *ConnectionPool) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := cp.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
