package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/example/room-access/internal/persistence"
)

// AccessLogRepository implements persistence.AccessLogRepository using SQLite.
// The table is append-only; no update or delete statements exist.
type AccessLogRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewAccessLogRepository creates a new SQLite access-log repository.
func NewAccessLogRepository(pool *ConnectionPool) *AccessLogRepository {
	return &AccessLogRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// AppendAccessLog inserts one attempt record.
func (r *AccessLogRepository) AppendAccessLog(ctx context.Context, log persistence.AccessLog) error {
	query := `
		INSERT INTO access_logs (id, room_id, user_id, method, granted, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.helper.Exec(ctx, query,
		log.ID,
		log.RoomID,
		nullableString(log.UserID),
		log.Method,
		log.Granted,
		log.Reason,
		formatTime(log.CreatedAt),
	)
	return r.mapper.MapError(err)
}

// ListAccessLogsByRoom returns a room's most recent attempts, newest first.
// A limit of zero or less returns everything.
func (r *AccessLogRepository) ListAccessLogsByRoom(ctx context.Context, roomID string, limit int) ([]persistence.AccessLog, error) {
	query := `
		SELECT id, room_id, user_id, method, granted, reason, created_at
		FROM access_logs
		WHERE room_id = ?
		ORDER BY created_at DESC, id DESC
	`
	args := []any{roomID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var logs []persistence.AccessLog
	for rows.Next() {
		log, err := r.scanAccessLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return logs, nil
}

// CountAccessOutcomes tallies granted and denied attempts for a room.
// Attempts with no matched user count as unknown regardless of outcome.
func (r *AccessLogRepository) CountAccessOutcomes(ctx context.Context, roomID string) (persistence.AccessStats, error) {
	query := `
		SELECT
			COUNT(CASE WHEN user_id IS NOT NULL AND granted = 1 THEN 1 END),
			COUNT(CASE WHEN user_id IS NOT NULL AND granted = 0 THEN 1 END),
			COUNT(CASE WHEN user_id IS NULL THEN 1 END)
		FROM access_logs
		WHERE room_id = ?
	`

	var stats persistence.AccessStats
	err := r.helper.QueryRow(ctx, query, roomID).Scan(&stats.Granted, &stats.Denied, &stats.Unknown)
	if err != nil {
		return persistence.AccessStats{}, r.mapper.MapError(err)
	}
	return stats, nil
}

// CountAttemptsByUser returns per-user attempt tallies for a room, busiest
// users first.
func (r *AccessLogRepository) CountAttemptsByUser(ctx context.Context, roomID string) ([]persistence.UserAttemptCount, error) {
	query := `
		SELECT user_id, COUNT(*), COUNT(CASE WHEN granted = 1 THEN 1 END)
		FROM access_logs
		WHERE room_id = ? AND user_id IS NOT NULL
		GROUP BY user_id
		ORDER BY COUNT(*) DESC, user_id ASC
	`

	rows, err := r.helper.Query(ctx, query, roomID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var counts []persistence.UserAttemptCount
	for rows.Next() {
		var count persistence.UserAttemptCount
		if err := rows.Scan(&count.UserID, &count.Attempts, &count.Granted); err != nil {
			return nil, r.mapper.MapError(err)
		}
		counts = append(counts, count)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return counts, nil
}

func (r *AccessLogRepository) scanAccessLog(row rowScanner) (persistence.AccessLog, error) {
	var log persistence.AccessLog
	var userID sql.NullString
	var createdAt string

	err := row.Scan(
		&log.ID,
		&log.RoomID,
		&userID,
		&log.Method,
		&log.Granted,
		&log.Reason,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.AccessLog{}, err
		}
		return persistence.AccessLog{}, r.mapper.MapError(err)
	}

	log.UserID = stringPtr(userID)
	if log.CreatedAt, err = parseTime(createdAt, "created_at"); err != nil {
		return persistence.AccessLog{}, err
	}

	return log, nil
}
