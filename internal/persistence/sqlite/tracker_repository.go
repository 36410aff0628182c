package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/room-access/internal/persistence"
)

// TrackerRepository implements persistence.TrackerRepository using SQLite.
type TrackerRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewTrackerRepository creates a new SQLite tracker repository.
func NewTrackerRepository(pool *ConnectionPool) *TrackerRepository {
	return &TrackerRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const trackerColumns = `id, room_id, name, time_reference, reset_at, record_millis,
	creator_id, creator_name, updated_by_id, updated_by_name, reset_by_id, reset_by_name,
	is_active, version, created_at, updated_at`

// CreateTracker inserts the tracker, its participant rows and the creation
// lapse in one transaction.
func (r *TrackerRepository) CreateTracker(ctx context.Context, trk persistence.Tracker, lapse persistence.Lapse) error {
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO trackers (` + trackerColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`

		_, err := r.helper.ExecTx(tx, query,
			trk.ID,
			trk.RoomID,
			trk.Name,
			formatTime(trk.TimeReference),
			formatNullableTime(trk.ResetAt),
			nullableInt64(trk.RecordMillis),
			trk.CreatorID,
			trk.CreatorName,
			trk.UpdatedByID,
			trk.UpdatedByName,
			trk.ResetByID,
			trk.ResetByName,
			trk.IsActive,
			trk.Version,
			formatTime(trk.CreatedAt),
			formatTime(trk.UpdatedAt),
		)
		if err != nil {
			return err
		}

		if err := r.replaceParticipants(tx, trk.ID, trk.Participants); err != nil {
			return err
		}

		return r.insertLapse(tx, lapse)
	})
	return r.mapper.MapError(err)
}

// ApplyMutation persists an already-mutated tracker and appends its lapse
// atomically. The update is guarded by the version the caller read before
// mutating: when another write got there first the guard misses and the whole
// transaction fails with ErrConflict.
func (r *TrackerRepository) ApplyMutation(ctx context.Context, trk persistence.Tracker, lapse persistence.Lapse) error {
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		query := `
			UPDATE trackers
			SET name = ?, time_reference = ?, reset_at = ?, record_millis = ?,
			    updated_by_id = ?, updated_by_name = ?, reset_by_id = ?, reset_by_name = ?,
			    is_active = ?, version = ?, updated_at = ?
			WHERE id = ? AND version = ?
		`

		result, err := r.helper.ExecTx(tx, query,
			trk.Name,
			formatTime(trk.TimeReference),
			formatNullableTime(trk.ResetAt),
			nullableInt64(trk.RecordMillis),
			trk.UpdatedByID,
			trk.UpdatedByName,
			trk.ResetByID,
			trk.ResetByName,
			trk.IsActive,
			trk.Version,
			formatTime(trk.UpdatedAt),
			trk.ID,
			trk.Version-1,
		)
		if err != nil {
			return err
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			var exists bool
			existsQuery := `SELECT EXISTS (SELECT 1 FROM trackers WHERE id = ?)`
			if err := r.helper.QueryRowTx(tx, existsQuery, trk.ID).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return persistence.ErrNotFound
			}
			return persistence.ErrConflict
		}

		if err := r.replaceParticipants(tx, trk.ID, trk.Participants); err != nil {
			return err
		}

		return r.insertLapse(tx, lapse)
	})
	if errors.Is(err, persistence.ErrNotFound) || errors.Is(err, persistence.ErrConflict) {
		return err
	}
	return r.mapper.MapError(err)
}

// GetTracker retrieves a tracker and its participants by ID.
func (r *TrackerRepository) GetTracker(ctx context.Context, id string) (persistence.Tracker, error) {
	query := `SELECT ` + trackerColumns + ` FROM trackers WHERE id = ?`

	trk, err := r.scanTracker(r.helper.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Tracker{}, persistence.ErrNotFound
		}
		return persistence.Tracker{}, err
	}

	if trk.Participants, err = r.loadParticipants(ctx, id); err != nil {
		return persistence.Tracker{}, err
	}

	return trk, nil
}

// ListTrackersByRoom returns a room's trackers with participants, oldest
// first.
func (r *TrackerRepository) ListTrackersByRoom(ctx context.Context, roomID string) ([]persistence.Tracker, error) {
	query := `
		SELECT ` + trackerColumns + `
		FROM trackers
		WHERE room_id = ?
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.helper.Query(ctx, query, roomID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var trackers []persistence.Tracker
	for rows.Next() {
		trk, err := r.scanTracker(rows)
		if err != nil {
			return nil, err
		}
		trackers = append(trackers, trk)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	for i := range trackers {
		if trackers[i].Participants, err = r.loadParticipants(ctx, trackers[i].ID); err != nil {
			return nil, err
		}
	}

	return trackers, nil
}

func (r *TrackerRepository) replaceParticipants(tx *sql.Tx, trackerID string, participants []string) error {
	if _, err := r.helper.ExecTx(tx, `DELETE FROM tracker_participants WHERE tracker_id = ?`, trackerID); err != nil {
		return err
	}

	insert := `INSERT INTO tracker_participants (tracker_id, user_id, position) VALUES (?, ?, ?)`
	for i, userID := range participants {
		if _, err := r.helper.ExecTx(tx, insert, trackerID, userID, i); err != nil {
			return err
		}
	}
	return nil
}

func (r *TrackerRepository) loadParticipants(ctx context.Context, trackerID string) ([]string, error) {
	query := `
		SELECT user_id
		FROM tracker_participants
		WHERE tracker_id = ?
		ORDER BY position ASC
	`

	rows, err := r.helper.Query(ctx, query, trackerID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var participants []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, r.mapper.MapError(err)
		}
		participants = append(participants, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return participants, nil
}

func (r *TrackerRepository) insertLapse(tx *sql.Tx, lapse persistence.Lapse) error {
	query := `
		INSERT INTO lapses (id, tracker_id, issuer_id, issuer_name, created_at, change_type, message, payload, previous_state)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var previousState any
	if lapse.PreviousState != nil {
		previousState = string(lapse.PreviousState)
	}

	_, err := r.helper.ExecTx(tx, query,
		lapse.ID,
		lapse.TrackerID,
		lapse.IssuerID,
		lapse.IssuerName,
		formatTime(lapse.CreatedAt),
		lapse.ChangeType,
		nullableString(lapse.Message),
		string(lapse.Payload),
		previousState,
	)
	return err
}

func (r *TrackerRepository) scanTracker(row rowScanner) (persistence.Tracker, error) {
	var trk persistence.Tracker
	var resetAt sql.NullString
	var recordMillis sql.NullInt64
	var timeReference, createdAt, updatedAt string

	err := row.Scan(
		&trk.ID,
		&trk.RoomID,
		&trk.Name,
		&timeReference,
		&resetAt,
		&recordMillis,
		&trk.CreatorID,
		&trk.CreatorName,
		&trk.UpdatedByID,
		&trk.UpdatedByName,
		&trk.ResetByID,
		&trk.ResetByName,
		&trk.IsActive,
		&trk.Version,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Tracker{}, err
		}
		return persistence.Tracker{}, r.mapper.MapError(err)
	}

	trk.RecordMillis = int64Ptr(recordMillis)
	if trk.TimeReference, err = parseTime(timeReference, "time_reference"); err != nil {
		return persistence.Tracker{}, err
	}
	if trk.ResetAt, err = parseNullableTime(resetAt, "reset_at"); err != nil {
		return persistence.Tracker{}, err
	}
	if trk.CreatedAt, err = parseTime(createdAt, "created_at"); err != nil {
		return persistence.Tracker{}, err
	}
	if trk.UpdatedAt, err = parseTime(updatedAt, "updated_at"); err != nil {
		return persistence.Tracker{}, err
	}

	return trk, nil
}

// LapseRepository implements persistence.LapseRepository using SQLite. Lapses
// are written through TrackerRepository; this type only reads.
type LapseRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewLapseRepository creates a new SQLite lapse repository.
func NewLapseRepository(pool *ConnectionPool) *LapseRepository {
	return &LapseRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const lapseColumns = `id, tracker_id, issuer_id, issuer_name, created_at, change_type, message, payload, previous_state`

// GetLapse retrieves a lapse by ID.
func (r *LapseRepository) GetLapse(ctx context.Context, id string) (persistence.Lapse, error) {
	query := `SELECT ` + lapseColumns + ` FROM lapses WHERE id = ?`

	lapse, err := r.scanLapse(r.helper.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Lapse{}, persistence.ErrNotFound
		}
		return persistence.Lapse{}, err
	}
	return lapse, nil
}

// ListLapsesByTracker returns a tracker's lapse log, newest first.
func (r *LapseRepository) ListLapsesByTracker(ctx context.Context, trackerID string) ([]persistence.Lapse, error) {
	query := `
		SELECT ` + lapseColumns + `
		FROM lapses
		WHERE tracker_id = ?
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.helper.Query(ctx, query, trackerID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var lapses []persistence.Lapse
	for rows.Next() {
		lapse, err := r.scanLapse(rows)
		if err != nil {
			return nil, err
		}
		lapses = append(lapses, lapse)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return lapses, nil
}

func (r *LapseRepository) scanLapse(row rowScanner) (persistence.Lapse, error) {
	var lapse persistence.Lapse
	var message, previousState sql.NullString
	var createdAt, payload string

	err := row.Scan(
		&lapse.ID,
		&lapse.TrackerID,
		&lapse.IssuerID,
		&lapse.IssuerName,
		&createdAt,
		&lapse.ChangeType,
		&message,
		&payload,
		&previousState,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Lapse{}, err
		}
		return persistence.Lapse{}, r.mapper.MapError(err)
	}

	lapse.Message = stringPtr(message)
	lapse.Payload = []byte(payload)
	if previousState.Valid {
		lapse.PreviousState = []byte(previousState.String)
	}
	if lapse.CreatedAt, err = parseTime(createdAt, "created_at"); err != nil {
		return persistence.Lapse{}, err
	}

	return lapse, nil
}
