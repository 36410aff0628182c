package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/room-access/internal/persistence"
)

// RestrictionRepository implements persistence.RestrictionRepository using SQLite.
type RestrictionRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewRestrictionRepository creates a new SQLite restriction repository.
func NewRestrictionRepository(pool *ConnectionPool) *RestrictionRepository {
	return &RestrictionRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const restrictionColumns = `id, room_id, role_id, days_bitmask, start_time, end_time, is_active, created_at, updated_at`

// CreateRestriction inserts a new restriction.
func (r *RestrictionRepository) CreateRestriction(ctx context.Context, restriction persistence.Restriction) error {
	query := `
		INSERT INTO restrictions (` + restrictionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.helper.Exec(ctx, query,
		restriction.ID,
		restriction.RoomID,
		restriction.RoleID,
		restriction.DaysBitmask,
		restriction.StartTime,
		restriction.EndTime,
		restriction.IsActive,
		formatTime(restriction.CreatedAt),
		formatTime(restriction.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// UpdateRestriction updates an existing restriction.
func (r *RestrictionRepository) UpdateRestriction(ctx context.Context, restriction persistence.Restriction) error {
	query := `
		UPDATE restrictions
		SET days_bitmask = ?, start_time = ?, end_time = ?, is_active = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.helper.Exec(ctx, query,
		restriction.DaysBitmask,
		restriction.StartTime,
		restriction.EndTime,
		restriction.IsActive,
		formatTime(restriction.UpdatedAt),
		restriction.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return persistence.ErrNotFound
	}

	return nil
}

// GetRestriction retrieves a restriction by ID.
func (r *RestrictionRepository) GetRestriction(ctx context.Context, id string) (persistence.Restriction, error) {
	query := `SELECT ` + restrictionColumns + ` FROM restrictions WHERE id = ?`

	restriction, err := r.scanRestriction(r.helper.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Restriction{}, persistence.ErrNotFound
		}
		return persistence.Restriction{}, err
	}
	return restriction, nil
}

// ListRestrictionsByRoom returns all restrictions for a room.
func (r *RestrictionRepository) ListRestrictionsByRoom(ctx context.Context, roomID string) ([]persistence.Restriction, error) {
	query := `
		SELECT ` + restrictionColumns + `
		FROM restrictions
		WHERE room_id = ?
		ORDER BY created_at ASC, id ASC
	`
	return r.queryRestrictions(ctx, query, roomID)
}

// ListRestrictionsByRoomRole returns the restrictions that apply to one role
// within a room.
func (r *RestrictionRepository) ListRestrictionsByRoomRole(ctx context.Context, roomID, roleID string) ([]persistence.Restriction, error) {
	query := `
		SELECT ` + restrictionColumns + `
		FROM restrictions
		WHERE room_id = ? AND role_id = ?
		ORDER BY created_at ASC, id ASC
	`
	return r.queryRestrictions(ctx, query, roomID, roleID)
}

// DeleteRestriction removes a restriction by ID.
func (r *RestrictionRepository) DeleteRestriction(ctx context.Context, id string) error {
	result, err := r.helper.Exec(ctx, `DELETE FROM restrictions WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return persistence.ErrNotFound
	}

	return nil
}

func (r *RestrictionRepository) queryRestrictions(ctx context.Context, query string, args ...any) ([]persistence.Restriction, error) {
	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var restrictions []persistence.Restriction
	for rows.Next() {
		restriction, err := r.scanRestriction(rows)
		if err != nil {
			return nil, err
		}
		restrictions = append(restrictions, restriction)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return restrictions, nil
}

func (r *RestrictionRepository) scanRestriction(row rowScanner) (persistence.Restriction, error) {
	var restriction persistence.Restriction
	var createdAt, updatedAt string

	err := row.Scan(
		&restriction.ID,
		&restriction.RoomID,
		&restriction.RoleID,
		&restriction.DaysBitmask,
		&restriction.StartTime,
		&restriction.EndTime,
		&restriction.IsActive,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Restriction{}, err
		}
		return persistence.Restriction{}, r.mapper.MapError(err)
	}

	if restriction.CreatedAt, err = parseTime(createdAt, "created_at"); err != nil {
		return persistence.Restriction{}, err
	}
	if restriction.UpdatedAt, err = parseTime(updatedAt, "updated_at"); err != nil {
		return persistence.Restriction{}, err
	}

	return restriction, nil
}
