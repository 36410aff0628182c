package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/room-access/internal/persistence"
)

// RequestRepository implements persistence.MembershipRequestRepository using SQLite.
type RequestRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewRequestRepository creates a new SQLite membership-request repository.
func NewRequestRepository(pool *ConnectionPool) *RequestRepository {
	return &RequestRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const requestColumns = `id, room_id, room_name, user_id, user_name, admin_id, admin_name, status, created_at, updated_at`

// CreateRequest inserts a new membership request. The partial unique index on
// pending rows surfaces a second pending request as ErrDuplicate.
func (r *RequestRepository) CreateRequest(ctx context.Context, request persistence.MembershipRequest) error {
	query := `
		INSERT INTO membership_requests (` + requestColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.helper.Exec(ctx, query,
		request.ID,
		request.RoomID,
		request.RoomName,
		request.UserID,
		request.UserName,
		nullableString(request.AdminID),
		nullableString(request.AdminName),
		request.Status,
		formatTime(request.CreatedAt),
		formatTime(request.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// UpdateRequest persists a decision on an existing request.
func (r *RequestRepository) UpdateRequest(ctx context.Context, request persistence.MembershipRequest) error {
	query := `
		UPDATE membership_requests
		SET admin_id = ?, admin_name = ?, status = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.helper.Exec(ctx, query,
		nullableString(request.AdminID),
		nullableString(request.AdminName),
		request.Status,
		formatTime(request.UpdatedAt),
		request.ID,
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

// GetRequest retrieves a membership request by ID.
func (r *RequestRepository) GetRequest(ctx context.Context, id string) (persistence.MembershipRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM membership_requests WHERE id = ?`

	request, err := r.scanRequest(r.helper.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.MembershipRequest{}, persistence.ErrNotFound
		}
		return persistence.MembershipRequest{}, err
	}
	return request, nil
}

// ListRequestsByRoom returns a room's requests, newest first.
func (r *RequestRepository) ListRequestsByRoom(ctx context.Context, roomID string) ([]persistence.MembershipRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM membership_requests
		WHERE room_id = ?
		ORDER BY created_at DESC, id ASC
	`
	return r.queryRequests(ctx, query, roomID)
}

// ListRequestsByUser returns a user's requests across rooms, newest first.
func (r *RequestRepository) ListRequestsByUser(ctx context.Context, userID string) ([]persistence.MembershipRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM membership_requests
		WHERE user_id = ?
		ORDER BY created_at DESC, id ASC
	`
	return r.queryRequests(ctx, query, userID)
}

func (r *RequestRepository) queryRequests(ctx context.Context, query string, args ...any) ([]persistence.MembershipRequest, error) {
	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var requests []persistence.MembershipRequest
	for rows.Next() {
		request, err := r.scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return requests, nil
}

func (r *RequestRepository) scanRequest(row rowScanner) (persistence.MembershipRequest, error) {
	var request persistence.MembershipRequest
	var adminID, adminName sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&request.ID,
		&request.RoomID,
		&request.RoomName,
		&request.UserID,
		&request.UserName,
		&adminID,
		&adminName,
		&request.Status,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.MembershipRequest{}, err
		}
		return persistence.MembershipRequest{}, r.mapper.MapError(err)
	}

	request.AdminID = stringPtr(adminID)
	request.AdminName = stringPtr(adminName)
	if request.CreatedAt, err = parseTime(createdAt, "created_at"); err != nil {
		return persistence.MembershipRequest{}, err
	}
	if request.UpdatedAt, err = parseTime(updatedAt, "updated_at"); err != nil {
		return persistence.MembershipRequest{}, err
	}

	return request, nil
}
