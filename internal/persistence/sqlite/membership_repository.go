package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/room-access/internal/persistence"
)

// RoleRepository implements persistence.RoleRepository using SQLite.
type RoleRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewRoleRepository creates a new SQLite role repository.
func NewRoleRepository(pool *ConnectionPool) *RoleRepository {
	return &RoleRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateRole inserts a new role.
func (r *RoleRepository) CreateRole(ctx context.Context, role persistence.Role) error {
	query := `INSERT INTO roles (id, name, level, created_at) VALUES (?, ?, ?, ?)`

	_, err := r.helper.Exec(ctx, query,
		role.ID,
		role.Name,
		role.Level,
		formatTime(role.CreatedAt),
	)
	return r.mapper.MapError(err)
}

// GetRole retrieves a role by ID.
func (r *RoleRepository) GetRole(ctx context.Context, id string) (persistence.Role, error) {
	query := `SELECT id, name, level, created_at FROM roles WHERE id = ?`

	role, err := r.scanRole(r.helper.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Role{}, persistence.ErrNotFound
		}
		return persistence.Role{}, err
	}
	return role, nil
}

// ListRoles returns all roles ordered by level descending then name.
func (r *RoleRepository) ListRoles(ctx context.Context) ([]persistence.Role, error) {
	query := `SELECT id, name, level, created_at FROM roles ORDER BY level DESC, name ASC`

	rows, err := r.helper.Query(ctx, query)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var roles []persistence.Role
	for rows.Next() {
		role, err := r.scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return roles, nil
}

func (r *RoleRepository) scanRole(row rowScanner) (persistence.Role, error) {
	var role persistence.Role
	var createdAt string

	err := row.Scan(&role.ID, &role.Name, &role.Level, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Role{}, err
		}
		return persistence.Role{}, r.mapper.MapError(err)
	}

	if role.CreatedAt, err = parseTime(createdAt, "created_at"); err != nil {
		return persistence.Role{}, err
	}

	return role, nil
}

// MemberRepository implements persistence.MemberRepository using SQLite.
type MemberRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewMemberRepository creates a new SQLite member repository.
func NewMemberRepository(pool *ConnectionPool) *MemberRepository {
	return &MemberRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// AddMember inserts a room membership.
func (r *MemberRepository) AddMember(ctx context.Context, member persistence.Member) error {
	query := `
		INSERT INTO room_members (room_id, user_id, role_id, created_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := r.helper.Exec(ctx, query,
		member.RoomID,
		member.UserID,
		member.RoleID,
		formatTime(member.CreatedAt),
	)
	return r.mapper.MapError(err)
}

// RemoveMember deletes a room membership.
func (r *MemberRepository) RemoveMember(ctx context.Context, roomID, userID string) error {
	query := `DELETE FROM room_members WHERE room_id = ? AND user_id = ?`

	result, err := r.helper.Exec(ctx, query, roomID, userID)
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

// GetMember retrieves the membership for a room and user.
func (r *MemberRepository) GetMember(ctx context.Context, roomID, userID string) (persistence.Member, error) {
	query := `
		SELECT room_id, user_id, role_id, created_at
		FROM room_members
		WHERE room_id = ? AND user_id = ?
	`

	member, err := r.scanMember(r.helper.QueryRow(ctx, query, roomID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Member{}, persistence.ErrNotFound
		}
		return persistence.Member{}, err
	}
	return member, nil
}

// ListMembersByRoom returns a room's memberships ordered by join time.
func (r *MemberRepository) ListMembersByRoom(ctx context.Context, roomID string) ([]persistence.Member, error) {
	query := `
		SELECT room_id, user_id, role_id, created_at
		FROM room_members
		WHERE room_id = ?
		ORDER BY created_at ASC, user_id ASC
	`

	rows, err := r.helper.Query(ctx, query, roomID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var members []persistence.Member
	for rows.Next() {
		member, err := r.scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return members, nil
}

func (r *MemberRepository) scanMember(row rowScanner) (persistence.Member, error) {
	var member persistence.Member
	var createdAt string

	err := row.Scan(&member.RoomID, &member.UserID, &member.RoleID, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Member{}, err
		}
		return persistence.Member{}, r.mapper.MapError(err)
	}

	if member.CreatedAt, err = parseTime(createdAt, "created_at"); err != nil {
		return persistence.Member{}, err
	}

	return member, nil
}
