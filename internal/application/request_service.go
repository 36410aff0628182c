package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// MembershipRequestRepository captures the persistence interactions required
// by the request service. CreateRequest must reject a second pending request
// for the same room and user with ErrAlreadyExists.
type MembershipRequestRepository interface {
	CreateRequest(ctx context.Context, request MembershipRequest) (MembershipRequest, error)
	UpdateRequest(ctx context.Context, request MembershipRequest) (MembershipRequest, error)
	GetRequest(ctx context.Context, id string) (MembershipRequest, error)
	ListRequestsByRoom(ctx context.Context, roomID string) ([]MembershipRequest, error)
	ListRequestsByUser(ctx context.Context, userID string) ([]MembershipRequest, error)
}

// RequestService implements the room-join request workflow: users petition
// for access, admins approve (creating the membership) or reject.
type RequestService struct {
	requests    MembershipRequestRepository
	rooms       RoomRepository
	roles       RoleCatalog
	members     MembershipRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewRequestService constructs a RequestService with the provided dependencies.
func NewRequestService(requests MembershipRequestRepository, rooms RoomRepository, roles RoleCatalog, members MembershipRepository, idGenerator func() string, now func() time.Time) *RequestService {
	return NewRequestServiceWithLogger(requests, rooms, roles, members, idGenerator, now, nil)
}

// NewRequestServiceWithLogger constructs a RequestService with a specified logger.
func NewRequestServiceWithLogger(requests MembershipRequestRepository, rooms RoomRepository, roles RoleCatalog, members MembershipRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *RequestService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &RequestService{
		requests:    requests,
		rooms:       rooms,
		roles:       roles,
		members:     members,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *RequestService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RequestService", operation, attrs...)
}

// CreateRequest files a pending petition by the acting principal to join a
// room. Existing members and users with a petition already pending get
// ErrAlreadyExists.
func (s *RequestService) CreateRequest(ctx context.Context, params CreateRequestParams) (created MembershipRequest, err error) {
	if s == nil || s.requests == nil {
		err = fmt.Errorf("request repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateRequest",
		"principal_id", params.Principal.UserID,
		"room_id", params.RoomID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create request", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("request_id", created.ID).InfoContext(ctx, "request created")
	}()

	roomID := strings.TrimSpace(params.RoomID)
	if roomID == "" {
		vErr := &ValidationError{}
		vErr.add("roomId", "room id is required")
		err = vErr
		return
	}

	var room Room
	room, err = s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return
	}

	// Members have nothing to request.
	if _, memberErr := s.members.GetMember(ctx, roomID, params.Principal.UserID); memberErr == nil {
		err = ErrAlreadyExists
		return
	} else if !errors.Is(memberErr, ErrNotFound) {
		err = memberErr
		return
	}

	now := s.now()
	created, err = s.requests.CreateRequest(ctx, MembershipRequest{
		ID:        s.idGenerator(),
		RoomID:    room.ID,
		RoomName:  room.Name,
		UserID:    params.Principal.UserID,
		UserName:  params.Principal.Name,
		Status:    RequestPending,
		CreatedAt: now,
		UpdatedAt: now,
	})
	return
}

// ApproveRequest grants a pending petition: the requester becomes a room
// member under the given role and the request records the deciding admin.
// Restricted to administrators; non-pending requests yield ErrConflict.
func (s *RequestService) ApproveRequest(ctx context.Context, params DecideRequestParams) (decided MembershipRequest, err error) {
	if s == nil || s.requests == nil {
		err = fmt.Errorf("request repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "ApproveRequest",
		"principal_id", params.Principal.UserID,
		"request_id", params.RequestID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to approve request", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "request approved")
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	roleID := strings.TrimSpace(params.RoleID)
	if roleID == "" {
		vErr := &ValidationError{}
		vErr.add("roleId", "role id is required to approve a request")
		err = vErr
		return
	}

	var request MembershipRequest
	request, err = s.requests.GetRequest(ctx, params.RequestID)
	if err != nil {
		return
	}
	if request.Status != RequestPending {
		err = ErrConflict
		return
	}
	if _, err = s.roles.GetRole(ctx, roleID); err != nil {
		return
	}

	if _, err = s.members.AddMember(ctx, Member{
		RoomID:    request.RoomID,
		UserID:    request.UserID,
		RoleID:    roleID,
		CreatedAt: s.now(),
	}); err != nil {
		return
	}

	decided, err = s.decide(ctx, request, RequestApproved, params.Principal)
	return
}

// RejectRequest declines a pending petition. Restricted to administrators;
// non-pending requests yield ErrConflict.
func (s *RequestService) RejectRequest(ctx context.Context, params DecideRequestParams) (decided MembershipRequest, err error) {
	if s == nil || s.requests == nil {
		err = fmt.Errorf("request repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "RejectRequest",
		"principal_id", params.Principal.UserID,
		"request_id", params.RequestID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to reject request", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "request rejected")
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	var request MembershipRequest
	request, err = s.requests.GetRequest(ctx, params.RequestID)
	if err != nil {
		return
	}
	if request.Status != RequestPending {
		err = ErrConflict
		return
	}

	decided, err = s.decide(ctx, request, RequestRejected, params.Principal)
	return
}

func (s *RequestService) decide(ctx context.Context, request MembershipRequest, status RequestStatus, principal Principal) (MembershipRequest, error) {
	adminID := principal.UserID
	adminName := principal.Name
	request.Status = status
	request.AdminID = &adminID
	request.AdminName = &adminName
	request.UpdatedAt = s.now()
	return s.requests.UpdateRequest(ctx, request)
}

// ListRoomRequests returns a room's requests. Restricted to administrators.
func (s *RequestService) ListRoomRequests(ctx context.Context, principal Principal, roomID string) ([]MembershipRequest, error) {
	if s == nil || s.requests == nil {
		return nil, fmt.Errorf("request repository not configured")
	}
	if !principal.IsAdmin {
		return nil, ErrUnauthorized
	}
	if _, err := s.rooms.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}
	return s.requests.ListRequestsByRoom(ctx, roomID)
}

// ListUserRequests returns a user's requests across rooms. Users may read
// their own; anyone else's require admin rights.
func (s *RequestService) ListUserRequests(ctx context.Context, principal Principal, userID string) ([]MembershipRequest, error) {
	if s == nil || s.requests == nil {
		return nil, fmt.Errorf("request repository not configured")
	}
	if !principal.IsAdmin && principal.UserID != userID {
		return nil, ErrUnauthorized
	}
	return s.requests.ListRequestsByUser(ctx, userID)
}
