package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/room-access/internal/application"
)

type requestService interface {
	CreateRequest(ctx context.Context, params application.CreateRequestParams) (application.MembershipRequest, error)
	ApproveRequest(ctx context.Context, params application.DecideRequestParams) (application.MembershipRequest, error)
	RejectRequest(ctx context.Context, params application.DecideRequestParams) (application.MembershipRequest, error)
	ListRoomRequests(ctx context.Context, principal application.Principal, roomID string) ([]application.MembershipRequest, error)
	ListUserRequests(ctx context.Context, principal application.Principal, userID string) ([]application.MembershipRequest, error)
}

// RequestHandler exposes the room-join request workflow.
type RequestHandler struct {
	service   requestService
	responder responder
	logger    *slog.Logger
}

func NewRequestHandler(service requestService, logger *slog.Logger) *RequestHandler {
	base := defaultLogger(logger)
	return &RequestHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *RequestHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "RequestHandler", operation, attrs...)
}

func (h *RequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req createMembershipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode membership request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.UserID, "room_id", req.RoomID)

	request, err := h.service.CreateRequest(r.Context(), application.CreateRequestParams{
		Principal: principal,
		RoomID:    strings.TrimSpace(req.RoomID),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "membership request creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("request_id", request.ID).InfoContext(r.Context(), "membership request created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, membershipRequestResponse{Request: toMembershipRequestDTO(request)})
}

func (h *RequestHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "Approve")
}

func (h *RequestHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "Reject")
}

func (h *RequestHandler) decide(w http.ResponseWriter, r *http.Request, operation string) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	requestID, ok := RequestIDFromContext(r.Context())
	if !ok || strings.TrimSpace(requestID) == "" {
		h.log(r.Context(), operation, "error_kind", "bad_request").ErrorContext(r.Context(), "missing request id")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRequestID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	params := application.DecideRequestParams{Principal: principal, RequestID: requestID}
	if operation == "Approve" {
		var req approveMembershipRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.log(r.Context(), operation, "principal_id", principal.UserID, "request_id", requestID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode approval", "error", err)
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
			return
		}
		params.RoleID = strings.TrimSpace(req.RoleID)
	}

	logger := h.log(r.Context(), operation, "principal_id", principal.UserID, "request_id", requestID)

	var request application.MembershipRequest
	var err error
	if operation == "Approve" {
		request, err = h.service.ApproveRequest(r.Context(), params)
	} else {
		request, err = h.service.RejectRequest(r.Context(), params)
	}
	if err != nil {
		logger.ErrorContext(r.Context(), "membership request decision failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("status", string(request.Status)).InfoContext(r.Context(), "membership request decided")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, membershipRequestResponse{Request: toMembershipRequestDTO(request)})
}

func (h *RequestHandler) ListByRoom(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	roomID, ok := RoomIDFromContext(r.Context())
	if !ok || strings.TrimSpace(roomID) == "" {
		h.log(r.Context(), "ListByRoom", "error_kind", "bad_request").ErrorContext(r.Context(), "missing room id for request list")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRoomID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "ListByRoom", "principal_id", principal.UserID, "room_id", roomID)

	requests, err := h.service.ListRoomRequests(r.Context(), principal, roomID)
	if err != nil {
		logger.ErrorContext(r.Context(), "membership request list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listMembershipRequestsResponse{Requests: toMembershipRequestDTOs(requests)})
}

func (h *RequestHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	userID, ok := UserIDFromContext(r.Context())
	if !ok || strings.TrimSpace(userID) == "" {
		h.log(r.Context(), "ListByUser", "error_kind", "bad_request").ErrorContext(r.Context(), "missing user id for request list")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidUserID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "ListByUser", "principal_id", principal.UserID, "user_id", userID)

	requests, err := h.service.ListUserRequests(r.Context(), principal, userID)
	if err != nil {
		logger.ErrorContext(r.Context(), "membership request list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listMembershipRequestsResponse{Requests: toMembershipRequestDTOs(requests)})
}

type createMembershipRequest struct {
	RoomID string `json:"room_id"`
}

type approveMembershipRequest struct {
	RoleID string `json:"role_id"`
}

type membershipRequestResponse struct {
	Request membershipRequestDTO `json:"request"`
}

type listMembershipRequestsResponse struct {
	Requests []membershipRequestDTO `json:"requests"`
}

type membershipRequestDTO struct {
	ID        string  `json:"id"`
	RoomID    string  `json:"room_id"`
	RoomName  string  `json:"room_name"`
	UserID    string  `json:"user_id"`
	UserName  string  `json:"user_name"`
	AdminID   *string `json:"admin_id,omitempty"`
	AdminName *string `json:"admin_name,omitempty"`
	Status    string  `json:"status"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

func toMembershipRequestDTO(request application.MembershipRequest) membershipRequestDTO {
	return membershipRequestDTO{
		ID:        request.ID,
		RoomID:    request.RoomID,
		RoomName:  request.RoomName,
		UserID:    request.UserID,
		UserName:  request.UserName,
		AdminID:   request.AdminID,
		AdminName: request.AdminName,
		Status:    string(request.Status),
		CreatedAt: request.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: request.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toMembershipRequestDTOs(requests []application.MembershipRequest) []membershipRequestDTO {
	if len(requests) == 0 {
		return nil
	}
	out := make([]membershipRequestDTO, 0, len(requests))
	for _, request := range requests {
		out = append(out, toMembershipRequestDTO(request))
	}
	return out
}
