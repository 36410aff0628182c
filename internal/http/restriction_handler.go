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

type restrictionService interface {
	CreateRestriction(ctx context.Context, params application.CreateRestrictionParams) (application.Restriction, error)
	GetRestriction(ctx context.Context, id string) (application.Restriction, error)
	ListRestrictions(ctx context.Context, roomID string) ([]application.Restriction, error)
	UpdateRestriction(ctx context.Context, params application.UpdateRestrictionParams) (application.Restriction, error)
	DeleteRestriction(ctx context.Context, principal application.Principal, id string) error
}

type RestrictionHandler struct {
	service   restrictionService
	responder responder
	logger    *slog.Logger
}

func NewRestrictionHandler(service restrictionService, logger *slog.Logger) *RestrictionHandler {
	base := defaultLogger(logger)
	return &RestrictionHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *RestrictionHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "RestrictionHandler", operation, attrs...)
}

func (h *RestrictionHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	roomID, ok := RoomIDFromContext(r.Context())
	if !ok || strings.TrimSpace(roomID) == "" {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "missing room id for restriction")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRoomID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req restrictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.UserID, "room_id", roomID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode restriction request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.UserID, "room_id", roomID)

	restriction, err := h.service.CreateRestriction(r.Context(), application.CreateRestrictionParams{
		Principal: principal,
		RoomID:    roomID,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "restriction creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("restriction_id", restriction.ID).InfoContext(r.Context(), "restriction created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, restrictionResponse{Restriction: toRestrictionDTO(restriction)})
}

func (h *RestrictionHandler) ListByRoom(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	roomID, ok := RoomIDFromContext(r.Context())
	if !ok || strings.TrimSpace(roomID) == "" {
		h.log(r.Context(), "ListByRoom", "error_kind", "bad_request").ErrorContext(r.Context(), "missing room id for restriction list")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRoomID)
		return
	}

	logger := h.log(r.Context(), "ListByRoom", "room_id", roomID)

	restrictions, err := h.service.ListRestrictions(r.Context(), roomID)
	if err != nil {
		logger.ErrorContext(r.Context(), "restriction list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(restrictions)).InfoContext(r.Context(), "restrictions listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listRestrictionsResponse{Restrictions: toRestrictionDTOs(restrictions)})
}

func (h *RestrictionHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	restrictionID, ok := RestrictionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(restrictionID) == "" {
		h.log(r.Context(), "Get", "error_kind", "bad_request").ErrorContext(r.Context(), "missing restriction id")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRestrictionID)
		return
	}

	logger := h.log(r.Context(), "Get", "restriction_id", restrictionID)

	restriction, err := h.service.GetRestriction(r.Context(), restrictionID)
	if err != nil {
		logger.ErrorContext(r.Context(), "restriction lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, restrictionResponse{Restriction: toRestrictionDTO(restriction)})
}

func (h *RestrictionHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	restrictionID, ok := RestrictionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(restrictionID) == "" {
		h.log(r.Context(), "Update", "error_kind", "bad_request").ErrorContext(r.Context(), "missing restriction id for update")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRestrictionID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req restrictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "principal_id", principal.UserID, "restriction_id", restrictionID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode restriction update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "principal_id", principal.UserID, "restriction_id", restrictionID)

	restriction, err := h.service.UpdateRestriction(r.Context(), application.UpdateRestrictionParams{
		Principal:     principal,
		RestrictionID: restrictionID,
		Input:         req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "restriction update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "restriction updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, restrictionResponse{Restriction: toRestrictionDTO(restriction)})
}

func (h *RestrictionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	restrictionID, ok := RestrictionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(restrictionID) == "" {
		h.log(r.Context(), "Delete", "error_kind", "bad_request").ErrorContext(r.Context(), "missing restriction id for delete")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRestrictionID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "principal_id", principal.UserID, "restriction_id", restrictionID)

	if err := h.service.DeleteRestriction(r.Context(), principal, restrictionID); err != nil {
		logger.ErrorContext(r.Context(), "restriction delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "restriction deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type restrictionRequest struct {
	RoleID   string `json:"role_id"`
	Days     int    `json:"days"`
	Start    string `json:"start"`
	End      string `json:"end"`
	IsActive bool   `json:"is_active"`
}

func (r restrictionRequest) toInput() application.RestrictionInput {
	return application.RestrictionInput{
		RoleID:   strings.TrimSpace(r.RoleID),
		Days:     r.Days,
		Start:    strings.TrimSpace(r.Start),
		End:      strings.TrimSpace(r.End),
		IsActive: r.IsActive,
	}
}

type restrictionResponse struct {
	Restriction restrictionDTO `json:"restriction"`
}

type listRestrictionsResponse struct {
	Restrictions []restrictionDTO `json:"restrictions"`
}

type restrictionDTO struct {
	ID        string `json:"id"`
	RoomID    string `json:"room_id"`
	RoleID    string `json:"role_id"`
	Days      int    `json:"days"`
	Start     string `json:"start"`
	End       string `json:"end"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toRestrictionDTO(restriction application.Restriction) restrictionDTO {
	return restrictionDTO{
		ID:        restriction.ID,
		RoomID:    restriction.RoomID,
		RoleID:    restriction.RoleID,
		Days:      restriction.Rule.DaysBitmask,
		Start:     restriction.Rule.Start.String(),
		End:       restriction.Rule.End.String(),
		IsActive:  restriction.Rule.Active,
		CreatedAt: restriction.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: restriction.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toRestrictionDTOs(restrictions []application.Restriction) []restrictionDTO {
	if len(restrictions) == 0 {
		return nil
	}
	out := make([]restrictionDTO, 0, len(restrictions))
	for _, restriction := range restrictions {
		out = append(out, toRestrictionDTO(restriction))
	}
	return out
}
