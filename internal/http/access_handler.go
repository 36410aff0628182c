package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/room-access/internal/application"
)

type accessService interface {
	Attempt(ctx context.Context, params application.AccessAttemptParams) (application.AccessDecision, error)
	ListLogs(ctx context.Context, principal application.Principal, roomID string, limit int) ([]application.AccessLog, error)
	Stats(ctx context.Context, principal application.Principal, roomID string) (application.AccessStats, []application.UserAttemptCount, error)
}

type AccessHandler struct {
	service   accessService
	responder responder
	logger    *slog.Logger
}

func NewAccessHandler(service accessService, logger *slog.Logger) *AccessHandler {
	base := defaultLogger(logger)
	return &AccessHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AccessHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AccessHandler", operation, attrs...)
}

// Attempt is the unauthenticated endpoint door devices call to check whether
// a credential unlocks a room. Denials are decisions, not errors, so the
// response is 200 either way.
func (h *AccessHandler) Attempt(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req accessAttemptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Attempt", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode access attempt", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Attempt", "room_id", req.RoomID)

	decision, err := h.service.Attempt(r.Context(), application.AccessAttemptParams{
		RoomID:   strings.TrimSpace(req.RoomID),
		Email:    strings.TrimSpace(strings.ToLower(req.Email)),
		Passcode: req.Passcode,
		Method:   strings.TrimSpace(req.Method),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "access evaluation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("granted", decision.Granted, "reason", decision.Reason).InfoContext(r.Context(), "access attempt evaluated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, accessDecisionResponse{
		Granted: decision.Granted,
		Reason:  decision.Reason,
	})
}

func (h *AccessHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	roomID, ok := RoomIDFromContext(r.Context())
	if !ok || strings.TrimSpace(roomID) == "" {
		h.log(r.Context(), "ListLogs", "error_kind", "bad_request").ErrorContext(r.Context(), "missing room id for log list")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRoomID)
		return
	}

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			h.log(r.Context(), "ListLogs", "room_id", roomID, "error_kind", "bad_request").ErrorContext(r.Context(), "invalid limit parameter", "limit", raw)
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidLimit)
			return
		}
		limit = parsed
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "ListLogs", "principal_id", principal.UserID, "room_id", roomID)

	logs, err := h.service.ListLogs(r.Context(), principal, roomID, limit)
	if err != nil {
		logger.ErrorContext(r.Context(), "log list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(logs)).InfoContext(r.Context(), "access logs listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listAccessLogsResponse{Logs: toAccessLogDTOs(logs)})
}

func (h *AccessHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	roomID, ok := RoomIDFromContext(r.Context())
	if !ok || strings.TrimSpace(roomID) == "" {
		h.log(r.Context(), "Stats", "error_kind", "bad_request").ErrorContext(r.Context(), "missing room id for stats")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRoomID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Stats", "principal_id", principal.UserID, "room_id", roomID)

	stats, attempts, err := h.service.Stats(r.Context(), principal, roomID)
	if err != nil {
		logger.ErrorContext(r.Context(), "stats computation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "access stats computed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, accessStatsResponse{
		Granted:  stats.Granted,
		Denied:   stats.Denied,
		Unknown:  stats.Unknown,
		Attempts: toUserAttemptDTOs(attempts),
	})
}

type accessAttemptRequest struct {
	RoomID   string `json:"room_id"`
	Email    string `json:"email"`
	Passcode string `json:"passcode"`
	Method   string `json:"method"`
}

type accessDecisionResponse struct {
	Granted bool   `json:"granted"`
	Reason  string `json:"reason"`
}

type listAccessLogsResponse struct {
	Logs []accessLogDTO `json:"logs"`
}

type accessLogDTO struct {
	ID        string  `json:"id"`
	RoomID    string  `json:"room_id"`
	UserID    *string `json:"user_id"`
	Method    string  `json:"method"`
	Granted   bool    `json:"granted"`
	Reason    string  `json:"reason"`
	CreatedAt string  `json:"created_at"`
}

func toAccessLogDTOs(logs []application.AccessLog) []accessLogDTO {
	if len(logs) == 0 {
		return nil
	}
	out := make([]accessLogDTO, 0, len(logs))
	for _, entry := range logs {
		out = append(out, accessLogDTO{
			ID:        entry.ID,
			RoomID:    entry.RoomID,
			UserID:    entry.UserID,
			Method:    entry.Method,
			Granted:   entry.Granted,
			Reason:    entry.Reason,
			CreatedAt: entry.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	return out
}

type accessStatsResponse struct {
	Granted  int              `json:"granted"`
	Denied   int              `json:"denied"`
	Unknown  int              `json:"unknown"`
	Attempts []userAttemptDTO `json:"attempts_by_user"`
}

type userAttemptDTO struct {
	UserID   string `json:"user_id"`
	Attempts int    `json:"attempts"`
	Granted  int    `json:"granted"`
}

func toUserAttemptDTOs(attempts []application.UserAttemptCount) []userAttemptDTO {
	if len(attempts) == 0 {
		return nil
	}
	out := make([]userAttemptDTO, 0, len(attempts))
	for _, attempt := range attempts {
		out = append(out, userAttemptDTO{
			UserID:   attempt.UserID,
			Attempts: attempt.Attempts,
			Granted:  attempt.Granted,
		})
	}
	return out
}
