package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/room-access/internal/application"
	"github.com/example/room-access/internal/tracker"
)

type trackerService interface {
	CreateTracker(ctx context.Context, params application.CreateTrackerParams) (tracker.Tracker, error)
	GetTracker(ctx context.Context, id string) (tracker.Tracker, error)
	ListTrackers(ctx context.Context, roomID string) ([]tracker.Tracker, error)
	ListLapses(ctx context.Context, trackerID string) ([]tracker.Lapse, error)
	Mutate(ctx context.Context, params application.MutateTrackerParams) (tracker.Tracker, error)
	Reset(ctx context.Context, params application.ResetTrackerParams) (tracker.Tracker, error)
	Deactivate(ctx context.Context, principal application.Principal, trackerID, message string) (tracker.Tracker, error)
	Rollback(ctx context.Context, params application.RollbackParams) (tracker.Tracker, error)
}

type TrackerHandler struct {
	service   trackerService
	responder responder
	logger    *slog.Logger
}

func NewTrackerHandler(service trackerService, logger *slog.Logger) *TrackerHandler {
	base := defaultLogger(logger)
	return &TrackerHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *TrackerHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "TrackerHandler", operation, attrs...)
}

func (h *TrackerHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	roomID, ok := RoomIDFromContext(r.Context())
	if !ok || strings.TrimSpace(roomID) == "" {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "missing room id for tracker")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRoomID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req createTrackerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.UserID, "room_id", roomID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode tracker request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.UserID, "room_id", roomID)

	trk, err := h.service.CreateTracker(r.Context(), application.CreateTrackerParams{
		Principal: principal,
		RoomID:    roomID,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "tracker creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("tracker_id", trk.ID).InfoContext(r.Context(), "tracker created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, trackerResponse{Tracker: toTrackerDTO(trk)})
}

func (h *TrackerHandler) ListByRoom(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	roomID, ok := RoomIDFromContext(r.Context())
	if !ok || strings.TrimSpace(roomID) == "" {
		h.log(r.Context(), "ListByRoom", "error_kind", "bad_request").ErrorContext(r.Context(), "missing room id for tracker list")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRoomID)
		return
	}

	logger := h.log(r.Context(), "ListByRoom", "room_id", roomID)

	trackers, err := h.service.ListTrackers(r.Context(), roomID)
	if err != nil {
		logger.ErrorContext(r.Context(), "tracker list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(trackers)).InfoContext(r.Context(), "trackers listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listTrackersResponse{Trackers: toTrackerDTOs(trackers)})
}

func (h *TrackerHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	trackerID, ok := TrackerIDFromContext(r.Context())
	if !ok || strings.TrimSpace(trackerID) == "" {
		h.log(r.Context(), "Get", "error_kind", "bad_request").ErrorContext(r.Context(), "missing tracker id")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTrackerID)
		return
	}

	logger := h.log(r.Context(), "Get", "tracker_id", trackerID)

	trk, err := h.service.GetTracker(r.Context(), trackerID)
	if err != nil {
		logger.ErrorContext(r.Context(), "tracker lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, trackerResponse{Tracker: toTrackerDTO(trk)})
}

// Mutate applies a sparse edit to a tracker. The payload carries only the
// fields the caller wants to change.
func (h *TrackerHandler) Mutate(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	trackerID, ok := TrackerIDFromContext(r.Context())
	if !ok || strings.TrimSpace(trackerID) == "" {
		h.log(r.Context(), "Mutate", "error_kind", "bad_request").ErrorContext(r.Context(), "missing tracker id for mutation")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTrackerID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req mutateTrackerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Mutate", "principal_id", principal.UserID, "tracker_id", trackerID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode tracker mutation", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Mutate", "principal_id", principal.UserID, "tracker_id", trackerID, "change_type", req.ChangeType)

	trk, err := h.service.Mutate(r.Context(), application.MutateTrackerParams{
		Principal:  principal,
		TrackerID:  trackerID,
		ChangeType: strings.TrimSpace(req.ChangeType),
		Message:    strings.TrimSpace(req.Message),
		Payload:    req.Payload,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "tracker mutation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("version", trk.Version).InfoContext(r.Context(), "tracker mutated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, trackerResponse{Tracker: toTrackerDTO(trk)})
}

// Reset restarts the elapsed-time reference, promoting the current streak to
// the record when it beats it.
func (h *TrackerHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	trackerID, ok := TrackerIDFromContext(r.Context())
	if !ok || strings.TrimSpace(trackerID) == "" {
		h.log(r.Context(), "Reset", "error_kind", "bad_request").ErrorContext(r.Context(), "missing tracker id for reset")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTrackerID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req messageRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.log(r.Context(), "Reset", "principal_id", principal.UserID, "tracker_id", trackerID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode reset request", "error", err)
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
			return
		}
	}

	logger := h.log(r.Context(), "Reset", "principal_id", principal.UserID, "tracker_id", trackerID)

	trk, err := h.service.Reset(r.Context(), application.ResetTrackerParams{
		Principal: principal,
		TrackerID: trackerID,
		Message:   strings.TrimSpace(req.Message),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "tracker reset failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("version", trk.Version).InfoContext(r.Context(), "tracker reset")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, trackerResponse{Tracker: toTrackerDTO(trk)})
}

// Deactivate soft-deletes a tracker. The change lands in the lapse log and
// can be rolled back.
func (h *TrackerHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	trackerID, ok := TrackerIDFromContext(r.Context())
	if !ok || strings.TrimSpace(trackerID) == "" {
		h.log(r.Context(), "Deactivate", "error_kind", "bad_request").ErrorContext(r.Context(), "missing tracker id for deactivation")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTrackerID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req messageRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.log(r.Context(), "Deactivate", "principal_id", principal.UserID, "tracker_id", trackerID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode deactivation request", "error", err)
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
			return
		}
	}

	logger := h.log(r.Context(), "Deactivate", "principal_id", principal.UserID, "tracker_id", trackerID)

	trk, err := h.service.Deactivate(r.Context(), principal, trackerID, strings.TrimSpace(req.Message))
	if err != nil {
		logger.ErrorContext(r.Context(), "tracker deactivation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "tracker deactivated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, trackerResponse{Tracker: toTrackerDTO(trk)})
}

func (h *TrackerHandler) ListLapses(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	trackerID, ok := TrackerIDFromContext(r.Context())
	if !ok || strings.TrimSpace(trackerID) == "" {
		h.log(r.Context(), "ListLapses", "error_kind", "bad_request").ErrorContext(r.Context(), "missing tracker id for lapse list")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTrackerID)
		return
	}

	logger := h.log(r.Context(), "ListLapses", "tracker_id", trackerID)

	lapses, err := h.service.ListLapses(r.Context(), trackerID)
	if err != nil {
		logger.ErrorContext(r.Context(), "lapse list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(lapses)).InfoContext(r.Context(), "lapses listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listLapsesResponse{Lapses: toLapseDTOs(lapses)})
}

// Rollback undoes the change recorded by a single lapse.
func (h *TrackerHandler) Rollback(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	lapseID, ok := LapseIDFromContext(r.Context())
	if !ok || strings.TrimSpace(lapseID) == "" {
		h.log(r.Context(), "Rollback", "error_kind", "bad_request").ErrorContext(r.Context(), "missing lapse id for rollback")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidLapseID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Rollback", "principal_id", principal.UserID, "lapse_id", lapseID)

	trk, err := h.service.Rollback(r.Context(), application.RollbackParams{
		Principal: principal,
		LapseID:   lapseID,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "rollback failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("tracker_id", trk.ID, "version", trk.Version).InfoContext(r.Context(), "lapse rolled back")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, trackerResponse{Tracker: toTrackerDTO(trk)})
}

type createTrackerRequest struct {
	Name          string    `json:"name"`
	TimeReference time.Time `json:"time_reference"`
	Participants  []string  `json:"participants"`
}

func (r createTrackerRequest) toInput() application.TrackerInput {
	return application.TrackerInput{
		Name:          strings.TrimSpace(r.Name),
		TimeReference: r.TimeReference,
		Participants:  r.Participants,
	}
}

type mutateTrackerRequest struct {
	ChangeType string        `json:"change_type"`
	Message    string        `json:"message"`
	Payload    tracker.Patch `json:"payload"`
}

type messageRequest struct {
	Message string `json:"message"`
}

type trackerResponse struct {
	Tracker trackerDTO `json:"tracker"`
}

type listTrackersResponse struct {
	Trackers []trackerDTO `json:"trackers"`
}

type trackerDTO struct {
	ID            string      `json:"id"`
	RoomID        string      `json:"room_id"`
	Name          string      `json:"name"`
	TimeReference string      `json:"time_reference"`
	ResetAt       *string     `json:"reset_at"`
	RecordMillis  *int64      `json:"record"`
	RecordDisplay string      `json:"record_display,omitempty"`
	Participants  []string    `json:"participants"`
	Creator       userRefDTO  `json:"creator"`
	UpdatedBy     userRefDTO  `json:"updated_by"`
	ResetBy       *userRefDTO `json:"reset_by,omitempty"`
	IsActive      bool        `json:"is_active"`
	Version       int64       `json:"version"`
	CreatedAt     string      `json:"created_at"`
	UpdatedAt     string      `json:"updated_at"`
}

type userRefDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func toTrackerDTO(trk tracker.Tracker) trackerDTO {
	dto := trackerDTO{
		ID:            trk.ID,
		RoomID:        trk.RoomID,
		Name:          trk.Name,
		TimeReference: trk.TimeReference.UTC().Format(time.RFC3339Nano),
		Participants:  trk.Participants,
		Creator:       userRefDTO{ID: trk.Creator.ID, Name: trk.Creator.Name},
		UpdatedBy:     userRefDTO{ID: trk.UpdatedBy.ID, Name: trk.UpdatedBy.Name},
		IsActive:      trk.IsActive,
		Version:       trk.Version,
		CreatedAt:     trk.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:     trk.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if dto.Participants == nil {
		dto.Participants = []string{}
	}
	if trk.ResetAt != nil {
		formatted := trk.ResetAt.UTC().Format(time.RFC3339Nano)
		dto.ResetAt = &formatted
	}
	if trk.Record != nil {
		millis := trk.Record.Milliseconds()
		dto.RecordMillis = &millis
		dto.RecordDisplay = tracker.FormatRecord(*trk.Record)
	}
	if trk.ResetBy.ID != "" {
		dto.ResetBy = &userRefDTO{ID: trk.ResetBy.ID, Name: trk.ResetBy.Name}
	}
	return dto
}

func toTrackerDTOs(trackers []tracker.Tracker) []trackerDTO {
	if len(trackers) == 0 {
		return nil
	}
	out := make([]trackerDTO, 0, len(trackers))
	for _, trk := range trackers {
		out = append(out, toTrackerDTO(trk))
	}
	return out
}

type listLapsesResponse struct {
	Lapses []lapseDTO `json:"lapses"`
}

type lapseDTO struct {
	ID            string         `json:"id"`
	TrackerID     string         `json:"tracker_id"`
	Issuer        userRefDTO     `json:"issuer"`
	ChangeType    string         `json:"change_type"`
	Message       string         `json:"message,omitempty"`
	Payload       tracker.Patch  `json:"payload"`
	PreviousState *tracker.Patch `json:"previous_state,omitempty"`
	Reversible    bool           `json:"reversible"`
	CreatedAt     string         `json:"created_at"`
}

func toLapseDTO(lapse tracker.Lapse) lapseDTO {
	return lapseDTO{
		ID:            lapse.ID,
		TrackerID:     lapse.TrackerID,
		Issuer:        userRefDTO{ID: lapse.Issuer.ID, Name: lapse.Issuer.Name},
		ChangeType:    string(lapse.ChangeType),
		Message:       lapse.Message,
		Payload:       lapse.Payload,
		PreviousState: lapse.PreviousState,
		Reversible:    lapse.Reversible(),
		CreatedAt:     lapse.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toLapseDTOs(lapses []tracker.Lapse) []lapseDTO {
	if len(lapses) == 0 {
		return nil
	}
	out := make([]lapseDTO, 0, len(lapses))
	for _, lapse := range lapses {
		out = append(out, toLapseDTO(lapse))
	}
	return out
}
