package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/room-access/internal/application"
	"github.com/example/room-access/internal/tracker"
)

func withPrincipal(principal application.Principal) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
		})
	}
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(recorder.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return body
}

type authServiceStub struct {
	result      application.AuthenticateResult
	authErr     error
	revoked     []string
	revokeErr   error
	lastAttempt application.AuthenticateParams
}

func (s *authServiceStub) Authenticate(_ context.Context, params application.AuthenticateParams) (application.AuthenticateResult, error) {
	s.lastAttempt = params
	return s.result, s.authErr
}

func (s *authServiceStub) RevokeSession(_ context.Context, token string) error {
	s.revoked = append(s.revoked, token)
	return s.revokeErr
}

func TestAuthHandler_CreateSession(t *testing.T) {
	t.Parallel()

	expires := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	svc := &authServiceStub{result: application.AuthenticateResult{
		User:    application.User{ID: "user-1", Email: "dana@example.com", FirstName: "Dana"},
		Session: application.Session{ID: "session-1", UserID: "user-1", ExpiresAt: expires},
		Token:   "signed-token",
	}}
	router := NewRouter(RouterConfig{Auth: NewAuthHandler(svc, nil)})

	payload := bytes.NewBufferString(`{"email":"Dana@Example.com","passcode":"12AB"}`)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/sessions", payload))

	if recorder.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", recorder.Code, recorder.Body.String())
	}
	if svc.lastAttempt.Email != "dana@example.com" {
		t.Errorf("Expected normalized email, got %q", svc.lastAttempt.Email)
	}

	body := decodeBody(t, recorder)
	if body["token"] != "signed-token" {
		t.Errorf("Expected token in response, got %v", body["token"])
	}
}

func TestAuthHandler_InvalidCredentials(t *testing.T) {
	t.Parallel()

	svc := &authServiceStub{authErr: application.ErrInvalidCredentials}
	router := NewRouter(RouterConfig{Auth: NewAuthHandler(svc, nil)})

	payload := bytes.NewBufferString(`{"email":"dana@example.com","passcode":"0000"}`)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/sessions", payload))

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("Expected status 401, got %d", recorder.Code)
	}
	if body := decodeBody(t, recorder); body["error_code"] != "AUTH_INVALID_CREDENTIALS" {
		t.Errorf("Expected AUTH_INVALID_CREDENTIALS, got %v", body["error_code"])
	}
}

func TestAuthHandler_DeleteCurrentSession(t *testing.T) {
	t.Parallel()

	svc := &authServiceStub{}
	router := NewRouter(RouterConfig{Auth: NewAuthHandler(svc, nil)})

	req := httptest.NewRequest(http.MethodDelete, "/sessions/current", nil)
	req.Header.Set("Authorization", "Bearer current-token")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d", recorder.Code)
	}
	if len(svc.revoked) != 1 || svc.revoked[0] != "current-token" {
		t.Errorf("Expected revocation of current-token, got %v", svc.revoked)
	}
}

type trackerServiceStub struct {
	tracker     tracker.Tracker
	lapses      []tracker.Lapse
	mutateErr   error
	rollbackErr error
	lastMutate  application.MutateTrackerParams
	lastReset   application.ResetTrackerParams
	lastLapseID string
}

func (s *trackerServiceStub) CreateTracker(_ context.Context, params application.CreateTrackerParams) (tracker.Tracker, error) {
	return s.tracker, nil
}

func (s *trackerServiceStub) GetTracker(_ context.Context, id string) (tracker.Tracker, error) {
	return s.tracker, nil
}

func (s *trackerServiceStub) ListTrackers(_ context.Context, roomID string) ([]tracker.Tracker, error) {
	return []tracker.Tracker{s.tracker}, nil
}

func (s *trackerServiceStub) ListLapses(_ context.Context, trackerID string) ([]tracker.Lapse, error) {
	return s.lapses, nil
}

func (s *trackerServiceStub) Mutate(_ context.Context, params application.MutateTrackerParams) (tracker.Tracker, error) {
	s.lastMutate = params
	return s.tracker, s.mutateErr
}

func (s *trackerServiceStub) Reset(_ context.Context, params application.ResetTrackerParams) (tracker.Tracker, error) {
	s.lastReset = params
	return s.tracker, nil
}

func (s *trackerServiceStub) Deactivate(_ context.Context, _ application.Principal, trackerID, message string) (tracker.Tracker, error) {
	return s.tracker, nil
}

func (s *trackerServiceStub) Rollback(_ context.Context, params application.RollbackParams) (tracker.Tracker, error) {
	s.lastLapseID = params.LapseID
	return s.tracker, s.rollbackErr
}

func testTrackerRouter(svc *trackerServiceStub) http.Handler {
	return NewRouter(RouterConfig{
		Rooms:      NewRoomHandler(nil, nil),
		Trackers:   NewTrackerHandler(svc, nil),
		Middleware: []func(http.Handler) http.Handler{withPrincipal(application.Principal{UserID: "user-1", Name: "Dana"})},
	})
}

func sampleTracker() tracker.Tracker {
	record := 90 * time.Minute
	return tracker.Tracker{
		ID:            "trk-1",
		RoomID:        "room-1",
		Name:          "Lab door",
		TimeReference: time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC),
		Record:        &record,
		Participants:  []string{"user-1"},
		Creator:       tracker.UserRef{ID: "user-1", Name: "Dana"},
		UpdatedBy:     tracker.UserRef{ID: "user-1", Name: "Dana"},
		IsActive:      true,
		Version:       4,
	}
}

func TestTrackerHandler_MutateDecodesSparsePayload(t *testing.T) {
	t.Parallel()

	svc := &trackerServiceStub{tracker: sampleTracker()}
	router := testTrackerRouter(svc)

	payload := bytes.NewBufferString(`{"change_type":"edit","message":"rename","payload":{"name":"Lab door (east)","record":null}}`)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPatch, "/trackers/trk-1", payload))

	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	if svc.lastMutate.TrackerID != "trk-1" || svc.lastMutate.ChangeType != "edit" {
		t.Errorf("Unexpected mutate params: %+v", svc.lastMutate)
	}

	name, ok := svc.lastMutate.Payload.Name()
	if !ok || name != "Lab door (east)" {
		t.Errorf("Expected name in payload, got %q (present=%v)", name, ok)
	}
	record, ok := svc.lastMutate.Payload.Record()
	if !ok || record != nil {
		t.Errorf("Expected explicit null record in payload, got %v (present=%v)", record, ok)
	}
	if _, ok := svc.lastMutate.Payload.TimeReference(); ok {
		t.Error("Expected timeReference to be absent from payload")
	}

	body := decodeBody(t, recorder)
	trk, ok := body["tracker"].(map[string]any)
	if !ok {
		t.Fatalf("Expected tracker object in response, got %v", body)
	}
	if trk["version"] != float64(4) {
		t.Errorf("Expected version 4, got %v", trk["version"])
	}
	if trk["record"] != float64((90 * time.Minute).Milliseconds()) {
		t.Errorf("Expected record in milliseconds, got %v", trk["record"])
	}
}

func TestTrackerHandler_MutateUnknownFieldRejected(t *testing.T) {
	t.Parallel()

	svc := &trackerServiceStub{tracker: sampleTracker()}
	router := testTrackerRouter(svc)

	payload := bytes.NewBufferString(`{"change_type":"edit","payload":{"surprise":true}}`)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPatch, "/trackers/trk-1", payload))

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400 for unknown patch field, got %d", recorder.Code)
	}
}

func TestTrackerHandler_ConflictMapsTo409(t *testing.T) {
	t.Parallel()

	svc := &trackerServiceStub{tracker: sampleTracker(), mutateErr: application.ErrConflict}
	router := testTrackerRouter(svc)

	payload := bytes.NewBufferString(`{"payload":{"name":"x"}}`)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPatch, "/trackers/trk-1", payload))

	if recorder.Code != http.StatusConflict {
		t.Fatalf("Expected status 409, got %d", recorder.Code)
	}
	if body := decodeBody(t, recorder); body["error_code"] != "CONFLICT" {
		t.Errorf("Expected CONFLICT code, got %v", body["error_code"])
	}
}

func TestTrackerHandler_RollbackRoute(t *testing.T) {
	t.Parallel()

	svc := &trackerServiceStub{tracker: sampleTracker()}
	router := testTrackerRouter(svc)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/lapses/lapse-9/rollback", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	if svc.lastLapseID != "lapse-9" {
		t.Errorf("Expected rollback of lapse-9, got %q", svc.lastLapseID)
	}
}

func TestTrackerHandler_RollbackNotReversible(t *testing.T) {
	t.Parallel()

	svc := &trackerServiceStub{tracker: sampleTracker(), rollbackErr: application.ErrNotReversible}
	router := testTrackerRouter(svc)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/lapses/lapse-9/rollback", nil))

	if recorder.Code != http.StatusConflict {
		t.Fatalf("Expected status 409, got %d", recorder.Code)
	}
	if body := decodeBody(t, recorder); body["error_code"] != "NOT_REVERSIBLE" {
		t.Errorf("Expected NOT_REVERSIBLE code, got %v", body["error_code"])
	}
}

func TestTrackerHandler_ListLapses(t *testing.T) {
	t.Parallel()

	var payload tracker.Patch
	payload.SetIsActive(false)
	var previous tracker.Patch
	previous.SetIsActive(true)

	svc := &trackerServiceStub{
		tracker: sampleTracker(),
		lapses: []tracker.Lapse{{
			ID:            "lapse-1",
			TrackerID:     "trk-1",
			Issuer:        tracker.UserRef{ID: "user-1", Name: "Dana"},
			ChangeType:    tracker.ChangeDelete,
			Message:       "cleanup",
			Payload:       payload,
			PreviousState: &previous,
			CreatedAt:     time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC),
		}},
	}
	router := testTrackerRouter(svc)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/trackers/trk-1/lapses", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", recorder.Code)
	}

	body := decodeBody(t, recorder)
	lapses, ok := body["lapses"].([]any)
	if !ok || len(lapses) != 1 {
		t.Fatalf("Expected one lapse, got %v", body["lapses"])
	}
	lapse := lapses[0].(map[string]any)
	if lapse["change_type"] != "delete" {
		t.Errorf("Expected delete change type, got %v", lapse["change_type"])
	}
	if lapse["reversible"] != true {
		t.Errorf("Expected reversible lapse, got %v", lapse["reversible"])
	}
	patchBody, ok := lapse["payload"].(map[string]any)
	if !ok || patchBody["isActive"] != false {
		t.Errorf("Expected sparse payload with isActive false, got %v", lapse["payload"])
	}
}

type restrictionServiceStub struct {
	restriction application.Restriction
	createErr   error
}

func (s *restrictionServiceStub) CreateRestriction(_ context.Context, params application.CreateRestrictionParams) (application.Restriction, error) {
	return s.restriction, s.createErr
}

func (s *restrictionServiceStub) GetRestriction(_ context.Context, id string) (application.Restriction, error) {
	return s.restriction, nil
}

func (s *restrictionServiceStub) ListRestrictions(_ context.Context, roomID string) ([]application.Restriction, error) {
	return []application.Restriction{s.restriction}, nil
}

func (s *restrictionServiceStub) UpdateRestriction(_ context.Context, params application.UpdateRestrictionParams) (application.Restriction, error) {
	return s.restriction, nil
}

func (s *restrictionServiceStub) DeleteRestriction(_ context.Context, _ application.Principal, id string) error {
	return nil
}

func TestRestrictionHandler_ValidationMapsTo422(t *testing.T) {
	t.Parallel()

	vErr := &application.ValidationError{FieldErrors: map[string]string{"end": "end must be after start"}}

	svc := &restrictionServiceStub{createErr: vErr}
	router := NewRouter(RouterConfig{
		Rooms:        NewRoomHandler(nil, nil),
		Restrictions: NewRestrictionHandler(svc, nil),
		Middleware:   []func(http.Handler) http.Handler{withPrincipal(application.Principal{UserID: "admin", IsAdmin: true})},
	})

	payload := bytes.NewBufferString(`{"role_id":"role-1","days":1,"start":"22:00:00","end":"06:00:00"}`)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/rooms/room-1/restrictions", payload))

	if recorder.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected status 422, got %d: %s", recorder.Code, recorder.Body.String())
	}

	body := decodeBody(t, recorder)
	if body["error_code"] != "VALIDATION_FAILED" {
		t.Errorf("Expected VALIDATION_FAILED, got %v", body["error_code"])
	}
	fields, ok := body["errors"].(map[string]any)
	if !ok {
		t.Fatalf("Expected field errors in response, got %v", body["errors"])
	}
	if _, ok := fields["end"]; !ok {
		t.Errorf("Expected end field error, got %v", fields)
	}
}

type accessServiceStub struct {
	decision    application.AccessDecision
	logs        []application.AccessLog
	logsErr     error
	lastAttempt application.AccessAttemptParams
}

func (s *accessServiceStub) Attempt(_ context.Context, params application.AccessAttemptParams) (application.AccessDecision, error) {
	s.lastAttempt = params
	return s.decision, nil
}

func (s *accessServiceStub) ListLogs(_ context.Context, _ application.Principal, roomID string, limit int) ([]application.AccessLog, error) {
	return s.logs, s.logsErr
}

func (s *accessServiceStub) Stats(_ context.Context, _ application.Principal, roomID string) (application.AccessStats, []application.UserAttemptCount, error) {
	return application.AccessStats{Granted: 3, Denied: 1, Unknown: 2}, []application.UserAttemptCount{{UserID: "user-1", Attempts: 4, Granted: 3}}, nil
}

func TestAccessHandler_AttemptDenialIsNotAnError(t *testing.T) {
	t.Parallel()

	svc := &accessServiceStub{decision: application.AccessDecision{Granted: false, Reason: "outside_window"}}
	router := NewRouter(RouterConfig{Access: NewAccessHandler(svc, nil)})

	payload := bytes.NewBufferString(`{"room_id":"room-1","email":"Dana@Example.com","passcode":"12AB","method":"keypad"}`)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/access/attempts", payload))

	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected status 200 for a denial, got %d", recorder.Code)
	}
	if svc.lastAttempt.Email != "dana@example.com" {
		t.Errorf("Expected normalized email, got %q", svc.lastAttempt.Email)
	}

	body := decodeBody(t, recorder)
	if body["granted"] != false || body["reason"] != "outside_window" {
		t.Errorf("Unexpected decision body: %v", body)
	}
}

func TestAccessHandler_LogsRequireAdmin(t *testing.T) {
	t.Parallel()

	svc := &accessServiceStub{logsErr: application.ErrUnauthorized}
	router := NewRouter(RouterConfig{
		Rooms:      NewRoomHandler(nil, nil),
		Access:     NewAccessHandler(svc, nil),
		Middleware: []func(http.Handler) http.Handler{withPrincipal(application.Principal{UserID: "user-1"})},
	})

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/rooms/room-1/logs", nil))

	if recorder.Code != http.StatusForbidden {
		t.Fatalf("Expected status 403, got %d", recorder.Code)
	}
	if body := decodeBody(t, recorder); body["error_code"] != "AUTH_FORBIDDEN" {
		t.Errorf("Expected AUTH_FORBIDDEN, got %v", body["error_code"])
	}
}

func TestAccessHandler_StatsRoute(t *testing.T) {
	t.Parallel()

	svc := &accessServiceStub{}
	router := NewRouter(RouterConfig{
		Rooms:      NewRoomHandler(nil, nil),
		Access:     NewAccessHandler(svc, nil),
		Middleware: []func(http.Handler) http.Handler{withPrincipal(application.Principal{UserID: "admin", IsAdmin: true})},
	})

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/rooms/room-1/logs/stats", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", recorder.Code)
	}

	body := decodeBody(t, recorder)
	if body["granted"] != float64(3) || body["unknown"] != float64(2) {
		t.Errorf("Unexpected stats body: %v", body)
	}
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	router := NewRouter(RouterConfig{Access: NewAccessHandler(&accessServiceStub{}, nil)})

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/access/attempts", nil))

	if recorder.Code != http.StatusMethodNotAllowed {
		t.Fatalf("Expected status 405, got %d", recorder.Code)
	}
	if allow := recorder.Header().Get("Allow"); allow != http.MethodPost {
		t.Errorf("Expected Allow: POST, got %q", allow)
	}
}
