package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Decision reasons recorded in the attempt log.
const (
	ReasonUnknownUser     = "unknown_user"
	ReasonInvalidPasscode = "invalid_passcode"
	ReasonAccountDisabled = "account_disabled"
	ReasonNotAMember      = "not_a_member"
	ReasonOutsideWindow   = "outside_window"
	ReasonWithinWindow    = "within_window"
	ReasonNoRestrictions  = "no_restrictions"
)

// AccessLogRepository captures the persistence interactions for the
// append-only attempt log.
type AccessLogRepository interface {
	AppendAccessLog(ctx context.Context, log AccessLog) (AccessLog, error)
	ListAccessLogsByRoom(ctx context.Context, roomID string, limit int) ([]AccessLog, error)
	CountAccessOutcomes(ctx context.Context, roomID string) (AccessStats, error)
	CountAttemptsByUser(ctx context.Context, roomID string) ([]UserAttemptCount, error)
}

// RestrictionFinder is the subset of restriction lookups the decision engine
// needs.
type RestrictionFinder interface {
	ListRestrictionsByRoomRole(ctx context.Context, roomID, roleID string) ([]Restriction, error)
}

// AccessService evaluates access attempts against memberships and weekly
// windows and records every attempt in the log.
type AccessService struct {
	credentials    CredentialStore
	members        MembershipRepository
	restrictions   RestrictionFinder
	logs           AccessLogRepository
	verifyPasscode PasscodeVerifier
	idGenerator    func() string
	now            func() time.Time
	logger         *slog.Logger
}

// NewAccessService constructs an AccessService with the provided dependencies.
func NewAccessService(credentials CredentialStore, members MembershipRepository, restrictions RestrictionFinder, logs AccessLogRepository, verify PasscodeVerifier, idGenerator func() string, now func() time.Time) *AccessService {
	return NewAccessServiceWithLogger(credentials, members, restrictions, logs, verify, idGenerator, now, nil)
}

// NewAccessServiceWithLogger constructs an AccessService with a specified logger.
func NewAccessServiceWithLogger(credentials CredentialStore, members MembershipRepository, restrictions RestrictionFinder, logs AccessLogRepository, verify PasscodeVerifier, idGenerator func() string, now func() time.Time, logger *slog.Logger) *AccessService {
	if verify == nil {
		verify = VerifyPasscode
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &AccessService{
		credentials:    credentials,
		members:        members,
		restrictions:   restrictions,
		logs:           logs,
		verifyPasscode: verify,
		idGenerator:    idGenerator,
		now:            now,
		logger:         defaultLogger(logger),
	}
}

func (s *AccessService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AccessService", operation, attrs...)
}

// Attempt evaluates one device-reported access attempt. Denials are not
// errors: the decision is returned and logged either way. An error is only
// returned when evaluation itself failed.
func (s *AccessService) Attempt(ctx context.Context, params AccessAttemptParams) (decision AccessDecision, err error) {
	if s == nil || s.logs == nil {
		err = fmt.Errorf("access log repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "Attempt",
		"room_id", params.RoomID,
		"method", params.Method,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "attempt evaluation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"granted", decision.Granted,
			"reason", decision.Reason,
		).InfoContext(ctx, "access attempt evaluated")
	}()

	decision, err = s.evaluate(ctx, params)
	if err != nil {
		return
	}

	_, err = s.logs.AppendAccessLog(ctx, AccessLog{
		ID:        s.idGenerator(),
		RoomID:    params.RoomID,
		UserID:    decision.UserID,
		Method:    params.Method,
		Granted:   decision.Granted,
		Reason:    decision.Reason,
		CreatedAt: s.now(),
	})
	return
}

func (s *AccessService) evaluate(ctx context.Context, params AccessAttemptParams) (AccessDecision, error) {
	email := strings.TrimSpace(strings.ToLower(params.Email))

	creds, err := s.credentials.GetUserCredentialsByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return AccessDecision{Granted: false, Reason: ReasonUnknownUser}, nil
		}
		return AccessDecision{}, err
	}
	userID := creds.User.ID

	if err := s.verifyPasscode(creds.PasscodeHash, params.Passcode); err != nil {
		return AccessDecision{Granted: false, Reason: ReasonInvalidPasscode, UserID: &userID}, nil
	}
	if creds.Disabled {
		return AccessDecision{Granted: false, Reason: ReasonAccountDisabled, UserID: &userID}, nil
	}

	member, err := s.members.GetMember(ctx, params.RoomID, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return AccessDecision{Granted: false, Reason: ReasonNotAMember, UserID: &userID}, nil
		}
		return AccessDecision{}, err
	}

	restrictions, err := s.restrictions.ListRestrictionsByRoomRole(ctx, params.RoomID, member.RoleID)
	if err != nil {
		return AccessDecision{}, err
	}

	// Members of a role with no configured windows are admitted at any time.
	active := 0
	now := s.now()
	for _, r := range restrictions {
		if !r.Rule.Active {
			continue
		}
		active++
		if r.Rule.AllowsAt(now) {
			return AccessDecision{Granted: true, Reason: ReasonWithinWindow, UserID: &userID}, nil
		}
	}
	if active == 0 {
		return AccessDecision{Granted: true, Reason: ReasonNoRestrictions, UserID: &userID}, nil
	}
	return AccessDecision{Granted: false, Reason: ReasonOutsideWindow, UserID: &userID}, nil
}

// ListLogs returns a room's most recent attempts. Restricted to administrators.
func (s *AccessService) ListLogs(ctx context.Context, principal Principal, roomID string, limit int) ([]AccessLog, error) {
	if s == nil || s.logs == nil {
		return nil, fmt.Errorf("access log repository not configured")
	}
	if !principal.IsAdmin {
		return nil, ErrUnauthorized
	}
	return s.logs.ListAccessLogsByRoom(ctx, roomID, limit)
}

// Stats aggregates a room's outcomes and per-user attempt counts. Restricted
// to administrators.
func (s *AccessService) Stats(ctx context.Context, principal Principal, roomID string) (AccessStats, []UserAttemptCount, error) {
	if s == nil || s.logs == nil {
		return AccessStats{}, nil, fmt.Errorf("access log repository not configured")
	}
	if !principal.IsAdmin {
		return AccessStats{}, nil, ErrUnauthorized
	}

	stats, err := s.logs.CountAccessOutcomes(ctx, roomID)
	if err != nil {
		return AccessStats{}, nil, err
	}
	byUser, err := s.logs.CountAttemptsByUser(ctx, roomID)
	if err != nil {
		return AccessStats{}, nil, err
	}
	return stats, byUser, nil
}
