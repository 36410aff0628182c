package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/room-access/internal/application"
	"github.com/example/room-access/internal/config"
	httptransport "github.com/example/room-access/internal/http"
	"github.com/example/room-access/internal/persistence"
	"github.com/example/room-access/internal/persistence/sqlite"
	"github.com/example/room-access/internal/restriction"
	"github.com/example/room-access/internal/tracker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	storage, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := storage.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	now := time.Now

	userRepo := newUserRepositoryAdapter(sqlite.NewUserRepository(storage))
	roomRepo := newRoomRepositoryAdapter(sqlite.NewRoomRepository(storage))
	roleCatalog := newRoleCatalogAdapter(sqlite.NewRoleRepository(storage))
	membershipRepo := newMembershipRepositoryAdapter(sqlite.NewMemberRepository(storage))
	restrictionRepo := newRestrictionRepositoryAdapter(sqlite.NewRestrictionRepository(storage))
	accessLogRepo := newAccessLogRepositoryAdapter(sqlite.NewAccessLogRepository(storage), cfg.AccessLogCap)
	trackerRepo := newTrackerRepositoryAdapter(sqlite.NewTrackerRepository(storage))
	lapseLog := newLapseLogAdapter(sqlite.NewLapseRepository(storage))
	sessionRepo := newSessionRepositoryAdapter(sqlite.NewSessionRepository(storage))
	requestRepo := newRequestRepositoryAdapter(sqlite.NewRequestRepository(storage))
	credentialStore := newCredentialStoreAdapter(sqlite.NewUserRepository(storage))

	userService := application.NewUserServiceWithLogger(userRepo, idGenerator, now, logger)
	roomService := application.NewRoomServiceWithLogger(roomRepo, roleCatalog, membershipRepo, userRepo, idGenerator, now, logger)
	restrictionService := application.NewRestrictionServiceWithLogger(restrictionRepo, roomRepo, roleCatalog, idGenerator, now, logger)
	trackerService := application.NewTrackerServiceWithLogger(trackerRepo, lapseLog, roomRepo, idGenerator, now, logger)
	authService := application.NewAuthServiceWithLogger(credentialStore, sessionRepo, application.VerifyPasscode, idGenerator, now, cfg.SessionTTL, []byte(cfg.TokenSecret), logger)
	requestService := application.NewRequestServiceWithLogger(requestRepo, roomRepo, roleCatalog, membershipRepo, idGenerator, now, logger)
	accessService := application.NewAccessServiceWithLogger(credentialStore, membershipRepo, restrictionRepo, accessLogRepo, application.VerifyPasscode, idGenerator, now, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:         httptransport.NewAuthHandler(authService, logger),
		Users:        httptransport.NewUserHandler(userService, logger),
		Rooms:        httptransport.NewRoomHandler(roomService, logger),
		Restrictions: httptransport.NewRestrictionHandler(restrictionService, logger),
		Trackers:     httptransport.NewTrackerHandler(trackerService, logger),
		Access:       httptransport.NewAccessHandler(accessService, logger),
		Requests:     httptransport.NewRequestHandler(requestService, logger),
	})

	protected := httptransport.RequireAuth(authService, logger)(router)
	split := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicPath(r.URL.Path) {
			router.ServeHTTP(w, r)
			return
		}
		protected.ServeHTTP(w, r)
	})
	handler := httptransport.RequestLogger(logger)(httptransport.CORS(cfg.CORSOrigins)(split))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("room access API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// isPublicPath reports whether the endpoint is reachable without a bearer
// token: signup, login, and the access-device attempt endpoint.
func isPublicPath(path string) bool {
	switch path {
	case "/signup", "/sessions", "/access/attempts":
		return true
	}
	return false
}

// mapStorageErr translates persistence sentinels into the application error
// vocabulary the services and the HTTP responder dispatch on.
func mapStorageErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return application.ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return application.ErrAlreadyExists
	case errors.Is(err, persistence.ErrConflict):
		return application.ErrConflict
	case errors.Is(err, persistence.ErrConstraintViolation):
		return application.ErrConflict
	default:
		return err
	}
}

type userRepositoryAdapter struct {
	repo persistence.UserRepository
}

func newUserRepositoryAdapter(repo persistence.UserRepository) *userRepositoryAdapter {
	return &userRepositoryAdapter{repo: repo}
}

func (a *userRepositoryAdapter) CreateUser(ctx context.Context, user application.User, passcodeHash string) (application.User, error) {
	if err := a.repo.CreateUser(ctx, toPersistenceUser(user, passcodeHash)); err != nil {
		return application.User{}, mapStorageErr(err)
	}
	stored, err := a.repo.GetUser(ctx, user.ID)
	if err != nil {
		return application.User{}, mapStorageErr(err)
	}
	return toApplicationUser(stored), nil
}

func (a *userRepositoryAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, mapStorageErr(err)
	}
	return toApplicationUser(stored), nil
}

func (a *userRepositoryAdapter) GetUserByEmail(ctx context.Context, email string) (application.User, error) {
	stored, err := a.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return application.User{}, mapStorageErr(err)
	}
	return toApplicationUser(stored), nil
}

func (a *userRepositoryAdapter) UpdateUser(ctx context.Context, user application.User) (application.User, error) {
	current, err := a.repo.GetUser(ctx, user.ID)
	if err != nil {
		return application.User{}, mapStorageErr(err)
	}
	if err := a.repo.UpdateUser(ctx, toPersistenceUser(user, current.PasscodeHash)); err != nil {
		return application.User{}, mapStorageErr(err)
	}
	stored, err := a.repo.GetUser(ctx, user.ID)
	if err != nil {
		return application.User{}, mapStorageErr(err)
	}
	return toApplicationUser(stored), nil
}

func (a *userRepositoryAdapter) UpdatePasscode(ctx context.Context, id, passcodeHash string) error {
	current, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return mapStorageErr(err)
	}
	current.PasscodeHash = passcodeHash
	return mapStorageErr(a.repo.UpdateUser(ctx, current))
}

func (a *userRepositoryAdapter) ListUsers(ctx context.Context) ([]application.User, error) {
	models, err := a.repo.ListUsers(ctx)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	if len(models) == 0 {
		return nil, nil
	}
	users := make([]application.User, 0, len(models))
	for _, model := range models {
		users = append(users, toApplicationUser(model))
	}
	return users, nil
}

type credentialStoreAdapter struct {
	repo persistence.UserRepository
}

func newCredentialStoreAdapter(repo persistence.UserRepository) *credentialStoreAdapter {
	return &credentialStoreAdapter{repo: repo}
}

func (a *credentialStoreAdapter) GetUserCredentialsByEmail(ctx context.Context, email string) (application.UserCredentials, error) {
	stored, err := a.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return application.UserCredentials{}, mapStorageErr(err)
	}
	return application.UserCredentials{
		User:         toApplicationUser(stored),
		PasscodeHash: stored.PasscodeHash,
		Disabled:     !stored.IsActive,
	}, nil
}

func (a *credentialStoreAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, mapStorageErr(err)
	}
	return toApplicationUser(stored), nil
}

type sessionRepositoryAdapter struct {
	repo persistence.SessionRepository
}

func newSessionRepositoryAdapter(repo persistence.SessionRepository) *sessionRepositoryAdapter {
	return &sessionRepositoryAdapter{repo: repo}
}

func (a *sessionRepositoryAdapter) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.repo.CreateSession(ctx, toPersistenceSession(session))
	if err != nil {
		return application.Session{}, mapStorageErr(err)
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) GetSession(ctx context.Context, id string) (application.Session, error) {
	stored, err := a.repo.GetSession(ctx, id)
	if err != nil {
		return application.Session{}, mapStorageErr(err)
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) RevokeSession(ctx context.Context, id string, revokedAt time.Time) (application.Session, error) {
	stored, err := a.repo.RevokeSession(ctx, id, revokedAt)
	if err != nil {
		return application.Session{}, mapStorageErr(err)
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	return mapStorageErr(a.repo.DeleteExpiredSessions(ctx, reference))
}

type requestRepositoryAdapter struct {
	repo persistence.MembershipRequestRepository
}

func newRequestRepositoryAdapter(repo persistence.MembershipRequestRepository) *requestRepositoryAdapter {
	return &requestRepositoryAdapter{repo: repo}
}

func (a *requestRepositoryAdapter) CreateRequest(ctx context.Context, request application.MembershipRequest) (application.MembershipRequest, error) {
	if err := a.repo.CreateRequest(ctx, toPersistenceRequest(request)); err != nil {
		return application.MembershipRequest{}, mapStorageErr(err)
	}
	return a.GetRequest(ctx, request.ID)
}

func (a *requestRepositoryAdapter) UpdateRequest(ctx context.Context, request application.MembershipRequest) (application.MembershipRequest, error) {
	if err := a.repo.UpdateRequest(ctx, toPersistenceRequest(request)); err != nil {
		return application.MembershipRequest{}, mapStorageErr(err)
	}
	return a.GetRequest(ctx, request.ID)
}

func (a *requestRepositoryAdapter) GetRequest(ctx context.Context, id string) (application.MembershipRequest, error) {
	stored, err := a.repo.GetRequest(ctx, id)
	if err != nil {
		return application.MembershipRequest{}, mapStorageErr(err)
	}
	return toApplicationRequest(stored), nil
}

func (a *requestRepositoryAdapter) ListRequestsByRoom(ctx context.Context, roomID string) ([]application.MembershipRequest, error) {
	models, err := a.repo.ListRequestsByRoom(ctx, roomID)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	return toApplicationRequests(models), nil
}

func (a *requestRepositoryAdapter) ListRequestsByUser(ctx context.Context, userID string) ([]application.MembershipRequest, error) {
	models, err := a.repo.ListRequestsByUser(ctx, userID)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	return toApplicationRequests(models), nil
}

type roomRepositoryAdapter struct {
	repo persistence.RoomRepository
}

func newRoomRepositoryAdapter(repo persistence.RoomRepository) *roomRepositoryAdapter {
	return &roomRepositoryAdapter{repo: repo}
}

func (a *roomRepositoryAdapter) CreateRoom(ctx context.Context, room application.Room) (application.Room, error) {
	if err := a.repo.CreateRoom(ctx, toPersistenceRoom(room)); err != nil {
		return application.Room{}, mapStorageErr(err)
	}
	stored, err := a.repo.GetRoom(ctx, room.ID)
	if err != nil {
		return application.Room{}, mapStorageErr(err)
	}
	return toApplicationRoom(stored), nil
}

func (a *roomRepositoryAdapter) GetRoom(ctx context.Context, id string) (application.Room, error) {
	stored, err := a.repo.GetRoom(ctx, id)
	if err != nil {
		return application.Room{}, mapStorageErr(err)
	}
	return toApplicationRoom(stored), nil
}

func (a *roomRepositoryAdapter) UpdateRoom(ctx context.Context, room application.Room) (application.Room, error) {
	if err := a.repo.UpdateRoom(ctx, toPersistenceRoom(room)); err != nil {
		return application.Room{}, mapStorageErr(err)
	}
	stored, err := a.repo.GetRoom(ctx, room.ID)
	if err != nil {
		return application.Room{}, mapStorageErr(err)
	}
	return toApplicationRoom(stored), nil
}

func (a *roomRepositoryAdapter) ListRooms(ctx context.Context) ([]application.Room, error) {
	models, err := a.repo.ListRooms(ctx)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	if len(models) == 0 {
		return nil, nil
	}
	rooms := make([]application.Room, 0, len(models))
	for _, model := range models {
		rooms = append(rooms, toApplicationRoom(model))
	}
	return rooms, nil
}

func (a *roomRepositoryAdapter) DeleteRoom(ctx context.Context, id string) error {
	return mapStorageErr(a.repo.DeleteRoom(ctx, id))
}

type roleCatalogAdapter struct {
	repo persistence.RoleRepository
}

func newRoleCatalogAdapter(repo persistence.RoleRepository) *roleCatalogAdapter {
	return &roleCatalogAdapter{repo: repo}
}

func (a *roleCatalogAdapter) CreateRole(ctx context.Context, role application.Role) (application.Role, error) {
	if err := a.repo.CreateRole(ctx, toPersistenceRole(role)); err != nil {
		return application.Role{}, mapStorageErr(err)
	}
	stored, err := a.repo.GetRole(ctx, role.ID)
	if err != nil {
		return application.Role{}, mapStorageErr(err)
	}
	return toApplicationRole(stored), nil
}

func (a *roleCatalogAdapter) GetRole(ctx context.Context, id string) (application.Role, error) {
	stored, err := a.repo.GetRole(ctx, id)
	if err != nil {
		return application.Role{}, mapStorageErr(err)
	}
	return toApplicationRole(stored), nil
}

func (a *roleCatalogAdapter) ListRoles(ctx context.Context) ([]application.Role, error) {
	models, err := a.repo.ListRoles(ctx)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	if len(models) == 0 {
		return nil, nil
	}
	roles := make([]application.Role, 0, len(models))
	for _, model := range models {
		roles = append(roles, toApplicationRole(model))
	}
	return roles, nil
}

type membershipRepositoryAdapter struct {
	repo persistence.MemberRepository
}

func newMembershipRepositoryAdapter(repo persistence.MemberRepository) *membershipRepositoryAdapter {
	return &membershipRepositoryAdapter{repo: repo}
}

func (a *membershipRepositoryAdapter) AddMember(ctx context.Context, member application.Member) (application.Member, error) {
	if err := a.repo.AddMember(ctx, toPersistenceMember(member)); err != nil {
		return application.Member{}, mapStorageErr(err)
	}
	stored, err := a.repo.GetMember(ctx, member.RoomID, member.UserID)
	if err != nil {
		return application.Member{}, mapStorageErr(err)
	}
	return toApplicationMember(stored), nil
}

func (a *membershipRepositoryAdapter) RemoveMember(ctx context.Context, roomID, userID string) error {
	return mapStorageErr(a.repo.RemoveMember(ctx, roomID, userID))
}

func (a *membershipRepositoryAdapter) GetMember(ctx context.Context, roomID, userID string) (application.Member, error) {
	stored, err := a.repo.GetMember(ctx, roomID, userID)
	if err != nil {
		return application.Member{}, mapStorageErr(err)
	}
	return toApplicationMember(stored), nil
}

func (a *membershipRepositoryAdapter) ListMembersByRoom(ctx context.Context, roomID string) ([]application.Member, error) {
	models, err := a.repo.ListMembersByRoom(ctx, roomID)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	if len(models) == 0 {
		return nil, nil
	}
	members := make([]application.Member, 0, len(models))
	for _, model := range models {
		members = append(members, toApplicationMember(model))
	}
	return members, nil
}

type restrictionRepositoryAdapter struct {
	repo persistence.RestrictionRepository
}

func newRestrictionRepositoryAdapter(repo persistence.RestrictionRepository) *restrictionRepositoryAdapter {
	return &restrictionRepositoryAdapter{repo: repo}
}

func (a *restrictionRepositoryAdapter) CreateRestriction(ctx context.Context, r application.Restriction) (application.Restriction, error) {
	if err := a.repo.CreateRestriction(ctx, toPersistenceRestriction(r)); err != nil {
		return application.Restriction{}, mapStorageErr(err)
	}
	stored, err := a.repo.GetRestriction(ctx, r.ID)
	if err != nil {
		return application.Restriction{}, mapStorageErr(err)
	}
	return toApplicationRestriction(stored)
}

func (a *restrictionRepositoryAdapter) GetRestriction(ctx context.Context, id string) (application.Restriction, error) {
	stored, err := a.repo.GetRestriction(ctx, id)
	if err != nil {
		return application.Restriction{}, mapStorageErr(err)
	}
	return toApplicationRestriction(stored)
}

func (a *restrictionRepositoryAdapter) UpdateRestriction(ctx context.Context, r application.Restriction) (application.Restriction, error) {
	if err := a.repo.UpdateRestriction(ctx, toPersistenceRestriction(r)); err != nil {
		return application.Restriction{}, mapStorageErr(err)
	}
	stored, err := a.repo.GetRestriction(ctx, r.ID)
	if err != nil {
		return application.Restriction{}, mapStorageErr(err)
	}
	return toApplicationRestriction(stored)
}

func (a *restrictionRepositoryAdapter) ListRestrictionsByRoom(ctx context.Context, roomID string) ([]application.Restriction, error) {
	models, err := a.repo.ListRestrictionsByRoom(ctx, roomID)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	return toApplicationRestrictions(models)
}

func (a *restrictionRepositoryAdapter) ListRestrictionsByRoomRole(ctx context.Context, roomID, roleID string) ([]application.Restriction, error) {
	models, err := a.repo.ListRestrictionsByRoomRole(ctx, roomID, roleID)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	return toApplicationRestrictions(models)
}

func (a *restrictionRepositoryAdapter) DeleteRestriction(ctx context.Context, id string) error {
	return mapStorageErr(a.repo.DeleteRestriction(ctx, id))
}

type accessLogRepositoryAdapter struct {
	repo persistence.AccessLogRepository
	cap  int
}

func newAccessLogRepositoryAdapter(repo persistence.AccessLogRepository, cap int) *accessLogRepositoryAdapter {
	return &accessLogRepositoryAdapter{repo: repo, cap: cap}
}

func (a *accessLogRepositoryAdapter) AppendAccessLog(ctx context.Context, log application.AccessLog) (application.AccessLog, error) {
	if err := a.repo.AppendAccessLog(ctx, toPersistenceAccessLog(log)); err != nil {
		return application.AccessLog{}, mapStorageErr(err)
	}
	return log, nil
}

func (a *accessLogRepositoryAdapter) ListAccessLogsByRoom(ctx context.Context, roomID string, limit int) ([]application.AccessLog, error) {
	if a.cap > 0 && (limit <= 0 || limit > a.cap) {
		limit = a.cap
	}
	models, err := a.repo.ListAccessLogsByRoom(ctx, roomID, limit)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	if len(models) == 0 {
		return nil, nil
	}
	logs := make([]application.AccessLog, 0, len(models))
	for _, model := range models {
		logs = append(logs, toApplicationAccessLog(model))
	}
	return logs, nil
}

func (a *accessLogRepositoryAdapter) CountAccessOutcomes(ctx context.Context, roomID string) (application.AccessStats, error) {
	stats, err := a.repo.CountAccessOutcomes(ctx, roomID)
	if err != nil {
		return application.AccessStats{}, mapStorageErr(err)
	}
	return application.AccessStats{Granted: stats.Granted, Denied: stats.Denied, Unknown: stats.Unknown}, nil
}

func (a *accessLogRepositoryAdapter) CountAttemptsByUser(ctx context.Context, roomID string) ([]application.UserAttemptCount, error) {
	models, err := a.repo.CountAttemptsByUser(ctx, roomID)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	if len(models) == 0 {
		return nil, nil
	}
	counts := make([]application.UserAttemptCount, 0, len(models))
	for _, model := range models {
		counts = append(counts, application.UserAttemptCount{UserID: model.UserID, Attempts: model.Attempts, Granted: model.Granted})
	}
	return counts, nil
}

type trackerRepositoryAdapter struct {
	repo persistence.TrackerRepository
}

func newTrackerRepositoryAdapter(repo persistence.TrackerRepository) *trackerRepositoryAdapter {
	return &trackerRepositoryAdapter{repo: repo}
}

func (a *trackerRepositoryAdapter) CreateTracker(ctx context.Context, trk tracker.Tracker, lapse tracker.Lapse) (tracker.Tracker, error) {
	stored, err := toPersistenceLapse(lapse)
	if err != nil {
		return tracker.Tracker{}, err
	}
	if err := a.repo.CreateTracker(ctx, toPersistenceTracker(trk), stored); err != nil {
		return tracker.Tracker{}, mapStorageErr(err)
	}
	return a.GetTracker(ctx, trk.ID)
}

func (a *trackerRepositoryAdapter) GetTracker(ctx context.Context, id string) (tracker.Tracker, error) {
	stored, err := a.repo.GetTracker(ctx, id)
	if err != nil {
		return tracker.Tracker{}, mapStorageErr(err)
	}
	return toDomainTracker(stored), nil
}

func (a *trackerRepositoryAdapter) ListTrackersByRoom(ctx context.Context, roomID string) ([]tracker.Tracker, error) {
	models, err := a.repo.ListTrackersByRoom(ctx, roomID)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	if len(models) == 0 {
		return nil, nil
	}
	trackers := make([]tracker.Tracker, 0, len(models))
	for _, model := range models {
		trackers = append(trackers, toDomainTracker(model))
	}
	return trackers, nil
}

func (a *trackerRepositoryAdapter) ApplyMutation(ctx context.Context, trk tracker.Tracker, lapse tracker.Lapse) (tracker.Tracker, error) {
	stored, err := toPersistenceLapse(lapse)
	if err != nil {
		return tracker.Tracker{}, err
	}
	if err := a.repo.ApplyMutation(ctx, toPersistenceTracker(trk), stored); err != nil {
		return tracker.Tracker{}, mapStorageErr(err)
	}
	return a.GetTracker(ctx, trk.ID)
}

type lapseLogAdapter struct {
	repo persistence.LapseRepository
}

func newLapseLogAdapter(repo persistence.LapseRepository) *lapseLogAdapter {
	return &lapseLogAdapter{repo: repo}
}

func (a *lapseLogAdapter) GetLapse(ctx context.Context, id string) (tracker.Lapse, error) {
	stored, err := a.repo.GetLapse(ctx, id)
	if err != nil {
		return tracker.Lapse{}, mapStorageErr(err)
	}
	return toDomainLapse(stored)
}

func (a *lapseLogAdapter) ListLapsesByTracker(ctx context.Context, trackerID string) ([]tracker.Lapse, error) {
	models, err := a.repo.ListLapsesByTracker(ctx, trackerID)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	if len(models) == 0 {
		return nil, nil
	}
	lapses := make([]tracker.Lapse, 0, len(models))
	for _, model := range models {
		lapse, err := toDomainLapse(model)
		if err != nil {
			return nil, err
		}
		lapses = append(lapses, lapse)
	}
	return lapses, nil
}

func toApplicationUser(user persistence.User) application.User {
	return application.User{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Birthday:  cloneTime(user.Birthday),
		IsAdmin:   user.IsAdmin,
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

func toPersistenceUser(user application.User, passcodeHash string) persistence.User {
	return persistence.User{
		ID:           user.ID,
		Email:        user.Email,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		Birthday:     cloneTime(user.Birthday),
		PasscodeHash: passcodeHash,
		IsAdmin:      user.IsAdmin,
		IsActive:     user.IsActive,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}

func toApplicationSession(session persistence.Session) application.Session {
	return application.Session{
		ID:        session.ID,
		UserID:    session.UserID,
		ExpiresAt: session.ExpiresAt,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
		RevokedAt: cloneTime(session.RevokedAt),
	}
}

func toPersistenceSession(session application.Session) persistence.Session {
	return persistence.Session{
		ID:        session.ID,
		UserID:    session.UserID,
		ExpiresAt: session.ExpiresAt,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
		RevokedAt: cloneTime(session.RevokedAt),
	}
}

func toApplicationRoom(room persistence.Room) application.Room {
	return application.Room{
		ID:         room.ID,
		Name:       room.Name,
		Building:   room.Building,
		RoomNumber: cloneString(room.RoomNumber),
		CreatedAt:  room.CreatedAt,
		UpdatedAt:  room.UpdatedAt,
	}
}

func toPersistenceRoom(room application.Room) persistence.Room {
	return persistence.Room{
		ID:         room.ID,
		Name:       room.Name,
		Building:   room.Building,
		RoomNumber: cloneString(room.RoomNumber),
		CreatedAt:  room.CreatedAt,
		UpdatedAt:  room.UpdatedAt,
	}
}

func toApplicationRole(role persistence.Role) application.Role {
	return application.Role{ID: role.ID, Name: role.Name, Level: role.Level, CreatedAt: role.CreatedAt}
}

func toPersistenceRole(role application.Role) persistence.Role {
	return persistence.Role{ID: role.ID, Name: role.Name, Level: role.Level, CreatedAt: role.CreatedAt}
}

func toApplicationMember(member persistence.Member) application.Member {
	return application.Member{RoomID: member.RoomID, UserID: member.UserID, RoleID: member.RoleID, CreatedAt: member.CreatedAt}
}

func toPersistenceMember(member application.Member) persistence.Member {
	return persistence.Member{RoomID: member.RoomID, UserID: member.UserID, RoleID: member.RoleID, CreatedAt: member.CreatedAt}
}

func toApplicationRequest(request persistence.MembershipRequest) application.MembershipRequest {
	return application.MembershipRequest{
		ID:        request.ID,
		RoomID:    request.RoomID,
		RoomName:  request.RoomName,
		UserID:    request.UserID,
		UserName:  request.UserName,
		AdminID:   cloneString(request.AdminID),
		AdminName: cloneString(request.AdminName),
		Status:    application.RequestStatus(request.Status),
		CreatedAt: request.CreatedAt,
		UpdatedAt: request.UpdatedAt,
	}
}

func toApplicationRequests(models []persistence.MembershipRequest) []application.MembershipRequest {
	if len(models) == 0 {
		return nil
	}
	requests := make([]application.MembershipRequest, 0, len(models))
	for _, model := range models {
		requests = append(requests, toApplicationRequest(model))
	}
	return requests
}

func toPersistenceRequest(request application.MembershipRequest) persistence.MembershipRequest {
	return persistence.MembershipRequest{
		ID:        request.ID,
		RoomID:    request.RoomID,
		RoomName:  request.RoomName,
		UserID:    request.UserID,
		UserName:  request.UserName,
		AdminID:   cloneString(request.AdminID),
		AdminName: cloneString(request.AdminName),
		Status:    string(request.Status),
		CreatedAt: request.CreatedAt,
		UpdatedAt: request.UpdatedAt,
	}
}

func toApplicationRestriction(r persistence.Restriction) (application.Restriction, error) {
	start, err := restriction.ParseTimeOfDay(r.StartTime)
	if err != nil {
		return application.Restriction{}, fmt.Errorf("decode restriction %s: %w", r.ID, err)
	}
	end, err := restriction.ParseTimeOfDay(r.EndTime)
	if err != nil {
		return application.Restriction{}, fmt.Errorf("decode restriction %s: %w", r.ID, err)
	}
	return application.Restriction{
		ID:     r.ID,
		RoomID: r.RoomID,
		RoleID: r.RoleID,
		Rule: restriction.Rule{
			DaysBitmask: r.DaysBitmask,
			Start:       start,
			End:         end,
			Active:      r.IsActive,
		},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}, nil
}

func toApplicationRestrictions(models []persistence.Restriction) ([]application.Restriction, error) {
	if len(models) == 0 {
		return nil, nil
	}
	restrictions := make([]application.Restriction, 0, len(models))
	for _, model := range models {
		converted, err := toApplicationRestriction(model)
		if err != nil {
			return nil, err
		}
		restrictions = append(restrictions, converted)
	}
	return restrictions, nil
}

func toPersistenceRestriction(r application.Restriction) persistence.Restriction {
	return persistence.Restriction{
		ID:          r.ID,
		RoomID:      r.RoomID,
		RoleID:      r.RoleID,
		DaysBitmask: r.Rule.DaysBitmask,
		StartTime:   r.Rule.Start.String(),
		EndTime:     r.Rule.End.String(),
		IsActive:    r.Rule.Active,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func toApplicationAccessLog(log persistence.AccessLog) application.AccessLog {
	return application.AccessLog{
		ID:        log.ID,
		RoomID:    log.RoomID,
		UserID:    cloneString(log.UserID),
		Method:    log.Method,
		Granted:   log.Granted,
		Reason:    log.Reason,
		CreatedAt: log.CreatedAt,
	}
}

func toPersistenceAccessLog(log application.AccessLog) persistence.AccessLog {
	return persistence.AccessLog{
		ID:        log.ID,
		RoomID:    log.RoomID,
		UserID:    cloneString(log.UserID),
		Method:    log.Method,
		Granted:   log.Granted,
		Reason:    log.Reason,
		CreatedAt: log.CreatedAt,
	}
}

func toDomainTracker(trk persistence.Tracker) tracker.Tracker {
	var record *time.Duration
	if trk.RecordMillis != nil {
		d := time.Duration(*trk.RecordMillis) * time.Millisecond
		record = &d
	}
	return tracker.Tracker{
		ID:            trk.ID,
		RoomID:        trk.RoomID,
		Name:          trk.Name,
		TimeReference: trk.TimeReference,
		ResetAt:       cloneTime(trk.ResetAt),
		Record:        record,
		Participants:  append([]string(nil), trk.Participants...),
		Creator:       tracker.UserRef{ID: trk.CreatorID, Name: trk.CreatorName},
		UpdatedBy:     tracker.UserRef{ID: trk.UpdatedByID, Name: trk.UpdatedByName},
		ResetBy:       tracker.UserRef{ID: trk.ResetByID, Name: trk.ResetByName},
		IsActive:      trk.IsActive,
		Version:       trk.Version,
		CreatedAt:     trk.CreatedAt,
		UpdatedAt:     trk.UpdatedAt,
	}
}

func toPersistenceTracker(trk tracker.Tracker) persistence.Tracker {
	var recordMillis *int64
	if trk.Record != nil {
		millis := trk.Record.Milliseconds()
		recordMillis = &millis
	}
	return persistence.Tracker{
		ID:            trk.ID,
		RoomID:        trk.RoomID,
		Name:          trk.Name,
		TimeReference: trk.TimeReference,
		ResetAt:       cloneTime(trk.ResetAt),
		RecordMillis:  recordMillis,
		Participants:  append([]string(nil), trk.Participants...),
		CreatorID:     trk.Creator.ID,
		CreatorName:   trk.Creator.Name,
		UpdatedByID:   trk.UpdatedBy.ID,
		UpdatedByName: trk.UpdatedBy.Name,
		ResetByID:     trk.ResetBy.ID,
		ResetByName:   trk.ResetBy.Name,
		IsActive:      trk.IsActive,
		Version:       trk.Version,
		CreatedAt:     trk.CreatedAt,
		UpdatedAt:     trk.UpdatedAt,
	}
}

func toDomainLapse(lapse persistence.Lapse) (tracker.Lapse, error) {
	var payload tracker.Patch
	if len(lapse.Payload) > 0 {
		if err := json.Unmarshal(lapse.Payload, &payload); err != nil {
			return tracker.Lapse{}, fmt.Errorf("decode lapse %s payload: %w", lapse.ID, err)
		}
	}
	var previous *tracker.Patch
	if len(lapse.PreviousState) > 0 {
		decoded := tracker.Patch{}
		if err := json.Unmarshal(lapse.PreviousState, &decoded); err != nil {
			return tracker.Lapse{}, fmt.Errorf("decode lapse %s previous state: %w", lapse.ID, err)
		}
		previous = &decoded
	}
	var message string
	if lapse.Message != nil {
		message = *lapse.Message
	}
	return tracker.Lapse{
		ID:            lapse.ID,
		TrackerID:     lapse.TrackerID,
		Issuer:        tracker.UserRef{ID: lapse.IssuerID, Name: lapse.IssuerName},
		CreatedAt:     lapse.CreatedAt,
		ChangeType:    tracker.ChangeType(lapse.ChangeType),
		Message:       message,
		Payload:       payload,
		PreviousState: previous,
	}, nil
}

func toPersistenceLapse(lapse tracker.Lapse) (persistence.Lapse, error) {
	payload, err := json.Marshal(lapse.Payload)
	if err != nil {
		return persistence.Lapse{}, fmt.Errorf("encode lapse %s payload: %w", lapse.ID, err)
	}
	var previous []byte
	if lapse.PreviousState != nil {
		previous, err = json.Marshal(lapse.PreviousState)
		if err != nil {
			return persistence.Lapse{}, fmt.Errorf("encode lapse %s previous state: %w", lapse.ID, err)
		}
	}
	var message *string
	if lapse.Message != "" {
		message = cloneString(&lapse.Message)
	}
	return persistence.Lapse{
		ID:            lapse.ID,
		TrackerID:     lapse.TrackerID,
		IssuerID:      lapse.Issuer.ID,
		IssuerName:    lapse.Issuer.Name,
		CreatedAt:     lapse.CreatedAt,
		ChangeType:    string(lapse.ChangeType),
		Message:       message,
		Payload:       payload,
		PreviousState: previous,
	}, nil
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}
