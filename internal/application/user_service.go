package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// UserRepository captures the persistence interactions required by the user service.
type UserRepository interface {
	CreateUser(ctx context.Context, user User, passcodeHash string) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	UpdateUser(ctx context.Context, user User) (User, error)
	UpdatePasscode(ctx context.Context, id, passcodeHash string) error
	ListUsers(ctx context.Context) ([]User, error)
}

// PasscodeHasher derives a storable hash from a plain passcode.
type PasscodeHasher func(passcode string) (string, error)

// UserService implements account management flows.
type UserService struct {
	repo         UserRepository
	hashPasscode PasscodeHasher
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewUserService constructs a UserService with the provided dependencies.
func NewUserService(repo UserRepository, idGenerator func() string, now func() time.Time) *UserService {
	return NewUserServiceWithLogger(repo, idGenerator, now, nil)
}

// NewUserServiceWithLogger constructs a UserService with a specified logger.
func NewUserServiceWithLogger(repo UserRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *UserService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &UserService{
		repo: repo,
		hashPasscode: func(passcode string) (string, error) {
			return CreatePasscodeHash(passcode, DefaultArgon2idParams)
		},
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *UserService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "UserService", operation, attrs...)
}

// Signup creates a regular account without requiring a principal. Admin flag
// requests in the input are ignored.
func (s *UserService) Signup(ctx context.Context, params SignupParams) (created User, err error) {
	if s == nil || s.repo == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	input := params.Input
	input.IsAdmin = false

	logger := s.loggerWith(ctx, "Signup", "email", strings.TrimSpace(strings.ToLower(input.Email)))
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "signup failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", created.ID).InfoContext(ctx, "account created")
	}()

	created, err = s.createUser(ctx, input)
	return
}

// CreateUser creates an account on behalf of an administrator.
func (s *UserService) CreateUser(ctx context.Context, params CreateUserParams) (created User, err error) {
	if s == nil || s.repo == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateUser",
		"principal_id", params.Principal.UserID,
		"email", strings.TrimSpace(strings.ToLower(params.Input.Email)),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create user", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", created.ID).InfoContext(ctx, "user created")
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	created, err = s.createUser(ctx, params.Input)
	return
}

func (s *UserService) createUser(ctx context.Context, input UserInput) (User, error) {
	email := strings.TrimSpace(strings.ToLower(input.Email))

	vErr := &ValidationError{}
	if email == "" {
		vErr.add("email", "email is required")
	} else if !strings.Contains(email, "@") {
		vErr.add("email", "email must be a valid address")
	}
	if strings.TrimSpace(input.FirstName) == "" && strings.TrimSpace(input.LastName) == "" {
		vErr.add("name", "a first or last name is required")
	}
	if reason, ok := ValidatePasscode(input.Passcode); !ok {
		vErr.add("passcode", reason)
	}
	now := s.now()
	if input.Birthday != nil && input.Birthday.After(now) {
		vErr.add("birthday", "birthday must be in the past")
	}
	if vErr.HasErrors() {
		return User{}, vErr
	}

	if _, err := s.repo.GetUserByEmail(ctx, email); err == nil {
		return User{}, ErrAlreadyExists
	} else if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}

	hash, err := s.hashPasscode(input.Passcode)
	if err != nil {
		return User{}, err
	}

	user := User{
		ID:        s.idGenerator(),
		Email:     email,
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Birthday:  input.Birthday,
		IsAdmin:   input.IsAdmin,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	return s.repo.CreateUser(ctx, user, hash)
}

// GetUser returns one account. Non-admin principals may only read themselves.
func (s *UserService) GetUser(ctx context.Context, principal Principal, id string) (User, error) {
	if s == nil || s.repo == nil {
		return User{}, fmt.Errorf("user repository not configured")
	}
	if !principal.IsAdmin && principal.UserID != id {
		return User{}, ErrUnauthorized
	}
	return s.repo.GetUser(ctx, id)
}

// ListUsers returns all accounts. Restricted to administrators.
func (s *UserService) ListUsers(ctx context.Context, principal Principal) ([]User, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("user repository not configured")
	}
	if !principal.IsAdmin {
		return nil, ErrUnauthorized
	}
	return s.repo.ListUsers(ctx)
}

// UpdateUser updates profile fields and optionally rotates the passcode.
// Non-admin principals may only update themselves and cannot change the
// admin flag.
func (s *UserService) UpdateUser(ctx context.Context, params UpdateUserParams) (updated User, err error) {
	if s == nil || s.repo == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateUser",
		"principal_id", params.Principal.UserID,
		"user_id", params.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update user", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "user updated")
	}()

	if !params.Principal.IsAdmin && params.Principal.UserID != params.UserID {
		err = ErrUnauthorized
		return
	}

	var current User
	current, err = s.repo.GetUser(ctx, params.UserID)
	if err != nil {
		return
	}

	input := params.Input
	vErr := &ValidationError{}
	if strings.TrimSpace(input.FirstName) == "" && strings.TrimSpace(input.LastName) == "" {
		vErr.add("name", "a first or last name is required")
	}
	now := s.now()
	if input.Birthday != nil && input.Birthday.After(now) {
		vErr.add("birthday", "birthday must be in the past")
	}
	if input.Passcode != "" {
		if reason, ok := ValidatePasscode(input.Passcode); !ok {
			vErr.add("passcode", reason)
		}
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	current.FirstName = strings.TrimSpace(input.FirstName)
	current.LastName = strings.TrimSpace(input.LastName)
	current.Birthday = input.Birthday
	if params.Principal.IsAdmin {
		current.IsAdmin = input.IsAdmin
	}
	current.UpdatedAt = now

	updated, err = s.repo.UpdateUser(ctx, current)
	if err != nil {
		return
	}

	if input.Passcode != "" {
		var hash string
		hash, err = s.hashPasscode(input.Passcode)
		if err != nil {
			return
		}
		if err = s.repo.UpdatePasscode(ctx, current.ID, hash); err != nil {
			return
		}
	}
	return
}

// DeactivateUser disables an account so it can no longer authenticate or be
// granted access. Restricted to administrators.
func (s *UserService) DeactivateUser(ctx context.Context, principal Principal, id string) (err error) {
	if s == nil || s.repo == nil {
		return fmt.Errorf("user repository not configured")
	}

	logger := s.loggerWith(ctx, "DeactivateUser",
		"principal_id", principal.UserID,
		"user_id", id,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to deactivate user", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "user deactivated")
	}()

	if !principal.IsAdmin {
		return ErrUnauthorized
	}

	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if !user.IsActive {
		return nil
	}

	user.IsActive = false
	user.UpdatedAt = s.now()
	_, err = s.repo.UpdateUser(ctx, user)
	return err
}
