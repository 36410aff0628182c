package application

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubUserRepo struct {
	users     map[string]User
	passcodes map[string]string
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{
		users:     make(map[string]User),
		passcodes: make(map[string]string),
	}
}

func (s *stubUserRepo) CreateUser(_ context.Context, user User, passcodeHash string) (User, error) {
	s.users[user.ID] = user
	s.passcodes[user.ID] = passcodeHash
	return user, nil
}

func (s *stubUserRepo) GetUser(_ context.Context, id string) (User, error) {
	user, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (s *stubUserRepo) GetUserByEmail(_ context.Context, email string) (User, error) {
	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return User{}, ErrNotFound
}

func (s *stubUserRepo) UpdateUser(_ context.Context, user User) (User, error) {
	if _, ok := s.users[user.ID]; !ok {
		return User{}, ErrNotFound
	}
	s.users[user.ID] = user
	return user, nil
}

func (s *stubUserRepo) UpdatePasscode(_ context.Context, id, passcodeHash string) error {
	if _, ok := s.users[id]; !ok {
		return ErrNotFound
	}
	s.passcodes[id] = passcodeHash
	return nil
}

func (s *stubUserRepo) ListUsers(_ context.Context) ([]User, error) {
	var result []User
	for _, user := range s.users {
		result = append(result, user)
	}
	return result, nil
}

func newUserServiceForTest(repo *stubUserRepo) *UserService {
	svc := NewUserService(repo, sequentialIDs("user"), fixedClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)))
	// Hashing is exercised separately; keep these tests fast.
	svc.hashPasscode = func(passcode string) (string, error) { return "hash:" + passcode, nil }
	return svc
}

func TestUserService_Signup(t *testing.T) {
	repo := newStubUserRepo()
	svc := newUserServiceForTest(repo)

	created, err := svc.Signup(context.Background(), SignupParams{
		Input: UserInput{
			Email:     "Ada@Example.com",
			FirstName: "Ada",
			LastName:  "Lovelace",
			Passcode:  "12AB",
			IsAdmin:   true, // must be ignored
		},
	})
	if err != nil {
		t.Fatalf("Signup failed: %v", err)
	}

	if created.Email != "ada@example.com" {
		t.Errorf("Expected normalized email, got %q", created.Email)
	}
	if created.IsAdmin {
		t.Error("Signup must never grant the admin flag")
	}
	if !created.IsActive {
		t.Error("Expected new accounts to be active")
	}
	if repo.passcodes[created.ID] != "hash:12AB" {
		t.Errorf("Expected stored hash, got %q", repo.passcodes[created.ID])
	}
}

func TestUserService_Signup_PasscodeRules(t *testing.T) {
	tests := []struct {
		name     string
		passcode string
		wantOK   bool
	}{
		{"valid mixed", "12AB", true},
		{"valid long", "0123456ABD", true},
		{"too short", "1AB", false},
		{"too long", "0123456789A", false},
		{"digits only", "1234", false},
		{"letters only", "ABCD", false},
		{"letter out of range", "12EF", false},
		{"lowercase rejected", "12ab", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newUserServiceForTest(newStubUserRepo())

			_, err := svc.Signup(context.Background(), SignupParams{
				Input: UserInput{
					Email:     "ada@example.com",
					FirstName: "Ada",
					Passcode:  tt.passcode,
				},
			})
			if tt.wantOK {
				if err != nil {
					t.Fatalf("Expected passcode %q accepted, got %v", tt.passcode, err)
				}
				return
			}

			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("Expected validation error for %q, got %v", tt.passcode, err)
			}
			if _, ok := vErr.FieldErrors["passcode"]; !ok {
				t.Errorf("Expected passcode field error, got %v", vErr.FieldErrors)
			}
		})
	}
}

func TestUserService_Signup_DuplicateEmail(t *testing.T) {
	repo := newStubUserRepo()
	svc := newUserServiceForTest(repo)

	input := UserInput{Email: "ada@example.com", FirstName: "Ada", Passcode: "12AB"}
	if _, err := svc.Signup(context.Background(), SignupParams{Input: input}); err != nil {
		t.Fatalf("Signup failed: %v", err)
	}

	_, err := svc.Signup(context.Background(), SignupParams{Input: input})
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("Expected ErrAlreadyExists, got %v", err)
	}
}

func TestUserService_CreateUser_RequiresAdmin(t *testing.T) {
	svc := newUserServiceForTest(newStubUserRepo())

	_, err := svc.CreateUser(context.Background(), CreateUserParams{
		Principal: Principal{UserID: "user1"},
		Input:     UserInput{Email: "new@example.com", FirstName: "New", Passcode: "12AB"},
	})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("Expected ErrUnauthorized, got %v", err)
	}
}

func TestUserService_UpdateUser_SelfOnly(t *testing.T) {
	repo := newStubUserRepo()
	svc := newUserServiceForTest(repo)

	created, err := svc.Signup(context.Background(), SignupParams{
		Input: UserInput{Email: "ada@example.com", FirstName: "Ada", Passcode: "12AB"},
	})
	if err != nil {
		t.Fatalf("Signup failed: %v", err)
	}

	_, err = svc.UpdateUser(context.Background(), UpdateUserParams{
		Principal: Principal{UserID: "someone-else"},
		UserID:    created.ID,
		Input:     UserInput{FirstName: "Eve"},
	})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("Expected ErrUnauthorized, got %v", err)
	}

	// Self-update works but cannot set the admin flag.
	updated, err := svc.UpdateUser(context.Background(), UpdateUserParams{
		Principal: Principal{UserID: created.ID},
		UserID:    created.ID,
		Input:     UserInput{FirstName: "Augusta", LastName: "King", IsAdmin: true},
	})
	if err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}
	if updated.FirstName != "Augusta" || updated.LastName != "King" {
		t.Errorf("Expected renamed user, got %+v", updated)
	}
	if updated.IsAdmin {
		t.Error("Self-update must not grant the admin flag")
	}
}

func TestUserService_DeactivateUser(t *testing.T) {
	repo := newStubUserRepo()
	svc := newUserServiceForTest(repo)

	created, err := svc.Signup(context.Background(), SignupParams{
		Input: UserInput{Email: "ada@example.com", FirstName: "Ada", Passcode: "12AB"},
	})
	if err != nil {
		t.Fatalf("Signup failed: %v", err)
	}

	admin := Principal{UserID: "admin", IsAdmin: true}
	if err := svc.DeactivateUser(context.Background(), admin, created.ID); err != nil {
		t.Fatalf("DeactivateUser failed: %v", err)
	}
	if repo.users[created.ID].IsActive {
		t.Error("Expected user deactivated")
	}

	// Deactivating twice is a no-op, not an error.
	if err := svc.DeactivateUser(context.Background(), admin, created.ID); err != nil {
		t.Fatalf("Second DeactivateUser failed: %v", err)
	}
}
