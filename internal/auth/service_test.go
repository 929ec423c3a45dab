package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/mkessler/taskhub/internal/user"
	"golang.org/x/crypto/bcrypt"
)

// fakeUserStore backs the service with an in-memory user.
type fakeUserStore struct {
	created  *user.CreateUserInput
	byEmail  map[string]*user.User
	createFn func(in user.CreateUserInput) (*user.User, error)
}

func (f *fakeUserStore) Create(_ context.Context, in user.CreateUserInput) (*user.User, error) {
	f.created = &in
	if f.createFn != nil {
		return f.createFn(in)
	}
	return &user.User{ID: 1, Username: in.Username, Email: in.Email}, nil
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*user.User, error) {
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, user.ErrNotFound
}

type fakeSessionStore struct {
	token   string
	deleted []string
}

func (f *fakeSessionStore) CreateSession(_ context.Context, userID int64) (string, *user.Session, error) {
	return f.token, &user.Session{UserID: userID}, nil
}

func (f *fakeSessionStore) DeleteSession(_ context.Context, token string) error {
	f.deleted = append(f.deleted, token)
	return nil
}

func hashOf(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	return string(h)
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name    string
		input   RegisterInput
		wantErr error
	}{
		{
			name:    "username too short",
			input:   RegisterInput{Username: "ab", Email: "a@example.com", Password: "longenough"},
			wantErr: ErrUsernameLength,
		},
		{
			name:    "username too long",
			input:   RegisterInput{Username: "abcdefghijklmnopqrstuvwxyzabcde", Email: "a@example.com", Password: "longenough"},
			wantErr: ErrUsernameLength,
		},
		{
			name:    "whitespace-only username",
			input:   RegisterInput{Username: "   ", Email: "a@example.com", Password: "longenough"},
			wantErr: ErrUsernameLength,
		},
		{
			name:    "invalid email",
			input:   RegisterInput{Username: "alice", Email: "not-an-email", Password: "longenough"},
			wantErr: ErrEmailInvalid,
		},
		{
			name:    "password too short",
			input:   RegisterInput{Username: "alice", Email: "a@example.com", Password: "short"},
			wantErr: ErrPasswordTooShort,
		},
		{
			name:  "valid input",
			input: RegisterInput{Username: "alice", Email: "a@example.com", Password: "longenough"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			us := &fakeUserStore{}
			svc := NewService(us, &fakeSessionStore{})

			_, err := svc.Register(context.Background(), tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if us.created != nil {
					t.Error("store should not be called on validation failure")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestRegister_NormalizesInput(t *testing.T) {
	us := &fakeUserStore{}
	svc := NewService(us, &fakeSessionStore{})

	_, err := svc.Register(context.Background(), RegisterInput{
		Username: "  alice  ",
		Email:    "  Alice@Example.COM ",
		Password: "longenough",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if us.created.Username != "alice" {
		t.Errorf("expected trimmed username, got %q", us.created.Username)
	}
	if us.created.Email != "alice@example.com" {
		t.Errorf("expected normalized email, got %q", us.created.Email)
	}
}

func TestLogin(t *testing.T) {
	hash := hashOf(t, "opensesame")
	us := &fakeUserStore{
		byEmail: map[string]*user.User{
			"alice@example.com": {ID: 3, Email: "alice@example.com", PasswordHash: hash},
		},
	}
	ss := &fakeSessionStore{token: "tok-123"}
	svc := NewService(us, ss)

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{name: "unknown email", email: "bob@example.com", password: "opensesame", wantErr: ErrInvalidCredentials},
		{name: "wrong password", email: "alice@example.com", password: "wrong", wantErr: ErrInvalidCredentials},
		{name: "empty password", email: "alice@example.com", password: "", wantErr: ErrInvalidCredentials},
		{name: "empty email", email: "", password: "opensesame", wantErr: ErrInvalidCredentials},
		{name: "success", email: "alice@example.com", password: "opensesame"},
		{name: "email is case insensitive", email: "ALICE@example.com", password: "opensesame"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, token, err := svc.Login(context.Background(), tt.email, tt.password)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if u.ID != 3 {
				t.Errorf("expected user 3, got %d", u.ID)
			}
			if token != "tok-123" {
				t.Errorf("expected session token, got %q", token)
			}
		})
	}
}

func TestLogout(t *testing.T) {
	ss := &fakeSessionStore{}
	svc := NewService(&fakeUserStore{}, ss)

	if err := svc.Logout(context.Background(), ""); err != nil {
		t.Fatalf("logout without a token should succeed: %v", err)
	}
	if len(ss.deleted) != 0 {
		t.Error("empty token should not hit the session store")
	}

	if err := svc.Logout(context.Background(), "tok"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ss.deleted) != 1 || ss.deleted[0] != "tok" {
		t.Errorf("expected tok to be deleted, got %v", ss.deleted)
	}
}
