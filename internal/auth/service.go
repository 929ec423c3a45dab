package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/mkessler/taskhub/internal/user"
)

// Validation and authentication errors returned by the Service.
var (
	ErrUsernameLength     = errors.New("username must be between 3 and 30 characters")
	ErrEmailInvalid       = errors.New("a valid email address is required")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// UserStore is the subset of the user store needed for registration and login.
type UserStore interface {
	Create(ctx context.Context, in user.CreateUserInput) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
}

// SessionStore manages session lifecycle.
type SessionStore interface {
	CreateSession(ctx context.Context, userID int64) (string, *user.Session, error)
	DeleteSession(ctx context.Context, token string) error
}

// Service provides registration, login, and logout.
type Service struct {
	users    UserStore
	sessions SessionStore
}

// NewService creates a new authentication service.
func NewService(users UserStore, sessions SessionStore) *Service {
	return &Service{users: users, sessions: sessions}
}

// RegisterInput holds raw registration fields before normalization.
type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register normalizes and validates the input and creates the user.
// Duplicate usernames or emails surface as user.ErrUsernameTaken /
// user.ErrEmailTaken from the store.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*user.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = NormalizeEmail(in.Email)

	if err := validateRegister(in); err != nil {
		return nil, err
	}

	return s.users.Create(ctx, user.CreateUserInput{
		Username: in.Username,
		Email:    in.Email,
		Password: in.Password,
	})
}

// Login verifies credentials and establishes a new session. It returns the
// user and the opaque session token. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*user.User, string, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, "", ErrInvalidCredentials
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	if !user.CheckPassword(u, password) {
		return nil, "", ErrInvalidCredentials
	}

	token, _, err := s.sessions.CreateSession(ctx, u.ID)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// Logout invalidates the given session token. Logging out with a missing or
// already-invalid token still succeeds.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.DeleteSession(ctx, token)
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateRegister(in RegisterInput) error {
	if len(in.Username) < 3 || len(in.Username) > 30 {
		return ErrUsernameLength
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return ErrEmailInvalid
	}
	if len(in.Password) < 8 {
		return ErrPasswordTooShort
	}
	return nil
}
