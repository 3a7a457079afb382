// Package auth is the session-token auth service: account registration,
// login, logout, password updates and the fiber middleware that resolves a
// bearer token to a user.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/stickfinity/server/domain"
	"github.com/stickfinity/server/store"
)

// SessionTTL is how long a session token stays valid.
const SessionTTL = 30 * 24 * time.Hour

// ErrInvalidCredentials covers both unknown emails and wrong passwords.
var ErrInvalidCredentials = errors.New("invalid email or password")

// userKey is the fiber locals key the middleware stores the user under.
const userKey = "auth_user"

// Service implements the auth contract on top of the store.
type Service struct {
	store *store.Store
	log   zerolog.Logger
}

func NewService(st *store.Store, log zerolog.Logger) *Service {
	return &Service{store: st, log: log}
}

// Register creates an account and an initial session.
func (s *Service) Register(ctx context.Context, email, password, displayName string) (*domain.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, "", fmt.Errorf("email and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	u := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
	}
	if displayName != "" {
		u.DisplayName = &displayName
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, "", err
	}

	token, err := s.newSession(ctx, u.ID)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// Login verifies credentials and mints a session token.
func (s *Service) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	u, err := s.store.UserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, "", ErrInvalidCredentials
	}
	token, err := s.newSession(ctx, u.ID)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// Logout revokes a session token.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.store.DeleteSession(ctx, token)
}

// UpdatePassword replaces the user's password.
func (s *Service) UpdatePassword(ctx context.Context, userID, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("password is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.store.SetPassword(ctx, userID, string(hash))
}

// Resolve maps a token to its user, or ErrNotFound.
func (s *Service) Resolve(ctx context.Context, token string) (*domain.User, error) {
	return s.store.UserBySession(ctx, token)
}

func (s *Service) newSession(ctx context.Context, userID string) (string, error) {
	token := uuid.NewString()
	if err := s.store.CreateSession(ctx, token, userID, SessionTTL); err != nil {
		return "", err
	}
	return token, nil
}

// RequireUser rejects requests without a valid session.
func (s *Service) RequireUser(c *fiber.Ctx) error {
	user, err := s.userFromRequest(c)
	if err != nil || user == nil {
		return fiber.NewError(fiber.StatusUnauthorized, "authentication required")
	}
	c.Locals(userKey, user)
	return c.Next()
}

// OptionalUser resolves a session when present but lets anonymous requests
// through, for endpoints that serve public boards.
func (s *Service) OptionalUser(c *fiber.Ctx) error {
	if user, err := s.userFromRequest(c); err == nil && user != nil {
		c.Locals(userKey, user)
	}
	return c.Next()
}

func (s *Service) userFromRequest(c *fiber.Ctx) (*domain.User, error) {
	token := TokenFromHeader(c.Get(fiber.HeaderAuthorization))
	if token == "" {
		token = c.Query("token")
	}
	if token == "" {
		return nil, nil
	}
	user, err := s.Resolve(c.Context(), token)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return user, err
}

// TokenFromHeader extracts the bearer token from an Authorization header.
func TokenFromHeader(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return header[len(prefix):]
	}
	return ""
}

// CurrentUser returns the user the middleware resolved, or nil.
func CurrentUser(c *fiber.Ctx) *domain.User {
	if u, ok := c.Locals(userKey).(*domain.User); ok {
		return u
	}
	return nil
}
