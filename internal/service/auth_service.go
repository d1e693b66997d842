package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bookmarket-service/internal/models"
	"bookmarket-service/internal/store"
	"bookmarket-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// SessionStore keeps opaque session tokens. LoadSession returns nil without error for unknown or expired tokens.
type SessionStore interface {
	SaveSession(ctx context.Context, token string, identity *models.Identity, ttl time.Duration) error
	LoadSession(ctx context.Context, token string) (*models.Identity, error)
	DeleteSession(ctx context.Context, token string) error
}

// AuthService logs users in and resolves their session tokens
type AuthService struct {
	store    store.Runner
	sessions SessionStore
	ttl      time.Duration
	logger   *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(store store.Runner, sessions SessionStore, ttl time.Duration) *AuthService {
	return &AuthService{
		store:    store,
		sessions: sessions,
		ttl:      ttl,
		logger:   util.GetLogger(),
	}
}

// LoginRequest carries user credentials
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Session is an issued session token
type Session struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	User      *models.Identity `json:"user"`
}

// HashPassword returns a bcrypt hash of a plain password
func HashPassword(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Login verifies credentials and issues a session token
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var user *models.User
	err := s.store.View(ctx, func(q store.Queries) error {
		var err error
		user, err = q.GetUserByEmail(ctx, email)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, unauthenticated("invalid email or password")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		s.logger.Info("Login rejected", zap.Int64("user_id", user.ID))
		return nil, unauthenticated("invalid email or password")
	}

	identity := &models.Identity{UserID: user.ID, Email: user.Email, Role: user.Role}
	token := uuid.New().String()
	if err := s.sessions.SaveSession(ctx, token, identity, s.ttl); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	s.logger.Info("User logged in", zap.Int64("user_id", user.ID), zap.String("role", user.Role))
	return &Session{
		Token:     token,
		ExpiresAt: time.Now().Add(s.ttl),
		User:      identity,
	}, nil
}

// Logout revokes a session token
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if err := s.sessions.DeleteSession(ctx, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Resolve returns the identity behind a session token
func (s *AuthService) Resolve(ctx context.Context, token string) (*models.Identity, error) {
	if token == "" {
		return nil, unauthenticated("missing session token")
	}
	identity, err := s.sessions.LoadSession(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if identity == nil {
		return nil, unauthenticated("session expired or unknown")
	}
	return identity, nil
}
