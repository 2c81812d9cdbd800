package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/maimweb/backend/internal/auth"
	"github.com/maimweb/backend/internal/model"
	"github.com/maimweb/backend/internal/repository"
)

// Token is an issued bearer credential.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// UserLookup is the part of the identity store AuthService needs.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
}

// AuthService handles login and bearer token authentication.
type AuthService struct {
	users  UserLookup
	tokens *auth.TokenIssuer
	logger *slog.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(users UserLookup, tokens *auth.TokenIssuer, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{users: users, tokens: tokens, logger: logger}
}

// Login verifies credentials and issues a token. Unknown users and wrong
// passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, username, password string) (*Token, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			// Burn comparable time so response latency does not reveal
			// whether the username exists.
			auth.VerifyPassword(password, dummyHash())
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	if !auth.VerifyPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}

	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	return &Token{AccessToken: token, TokenType: auth.TokenType, ExpiresAt: expiresAt}, nil
}

// Authenticate resolves a bearer token to an active user. Every failure
// wraps apperr.ErrUnauthenticated.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	userID, err := s.tokens.Validate(token)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, auth.ErrInvalidToken
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !user.IsActive {
		return nil, auth.ErrInvalidToken
	}

	return user, nil
}

var (
	dummyOnce sync.Once
	dummy     string
)

// dummyHash returns a hash at the current cost for a password nobody knows.
func dummyHash() string {
	dummyOnce.Do(func() {
		dummy, _ = auth.HashPassword(NewUserID())
	})
	return dummy
}
