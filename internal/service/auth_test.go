package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maimweb/backend/internal/apperr"
	"github.com/maimweb/backend/internal/auth"
	"github.com/maimweb/backend/internal/model"
)

func seedInactiveUser(t *testing.T, env *testEnv, username string) *model.User {
	t.Helper()
	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)
	user := &model.User{ID: NewUserID(), Username: username, PasswordHash: hash, IsActive: false}
	require.NoError(t, env.store.CreateUser(context.Background(), user))
	return user
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")

	token, err := env.auth.Login(ctx, "alice", "password123")
	require.NoError(t, err)
	assert.Equal(t, "bearer", token.TokenType)
	assert.WithinDuration(t, time.Now().Add(time.Hour), token.ExpiresAt, 5*time.Second)

	subject, err := env.tokens.Validate(token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, subject)
}

func TestLogin_Failures(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice")
	seedInactiveUser(t, env, "mallory")

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{"wrong password", "alice", "wrong-password", ErrInvalidCredentials},
		{"unknown user", "nobody", "password123", ErrInvalidCredentials},
		{"inactive user", "mallory", "password123", ErrInactiveUser},
		{"inactive user wrong password", "mallory", "nope", ErrInvalidCredentials},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			token, err := env.auth.Login(context.Background(), tt.username, tt.password)
			assert.Nil(t, token)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, apperr.ErrInvalidInput)
		})
	}
}

func TestAuthenticate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	mallory := seedInactiveUser(t, env, "mallory")

	valid, _, err := env.tokens.Issue(alice.ID)
	require.NoError(t, err)
	user, err := env.auth.Authenticate(ctx, valid)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, user.ID)

	unknown, _, err := env.tokens.Issue("user_ghost")
	require.NoError(t, err)
	inactive, _, err := env.tokens.Issue(mallory.ID)
	require.NoError(t, err)
	expired, _, err := env.tokens.IssueWithTTL(alice.ID, -time.Minute)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"garbage":  "not-a-token",
		"unknown":  unknown,
		"inactive": inactive,
		"expired":  expired,
	} {
		token := token
		t.Run(name, func(t *testing.T) {
			_, err := env.auth.Authenticate(ctx, token)
			assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
		})
	}
}
