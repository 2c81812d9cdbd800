package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/maimweb/backend/internal/apperr"
)

// TokenType is reported to clients alongside issued tokens.
const TokenType = "bearer"

// Token errors. Both are unauthenticated; callers must not reveal which.
var (
	ErrInvalidToken = fmt.Errorf("%w: invalid token", apperr.ErrUnauthenticated)
	ErrExpiredToken = fmt.Errorf("%w: token expired", apperr.ErrUnauthenticated)
)

// TokenIssuer mints and validates HS256 bearer tokens carrying only
// the subject (user ID) and an absolute expiry.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// TokenOption configures a TokenIssuer.
type TokenOption func(*TokenIssuer)

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) TokenOption {
	return func(i *TokenIssuer) {
		i.now = now
	}
}

// NewTokenIssuer creates a TokenIssuer signing with secret.
// ttl is the default lifetime used by Issue.
func NewTokenIssuer(secret []byte, ttl time.Duration, opts ...TokenOption) *TokenIssuer {
	i := &TokenIssuer{
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// TTL returns the default token lifetime.
func (i *TokenIssuer) TTL() time.Duration {
	return i.ttl
}

// Issue creates a token for userID with the default lifetime.
func (i *TokenIssuer) Issue(userID string) (string, time.Time, error) {
	return i.IssueWithTTL(userID, i.ttl)
}

// IssueWithTTL creates a token for userID that expires ttl after now.
// The issue time is truncated to whole seconds, matching the claim precision.
func (i *TokenIssuer) IssueWithTTL(userID string, ttl time.Duration) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, errors.New("issue token: empty subject")
	}

	expiresAt := i.now().Truncate(time.Second).Add(ttl)
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Validate verifies the signature and expiry of tokenString and returns
// its subject. A token is expired once now reaches its exp claim.
func (i *TokenIssuer) Validate(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (interface{}, error) {
			return i.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}

	if !i.now().Before(claims.ExpiresAt.Time) {
		return "", ErrExpiredToken
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}

	return claims.Subject, nil
}
