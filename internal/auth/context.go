package auth

import (
	"context"

	"github.com/maimweb/backend/internal/model"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// principalKey is the context key for storing the authenticated user.
	principalKey contextKey = "principal"
)

// ContextWithPrincipal adds the authenticated user to the context.
// Only the HTTP layer reads it back; services receive the user explicitly.
func ContextWithPrincipal(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, principalKey, user)
}

// PrincipalFromContext retrieves the authenticated user from the context.
// Returns nil if not present.
func PrincipalFromContext(ctx context.Context) *model.User {
	user, ok := ctx.Value(principalKey).(*model.User)
	if !ok {
		return nil
	}
	return user
}

// UserIDFromContext is a convenience function to get the user ID from context.
// Returns empty string if not authenticated.
func UserIDFromContext(ctx context.Context) string {
	user := PrincipalFromContext(ctx)
	if user == nil {
		return ""
	}
	return user.ID
}
