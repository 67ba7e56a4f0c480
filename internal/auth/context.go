package auth

import (
	"context"
	"errors"

	"stock-dashboard/internal/session"
)

type contextKey string

const (
	// UserContextKey is the context key for authenticated user
	UserContextKey   contextKey = "authenticated_user"
	secretContextKey contextKey = "session_secret"
)

var (
	// ErrNoUserInContext is returned when no user is found in context
	ErrNoUserInContext = errors.New("no authenticated user in context")
)

// WithUser stores the authenticated identity and its session secret
func WithUser(ctx context.Context, user *session.Identity, secret string) context.Context {
	ctx = context.WithValue(ctx, UserContextKey, user)
	return context.WithValue(ctx, secretContextKey, secret)
}

// GetUserFromContext extracts authenticated user from request context
func GetUserFromContext(ctx context.Context) (*session.Identity, error) {
	user, ok := ctx.Value(UserContextKey).(*session.Identity)
	if !ok || user == nil {
		return nil, ErrNoUserInContext
	}
	return user, nil
}

// SecretFromContext returns the session secret the user was authenticated with
func SecretFromContext(ctx context.Context) string {
	secret, _ := ctx.Value(secretContextKey).(string)
	return secret
}
