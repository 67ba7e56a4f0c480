package auth

import (
	"context"
	"errors"
	"net/url"

	"stock-dashboard/internal/session"
)

var (
	// ErrUnauthenticated is returned when the provider rejects a session secret
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrMissingParams is returned when an OAuth callback carries no token
	ErrMissingParams = errors.New("missing callback parameters")
	// ErrInvalidState is returned when an OAuth callback state is unknown or expired
	ErrInvalidState = errors.New("invalid state parameter")
)

// IdentityProvider is the external identity service holding user sessions
type IdentityProvider interface {
	// CurrentIdentity returns the identity behind secret, or ErrUnauthenticated
	CurrentIdentity(ctx context.Context, secret string) (*session.Identity, error)
	// AuthURL returns the hosted OAuth URL the browser is sent to
	AuthURL(successURL, failureURL string) (string, error)
	// CompleteOAuth turns the callback query into a session secret
	CompleteOAuth(ctx context.Context, query url.Values) (string, error)
	// DeleteSession ends the session identified by secret
	DeleteSession(ctx context.Context, secret string) error
}

// Reader binds a provider to a session secret for the refresher
func Reader(p IdentityProvider, secret string) session.IdentityReader {
	return session.IdentityReaderFunc(func(ctx context.Context) (*session.Identity, error) {
		if secret == "" {
			return nil, session.ErrNoSession
		}
		return p.CurrentIdentity(ctx, secret)
	})
}
