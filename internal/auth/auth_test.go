package auth

import (
	"context"
	"net/url"
	"sync"
	"sync/atomic"

	"stock-dashboard/internal/session"
)

// fakeProvider accepts one secret and records deletions
type fakeProvider struct {
	valid string
	// failFirst makes the first n CurrentIdentity calls fail
	failFirst int32
	deleteErr error

	calls   atomic.Int32
	mu      sync.Mutex
	deleted []string
}

func (p *fakeProvider) CurrentIdentity(ctx context.Context, secret string) (*session.Identity, error) {
	n := p.calls.Add(1)
	if n <= p.failFirst || secret == "" || secret != p.valid {
		return nil, ErrUnauthenticated
	}
	return &session.Identity{ID: "u1", Email: "a@example.com", Name: "Ada"}, nil
}

func (p *fakeProvider) AuthURL(successURL, failureURL string) (string, error) {
	return "https://id.example.com/oauth?success=" + url.QueryEscape(successURL), nil
}

func (p *fakeProvider) CompleteOAuth(ctx context.Context, query url.Values) (string, error) {
	secret := query.Get("secret")
	if secret == "" {
		return "", ErrMissingParams
	}
	return secret, nil
}

func (p *fakeProvider) DeleteSession(ctx context.Context, secret string) error {
	p.mu.Lock()
	p.deleted = append(p.deleted, secret)
	p.mu.Unlock()
	return p.deleteErr
}

var _ IdentityProvider = (*fakeProvider)(nil)
var _ IdentityProvider = (*AppwriteClient)(nil)
var _ IdentityProvider = (*OIDCClient)(nil)
