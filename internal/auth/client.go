package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/url"
	"time"

	"stock-dashboard/internal/conf"
	"stock-dashboard/internal/session"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

const stateTTL = 10 * time.Minute

// OIDCClient wraps OIDC provider and OAuth2 configuration. The raw ID token
// is the session secret, so sessions are stateless on this side.
type OIDCClient struct {
	verifier     *oidc.IDTokenVerifier
	oauth2Config oauth2.Config
	states       *StateStore
}

// NewOIDCClient creates a new OIDC client
func NewOIDCClient(ctx context.Context, cfg *conf.Auth, redirectURL string, states *StateStore) (*OIDCClient, error) {
	// Initialize OIDC provider (discovers .well-known/openid-configuration)
	provider, err := oidc.NewProvider(ctx, cfg.Provider)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	oauth2Config := oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       cfg.Scopes,
	}
	verifier := provider.Verifier(&oidc.Config{ClientID: cfg.ClientID})

	return newOIDCClient(verifier, oauth2Config, states), nil
}

func newOIDCClient(verifier *oidc.IDTokenVerifier, oauth2Config oauth2.Config, states *StateStore) *OIDCClient {
	if states == nil {
		states = NewStateStore()
	}
	return &OIDCClient{
		verifier:     verifier,
		oauth2Config: oauth2Config,
		states:       states,
	}
}

// CurrentIdentity verifies the ID token and returns its claims
func (c *OIDCClient) CurrentIdentity(ctx context.Context, rawIDToken string) (*session.Identity, error) {
	if rawIDToken == "" {
		return nil, session.ErrNoSession
	}
	idToken, err := c.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	var userInfo UserInfo
	if err := idToken.Claims(&userInfo); err != nil {
		return nil, fmt.Errorf("failed to parse token claims: %w", err)
	}
	return userInfo.Identity(), nil
}

// AuthURL starts a PKCE authorization. The provider always returns to the
// configured redirect URL, so both outcomes arrive at the callback; failures
// carry an error param.
func (c *OIDCClient) AuthURL(successURL, failureURL string) (string, error) {
	state, err := GenerateState()
	if err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	codeVerifier, err := GenerateCodeVerifier()
	if err != nil {
		return "", err
	}
	c.states.SaveWithVerifier(state, stateTTL, codeVerifier)
	return c.oauth2Config.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", GenerateCodeChallenge(codeVerifier)),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	), nil
}

// CompleteOAuth exchanges the authorization code and returns the raw ID token
func (c *OIDCClient) CompleteOAuth(ctx context.Context, query url.Values) (string, error) {
	state, code := query.Get("state"), query.Get("code")
	if state == "" || code == "" {
		return "", ErrMissingParams
	}
	codeVerifier, ok := c.states.VerifyAndGetVerifier(state)
	if !ok {
		return "", ErrInvalidState
	}

	token, err := c.oauth2Config.Exchange(ctx, code,
		oauth2.SetAuthURLParam("code_verifier", codeVerifier),
	)
	if err != nil {
		return "", fmt.Errorf("failed to exchange code: %w", err)
	}
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return "", fmt.Errorf("no id_token in response")
	}
	if _, err := c.verifier.Verify(ctx, rawIDToken); err != nil {
		return "", fmt.Errorf("failed to verify ID token: %w", err)
	}
	return rawIDToken, nil
}

// DeleteSession is a no-op: ID tokens expire on their own
func (c *OIDCClient) DeleteSession(ctx context.Context, rawIDToken string) error {
	return nil
}

// === PKCE Support ===

// GenerateCodeVerifier generates a random code verifier for PKCE
// Returns a base64-url-encoded random string (43-128 characters)
func GenerateCodeVerifier() (string, error) {
	data := make([]byte, 32)
	if _, err := rand.Read(data); err != nil {
		return "", fmt.Errorf("failed to generate code verifier: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// GenerateCodeChallenge generates a code challenge from the verifier
// Uses SHA256 and base64-url encoding as per RFC 7636
func GenerateCodeChallenge(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}
