package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"stock-dashboard/internal/conf"
	"stock-dashboard/internal/session"

	"github.com/appwrite/sdk-for-go/account"
	"github.com/appwrite/sdk-for-go/appwrite"
	"github.com/appwrite/sdk-for-go/client"
)

// AppwriteClient resolves sessions through the Appwrite account service
type AppwriteClient struct {
	endpoint      string
	projectID     string
	oauthProvider string
	httpClient    *http.Client
}

// NewAppwriteClient creates a client for the project configured in cfg
func NewAppwriteClient(cfg *conf.Auth, httpClient *http.Client) *AppwriteClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &AppwriteClient{
		endpoint:      strings.TrimSuffix(cfg.Endpoint, "/"),
		projectID:     cfg.ProjectID,
		oauthProvider: cfg.OAuthProvider,
		httpClient:    httpClient,
	}
}

type appwriteAccount struct {
	Prefs map[string]any `json:"prefs"`
}

// ctxTransport binds SDK requests to the caller's context
type ctxTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t ctxTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	return t.base.RoundTrip(r.WithContext(t.ctx))
}

// account builds an account service acting as the session owner
func (c *AppwriteClient) account(ctx context.Context, secret string) *account.Account {
	base := c.httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	clt := client.New(
		appwrite.WithEndpoint(c.endpoint),
		appwrite.WithProject(c.projectID),
		appwrite.WithSession(secret),
	)
	clt.Client = &http.Client{Timeout: c.httpClient.Timeout, Transport: ctxTransport{ctx: ctx, base: base}}
	return account.New(clt)
}

// statusCoder matches *client.AppwriteError
type statusCoder interface {
	GetStatusCode() int
}

func mapAppwriteError(op string, err error) error {
	var se statusCoder
	if errors.As(err, &se) {
		if code := se.GetStatusCode(); code == http.StatusUnauthorized || code == http.StatusForbidden {
			return ErrUnauthenticated
		}
	}
	return fmt.Errorf("appwrite: %s: %w", op, err)
}

// CurrentIdentity fetches the account owning the session secret
func (c *AppwriteClient) CurrentIdentity(ctx context.Context, secret string) (*session.Identity, error) {
	if secret == "" {
		return nil, session.ErrNoSession
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	user, err := c.account(ctx, secret).Get()
	if err != nil {
		return nil, mapAppwriteError("get account", err)
	}
	// Prefs 是嵌套结构，需要从原始响应解码
	var acct appwriteAccount
	if err := user.Decode(&acct); err != nil {
		return nil, fmt.Errorf("appwrite: decode account: %w", err)
	}
	return &session.Identity{
		ID:    user.Id,
		Email: user.Email,
		Name:  user.Name,
		Prefs: acct.Prefs,
	}, nil
}

// AuthURL builds the hosted OAuth token URL. Appwrite redirects back to
// successURL with userId and secret, or to failureURL with error.
func (c *AppwriteClient) AuthURL(successURL, failureURL string) (string, error) {
	if c.endpoint == "" || c.projectID == "" {
		return "", fmt.Errorf("appwrite: endpoint and project id are required")
	}
	q := url.Values{}
	q.Set("project", c.projectID)
	q.Set("success", successURL)
	q.Set("failure", failureURL)
	return fmt.Sprintf("%s/account/tokens/oauth2/%s?%s", c.endpoint, url.PathEscape(c.oauthProvider), q.Encode()), nil
}

// CompleteOAuth returns the secret carried by the callback
func (c *AppwriteClient) CompleteOAuth(ctx context.Context, query url.Values) (string, error) {
	secret := query.Get("secret")
	if secret == "" {
		return "", ErrMissingParams
	}
	return secret, nil
}

// DeleteSession ends the current session
func (c *AppwriteClient) DeleteSession(ctx context.Context, secret string) error {
	if secret == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.account(ctx, secret).DeleteSession("current"); err != nil {
		return mapAppwriteError("delete session", err)
	}
	return nil
}
