package auth

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"stock-dashboard/internal/session"
)

// AuthMiddleware validates the session secret for protected API routes.
// Supports both cookie-based (Web) and header-based (SPA/Mobile) auth.
func AuthMiddleware(p IdentityProvider, cookies Cookies) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			secret := cookies.Secret(r)
			if secret == "" {
				writeUnauthorized(w, "missing authentication token")
				return
			}

			user, err := p.CurrentIdentity(r.Context(), secret)
			if err != nil {
				if errors.Is(err, ErrUnauthenticated) {
					writeUnauthorized(w, "invalid or expired session")
					return
				}
				writeUnauthorized(w, "identity provider unavailable")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user, secret)))
		})
	}
}

// OptionalAuthMiddleware extracts user if present but doesn't require it
func OptionalAuthMiddleware(p IdentityProvider, cookies Cookies) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret := cookies.Secret(r); secret != "" {
				if user, err := p.CurrentIdentity(r.Context(), secret); err == nil {
					r = r.WithContext(WithUser(r.Context(), user, secret))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   "unauthorized",
		"message": message,
	})
}

// GuardConfig configures RouteGuard
type GuardConfig struct {
	LandingViews session.LandingViews
	MaxRetries   *int // nil uses session.DefaultMaxRetries
	RetryDelay   time.Duration
	// Timeout bounds how long a request waits for the session to resolve
	Timeout    time.Duration
	Logger     *slog.Logger
	OnOutcome  func(session.Outcome, int)
	OnRedirect func(path string)
}

// RouteGuard protects server-rendered views. Each request gets its own
// session store, resolved against the request cookie with the request path
// as the current view, and is gated on the resulting state.
type RouteGuard struct {
	provider IdentityProvider
	cookies  Cookies
	cfg      GuardConfig
}

// NewRouteGuard creates a guard resolving sessions through p
func NewRouteGuard(p IdentityProvider, cookies Cookies, cfg GuardConfig) *RouteGuard {
	if len(cfg.LandingViews) == 0 {
		cfg.LandingViews = session.DefaultLandingViews
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = session.DefaultRetryDelay
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &RouteGuard{provider: p, cookies: cookies, cfg: cfg}
}

// Middleware gates next on the request's session state
func (g *RouteGuard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secret := g.cookies.Secret(r)
		view := r.URL.Path

		store := session.NewStore(nil)
		refresher := session.NewRefresher(store, Reader(g.provider, secret),
			session.WithLandingView(func() bool { return g.cfg.LandingViews.Contains(view) }),
			session.WithRetry(session.RetryLimit(g.cfg.MaxRetries), g.cfg.RetryDelay),
			session.WithLogger(g.cfg.Logger.With("view", view)),
			session.WithOutcomeHook(g.cfg.OnOutcome),
		)
		defer refresher.Stop()

		redirect := make(chan string, 1)
		guard := session.NewGuard(store, func(target string) {
			select {
			case redirect <- target:
			default:
			}
		})
		defer guard.Close()

		ctx, cancel := context.WithTimeout(r.Context(), g.cfg.Timeout)
		defer cancel()
		st, _ := refresher.Resolve(ctx)

		switch guard.Decide() {
		case session.RenderChildren:
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), st.Identity, secret)))
		case session.RenderNothing:
			target := session.AuthRequiredTarget
			select {
			case target = <-redirect:
			default:
			}
			if g.cfg.OnRedirect != nil {
				g.cfg.OnRedirect(view)
			}
			http.Redirect(w, r, target, http.StatusSeeOther)
		default:
			writeFallback(w, r)
		}
	})
}

var fallbackPage = template.Must(template.New("fallback").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><meta http-equiv="refresh" content="1;url={{.}}"><title>Loading...</title></head>
<body><div class="spinner" role="status">Loading...</div></body></html>
`))

func writeFallback(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	fallbackPage.Execute(w, r.URL.RequestURI())
}
