package auth

import (
	"log/slog"
	"net/http"

	"stock-dashboard/internal/session"
)

// SignOut ends browser sessions. Provider failures never block a sign-out.
type SignOut struct {
	provider IdentityProvider
	cookies  Cookies
	tabs     *session.Registry
	logger   *slog.Logger
}

// NewSignOut creates a SignOut. tabs may be nil when no tab synchronizers are hosted.
func NewSignOut(p IdentityProvider, cookies Cookies, tabs *session.Registry, logger *slog.Logger) *SignOut {
	if logger == nil {
		logger = slog.Default()
	}
	return &SignOut{provider: p, cookies: cookies, tabs: tabs, logger: logger}
}

// End deletes the provider session, clears the session cookies and tells
// the tabs that shared the secret to refresh.
func (s *SignOut) End(w http.ResponseWriter, r *http.Request) {
	secret := s.cookies.Secret(r)
	if secret != "" {
		if err := s.provider.DeleteSession(r.Context(), secret); err != nil {
			s.logger.Info("session already invalid or expired", "error", err)
		}
	}

	cleared := s.cookies.Clear(w, r)

	notified := 0
	if s.tabs != nil {
		notified = s.tabs.Signal(secret, session.EventStorage)
	}
	s.logger.Debug("signed out", "cleared_cookies", len(cleared), "notified_tabs", notified)
}
