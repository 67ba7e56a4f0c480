package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"stock-dashboard/internal/auth"

	"github.com/gorilla/mux"
)

// Landing banner codes carried in /?error=
const (
	ErrorAuthRequired  = "auth_required"
	ErrorOAuthFailed   = "oauth_failed"
	ErrorMissingParams = "missing_params"
	ErrorServerError   = "server_error"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	provider auth.IdentityProvider
	cookies  auth.Cookies
	signOut  *auth.SignOut
	baseURL  string
	landing  string
	logger   *slog.Logger
	onSignIn func(ok bool)
}

// NewAuthHandler creates a new auth handler. landing is where a completed
// sign-in is sent, normally /dashboard.
func NewAuthHandler(p auth.IdentityProvider, cookies auth.Cookies, signOut *auth.SignOut, baseURL, landing string, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if landing == "" {
		landing = "/dashboard"
	}
	return &AuthHandler{
		provider: p,
		cookies:  cookies,
		signOut:  signOut,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		landing:  landing,
		logger:   logger,
	}
}

// OnSignIn registers a hook called after every callback with its outcome
func (h *AuthHandler) OnSignIn(fn func(ok bool)) {
	h.onSignIn = fn
}

// RegisterRoutes registers auth routes
func (h *AuthHandler) RegisterRoutes(r *mux.Router, authMiddleware func(http.Handler) http.Handler) {
	r.HandleFunc("/auth/login", h.login).Methods(http.MethodGet)
	r.HandleFunc("/auth/callback", h.callback).Methods(http.MethodGet)
	r.HandleFunc("/auth/logout", h.logout).Methods(http.MethodGet, http.MethodPost)

	// NOTE:
	// The frontend calls /auth/userinfo to decide whether the user is logged in.
	// This endpoint must run under the auth middleware so the user is put into request context.
	if authMiddleware != nil {
		r.Handle("/auth/userinfo", authMiddleware(http.HandlerFunc(h.userinfo))).Methods(http.MethodGet)
	} else {
		r.HandleFunc("/auth/userinfo", h.userinfo).Methods(http.MethodGet)
	}
}

// login sends the browser to the provider's hosted OAuth page
func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	callbackURL := h.baseURL + "/auth/callback"
	failureURL := h.baseURL + "/?error=" + ErrorOAuthFailed
	authURL, err := h.provider.AuthURL(callbackURL, failureURL)
	if err != nil {
		h.logger.Error("create OAuth URL", "error", err)
		http.Redirect(w, r, "/?error="+ErrorServerError, http.StatusFound)
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

// callback establishes the browser session from the provider's redirect
func (h *AuthHandler) callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if oauthErr := query.Get("error"); oauthErr != "" {
		h.logger.Warn("OAuth error", "error", oauthErr)
		h.fail(w, r, ErrorOAuthFailed)
		return
	}

	secret, err := h.provider.CompleteOAuth(r.Context(), query)
	switch {
	case errors.Is(err, auth.ErrMissingParams):
		h.logger.Warn("missing secret in callback")
		h.fail(w, r, ErrorMissingParams)
		return
	case errors.Is(err, auth.ErrInvalidState):
		h.logger.Warn("OAuth callback with unknown state")
		h.fail(w, r, ErrorOAuthFailed)
		return
	case err != nil:
		h.logger.Error("OAuth callback error", "error", err)
		h.fail(w, r, ErrorServerError)
		return
	}

	h.cookies.Set(w, secret)
	if h.onSignIn != nil {
		h.onSignIn(true)
	}
	h.logger.Debug("session cookies set")
	http.Redirect(w, r, h.landing, http.StatusFound)
}

func (h *AuthHandler) fail(w http.ResponseWriter, r *http.Request, code string) {
	if h.onSignIn != nil {
		h.onSignIn(false)
	}
	http.Redirect(w, r, "/?error="+code, http.StatusFound)
}

// logout ends the session and navigates to the landing page
func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	h.signOut.End(w, r)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// userinfo returns current user information
func (h *AuthHandler) userinfo(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}
	writeJSON(w, http.StatusOK, UserInfo{UserID: user.ID, Email: user.Email, Name: user.Name})
}
