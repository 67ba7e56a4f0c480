package auth

import (
	"net/http"
	"strings"
	"time"
)

const (
	// HistoricalCookieName is an older session cookie name still accepted on read
	HistoricalCookieName = "appwrite-session"
	// CookieMaxAge is the lifetime of the session cookies
	CookieMaxAge = 7 * 24 * time.Hour
)

// Cookies names and issues the session cookies for one project.
// The cookies stay readable by scripts so the browser client can reuse them.
type Cookies struct {
	ProjectID string
	Secure    bool
}

// Name is the current session cookie name
func (c Cookies) Name() string {
	return "a_session_" + c.ProjectID
}

// LegacyName is the duplicate cookie older clients read
func (c Cookies) LegacyName() string {
	return c.Name() + "_legacy"
}

// Names lists every cookie name a session secret may be read from, in lookup order
func (c Cookies) Names() []string {
	return []string{c.Name(), c.LegacyName(), HistoricalCookieName}
}

// Secret extracts the session secret from cookie or Authorization header
func (c Cookies) Secret(r *http.Request) string {
	// 1. Try cookies first (for Web applications)
	for _, name := range c.Names() {
		if cookie, err := r.Cookie(name); err == nil && cookie.Value != "" {
			return cookie.Value
		}
	}

	// 2. Try Authorization header (for SPA/Mobile applications)
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			return parts[1]
		}
	}
	return ""
}

// Set issues the current and legacy cookies for secret
func (c Cookies) Set(w http.ResponseWriter, secret string) {
	for _, name := range []string{c.Name(), c.LegacyName()} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    secret,
			Path:     "/",
			MaxAge:   int(CookieMaxAge.Seconds()),
			Secure:   c.Secure,
			SameSite: http.SameSiteStrictMode,
		})
	}
}

// Clear expires the known session cookies plus every request cookie that
// looks like one. It returns the cleared names.
func (c Cookies) Clear(w http.ResponseWriter, r *http.Request) []string {
	names := c.Names()
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		seen[n] = true
	}
	for _, cookie := range r.Cookies() {
		if seen[cookie.Name] {
			continue
		}
		if IsSessionCookie(cookie.Name) {
			seen[cookie.Name] = true
			names = append(names, cookie.Name)
		}
	}

	for _, name := range names {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			Secure:   c.Secure,
			SameSite: http.SameSiteStrictMode,
		})
	}
	return names
}

// IsSessionCookie reports whether name matches the session cookie pattern
func IsSessionCookie(name string) bool {
	return strings.Contains(name, "a_session") || strings.Contains(name, "appwrite")
}
