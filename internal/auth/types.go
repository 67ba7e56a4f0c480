package auth

import (
	"time"

	"stock-dashboard/internal/session"
)

// UserInfo represents OIDC user claims
type UserInfo struct {
	Sub               string `json:"sub"`
	Email             string `json:"email"`
	EmailVerified     bool   `json:"email_verified"`
	Name              string `json:"name"`
	PreferredUsername string `json:"preferred_username"`
}

// Identity converts the claims to the session identity
func (u *UserInfo) Identity() *session.Identity {
	name := u.Name
	if name == "" {
		name = u.PreferredUsername
	}
	return &session.Identity{
		ID:    u.Sub,
		Email: u.Email,
		Name:  name,
		Prefs: map[string]any{"email_verified": u.EmailVerified},
	}
}

// StateData stores state-related data
type StateData struct {
	Expiry       time.Time
	CodeVerifier string // For PKCE
}
