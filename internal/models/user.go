package models

import "time"

// User is the authenticated actor.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
}

// Session pairs the user with the tokens issued by the auth service.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// Expired reports whether the access token is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	if s == nil {
		return true
	}
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// AuthEventKind names a session transition reported by the auth service.
type AuthEventKind string

const (
	SignedIn       AuthEventKind = "SIGNED_IN"
	SignedOut      AuthEventKind = "SIGNED_OUT"
	TokenRefreshed AuthEventKind = "TOKEN_REFRESHED"
)

// AuthEvent is delivered to auth-state subscribers. Session is nil on SignedOut.
type AuthEvent struct {
	Kind    AuthEventKind
	Session *Session
}
