package domain

import "time"

// User identifies the authenticated account behind a session.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is the server-held proof of authentication. The refresh token can
// be exchanged for a new access token without re-entering credentials.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// ExpiresWithin reports whether the access token expires within d.
func (s *Session) ExpiresWithin(d time.Duration) bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return time.Until(s.ExpiresAt) < d
}
