package domain

import "time"

// Session is the credential context handed to a signed-in client.
type Session struct {
	ID           string    `json:"session_id"`
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// AuthChangeType names a transition of the auth state.
type AuthChangeType string

const (
	AuthInitial        AuthChangeType = "INITIAL_SESSION"
	AuthSignedIn       AuthChangeType = "SIGNED_IN"
	AuthSignedOut      AuthChangeType = "SIGNED_OUT"
	AuthTokenRefreshed AuthChangeType = "TOKEN_REFRESHED"
)

// AuthChange is emitted by an auth client on every transition. Session is nil
// after sign-out.
type AuthChange struct {
	Type    AuthChangeType
	Session *Session
}

// Claims is the identity extracted from a verified access token.
type Claims struct {
	UserID    string
	SessionID string
	Email     string
}
