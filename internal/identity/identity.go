// Package identity is the hosted authentication provider: it owns user
// records, password sign-in, access-token sessions and auth-state change
// notifications. The rest of the application only observes sessions
// through a Client.
package identity

import (
	"errors"
	"time"

	"github.com/Lixing-Zhang/kart-challenge/catering/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrEmailTaken         = errors.New("user already registered")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password should be at least 6 characters")
	ErrInvalidRole        = errors.New("role must be customer or caterer")
	ErrNoSession          = errors.New("auth session missing")
	ErrUserNotFound       = errors.New("user not found")
)

// Metadata is the user-supplied data attached to an identity at sign-up
// and echoed back on every session fetch
type Metadata struct {
	Role models.Role `json:"role"`
}

// User is an authenticated identity
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Metadata  Metadata  `json:"user_metadata"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is proof of authentication. The application never builds one
// itself; it only receives them from the provider.
type Session struct {
	ID          string    `json:"id"`
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        User      `json:"user"`
}

// EventType names an auth-state change
type EventType string

const (
	EventSignedIn       EventType = "SIGNED_IN"
	EventSignedOut      EventType = "SIGNED_OUT"
	EventTokenRefreshed EventType = "TOKEN_REFRESHED"
)

// Event is delivered to subscribers whenever a session starts, ends or
// is refreshed. Session is nil for EventSignedOut.
type Event struct {
	Type      EventType
	UserID    string
	SessionID string
	Session   *Session

	// origin identifies the Client that caused the event, if any
	origin string
}
