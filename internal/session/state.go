// Package session resolves who is asking: it turns the identity
// provider's session and user metadata into a single State that the
// router can act on.
package session

import (
	"context"
	"log/slog"

	"github.com/Lixing-Zhang/kart-challenge/catering/internal/identity"
	"github.com/Lixing-Zhang/kart-challenge/catering/internal/models"
)

// FallbackRole is used when a session exists but its role cannot be read
const FallbackRole = models.RoleCustomer

// Status is the discriminator of State
type Status int

const (
	// StatusIndeterminate means the session fetch has not landed or failed.
	// It is neither authorised nor logged out.
	StatusIndeterminate Status = iota
	StatusAnonymous
	StatusAuthenticated
)

func (s Status) String() string {
	switch s {
	case StatusAnonymous:
		return "anonymous"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return "indeterminate"
	}
}

// State is the composite session state. Role and user fields are only set
// when Status is StatusAuthenticated.
type State struct {
	Status Status      `json:"-"`
	Role   models.Role `json:"role,omitempty"`
	UserID string      `json:"user_id,omitempty"`
	Email  string      `json:"email,omitempty"`

	// Token is the access token that produced this state
	Token string `json:"-"`
}

func Indeterminate() State { return State{Status: StatusIndeterminate} }

func Anonymous() State { return State{Status: StatusAnonymous} }

// Authenticated builds the state for a live session with a resolved role
func Authenticated(role models.Role, userID, email, token string) State {
	return State{Status: StatusAuthenticated, Role: role, UserID: userID, Email: email, Token: token}
}

// IsAuthenticated reports whether the state carries a session
func (s State) IsAuthenticated() bool {
	return s.Status == StatusAuthenticated
}

// Provider is the part of the identity client the resolver needs
type Provider interface {
	GetSession(ctx context.Context) (*identity.Session, error)
	GetUser(ctx context.Context) (*identity.User, error)
}

// Resolve performs one full resolution. A missing session is Anonymous no
// matter what the user lookup would return. A failed session fetch is
// Indeterminate. A session whose metadata has no usable role costs one
// GetUser round trip, and FallbackRole is used if that fails too.
func Resolve(ctx context.Context, p Provider, log *slog.Logger) State {
	sess, err := p.GetSession(ctx)
	if err != nil {
		log.Error("failed to fetch session", "error", err)
		return Indeterminate()
	}
	if sess == nil {
		return Anonymous()
	}

	role := sess.User.Metadata.Role
	if !role.Valid() {
		role = lookupRole(ctx, p, log)
	}

	return Authenticated(role, sess.User.ID, sess.User.Email, sess.AccessToken)
}

func lookupRole(ctx context.Context, p Provider, log *slog.Logger) models.Role {
	user, err := p.GetUser(ctx)
	if err != nil {
		log.Warn("failed to fetch user role, using fallback", "error", err, "fallback", FallbackRole)
		return FallbackRole
	}
	if !user.Metadata.Role.Valid() {
		log.Warn("user has no role metadata, using fallback", "user_id", user.ID, "fallback", FallbackRole)
		return FallbackRole
	}
	return user.Metadata.Role
}

// FromSession derives the state directly from a session carried by an
// auth-state event. ok is false when the session lacks a usable role and a
// full Resolve is needed.
func FromSession(sess *identity.Session) (State, bool) {
	if sess == nil {
		return Anonymous(), true
	}
	if !sess.User.Metadata.Role.Valid() {
		return State{}, false
	}
	return Authenticated(sess.User.Metadata.Role, sess.User.ID, sess.User.Email, sess.AccessToken), true
}
