// Package authflow drives the login and register forms, including the
// reconciliation between the role a user claims and the role stored on
// the account.
package authflow

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/Lixing-Zhang/kart-challenge/catering/internal/identity"
	"github.com/Lixing-Zhang/kart-challenge/catering/internal/models"
	"github.com/Lixing-Zhang/kart-challenge/catering/internal/routing"
)

var (
	ErrActionNotOffered = errors.New("action not offered by the open dialog")
	ErrSubmitting       = errors.New("a submission is already in progress")
	ErrInvalidMode      = errors.New("mode must be login or register")
)

// Mode selects which form is shown
type Mode string

const (
	ModeLogin    Mode = "login"
	ModeRegister Mode = "register"
)

// Phase is the position of the form in its state machine
type Phase string

const (
	PhaseEditing      Phase = "editing"
	PhaseSubmitting   Phase = "submitting"
	PhaseSuccess      Phase = "success"
	PhaseRoleMismatch Phase = "role_mismatch"
)

// State is what the form shows. Error holds the last failure and is only
// set while editing. Redirect is only set on success.
type State struct {
	Phase    Phase   `json:"phase"`
	Mode     Mode    `json:"mode"`
	Redirect string  `json:"redirect,omitempty"`
	Message  string  `json:"message,omitempty"`
	Error    string  `json:"error,omitempty"`
	Dialog   *Dialog `json:"dialog,omitempty"`
}

// Credentials is the submitted form
type Credentials struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     models.Role `json:"role"`
}

// Auth is the part of the identity client the form uses
type Auth interface {
	GetSession(ctx context.Context) (*identity.Session, error)
	GetUser(ctx context.Context) (*identity.User, error)
	SignUp(ctx context.Context, email, password string, meta identity.Metadata) (*identity.User, error)
	SignInWithPassword(ctx context.Context, email, password string) (*identity.Session, error)
	SignOut(ctx context.Context) error
}

// Form is one login or register form
type Form struct {
	auth Auth
	log  *slog.Logger

	mu    sync.Mutex
	state State
}

// NewForm returns a form in the editing phase
func NewForm(auth Auth, mode Mode, log *slog.Logger) (*Form, error) {
	if mode != ModeLogin && mode != ModeRegister {
		return nil, ErrInvalidMode
	}
	return &Form{
		auth:  auth,
		log:   log,
		state: State{Phase: PhaseEditing, Mode: mode},
	}, nil
}

// Reopen restores a dialog left open by an earlier step
func (f *Form) Reopen(d *Dialog) {
	if d == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.Dialog = d
	f.state.Phase = PhaseEditing
	if d.Kind == DialogRoleMismatch {
		f.state.Phase = PhaseRoleMismatch
	}
}

// State returns the current form state
func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Mount checks for an existing session and, if there is one, opens the
// already-logged-in dialog
func (f *Form) Mount(ctx context.Context) State {
	sess, err := f.auth.GetSession(ctx)
	if err != nil {
		f.log.Error("failed to fetch session on form mount", "error", err)
		f.mu.Lock()
		defer f.mu.Unlock()
		f.state.Error = err.Error()
		return f.state
	}

	var dialog *Dialog
	if sess != nil {
		dialog = alreadyLoggedIn(f.storedRole(ctx, sess))
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if dialog != nil && f.state.Dialog == nil {
		f.state.Dialog = dialog
	}
	return f.state
}

// Submit sends the form. Rejected auth calls leave the form editing with
// the error message set.
func (f *Form) Submit(ctx context.Context, creds Credentials) (State, error) {
	f.mu.Lock()
	if f.state.Phase == PhaseSubmitting {
		f.mu.Unlock()
		return f.State(), ErrSubmitting
	}
	mode := f.state.Mode
	f.state.Phase = PhaseSubmitting
	f.state.Error = ""
	f.mu.Unlock()

	var next State
	switch mode {
	case ModeRegister:
		next = f.register(ctx, creds)
	default:
		next = f.login(ctx, creds)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	next.Mode = mode
	if prev := f.state.Dialog; next.Phase == PhaseEditing && prev != nil && prev.Kind == DialogAlreadyLoggedIn {
		next.Dialog = prev
	}
	f.state = next
	return f.state, nil
}

// Choose resolves the open dialog
func (f *Form) Choose(ctx context.Context, action Action) (State, error) {
	f.mu.Lock()
	dialog := f.state.Dialog
	f.mu.Unlock()

	if !dialog.Offers(action) {
		return f.State(), ErrActionNotOffered
	}

	if action == ActionSignOut {
		if err := f.auth.SignOut(ctx); err != nil {
			f.log.Error("failed to sign out", "error", err)
			f.mu.Lock()
			defer f.mu.Unlock()
			f.state.Error = err.Error()
			return f.state, nil
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		f.state = State{Phase: PhaseEditing, Mode: f.state.Mode, Message: "Signed out"}
		return f.state, nil
	}

	msg := "Login successful!"
	if action == ActionRedirectHome {
		msg = "You are already logged in"
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = State{
		Phase:    PhaseSuccess,
		Mode:     f.state.Mode,
		Redirect: dialog.Role.HomePath(),
		Message:  msg,
	}
	return f.state, nil
}

func (f *Form) register(ctx context.Context, creds Credentials) State {
	if !creds.Role.Valid() {
		return failure("Please select a role")
	}

	meta := identity.Metadata{Role: creds.Role}
	if _, err := f.auth.SignUp(ctx, creds.Email, creds.Password, meta); err != nil {
		f.log.Warn("registration rejected", "error", err)
		return failure(err.Error())
	}

	return State{
		Phase:    PhaseSuccess,
		Redirect: routing.PathLogin,
		Message:  "Registration successful!",
	}
}

func (f *Form) login(ctx context.Context, creds Credentials) State {
	if !creds.Role.Valid() {
		return failure("Please select a role")
	}

	sess, err := f.auth.SignInWithPassword(ctx, creds.Email, creds.Password)
	if err != nil {
		f.log.Warn("login rejected", "error", err)
		return failure(err.Error())
	}

	stored := f.storedRole(ctx, sess)
	if stored != creds.Role {
		f.log.Info("login role mismatch", "user_id", sess.User.ID, "claimed", creds.Role, "stored", stored)
		return State{
			Phase:  PhaseRoleMismatch,
			Dialog: roleMismatch(creds.Role, stored),
		}
	}

	return State{
		Phase:    PhaseSuccess,
		Redirect: stored.HomePath(),
		Message:  "Login successful!",
	}
}

func (f *Form) storedRole(ctx context.Context, sess *identity.Session) models.Role {
	if role := sess.User.Metadata.Role; role.Valid() {
		return role
	}
	user, err := f.auth.GetUser(ctx)
	if err != nil || !user.Metadata.Role.Valid() {
		f.log.Warn("stored role unavailable, using customer", "error", err)
		return models.RoleCustomer
	}
	return user.Metadata.Role
}

func failure(msg string) State {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		msg = "Authentication failed. Please try again."
	}
	return State{Phase: PhaseEditing, Error: msg}
}
