package authflow

import (
	"strings"

	"github.com/Lixing-Zhang/kart-challenge/catering/internal/models"
)

// DialogKind says why a confirmation dialog is open
type DialogKind string

const (
	DialogAlreadyLoggedIn DialogKind = "already_logged_in"
	DialogRoleMismatch    DialogKind = "role_mismatch"
)

// Action is a choice offered by a dialog
type Action string

const (
	ActionRedirectHome Action = "redirect_home"
	ActionSignOut      Action = "sign_out"

	continuePrefix = "continue_as_"
)

// ContinueAs is the action that enters the application with role
func ContinueAs(role models.Role) Action {
	return Action(continuePrefix + string(role))
}

// Label is the caption shown for the action
func (a Action) Label() string {
	switch {
	case a == ActionRedirectHome:
		return "Go to home"
	case a == ActionSignOut:
		return "Sign out"
	case strings.HasPrefix(string(a), continuePrefix):
		return "Continue as " + strings.TrimPrefix(string(a), continuePrefix)
	}
	return string(a)
}

// Dialog is a two-option confirmation. Role is the account's stored role,
// which every non-sign-out option leads to.
type Dialog struct {
	Kind    DialogKind  `json:"kind"`
	Role    models.Role `json:"role"`
	Message string      `json:"message"`
	Options [2]Action   `json:"options"`
}

func alreadyLoggedIn(role models.Role) *Dialog {
	return &Dialog{
		Kind:    DialogAlreadyLoggedIn,
		Role:    role,
		Message: "You are already logged in as " + string(role) + ".",
		Options: [2]Action{ActionRedirectHome, ActionSignOut},
	}
}

func roleMismatch(claimed, stored models.Role) *Dialog {
	return &Dialog{
		Kind:    DialogRoleMismatch,
		Role:    stored,
		Message: "This account is registered as " + string(stored) + ", not " + string(claimed) + ".",
		Options: [2]Action{ActionSignOut, ContinueAs(stored)},
	}
}

// Offers reports whether a is one of the dialog's options
func (d *Dialog) Offers(a Action) bool {
	return d != nil && (d.Options[0] == a || d.Options[1] == a)
}

// Labels returns the captions of both options in order
func (d *Dialog) Labels() [2]string {
	return [2]string{d.Options[0].Label(), d.Options[1].Label()}
}
