package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Lixing-Zhang/kart-challenge/catering/internal/authflow"
	"github.com/Lixing-Zhang/kart-challenge/catering/internal/handoff"
	"github.com/Lixing-Zhang/kart-challenge/catering/internal/identity"
	"github.com/Lixing-Zhang/kart-challenge/catering/internal/metrics"
	"github.com/Lixing-Zhang/kart-challenge/catering/internal/middleware"
	"github.com/Lixing-Zhang/kart-challenge/catering/internal/routing"
)

// CookieConfig describes the session cookie
type CookieConfig struct {
	Name   string
	Secure bool
}

// AuthHandler serves the login and register pages, their confirmation
// dialog, sign-out and token refresh
type AuthHandler struct {
	store     handoff.Store
	cookie    CookieConfig
	dialogTTL time.Duration
	metrics   *metrics.Metrics
	log       *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(store handoff.Store, cookie CookieConfig, dialogTTL time.Duration, m *metrics.Metrics, log *slog.Logger) *AuthHandler {
	return &AuthHandler{
		store:     store,
		cookie:    cookie,
		dialogTTL: dialogTTL,
		metrics:   m,
		log:       log,
	}
}

// pendingDialog is a dialog left open between requests
type pendingDialog struct {
	Mode   authflow.Mode    `json:"mode"`
	Dialog *authflow.Dialog `json:"dialog"`
}

// ShowLogin handles GET /auth/login
func (h *AuthHandler) ShowLogin(w http.ResponseWriter, r *http.Request) {
	h.show(w, r, authflow.ModeLogin)
}

// ShowRegister handles GET /auth/register
func (h *AuthHandler) ShowRegister(w http.ResponseWriter, r *http.Request) {
	h.show(w, r, authflow.ModeRegister)
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, authflow.ModeLogin)
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, authflow.ModeRegister)
}

func (h *AuthHandler) show(w http.ResponseWriter, r *http.Request, mode authflow.Mode) {
	view := string(mode)
	form, _, err := h.form(r, mode)
	if err != nil {
		h.log.Error("failed to build auth form", "error", err)
		WriteError(w, http.StatusInternalServerError, view, "Internal server error", h.log)
		return
	}

	state := form.Mount(r.Context())
	if state.Dialog != nil {
		h.saveDialog(r, mode, state.Dialog)
	}

	env := Envelope{View: view, Form: &state, Dialog: state.Dialog}
	if state.Error != "" {
		env.Notice = failed("Unexpected error")
	}
	WriteView(w, http.StatusOK, env, h.log)
}

func (h *AuthHandler) submit(w http.ResponseWriter, r *http.Request, mode authflow.Mode) {
	view := string(mode)

	var creds authflow.Credentials
	if err := decodeJSON(r, &creds); err != nil {
		WriteError(w, http.StatusBadRequest, view, "Invalid request body", h.log)
		return
	}

	form, client, err := h.form(r, mode)
	if err != nil {
		h.log.Error("failed to build auth form", "error", err)
		WriteError(w, http.StatusInternalServerError, view, "Internal server error", h.log)
		return
	}

	state, err := form.Submit(r.Context(), creds)
	if err != nil {
		WriteError(w, http.StatusConflict, view, err.Error(), h.log)
		return
	}

	switch state.Phase {
	case authflow.PhaseSuccess:
		h.metrics.AuthAttempt(view, "success")
		if mode == authflow.ModeLogin {
			h.setCookie(w, client)
		}
		h.clearDialog(r)
		Redirect(w, state.Redirect, success(state.Message), h.log)

	case authflow.PhaseRoleMismatch:
		h.metrics.AuthAttempt(view, "role_mismatch")
		// The sign-in itself succeeded; the dialog decides what happens next
		h.setCookie(w, client)
		h.saveDialog(r, mode, state.Dialog)
		WriteView(w, http.StatusOK, Envelope{View: view, Form: &state, Dialog: state.Dialog}, h.log)

	default:
		h.metrics.AuthAttempt(view, "rejected")
		WriteView(w, http.StatusBadRequest, Envelope{
			View:   view,
			Form:   &state,
			Dialog: state.Dialog,
			Notice: failed(state.Error),
		}, h.log)
	}
}

// ChooseRequest is the body of POST /auth/dialog
type ChooseRequest struct {
	Action authflow.Action `json:"action"`
}

// Choose handles POST /auth/dialog, resolving the dialog open for the tab
func (h *AuthHandler) Choose(w http.ResponseWriter, r *http.Request) {
	var req ChooseRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "dialog", "Invalid request body", h.log)
		return
	}

	pending := h.loadDialog(r)
	mode := authflow.ModeLogin
	if pending != nil && pending.Mode != "" {
		mode = pending.Mode
	}

	form, _, err := h.form(r, mode)
	if err != nil {
		h.log.Error("failed to build auth form", "error", err)
		WriteError(w, http.StatusInternalServerError, "dialog", "Internal server error", h.log)
		return
	}
	if form.State().Dialog == nil {
		form.Mount(r.Context())
	}

	// Sign-out forgets the session the tab id may fall back to
	tab := middleware.TabID(r)

	state, err := form.Choose(r.Context(), req.Action)
	if errors.Is(err, authflow.ErrActionNotOffered) {
		WriteError(w, http.StatusConflict, string(mode), "That option is not available", h.log)
		return
	}
	if err != nil {
		h.log.Error("failed to resolve dialog", "error", err)
		WriteError(w, http.StatusInternalServerError, string(mode), "Internal server error", h.log)
		return
	}
	if state.Error != "" {
		WriteView(w, http.StatusBadGateway, Envelope{View: string(mode), Form: &state, Dialog: state.Dialog, Notice: failed(state.Error)}, h.log)
		return
	}

	h.deleteDialog(r.Context(), tab)
	if state.Phase == authflow.PhaseSuccess {
		Redirect(w, state.Redirect, success(state.Message), h.log)
		return
	}

	h.expireCookie(w)
	WriteView(w, http.StatusOK, Envelope{View: string(mode), Form: &state, Notice: success(state.Message)}, h.log)
}

// Logout handles POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	client, err := clientOf(r)
	if err != nil {
		h.log.Error("logout without identity client", "error", err)
		WriteError(w, http.StatusInternalServerError, "logout", "Internal server error", h.log)
		return
	}

	tab := middleware.TabID(r)
	if err := client.SignOut(r.Context()); err != nil {
		h.log.Error("failed to sign out", "error", err)
		WriteError(w, http.StatusBadGateway, "logout", "Failed to sign out. Please try again.", h.log)
		return
	}

	h.deleteDialog(r.Context(), tab)
	h.expireCookie(w)
	Redirect(w, routing.PathLogin, success("Signed out"), h.log)
}

// Refresh handles POST /auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	client, err := clientOf(r)
	if err != nil {
		h.log.Error("refresh without identity client", "error", err)
		WriteError(w, http.StatusInternalServerError, "session", "Internal server error", h.log)
		return
	}

	sess, err := client.Refresh(r.Context())
	if errors.Is(err, identity.ErrNoSession) {
		h.expireCookie(w)
		WriteError(w, http.StatusUnauthorized, "session", "Your session has expired. Please log in again.", h.log)
		return
	}
	if err != nil {
		h.log.Error("failed to refresh session", "error", err)
		WriteError(w, http.StatusBadGateway, "session", "Failed to refresh session", h.log)
		return
	}

	h.setCookie(w, client)
	WriteView(w, http.StatusOK, Envelope{View: "session", Data: map[string]any{
		"access_token": sess.AccessToken,
		"expires_at":   sess.ExpiresAt,
	}}, h.log)
}

// Landing handles GET /
func (h *AuthHandler) Landing(w http.ResponseWriter, r *http.Request) {
	state := stateOf(r)
	table := routing.Select(state)
	WriteView(w, http.StatusOK, Envelope{View: "landing", Data: map[string]any{
		"session": newSessionView(state),
		"table":   table.String(),
		"paths":   routing.Paths(table),
	}}, h.log)
}

// form builds a form on the request's identity client and restores the
// dialog the tab left open, if the session that opened it is still live
func (h *AuthHandler) form(r *http.Request, mode authflow.Mode) (*authflow.Form, *identity.Client, error) {
	client, err := clientOf(r)
	if err != nil {
		return nil, nil, err
	}
	form, err := authflow.NewForm(client, mode, h.log)
	if err != nil {
		return nil, nil, err
	}
	if stateOf(r).IsAuthenticated() {
		if pending := h.loadDialog(r); pending != nil {
			form.Reopen(pending.Dialog)
		}
	}
	return form, client, nil
}

func (h *AuthHandler) loadDialog(r *http.Request) *pendingDialog {
	tab, err := tabOf(r)
	if err != nil {
		return nil
	}
	var pending pendingDialog
	if err := handoff.GetJSON(r.Context(), h.store, handoff.DialogKey(tab), &pending); err != nil {
		if !errors.Is(err, handoff.ErrNotFound) {
			h.log.Warn("failed to load auth dialog", "tab", tab, "error", err)
		}
		return nil
	}
	return &pending
}

func (h *AuthHandler) saveDialog(r *http.Request, mode authflow.Mode, d *authflow.Dialog) {
	tab, err := tabOf(r)
	if err != nil {
		return
	}
	if err := handoff.PutJSON(r.Context(), h.store, handoff.DialogKey(tab), pendingDialog{Mode: mode, Dialog: d}, h.dialogTTL); err != nil {
		h.log.Warn("failed to save auth dialog", "tab", tab, "error", err)
	}
}

func (h *AuthHandler) clearDialog(r *http.Request) {
	h.deleteDialog(r.Context(), middleware.TabID(r))
}

func (h *AuthHandler) deleteDialog(ctx context.Context, tab string) {
	if tab == "" {
		return
	}
	if err := h.store.Delete(ctx, handoff.DialogKey(tab)); err != nil {
		h.log.Warn("failed to clear auth dialog", "tab", tab, "error", err)
	}
}

func (h *AuthHandler) setCookie(w http.ResponseWriter, client *identity.Client) {
	token := client.AccessToken()
	if token == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) expireCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
