package handlers

import (
	"net/http"
	"testing"

	"github.com/Lixing-Zhang/kart-challenge/catering/internal/authflow"
	"github.com/Lixing-Zhang/kart-challenge/catering/internal/models"
)

func TestAuthHandler_RegisterThenLoginWithWrongRole(t *testing.T) {
	app := newTestApp(t)

	w, env := app.do(t, http.MethodPost, "/auth/register", authflow.Credentials{
		Email: "chef@example.com", Password: password, Role: models.RoleCaterer,
	}, "")
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/auth/login" {
		t.Fatalf("register = %d to %q, want 303 to /auth/login", w.Code, w.Header().Get("Location"))
	}
	if env.Notice == nil || env.Notice.Message != "Registration successful!" {
		t.Errorf("register notice = %+v", env.Notice)
	}
	if sessionCookie(w) != nil {
		t.Error("register set a session cookie")
	}

	w, env = app.do(t, http.MethodPost, "/auth/login", authflow.Credentials{
		Email: "chef@example.com", Password: password, Role: models.RoleCustomer,
	}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, want 200", w.Code)
	}
	if env.Dialog == nil || env.Dialog.Kind != authflow.DialogRoleMismatch {
		t.Fatalf("login dialog = %+v, want role mismatch", env.Dialog)
	}
	if got := env.Dialog.Labels(); got != [2]string{"Sign out", "Continue as caterer"} {
		t.Errorf("dialog labels = %v", got)
	}
	cookie := sessionCookie(w)
	if cookie == nil || cookie.Value == "" {
		t.Fatal("login did not set a session cookie")
	}

	// The dialog survives a page load
	_, env = app.do(t, http.MethodGet, "/auth/login", nil, cookie.Value)
	if env.Dialog == nil || env.Dialog.Kind != authflow.DialogRoleMismatch || env.Form.Phase != authflow.PhaseRoleMismatch {
		t.Fatalf("reloaded form = %+v dialog = %+v", env.Form, env.Dialog)
	}

	w, env = app.do(t, http.MethodPost, "/auth/dialog", ChooseRequest{Action: authflow.ActionRedirectHome}, cookie.Value)
	if w.Code != http.StatusConflict {
		t.Errorf("choosing an option not offered = %d, want 409", w.Code)
	}

	w, env = app.do(t, http.MethodPost, "/auth/dialog", ChooseRequest{Action: authflow.ContinueAs(models.RoleCaterer)}, cookie.Value)
	if w.Code != http.StatusSeeOther || env.Redirect != "/caterer/dashboard" {
		t.Fatalf("continue = %d to %q, want 303 to /caterer/dashboard", w.Code, env.Redirect)
	}

	w, _ = app.do(t, http.MethodGet, "/caterer/dashboard", nil, cookie.Value)
	if w.Code != http.StatusOK {
		t.Errorf("dashboard after continue = %d, want 200", w.Code)
	}
}

func TestAuthHandler_MismatchSignOut(t *testing.T) {
	app := newTestApp(t)
	app.signIn(t, "diner@example.com", models.RoleCustomer)

	w, _ := app.do(t, http.MethodPost, "/auth/login", authflow.Credentials{
		Email: "diner@example.com", Password: password, Role: models.RoleCaterer,
	}, "")
	token := sessionCookie(w).Value

	w, env := app.do(t, http.MethodPost, "/auth/dialog", ChooseRequest{Action: authflow.ActionSignOut}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("sign out status = %d, want 200", w.Code)
	}
	if env.Form == nil || env.Form.Phase != authflow.PhaseEditing || env.Dialog != nil {
		t.Errorf("form after sign out = %+v dialog = %+v", env.Form, env.Dialog)
	}
	if c := sessionCookie(w); c == nil || c.MaxAge >= 0 {
		t.Error("session cookie not expired")
	}

	w, env = app.do(t, http.MethodGet, "/customer/home", nil, token)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("customer home with revoked token = %d, want 401", w.Code)
	}
}

func TestAuthHandler_LoginOutcomes(t *testing.T) {
	app := newTestApp(t)
	app.signIn(t, "diner@example.com", models.RoleCustomer)
	app.signIn(t, "chef@example.com", models.RoleCaterer)

	tests := []struct {
		name       string
		creds      authflow.Credentials
		wantStatus int
		wantTo     string
		wantNotice string
	}{
		{
			name:       "customer",
			creds:      authflow.Credentials{Email: "diner@example.com", Password: password, Role: models.RoleCustomer},
			wantStatus: http.StatusSeeOther,
			wantTo:     "/customer/home",
			wantNotice: "Login successful!",
		},
		{
			name:       "caterer",
			creds:      authflow.Credentials{Email: "chef@example.com", Password: password, Role: models.RoleCaterer},
			wantStatus: http.StatusSeeOther,
			wantTo:     "/caterer/dashboard",
			wantNotice: "Login successful!",
		},
		{
			name:       "wrong password",
			creds:      authflow.Credentials{Email: "diner@example.com", Password: "nope123", Role: models.RoleCustomer},
			wantStatus: http.StatusBadRequest,
			wantNotice: "invalid login credentials",
		},
		{
			name:       "no role",
			creds:      authflow.Credentials{Email: "diner@example.com", Password: password},
			wantStatus: http.StatusBadRequest,
			wantNotice: "Please select a role",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := app.do(t, http.MethodPost, "/auth/login", tt.creds, "")
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if w.Header().Get("Location") != tt.wantTo {
				t.Errorf("location = %q, want %q", w.Header().Get("Location"), tt.wantTo)
			}
			if env.Notice == nil || env.Notice.Message != tt.wantNotice {
				t.Errorf("notice = %+v, want %q", env.Notice, tt.wantNotice)
			}
		})
	}
}

func TestAuthHandler_AlreadyLoggedIn(t *testing.T) {
	app := newTestApp(t)
	token := app.signIn(t, "chef@example.com", models.RoleCaterer)

	_, env := app.do(t, http.MethodGet, "/auth/register", nil, token)
	if env.Dialog == nil || env.Dialog.Kind != authflow.DialogAlreadyLoggedIn {
		t.Fatalf("dialog = %+v, want already logged in", env.Dialog)
	}
	if got := env.Dialog.Labels(); got != [2]string{"Go to home", "Sign out"} {
		t.Errorf("labels = %v", got)
	}

	w, env := app.do(t, http.MethodPost, "/auth/dialog", ChooseRequest{Action: authflow.ActionRedirectHome}, token)
	if w.Code != http.StatusSeeOther || env.Redirect != "/caterer/dashboard" {
		t.Errorf("go home = %d to %q", w.Code, env.Redirect)
	}
}

func TestAuthHandler_LogoutAndRefresh(t *testing.T) {
	app := newTestApp(t)
	token := app.signIn(t, "diner@example.com", models.RoleCustomer)

	w, _ := app.do(t, http.MethodPost, "/auth/refresh", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("refresh = %d, want 200", w.Code)
	}
	refreshed := sessionCookie(w)
	if refreshed == nil || refreshed.Value == "" {
		t.Fatal("refresh did not set a cookie")
	}

	w, env := app.do(t, http.MethodPost, "/auth/logout", nil, refreshed.Value)
	if w.Code != http.StatusSeeOther || env.Redirect != "/auth/login" {
		t.Fatalf("logout = %d to %q", w.Code, env.Redirect)
	}

	w, _ = app.do(t, http.MethodPost, "/auth/refresh", nil, refreshed.Value)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("refresh after logout = %d, want 401", w.Code)
	}
	w, _ = app.do(t, http.MethodGet, "/customer/home", nil, token)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("old token after logout = %d, want 401", w.Code)
	}
}
