package authflow

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Lixing-Zhang/kart-challenge/catering/internal/identity"
	"github.com/Lixing-Zhang/kart-challenge/catering/internal/models"
	"github.com/Lixing-Zhang/kart-challenge/catering/pkg/logger"
)

func newIdentity(t *testing.T) *identity.Service {
	t.Helper()

	store, err := identity.OpenStore(filepath.Join(t.TempDir(), "identity.db"))
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return identity.NewService(store, identity.Options{
		Secret:     "test-secret-0123456789",
		Issuer:     "test-issuer",
		TokenTTL:   time.Hour,
		BcryptCost: bcrypt.MinCost,
	}, logger.Discard())
}

func newForm(t *testing.T, auth Auth, mode Mode) *Form {
	t.Helper()
	f, err := NewForm(auth, mode, logger.Discard())
	if err != nil {
		t.Fatalf("NewForm() error = %v", err)
	}
	return f
}

func TestForm_RegisterThenLoginWithOtherRole(t *testing.T) {
	svc := newIdentity(t)
	ctx := context.Background()
	client := svc.Client("")

	reg := newForm(t, client, ModeRegister)
	st, err := reg.Submit(ctx, Credentials{Email: "chef@example.com", Password: "secret1", Role: models.RoleCaterer})
	if err != nil {
		t.Fatalf("Submit(register) error = %v", err)
	}
	if st.Phase != PhaseSuccess || st.Redirect != "/auth/login" {
		t.Fatalf("register state = %+v, want success to /auth/login", st)
	}
	if client.AccessToken() != "" {
		t.Fatal("register created a session")
	}

	login := newForm(t, client, ModeLogin)
	st, err = login.Submit(ctx, Credentials{Email: "chef@example.com", Password: "secret1", Role: models.RoleCustomer})
	if err != nil {
		t.Fatalf("Submit(login) error = %v", err)
	}
	if st.Phase != PhaseRoleMismatch {
		t.Fatalf("login phase = %s, want role_mismatch", st.Phase)
	}
	if st.Redirect != "" {
		t.Errorf("role mismatch navigated to %s", st.Redirect)
	}
	if st.Dialog == nil || st.Dialog.Kind != DialogRoleMismatch {
		t.Fatalf("dialog = %+v, want role mismatch", st.Dialog)
	}
	if labels := st.Dialog.Labels(); labels != [2]string{"Sign out", "Continue as caterer"} {
		t.Errorf("labels = %v", labels)
	}

	if _, err := login.Choose(ctx, ContinueAs(models.RoleCustomer)); !errors.Is(err, ErrActionNotOffered) {
		t.Errorf("Choose(continue as claimed role) error = %v, want ErrActionNotOffered", err)
	}

	st, err = login.Choose(ctx, ContinueAs(models.RoleCaterer))
	if err != nil {
		t.Fatalf("Choose() error = %v", err)
	}
	if st.Phase != PhaseSuccess || st.Redirect != "/caterer/dashboard" || st.Dialog != nil {
		t.Errorf("after continue = %+v, want success to caterer dashboard", st)
	}
}

func TestForm_RoleMismatchSignOut(t *testing.T) {
	svc := newIdentity(t)
	ctx := context.Background()
	if _, err := svc.SignUp(ctx, "cust@example.com", "secret1", identity.Metadata{Role: models.RoleCustomer}); err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	client := svc.Client("")

	form := newForm(t, client, ModeLogin)
	st, _ := form.Submit(ctx, Credentials{Email: "cust@example.com", Password: "secret1", Role: models.RoleCaterer})
	if st.Phase != PhaseRoleMismatch {
		t.Fatalf("phase = %s, want role_mismatch", st.Phase)
	}
	if st.Dialog.Options != [2]Action{ActionSignOut, ContinueAs(models.RoleCustomer)} {
		t.Errorf("options = %v", st.Dialog.Options)
	}

	st, err := form.Choose(ctx, ActionSignOut)
	if err != nil {
		t.Fatalf("Choose(sign out) error = %v", err)
	}
	if st.Phase != PhaseEditing || st.Dialog != nil {
		t.Errorf("after sign out = %+v, want editing without dialog", st)
	}
	if sess, _ := client.GetSession(ctx); sess != nil {
		t.Error("session survived sign out")
	}
}

func TestForm_LoginSuccessNavigatesByRole(t *testing.T) {
	svc := newIdentity(t)
	ctx := context.Background()

	tests := []struct {
		email string
		role  models.Role
		want  string
	}{
		{email: "cust@example.com", role: models.RoleCustomer, want: "/customer/home"},
		{email: "chef@example.com", role: models.RoleCaterer, want: "/caterer/dashboard"},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			if _, err := svc.SignUp(ctx, tt.email, "secret1", identity.Metadata{Role: tt.role}); err != nil {
				t.Fatalf("SignUp() error = %v", err)
			}
			form := newForm(t, svc.Client(""), ModeLogin)
			st, err := form.Submit(ctx, Credentials{Email: tt.email, Password: "secret1", Role: tt.role})
			if err != nil {
				t.Fatalf("Submit() error = %v", err)
			}
			if st.Phase != PhaseSuccess || st.Redirect != tt.want {
				t.Errorf("state = %+v, want success to %s", st, tt.want)
			}
		})
	}
}

func TestForm_FailureStaysEditing(t *testing.T) {
	svc := newIdentity(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		mode    Mode
		creds   Credentials
		wantErr string
	}{
		{
			name:    "bad credentials",
			mode:    ModeLogin,
			creds:   Credentials{Email: "nobody@example.com", Password: "secret1", Role: models.RoleCustomer},
			wantErr: identity.ErrInvalidCredentials.Error(),
		},
		{
			name:    "missing role",
			mode:    ModeLogin,
			creds:   Credentials{Email: "nobody@example.com", Password: "secret1"},
			wantErr: "Please select a role",
		},
		{
			name:    "weak password",
			mode:    ModeRegister,
			creds:   Credentials{Email: "new@example.com", Password: "1", Role: models.RoleCustomer},
			wantErr: identity.ErrWeakPassword.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := newForm(t, svc.Client(""), tt.mode)
			st, err := form.Submit(ctx, tt.creds)
			if err != nil {
				t.Fatalf("Submit() error = %v", err)
			}
			if st.Phase != PhaseEditing || st.Error != tt.wantErr {
				t.Errorf("state = %+v, want editing with %q", st, tt.wantErr)
			}
		})
	}
}

func TestForm_MountWithExistingSession(t *testing.T) {
	svc := newIdentity(t)
	ctx := context.Background()
	if _, err := svc.SignUp(ctx, "chef@example.com", "secret1", identity.Metadata{Role: models.RoleCaterer}); err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	client := svc.Client("")
	if _, err := client.SignInWithPassword(ctx, "chef@example.com", "secret1"); err != nil {
		t.Fatalf("SignInWithPassword() error = %v", err)
	}

	form := newForm(t, client, ModeLogin)
	st := form.Mount(ctx)
	if st.Dialog == nil || st.Dialog.Kind != DialogAlreadyLoggedIn {
		t.Fatalf("dialog = %+v, want already logged in", st.Dialog)
	}
	if st.Dialog.Options != [2]Action{ActionRedirectHome, ActionSignOut} {
		t.Errorf("options = %v", st.Dialog.Options)
	}

	// a mismatching login replaces the open dialog
	st, _ = form.Submit(ctx, Credentials{Email: "chef@example.com", Password: "secret1", Role: models.RoleCustomer})
	if st.Dialog == nil || st.Dialog.Kind != DialogRoleMismatch {
		t.Fatalf("dialog = %+v, want role mismatch", st.Dialog)
	}
	if _, err := form.Choose(ctx, ActionRedirectHome); !errors.Is(err, ErrActionNotOffered) {
		t.Errorf("closed dialog action error = %v, want ErrActionNotOffered", err)
	}
}

func TestForm_MountAnonymousAndRedirectHome(t *testing.T) {
	svc := newIdentity(t)
	ctx := context.Background()

	form := newForm(t, svc.Client(""), ModeLogin)
	if st := form.Mount(ctx); st.Dialog != nil {
		t.Errorf("anonymous mount opened %+v", st.Dialog)
	}
	if _, err := form.Choose(ctx, ActionSignOut); !errors.Is(err, ErrActionNotOffered) {
		t.Errorf("Choose without dialog error = %v, want ErrActionNotOffered", err)
	}

	form.Reopen(alreadyLoggedIn(models.RoleCustomer))
	st, err := form.Choose(ctx, ActionRedirectHome)
	if err != nil {
		t.Fatalf("Choose() error = %v", err)
	}
	if st.Redirect != "/customer/home" {
		t.Errorf("redirect = %s, want /customer/home", st.Redirect)
	}
}

type failingAuth struct {
	Auth
	err error
}

func (a failingAuth) GetSession(context.Context) (*identity.Session, error) { return nil, a.err }

func TestForm_MountSurfacesSessionError(t *testing.T) {
	form := newForm(t, failingAuth{err: errors.New("network down")}, ModeLogin)
	st := form.Mount(context.Background())
	if st.Error != "network down" || st.Dialog != nil || st.Phase != PhaseEditing {
		t.Errorf("state = %+v", st)
	}
}

func TestNewForm_InvalidMode(t *testing.T) {
	if _, err := NewForm(nil, "reset", logger.Discard()); !errors.Is(err, ErrInvalidMode) {
		t.Errorf("error = %v, want ErrInvalidMode", err)
	}
}
