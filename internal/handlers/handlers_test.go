package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"

	"github.com/Lixing-Zhang/kart-challenge/catering/internal/authflow"
	"github.com/Lixing-Zhang/kart-challenge/catering/internal/handoff"
	"github.com/Lixing-Zhang/kart-challenge/catering/internal/identity"
	"github.com/Lixing-Zhang/kart-challenge/catering/internal/metrics"
	"github.com/Lixing-Zhang/kart-challenge/catering/internal/middleware"
	"github.com/Lixing-Zhang/kart-challenge/catering/internal/models"
	"github.com/Lixing-Zhang/kart-challenge/catering/internal/repository"
	"github.com/Lixing-Zhang/kart-challenge/catering/internal/routing"
	"github.com/Lixing-Zhang/kart-challenge/catering/internal/service"
	"github.com/Lixing-Zhang/kart-challenge/catering/pkg/logger"
)

const (
	testCookie = "test_session"
	testTab    = "tab-1"
	password   = "secret123"
)

// testApp is the full page stack behind the session middleware
type testApp struct {
	handler  http.Handler
	identity *identity.Service
	store    *identity.Store
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	store, err := identity.OpenStore(filepath.Join(t.TempDir(), "identity.db"))
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	log := logger.Discard()
	svc := identity.NewService(store, identity.Options{
		Secret:     "test-secret-0123456789",
		Issuer:     "test-issuer",
		TokenTTL:   time.Hour,
		BcryptCost: bcrypt.MinCost,
	}, log)

	handoffStore := handoff.NewMemoryStore(time.Minute)
	t.Cleanup(func() { handoffStore.Close() })

	menuRepo := repository.NewInMemoryMenuRepository()
	caterers := service.NewCatererService(repository.NewInMemoryCatererRepository(), menuRepo)
	menus := service.NewMenuService(caterers, menuRepo)
	orders := service.NewOrderService(repository.NewInMemoryOrderRepository(), menuRepo)
	curation := service.NewCurationService(handoffStore, menuRepo, time.Hour)
	m := metrics.New(prometheus.NewRegistry())

	tables := Tables(
		NewAuthHandler(handoffStore, CookieConfig{Name: testCookie}, time.Hour, m, log),
		NewEventsHandler(nil, m, log),
		NewCustomerHandler(caterers, curation, orders, m, log),
		NewCatererHandler(caterers, menus, orders, log),
	)
	mux := routing.NewMux(tables, Fallbacks(log), func(id routing.TableID) { m.TableSelected(id.String()) })

	return &testApp{
		handler:  middleware.Session(svc, testCookie, log)(mux),
		identity: svc,
		store:    store,
	}
}

// signIn creates an account and returns a live access token for it
func (a *testApp) signIn(t *testing.T, email string, role models.Role) string {
	t.Helper()
	ctx := context.Background()
	if _, err := a.identity.SignUp(ctx, email, password, identity.Metadata{Role: role}); err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	sess, err := a.identity.SignInWithPassword(ctx, email, password)
	if err != nil {
		t.Fatalf("SignInWithPassword() error = %v", err)
	}
	return sess.AccessToken
}

type testEnvelope struct {
	View     string           `json:"view"`
	Data     json.RawMessage  `json:"data"`
	Notice   *Notice          `json:"notice"`
	Redirect string           `json:"redirect"`
	Dialog   *authflow.Dialog `json:"dialog"`
	Form     *authflow.State  `json:"form"`
}

// do sends a request as the holder of token from testTab
func (a *testApp) do(t *testing.T, method, path string, body any, token string) (*httptest.ResponseRecorder, testEnvelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.TabHeader, testTab)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: testCookie, Value: token})
	}

	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)

	var env testEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: response is not an envelope: %v (%s)", method, path, err, w.Body.String())
	}
	return w, env
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == testCookie {
			return c
		}
	}
	return nil
}

func decodeData(t *testing.T, env testEnvelope, v any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decode %s data: %v", env.View, err)
	}
}

func TestRouting_TablePerRole(t *testing.T) {
	app := newTestApp(t)
	customer := app.signIn(t, "diner@example.com", models.RoleCustomer)
	caterer := app.signIn(t, "chef@example.com", models.RoleCaterer)

	tests := []struct {
		name       string
		token      string
		method     string
		path       string
		wantStatus int
		wantView   string
	}{
		{name: "anonymous landing", method: http.MethodGet, path: "/", wantStatus: http.StatusOK, wantView: "landing"},
		{name: "anonymous login page", method: http.MethodGet, path: "/auth/login", wantStatus: http.StatusOK, wantView: "login"},
		{name: "anonymous customer page", method: http.MethodGet, path: "/customer/home", wantStatus: http.StatusUnauthorized, wantView: "unauthenticated"},
		{name: "anonymous caterer page", method: http.MethodGet, path: "/caterer/dashboard", wantStatus: http.StatusUnauthorized, wantView: "unauthenticated"},
		{name: "anonymous nested page", method: http.MethodPost, path: "/customer/caterer/c1/cart", wantStatus: http.StatusUnauthorized, wantView: "unauthenticated"},
		{name: "anonymous unknown page", method: http.MethodGet, path: "/nowhere", wantStatus: http.StatusNotFound, wantView: "not_found"},
		{name: "customer home", token: customer, method: http.MethodGet, path: "/customer/home", wantStatus: http.StatusOK, wantView: viewCustomerHome},
		{name: "customer caterer detail", token: customer, method: http.MethodGet, path: "/customer/caterer/c1", wantStatus: http.StatusOK, wantView: viewCatererDetail},
		{name: "customer on caterer page", token: customer, method: http.MethodGet, path: "/caterer/dashboard", wantStatus: http.StatusNotFound, wantView: "not_found"},
		{name: "caterer dashboard", token: caterer, method: http.MethodGet, path: "/caterer/dashboard", wantStatus: http.StatusOK, wantView: viewDashboard},
		{name: "caterer on customer page", token: caterer, method: http.MethodGet, path: "/customer/home", wantStatus: http.StatusNotFound, wantView: "not_found"},
		{name: "caterer shared page", token: caterer, method: http.MethodGet, path: "/", wantStatus: http.StatusOK, wantView: "landing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := app.do(t, tt.method, tt.path, nil, tt.token)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if env.View != tt.wantView {
				t.Errorf("view = %q, want %q", env.View, tt.wantView)
			}
		})
	}
}

func TestRouting_LandingDescribesTable(t *testing.T) {
	app := newTestApp(t)
	token := app.signIn(t, "chef@example.com", models.RoleCaterer)

	_, env := app.do(t, http.MethodGet, "/", nil, token)

	var data struct {
		Session sessionView `json:"session"`
		Table   string      `json:"table"`
		Paths   []string    `json:"paths"`
	}
	decodeData(t, env, &data)

	if data.Table != "caterer" || data.Session.Status != "authenticated" || data.Session.Role != models.RoleCaterer {
		t.Errorf("landing data = %+v", data)
	}
	if last := data.Paths[len(data.Paths)-1]; last != routing.PathCatererOrders {
		t.Errorf("last path = %s, want %s", last, routing.PathCatererOrders)
	}
}

func TestRouting_PendingWhileSessionUnknown(t *testing.T) {
	app := newTestApp(t)
	token := app.signIn(t, "diner@example.com", models.RoleCustomer)

	// Session lookups fail once the identity database is gone
	app.store.Close()

	w, env := app.do(t, http.MethodGet, "/customer/home", nil, token)
	if w.Code != http.StatusServiceUnavailable || env.View != "loading" {
		t.Errorf("protected page = %d %q, want 503 loading", w.Code, env.View)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing")
	}

	w, env = app.do(t, http.MethodGet, "/", nil, token)
	if w.Code != http.StatusOK || env.View != "landing" {
		t.Errorf("landing = %d %q, want 200 landing", w.Code, env.View)
	}
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]Pinger
		wantStatus int
		wantHealth string
	}{
		{name: "no checks", wantStatus: http.StatusOK, wantHealth: "healthy"},
		{name: "passing check", checks: map[string]Pinger{"db": pingerFunc(func(context.Context) error { return nil })}, wantStatus: http.StatusOK, wantHealth: "healthy"},
		{name: "failing check", checks: map[string]Pinger{"redis": pingerFunc(func(context.Context) error { return context.DeadlineExceeded })}, wantStatus: http.StatusServiceUnavailable, wantHealth: "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			NewHealthHandler(logger.Discard(), tt.checks).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var resp HealthResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Status != tt.wantHealth {
				t.Errorf("health = %s, want %s", resp.Status, tt.wantHealth)
			}
		})
	}
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }
