package routing

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Lixing-Zhang/kart-challenge/catering/internal/session"
)

// Tables registers the routes of each table. Shared routes are added to
// every table, before the role-specific ones.
type Tables struct {
	Shared   func(r chi.Router)
	Customer func(r chi.Router)
	Caterer  func(r chi.Router)
}

// Fallbacks are the views served when no table route applies
type Fallbacks struct {
	// NotFound is the catch-all of every table
	NotFound http.Handler
	// Unauthenticated answers anonymous requests for a protected path
	Unauthenticated http.Handler
	// Pending answers protected paths while the session is indeterminate
	Pending http.Handler
}

// Mux serves each request from the table selected for its session state.
// The state is read from the request context on every request.
type Mux struct {
	routers   map[TableID]*chi.Mux
	fallbacks Fallbacks
	onSelect  func(TableID)
}

// NewMux builds one router per table. onSelect, if set, is told which
// table served each request.
func NewMux(tables Tables, fallbacks Fallbacks, onSelect func(TableID)) *Mux {
	if fallbacks.NotFound == nil {
		fallbacks.NotFound = http.NotFoundHandler()
	}
	if fallbacks.Unauthenticated == nil {
		fallbacks.Unauthenticated = statusHandler(http.StatusUnauthorized)
	}
	if fallbacks.Pending == nil {
		fallbacks.Pending = statusHandler(http.StatusServiceUnavailable)
	}

	m := &Mux{
		routers:   make(map[TableID]*chi.Mux, 3),
		fallbacks: fallbacks,
		onSelect:  onSelect,
	}

	for _, id := range []TableID{TableAnonymous, TableCustomer, TableCaterer} {
		r := chi.NewRouter()
		if tables.Shared != nil {
			tables.Shared(r)
		}
		switch {
		case id == TableCustomer && tables.Customer != nil:
			tables.Customer(r)
		case id == TableCaterer && tables.Caterer != nil:
			tables.Caterer(r)
		}
		r.NotFound(fallbacks.NotFound.ServeHTTP)
		m.routers[id] = r
	}

	return m
}

// ServeHTTP implements http.Handler
func (m *Mux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	state := session.FromContext(r.Context())
	id := Select(state)
	if m.onSelect != nil {
		m.onSelect(id)
	}

	if id == TableAnonymous && !m.matches(TableAnonymous, r) && m.protected(r) {
		if state.Status == session.StatusIndeterminate {
			m.fallbacks.Pending.ServeHTTP(w, r)
			return
		}
		m.fallbacks.Unauthenticated.ServeHTTP(w, r)
		return
	}

	m.routers[id].ServeHTTP(w, r)
}

// protected reports whether a role table owns the request path
func (m *Mux) protected(r *http.Request) bool {
	return m.matches(TableCustomer, r) || m.matches(TableCaterer, r)
}

func (m *Mux) matches(id TableID, r *http.Request) bool {
	path := r.URL.Path
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePath != "" {
		path = rctx.RoutePath
	}
	return m.routers[id].Match(chi.NewRouteContext(), r.Method, path)
}

func statusHandler(status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(status), status)
	})
}
