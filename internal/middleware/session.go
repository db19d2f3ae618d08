package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Lixing-Zhang/kart-challenge/catering/internal/identity"
	"github.com/Lixing-Zhang/kart-challenge/catering/internal/session"
)

// TabHeader carries the browser tab id that scopes handoff storage
const TabHeader = "X-Tab-ID"

// TabQuery carries the tab id where headers cannot be set, as on a
// websocket handshake from a browser
const TabQuery = "tab"

type clientKey struct{}

// Session resolves the caller's session for every request. The token is
// read from an "Authorization: Bearer" header or, failing that, from the
// session cookie. The resolved state and the per-request identity client
// are stored in the request context; nothing is rejected here, the router
// decides what each state may see. The client is bound to the request's
// tab so that event streams of the tab follow its logins.
func Session(svc *identity.Service, cookieName string, log *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := svc.TabClient(AccessToken(r, cookieName), requestTab(r))
			state := session.Resolve(r.Context(), client, log)

			ctx := session.NewContext(r.Context(), state)
			ctx = WithClient(ctx, client)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AccessToken extracts the caller's access token, empty when none is sent
func AccessToken(r *http.Request, cookieName string) string {
	if h := r.Header.Get("Authorization"); h != "" {
		token, ok := strings.CutPrefix(h, "Bearer ")
		if !ok {
			return ""
		}
		return strings.TrimSpace(token)
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value
	}
	return ""
}

// WithClient returns a copy of ctx carrying the request's identity client
func WithClient(ctx context.Context, c *identity.Client) context.Context {
	return context.WithValue(ctx, clientKey{}, c)
}

// ClientFromContext returns the identity client stored by Session
func ClientFromContext(ctx context.Context) (*identity.Client, bool) {
	c, ok := ctx.Value(clientKey{}).(*identity.Client)
	return c, ok && c != nil
}

// TabID returns the tab the request comes from: the X-Tab-ID header or
// tab query parameter, else the session id. Empty when none exists.
func TabID(r *http.Request) string {
	if tab := requestTab(r); tab != "" {
		return tab
	}
	if c, ok := ClientFromContext(r.Context()); ok {
		return c.SessionID()
	}
	return ""
}

func requestTab(r *http.Request) string {
	if tab := strings.TrimSpace(r.Header.Get(TabHeader)); tab != "" {
		return tab
	}
	return strings.TrimSpace(r.URL.Query().Get(TabQuery))
}
