package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/Lixing-Zhang/kart-challenge/catering/internal/identity"
	"github.com/Lixing-Zhang/kart-challenge/catering/internal/middleware"
	"github.com/Lixing-Zhang/kart-challenge/catering/internal/session"
)

const maxBodyBytes = 1 << 20

var (
	errMissingClient = errors.New("identity client missing from request context")
	errMissingTab    = errors.New("request has no tab id")
)

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// stateOf returns the session state resolved for the request
func stateOf(r *http.Request) session.State {
	return session.FromContext(r.Context())
}

func clientOf(r *http.Request) (*identity.Client, error) {
	c, ok := middleware.ClientFromContext(r.Context())
	if !ok {
		return nil, errMissingClient
	}
	return c, nil
}

func tabOf(r *http.Request) (string, error) {
	tab := middleware.TabID(r)
	if tab == "" {
		return "", errMissingTab
	}
	return tab, nil
}
