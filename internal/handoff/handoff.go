// Package handoff is short-lived per-tab storage used to pass state between
// pages: the working cart on a caterer page, the checkout snapshot and an
// open auth dialog.
package handoff

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned for keys that are absent or expired
var ErrNotFound = errors.New("handoff entry not found")

// Store holds opaque values under string keys for a limited time
type Store interface {
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// CurationKey is where a tab keeps its working cart for a caterer
func CurationKey(tab, catererID string) string {
	return fmt.Sprintf("curation/%s/%s", tab, catererID)
}

// CheckoutKey is where a tab keeps the snapshot handed to checkout
func CheckoutKey(tab string) string {
	return fmt.Sprintf("checkout/%s", tab)
}

// DialogKey is where a tab keeps an open auth dialog between requests
func DialogKey(tab string) string {
	return fmt.Sprintf("dialog/%s", tab)
}

// PutJSON stores v encoded as JSON
func PutJSON(ctx context.Context, s Store, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.Put(ctx, key, data, ttl)
}

// GetJSON loads the JSON value at key into v
func GetJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}
