// Package store persists the application document and owns the loaded state.
package store

import (
	"context"
	"errors"
)

// StateKey is the fixed key the whole app document lives under.
const StateKey = "companion_app_state"

// ErrNotFound is returned when a key has never been written.
var ErrNotFound = errors.New("blob not found")

// BlobStore is the key-value persistence boundary. Writes replace the whole
// value; there are no partial updates.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte) error
}
