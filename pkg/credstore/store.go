// Package credstore defines the byte-oriented key/value contract the session
// manager persists through, plus interchangeable backends.
//
// Every backend is safe for concurrent use and writes a single key
// atomically: a reader sees either the previous value or the new one.
package credstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key holds no value.
var ErrNotFound = errors.New("credstore: not found")

// Store is an opaque persistent byte store keyed by string.
type Store interface {
	// Get returns the value for key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
