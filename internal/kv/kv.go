// Package kv provides the key-value preference store used for user settings
// and the model catalog mirror.
package kv

import "context"

// Store is a small byte-oriented key-value store.
type Store interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Absent keys are not an error.
	Delete(ctx context.Context, key string) error
	Close() error
}

// Verify implementations satisfy Store at compile time.
var (
	_ Store = (*SQLite)(nil)
	_ Store = (*Redis)(nil)
)
