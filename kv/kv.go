package kv

import (
	"context"
	"errors"
)

// Sentinel errors for store operations.
var (
	ErrClosed     = errors.New("kv: store is closed")
	ErrInvalidKey = errors.New("kv: key is invalid")
)

// Store is an asynchronous string key-value store.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: methods should honor cancellation/deadlines where applicable.
// - Errors: Get returns ("", false, nil) on miss; Remove is idempotent.
type Store interface {
	// Get returns the value stored under key.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error

	// RemoveMany deletes every key in keys.
	RemoveMany(ctx context.Context, keys []string) error

	// Close releases resources held by the store.
	Close() error
}

// Lister is implemented by stores that can enumerate their keys.
type Lister interface {
	// Keys returns every stored key that starts with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// ValidateKey rejects empty keys.
func ValidateKey(key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	return nil
}
