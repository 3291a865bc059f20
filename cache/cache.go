package cache

import (
	"errors"
	"strings"
	"time"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// PersistPrefix namespaces cache keys in the persistence port.
const PersistPrefix = "api_cache_"

// Sentinel errors for cache operations.
var (
	ErrInvalidKey  = errors.New("cache: key is invalid")
	ErrKeyTooLong  = errors.New("cache: key exceeds max length")
	ErrInvalidTier = errors.New("cache: unknown tier")
)

// Entry is a cached payload with its creation time and time-to-live.
type Entry[T any] struct {
	Data      T
	Timestamp time.Time
	TTL       time.Duration
}

// IsExpired reports whether more than TTL has passed since Timestamp.
func (e Entry[T]) IsExpired(now time.Time) bool {
	return now.Sub(e.Timestamp) > e.TTL
}

// Age returns how long ago the entry was created.
func (e Entry[T]) Age(now time.Time) time.Duration {
	return now.Sub(e.Timestamp)
}

// ValidateKey checks if a key is valid for caching.
func ValidateKey(key string) error {
	if key == "" || strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	// Reject keys with newlines or carriage returns
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
