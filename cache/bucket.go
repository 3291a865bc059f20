package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Bucket is a typed view over a Store. Values are encoded as JSON, and a
// Bucket[T] only ever yields T: payloads that do not decode read as misses.
type Bucket[T any] struct {
	store *Store
}

// NewBucket creates a typed view over store.
func NewBucket[T any](store *Store) *Bucket[T] {
	return &Bucket[T]{store: store}
}

// Store returns the underlying store.
func (b *Bucket[T]) Store() *Store {
	return b.store
}

// Get returns the value stored under key.
func (b *Bucket[T]) Get(ctx context.Context, key string) (T, bool) {
	e, ok := b.Entry(ctx, key)
	return e.Data, ok
}

// Entry returns the value stored under key with its metadata.
func (b *Bucket[T]) Entry(ctx context.Context, key string) (Entry[T], bool) {
	raw, ok := b.store.Entry(ctx, key)
	if !ok {
		return Entry[T]{}, false
	}
	var v T
	if err := json.Unmarshal(raw.Data, &v); err != nil {
		return Entry[T]{}, false
	}
	return Entry[T]{Data: v, Timestamp: raw.Timestamp, TTL: raw.TTL}, true
}

// Set stores v under key. A non-positive ttl uses the store default.
func (b *Bucket[T]) Set(ctx context.Context, key string, v T, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.store.Set(ctx, key, data, ttl)
}

// SetIfGeneration stores v under key unless the store was invalidated
// after gen was read. See Store.SetIfGeneration.
func (b *Bucket[T]) SetIfGeneration(ctx context.Context, key string, v T, ttl time.Duration, gen uint64) (bool, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return false, err
	}
	return b.store.SetIfGeneration(ctx, key, data, ttl, gen)
}
