package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jonwraymond/rehabdir/observe"
)

// LoadFunc fetches the authoritative value on a cache miss or refresh.
type LoadFunc[T any] func(ctx context.Context) (T, error)

// ReadThrough serves reads from a Bucket and falls back to a loader.
//
// A fresh hit returns immediately. A stale but unexpired hit also returns
// immediately and starts one background refresh per key
// (stale-while-revalidate). A miss calls the loader and caches its result.
// Errors are never cached, and neither is a loaded value when the store was
// invalidated while the loader ran.
type ReadThrough[T any] struct {
	bucket *Bucket[T]
	policy StalenessPolicy

	mu         sync.Mutex
	refreshing map[string]struct{}
	wg         sync.WaitGroup
}

// NewReadThrough creates a read-through view over bucket.
func NewReadThrough[T any](bucket *Bucket[T], policy StalenessPolicy) *ReadThrough[T] {
	return &ReadThrough[T]{
		bucket:     bucket,
		policy:     policy,
		refreshing: make(map[string]struct{}),
	}
}

// Get returns the value for key, reporting whether it came from the cache.
func (r *ReadThrough[T]) Get(ctx context.Context, key string, ttl time.Duration, load LoadFunc[T]) (T, bool, error) {
	if e, ok := r.bucket.Entry(ctx, key); ok {
		if r.policy.Stale(e.Timestamp, r.bucket.store.now()) {
			r.refresh(ctx, key, ttl, load)
		}
		return e.Data, true, nil
	}

	gen := r.bucket.store.Generation()
	v, err := load(ctx)
	if err != nil {
		var zero T
		return zero, false, err
	}
	if _, err := r.bucket.SetIfGeneration(ctx, key, v, ttl, gen); err != nil {
		r.bucket.store.logger.Warn(ctx, "cache set failed",
			observe.Field{Key: "key", Value: key},
			observe.Field{Key: "error", Value: err.Error()},
		)
	}
	return v, false, nil
}

// Wait blocks until every background refresh started so far has finished.
func (r *ReadThrough[T]) Wait() {
	r.wg.Wait()
}

func (r *ReadThrough[T]) refresh(ctx context.Context, key string, ttl time.Duration, load LoadFunc[T]) {
	r.mu.Lock()
	if _, busy := r.refreshing[key]; busy {
		r.mu.Unlock()
		return
	}
	r.refreshing[key] = struct{}{}
	r.wg.Add(1)
	r.mu.Unlock()

	// The refresh outlives the read that triggered it.
	ctx = context.WithoutCancel(ctx)
	gen := r.bucket.store.Generation()
	go func() {
		defer r.wg.Done()
		defer func() {
			r.mu.Lock()
			delete(r.refreshing, key)
			r.mu.Unlock()
		}()

		v, err := load(ctx)
		if err != nil {
			r.bucket.store.logger.Debug(ctx, "background refresh failed",
				observe.Field{Key: "key", Value: key},
				observe.Field{Key: "error", Value: err.Error()},
			)
			return
		}
		if stored, err := r.bucket.SetIfGeneration(ctx, key, v, ttl, gen); err == nil && !stored {
			r.bucket.store.logger.Debug(ctx, "background refresh dropped after invalidation",
				observe.Field{Key: "key", Value: key},
			)
		}
	}()
}
