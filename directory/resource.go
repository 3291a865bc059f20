package directory

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/jonwraymond/rehabdir/cache"
	"github.com/jonwraymond/rehabdir/normalize"
	"github.com/jonwraymond/rehabdir/observe"
	"github.com/jonwraymond/rehabdir/request"
)

// Resource is the typed client for one resource family.
type Resource[T normalize.Identified] struct {
	client   *Client
	name     string // plural, also the cache family: centers
	singular string // id key prefix: center
	path     string // endpoint: /centers
	auth     bool

	lists   *cache.ReadThrough[[]T]
	records *cache.ReadThrough[T]
}

func newResource[T normalize.Identified](c *Client, name, singular string, auth bool) *Resource[T] {
	r := &Resource[T]{
		client:   c,
		name:     name,
		singular: singular,
		path:     "/" + name,
		auth:     auth,
		lists:    cache.NewReadThrough(cache.NewBucket[[]T](c.store), c.staleness),
		records:  cache.NewReadThrough(cache.NewBucket[T](c.store), c.staleness),
	}
	c.waiters = append(c.waiters, r.lists.Wait, r.records.Wait)
	return r
}

// Name returns the resource family name.
func (r *Resource[T]) Name() string {
	return r.name
}

// ListKey returns the cache key List uses for filters.
func (r *Resource[T]) ListKey(filters Filters) (string, error) {
	return cache.Key(r.name, filters)
}

// RecordKey returns the cache key Get uses for id.
func (r *Resource[T]) RecordKey(id string) string {
	return cache.IDKey(r.singular, id)
}

// List returns the records matching filters.
func (r *Resource[T]) List(ctx context.Context, filters Filters) ([]T, error) {
	op := r.op("list")
	var out []T
	err := r.client.mw.Instrument(ctx, op, func(ctx context.Context) error {
		headers, err := r.client.headers(ctx, r.auth)
		if err != nil {
			return err
		}
		key, err := r.ListKey(filters)
		if err != nil {
			return err
		}
		opts := request.Options{Query: filters.Values(), Headers: headers}
		out, err = read(ctx, r.client, op, r.lists, key, func(ctx context.Context) ([]T, error) {
			return call[[]T](ctx, r.client, r.path, opts)
		})
		return err
	})
	if err != nil {
		return nil, wrapErr(r.name, op.Name, err)
	}
	return out, nil
}

// Get returns the record with id.
func (r *Resource[T]) Get(ctx context.Context, id string) (T, error) {
	op := r.op("get")
	var out T
	err := r.client.mw.Instrument(ctx, op, func(ctx context.Context) error {
		headers, err := r.client.headers(ctx, r.auth)
		if err != nil {
			return err
		}
		opts := request.Options{Headers: headers}
		out, err = read(ctx, r.client, op, r.records, r.RecordKey(id), func(ctx context.Context) (T, error) {
			return call[T](ctx, r.client, r.recordPath(id), opts)
		})
		return err
	})
	if err != nil {
		var zero T
		return zero, wrapErr(r.name, op.Name, err)
	}
	return out, nil
}

// Create sends payload as a new record and returns the record the backend
// stored.
func (r *Resource[T]) Create(ctx context.Context, payload any) (T, error) {
	return r.write(ctx, "create", "", http.MethodPost, r.path, payload)
}

// Update applies payload to the record with id and returns the result.
func (r *Resource[T]) Update(ctx context.Context, id string, payload any) (T, error) {
	return r.write(ctx, "update", id, http.MethodPut, r.recordPath(id), payload)
}

// Delete removes the record with id.
func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	_, err := r.write(ctx, "delete", id, http.MethodDelete, r.recordPath(id), nil)
	return err
}

func (r *Resource[T]) write(ctx context.Context, name, id, method, endpoint string, payload any) (T, error) {
	op := r.op(name)
	var out T
	err := r.client.mw.Instrument(ctx, op, func(ctx context.Context) error {
		headers, err := r.client.headers(ctx, r.auth)
		if err != nil {
			return err
		}
		out, err = call[T](ctx, r.client, endpoint, request.Options{
			Method:  method,
			Headers: headers,
			Body:    payload,
		})
		if err != nil {
			return err
		}
		r.client.store.Invalidate(ctx, r.name)
		if id != "" {
			r.client.store.Delete(ctx, r.RecordKey(id))
		}
		return nil
	})
	if err != nil {
		var zero T
		return zero, wrapErr(r.name, op.Name, err)
	}
	return out, nil
}

func (r *Resource[T]) op(name string) observe.Operation {
	return observe.Operation{Resource: r.name, Name: name, Authenticated: r.auth}
}

func (r *Resource[T]) recordPath(id string) string {
	return r.path + "/" + url.PathEscape(id)
}

// read serves key from rt, or loads it directly when caching is disabled.
func read[T any](ctx context.Context, c *Client, op observe.Operation, rt *cache.ReadThrough[T], key string, load cache.LoadFunc[T]) (T, error) {
	if !c.coord.CacheEnabled() {
		return load(ctx)
	}
	v, hit, err := rt.Get(ctx, key, 0, load)
	c.mw.CacheLookup(ctx, op, hit)
	return v, err
}

// call dispatches a request and decodes a successful response into T. An
// empty body decodes to the zero value.
func call[T any](ctx context.Context, c *Client, endpoint string, opts request.Options) (T, error) {
	var v T
	res := c.coord.Dispatch(ctx, endpoint, opts)
	if !res.Success() {
		return v, res.Err
	}
	if err := res.Decode(&v); err != nil {
		return v, fmt.Errorf("%w: %w", ErrDecodeResponse, err)
	}
	return v, nil
}
