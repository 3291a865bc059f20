package directory

import (
	"context"
	"maps"
	"net/http"
	"time"

	"github.com/jonwraymond/rehabdir/auth"
	"github.com/jonwraymond/rehabdir/cache"
	"github.com/jonwraymond/rehabdir/kv"
	"github.com/jonwraymond/rehabdir/normalize"
	"github.com/jonwraymond/rehabdir/observe"
	"github.com/jonwraymond/rehabdir/request"
	"github.com/jonwraymond/rehabdir/resilience"
)

// Options configures a Client. Only Request.BaseURL is required.
type Options struct {
	// Request configures the coordinator. Zero fields take their defaults.
	Request request.Config

	// Cache configures the response cache. Zero fields take their defaults.
	Cache cache.Config

	// Staleness marks cached reads for background refresh. The zero value
	// disables refresh.
	Staleness cache.StalenessPolicy

	// DisableCache makes every read go to the backend.
	DisableCache bool

	// Port persists cached responses and the bearer credential.
	// Default: an in-memory store
	Port kv.Store

	// TokenKey is the port key holding the bearer credential.
	// Default: auth.TokenKey
	TokenKey string

	// Headers are sent with every request.
	Headers map[string]string

	HTTPClient *http.Client
	Logger     observe.Logger
	Middleware *observe.Middleware

	// Clock and Sleep replace time.Now and the backoff wait, for tests.
	Clock func() time.Time
	Sleep resilience.SleepFunc

	// RetryIf classifies failures as retryable. Default: retry all.
	RetryIf func(error) bool
}

// Client is the directory API client.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Errors: every failed operation returns *Error.
type Client struct {
	store     *cache.Store
	coord     *request.Coordinator
	session   *auth.Session
	mw        *observe.Middleware
	logger    observe.Logger
	staleness cache.StalenessPolicy
	headers0  map[string]string
	waiters   []func()

	me *cache.ReadThrough[User]

	Centers   *Resource[Center]
	Articles  *Resource[Article]
	Comments  *Resource[Comment]
	Bookings  *Resource[Booking]
	Favorites *Resource[Favorite]
}

// New builds a client.
func New(opts Options) (*Client, error) {
	reqCfg := request.DefaultConfig().Merge(opts.Request)
	if err := reqCfg.Validate(); err != nil {
		return nil, wrapErr("", "new", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = observe.NopLogger()
	}
	mw := opts.Middleware
	if mw == nil {
		mw = observe.NewMiddleware(nil, nil, logger)
	}
	port := opts.Port
	if port == nil {
		port = kv.NewMemory()
	}

	storeOpts := []cache.Option{cache.WithPort(port), cache.WithLogger(logger)}
	if opts.Clock != nil {
		storeOpts = append(storeOpts, cache.WithClock(opts.Clock))
	}

	coordOpts := []request.Option{
		request.WithLogger(logger),
		request.WithCacheEnabled(!opts.DisableCache),
	}
	if opts.HTTPClient != nil {
		coordOpts = append(coordOpts, request.WithHTTPClient(opts.HTTPClient))
	}
	if opts.Sleep != nil {
		coordOpts = append(coordOpts, request.WithSleep(opts.Sleep))
	}
	if opts.RetryIf != nil {
		coordOpts = append(coordOpts, request.WithRetryIf(opts.RetryIf))
	}

	var sessionOpts []auth.SessionOption
	if opts.TokenKey != "" {
		sessionOpts = append(sessionOpts, auth.WithTokenKey(opts.TokenKey))
	}
	if opts.Clock != nil {
		sessionOpts = append(sessionOpts, auth.WithSessionClock(opts.Clock))
	}

	c := &Client{
		store:     cache.NewStore(opts.Cache, storeOpts...),
		coord:     request.New(reqCfg, coordOpts...),
		session:   auth.NewSession(port, sessionOpts...),
		mw:        mw,
		logger:    logger,
		staleness: opts.Staleness,
		headers0:  maps.Clone(opts.Headers),
	}
	c.me = cache.NewReadThrough(cache.NewBucket[User](c.store), c.staleness)
	c.waiters = append(c.waiters, c.me.Wait)

	c.Centers = newResource[Center](c, "centers", "center", false)
	c.Articles = newResource[Article](c, "articles", "article", false)
	c.Comments = newResource[Comment](c, "comments", "comment", false)
	c.Bookings = newResource[Booking](c, "bookings", "booking", true)
	c.Favorites = newResource[Favorite](c, "favorites", "favorite", true)
	return c, nil
}

// Cache returns the response cache.
func (c *Client) Cache() *cache.Store {
	return c.store
}

// Coordinator returns the request coordinator.
func (c *Client) Coordinator() *request.Coordinator {
	return c.coord
}

// Session returns the credential session.
func (c *Client) Session() *auth.Session {
	return c.session
}

// Wait blocks until every background refresh started so far has finished.
func (c *Client) Wait() {
	for _, wait := range c.waiters {
		wait()
	}
}

// meKey caches the current user.
var meKey = cache.IDKey("user", "me")

// authFamilies are the cache families whose content depends on the
// signed-in user.
var authFamilies = []string{"bookings", "favorites", "booking_", "favorite_", meKey}

// Me returns the signed-in user.
func (c *Client) Me(ctx context.Context) (User, error) {
	op := observe.Operation{Name: "me", Authenticated: true}
	var out User
	err := c.mw.Instrument(ctx, op, func(ctx context.Context) error {
		headers, err := c.headers(ctx, true)
		if err != nil {
			return err
		}
		out, err = read(ctx, c, op, c.me, meKey, func(ctx context.Context) (User, error) {
			return call[User](ctx, c, "/me", request.Options{Headers: headers})
		})
		return err
	})
	if err != nil {
		return User{}, wrapErr("", op.Name, err)
	}
	return out, nil
}

// SignIn stores token as the bearer credential and drops cached data that
// belonged to the previous user.
func (c *Client) SignIn(ctx context.Context, token string) error {
	op := observe.Operation{Name: "signin"}
	err := c.mw.Instrument(ctx, op, func(ctx context.Context) error {
		if err := c.session.SignIn(ctx, token); err != nil {
			return err
		}
		for _, family := range authFamilies {
			c.store.Invalidate(ctx, family)
		}
		return nil
	})
	return wrapErr("", op.Name, err)
}

// SignOut removes the bearer credential and clears the whole cache.
func (c *Client) SignOut(ctx context.Context) error {
	op := observe.Operation{Name: "signout"}
	err := c.mw.Instrument(ctx, op, func(ctx context.Context) error {
		if err := c.session.SignOut(ctx); err != nil {
			return err
		}
		c.store.Invalidate(ctx, "")
		return nil
	})
	return wrapErr("", op.Name, err)
}

// ListCentersState returns the centers matching filters in normalized form.
func (c *Client) ListCentersState(ctx context.Context, filters Filters) (normalize.State[Center], error) {
	centers, err := c.Centers.List(ctx, filters)
	if err != nil {
		return normalize.Empty[Center](), err
	}
	return normalize.Normalize(centers), nil
}

// RefreshCentersState folds the centers currently matching filters into
// held. Known centers keep their position and take the fresh values; new
// ones are appended. On error held is returned unchanged.
func (c *Client) RefreshCentersState(ctx context.Context, held normalize.State[Center], filters Filters) (normalize.State[Center], error) {
	centers, err := c.Centers.List(ctx, filters)
	if err != nil {
		return held, err
	}
	return normalize.Merge(held, centers), nil
}

// headers returns the headers for a request, with the bearer credential
// when withAuth is set. A missing or expired credential fails here, before
// any request is made.
func (c *Client) headers(ctx context.Context, withAuth bool) (map[string]string, error) {
	h := maps.Clone(c.headers0)
	if !withAuth {
		return h, nil
	}
	bearer, err := c.session.Header(ctx)
	if err != nil {
		return nil, err
	}
	if h == nil {
		h = make(map[string]string, 1)
	}
	h["Authorization"] = bearer
	return h, nil
}
