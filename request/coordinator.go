package request

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/rehabdir/observe"
	"github.com/jonwraymond/rehabdir/resilience"
)

// maxErrorBody bounds how much of a failed response body is kept in a
// StatusError.
const maxErrorBody = 512

// maxDelay caps a single backoff wait.
const maxDelay = time.Hour

// Stats is a snapshot of coordinator counters.
type Stats struct {
	// Executions counts calls that reached the network layer.
	Executions int64
	// Attempts counts HTTP attempts, retries included.
	Attempts int64
	// Shared counts Results delivered to a caller that joined an
	// in-flight call.
	Shared int64
	// Failures counts executions that exhausted their attempts.
	Failures int64
}

// Coordinator executes remote calls with deduplication, per-attempt
// timeouts and retries.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Context: a started call is detached from the caller's cancellation.
// - Errors: reported through Result.Err, never panics.
type Coordinator struct {
	mu     sync.RWMutex
	config Config

	client    *http.Client
	logger    observe.Logger
	sleep     resilience.SleepFunc
	retryIf   func(error) bool
	requestID func() string

	group singleflight.Group

	executions, attempts, shared, failures atomic.Int64
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithHTTPClient sets the HTTP client. Its Timeout should be zero; the
// coordinator bounds attempts itself.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Coordinator) {
		if client != nil {
			c.client = client
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger observe.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSleep replaces the backoff wait, for tests.
func WithSleep(sleep resilience.SleepFunc) Option {
	return func(c *Coordinator) {
		c.sleep = sleep
	}
}

// WithRetryIf installs a retry classifier. By default every failure is
// retried, non-2xx statuses included.
func WithRetryIf(retryIf func(error) bool) Option {
	return func(c *Coordinator) {
		c.retryIf = retryIf
	}
}

// WithRequestID replaces the X-Request-ID generator.
func WithRequestID(gen func() string) Option {
	return func(c *Coordinator) {
		if gen != nil {
			c.requestID = gen
		}
	}
}

// WithCacheEnabled sets the initial Config.CacheEnabled.
func WithCacheEnabled(enabled bool) Option {
	return func(c *Coordinator) {
		c.config.CacheEnabled = enabled
	}
}

// New creates a coordinator. Zero fields of config take their defaults;
// CacheEnabled starts true unless WithCacheEnabled says otherwise.
func New(config Config, opts ...Option) *Coordinator {
	c := &Coordinator{
		config:    DefaultConfig().Merge(config),
		client:    &http.Client{},
		logger:    observe.NopLogger(),
		requestID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns the current configuration.
func (c *Coordinator) Config() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config
}

// SetConfig merges the non-zero fields of update into the configuration.
// Calls already in flight keep the configuration they started with.
func (c *Coordinator) SetConfig(update Config) {
	c.mu.Lock()
	c.config = c.config.Merge(update)
	c.mu.Unlock()
}

// SetCacheEnabled toggles Config.CacheEnabled.
func (c *Coordinator) SetCacheEnabled(enabled bool) {
	c.mu.Lock()
	c.config.CacheEnabled = enabled
	c.mu.Unlock()
}

// CacheEnabled reports Config.CacheEnabled.
func (c *Coordinator) CacheEnabled() bool {
	return c.Config().CacheEnabled
}

// Stats returns a snapshot of the coordinator counters.
func (c *Coordinator) Stats() Stats {
	return Stats{
		Executions: c.executions.Load(),
		Attempts:   c.attempts.Load(),
		Shared:     c.shared.Load(),
		Failures:   c.failures.Load(),
	}
}

// Dispatch performs the call described by endpoint and opts, joining an
// identical call already in flight if there is one.
func (c *Coordinator) Dispatch(ctx context.Context, endpoint string, opts Options) Result {
	body, err := encodeBody(opts.Body)
	if err != nil {
		return Result{Err: err}
	}
	sig := signature(endpoint, opts, body)

	// The execution must not inherit the first caller's cancellation: other
	// callers may be waiting on it.
	detached := context.WithoutCancel(ctx)
	v, _, shared := c.group.Do(sig, func() (any, error) {
		return c.execute(detached, endpoint, opts, body), nil
	})

	res := v.(Result)
	if shared {
		c.shared.Add(1)
		res.Shared = true
		if res.Data != nil {
			res.Data = append(json.RawMessage(nil), res.Data...)
		}
	}
	return res
}

// attemptOutcome holds what the latest attempt observed. Attempts run on
// their own goroutine under the timeout wrapper, and a timed-out attempt
// may report after its successor started, so only newer attempts win.
type attemptOutcome struct {
	mu      sync.Mutex
	attempt int
	status  int
	data    []byte
}

func (o *attemptOutcome) set(attempt, status int, data []byte) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if attempt < o.attempt {
		return
	}
	o.attempt, o.status, o.data = attempt, status, data
}

// final returns what attempt observed, or nothing when that attempt never
// got a response.
func (o *attemptOutcome) final(attempt int) (int, []byte) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.attempt != attempt {
		return 0, nil
	}
	return o.status, o.data
}

func (c *Coordinator) execute(ctx context.Context, endpoint string, opts Options, body []byte) Result {
	cfg := c.Config()
	c.executions.Add(1)

	requestID := c.requestID()
	logger := c.logger.With(
		observe.Field{Key: "method", Value: opts.method()},
		observe.Field{Key: "endpoint", Value: endpoint},
		observe.Field{Key: "request_id", Value: requestID},
	)

	executor := resilience.NewExecutor(
		resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
			MaxAttempts:  cfg.MaxRetries,
			InitialDelay: cfg.RetryDelay,
			MaxDelay:     maxDelay,
			Multiplier:   2,
			Strategy:     resilience.BackoffExponential,
			RetryIf:      c.retryIf,
			Sleep:        c.sleep,
			OnRetry: func(attempt int, err error, delay time.Duration) {
				logger.Warn(ctx, "request attempt failed, retrying",
					observe.Field{Key: "attempt", Value: attempt},
					observe.Field{Key: "delay_ms", Value: delay.Milliseconds()},
					observe.Field{Key: "error", Value: err.Error()},
				)
			},
		})),
		resilience.WithTimeout(cfg.Timeout),
	)

	var outcome attemptOutcome
	attempts, err := executor.Do(ctx, func(ctx context.Context, attempt int) error {
		c.attempts.Add(1)
		status, data, err := c.roundTrip(ctx, cfg.BaseURL, endpoint, opts, body, requestID)
		outcome.set(attempt, status, data)
		return err
	})

	status, data := outcome.final(attempts)
	if err != nil {
		c.failures.Add(1)
		logger.Error(ctx, "request failed",
			observe.Field{Key: "attempts", Value: attempts},
			observe.Field{Key: "status", Value: status},
			observe.Field{Key: "error", Value: err.Error()},
		)
		return Result{Err: err, StatusCode: status, Attempts: attempts}
	}

	logger.Debug(ctx, "request succeeded",
		observe.Field{Key: "attempts", Value: attempts},
		observe.Field{Key: "status", Value: status},
	)
	return Result{Data: data, StatusCode: status, Attempts: attempts}
}

func (c *Coordinator) roundTrip(ctx context.Context, baseURL, endpoint string, opts Options, body []byte, requestID string) (int, []byte, error) {
	target := joinURL(baseURL, endpoint)
	if len(opts.Query) > 0 {
		target += "?" + opts.Query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, opts.method(), target, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for name, value := range opts.Headers {
		req.Header.Set(name, value)
	}
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := strings.TrimSpace(string(data))
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return resp.StatusCode, nil, &StatusError{Code: resp.StatusCode, Body: snippet}
	}
	return resp.StatusCode, data, nil
}

func joinURL(baseURL, endpoint string) string {
	if baseURL == "" {
		return endpoint
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(endpoint, "/")
}
