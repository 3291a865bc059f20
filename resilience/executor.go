package resilience

import (
	"context"
	"time"
)

// Executor composes retry and a per-attempt timeout.
type Executor struct {
	retry   *Retry
	timeout *Timeout
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor creates a new resilience executor.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithRetry adds retry logic to the executor.
func WithRetry(r *Retry) ExecutorOption {
	return func(e *Executor) {
		e.retry = r
	}
}

// WithTimeout adds a per-attempt timeout to the executor.
func WithTimeout(timeout time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.timeout = NewTimeout(TimeoutConfig{Timeout: timeout})
	}
}

// WithTimeoutConfig adds a per-attempt timeout with custom config.
func WithTimeoutConfig(t *Timeout) ExecutorOption {
	return func(e *Executor) {
		e.timeout = t
	}
}

// Execute runs the operation through the configured patterns.
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	_, err := e.Do(ctx, func(ctx context.Context, _ int) error {
		return op(ctx)
	})
	return err
}

// Do runs op through the configured patterns and reports the number of
// attempts made. The timeout is innermost, so each attempt gets its own
// deadline; the retry loop wraps it.
func (e *Executor) Do(ctx context.Context, op func(ctx context.Context, attempt int) error) (int, error) {
	attempt := op
	if e.timeout != nil {
		inner := attempt
		attempt = func(ctx context.Context, n int) error {
			return e.timeout.Execute(ctx, func(ctx context.Context) error {
				return inner(ctx, n)
			})
		}
	}

	if e.retry != nil {
		return e.retry.Do(ctx, attempt)
	}
	return 1, attempt(ctx, 1)
}
