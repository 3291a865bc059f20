package observe

import (
	"context"
	"time"
)

// Middleware wraps directory operations with observability (tracing,
// metrics, logging).
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Context: Propagates context through tracing spans.
//   - Errors: Errors from the wrapped function are recorded and returned unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware with the given observability components.
// Nil components are replaced with no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = newNoopTracer()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// NopMiddleware returns a Middleware that records nothing.
func NopMiddleware() *Middleware {
	return NewMiddleware(nil, nil, nil)
}

// Logger returns the middleware's logger.
func (m *Middleware) Logger() Logger {
	return m.logger
}

// Instrument runs fn inside a span and records its duration and outcome.
// An operation without a name is rejected before fn runs.
func (m *Middleware) Instrument(ctx context.Context, op Operation, fn func(ctx context.Context) error) error {
	if err := op.Validate(); err != nil {
		return err
	}
	ctx, span := m.tracer.StartSpan(ctx, op)

	start := time.Now()
	err := fn(ctx)
	duration := time.Since(start)

	m.tracer.EndSpan(span, err)
	m.metrics.RecordOperation(ctx, op, duration, err)

	fields := append(op.Fields(), Field{Key: "duration_ms", Value: float64(duration.Milliseconds())})
	if err != nil {
		fields = append(fields, Field{Key: "error", Value: err.Error()})
		m.logger.Error(ctx, "directory operation failed", fields...)
	} else {
		m.logger.Debug(ctx, "directory operation completed", fields...)
	}

	return err
}

// CacheLookup records whether a read was served from the cache.
func (m *Middleware) CacheLookup(ctx context.Context, op Operation, hit bool) {
	m.metrics.RecordCacheLookup(ctx, op, hit)
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}
