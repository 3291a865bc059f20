package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records directory operation metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must honor cancellation/deadlines and return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordOperation records an operation with duration and error status.
	RecordOperation(ctx context.Context, op Operation, duration time.Duration, err error)

	// RecordCacheLookup records whether a read was served from the cache.
	RecordCacheLookup(ctx context.Context, op Operation, hit bool)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
	cacheLookups metric.Int64Counter
}

// NewMetrics creates a Metrics instance with the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	totalCount, err := meter.Int64Counter(
		"directory.op.total",
		metric.WithDescription("Total number of directory operations"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"directory.op.errors",
		metric.WithDescription("Total number of failed directory operations"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"directory.op.duration_ms",
		metric.WithDescription("Directory operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	cacheLookups, err := meter.Int64Counter(
		"directory.cache.lookups",
		metric.WithDescription("Cache lookups by read operations, split by hit"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		totalCount:   totalCount,
		errorCount:   errorCount,
		durationHist: durationHist,
		cacheLookups: cacheLookups,
	}, nil
}

// RecordOperation records metrics for an operation.
func (m *metricsImpl) RecordOperation(ctx context.Context, op Operation, duration time.Duration, err error) {
	opt := metric.WithAttributes(op.attributes()...)

	m.totalCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

// RecordCacheLookup counts a cache lookup.
func (m *metricsImpl) RecordCacheLookup(ctx context.Context, op Operation, hit bool) {
	attrs := append(op.attributes(), attribute.Bool("cache.hit", hit))
	m.cacheLookups.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// noopMetrics is a metrics implementation that does nothing.
type noopMetrics struct{}

func (noopMetrics) RecordOperation(ctx context.Context, op Operation, duration time.Duration, err error) {
}

func (noopMetrics) RecordCacheLookup(ctx context.Context, op Operation, hit bool) {}
