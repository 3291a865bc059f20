package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Operation describes a directory operation for telemetry purposes.
type Operation struct {
	Resource      string // Resource family, e.g. centers (may be empty)
	Name          string // Operation name, e.g. list (required)
	Authenticated bool   // Whether the call carries a bearer credential
}

// SpanName returns the deterministic span name for this operation.
// Format: directory.<resource>.<name> or directory.<name>
func (o Operation) SpanName() string {
	return "directory." + o.ID()
}

// ID returns the operation identifier: <resource>.<name> or <name>.
func (o Operation) ID() string {
	if o.Resource != "" {
		return o.Resource + "." + o.Name
	}
	return o.Name
}

// Validate reports whether the operation can be instrumented.
func (o Operation) Validate() error {
	if o.Name == "" {
		return ErrMissingOperationName
	}
	return nil
}

// Fields returns the operation as log fields.
func (o Operation) Fields() []Field {
	fields := []Field{{Key: "op", Value: o.ID()}}
	if o.Resource != "" {
		fields = append(fields, Field{Key: "resource", Value: o.Resource})
	}
	return fields
}

func (o Operation) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("directory.op", o.ID()),
		attribute.String("directory.op.name", o.Name),
	}
	if o.Resource != "" {
		attrs = append(attrs, attribute.String("directory.resource", o.Resource))
	}
	return attrs
}

// Tracer wraps OpenTelemetry tracing with operation-specific span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for an operation.
	StartSpan(ctx context.Context, op Operation) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

// tracerImpl is the concrete implementation of Tracer.
type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer creates a Tracer wrapping the given OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// StartSpan starts a new span with operation metadata as attributes.
func (t *tracerImpl) StartSpan(ctx context.Context, op Operation) (context.Context, trace.Span) {
	attrs := append(op.attributes(),
		attribute.Bool("directory.authenticated", op.Authenticated),
		attribute.Bool("directory.error", false), // Will be updated in EndSpan if error
	)

	return t.tracer.Start(ctx, op.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// EndSpan ends the span and records the error status if present.
func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("directory.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// noopTracer is a tracer that does nothing.
type noopTracer struct {
	noop trace.Tracer
}

func newNoopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartSpan(ctx context.Context, op Operation) (context.Context, trace.Span) {
	return t.noop.Start(ctx, op.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, err error) {
	span.End()
}
