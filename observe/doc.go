// Package observe provides observability primitives for the directory client.
//
// It is a pure instrumentation library: a structured logger, OpenTelemetry
// tracing and metrics setup, and a Middleware that wraps directory
// operations with a span, metrics and a log line.
package observe
