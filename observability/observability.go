// Package observability defines the dependency-free logging, metrics and tracing interfaces
// used by the buses, the event bus and the storage adapters, plus small helpers to use them.
//
// Users integrate any backend by implementing these interfaces; the oteladapters sub-package
// ships OpenTelemetry implementations. Every collaborator is optional: a nil collector disables
// the corresponding instrumentation.
package observability

import (
	"context"
	"errors"
	"time"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/apperror"
)

const (
	// StatusSuccess indicates successful completion.
	StatusSuccess = "success"

	// StatusError indicates a processing error.
	StatusError = "error"

	// StatusCanceled indicates the operation was canceled due to context cancellation.
	StatusCanceled = "canceled"

	// StatusTimeout indicates the operation timed out due to context deadline exceeded.
	StatusTimeout = "timeout"

	// StatusConcurrencyConflict indicates the operation failed due to optimistic concurrency control.
	StatusConcurrencyConflict = "concurrency_conflict"

	// LogAttrError contains error details.
	LogAttrError = "error"

	// LogAttrDurationMS indicates the processing duration in milliseconds.
	LogAttrDurationMS = "duration_ms"

	// LogAttrStatus indicates the processing status.
	LogAttrStatus = "status"
)

// Logger interface for operational logging, warnings, and error reporting.
// *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// ContextualLogger interface for context-aware logging with automatic trace correlation.
// *slog.Logger satisfies it as well.
type ContextualLogger interface {
	DebugContext(ctx context.Context, msg string, args ...any)
	InfoContext(ctx context.Context, msg string, args ...any)
	WarnContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
}

// MetricsCollector interface for collecting performance and operational metrics.
type MetricsCollector interface {
	RecordDuration(metric string, duration time.Duration, labels map[string]string)
	IncrementCounter(metric string, labels map[string]string)
	RecordValue(metric string, value float64, labels map[string]string)
}

// ContextualMetricsCollector extends MetricsCollector with context-aware methods for trace correlation.
// It is optional: the helpers use the context-aware methods when available.
type ContextualMetricsCollector interface {
	MetricsCollector
	RecordDurationContext(ctx context.Context, metric string, duration time.Duration, labels map[string]string)
	IncrementCounterContext(ctx context.Context, metric string, labels map[string]string)
	RecordValueContext(ctx context.Context, metric string, value float64, labels map[string]string)
}

// SpanContext represents an active tracing span that can be finished and updated with attributes.
type SpanContext interface {
	SetStatus(status string)
	AddAttribute(key, value string)
}

// TracingCollector interface for collecting distributed tracing information.
type TracingCollector interface {
	StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, SpanContext)
	FinishSpan(spanCtx SpanContext, status string, attrs map[string]string)
}

// RecordDuration records a duration, preferring the context-aware variant.
func RecordDuration(
	ctx context.Context,
	collector MetricsCollector,
	metric string,
	duration time.Duration,
	labels map[string]string,
) {
	if collector == nil {
		return
	}

	if contextual, ok := collector.(ContextualMetricsCollector); ok {
		contextual.RecordDurationContext(ctx, metric, duration, labels)
		return
	}

	collector.RecordDuration(metric, duration, labels)
}

// IncrementCounter increments a counter, preferring the context-aware variant.
func IncrementCounter(ctx context.Context, collector MetricsCollector, metric string, labels map[string]string) {
	if collector == nil {
		return
	}

	if contextual, ok := collector.(ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(ctx, metric, labels)
		return
	}

	collector.IncrementCounter(metric, labels)
}

// StartSpan starts a span if tracing is enabled, otherwise it returns ctx and a nil span.
func StartSpan(
	ctx context.Context,
	collector TracingCollector,
	name string,
	attrs map[string]string,
) (context.Context, SpanContext) {
	if collector == nil {
		return ctx, nil
	}

	return collector.StartSpan(ctx, name, attrs)
}

// FinishSpan finishes span if there is one.
func FinishSpan(collector TracingCollector, span SpanContext, status string, attrs map[string]string) {
	if collector == nil || span == nil {
		return
	}

	collector.FinishSpan(span, status, attrs)
}

// LogDebug logs to the contextual logger if set, otherwise to the basic logger if set.
func LogDebug(ctx context.Context, logger Logger, contextual ContextualLogger, msg string, args ...any) {
	if contextual != nil {
		contextual.DebugContext(ctx, msg, args...)
	} else if logger != nil {
		logger.Debug(msg, args...)
	}
}

// LogInfo logs to the contextual logger if set, otherwise to the basic logger if set.
func LogInfo(ctx context.Context, logger Logger, contextual ContextualLogger, msg string, args ...any) {
	if contextual != nil {
		contextual.InfoContext(ctx, msg, args...)
	} else if logger != nil {
		logger.Info(msg, args...)
	}
}

// LogWarn logs to the contextual logger if set, otherwise to the basic logger if set.
func LogWarn(ctx context.Context, logger Logger, contextual ContextualLogger, msg string, args ...any) {
	if contextual != nil {
		contextual.WarnContext(ctx, msg, args...)
	} else if logger != nil {
		logger.Warn(msg, args...)
	}
}

// LogError logs to the contextual logger if set, otherwise to the basic logger if set.
func LogError(ctx context.Context, logger Logger, contextual ContextualLogger, msg string, args ...any) {
	if contextual != nil {
		contextual.ErrorContext(ctx, msg, args...)
	} else if logger != nil {
		logger.Error(msg, args...)
	}
}

// StatusFromError classifies err for metric and span labels.
func StatusFromError(err error) string {
	switch {
	case err == nil:
		return StatusSuccess

	case errors.Is(err, context.Canceled):
		return StatusCanceled

	case errors.Is(err, context.DeadlineExceeded):
		return StatusTimeout

	case apperror.ConcurrencyError.Is(err):
		return StatusConcurrencyConflict

	default:
		return StatusError
	}
}

// ToMilliseconds converts a time.Duration to float64 milliseconds with precision.
func ToMilliseconds(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e6
}
