package oteladapters

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/observability"
)

// TracingCollector implements observability.TracingCollector using the OpenTelemetry tracing API.
type TracingCollector struct {
	tracer trace.Tracer
}

// NewTracingCollector creates a new OpenTelemetry tracing collector.
// The tracer should be created from your OpenTelemetry TracerProvider.
func NewTracingCollector(tracer trace.Tracer) *TracingCollector {
	return &TracingCollector{tracer: tracer}
}

// StartSpan starts a span with the given attributes and returns the context carrying it.
func (t *TracingCollector) StartSpan(
	ctx context.Context,
	name string,
	attrs map[string]string,
) (context.Context, observability.SpanContext) {
	spanCtx, span := t.tracer.Start(ctx, name, trace.WithAttributes(toAttributes(attrs)...))

	return spanCtx, &OTelSpanContext{span: span}
}

// FinishSpan sets the final attributes and status and ends the span.
// Spans not started by a TracingCollector are ignored.
func (t *TracingCollector) FinishSpan(spanCtx observability.SpanContext, status string, attrs map[string]string) {
	otelSpanCtx, ok := spanCtx.(*OTelSpanContext)
	if !ok {
		return
	}

	otelSpanCtx.span.SetAttributes(toAttributes(attrs)...)
	otelSpanCtx.SetStatus(status)
	otelSpanCtx.span.End()
}

var _ observability.TracingCollector = (*TracingCollector)(nil)

// OTelSpanContext implements observability.SpanContext by wrapping an OpenTelemetry span.
type OTelSpanContext struct {
	span trace.Span
}

// SetStatus maps the observability status values to OpenTelemetry status codes.
// Unknown values are recorded as a status attribute.
func (s *OTelSpanContext) SetStatus(status string) {
	switch status {
	case observability.StatusSuccess:
		s.span.SetStatus(codes.Ok, "")

	case observability.StatusError:
		s.span.SetStatus(codes.Error, "Operation failed")

	case observability.StatusCanceled:
		s.span.SetStatus(codes.Error, "Operation cancelled")

	case observability.StatusTimeout:
		s.span.SetStatus(codes.Error, "Operation timed out")

	case observability.StatusConcurrencyConflict:
		s.span.SetStatus(codes.Error, "Concurrency conflict")

	default:
		s.span.SetAttributes(attribute.String(observability.LogAttrStatus, status))
	}
}

// AddAttribute adds an attribute to the span.
func (s *OTelSpanContext) AddAttribute(key, value string) {
	s.span.SetAttributes(attribute.String(key, value))
}

var _ observability.SpanContext = (*OTelSpanContext)(nil)
