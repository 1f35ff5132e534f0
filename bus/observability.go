package bus

import (
	"context"
	"strconv"
	"time"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/execution"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/observability"
)

const (
	// DispatchDurationMetric tracks dispatch duration (OpenTelemetry-compatible).
	DispatchDurationMetric = "bus_dispatch_duration_seconds"

	// DispatchCallsMetric tracks total dispatches.
	DispatchCallsMetric = "bus_dispatch_calls_total"

	// SpanNameDispatch is the tracing span name for one dispatch.
	SpanNameDispatch = "bus.dispatch"

	// LogMsgDispatchStarted is logged when a dispatch begins.
	LogMsgDispatchStarted = "bus dispatch started"

	// LogMsgDispatchCompleted is logged when a dispatch succeeds.
	LogMsgDispatchCompleted = "bus dispatch completed"

	// LogMsgDispatchFailed is logged when a dispatch fails.
	LogMsgDispatchFailed = "bus dispatch failed"

	// LogAttrBusKind is "command" or "query".
	LogAttrBusKind = "bus_kind"
)

type observer struct {
	kind             Kind
	metricsCollector observability.MetricsCollector
	tracingCollector observability.TracingCollector
	contextualLogger observability.ContextualLogger
	logger           observability.Logger
}

// ObservabilityOption defines a functional option for ObservabilityMiddleware.
type ObservabilityOption func(*observer) error

// WithMetrics sets the metrics collector.
func WithMetrics(collector observability.MetricsCollector) ObservabilityOption {
	return func(o *observer) error {
		o.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector.
func WithTracing(collector observability.TracingCollector) ObservabilityOption {
	return func(o *observer) error {
		o.tracingCollector = collector
		return nil
	}
}

// WithContextualLogging sets the contextual logger.
func WithContextualLogging(logger observability.ContextualLogger) ObservabilityOption {
	return func(o *observer) error {
		o.contextualLogger = logger
		return nil
	}
}

// WithLogging sets the basic logger.
func WithLogging(logger observability.Logger) ObservabilityOption {
	return func(o *observer) error {
		o.logger = logger
		return nil
	}
}

// ObservabilityMiddleware instruments every dispatch with metrics, a tracing span and logs.
// All collaborators are optional.
func ObservabilityMiddleware(kind Kind, options ...ObservabilityOption) (Middleware, error) {
	o := &observer{kind: kind}

	for _, option := range options {
		if err := option(o); err != nil {
			return nil, err
		}
	}

	return o.middleware, nil
}

func (o *observer) middleware(ctx context.Context, msg Message, ec execution.Context, next Next) (any, error) {
	start := time.Now()
	messageType := msg.MessageType()

	ctx, span := observability.StartSpan(ctx, o.tracingCollector, SpanNameDispatch, map[string]string{
		LogAttrMessageType:   messageType,
		LogAttrBusKind:       string(o.kind),
		LogAttrCorrelationID: ec.CorrelationID,
	})

	observability.LogDebug(ctx, o.logger, o.contextualLogger, LogMsgDispatchStarted,
		LogAttrMessageType, messageType,
		LogAttrExecutionID, ec.ID,
	)

	result, err := next(ctx, msg, ec)

	duration := time.Since(start)
	status := observability.StatusFromError(err)

	o.recordMetrics(ctx, messageType, status, duration)
	o.finishSpan(span, status, duration, err)

	if err != nil {
		observability.LogError(ctx, o.logger, o.contextualLogger, LogMsgDispatchFailed,
			LogAttrMessageType, messageType,
			observability.LogAttrStatus, status,
			observability.LogAttrDurationMS, observability.ToMilliseconds(duration),
			observability.LogAttrError, err.Error(),
		)

		return nil, err
	}

	observability.LogInfo(ctx, o.logger, o.contextualLogger, LogMsgDispatchCompleted,
		LogAttrMessageType, messageType,
		observability.LogAttrStatus, status,
		observability.LogAttrDurationMS, observability.ToMilliseconds(duration),
	)

	return result, nil
}

func (o *observer) recordMetrics(ctx context.Context, messageType, status string, duration time.Duration) {
	labels := map[string]string{
		LogAttrMessageType:          messageType,
		LogAttrBusKind:              string(o.kind),
		observability.LogAttrStatus: status,
	}

	observability.RecordDuration(ctx, o.metricsCollector, DispatchDurationMetric, duration, labels)
	observability.IncrementCounter(ctx, o.metricsCollector, DispatchCallsMetric, labels)
}

func (o *observer) finishSpan(span observability.SpanContext, status string, duration time.Duration, err error) {
	attrs := map[string]string{
		observability.LogAttrStatus:     status,
		observability.LogAttrDurationMS: strconv.FormatFloat(observability.ToMilliseconds(duration), 'f', 2, 64),
	}

	if err != nil {
		attrs[observability.LogAttrError] = err.Error()
	}

	observability.FinishSpan(o.tracingCollector, span, status, attrs)
}
