package oteladapters_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/bus"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/container"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/execution"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/observability"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/observability/oteladapters"
)

func givenTracingCollector() (*oteladapters.TracingCollector, *tracetest.InMemoryExporter) {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	return oteladapters.NewTracingCollector(provider.Tracer("test")), exporter
}

func Test_TracingCollector_StartAndFinishSpan(t *testing.T) {
	// arrange
	collector, exporter := givenTracingCollector()

	// act
	_, span := collector.StartSpan(context.Background(), "eventstore.persist", map[string]string{"operation": "persist"})
	span.AddAttribute("aggregate_type", "Book")
	collector.FinishSpan(span, observability.StatusSuccess, map[string]string{"event_count": "1"})

	// assert
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "eventstore.persist", spans[0].Name)
	assert.Equal(t, codes.Ok, spans[0].Status.Code)
	assertSpanHasAttribute(t, spans[0], "operation", "persist")
	assertSpanHasAttribute(t, spans[0], "aggregate_type", "Book")
	assertSpanHasAttribute(t, spans[0], "event_count", "1")
}

func Test_TracingCollector_MapsStatuses(t *testing.T) {
	testCases := map[string]struct {
		status      string
		code        codes.Code
		description string
	}{
		"error":     {observability.StatusError, codes.Error, "Operation failed"},
		"canceled":  {observability.StatusCanceled, codes.Error, "Operation cancelled"},
		"timeout":   {observability.StatusTimeout, codes.Error, "Operation timed out"},
		"conflict":  {observability.StatusConcurrencyConflict, codes.Error, "Concurrency conflict"},
		"unmatched": {"partial", codes.Unset, ""},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			collector, exporter := givenTracingCollector()

			_, span := collector.StartSpan(context.Background(), "op", nil)
			collector.FinishSpan(span, tc.status, nil)

			spans := exporter.GetSpans()
			require.Len(t, spans, 1)
			assert.Equal(t, tc.code, spans[0].Status.Code)
			assert.Equal(t, tc.description, spans[0].Status.Description)
		})
	}
}

func Test_TracingCollector_IgnoresForeignSpanContext(t *testing.T) {
	collector, exporter := givenTracingCollector()

	assert.NotPanics(t, func() {
		collector.FinishSpan(&foreignSpanContext{}, observability.StatusSuccess, nil)
	})
	assert.Empty(t, exporter.GetSpans())
}

type pingMessage struct{}

func (pingMessage) MessageType() string { return "test.ping" }

func Test_TracingCollector_RecordsBusDispatchSpans(t *testing.T) {
	// arrange
	collector, exporter := givenTracingCollector()
	meter, reader := givenMeter()

	observabilityMiddleware, err := bus.ObservabilityMiddleware(bus.KindCommand,
		bus.WithTracing(collector),
		bus.WithMetrics(oteladapters.NewMetricsCollector(meter)),
	)
	require.NoError(t, err)

	b, err := bus.New(bus.Options{
		Handlers: []bus.HandlerDefinition{{
			Type: "test.ping",
			Factory: func(*container.Container) bus.Handler {
				return func(context.Context, bus.Message, execution.Context) (any, error) { return "pong", nil }
			},
		}},
		Middlewares: []bus.Middleware{observabilityMiddleware},
		Container:   container.New(),
	})
	require.NoError(t, err)

	// act
	_, err = b.Execute(context.Background(), pingMessage{}, execution.NewContext(container.New()))

	// assert
	require.NoError(t, err)
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, bus.SpanNameDispatch, spans[0].Name)
	assertSpanHasAttribute(t, spans[0], bus.LogAttrMessageType, "test.ping")

	histogram := findHistogramMetric(t, collect(t, reader), bus.DispatchDurationMetric)
	assert.Len(t, histogram.DataPoints, 1)
}

type foreignSpanContext struct{}

func (*foreignSpanContext) SetStatus(string)            {}
func (*foreignSpanContext) AddAttribute(string, string) {}

func assertSpanHasAttribute(t *testing.T, span tracetest.SpanStub, key, expectedValue string) {
	t.Helper()

	for _, attr := range span.Attributes {
		if attr.Key == attribute.Key(key) && attr.Value.AsString() == expectedValue {
			return
		}
	}

	assert.Failf(t, "missing span attribute", "span %s should have attribute %s=%s", span.Name, key, expectedValue)
}
