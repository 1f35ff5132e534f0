package inmemory_test

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/apperror"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/container"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/domainevent"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/domainevent/inmemory"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/execution"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/retry"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/testutil/helper"
)

type testPayload struct {
	Value string `json:"value"`
}

var testPayloadSchema = domainevent.JSONSchema(func(p testPayload) error {
	if p.Value == "" {
		return errors.New("value must not be empty")
	}
	return nil
})

func givenTestEvent(t *testing.T, eventType string, payload any) domainevent.DomainEvent {
	t.Helper()

	event, err := domainevent.New(execution.NewContext(container.New()), uuid.New(), domainevent.Draft{
		Type:             eventType,
		AggregateType:    "TestAggregate",
		AggregateID:      "agg-1",
		AggregateVersion: 1,
		SchemaVersion:    1,
		Actor:            domainevent.SystemActor(),
		Purpose:          domainevent.PurposeAuditOnly,
		Payload:          payload,
	})
	require.NoError(t, err)

	return event
}

func newEventBus(t *testing.T, options ...inmemory.Option) *inmemory.EventBus {
	t.Helper()

	eventBus, err := inmemory.NewEventBus(options...)
	require.NoError(t, err)

	return eventBus
}

func Test_EventBus_Publish_CallsMatchingSubscribersInOrder(t *testing.T) {
	// arrange
	eventBus := newEventBus(t)
	var calls []string

	domainevent.Subscribe(eventBus, "TEST_EVENT", testPayloadSchema,
		func(_ context.Context, _ domainevent.DomainEvent, p testPayload) error {
			calls = append(calls, "first:"+p.Value)
			return nil
		})
	domainevent.Subscribe(eventBus, "TEST_EVENT", testPayloadSchema,
		func(_ context.Context, _ domainevent.DomainEvent, p testPayload) error {
			calls = append(calls, "second:"+p.Value)
			return nil
		})
	domainevent.Subscribe(eventBus, "OTHER_EVENT", testPayloadSchema,
		func(context.Context, domainevent.DomainEvent, testPayload) error {
			calls = append(calls, "other")
			return nil
		})

	events := []domainevent.DomainEvent{
		givenTestEvent(t, "TEST_EVENT", testPayload{Value: "a"}),
		givenTestEvent(t, "TEST_EVENT", testPayload{Value: "b"}),
	}

	// act
	err := eventBus.Publish(context.Background(), events)

	// assert
	require.NoError(t, err)
	assert.Equal(t, []string{"first:a", "second:a", "first:b", "second:b"}, calls)
}

func Test_EventBus_Publish_PassesEnvelopeToSubscriber(t *testing.T) {
	eventBus := newEventBus(t)
	event := givenTestEvent(t, "TEST_EVENT", testPayload{Value: "x"})

	var received domainevent.DomainEvent
	domainevent.Subscribe(eventBus, "TEST_EVENT", testPayloadSchema,
		func(_ context.Context, e domainevent.DomainEvent, _ testPayload) error {
			received = e
			return nil
		})

	require.NoError(t, eventBus.Publish(context.Background(), []domainevent.DomainEvent{event}))

	assert.Equal(t, event.ID, received.ID)
}

func Test_EventBus_Publish_SkipsSubscriberOnSchemaMismatch(t *testing.T) {
	// arrange
	logSpy := helper.NewLogHandlerSpy(false)
	eventBus := newEventBus(t, inmemory.WithLogger(slog.New(logSpy)))
	strictCalls := 0
	lenientCalls := 0

	domainevent.Subscribe(eventBus, "TEST_EVENT", domainevent.JSONSchema[struct{ Value float64 }](),
		func(context.Context, domainevent.DomainEvent, struct{ Value float64 }) error {
			strictCalls++
			return nil
		})
	domainevent.Subscribe(eventBus, "TEST_EVENT", testPayloadSchema,
		func(context.Context, domainevent.DomainEvent, testPayload) error {
			lenientCalls++
			return nil
		})

	// act
	err := eventBus.Publish(context.Background(), []domainevent.DomainEvent{
		givenTestEvent(t, "TEST_EVENT", testPayload{Value: "not-a-number"}),
	})

	// assert
	require.NoError(t, err)
	assert.Zero(t, strictCalls)
	assert.Equal(t, 1, lenientCalls)
	assert.True(t, logSpy.HasDebugLogWithMessage(inmemory.LogMsgPayloadSkipped).Assert())
}

func Test_EventBus_Publish_RetriesFailingSubscriberWithBackoff(t *testing.T) {
	// arrange
	eventBus := newEventBus(t)
	calls := 0

	domainevent.Subscribe(eventBus, "TEST_EVENT", testPayloadSchema,
		func(context.Context, domainevent.DomainEvent, testPayload) error {
			calls++
			if calls < 3 {
				return errors.New("temporary failure")
			}
			return nil
		})

	start := time.Now()

	// act
	err := eventBus.Publish(context.Background(), []domainevent.DomainEvent{
		givenTestEvent(t, "TEST_EVENT", testPayload{Value: "x"}),
	})

	// assert
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.GreaterOrEqual(t, time.Since(start), 300*time.Millisecond)
}

func Test_EventBus_Publish_ContinuesAfterExhaustedSubscriber(t *testing.T) {
	// arrange
	logSpy := helper.NewLogHandlerSpy(false)
	metrics := helper.NewMetricsCollectorSpy(true)
	eventBus := newEventBus(t,
		inmemory.WithContextualLogger(slog.New(logSpy)),
		inmemory.WithMetrics(metrics),
		inmemory.WithBaseDelay(time.Millisecond),
	)
	failingCalls := 0
	succeedingCalls := 0

	domainevent.Subscribe(eventBus, "TEST_EVENT", testPayloadSchema,
		func(context.Context, domainevent.DomainEvent, testPayload) error {
			failingCalls++
			return errors.New("permanent failure")
		})
	domainevent.Subscribe(eventBus, "TEST_EVENT", testPayloadSchema,
		func(context.Context, domainevent.DomainEvent, testPayload) error {
			succeedingCalls++
			return nil
		})

	// act
	err := eventBus.Publish(context.Background(), []domainevent.DomainEvent{
		givenTestEvent(t, "TEST_EVENT", testPayload{Value: "x"}),
	})

	// assert
	require.NoError(t, err)
	assert.Equal(t, 3, failingCalls)
	assert.Equal(t, 1, succeedingCalls)
	assert.True(t, logSpy.HasErrorLogWithMessage("[InMemoryDomainEventBus] All 3 retries failed for event: TEST_EVENT").
		WithAttr(inmemory.LogAttrEventType, "TEST_EVENT").
		Assert())
	assert.True(t, metrics.HasCounterRecordForMetric(retry.ExhaustedMetric).WithLabel("operation", "TEST_EVENT").Assert())
}

func Test_EventBus_Publish_UsesConfiguredBaseDelay(t *testing.T) {
	// arrange
	eventBus := newEventBus(t, inmemory.WithBaseDelay(5*time.Millisecond))
	calls := 0

	domainevent.Subscribe(eventBus, "TEST_EVENT", testPayloadSchema,
		func(context.Context, domainevent.DomainEvent, testPayload) error {
			calls++
			return errors.New("permanent failure")
		})

	start := time.Now()

	// act
	err := eventBus.Publish(context.Background(), []domainevent.DomainEvent{
		givenTestEvent(t, "TEST_EVENT", testPayload{Value: "x"}),
	})

	// assert
	require.NoError(t, err)
	assert.Equal(t, inmemory.MaxAttempts, calls)
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 15*time.Millisecond)
	assert.Less(t, elapsed, 300*time.Millisecond)
}

func Test_NewEventBus_RejectsNegativeBaseDelay(t *testing.T) {
	_, err := inmemory.NewEventBus(inmemory.WithBaseDelay(-time.Millisecond))

	assert.ErrorIs(t, err, inmemory.ErrNegativeBaseDelay)
}

func Test_EventBus_Publish_TreatsPanicAsFailedAttempt(t *testing.T) {
	eventBus := newEventBus(t, inmemory.WithBaseDelay(time.Millisecond))
	var calls atomic.Int32

	domainevent.Subscribe(eventBus, "TEST_EVENT", testPayloadSchema,
		func(context.Context, domainevent.DomainEvent, testPayload) error {
			if calls.Add(1) == 1 {
				panic("first delivery explodes")
			}
			return nil
		})

	err := eventBus.Publish(context.Background(), []domainevent.DomainEvent{
		givenTestEvent(t, "TEST_EVENT", testPayload{Value: "x"}),
	})

	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func Test_EventBus_Publish_StopsOnCancelledContext(t *testing.T) {
	// arrange
	eventBus := newEventBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	domainevent.Subscribe(eventBus, "TEST_EVENT", testPayloadSchema,
		func(context.Context, domainevent.DomainEvent, testPayload) error {
			calls++
			cancel()
			return errors.New("failure")
		})

	// act
	err := eventBus.Publish(ctx, []domainevent.DomainEvent{
		givenTestEvent(t, "TEST_EVENT", testPayload{Value: "a"}),
		givenTestEvent(t, "TEST_EVENT", testPayload{Value: "b"}),
	})

	// assert
	assert.True(t, apperror.DependencyError.Is(err))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func Test_EventBus_Publish_WithoutSubscribersSucceeds(t *testing.T) {
	eventBus := newEventBus(t)

	err := eventBus.Publish(context.Background(), []domainevent.DomainEvent{
		givenTestEvent(t, "UNHANDLED", testPayload{Value: "x"}),
	})

	assert.NoError(t, err)
}
