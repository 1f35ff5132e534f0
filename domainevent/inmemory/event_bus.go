// Package inmemory provides the in-process domain event bus and an in-memory event log.
package inmemory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/apperror"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/domainevent"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/observability"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/retry"
)

const (
	// MaxAttempts is the number of deliveries per subscriber and event.
	MaxAttempts = 3

	// BaseDelay is the wait before the first redelivery; it doubles for every further one.
	BaseDelay = 100 * time.Millisecond

	// LogMsgPayloadSkipped is logged when a subscriber's schema rejects a payload.
	LogMsgPayloadSkipped = "[InMemoryDomainEventBus] payload does not match subscriber schema, skipping"

	// LogAttrEventType identifies the event type in logs.
	LogAttrEventType = "event_type"

	// LogAttrEventID identifies the event in logs.
	LogAttrEventID = "event_id"

	// LogAttrSubscriber is the position of the subscriber within its event type.
	LogAttrSubscriber = "subscriber"
)

// ErrNegativeBaseDelay is returned by WithBaseDelay for a negative delay.
var ErrNegativeBaseDelay = errors.New("base delay must not be negative")

// EventBus implements domainevent.Publisher and domainevent.Subscriber in process.
//
// Events are delivered in order, each to its subscribers in registration order. A failing or
// panicking subscriber is retried up to MaxAttempts times with exponential backoff and then given
// up on with an error log; it never blocks other subscribers or fails Publish.
type EventBus struct {
	mu               sync.RWMutex
	subscriptions    map[string][]domainevent.Subscription
	baseDelay        time.Duration
	logger           observability.Logger
	contextualLogger observability.ContextualLogger
	metricsCollector observability.MetricsCollector
}

// Option defines a functional option for configuring EventBus.
type Option func(*EventBus) error

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(b *EventBus) error {
		b.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger.
func WithContextualLogger(logger observability.ContextualLogger) Option {
	return func(b *EventBus) error {
		b.contextualLogger = logger
		return nil
	}
}

// WithBaseDelay replaces BaseDelay as the wait before the first redelivery.
func WithBaseDelay(delay time.Duration) Option {
	return func(b *EventBus) error {
		if delay < 0 {
			return ErrNegativeBaseDelay
		}

		b.baseDelay = delay

		return nil
	}
}

// WithMetrics records retry metrics per event type.
func WithMetrics(collector observability.MetricsCollector) Option {
	return func(b *EventBus) error {
		b.metricsCollector = collector
		return nil
	}
}

// NewEventBus returns an EventBus without subscriptions.
func NewEventBus(options ...Option) (*EventBus, error) {
	b := &EventBus{
		subscriptions: make(map[string][]domainevent.Subscription),
		baseDelay:     BaseDelay,
	}

	for _, option := range options {
		if err := option(b); err != nil {
			return nil, err
		}
	}

	return b, nil
}

// Subscribe implements domainevent.Subscriber.
func (b *EventBus) Subscribe(sub domainevent.Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subscriptions[sub.EventType] = append(b.subscriptions[sub.EventType], sub)
}

// Publish implements domainevent.Publisher.
// It only fails when ctx is cancelled, with a DEPENDENCY error; delivery stops at that point.
func (b *EventBus) Publish(ctx context.Context, events []domainevent.DomainEvent) error {
	for _, event := range events {
		for i, sub := range b.subscriptionsFor(event.Type) {
			if err := ctx.Err(); err != nil {
				return apperror.NewDependency(err)
			}

			payload, err := sub.Parse(event.Payload)
			if err != nil {
				observability.LogDebug(ctx, b.logger, b.contextualLogger, LogMsgPayloadSkipped,
					LogAttrEventType, event.Type,
					LogAttrEventID, event.ID.String(),
					LogAttrSubscriber, i,
					observability.LogAttrError, err.Error(),
				)

				continue
			}

			if err = b.deliverWithRetry(ctx, sub, event, payload); err != nil {
				if ctx.Err() != nil {
					return apperror.NewDependency(ctx.Err())
				}

				observability.LogError(ctx, b.logger, b.contextualLogger,
					fmt.Sprintf("[InMemoryDomainEventBus] All %d retries failed for event: %s", MaxAttempts, event.Type),
					LogAttrEventType, event.Type,
					LogAttrEventID, event.ID.String(),
					LogAttrSubscriber, i,
					observability.LogAttrError, err.Error(),
				)
			}
		}
	}

	return nil
}

func (b *EventBus) subscriptionsFor(eventType string) []domainevent.Subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return append([]domainevent.Subscription(nil), b.subscriptions[eventType]...)
}

func (b *EventBus) deliverWithRetry(
	ctx context.Context,
	sub domainevent.Subscription,
	event domainevent.DomainEvent,
	payload any,
) error {
	options := []retry.Option{
		retry.WithMaxAttempts(MaxAttempts),
		retry.WithBaseDelay(b.baseDelay),
		retry.WithJitterFactor(0),
		retry.WithShouldRetry(func(error) bool { return ctx.Err() == nil }),
	}

	if b.metricsCollector != nil {
		options = append(options, retry.WithMetrics(b.metricsCollector, event.Type))
	}

	_, err := retry.WithExponentialBackoff(
		ctx,
		func(ctx context.Context) error {
			return deliver(ctx, sub, event, payload)
		},
		options...,
	)

	return err
}

func deliver(ctx context.Context, sub domainevent.Subscription, event domainevent.DomainEvent, payload any) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("subscriber panicked: %v", recovered)
		}
	}()

	return sub.Handle(ctx, event, payload)
}
