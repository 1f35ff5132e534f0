package domainevent

import (
	"context"
	"errors"

	jsoniter "github.com/json-iterator/go"
)

// ErrPayloadMismatch is returned by a Schema whose payload does not fit.
var ErrPayloadMismatch = errors.New("payload does not match schema")

// Schema parses and checks the payload of one event type.
type Schema[T any] interface {
	Parse(payload []byte) (T, error)
}

// SchemaFunc adapts a function to Schema.
type SchemaFunc[T any] func(payload []byte) (T, error)

// Parse implements Schema.
func (f SchemaFunc[T]) Parse(payload []byte) (T, error) {
	return f(payload)
}

// JSONSchema decodes the payload into T and runs the optional validations on the result.
func JSONSchema[T any](validations ...func(T) error) Schema[T] {
	return SchemaFunc[T](func(payload []byte) (T, error) {
		var parsed T

		if err := jsoniter.ConfigFastest.Unmarshal(payload, &parsed); err != nil {
			return parsed, errors.Join(ErrPayloadMismatch, err)
		}

		for _, validate := range validations {
			if err := validate(parsed); err != nil {
				return parsed, errors.Join(ErrPayloadMismatch, err)
			}
		}

		return parsed, nil
	})
}

// Subscription is the type-erased form of a subscriber registration.
type Subscription struct {
	EventType string
	Parse     func(payload []byte) (any, error)
	Handle    func(ctx context.Context, event DomainEvent, payload any) error
}

// Subscriber accepts subscriptions.
type Subscriber interface {
	Subscribe(sub Subscription)
}

// Subscribe registers a typed handler for eventType.
// Events whose payload the schema rejects are not delivered to handler.
func Subscribe[T any](
	s Subscriber,
	eventType string,
	schema Schema[T],
	handler func(ctx context.Context, event DomainEvent, payload T) error,
) {
	s.Subscribe(Subscription{
		EventType: eventType,
		Parse: func(payload []byte) (any, error) {
			return schema.Parse(payload)
		},
		Handle: func(ctx context.Context, event DomainEvent, payload any) error {
			return handler(ctx, event, payload.(T))
		},
	})
}
