package bus

import (
	"context"
	"fmt"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/execution"
)

// Handle adapts a handler over a concrete message and result type to a Handler.
// A message of another type is reported as BUG.
func Handle[M Message, R any](fn func(ctx context.Context, msg M, ec execution.Context) (R, error)) Handler {
	return func(ctx context.Context, msg Message, ec execution.Context) (any, error) {
		typed, ok := msg.(M)
		if !ok {
			var expected M
			return nil, wrongMessage(expected, msg)
		}

		return fn(ctx, typed, ec)
	}
}

// ExecuteAs dispatches msg and asserts the result type.
func ExecuteAs[R any](ctx context.Context, dispatcher Dispatcher, msg Message, ec execution.Context) (R, error) {
	var zero R

	result, err := dispatcher.Execute(ctx, msg, ec)
	if err != nil {
		return zero, err
	}

	typed, ok := result.(R)
	if !ok {
		return zero, fmt.Errorf("%w: %s returned %T, want %T", ErrUnexpectedResultType, msg.MessageType(), result, zero)
	}

	return typed, nil
}
