package bus

import (
	"context"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/container"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/execution"
)

// Message is a command or query routed by its type discriminator.
type Message interface {
	MessageType() string
}

// Handler processes one message.
type Handler func(ctx context.Context, msg Message, ec execution.Context) (any, error)

// Next continues the middleware chain.
type Next func(ctx context.Context, msg Message, ec execution.Context) (any, error)

// Middleware wraps the dispatch of every message.
// It may act before and after calling next, or short-circuit by not calling it.
type Middleware func(ctx context.Context, msg Message, ec execution.Context, next Next) (any, error)

// HandlerFactory builds a Handler, resolving its collaborators from the container.
type HandlerFactory func(c *container.Container) Handler

// HandlerDefinition registers a handler for one message type on the untyped Bus.
type HandlerDefinition struct {
	Type     string
	Factory  HandlerFactory
	Settings HandlerSettings
}

// Dispatcher is implemented by both Bus and TypedBus.
type Dispatcher interface {
	Execute(ctx context.Context, msg Message, ec execution.Context) (any, error)
}

// chain composes middlewares right-to-left around handler, so middlewares[0] runs outermost.
func chain(middlewares []Middleware, handler Handler) Next {
	next := Next(handler)

	for i := len(middlewares) - 1; i >= 0; i-- {
		middleware := middlewares[i]
		inner := next

		next = func(ctx context.Context, msg Message, ec execution.Context) (any, error) {
			return middleware(ctx, msg, ec, inner)
		}
	}

	return next
}
