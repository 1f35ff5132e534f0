package bus

import (
	"context"
	"errors"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/container"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/execution"
)

// Options configure an untyped Bus.
type Options struct {
	Handlers    []HandlerDefinition
	Middlewares []Middleware
	Container   *container.Container
}

type registeredHandler struct {
	handler  Handler
	settings HandlerSettings
}

// Bus dispatches messages to handlers built once at construction.
type Bus struct {
	handlers    map[string]registeredHandler
	middlewares []Middleware
}

// New builds a Bus. Every factory is invoked exactly once against opts.Container.
// A factory that panics (e.g. on a missing registration) propagates the panic.
func New(opts Options) (*Bus, error) {
	if opts.Container == nil {
		return nil, ErrNilContainer
	}

	b := &Bus{
		handlers:    make(map[string]registeredHandler, len(opts.Handlers)),
		middlewares: append([]Middleware(nil), opts.Middlewares...),
	}

	for _, def := range opts.Handlers {
		if _, exists := b.handlers[def.Type]; exists {
			return nil, errors.Join(ErrDuplicateHandler, errors.New(def.Type))
		}

		if def.Factory == nil {
			return nil, errors.Join(ErrNilHandlerFactory, errors.New(def.Type))
		}

		if err := def.Settings.validate(KindCommand); err != nil {
			return nil, errors.Join(err, errors.New(def.Type))
		}

		b.handlers[def.Type] = registeredHandler{
			handler:  def.Factory(opts.Container),
			settings: def.Settings,
		}
	}

	return b, nil
}

// Execute dispatches msg through the middleware chain to its handler.
// A message type without handler yields a BUG error, Execute never panics for that.
func (b *Bus) Execute(ctx context.Context, msg Message, ec execution.Context) (any, error) {
	registered, ok := b.handlers[msg.MessageType()]
	if !ok {
		return nil, missingHandler(msg.MessageType())
	}

	return chain(b.middlewares, registered.handler)(WithSettings(ctx, registered.settings), msg, ec)
}

// HasHandler reports whether a handler is registered for messageType.
func (b *Bus) HasHandler(messageType string) bool {
	_, ok := b.handlers[messageType]

	return ok
}
