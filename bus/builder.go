package bus

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/container"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/execution"
)

// Kind distinguishes command buses from query buses.
type Kind string

// Bus kinds.
const (
	KindCommand Kind = "command"
	KindQuery   Kind = "query"
)

// Registration binds a message type to a handler factory over the dependency struct D.
type Registration[D any] struct {
	HandlerFactory func(deps D) Handler
	Settings       HandlerSettings
}

// Builder assembles a TypedBus. Registration problems are collected and reported by Build.
type Builder[D any] struct {
	kind          Kind
	declared      []string
	middlewares   []Middleware
	registrations map[string]Registration[D]
	errs          []error
}

// NewCommandBusBuilder starts a command bus that must handle exactly the declared message types.
func NewCommandBusBuilder[D any](declaredTypes ...string) *Builder[D] {
	return newBuilder[D](KindCommand, declaredTypes)
}

// NewQueryBusBuilder starts a query bus that must handle exactly the declared message types.
func NewQueryBusBuilder[D any](declaredTypes ...string) *Builder[D] {
	return newBuilder[D](KindQuery, declaredTypes)
}

func newBuilder[D any](kind Kind, declaredTypes []string) *Builder[D] {
	return &Builder[D]{
		kind:          kind,
		declared:      slices.Clone(declaredTypes),
		registrations: make(map[string]Registration[D], len(declaredTypes)),
	}
}

// Use appends a middleware. The first one added is the outermost.
func (b *Builder[D]) Use(middleware Middleware) *Builder[D] {
	b.middlewares = append(b.middlewares, middleware)

	return b
}

// Register binds messageType to reg.
func (b *Builder[D]) Register(messageType string, reg Registration[D]) *Builder[D] {
	switch {
	case !slices.Contains(b.declared, messageType):
		b.errs = append(b.errs, errors.Join(ErrUndeclaredMessageType, errors.New(messageType)))

	case b.isRegistered(messageType):
		b.errs = append(b.errs, errors.Join(ErrDuplicateHandler, errors.New(messageType)))

	case reg.HandlerFactory == nil:
		b.errs = append(b.errs, errors.Join(ErrNilHandlerFactory, errors.New(messageType)))

	default:
		if err := reg.Settings.validate(b.kind); err != nil {
			b.errs = append(b.errs, errors.Join(err, errors.New(messageType)))
			return b
		}

		b.registrations[messageType] = reg
	}

	return b
}

func (b *Builder[D]) isRegistered(messageType string) bool {
	_, ok := b.registrations[messageType]

	return ok
}

// Build checks that every declared message type is registered and returns the bus.
// resolveDeps runs against the execution context's container on every dispatch.
func (b *Builder[D]) Build(resolveDeps func(c *container.Container) D) (*TypedBus[D], error) {
	errs := slices.Clone(b.errs)

	if resolveDeps == nil {
		errs = append(errs, ErrNilDependencyResolver)
	}

	var missing []string
	for _, messageType := range b.declared {
		if !b.isRegistered(messageType) {
			missing = append(missing, messageType)
		}
	}

	if len(missing) > 0 {
		errs = append(errs, errors.Join(ErrMissingHandlers, errors.New(strings.Join(missing, ", "))))
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	registrations := make(map[string]Registration[D], len(b.registrations))
	for messageType, reg := range b.registrations {
		registrations[messageType] = reg
	}

	return &TypedBus[D]{
		kind:          b.kind,
		registrations: registrations,
		middlewares:   slices.Clone(b.middlewares),
		resolveDeps:   resolveDeps,
	}, nil
}

// TypedBus dispatches messages to handlers built per call from a typed dependency struct.
type TypedBus[D any] struct {
	kind          Kind
	registrations map[string]Registration[D]
	middlewares   []Middleware
	resolveDeps   func(c *container.Container) D
}

// Execute dispatches msg. Dependencies are resolved from the container that reaches the
// innermost handler, so middlewares that swap the container (unit of work) are honored.
// Nothing is cached between calls.
func (b *TypedBus[D]) Execute(ctx context.Context, msg Message, ec execution.Context) (any, error) {
	reg, ok := b.registrations[msg.MessageType()]
	if !ok {
		return nil, missingHandler(msg.MessageType())
	}

	handler := func(ctx context.Context, msg Message, ec execution.Context) (any, error) {
		return reg.HandlerFactory(b.resolveDeps(ec.Container))(ctx, msg, ec)
	}

	return chain(b.middlewares, handler)(WithSettings(ctx, reg.Settings), msg, ec)
}

// Kind reports whether b is a command or a query bus.
func (b *TypedBus[D]) Kind() Kind {
	return b.kind
}
