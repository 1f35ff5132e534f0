// Package catalogbus assembles the command and query buses of the catalog context.
package catalogbus

import (
	"time"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/bus"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/catalog"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/catalog/core"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/catalog/features/getbookbyid"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/catalog/features/listbooks"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/catalog/features/registerbook"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/container"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/domainevent"
)

// CommandDeps are the collaborators of the command handlers.
type CommandDeps struct {
	Books core.BookRepository
	IDs   domainevent.IDGenerator
}

// ResolveCommandDeps reads CommandDeps from c. Inside a unit of work c is the transaction scope.
func ResolveCommandDeps(c *container.Container) CommandDeps {
	return CommandDeps{
		Books: container.Resolve(c, core.BookRepositoryToken),
		IDs:   container.Resolve(c, domainevent.IDGeneratorToken),
	}
}

// QueryDeps are the collaborators of the query handlers.
type QueryDeps struct {
	Books catalog.BookQueryService
}

// ResolveQueryDeps reads QueryDeps from c.
func ResolveQueryDeps(c *container.Container) QueryDeps {
	return QueryDeps{Books: container.Resolve(c, catalog.BookQueryServiceToken)}
}

type settings struct {
	middlewares []bus.Middleware
	retry       *bus.RetryPolicy
}

// Option configures the catalog buses.
type Option func(*settings)

// WithMiddlewares appends middlewares, outermost first.
func WithMiddlewares(middlewares ...bus.Middleware) Option {
	return func(s *settings) {
		s.middlewares = append(s.middlewares, middlewares...)
	}
}

// WithRetry retries catalog.registerBook on concurrency conflicts.
// Once all attempts failed the last error is returned unchanged.
func WithRetry(maxAttempts int, backoff time.Duration) Option {
	return func(s *settings) {
		s.retry = &bus.RetryPolicy{
			MaxAttempts: maxAttempts,
			Backoff:     backoff,
			ErrorMapper: func(err error) error { return err },
		}
	}
}

func newSettings(options []Option) settings {
	var s settings
	for _, option := range options {
		option(&s)
	}

	return s
}

// NewCommandBus builds the catalog command bus. catalog.registerBook is transactional.
func NewCommandBus(options ...Option) (*bus.TypedBus[CommandDeps], error) {
	s := newSettings(options)
	builder := bus.NewCommandBusBuilder[CommandDeps](catalog.CommandTypes...)

	for _, middleware := range s.middlewares {
		builder.Use(middleware)
	}

	return builder.
		Register(catalog.RegisterBookType, bus.Registration[CommandDeps]{
			HandlerFactory: func(deps CommandDeps) bus.Handler {
				return registerbook.NewHandler(deps.Books, deps.IDs).BusHandler()
			},
			Settings: bus.HandlerSettings{Transactional: true, Retry: s.retry},
		}).
		Build(ResolveCommandDeps)
}

// NewQueryBus builds the catalog query bus.
func NewQueryBus(options ...Option) (*bus.TypedBus[QueryDeps], error) {
	s := newSettings(options)
	builder := bus.NewQueryBusBuilder[QueryDeps](catalog.QueryTypes...)

	for _, middleware := range s.middlewares {
		builder.Use(middleware)
	}

	return builder.
		Register(catalog.ListBooksType, bus.Registration[QueryDeps]{
			HandlerFactory: func(deps QueryDeps) bus.Handler {
				return listbooks.NewHandler(deps.Books).BusHandler()
			},
		}).
		Register(catalog.GetBookByIDType, bus.Registration[QueryDeps]{
			HandlerFactory: func(deps QueryDeps) bus.Handler {
				return getbookbyid.NewHandler(deps.Books).BusHandler()
			},
		}).
		Build(ResolveQueryDeps)
}

// Definitions returns the catalog handlers for an untyped bus.Bus.
func Definitions() []bus.HandlerDefinition {
	return []bus.HandlerDefinition{
		registerbook.Definition(),
		listbooks.Definition(),
		getbookbyid.Definition(),
	}
}
