// Package librarybus assembles the command and query buses of the library context.
package librarybus

import (
	"github.com/AntonStoeckl/library-cqrs-kernel-go/bus"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/container"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/domainevent"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/library"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/library/core"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/library/features/listlibraries"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/library/features/registerlibrary"
)

// CommandDeps are the collaborators of the command handlers.
type CommandDeps struct {
	Libraries core.LibraryRepository
	IDs       domainevent.IDGenerator
}

// QueryDeps are the collaborators of the query handlers.
type QueryDeps struct {
	Libraries library.LibraryQueryService
}

func resolveCommandDeps(c *container.Container) CommandDeps {
	return CommandDeps{
		Libraries: container.Resolve(c, core.LibraryRepositoryToken),
		IDs:       container.Resolve(c, domainevent.IDGeneratorToken),
	}
}

func resolveQueryDeps(c *container.Container) QueryDeps {
	return QueryDeps{Libraries: container.Resolve(c, library.LibraryQueryServiceToken)}
}

// NewCommandBus builds the library command bus with the given middlewares, outermost first.
func NewCommandBus(middlewares ...bus.Middleware) (*bus.TypedBus[CommandDeps], error) {
	builder := bus.NewCommandBusBuilder[CommandDeps](library.CommandTypes...)
	for _, middleware := range middlewares {
		builder.Use(middleware)
	}

	return builder.
		Register(library.RegisterLibraryType, bus.Registration[CommandDeps]{
			HandlerFactory: func(deps CommandDeps) bus.Handler {
				return registerlibrary.NewHandler(deps.Libraries, deps.IDs).BusHandler()
			},
			Settings: bus.HandlerSettings{Transactional: true},
		}).
		Build(resolveCommandDeps)
}

// NewQueryBus builds the library query bus.
func NewQueryBus(middlewares ...bus.Middleware) (*bus.TypedBus[QueryDeps], error) {
	builder := bus.NewQueryBusBuilder[QueryDeps](library.QueryTypes...)
	for _, middleware := range middlewares {
		builder.Use(middleware)
	}

	return builder.
		Register(library.ListLibrariesType, bus.Registration[QueryDeps]{
			HandlerFactory: func(deps QueryDeps) bus.Handler {
				return listlibraries.NewHandler(deps.Libraries).BusHandler()
			},
		}).
		Build(resolveQueryDeps)
}
