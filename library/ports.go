package library

import (
	"context"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/bus"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/container"
)

// LibraryQueryService reads libraries for the query side.
type LibraryQueryService interface {
	FindAll(ctx context.Context) ([]LibraryDTO, error)
}

// Container tokens.
var (
	LibraryQueryServiceToken = container.NewToken[LibraryQueryService]("LibraryQueryService")
	CommandBusToken          = container.NewToken[bus.Dispatcher]("LibraryCommandBus")
	QueryBusToken            = container.NewToken[bus.Dispatcher]("LibraryQueryBus")
)
