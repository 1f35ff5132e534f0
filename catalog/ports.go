package catalog

import (
	"context"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/bus"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/container"
)

// BookQueryService reads books for the query side. FindByID returns false for an unknown id.
type BookQueryService interface {
	FindAll(ctx context.Context) ([]BookReadModel, error)
	FindByID(ctx context.Context, id string) (BookReadModel, bool, error)
}

// Container tokens.
var (
	BookQueryServiceToken = container.NewToken[BookQueryService]("BookQueryService")
	CommandBusToken       = container.NewToken[bus.Dispatcher]("CatalogCommandBus")
	QueryBusToken         = container.NewToken[bus.Dispatcher]("CatalogQueryBus")
)
