// Package getbookbyid handles the catalog.getBookById query.
package getbookbyid

import (
	"context"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/bus"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/catalog"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/container"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/execution"
)

// Handler reads one book.
type Handler struct {
	books catalog.BookQueryService
}

// NewHandler returns a Handler.
func NewHandler(books catalog.BookQueryService) *Handler {
	return &Handler{books: books}
}

// Handle returns the book or BOOK_NOT_FOUND.
func (h *Handler) Handle(ctx context.Context, query catalog.GetBookByID, _ execution.Context) (catalog.BookDTO, error) {
	model, found, err := h.books.FindByID(ctx, query.BookID)
	if err != nil {
		return catalog.BookDTO{}, err
	}

	if !found {
		return catalog.BookDTO{}, catalog.NewBookNotFound(query.BookID)
	}

	return model.ToDTO(), nil
}

// BusHandler adapts h to bus.Handler.
func (h *Handler) BusHandler() bus.Handler {
	return bus.Handle(h.Handle)
}

// Definition registers the handler on an untyped bus.
func Definition() bus.HandlerDefinition {
	return bus.HandlerDefinition{
		Type: catalog.GetBookByIDType,
		Factory: func(c *container.Container) bus.Handler {
			return NewHandler(container.Resolve(c, catalog.BookQueryServiceToken)).BusHandler()
		},
	}
}
