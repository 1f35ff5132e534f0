// Package listbooks handles the catalog.listBooks query.
package listbooks

import (
	"context"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/bus"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/catalog"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/container"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/execution"
)

// Handler lists books.
type Handler struct {
	books catalog.BookQueryService
}

// NewHandler returns a Handler.
func NewHandler(books catalog.BookQueryService) *Handler {
	return &Handler{books: books}
}

// Handle returns all books in the order the query service yields them.
func (h *Handler) Handle(ctx context.Context, _ catalog.ListBooks, _ execution.Context) (catalog.BookListDTO, error) {
	models, err := h.books.FindAll(ctx)
	if err != nil {
		return catalog.BookListDTO{}, err
	}

	books := make([]catalog.BookDTO, 0, len(models))
	for _, m := range models {
		books = append(books, m.ToDTO())
	}

	return catalog.BookListDTO{Books: books, Total: len(books)}, nil
}

// BusHandler adapts h to bus.Handler.
func (h *Handler) BusHandler() bus.Handler {
	return bus.Handle(h.Handle)
}

// Definition registers the handler on an untyped bus.
func Definition() bus.HandlerDefinition {
	return bus.HandlerDefinition{
		Type: catalog.ListBooksType,
		Factory: func(c *container.Container) bus.Handler {
			return NewHandler(container.Resolve(c, catalog.BookQueryServiceToken)).BusHandler()
		},
	}
}
