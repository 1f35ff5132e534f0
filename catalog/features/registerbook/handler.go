// Package registerbook handles the catalog.registerBook command.
package registerbook

import (
	"context"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/apperror"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/bus"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/catalog"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/catalog/core"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/container"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/domainevent"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/execution"
)

// Handler registers books.
type Handler struct {
	repo core.BookRepository
	ids  domainevent.IDGenerator
}

// NewHandler returns a Handler. ids hands out both book ids and event ids.
func NewHandler(repo core.BookRepository, ids domainevent.IDGenerator) *Handler {
	return &Handler{repo: repo, ids: ids}
}

// Handle validates the input, rejects a known ISBN, then saves the new book.
// When the execution context carries a domainevent.Store, catalog.bookRegistered is collected.
func (h *Handler) Handle(ctx context.Context, cmd catalog.RegisterBook, ec execution.Context) (catalog.BookDTO, error) {
	if err := core.ValidateInput(cmd.Input); err != nil {
		return catalog.BookDTO{}, err
	}

	_, exists, err := h.repo.FindByISBN(ctx, cmd.Input.ISBN)
	if err != nil {
		return catalog.BookDTO{}, err
	}

	if exists {
		return catalog.BookDTO{}, catalog.NewISBNAlreadyExists(cmd.Input.ISBN)
	}

	book, err := core.CreateBook(h.ids.Generate().String(), cmd.Input)
	if err != nil {
		return catalog.BookDTO{}, err
	}

	if err = h.repo.Save(ctx, book); err != nil {
		return catalog.BookDTO{}, err
	}

	if err = h.recordEvent(ec, book); err != nil {
		return catalog.BookDTO{}, err
	}

	return book.ToDTO(), nil
}

func (h *Handler) recordEvent(ec execution.Context, book core.Book) error {
	if ec.Container == nil {
		return nil
	}

	store, ok := container.TryResolve(ec.Container, domainevent.StoreToken)
	if !ok {
		return nil
	}

	event, err := domainevent.New(ec, h.ids.Generate(), core.BookRegisteredDraft(book))
	if err != nil {
		return apperror.NewBug(err)
	}

	store.Add(event)

	return nil
}

// BusHandler adapts h to bus.Handler.
func (h *Handler) BusHandler() bus.Handler {
	return bus.Handle(h.Handle)
}

// Definition registers the handler on an untyped bus.
// The repository and the id generator are resolved once, when the bus is built.
func Definition() bus.HandlerDefinition {
	return bus.HandlerDefinition{
		Type: catalog.RegisterBookType,
		Factory: func(c *container.Container) bus.Handler {
			return NewHandler(
				container.Resolve(c, core.BookRepositoryToken),
				container.Resolve(c, domainevent.IDGeneratorToken),
			).BusHandler()
		},
		Settings: bus.HandlerSettings{Transactional: true},
	}
}
