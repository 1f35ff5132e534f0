// Package registerlibrary handles the library.registerLibrary command.
package registerlibrary

import (
	"context"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/apperror"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/bus"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/container"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/domainevent"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/execution"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/library"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/library/core"
)

// Handler registers libraries.
type Handler struct {
	repo core.LibraryRepository
	ids  domainevent.IDGenerator
}

// NewHandler returns a Handler.
func NewHandler(repo core.LibraryRepository, ids domainevent.IDGenerator) *Handler {
	return &Handler{repo: repo, ids: ids}
}

// Handle creates and saves the library and returns its id.
func (h *Handler) Handle(ctx context.Context, cmd library.RegisterLibrary, ec execution.Context) (library.RegisterLibraryResult, error) {
	lib, err := core.CreateLibrary(h.ids.Generate().String(), cmd.Name, cmd.Location)
	if err != nil {
		return library.RegisterLibraryResult{}, err
	}

	if err = h.repo.Save(ctx, lib); err != nil {
		return library.RegisterLibraryResult{}, err
	}

	if ec.Container != nil {
		if store, ok := container.TryResolve(ec.Container, domainevent.StoreToken); ok {
			event, eventErr := domainevent.New(ec, h.ids.Generate(), core.LibraryRegisteredDraft(lib))
			if eventErr != nil {
				return library.RegisterLibraryResult{}, apperror.NewBug(eventErr)
			}

			store.Add(event)
		}
	}

	return library.RegisterLibraryResult{LibraryID: lib.ID}, nil
}

// BusHandler adapts h to bus.Handler.
func (h *Handler) BusHandler() bus.Handler {
	return bus.Handle(h.Handle)
}
