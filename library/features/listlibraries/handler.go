// Package listlibraries handles the library.listLibraries query.
package listlibraries

import (
	"context"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/bus"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/execution"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/library"
)

// Handler lists libraries.
type Handler struct {
	libraries library.LibraryQueryService
}

// NewHandler returns a Handler.
func NewHandler(libraries library.LibraryQueryService) *Handler {
	return &Handler{libraries: libraries}
}

// Handle returns all libraries with their count.
func (h *Handler) Handle(ctx context.Context, _ library.ListLibraries, _ execution.Context) (library.LibraryListDTO, error) {
	libraries, err := h.libraries.FindAll(ctx)
	if err != nil {
		return library.LibraryListDTO{}, err
	}

	if libraries == nil {
		libraries = []library.LibraryDTO{}
	}

	return library.LibraryListDTO{Libraries: libraries, Total: len(libraries)}, nil
}

// BusHandler adapts h to bus.Handler.
func (h *Handler) BusHandler() bus.Handler {
	return bus.Handle(h.Handle)
}
