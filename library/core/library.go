// Package core holds the Library aggregate.
package core

import (
	"context"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/container"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/domainevent"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/library"
)

const (
	// AggregateType names the Library aggregate in domain events.
	AggregateType = "Library"

	// LibraryRegisteredEventType is the event type identifier.
	LibraryRegisteredEventType = "library.libraryRegistered"

	MsgEmptyName = "Name must not be empty"
)

// Library is a library branch.
type Library struct {
	ID       string
	Name     string
	Location string
}

// LibraryRepository is the write-side port. FindAll returns libraries in registration order.
type LibraryRepository interface {
	Save(ctx context.Context, lib Library) error
	FindAll(ctx context.Context) ([]Library, error)
}

// LibraryRepositoryToken binds the LibraryRepository.
var LibraryRepositoryToken = container.NewToken[LibraryRepository]("LibraryRepository")

// CreateLibrary builds a Library. The name must not be empty, the location may be.
func CreateLibrary(id, name, location string) (Library, error) {
	if name == "" {
		return Library{}, library.NewValidationError(MsgEmptyName)
	}

	return Library{ID: id, Name: name, Location: location}, nil
}

// ToDTO converts lib into its public view.
func (l Library) ToDTO() library.LibraryDTO {
	return library.LibraryDTO(l)
}

// LibraryRegistered is the payload of the library.libraryRegistered event.
type LibraryRegistered struct {
	LibraryID string `json:"libraryId"`
	Name      string `json:"name"`
	Location  string `json:"location"`
}

// LibraryRegisteredDraft describes the event recorded when lib was registered.
func LibraryRegisteredDraft(lib Library) domainevent.Draft {
	return domainevent.Draft{
		Type:          LibraryRegisteredEventType,
		AggregateType: AggregateType,
		AggregateID:   lib.ID,
		SchemaVersion: 1,
		Actor:         domainevent.SystemActor(),
		Purpose:       domainevent.PurposeAuditOnly,
		Payload:       LibraryRegistered{LibraryID: lib.ID, Name: lib.Name, Location: lib.Location},
	}
}
