package core

import (
	"github.com/AntonStoeckl/library-cqrs-kernel-go/domainevent"
)

// BookRegisteredEventType is the event type identifier.
const BookRegisteredEventType = "catalog.bookRegistered"

// BookRegistered is the payload of the catalog.bookRegistered event.
type BookRegistered struct {
	BookID string `json:"bookId"`
	ISBN   string `json:"isbn"`
	Title  string `json:"title"`
	Author string `json:"author"`
}

// BookRegisteredDraft describes the event recorded when book was registered.
func BookRegisteredDraft(book Book) domainevent.Draft {
	return domainevent.Draft{
		Type:             BookRegisteredEventType,
		AggregateType:    AggregateType,
		AggregateID:      book.ID,
		AggregateVersion: 0,
		SchemaVersion:    1,
		Actor:            domainevent.SystemActor(),
		Purpose:          domainevent.PurposeAuditOnly,
		Payload: BookRegistered{
			BookID: book.ID,
			ISBN:   book.ISBN,
			Title:  book.Title,
			Author: book.Author,
		},
	}
}
