package helper

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/catalog"
	catalogcore "github.com/AntonStoeckl/library-cqrs-kernel-go/catalog/core"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/container"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/domainevent"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/execution"
)

// FixedClock is the occurred-at time of fixture events.
var FixedClock = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func givenUniqueID(t testing.TB) uuid.UUID {
	id, err := uuid.NewV7()
	assert.NoError(t, err, "error in arranging test data")

	return id
}

// GivenBook returns a valid, available book with a fresh id.
func GivenBook(t testing.TB, isbn string) catalogcore.Book {
	book, err := catalogcore.CreateBook(givenUniqueID(t).String(), catalog.RegisterBookInput{
		ISBN:   isbn,
		Title:  "吾輩は猫である",
		Author: "夏目漱石",
	})
	assert.NoError(t, err, "error in arranging test data")

	return book
}

// FixtureBookRegistered builds the catalog.bookRegistered event of book at the given aggregate
// version, caused by a fresh root execution context.
func FixtureBookRegistered(t testing.TB, book catalogcore.Book, version int) domainevent.DomainEvent {
	draft := catalogcore.BookRegisteredDraft(book)
	draft.AggregateVersion = version
	draft.OccurredAt = FixedClock

	event, err := domainevent.New(execution.NewContext(container.New()), givenUniqueID(t), draft)
	assert.NoError(t, err, "error in arranging test data")

	return event
}
