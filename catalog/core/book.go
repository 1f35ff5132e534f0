// Package core holds the Book aggregate of the catalog context and its pure behaviors.
package core

import (
	"context"
	"regexp"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/catalog"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/container"
)

// AggregateType names the Book aggregate in domain events.
const AggregateType = "Book"

// Validation messages, reported as CATALOG_VALIDATION_ERROR details.
const (
	MsgInvalidISBN    = "ISBN must be a 13-digit number"
	MsgEmptyTitle     = "Title must not be empty"
	MsgEmptyAuthor    = "Author must not be empty"
	MsgEmptyID        = "ID must not be empty"
	MsgUnknownStatus  = "Status must be available or onLoan"
	isbnPatternString = `^\d{13}$`
)

var isbnPattern = regexp.MustCompile(isbnPatternString)

// Status is the lending status of a book.
type Status string

const (
	StatusAvailable Status = catalog.StatusAvailable
	StatusOnLoan    Status = catalog.StatusOnLoan
)

// Book is the catalog aggregate. It is a value: behaviors return updated copies.
type Book struct {
	ID            string
	ISBN          string
	Title         string
	Author        string
	Publisher     string
	PublishedYear *int
	Status        Status
}

// BookRepository is the write-side port of the Book aggregate.
// FindByID and FindByISBN return false when nothing matches. Save inserts or updates by id.
type BookRepository interface {
	FindByID(ctx context.Context, id string) (Book, bool, error)
	FindByISBN(ctx context.Context, isbn string) (Book, bool, error)
	Save(ctx context.Context, book Book) error
}

// BookRepositoryToken binds the BookRepository.
var BookRepositoryToken = container.NewToken[BookRepository]("BookRepository")

// ValidateInput checks the input in the order ISBN, title, author and reports the first problem.
func ValidateInput(input catalog.RegisterBookInput) error {
	switch {
	case !isbnPattern.MatchString(input.ISBN):
		return catalog.NewValidationError(MsgInvalidISBN)

	case input.Title == "":
		return catalog.NewValidationError(MsgEmptyTitle)

	case input.Author == "":
		return catalog.NewValidationError(MsgEmptyAuthor)

	default:
		return nil
	}
}

// CreateBook builds a new available Book from validated input.
func CreateBook(id string, input catalog.RegisterBookInput) (Book, error) {
	if err := ValidateInput(input); err != nil {
		return Book{}, err
	}

	if id == "" {
		return Book{}, catalog.NewValidationError(MsgEmptyID)
	}

	return Book{
		ID:            id,
		ISBN:          input.ISBN,
		Title:         input.Title,
		Author:        input.Author,
		Publisher:     input.Publisher,
		PublishedYear: input.PublishedYear,
		Status:        StatusAvailable,
	}, nil
}

// ChangeBookStatus returns a copy of book with the new status.
func ChangeBookStatus(book Book, status Status) (Book, error) {
	if status != StatusAvailable && status != StatusOnLoan {
		return Book{}, catalog.NewValidationError(MsgUnknownStatus)
	}

	book.Status = status

	return book, nil
}

// ToDTO converts book into its public view.
func (b Book) ToDTO() catalog.BookDTO {
	return catalog.BookDTO{
		ID:            b.ID,
		ISBN:          b.ISBN,
		Title:         b.Title,
		Author:        b.Author,
		Publisher:     b.Publisher,
		PublishedYear: b.PublishedYear,
		Status:        string(b.Status),
	}
}
