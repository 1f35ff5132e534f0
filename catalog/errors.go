package catalog

import (
	"github.com/AntonStoeckl/library-cqrs-kernel-go/apperror"
)

// Error definitions of the catalog context.
var (
	ISBNAlreadyExists = apperror.Define(apperror.Definition{
		Code:        "ISBN_ALREADY_EXISTS",
		Name:        "IsbnAlreadyExistsError",
		Description: "A book with this ISBN is already registered.",
		Meta:        apperror.ExpectedMeta(),
	})

	BookNotFound = apperror.Define(apperror.Definition{
		Code:        "BOOK_NOT_FOUND",
		Name:        "BookNotFoundError",
		Description: "The requested book does not exist.",
		Meta:        apperror.ExpectedMeta(),
	})

	ValidationError = apperror.Define(apperror.Definition{
		Code:        "CATALOG_VALIDATION_ERROR",
		Name:        "CatalogValidationError",
		Description: "The input is invalid.",
		Meta:        apperror.ExpectedMeta(),
	})
)

// NewISBNAlreadyExists creates an ISBN_ALREADY_EXISTS error with payload {isbn}.
func NewISBNAlreadyExists(isbn string) *apperror.Error {
	return ISBNAlreadyExists.New(apperror.Payload{"isbn": isbn}, nil)
}

// NewBookNotFound creates a BOOK_NOT_FOUND error with payload {id}.
func NewBookNotFound(id string) *apperror.Error {
	return BookNotFound.New(apperror.Payload{"id": id}, nil)
}

// NewValidationError creates a CATALOG_VALIDATION_ERROR with payload {details}.
func NewValidationError(details string) *apperror.Error {
	return ValidationError.New(apperror.Payload{"details": details}, nil)
}
