package library

import (
	"github.com/AntonStoeckl/library-cqrs-kernel-go/apperror"
)

// Error definitions of the library context.
var (
	LibraryNotFound = apperror.Define(apperror.Definition{
		Code:        "LIBRARY_NOT_FOUND",
		Name:        "LibraryNotFoundError",
		Description: "The requested library does not exist.",
		Meta:        apperror.ExpectedMeta(),
	})

	ValidationError = apperror.Define(apperror.Definition{
		Code:        "LIBRARY_VALIDATION_ERROR",
		Name:        "LibraryValidationError",
		Description: "The input is invalid.",
		Meta:        apperror.ExpectedMeta(),
	})
)

// NewValidationError creates a LIBRARY_VALIDATION_ERROR with payload {details}.
func NewValidationError(details string) *apperror.Error {
	return ValidationError.New(apperror.Payload{"details": details}, nil)
}
