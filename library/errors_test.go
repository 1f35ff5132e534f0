package library_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/apperror"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/library"
)

func Test_LibraryErrors_AreExpectedWithStableCodes(t *testing.T) {
	testCases := map[string]struct {
		definition apperror.Definition
		code       string
	}{
		"not found":  {library.LibraryNotFound, "LIBRARY_NOT_FOUND"},
		"validation": {library.ValidationError, "LIBRARY_VALIDATION_ERROR"},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			err := tc.definition.New(apperror.Payload{"id": "lib-1"}, nil)

			assert.Equal(t, tc.code, err.Code)
			assert.True(t, err.IsExpected())
			assert.True(t, tc.definition.Is(err))
			assert.Equal(t, tc.code, apperror.Public(err).Code)
		})
	}
}

func Test_NewValidationError_CarriesDetails(t *testing.T) {
	err := library.NewValidationError("Name must not be empty")

	assert.True(t, library.ValidationError.Is(err))
	assert.Equal(t, "Name must not be empty", err.Payload["details"])
}
