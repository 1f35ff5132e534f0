package apperror

import (
	"errors"
	"strings"
)

// Exposure tells whether an error may be shown to an end user.
type Exposure string

const (
	// Expected errors are business-rule failures (validation, not found, duplicates, conflicts).
	Expected Exposure = "EXPECTED"

	// Unexpected errors are internal faults and must not be rendered verbatim.
	Unexpected Exposure = "UNEXPECTED"
)

// Fault classifies the origin of an Unexpected error.
type Fault string

const (
	FaultBug        Fault = "BUG"
	FaultConfig     Fault = "CONFIG"
	FaultResource   Fault = "RESOURCE"
	FaultDependency Fault = "DEPENDENCY"
)

const (
	publicInternalCode    = "INTERNAL_ERROR"
	publicInternalMessage = "An unexpected error occurred. Please try again later."
)

// Payload carries context information of an Error, e.g. the offending ISBN.
type Payload = map[string]any

// Meta holds the exposure and, for Unexpected errors, the fault classification.
type Meta struct {
	Exposure Exposure
	Fault    Fault
}

// ExpectedMeta returns the Meta for user-facing errors.
func ExpectedMeta() Meta {
	return Meta{Exposure: Expected}
}

// UnexpectedMeta returns the Meta for internal faults of the given origin.
func UnexpectedMeta(fault Fault) Meta {
	return Meta{Exposure: Unexpected, Fault: fault}
}

// Error is the error value returned by handlers, buses and ports.
type Error struct {
	Code        string
	Name        string
	Description string
	Meta        Meta
	Payload     Payload
	Cause       error
}

// Error renders code, description and the cause chain.
func (e *Error) Error() string {
	var sb strings.Builder

	sb.WriteString(e.Code)
	sb.WriteString(": ")
	sb.WriteString(e.Description)

	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}

	return sb.String()
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsExpected reports whether the error is safe to show to an end user.
func (e *Error) IsExpected() bool {
	return e.Meta.Exposure == Expected
}

// Definition describes one kind of Error. Create instances with New, match them with Is.
type Definition struct {
	Code        string
	Name        string
	Description string
	Meta        Meta
}

// Define normalizes a Definition: Expected errors carry no fault, Unexpected errors default to FaultBug.
func Define(def Definition) Definition {
	switch def.Meta.Exposure {
	case Expected:
		def.Meta.Fault = ""

	default:
		def.Meta.Exposure = Unexpected
		if def.Meta.Fault == "" {
			def.Meta.Fault = FaultBug
		}
	}

	return def
}

// New creates an Error of this kind. The payload is copied.
func (d Definition) New(payload Payload, cause error) *Error {
	copied := make(Payload, len(payload))
	for k, v := range payload {
		copied[k] = v
	}

	return &Error{
		Code:        d.Code,
		Name:        d.Name,
		Description: d.Description,
		Meta:        d.Meta,
		Payload:     copied,
		Cause:       cause,
	}
}

// Is reports whether err (or any error it wraps) is an Error of this kind.
func (d Definition) Is(err error) bool {
	appErr, ok := As(err)
	if !ok {
		return false
	}

	return appErr.Code == d.Code
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}

	return nil, false
}

// PublicError is what a boundary (CLI, HTTP) may render to an end user.
type PublicError struct {
	Code    string  `json:"code"`
	Message string  `json:"message"`
	Payload Payload `json:"payload,omitempty"`
}

// Public maps err to its user-visible form.
// Expected errors are rendered as they are, everything else becomes a generic failure.
func Public(err error) PublicError {
	appErr, ok := As(err)
	if !ok || !appErr.IsExpected() {
		return PublicError{Code: publicInternalCode, Message: publicInternalMessage}
	}

	return PublicError{
		Code:    appErr.Code,
		Message: appErr.Description,
		Payload: appErr.Payload,
	}
}
