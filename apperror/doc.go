// Package apperror provides the error model shared by the buses, the handlers and the ports.
//
// Every fallible operation returns an *Error that is either EXPECTED (user-facing: validation,
// not found, duplicate key, concurrency conflict) or UNEXPECTED with a fault origin
// (BUG, CONFIG, RESOURCE, DEPENDENCY). Error kinds are declared once with Define and matched
// with Definition.Is, which also sees through errors.Join and fmt.Errorf("%w") wrapping.
package apperror
