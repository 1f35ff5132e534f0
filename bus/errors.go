package bus

import (
	"errors"
	"fmt"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/apperror"
)

var (
	// ErrDuplicateHandler is returned when two handlers are registered for the same message type.
	ErrDuplicateHandler = errors.New("duplicate handler for message type")

	// ErrUndeclaredMessageType is returned when a builder registers a type it did not declare.
	ErrUndeclaredMessageType = errors.New("message type was not declared")

	// ErrMissingHandlers is returned by Build when a declared message type has no registration.
	ErrMissingHandlers = errors.New("declared message types without handler")

	// ErrRetryWithoutErrorMapper is returned when retry settings lack an error mapper.
	ErrRetryWithoutErrorMapper = errors.New("retry settings require an error mapper")

	// ErrInvalidMaxAttempts is returned when retry settings have no positive attempt budget.
	ErrInvalidMaxAttempts = errors.New("retry max attempts must be positive")

	// ErrNegativeBackoff is returned when retry settings have a negative backoff.
	ErrNegativeBackoff = errors.New("retry backoff must not be negative")

	// ErrTransactionalQuery is returned when a query handler is marked transactional.
	ErrTransactionalQuery = errors.New("query handlers cannot be transactional")

	// ErrNilHandlerFactory is returned for a registration without factory.
	ErrNilHandlerFactory = errors.New("handler factory must not be nil")

	// ErrNilContainer is returned when the untyped bus is built without container.
	ErrNilContainer = errors.New("container must not be nil")

	// ErrNilDependencyResolver is returned when Build gets no dependency resolver.
	ErrNilDependencyResolver = errors.New("dependency resolver must not be nil")

	// ErrUnexpectedResultType is returned by ExecuteAs when the handler result has another type.
	ErrUnexpectedResultType = errors.New("unexpected handler result type")
)

func missingHandler(messageType string) *apperror.Error {
	return apperror.Bug.New(
		apperror.Payload{"messageType": messageType},
		errors.New("No handler registered for message type: "+messageType), //nolint:staticcheck // message is part of the contract
	)
}

func wrongMessage(expected, got Message) *apperror.Error {
	return apperror.NewBug(fmt.Errorf("handler expects %T, got %T", expected, got))
}
