// Package execution provides the immutable request-scoped ExecutionContext.
//
// A root context starts a correlation chain (CorrelationID == ID); every forked context keeps
// the correlation id, points its CausationID at the parent's ID and works on a forked Container.
// Deadlines and cancellation travel separately in the context.Context passed next to it.
package execution

import (
	"github.com/google/uuid"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/container"
)

// Context identifies one operation and carries the Container it resolves dependencies from.
// Treat it as a value: derive new contexts with Fork and WithContainer instead of mutating fields.
type Context struct {
	ID            string
	CorrelationID string
	CausationID   string
	Container     *container.Container
}

// NewContext creates a root context for an inbound request.
func NewContext(c *container.Container) Context {
	id := uuid.NewString()

	return Context{
		ID:            id,
		CorrelationID: id,
		Container:     c,
	}
}

// Fork derives the context of a causally dependent sub-operation.
func Fork(parent Context) Context {
	var forked *container.Container
	if parent.Container != nil {
		forked = parent.Container.Fork()
	}

	return Context{
		ID:            uuid.NewString(),
		CorrelationID: parent.CorrelationID,
		CausationID:   parent.ID,
		Container:     forked,
	}
}

// WithContainer returns a copy of ec with only the container replaced.
func WithContainer(ec Context, c *container.Container) Context {
	ec.Container = c
	return ec
}

// IsRoot reports whether ec starts its correlation chain.
func (ec Context) IsRoot() bool {
	return ec.CausationID == "" && ec.CorrelationID == ec.ID
}
