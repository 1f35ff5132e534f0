package unitofwork

import (
	"context"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/container"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/domainevent"
)

// InMemoryManager binds a collecting event store on top of an in-memory persister.
// Commit and Rollback do nothing: in-memory repositories apply writes immediately.
type InMemoryManager struct {
	persister domainevent.Persister
}

// NewInMemoryManager creates an InMemoryManager persisting events with persister.
func NewInMemoryManager(persister domainevent.Persister) (*InMemoryManager, error) {
	if persister == nil {
		return nil, ErrNilPersister
	}

	return &InMemoryManager{persister: persister}, nil
}

// Begin implements Manager.
func (m *InMemoryManager) Begin(_ context.Context, scope *container.Container) (Tx, error) {
	container.Register[domainevent.Store](
		scope,
		domainevent.StoreToken,
		domainevent.NewCollectingStore(m.persister, publisherFrom(scope)),
	)

	return noopTx{}, nil
}

type noopTx struct{}

func (noopTx) Commit(context.Context) error   { return nil }
func (noopTx) Rollback(context.Context) error { return nil }
