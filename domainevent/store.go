package domainevent

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/apperror"
)

// Store collects the events of one unit of work.
type Store interface {
	// Add collects event in memory.
	Add(event DomainEvent)

	// Save persists all collected events at once.
	// Failures are DEPENDENCY or CONCURRENCY errors.
	Save(ctx context.Context) error

	// Publish hands the saved events to the publisher. Failures are DEPENDENCY errors.
	Publish(ctx context.Context) error

	// Collected returns a copy of the collected events.
	Collected() []DomainEvent
}

// Persister writes events, typically inside the current transaction.
type Persister interface {
	Persist(ctx context.Context, events []DomainEvent) error
}

// Publisher delivers events to subscribers.
type Publisher interface {
	Publish(ctx context.Context, events []DomainEvent) error
}

// ErrPublishBeforeSave is the cause of the BUG error returned by Publish before a successful Save.
var ErrPublishBeforeSave = errors.New("publish called before events were saved")

// CollectingStore is the Store used per unit of work.
type CollectingStore struct {
	mu        sync.Mutex
	persister Persister
	publisher Publisher
	events    []DomainEvent
	saved     bool
}

// NewCollectingStore returns an empty store.
func NewCollectingStore(persister Persister, publisher Publisher) *CollectingStore {
	return &CollectingStore{persister: persister, publisher: publisher}
}

// Add implements Store. Adding after Save requires another Save before Publish.
func (s *CollectingStore) Add(event DomainEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, event)
	s.saved = false
}

// Save implements Store. Errors that are not apperror errors become DEPENDENCY errors.
func (s *CollectingStore) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.events) > 0 {
		for _, event := range s.events {
			if err := event.Validate(); err != nil {
				return apperror.NewBug(err)
			}
		}

		if err := s.persister.Persist(ctx, slices.Clone(s.events)); err != nil {
			return asDependencyError(err)
		}
	}

	s.saved = true

	return nil
}

// Publish implements Store.
func (s *CollectingStore) Publish(ctx context.Context) error {
	s.mu.Lock()
	events := slices.Clone(s.events)
	saved := s.saved
	s.mu.Unlock()

	if !saved {
		return apperror.NewBug(ErrPublishBeforeSave)
	}

	if len(events) == 0 {
		return nil
	}

	if err := s.publisher.Publish(ctx, events); err != nil {
		return asDependencyError(err)
	}

	return nil
}

// Collected implements Store.
func (s *CollectingStore) Collected() []DomainEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.events)
}

func asDependencyError(err error) error {
	if _, ok := apperror.As(err); ok {
		return err
	}

	return apperror.NewDependency(err)
}

// Publishers fans out to several publishers in order. A failing publisher does not keep the
// events from the ones after it; all failures are joined.
type Publishers []Publisher

// Publish implements Publisher.
func (p Publishers) Publish(ctx context.Context, events []DomainEvent) error {
	var errs []error
	for _, publisher := range p {
		if err := publisher.Publish(ctx, events); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
