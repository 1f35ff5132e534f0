package inmemory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/apperror"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/domainevent"
)

type versionKey struct {
	aggregateType string
	aggregateID   string
	version       int
}

// EventLog is an in-memory domainevent.Persister.
// Like the postgres event store, it refuses a second event for the same aggregate version.
type EventLog struct {
	mu       sync.RWMutex
	events   []domainevent.DomainEvent
	versions map[versionKey]struct{}
}

// NewEventLog returns an empty EventLog.
func NewEventLog() *EventLog {
	return &EventLog{versions: make(map[versionKey]struct{})}
}

// Persist implements domainevent.Persister. A batch is stored completely or not at all;
// a version conflict yields a CONCURRENCY error.
func (l *EventLog) Persist(ctx context.Context, events []domainevent.DomainEvent) error {
	if err := ctx.Err(); err != nil {
		return apperror.NewDependency(err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	batch := make(map[versionKey]struct{}, len(events))
	for _, event := range events {
		key := versionKey{event.AggregateType, event.AggregateID, event.AggregateVersion}

		_, stored := l.versions[key]
		_, inBatch := batch[key]
		if stored || inBatch {
			return apperror.NewConcurrency(fmt.Errorf(
				"event for %s %s version %d already exists",
				event.AggregateType, event.AggregateID, event.AggregateVersion,
			))
		}

		batch[key] = struct{}{}
	}

	for key := range batch {
		l.versions[key] = struct{}{}
	}

	l.events = append(l.events, events...)

	return nil
}

// Events returns all persisted events in insertion order.
func (l *EventLog) Events() []domainevent.DomainEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return slices.Clone(l.events)
}

// Load returns the events of one aggregate ordered by version.
func (l *EventLog) Load(_ context.Context, aggregateType, aggregateID string) ([]domainevent.DomainEvent, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var loaded []domainevent.DomainEvent
	for _, event := range l.events {
		if event.AggregateType == aggregateType && event.AggregateID == aggregateID {
			loaded = append(loaded, event)
		}
	}

	slices.SortStableFunc(loaded, func(a, b domainevent.DomainEvent) int {
		return a.AggregateVersion - b.AggregateVersion
	})

	return loaded, nil
}
