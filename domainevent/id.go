package domainevent

import (
	"github.com/google/uuid"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/container"
)

// IDGenerator hands out domain event ids.
type IDGenerator interface {
	Generate() uuid.UUID
}

// UUIDGenerator generates time-ordered UUIDv7 ids.
type UUIDGenerator struct{}

// Generate implements IDGenerator.
func (UUIDGenerator) Generate() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// Container tokens.
var (
	IDGeneratorToken = container.NewToken[IDGenerator]("DomainEventIdGenerator")
	StoreToken       = container.NewToken[Store]("DomainEventStore")
	PublisherToken   = container.NewToken[Publisher]("DomainEventPublisher")
	SubscriberToken  = container.NewToken[Subscriber]("DomainEventSubscriber")
)
