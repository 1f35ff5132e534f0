// Package domainevent defines the domain event envelope and the store, publisher and subscriber
// contracts of the write side.
//
// Command handlers Add events to the request's Store; the unit of work Saves them inside the
// transaction and Publishes them after commit.
package domainevent

import (
	"errors"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/execution"
)

// ActorType discriminates who caused an event.
type ActorType string

// Actor types.
const (
	ActorUser   ActorType = "user"
	ActorSystem ActorType = "system"
)

// Purpose tells consumers how an event is meant to be used.
type Purpose string

// Purposes.
const (
	PurposeEventSourcing Purpose = "event_sourcing"
	PurposeAuditOnly     Purpose = "audit_only"
)

var (
	// ErrInvalidDomainEvent wraps every validation failure of a DomainEvent.
	ErrInvalidDomainEvent = errors.New("invalid domain event")

	// ErrMarshalingPayload is returned when the payload cannot be encoded as JSON.
	ErrMarshalingPayload = errors.New("error marshaling domain event payload")
)

// Actor identifies the user or the system that caused an event. System actors have no ID.
type Actor struct {
	Type ActorType `json:"type"`
	ID   string    `json:"id,omitempty"`
}

// UserActor returns the actor for the user with the given id.
func UserActor(id string) Actor {
	return Actor{Type: ActorUser, ID: id}
}

// SystemActor returns the system actor.
func SystemActor() Actor {
	return Actor{Type: ActorSystem}
}

// DomainEvent is the envelope of every event emitted by a bounded context.
// Payload holds the JSON encoded event specific data.
type DomainEvent struct {
	ID               uuid.UUID           `json:"id"`
	Type             string              `json:"type"`
	OccurredAt       time.Time           `json:"occurredAt"`
	AggregateType    string              `json:"aggregateType"`
	AggregateID      string              `json:"aggregateId"`
	AggregateVersion int                 `json:"aggregateVersion"`
	SchemaVersion    int                 `json:"schemaVersion"`
	CorrelationID    string              `json:"correlationId"`
	CausationID      string              `json:"causationId,omitempty"`
	Actor            Actor               `json:"actor"`
	Purpose          Purpose             `json:"purpose"`
	Payload          jsoniter.RawMessage `json:"payload"`
}

// Validate checks the envelope invariants.
func (e DomainEvent) Validate() error {
	var problems []error

	if e.ID == uuid.Nil {
		problems = append(problems, errors.New("id must not be empty"))
	}

	if e.Type == "" {
		problems = append(problems, errors.New("type must not be empty"))
	}

	if e.OccurredAt.IsZero() {
		problems = append(problems, errors.New("occurredAt must be set"))
	}

	if e.AggregateType == "" || e.AggregateID == "" {
		problems = append(problems, errors.New("aggregate type and id must not be empty"))
	}

	if e.AggregateVersion < 0 {
		problems = append(problems, errors.New("aggregateVersion must not be negative"))
	}

	if e.SchemaVersion <= 0 {
		problems = append(problems, errors.New("schemaVersion must be positive"))
	}

	if e.CorrelationID == "" {
		problems = append(problems, errors.New("correlationId must not be empty"))
	}

	switch e.Actor.Type {
	case ActorUser:
		if e.Actor.ID == "" {
			problems = append(problems, errors.New("user actor needs an id"))
		}
	case ActorSystem:
	default:
		problems = append(problems, errors.New("unknown actor type: "+string(e.Actor.Type)))
	}

	if e.Purpose != PurposeEventSourcing && e.Purpose != PurposeAuditOnly {
		problems = append(problems, errors.New("unknown purpose: "+string(e.Purpose)))
	}

	if !jsoniter.ConfigFastest.Valid(e.Payload) {
		problems = append(problems, errors.New("payload must be valid JSON"))
	}

	if len(problems) > 0 {
		return errors.Join(append([]error{ErrInvalidDomainEvent}, problems...)...)
	}

	return nil
}

// Draft holds the event specific parts of a DomainEvent, New adds the rest.
type Draft struct {
	Type             string
	AggregateType    string
	AggregateID      string
	AggregateVersion int
	SchemaVersion    int
	Actor            Actor
	Purpose          Purpose
	Payload          any
	OccurredAt       time.Time
}

// New builds a validated DomainEvent caused by the operation ec identifies.
// The correlation id is inherited and the causation id points at ec.
// A zero Draft.OccurredAt means now.
func New(ec execution.Context, id uuid.UUID, draft Draft) (DomainEvent, error) {
	payload, err := jsoniter.ConfigFastest.Marshal(draft.Payload)
	if err != nil {
		return DomainEvent{}, errors.Join(ErrMarshalingPayload, err)
	}

	occurredAt := draft.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	event := DomainEvent{
		ID:               id,
		Type:             draft.Type,
		OccurredAt:       occurredAt.UTC(),
		AggregateType:    draft.AggregateType,
		AggregateID:      draft.AggregateID,
		AggregateVersion: draft.AggregateVersion,
		SchemaVersion:    draft.SchemaVersion,
		CorrelationID:    ec.CorrelationID,
		CausationID:      ec.ID,
		Actor:            draft.Actor,
		Purpose:          draft.Purpose,
		Payload:          payload,
	}

	if err = event.Validate(); err != nil {
		return DomainEvent{}, err
	}

	return event, nil
}
