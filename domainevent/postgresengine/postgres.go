package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/apperror"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/domainevent"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/internal/dbadapter"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/observability"
)

const (
	// DefaultTableName is the events table used unless WithTableName is given.
	DefaultTableName = "domain_events"

	dialectPostgres = "postgres"
	castJsonb       = "?::jsonb"

	colSequenceNumber   = "sequence_number"
	colID               = "id"
	colType             = "type"
	colOccurredAt       = "occurred_at"
	colAggregateType    = "aggregate_type"
	colAggregateID      = "aggregate_id"
	colAggregateVersion = "aggregate_version"
	colSchemaVersion    = "schema_version"
	colCorrelationID    = "correlation_id"
	colCausationID      = "causation_id"
	colActorType        = "actor_type"
	colActorID          = "actor_id"
	colPurpose          = "purpose"
	colPayload          = "payload"
)

// EventStore persists domain events in a postgres table.
type EventStore struct {
	db               dbadapter.DBAdapter
	tableName        string
	logger           observability.Logger
	contextualLogger observability.ContextualLogger
	metricsCollector observability.MetricsCollector
	tracingCollector observability.TracingCollector
}

// NewEventStore creates a new EventStore on top of any DBAdapter.
func NewEventStore(db dbadapter.DBAdapter, options ...Option) (*EventStore, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	es := &EventStore{
		db:        db,
		tableName: DefaultTableName,
	}

	for _, option := range options {
		if err := option(es); err != nil {
			return nil, err
		}
	}

	return es, nil
}

// NewEventStoreFromPGXPool creates a new EventStore using a pgx Pool with optional configuration.
func NewEventStoreFromPGXPool(db *pgxpool.Pool, options ...Option) (*EventStore, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return NewEventStore(dbadapter.NewPGXAdapter(db), options...)
}

// NewEventStoreFromPGXTx creates a new EventStore bound to a pgx transaction.
func NewEventStoreFromPGXTx(tx pgx.Tx, options ...Option) (*EventStore, error) {
	if tx == nil {
		return nil, ErrNilDatabaseConnection
	}

	return NewEventStore(dbadapter.NewPGXAdapter(tx), options...)
}

// NewEventStoreFromSQLDB creates a new EventStore using a sql.DB with optional configuration.
func NewEventStoreFromSQLDB(db *sql.DB, options ...Option) (*EventStore, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return NewEventStore(dbadapter.NewSQLAdapter(db), options...)
}

// NewEventStoreFromSQLTx creates a new EventStore bound to a database/sql transaction.
func NewEventStoreFromSQLTx(tx *sql.Tx, options ...Option) (*EventStore, error) {
	if tx == nil {
		return nil, ErrNilDatabaseConnection
	}

	return NewEventStore(dbadapter.NewSQLAdapter(tx), options...)
}

// NewEventStoreFromSQLX creates a new EventStore using a sqlx.DB with optional configuration.
func NewEventStoreFromSQLX(db *sqlx.DB, options ...Option) (*EventStore, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return NewEventStore(dbadapter.NewSQLXAdapter(db), options...)
}

// TableName returns the configured events table.
func (es *EventStore) TableName() string {
	return es.tableName
}

// Persist implements domainevent.Persister. All events are inserted with one statement.
// A unique violation on the aggregate version yields a CONCURRENCY error, every other
// database failure a DEPENDENCY error.
func (es *EventStore) Persist(ctx context.Context, events []domainevent.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	ctx, span := es.startSpan(ctx, operationPersist, map[string]string{spanAttrEventCount: fmt.Sprint(len(events))})

	sqlQuery, buildErr := es.buildInsertQuery(events)
	if buildErr != nil {
		es.logError(ctx, logMsgBuildInsertQueryFailed, buildErr, logAttrEventCount, len(events))
		es.finishSpan(span, observability.StatusError, nil)

		return apperror.NewBug(buildErr)
	}

	start := time.Now()
	_, execErr := es.db.Exec(ctx, sqlQuery)
	duration := time.Since(start)
	es.logQueryWithDuration(ctx, sqlQuery, operationPersist, duration)

	if execErr != nil {
		err := es.classifyPersistError(ctx, execErr, events)
		status := observability.StatusFromError(err)
		es.recordDuration(ctx, metricPersistDuration, duration, operationPersist, status)
		es.finishSpan(span, status, nil)

		return err
	}

	es.logOperation(ctx, logMsgEventsPersisted,
		logAttrEventCount, len(events),
		observability.LogAttrDurationMS, observability.ToMilliseconds(duration),
	)
	es.recordDuration(ctx, metricPersistDuration, duration, operationPersist, observability.StatusSuccess)
	es.finishSpan(span, observability.StatusSuccess, nil)

	return nil
}

func (es *EventStore) classifyPersistError(ctx context.Context, execErr error, events []domainevent.DomainEvent) error {
	if constraint, ok := dbadapter.UniqueViolation(execErr); ok {
		es.logOperation(ctx, logMsgConcurrencyConflict,
			logAttrConstraint, constraint,
			logAttrAggregateType, events[0].AggregateType,
			logAttrAggregateID, events[0].AggregateID,
		)
		es.recordConcurrencyConflict(ctx, operationPersist)

		return apperror.NewConcurrency(execErr)
	}

	es.logError(ctx, logMsgDBExecFailed, execErr)
	es.recordDatabaseError(ctx, operationPersist)

	return apperror.NewDependency(errors.Join(ErrPersistingFailed, execErr))
}

// Load returns the events of one aggregate ordered by aggregate version.
func (es *EventStore) Load(ctx context.Context, aggregateType, aggregateID string) ([]domainevent.DomainEvent, error) {
	ctx, span := es.startSpan(ctx, operationLoad, map[string]string{
		spanAttrAggregateType: aggregateType,
		spanAttrAggregateID:   aggregateID,
	})

	sqlQuery, buildErr := es.buildSelectQuery(aggregateType, aggregateID)
	if buildErr != nil {
		es.logError(ctx, logMsgBuildSelectQueryFailed, buildErr)
		es.finishSpan(span, observability.StatusError, nil)

		return nil, apperror.NewBug(buildErr)
	}

	start := time.Now()
	rows, queryErr := es.db.Query(ctx, sqlQuery)
	if queryErr != nil {
		duration := time.Since(start)
		es.logQueryWithDuration(ctx, sqlQuery, operationLoad, duration)
		es.logError(ctx, logMsgDBQueryFailed, queryErr, logAttrQuery, sqlQuery)
		es.recordDatabaseError(ctx, operationLoad)
		es.recordDuration(ctx, metricLoadDuration, duration, operationLoad, observability.StatusFromError(queryErr))
		es.finishSpan(span, observability.StatusError, nil)

		return nil, apperror.NewDependency(errors.Join(ErrQueryingEventsFailed, queryErr))
	}
	defer es.closeRows(ctx, rows)

	events, scanErr := es.scanEvents(rows)
	duration := time.Since(start)
	es.logQueryWithDuration(ctx, sqlQuery, operationLoad, duration)

	if scanErr != nil {
		es.logError(ctx, logMsgScanRowFailed, scanErr)
		es.recordDatabaseError(ctx, operationLoad)
		es.recordDuration(ctx, metricLoadDuration, duration, operationLoad, observability.StatusError)
		es.finishSpan(span, observability.StatusError, nil)

		return nil, apperror.NewDependency(errors.Join(ErrScanningDBRowFailed, scanErr))
	}

	es.logOperation(ctx, logMsgEventsLoaded,
		logAttrEventCount, len(events),
		observability.LogAttrDurationMS, observability.ToMilliseconds(duration),
	)
	es.recordDuration(ctx, metricLoadDuration, duration, operationLoad, observability.StatusSuccess)
	es.finishSpan(span, observability.StatusSuccess, map[string]string{spanAttrEventCount: fmt.Sprint(len(events))})

	return events, nil
}

func (es *EventStore) scanEvents(rows dbadapter.DBRows) ([]domainevent.DomainEvent, error) {
	events := make([]domainevent.DomainEvent, 0)

	for rows.Next() {
		var (
			event   domainevent.DomainEvent
			id      string
			actor   string
			purpose string
			payload string
		)

		err := rows.Scan(
			&id,
			&event.Type,
			&event.OccurredAt,
			&event.AggregateType,
			&event.AggregateID,
			&event.AggregateVersion,
			&event.SchemaVersion,
			&event.CorrelationID,
			&event.CausationID,
			&actor,
			&event.Actor.ID,
			&purpose,
			&payload,
		)
		if err != nil {
			return nil, err
		}

		parsedID, parseErr := uuid.Parse(id)
		if parseErr != nil {
			return nil, parseErr
		}

		event.ID = parsedID
		event.OccurredAt = event.OccurredAt.UTC()
		event.Actor.Type = domainevent.ActorType(actor)
		event.Purpose = domainevent.Purpose(purpose)
		event.Payload = []byte(payload)

		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

// closeRows safely closes database rows and logs any errors.
func (es *EventStore) closeRows(ctx context.Context, rows dbadapter.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		observability.LogWarn(ctx, es.logger, es.contextualLogger, logMsgCloseRowsFailed,
			observability.LogAttrError, closeErr.Error())
	}
}

func (es *EventStore) buildInsertQuery(events []domainevent.DomainEvent) (string, error) {
	rows := make([]any, 0, len(events))
	for _, event := range events {
		rows = append(rows, goqu.Record{
			colID:               event.ID.String(),
			colType:             event.Type,
			colOccurredAt:       event.OccurredAt.UTC(),
			colAggregateType:    event.AggregateType,
			colAggregateID:      event.AggregateID,
			colAggregateVersion: event.AggregateVersion,
			colSchemaVersion:    event.SchemaVersion,
			colCorrelationID:    event.CorrelationID,
			colCausationID:      event.CausationID,
			colActorType:        string(event.Actor.Type),
			colActorID:          event.Actor.ID,
			colPurpose:          string(event.Purpose),
			colPayload:          goqu.L(castJsonb, string(event.Payload)),
		})
	}

	sqlQuery, _, toSQLErr := goqu.Dialect(dialectPostgres).
		Insert(es.tableName).
		Rows(rows...).
		ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

func (es *EventStore) buildSelectQuery(aggregateType, aggregateID string) (string, error) {
	sqlQuery, _, toSQLErr := goqu.Dialect(dialectPostgres).
		From(es.tableName).
		Select(
			goqu.L(colID+"::text"),
			colType,
			colOccurredAt,
			colAggregateType,
			colAggregateID,
			colAggregateVersion,
			colSchemaVersion,
			colCorrelationID,
			colCausationID,
			colActorType,
			colActorID,
			colPurpose,
			goqu.L(colPayload+"::text"),
		).
		Where(goqu.Ex{
			colAggregateType: aggregateType,
			colAggregateID:   aggregateID,
		}).
		Order(goqu.I(colAggregateVersion).Asc(), goqu.I(colSequenceNumber).Asc()).
		ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}
