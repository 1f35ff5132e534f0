package postgresengine

import (
	"context"
	"time"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/observability"
)

// Metric names recorded by the EventStore.
const (
	metricPersistDuration      = "eventstore_persist_duration_seconds"
	metricLoadDuration         = "eventstore_load_duration_seconds"
	metricConcurrencyConflicts = "eventstore_concurrency_conflicts_total"
	metricDatabaseErrors       = "eventstore_database_errors_total"
)

const (
	operationPersist = "persist"
	operationLoad    = "load"

	spanNamePrefix        = "eventstore."
	spanAttrOperation     = "operation"
	spanAttrEventCount    = "event_count"
	spanAttrAggregateType = "aggregate_type"
	spanAttrAggregateID   = "aggregate_id"

	logMsgBuildSelectQueryFailed = "failed to build select query"
	logMsgBuildInsertQueryFailed = "failed to build insert query"
	logMsgDBQueryFailed          = "database query execution failed"
	logMsgDBExecFailed           = "database execution failed during event persist"
	logMsgCloseRowsFailed        = "failed to close database rows"
	logMsgScanRowFailed          = "failed to scan database row"
	logMsgEventsPersisted        = "events persisted"
	logMsgEventsLoaded           = "events loaded"
	logMsgConcurrencyConflict    = "concurrency conflict detected"
	logMsgSQLExecuted            = "executed sql for: "
	logMsgOperation              = "eventstore operation: "

	logAttrQuery         = "query"
	logAttrEventCount    = "event_count"
	logAttrConstraint    = "constraint"
	logAttrAggregateType = "aggregate_type"
	logAttrAggregateID   = "aggregate_id"
)

// logQueryWithDuration logs SQL statements with execution time at debug level.
func (es *EventStore) logQueryWithDuration(ctx context.Context, sqlQuery, action string, duration time.Duration) {
	observability.LogDebug(ctx, es.logger, es.contextualLogger, logMsgSQLExecuted+action,
		observability.LogAttrDurationMS, observability.ToMilliseconds(duration),
		logAttrQuery, sqlQuery,
	)
}

// logOperation logs operational information at info level.
func (es *EventStore) logOperation(ctx context.Context, action string, args ...any) {
	observability.LogInfo(ctx, es.logger, es.contextualLogger, logMsgOperation+action, args...)
}

// logError logs error information at the error level.
func (es *EventStore) logError(ctx context.Context, message string, err error, args ...any) {
	allArgs := []any{observability.LogAttrError, err.Error()}
	allArgs = append(allArgs, args...)
	observability.LogError(ctx, es.logger, es.contextualLogger, message, allArgs...)
}

func (es *EventStore) recordDuration(
	ctx context.Context,
	metric string,
	duration time.Duration,
	operation, status string,
) {
	observability.RecordDuration(ctx, es.metricsCollector, metric, duration, map[string]string{
		spanAttrOperation:           operation,
		observability.LogAttrStatus: status,
	})
}

func (es *EventStore) recordDatabaseError(ctx context.Context, operation string) {
	observability.IncrementCounter(ctx, es.metricsCollector, metricDatabaseErrors, map[string]string{
		spanAttrOperation:           operation,
		observability.LogAttrStatus: observability.StatusError,
	})
}

func (es *EventStore) recordConcurrencyConflict(ctx context.Context, operation string) {
	observability.IncrementCounter(ctx, es.metricsCollector, metricConcurrencyConflicts, map[string]string{
		spanAttrOperation: operation,
		"conflict_type":   "aggregate_version",
	})
}

func (es *EventStore) startSpan(
	ctx context.Context,
	operation string,
	attrs map[string]string,
) (context.Context, observability.SpanContext) {
	if attrs == nil {
		attrs = make(map[string]string)
	}
	attrs[spanAttrOperation] = operation

	return observability.StartSpan(ctx, es.tracingCollector, spanNamePrefix+operation, attrs)
}

func (es *EventStore) finishSpan(span observability.SpanContext, status string, attrs map[string]string) {
	observability.FinishSpan(es.tracingCollector, span, status, attrs)
}
