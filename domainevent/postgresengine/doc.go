// Package postgresengine persists domain events in a PostgreSQL table.
//
// The EventStore implements domainevent.Persister. It can run on a pgx pool, a pgx transaction,
// a database/sql DB or Tx, or a sqlx DB. Inside a unit of work it is bound to the transaction, so
// the events commit or roll back together with the aggregate state.
//
// The table carries a unique constraint on (aggregate_type, aggregate_id, aggregate_version).
// A second event for the same aggregate version is reported as a CONCURRENCY error.
//
// Logging, metrics and tracing are optional and configured with the With* options.
package postgresengine
