package postgresengine

import "fmt"

const schemaTemplate = `CREATE TABLE IF NOT EXISTS %[1]s (
    sequence_number   BIGSERIAL PRIMARY KEY,
    id                UUID        NOT NULL UNIQUE,
    type              TEXT        NOT NULL,
    occurred_at       TIMESTAMPTZ NOT NULL,
    aggregate_type    TEXT        NOT NULL,
    aggregate_id      TEXT        NOT NULL,
    aggregate_version INTEGER     NOT NULL,
    schema_version    INTEGER     NOT NULL,
    correlation_id    TEXT        NOT NULL,
    causation_id      TEXT        NOT NULL DEFAULT '',
    actor_type        TEXT        NOT NULL,
    actor_id          TEXT        NOT NULL DEFAULT '',
    purpose           TEXT        NOT NULL,
    payload           JSONB       NOT NULL,
    CONSTRAINT %[1]s_aggregate_version_key UNIQUE (aggregate_type, aggregate_id, aggregate_version)
);

CREATE INDEX IF NOT EXISTS %[1]s_type_idx ON %[1]s (type);
CREATE INDEX IF NOT EXISTS %[1]s_correlation_id_idx ON %[1]s (correlation_id);
`

// SchemaSQL returns the DDL for an events table with the given name.
func SchemaSQL(tableName string) string {
	return fmt.Sprintf(schemaTemplate, tableName)
}
