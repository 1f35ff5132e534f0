package postgresengine

import "errors"

var (
	ErrNilDatabaseConnection = errors.New("database connection must not be nil")
	ErrEmptyTableName        = errors.New("events table name must not be empty")
	ErrBuildingQueryFailed   = errors.New("building the query failed")
	ErrQueryingEventsFailed  = errors.New("querying events failed")
	ErrScanningDBRowFailed   = errors.New("scanning the database row failed")
	ErrPersistingFailed      = errors.New("persisting events failed")
)
