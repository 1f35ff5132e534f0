package dbadapter

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

// SQLQuerier is satisfied by *sql.DB, *sql.Tx, *sqlx.DB and *sqlx.Tx.
type SQLQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SQLAdapter implements DBAdapter for database/sql.
type SQLAdapter struct {
	db SQLQuerier
}

// NewSQLAdapter creates a new SQL adapter over a DB or a transaction.
func NewSQLAdapter(db SQLQuerier) *SQLAdapter {
	return &SQLAdapter{db: db}
}

// NewSQLXAdapter creates a new SQL adapter over a sqlx DB or transaction.
func NewSQLXAdapter(db sqlx.ExtContext) *SQLAdapter {
	return &SQLAdapter{db: db}
}

// Query executes a query and returns wrapped rows.
func (s *SQLAdapter) Query(ctx context.Context, query string) (DBRows, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}

	return &stdRows{rows: rows}, nil
}

// Exec executes a statement and returns wrapped result.
func (s *SQLAdapter) Exec(ctx context.Context, query string) (DBResult, error) {
	result, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return nil, err
	}

	return &stdResult{result: result}, nil
}
