// Package postgreswrapper opens the integration test database through the adapter selected
// by ADAPTER_TYPE (pgxpool, sqldb or sqlx). Tests are skipped when POSTGRES_TEST_DSN is unset.
package postgreswrapper

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/config"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/internal/dbadapter"
)

// Environment variables read by Open.
const (
	EnvTestDSN     = "POSTGRES_TEST_DSN"
	EnvAdapterType = "ADAPTER_TYPE"
)

// Adapter types
const (
	typePGXPool = "pgxpool"
	typeSQLDB   = "sqldb"
	typeSQLX    = "sqlx"
)

// Wrapper bundles the adapter under test with a sqlx handle on the same database.
type Wrapper struct {
	Type    string
	Adapter dbadapter.DBAdapter
	SQLX    *sqlx.DB
}

// Open connects with the adapter named by ADAPTER_TYPE, pgxpool by default.
// Connections are closed when the test ends.
func Open(t testing.TB) *Wrapper {
	t.Helper()

	dsn := os.Getenv(EnvTestDSN)
	if dsn == "" {
		t.Skipf("%s is not set", EnvTestDSN)
	}

	ctx := context.Background()
	adapterType := strings.ToLower(os.Getenv(EnvAdapterType))

	switch adapterType {
	case typePGXPool, "":
		pool, err := config.OpenPGXPool(ctx, dsn)
		require.NoError(t, err, "error connecting to DB pool in test setup")
		db := sqlx.NewDb(stdlib.OpenDBFromPool(pool), "pgx")
		t.Cleanup(func() {
			_ = db.Close()
			pool.Close()
		})

		return &Wrapper{Type: typePGXPool, Adapter: dbadapter.NewPGXAdapter(pool), SQLX: db}

	case typeSQLDB:
		db, err := config.OpenSQLDB(ctx, dsn)
		require.NoError(t, err, "error connecting to DB in test setup")
		t.Cleanup(func() { _ = db.Close() })

		return &Wrapper{Type: typeSQLDB, Adapter: dbadapter.NewSQLAdapter(db), SQLX: sqlx.NewDb(db, "postgres")}

	case typeSQLX:
		db, err := config.OpenSQLX(ctx, dsn)
		require.NoError(t, err, "error connecting to DB in test setup")
		t.Cleanup(func() { _ = db.Close() })

		return &Wrapper{Type: typeSQLX, Adapter: dbadapter.NewSQLXAdapter(db), SQLX: db}

	default:
		panic(fmt.Sprintf("unsupported adapter type from env: %s", adapterType))
	}
}

// DB returns the underlying *sql.DB.
func (w *Wrapper) DB() *sql.DB {
	return w.SQLX.DB
}

// RecreateTable drops table and runs ddl.
func (w *Wrapper) RecreateTable(t testing.TB, table, ddl string) {
	t.Helper()

	_, err := w.Adapter.Exec(context.Background(), "DROP TABLE IF EXISTS "+table)
	require.NoError(t, err, "error dropping table "+table)

	_, err = w.Adapter.Exec(context.Background(), ddl)
	require.NoError(t, err, "error creating table "+table)
}
