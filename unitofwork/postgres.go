package unitofwork

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/container"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/domainevent"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/domainevent/postgresengine"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/internal/dbadapter"
)

// PGXBeginner is satisfied by *pgxpool.Pool and *pgx.Conn.
type PGXBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// SQLBeginner is satisfied by *sql.DB and *sqlx.DB.
type SQLBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

type postgresConfig struct {
	eventStoreOptions []postgresengine.Option
	binders           []Binder
}

// PostgresOption configures PGXManager and SQLManager.
type PostgresOption func(*postgresConfig)

// WithEventStoreOptions passes options to the transaction-scoped postgresengine.EventStore.
func WithEventStoreOptions(options ...postgresengine.Option) PostgresOption {
	return func(c *postgresConfig) {
		c.eventStoreOptions = append(c.eventStoreOptions, options...)
	}
}

// WithBinder adds a Binder running on every Begin.
func WithBinder(binder Binder) PostgresOption {
	return func(c *postgresConfig) {
		c.binders = append(c.binders, binder)
	}
}

func newPostgresConfig(options []PostgresOption) postgresConfig {
	var cfg postgresConfig
	for _, option := range options {
		option(&cfg)
	}

	return cfg
}

func (c postgresConfig) bind(scope *container.Container, db dbadapter.DBAdapter) error {
	eventStore, err := postgresengine.NewEventStore(db, c.eventStoreOptions...)
	if err != nil {
		return err
	}

	container.Register[domainevent.Store](
		scope,
		domainevent.StoreToken,
		domainevent.NewCollectingStore(eventStore, publisherFrom(scope)),
	)

	for _, binder := range c.binders {
		if err := binder(scope, db); err != nil {
			return err
		}
	}

	return nil
}

// PGXManager runs units of work in pgx transactions.
type PGXManager struct {
	db  PGXBeginner
	cfg postgresConfig
}

// NewPGXManager creates a PGXManager.
func NewPGXManager(db PGXBeginner, options ...PostgresOption) (*PGXManager, error) {
	if db == nil {
		return nil, ErrNilBeginner
	}

	return &PGXManager{db: db, cfg: newPostgresConfig(options)}, nil
}

// Begin implements Manager.
func (m *PGXManager) Begin(ctx context.Context, scope *container.Container) (Tx, error) {
	tx, err := m.db.Begin(ctx)
	if err != nil {
		return nil, err
	}

	if err := m.cfg.bind(scope, dbadapter.NewPGXAdapter(tx)); err != nil {
		_ = tx.Rollback(ctx)
		return nil, err
	}

	return tx, nil
}

// SQLManager runs units of work in database/sql transactions.
type SQLManager struct {
	db  SQLBeginner
	cfg postgresConfig
}

// NewSQLManager creates a SQLManager.
func NewSQLManager(db SQLBeginner, options ...PostgresOption) (*SQLManager, error) {
	if db == nil {
		return nil, ErrNilBeginner
	}

	return &SQLManager{db: db, cfg: newPostgresConfig(options)}, nil
}

// Begin implements Manager.
func (m *SQLManager) Begin(ctx context.Context, scope *container.Container) (Tx, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	if err := m.cfg.bind(scope, dbadapter.NewSQLAdapter(tx)); err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	return sqlTx{tx: tx}, nil
}

type sqlTx struct {
	tx *sql.Tx
}

func (t sqlTx) Commit(context.Context) error {
	return t.tx.Commit()
}

func (t sqlTx) Rollback(context.Context) error {
	return t.tx.Rollback()
}
