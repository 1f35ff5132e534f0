package app

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/catalog"
	catalogcore "github.com/AntonStoeckl/library-cqrs-kernel-go/catalog/core"
	catalogmemory "github.com/AntonStoeckl/library-cqrs-kernel-go/catalog/infra/memory"
	catalogpostgres "github.com/AntonStoeckl/library-cqrs-kernel-go/catalog/infra/postgres"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/config"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/domainevent/inmemory"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/domainevent/postgresengine"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/internal/dbadapter"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/library"
	librarycore "github.com/AntonStoeckl/library-cqrs-kernel-go/library/core"
	librarymemory "github.com/AntonStoeckl/library-cqrs-kernel-go/library/infra/memory"
	librarypostgres "github.com/AntonStoeckl/library-cqrs-kernel-go/library/infra/postgres"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/unitofwork"
)

// ErrMigrationFailed wraps a failing DDL statement.
var ErrMigrationFailed = errors.New("migration failed")

// storage is what a storage driver contributes to the root container.
type storage struct {
	manager        unitofwork.Manager
	books          catalogcore.BookRepository
	bookQueries    catalog.BookQueryService
	libraries      librarycore.LibraryRepository
	libraryQueries library.LibraryQueryService
	eventLog       *inmemory.EventLog
	db             dbadapter.DBAdapter
	schema         []string
	closers        []func() error
}

func newStorage(ctx context.Context, cfg config.StorageConfig, instr instrumentation) (*storage, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return newMemoryStorage()

	case config.DriverPGX:
		pool, err := config.OpenPGXPool(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}

		manager, err := unitofwork.NewPGXManager(pool, postgresOptions(cfg, instr)...)
		if err != nil {
			pool.Close()
			return nil, err
		}

		queryDB := sqlx.NewDb(stdlib.OpenDBFromPool(pool), "pgx")

		return newPostgresStorage(dbadapter.NewPGXAdapter(pool), queryDB, manager,
			queryDB.Close,
			func() error { pool.Close(); return nil },
		)

	case config.DriverSQL:
		db, err := config.OpenSQLDB(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}

		manager, err := unitofwork.NewSQLManager(db, postgresOptions(cfg, instr)...)
		if err != nil {
			_ = db.Close()
			return nil, err
		}

		return newPostgresStorage(dbadapter.NewSQLAdapter(db), sqlx.NewDb(db, "postgres"), manager, db.Close)

	case config.DriverSQLX:
		db, err := config.OpenSQLX(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}

		manager, err := unitofwork.NewSQLManager(db, postgresOptions(cfg, instr)...)
		if err != nil {
			_ = db.Close()
			return nil, err
		}

		return newPostgresStorage(dbadapter.NewSQLXAdapter(db), db, manager, db.Close)

	default:
		return nil, errors.Join(config.ErrUnknownDriver, errors.New(cfg.Driver))
	}
}

func newMemoryStorage() (*storage, error) {
	books := catalogmemory.NewStore()
	libraries := librarymemory.NewStore()
	eventLog := inmemory.NewEventLog()

	manager, err := unitofwork.NewInMemoryManager(eventLog)
	if err != nil {
		return nil, err
	}

	return &storage{
		manager:        manager,
		books:          catalogmemory.NewBookRepository(books),
		bookQueries:    catalogmemory.NewBookQueryService(books),
		libraries:      libraries,
		libraryQueries: librarymemory.NewQueryService(libraries),
		eventLog:       eventLog,
	}, nil
}

func postgresOptions(cfg config.StorageConfig, instr instrumentation) []unitofwork.PostgresOption {
	return []unitofwork.PostgresOption{
		unitofwork.WithEventStoreOptions(instr.eventStoreOptions(cfg.EventTable)...),
		unitofwork.WithBinder(catalogpostgres.Binder(catalogpostgres.DefaultBooksTable)),
		unitofwork.WithBinder(librarypostgres.Binder(librarypostgres.DefaultLibrariesTable)),
	}
}

// newPostgresStorage binds pool-level repositories at the root. Transactional handlers get
// transaction-bound ones from the unit of work binders instead.
func newPostgresStorage(
	db dbadapter.DBAdapter,
	queryDB sqlx.QueryerContext,
	manager unitofwork.Manager,
	closers ...func() error,
) (*storage, error) {
	books, err := catalogpostgres.NewBookRepository(db, catalogpostgres.DefaultBooksTable)
	if err != nil {
		return nil, err
	}

	bookQueries, err := catalogpostgres.NewBookQueryService(queryDB, catalogpostgres.DefaultBooksTable)
	if err != nil {
		return nil, err
	}

	libraries, err := librarypostgres.NewRepository(db, librarypostgres.DefaultLibrariesTable)
	if err != nil {
		return nil, err
	}

	return &storage{
		manager:        manager,
		books:          books,
		bookQueries:    bookQueries,
		libraries:      libraries,
		libraryQueries: librarypostgres.NewQueryService(libraries),
		db:             db,
		closers:        closers,
	}, nil
}

func (s *storage) withSchema(eventTable string) *storage {
	if s.db == nil {
		return s
	}

	s.schema = []string{
		postgresengine.SchemaSQL(eventTable),
		catalogpostgres.SchemaSQL(catalogpostgres.DefaultBooksTable),
		librarypostgres.SchemaSQL(librarypostgres.DefaultLibrariesTable),
	}

	return s
}

func (s *storage) migrate(ctx context.Context) error {
	for _, statement := range s.schema {
		if _, err := s.db.Exec(ctx, statement); err != nil {
			return errors.Join(ErrMigrationFailed, errors.New(firstLine(statement)), err)
		}
	}

	return nil
}

func (s *storage) close() error {
	var errs []error
	for _, closer := range s.closers {
		errs = append(errs, closer())
	}

	return errors.Join(errs...)
}

func firstLine(statement string) string {
	line, _, _ := strings.Cut(statement, "\n")

	return line
}
