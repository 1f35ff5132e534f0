// Package postgres stores libraries in postgres.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/apperror"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/container"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/internal/dbadapter"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/library"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/library/core"
)

// DefaultLibrariesTable is the table used unless another name is given.
const DefaultLibrariesTable = "libraries"

const (
	dialectPostgres = "postgres"

	colID        = "id"
	colName      = "name"
	colLocation  = "location"
	colCreatedAt = "created_at"
)

const librariesSchemaTemplate = `CREATE TABLE IF NOT EXISTS %[1]s (
    id         TEXT        PRIMARY KEY,
    name       TEXT        NOT NULL,
    location   TEXT        NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

var (
	ErrNilDatabaseConnection   = errors.New("database connection must not be nil")
	ErrBuildingQueryFailed     = errors.New("building query failed")
	ErrQueryingLibrariesFailed = errors.New("querying libraries failed")
	ErrSavingLibraryFailed     = errors.New("saving library failed")
)

// SchemaSQL returns the DDL of the libraries table.
func SchemaSQL(tableName string) string {
	return fmt.Sprintf(librariesSchemaTemplate, tableName)
}

// Repository implements core.LibraryRepository and library.LibraryQueryService on a DBAdapter.
type Repository struct {
	db        dbadapter.DBAdapter
	tableName string
}

// NewRepository returns a Repository on tableName.
func NewRepository(db dbadapter.DBAdapter, tableName string) (*Repository, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	if tableName == "" {
		tableName = DefaultLibrariesTable
	}

	return &Repository{db: db, tableName: tableName}, nil
}

// Save implements core.LibraryRepository as an upsert on id.
func (r *Repository) Save(ctx context.Context, lib core.Library) error {
	sqlQuery, _, err := goqu.Dialect(dialectPostgres).
		Insert(r.tableName).
		Rows(goqu.Record{colID: lib.ID, colName: lib.Name, colLocation: lib.Location}).
		OnConflict(exp.NewDoUpdateConflictExpression(colID, goqu.Record{
			colName:     goqu.I("excluded." + colName),
			colLocation: goqu.I("excluded." + colLocation),
		})).
		ToSQL()
	if err != nil {
		return apperror.NewBug(errors.Join(ErrBuildingQueryFailed, err))
	}

	if _, err = r.db.Exec(ctx, sqlQuery); err != nil {
		return apperror.NewDependency(errors.Join(ErrSavingLibraryFailed, err))
	}

	return nil
}

// FindAll implements core.LibraryRepository.
func (r *Repository) FindAll(ctx context.Context) ([]core.Library, error) {
	sqlQuery, _, err := goqu.Dialect(dialectPostgres).
		From(r.tableName).
		Select(colID, colName, colLocation).
		Order(goqu.I(colCreatedAt).Asc(), goqu.I(colID).Asc()).
		ToSQL()
	if err != nil {
		return nil, apperror.NewBug(errors.Join(ErrBuildingQueryFailed, err))
	}

	rows, err := r.db.Query(ctx, sqlQuery)
	if err != nil {
		return nil, apperror.NewDependency(errors.Join(ErrQueryingLibrariesFailed, err))
	}
	defer func() { _ = rows.Close() }()

	libraries := make([]core.Library, 0)
	for rows.Next() {
		var lib core.Library
		if err := rows.Scan(&lib.ID, &lib.Name, &lib.Location); err != nil {
			return nil, apperror.NewDependency(errors.Join(ErrQueryingLibrariesFailed, err))
		}

		libraries = append(libraries, lib)
	}

	if err := rows.Err(); err != nil {
		return nil, apperror.NewDependency(errors.Join(ErrQueryingLibrariesFailed, err))
	}

	return libraries, nil
}

// QueryService adapts a Repository to library.LibraryQueryService.
type QueryService struct {
	repo *Repository
}

// NewQueryService returns a QueryService reading through repo.
func NewQueryService(repo *Repository) *QueryService {
	return &QueryService{repo: repo}
}

// FindAll implements library.LibraryQueryService.
func (q *QueryService) FindAll(ctx context.Context) ([]library.LibraryDTO, error) {
	libraries, err := q.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	dtos := make([]library.LibraryDTO, 0, len(libraries))
	for _, lib := range libraries {
		dtos = append(dtos, lib.ToDTO())
	}

	return dtos, nil
}

// Binder binds a Repository on the transaction of every unit of work.
func Binder(tableName string) func(scope *container.Container, db dbadapter.DBAdapter) error {
	return func(scope *container.Container, db dbadapter.DBAdapter) error {
		repo, err := NewRepository(db, tableName)
		if err != nil {
			return err
		}

		container.Register[core.LibraryRepository](scope, core.LibraryRepositoryToken, repo)

		return nil
	}
}
