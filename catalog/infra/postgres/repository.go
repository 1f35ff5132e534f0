// Package postgres stores books in postgres: a goqu-built repository for the write side
// and a sqlx query service for the read side.
package postgres

import (
	"context"
	"errors"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/apperror"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/catalog"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/catalog/core"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/container"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/internal/dbadapter"
)

const (
	dialectPostgres = "postgres"

	colID            = "id"
	colISBN          = "isbn"
	colTitle         = "title"
	colAuthor        = "author"
	colPublisher     = "publisher"
	colPublishedYear = "published_year"
	colStatus        = "status"
)

var (
	ErrNilDatabaseConnection = errors.New("database connection must not be nil")
	ErrBuildingQueryFailed   = errors.New("building query failed")
	ErrQueryingBooksFailed   = errors.New("querying books failed")
	ErrSavingBookFailed      = errors.New("saving book failed")
)

// BookRepository implements core.BookRepository on a DBAdapter.
// Bound to a transaction it takes part in the unit of work.
type BookRepository struct {
	db        dbadapter.DBAdapter
	tableName string
}

// NewBookRepository returns a repository writing to tableName.
func NewBookRepository(db dbadapter.DBAdapter, tableName string) (*BookRepository, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	if tableName == "" {
		tableName = DefaultBooksTable
	}

	return &BookRepository{db: db, tableName: tableName}, nil
}

// FindByID implements core.BookRepository.
func (r *BookRepository) FindByID(ctx context.Context, id string) (core.Book, bool, error) {
	return r.findOne(ctx, goqu.Ex{colID: id})
}

// FindByISBN implements core.BookRepository.
func (r *BookRepository) FindByISBN(ctx context.Context, isbn string) (core.Book, bool, error) {
	return r.findOne(ctx, goqu.Ex{colISBN: isbn})
}

func (r *BookRepository) findOne(ctx context.Context, where goqu.Ex) (core.Book, bool, error) {
	sqlQuery, _, err := goqu.Dialect(dialectPostgres).
		From(r.tableName).
		Select(colID, colISBN, colTitle, colAuthor, colPublisher, colPublishedYear, colStatus).
		Where(where).
		Limit(1).
		ToSQL()
	if err != nil {
		return core.Book{}, false, apperror.NewBug(errors.Join(ErrBuildingQueryFailed, err))
	}

	rows, err := r.db.Query(ctx, sqlQuery)
	if err != nil {
		return core.Book{}, false, apperror.NewDependency(errors.Join(ErrQueryingBooksFailed, err))
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return core.Book{}, false, apperror.NewDependency(errors.Join(ErrQueryingBooksFailed, err))
		}

		return core.Book{}, false, nil
	}

	var (
		book   core.Book
		status string
	)

	err = rows.Scan(&book.ID, &book.ISBN, &book.Title, &book.Author, &book.Publisher, &book.PublishedYear, &status)
	if err != nil {
		return core.Book{}, false, apperror.NewDependency(errors.Join(ErrQueryingBooksFailed, err))
	}

	book.Status = core.Status(status)

	return book, true, nil
}

// Save implements core.BookRepository as an upsert on id.
// A unique violation on the isbn yields ISBN_ALREADY_EXISTS.
func (r *BookRepository) Save(ctx context.Context, book core.Book) error {
	record := goqu.Record{
		colID:            book.ID,
		colISBN:          book.ISBN,
		colTitle:         book.Title,
		colAuthor:        book.Author,
		colPublisher:     book.Publisher,
		colPublishedYear: nullableInt(book.PublishedYear),
		colStatus:        string(book.Status),
	}

	sqlQuery, _, err := goqu.Dialect(dialectPostgres).
		Insert(r.tableName).
		Rows(record).
		OnConflict(exp.NewDoUpdateConflictExpression(colID, goqu.Record{
			colISBN:          goqu.I("excluded." + colISBN),
			colTitle:         goqu.I("excluded." + colTitle),
			colAuthor:        goqu.I("excluded." + colAuthor),
			colPublisher:     goqu.I("excluded." + colPublisher),
			colPublishedYear: goqu.I("excluded." + colPublishedYear),
			colStatus:        goqu.I("excluded." + colStatus),
		})).
		ToSQL()
	if err != nil {
		return apperror.NewBug(errors.Join(ErrBuildingQueryFailed, err))
	}

	if _, err = r.db.Exec(ctx, sqlQuery); err != nil {
		if constraint, ok := dbadapter.UniqueViolation(err); ok && constraint == ISBNConstraint(r.tableName) {
			return catalog.ISBNAlreadyExists.New(apperror.Payload{"isbn": book.ISBN}, err)
		}

		return apperror.NewDependency(errors.Join(ErrSavingBookFailed, err))
	}

	return nil
}

// Binder binds a BookRepository on the transaction of every unit of work.
// Its signature matches unitofwork.Binder.
func Binder(tableName string) func(scope *container.Container, db dbadapter.DBAdapter) error {
	return func(scope *container.Container, db dbadapter.DBAdapter) error {
		repo, err := NewBookRepository(db, tableName)
		if err != nil {
			return err
		}

		container.Register[core.BookRepository](scope, core.BookRepositoryToken, repo)

		return nil
	}
}

func nullableInt(value *int) any {
	if value == nil {
		return nil
	}

	return *value
}
