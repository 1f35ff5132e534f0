package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/apperror"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/catalog"
)

// BookQueryService implements catalog.BookQueryService with sqlx struct scanning.
type BookQueryService struct {
	db        sqlx.QueryerContext
	tableName string
}

// NewBookQueryService returns a query service reading tableName. db is a *sqlx.DB or *sqlx.Tx.
func NewBookQueryService(db sqlx.QueryerContext, tableName string) (*BookQueryService, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	if tableName == "" {
		tableName = DefaultBooksTable
	}

	return &BookQueryService{db: db, tableName: tableName}, nil
}

func (q *BookQueryService) selectBooks() *goqu.SelectDataset {
	return goqu.Dialect(dialectPostgres).
		From(q.tableName).
		Select(colID, colISBN, colTitle, colAuthor, colPublisher, colPublishedYear, colStatus)
}

// FindAll implements catalog.BookQueryService. Books come in registration order.
func (q *BookQueryService) FindAll(ctx context.Context) ([]catalog.BookReadModel, error) {
	sqlQuery, _, err := q.selectBooks().
		Order(goqu.I("created_at").Asc(), goqu.I(colID).Asc()).
		ToSQL()
	if err != nil {
		return nil, apperror.NewBug(errors.Join(ErrBuildingQueryFailed, err))
	}

	models := make([]catalog.BookReadModel, 0)
	if err = sqlx.SelectContext(ctx, q.db, &models, sqlQuery); err != nil {
		return nil, apperror.NewDependency(errors.Join(ErrQueryingBooksFailed, err))
	}

	return models, nil
}

// FindByID implements catalog.BookQueryService.
func (q *BookQueryService) FindByID(ctx context.Context, id string) (catalog.BookReadModel, bool, error) {
	sqlQuery, _, err := q.selectBooks().
		Where(goqu.Ex{colID: id}).
		ToSQL()
	if err != nil {
		return catalog.BookReadModel{}, false, apperror.NewBug(errors.Join(ErrBuildingQueryFailed, err))
	}

	var model catalog.BookReadModel

	err = sqlx.GetContext(ctx, q.db, &model, sqlQuery)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return catalog.BookReadModel{}, false, nil

	case err != nil:
		return catalog.BookReadModel{}, false, apperror.NewDependency(errors.Join(ErrQueryingBooksFailed, err))

	default:
		return model, true, nil
	}
}
