package postgres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/apperror"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/catalog"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/catalog/core"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/catalog/infra/postgres"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/container"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/testutil/helper"
)

func givenBook() core.Book {
	year := 1905

	return core.Book{
		ID:            "book-1",
		ISBN:          "9784101010014",
		Title:         "I Am a Cat",
		Author:        "Natsume Soseki",
		PublishedYear: &year,
		Status:        core.StatusAvailable,
	}
}

func Test_BookRepository_Save_UpsertsOnID(t *testing.T) {
	// arrange
	db := helper.NewFakeDBAdapter()
	repo, err := postgres.NewBookRepository(db, "")
	require.NoError(t, err)

	// act
	err = repo.Save(context.Background(), givenBook())

	// assert
	require.NoError(t, err)
	require.Len(t, db.Execs(), 1)
	statement := db.Execs()[0]
	assert.Contains(t, statement, `INSERT INTO "books"`)
	assert.Contains(t, statement, `'9784101010014'`)
	assert.Contains(t, statement, `ON CONFLICT (id) DO UPDATE SET`)
	assert.Contains(t, statement, `"excluded"."status"`)
}

func Test_BookRepository_Save_MapsISBNViolation(t *testing.T) {
	db := helper.NewFakeDBAdapter()
	db.ExecErr = &pgconn.PgError{Code: "23505", ConstraintName: "books_isbn_key"}
	repo, err := postgres.NewBookRepository(db, postgres.DefaultBooksTable)
	require.NoError(t, err)

	err = repo.Save(context.Background(), givenBook())

	require.True(t, catalog.ISBNAlreadyExists.Is(err))
	appErr, _ := apperror.As(err)
	assert.Equal(t, "9784101010014", appErr.Payload["isbn"])
}

func Test_BookRepository_Save_OtherFailuresAreDependencyErrors(t *testing.T) {
	db := helper.NewFakeDBAdapter()
	db.ExecErr = errors.New("connection reset")
	repo, err := postgres.NewBookRepository(db, "")
	require.NoError(t, err)

	err = repo.Save(context.Background(), givenBook())

	assert.True(t, apperror.DependencyError.Is(err))
	assert.ErrorIs(t, err, postgres.ErrSavingBookFailed)
}

func Test_BookRepository_FindByISBN(t *testing.T) {
	// arrange
	db := helper.NewFakeDBAdapter()
	db.Rows = [][]any{{"book-1", "9784101010014", "I Am a Cat", "Natsume Soseki", "", (*int)(nil), "onLoan"}}
	repo, err := postgres.NewBookRepository(db, "")
	require.NoError(t, err)

	// act
	book, found, err := repo.FindByISBN(context.Background(), "9784101010014")

	// assert
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "book-1", book.ID)
	assert.Equal(t, core.StatusOnLoan, book.Status)
	assert.Nil(t, book.PublishedYear)
	assert.Contains(t, db.Queries()[0], `WHERE ("isbn" = '9784101010014') LIMIT 1`)
}

func Test_BookRepository_FindByID_NotFound(t *testing.T) {
	repo, err := postgres.NewBookRepository(helper.NewFakeDBAdapter(), "")
	require.NoError(t, err)

	_, found, err := repo.FindByID(context.Background(), "missing")

	require.NoError(t, err)
	assert.False(t, found)
}

func Test_NewBookRepository_RejectsNilConnection(t *testing.T) {
	_, err := postgres.NewBookRepository(nil, "")

	assert.ErrorIs(t, err, postgres.ErrNilDatabaseConnection)
}

func Test_Binder_RegistersTransactionBoundRepository(t *testing.T) {
	scope := container.New()

	err := postgres.Binder("")(scope, helper.NewFakeDBAdapter())

	require.NoError(t, err)
	assert.True(t, container.IsRegistered(scope, core.BookRepositoryToken))
}

func Test_SchemaSQL_DeclaresISBNConstraint(t *testing.T) {
	ddl := postgres.SchemaSQL("books")

	assert.Contains(t, ddl, "CREATE TABLE IF NOT EXISTS books")
	assert.Contains(t, ddl, "CONSTRAINT books_isbn_key UNIQUE (isbn)")
	assert.Equal(t, "books_isbn_key", postgres.ISBNConstraint("books"))
}
