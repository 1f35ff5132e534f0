package postgres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/apperror"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/container"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/library"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/library/core"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/library/infra/postgres"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/testutil/helper"
)

func Test_Repository_Save_UpsertsOnID(t *testing.T) {
	db := helper.NewFakeDBAdapter()
	repo, err := postgres.NewRepository(db, "")
	require.NoError(t, err)

	err = repo.Save(context.Background(), core.Library{ID: "lib-1", Name: "Head Office Library", Location: "Tokyo HQ 3F"})

	require.NoError(t, err)
	require.Len(t, db.Execs(), 1)
	assert.Contains(t, db.Execs()[0], `INSERT INTO "libraries"`)
	assert.Contains(t, db.Execs()[0], `'Tokyo HQ 3F'`)
	assert.Contains(t, db.Execs()[0], `ON CONFLICT (id) DO UPDATE SET`)
}

func Test_Repository_Save_FailureIsDependencyError(t *testing.T) {
	db := helper.NewFakeDBAdapter()
	db.ExecErr = errors.New("connection refused")
	repo, err := postgres.NewRepository(db, "")
	require.NoError(t, err)

	err = repo.Save(context.Background(), core.Library{ID: "lib-1", Name: "x"})

	assert.True(t, apperror.DependencyError.Is(err))
}

func Test_QueryService_FindAll(t *testing.T) {
	// arrange
	db := helper.NewFakeDBAdapter()
	db.Rows = [][]any{
		{"lib-1", "Head Office Library", "Tokyo HQ 3F"},
		{"lib-2", "Osaka Office Library", "Osaka Branch 2F"},
	}
	repo, err := postgres.NewRepository(db, "")
	require.NoError(t, err)

	// act
	dtos, err := postgres.NewQueryService(repo).FindAll(context.Background())

	// assert
	require.NoError(t, err)
	assert.Equal(t, []library.LibraryDTO{
		{ID: "lib-1", Name: "Head Office Library", Location: "Tokyo HQ 3F"},
		{ID: "lib-2", Name: "Osaka Office Library", Location: "Osaka Branch 2F"},
	}, dtos)
	assert.Contains(t, db.Queries()[0], `ORDER BY "created_at" ASC, "id" ASC`)
}

func Test_Binder_RegistersRepository(t *testing.T) {
	scope := container.New()

	require.NoError(t, postgres.Binder("")(scope, helper.NewFakeDBAdapter()))

	assert.True(t, container.IsRegistered(scope, core.LibraryRepositoryToken))
}

func Test_SchemaSQL(t *testing.T) {
	assert.Contains(t, postgres.SchemaSQL("libraries"), "CREATE TABLE IF NOT EXISTS libraries")
}
