package postgresengine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/apperror"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/domainevent"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/domainevent/postgresengine"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/testutil/helper"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/testutil/helper/postgreswrapper"
)

func Test_EventStore_Integration_PersistAndLoad(t *testing.T) {
	// setup
	wrapper := postgreswrapper.Open(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	table := "domain_events_it"
	wrapper.RecreateTable(t, table, postgresengine.SchemaSQL(table))

	es, err := postgresengine.NewEventStore(wrapper.Adapter, postgresengine.WithTableName(table))
	require.NoError(t, err)

	book := helper.GivenBook(t, "9784101010014")
	first := helper.FixtureBookRegistered(t, book, 1)
	second := helper.FixtureBookRegistered(t, book, 2)

	// act
	require.NoError(t, es.Persist(ctx, []domainevent.DomainEvent{second, first}))
	conflictErr := es.Persist(ctx, []domainevent.DomainEvent{helper.FixtureBookRegistered(t, book, 2)})
	loaded, loadErr := es.Load(ctx, "Book", book.ID)

	// assert
	assert.True(t, apperror.ConcurrencyError.Is(conflictErr))
	require.NoError(t, loadErr)
	require.Len(t, loaded, 2)
	assert.Equal(t, first.ID, loaded[0].ID)
	assert.Equal(t, second.ID, loaded[1].ID)
	assert.Equal(t, helper.FixedClock, loaded[0].OccurredAt)
	assert.Equal(t, first.CorrelationID, loaded[0].CorrelationID)
	assert.JSONEq(t, string(first.Payload), string(loaded[0].Payload))
}
