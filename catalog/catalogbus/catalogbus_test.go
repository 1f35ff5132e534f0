package catalogbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/apperror"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/bus"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/catalog"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/catalog/catalogbus"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/catalog/core"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/catalog/infra/memory"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/container"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/domainevent"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/domainevent/inmemory"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/execution"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/unitofwork"
)

type fixture struct {
	root     *container.Container
	log      *inmemory.EventLog
	commands *bus.TypedBus[catalogbus.CommandDeps]
	queries  *bus.TypedBus[catalogbus.QueryDeps]
}

func givenFixture(t *testing.T) fixture {
	t.Helper()

	store := memory.NewStore()
	root := container.New()
	container.Register[core.BookRepository](root, core.BookRepositoryToken, memory.NewBookRepository(store))
	container.Register[catalog.BookQueryService](root, catalog.BookQueryServiceToken, memory.NewBookQueryService(store))
	container.Register[domainevent.IDGenerator](root, domainevent.IDGeneratorToken, domainevent.UUIDGenerator{})

	log := inmemory.NewEventLog()
	manager, err := unitofwork.NewInMemoryManager(log)
	require.NoError(t, err)
	transaction, err := unitofwork.Middleware(manager)
	require.NoError(t, err)

	commands, err := catalogbus.NewCommandBus(
		catalogbus.WithMiddlewares(bus.RecoveryMiddleware(), bus.RetryMiddleware(), transaction),
		catalogbus.WithRetry(3, time.Millisecond),
	)
	require.NoError(t, err)

	queries, err := catalogbus.NewQueryBus(catalogbus.WithMiddlewares(bus.RecoveryMiddleware()))
	require.NoError(t, err)

	return fixture{root: root, log: log, commands: commands, queries: queries}
}

func registerBook(isbn string) catalog.RegisterBook {
	return catalog.RegisterBook{Input: catalog.RegisterBookInput{
		ISBN:   isbn,
		Title:  "I Am a Cat",
		Author: "Natsume Soseki",
	}}
}

func Test_CommandBus_RegisterBook_SavesBookAndRecordsEvent(t *testing.T) {
	// arrange
	f := givenFixture(t)
	ec := execution.NewContext(f.root)

	// act
	dto, err := bus.ExecuteAs[catalog.BookDTO](context.Background(), f.commands, registerBook("9784101010014"), ec)

	// assert
	require.NoError(t, err)
	assert.Equal(t, "available", dto.Status)
	assert.Equal(t, "", dto.Publisher)
	assert.NotEmpty(t, dto.ID)

	events := f.log.Events()
	require.Len(t, events, 1)
	assert.Equal(t, core.BookRegisteredEventType, events[0].Type)
	assert.Equal(t, dto.ID, events[0].AggregateID)
	assert.Equal(t, ec.ID, events[0].CorrelationID)
	assert.Equal(t, domainevent.PurposeAuditOnly, events[0].Purpose)
}

func Test_CommandBus_RegisterBook_RejectsDuplicateISBN(t *testing.T) {
	// arrange
	f := givenFixture(t)
	ec := execution.NewContext(f.root)
	_, err := f.commands.Execute(context.Background(), registerBook("9784101010014"), ec)
	require.NoError(t, err)

	// act
	_, err = f.commands.Execute(context.Background(), registerBook("9784101010014"), ec)

	// assert
	require.True(t, catalog.ISBNAlreadyExists.Is(err))
	appErr, _ := apperror.As(err)
	assert.Equal(t, "9784101010014", appErr.Payload["isbn"])
	assert.Len(t, f.log.Events(), 1, "nothing is recorded for a rejected command")
}

func Test_CommandBus_RegisterBook_ReportsValidationDetails(t *testing.T) {
	f := givenFixture(t)

	_, err := f.commands.Execute(context.Background(), registerBook("123"), execution.NewContext(f.root))

	require.True(t, catalog.ValidationError.Is(err))
	appErr, _ := apperror.As(err)
	assert.Equal(t, "ISBN must be a 13-digit number", appErr.Payload["details"])
}

func Test_QueryBus_ListsAndGetsBooks(t *testing.T) {
	// arrange
	f := givenFixture(t)
	ec := execution.NewContext(f.root)
	registered, err := bus.ExecuteAs[catalog.BookDTO](context.Background(), f.commands, registerBook("9784101010014"), ec)
	require.NoError(t, err)

	// act
	list, listErr := bus.ExecuteAs[catalog.BookListDTO](context.Background(), f.queries, catalog.ListBooks{}, ec)
	got, getErr := bus.ExecuteAs[catalog.BookDTO](context.Background(), f.queries, catalog.GetBookByID{BookID: registered.ID}, ec)
	_, missingErr := f.queries.Execute(context.Background(), catalog.GetBookByID{BookID: "missing"}, ec)

	// assert
	require.NoError(t, listErr)
	assert.Equal(t, 1, list.Total)
	assert.Equal(t, []catalog.BookDTO{registered}, list.Books)

	require.NoError(t, getErr)
	assert.Equal(t, registered, got)

	require.True(t, catalog.BookNotFound.Is(missingErr))
	appErr, _ := apperror.As(missingErr)
	assert.Equal(t, "missing", appErr.Payload["id"])
}

func Test_QueryBus_ListBooks_EmptyCatalog(t *testing.T) {
	f := givenFixture(t)

	list, err := bus.ExecuteAs[catalog.BookListDTO](context.Background(), f.queries, catalog.ListBooks{}, execution.NewContext(f.root))

	require.NoError(t, err)
	assert.Equal(t, 0, list.Total)
	assert.Empty(t, list.Books)
}

func Test_Definitions_WorkOnUntypedBus(t *testing.T) {
	// arrange
	f := givenFixture(t)
	b, err := bus.New(bus.Options{Handlers: catalogbus.Definitions(), Container: f.root})
	require.NoError(t, err)
	ec := execution.NewContext(f.root)

	// act
	dto, err := bus.ExecuteAs[catalog.BookDTO](context.Background(), b, registerBook("9784101010014"), ec)
	require.NoError(t, err)
	list, err := bus.ExecuteAs[catalog.BookListDTO](context.Background(), b, catalog.ListBooks{}, ec)

	// assert
	require.NoError(t, err)
	assert.Equal(t, []catalog.BookDTO{dto}, list.Books)
	assert.Empty(t, f.log.Events(), "without a unit of work no store is bound and no event is recorded")
}
