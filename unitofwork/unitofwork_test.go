package unitofwork_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/apperror"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/bus"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/container"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/domainevent"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/domainevent/inmemory"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/execution"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/testutil/helper"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/unitofwork"
)

type recordMessage struct {
	Fail bool
}

func (recordMessage) MessageType() string { return "test.record" }

type spyTx struct {
	committed  bool
	rolledBack bool
	commitErr  error
	onCommit   func()
}

func (t *spyTx) Commit(context.Context) error {
	t.committed = true
	if t.onCommit != nil {
		t.onCommit()
	}

	return t.commitErr
}

func (t *spyTx) Rollback(context.Context) error {
	t.rolledBack = true
	return nil
}

type spyManager struct {
	persister domainevent.Persister
	publisher domainevent.Publisher
	tx        *spyTx
	scopes    []*container.Container
}

func (m *spyManager) Begin(_ context.Context, scope *container.Container) (unitofwork.Tx, error) {
	m.scopes = append(m.scopes, scope)
	container.Register[domainevent.Store](scope, domainevent.StoreToken, domainevent.NewCollectingStore(m.persister, m.publisher))

	return m.tx, nil
}

type publisherFunc func(ctx context.Context, events []domainevent.DomainEvent) error

func (f publisherFunc) Publish(ctx context.Context, events []domainevent.DomainEvent) error {
	return f(ctx, events)
}

func recordingDefinition(transactional bool) bus.HandlerDefinition {
	return bus.HandlerDefinition{
		Type:     "test.record",
		Settings: bus.HandlerSettings{Transactional: transactional},
		Factory: func(*container.Container) bus.Handler {
			return func(_ context.Context, msg bus.Message, ec execution.Context) (any, error) {
				store, ok := container.TryResolve(ec.Container, domainevent.StoreToken)
				if ok {
					event, err := domainevent.New(ec, uuid.Must(uuid.NewV7()), domainevent.Draft{
						Type:          "test.recorded",
						AggregateType: "Test",
						AggregateID:   "t-1",
						SchemaVersion: 1,
						Actor:         domainevent.SystemActor(),
						Purpose:       domainevent.PurposeAuditOnly,
						Payload:       map[string]string{"k": "v"},
					})
					if err != nil {
						return nil, err
					}

					store.Add(event)
				}

				if msg.(recordMessage).Fail {
					return nil, errors.New("handler failed")
				}

				return "ok", nil
			}
		},
	}
}

func givenBus(t *testing.T, manager unitofwork.Manager, transactional bool, options ...unitofwork.Option) *bus.Bus {
	t.Helper()

	middleware, err := unitofwork.Middleware(manager, options...)
	require.NoError(t, err)

	b, err := bus.New(bus.Options{
		Handlers:    []bus.HandlerDefinition{recordingDefinition(transactional)},
		Middlewares: []bus.Middleware{middleware},
		Container:   container.New(),
	})
	require.NoError(t, err)

	return b
}

func Test_Middleware_RejectsNilManager(t *testing.T) {
	_, err := unitofwork.Middleware(nil)

	assert.ErrorIs(t, err, unitofwork.ErrNilManager)
}

func Test_Middleware_CommitsSavesAndPublishes(t *testing.T) {
	// arrange
	log := inmemory.NewEventLog()
	var published []domainevent.DomainEvent
	manager := &spyManager{
		persister: log,
		publisher: publisherFunc(func(_ context.Context, events []domainevent.DomainEvent) error {
			published = append(published, events...)
			return nil
		}),
		tx: &spyTx{},
	}
	metrics := helper.NewMetricsCollectorSpy(true)
	b := givenBus(t, manager, true, unitofwork.WithMetrics(metrics))
	root := container.New()

	// act
	result, err := b.Execute(context.Background(), recordMessage{}, execution.NewContext(root))

	// assert
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.True(t, manager.tx.committed)
	assert.False(t, manager.tx.rolledBack)
	assert.Len(t, log.Events(), 1)
	assert.Len(t, published, 1)
	assert.False(t, container.IsRegistered(root, domainevent.StoreToken), "the store is bound in a fork only")
	assert.True(t, metrics.HasCounterRecordForMetric(unitofwork.CommitsMetric).Assert())
}

func Test_Middleware_RollsBackWhenHandlerFails(t *testing.T) {
	// arrange
	log := inmemory.NewEventLog()
	manager := &spyManager{persister: log, tx: &spyTx{}}
	b := givenBus(t, manager, true)

	// act
	_, err := b.Execute(context.Background(), recordMessage{Fail: true}, execution.NewContext(container.New()))

	// assert
	assert.EqualError(t, err, "handler failed")
	assert.True(t, manager.tx.rolledBack)
	assert.False(t, manager.tx.committed)
	assert.Empty(t, log.Events())
}

func Test_Middleware_RollsBackWhenSaveConflicts(t *testing.T) {
	// arrange
	log := inmemory.NewEventLog()
	manager := &spyManager{persister: log, tx: &spyTx{}}
	b := givenBus(t, manager, true)
	ec := execution.NewContext(container.New())
	_, err := b.Execute(context.Background(), recordMessage{}, ec)
	require.NoError(t, err)
	manager.tx = &spyTx{}

	// act
	_, err = b.Execute(context.Background(), recordMessage{}, ec)

	// assert
	assert.True(t, apperror.ConcurrencyError.Is(err))
	assert.True(t, manager.tx.rolledBack)
	assert.False(t, manager.tx.committed)
}

func Test_Middleware_ReturnsDependencyErrorWhenCommitFails(t *testing.T) {
	manager := &spyManager{persister: inmemory.NewEventLog(), tx: &spyTx{commitErr: errors.New("connection lost")}}
	b := givenBus(t, manager, true)

	_, err := b.Execute(context.Background(), recordMessage{}, execution.NewContext(container.New()))

	assert.True(t, apperror.DependencyError.Is(err))
}

func Test_Middleware_LogsPublishFailureWithoutFailingTheCommand(t *testing.T) {
	// arrange
	logHandler := helper.NewLogHandlerSpy(false)
	manager := &spyManager{
		persister: inmemory.NewEventLog(),
		publisher: publisherFunc(func(context.Context, []domainevent.DomainEvent) error {
			return apperror.NewDependency(errors.New("broker down"))
		}),
		tx: &spyTx{},
	}
	b := givenBus(t, manager, true, unitofwork.WithLogger(slog.New(logHandler)))

	// act
	result, err := b.Execute(context.Background(), recordMessage{}, execution.NewContext(container.New()))

	// assert
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.True(t, manager.tx.committed)
	assert.True(t, logHandler.HasErrorLogWithMessage(unitofwork.LogMsgPublishFailed).
		WithAttr(unitofwork.LogAttrMessageType, "test.record").Assert())
}

func Test_Middleware_PublishesCommittedEventsAfterCancellation(t *testing.T) {
	// arrange
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var publishCtxErr error
	published := 0
	manager := &spyManager{
		persister: inmemory.NewEventLog(),
		publisher: publisherFunc(func(ctx context.Context, events []domainevent.DomainEvent) error {
			publishCtxErr = ctx.Err()
			published += len(events)
			return nil
		}),
		tx: &spyTx{onCommit: cancel},
	}
	b := givenBus(t, manager, true)

	// act
	_, err := b.Execute(ctx, recordMessage{}, execution.NewContext(container.New()))

	// assert
	require.NoError(t, err)
	assert.True(t, manager.tx.committed)
	assert.NoError(t, publishCtxErr)
	assert.Equal(t, 1, published)
}

func Test_Middleware_PassesNonTransactionalHandlersThrough(t *testing.T) {
	manager := &spyManager{persister: inmemory.NewEventLog(), tx: &spyTx{}}
	b := givenBus(t, manager, false)

	result, err := b.Execute(context.Background(), recordMessage{}, execution.NewContext(container.New()))

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Empty(t, manager.scopes)
}

func Test_InMemoryManager_PublishesThroughRegisteredPublisher(t *testing.T) {
	// arrange
	log := inmemory.NewEventLog()
	eventBus, err := inmemory.NewEventBus()
	require.NoError(t, err)

	var received []string
	domainevent.Subscribe(eventBus, "test.recorded", domainevent.JSONSchema[map[string]string](),
		func(_ context.Context, event domainevent.DomainEvent, payload map[string]string) error {
			received = append(received, event.Type+":"+payload["k"])
			return nil
		})

	manager, err := unitofwork.NewInMemoryManager(log)
	require.NoError(t, err)

	middleware, err := unitofwork.Middleware(manager)
	require.NoError(t, err)

	root := container.New()
	container.Register[domainevent.Publisher](root, domainevent.PublisherToken, eventBus)

	b, err := bus.New(bus.Options{
		Handlers:    []bus.HandlerDefinition{recordingDefinition(true)},
		Middlewares: []bus.Middleware{middleware},
		Container:   root,
	})
	require.NoError(t, err)

	// act
	_, err = b.Execute(context.Background(), recordMessage{}, execution.NewContext(root))

	// assert
	require.NoError(t, err)
	assert.Equal(t, []string{"test.recorded:v"}, received)
	assert.Len(t, log.Events(), 1)
}

func Test_Constructors_RejectNilCollaborators(t *testing.T) {
	_, err := unitofwork.NewInMemoryManager(nil)
	assert.ErrorIs(t, err, unitofwork.ErrNilPersister)

	_, err = unitofwork.NewPGXManager(nil)
	assert.ErrorIs(t, err, unitofwork.ErrNilBeginner)

	_, err = unitofwork.NewSQLManager(nil)
	assert.ErrorIs(t, err, unitofwork.ErrNilBeginner)
}
