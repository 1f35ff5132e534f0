// Package app is the composition root. New builds the root container for a configuration:
// storage, event publishing, the unit of work, the middlewares and the four buses.
// Nothing is global, every App is independent.
package app

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/bus"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/catalog"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/catalog/catalogbus"
	catalogcore "github.com/AntonStoeckl/library-cqrs-kernel-go/catalog/core"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/config"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/container"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/domainevent"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/domainevent/inmemory"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/domainevent/redisstream"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/execution"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/library"
	librarycore "github.com/AntonStoeckl/library-cqrs-kernel-go/library/core"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/library/librarybus"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/logging"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/unitofwork"
)

// App is a wired application.
type App struct {
	root     *container.Container
	logger   *logging.Logger
	storage  *storage
	eventBus *inmemory.EventBus
	closers  []func() error
}

// New validates cfg and builds an App. With cfg.Observability enabled, OpenTelemetry providers
// are created for the collectors not given as options and flushed by Close. Unless WithoutMigration is given, the postgres tables
// are created. Unless WithoutSeed is given, the mock libraries are registered when no library
// exists yet.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{seed: true, migrate: true}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, err
		}
	}

	logger := o.logger
	if logger == nil {
		var err error

		logger, err = logging.New(logging.Config{
			Level:     cfg.Log.Level,
			Format:    cfg.Log.Format,
			Component: cfg.Log.Component,
			Output:    o.logOutput,
		})
		if err != nil {
			return nil, err
		}
	}

	a := &App{
		root:   container.New(),
		logger: logger,
	}

	if cfg.Observability.Enabled {
		providers, err := newProviders(ctx, cfg.Observability, o.logOutput)
		if err != nil {
			return nil, err
		}

		a.closers = append(a.closers, shutdownProviders(providers))
		o.useProviders(providers)
	}

	instr := newInstrumentation(logger, o)

	store, err := newStorage(ctx, cfg.Storage, instr)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.storage = store.withSchema(cfg.Storage.EventTable)
	a.closers = append(a.closers, store.close)

	if err = a.wire(cfg, o, instr); err != nil {
		_ = a.Close()
		return nil, err
	}

	if o.migrate {
		if err = a.Migrate(ctx); err != nil {
			_ = a.Close()
			return nil, err
		}
	}

	if o.seed {
		if err = a.seedLibraries(ctx); err != nil {
			_ = a.Close()
			return nil, err
		}
	}

	return a, nil
}

func (a *App) wire(cfg config.Config, o options, instr instrumentation) error {
	eventBus, err := inmemory.NewEventBus(instr.eventBusOptions()...)
	if err != nil {
		return err
	}

	a.eventBus = eventBus

	publisher, err := a.publisher(cfg.Redis, o, instr)
	if err != nil {
		return err
	}

	container.Register[domainevent.IDGenerator](a.root, domainevent.IDGeneratorToken, domainevent.UUIDGenerator{})
	container.Register[domainevent.Publisher](a.root, domainevent.PublisherToken, publisher)
	container.Register[domainevent.Subscriber](a.root, domainevent.SubscriberToken, eventBus)
	container.Register(a.root, catalogcore.BookRepositoryToken, a.storage.books)
	container.Register(a.root, catalog.BookQueryServiceToken, a.storage.bookQueries)
	container.Register(a.root, librarycore.LibraryRepositoryToken, a.storage.libraries)
	container.Register(a.root, library.LibraryQueryServiceToken, a.storage.libraryQueries)

	commandMiddlewares, err := a.commandMiddlewares(instr)
	if err != nil {
		return err
	}

	queryMiddlewares, err := a.queryMiddlewares(instr)
	if err != nil {
		return err
	}

	catalogCommands, err := catalogbus.NewCommandBus(
		catalogbus.WithMiddlewares(commandMiddlewares...),
		catalogbus.WithRetry(cfg.Retry.MaxAttempts, time.Duration(cfg.Retry.BaseDelayMillis)*time.Millisecond),
	)
	if err != nil {
		return err
	}

	catalogQueries, err := catalogbus.NewQueryBus(catalogbus.WithMiddlewares(queryMiddlewares...))
	if err != nil {
		return err
	}

	libraryCommands, err := librarybus.NewCommandBus(commandMiddlewares...)
	if err != nil {
		return err
	}

	libraryQueries, err := librarybus.NewQueryBus(queryMiddlewares...)
	if err != nil {
		return err
	}

	container.Register[bus.Dispatcher](a.root, catalog.CommandBusToken, catalogCommands)
	container.Register[bus.Dispatcher](a.root, catalog.QueryBusToken, catalogQueries)
	container.Register[bus.Dispatcher](a.root, library.CommandBusToken, libraryCommands)
	container.Register[bus.Dispatcher](a.root, library.QueryBusToken, libraryQueries)

	return nil
}

func (a *App) publisher(cfg config.RedisConfig, o options, instr instrumentation) (domainevent.Publisher, error) {
	client := o.redisClient

	if client == nil && cfg.Enabled() {
		redisClient := redis.NewClient(cfg.RedisOptions())
		a.closers = append(a.closers, redisClient.Close)
		client = redisClient
	}

	if client == nil {
		return a.eventBus, nil
	}

	redisPublisher, err := redisstream.NewPublisher(client, instr.redisOptions(cfg)...)
	if err != nil {
		return nil, err
	}

	// The durable stream goes first, in-process subscribers may retry and wait.
	return domainevent.Publishers{redisPublisher, a.eventBus}, nil
}

// commandMiddlewares are ordered outermost first: logging, recovery, observability, retry,
// then the unit of work, so every attempt runs in its own transaction.
func (a *App) commandMiddlewares(instr instrumentation) ([]bus.Middleware, error) {
	observe, err := instr.busMiddleware(bus.KindCommand)
	if err != nil {
		return nil, err
	}

	transaction, err := unitofwork.Middleware(a.storage.manager, instr.unitOfWorkOptions()...)
	if err != nil {
		return nil, err
	}

	return []bus.Middleware{
		bus.LoggingMiddleware(a.logger.Child(componentBus)),
		bus.RecoveryMiddleware(),
		observe,
		bus.RetryMiddleware(),
		transaction,
	}, nil
}

func (a *App) queryMiddlewares(instr instrumentation) ([]bus.Middleware, error) {
	observe, err := instr.busMiddleware(bus.KindQuery)
	if err != nil {
		return nil, err
	}

	return []bus.Middleware{
		bus.LoggingMiddleware(a.logger.Child(componentBus)),
		bus.RecoveryMiddleware(),
		observe,
	}, nil
}

// NewContext returns a root execution context on the root container.
func (a *App) NewContext() execution.Context {
	return execution.NewContext(a.root)
}

// Container returns the root container.
func (a *App) Container() *container.Container {
	return a.root
}

// Logger returns the root logger.
func (a *App) Logger() *logging.Logger {
	return a.logger
}

// CatalogCommands returns the catalog command bus.
func (a *App) CatalogCommands() bus.Dispatcher {
	return container.Resolve(a.root, catalog.CommandBusToken)
}

// CatalogQueries returns the catalog query bus.
func (a *App) CatalogQueries() bus.Dispatcher {
	return container.Resolve(a.root, catalog.QueryBusToken)
}

// LibraryCommands returns the library command bus.
func (a *App) LibraryCommands() bus.Dispatcher {
	return container.Resolve(a.root, library.CommandBusToken)
}

// LibraryQueries returns the library query bus.
func (a *App) LibraryQueries() bus.Dispatcher {
	return container.Resolve(a.root, library.QueryBusToken)
}

// Subscriber accepts domain event subscriptions on the in-process event bus.
func (a *App) Subscriber() domainevent.Subscriber {
	return a.eventBus
}

// EventLog returns the persisted events of the memory driver, nil for postgres.
func (a *App) EventLog() *inmemory.EventLog {
	return a.storage.eventLog
}

// Migrate creates the postgres tables. It does nothing for the memory driver.
func (a *App) Migrate(ctx context.Context) error {
	return a.storage.migrate(ctx)
}

// Close releases the connections, in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}

	a.closers = nil

	return errors.Join(errs...)
}
