// Package unitofwork runs transactional command handlers inside a database transaction.
//
// The Middleware forks the execution context's container, lets a Manager begin a transaction
// and bind transaction-scoped collaborators (the domain event store, repositories) into the
// fork, and hands the fork to the handler. When the handler succeeds, the collected domain events
// are saved in the same transaction, the transaction commits and the events are published.
// Publishing happens after the commit; a failure there is logged and does not fail the command.
package unitofwork

import (
	"context"
	"errors"
	"fmt"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/apperror"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/bus"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/container"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/domainevent"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/execution"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/internal/dbadapter"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/observability"
)

const (
	CommitsMetric   = "unitofwork_commits_total"
	RollbacksMetric = "unitofwork_rollbacks_total"

	LogMsgRollbackFailed = "[UnitOfWork] rollback failed"
	LogMsgPublishFailed  = "[UnitOfWork] publishing domain events failed after commit"
	LogMsgCommitted      = "[UnitOfWork] committed"
	LogAttrMessageType   = "message_type"
	LogAttrEventCount    = "event_count"
)

var (
	ErrNilManager   = errors.New("unit of work manager must not be nil")
	ErrNilBeginner  = errors.New("transaction beginner must not be nil")
	ErrNilPersister = errors.New("event persister must not be nil")
)

// Tx is an open unit of work.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Manager begins units of work. Begin binds the transaction-scoped collaborators into scope,
// at least domainevent.StoreToken.
type Manager interface {
	Begin(ctx context.Context, scope *container.Container) (Tx, error)
}

// Binder registers transaction-scoped collaborators, e.g. repositories, into scope.
type Binder func(scope *container.Container, db dbadapter.DBAdapter) error

type middleware struct {
	manager          Manager
	logger           observability.Logger
	contextualLogger observability.ContextualLogger
	metricsCollector observability.MetricsCollector
}

// Option defines a functional option for configuring the Middleware.
type Option func(*middleware) error

// WithLogger sets the logger for the Middleware.
func WithLogger(logger observability.Logger) Option {
	return func(m *middleware) error {
		m.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the Middleware.
func WithContextualLogger(logger observability.ContextualLogger) Option {
	return func(m *middleware) error {
		m.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Middleware.
func WithMetrics(collector observability.MetricsCollector) Option {
	return func(m *middleware) error {
		m.metricsCollector = collector
		return nil
	}
}

// Middleware returns the bus middleware running handlers with HandlerSettings.Transactional
// inside a unit of work. Other handlers pass straight through.
func Middleware(manager Manager, options ...Option) (bus.Middleware, error) {
	if manager == nil {
		return nil, ErrNilManager
	}

	m := &middleware{manager: manager}

	for _, option := range options {
		if err := option(m); err != nil {
			return nil, err
		}
	}

	return m.handle, nil
}

func (m *middleware) handle(
	ctx context.Context,
	msg bus.Message,
	ec execution.Context,
	next bus.Next,
) (result any, err error) {
	if !bus.SettingsFromContext(ctx).Transactional {
		return next(ctx, msg, ec)
	}

	scope := ec.Container.Fork()

	tx, beginErr := m.manager.Begin(ctx, scope)
	if beginErr != nil {
		return nil, asDependencyError(fmt.Errorf("beginning unit of work: %w", beginErr))
	}

	defer func() {
		if r := recover(); r != nil {
			m.rollback(ctx, tx, msg)
			panic(r)
		}
	}()

	result, err = next(ctx, msg, execution.WithContainer(ec, scope))
	if err != nil {
		m.rollback(ctx, tx, msg)
		return nil, err
	}

	store, hasStore := container.TryResolve(scope, domainevent.StoreToken)
	if hasStore {
		if saveErr := store.Save(ctx); saveErr != nil {
			m.rollback(ctx, tx, msg)
			return nil, saveErr
		}
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		m.rollback(ctx, tx, msg)
		return nil, asDependencyError(fmt.Errorf("committing unit of work: %w", commitErr))
	}

	observability.IncrementCounter(ctx, m.metricsCollector, CommitsMetric, map[string]string{
		LogAttrMessageType: msg.MessageType(),
	})

	if hasStore {
		observability.LogDebug(ctx, m.logger, m.contextualLogger, LogMsgCommitted,
			LogAttrMessageType, msg.MessageType(),
			LogAttrEventCount, len(store.Collected()),
		)

		// The events are committed, a cancelled ctx must not hold them back.
		if publishErr := store.Publish(context.WithoutCancel(ctx)); publishErr != nil {
			observability.LogError(ctx, m.logger, m.contextualLogger, LogMsgPublishFailed,
				LogAttrMessageType, msg.MessageType(),
				observability.LogAttrError, publishErr.Error(),
			)
		}
	}

	return result, nil
}

func (m *middleware) rollback(ctx context.Context, tx Tx, msg bus.Message) {
	observability.IncrementCounter(ctx, m.metricsCollector, RollbacksMetric, map[string]string{
		LogAttrMessageType: msg.MessageType(),
	})

	// A cancelled ctx must not keep the transaction open.
	if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil {
		observability.LogWarn(ctx, m.logger, m.contextualLogger, LogMsgRollbackFailed,
			LogAttrMessageType, msg.MessageType(),
			observability.LogAttrError, err.Error(),
		)
	}
}

func asDependencyError(err error) error {
	if _, ok := apperror.As(err); ok {
		return err
	}

	return apperror.NewDependency(err)
}

// publisherFrom returns the publisher registered in scope, or nil.
func publisherFrom(scope *container.Container) domainevent.Publisher {
	publisher, _ := container.TryResolve(scope, domainevent.PublisherToken)

	return publisher
}
