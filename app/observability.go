package app

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/bus"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/config"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/domainevent/inmemory"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/domainevent/postgresengine"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/domainevent/redisstream"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/logging"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/observability"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/observability/oteladapters"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/unitofwork"
)

// InstrumentationName names the OpenTelemetry meter and tracer.
const InstrumentationName = "github.com/AntonStoeckl/library-cqrs-kernel-go"

// TelemetryShutdownTimeout bounds flushing the OpenTelemetry providers on Close.
const TelemetryShutdownTimeout = 5 * time.Second

// Logger components.
const (
	componentBus        = "bus"
	componentEventStore = "eventstore"
	componentEventBus   = "eventbus"
	componentRedis      = "redis"
	componentUnitOfWork = "uow"
)

// instrumentation hands the configured collaborators to every component.
// Unset collectors stay nil interfaces, which disables them.
type instrumentation struct {
	logger           *logging.Logger
	contextualLogger observability.ContextualLogger
	metrics          observability.MetricsCollector
	tracing          observability.TracingCollector
}

func newProviders(ctx context.Context, cfg config.ObservabilityConfig, out io.Writer) (*oteladapters.Providers, error) {
	if cfg.Exporter == config.ExporterOTLP {
		return oteladapters.NewOTLPProviders(ctx, cfg.Endpoint, cfg.ServiceName)
	}

	if out == nil {
		out = os.Stderr
	}

	return oteladapters.NewStdoutProviders(ctx, out, cfg.ServiceName)
}

func shutdownProviders(providers *oteladapters.Providers) func() error {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), TelemetryShutdownTimeout)
		defer cancel()

		return providers.Shutdown(ctx)
	}
}

// useProviders fills the collaborators no option has set.
func (o *options) useProviders(providers *oteladapters.Providers) {
	if o.meterProvider == nil {
		o.meterProvider = providers.MeterProvider
	}

	if o.tracerProvider == nil {
		o.tracerProvider = providers.TracerProvider
	}

	if o.contextualLogger == nil {
		o.contextualLogger = providers.ContextualLogger(InstrumentationName)
	}
}

func newInstrumentation(logger *logging.Logger, o options) instrumentation {
	i := instrumentation{logger: logger, contextualLogger: o.contextualLogger}

	if o.meterProvider != nil {
		i.metrics = oteladapters.NewMetricsCollector(
			o.meterProvider.Meter(InstrumentationName),
			oteladapters.WithInstrumentErrorHandler(func(err error) {
				logger.Warn("creating metric instrument failed", observability.LogAttrError, err.Error())
			}),
		)
	}

	if o.tracerProvider != nil {
		i.tracing = oteladapters.NewTracingCollector(o.tracerProvider.Tracer(InstrumentationName))
	}

	return i
}

func (i instrumentation) busMiddleware(kind bus.Kind) (bus.Middleware, error) {
	opts := []bus.ObservabilityOption{bus.WithLogging(i.logger.Child(componentBus))}

	if i.contextualLogger != nil {
		opts = append(opts, bus.WithContextualLogging(i.contextualLogger))
	}

	if i.metrics != nil {
		opts = append(opts, bus.WithMetrics(i.metrics))
	}

	if i.tracing != nil {
		opts = append(opts, bus.WithTracing(i.tracing))
	}

	return bus.ObservabilityMiddleware(kind, opts...)
}

func (i instrumentation) eventStoreOptions(tableName string) []postgresengine.Option {
	opts := []postgresengine.Option{
		postgresengine.WithTableName(tableName),
		postgresengine.WithLogger(i.logger.Child(componentEventStore)),
	}

	if i.contextualLogger != nil {
		opts = append(opts, postgresengine.WithContextualLogger(i.contextualLogger))
	}

	if i.metrics != nil {
		opts = append(opts, postgresengine.WithMetrics(i.metrics))
	}

	if i.tracing != nil {
		opts = append(opts, postgresengine.WithTracing(i.tracing))
	}

	return opts
}

func (i instrumentation) eventBusOptions() []inmemory.Option {
	opts := []inmemory.Option{inmemory.WithLogger(i.logger.Child(componentEventBus))}

	if i.contextualLogger != nil {
		opts = append(opts, inmemory.WithContextualLogger(i.contextualLogger))
	}

	if i.metrics != nil {
		opts = append(opts, inmemory.WithMetrics(i.metrics))
	}

	return opts
}

func (i instrumentation) redisOptions(cfg config.RedisConfig) []redisstream.Option {
	opts := []redisstream.Option{
		redisstream.WithStream(cfg.Stream),
		redisstream.WithMaxLen(cfg.MaxLen),
		redisstream.WithLogger(i.logger.Child(componentRedis)),
	}

	if cfg.PerAggregateType {
		opts = append(opts, redisstream.WithStreamPerAggregateType())
	}

	if i.contextualLogger != nil {
		opts = append(opts, redisstream.WithContextualLogger(i.contextualLogger))
	}

	if i.metrics != nil {
		opts = append(opts, redisstream.WithMetrics(i.metrics))
	}

	return opts
}

func (i instrumentation) unitOfWorkOptions() []unitofwork.Option {
	opts := []unitofwork.Option{unitofwork.WithLogger(i.logger.Child(componentUnitOfWork))}

	if i.contextualLogger != nil {
		opts = append(opts, unitofwork.WithContextualLogger(i.contextualLogger))
	}

	if i.metrics != nil {
		opts = append(opts, unitofwork.WithMetrics(i.metrics))
	}

	return opts
}
