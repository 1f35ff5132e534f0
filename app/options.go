package app

import (
	"errors"
	"io"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/domainevent/redisstream"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/logging"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/observability"
)

var (
	ErrNilLogger         = errors.New("logger must not be nil")
	ErrNilMeterProvider  = errors.New("meter provider must not be nil")
	ErrNilTracerProvider = errors.New("tracer provider must not be nil")
	ErrNilRedisClient    = errors.New("redis client must not be nil")
)

type options struct {
	logger           *logging.Logger
	logOutput        io.Writer
	contextualLogger observability.ContextualLogger
	meterProvider    metric.MeterProvider
	tracerProvider   trace.TracerProvider
	redisClient      redisstream.Client
	seed             bool
	migrate          bool
}

// Option configures New.
type Option func(*options) error

// WithLogger replaces the logger built from the configuration.
func WithLogger(logger *logging.Logger) Option {
	return func(o *options) error {
		if logger == nil {
			return ErrNilLogger
		}

		o.logger = logger

		return nil
	}
}

// WithLogOutput redirects the logger built from the configuration.
func WithLogOutput(out io.Writer) Option {
	return func(o *options) error {
		o.logOutput = out
		return nil
	}
}

// WithContextualLogger adds trace-correlated logging, e.g. an oteladapters.SlogBridgeLogger.
func WithContextualLogger(logger observability.ContextualLogger) Option {
	return func(o *options) error {
		if logger == nil {
			return ErrNilLogger
		}

		o.contextualLogger = logger

		return nil
	}
}

// WithMeterProvider enables metrics for the buses, the event bus and the storage.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(o *options) error {
		if provider == nil {
			return ErrNilMeterProvider
		}

		o.meterProvider = provider

		return nil
	}
}

// WithTracerProvider enables tracing for the buses and the storage.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(o *options) error {
		if provider == nil {
			return ErrNilTracerProvider
		}

		o.tracerProvider = provider

		return nil
	}
}

// WithRedisClient publishes domain events through client instead of one built from the configuration.
func WithRedisClient(client redisstream.Client) Option {
	return func(o *options) error {
		if client == nil {
			return ErrNilRedisClient
		}

		o.redisClient = client

		return nil
	}
}

// WithoutSeed skips registering the mock libraries.
func WithoutSeed() Option {
	return func(o *options) error {
		o.seed = false
		return nil
	}
}

// WithoutMigration skips creating the postgres tables on start.
func WithoutMigration() Option {
	return func(o *options) error {
		o.migrate = false
		return nil
	}
}
