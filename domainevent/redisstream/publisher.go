// Package redisstream publishes domain events to a Redis stream so that consumers in other
// processes receive them durably.
//
// Events go to one fixed stream, or with WithStreamPerAggregateType to "<stream>:<aggregate type>".
// Each event becomes one stream entry with the fields event_id, event_type, aggregate_type and
// data, where data is the JSON encoded envelope.
package redisstream

import (
	"context"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/apperror"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/domainevent"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/observability"
)

const (
	// DefaultStream is the stream name used unless WithStream is given.
	DefaultStream = "domain-events"

	FieldEventID       = "event_id"
	FieldEventType     = "event_type"
	FieldAggregateType = "aggregate_type"
	FieldData          = "data"

	PublishDurationMetric = "redisstream_publish_duration_seconds"
	PublishedMetric       = "redisstream_events_published_total"

	LogMsgEventPublished = "[RedisStreamPublisher] published event"
	LogMsgPublishFailed  = "[RedisStreamPublisher] publishing event failed"
	LogAttrStream        = "stream"
	LogAttrEventType     = "event_type"
	LogAttrEventID       = "event_id"
	LogAttrEntryID       = "entry_id"
)

var (
	ErrNilClient     = errors.New("redis client must not be nil")
	ErrEmptyStream   = errors.New("stream name must not be empty")
	ErrNegativeLimit = errors.New("max length must not be negative")
)

// Client is the part of *redis.Client, *redis.ClusterClient and redis.UniversalClient the
// publisher needs.
type Client interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// Publisher implements domainevent.Publisher on top of a Redis stream.
type Publisher struct {
	client           Client
	stream           string
	perAggregateType bool
	maxLen           int64
	logger           observability.Logger
	contextualLogger observability.ContextualLogger
	metricsCollector observability.MetricsCollector
}

// Option defines a functional option for configuring Publisher.
type Option func(*Publisher) error

// WithStream sets the target stream.
func WithStream(stream string) Option {
	return func(p *Publisher) error {
		if stream == "" {
			return ErrEmptyStream
		}

		p.stream = stream

		return nil
	}
}

// WithStreamPerAggregateType splits the stream by aggregate type, e.g. "domain-events:Book".
func WithStreamPerAggregateType() Option {
	return func(p *Publisher) error {
		p.perAggregateType = true
		return nil
	}
}

// WithMaxLen trims the stream approximately to maxLen entries. Zero disables trimming.
func WithMaxLen(maxLen int64) Option {
	return func(p *Publisher) error {
		if maxLen < 0 {
			return ErrNegativeLimit
		}

		p.maxLen = maxLen

		return nil
	}
}

// WithLogger sets the logger for the Publisher.
func WithLogger(logger observability.Logger) Option {
	return func(p *Publisher) error {
		p.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the Publisher.
func WithContextualLogger(logger observability.ContextualLogger) Option {
	return func(p *Publisher) error {
		p.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Publisher.
func WithMetrics(collector observability.MetricsCollector) Option {
	return func(p *Publisher) error {
		p.metricsCollector = collector
		return nil
	}
}

// NewPublisher creates a Publisher writing to DefaultStream unless configured otherwise.
func NewPublisher(client Client, options ...Option) (*Publisher, error) {
	if client == nil {
		return nil, ErrNilClient
	}

	p := &Publisher{
		client: client,
		stream: DefaultStream,
	}

	for _, option := range options {
		if err := option(p); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// Publish appends the events to the stream in order. The first failing XADD stops publishing
// and is returned as a DEPENDENCY error.
func (p *Publisher) Publish(ctx context.Context, events []domainevent.DomainEvent) error {
	for _, event := range events {
		if err := p.publishOne(ctx, event); err != nil {
			return err
		}
	}

	return nil
}

func (p *Publisher) publishOne(ctx context.Context, event domainevent.DomainEvent) error {
	data, marshalErr := jsoniter.ConfigFastest.Marshal(event)
	if marshalErr != nil {
		return apperror.NewBug(fmt.Errorf("encoding event %s: %w", event.ID, marshalErr))
	}

	stream := p.streamFor(event)
	args := &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{
			FieldEventID:       event.ID.String(),
			FieldEventType:     event.Type,
			FieldAggregateType: event.AggregateType,
			FieldData:          data,
		},
	}

	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	start := time.Now()
	entryID, err := p.client.XAdd(ctx, args).Result()
	duration := time.Since(start)

	labels := map[string]string{LogAttrEventType: event.Type, observability.LogAttrStatus: observability.StatusFromError(err)}
	observability.RecordDuration(ctx, p.metricsCollector, PublishDurationMetric, duration, labels)

	if err != nil {
		observability.LogError(ctx, p.logger, p.contextualLogger, LogMsgPublishFailed,
			LogAttrStream, stream,
			LogAttrEventType, event.Type,
			LogAttrEventID, event.ID.String(),
			observability.LogAttrError, err.Error(),
		)

		return apperror.NewDependency(err)
	}

	observability.IncrementCounter(ctx, p.metricsCollector, PublishedMetric, labels)
	observability.LogDebug(ctx, p.logger, p.contextualLogger, LogMsgEventPublished,
		LogAttrStream, p.stream,
		LogAttrEventType, event.Type,
		LogAttrEntryID, entryID,
		observability.LogAttrDurationMS, observability.ToMilliseconds(duration),
	)

	return nil
}

func (p *Publisher) streamFor(event domainevent.DomainEvent) string {
	if !p.perAggregateType {
		return p.stream
	}

	return p.stream + ":" + event.AggregateType
}
