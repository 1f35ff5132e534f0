package redisstream_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/apperror"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/domainevent"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/domainevent/redisstream"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/testutil/helper"
)

type mockRedisClient struct {
	mu      sync.Mutex
	added   []*redis.XAddArgs
	xaddErr error
}

func (m *mockRedisClient) XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()

	cmd := redis.NewStringCmd(ctx)
	if m.xaddErr != nil {
		cmd.SetErr(m.xaddErr)
		return cmd
	}

	m.added = append(m.added, a)
	cmd.SetVal(fmt.Sprintf("%d-0", len(m.added)))

	return cmd
}

func givenEvent(eventType string) domainevent.DomainEvent {
	return domainevent.DomainEvent{
		ID:               uuid.Must(uuid.NewV7()),
		Type:             eventType,
		OccurredAt:       time.Now().UTC(),
		AggregateType:    "Library",
		AggregateID:      "lib-1",
		AggregateVersion: 0,
		SchemaVersion:    1,
		CorrelationID:    "corr-1",
		Actor:            domainevent.SystemActor(),
		Purpose:          domainevent.PurposeAuditOnly,
		Payload:          []byte(`{"name":"Head Office Library"}`),
	}
}

func Test_NewPublisher_ValidatesOptions(t *testing.T) {
	_, err := redisstream.NewPublisher(nil)
	assert.ErrorIs(t, err, redisstream.ErrNilClient)

	_, err = redisstream.NewPublisher(&mockRedisClient{}, redisstream.WithStream(""))
	assert.ErrorIs(t, err, redisstream.ErrEmptyStream)

	_, err = redisstream.NewPublisher(&mockRedisClient{}, redisstream.WithMaxLen(-1))
	assert.ErrorIs(t, err, redisstream.ErrNegativeLimit)
}

func Test_Publish_AddsOneEntryPerEventInOrder(t *testing.T) {
	// arrange
	client := &mockRedisClient{}
	metrics := helper.NewMetricsCollectorSpy(true)
	publisher, err := redisstream.NewPublisher(client,
		redisstream.WithStream("library-events"),
		redisstream.WithMaxLen(1000),
		redisstream.WithMetrics(metrics),
	)
	require.NoError(t, err)
	first, second := givenEvent("library.libraryRegistered"), givenEvent("library.libraryRenamed")

	// act
	err = publisher.Publish(context.Background(), []domainevent.DomainEvent{first, second})

	// assert
	require.NoError(t, err)
	require.Len(t, client.added, 2)
	assert.Equal(t, "library-events", client.added[0].Stream)
	assert.Equal(t, int64(1000), client.added[0].MaxLen)
	assert.True(t, client.added[0].Approx)

	values := client.added[0].Values.(map[string]any)
	assert.Equal(t, first.ID.String(), values[redisstream.FieldEventID])
	assert.Equal(t, "library.libraryRegistered", values[redisstream.FieldEventType])

	var decoded domainevent.DomainEvent
	require.NoError(t, jsoniter.Unmarshal(values[redisstream.FieldData].([]byte), &decoded))
	assert.Equal(t, first.ID, decoded.ID)
	assert.Equal(t, "library.libraryRenamed", client.added[1].Values.(map[string]any)[redisstream.FieldEventType])
	assert.Equal(t, 2, metrics.CountCounterRecordsForMetric(redisstream.PublishedMetric))
}

func Test_Publish_SplitsStreamPerAggregateType(t *testing.T) {
	// arrange
	client := &mockRedisClient{}
	publisher, err := redisstream.NewPublisher(client,
		redisstream.WithStream("library-events"),
		redisstream.WithStreamPerAggregateType(),
	)
	require.NoError(t, err)
	libraryEvent := givenEvent("library.libraryRegistered")
	bookEvent := givenEvent("catalog.bookRegistered")
	bookEvent.AggregateType = "Book"

	// act
	err = publisher.Publish(context.Background(), []domainevent.DomainEvent{libraryEvent, bookEvent})

	// assert
	require.NoError(t, err)
	require.Len(t, client.added, 2)
	assert.Equal(t, "library-events:Library", client.added[0].Stream)
	assert.Equal(t, "library-events:Book", client.added[1].Stream)
}

func Test_Publish_ReturnsDependencyErrorOnFailure(t *testing.T) {
	// arrange
	client := &mockRedisClient{xaddErr: errors.New("connection refused")}
	logHandler := helper.NewLogHandlerSpy(false)
	publisher, err := redisstream.NewPublisher(client, redisstream.WithLogger(slog.New(logHandler)))
	require.NoError(t, err)

	// act
	err = publisher.Publish(context.Background(), []domainevent.DomainEvent{givenEvent("library.libraryRegistered")})

	// assert
	assert.True(t, apperror.DependencyError.Is(err))
	assert.True(t, logHandler.HasErrorLogWithMessage(redisstream.LogMsgPublishFailed).
		WithAttr(redisstream.LogAttrStream, redisstream.DefaultStream).Assert())
}

func Test_Publish_Integration_WritesToRedis(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR is not set")
	}

	// arrange
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer func() { _ = client.Close() }()

	stream := "domain-events-it-" + uuid.NewString()
	defer client.Del(context.Background(), stream)

	publisher, err := redisstream.NewPublisher(client, redisstream.WithStream(stream))
	require.NoError(t, err)

	// act
	err = publisher.Publish(ctx, []domainevent.DomainEvent{givenEvent("library.libraryRegistered")})

	// assert
	require.NoError(t, err)
	entries, err := client.XRange(ctx, stream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "library.libraryRegistered", entries[0].Values[redisstream.FieldEventType])
}
