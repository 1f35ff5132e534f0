package oteladapters_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/observability"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/observability/oteladapters"
)

func Test_NewStdoutProviders_ExportsSpansMetricsAndLogs(t *testing.T) {
	// arrange
	var out bytes.Buffer
	ctx := context.Background()
	providers, err := oteladapters.NewStdoutProviders(ctx, &out, "librarian-test")
	require.NoError(t, err)

	tracing := oteladapters.NewTracingCollector(providers.TracerProvider.Tracer("test"))
	metrics := oteladapters.NewMetricsCollector(providers.MeterProvider.Meter("test"))
	logger := providers.ContextualLogger("test")

	// act
	spanCtx, span := tracing.StartSpan(ctx, "eventstore.persist", nil)
	metrics.IncrementCounter("unitofwork_commits_total", map[string]string{"message_type": "catalog.registerBook"})
	logger.ErrorContext(spanCtx, "publishing domain events failed after commit")
	tracing.FinishSpan(span, observability.StatusSuccess, nil)
	require.NoError(t, providers.Shutdown(ctx))

	// assert
	output := out.String()
	assert.Contains(t, output, "eventstore.persist")
	assert.Contains(t, output, "unitofwork_commits_total")
	assert.Contains(t, output, "publishing domain events failed after commit")
	assert.Contains(t, output, "librarian-test")
}

func Test_NewProviders_RejectInvalidArguments(t *testing.T) {
	ctx := context.Background()

	_, err := oteladapters.NewStdoutProviders(ctx, nil, "svc")
	assert.ErrorIs(t, err, oteladapters.ErrNilWriter)

	_, err = oteladapters.NewStdoutProviders(ctx, &bytes.Buffer{}, "")
	assert.ErrorIs(t, err, oteladapters.ErrEmptyServiceName)

	_, err = oteladapters.NewOTLPProviders(ctx, "", "svc")
	assert.ErrorIs(t, err, oteladapters.ErrEmptyEndpoint)
}
