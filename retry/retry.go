// Package retry runs a function with bounded exponential backoff.
//
// It is used by the bus RetryMiddleware (optimistic concurrency retries of whole commands)
// and by the in-memory event bus (per-subscriber delivery retries).
package retry

import (
	"context"
	"errors"
	"math/rand"
	"strconv"
	"time"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/apperror"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/observability"
)

const (
	defaultMaxAttempts  = 6
	defaultBaseDelay    = 10 * time.Millisecond
	defaultJitterFactor = 0.3
)

// Metric names.
const (
	DelayMetric     = "retry_delay_seconds"
	AttemptsMetric  = "retry_attempts_total"
	ExhaustedMetric = "retry_exhausted_total"

	labelOperation      = "operation"
	labelAttemptNumber  = "attempt_number"
	labelErrorType      = "error_type"
	labelFinalErrorType = "final_error_type"
)

// Error types reported in Result.LastErrorType and in metric labels.
const (
	ErrorTypeNone                    = "none"
	ErrorTypeConcurrencyConflict     = "concurrency_conflict"
	ErrorTypeContextCanceled         = "context_canceled"
	ErrorTypeContextDeadlineExceeded = "context_deadline_exceeded"
	ErrorTypeOther                   = "other"
)

var (
	// ErrNilMetricsCollector is returned when a nil metrics collector is provided to WithMetrics.
	ErrNilMetricsCollector = errors.New("metrics collector must not be nil")

	// ErrEmptyOperation is returned when an empty operation name is provided to WithMetrics.
	ErrEmptyOperation = errors.New("operation must not be empty")

	// ErrInvalidMaxAttempts is returned when max attempts are not positive.
	ErrInvalidMaxAttempts = errors.New("max attempts must be positive")

	// ErrNegativeBaseDelay is returned when the base delay is negative.
	ErrNegativeBaseDelay = errors.New("base delay must not be negative")

	// ErrInvalidJitterFactor is returned when the jitter factor is not between 0.0 and 1.0.
	ErrInvalidJitterFactor = errors.New("jitter factor must be between 0.0 and 1.0")

	// ErrNilShouldRetry is returned when a nil predicate is provided to WithShouldRetry.
	ErrNilShouldRetry = errors.New("should retry predicate must not be nil")
)

// Func represents a function that can be retried.
type Func func(ctx context.Context) error

// Result describes how a retried call went.
type Result struct {
	Attempts      int
	TotalDelay    time.Duration
	LastErrorType string

	// Exhausted is true when every attempt failed with a retryable error.
	Exhausted bool
}

type config struct {
	maxAttempts      int
	baseDelay        time.Duration
	jitterFactor     float64
	shouldRetry      func(error) bool
	metricsCollector observability.MetricsCollector
	operation        string
}

// Option configures retry behavior using the functional options pattern.
type Option func(*config) error

// WithExponentialBackoff executes fn and retries it on retryable errors up to maxAttempts times.
//
// Delays before the n-th retry: baseDelay * 2^(n-1) plus up to jitterFactor of that as jitter.
// No delay follows the final attempt.
// By default only apperror.ConcurrencyError is retryable, everything else fails fast.
// A cancelled ctx aborts the backoff wait and returns ctx.Err().
func WithExponentialBackoff(ctx context.Context, fn Func, options ...Option) (Result, error) {
	cfg := &config{
		maxAttempts:  defaultMaxAttempts,
		baseDelay:    defaultBaseDelay,
		jitterFactor: defaultJitterFactor,
		shouldRetry:  IsConcurrencyConflict,
	}

	for _, option := range options {
		if err := option(cfg); err != nil {
			return Result{LastErrorType: ErrorTypeNone}, err
		}
	}

	result := Result{LastErrorType: ErrorTypeNone}
	var lastErr error

	for attempt := 0; attempt < cfg.maxAttempts; attempt++ {
		if attempt > 0 {
			backoffDelay := cfg.delayFor(attempt)
			recordDelayMetric(ctx, cfg, attempt, backoffDelay)

			select {
			case <-time.After(backoffDelay):
				result.TotalDelay += backoffDelay

			case <-ctx.Done():
				result.LastErrorType = ErrorType(ctx.Err())
				return result, ctx.Err()
			}
		}

		result.Attempts++

		lastErr = fn(ctx)
		if lastErr == nil {
			result.LastErrorType = ErrorTypeNone
			return result, nil
		}

		result.LastErrorType = ErrorType(lastErr)

		if !cfg.shouldRetry(lastErr) {
			return result, lastErr
		}

		if attempt < cfg.maxAttempts-1 {
			recordAttemptMetric(ctx, cfg, attempt+1, lastErr)
		}
	}

	result.Exhausted = true
	recordExhaustedMetric(ctx, cfg, lastErr)

	return result, lastErr
}

func (cfg *config) delayFor(attempt int) time.Duration {
	delay := cfg.baseDelay * time.Duration(1<<(attempt-1))
	jitter := rand.Float64() * float64(delay) * cfg.jitterFactor //nolint:gosec //math/rand is sufficient for jitter

	return delay + time.Duration(jitter)
}

// IsConcurrencyConflict is the default retry predicate.
//
// Timeouts are NOT retryable: retrying them during overload creates cascade failures.
func IsConcurrencyConflict(err error) bool {
	return apperror.ConcurrencyError.Is(err)
}

// ErrorType extracts a string representation of the error type for metrics labeling.
func ErrorType(err error) string {
	switch {
	case err == nil:
		return ErrorTypeNone
	case apperror.ConcurrencyError.Is(err):
		return ErrorTypeConcurrencyConflict
	case errors.Is(err, context.Canceled):
		return ErrorTypeContextCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorTypeContextDeadlineExceeded
	default:
		return ErrorTypeOther
	}
}

func recordDelayMetric(ctx context.Context, cfg *config, attempt int, backoffDelay time.Duration) {
	if cfg.metricsCollector == nil {
		return
	}

	observability.RecordDuration(ctx, cfg.metricsCollector, DelayMetric, backoffDelay, map[string]string{
		labelOperation:     cfg.operation,
		labelAttemptNumber: strconv.Itoa(attempt),
	})
}

func recordAttemptMetric(ctx context.Context, cfg *config, attemptNumber int, lastErr error) {
	if cfg.metricsCollector == nil {
		return
	}

	observability.IncrementCounter(ctx, cfg.metricsCollector, AttemptsMetric, map[string]string{
		labelOperation:     cfg.operation,
		labelAttemptNumber: strconv.Itoa(attemptNumber),
		labelErrorType:     ErrorType(lastErr),
	})
}

func recordExhaustedMetric(ctx context.Context, cfg *config, lastErr error) {
	if cfg.metricsCollector == nil {
		return
	}

	observability.IncrementCounter(ctx, cfg.metricsCollector, ExhaustedMetric, map[string]string{
		labelOperation:      cfg.operation,
		labelFinalErrorType: ErrorType(lastErr),
	})
}

// WithMaxAttempts sets the maximum number of attempts, the first call included.
func WithMaxAttempts(attempts int) Option {
	return func(cfg *config) error {
		if attempts <= 0 {
			return ErrInvalidMaxAttempts
		}

		cfg.maxAttempts = attempts

		return nil
	}
}

// WithBaseDelay sets the base delay for exponential backoff.
// Actual delays: baseDelay, baseDelay*2, baseDelay*4, baseDelay*8, etc.
func WithBaseDelay(delay time.Duration) Option {
	return func(cfg *config) error {
		if delay < 0 {
			return ErrNegativeBaseDelay
		}

		cfg.baseDelay = delay

		return nil
	}
}

// WithJitterFactor sets the jitter factor to prevent thundering herd problems.
// Valid range: 0.0 (no jitter) to 1.0 (100% jitter).
func WithJitterFactor(factor float64) Option {
	return func(cfg *config) error {
		if factor < 0.0 || factor > 1.0 {
			return ErrInvalidJitterFactor
		}

		cfg.jitterFactor = factor

		return nil
	}
}

// WithShouldRetry replaces the retry predicate.
func WithShouldRetry(shouldRetry func(error) bool) Option {
	return func(cfg *config) error {
		if shouldRetry == nil {
			return ErrNilShouldRetry
		}

		cfg.shouldRetry = shouldRetry

		return nil
	}
}

// WithMetrics sets the metrics collector for retry instrumentation.
// Requires an operation name to properly label metrics.
func WithMetrics(collector observability.MetricsCollector, operation string) Option {
	return func(cfg *config) error {
		if collector == nil {
			return ErrNilMetricsCollector
		}

		if operation == "" {
			return ErrEmptyOperation
		}

		cfg.metricsCollector = collector
		cfg.operation = operation

		return nil
	}
}
