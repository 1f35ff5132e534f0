package bus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/apperror"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/execution"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/observability"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/retry"
)

const (
	// LogAttrMessageType identifies the message type in logs and metric labels.
	LogAttrMessageType = "message_type"

	// LogAttrExecutionID identifies the execution context in logs.
	LogAttrExecutionID = "execution_id"

	// LogAttrCorrelationID identifies the correlation chain in logs.
	LogAttrCorrelationID = "correlation_id"

	// LogAttrAttempts indicates how many attempts a retried dispatch needed.
	LogAttrAttempts = "attempts"
)

// LoggingMiddleware measures the wall-clock duration of the dispatch and logs the outcome.
func LoggingMiddleware(logger observability.Logger) Middleware {
	return func(ctx context.Context, msg Message, ec execution.Context, next Next) (any, error) {
		start := time.Now()

		result, err := next(ctx, msg, ec)

		durationMS := observability.ToMilliseconds(time.Since(start))
		args := []any{
			LogAttrMessageType, msg.MessageType(),
			observability.LogAttrDurationMS, durationMS,
			LogAttrExecutionID, ec.ID,
			LogAttrCorrelationID, ec.CorrelationID,
		}

		if err != nil {
			args = append(args, observability.LogAttrError, err.Error())
			logger.Error(fmt.Sprintf("[Bus] %s failed after %.2fms", msg.MessageType(), durationMS), args...)

			return nil, err
		}

		logger.Info(fmt.Sprintf("[Bus] %s completed in %.2fms", msg.MessageType(), durationMS), args...)

		return result, nil
	}
}

// RecoveryMiddleware turns a panicking handler, or a panicking dependency resolution, into a BUG error.
func RecoveryMiddleware() Middleware {
	return func(ctx context.Context, msg Message, ec execution.Context, next Next) (result any, err error) {
		defer func() {
			if recovered := recover(); recovered != nil {
				result = nil

				if cause, ok := recovered.(error); ok {
					err = apperror.NewBug(fmt.Errorf("panic while handling %s: %w", msg.MessageType(), cause))
					return
				}

				err = apperror.NewBug(fmt.Errorf("panic while handling %s: %v", msg.MessageType(), recovered))
			}
		}()

		return next(ctx, msg, ec)
	}
}

// RetryMiddleware performs the retry loop configured by the handler's RetryPolicy.
//
// Handlers without policy pass straight through. A failure ShouldRetry rejects is returned as is;
// once all attempts failed, the last error goes through ErrorMapper. Cancellation of ctx ends the
// loop with a RESOURCE error. Additional retry options (metrics, jitter) apply to every policy.
func RetryMiddleware(options ...retry.Option) Middleware {
	return func(ctx context.Context, msg Message, ec execution.Context, next Next) (any, error) {
		policy := SettingsFromContext(ctx).Retry
		if policy == nil {
			return next(ctx, msg, ec)
		}

		shouldRetry := policy.ShouldRetry
		if shouldRetry == nil {
			shouldRetry = retry.IsConcurrencyConflict
		}

		retryOptions := append([]retry.Option{
			retry.WithMaxAttempts(policy.MaxAttempts),
			retry.WithBaseDelay(policy.Backoff),
			retry.WithJitterFactor(0),
			retry.WithShouldRetry(shouldRetry),
		}, options...)

		var result any
		meta, err := retry.WithExponentialBackoff(
			ctx,
			func(ctx context.Context) error {
				r, err := next(ctx, msg, ec)
				if err != nil {
					return err
				}

				result = r

				return nil
			},
			retryOptions...,
		)

		switch {
		case err == nil:
			return result, nil

		case meta.Exhausted:
			return nil, policy.ErrorMapper(err)

		case ctx.Err() != nil && isContextError(err):
			return nil, apperror.NewResource(err)

		default:
			return nil, err
		}
	}
}

func isContextError(err error) bool {
	if _, ok := apperror.As(err); ok {
		return false
	}

	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
