package bus

import (
	"context"
	"time"
)

// HandlerSettings is metadata consumed by middlewares, the bus itself ignores it.
type HandlerSettings struct {
	// Transactional handlers run inside a unit of work (see package unitofwork).
	Transactional bool

	// Retry enables RetryMiddleware for the handler.
	Retry *RetryPolicy
}

// RetryPolicy configures RetryMiddleware.
type RetryPolicy struct {
	// MaxAttempts counts the first call, must be positive.
	MaxAttempts int

	// Backoff is the delay before the first retry; it doubles for every further retry.
	Backoff time.Duration

	// ShouldRetry decides whether a failed attempt is retried.
	// Nil retries concurrency conflicts only.
	ShouldRetry func(error) bool

	// ErrorMapper translates the last error once all attempts failed. Mandatory.
	ErrorMapper func(error) error
}

func (s HandlerSettings) validate(kind Kind) error {
	if s.Transactional && kind == KindQuery {
		return ErrTransactionalQuery
	}

	if s.Retry == nil {
		return nil
	}

	if s.Retry.ErrorMapper == nil {
		return ErrRetryWithoutErrorMapper
	}

	if s.Retry.MaxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	if s.Retry.Backoff < 0 {
		return ErrNegativeBackoff
	}

	return nil
}

type settingsKey struct{}

// WithSettings attaches the settings of the dispatched handler to ctx.
func WithSettings(ctx context.Context, settings HandlerSettings) context.Context {
	return context.WithValue(ctx, settingsKey{}, settings)
}

// SettingsFromContext returns the settings of the handler being dispatched, or zero settings.
func SettingsFromContext(ctx context.Context) HandlerSettings {
	settings, _ := ctx.Value(settingsKey{}).(HandlerSettings)

	return settings
}
