package bus_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/bus"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/container"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/execution"
)

type pingDeps struct {
	Prefix string
}

func resolvePingDeps(c *container.Container) pingDeps {
	return pingDeps{Prefix: container.Resolve(c, prefixToken)}
}

func pingRegistration(factoryCalls *int) bus.Registration[pingDeps] {
	return bus.Registration[pingDeps]{
		HandlerFactory: func(deps pingDeps) bus.Handler {
			if factoryCalls != nil {
				*factoryCalls++
			}

			return bus.Handle(func(_ context.Context, msg pingMessage, _ execution.Context) (string, error) {
				return deps.Prefix + msg.Payload, nil
			})
		},
	}
}

func Test_Builder_Build_ResolvesDependenciesOnEveryCall(t *testing.T) {
	// arrange
	factoryCalls := 0
	typed, err := bus.NewCommandBusBuilder[pingDeps]("test.ping").
		Register("test.ping", pingRegistration(&factoryCalls)).
		Build(resolvePingDeps)
	require.NoError(t, err)

	c := newRootContainer()
	ec := execution.NewContext(c)

	// act
	first, err := bus.ExecuteAs[string](context.Background(), typed, pingMessage{Payload: "1"}, ec)
	require.NoError(t, err)

	container.Register(c, prefixToken, "changed:")
	second, err := bus.ExecuteAs[string](context.Background(), typed, pingMessage{Payload: "2"}, ec)
	require.NoError(t, err)

	// assert
	assert.Equal(t, "pong:1", first)
	assert.Equal(t, "changed:2", second)
	assert.Equal(t, 2, factoryCalls)
	assert.Equal(t, bus.KindCommand, typed.Kind())
}

func Test_Builder_Build_ResolvesFromContainerSeenByHandler(t *testing.T) {
	swapContainer := func(ctx context.Context, msg bus.Message, ec execution.Context, next bus.Next) (any, error) {
		scoped := ec.Container.Fork()
		container.Register(scoped, prefixToken, "scoped:")

		return next(ctx, msg, execution.WithContainer(ec, scoped))
	}

	typed, err := bus.NewCommandBusBuilder[pingDeps]("test.ping").
		Use(swapContainer).
		Register("test.ping", pingRegistration(nil)).
		Build(resolvePingDeps)
	require.NoError(t, err)

	result, err := bus.ExecuteAs[string](context.Background(), typed, pingMessage{Payload: "x"}, execution.NewContext(newRootContainer()))

	require.NoError(t, err)
	assert.Equal(t, "scoped:x", result)
}

func Test_Builder_Use_KeepsRegistrationOrder(t *testing.T) {
	var trace []string

	typed, err := bus.NewQueryBusBuilder[pingDeps]("test.ping").
		Use(recordingMiddleware("A", &trace)).
		Use(recordingMiddleware("B", &trace)).
		Register("test.ping", pingRegistration(nil)).
		Build(resolvePingDeps)
	require.NoError(t, err)

	_, err = typed.Execute(context.Background(), pingMessage{}, execution.NewContext(newRootContainer()))

	require.NoError(t, err)
	assert.Equal(t, []string{"A-before", "B-before", "B-after", "A-after"}, trace)
}

func Test_Builder_Build_FailsOnMissingRegistration(t *testing.T) {
	_, err := bus.NewCommandBusBuilder[pingDeps]("test.ping", "test.other").
		Register("test.ping", pingRegistration(nil)).
		Build(resolvePingDeps)

	assert.ErrorIs(t, err, bus.ErrMissingHandlers)
	assert.Contains(t, err.Error(), "test.other")
}

func Test_Builder_Build_FailsOnInvalidRegistrations(t *testing.T) {
	testCases := []struct {
		name    string
		builder func() *bus.Builder[pingDeps]
		wantErr error
	}{
		{
			name: "duplicate",
			builder: func() *bus.Builder[pingDeps] {
				return bus.NewCommandBusBuilder[pingDeps]("test.ping").
					Register("test.ping", pingRegistration(nil)).
					Register("test.ping", pingRegistration(nil))
			},
			wantErr: bus.ErrDuplicateHandler,
		},
		{
			name: "undeclared",
			builder: func() *bus.Builder[pingDeps] {
				return bus.NewCommandBusBuilder[pingDeps]("test.ping").
					Register("test.ping", pingRegistration(nil)).
					Register("test.other", pingRegistration(nil))
			},
			wantErr: bus.ErrUndeclaredMessageType,
		},
		{
			name: "retry without error mapper",
			builder: func() *bus.Builder[pingDeps] {
				reg := pingRegistration(nil)
				reg.Settings.Retry = &bus.RetryPolicy{MaxAttempts: 3}

				return bus.NewCommandBusBuilder[pingDeps]("test.ping").Register("test.ping", reg)
			},
			wantErr: bus.ErrRetryWithoutErrorMapper,
		},
		{
			name: "retry without attempts",
			builder: func() *bus.Builder[pingDeps] {
				reg := pingRegistration(nil)
				reg.Settings.Retry = &bus.RetryPolicy{ErrorMapper: func(err error) error { return err }}

				return bus.NewCommandBusBuilder[pingDeps]("test.ping").Register("test.ping", reg)
			},
			wantErr: bus.ErrInvalidMaxAttempts,
		},
		{
			name: "transactional query",
			builder: func() *bus.Builder[pingDeps] {
				reg := pingRegistration(nil)
				reg.Settings.Transactional = true

				return bus.NewQueryBusBuilder[pingDeps]("test.ping").Register("test.ping", reg)
			},
			wantErr: bus.ErrTransactionalQuery,
		},
		{
			name: "nil factory",
			builder: func() *bus.Builder[pingDeps] {
				return bus.NewCommandBusBuilder[pingDeps]("test.ping").
					Register("test.ping", bus.Registration[pingDeps]{})
			},
			wantErr: bus.ErrNilHandlerFactory,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.builder().Build(resolvePingDeps)

			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func Test_Builder_Build_RequiresDependencyResolver(t *testing.T) {
	_, err := bus.NewCommandBusBuilder[pingDeps]("test.ping").
		Register("test.ping", pingRegistration(nil)).
		Build(nil)

	assert.ErrorIs(t, err, bus.ErrNilDependencyResolver)
}

func Test_TypedBus_Execute_MissingHandlerIsBug(t *testing.T) {
	typed, err := bus.NewCommandBusBuilder[pingDeps]("test.ping").
		Register("test.ping", pingRegistration(nil)).
		Build(resolvePingDeps)
	require.NoError(t, err)

	_, err = typed.Execute(context.Background(), otherMessage{}, execution.NewContext(newRootContainer()))

	assert.ErrorContains(t, err, "No handler registered for message type: test.other")
}

func Test_ExecuteAs_RejectsUnexpectedResultType(t *testing.T) {
	typed, err := bus.NewCommandBusBuilder[pingDeps]("test.ping").
		Register("test.ping", pingRegistration(nil)).
		Build(resolvePingDeps)
	require.NoError(t, err)

	_, err = bus.ExecuteAs[int](context.Background(), typed, pingMessage{}, execution.NewContext(newRootContainer()))

	assert.ErrorIs(t, err, bus.ErrUnexpectedResultType)
}
