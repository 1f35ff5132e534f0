package container

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrMissingRegistration is the panic value (wrapped) when resolving a token that has no binding.
	ErrMissingRegistration = errors.New("missing registration")

	// ErrRegistrationTypeMismatch is the panic value (wrapped) when a binding does not have the token's type.
	ErrRegistrationTypeMismatch = errors.New("registration type mismatch")
)

// Token is an opaque key for a binding of type T.
// Keys must be unique per binding purpose, two tokens with the same key share one binding.
type Token[T any] struct {
	key string
}

// NewToken creates a Token. Tokens are usually package-level variables.
func NewToken[T any](key string) Token[T] {
	return Token[T]{key: key}
}

// Key returns the registry key of the token.
func (t Token[T]) Key() string {
	return t.key
}

func (t Token[T]) String() string {
	return t.key
}

// Container is a registry of singleton instances keyed by Token.
// Forks are independent snapshot copies, so a request- or transaction-scoped
// override never leaks into the parent or into sibling scopes.
type Container struct {
	mu       sync.RWMutex
	bindings map[string]any
}

// New creates an empty Container.
func New() *Container {
	return &Container{bindings: make(map[string]any)}
}

// Register binds instance to token, replacing any earlier binding in this container.
func Register[T any](c *Container, token Token[T], instance T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.bindings[token.key] = instance
}

// Resolve returns the instance bound to token.
// A missing or mistyped binding is a wiring defect and panics.
func Resolve[T any](c *Container, token Token[T]) T {
	instance, found := c.lookup(token.key)
	if !found {
		panic(fmt.Errorf("%w: %s", ErrMissingRegistration, token.key))
	}

	typed, ok := instance.(T)
	if !ok && instance != nil {
		panic(fmt.Errorf("%w: %s holds %T", ErrRegistrationTypeMismatch, token.key, instance))
	}

	return typed
}

// TryResolve is Resolve for optional bindings: it reports false instead of panicking when nothing is bound.
func TryResolve[T any](c *Container, token Token[T]) (T, bool) {
	var zero T

	instance, found := c.lookup(token.key)
	if !found {
		return zero, false
	}

	typed, ok := instance.(T)
	if !ok {
		return zero, false
	}

	return typed, true
}

// IsRegistered reports whether token has a binding in this container.
func IsRegistered[T any](c *Container, token Token[T]) bool {
	_, found := c.lookup(token.key)
	return found
}

// Fork returns a new Container holding a copy of the current bindings.
func (c *Container) Fork() *Container {
	c.mu.RLock()
	defer c.mu.RUnlock()

	bindings := make(map[string]any, len(c.bindings))
	for key, instance := range c.bindings {
		bindings[key] = instance
	}

	return &Container{bindings: bindings}
}

// Clone is a synonym of Fork.
func (c *Container) Clone() *Container {
	return c.Fork()
}

func (c *Container) lookup(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	instance, found := c.bindings[key]

	return instance, found
}
