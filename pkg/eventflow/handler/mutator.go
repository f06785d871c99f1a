package handler

import (
	"context"
	"fmt"

	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
	"github.com/randalmurphal/eventflow/pkg/eventflow/lifecycle"
)

// Mutator stores value under key.
type Mutator[K, V any] interface {
	Set(ctx context.Context, key K, value V) error
}

// MutatorFunc adapts a function to Mutator.
type MutatorFunc[K, V any] func(ctx context.Context, key K, value V) error

// Set calls f.
func (f MutatorFunc[K, V]) Set(ctx context.Context, key K, value V) error {
	return f(ctx, key, value)
}

// Extractor derives a value from an event.
type Extractor[T any] func(ctx context.Context, e *event.Event) (T, error)

// MutatorConfig configures a MutatorHandler.
type MutatorConfig[K, V any] struct {
	// Mutator receives every extracted key/value pair. Required.
	Mutator Mutator[K, V]

	// KeyExtractor defaults to the event id, which requires K to be string.
	KeyExtractor Extractor[K]

	// ValueExtractor defaults to the event itself, which requires V to be
	// *event.Event.
	ValueExtractor Extractor[V]
}

// MutatorHandler writes a key/value pair derived from each event through a
// Mutator, typically to update state or persist data.
type MutatorHandler[K, V any] struct {
	*lifecycle.Service
	mutator Mutator[K, V]
	key     Extractor[K]
	value   Extractor[V]
}

// NewMutatorHandler creates a MutatorHandler.
func NewMutatorHandler[K, V any](cfg MutatorConfig[K, V], opts ...Option) (*MutatorHandler[K, V], error) {
	s := newSettings(opts)

	if cfg.Mutator == nil {
		return nil, fmt.Errorf("mutator handler: mutator is required")
	}
	key := cfg.KeyExtractor
	if key == nil {
		if _, ok := any("").(K); !ok {
			var zero K
			return nil, fmt.Errorf("mutator handler: key extractor required for key type %T", zero)
		}
		key = func(_ context.Context, e *event.Event) (K, error) {
			return any(e.ID).(K), nil
		}
	}
	value := cfg.ValueExtractor
	if value == nil {
		if _, ok := any((*event.Event)(nil)).(V); !ok {
			var zero V
			return nil, fmt.Errorf("mutator handler: value extractor required for value type %T", zero)
		}
		value = func(_ context.Context, e *event.Event) (V, error) {
			return any(e).(V), nil
		}
	}

	return &MutatorHandler[K, V]{
		Service: lifecycle.NewService("mutator-handler", s.service...),
		mutator: cfg.Mutator,
		key:     key,
		value:   value,
	}, nil
}

// Handle extracts the key and value from e and stores them.
func (h *MutatorHandler[K, V]) Handle(ctx context.Context, e *event.Event) error {
	inv := h.Begin(ctx, e)

	key, err := h.key(ctx, e)
	if err != nil {
		return inv.Fail(fmt.Errorf("extract key: %w", err))
	}
	value, err := h.value(ctx, e)
	if err != nil {
		return inv.Fail(fmt.Errorf("extract value: %w", err))
	}
	if err := h.mutator.Set(ctx, key, value); err != nil {
		return inv.Fail(err)
	}
	inv.Processed(nil)
	return nil
}
