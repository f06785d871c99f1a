package channel_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/eventflow/pkg/eventflow/channel"
	"github.com/randalmurphal/eventflow/pkg/eventflow/endpoint"
	eferrors "github.com/randalmurphal/eventflow/pkg/eventflow/errors"
	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
	"github.com/randalmurphal/eventflow/pkg/eventflow/lifecycle"
)

func TestFilter(t *testing.T) {
	ctx := context.Background()

	t.Run("allow all", func(t *testing.T) {
		primary, rejected, rec := &sink{}, &sink{}, &recorder{}
		f, err := channel.NewFilter(endpoint.AllowAll, primary,
			channel.WithRejectionHandler(rejected), channel.WithListener(rec))
		require.NoError(t, err)

		require.NoError(t, f.Send(ctx, event.New(nil)))
		assert.Len(t, primary.received(), 1)
		assert.Empty(t, rejected.received())
		assert.Equal(t, []lifecycle.Kind{lifecycle.Received, lifecycle.Accepted, lifecycle.Delivered}, rec.kinds())
	})

	t.Run("deny all", func(t *testing.T) {
		primary, rejected, rec := &sink{}, &sink{}, &recorder{}
		f, err := channel.NewFilter(endpoint.DenyAll, primary,
			channel.WithRejectionHandler(rejected), channel.WithListener(rec))
		require.NoError(t, err)

		require.NoError(t, f.Send(ctx, event.New(nil)))
		assert.Empty(t, primary.received())
		assert.Len(t, rejected.received(), 1)
		assert.Equal(t, []lifecycle.Kind{lifecycle.Received, lifecycle.Rejected, lifecycle.Delivered}, rec.kinds())
	})

	t.Run("default rejection handler", func(t *testing.T) {
		primary := &sink{}
		f, err := channel.NewFilter(func(e *event.Event) bool { return e.Type == "Order" }, primary)
		require.NoError(t, err)
		require.NoError(t, f.Send(ctx, event.NewTyped("Refund", nil)))
		require.NoError(t, f.Send(ctx, event.NewTyped("Order", nil)))
		assert.Len(t, primary.received(), 1)
	})

	t.Run("swallows handler failure", func(t *testing.T) {
		boom := errors.New("boom")
		rec := &recorder{}
		f, err := channel.NewFilter(endpoint.AllowAll, &sink{err: boom}, channel.WithListener(rec))
		require.NoError(t, err)

		assert.NoError(t, f.Send(ctx, event.New(nil)))
		n, ok := rec.first(lifecycle.Error)
		require.True(t, ok)
		assert.Same(t, boom, n.Err)
		assert.Equal(t, 0, rec.count(lifecycle.Delivered))
	})

	t.Run("rethrow option", func(t *testing.T) {
		boom := errors.New("predicate broke")
		f, err := channel.NewFilter(
			endpoint.PredicateFunc(func(context.Context, *event.Event) (bool, error) { return false, boom }),
			&sink{}, channel.WithRethrow(true))
		require.NoError(t, err)
		assert.Same(t, boom, f.Send(ctx, event.New(nil)))
	})

	t.Run("invalid collaborators", func(t *testing.T) {
		_, err := channel.NewFilter(nil, &sink{})
		assert.ErrorIs(t, err, eferrors.ErrInvalidEndpoint)
		_, err = channel.NewFilter(endpoint.AllowAll, "nope")
		assert.ErrorIs(t, err, eferrors.ErrInvalidEndpoint)
	})

	t.Run("name", func(t *testing.T) {
		f, err := channel.NewFilter(endpoint.AllowAll, &sink{}, channel.WithName("orders"))
		require.NoError(t, err)
		assert.Equal(t, "orders", f.Name())
	})
}

func TestTap(t *testing.T) {
	ctx := context.Background()

	t.Run("tap before primary", func(t *testing.T) {
		var order []string
		tap := func(context.Context, *event.Event) error { order = append(order, "tap"); return nil }
		primary := func(context.Context, *event.Event) error { order = append(order, "primary"); return nil }
		rec := &recorder{}
		tp, err := channel.NewTap(tap, primary, channel.WithListener(rec))
		require.NoError(t, err)

		require.NoError(t, tp.Send(ctx, event.New(nil)))
		assert.Equal(t, []string{"tap", "primary"}, order)
		assert.Equal(t, []lifecycle.Kind{lifecycle.Received, lifecycle.Delivered}, rec.kinds())
	})

	t.Run("tap failure rethrown by default", func(t *testing.T) {
		boom := errors.New("audit down")
		primary, rec := &sink{}, &recorder{}
		tp, err := channel.NewTap(&sink{err: boom}, primary, channel.WithListener(rec))
		require.NoError(t, err)

		assert.Same(t, boom, tp.Send(ctx, event.New(nil)))
		assert.Empty(t, primary.received(), "primary must not run")
		assert.Equal(t, 1, rec.count(lifecycle.Error))
	})

	t.Run("tap failure swallowed when rethrow off", func(t *testing.T) {
		primary, rec := &sink{}, &recorder{}
		tp, err := channel.NewTap(&sink{err: errors.New("x")}, primary,
			channel.WithRethrow(false), channel.WithListener(rec))
		require.NoError(t, err)

		require.NoError(t, tp.Send(ctx, event.New(nil)))
		assert.Len(t, primary.received(), 1)
		assert.Equal(t, []lifecycle.Kind{lifecycle.Received, lifecycle.Error, lifecycle.Delivered}, rec.kinds())
	})

	t.Run("primary failure propagates", func(t *testing.T) {
		boom := errors.New("primary")
		tp, err := channel.NewTap(&sink{}, &sink{err: boom}, channel.WithRethrow(false))
		require.NoError(t, err)
		assert.Same(t, boom, tp.Send(ctx, event.New(nil)))
	})
}

func TestErrorTrap(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")

	t.Run("success", func(t *testing.T) {
		rec := &recorder{}
		trap, err := channel.NewErrorTrap(&sink{}, channel.WithListener(rec))
		require.NoError(t, err)
		require.NoError(t, trap.Send(ctx, event.New(nil)))
		assert.Equal(t, []lifecycle.Kind{lifecycle.Received, lifecycle.Delivered}, rec.kinds())
	})

	t.Run("swallows by default", func(t *testing.T) {
		rec := &recorder{}
		var handled []error
		evt := event.New(nil)
		trap, err := channel.NewErrorTrap(&sink{err: boom},
			channel.WithListener(rec),
			channel.WithErrorHandler(func(_ context.Context, e *event.Event, err error) error {
				assert.Same(t, evt, e)
				handled = append(handled, err)
				return nil
			}))
		require.NoError(t, err)

		assert.NoError(t, trap.Send(ctx, evt))
		assert.Equal(t, []error{boom}, handled)
		assert.Equal(t, 1, rec.count(lifecycle.Error))
		assert.Equal(t, 0, rec.count(lifecycle.Delivered))
	})

	t.Run("rethrow", func(t *testing.T) {
		called := false
		trap, err := channel.NewErrorTrap(&sink{err: boom}, channel.WithRethrow(true),
			channel.WithErrorHandler(endpoint.ErrorHandlerFunc(func(context.Context, *event.Event, error) error {
				called = true
				return nil
			})))
		require.NoError(t, err)
		assert.Same(t, boom, trap.Send(ctx, event.New(nil)))
		assert.True(t, called, "error handler runs before rethrow")
	})

	t.Run("failing error handler still swallowed", func(t *testing.T) {
		trap, err := channel.NewErrorTrap(&sink{err: boom},
			channel.WithErrorHandler(func(context.Context, *event.Event, error) error { return errors.New("dlq down") }))
		require.NoError(t, err)
		assert.NoError(t, trap.Send(ctx, event.New(nil)))
	})
}

func TestNull(t *testing.T) {
	rec := &recorder{}
	n := channel.NewNull(channel.WithListener(rec))
	require.NoError(t, n.Send(context.Background(), event.New(nil)))
	assert.Equal(t, []lifecycle.Kind{lifecycle.Received}, rec.kinds())
	assert.Equal(t, "null", n.Name())
}
