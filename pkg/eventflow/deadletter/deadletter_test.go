package deadletter_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/eventflow/pkg/eventflow/channel"
	"github.com/randalmurphal/eventflow/pkg/eventflow/deadletter"
	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
)

func stores(t *testing.T) map[string]deadletter.Store {
	t.Helper()
	sqlite, err := deadletter.NewSQLiteStore(filepath.Join(t.TempDir(), "dlq.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	mem, err := deadletter.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = mem.Close() })

	return map[string]deadletter.Store{
		"memory":        deadletter.NewMemoryStore(0),
		"sqlite":        sqlite,
		"sqlite-memory": mem,
	}
}

func failed(t *testing.T, e *event.Event, cause string) *deadletter.FailedEvent {
	t.Helper()
	f, err := deadletter.NewFailedEvent(e, errors.New(cause), "test")
	require.NoError(t, err)
	return f
}

func TestStore(t *testing.T) {
	ctx := context.Background()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			a := event.NewTyped("Order", map[string]any{"n": 1})
			b := event.NewTyped("Refund", nil)

			require.NoError(t, store.Enqueue(ctx, failed(t, a, "first")))
			require.NoError(t, store.Enqueue(ctx, failed(t, b, "other")))
			require.NoError(t, store.Enqueue(ctx, failed(t, a, "second")))

			n, err := store.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 2, n)

			list, err := store.List(ctx, 0)
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, a.ID, list[0].EventID)
			assert.Equal(t, 2, list[0].Attempts)
			assert.Equal(t, "second", list[0].Error)
			assert.Equal(t, "Order", list[0].EventType)

			decoded, err := list[0].Event()
			require.NoError(t, err)
			assert.Equal(t, a.ID, decoded.ID)
			assert.Equal(t, float64(1), decoded.Data["n"])

			limited, err := store.List(ctx, 1)
			require.NoError(t, err)
			assert.Len(t, limited, 1)

			require.NoError(t, store.Acknowledge(ctx, a.ID, "unknown"))
			n, err = store.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			require.NoError(t, store.Close())
			assert.ErrorIs(t, store.Enqueue(ctx, failed(t, a, "x")), deadletter.ErrStoreClosed)
			assert.NoError(t, store.Close())
		})
	}
}

func TestSQLiteStore_Persistence(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "dlq.db")

	s1, err := deadletter.NewSQLiteStore(path)
	require.NoError(t, err)
	e := event.New(nil)
	require.NoError(t, s1.Enqueue(ctx, failed(t, e, "boom")))
	require.NoError(t, s1.Close())

	s2, err := deadletter.NewSQLiteStore(path)
	require.NoError(t, err)
	defer s2.Close()

	list, err := s2.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, e.ID, list[0].EventID)
	assert.False(t, list[0].FirstFailedAt.IsZero())
}

func TestSQLiteStore_InvalidPath(t *testing.T) {
	_, err := deadletter.NewSQLiteStore("/nonexistent/path/dlq.sqlite")
	assert.Error(t, err)
}

func TestMemoryStore_Full(t *testing.T) {
	ctx := context.Background()
	store := deadletter.NewMemoryStore(1)
	require.NoError(t, store.Enqueue(ctx, failed(t, event.New(nil), "a")))
	assert.ErrorIs(t, store.Enqueue(ctx, failed(t, event.New(nil), "b")), deadletter.ErrStoreFull)
}

func TestHandlerWithErrorTrap(t *testing.T) {
	ctx := context.Background()
	store := deadletter.NewMemoryStore(0)

	trap, err := channel.NewErrorTrap(
		func(context.Context, *event.Event) error { return errors.New("downstream down") },
		channel.WithErrorHandler(deadletter.NewHandler(store, "orders", nil)),
	)
	require.NoError(t, err)

	e := event.NewTyped("Order", nil)
	require.NoError(t, trap.Send(ctx, e))

	list, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, e.ID, list[0].EventID)
	assert.Equal(t, "orders", list[0].Stage)
	assert.Equal(t, "downstream down", list[0].Error)
}

func TestRedrive(t *testing.T) {
	ctx := context.Background()
	store := deadletter.NewMemoryStore(0)

	good := event.New(map[string]any{"ok": true})
	bad := event.New(map[string]any{"ok": false})
	require.NoError(t, store.Enqueue(ctx, failed(t, good, "x")))
	require.NoError(t, store.Enqueue(ctx, failed(t, bad, "x")))

	var replayed []string
	res, err := deadletter.Redrive(ctx, store, func(_ context.Context, e *event.Event) error {
		replayed = append(replayed, e.ID)
		if e.Data["ok"] == false {
			return errors.New("still broken")
		}
		return nil
	}, 0)
	require.NoError(t, err)
	assert.Equal(t, deadletter.RedriveResult{Replayed: 1, Failed: 1}, res)
	assert.Equal(t, []string{good.ID, bad.ID}, replayed)

	list, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, bad.ID, list[0].EventID)
	assert.Equal(t, 2, list[0].Attempts)
	assert.Equal(t, "still broken", list[0].Error)
}
