package strategy_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/eventflow/pkg/eventflow/endpoint"
	eferrors "github.com/randalmurphal/eventflow/pkg/eventflow/errors"
	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
	"github.com/randalmurphal/eventflow/pkg/eventflow/strategy"
)

func counting(n *atomic.Int32, err error) endpoint.Func {
	return func(context.Context, *event.Event) (*event.Event, error) {
		n.Add(1)
		return nil, err
	}
}

func TestParallel(t *testing.T) {
	ctx := context.Background()
	evt := event.New(nil)

	t.Run("runs all concurrently", func(t *testing.T) {
		var wg sync.WaitGroup
		wg.Add(3)
		barrier := func(context.Context, *event.Event) (*event.Event, error) {
			wg.Done()
			wg.Wait()
			return nil, nil
		}
		done := make(chan error, 1)
		go func() {
			done <- strategy.NewParallel().Execute(ctx, evt, []endpoint.Func{barrier, barrier, barrier})
		}()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("handlers did not run concurrently")
		}
	})

	t.Run("waits for all and joins failures", func(t *testing.T) {
		var n atomic.Int32
		e1, e2 := errors.New("first"), errors.New("second")
		err := strategy.NewParallel().Execute(ctx, evt, []endpoint.Func{
			counting(&n, e1), counting(&n, nil), counting(&n, e2),
		})
		require.Error(t, err)
		assert.Equal(t, int32(3), n.Load())
		assert.ErrorIs(t, err, e1)
		assert.ErrorIs(t, err, e2)
		assert.Equal(t, "first\nsecond", err.Error())
	})

	t.Run("recovers panics", func(t *testing.T) {
		err := strategy.NewParallel().Execute(ctx, evt, []endpoint.Func{
			func(context.Context, *event.Event) (*event.Event, error) { panic("bad") },
			endpoint.Noop,
		})
		var pe *eferrors.PanicError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "bad", pe.Value)
	})

	t.Run("limits concurrency", func(t *testing.T) {
		var inFlight, peak atomic.Int32
		h := func(context.Context, *event.Event) (*event.Event, error) {
			cur := inFlight.Add(1)
			for {
				old := peak.Load()
				if cur <= old || peak.CompareAndSwap(old, cur) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			inFlight.Add(-1)
			return nil, nil
		}
		p := &strategy.Parallel{MaxConcurrency: 2}
		require.NoError(t, p.Execute(ctx, evt, []endpoint.Func{h, h, h, h, h}))
		assert.LessOrEqual(t, peak.Load(), int32(2))
	})

	t.Run("empty", func(t *testing.T) {
		assert.NoError(t, strategy.NewParallel().Execute(ctx, evt, nil))
	})
}

func TestSerial(t *testing.T) {
	ctx := context.Background()
	evt := event.New(nil)

	t.Run("in order", func(t *testing.T) {
		var order []int
		step := func(i int) endpoint.Func {
			return func(context.Context, *event.Event) (*event.Event, error) {
				order = append(order, i)
				return nil, nil
			}
		}
		require.NoError(t, strategy.Serial{}.Execute(ctx, evt, []endpoint.Func{step(1), step(2), step(3)}))
		assert.Equal(t, []int{1, 2, 3}, order)
	})

	t.Run("stops at first failure", func(t *testing.T) {
		var n atomic.Int32
		boom := errors.New("boom")
		err := strategy.Serial{}.Execute(ctx, evt, []endpoint.Func{
			counting(&n, nil), counting(&n, boom), counting(&n, nil),
		})
		assert.Same(t, boom, err)
		assert.Equal(t, int32(2), n.Load())
	})
}

func TestRoundRobin(t *testing.T) {
	ctx := context.Background()
	evt := event.New(nil)

	var c1, c2, c3 atomic.Int32
	handlers := []endpoint.Func{counting(&c1, nil), counting(&c2, nil), counting(&c3, nil)}
	rr := strategy.NewRoundRobin()
	assert.Equal(t, -1, rr.Cursor())

	require.NoError(t, rr.Execute(ctx, evt, handlers))
	assert.Equal(t, [3]int32{1, 0, 0}, [3]int32{c1.Load(), c2.Load(), c3.Load()})
	require.NoError(t, rr.Execute(ctx, evt, handlers))
	assert.Equal(t, [3]int32{1, 1, 0}, [3]int32{c1.Load(), c2.Load(), c3.Load()})
	require.NoError(t, rr.Execute(ctx, evt, handlers))
	assert.Equal(t, [3]int32{1, 1, 1}, [3]int32{c1.Load(), c2.Load(), c3.Load()})
	require.NoError(t, rr.Execute(ctx, evt, handlers))
	assert.Equal(t, int32(2), c1.Load())
	assert.Equal(t, 0, rr.Cursor())

	require.NoError(t, rr.Execute(ctx, evt, nil))
	assert.Equal(t, 0, rr.Cursor(), "empty handler set leaves the cursor alone")

	var zero strategy.RoundRobin
	var z atomic.Int32
	require.NoError(t, zero.Execute(ctx, evt, []endpoint.Func{counting(&z, nil), endpoint.Noop}))
	assert.Equal(t, int32(1), z.Load(), "zero value starts at the first handler")
}

func TestByName(t *testing.T) {
	tests := []struct {
		name string
		want any
	}{
		{"", &strategy.Parallel{}},
		{"parallel", &strategy.Parallel{}},
		{"serial", strategy.Serial{}},
		{"round-robin", &strategy.RoundRobin{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := strategy.ByName(tt.name)
			require.NoError(t, err)
			assert.IsType(t, tt.want, s)
		})
	}

	_, err := strategy.ByName("random")
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	s, err := strategy.Resolve(nil)
	require.NoError(t, err)
	assert.IsType(t, &strategy.Parallel{}, s)

	s, err = strategy.Resolve("serial")
	require.NoError(t, err)
	assert.IsType(t, strategy.Serial{}, s)

	called := false
	s, err = strategy.Resolve(func(context.Context, *event.Event, []endpoint.Func) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, s.Execute(context.Background(), event.New(nil), nil))
	assert.True(t, called)

	_, err = strategy.Resolve(3)
	assert.ErrorIs(t, err, eferrors.ErrInvalidEndpoint)
}
