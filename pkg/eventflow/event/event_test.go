package event_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
)

func TestNew(t *testing.T) {
	data := map[string]any{"order": 42}
	evt := event.New(data)

	assert.NotEmpty(t, evt.ID)
	assert.Empty(t, evt.ParentID)
	assert.Equal(t, event.DefaultType, evt.Type)
	assert.Equal(t, 42, evt.Data["order"])

	data["order"] = 7
	assert.Equal(t, 42, evt.Data["order"], "data must be copied")
}

func TestNewTyped(t *testing.T) {
	evt := event.NewTyped("OrderPlaced", nil)
	assert.Equal(t, "OrderPlaced", evt.Type)
	assert.NotNil(t, evt.Data)
}

func TestClone(t *testing.T) {
	t.Run("root event", func(t *testing.T) {
		src := event.New(map[string]any{
			"nested": map[string]any{"a": 1},
			"list":   []any{"x"},
		})
		c := event.Clone(src)

		assert.NotEqual(t, src.ID, c.ID)
		assert.Equal(t, src.ID, c.ParentID)
		assert.Equal(t, src.Type, c.Type)
		assert.Equal(t, src.Data, c.Data)

		c.Data["nested"].(map[string]any)["a"] = 2
		c.Data["list"].([]any)[0] = "y"
		assert.Equal(t, 1, src.Data["nested"].(map[string]any)["a"])
		assert.Equal(t, "x", src.Data["list"].([]any)[0])
	})

	t.Run("typed containers", func(t *testing.T) {
		inner := event.New(map[string]any{"k": "v"})
		src := event.New(map[string]any{
			"lines":  []map[string]any{{"qty": 1}},
			"scores": []int{1, 2},
			"tags":   map[string]string{"k": "v"},
			"grid":   [2][]int{{1}, {2}},
			"events": map[string]*event.Event{"inner": inner},
			"nilMap": map[string]int(nil),
		})
		c := event.Clone(src)
		assert.Equal(t, src.Data, c.Data)

		c.Data["lines"].([]map[string]any)[0]["qty"] = 99
		c.Data["scores"].([]int)[0] = 99
		c.Data["tags"].(map[string]string)["k"] = "mutated"
		grid := c.Data["grid"].([2][]int)
		grid[0][0] = 99
		c.Data["events"].(map[string]*event.Event)["inner"].Data["k"] = "mutated"

		assert.Equal(t, 1, src.Data["lines"].([]map[string]any)[0]["qty"])
		assert.Equal(t, 1, src.Data["scores"].([]int)[0])
		assert.Equal(t, "v", src.Data["tags"].(map[string]string)["k"])
		assert.Equal(t, 1, src.Data["grid"].([2][]int)[0][0])
		assert.Equal(t, "v", inner.Data["k"])
		assert.Nil(t, c.Data["nilMap"].(map[string]int))
	})

	t.Run("propagates existing parent", func(t *testing.T) {
		src := event.New(nil)
		child := event.Clone(src)
		grandchild := event.Clone(child)
		assert.Equal(t, src.ID, grandchild.ParentID)
	})

	t.Run("copies reply stack", func(t *testing.T) {
		src := event.New(nil).PushReplyTo("r1")
		c := event.Clone(src)
		assert.Equal(t, []string{"r1"}, c.ReplyTo)
		c.ReplyTo[0] = "changed"
		assert.Equal(t, "r1", src.ReplyTo[0])
	})

	t.Run("unique ids", func(t *testing.T) {
		src := event.New(nil)
		seen := map[string]bool{src.ID: true}
		for range 100 {
			c := event.Clone(src)
			require.False(t, seen[c.ID])
			seen[c.ID] = true
		}
	})
}

func TestReplyToStack(t *testing.T) {
	req := event.New(nil)
	pushed := req.PushReplyTo(req.ID)

	assert.Empty(t, req.ReplyTo, "push must not modify the receiver")
	assert.Equal(t, pushed.ID, req.ID)
	assert.Equal(t, req.ID, pushed.ReplyToTop())

	pushed = pushed.PushReplyTo("outer")
	id, ok := pushed.PopReplyTo()
	require.True(t, ok)
	assert.Equal(t, "outer", id)
	assert.Equal(t, req.ID, pushed.ReplyToTop())

	_, _ = pushed.PopReplyTo()
	_, ok = pushed.PopReplyTo()
	assert.False(t, ok)
	assert.Equal(t, "", pushed.ReplyToTop())
}

func TestAccessors(t *testing.T) {
	evt := event.New(map[string]any{"name": "a", "n": 1})

	v, ok := evt.Get("n")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, "a", evt.String("name"))
	assert.Equal(t, "", evt.String("n"))
	assert.Equal(t, evt.ID, evt.Lineage())

	var nilEvt *event.Event
	_, ok = nilEvt.Get("n")
	assert.False(t, ok)
	assert.Nil(t, nilEvt.Copy())
}

func TestIDGenerators(t *testing.T) {
	a := event.NewULID()
	b := event.NewULID()
	assert.Len(t, a, 26)
	assert.Less(t, a, b)
	assert.Len(t, event.NewUUID(), 36)
}

func TestIterators(t *testing.T) {
	ctx := context.Background()
	e1, e2 := event.New(nil), event.New(nil)

	t.Run("slice", func(t *testing.T) {
		got, err := event.Collect(ctx, event.Slice(e1, e2))
		require.NoError(t, err)
		assert.Equal(t, []*event.Event{e1, e2}, got)
	})

	t.Run("channel", func(t *testing.T) {
		ch := make(chan *event.Event, 2)
		ch <- e1
		ch <- e2
		close(ch)
		got, err := event.Collect(ctx, event.FromChannel(ch))
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := event.Collect(cctx, event.Slice(e1))
		assert.ErrorIs(t, err, context.Canceled)
	})
}
