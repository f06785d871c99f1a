package pubsub

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
	"github.com/randalmurphal/eventflow/pkg/eventflow/lifecycle"
)

type recorder struct {
	mu     sync.Mutex
	events []*event.Event
}

func (r *recorder) Handle(_ context.Context, e *event.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) all() []*event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*event.Event(nil), r.events...)
}

func newPubSub(t *testing.T) *gochannel.GoChannel {
	t.Helper()
	ps := gochannel.NewGoChannel(gochannel.Config{Persistent: true}, watermill.NopLogger{})
	t.Cleanup(func() { _ = ps.Close() })
	return ps
}

func startConsumer(t *testing.T, ps *gochannel.GoChannel, topic string, target any, opts ...Option) *Consumer {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	c, err := NewConsumer(ps, topic, target, opts...)
	require.NoError(t, err)
	require.NoError(t, c.Start(ctx))
	return c
}

func TestRoundTrip(t *testing.T) {
	ps := newPubSub(t)
	rec := &recorder{}
	startConsumer(t, ps, "orders", rec)

	ch, err := NewChannel(Config{Publisher: ps, Topic: "orders"})
	require.NoError(t, err)

	sent := event.NewTyped("Order", map[string]any{"sku": "a-1"})
	sent.ParentID = "batch-7"
	require.NoError(t, ch.Send(context.Background(), sent))

	require.Eventually(t, func() bool { return len(rec.all()) == 1 }, 2*time.Second, 5*time.Millisecond)
	got := rec.all()[0]
	assert.Equal(t, sent.ID, got.ID)
	assert.Equal(t, "Order", got.Type)
	assert.Equal(t, "batch-7", got.ParentID)
	assert.Equal(t, "a-1", got.Data["sku"])
}

func TestChannel_TopicProvider(t *testing.T) {
	ps := newPubSub(t)
	orders, refunds := &recorder{}, &recorder{}
	startConsumer(t, ps, "Order", orders)
	startConsumer(t, ps, "Refund", refunds)

	ch, err := NewChannel(Config{
		Publisher:     ps,
		TopicProvider: func(e *event.Event) string { return e.Type },
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, ch.Send(ctx, event.NewTyped("Order", nil)))
	require.NoError(t, ch.Send(ctx, event.NewTyped("Refund", nil)))
	require.NoError(t, ch.Send(ctx, event.NewTyped("Order", nil)))

	require.Eventually(t, func() bool {
		return len(orders.all()) == 2 && len(refunds.all()) == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestChannel_EmptyTopic(t *testing.T) {
	ps := newPubSub(t)
	var failed atomic.Bool
	ch, err := NewChannel(Config{
		Publisher:     ps,
		TopicProvider: func(*event.Event) string { return "" },
	}, WithListener(lifecycle.ListenerFunc(func(_ context.Context, n lifecycle.Notification) {
		if n.Kind == lifecycle.Error {
			failed.Store(true)
		}
	})))
	require.NoError(t, err)

	err = ch.Send(context.Background(), event.New(nil))
	assert.ErrorIs(t, err, ErrNoTopic)
	assert.True(t, failed.Load())
}

func TestNewChannel_Invalid(t *testing.T) {
	_, err := NewChannel(Config{Topic: "x"})
	assert.ErrorIs(t, err, ErrNoPublisher)

	_, err = NewChannel(Config{Publisher: newPubSub(t)})
	assert.ErrorIs(t, err, ErrNoTopic)
}

func TestNewMessage(t *testing.T) {
	e := event.NewTyped("Order", nil)
	e.ParentID = "p-1"

	msg, err := NewMessage(e)
	require.NoError(t, err)
	assert.Equal(t, e.ID, msg.UUID)
	assert.Equal(t, "Order", msg.Metadata.Get(MetadataEventType))
	assert.Equal(t, "p-1", msg.Metadata.Get(MetadataParentID))
	assert.Contains(t, string(msg.Payload), e.ID)
}

func TestConsumer_UndecodableMessageIsDropped(t *testing.T) {
	ps := newPubSub(t)
	rec := &recorder{}

	var mu sync.Mutex
	var errs []error
	startConsumer(t, ps, "orders", rec, WithListener(lifecycle.ListenerFunc(func(_ context.Context, n lifecycle.Notification) {
		if n.Kind == lifecycle.Error {
			mu.Lock()
			errs = append(errs, n.Err)
			mu.Unlock()
		}
	})))

	require.NoError(t, ps.Publish("orders", message.NewMessage(watermill.NewUUID(), []byte("not json"))))
	ch, err := NewChannel(Config{Publisher: ps, Topic: "orders"})
	require.NoError(t, err)
	require.NoError(t, ch.Send(context.Background(), event.New(nil)))

	require.Eventually(t, func() bool { return len(rec.all()) == 1 }, 2*time.Second, 5*time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, errs, 1)
}

func TestConsumer_ErrorHandlerAcks(t *testing.T) {
	ps := newPubSub(t)
	boom := errors.New("boom")

	var attempts, handled atomic.Int32
	target := func(context.Context, *event.Event) error {
		attempts.Add(1)
		return boom
	}
	errorHandler := func(_ context.Context, _ *event.Event, err error) error {
		if errors.Is(err, boom) {
			handled.Add(1)
		}
		return nil
	}
	startConsumer(t, ps, "orders", target, WithErrorHandler(errorHandler))

	ch, err := NewChannel(Config{Publisher: ps, Topic: "orders"})
	require.NoError(t, err)
	require.NoError(t, ch.Send(context.Background(), event.New(nil)))

	require.Eventually(t, func() bool { return handled.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestConsumer_StartTwice(t *testing.T) {
	ps := newPubSub(t)
	c := startConsumer(t, ps, "orders", &recorder{})
	assert.ErrorIs(t, c.Start(context.Background()), ErrAlreadyStarted)
}

func TestConsumer_StopsWhenContextEnds(t *testing.T) {
	ps := newPubSub(t)
	c, err := NewConsumer(ps, "orders", &recorder{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, c.Start(ctx))
	cancel()

	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestNewConsumer_Invalid(t *testing.T) {
	ps := newPubSub(t)
	_, err := NewConsumer(nil, "orders", &recorder{})
	assert.Error(t, err)
	_, err = NewConsumer(ps, "", &recorder{})
	assert.ErrorIs(t, err, ErrNoTopic)
	_, err = NewConsumer(ps, "orders", 42)
	assert.Error(t, err)
}
