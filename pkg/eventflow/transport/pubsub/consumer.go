package pubsub

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/randalmurphal/eventflow/pkg/eventflow/codec"
	"github.com/randalmurphal/eventflow/pkg/eventflow/endpoint"
	"github.com/randalmurphal/eventflow/pkg/eventflow/lifecycle"
)

// ErrAlreadyStarted is returned by a second call to Consumer.Start.
var ErrAlreadyStarted = errors.New("pubsub: consumer already started")

// Consumer delivers messages from one topic to an endpoint.
//
// Messages that cannot be decoded are reported as Error notifications and
// acked, since redelivery cannot fix them. Delivery failures go to the
// error handler when one is configured, otherwise the message is nacked
// for redelivery.
type Consumer struct {
	*lifecycle.Service
	subscriber   message.Subscriber
	topic        string
	target       endpoint.Func
	errorHandler endpoint.ErrorHandlerFunc

	startOnce sync.Once
	done      chan struct{}
}

// NewConsumer creates a Consumer for topic.
func NewConsumer(sub message.Subscriber, topic string, target any, opts ...Option) (*Consumer, error) {
	s := newSettings(opts)

	if sub == nil {
		return nil, errors.New("pubsub: subscriber is required")
	}
	if topic == "" {
		return nil, ErrNoTopic
	}
	fn, err := endpoint.Resolve(target, nil)
	if err != nil {
		return nil, err
	}
	var eh endpoint.ErrorHandlerFunc
	if s.errorHandler != nil {
		if eh, err = endpoint.ResolveErrorHandler(s.errorHandler, nil); err != nil {
			return nil, err
		}
	}

	return &Consumer{
		Service:      lifecycle.NewService("pubsub-consumer", s.service...),
		subscriber:   sub,
		topic:        topic,
		target:       fn,
		errorHandler: eh,
		done:         make(chan struct{}),
	}, nil
}

// Start subscribes and delivers messages in a background goroutine until
// ctx is cancelled or the subscriber closes the topic.
func (c *Consumer) Start(ctx context.Context) error {
	err := ErrAlreadyStarted
	c.startOnce.Do(func() {
		var messages <-chan *message.Message
		messages, err = c.subscriber.Subscribe(ctx, c.topic)
		if err != nil {
			close(c.done)
			return
		}
		go c.run(ctx, messages)
	})
	return err
}

// Done is closed when the consumer stops.
func (c *Consumer) Done() <-chan struct{} {
	return c.done
}

func (c *Consumer) run(ctx context.Context, messages <-chan *message.Message) {
	defer close(c.done)
	for msg := range messages {
		c.handle(ctx, msg)
	}
}

func (c *Consumer) handle(ctx context.Context, msg *message.Message) {
	e, err := codec.UnmarshalEvent(msg.Payload)
	if err != nil {
		c.Notify(ctx, lifecycle.Notification{
			Kind:  lifecycle.Error,
			Err:   err,
			Attrs: map[string]any{"message_uuid": msg.UUID, "topic": c.topic},
		})
		c.Logger().Error("dropping undecodable message",
			slog.String("message_uuid", msg.UUID),
			slog.String("error", err.Error()),
		)
		msg.Ack()
		return
	}

	inv := c.Begin(ctx, e)
	if _, err := c.target(ctx, e); err != nil {
		inv.Fail(err)
		if c.errorHandler != nil {
			herr := c.errorHandler(ctx, e, err)
			if herr == nil {
				msg.Ack()
				return
			}
			c.Logger().Error("error handler failed",
				slog.String("event_id", e.ID),
				slog.String("error", herr.Error()),
			)
		}
		msg.Nack()
		return
	}
	inv.Delivered(e)
	msg.Ack()
}
