package pubsub

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/randalmurphal/eventflow/pkg/eventflow/codec"
	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
	"github.com/randalmurphal/eventflow/pkg/eventflow/lifecycle"
)

var (
	// ErrNoPublisher is returned by NewChannel without a Publisher.
	ErrNoPublisher = errors.New("pubsub: publisher is required")

	// ErrNoTopic is returned when no topic is configured or the topic
	// provider yields an empty topic.
	ErrNoTopic = errors.New("pubsub: topic is required")
)

// TopicProvider picks the topic for an event.
type TopicProvider func(e *event.Event) string

// Config configures a Channel.
type Config struct {
	Publisher message.Publisher

	// Topic is used when TopicProvider is nil.
	Topic         string
	TopicProvider TopicProvider
}

// Channel publishes events to a Watermill publisher.
type Channel struct {
	*lifecycle.Service
	publisher message.Publisher
	topic     TopicProvider
}

// NewChannel creates a Channel.
func NewChannel(cfg Config, opts ...Option) (*Channel, error) {
	s := newSettings(opts)

	if cfg.Publisher == nil {
		return nil, ErrNoPublisher
	}
	topic := cfg.TopicProvider
	if topic == nil {
		if cfg.Topic == "" {
			return nil, ErrNoTopic
		}
		static := cfg.Topic
		topic = func(*event.Event) string { return static }
	}

	return &Channel{
		Service:   lifecycle.NewService("pubsub-channel", s.service...),
		publisher: cfg.Publisher,
		topic:     topic,
	}, nil
}

// NewMessage converts e into a Watermill message.
func NewMessage(e *event.Event) (*message.Message, error) {
	payload, err := codec.MarshalEvent(e)
	if err != nil {
		return nil, fmt.Errorf("encode event %s: %w", e.ID, err)
	}
	msg := message.NewMessage(e.ID, payload)
	msg.Metadata.Set(MetadataEventType, e.Type)
	if e.ParentID != "" {
		msg.Metadata.Set(MetadataParentID, e.ParentID)
	}
	return msg, nil
}

// Send implements endpoint.Channel.
func (c *Channel) Send(ctx context.Context, e *event.Event) error {
	inv := c.Begin(ctx, e)

	topic := c.topic(e)
	if topic == "" {
		return inv.Fail(ErrNoTopic)
	}
	msg, err := NewMessage(e)
	if err != nil {
		return inv.Fail(err)
	}
	msg.SetContext(ctx)

	if err := c.publisher.Publish(topic, msg); err != nil {
		return inv.Fail(fmt.Errorf("publish event %s to %s: %w", e.ID, topic, err))
	}
	inv.Delivered(e)
	return nil
}
