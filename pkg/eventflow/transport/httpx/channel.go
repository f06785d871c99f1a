package httpx

import (
	"context"
	"fmt"
	"io"

	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
)

// Channel delivers each event as an HTTP request.
type Channel struct {
	*Service
}

// NewChannel creates a Channel.
func NewChannel(cfg Config, opts ...Option) (*Channel, error) {
	svc, err := newService("http-channel", cfg, newSettings(opts))
	if err != nil {
		return nil, err
	}
	return &Channel{Service: svc}, nil
}

// Send implements endpoint.Channel.
func (c *Channel) Send(ctx context.Context, e *event.Event) error {
	inv := c.Begin(ctx, e)
	resp, err := c.Perform(ctx, e)
	if err != nil {
		return inv.Fail(err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	inv.Delivered(e)
	return nil
}

// Processor sends each event as an HTTP request and returns the event
// decoded from the response.
type Processor struct {
	*Service
	deserialize Deserializer
}

// NewProcessor creates a Processor. The deserializer defaults to
// JSONDeserializer.
func NewProcessor(cfg Config, opts ...Option) (*Processor, error) {
	s := newSettings(opts)
	svc, err := newService("http-processor", cfg, s)
	if err != nil {
		return nil, err
	}
	d := s.deserializer
	if d == nil {
		d = JSONDeserializer
	}
	return &Processor{Service: svc, deserialize: d}, nil
}

// Process implements endpoint.Processor.
func (p *Processor) Process(ctx context.Context, e *event.Event) (*event.Event, error) {
	inv := p.Begin(ctx, e)
	resp, err := p.Perform(ctx, e)
	if err != nil {
		return nil, inv.Fail(err)
	}
	defer func() { _ = resp.Body.Close() }()

	result, err := p.deserialize(ctx, resp)
	if err != nil {
		return nil, inv.Fail(fmt.Errorf("deserialize response: %w", err))
	}
	inv.Processed(result)
	return result, nil
}
