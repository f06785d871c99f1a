package channel

import (
	"context"

	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
	"github.com/randalmurphal/eventflow/pkg/eventflow/lifecycle"
)

// Null accepts every event, emits Received, and does nothing else. It is the
// default rejection and route endpoint.
type Null struct {
	*lifecycle.Service
}

// NewNull creates a Null channel.
func NewNull(opts ...Option) *Null {
	s := newSettings(opts)
	return &Null{Service: lifecycle.NewService("null", s.service...)}
}

// Send implements endpoint.Channel.
func (n *Null) Send(ctx context.Context, e *event.Event) error {
	n.Begin(ctx, e)
	return nil
}
