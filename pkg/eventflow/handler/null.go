package handler

import (
	"context"

	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
	"github.com/randalmurphal/eventflow/pkg/eventflow/lifecycle"
)

// Null accepts every event and does nothing with it.
type Null struct {
	*lifecycle.Service
}

// NewNull creates a Null handler.
func NewNull(opts ...Option) *Null {
	s := newSettings(opts)
	return &Null{Service: lifecycle.NewService("null-handler", s.service...)}
}

// Handle emits Received and returns nil.
func (n *Null) Handle(ctx context.Context, e *event.Event) error {
	n.Begin(ctx, e)
	return nil
}
