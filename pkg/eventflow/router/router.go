package router

import (
	"context"

	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
	"github.com/randalmurphal/eventflow/pkg/eventflow/lifecycle"
	"github.com/randalmurphal/eventflow/pkg/eventflow/strategy"
)

// EventRouter sends each event to the endpoints its provider returns.
// Provider and strategy failures emit Error and propagate.
type EventRouter struct {
	*lifecycle.Service
	provider Provider
	strategy strategy.Strategy
}

// NewEventRouter creates an EventRouter. provider is a Provider or a
// provider function; the strategy defaults to Parallel.
func NewEventRouter(provider any, opts ...Option) (*EventRouter, error) {
	s := newSettings(opts)

	p, err := ResolveProvider(provider)
	if err != nil {
		return nil, err
	}
	st, err := strategy.Resolve(s.strategy)
	if err != nil {
		return nil, err
	}

	return &EventRouter{
		Service:  lifecycle.NewService("router", s.service...),
		provider: p,
		strategy: st,
	}, nil
}

// Send implements endpoint.Channel.
func (r *EventRouter) Send(ctx context.Context, e *event.Event) error {
	inv := r.Begin(ctx, e)

	routes, err := r.provider.Routes(ctx, e)
	if err != nil {
		return inv.Fail(err)
	}
	if err := r.strategy.Execute(ctx, e, routes); err != nil {
		return inv.Fail(err)
	}
	inv.Delivered(e)
	return nil
}
