package channel

import (
	"context"
	"log/slog"

	"github.com/randalmurphal/eventflow/pkg/eventflow/endpoint"
	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
	"github.com/randalmurphal/eventflow/pkg/eventflow/lifecycle"
)

// Filter routes events to its handler when the predicate passes and to the
// rejection handler otherwise. It emits Accepted or Rejected, then Delivered
// after either endpoint returns.
type Filter struct {
	*lifecycle.Service
	predicate endpoint.PredicateFunc
	handler   endpoint.Func
	rejection endpoint.Func
	rethrow   bool
}

// NewFilter creates a Filter. The rejection handler defaults to a Null
// channel; failures are swallowed unless WithRethrow(true).
func NewFilter(predicate, handler any, opts ...Option) (*Filter, error) {
	s := newSettings(opts)

	pred, err := endpoint.ResolvePredicate(predicate, nil)
	if err != nil {
		return nil, err
	}
	h, err := endpoint.Resolve(handler, nil)
	if err != nil {
		return nil, err
	}
	rej, err := endpoint.Resolve(s.rejection, NewNull())
	if err != nil {
		return nil, err
	}

	return &Filter{
		Service:   lifecycle.NewService("filter", s.service...),
		predicate: pred,
		handler:   h,
		rejection: rej,
		rethrow:   s.rethrowOr(false),
	}, nil
}

// Send implements endpoint.Channel.
func (f *Filter) Send(ctx context.Context, e *event.Event) error {
	inv := f.Begin(ctx, e)

	ok, err := f.predicate(ctx, e)
	if err != nil {
		return f.fail(inv, err)
	}

	next := f.rejection
	if ok {
		inv.Emit(lifecycle.Accepted, e)
		next = f.handler
	} else {
		inv.Emit(lifecycle.Rejected, e)
	}

	if _, err := next(ctx, e); err != nil {
		return f.fail(inv, err)
	}
	inv.Delivered(e)
	return nil
}

func (f *Filter) fail(inv *lifecycle.Invocation, err error) error {
	inv.Fail(err)
	if f.rethrow {
		return err
	}
	f.Logger().Debug("filter swallowed failure",
		slog.String("event_id", inv.Event().ID),
		slog.String("error", err.Error()),
	)
	return nil
}
