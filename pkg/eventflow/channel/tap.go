package channel

import (
	"context"
	"log/slog"

	"github.com/randalmurphal/eventflow/pkg/eventflow/endpoint"
	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
	"github.com/randalmurphal/eventflow/pkg/eventflow/lifecycle"
)

// Tap runs a side-effect endpoint before the primary handler.
//
// A tap failure emits Error and, by default, propagates without reaching the
// primary handler. With WithRethrow(false) the failure is only reported and
// the primary handler still runs. Primary handler failures always propagate.
type Tap struct {
	*lifecycle.Service
	tap     endpoint.Func
	handler endpoint.Func
	rethrow bool
}

// NewTap creates a Tap.
func NewTap(tap, handler any, opts ...Option) (*Tap, error) {
	s := newSettings(opts)

	t, err := endpoint.Resolve(tap, nil)
	if err != nil {
		return nil, err
	}
	h, err := endpoint.Resolve(handler, nil)
	if err != nil {
		return nil, err
	}

	return &Tap{
		Service: lifecycle.NewService("tap", s.service...),
		tap:     t,
		handler: h,
		rethrow: s.rethrowOr(true),
	}, nil
}

// Send implements endpoint.Channel.
func (t *Tap) Send(ctx context.Context, e *event.Event) error {
	inv := t.Begin(ctx, e)

	if _, err := t.tap(ctx, e); err != nil {
		inv.Fail(err)
		if t.rethrow {
			return err
		}
		t.Logger().Warn("tap handler failed, continuing",
			slog.String("event_id", e.ID),
			slog.String("error", err.Error()),
		)
	}

	if _, err := t.handler(ctx, e); err != nil {
		return inv.Fail(err)
	}
	inv.Delivered(e)
	return nil
}
