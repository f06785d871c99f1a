package channel

import (
	"context"
	"log/slog"

	"github.com/randalmurphal/eventflow/pkg/eventflow/endpoint"
	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
	"github.com/randalmurphal/eventflow/pkg/eventflow/lifecycle"
)

// ErrorTrap invokes its handler and passes any failure to an error handler.
// The failure is swallowed unless WithRethrow(true), in which case Send
// returns the handler's original error after the error handler has run.
type ErrorTrap struct {
	*lifecycle.Service
	handler      endpoint.Func
	errorHandler endpoint.ErrorHandlerFunc
	rethrow      bool
}

// NewErrorTrap creates an ErrorTrap. The error handler defaults to
// endpoint.IgnoreErrors.
func NewErrorTrap(handler any, opts ...Option) (*ErrorTrap, error) {
	s := newSettings(opts)

	h, err := endpoint.Resolve(handler, nil)
	if err != nil {
		return nil, err
	}
	eh, err := endpoint.ResolveErrorHandler(s.errorHandler, endpoint.IgnoreErrors)
	if err != nil {
		return nil, err
	}

	return &ErrorTrap{
		Service:      lifecycle.NewService("error-trap", s.service...),
		handler:      h,
		errorHandler: eh,
		rethrow:      s.rethrowOr(false),
	}, nil
}

// Send implements endpoint.Channel.
func (t *ErrorTrap) Send(ctx context.Context, e *event.Event) error {
	inv := t.Begin(ctx, e)

	_, err := t.handler(ctx, e)
	if err == nil {
		inv.Delivered(e)
		return nil
	}

	inv.Fail(err)
	if herr := t.errorHandler(ctx, e, err); herr != nil {
		t.Logger().Error("error handler failed",
			slog.String("event_id", e.ID),
			slog.String("error", herr.Error()),
			slog.String("cause", err.Error()),
		)
	}
	if t.rethrow {
		return err
	}
	return nil
}
