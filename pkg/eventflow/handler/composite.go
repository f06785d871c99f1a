package handler

import (
	"context"

	"github.com/randalmurphal/eventflow/pkg/eventflow/endpoint"
	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
	"github.com/randalmurphal/eventflow/pkg/eventflow/strategy"
)

// CompositeErrorHandler passes each failure to several error handlers using
// an execution strategy.
type CompositeErrorHandler struct {
	handlers []endpoint.ErrorHandlerFunc
	strategy strategy.Strategy
}

// NewCompositeErrorHandler resolves handlers with endpoint.ResolveErrorHandler.
// Only WithStrategy is meaningful here.
func NewCompositeErrorHandler(handlers []any, opts ...Option) (*CompositeErrorHandler, error) {
	s := newSettings(opts)

	fns := make([]endpoint.ErrorHandlerFunc, 0, len(handlers))
	for _, h := range handlers {
		fn, err := endpoint.ResolveErrorHandler(h, nil)
		if err != nil {
			return nil, err
		}
		fns = append(fns, fn)
	}
	st, err := strategy.Resolve(s.strategy)
	if err != nil {
		return nil, err
	}
	return &CompositeErrorHandler{handlers: fns, strategy: st}, nil
}

// HandleError implements endpoint.ErrorHandler.
func (c *CompositeErrorHandler) HandleError(ctx context.Context, e *event.Event, cause error) error {
	tasks := make([]endpoint.Func, len(c.handlers))
	for i, h := range c.handlers {
		tasks[i] = func(ctx context.Context, e *event.Event) (*event.Event, error) {
			return nil, h(ctx, e, cause)
		}
	}
	return c.strategy.Execute(ctx, e, tasks)
}
