package strategy

import (
	"context"

	"github.com/randalmurphal/eventflow/pkg/eventflow/endpoint"
	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
)

// Serial invokes handlers one at a time in list order. The first failure
// stops the sequence and is returned unchanged.
type Serial struct{}

// Execute implements Strategy.
func (Serial) Execute(ctx context.Context, e *event.Event, handlers []endpoint.Func) error {
	for _, h := range handlers {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := invoke(ctx, h, e); err != nil {
			return err
		}
	}
	return nil
}
