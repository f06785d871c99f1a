package channel

import (
	"context"
	"fmt"

	"github.com/randalmurphal/eventflow/pkg/eventflow/endpoint"
	eferrors "github.com/randalmurphal/eventflow/pkg/eventflow/errors"
	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
	"github.com/randalmurphal/eventflow/pkg/eventflow/lifecycle"
)

// Processing clones each inbound event, transforms the clone with its
// processor, and forwards the result downstream.
//
// Notifications: Received(original), Processed(original, result),
// Delivered(result). A clone or processor failure emits Error(original) and
// propagates; the downstream endpoint is not called. A downstream failure
// emits Error and propagates as *errors.HandlerFailure.
type Processing struct {
	*lifecycle.Service
	processor endpoint.Func
	cloner    endpoint.Func
	handler   endpoint.Func
}

func cloneEvent(_ context.Context, e *event.Event) (*event.Event, error) {
	return event.Clone(e), nil
}

// NewProcessing creates a Processing stage. The processor must produce a
// result (a Processor or a result-returning function).
func NewProcessing(processor, handler any, opts ...Option) (*Processing, error) {
	s := newSettings(opts)

	p, err := endpoint.ResolveProcessor(processor, nil)
	if err != nil {
		return nil, err
	}
	c, err := endpoint.ResolveProcessor(s.cloner, endpoint.Func(cloneEvent))
	if err != nil {
		return nil, err
	}
	h, err := endpoint.Resolve(handler, nil)
	if err != nil {
		return nil, err
	}

	return &Processing{
		Service:   lifecycle.NewService("processing", s.service...),
		processor: p,
		cloner:    c,
		handler:   h,
	}, nil
}

// Send implements endpoint.Channel.
func (p *Processing) Send(ctx context.Context, e *event.Event) error {
	_, err := p.Process(ctx, e)
	return err
}

// Process runs the stage and returns the event that was forwarded.
func (p *Processing) Process(ctx context.Context, e *event.Event) (*event.Event, error) {
	inv := p.Begin(ctx, e)

	result, err := p.transform(ctx, e)
	if err != nil {
		return nil, inv.Fail(err)
	}
	inv.Processed(result)

	if _, err := p.handler(ctx, result); err != nil {
		return nil, inv.Fail(&eferrors.HandlerFailure{Stage: p.Name(), EventID: result.ID, Err: err})
	}
	inv.Delivered(result)
	return result, nil
}

func (p *Processing) transform(ctx context.Context, e *event.Event) (*event.Event, error) {
	clone, err := p.cloner(ctx, e)
	if err != nil {
		return nil, fmt.Errorf("clone event %s: %w", e.ID, err)
	}
	if clone == nil {
		return nil, fmt.Errorf("clone event %s: %w", e.ID, eferrors.ErrNilResult)
	}
	result, err := p.processor(ctx, clone)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, &eferrors.HandlerFailure{Stage: p.Name(), EventID: e.ID, Err: eferrors.ErrNilResult}
	}
	return result, nil
}
