package channel

import (
	"context"
	"fmt"

	"github.com/randalmurphal/eventflow/pkg/eventflow/endpoint"
	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
	"github.com/randalmurphal/eventflow/pkg/eventflow/lifecycle"
	"github.com/randalmurphal/eventflow/pkg/eventflow/strategy"
)

// Splitter expands one event into a sequence and delivers the items in
// batches. Up to batchSize items are pulled, then the batch is executed
// through the strategy before more items are pulled; a partial final batch
// is flushed.
//
// Notifications: one Received for the inbound event, a BatchReceived and
// BatchDelivered pair per batch, and Delivered per item. A failure pulling
// items or executing a batch emits Error, stops the sequence, and
// propagates.
type Splitter struct {
	*lifecycle.Service
	splitter  endpoint.SplitterFunc
	handler   endpoint.Func
	strategy  strategy.Strategy
	batchSize int
}

// NewSplitter creates a Splitter with DefaultBatchSize and a Parallel
// strategy unless overridden.
func NewSplitter(splitter, handler any, opts ...Option) (*Splitter, error) {
	s := newSettings(opts)

	sp, err := endpoint.ResolveSplitter(splitter, nil)
	if err != nil {
		return nil, err
	}
	h, err := endpoint.Resolve(handler, nil)
	if err != nil {
		return nil, err
	}
	st, err := strategy.Resolve(s.strategy)
	if err != nil {
		return nil, err
	}
	size := s.batchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	return &Splitter{
		Service:   lifecycle.NewService("splitter", s.service...),
		splitter:  sp,
		handler:   h,
		strategy:  st,
		batchSize: size,
	}, nil
}

// BatchSize returns the configured batch size.
func (s *Splitter) BatchSize() int {
	return s.batchSize
}

// Send implements endpoint.Channel.
func (s *Splitter) Send(ctx context.Context, e *event.Event) error {
	inv := s.Begin(ctx, e)
	if err := s.run(ctx, inv, e); err != nil {
		return inv.Fail(err)
	}
	return nil
}

func (s *Splitter) run(ctx context.Context, inv *lifecycle.Invocation, e *event.Event) error {
	it, err := s.splitter(ctx, e)
	if err != nil {
		return fmt.Errorf("split event %s: %w", e.ID, err)
	}
	defer it.Close()

	batch := make([]*event.Event, 0, s.batchSize)
	for {
		item, ok, err := it.Next(ctx)
		if err != nil {
			return fmt.Errorf("split event %s: %w", e.ID, err)
		}
		if !ok {
			break
		}
		batch = append(batch, item)
		if len(batch) >= s.batchSize {
			if err := s.executeBatch(ctx, inv, batch); err != nil {
				return err
			}
			batch = make([]*event.Event, 0, s.batchSize)
		}
	}

	if len(batch) > 0 {
		return s.executeBatch(ctx, inv, batch)
	}
	return nil
}

func (s *Splitter) executeBatch(ctx context.Context, inv *lifecycle.Invocation, batch []*event.Event) error {
	inv.Batch(lifecycle.BatchReceived, batch)

	tasks := make([]endpoint.Func, len(batch))
	for i, item := range batch {
		tasks[i] = func(ctx context.Context, _ *event.Event) (*event.Event, error) {
			if _, err := s.handler(ctx, item); err != nil {
				return nil, err
			}
			inv.Delivered(item)
			return nil, nil
		}
	}
	if err := s.strategy.Execute(ctx, inv.Event(), tasks); err != nil {
		return err
	}

	inv.Batch(lifecycle.BatchDelivered, batch)
	return nil
}
