package strategy

import (
	"context"
	"errors"
	"sync"

	"github.com/randalmurphal/eventflow/pkg/eventflow/endpoint"
	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
)

// Parallel invokes every handler concurrently and returns once all have
// finished. Failures are joined in handler order; a failing handler never
// stops its siblings.
type Parallel struct {
	// MaxConcurrency limits in-flight handlers. Zero means unlimited.
	MaxConcurrency int
}

// NewParallel returns an unlimited Parallel strategy.
func NewParallel() *Parallel {
	return &Parallel{}
}

// Execute implements Strategy.
func (p *Parallel) Execute(ctx context.Context, e *event.Event, handlers []endpoint.Func) error {
	switch len(handlers) {
	case 0:
		return nil
	case 1:
		return invoke(ctx, handlers[0], e)
	}

	var sem chan struct{}
	if p.MaxConcurrency > 0 {
		sem = make(chan struct{}, p.MaxConcurrency)
	}

	errs := make([]error, len(handlers))
	var wg sync.WaitGroup
	for i, h := range handlers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if sem != nil {
				select {
				case sem <- struct{}{}:
					defer func() { <-sem }()
				case <-ctx.Done():
					errs[i] = ctx.Err()
					return
				}
			}
			errs[i] = invoke(ctx, h, e)
		}()
	}
	wg.Wait()

	return errors.Join(errs...)
}
