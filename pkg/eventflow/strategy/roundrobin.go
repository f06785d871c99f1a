package strategy

import (
	"context"
	"sync"

	"github.com/randalmurphal/eventflow/pkg/eventflow/endpoint"
	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
)

// RoundRobin invokes exactly one handler per call. The cursor starts before
// the first handler and advances by one on every call, wrapping modulo the
// handler count of that call. The zero value is ready to use.
//
// RoundRobin is stateful: the handler chosen depends on call history. Callers
// must pass the same handler set on every call; if the set changes size the
// rotation continues from the old cursor position, which skips or repeats
// handlers.
type RoundRobin struct {
	mu   sync.Mutex
	next int
}

// NewRoundRobin returns a strategy whose first call selects handlers[0].
func NewRoundRobin() *RoundRobin {
	return &RoundRobin{}
}

// Execute implements Strategy. Zero handlers is a no-op and does not move
// the cursor.
func (r *RoundRobin) Execute(ctx context.Context, e *event.Event, handlers []endpoint.Func) error {
	if len(handlers) == 0 {
		return nil
	}
	return invoke(ctx, handlers[r.advance(len(handlers))], e)
}

func (r *RoundRobin) advance(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.next % n
	r.next = idx + 1
	return idx
}

// Cursor returns the index selected by the most recent call, or -1.
func (r *RoundRobin) Cursor() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.next - 1
}
