package channel

import (
	"context"
	"sync"
	"time"

	eferrors "github.com/randalmurphal/eventflow/pkg/eventflow/errors"
	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
	"github.com/randalmurphal/eventflow/pkg/eventflow/lifecycle"
)

// PromiseState is the settlement state of a Promise.
type PromiseState string

const (
	StatePending   PromiseState = "pending"
	StateFulfilled PromiseState = "fulfilled"
	StateRejected  PromiseState = "rejected"
)

// Promise is a single-use channel: the first Send fulfils it and every later
// Send fails with *errors.AlreadySettledError. Get waits for settlement.
//
// With WithTimeout the timer starts on the first Get. If the promise is
// still pending when it fires, the promise is rejected with
// *errors.TimeoutError. A StateChanged notification is emitted on
// settlement.
type Promise struct {
	*lifecycle.Service
	timeout time.Duration

	mu    sync.Mutex
	state PromiseState
	value *event.Event
	err   error
	done  chan struct{}
	timer *time.Timer

	timerOnce sync.Once
}

// NewPromise creates a pending Promise.
func NewPromise(opts ...Option) *Promise {
	s := newSettings(opts)
	return &Promise{
		Service: lifecycle.NewService("promise", s.service...),
		timeout: s.timeout,
		state:   StatePending,
		done:    make(chan struct{}),
	}
}

// State returns the current state.
func (p *Promise) State() PromiseState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Done is closed once the promise settles.
func (p *Promise) Done() <-chan struct{} {
	return p.done
}

// Send fulfils the promise with e.
func (p *Promise) Send(ctx context.Context, e *event.Event) error {
	inv := p.Begin(ctx, e)
	if state, ok := p.settle(StateFulfilled, e, nil); !ok {
		return inv.Fail(&eferrors.AlreadySettledError{Channel: p.Name(), State: string(state)})
	}
	p.Notify(ctx, lifecycle.Notification{Kind: lifecycle.StateChanged, Event: e, State: string(StateFulfilled)})
	inv.Delivered(e)
	return nil
}

// Reject settles the promise with err. It fails with
// *errors.AlreadySettledError if the promise is not pending.
func (p *Promise) Reject(ctx context.Context, err error) error {
	if state, ok := p.settle(StateRejected, nil, err); !ok {
		return &eferrors.AlreadySettledError{Channel: p.Name(), State: string(state)}
	}
	p.Notify(ctx, lifecycle.Notification{Kind: lifecycle.Error, Err: err})
	p.Notify(ctx, lifecycle.Notification{Kind: lifecycle.StateChanged, Err: err, State: string(StateRejected)})
	return nil
}

// Get waits until the promise settles and returns its event or rejection
// error. Cancelling ctx returns ctx.Err() and leaves the promise pending.
func (p *Promise) Get(ctx context.Context) (*event.Event, error) {
	p.startTimer()

	select {
	case <-p.done:
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.value, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *Promise) startTimer() {
	if p.timeout <= 0 {
		return
	}
	p.timerOnce.Do(func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.state != StatePending {
			return
		}
		p.timer = time.AfterFunc(p.timeout, func() {
			_ = p.Reject(context.Background(), &eferrors.TimeoutError{
				Operation: "waiting on " + p.Name(),
				Duration:  p.timeout,
			})
		})
	})
}

// settle transitions out of pending. It returns the state found and whether
// this call performed the transition.
func (p *Promise) settle(state PromiseState, value *event.Event, err error) (PromiseState, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StatePending {
		return p.state, false
	}
	p.state = state
	p.value = value
	p.err = err
	if p.timer != nil {
		p.timer.Stop()
	}
	close(p.done)
	return state, true
}
