package reqreply

import (
	"context"
	"sync"
	"time"

	"github.com/randalmurphal/eventflow/pkg/eventflow/channel"
	"github.com/randalmurphal/eventflow/pkg/eventflow/endpoint"
	eferrors "github.com/randalmurphal/eventflow/pkg/eventflow/errors"
	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
	"github.com/randalmurphal/eventflow/pkg/eventflow/lifecycle"
)

// ReplyRouteProvider maps correlation ids to pending Promises. It is a
// router.Provider: Routes pops the reply's ReplyTo top and returns the
// Promise registered under it.
type ReplyRouteProvider struct {
	*lifecycle.Service
	timeout time.Duration

	mu      sync.Mutex
	pending map[string]*channel.Promise
}

// NewReplyRouteProvider creates an empty ReplyRouteProvider. WithTimeout
// applies to every Promise it creates.
func NewReplyRouteProvider(opts ...Option) *ReplyRouteProvider {
	s := newSettings(opts)
	return &ReplyRouteProvider{
		Service: lifecycle.NewService("reply-route-provider", s.service...),
		timeout: s.timeout,
		pending: make(map[string]*channel.Promise),
	}
}

// Create registers a new Promise under id. An id that is still pending
// fails with *errors.DuplicateCorrelationError.
func (p *ReplyRouteProvider) Create(id string) (*channel.Promise, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.pending[id]; ok {
		return nil, &eferrors.DuplicateCorrelationError{ID: id}
	}

	promise := channel.NewPromise(
		channel.WithName(p.Name()+".promise"),
		channel.WithLogger(p.Logger()),
		channel.WithTimeout(p.timeout),
	)
	promise.On(lifecycle.StateChanged, lifecycle.ListenerFunc(func(context.Context, lifecycle.Notification) {
		p.remove(id, promise)
	}))
	p.pending[id] = promise
	return promise, nil
}

// Routes implements router.Provider. The reply's ReplyTo top is popped in
// place.
func (p *ReplyRouteProvider) Routes(_ context.Context, reply *event.Event) ([]endpoint.Func, error) {
	id, _ := reply.PopReplyTo()

	p.mu.Lock()
	promise, ok := p.pending[id]
	p.mu.Unlock()

	if !ok {
		return nil, &eferrors.CorrelationNotFoundError{ID: id}
	}
	fn, err := endpoint.Resolve(promise, nil)
	if err != nil {
		return nil, err
	}
	return []endpoint.Func{fn}, nil
}

// Get returns the Promise pending under id.
func (p *ReplyRouteProvider) Get(id string) (*channel.Promise, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	promise, ok := p.pending[id]
	return promise, ok
}

// Delete drops the entry for id without settling its Promise.
func (p *ReplyRouteProvider) Delete(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.pending, id)
}

// Len returns the number of pending correlations.
func (p *ReplyRouteProvider) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// remove deletes id only while it still maps to promise, so a settled
// Promise never evicts a newer registration under the same id.
func (p *ReplyRouteProvider) remove(id string, promise *channel.Promise) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending[id] == promise {
		delete(p.pending, id)
	}
}
