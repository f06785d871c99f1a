package reqreply

import (
	"context"

	"github.com/randalmurphal/eventflow/pkg/eventflow/endpoint"
	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
	"github.com/randalmurphal/eventflow/pkg/eventflow/lifecycle"
	"github.com/randalmurphal/eventflow/pkg/eventflow/router"
)

// Processor turns an asynchronous send/reply exchange into a synchronous
// Process call.
type Processor struct {
	*lifecycle.Service
	outbound endpoint.Func
	provider *ReplyRouteProvider
	replies  *router.EventRouter
}

// NewProcessor creates a Processor that dispatches requests to outbound.
func NewProcessor(outbound any, opts ...Option) (*Processor, error) {
	s := newSettings(opts)

	out, err := endpoint.Resolve(outbound, nil)
	if err != nil {
		return nil, err
	}

	svc := lifecycle.NewService("request-reply", s.service...)
	provider := NewReplyRouteProvider(
		WithName(svc.Name()+".replies"),
		WithLogger(svc.Logger()),
		WithTimeout(s.timeout),
	)
	replies, err := router.NewEventRouter(provider,
		router.WithName(svc.Name()+".inbound"),
		router.WithLogger(svc.Logger()),
		router.WithStrategy(s.strategy),
	)
	if err != nil {
		return nil, err
	}

	return &Processor{
		Service:  svc,
		outbound: out,
		provider: provider,
		replies:  replies,
	}, nil
}

// Process sends req to the outbound endpoint and waits for its reply.
//
// The request is registered under req.ID and forwarded with req.ID pushed
// onto its ReplyTo stack; req itself is not modified. If the outbound
// endpoint fails the registration is dropped and the failure returned.
func (p *Processor) Process(ctx context.Context, req *event.Event) (*event.Event, error) {
	inv := p.Begin(ctx, req)

	promise, err := p.provider.Create(req.ID)
	if err != nil {
		return nil, inv.Fail(err)
	}

	if _, err := p.outbound(ctx, req.PushReplyTo(req.ID)); err != nil {
		p.provider.Delete(req.ID)
		return nil, inv.Fail(err)
	}

	reply, err := promise.Get(ctx)
	p.provider.remove(req.ID, promise)
	if err != nil {
		return nil, inv.Fail(err)
	}

	inv.Processed(reply)
	inv.Delivered(reply)
	return reply, nil
}

// Channel returns the inbound reply endpoint. Reply events must carry the
// ReplyTo stack of the request they answer.
func (p *Processor) Channel() *router.EventRouter {
	return p.replies
}

// Provider returns the correlation table.
func (p *Processor) Provider() *ReplyRouteProvider {
	return p.provider
}

// Pending returns the number of requests awaiting a reply.
func (p *Processor) Pending() int {
	return p.provider.Len()
}
