package flow

import (
	"context"

	"github.com/randalmurphal/eventflow/pkg/eventflow/endpoint"
	eferrors "github.com/randalmurphal/eventflow/pkg/eventflow/errors"
	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
	"github.com/randalmurphal/eventflow/pkg/eventflow/reqreply"
)

// replyDispatcher hands a reply to the request stage that is waiting for
// its correlation id.
func replyDispatcher(requests []*reqreply.Processor) endpoint.ChannelFunc {
	return func(ctx context.Context, reply *event.Event) error {
		id := reply.ReplyToTop()
		for _, p := range requests {
			if _, ok := p.Provider().Get(id); ok {
				return p.Channel().Send(ctx, reply)
			}
		}
		return &eferrors.CorrelationNotFoundError{ID: id}
	}
}
