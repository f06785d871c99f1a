package channel

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/randalmurphal/eventflow/pkg/eventflow/endpoint"
	eferrors "github.com/randalmurphal/eventflow/pkg/eventflow/errors"
	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
	"github.com/randalmurphal/eventflow/pkg/eventflow/lifecycle"
)

// AggregateType is the default type of events built by Aggregation.
const AggregateType = "Aggregate"

// MembersKey is the aggregate data field holding the ordered members.
const MembersKey = "events"

// ErrClosed is returned by Aggregation.Send after Close.
var ErrClosed = errors.New("aggregation closed")

// ReleaseFunc decides whether a group is complete. It receives the group's
// members in arrival order.
type ReleaseFunc func(ctx context.Context, members []*event.Event) (bool, error)

// ReleaseWhenCount releases a group once it holds n members.
func ReleaseWhenCount(n int) ReleaseFunc {
	return func(_ context.Context, members []*event.Event) (bool, error) {
		return len(members) >= n, nil
	}
}

// AggregationConfig configures an Aggregation.
type AggregationConfig struct {
	// GroupKey maps an event to its group. Defaults to the event's lineage
	// (ParentID, or ID for root events).
	GroupKey func(*event.Event) string

	// Release is evaluated after every arrival. Required.
	Release ReleaseFunc

	// Handler receives released aggregates. Required.
	Handler any

	// TimeoutHandler receives partial aggregates of expired groups.
	// Defaults to a Null channel.
	TimeoutHandler any
}

// Aggregation collects related events into groups and emits one aggregate
// event per group once Release passes.
//
// Each group moves from open to released, or from open to expired when
// WithTimeout is set and no member arrives for that long. Arrivals for one
// group are serialized on that group's lock; different groups proceed
// independently.
//
// Notifications: Received and Delivered per member, Processed(member,
// aggregate) on release, Expired(aggregate) on timeout.
type Aggregation struct {
	*lifecycle.Service
	groupKey       func(*event.Event) string
	release        ReleaseFunc
	handler        endpoint.Func
	timeoutHandler endpoint.Func
	timeout        time.Duration
	builder        event.Builder

	mu     sync.Mutex
	groups map[string]*group
	closed bool
}

type group struct {
	mu      sync.Mutex
	key     string
	members []*event.Event
	done    bool
	gen     uint64
	timer   *time.Timer
}

// NewAggregation creates an Aggregation.
func NewAggregation(cfg AggregationConfig, opts ...Option) (*Aggregation, error) {
	s := newSettings(opts)

	if cfg.Release == nil {
		return nil, &eferrors.InvalidEndpointError{Roles: []string{"release"}, Value: "<nil>"}
	}
	h, err := endpoint.Resolve(cfg.Handler, nil)
	if err != nil {
		return nil, err
	}
	th, err := endpoint.Resolve(cfg.TimeoutHandler, NewNull())
	if err != nil {
		return nil, err
	}
	key := cfg.GroupKey
	if key == nil {
		key = (*event.Event).Lineage
	}
	b := event.NewBuilder(event.WithType(AggregateType))
	if s.builder != nil {
		b = *s.builder
	}

	return &Aggregation{
		Service:        lifecycle.NewService("aggregation", s.service...),
		groupKey:       key,
		release:        cfg.Release,
		handler:        h,
		timeoutHandler: th,
		timeout:        s.timeout,
		builder:        b,
		groups:         make(map[string]*group),
	}, nil
}

// Send adds e to its group and releases the group if it is complete.
func (a *Aggregation) Send(ctx context.Context, e *event.Event) error {
	inv := a.Begin(ctx, e)

	for {
		g, err := a.groupFor(a.groupKey(e))
		if err != nil {
			return inv.Fail(err)
		}

		g.mu.Lock()
		if g.done {
			// Released or expired between lookup and lock; retry on a fresh group.
			g.mu.Unlock()
			continue
		}
		g.members = append(g.members, e)

		ok, err := a.release(ctx, append([]*event.Event(nil), g.members...))
		if err != nil {
			g.members = g.members[:len(g.members)-1]
			if len(g.members) == 0 {
				a.finish(g)
			}
			g.mu.Unlock()
			return inv.Fail(err)
		}
		if !ok {
			a.arm(g)
			g.mu.Unlock()
			inv.Delivered(e)
			return nil
		}

		members := a.finish(g)
		g.mu.Unlock()

		agg := a.aggregate(g.key, members)
		inv.Processed(agg)
		if _, err := a.handler(ctx, agg); err != nil {
			return inv.Fail(&eferrors.HandlerFailure{Stage: a.Name(), EventID: agg.ID, Err: err})
		}
		inv.Delivered(e)
		return nil
	}
}

// Pending returns the number of open groups.
func (a *Aggregation) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.groups)
}

// Close stops all timers and discards open groups. Later sends fail with
// ErrClosed.
func (a *Aggregation) Close() error {
	a.mu.Lock()
	groups := a.groups
	a.groups = make(map[string]*group)
	a.closed = true
	a.mu.Unlock()

	for _, g := range groups {
		g.mu.Lock()
		g.done = true
		if g.timer != nil {
			g.timer.Stop()
		}
		g.mu.Unlock()
	}
	return nil
}

func (a *Aggregation) groupFor(key string) (*group, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil, ErrClosed
	}
	g, ok := a.groups[key]
	if !ok {
		g = &group{key: key}
		a.groups[key] = g
	}
	return g, nil
}

// finish marks g done and unregisters it. Caller holds g.mu.
func (a *Aggregation) finish(g *group) []*event.Event {
	g.done = true
	if g.timer != nil {
		g.timer.Stop()
	}

	a.mu.Lock()
	if a.groups[g.key] == g {
		delete(a.groups, g.key)
	}
	a.mu.Unlock()

	return g.members
}

// arm restarts the group's inactivity timer. Caller holds g.mu.
func (a *Aggregation) arm(g *group) {
	if a.timeout <= 0 {
		return
	}
	if g.timer != nil {
		g.timer.Stop()
	}
	g.gen++
	gen := g.gen
	g.timer = time.AfterFunc(a.timeout, func() { a.expire(g, gen) })
}

func (a *Aggregation) expire(g *group, gen uint64) {
	g.mu.Lock()
	if g.done || g.gen != gen {
		g.mu.Unlock()
		return
	}
	members := a.finish(g)
	g.mu.Unlock()

	ctx := context.Background()
	agg := a.aggregate(g.key, members)
	a.Notify(ctx, lifecycle.Notification{Kind: lifecycle.Expired, Event: agg, Batch: members})

	if _, err := a.timeoutHandler(ctx, agg); err != nil {
		a.Notify(ctx, lifecycle.Notification{Kind: lifecycle.Error, Event: agg, Err: err})
		a.Logger().Error("timeout handler failed",
			slog.String("group", g.key),
			slog.Int("members", len(members)),
			slog.String("error", err.Error()),
		)
	}
}

func (a *Aggregation) aggregate(key string, members []*event.Event) *event.Event {
	return a.builder.With(event.WithParentID(key)).Create(map[string]any{
		MembersKey: members,
	})
}

// Members returns the members of an aggregate event in arrival order.
func Members(agg *event.Event) []*event.Event {
	v, _ := agg.Get(MembersKey)
	members, _ := v.([]*event.Event)
	return members
}
