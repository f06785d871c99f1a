// Package strategy provides the fan-out policies used wherever one event
// must reach several endpoints: routers and splitter batches.
//
//   - Parallel runs every handler concurrently and waits for all of them.
//   - Serial runs handlers in order and stops at the first failure.
//   - RoundRobin runs exactly one handler per call, rotating across calls.
package strategy

import (
	"context"
	"fmt"

	"github.com/randalmurphal/eventflow/pkg/eventflow/endpoint"
	eferrors "github.com/randalmurphal/eventflow/pkg/eventflow/errors"
	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
)

// Names accepted by ByName.
const (
	NameParallel   = "parallel"
	NameSerial     = "serial"
	NameRoundRobin = "round-robin"
)

// Strategy fans an event out to handlers.
type Strategy interface {
	Execute(ctx context.Context, e *event.Event, handlers []endpoint.Func) error
}

// Func adapts a function to Strategy.
type Func func(ctx context.Context, e *event.Event, handlers []endpoint.Func) error

// Execute calls f.
func (f Func) Execute(ctx context.Context, e *event.Event, handlers []endpoint.Func) error {
	return f(ctx, e, handlers)
}

// Resolve returns obj as a Strategy. Nil selects a new Parallel and a string
// is looked up with ByName.
func Resolve(obj any) (Strategy, error) {
	switch v := obj.(type) {
	case nil:
		return NewParallel(), nil
	case Strategy:
		return v, nil
	case func(context.Context, *event.Event, []endpoint.Func) error:
		return Func(v), nil
	case string:
		return ByName(v)
	}
	return nil, &eferrors.InvalidEndpointError{Roles: []string{"execute", endpoint.RoleFunction}, Value: fmt.Sprintf("%T", obj)}
}

// ByName builds a fresh strategy from its configuration name. An empty name
// selects Parallel.
func ByName(name string) (Strategy, error) {
	switch name {
	case "", NameParallel:
		return NewParallel(), nil
	case NameSerial:
		return Serial{}, nil
	case NameRoundRobin, "roundrobin", "round_robin":
		return NewRoundRobin(), nil
	default:
		return nil, fmt.Errorf("unknown execution strategy %q", name)
	}
}

func invoke(ctx context.Context, h endpoint.Func, e *event.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &eferrors.PanicError{Value: r}
		}
	}()
	_, err = h(ctx, e)
	return err
}
