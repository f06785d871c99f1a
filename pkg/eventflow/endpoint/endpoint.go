// Package endpoint normalizes the shapes a stage collaborator may take into
// one canonical function.
//
// A stage accepts "a channel, a processor, a handler, or a bare function"
// for each collaborator. Resolve probes the value's capabilities in a fixed
// order (Send, Process, Handle, then function shapes) and binds the first
// match:
//
//	next, err := endpoint.Resolve(myChannel, nil)
//	result, err := next(ctx, evt)
//
// The package also resolves the other single-method collaborators stages
// use: predicates, error handlers, route deciders, and splitters.
package endpoint

import (
	"context"
	"reflect"

	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
)

// Capability names, in probe order.
const (
	RoleSend     = "send"
	RoleProcess  = "process"
	RoleHandle   = "handle"
	RoleFunction = "function"
)

// Func is the canonical endpoint. Channels and handlers return a nil event.
type Func func(ctx context.Context, e *event.Event) (*event.Event, error)

// Channel accepts events with no result.
type Channel interface {
	Send(ctx context.Context, e *event.Event) error
}

// Processor turns an event into a result event.
type Processor interface {
	Process(ctx context.Context, e *event.Event) (*event.Event, error)
}

// Handler consumes events.
type Handler interface {
	Handle(ctx context.Context, e *event.Event) error
}

// ChannelFunc adapts a function to Channel.
type ChannelFunc func(ctx context.Context, e *event.Event) error

// Send calls f.
func (f ChannelFunc) Send(ctx context.Context, e *event.Event) error { return f(ctx, e) }

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, e *event.Event) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, e *event.Event) error { return f(ctx, e) }

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, e *event.Event) (*event.Event, error)

// Process calls f.
func (f ProcessorFunc) Process(ctx context.Context, e *event.Event) (*event.Event, error) {
	return f(ctx, e)
}

// isNil reports whether v is nil or a typed nil (pointer, func, map, etc.)
// wrapped in an interface.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Func, reflect.Map, reflect.Slice, reflect.Interface, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}

func typeName(v any) string {
	if v == nil {
		return "<nil>"
	}
	return reflect.TypeOf(v).String()
}
