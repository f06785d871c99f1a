package lifecycle

import (
	"context"
	"time"

	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
)

// Kind identifies a lifecycle notification.
type Kind string

const (
	Received       Kind = "event:received"
	Processed      Kind = "event:processed"
	Delivered      Kind = "event:delivered"
	Error          Kind = "event:error"
	Accepted       Kind = "event:accepted"
	Rejected       Kind = "event:rejected"
	BatchReceived  Kind = "event:batch:received"
	BatchDelivered Kind = "event:batch:delivered"
	Expired        Kind = "event:expired"
	StateChanged   Kind = "channel:state"

	RequestCreated   Kind = "request:created"
	ResponseReceived Kind = "response:received"
	ResponseError    Kind = "response:error"
)

// Terminal reports whether k ends a stage invocation.
func (k Kind) Terminal() bool {
	return k == Delivered || k == Error || k == Expired
}

// Notification is one observation emitted by a stage.
type Notification struct {
	Kind Kind

	// Source is the emitting stage's name.
	Source string

	// Event is the event the stage was invoked with.
	Event *event.Event

	// Result is the event a processing stage produced.
	Result *event.Event

	// Batch holds the events of a splitter batch or an aggregate.
	Batch []*event.Event

	Err error

	// State is the new state for StateChanged notifications.
	State string

	// Attrs carries adapter specific details (HTTP status, URL).
	Attrs map[string]any

	// Start is when the invocation began. Elapsed is set on completion kinds.
	Start   time.Time
	Elapsed time.Duration

	Time time.Time
}

// Listener receives notifications.
type Listener interface {
	Notify(ctx context.Context, n Notification)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, n Notification)

// Notify calls f.
func (f ListenerFunc) Notify(ctx context.Context, n Notification) {
	f(ctx, n)
}
