// Package deadletter captures events whose processing failed so they can be
// inspected and replayed later.
//
// A Handler plugs into an ErrorTrap as its error handler and writes every
// trapped failure to a Store. Redrive replays stored events into an
// endpoint and acknowledges the ones that succeed.
package deadletter

import (
	"context"
	"errors"
	"time"

	"github.com/randalmurphal/eventflow/pkg/eventflow/codec"
	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
)

var (
	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("dead letter store closed")

	// ErrStoreFull indicates the store reached its capacity.
	ErrStoreFull = errors.New("dead letter store full")
)

// FailedEvent is a captured failure.
type FailedEvent struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	EventData []byte `json:"event_data"`

	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`

	// Attempts counts how many times the event failed.
	Attempts      int       `json:"attempts"`
	FirstFailedAt time.Time `json:"first_failed_at"`
	LastFailedAt  time.Time `json:"last_failed_at"`
}

// NewFailedEvent captures e and the error it failed with.
func NewFailedEvent(e *event.Event, err error, stage string) (*FailedEvent, error) {
	data, merr := codec.MarshalEvent(e)
	if merr != nil {
		return nil, merr
	}
	now := time.Now().UTC()
	f := &FailedEvent{
		EventID:       e.ID,
		EventType:     e.Type,
		EventData:     data,
		Stage:         stage,
		Attempts:      1,
		FirstFailedAt: now,
		LastFailedAt:  now,
	}
	if err != nil {
		f.Error = err.Error()
	}
	return f, nil
}

// Event decodes the captured event.
func (f *FailedEvent) Event() (*event.Event, error) {
	return codec.UnmarshalEvent(f.EventData)
}

// Store persists failed events, keyed by event id. Enqueueing an id that is
// already stored records another failure of the same event.
type Store interface {
	Enqueue(ctx context.Context, f *FailedEvent) error

	// List returns up to limit events, oldest first. A limit <= 0 returns
	// all of them.
	List(ctx context.Context, limit int) ([]*FailedEvent, error)

	// Acknowledge removes events. Unknown ids are ignored.
	Acknowledge(ctx context.Context, ids ...string) error

	Count(ctx context.Context) (int, error)
	Close() error
}
