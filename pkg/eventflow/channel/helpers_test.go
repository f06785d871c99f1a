package channel_test

import (
	"context"
	"sync"

	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
	"github.com/randalmurphal/eventflow/pkg/eventflow/lifecycle"
)

// recorder collects notifications.
type recorder struct {
	mu    sync.Mutex
	items []lifecycle.Notification
}

func (r *recorder) Notify(_ context.Context, n lifecycle.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

func (r *recorder) kinds() []lifecycle.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]lifecycle.Kind, len(r.items))
	for i, n := range r.items {
		out[i] = n.Kind
	}
	return out
}

func (r *recorder) count(kind lifecycle.Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, item := range r.items {
		if item.Kind == kind {
			n++
		}
	}
	return n
}

func (r *recorder) first(kind lifecycle.Kind) (lifecycle.Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.items {
		if item.Kind == kind {
			return item, true
		}
	}
	return lifecycle.Notification{}, false
}

// sink records events handed to it.
type sink struct {
	mu     sync.Mutex
	events []*event.Event
	err    error
}

func (s *sink) Handle(_ context.Context, e *event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return s.err
}

func (s *sink) received() []*event.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*event.Event(nil), s.events...)
}
