package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type registration struct {
	id       uint64
	listener Listener
}

// Emitter is an observer registry. The zero value is ready to use.
type Emitter struct {
	mu       sync.RWMutex
	nextID   uint64
	byKind   map[Kind][]registration
	catchAll []registration

	// Logger receives listener panics. Nil means slog.Default().
	Logger *slog.Logger
}

// On registers l for notifications of kind. The returned function removes
// the registration.
func (e *Emitter) On(kind Kind, l Listener) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.byKind == nil {
		e.byKind = make(map[Kind][]registration)
	}
	e.nextID++
	id := e.nextID
	e.byKind[kind] = append(e.byKind[kind], registration{id: id, listener: l})

	return func() { e.remove(kind, id) }
}

// OnFunc registers fn for notifications of kind.
func (e *Emitter) OnFunc(kind Kind, fn func(ctx context.Context, n Notification)) func() {
	return e.On(kind, ListenerFunc(fn))
}

// OnAny registers l for every notification.
func (e *Emitter) OnAny(l Listener) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	id := e.nextID
	e.catchAll = append(e.catchAll, registration{id: id, listener: l})

	return func() { e.remove("", id) }
}

func (e *Emitter) remove(kind Kind, id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	drop := func(regs []registration) []registration {
		out := regs[:0:0]
		for _, r := range regs {
			if r.id != id {
				out = append(out, r)
			}
		}
		return out
	}
	if kind == "" {
		e.catchAll = drop(e.catchAll)
		return
	}
	e.byKind[kind] = drop(e.byKind[kind])
}

// ListenerCount returns how many listeners would receive a notification of
// kind, including catch-all listeners.
func (e *Emitter) ListenerCount(kind Kind) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.byKind[kind]) + len(e.catchAll)
}

// Emit delivers n to kind listeners, then to catch-all listeners.
func (e *Emitter) Emit(ctx context.Context, n Notification) {
	if n.Time.IsZero() {
		n.Time = time.Now()
	}

	e.mu.RLock()
	targets := make([]registration, 0, len(e.byKind[n.Kind])+len(e.catchAll))
	targets = append(targets, e.byKind[n.Kind]...)
	targets = append(targets, e.catchAll...)
	e.mu.RUnlock()

	for _, r := range targets {
		e.notify(ctx, r.listener, n)
	}
}

func (e *Emitter) notify(ctx context.Context, l Listener, n Notification) {
	defer func() {
		if r := recover(); r != nil {
			logger := e.Logger
			if logger == nil {
				logger = slog.Default()
			}
			logger.Error("lifecycle listener panicked",
				slog.String("kind", string(n.Kind)),
				slog.String("source", n.Source),
				slog.String("panic", fmt.Sprint(r)),
			)
		}
	}()
	l.Notify(ctx, n)
}
