package lifecycle

import (
	"context"
	"log/slog"
	"time"

	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
)

// Service is the base every stage embeds: a name, a logger, and an Emitter.
type Service struct {
	Emitter
	name   string
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithName sets the service name reported as Notification.Source.
func WithName(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.name = name
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithListener registers l for every notification the service emits.
func WithListener(l Listener) Option {
	return func(s *Service) {
		s.OnAny(l)
	}
}

// NewService creates a service. defaultName is used unless WithName is given.
func NewService(defaultName string, opts ...Option) *Service {
	s := &Service{name: defaultName, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.Emitter.Logger = s.logger
	return s
}

// Name returns the service name.
func (s *Service) Name() string {
	return s.name
}

// Logger returns the service logger, scoped with the service name.
func (s *Service) Logger() *slog.Logger {
	return s.logger.With(slog.String("stage", s.name))
}

// Notify emits a notification with Source filled in.
func (s *Service) Notify(ctx context.Context, n Notification) {
	n.Source = s.name
	s.Emit(ctx, n)
}

// Begin emits Received for e and returns an Invocation that emits the
// remaining notifications of the same call.
func (s *Service) Begin(ctx context.Context, e *event.Event) *Invocation {
	inv := &Invocation{svc: s, ctx: ctx, evt: e, start: time.Now()}
	inv.emit(Notification{Kind: Received})
	return inv
}

// Invocation tracks one call into a stage.
type Invocation struct {
	svc   *Service
	ctx   context.Context
	evt   *event.Event
	start time.Time
}

// Event returns the event the invocation began with.
func (i *Invocation) Event() *event.Event {
	return i.evt
}

func (i *Invocation) emit(n Notification) {
	if n.Event == nil {
		n.Event = i.evt
	}
	n.Start = i.start
	if n.Kind.Terminal() || n.Kind == Processed {
		n.Elapsed = time.Since(i.start)
	}
	i.svc.Notify(i.ctx, n)
}

// Emit emits a notification of kind about e.
func (i *Invocation) Emit(kind Kind, e *event.Event) {
	i.emit(Notification{Kind: kind, Event: e})
}

// Delivered emits Delivered for e, or for the invocation's event when e is nil.
func (i *Invocation) Delivered(e *event.Event) {
	i.emit(Notification{Kind: Delivered, Event: e})
}

// Processed emits Processed(original, result).
func (i *Invocation) Processed(result *event.Event) {
	i.emit(Notification{Kind: Processed, Result: result})
}

// Batch emits a batch notification.
func (i *Invocation) Batch(kind Kind, batch []*event.Event) {
	i.emit(Notification{Kind: kind, Batch: batch})
}

// Fail emits Error for the invocation's event and returns err.
func (i *Invocation) Fail(err error) error {
	i.emit(Notification{Kind: Error, Err: err})
	return err
}
