package channel

import (
	"log/slog"
	"time"

	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
	"github.com/randalmurphal/eventflow/pkg/eventflow/lifecycle"
)

// DefaultBatchSize is the Splitter batch size when none is configured.
const DefaultBatchSize = 20

// Option configures a stage. Options that do not apply to a stage are
// ignored by it.
type Option func(*settings)

type settings struct {
	service      []lifecycle.Option
	rethrow      *bool
	rejection    any
	errorHandler any
	cloner       any
	batchSize    int
	strategy     any
	timeout      time.Duration
	builder      *event.Builder
}

func newSettings(opts []Option) *settings {
	s := &settings{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *settings) rethrowOr(def bool) bool {
	if s.rethrow == nil {
		return def
	}
	return *s.rethrow
}

// WithName sets the stage name reported in notifications and logs.
func WithName(name string) Option {
	return func(s *settings) {
		s.service = append(s.service, lifecycle.WithName(name))
	}
}

// WithLogger sets the stage logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.service = append(s.service, lifecycle.WithLogger(logger))
	}
}

// WithListener registers a listener for every notification of the stage.
func WithListener(l lifecycle.Listener) Option {
	return func(s *settings) {
		s.service = append(s.service, lifecycle.WithListener(l))
	}
}

// WithRethrow overrides the stage's default failure policy.
func WithRethrow(rethrow bool) Option {
	return func(s *settings) {
		s.rethrow = &rethrow
	}
}

// WithRejectionHandler sets the Filter endpoint for rejected events.
func WithRejectionHandler(h any) Option {
	return func(s *settings) {
		s.rejection = h
	}
}

// WithErrorHandler sets the ErrorTrap error handler.
func WithErrorHandler(h any) Option {
	return func(s *settings) {
		s.errorHandler = h
	}
}

// WithCloner replaces event.Clone in Processing. The cloner is resolved as a
// processor.
func WithCloner(c any) Option {
	return func(s *settings) {
		s.cloner = c
	}
}

// WithBatchSize sets the Splitter batch size.
func WithBatchSize(n int) Option {
	return func(s *settings) {
		s.batchSize = n
	}
}

// WithStrategy sets the execution strategy: a strategy.Strategy, a strategy
// function, or a strategy name.
func WithStrategy(st any) Option {
	return func(s *settings) {
		s.strategy = st
	}
}

// WithTimeout sets the Promise or Aggregation timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		s.timeout = d
	}
}

// WithAggregateBuilder sets the builder for Aggregation output events.
func WithAggregateBuilder(b event.Builder) Option {
	return func(s *settings) {
		s.builder = &b
	}
}
