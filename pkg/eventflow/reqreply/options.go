package reqreply

import (
	"log/slog"
	"time"

	"github.com/randalmurphal/eventflow/pkg/eventflow/lifecycle"
)

// Option configures a Processor or ReplyRouteProvider.
type Option func(*settings)

type settings struct {
	service  []lifecycle.Option
	timeout  time.Duration
	strategy any
}

func newSettings(opts []Option) *settings {
	s := &settings{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithName sets the component name.
func WithName(name string) Option {
	return func(s *settings) { s.service = append(s.service, lifecycle.WithName(name)) }
}

// WithLogger sets the component logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) { s.service = append(s.service, lifecycle.WithLogger(logger)) }
}

// WithListener registers a listener for every notification.
func WithListener(l lifecycle.Listener) Option {
	return func(s *settings) { s.service = append(s.service, lifecycle.WithListener(l)) }
}

// WithTimeout bounds how long a request waits for its reply. Zero waits
// until the caller's context is done.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) { s.timeout = d }
}

// WithStrategy sets the strategy of the reply router returned by
// Processor.Channel.
func WithStrategy(st any) Option {
	return func(s *settings) { s.strategy = st }
}
