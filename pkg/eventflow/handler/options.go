package handler

import (
	"log/slog"

	"github.com/randalmurphal/eventflow/pkg/eventflow/lifecycle"
)

// Option configures a handler.
type Option func(*settings)

type settings struct {
	service  []lifecycle.Option
	strategy any
}

func newSettings(opts []Option) *settings {
	s := &settings{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithName sets the handler name.
func WithName(name string) Option {
	return func(s *settings) { s.service = append(s.service, lifecycle.WithName(name)) }
}

// WithLogger sets the handler logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) { s.service = append(s.service, lifecycle.WithLogger(logger)) }
}

// WithListener registers a listener for every notification.
func WithListener(l lifecycle.Listener) Option {
	return func(s *settings) { s.service = append(s.service, lifecycle.WithListener(l)) }
}

// WithStrategy sets the strategy CompositeErrorHandler runs its handlers
// with. Defaults to Parallel.
func WithStrategy(st any) Option {
	return func(s *settings) { s.strategy = st }
}
