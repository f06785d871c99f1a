package pubsub

import (
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/randalmurphal/eventflow/pkg/eventflow/lifecycle"
)

// Metadata keys set on published messages.
const (
	MetadataEventType = "eventflow_type"
	MetadataParentID  = "eventflow_parent_id"
)

// Logger adapts logger for Watermill components. A nil logger uses
// slog.Default.
func Logger(logger *slog.Logger) watermill.LoggerAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return watermill.NewSlogLogger(logger)
}

// Option configures a Channel or Consumer.
type Option func(*settings)

type settings struct {
	service      []lifecycle.Option
	errorHandler any
}

func newSettings(opts []Option) *settings {
	s := &settings{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithName sets the name reported in notifications and logs.
func WithName(name string) Option {
	return func(s *settings) {
		s.service = append(s.service, lifecycle.WithName(name))
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.service = append(s.service, lifecycle.WithLogger(logger))
	}
}

// WithListener registers a listener for every notification.
func WithListener(l lifecycle.Listener) Option {
	return func(s *settings) {
		s.service = append(s.service, lifecycle.WithListener(l))
	}
}

// WithErrorHandler makes a Consumer pass delivery failures to h and ack the
// message when h succeeds. Without one, failed messages are nacked.
func WithErrorHandler(h any) Option {
	return func(s *settings) {
		s.errorHandler = h
	}
}
