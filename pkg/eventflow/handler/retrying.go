package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/randalmurphal/eventflow/pkg/eventflow/endpoint"
	eferrors "github.com/randalmurphal/eventflow/pkg/eventflow/errors"
	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
	"github.com/randalmurphal/eventflow/pkg/eventflow/lifecycle"
)

// Retrying wraps an endpoint and retries transient failures.
//
// Each attempt receives its own copy of the event, so a target that alters
// its input cannot leak changes into the next attempt. The final failure is
// an *errors.CategorizedError.
type Retrying struct {
	*lifecycle.Service
	target endpoint.Func
	cfg    eferrors.RetryConfig
}

// NewRetrying creates a Retrying wrapper around target.
func NewRetrying(target any, cfg eferrors.RetryConfig, opts ...Option) (*Retrying, error) {
	s := newSettings(opts)

	fn, err := endpoint.Resolve(target, nil)
	if err != nil {
		return nil, err
	}
	return &Retrying{
		Service: lifecycle.NewService("retrying", s.service...),
		target:  fn,
		cfg:     cfg,
	}, nil
}

// Process calls the target until it succeeds or the retry policy gives up.
func (r *Retrying) Process(ctx context.Context, e *event.Event) (*event.Event, error) {
	inv := r.Begin(ctx, e)

	cfg := r.cfg
	onRetry := cfg.OnRetry
	cfg.OnRetry = func(attempt int, err error, wait time.Duration) {
		r.Logger().Warn("retrying endpoint",
			slog.String("event_id", e.ID),
			slog.Int("attempt", attempt),
			slog.Duration("backoff", wait),
			slog.String("error", err.Error()),
		)
		if onRetry != nil {
			onRetry(attempt, err, wait)
		}
	}

	res := eferrors.WithRetryContext(ctx, cfg, func(ctx context.Context) (*event.Event, error) {
		return r.target(ctx, e.Copy())
	})
	if res.Err != nil {
		return nil, inv.Fail(res.Err)
	}
	inv.Processed(res.Value)
	return res.Value, nil
}
