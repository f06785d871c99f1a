package deadletter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/randalmurphal/eventflow/pkg/eventflow/endpoint"
	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
)

// Handler is an endpoint.ErrorHandler that stores every failure it is given.
type Handler struct {
	store  Store
	stage  string
	logger *slog.Logger
}

// NewHandler creates a Handler that records failures under stage.
func NewHandler(store Store, stage string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{store: store, stage: stage, logger: logger}
}

// HandleError implements endpoint.ErrorHandler. It fails only when the
// event cannot be stored.
func (h *Handler) HandleError(ctx context.Context, e *event.Event, cause error) error {
	f, err := NewFailedEvent(e, cause, h.stage)
	if err != nil {
		return fmt.Errorf("capture dead letter: %w", err)
	}
	if err := h.store.Enqueue(ctx, f); err != nil {
		h.logger.Error("dead letter enqueue failed",
			slog.String("event_id", e.ID),
			slog.String("stage", h.stage),
			slog.String("error", err.Error()),
		)
		return err
	}
	h.logger.Warn("event dead-lettered",
		slog.String("event_id", e.ID),
		slog.String("event_type", e.Type),
		slog.String("stage", h.stage),
		slog.String("cause", f.Error),
	)
	return nil
}

// RedriveResult summarizes a Redrive run.
type RedriveResult struct {
	Replayed int
	Failed   int
}

// Redrive replays up to limit stored events into target. Events target
// accepts are acknowledged; the others are re-enqueued with their attempt
// count raised. A limit <= 0 replays everything.
func Redrive(ctx context.Context, store Store, target any, limit int) (RedriveResult, error) {
	var res RedriveResult

	fn, err := endpoint.Resolve(target, nil)
	if err != nil {
		return res, err
	}
	failed, err := store.List(ctx, limit)
	if err != nil {
		return res, err
	}

	var done []string
	for _, f := range failed {
		if err := ctx.Err(); err != nil {
			break
		}
		e, err := f.Event()
		if err != nil {
			return res, fmt.Errorf("decode dead letter %s: %w", f.EventID, err)
		}
		if _, err := fn(ctx, e); err != nil {
			res.Failed++
			retry, cerr := NewFailedEvent(e, err, f.Stage)
			if cerr != nil {
				return res, cerr
			}
			if err := store.Enqueue(ctx, retry); err != nil {
				return res, err
			}
			continue
		}
		res.Replayed++
		done = append(done, f.EventID)
	}

	if err := store.Acknowledge(context.WithoutCancel(ctx), done...); err != nil {
		return res, err
	}
	return res, ctx.Err()
}
