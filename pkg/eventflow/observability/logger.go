// Package observability provides logging, metrics, and tracing for
// eventflow stages.
//
// Features:
//   - Structured logging via slog
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//   - Prometheus collectors for processes without an OTel exporter
//
// Stages report through lifecycle notifications, so most of this package is
// a set of lifecycle.Listeners. Instrument attaches them to a stage and
// wraps its calls in a span. All features have no-op implementations.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds stage and event fields to a logger.
func EnrichLogger(logger *slog.Logger, stage, eventID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("stage", stage),
		slog.String("event_id", eventID),
	)
}

// LogEventReceived logs an event entering a stage.
func LogEventReceived(logger *slog.Logger, stage, eventID, eventType string) {
	if logger == nil {
		return
	}
	logger.Debug("event received",
		slog.String("stage", stage),
		slog.String("event_id", eventID),
		slog.String("event_type", eventType),
	)
}

// LogEventDelivered logs an event leaving a stage.
func LogEventDelivered(logger *slog.Logger, stage, eventID string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("event delivered",
		slog.String("stage", stage),
		slog.String("event_id", eventID),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogEventRejected logs a filter rejection.
func LogEventRejected(logger *slog.Logger, stage, eventID string) {
	if logger == nil {
		return
	}
	logger.Debug("event rejected",
		slog.String("stage", stage),
		slog.String("event_id", eventID),
	)
}

// LogEventError logs a stage failure.
func LogEventError(logger *slog.Logger, stage, eventID string, err error) {
	if logger == nil {
		return
	}
	msg := "<nil>"
	if err != nil {
		msg = err.Error()
	}
	logger.Error("event failed",
		slog.String("stage", stage),
		slog.String("event_id", eventID),
		slog.String("error", msg),
	)
}

// LogEventExpired logs an aggregation group that timed out.
func LogEventExpired(logger *slog.Logger, stage, groupKey string, members int) {
	if logger == nil {
		return
	}
	logger.Warn("aggregation expired",
		slog.String("stage", stage),
		slog.String("group", groupKey),
		slog.Int("members", members),
	)
}

// LogBatch logs a splitter batch.
func LogBatch(logger *slog.Logger, stage string, size int, delivered bool) {
	if logger == nil {
		return
	}
	msg := "batch received"
	if delivered {
		msg = "batch delivered"
	}
	logger.Debug(msg,
		slog.String("stage", stage),
		slog.Int("size", size),
	)
}

// TimedOperation returns a function reporting the milliseconds elapsed
// since TimedOperation was called.
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
