package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
)

// NoopMetrics is a MetricsRecorder that does nothing.
type NoopMetrics struct{}

// Compile-time interface check.
var _ MetricsRecorder = NoopMetrics{}

func (NoopMetrics) RecordReceived(context.Context, string, string) {}
func (NoopMetrics) RecordDelivered(context.Context, string, time.Duration) {}
func (NoopMetrics) RecordError(context.Context, string, error) {}
func (NoopMetrics) RecordBatch(context.Context, string, int) {}
func (NoopMetrics) ObservePending(string, func() int) (func(), error) { return func() {}, nil }

// NoopSpanManager is a SpanManager that does nothing.
type NoopSpanManager struct{}

// Compile-time interface check.
var _ SpanManager = NoopSpanManager{}

var noopSpan = noop.Span{}

// StartStageSpan returns ctx unchanged and a no-op span.
func (NoopSpanManager) StartStageSpan(ctx context.Context, _ string, _ *event.Event) (context.Context, trace.Span) {
	return ctx, noopSpan
}

func (NoopSpanManager) EndSpanWithError(trace.Span, error) {}
func (NoopSpanManager) AddSpanEvent(context.Context, string, ...attribute.KeyValue) {}
