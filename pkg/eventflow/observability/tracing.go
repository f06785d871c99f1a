package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
)

var tracer = otel.Tracer("eventflow")

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartStageSpan starts a span for one call into a stage.
	StartStageSpan(ctx context.Context, stage string, e *event.Event) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the span in ctx.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

type otelSpanManager struct{}

// NewSpanManager returns a SpanManager backed by the global OTel tracer
// provider.
func NewSpanManager() SpanManager {
	return otelSpanManager{}
}

func (otelSpanManager) StartStageSpan(ctx context.Context, stage string, e *event.Event) (context.Context, trace.Span) {
	return StartStageSpan(ctx, stage, e)
}

func (otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	EndSpanWithError(span, err)
}

func (otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	AddSpanEvent(ctx, name, attrs...)
}

// StartStageSpan starts a span named eventflow.stage.<stage>.
func StartStageSpan(ctx context.Context, stage string, e *event.Event) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String("stage", stage)}
	if e != nil {
		attrs = append(attrs,
			attribute.String("event.id", e.ID),
			attribute.String("event.type", e.Type),
		)
		if e.ParentID != "" {
			attrs = append(attrs, attribute.String("event.parent_id", e.ParentID))
		}
	}
	return tracer.Start(ctx, "eventflow.stage."+stage,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddSpanEvent adds an event to the span in ctx, if it is recording.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
