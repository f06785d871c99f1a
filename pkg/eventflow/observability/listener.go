package observability

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/randalmurphal/eventflow/pkg/eventflow/endpoint"
	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
	"github.com/randalmurphal/eventflow/pkg/eventflow/lifecycle"
)

// LoggingListener logs notifications: flow at debug, expiry at warn,
// failures at error.
func LoggingListener(logger *slog.Logger) lifecycle.ListenerFunc {
	return func(_ context.Context, n lifecycle.Notification) {
		id := eventID(n.Event)
		switch n.Kind {
		case lifecycle.Received:
			LogEventReceived(logger, n.Source, id, eventType(n.Event))
		case lifecycle.Delivered:
			LogEventDelivered(logger, n.Source, id, float64(n.Elapsed.Microseconds())/1000)
		case lifecycle.Rejected:
			LogEventRejected(logger, n.Source, id)
		case lifecycle.Error, lifecycle.ResponseError:
			LogEventError(logger, n.Source, id, n.Err)
		case lifecycle.Expired:
			key := ""
			if n.Event != nil {
				key = n.Event.ParentID
			}
			LogEventExpired(logger, n.Source, key, len(n.Batch))
		case lifecycle.BatchReceived, lifecycle.BatchDelivered:
			LogBatch(logger, n.Source, len(n.Batch), n.Kind == lifecycle.BatchDelivered)
		}
	}
}

// MetricsListener turns notifications into metric recordings.
func MetricsListener(m MetricsRecorder) lifecycle.ListenerFunc {
	if m == nil {
		m = NoopMetrics{}
	}
	return func(ctx context.Context, n lifecycle.Notification) {
		switch n.Kind {
		case lifecycle.Received:
			m.RecordReceived(ctx, n.Source, eventType(n.Event))
		case lifecycle.Delivered:
			m.RecordDelivered(ctx, n.Source, n.Elapsed)
		case lifecycle.Error:
			m.RecordError(ctx, n.Source, n.Err)
		case lifecycle.BatchReceived:
			m.RecordBatch(ctx, n.Source, len(n.Batch))
		}
	}
}

// TracingListener adds every notification as an event on the span carried
// by the notification context.
func TracingListener(spans SpanManager) lifecycle.ListenerFunc {
	if spans == nil {
		spans = NoopSpanManager{}
	}
	return func(ctx context.Context, n lifecycle.Notification) {
		attrs := []attribute.KeyValue{attribute.String("stage", n.Source)}
		if n.Event != nil {
			attrs = append(attrs, attribute.String("event.id", n.Event.ID))
		}
		if n.Err != nil {
			attrs = append(attrs, attribute.String("error", n.Err.Error()))
		}
		spans.AddSpanEvent(ctx, string(n.Kind), attrs...)
	}
}

// Observer bundles the back ends a stage reports to. Nil fields are
// disabled.
type Observer struct {
	Logger  *slog.Logger
	Metrics MetricsRecorder
	Spans   SpanManager
}

// NewObserver returns an Observer using logger and the global OTel
// providers.
func NewObserver(logger *slog.Logger) Observer {
	return Observer{
		Logger:  logger,
		Metrics: NewMetricsRecorder(),
		Spans:   NewSpanManager(),
	}
}

func (o Observer) spans() SpanManager {
	if o.Spans == nil {
		return NoopSpanManager{}
	}
	return o.Spans
}

// Listener fans a notification out to the logging, metrics and tracing
// listeners.
func (o Observer) Listener() lifecycle.Listener {
	logging := LoggingListener(o.Logger)
	metrics := MetricsListener(o.Metrics)
	tracing := TracingListener(o.Spans)
	return lifecycle.ListenerFunc(func(ctx context.Context, n lifecycle.Notification) {
		logging(ctx, n)
		metrics(ctx, n)
		tracing(ctx, n)
	})
}

// Observable is a stage that reports through lifecycle notifications.
type Observable interface {
	Name() string
	OnAny(l lifecycle.Listener) func()
}

// Instrument attaches o to target when it is Observable and returns target
// resolved to an endpoint.Func whose every call runs inside a stage span.
// The returned function detaches the listener.
func Instrument(target any, o Observer) (endpoint.Func, func(), error) {
	fn, err := endpoint.Resolve(target, nil)
	if err != nil {
		return nil, nil, err
	}

	name := "endpoint"
	detach := func() {}
	if obs, ok := target.(Observable); ok {
		name = obs.Name()
		detach = obs.OnAny(o.Listener())
	}

	spans := o.spans()
	traced := func(ctx context.Context, e *event.Event) (*event.Event, error) {
		ctx, span := spans.StartStageSpan(ctx, name, e)
		out, err := fn(ctx, e)
		spans.EndSpanWithError(span, err)
		return out, err
	}
	return traced, detach, nil
}

func eventID(e *event.Event) string {
	if e == nil {
		return ""
	}
	return e.ID
}

func eventType(e *event.Event) string {
	if e == nil {
		return ""
	}
	return e.Type
}
