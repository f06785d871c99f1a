package observability

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/randalmurphal/eventflow/pkg/eventflow/channel"
	"github.com/randalmurphal/eventflow/pkg/eventflow/endpoint"
	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
	"github.com/randalmurphal/eventflow/pkg/eventflow/lifecycle"
)

func TestLogHelpers_NilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		LogEventReceived(nil, "s", "id", "T")
		LogEventDelivered(nil, "s", "id", 1)
		LogEventRejected(nil, "s", "id")
		LogEventError(nil, "s", "id", errors.New("x"))
		LogEventExpired(nil, "s", "k", 1)
		LogBatch(nil, "s", 1, true)
	})
	assert.Nil(t, EnrichLogger(nil, "s", "id"))
}

func TestLoggingListener(t *testing.T) {
	h := &captureHandler{}
	logger := slog.New(h)
	l := LoggingListener(logger)
	ctx := context.Background()
	e := event.NewTyped("Order", nil)

	l(ctx, lifecycle.Notification{Kind: lifecycle.Received, Source: "filter", Event: e})
	l(ctx, lifecycle.Notification{Kind: lifecycle.Error, Source: "filter", Event: e, Err: errors.New("boom")})
	l(ctx, lifecycle.Notification{Kind: lifecycle.Accepted, Source: "filter", Event: e})

	recs := h.records(t)
	require.Len(t, recs, 2)
	assert.Equal(t, "event received", recs[0]["msg"])
	assert.Equal(t, "Order", recs[0]["event_type"])
	assert.Equal(t, "ERROR", recs[1]["level"])
	assert.Equal(t, "boom", recs[1]["error"])
	assert.Equal(t, e.ID, recs[1]["event_id"])
}

func TestMetricsRecorder(t *testing.T) {
	reader := setupMetricsTest(t)
	m, err := newOtelMetrics(otel.Meter("eventflow"))
	require.NoError(t, err)
	ctx := context.Background()

	m.RecordReceived(ctx, "split", "Order")
	m.RecordReceived(ctx, "split", "Order")
	m.RecordDelivered(ctx, "split", 3*time.Millisecond)
	m.RecordError(ctx, "split", errors.New("bad"))
	m.RecordBatch(ctx, "split", 20)

	pending := 4
	unregister, err := m.ObservePending("rr", func() int { return pending })
	require.NoError(t, err)

	rm := collectMetrics(t, reader)
	assert.Equal(t, int64(2), sumFor(t, findMetric(rm, "eventflow.stage.received"), "stage", "split"))
	assert.Equal(t, int64(1), sumFor(t, findMetric(rm, "eventflow.stage.delivered"), "stage", "split"))
	assert.Equal(t, int64(1), sumFor(t, findMetric(rm, "eventflow.stage.errors"), "category", "permanent"))

	latency := findMetric(rm, "eventflow.stage.latency_ms")
	require.NotNil(t, latency)
	_, ok := latency.Data.(metricdata.Histogram[float64])
	assert.True(t, ok)

	batch := findMetric(rm, "eventflow.batch.size")
	require.NotNil(t, batch)
	hist, ok := batch.Data.(metricdata.Histogram[int64])
	require.True(t, ok)
	require.NotEmpty(t, hist.DataPoints)
	assert.Equal(t, int64(20), hist.DataPoints[0].Sum)

	gauge, ok := findMetric(rm, "eventflow.correlation.pending").Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, int64(4), gauge.DataPoints[0].Value)

	unregister()
}

func TestNewMetricsRecorderFor(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := NewMetricsRecorderFor(provider)
	require.NoError(t, err)
	m.RecordReceived(context.Background(), "tap", "Order")

	rm := collectMetrics(t, reader)
	assert.Equal(t, int64(1), sumFor(t, findMetric(rm, "eventflow.stage.received"), "stage", "tap"))
}

func TestNewMetricsRecorder(t *testing.T) {
	setupMetricsTest(t)
	_, isNoop := NewMetricsRecorder().(NoopMetrics)
	assert.False(t, isNoop)
}

func TestStartStageSpan(t *testing.T) {
	exporter := setupTracingTest(t)

	e := event.NewTyped("Order", nil)
	e.ParentID = "parent"
	ctx, span := StartStageSpan(context.Background(), "router", e)
	AddSpanEvent(ctx, "event:received")
	EndSpanWithError(span, errors.New("no route"))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	s := spans[0]
	assert.Equal(t, "eventflow.stage.router", s.Name)
	assert.Equal(t, codes.Error, s.Status.Code)
	require.Len(t, s.Events, 2)
	assert.Equal(t, "event:received", s.Events[0].Name)
	assert.Equal(t, "exception", s.Events[1].Name)

	attrs := map[attribute.Key]string{}
	for _, a := range s.Attributes {
		attrs[a.Key] = a.Value.AsString()
	}
	assert.Equal(t, e.ID, attrs["event.id"])
	assert.Equal(t, "parent", attrs["event.parent_id"])
}

func TestNoopImplementations(t *testing.T) {
	ctx := context.Background()
	var m MetricsRecorder = NoopMetrics{}
	var s SpanManager = NoopSpanManager{}
	assert.NotPanics(t, func() {
		m.RecordReceived(ctx, "s", "t")
		m.RecordDelivered(ctx, "s", time.Second)
		m.RecordError(ctx, "s", nil)
		m.RecordBatch(ctx, "s", 1)
		un, err := m.ObservePending("s", func() int { return 1 })
		require.NoError(t, err)
		un()

		c, span := s.StartStageSpan(ctx, "s", nil)
		assert.Equal(t, ctx, c)
		s.AddSpanEvent(c, "x")
		s.EndSpanWithError(span, errors.New("x"))
	})
}

func TestInstrument(t *testing.T) {
	exporter := setupTracingTest(t)
	reader := setupMetricsTest(t)
	metrics, err := newOtelMetrics(otel.Meter("eventflow"))
	require.NoError(t, err)
	h := &captureHandler{}

	filter, err := channel.NewFilter(
		func(e *event.Event) bool { return e.Type == "Order" },
		endpoint.HandlerFunc(func(context.Context, *event.Event) error { return nil }),
		channel.WithName("orders-only"),
	)
	require.NoError(t, err)

	fn, detach, err := Instrument(filter, Observer{
		Logger:  slog.New(h),
		Metrics: metrics,
		Spans:   NewSpanManager(),
	})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = fn(ctx, event.NewTyped("Order", nil))
	require.NoError(t, err)
	_, err = fn(ctx, event.NewTyped("Refund", nil))
	require.NoError(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "eventflow.stage.orders-only", spans[0].Name)
	var names []string
	for _, ev := range spans[0].Events {
		names = append(names, ev.Name)
	}
	assert.Equal(t, []string{"event:received", "event:accepted", "event:delivered"}, names)

	rm := collectMetrics(t, reader)
	assert.Equal(t, int64(2), sumFor(t, findMetric(rm, "eventflow.stage.received"), "stage", "orders-only"))

	detach()
	_, err = fn(ctx, event.New(nil))
	require.NoError(t, err)
	rm = collectMetrics(t, reader)
	assert.Equal(t, int64(2), sumFor(t, findMetric(rm, "eventflow.stage.received"), "stage", "orders-only"))
	assert.NotEmpty(t, h.records(t))
}

func TestInstrument_PlainFunction(t *testing.T) {
	exporter := setupTracingTest(t)
	boom := errors.New("boom")

	fn, detach, err := Instrument(func(context.Context, *event.Event) error { return boom }, Observer{Spans: NewSpanManager()})
	require.NoError(t, err)
	defer detach()

	_, err = fn(context.Background(), event.New(nil))
	assert.ErrorIs(t, err, boom)
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "eventflow.stage.endpoint", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
}
