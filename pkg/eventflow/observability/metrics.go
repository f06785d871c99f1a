package observability

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	eferrors "github.com/randalmurphal/eventflow/pkg/eventflow/errors"
)

// MetricsRecorder records eventflow metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordReceived counts an event entering a stage.
	RecordReceived(ctx context.Context, stage, eventType string)

	// RecordDelivered counts an event leaving a stage and its latency.
	RecordDelivered(ctx context.Context, stage string, latency time.Duration)

	// RecordError counts a stage failure, labelled with its category.
	RecordError(ctx context.Context, stage string, err error)

	// RecordBatch records a splitter batch size.
	RecordBatch(ctx context.Context, stage string, size int)

	// ObservePending reports fn() as the pending correlation count of stage
	// on every collection until the returned function is called.
	ObservePending(stage string, fn func() int) (unregister func(), err error)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	meter     metric.Meter
	received  metric.Int64Counter
	delivered metric.Int64Counter
	errors    metric.Int64Counter
	latency   metric.Float64Histogram
	batchSize metric.Int64Histogram
	pending   metric.Int64ObservableGauge
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics(otel.Meter("eventflow"))
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics(meter metric.Meter) (*otelMetrics, error) {
	m := &otelMetrics{meter: meter}

	var err, e error
	m.received, e = meter.Int64Counter("eventflow.stage.received",
		metric.WithDescription("Events received by a stage"))
	err = errors.Join(err, e)

	m.delivered, e = meter.Int64Counter("eventflow.stage.delivered",
		metric.WithDescription("Events delivered by a stage"))
	err = errors.Join(err, e)

	m.errors, e = meter.Int64Counter("eventflow.stage.errors",
		metric.WithDescription("Stage failures"))
	err = errors.Join(err, e)

	m.latency, e = meter.Float64Histogram("eventflow.stage.latency_ms",
		metric.WithDescription("Time from receipt to delivery in milliseconds"),
		metric.WithUnit("ms"))
	err = errors.Join(err, e)

	m.batchSize, e = meter.Int64Histogram("eventflow.batch.size",
		metric.WithDescription("Events per splitter batch"))
	err = errors.Join(err, e)

	m.pending, e = meter.Int64ObservableGauge("eventflow.correlation.pending",
		metric.WithDescription("Requests waiting for a reply"))
	err = errors.Join(err, e)

	if err != nil {
		return nil, err
	}
	return m, nil
}

// NewMetricsRecorder returns a MetricsRecorder backed by the global OTel
// meter provider, or NoopMetrics if the instruments cannot be created.
// Configure the provider first:
//
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// NewMetricsRecorderFor returns a MetricsRecorder whose instruments come
// from provider instead of the global one.
func NewMetricsRecorderFor(provider metric.MeterProvider) (MetricsRecorder, error) {
	m, err := newOtelMetrics(provider.Meter("eventflow"))
	if err != nil {
		return nil, err
	}
	return m, nil
}

func stageAttr(stage string) attribute.KeyValue {
	return attribute.String("stage", stage)
}

func (m *otelMetrics) RecordReceived(ctx context.Context, stage, eventType string) {
	m.received.Add(ctx, 1, metric.WithAttributes(stageAttr(stage), attribute.String("event_type", eventType)))
}

func (m *otelMetrics) RecordDelivered(ctx context.Context, stage string, latency time.Duration) {
	attrs := metric.WithAttributes(stageAttr(stage))
	m.delivered.Add(ctx, 1, attrs)
	m.latency.Record(ctx, float64(latency.Microseconds())/1000, attrs)
}

func (m *otelMetrics) RecordError(ctx context.Context, stage string, err error) {
	m.errors.Add(ctx, 1, metric.WithAttributes(
		stageAttr(stage),
		attribute.String("category", eferrors.Categorize(err).String()),
	))
}

func (m *otelMetrics) RecordBatch(ctx context.Context, stage string, size int) {
	m.batchSize.Record(ctx, int64(size), metric.WithAttributes(stageAttr(stage)))
}

func (m *otelMetrics) ObservePending(stage string, fn func() int) (func(), error) {
	attrs := metric.WithAttributes(stageAttr(stage))
	reg, err := m.meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(m.pending, int64(fn()), attrs)
		return nil
	}, m.pending)
	if err != nil {
		return func() {}, err
	}
	return func() { _ = reg.Unregister() }, nil
}

// MultiMetrics forwards every recording to each recorder in order. Use it
// to feed OpenTelemetry and Prometheus from one Observer.
type MultiMetrics []MetricsRecorder

var _ MetricsRecorder = MultiMetrics(nil)

func (mm MultiMetrics) RecordReceived(ctx context.Context, stage, eventType string) {
	for _, m := range mm {
		m.RecordReceived(ctx, stage, eventType)
	}
}

func (mm MultiMetrics) RecordDelivered(ctx context.Context, stage string, latency time.Duration) {
	for _, m := range mm {
		m.RecordDelivered(ctx, stage, latency)
	}
}

func (mm MultiMetrics) RecordError(ctx context.Context, stage string, err error) {
	for _, m := range mm {
		m.RecordError(ctx, stage, err)
	}
}

func (mm MultiMetrics) RecordBatch(ctx context.Context, stage string, size int) {
	for _, m := range mm {
		m.RecordBatch(ctx, stage, size)
	}
}

// ObservePending registers fn with every recorder. If one fails, the
// registrations already made are undone.
func (mm MultiMetrics) ObservePending(stage string, fn func() int) (func(), error) {
	undo := make([]func(), 0, len(mm))
	unregister := func() {
		for _, u := range undo {
			u()
		}
	}
	for _, m := range mm {
		u, err := m.ObservePending(stage, fn)
		if err != nil {
			unregister()
			return func() {}, err
		}
		undo = append(undo, u)
	}
	return unregister, nil
}
