package observability

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	eferrors "github.com/randalmurphal/eventflow/pkg/eventflow/errors"
)

// PrometheusMetrics implements MetricsRecorder with Prometheus collectors
// for services that scrape rather than push.
type PrometheusMetrics struct {
	registerer prometheus.Registerer
	received   *prometheus.CounterVec
	delivered  *prometheus.CounterVec
	errors     *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	batchSize  *prometheus.HistogramVec
}

// Compile-time interface check.
var _ MetricsRecorder = (*PrometheusMetrics)(nil)

func newStageCounterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eventflow",
		Subsystem: "stage",
		Name:      name,
		Help:      help,
	}, append([]string{"stage"}, labels...))
}

// NewPrometheusMetrics creates the collectors and registers them with
// registerer, prometheus.DefaultRegisterer when nil. Collectors that are
// already registered are reused.
func NewPrometheusMetrics(registerer prometheus.Registerer) (*PrometheusMetrics, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	m := &PrometheusMetrics{
		registerer: registerer,
		received:   newStageCounterVec("received_total", "Events received by a stage", "event_type"),
		delivered:  newStageCounterVec("delivered_total", "Events delivered by a stage"),
		errors:     newStageCounterVec("errors_total", "Stage failures", "category"),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "eventflow",
			Subsystem: "stage",
			Name:      "latency_seconds",
			Help:      "Time from receipt to delivery",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		batchSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "eventflow",
			Subsystem: "batch",
			Name:      "size",
			Help:      "Events per splitter batch",
			Buckets:   []float64{1, 5, 10, 20, 50, 100, 500},
		}, []string{"stage"}),
	}

	var err error
	m.received, err = register(registerer, m.received)
	if err != nil {
		return nil, err
	}
	if m.delivered, err = register(registerer, m.delivered); err != nil {
		return nil, err
	}
	if m.errors, err = register(registerer, m.errors); err != nil {
		return nil, err
	}
	if m.latency, err = register(registerer, m.latency); err != nil {
		return nil, err
	}
	if m.batchSize, err = register(registerer, m.batchSize); err != nil {
		return nil, err
	}
	return m, nil
}

// register returns the collector already registered under c's description
// when there is one.
func register[C prometheus.Collector](registerer prometheus.Registerer, c C) (C, error) {
	err := registerer.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing, nil
		}
	}
	return c, err
}

func (m *PrometheusMetrics) RecordReceived(_ context.Context, stage, eventType string) {
	m.received.WithLabelValues(stage, eventType).Inc()
}

func (m *PrometheusMetrics) RecordDelivered(_ context.Context, stage string, latency time.Duration) {
	m.delivered.WithLabelValues(stage).Inc()
	m.latency.WithLabelValues(stage).Observe(latency.Seconds())
}

func (m *PrometheusMetrics) RecordError(_ context.Context, stage string, err error) {
	m.errors.WithLabelValues(stage, eferrors.Categorize(err).String()).Inc()
}

func (m *PrometheusMetrics) RecordBatch(_ context.Context, stage string, size int) {
	m.batchSize.WithLabelValues(stage).Observe(float64(size))
}

// ObservePending registers a gauge for stage that reads fn on every scrape.
func (m *PrometheusMetrics) ObservePending(stage string, fn func() int) (func(), error) {
	gauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   "eventflow",
		Subsystem:   "correlation",
		Name:        "pending",
		Help:        "Requests waiting for a reply",
		ConstLabels: prometheus.Labels{"stage": stage},
	}, func() float64 { return float64(fn()) })

	if err := m.registerer.Register(gauge); err != nil {
		return func() {}, err
	}
	return func() { m.registerer.Unregister(gauge) }, nil
}
