// Package prommetrics exports tracker metrics to Prometheus.
package prommetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/velmie/tracker"
)

const defaultNamespace = "tracker"

// Metrics implements tracker.Metrics with Prometheus collectors.
type Metrics struct {
	flushDuration *prometheus.HistogramVec
	delivered     *prometheus.CounterVec
	failed        *prometheus.CounterVec
	requeued      *prometheus.CounterVec
	persistErrors prometheus.Counter
	queued        *prometheus.GaugeVec
}

var _ tracker.Metrics = (*Metrics)(nil)

// New registers the collectors on reg under namespace ("tracker" when empty).
// It panics if the collectors are already registered, as promauto does.
func New(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = defaultNamespace
	}
	factory := promauto.With(reg)

	return &Metrics{
		flushDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "flush_duration_seconds",
				Help:      "Duration of one flush pass over a queue in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		delivered: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_delivered_total",
				Help:      "Total number of events accepted by the backend",
			},
			[]string{"kind"},
		),
		failed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_failed_total",
				Help:      "Total number of events in batches the backend did not accept",
			},
			[]string{"kind"},
		),
		requeued: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_requeued_total",
				Help:      "Total number of events put back at the tail of the queue",
			},
			[]string{"kind"},
		),
		persistErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "persist_errors_total",
				Help:      "Total number of failed snapshot saves",
			},
		),
		queued: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "queue_depth",
				Help:      "Events currently held per queue, in flight included",
			},
			[]string{"kind"},
		),
	}
}

func (m *Metrics) ObserveFlushDuration(kind tracker.Kind, d time.Duration) {
	m.flushDuration.WithLabelValues(kind.String()).Observe(d.Seconds())
}

func (m *Metrics) AddDelivered(kind tracker.Kind, n int) {
	m.delivered.WithLabelValues(kind.String()).Add(float64(n))
}

func (m *Metrics) AddFailed(kind tracker.Kind, n int) {
	m.failed.WithLabelValues(kind.String()).Add(float64(n))
}

func (m *Metrics) AddRequeued(kind tracker.Kind, n int) {
	m.requeued.WithLabelValues(kind.String()).Add(float64(n))
}

func (m *Metrics) AddPersistErrors(n int) {
	m.persistErrors.Add(float64(n))
}

func (m *Metrics) SetQueued(kind tracker.Kind, n int) {
	m.queued.WithLabelValues(kind.String()).Set(float64(n))
}
