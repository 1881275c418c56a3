package webhook

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks webhook delivery counters on a private registry so
// multiple servers in one process never collide on collector names.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry
	received prometheus.Counter
	rejected *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewMetrics creates the delivery collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		received: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "yatbl_webhook_updates_received_total",
			Help: "Updates accepted and handed to the dispatcher.",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "yatbl_webhook_updates_rejected_total",
			Help: "Deliveries rejected before dispatch.",
		}, []string{"reason"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "yatbl_webhook_update_duration_seconds",
			Help:    "Time from accepted delivery to dispatch return.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	m.registry.MustRegister(m.received, m.rejected, m.duration)
	return m
}

// ObserveUpdate records one dispatched update and its handling time.
func (m *Metrics) ObserveUpdate(d time.Duration) {
	if m == nil {
		return
	}
	m.received.Inc()
	m.duration.Observe(d.Seconds())
}

// RejectUpdate records a delivery rejected before dispatch.
func (m *Metrics) RejectUpdate(reason string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(reason).Inc()
}

// Registry exposes the backing registry for mounting a metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}
