package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shoestore"

// OrderMetrics tracks order lifecycle and pricing activity. A nil *OrderMetrics is valid
// and records nothing.
type OrderMetrics struct {
	Transitions   *prometheus.CounterVec
	SweepCanceled prometheus.Counter
	SweepFailed   prometheus.Counter
	PricingMS     *prometheus.HistogramVec
}

// NewOrderMetrics creates the collectors and registers them with reg. A nil reg uses the
// default registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &OrderMetrics{
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "status_transitions_total",
			Help:      "Accepted order status transitions.",
		}, []string{"from", "to"}),
		SweepCanceled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "sweep_canceled_total",
			Help:      "Orders canceled by the overdue payment sweep.",
		}),
		SweepFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "sweep_failed_total",
			Help:      "Overdue orders the sweep failed to cancel.",
		}),
		PricingMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "duration_ms",
			Help:      "Price computation latency in milliseconds.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
		}, []string{"mode"}),
	}
	reg.MustRegister(m.Transitions, m.SweepCanceled, m.SweepFailed, m.PricingMS)
	return m
}

// ObserveTransition counts one accepted transition.
func (m *OrderMetrics) ObserveTransition(from, to string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(from, to).Inc()
}

// ObserveSweep records the outcome of one sweep run.
func (m *OrderMetrics) ObserveSweep(canceled, failed int) {
	if m == nil {
		return
	}
	m.SweepCanceled.Add(float64(canceled))
	m.SweepFailed.Add(float64(failed))
}

// ObservePricing records how long a price computation took.
func (m *OrderMetrics) ObservePricing(mode string, ms float64) {
	if m == nil {
		return
	}
	m.PricingMS.WithLabelValues(mode).Observe(ms)
}

// NewRegistry returns a registry preloaded with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler exposes the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
