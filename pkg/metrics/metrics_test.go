package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/HuuVinh0901/shoe-store-backend/pkg/metrics"
)

func TestOrderMetrics_Counters(t *testing.T) {
	m := metrics.NewOrderMetrics(prometheus.NewRegistry())

	m.ObserveTransition("PENDING", "CONFIRMED")
	m.ObserveTransition("PENDING", "CONFIRMED")
	m.ObserveSweep(3, 1)
	m.ObservePricing("final", 4)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Transitions.WithLabelValues("PENDING", "CONFIRMED")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.SweepCanceled))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SweepFailed))
	assert.Equal(t, 1, testutil.CollectAndCount(m.PricingMS))
}

func TestOrderMetrics_NilIsNoop(t *testing.T) {
	var m *metrics.OrderMetrics
	assert.NotPanics(t, func() {
		m.ObserveTransition("PENDING", "CANCELED")
		m.ObserveSweep(1, 0)
		m.ObservePricing("simple", 1)
	})
}

func TestHandler_ServesRegistry(t *testing.T) {
	reg := metrics.NewRegistry()
	m := metrics.NewOrderMetrics(reg)
	m.ObserveTransition("PROCESSING", "SHIPPED")

	rec := httptest.NewRecorder()
	metrics.Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `shoestore_orders_status_transitions_total{from="PROCESSING",to="SHIPPED"} 1`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
