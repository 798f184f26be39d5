package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	apiRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "venuebook",
			Name:      "api_requests_total",
			Help:      "Backend API requests by endpoint and result class.",
		},
		[]string{"endpoint", "code"},
	)

	paymentSessions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "venuebook",
			Name:      "payment_sessions_total",
			Help:      "Finished payment sessions by phase and status.",
		},
		[]string{"phase", "status"},
	)

	orderReuse = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "venuebook",
			Name:      "gateway_orders_total",
			Help:      "Gateway order ids by phase, split into reused and created.",
		},
		[]string{"phase", "source"},
	)

	checkoutLeases = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "venuebook",
			Name:      "checkout_leases",
			Help:      "Live leases on the checkout script loader.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(apiRequests, paymentSessions, orderReuse, checkoutLeases)
	})
}

// IncAPI counts one backend call; code is the HTTP status or "error".
func IncAPI(endpoint, code string) {
	apiRequests.WithLabelValues(endpoint, code).Inc()
}

func IncPaymentSession(phase, status string) {
	paymentSessions.WithLabelValues(phase, status).Inc()
}

// IncOrder counts an order id used for a session; source is "reused" or "created".
func IncOrder(phase, source string) {
	orderReuse.WithLabelValues(phase, source).Inc()
}

func SetCheckoutLeases(n int) {
	checkoutLeases.Set(float64(n))
}
