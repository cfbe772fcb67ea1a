package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tripvera",
			Name:      "http_requests_total",
			Help:      "Gateway HTTP requests by endpoint and status class.",
		},
		[]string{"endpoint", "status"},
	)

	reservationSubmits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tripvera",
			Name:      "reservation_submits_total",
			Help:      "Reservation submissions by outcome.",
		},
		[]string{"outcome"},
	)

	availabilityFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tripvera",
			Name:      "availability_fetches_total",
			Help:      "Month availability fetches by result (hit, miss, stale, error).",
		},
		[]string{"result"},
	)

	upstreamLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tripvera",
			Name:      "upstream_request_seconds",
			Help:      "Latency of proxied upstream requests.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, reservationSubmits, availabilityFetches, upstreamLatency)
	})
}

func IncHTTP(endpoint, status string) {
	httpRequests.WithLabelValues(endpoint, status).Inc()
}

func IncSubmit(outcome string) {
	reservationSubmits.WithLabelValues(outcome).Inc()
}

func IncAvailability(result string) {
	availabilityFetches.WithLabelValues(result).Inc()
}

func ObserveUpstream(method string, seconds float64) {
	upstreamLatency.WithLabelValues(method).Observe(seconds)
}
