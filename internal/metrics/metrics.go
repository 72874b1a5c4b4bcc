package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tripseal_http_requests_total",
			Help: "Total HTTP requests by method, path and status code",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tripseal_http_request_duration_seconds",
			Help:    "HTTP request latency by method and path",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	SessionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tripseal_sessions_created_total",
			Help: "Sessions created since process start",
		},
	)

	SealsVerified = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tripseal_seals_verified_total",
			Help: "Seals verified by guards since process start",
		},
	)

	SealEscalations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tripseal_seal_escalations_total",
			Help: "Broken/tampered escalations by status",
		},
		[]string{"status"},
	)

	CoinsAllocated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tripseal_coins_allocated_total",
			Help: "Coins moved through allocations since process start",
		},
	)
)
