package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SlotsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "verification_slots_created_total",
			Help: "Total number of verification slots materialized",
		},
	)

	ReconciliationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verification_reconciliations_total",
			Help: "Total number of slot reconciliation runs",
		},
		[]string{"outcome"},
	)

	SaveOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verification_save_ops_total",
			Help: "Total number of verification save requests",
		},
		[]string{"outcome"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)
)
