package opqueue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are intentionally simple. inFlight is only flipped by the
// operation that owns the lane, guaranteeing a single writer.
var (
	opsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sage",
			Subsystem: "opqueue",
			Name:      "ops_total",
			Help:      "Operations that acquired the lane and ran.",
		},
		[]string{"op"},
	)

	rejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sage",
			Subsystem: "opqueue",
			Name:      "rejected_total",
			Help:      "Operations rejected because the lane was busy.",
		},
		[]string{"op"},
	)

	failuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sage",
			Subsystem: "opqueue",
			Name:      "failures_total",
			Help:      "Operations that ran and returned an error.",
		},
		[]string{"op"},
	)

	runDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sage",
			Subsystem: "opqueue",
			Name:      "run_duration_seconds",
			Help:      "Operation execution latency.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	inFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sage",
			Subsystem: "opqueue",
			Name:      "in_flight",
			Help:      "Whether an operation currently holds the lane (0 or 1).",
		},
	)
)
