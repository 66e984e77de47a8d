package view

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	derivations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "steady_habit_derivations_total",
			Help: "Habit view derivations by result (ok or degraded)",
		},
		[]string{"result"},
	)

	summaryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "steady_summary_duration_seconds",
			Help:    "Time taken to assemble a habit summary",
			Buckets: prometheus.DefBuckets,
		},
	)
)
