package profiler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesRouted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "profilelens_messages_routed_total",
			Help: "Total number of messages routed to a profile.",
		},
		[]string{"profile"},
	)
	messagesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "profilelens_messages_dropped_total",
			Help: "Total number of messages that could not be applied to any profile.",
		},
		[]string{"reason"}, // missing_timestamp, apply_failed
	)
	evaluationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "profilelens_evaluation_failures_total",
			Help: "Total number of expression failures absorbed while building profiles.",
		},
		[]string{"profile", "slot"},
	)
	measurementsFlushed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "profilelens_measurements_flushed_total",
			Help: "Total number of measurements produced by flushing profile windows.",
		},
		[]string{"profile"},
	)
	measurementsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "profilelens_measurements_dropped_total",
			Help: "Total number of measurements dropped because the output channel was full.",
		},
	)
	activeBuilders = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "profilelens_active_builders",
			Help: "Number of (profile, entity) builders currently held in memory.",
		},
	)
)
