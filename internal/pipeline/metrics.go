package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesConsumed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "profilelens_messages_consumed_total",
			Help: "Total number of raw messages read from the input topic.",
		},
	)
	messageParseFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "profilelens_message_parse_failures_total",
			Help: "Total number of input messages skipped because they were not valid JSON objects.",
		},
	)
	measurementsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "profilelens_measurements_emitted_total",
			Help: "Total number of measurements written to the output topic.",
		},
		[]string{"profile"},
	)
	measurementEmitFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "profilelens_measurement_emit_failures_total",
			Help: "Total number of measurements that could not be encoded or written.",
		},
		[]string{"profile", "stage"}, // stage: encode, write
	)
)
