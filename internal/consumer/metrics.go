package consumer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for messagesTotal.
const (
	outcomeCommitted    = "committed"
	outcomeHandlerError = "handler_error"
	outcomeDecodeError  = "decode_error"
)

var (
	messagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gardenlog",
		Subsystem: "consumer",
		Name:      "messages_total",
		Help:      "Garden event records read from Kafka, by outcome.",
	}, []string{"topic", "event_type", "outcome"})

	handleDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gardenlog",
		Subsystem: "consumer",
		Name:      "handle_duration_seconds",
		Help:      "Time spent running the handler chain for one record.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
	}, []string{"topic"})

	eventWatermark = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "gardenlog",
		Subsystem: "consumer",
		Name:      "last_committed_event_timestamp_seconds",
		Help:      "Produce time of the newest committed record per topic.",
	}, []string{"topic"})
)

func init() {
	prometheus.MustRegister(messagesTotal, handleDuration, eventWatermark)
}

func observeOutcome(msg Message, outcome string, elapsed time.Duration) {
	eventType := msg.EventType
	if eventType == "" {
		eventType = "unknown"
	}
	messagesTotal.WithLabelValues(msg.Topic, eventType, outcome).Inc()
	if elapsed > 0 {
		handleDuration.WithLabelValues(msg.Topic).Observe(elapsed.Seconds())
	}
	if outcome == outcomeCommitted && !msg.Timestamp.IsZero() {
		eventWatermark.WithLabelValues(msg.Topic).Set(float64(msg.Timestamp.Unix()))
	}
}
