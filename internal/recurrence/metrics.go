package recurrence

import "github.com/prometheus/client_golang/prometheus"

var (
	successorsCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gardenlog",
		Subsystem: "recurrence",
		Name:      "successors_created_total",
		Help:      "Number of successor tasks persisted, labeled by recurrence type.",
	}, []string{"type"})

	successorReplays = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gardenlog",
		Subsystem: "recurrence",
		Name:      "successor_replays_total",
		Help:      "Successor creations that found the occurrence already stored.",
	})

	successorFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gardenlog",
		Subsystem: "recurrence",
		Name:      "successor_failures_total",
		Help:      "Successor creations that failed in the document store.",
	})

	seriesEnded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gardenlog",
		Subsystem: "recurrence",
		Name:      "series_ended_total",
		Help:      "Recurring tasks completed after their series end date.",
	})

	unknownRecurrence = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gardenlog",
		Subsystem: "recurrence",
		Name:      "unknown_type_total",
		Help:      "Advances that fell back to a daily step for an unrecognised recurrence type.",
	})
)

func init() {
	prometheus.MustRegister(successorsCreated, successorReplays, successorFailures, seriesEnded, unknownRecurrence)
}
