// Package observability holds service-wide Prometheus collectors.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	recordPersistGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "gardenlog",
		Subsystem: "persistence",
		Name:      "last_record_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent record written, per collection.",
	}, []string{"collection"})

	taskCompletedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "gardenlog",
		Subsystem: "persistence",
		Name:      "last_task_completed_timestamp_seconds",
		Help:      "Unix timestamp of the most recent task transitioned to completed.",
	})

	feedDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "gardenlog",
		Subsystem: "feed",
		Name:      "generate_duration_seconds",
		Help:      "Time spent loading snapshots and generating a feed.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	feedActivities = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gardenlog",
		Subsystem: "feed",
		Name:      "activities_returned_total",
		Help:      "Activities returned by feed requests, labeled by activity type.",
	}, []string{"type"})
)

func init() {
	prometheus.MustRegister(recordPersistGauge, taskCompletedGauge, feedDuration, feedActivities)
}

// RecordPersisted updates the persistence watermark for collection.
func RecordPersisted(collection string, ts time.Time) {
	if ts.IsZero() {
		return
	}
	recordPersistGauge.WithLabelValues(collection).Set(float64(ts.Unix()))
}

// RecordTaskCompleted updates the completion watermark gauge.
func RecordTaskCompleted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	taskCompletedGauge.Set(float64(ts.Unix()))
}

// ObserveFeed records one feed generation.
func ObserveFeed(elapsed time.Duration, types []string) {
	feedDuration.Observe(elapsed.Seconds())
	for _, t := range types {
		feedActivities.WithLabelValues(t).Inc()
	}
}
