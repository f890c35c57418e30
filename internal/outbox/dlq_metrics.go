package outbox

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// DLQ entry outcomes.
const (
	dlqRequeued       = "requeued"
	dlqRetryScheduled = "retry_scheduled"
	dlqQuarantined    = "quarantined"
)

var (
	dlqOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gardenlog",
		Subsystem: "dlq",
		Name:      "entries_total",
		Help:      "DLQ entries handled by the manager, by outcome.",
	}, []string{"topic", "event_type", "outcome"})

	dlqBacklog = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "gardenlog",
		Subsystem: "dlq",
		Name:      "entries",
		Help:      "Entries currently held in outbox_dlq, split into waiting and quarantined.",
	}, []string{"state"})
)

func init() {
	prometheus.MustRegister(dlqOutcomes, dlqBacklog)
}

func recordDLQ(entry dlqEntry, outcome string) {
	dlqOutcomes.WithLabelValues(entry.Topic, entry.EventType, outcome).Inc()
}

// refreshBacklog re-reads the DLQ size. Errors leave the previous values in place.
func refreshBacklog(ctx context.Context, pool *pgxpool.Pool) {
	var waiting, quarantined int
	err := pool.QueryRow(ctx, `SELECT COUNT(*) FILTER (WHERE quarantined_at IS NULL),
                                      COUNT(*) FILTER (WHERE quarantined_at IS NOT NULL)
                                 FROM outbox_dlq`).Scan(&waiting, &quarantined)
	if err != nil {
		return
	}
	dlqBacklog.WithLabelValues("waiting").Set(float64(waiting))
	dlqBacklog.WithLabelValues("quarantined").Set(float64(quarantined))
}
