package outbox

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DLQWriter parks events Kafka rejected so the DLQ manager can replay them.
type DLQWriter struct {
	pool *pgxpool.Pool
}

// NewDLQWriter initialises a writer backed by the provided connection pool.
func NewDLQWriter(pool *pgxpool.Pool) *DLQWriter {
	return &DLQWriter{pool: pool}
}

// WriteBatch parks every message of a failed batch. Messages are grouped per
// gardener so each insert runs under that gardener's row-level security scope.
func (w *DLQWriter) WriteBatch(ctx context.Context, messages []Message, cause error) error {
	byUser := make(map[string][]Message)
	order := make([]string, 0)
	for _, msg := range messages {
		if _, ok := byUser[msg.UserID]; !ok {
			order = append(order, msg.UserID)
		}
		byUser[msg.UserID] = append(byUser[msg.UserID], msg)
	}

	for _, userID := range order {
		if err := w.writeUser(ctx, userID, byUser[userID], cause); err != nil {
			return err
		}
		for _, msg := range byUser[userID] {
			dlqCounter.WithLabelValues(msg.Topic).Inc()
		}
	}
	return nil
}

func (w *DLQWriter) writeUser(ctx context.Context, userID string, messages []Message, cause error) error {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT set_config('app.user_id', $1, true)", userID); err != nil {
		return err
	}

	for _, msg := range messages {
		if _, err := tx.Exec(ctx,
			`INSERT INTO outbox_dlq (user_id, event_id, event_type, topic, payload, reason, aggregate_type, aggregate_id, schema_subject, partition_key, next_retry_at)
	         VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10, NOW())`,
			msg.UserID, msg.EventID, msg.EventType, msg.Topic, msg.Payload, dlqReason(msg, cause), msg.AggregateType, msg.AggregateID, msg.SchemaSubject, msg.PartitionKey,
		); err != nil {
			return fmt.Errorf("park event %d: %w", msg.EventID, err)
		}
	}
	return tx.Commit(ctx)
}

// dlqReason appends the topic and the garden record the event belongs to.
func dlqReason(msg Message, cause error) string {
	return fmt.Sprintf("%s (topic=%s %s=%s)", cause, msg.Topic, msg.AggregateType, msg.AggregateID)
}
