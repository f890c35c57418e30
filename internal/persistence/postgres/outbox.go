package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"example.com/gardenlog/internal/platform/events"
)

type outboxRecord struct {
	UserID        string
	AggregateType string
	AggregateID   string
	EventType     string
	// DedupeSuffix distinguishes repeatable events on the same aggregate.
	DedupeSuffix string
	Payload      interface{}
}

func insertOutbox(ctx context.Context, tx pgx.Tx, rec outboxRecord) error {
	body, err := json.Marshal(rec.Payload)
	if err != nil {
		return err
	}

	meta, ok := eventCatalog[rec.EventType]
	if !ok {
		return fmt.Errorf("unknown event type: %s", rec.EventType)
	}

	dedupeKey := fmt.Sprintf("%s:%s", rec.AggregateID, rec.EventType)
	if rec.DedupeSuffix != "" {
		dedupeKey += ":" + rec.DedupeSuffix
	}

	const stmt = `INSERT INTO outbox (user_id, aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        ON CONFLICT (dedupe_key) DO NOTHING`

	_, err = tx.Exec(ctx, stmt,
		rec.UserID,
		rec.AggregateType,
		rec.AggregateID,
		rec.EventType,
		meta.Topic,
		meta.SchemaSubject,
		meta.PartitionKeyFn(rec),
		body,
		dedupeKey,
	)
	return err
}

// EventMetadata describes how to route an outbox event.
type EventMetadata struct {
	Topic          string
	SchemaSubject  string
	PartitionKeyFn func(outboxRecord) string
}

func byUser(rec outboxRecord) string { return rec.UserID }

func byAggregate(rec outboxRecord) string { return rec.AggregateID }

// Record events share one topic keyed by user so a consumer sees a user's
// garden in write order. Task events are keyed by task.
var eventCatalog = map[string]EventMetadata{
	events.TypeSpaceCreated: {
		Topic:          "garden_records",
		SchemaSubject:  "garden_records-space_created-value",
		PartitionKeyFn: byUser,
	},
	events.TypePlantAdded: {
		Topic:          "garden_records",
		SchemaSubject:  "garden_records-plant_added-value",
		PartitionKeyFn: byUser,
	},
	events.TypePlantStatusChanged: {
		Topic:          "garden_records",
		SchemaSubject:  "garden_records-plant_status_changed-value",
		PartitionKeyFn: byUser,
	},
	events.TypeNoteCreated: {
		Topic:          "garden_records",
		SchemaSubject:  "garden_records-note_created-value",
		PartitionKeyFn: byUser,
	},
	events.TypeTaskCreated: {
		Topic:          "garden_tasks",
		SchemaSubject:  "garden_tasks-task_created-value",
		PartitionKeyFn: byAggregate,
	},
	events.TypeTaskCompleted: {
		Topic:          "garden_tasks",
		SchemaSubject:  "garden_tasks-task_completed-value",
		PartitionKeyFn: byAggregate,
	},
}

var catalogOrder = []string{
	events.TypeSpaceCreated,
	events.TypePlantAdded,
	events.TypePlantStatusChanged,
	events.TypeNoteCreated,
	events.TypeTaskCreated,
	events.TypeTaskCompleted,
}

// Topics lists the distinct topics the store routes events to.
func Topics() []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, 2)
	for _, eventType := range catalogOrder {
		meta := eventCatalog[eventType]
		if _, ok := seen[meta.Topic]; ok {
			continue
		}
		seen[meta.Topic] = struct{}{}
		out = append(out, meta.Topic)
	}
	return out
}
