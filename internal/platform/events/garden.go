// Package events defines the payloads published on the garden event stream.
package events

import "time"

// Event type names carried in the outbox and the event_type Kafka header.
const (
	TypeSpaceCreated       = "space.created"
	TypePlantAdded         = "plant.added"
	TypePlantStatusChanged = "plant.status_changed"
	TypeNoteCreated        = "note.created"
	TypeTaskCreated        = "task.created"
	TypeTaskCompleted      = "task.completed"
)

// SpaceCreated is emitted when a grow space is added.
type SpaceCreated struct {
	SpaceID   string    `json:"space_id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Public    bool      `json:"public"`
	CreatedAt time.Time `json:"created_at"`
}

// PlantAdded is emitted when a plant is added to a space.
type PlantAdded struct {
	PlantID     string    `json:"plant_id"`
	UserID      string    `json:"user_id"`
	SpaceID     string    `json:"space_id"`
	Name        string    `json:"name"`
	Variety     string    `json:"variety,omitempty"`
	Status      string    `json:"status"`
	PlantedDate time.Time `json:"planted_date"`
	CreatedAt   time.Time `json:"created_at"`
}

// PlantStatusChanged tracks growth stage transitions, including harvests.
type PlantStatusChanged struct {
	PlantID     string     `json:"plant_id"`
	UserID      string     `json:"user_id"`
	SpaceID     string     `json:"space_id"`
	From        string     `json:"from"`
	To          string     `json:"to"`
	HarvestedAt *time.Time `json:"harvested_at,omitempty"`
	OccurredAt  time.Time  `json:"occurred_at"`
}

// NoteCreated is emitted when a journal note is written.
type NoteCreated struct {
	NoteID     string    `json:"note_id"`
	UserID     string    `json:"user_id"`
	PlantID    string    `json:"plant_id,omitempty"`
	SpaceID    string    `json:"space_id,omitempty"`
	Category   string    `json:"category"`
	PhotoCount int       `json:"photo_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// Recurrence mirrors the task recurrence rule on the wire.
type Recurrence struct {
	Type     string     `json:"type"`
	Interval int        `json:"interval"`
	EndDate  *time.Time `json:"end_date,omitempty"`
}

// TaskSnapshot is the full task state carried by task events, enough for a
// consumer to derive the next occurrence without reading the store.
type TaskSnapshot struct {
	TaskID      string      `json:"task_id"`
	UserID      string      `json:"user_id"`
	PlantID     string      `json:"plant_id,omitempty"`
	SpaceID     string      `json:"space_id,omitempty"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	DueDate     time.Time   `json:"due_date"`
	Priority    string      `json:"priority"`
	Status      string      `json:"status"`
	Recurrence  *Recurrence `json:"recurrence,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}

// TaskCreated is emitted for every stored task occurrence, successors included.
type TaskCreated struct {
	TaskSnapshot
	CreatedAt time.Time `json:"created_at"`
}

// TaskCompleted is emitted when an occurrence transitions to completed.
type TaskCompleted struct {
	TaskSnapshot
	OccurredAt time.Time `json:"occurred_at"`
}
