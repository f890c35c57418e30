// Package domain defines the garden records owned by the document store.
//
// Dates on every record are already-decoded time.Time values; stores are
// responsible for normalizing whatever encoding they persist.
package domain

import (
	"strings"
	"time"
)

// NoteCategory classifies a journal note.
type NoteCategory string

const (
	NoteCategoryObservation NoteCategory = "observation"
	NoteCategoryWatering    NoteCategory = "watering"
	NoteCategoryFeeding     NoteCategory = "feeding"
	NoteCategoryPruning     NoteCategory = "pruning"
	NoteCategoryTraining    NoteCategory = "training"
	NoteCategoryPest        NoteCategory = "pest"
	NoteCategoryHarvest     NoteCategory = "harvest"
	NoteCategoryGeneral     NoteCategory = "general"
)

var noteCategories = map[NoteCategory]struct{}{
	NoteCategoryObservation: {},
	NoteCategoryWatering:    {},
	NoteCategoryFeeding:     {},
	NoteCategoryPruning:     {},
	NoteCategoryTraining:    {},
	NoteCategoryPest:        {},
	NoteCategoryHarvest:     {},
	NoteCategoryGeneral:     {},
}

// Valid reports whether c is one of the known categories.
func (c NoteCategory) Valid() bool {
	_, ok := noteCategories[c]
	return ok
}

// TaskPriority ranks a task.
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

// Valid reports whether p is a known priority.
func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}

// TaskStatus is the per-occurrence task state.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusCompleted TaskStatus = "completed"
)

// RecurrenceType selects the unit a recurrence advances by.
type RecurrenceType string

const (
	RecurrenceDaily   RecurrenceType = "daily"
	RecurrenceWeekly  RecurrenceType = "weekly"
	RecurrenceMonthly RecurrenceType = "monthly"
)

// Valid reports whether t is a known recurrence unit.
func (t RecurrenceType) Valid() bool {
	switch t {
	case RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly:
		return true
	}
	return false
}

// Recurrence describes how the next occurrence of a task is derived.
type Recurrence struct {
	Type     RecurrenceType `json:"type"`
	Interval int            `json:"interval"`
	EndDate  *time.Time     `json:"end_date,omitempty"`
}

// PlantStatus is the growth stage of a plant.
type PlantStatus string

const (
	PlantStatusSeedling   PlantStatus = "seedling"
	PlantStatusVegetative PlantStatus = "vegetative"
	PlantStatusFlowering  PlantStatus = "flowering"
	PlantStatusHarvested  PlantStatus = "harvested"
	PlantStatusRemoved    PlantStatus = "removed"
)

// Valid reports whether s is a known growth stage.
func (s PlantStatus) Valid() bool {
	switch s {
	case PlantStatusSeedling, PlantStatusVegetative, PlantStatusFlowering, PlantStatusHarvested, PlantStatusRemoved:
		return true
	}
	return false
}

// SpaceType is the kind of grow space.
type SpaceType string

const (
	SpaceTypeTent       SpaceType = "tent"
	SpaceTypeRoom       SpaceType = "room"
	SpaceTypeGreenhouse SpaceType = "greenhouse"
	SpaceTypeOutdoor    SpaceType = "outdoor"
	SpaceTypeOther      SpaceType = "other"
)

// Valid reports whether t is a known space type.
func (t SpaceType) Valid() bool {
	switch t {
	case SpaceTypeTent, SpaceTypeRoom, SpaceTypeGreenhouse, SpaceTypeOutdoor, SpaceTypeOther:
		return true
	}
	return false
}

// Note is a journal entry, optionally attached to a plant and/or space.
type Note struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	PlantID   string       `json:"plant_id,omitempty"`
	SpaceID   string       `json:"space_id,omitempty"`
	Content   string       `json:"content"`
	Category  NoteCategory `json:"category"`
	Photos    []string     `json:"photos"`
	Timestamp time.Time    `json:"timestamp"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Task is a single occurrence of a to-do item.
type Task struct {
	ID          string       `json:"id"`
	UserID      string       `json:"user_id"`
	PlantID     string       `json:"plant_id,omitempty"`
	SpaceID     string       `json:"space_id,omitempty"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	DueDate     time.Time    `json:"due_date"`
	Priority    TaskPriority `json:"priority"`
	Status      TaskStatus   `json:"status"`
	Recurrence  *Recurrence  `json:"recurrence,omitempty"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// IsCompleted reports whether the occurrence is done.
func (t Task) IsCompleted() bool {
	return t.Status == TaskStatusCompleted
}

// Plant is a single tracked plant.
type Plant struct {
	ID                  string      `json:"id"`
	UserID              string      `json:"user_id"`
	SpaceID             string      `json:"space_id"`
	Name                string      `json:"name"`
	Variety             string      `json:"variety"`
	PlantedDate         time.Time   `json:"planted_date"`
	ExpectedHarvestDate *time.Time  `json:"expected_harvest_date,omitempty"`
	ActualHarvestDate   *time.Time  `json:"actual_harvest_date,omitempty"`
	Status              PlantStatus `json:"status"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
}

// Space is a grow space: a tent, room, greenhouse or bed.
type Space struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Name       string    `json:"name"`
	Type       SpaceType `json:"type"`
	PlantCount int       `json:"plant_count"`
	Public     bool      `json:"public"`
	CreatedAt  time.Time `json:"created_at"`
}

// Blank reports whether s is empty after trimming.
func Blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
