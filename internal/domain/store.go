package domain

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a record does not exist for the user.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidInput marks validation failures; wrap it with the detail.
	ErrInvalidInput = errors.New("invalid input")
	// ErrTaskExists is returned by CreateTask when the id is already taken.
	ErrTaskExists = errors.New("task already exists")
)

// SpaceStore persists grow spaces.
type SpaceStore interface {
	CreateSpace(ctx context.Context, space Space) error
	GetSpace(ctx context.Context, userID, spaceID string) (*Space, error)
	ListSpaces(ctx context.Context, userID string) ([]Space, error)
}

// PlantStore persists plants.
type PlantStore interface {
	CreatePlant(ctx context.Context, plant Plant) error
	GetPlant(ctx context.Context, userID, plantID string) (*Plant, error)
	ListPlants(ctx context.Context, userID string) ([]Plant, error)
	// UpdatePlantStatus records a growth stage change. previous is the stage before the update.
	UpdatePlantStatus(ctx context.Context, plant Plant, previous PlantStatus) error
}

// NoteStore persists journal notes.
type NoteStore interface {
	CreateNote(ctx context.Context, note Note) error
	ListNotes(ctx context.Context, userID string) ([]Note, error)
}

// TaskCreator is the single write the recurrence scheduler needs.
type TaskCreator interface {
	CreateTask(ctx context.Context, task Task) error
}

// TaskStore persists task occurrences.
type TaskStore interface {
	TaskCreator
	GetTask(ctx context.Context, userID, taskID string) (*Task, error)
	ListTasks(ctx context.Context, userID string) ([]Task, error)
	// MarkTaskCompleted flips a pending task to completed at completedAt.
	MarkTaskCompleted(ctx context.Context, userID, taskID string, completedAt time.Time) (*Task, error)
}

// Store is the document-store client the host application talks to.
type Store interface {
	SpaceStore
	PlantStore
	NoteStore
	TaskStore
}
