// Package memory is an in-process document store for local development and tests.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"example.com/gardenlog/internal/domain"
)

// Store keeps every collection in maps guarded by one RWMutex. Lists come back
// in insertion order, matching the order the Postgres store returns by created_at.
type Store struct {
	mu     sync.RWMutex
	spaces map[string]domain.Space
	plants map[string]domain.Plant
	notes  map[string]domain.Note
	tasks  map[string]domain.Task
	order  map[string][]string
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		spaces: make(map[string]domain.Space),
		plants: make(map[string]domain.Plant),
		notes:  make(map[string]domain.Note),
		tasks:  make(map[string]domain.Task),
		order:  make(map[string][]string),
	}
}

var _ domain.Store = (*Store)(nil)

func (s *Store) track(collection, id string) {
	s.order[collection] = append(s.order[collection], id)
}

// CreateSpace implements domain.SpaceStore.
func (s *Store) CreateSpace(ctx context.Context, space domain.Space) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.spaces[space.ID] = space
	s.track("spaces", space.ID)
	return nil
}

// GetSpace implements domain.SpaceStore.
func (s *Store) GetSpace(ctx context.Context, userID, spaceID string) (*domain.Space, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	space, ok := s.spaces[spaceID]
	if !ok || space.UserID != userID {
		return nil, nil
	}
	space.PlantCount = s.plantCount(space.ID)
	return &space, nil
}

// ListSpaces implements domain.SpaceStore.
func (s *Store) ListSpaces(ctx context.Context, userID string) ([]domain.Space, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Space, 0)
	for _, id := range s.order["spaces"] {
		space := s.spaces[id]
		if space.UserID != userID {
			continue
		}
		space.PlantCount = s.plantCount(space.ID)
		out = append(out, space)
	}
	return out, nil
}

// plantCount counts plants still in the space. Caller holds the lock.
func (s *Store) plantCount(spaceID string) int {
	count := 0
	for _, p := range s.plants {
		if p.SpaceID == spaceID && p.Status != domain.PlantStatusRemoved {
			count++
		}
	}
	return count
}

// CreatePlant implements domain.PlantStore.
func (s *Store) CreatePlant(ctx context.Context, plant domain.Plant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.plants[plant.ID] = clonePlant(plant)
	s.track("plants", plant.ID)
	return nil
}

// GetPlant implements domain.PlantStore.
func (s *Store) GetPlant(ctx context.Context, userID, plantID string) (*domain.Plant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	plant, ok := s.plants[plantID]
	if !ok || plant.UserID != userID {
		return nil, nil
	}
	plant = clonePlant(plant)
	return &plant, nil
}

// ListPlants implements domain.PlantStore.
func (s *Store) ListPlants(ctx context.Context, userID string) ([]domain.Plant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Plant, 0)
	for _, id := range s.order["plants"] {
		if plant := s.plants[id]; plant.UserID == userID {
			out = append(out, clonePlant(plant))
		}
	}
	return out, nil
}

// UpdatePlantStatus implements domain.PlantStore.
func (s *Store) UpdatePlantStatus(ctx context.Context, plant domain.Plant, previous domain.PlantStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.plants[plant.ID]
	if !ok || stored.UserID != plant.UserID {
		return domain.ErrNotFound
	}
	stored.Status = plant.Status
	stored.ActualHarvestDate = cloneTime(plant.ActualHarvestDate)
	stored.UpdatedAt = plant.UpdatedAt
	s.plants[plant.ID] = stored
	return nil
}

// CreateNote implements domain.NoteStore.
func (s *Store) CreateNote(ctx context.Context, note domain.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	note.Photos = slices.Clone(note.Photos)
	s.notes[note.ID] = note
	s.track("notes", note.ID)
	return nil
}

// ListNotes implements domain.NoteStore.
func (s *Store) ListNotes(ctx context.Context, userID string) ([]domain.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Note, 0)
	for _, id := range s.order["notes"] {
		if note := s.notes[id]; note.UserID == userID {
			note.Photos = slices.Clone(note.Photos)
			out = append(out, note)
		}
	}
	return out, nil
}

// CreateTask implements domain.TaskCreator. A reused id yields domain.ErrTaskExists.
func (s *Store) CreateTask(ctx context.Context, task domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[task.ID]; exists {
		return domain.ErrTaskExists
	}
	s.tasks[task.ID] = cloneTask(task)
	s.track("tasks", task.ID)
	return nil
}

// GetTask implements domain.TaskStore.
func (s *Store) GetTask(ctx context.Context, userID, taskID string) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[taskID]
	if !ok || task.UserID != userID {
		return nil, nil
	}
	task = cloneTask(task)
	return &task, nil
}

// ListTasks implements domain.TaskStore.
func (s *Store) ListTasks(ctx context.Context, userID string) ([]domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Task, 0)
	for _, id := range s.order["tasks"] {
		if task := s.tasks[id]; task.UserID == userID {
			out = append(out, cloneTask(task))
		}
	}
	return out, nil
}

// MarkTaskCompleted implements domain.TaskStore. Completed tasks are returned unchanged.
func (s *Store) MarkTaskCompleted(ctx context.Context, userID, taskID string, completedAt time.Time) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[taskID]
	if !ok || task.UserID != userID {
		return nil, domain.ErrNotFound
	}
	if !task.IsCompleted() {
		at := completedAt
		task.Status = domain.TaskStatusCompleted
		task.CompletedAt = &at
		task.UpdatedAt = completedAt
		s.tasks[taskID] = task
	}
	out := cloneTask(task)
	return &out, nil
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func clonePlant(p domain.Plant) domain.Plant {
	p.ExpectedHarvestDate = cloneTime(p.ExpectedHarvestDate)
	p.ActualHarvestDate = cloneTime(p.ActualHarvestDate)
	return p
}

func cloneTask(t domain.Task) domain.Task {
	t.CompletedAt = cloneTime(t.CompletedAt)
	if t.Recurrence != nil {
		r := *t.Recurrence
		r.EndDate = cloneTime(r.EndDate)
		t.Recurrence = &r
	}
	return t
}
