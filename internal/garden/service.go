// Package garden is the host service: thin CRUD over the document store plus
// the two derived views, the activity feed and recurring task successors.
package garden

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"example.com/gardenlog/internal/cache"
	"example.com/gardenlog/internal/domain"
	"example.com/gardenlog/internal/feed"
	"example.com/gardenlog/internal/observability"
	"example.com/gardenlog/internal/platform/logger"
	"example.com/gardenlog/internal/recurrence"
)

// ErrSuccessorFailed reports that a task was completed but its next occurrence
// could not be stored. Completing the task again retries only the successor.
var ErrSuccessorFailed = errors.New("task completed but next occurrence was not created")

// Option configures optional collaborators of the Service.
type Option func(*Service)

// WithNotifier sets the feed change notifier.
func WithNotifier(n cache.Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithLogger overrides the logger.
func WithLogger(log *logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Service orchestrates garden workflows.
type Service struct {
	store     domain.Store
	scheduler *recurrence.Scheduler
	notifier  cache.Notifier
	log       *logger.Logger
	now       func() time.Time
}

// NewService constructs a Service over store.
func NewService(store domain.Store, opts ...Option) *Service {
	s := &Service{
		store:    store,
		notifier: cache.NoopNotifier{},
		log:      logger.Nop(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.scheduler = recurrence.NewScheduler(store, recurrence.WithClock(s.now))
	return s
}

// CreateSpace stores a new grow space.
func (s *Service) CreateSpace(ctx context.Context, in CreateSpaceInput) (*domain.Space, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	spaceType := in.Type
	if spaceType == "" {
		spaceType = domain.SpaceTypeOther
	}
	space := domain.Space{
		ID:        uuid.NewString(),
		UserID:    in.UserID,
		Name:      in.Name,
		Type:      spaceType,
		Public:    in.Public,
		CreatedAt: s.now(),
	}
	if err := s.store.CreateSpace(ctx, space); err != nil {
		return nil, fmt.Errorf("create space: %w", err)
	}
	s.changed(ctx, in.UserID, "space_created")
	return &space, nil
}

// ListSpaces returns the user's spaces.
func (s *Service) ListSpaces(ctx context.Context, userID string) ([]domain.Space, error) {
	return s.store.ListSpaces(ctx, userID)
}

// CreatePlant stores a new plant inside one of the user's spaces.
func (s *Service) CreatePlant(ctx context.Context, in CreatePlantInput) (*domain.Plant, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := s.requireSpace(ctx, in.UserID, in.SpaceID); err != nil {
		return nil, err
	}

	now := s.now()
	status := in.Status
	if status == "" {
		status = domain.PlantStatusSeedling
	}
	planted := in.PlantedDate
	if planted.IsZero() {
		planted = now
	}
	plant := domain.Plant{
		ID:                  uuid.NewString(),
		UserID:              in.UserID,
		SpaceID:             in.SpaceID,
		Name:                in.Name,
		Variety:             in.Variety,
		PlantedDate:         planted,
		ExpectedHarvestDate: in.ExpectedHarvestDate,
		Status:              status,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if status == domain.PlantStatusHarvested {
		plant.ActualHarvestDate = &now
	}
	if err := s.store.CreatePlant(ctx, plant); err != nil {
		return nil, fmt.Errorf("create plant: %w", err)
	}
	s.changed(ctx, in.UserID, "plant_added")
	return &plant, nil
}

// ListPlants returns the user's plants.
func (s *Service) ListPlants(ctx context.Context, userID string) ([]domain.Plant, error) {
	return s.store.ListPlants(ctx, userID)
}

// UpdatePlantStatus moves a plant to a new growth stage. Harvesting stamps
// ActualHarvestDate with harvestedAt, or now, unless it is already set.
func (s *Service) UpdatePlantStatus(ctx context.Context, userID, plantID string, status domain.PlantStatus, harvestedAt *time.Time) (*domain.Plant, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown plant status %q", domain.ErrInvalidInput, status)
	}
	plant, err := s.store.GetPlant(ctx, userID, plantID)
	if err != nil {
		return nil, err
	}
	if plant == nil {
		return nil, domain.ErrNotFound
	}
	if plant.Status == status && (status != domain.PlantStatusHarvested || plant.ActualHarvestDate != nil) {
		return plant, nil
	}

	previous := plant.Status
	plant.Status = status
	plant.UpdatedAt = s.now()
	if status == domain.PlantStatusHarvested && plant.ActualHarvestDate == nil {
		at := plant.UpdatedAt
		if harvestedAt != nil && !harvestedAt.IsZero() {
			at = harvestedAt.UTC()
		}
		plant.ActualHarvestDate = &at
	}

	if err := s.store.UpdatePlantStatus(ctx, *plant, previous); err != nil {
		return nil, fmt.Errorf("update plant status: %w", err)
	}
	s.changed(ctx, userID, "plant_status_changed")
	return plant, nil
}

// CreateNote stores a journal note.
func (s *Service) CreateNote(ctx context.Context, in CreateNoteInput) (*domain.Note, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := s.requireRefs(ctx, in.UserID, in.PlantID, in.SpaceID); err != nil {
		return nil, err
	}

	now := s.now()
	category := in.Category
	if category == "" {
		category = domain.NoteCategoryGeneral
	}
	ts := in.Timestamp
	if ts.IsZero() {
		ts = now
	}
	photos := in.Photos
	if photos == nil {
		photos = []string{}
	}
	note := domain.Note{
		ID:        uuid.NewString(),
		UserID:    in.UserID,
		PlantID:   in.PlantID,
		SpaceID:   in.SpaceID,
		Content:   in.Content,
		Category:  category,
		Photos:    photos,
		Timestamp: ts,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateNote(ctx, note); err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}
	s.changed(ctx, in.UserID, "note_created")
	return &note, nil
}

// ListNotes returns the user's notes.
func (s *Service) ListNotes(ctx context.Context, userID string) ([]domain.Note, error) {
	return s.store.ListNotes(ctx, userID)
}

// CreateTask stores a pending task occurrence.
func (s *Service) CreateTask(ctx context.Context, in CreateTaskInput) (*domain.Task, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := s.requireRefs(ctx, in.UserID, in.PlantID, in.SpaceID); err != nil {
		return nil, err
	}

	now := s.now()
	priority := in.Priority
	if priority == "" {
		priority = domain.TaskPriorityMedium
	}
	task := domain.Task{
		ID:          uuid.NewString(),
		UserID:      in.UserID,
		PlantID:     in.PlantID,
		SpaceID:     in.SpaceID,
		Title:       in.Title,
		Description: in.Description,
		DueDate:     in.DueDate.UTC(),
		Priority:    priority,
		Status:      domain.TaskStatusPending,
		Recurrence:  in.Recurrence,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return &task, nil
}

// ListTasks returns the user's task occurrences.
func (s *Service) ListTasks(ctx context.Context, userID string) ([]domain.Task, error) {
	return s.store.ListTasks(ctx, userID)
}

// Completion is the outcome of CompleteTask.
type Completion struct {
	Task      domain.Task
	Successor *domain.Task
}

// CompleteTask runs the two-step completion protocol: mark the task completed,
// then ask the scheduler for the next occurrence. Step one is idempotent, so a
// caller that got ErrSuccessorFailed can call again to retry step two only.
func (s *Service) CompleteTask(ctx context.Context, userID, taskID string) (*Completion, error) {
	task, err := s.store.MarkTaskCompleted(ctx, userID, taskID, s.now())
	if err != nil {
		return nil, err
	}
	if task.CompletedAt != nil {
		observability.RecordTaskCompleted(*task.CompletedAt)
	}
	s.changed(ctx, userID, "task_completed")

	result := &Completion{Task: *task}
	successor, err := s.scheduler.OnTaskCompleted(ctx, *task)
	if err != nil {
		s.log.Warn("successor creation failed", "task_id", task.ID, "user_id", userID, "error", err)
		return result, fmt.Errorf("%w: %w", ErrSuccessorFailed, err)
	}
	result.Successor = successor
	if successor != nil {
		s.log.Debug("scheduled next occurrence", "task_id", task.ID, "successor_id", successor.ID, "due_date", successor.DueDate)
	}
	return result, nil
}

// Feed loads the user's four collections and derives the activity feed.
func (s *Service) Feed(ctx context.Context, userID string, filters feed.Filters) ([]feed.Activity, error) {
	start := time.Now()

	notes, err := s.store.ListNotes(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load notes: %w", err)
	}
	tasks, err := s.store.ListTasks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	plants, err := s.store.ListPlants(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load plants: %w", err)
	}
	spaces, err := s.store.ListSpaces(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load spaces: %w", err)
	}

	activities := feed.Generate(notes, tasks, plants, spaces, filters)

	types := make([]string, len(activities))
	for i, a := range activities {
		types[i] = string(a.Type)
	}
	observability.ObserveFeed(time.Since(start), types)
	return activities, nil
}

func (s *Service) requireSpace(ctx context.Context, userID, spaceID string) error {
	space, err := s.store.GetSpace(ctx, userID, spaceID)
	if err != nil {
		return err
	}
	if space == nil {
		return fmt.Errorf("space %s: %w", spaceID, domain.ErrNotFound)
	}
	return nil
}

func (s *Service) requireRefs(ctx context.Context, userID, plantID, spaceID string) error {
	if plantID != "" {
		plant, err := s.store.GetPlant(ctx, userID, plantID)
		if err != nil {
			return err
		}
		if plant == nil {
			return fmt.Errorf("plant %s: %w", plantID, domain.ErrNotFound)
		}
	}
	if spaceID != "" {
		return s.requireSpace(ctx, userID, spaceID)
	}
	return nil
}

func (s *Service) changed(ctx context.Context, userID, reason string) {
	if err := s.notifier.FeedChanged(ctx, userID, reason); err != nil {
		s.log.Warn("feed change notification failed", "user_id", userID, "reason", reason, "error", err)
	}
}
