// Package recurrence materializes the next occurrence of a repeating task.
//
// Each occurrence is its own task row. There is no series record and no link
// between occurrences; continuity comes only from the recomputed due date.
package recurrence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"example.com/gardenlog/internal/domain"
)

// ErrTaskNotCompleted is returned when OnTaskCompleted receives a task that is still pending.
var ErrTaskNotCompleted = errors.New("task is not completed")

// successorNamespace scopes deterministic successor ids.
var successorNamespace = uuid.MustParse("6f1c2a52-3f0e-4c1b-9a59-4b7c1f0e2d11")

// Option customises a Scheduler.
type Option func(*Scheduler)

// WithClock overrides the clock used to stamp CreatedAt/UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// Scheduler creates successor tasks through the document store.
type Scheduler struct {
	tasks domain.TaskCreator
	now   func() time.Time
}

// NewScheduler constructs a Scheduler writing through tasks.
func NewScheduler(tasks domain.TaskCreator, opts ...Option) *Scheduler {
	s := &Scheduler{
		tasks: tasks,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnTaskCompleted creates the next occurrence of a completed recurring task.
//
// It returns (nil, nil) when the task does not recur or the series has passed
// its end date. A store failure is returned as is and never retried here; the
// successor id is derived from the completed task, so calling again after a
// failure cannot create a duplicate.
func (s *Scheduler) OnTaskCompleted(ctx context.Context, task domain.Task) (*domain.Task, error) {
	if !task.IsCompleted() {
		return nil, ErrTaskNotCompleted
	}

	successor, ok := s.Successor(task)
	if !ok {
		if task.Recurrence != nil {
			seriesEnded.Inc()
		}
		return nil, nil
	}

	if err := s.tasks.CreateTask(ctx, *successor); err != nil {
		if errors.Is(err, domain.ErrTaskExists) {
			successorReplays.Inc()
			return successor, nil
		}
		successorFailures.Inc()
		return nil, fmt.Errorf("create successor of task %s: %w", task.ID, err)
	}

	successorsCreated.WithLabelValues(string(task.Recurrence.Type)).Inc()
	return successor, nil
}

// Successor builds, without persisting, the next occurrence of task. ok is
// false when the task does not recur or the next due date is past the end date.
func (s *Scheduler) Successor(task domain.Task) (*domain.Task, bool) {
	rule := task.Recurrence
	if rule == nil {
		return nil, false
	}

	next := Advance(task.DueDate, *rule)
	if rule.EndDate != nil && next.After(*rule.EndDate) {
		return nil, false
	}

	now := s.now()
	recurrence := *rule
	if rule.EndDate != nil {
		end := *rule.EndDate
		recurrence.EndDate = &end
	}

	return &domain.Task{
		ID:          SuccessorID(task.ID),
		UserID:      task.UserID,
		PlantID:     task.PlantID,
		SpaceID:     task.SpaceID,
		Title:       task.Title,
		Description: task.Description,
		DueDate:     next,
		Priority:    task.Priority,
		Status:      domain.TaskStatusPending,
		Recurrence:  &recurrence,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, true
}

// Advance moves from by rule.Interval units of rule.Type. Intervals below one
// count as one. An unrecognised type advances by a single day.
func Advance(from time.Time, rule domain.Recurrence) time.Time {
	interval := rule.Interval
	if interval < 1 {
		interval = 1
	}
	switch rule.Type {
	case domain.RecurrenceDaily:
		return from.AddDate(0, 0, interval)
	case domain.RecurrenceWeekly:
		return from.AddDate(0, 0, 7*interval)
	case domain.RecurrenceMonthly:
		return from.AddDate(0, interval, 0)
	default:
		unknownRecurrence.Inc()
		return from.AddDate(0, 0, 1)
	}
}

// SuccessorID is the id given to the occurrence following taskID.
func SuccessorID(taskID string) string {
	return uuid.NewSHA1(successorNamespace, []byte("successor:"+taskID)).String()
}
