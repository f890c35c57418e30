package recurrence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/gardenlog/internal/domain"
)

type recordingCreator struct {
	mu      sync.Mutex
	created map[string]domain.Task
	err     error
	calls   int
}

func newRecordingCreator() *recordingCreator {
	return &recordingCreator{created: make(map[string]domain.Task)}
}

func (c *recordingCreator) CreateTask(_ context.Context, task domain.Task) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return c.err
	}
	if _, ok := c.created[task.ID]; ok {
		return domain.ErrTaskExists
	}
	c.created[task.ID] = task
	return nil
}

var fixedNow = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func completedTask(due time.Time, rule *domain.Recurrence) domain.Task {
	done := due.Add(time.Hour)
	return domain.Task{
		ID:          "task-1",
		UserID:      "user-1",
		PlantID:     "plant-1",
		Title:       "Water basil",
		Description: "Bottom water",
		DueDate:     due,
		Priority:    domain.TaskPriorityHigh,
		Status:      domain.TaskStatusCompleted,
		Recurrence:  rule,
		CompletedAt: &done,
	}
}

func TestOnTaskCompletedWeeklyInterval(t *testing.T) {
	store := newRecordingCreator()
	s := NewScheduler(store, WithClock(func() time.Time { return fixedNow }))

	task := completedTask(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), &domain.Recurrence{Type: domain.RecurrenceWeekly, Interval: 2})
	next, err := s.OnTaskCompleted(context.Background(), task)
	require.NoError(t, err)
	require.NotNil(t, next)

	require.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), next.DueDate)
	require.Equal(t, domain.TaskStatusPending, next.Status)
	require.Nil(t, next.CompletedAt)
	require.Equal(t, SuccessorID(task.ID), next.ID)
	require.Equal(t, task.UserID, next.UserID)
	require.Equal(t, task.PlantID, next.PlantID)
	require.Equal(t, task.Title, next.Title)
	require.Equal(t, task.Description, next.Description)
	require.Equal(t, task.Priority, next.Priority)
	require.Equal(t, *task.Recurrence, *next.Recurrence)
	require.Equal(t, fixedNow, next.CreatedAt)
	require.Equal(t, *next, store.created[next.ID])
}

func TestOnTaskCompletedDaily(t *testing.T) {
	store := newRecordingCreator()
	s := NewScheduler(store)

	next, err := s.OnTaskCompleted(context.Background(), completedTask(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), &domain.Recurrence{Type: domain.RecurrenceDaily, Interval: 1}))
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), next.DueDate)
	require.Equal(t, domain.TaskStatusPending, next.Status)
}

func TestOnTaskCompletedStopsAtEndDate(t *testing.T) {
	store := newRecordingCreator()
	s := NewScheduler(store)

	end := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	next, err := s.OnTaskCompleted(context.Background(), completedTask(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), &domain.Recurrence{Type: domain.RecurrenceWeekly, Interval: 2, EndDate: &end}))
	require.NoError(t, err)
	require.Nil(t, next)
	require.Zero(t, store.calls, "no write once the series has ended")
}

func TestOnTaskCompletedEndDateIsInclusive(t *testing.T) {
	store := newRecordingCreator()
	s := NewScheduler(store)

	end := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	next, err := s.OnTaskCompleted(context.Background(), completedTask(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), &domain.Recurrence{Type: domain.RecurrenceDaily, Interval: 1, EndDate: &end}))
	require.NoError(t, err)
	require.NotNil(t, next)
	require.Equal(t, end, next.DueDate)
}

func TestOnTaskCompletedWithoutRecurrence(t *testing.T) {
	store := newRecordingCreator()
	next, err := NewScheduler(store).OnTaskCompleted(context.Background(), completedTask(time.Now(), nil))
	require.NoError(t, err)
	require.Nil(t, next)
	require.Zero(t, store.calls)
}

func TestOnTaskCompletedRejectsPendingTask(t *testing.T) {
	task := completedTask(time.Now(), &domain.Recurrence{Type: domain.RecurrenceDaily, Interval: 1})
	task.Status = domain.TaskStatusPending

	_, err := NewScheduler(newRecordingCreator()).OnTaskCompleted(context.Background(), task)
	require.ErrorIs(t, err, ErrTaskNotCompleted)
}

func TestOnTaskCompletedPropagatesStoreFailure(t *testing.T) {
	store := newRecordingCreator()
	store.err = errors.New("write refused")
	s := NewScheduler(store)
	task := completedTask(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), &domain.Recurrence{Type: domain.RecurrenceDaily, Interval: 1})

	next, err := s.OnTaskCompleted(context.Background(), task)
	require.Error(t, err)
	require.ErrorIs(t, err, store.err)
	require.Nil(t, next)

	store.err = nil
	next, err = s.OnTaskCompleted(context.Background(), task)
	require.NoError(t, err)
	require.Len(t, store.created, 1)
	require.Equal(t, SuccessorID(task.ID), next.ID)
}

func TestOnTaskCompletedReplayIsNoop(t *testing.T) {
	store := newRecordingCreator()
	s := NewScheduler(store)
	task := completedTask(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), &domain.Recurrence{Type: domain.RecurrenceMonthly, Interval: 1})

	first, err := s.OnTaskCompleted(context.Background(), task)
	require.NoError(t, err)
	second, err := s.OnTaskCompleted(context.Background(), task)
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID)
	require.Len(t, store.created, 1)
	require.Equal(t, 2, store.calls)
}

func TestAdvance(t *testing.T) {
	jan31 := time.Date(2024, 1, 31, 9, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		rule domain.Recurrence
		want time.Time
	}{
		{"daily", domain.Recurrence{Type: domain.RecurrenceDaily, Interval: 3}, time.Date(2024, 2, 3, 9, 0, 0, 0, time.UTC)},
		{"weekly", domain.Recurrence{Type: domain.RecurrenceWeekly, Interval: 1}, time.Date(2024, 2, 7, 9, 0, 0, 0, time.UTC)},
		{"monthly overflows like AddDate", domain.Recurrence{Type: domain.RecurrenceMonthly, Interval: 1}, time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)},
		{"zero interval counts as one", domain.Recurrence{Type: domain.RecurrenceDaily}, time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)},
		{"unknown type advances one day", domain.Recurrence{Type: "fortnightly", Interval: 5}, time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Advance(jan31, tc.rule))
		})
	}
}

func TestSuccessorIDIsDeterministic(t *testing.T) {
	require.Equal(t, SuccessorID("a"), SuccessorID("a"))
	require.NotEqual(t, SuccessorID("a"), SuccessorID("b"))
	require.NotEqual(t, SuccessorID("a"), SuccessorID(SuccessorID("a")))
}
