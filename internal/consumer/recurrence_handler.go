package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"example.com/gardenlog/internal/domain"
	"example.com/gardenlog/internal/platform/events"
	"example.com/gardenlog/internal/platform/logger"
)

// SuccessorScheduler is the part of the recurrence scheduler the handler needs.
type SuccessorScheduler interface {
	OnTaskCompleted(context.Context, domain.Task) (*domain.Task, error)
}

// RecurrenceHandler replays task.completed events through the scheduler, so an
// occurrence lost to a failed write during completion is still created. Replays
// of an already created successor are no-ops.
type RecurrenceHandler struct {
	scheduler SuccessorScheduler
	log       *logger.Logger
}

// NewRecurrenceHandler constructs a RecurrenceHandler.
func NewRecurrenceHandler(scheduler SuccessorScheduler, log *logger.Logger) *RecurrenceHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &RecurrenceHandler{scheduler: scheduler, log: log}
}

// Handle implements Handler. Events other than task.completed are ignored.
func (h *RecurrenceHandler) Handle(ctx context.Context, msg Message) error {
	if msg.EventType != events.TypeTaskCompleted {
		return nil
	}

	var event events.TaskCompleted
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return fmt.Errorf("decode %s: %w", msg.EventType, err)
	}
	if event.Recurrence == nil {
		return nil
	}

	successor, err := h.scheduler.OnTaskCompleted(ctx, taskFromSnapshot(event.TaskSnapshot))
	if err != nil {
		return err
	}
	if successor != nil {
		h.log.Debug("replayed successor", "task_id", event.TaskID, "successor_id", successor.ID, "due_date", successor.DueDate)
	}
	return nil
}

func taskFromSnapshot(s events.TaskSnapshot) domain.Task {
	task := domain.Task{
		ID:          s.TaskID,
		UserID:      s.UserID,
		PlantID:     s.PlantID,
		SpaceID:     s.SpaceID,
		Title:       s.Title,
		Description: s.Description,
		DueDate:     s.DueDate,
		Priority:    domain.TaskPriority(s.Priority),
		Status:      domain.TaskStatus(s.Status),
		CompletedAt: s.CompletedAt,
	}
	if s.Recurrence != nil {
		task.Recurrence = &domain.Recurrence{
			Type:     domain.RecurrenceType(s.Recurrence.Type),
			Interval: s.Recurrence.Interval,
			EndDate:  s.Recurrence.EndDate,
		}
	}
	return task
}
