package garden

import (
	"fmt"
	"strings"
	"time"

	"example.com/gardenlog/internal/domain"
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidInput, fmt.Sprintf(format, args...))
}

// CreateSpaceInput captures a new grow space.
type CreateSpaceInput struct {
	UserID string
	Name   string
	Type   domain.SpaceType
	Public bool
}

// Validate checks required fields.
func (in CreateSpaceInput) Validate() error {
	if domain.Blank(in.UserID) {
		return invalid("user_id is required")
	}
	if domain.Blank(in.Name) {
		return invalid("name is required")
	}
	if in.Type != "" && !in.Type.Valid() {
		return invalid("unknown space type %q", in.Type)
	}
	return nil
}

// CreatePlantInput captures a new plant.
type CreatePlantInput struct {
	UserID              string
	SpaceID             string
	Name                string
	Variety             string
	PlantedDate         time.Time
	ExpectedHarvestDate *time.Time
	Status              domain.PlantStatus
}

// Validate checks required fields.
func (in CreatePlantInput) Validate() error {
	if domain.Blank(in.UserID) {
		return invalid("user_id is required")
	}
	if domain.Blank(in.SpaceID) {
		return invalid("space_id is required")
	}
	if domain.Blank(in.Name) {
		return invalid("name is required")
	}
	if in.Status != "" && !in.Status.Valid() {
		return invalid("unknown plant status %q", in.Status)
	}
	if in.ExpectedHarvestDate != nil && !in.PlantedDate.IsZero() && in.ExpectedHarvestDate.Before(in.PlantedDate) {
		return invalid("expected_harvest_date must not precede planted_date")
	}
	return nil
}

// CreateNoteInput captures a journal note.
type CreateNoteInput struct {
	UserID    string
	PlantID   string
	SpaceID   string
	Content   string
	Category  domain.NoteCategory
	Photos    []string
	Timestamp time.Time
}

// Validate checks required fields.
func (in CreateNoteInput) Validate() error {
	if domain.Blank(in.UserID) {
		return invalid("user_id is required")
	}
	if domain.Blank(in.Content) && len(in.Photos) == 0 {
		return invalid("content or photos are required")
	}
	if in.Category != "" && !in.Category.Valid() {
		return invalid("unknown note category %q", in.Category)
	}
	for _, photo := range in.Photos {
		if !strings.HasPrefix(photo, "https://") && !strings.HasPrefix(photo, "http://") {
			return invalid("photo %q is not an http(s) url", photo)
		}
	}
	return nil
}

// CreateTaskInput captures a task occurrence.
type CreateTaskInput struct {
	UserID      string
	PlantID     string
	SpaceID     string
	Title       string
	Description string
	DueDate     time.Time
	Priority    domain.TaskPriority
	Recurrence  *domain.Recurrence
}

// Validate checks required fields and the recurrence rule.
func (in CreateTaskInput) Validate() error {
	if domain.Blank(in.UserID) {
		return invalid("user_id is required")
	}
	if domain.Blank(in.Title) {
		return invalid("title is required")
	}
	if in.DueDate.IsZero() {
		return invalid("due_date is required")
	}
	if in.Priority != "" && !in.Priority.Valid() {
		return invalid("unknown priority %q", in.Priority)
	}
	if r := in.Recurrence; r != nil {
		if !r.Type.Valid() {
			return invalid("unknown recurrence type %q", r.Type)
		}
		if r.Interval < 1 {
			return invalid("recurrence interval must be >= 1")
		}
		if r.EndDate != nil && r.EndDate.Before(in.DueDate) {
			return invalid("recurrence end_date must not precede due_date")
		}
	}
	return nil
}
