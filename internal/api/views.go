package api

import (
	"time"

	"example.com/gardenlog/internal/domain"
	"example.com/gardenlog/internal/feed"
)

// CreateSpaceRequest is the payload for POST /v1/spaces.
type CreateSpaceRequest struct {
	Name   string           `json:"name"`
	Type   domain.SpaceType `json:"type"`
	Public bool             `json:"public"`
}

// CreatePlantRequest is the payload for POST /v1/plants.
type CreatePlantRequest struct {
	SpaceID             string             `json:"space_id"`
	Name                string             `json:"name"`
	Variety             string             `json:"variety"`
	PlantedDate         time.Time          `json:"planted_date"`
	ExpectedHarvestDate *time.Time         `json:"expected_harvest_date"`
	Status              domain.PlantStatus `json:"status"`
}

// UpdatePlantStatusRequest is the payload for PATCH /v1/plants/{id}.
type UpdatePlantStatusRequest struct {
	Status      domain.PlantStatus `json:"status"`
	HarvestedAt *time.Time         `json:"harvested_at"`
}

// CreateNoteRequest is the payload for POST /v1/notes.
type CreateNoteRequest struct {
	PlantID   string              `json:"plant_id"`
	SpaceID   string              `json:"space_id"`
	Content   string              `json:"content"`
	Category  domain.NoteCategory `json:"category"`
	Photos    []string            `json:"photos"`
	Timestamp time.Time           `json:"timestamp"`
}

// CreateTaskRequest is the payload for POST /v1/tasks.
type CreateTaskRequest struct {
	PlantID     string              `json:"plant_id"`
	SpaceID     string              `json:"space_id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	DueDate     time.Time           `json:"due_date"`
	Priority    domain.TaskPriority `json:"priority"`
	Recurrence  *domain.Recurrence  `json:"recurrence"`
}

// CompleteTaskResponse reports the completed task and its scheduled successor, if any.
type CompleteTaskResponse struct {
	Task      domain.Task  `json:"task"`
	Successor *domain.Task `json:"successor,omitempty"`
	Error     string       `json:"type,omitempty"`
	Detail    string       `json:"detail,omitempty"`
}

// ListResponse wraps collection reads.
type ListResponse[T any] struct {
	Items []T `json:"items"`
}

// ActivityView is one rendered feed entry.
type ActivityView struct {
	ID          string       `json:"id"`
	Type        feed.Type    `json:"type"`
	UserID      string       `json:"user_id"`
	Timestamp   time.Time    `json:"timestamp"`
	IsPublic    bool         `json:"is_public"`
	Description string       `json:"description"`
	Icon        feed.IconKey `json:"icon"`
	Data        feed.Data    `json:"data"`
}

// FeedResponse packages a feed page.
type FeedResponse struct {
	Items      []ActivityView `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

func toActivityView(a feed.Activity) ActivityView {
	return ActivityView{
		ID:          a.ID,
		Type:        a.Type,
		UserID:      a.UserID,
		Timestamp:   a.Timestamp,
		IsPublic:    a.IsPublic,
		Description: feed.FormatDescription(a),
		Icon:        feed.Icon(a.Type),
		Data:        a.Data,
	}
}
