// Package feed synthesizes the garden activity feed from independent source records.
//
// Activities are never stored. Every call to Generate recomputes them from the
// snapshots it is given, and ids are derived from the source record so repeated
// calls over unchanged input return identical output.
package feed

import (
	"encoding/json"
	"time"

	"example.com/gardenlog/internal/domain"
)

// Type is the activity discriminant.
type Type string

const (
	TypeNoteCreated        Type = "note_created"
	TypeTaskCompleted      Type = "task_completed"
	TypePlantAdded         Type = "plant_added"
	TypePlantHarvested     Type = "plant_harvested"
	TypePlantStatusChanged Type = "plant_status_changed"
	TypeSpaceCreated       Type = "space_created"
)

// Types lists every known discriminant in display order.
var Types = []Type{
	TypeNoteCreated,
	TypeTaskCompleted,
	TypePlantAdded,
	TypePlantHarvested,
	TypePlantStatusChanged,
	TypeSpaceCreated,
}

// Valid reports whether t is a known discriminant.
func (t Type) Valid() bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}

// Data is the variant payload of an Activity. The set of implementations is closed.
type Data interface {
	activityType() Type
	// Attribution returns the plant and space the activity belongs to, either may be empty.
	Attribution() (plantID, spaceID string)
}

// Activity is one feed entry. Type always matches the concrete Data variant.
type Activity struct {
	ID        string
	UserID    string
	Type      Type
	Timestamp time.Time
	IsPublic  bool
	Data      Data
}

func newActivity(prefix, sourceID, userID string, ts time.Time, data Data) Activity {
	return Activity{
		ID:        prefix + "-" + sourceID,
		UserID:    userID,
		Type:      data.activityType(),
		Timestamp: ts,
		Data:      data,
	}
}

// NoteCreated is the payload of a note_created activity.
type NoteCreated struct {
	NoteID     string              `json:"note_id"`
	Preview    string              `json:"preview"`
	Category   domain.NoteCategory `json:"category"`
	PhotoCount int                 `json:"photo_count"`
	PlantID    string              `json:"plant_id,omitempty"`
	PlantName  string              `json:"plant_name,omitempty"`
	SpaceID    string              `json:"space_id,omitempty"`
	SpaceName  string              `json:"space_name,omitempty"`
}

func (NoteCreated) activityType() Type { return TypeNoteCreated }

// Attribution implements Data.
func (d NoteCreated) Attribution() (string, string) { return d.PlantID, d.SpaceID }

// TaskCompleted is the payload of a task_completed activity.
type TaskCompleted struct {
	TaskID    string              `json:"task_id"`
	Title     string              `json:"title"`
	Priority  domain.TaskPriority `json:"priority"`
	Recurring bool                `json:"recurring"`
	PlantID   string              `json:"plant_id,omitempty"`
	PlantName string              `json:"plant_name,omitempty"`
	SpaceID   string              `json:"space_id,omitempty"`
	SpaceName string              `json:"space_name,omitempty"`
}

func (TaskCompleted) activityType() Type { return TypeTaskCompleted }

// Attribution implements Data.
func (d TaskCompleted) Attribution() (string, string) { return d.PlantID, d.SpaceID }

// PlantAdded is the payload of a plant_added activity.
type PlantAdded struct {
	PlantID   string             `json:"plant_id"`
	PlantName string             `json:"plant_name"`
	Variety   string             `json:"variety,omitempty"`
	Status    domain.PlantStatus `json:"status"`
	SpaceID   string             `json:"space_id,omitempty"`
	SpaceName string             `json:"space_name,omitempty"`
}

func (PlantAdded) activityType() Type { return TypePlantAdded }

// Attribution implements Data.
func (d PlantAdded) Attribution() (string, string) { return d.PlantID, d.SpaceID }

// PlantHarvested is the payload of a plant_harvested activity.
type PlantHarvested struct {
	PlantID     string    `json:"plant_id"`
	PlantName   string    `json:"plant_name"`
	Variety     string    `json:"variety,omitempty"`
	PlantedDate time.Time `json:"planted_date"`
	SpaceID     string    `json:"space_id,omitempty"`
	SpaceName   string    `json:"space_name,omitempty"`
}

func (PlantHarvested) activityType() Type { return TypePlantHarvested }

// Attribution implements Data.
func (d PlantHarvested) Attribution() (string, string) { return d.PlantID, d.SpaceID }

// DaysToHarvest is the whole number of days between planting and harvest, or -1 when unknown.
func (d PlantHarvested) DaysToHarvest(harvestedAt time.Time) int {
	if d.PlantedDate.IsZero() || harvestedAt.Before(d.PlantedDate) {
		return -1
	}
	return int(harvestedAt.Sub(d.PlantedDate).Hours() / 24)
}

// PlantStatusChanged is the payload of a plant_status_changed activity. Generate
// does not emit it because plants carry no status history; it exists so the
// event stream and the feed share one vocabulary.
type PlantStatusChanged struct {
	PlantID   string             `json:"plant_id"`
	PlantName string             `json:"plant_name"`
	From      domain.PlantStatus `json:"from"`
	To        domain.PlantStatus `json:"to"`
	SpaceID   string             `json:"space_id,omitempty"`
	SpaceName string             `json:"space_name,omitempty"`
}

func (PlantStatusChanged) activityType() Type { return TypePlantStatusChanged }

// Attribution implements Data.
func (d PlantStatusChanged) Attribution() (string, string) { return d.PlantID, d.SpaceID }

// SpaceCreated is the payload of a space_created activity.
type SpaceCreated struct {
	SpaceID   string           `json:"space_id"`
	SpaceName string           `json:"space_name"`
	SpaceType domain.SpaceType `json:"space_type"`
}

func (SpaceCreated) activityType() Type { return TypeSpaceCreated }

// Attribution implements Data.
func (d SpaceCreated) Attribution() (string, string) { return "", d.SpaceID }

type activityJSON struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Type      Type            `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	IsPublic  bool            `json:"is_public"`
	Data      json.RawMessage `json:"data"`
}

// MarshalJSON flattens the variant into a {type, data} envelope.
func (a Activity) MarshalJSON() ([]byte, error) {
	var data []byte
	var err error
	if a.Data == nil {
		data = []byte("null")
	} else if data, err = json.Marshal(a.Data); err != nil {
		return nil, err
	}
	return json.Marshal(activityJSON{
		ID:        a.ID,
		UserID:    a.UserID,
		Type:      a.Type,
		Timestamp: a.Timestamp,
		IsPublic:  a.IsPublic,
		Data:      data,
	})
}

// UnmarshalJSON decodes the envelope, picking the payload type from the discriminant.
func (a *Activity) UnmarshalJSON(b []byte) error {
	var raw activityJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	data, err := decodeData(raw.Type, raw.Data)
	if err != nil {
		return err
	}
	*a = Activity{
		ID:        raw.ID,
		UserID:    raw.UserID,
		Type:      raw.Type,
		Timestamp: raw.Timestamp,
		IsPublic:  raw.IsPublic,
		Data:      data,
	}
	return nil
}

func decodeData(t Type, raw json.RawMessage) (Data, error) {
	var target Data
	switch t {
	case TypeNoteCreated:
		target = &NoteCreated{}
	case TypeTaskCompleted:
		target = &TaskCompleted{}
	case TypePlantAdded:
		target = &PlantAdded{}
	case TypePlantHarvested:
		target = &PlantHarvested{}
	case TypePlantStatusChanged:
		target = &PlantStatusChanged{}
	case TypeSpaceCreated:
		target = &SpaceCreated{}
	default:
		// Unknown kinds keep their envelope; Icon and FormatDescription degrade on them.
		return nil, nil
	}
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, target); err != nil {
			return nil, err
		}
	}
	return deref(target), nil
}

func deref(d Data) Data {
	switch v := d.(type) {
	case *NoteCreated:
		return *v
	case *TaskCompleted:
		return *v
	case *PlantAdded:
		return *v
	case *PlantHarvested:
		return *v
	case *PlantStatusChanged:
		return *v
	case *SpaceCreated:
		return *v
	}
	return d
}
