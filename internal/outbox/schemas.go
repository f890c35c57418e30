package outbox

import "example.com/gardenlog/internal/platform/events"

// SchemaCatalogEntry maps event type to schema definition.
type SchemaCatalogEntry struct {
	Schema string
}

var schemaCatalog = map[string]SchemaCatalogEntry{
	events.TypeSpaceCreated:       {Schema: spaceCreatedSchema},
	events.TypePlantAdded:         {Schema: plantAddedSchema},
	events.TypePlantStatusChanged: {Schema: plantStatusChangedSchema},
	events.TypeNoteCreated:        {Schema: noteCreatedSchema},
	events.TypeTaskCreated:        {Schema: taskCreatedSchema},
	events.TypeTaskCompleted:      {Schema: taskCompletedSchema},
}

const spaceCreatedSchema = `{
  "type": "object",
  "title": "SpaceCreated",
  "properties": {
    "space_id": {"type": "string"},
    "user_id": {"type": "string"},
    "name": {"type": "string"},
    "type": {"type": "string"},
    "public": {"type": "boolean"},
    "created_at": {"type": "string", "format": "date-time"}
  },
  "required": ["space_id", "user_id", "name", "type", "public", "created_at"],
  "additionalProperties": false
}`

const plantAddedSchema = `{
  "type": "object",
  "title": "PlantAdded",
  "properties": {
    "plant_id": {"type": "string"},
    "user_id": {"type": "string"},
    "space_id": {"type": "string"},
    "name": {"type": "string"},
    "variety": {"type": "string"},
    "status": {"type": "string"},
    "planted_date": {"type": "string", "format": "date-time"},
    "created_at": {"type": "string", "format": "date-time"}
  },
  "required": ["plant_id", "user_id", "space_id", "name", "status", "planted_date", "created_at"],
  "additionalProperties": false
}`

const plantStatusChangedSchema = `{
  "type": "object",
  "title": "PlantStatusChanged",
  "properties": {
    "plant_id": {"type": "string"},
    "user_id": {"type": "string"},
    "space_id": {"type": "string"},
    "from": {"type": "string"},
    "to": {"type": "string"},
    "harvested_at": {"type": "string", "format": "date-time"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["plant_id", "user_id", "space_id", "from", "to", "occurred_at"],
  "additionalProperties": false
}`

const noteCreatedSchema = `{
  "type": "object",
  "title": "NoteCreated",
  "properties": {
    "note_id": {"type": "string"},
    "user_id": {"type": "string"},
    "plant_id": {"type": "string"},
    "space_id": {"type": "string"},
    "category": {"type": "string"},
    "photo_count": {"type": "integer"},
    "created_at": {"type": "string", "format": "date-time"}
  },
  "required": ["note_id", "user_id", "category", "photo_count", "created_at"],
  "additionalProperties": false
}`

const taskProperties = `
    "task_id": {"type": "string"},
    "user_id": {"type": "string"},
    "plant_id": {"type": "string"},
    "space_id": {"type": "string"},
    "title": {"type": "string"},
    "description": {"type": "string"},
    "due_date": {"type": "string", "format": "date-time"},
    "priority": {"type": "string"},
    "status": {"type": "string"},
    "recurrence": {
      "type": "object",
      "properties": {
        "type": {"type": "string", "enum": ["daily", "weekly", "monthly"]},
        "interval": {"type": "integer", "minimum": 1},
        "end_date": {"type": "string", "format": "date-time"}
      },
      "required": ["type", "interval"]
    },
    "completed_at": {"type": "string", "format": "date-time"},`

const taskCreatedSchema = `{
  "type": "object",
  "title": "TaskCreated",
  "properties": {` + taskProperties + `
    "created_at": {"type": "string", "format": "date-time"}
  },
  "required": ["task_id", "user_id", "title", "due_date", "priority", "status", "created_at"],
  "additionalProperties": false
}`

const taskCompletedSchema = `{
  "type": "object",
  "title": "TaskCompleted",
  "properties": {` + taskProperties + `
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["task_id", "user_id", "title", "due_date", "priority", "status", "completed_at", "occurred_at"],
  "additionalProperties": false
}`
