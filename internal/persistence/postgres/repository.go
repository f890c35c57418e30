// Package postgres is the Postgres-backed document store. Every write records
// its outbox event inside the same transaction.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/gardenlog/internal/domain"
	"example.com/gardenlog/internal/observability"
	"example.com/gardenlog/internal/platform/events"
)

// Repository implements domain.Store on a pgx pool.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ domain.Store = (*Repository)(nil)

// withUser runs fn in a transaction scoped to userID for row level security.
// The transaction commits when fn returns nil.
func (r *Repository) withUser(ctx context.Context, userID string, fn func(tx pgx.Tx) error) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT set_config('app.user_id', $1, true)", userID); err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type scanner interface {
	Scan(dest ...any) error
}

const spaceColumns = `s.space_id, s.user_id, s.name, s.space_type, s.is_public, s.created_at,
        (SELECT COUNT(*) FROM plants p WHERE p.space_id = s.space_id AND p.status <> 'removed')`

func scanSpace(row scanner) (domain.Space, error) {
	var s domain.Space
	err := row.Scan(&s.ID, &s.UserID, &s.Name, &s.Type, &s.Public, &s.CreatedAt, &s.PlantCount)
	return s, err
}

// CreateSpace implements domain.SpaceStore.
func (r *Repository) CreateSpace(ctx context.Context, space domain.Space) error {
	err := r.withUser(ctx, space.UserID, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO spaces (space_id, user_id, name, space_type, is_public, created_at) VALUES ($1,$2,$3,$4,$5,$6)`,
			space.ID, space.UserID, space.Name, space.Type, space.Public, space.CreatedAt,
		); err != nil {
			return err
		}
		return insertOutbox(ctx, tx, outboxRecord{
			UserID:        space.UserID,
			AggregateType: "space",
			AggregateID:   space.ID,
			EventType:     events.TypeSpaceCreated,
			Payload: events.SpaceCreated{
				SpaceID:   space.ID,
				UserID:    space.UserID,
				Name:      space.Name,
				Type:      string(space.Type),
				Public:    space.Public,
				CreatedAt: space.CreatedAt,
			},
		})
	})
	if err != nil {
		return err
	}
	observability.RecordPersisted("spaces", space.CreatedAt)
	return nil
}

// GetSpace implements domain.SpaceStore. A missing space yields (nil, nil).
func (r *Repository) GetSpace(ctx context.Context, userID, spaceID string) (*domain.Space, error) {
	var out *domain.Space
	err := r.withUser(ctx, userID, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `SELECT `+spaceColumns+` FROM spaces s WHERE s.user_id=$1 AND s.space_id=$2`, userID, spaceID)
		space, err := scanSpace(row)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		out = &space
		return nil
	})
	return out, err
}

// ListSpaces implements domain.SpaceStore.
func (r *Repository) ListSpaces(ctx context.Context, userID string) ([]domain.Space, error) {
	out := make([]domain.Space, 0)
	err := r.withUser(ctx, userID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT `+spaceColumns+` FROM spaces s WHERE s.user_id=$1 ORDER BY s.created_at, s.space_id`, userID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			space, err := scanSpace(rows)
			if err != nil {
				return err
			}
			out = append(out, space)
		}
		return rows.Err()
	})
	return out, err
}

const plantColumns = `plant_id, user_id, space_id, name, variety, planted_date, expected_harvest_date, actual_harvest_date, status, created_at, updated_at`

func scanPlant(row scanner) (domain.Plant, error) {
	var p domain.Plant
	err := row.Scan(&p.ID, &p.UserID, &p.SpaceID, &p.Name, &p.Variety, &p.PlantedDate, &p.ExpectedHarvestDate, &p.ActualHarvestDate, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// CreatePlant implements domain.PlantStore.
func (r *Repository) CreatePlant(ctx context.Context, plant domain.Plant) error {
	err := r.withUser(ctx, plant.UserID, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO plants (`+plantColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			plant.ID, plant.UserID, plant.SpaceID, plant.Name, plant.Variety, plant.PlantedDate,
			plant.ExpectedHarvestDate, plant.ActualHarvestDate, plant.Status, plant.CreatedAt, plant.UpdatedAt,
		); err != nil {
			return err
		}
		return insertOutbox(ctx, tx, outboxRecord{
			UserID:        plant.UserID,
			AggregateType: "plant",
			AggregateID:   plant.ID,
			EventType:     events.TypePlantAdded,
			Payload: events.PlantAdded{
				PlantID:     plant.ID,
				UserID:      plant.UserID,
				SpaceID:     plant.SpaceID,
				Name:        plant.Name,
				Variety:     plant.Variety,
				Status:      string(plant.Status),
				PlantedDate: plant.PlantedDate,
				CreatedAt:   plant.CreatedAt,
			},
		})
	})
	if err != nil {
		return err
	}
	observability.RecordPersisted("plants", plant.CreatedAt)
	return nil
}

// GetPlant implements domain.PlantStore. A missing plant yields (nil, nil).
func (r *Repository) GetPlant(ctx context.Context, userID, plantID string) (*domain.Plant, error) {
	var out *domain.Plant
	err := r.withUser(ctx, userID, func(tx pgx.Tx) error {
		plant, err := scanPlant(tx.QueryRow(ctx, `SELECT `+plantColumns+` FROM plants WHERE user_id=$1 AND plant_id=$2`, userID, plantID))
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		out = &plant
		return nil
	})
	return out, err
}

// ListPlants implements domain.PlantStore.
func (r *Repository) ListPlants(ctx context.Context, userID string) ([]domain.Plant, error) {
	out := make([]domain.Plant, 0)
	err := r.withUser(ctx, userID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT `+plantColumns+` FROM plants WHERE user_id=$1 ORDER BY created_at, plant_id`, userID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			plant, err := scanPlant(rows)
			if err != nil {
				return err
			}
			out = append(out, plant)
		}
		return rows.Err()
	})
	return out, err
}

// UpdatePlantStatus implements domain.PlantStore.
func (r *Repository) UpdatePlantStatus(ctx context.Context, plant domain.Plant, previous domain.PlantStatus) error {
	err := r.withUser(ctx, plant.UserID, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE plants SET status=$3, actual_harvest_date=$4, updated_at=$5 WHERE user_id=$1 AND plant_id=$2`,
			plant.UserID, plant.ID, plant.Status, plant.ActualHarvestDate, plant.UpdatedAt,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrNotFound
		}
		return insertOutbox(ctx, tx, outboxRecord{
			UserID:        plant.UserID,
			AggregateType: "plant",
			AggregateID:   plant.ID,
			EventType:     events.TypePlantStatusChanged,
			DedupeSuffix:  string(plant.Status) + "@" + plant.UpdatedAt.UTC().Format(time.RFC3339Nano),
			Payload: events.PlantStatusChanged{
				PlantID:     plant.ID,
				UserID:      plant.UserID,
				SpaceID:     plant.SpaceID,
				From:        string(previous),
				To:          string(plant.Status),
				HarvestedAt: plant.ActualHarvestDate,
				OccurredAt:  plant.UpdatedAt,
			},
		})
	})
	if err != nil {
		return err
	}
	observability.RecordPersisted("plants", plant.UpdatedAt)
	return nil
}

const noteColumns = `note_id, user_id, plant_id, space_id, content, category, photos, note_timestamp, created_at, updated_at`

func scanNote(row scanner) (domain.Note, error) {
	var n domain.Note
	var plantID, spaceID *string
	if err := row.Scan(&n.ID, &n.UserID, &plantID, &spaceID, &n.Content, &n.Category, &n.Photos, &n.Timestamp, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return domain.Note{}, err
	}
	n.PlantID = deref(plantID)
	n.SpaceID = deref(spaceID)
	if n.Photos == nil {
		n.Photos = []string{}
	}
	return n, nil
}

// CreateNote implements domain.NoteStore.
func (r *Repository) CreateNote(ctx context.Context, note domain.Note) error {
	photos := note.Photos
	if photos == nil {
		photos = []string{}
	}
	err := r.withUser(ctx, note.UserID, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO notes (`+noteColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			note.ID, note.UserID, nullIfEmpty(note.PlantID), nullIfEmpty(note.SpaceID), note.Content,
			note.Category, photos, note.Timestamp, note.CreatedAt, note.UpdatedAt,
		); err != nil {
			return err
		}
		return insertOutbox(ctx, tx, outboxRecord{
			UserID:        note.UserID,
			AggregateType: "note",
			AggregateID:   note.ID,
			EventType:     events.TypeNoteCreated,
			Payload: events.NoteCreated{
				NoteID:     note.ID,
				UserID:     note.UserID,
				PlantID:    note.PlantID,
				SpaceID:    note.SpaceID,
				Category:   string(note.Category),
				PhotoCount: len(photos),
				CreatedAt:  note.CreatedAt,
			},
		})
	})
	if err != nil {
		return err
	}
	observability.RecordPersisted("notes", note.CreatedAt)
	return nil
}

// ListNotes implements domain.NoteStore.
func (r *Repository) ListNotes(ctx context.Context, userID string) ([]domain.Note, error) {
	out := make([]domain.Note, 0)
	err := r.withUser(ctx, userID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT `+noteColumns+` FROM notes WHERE user_id=$1 ORDER BY created_at, note_id`, userID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			note, err := scanNote(rows)
			if err != nil {
				return err
			}
			out = append(out, note)
		}
		return rows.Err()
	})
	return out, err
}

const taskColumns = `task_id, user_id, plant_id, space_id, title, description, due_date, priority, status,
        recurrence_type, recurrence_interval, recurrence_end_date, completed_at, created_at, updated_at`

func scanTask(row scanner) (domain.Task, error) {
	var t domain.Task
	var plantID, spaceID, recurrenceType *string
	var interval *int
	var endDate *time.Time
	if err := row.Scan(&t.ID, &t.UserID, &plantID, &spaceID, &t.Title, &t.Description, &t.DueDate, &t.Priority, &t.Status,
		&recurrenceType, &interval, &endDate, &t.CompletedAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return domain.Task{}, err
	}
	t.PlantID = deref(plantID)
	t.SpaceID = deref(spaceID)
	if recurrenceType != nil {
		t.Recurrence = &domain.Recurrence{Type: domain.RecurrenceType(*recurrenceType), EndDate: endDate}
		if interval != nil {
			t.Recurrence.Interval = *interval
		}
	}
	return t, nil
}

func recurrenceArgs(r *domain.Recurrence) (any, any, any) {
	if r == nil {
		return nil, nil, nil
	}
	return string(r.Type), r.Interval, r.EndDate
}

// CreateTask implements domain.TaskCreator. A duplicate id yields domain.ErrTaskExists
// and records no outbox event.
func (r *Repository) CreateTask(ctx context.Context, task domain.Task) error {
	rType, rInterval, rEnd := recurrenceArgs(task.Recurrence)
	err := r.withUser(ctx, task.UserID, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`INSERT INTO tasks (`+taskColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
             ON CONFLICT (task_id) DO NOTHING`,
			task.ID, task.UserID, nullIfEmpty(task.PlantID), nullIfEmpty(task.SpaceID), task.Title, task.Description,
			task.DueDate, task.Priority, task.Status, rType, rInterval, rEnd, task.CompletedAt, task.CreatedAt, task.UpdatedAt,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrTaskExists
		}
		return insertOutbox(ctx, tx, outboxRecord{
			UserID:        task.UserID,
			AggregateType: "task",
			AggregateID:   task.ID,
			EventType:     events.TypeTaskCreated,
			Payload:       events.TaskCreated{TaskSnapshot: snapshot(task), CreatedAt: task.CreatedAt},
		})
	})
	if err != nil {
		return err
	}
	observability.RecordPersisted("tasks", task.CreatedAt)
	return nil
}

// GetTask implements domain.TaskStore. A missing task yields (nil, nil).
func (r *Repository) GetTask(ctx context.Context, userID, taskID string) (*domain.Task, error) {
	var out *domain.Task
	err := r.withUser(ctx, userID, func(tx pgx.Tx) error {
		task, err := scanTask(tx.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE user_id=$1 AND task_id=$2`, userID, taskID))
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		out = &task
		return nil
	})
	return out, err
}

// ListTasks implements domain.TaskStore.
func (r *Repository) ListTasks(ctx context.Context, userID string) ([]domain.Task, error) {
	out := make([]domain.Task, 0)
	err := r.withUser(ctx, userID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT `+taskColumns+` FROM tasks WHERE user_id=$1 ORDER BY created_at, task_id`, userID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			task, err := scanTask(rows)
			if err != nil {
				return err
			}
			out = append(out, task)
		}
		return rows.Err()
	})
	return out, err
}

// MarkTaskCompleted implements domain.TaskStore. Only a pending to completed
// transition writes and emits task.completed; an already completed task is
// returned as stored.
func (r *Repository) MarkTaskCompleted(ctx context.Context, userID, taskID string, completedAt time.Time) (*domain.Task, error) {
	var out *domain.Task
	transitioned := false
	err := r.withUser(ctx, userID, func(tx pgx.Tx) error {
		task, err := scanTask(tx.QueryRow(ctx,
			`UPDATE tasks SET status='completed', completed_at=$3, updated_at=$3
              WHERE user_id=$1 AND task_id=$2 AND status='pending'
          RETURNING `+taskColumns,
			userID, taskID, completedAt,
		))
		if errors.Is(err, pgx.ErrNoRows) {
			existing, getErr := scanTask(tx.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE user_id=$1 AND task_id=$2`, userID, taskID))
			if errors.Is(getErr, pgx.ErrNoRows) {
				return domain.ErrNotFound
			}
			if getErr != nil {
				return getErr
			}
			out = &existing
			return nil
		}
		if err != nil {
			return err
		}
		out = &task
		transitioned = true
		return insertOutbox(ctx, tx, outboxRecord{
			UserID:        userID,
			AggregateType: "task",
			AggregateID:   task.ID,
			EventType:     events.TypeTaskCompleted,
			Payload:       events.TaskCompleted{TaskSnapshot: snapshot(task), OccurredAt: completedAt},
		})
	})
	if err != nil {
		return nil, err
	}
	if transitioned {
		observability.RecordPersisted("tasks", completedAt)
	}
	return out, nil
}

func snapshot(t domain.Task) events.TaskSnapshot {
	s := events.TaskSnapshot{
		TaskID:      t.ID,
		UserID:      t.UserID,
		PlantID:     t.PlantID,
		SpaceID:     t.SpaceID,
		Title:       t.Title,
		Description: t.Description,
		DueDate:     t.DueDate,
		Priority:    string(t.Priority),
		Status:      string(t.Status),
		CompletedAt: t.CompletedAt,
	}
	if t.Recurrence != nil {
		s.Recurrence = &events.Recurrence{
			Type:     string(t.Recurrence.Type),
			Interval: t.Recurrence.Interval,
			EndDate:  t.Recurrence.EndDate,
		}
	}
	return s
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
