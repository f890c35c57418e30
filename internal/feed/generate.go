package feed

import (
	"slices"
	"unicode/utf8"

	"example.com/gardenlog/internal/domain"
)

// PreviewLength is the number of runes of note content kept in a note_created payload.
const PreviewLength = 150

// Filters narrows a generated feed. The zero value keeps everything.
type Filters struct {
	// Types keeps only the listed discriminants when non-empty.
	Types []Type
	// PublicOnly drops activities whose IsPublic flag is false.
	PublicOnly bool
	// PlantID keeps activities attributed to the plant.
	PlantID string
	// SpaceID keeps activities attributed to the space, including those of plants inside it.
	SpaceID string
	// After resumes a previous page; entries up to and including the cursor are dropped.
	After *Cursor
	// Limit caps the result size when positive.
	Limit int
}

// Generate merges the four snapshots into one feed, most recent first.
//
// Records lacking the timestamp their activity needs are skipped. Entries with
// equal timestamps keep input order: notes, tasks, plants, spaces.
func Generate(notes []domain.Note, tasks []domain.Task, plants []domain.Plant, spaces []domain.Space, filters Filters) []Activity {
	idx := newIndex(plants, spaces)

	out := make([]Activity, 0, len(notes)+len(tasks)+2*len(plants)+len(spaces))
	for _, note := range notes {
		if a, ok := fromNote(note, idx); ok {
			out = append(out, a)
		}
	}
	for _, task := range tasks {
		if a, ok := fromTask(task, idx); ok {
			out = append(out, a)
		}
	}
	for _, plant := range plants {
		out = append(out, fromPlant(plant, idx)...)
	}
	for _, space := range spaces {
		if a, ok := fromSpace(space); ok {
			out = append(out, a)
		}
	}

	slices.SortStableFunc(out, func(a, b Activity) int {
		return b.Timestamp.Compare(a.Timestamp)
	})

	return filters.apply(out)
}

func fromNote(note domain.Note, idx index) (Activity, bool) {
	if note.CreatedAt.IsZero() {
		return Activity{}, false
	}
	ref := idx.resolve(note.PlantID, note.SpaceID)
	a := newActivity("note", note.ID, note.UserID, note.CreatedAt, NoteCreated{
		NoteID:     note.ID,
		Preview:    preview(note.Content),
		Category:   note.Category,
		PhotoCount: len(note.Photos),
		PlantID:    ref.plantID,
		PlantName:  ref.plantName,
		SpaceID:    ref.spaceID,
		SpaceName:  ref.spaceName,
	})
	a.IsPublic = ref.public
	return a, true
}

func fromTask(task domain.Task, idx index) (Activity, bool) {
	if !task.IsCompleted() || task.CompletedAt == nil || task.CompletedAt.IsZero() {
		return Activity{}, false
	}
	ref := idx.resolve(task.PlantID, task.SpaceID)
	a := newActivity("task", task.ID, task.UserID, *task.CompletedAt, TaskCompleted{
		TaskID:    task.ID,
		Title:     task.Title,
		Priority:  task.Priority,
		Recurring: task.Recurrence != nil,
		PlantID:   ref.plantID,
		PlantName: ref.plantName,
		SpaceID:   ref.spaceID,
		SpaceName: ref.spaceName,
	})
	a.IsPublic = ref.public
	return a, true
}

func fromPlant(plant domain.Plant, idx index) []Activity {
	if plant.CreatedAt.IsZero() {
		return nil
	}
	ref := idx.resolve("", plant.SpaceID)

	added := newActivity("plant", plant.ID, plant.UserID, plant.CreatedAt, PlantAdded{
		PlantID:   plant.ID,
		PlantName: plant.Name,
		Variety:   plant.Variety,
		Status:    plant.Status,
		SpaceID:   ref.spaceID,
		SpaceName: ref.spaceName,
	})
	added.IsPublic = ref.public
	out := []Activity{added}

	if plant.Status == domain.PlantStatusHarvested && plant.ActualHarvestDate != nil && !plant.ActualHarvestDate.IsZero() {
		harvested := newActivity("harvest", plant.ID, plant.UserID, *plant.ActualHarvestDate, PlantHarvested{
			PlantID:     plant.ID,
			PlantName:   plant.Name,
			Variety:     plant.Variety,
			PlantedDate: plant.PlantedDate,
			SpaceID:     ref.spaceID,
			SpaceName:   ref.spaceName,
		})
		harvested.IsPublic = ref.public
		out = append(out, harvested)
	}
	return out
}

func fromSpace(space domain.Space) (Activity, bool) {
	if space.CreatedAt.IsZero() {
		return Activity{}, false
	}
	a := newActivity("space", space.ID, space.UserID, space.CreatedAt, SpaceCreated{
		SpaceID:   space.ID,
		SpaceName: space.Name,
		SpaceType: space.Type,
	})
	a.IsPublic = space.Public
	return a, true
}

func preview(content string) string {
	if utf8.RuneCountInString(content) <= PreviewLength {
		return content
	}
	runes := []rune(content)
	return string(runes[:PreviewLength]) + "..."
}

type index struct {
	plants map[string]domain.Plant
	spaces map[string]domain.Space
}

type attribution struct {
	plantID   string
	plantName string
	spaceID   string
	spaceName string
	public    bool
}

func newIndex(plants []domain.Plant, spaces []domain.Space) index {
	idx := index{
		plants: make(map[string]domain.Plant, len(plants)),
		spaces: make(map[string]domain.Space, len(spaces)),
	}
	for _, p := range plants {
		idx.plants[p.ID] = p
	}
	for _, s := range spaces {
		idx.spaces[s.ID] = s
	}
	return idx
}

// resolve denormalizes names and fills in the plant's space when only the plant is known.
func (idx index) resolve(plantID, spaceID string) attribution {
	ref := attribution{plantID: plantID, spaceID: spaceID}
	if plantID != "" {
		if plant, ok := idx.plants[plantID]; ok {
			ref.plantName = plant.Name
			if ref.spaceID == "" {
				ref.spaceID = plant.SpaceID
			}
		}
	}
	if ref.spaceID != "" {
		if space, ok := idx.spaces[ref.spaceID]; ok {
			ref.spaceName = space.Name
			ref.public = space.Public
		}
	}
	return ref
}

func (f Filters) apply(in []Activity) []Activity {
	out := in
	if len(f.Types) > 0 {
		out = keep(out, func(a Activity) bool { return slices.Contains(f.Types, a.Type) })
	}
	if f.PublicOnly {
		out = keep(out, func(a Activity) bool { return a.IsPublic })
	}
	if f.PlantID != "" {
		out = keep(out, func(a Activity) bool {
			plantID, _ := attributionOf(a)
			return plantID == f.PlantID
		})
	}
	if f.SpaceID != "" {
		out = keep(out, func(a Activity) bool {
			_, spaceID := attributionOf(a)
			return spaceID == f.SpaceID
		})
	}
	if f.After != nil {
		out = after(out, *f.After)
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

func attributionOf(a Activity) (string, string) {
	if a.Data == nil {
		return "", ""
	}
	return a.Data.Attribution()
}

func keep(in []Activity, pred func(Activity) bool) []Activity {
	out := make([]Activity, 0, len(in))
	for _, a := range in {
		if pred(a) {
			out = append(out, a)
		}
	}
	return out
}

// after drops everything up to and including the cursor entry. When the entry
// is gone (the source record was deleted) it falls back to strictly older timestamps.
func after(in []Activity, c Cursor) []Activity {
	for i, a := range in {
		if a.ID == c.ID {
			return in[i+1:]
		}
	}
	return keep(in, func(a Activity) bool { return a.Timestamp.Before(c.Timestamp) })
}

// NextCursor returns the cursor for the page following page, or nil when page
// was not cut short by limit.
func NextCursor(page []Activity, limit int) *Cursor {
	if limit <= 0 || len(page) < limit || len(page) == 0 {
		return nil
	}
	last := page[len(page)-1]
	return &Cursor{Timestamp: last.Timestamp, ID: last.ID}
}

