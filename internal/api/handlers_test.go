package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/gardenlog/internal/auth"
	"example.com/gardenlog/internal/domain"
	"example.com/gardenlog/internal/garden"
	"example.com/gardenlog/internal/persistence/memory"
	"example.com/gardenlog/internal/recurrence"
)

const testSecret = "test-secret"

type fixture struct {
	mux   http.Handler
	store *memory.Store
	clock *time.Time
}

func newFixture(t *testing.T, store domain.Store) *fixture {
	t.Helper()
	mem, _ := store.(*memory.Store)
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	f := &fixture{store: mem, clock: &now}

	service := garden.NewService(store, garden.WithClock(func() time.Time { return *f.clock }))
	mux := http.NewServeMux()
	NewHandler(service, nil).RegisterRoutes(mux)
	f.mux = auth.NewMiddleware(auth.Config{Secret: testSecret}).Wrap(mux)
	return f
}

func (f *fixture) tick(d time.Duration) { *f.clock = f.clock.Add(d) }

func (f *fixture) do(t *testing.T, method, path string, body any, scopes ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if scopes != nil {
		token, err := auth.Sign(auth.Config{Secret: testSecret}, "user-1", scopes, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	f.mux.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

var write = []string{auth.ScopeGardenWrite}

func TestFeedEndToEnd(t *testing.T) {
	f := newFixture(t, memory.NewStore())

	rr := f.do(t, http.MethodPost, "/v1/spaces", CreateSpaceRequest{Name: "Tent A", Type: domain.SpaceTypeTent, Public: true}, write...)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	space := decode[domain.Space](t, rr)

	f.tick(time.Hour)
	rr = f.do(t, http.MethodPost, "/v1/plants", CreatePlantRequest{SpaceID: space.ID, Name: "Basil", Variety: "Genovese"}, write...)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	plant := decode[domain.Plant](t, rr)

	f.tick(time.Hour)
	rr = f.do(t, http.MethodPost, "/v1/notes", CreateNoteRequest{PlantID: plant.ID, Content: "First true leaves", Category: domain.NoteCategoryObservation}, write...)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = f.do(t, http.MethodGet, "/v1/feed", nil, auth.ScopeGardenRead)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resp := decode[FeedResponse](t, rr)
	require.Len(t, resp.Items, 3)
	require.Equal(t, "Added an observation note for Basil", resp.Items[0].Description)
	require.Equal(t, "note", string(resp.Items[0].Icon))
	require.True(t, resp.Items[0].IsPublic)
	require.Equal(t, "Added Basil (Genovese) to Tent A", resp.Items[1].Description)
	require.Equal(t, "Created tent Tent A", resp.Items[2].Description)
	require.Empty(t, resp.NextCursor)

	rr = f.do(t, http.MethodGet, "/v1/feed?types=plant_added,space_created&limit=1", nil, auth.ScopeGardenRead)
	require.Equal(t, http.StatusOK, rr.Code)
	page := decode[FeedResponse](t, rr)
	require.Len(t, page.Items, 1)
	require.Equal(t, "plant_added", string(page.Items[0].Type))
	require.NotEmpty(t, page.NextCursor)

	rr = f.do(t, http.MethodGet, "/v1/feed?types=plant_added,space_created&limit=1&cursor="+page.NextCursor, nil, auth.ScopeGardenRead)
	require.Equal(t, http.StatusOK, rr.Code)
	page = decode[FeedResponse](t, rr)
	require.Len(t, page.Items, 1)
	require.Equal(t, "space_created", string(page.Items[0].Type))
}

func TestFeedRejectsBadQuery(t *testing.T) {
	f := newFixture(t, memory.NewStore())

	for _, query := range []string{"types=bogus", "public_only=maybe", "cursor=not-a-cursor!"} {
		rr := f.do(t, http.MethodGet, "/v1/feed?"+query, nil, auth.ScopeGardenRead)
		require.Equalf(t, http.StatusBadRequest, rr.Code, "query %s", query)
	}
}

func TestAuthAndScopes(t *testing.T) {
	f := newFixture(t, memory.NewStore())

	rr := f.do(t, http.MethodGet, "/v1/feed", nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = f.do(t, http.MethodPost, "/v1/spaces", CreateSpaceRequest{Name: "Bed"}, auth.ScopeGardenRead)
	require.Equal(t, http.StatusForbidden, rr.Code)

	rr = f.do(t, http.MethodGet, "/v1/spaces", nil, auth.ScopeGardenWrite)
	require.Equal(t, http.StatusOK, rr.Code, "write scope implies read")

	rr = f.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestCreateValidationAndReferences(t *testing.T) {
	f := newFixture(t, memory.NewStore())

	rr := f.do(t, http.MethodPost, "/v1/spaces", CreateSpaceRequest{Name: " "}, write...)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "validation_failed", decode[map[string]string](t, rr)["type"])

	rr = f.do(t, http.MethodPost, "/v1/plants", CreatePlantRequest{SpaceID: "missing", Name: "Basil"}, write...)
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = f.do(t, http.MethodPost, "/v1/tasks", CreateTaskRequest{
		Title:      "Water",
		DueDate:    time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		Recurrence: &domain.Recurrence{Type: "hourly", Interval: 1},
	}, write...)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	req := httptest.NewRequest(http.MethodPost, "/v1/notes", bytes.NewBufferString("{"))
	token, err := auth.Sign(auth.Config{Secret: testSecret}, "user-1", write, time.Hour)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCompleteRecurringTask(t *testing.T) {
	f := newFixture(t, memory.NewStore())

	rr := f.do(t, http.MethodPost, "/v1/tasks", CreateTaskRequest{
		Title:      "Water basil",
		DueDate:    time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		Recurrence: &domain.Recurrence{Type: domain.RecurrenceDaily, Interval: 1},
	}, write...)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	task := decode[domain.Task](t, rr)

	f.tick(time.Hour)
	rr = f.do(t, http.MethodPost, "/v1/tasks/"+task.ID+"/complete", nil, write...)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resp := decode[CompleteTaskResponse](t, rr)
	require.True(t, resp.Task.IsCompleted())
	require.NotNil(t, resp.Successor)
	require.Equal(t, time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC), resp.Successor.DueDate)
	require.Equal(t, domain.TaskStatusPending, resp.Successor.Status)

	rr = f.do(t, http.MethodGet, "/v1/feed?types=task_completed", nil, auth.ScopeGardenRead)
	feedResp := decode[FeedResponse](t, rr)
	require.Len(t, feedResp.Items, 1)
	require.Equal(t, `Completed task "Water basil"`, feedResp.Items[0].Description)

	rr = f.do(t, http.MethodPost, "/v1/tasks/missing/complete", nil, write...)
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = f.do(t, http.MethodPost, "/v1/tasks/"+task.ID+"/skip", nil, write...)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCompleteTaskReportsSuccessorFailure(t *testing.T) {
	store := &flakyStore{Store: memory.NewStore(), failCreate: true}
	f := newFixture(t, store)

	task := domain.Task{
		ID: "task-1", UserID: "user-1", Title: "Feed", Priority: domain.TaskPriorityLow, Status: domain.TaskStatusPending,
		DueDate:    time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		Recurrence: &domain.Recurrence{Type: domain.RecurrenceWeekly, Interval: 2},
	}
	require.NoError(t, store.Store.CreateTask(context.Background(), task))

	rr := f.do(t, http.MethodPost, "/v1/tasks/task-1/complete", nil, write...)
	require.Equal(t, http.StatusBadGateway, rr.Code)
	resp := decode[CompleteTaskResponse](t, rr)
	require.Equal(t, "successor_failed", resp.Error)
	require.True(t, resp.Task.IsCompleted())

	store.failCreate = false
	rr = f.do(t, http.MethodPost, "/v1/tasks/task-1/complete", nil, write...)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resp = decode[CompleteTaskResponse](t, rr)
	require.Equal(t, recurrence.SuccessorID("task-1"), resp.Successor.ID)
	require.Equal(t, time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC), resp.Successor.DueDate)
}

func TestUpdatePlantStatusToHarvested(t *testing.T) {
	f := newFixture(t, memory.NewStore())

	space := decode[domain.Space](t, f.do(t, http.MethodPost, "/v1/spaces", CreateSpaceRequest{Name: "Tent A", Type: domain.SpaceTypeTent}, write...))
	plant := decode[domain.Plant](t, f.do(t, http.MethodPost, "/v1/plants", CreatePlantRequest{
		SpaceID: space.ID, Name: "Basil", PlantedDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}, write...))

	harvestedAt := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)
	rr := f.do(t, http.MethodPatch, "/v1/plants/"+plant.ID, UpdatePlantStatusRequest{Status: domain.PlantStatusHarvested, HarvestedAt: &harvestedAt}, write...)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = f.do(t, http.MethodGet, "/v1/feed?types=plant_harvested", nil, auth.ScopeGardenRead)
	resp := decode[FeedResponse](t, rr)
	require.Len(t, resp.Items, 1)
	require.Equal(t, "Harvested Basil after 45 days", resp.Items[0].Description)
	require.Equal(t, "basket", string(resp.Items[0].Icon))

	rr = f.do(t, http.MethodPatch, "/v1/plants/"+plant.ID, UpdatePlantStatusRequest{Status: "wilted"}, write...)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(t, http.MethodGet, "/v1/plants/"+plant.ID, nil, write...)
	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

type flakyStore struct {
	*memory.Store
	failCreate bool
}

func (s *flakyStore) CreateTask(ctx context.Context, task domain.Task) error {
	if s.failCreate {
		return errors.New("store unavailable")
	}
	return s.Store.CreateTask(ctx, task)
}
