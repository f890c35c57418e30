package api

import (
	"errors"
	"net/http"

	"example.com/gardenlog/internal/domain"
	"example.com/gardenlog/internal/garden"
)

func (h *Handler) spaces(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		userID, ok := authorize(w, r, false)
		if !ok {
			return
		}
		spaces, err := h.service.ListSpaces(r.Context(), userID)
		if err != nil {
			h.serviceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ListResponse[domain.Space]{Items: spaces})
	case http.MethodPost:
		userID, ok := authorize(w, r, true)
		if !ok {
			return
		}
		var req CreateSpaceRequest
		if !decodeBody(w, r, &req) {
			return
		}
		space, err := h.service.CreateSpace(r.Context(), garden.CreateSpaceInput{
			UserID: userID,
			Name:   req.Name,
			Type:   req.Type,
			Public: req.Public,
		})
		if err != nil {
			h.serviceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, space)
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) plants(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		userID, ok := authorize(w, r, false)
		if !ok {
			return
		}
		plants, err := h.service.ListPlants(r.Context(), userID)
		if err != nil {
			h.serviceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ListResponse[domain.Plant]{Items: plants})
	case http.MethodPost:
		userID, ok := authorize(w, r, true)
		if !ok {
			return
		}
		var req CreatePlantRequest
		if !decodeBody(w, r, &req) {
			return
		}
		plant, err := h.service.CreatePlant(r.Context(), garden.CreatePlantInput{
			UserID:              userID,
			SpaceID:             req.SpaceID,
			Name:                req.Name,
			Variety:             req.Variety,
			PlantedDate:         req.PlantedDate,
			ExpectedHarvestDate: req.ExpectedHarvestDate,
			Status:              req.Status,
		})
		if err != nil {
			h.serviceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, plant)
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) plantByID(w http.ResponseWriter, r *http.Request) {
	id, tail := pathID(r.URL.Path, "/v1/plants/")
	if id == "" || tail != "" {
		writeError(w, http.StatusNotFound, "not_found", "unknown plant route")
		return
	}
	if r.Method != http.MethodPatch {
		methodNotAllowed(w)
		return
	}
	userID, ok := authorize(w, r, true)
	if !ok {
		return
	}

	var req UpdatePlantStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	plant, err := h.service.UpdatePlantStatus(r.Context(), userID, id, req.Status, req.HarvestedAt)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plant)
}

func (h *Handler) notes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		userID, ok := authorize(w, r, false)
		if !ok {
			return
		}
		notes, err := h.service.ListNotes(r.Context(), userID)
		if err != nil {
			h.serviceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ListResponse[domain.Note]{Items: notes})
	case http.MethodPost:
		userID, ok := authorize(w, r, true)
		if !ok {
			return
		}
		var req CreateNoteRequest
		if !decodeBody(w, r, &req) {
			return
		}
		note, err := h.service.CreateNote(r.Context(), garden.CreateNoteInput{
			UserID:    userID,
			PlantID:   req.PlantID,
			SpaceID:   req.SpaceID,
			Content:   req.Content,
			Category:  req.Category,
			Photos:    req.Photos,
			Timestamp: req.Timestamp,
		})
		if err != nil {
			h.serviceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, note)
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) tasks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		userID, ok := authorize(w, r, false)
		if !ok {
			return
		}
		tasks, err := h.service.ListTasks(r.Context(), userID)
		if err != nil {
			h.serviceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ListResponse[domain.Task]{Items: tasks})
	case http.MethodPost:
		userID, ok := authorize(w, r, true)
		if !ok {
			return
		}
		var req CreateTaskRequest
		if !decodeBody(w, r, &req) {
			return
		}
		task, err := h.service.CreateTask(r.Context(), garden.CreateTaskInput{
			UserID:      userID,
			PlantID:     req.PlantID,
			SpaceID:     req.SpaceID,
			Title:       req.Title,
			Description: req.Description,
			DueDate:     req.DueDate,
			Priority:    req.Priority,
			Recurrence:  req.Recurrence,
		})
		if err != nil {
			h.serviceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, task)
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) taskAction(w http.ResponseWriter, r *http.Request) {
	id, action := pathID(r.URL.Path, "/v1/tasks/")
	if id == "" || action != "complete" {
		writeError(w, http.StatusNotFound, "not_found", "unknown task route")
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	userID, ok := authorize(w, r, true)
	if !ok {
		return
	}

	completion, err := h.service.CompleteTask(r.Context(), userID, id)
	if err != nil {
		if errors.Is(err, garden.ErrSuccessorFailed) && completion != nil {
			// The task is stored as completed; repeating the request retries the successor.
			h.log.Warn("successor not created", "task_id", id, "error", err)
			writeJSON(w, http.StatusBadGateway, CompleteTaskResponse{
				Task:   completion.Task,
				Error:  "successor_failed",
				Detail: "task completed but the next occurrence was not created; retry to schedule it",
			})
			return
		}
		h.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CompleteTaskResponse{Task: completion.Task, Successor: completion.Successor})
}
