// Package api exposes the garden tracker over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"example.com/gardenlog/internal/auth"
	"example.com/gardenlog/internal/domain"
	"example.com/gardenlog/internal/garden"
	"example.com/gardenlog/internal/platform/logger"
)

// Handler coordinates HTTP requests with the garden service.
type Handler struct {
	service *garden.Service
	log     *logger.Logger
}

// NewHandler builds a Handler.
func NewHandler(service *garden.Service, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{service: service, log: log}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/feed", h.feed)
	mux.HandleFunc("/v1/spaces", h.spaces)
	mux.HandleFunc("/v1/plants", h.plants)
	mux.HandleFunc("/v1/plants/", h.plantByID)
	mux.HandleFunc("/v1/notes", h.notes)
	mux.HandleFunc("/v1/tasks", h.tasks)
	mux.HandleFunc("/v1/tasks/", h.taskAction)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// authorize resolves the caller and checks scope. Write scope implies read.
func authorize(w http.ResponseWriter, r *http.Request, write bool) (string, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok || claims.Subject == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return "", false
	}
	if write {
		if !claims.HasScope(auth.ScopeGardenWrite) {
			writeError(w, http.StatusForbidden, "forbidden", "scope garden:write required")
			return "", false
		}
		return claims.Subject, true
	}
	if !claims.HasAnyScope(auth.ScopeGardenRead, auth.ScopeGardenWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope garden:read required")
		return "", false
	}
	return claims.Subject, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return false
	}
	return true
}

// pathID extracts the segment following prefix, and the remainder after it.
func pathID(path, prefix string) (string, string) {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	id, tail, _ := strings.Cut(rest, "/")
	return id, tail
}

// serviceError maps domain errors onto HTTP responses.
func (h *Handler) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	default:
		h.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
