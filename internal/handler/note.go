package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"catalog-rest-api/internal/model"
	"catalog-rest-api/internal/service"
	"catalog-rest-api/pkg/apierror"
	"catalog-rest-api/pkg/response"
)

// NoteHandler handles note-related HTTP requests.
type NoteHandler struct {
	notes *service.NoteService
}

// NewNoteHandler creates a new note handler.
func NewNoteHandler(notes *service.NoteService) *NoteHandler {
	return &NoteHandler{notes: notes}
}

// List handles GET /api/v1/notes
func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	skip, limit, apiErr := parsePagination(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	notes, err := h.notes.List(r.Context(), skip, limit)
	if err != nil {
		response.Error(w, serviceError(err, ""))
		return
	}

	response.OK(w, notes)
}

// Create handles POST /api/v1/notes
func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload model.NoteCreate
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON body"))
		return
	}

	var details []apierror.FieldError
	if strings.TrimSpace(payload.Title) == "" {
		details = append(details, apierror.FieldError{Field: "title", Message: "title is required"})
	}
	if strings.TrimSpace(payload.Content) == "" {
		details = append(details, apierror.FieldError{Field: "content", Message: "content is required"})
	}
	if len(details) > 0 {
		response.Error(w, apierror.ValidationError("validation failed", details...))
		return
	}

	note, err := h.notes.Create(r.Context(), payload)
	if err != nil {
		response.Error(w, serviceError(err, ""))
		return
	}

	response.Created(w, note)
}

// Get handles GET /api/v1/notes/{id}
func (h *NoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, apiErr := parseID(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	note, err := h.notes.Get(r.Context(), id)
	if err != nil {
		response.Error(w, serviceError(err, "note not found"))
		return
	}

	response.OK(w, note)
}

// Update handles PATCH /api/v1/notes/{id}
func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, apiErr := parseID(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	var payload model.NoteUpdate
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON body"))
		return
	}

	note, err := h.notes.Update(r.Context(), id, payload)
	if err != nil {
		response.Error(w, serviceError(err, "note not found"))
		return
	}

	response.OK(w, note)
}

// Delete handles DELETE /api/v1/notes/{id}
func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, apiErr := parseID(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	if err := h.notes.Delete(r.Context(), id); err != nil {
		response.Error(w, serviceError(err, "note not found"))
		return
	}

	response.NoContent(w)
}
