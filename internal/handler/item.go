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

// ItemHandler handles item-related HTTP requests.
type ItemHandler struct {
	items *service.ItemService
}

// NewItemHandler creates a new item handler.
func NewItemHandler(items *service.ItemService) *ItemHandler {
	return &ItemHandler{items: items}
}

// List handles GET /api/v1/items
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	skip, limit, apiErr := parsePagination(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	items, err := h.items.List(r.Context(), skip, limit)
	if err != nil {
		response.Error(w, serviceError(err, ""))
		return
	}

	response.OK(w, items)
}

// Create handles POST /api/v1/items
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload model.ItemCreate
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON body"))
		return
	}
	if strings.TrimSpace(payload.Name) == "" {
		response.Error(w, apierror.ValidationError("validation failed",
			apierror.FieldError{Field: "name", Message: "name is required"}))
		return
	}

	item, err := h.items.Create(r.Context(), payload)
	if err != nil {
		response.Error(w, serviceError(err, ""))
		return
	}

	response.Created(w, item)
}

// Get handles GET /api/v1/items/{id}
func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, apiErr := parseID(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	item, err := h.items.Get(r.Context(), id)
	if err != nil {
		response.Error(w, serviceError(err, "item not found"))
		return
	}

	response.OK(w, item)
}

// Update handles PATCH /api/v1/items/{id}
func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, apiErr := parseID(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	var payload model.ItemUpdate
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON body"))
		return
	}
	if payload.Name != nil && strings.TrimSpace(*payload.Name) == "" {
		response.Error(w, apierror.ValidationError("validation failed",
			apierror.FieldError{Field: "name", Message: "name must not be empty"}))
		return
	}

	item, err := h.items.Update(r.Context(), id, payload)
	if err != nil {
		response.Error(w, serviceError(err, "item not found"))
		return
	}

	response.OK(w, item)
}

// Delete handles DELETE /api/v1/items/{id}
func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, apiErr := parseID(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	if err := h.items.Delete(r.Context(), id); err != nil {
		response.Error(w, serviceError(err, "item not found"))
		return
	}

	response.NoContent(w)
}
