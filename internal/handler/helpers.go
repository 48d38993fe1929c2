package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"catalog-rest-api/internal/repository"
	"catalog-rest-api/pkg/apierror"

	"github.com/go-chi/chi/v5"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// parseID extracts the {id} route parameter.
func parseID(r *http.Request) (int64, *apierror.Error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, apierror.BadRequest("id must be a positive integer")
	}
	return id, nil
}

// parsePagination extracts skip/limit query parameters with defaults.
func parsePagination(r *http.Request) (skip, limit int, apiErr *apierror.Error) {
	skip, limit = 0, defaultListLimit

	if raw := r.URL.Query().Get("skip"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return 0, 0, apierror.BadRequest("skip must be a non-negative integer")
		}
		skip = v
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > maxListLimit {
			return 0, 0, apierror.BadRequest("limit must be between 1 and 100")
		}
		limit = v
	}
	return skip, limit, nil
}

// serviceError maps a service-layer failure to an API error. Not-found is a
// normal negative outcome; anything else is a store failure and surfaces as
// an internal error without leaking query details.
func serviceError(err error, notFoundMsg string) *apierror.Error {
	if errors.Is(err, repository.ErrNotFound) {
		return apierror.NotFound(notFoundMsg)
	}
	log.Printf("[Handler] Store error: %v", err)
	return apierror.InternalError("")
}
