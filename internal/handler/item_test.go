package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"catalog-rest-api/internal/cache"
	"catalog-rest-api/internal/handler"
	"catalog-rest-api/internal/model"
	"catalog-rest-api/internal/repository"
	"catalog-rest-api/internal/router"
	"catalog-rest-api/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memItemRepo is a minimal in-memory ItemRepository for handler tests.
type memItemRepo struct {
	mu     sync.Mutex
	items  map[int64]model.Item
	nextID int64
}

func (r *memItemRepo) Create(_ context.Context, in model.ItemCreate) (*model.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	now := time.Now().UTC()
	it := model.Item{ID: r.nextID, Name: in.Name, Description: in.Description, CreatedAt: now, UpdatedAt: now}
	r.items[it.ID] = it
	return &it, nil
}

func (r *memItemRepo) GetByID(_ context.Context, id int64) (*model.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("item %d: %w", id, repository.ErrNotFound)
	}
	return &it, nil
}

func (r *memItemRepo) List(_ context.Context, skip, limit int) ([]model.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]model.Item, 0, len(r.items))
	for id := int64(1); id <= r.nextID; id++ {
		if it, ok := r.items[id]; ok {
			items = append(items, it)
		}
	}
	if skip >= len(items) {
		return []model.Item{}, nil
	}
	items = items[skip:]
	if limit < len(items) {
		items = items[:limit]
	}
	return items, nil
}

func (r *memItemRepo) Update(_ context.Context, id int64, in model.ItemUpdate) (*model.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("item %d: %w", id, repository.ErrNotFound)
	}
	if in.Name != nil {
		it.Name = *in.Name
	}
	if in.Description != nil {
		it.Description = in.Description
	}
	it.UpdatedAt = time.Now().UTC()
	r.items[id] = it
	return &it, nil
}

func (r *memItemRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return fmt.Errorf("item %d: %w", id, repository.ErrNotFound)
	}
	delete(r.items, id)
	return nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mem := cache.NewMemoryCache()
	t.Cleanup(func() { mem.Close() })

	repo := &memItemRepo{items: make(map[int64]model.Item)}
	items := service.NewItemService(repo, mem, time.Minute)

	r := router.New(router.Config{
		Handler:     handler.New("test", nil),
		ItemHandler: handler.NewItemHandler(items),
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	}
	return resp, env
}

func TestItemCRUDOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	// Create
	resp, env := doJSON(t, http.MethodPost, srv.URL+"/api/v1/items",
		map[string]any{"name": "Widget", "description": "a widget"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	require.True(t, env.Success)

	var created model.Item
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, "Widget", created.Name)

	// Get
	resp, env = doJSON(t, http.MethodGet, srv.URL+"/api/v1/items/1", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var got model.Item
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, created.ID, got.ID)

	// Update
	resp, env = doJSON(t, http.MethodPatch, srv.URL+"/api/v1/items/1",
		map[string]any{"description": "updated"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var updated model.Item
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	require.NotNil(t, updated.Description)
	assert.Equal(t, "updated", *updated.Description)

	// List reflects the update
	resp, env = doJSON(t, http.MethodGet, srv.URL+"/api/v1/items?skip=0&limit=10", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var items []model.Item
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, "updated", *items[0].Description)

	// Delete
	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/api/v1/items/1", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Gone
	resp, env = doJSON(t, http.MethodGet, srv.URL+"/api/v1/items/1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestItemValidationAndErrors(t *testing.T) {
	srv := newTestServer(t)

	// Missing name
	resp, env := doJSON(t, http.MethodPost, srv.URL+"/api/v1/items", map[string]any{"name": "  "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	// Bad id
	resp, env = doJSON(t, http.MethodGet, srv.URL+"/api/v1/items/abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "BAD_REQUEST", env.Error.Code)

	// Bad pagination
	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/v1/items?limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Delete of a missing id is NotFound, not an internal error
	resp, env = doJSON(t, http.MethodDelete, srv.URL+"/api/v1/items/42", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	resp, env := doJSON(t, http.MethodGet, srv.URL+"/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, env.Success)

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/v1/ready", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/status", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestReadyReportsUnavailableBeforeBootstrap(t *testing.T) {
	r := router.New(router.Config{
		Handler: handler.New("test", func() bool { return false }),
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/ready")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
