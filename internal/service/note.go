package service

import (
	"context"
	"time"

	"catalog-rest-api/internal/cache"
	"catalog-rest-api/internal/model"
	"catalog-rest-api/internal/repository"
)

const noteKind = "notes"

// NoteService provides note CRUD with the same cache-aside treatment as
// items.
type NoteService struct {
	repo  repository.NoteRepository
	cache cache.Cache
	ttl   time.Duration
}

// NewNoteService creates a new note service. The cache may be nil.
// Returns nil if repo is nil (required dependency).
func NewNoteService(repo repository.NoteRepository, c cache.Cache, ttl time.Duration) *NoteService {
	if repo == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &NoteService{repo: repo, cache: c, ttl: ttl}
}

// Get returns the note by id, read-through cached.
func (s *NoteService) Get(ctx context.Context, id int64) (*model.Note, error) {
	key := entityKey(noteKind, id)
	if n, ok := fromCache[model.Note](ctx, s.cache, key); ok {
		return n, nil
	}

	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	toCache(ctx, s.cache, key, n, s.ttl)
	return n, nil
}

// List returns one pagination window of notes.
func (s *NoteService) List(ctx context.Context, skip, limit int) ([]model.Note, error) {
	key := listKey(noteKind, skip, limit)
	if notes, ok := fromCache[[]model.Note](ctx, s.cache, key); ok {
		return *notes, nil
	}

	notes, err := s.repo.List(ctx, skip, limit)
	if err != nil {
		return nil, err
	}

	toCache(ctx, s.cache, key, &notes, s.ttl)
	return notes, nil
}

// Create inserts a new note and drops all cached list windows.
func (s *NoteService) Create(ctx context.Context, in model.NoteCreate) (*model.Note, error) {
	n, err := s.repo.Create(ctx, in)
	if err != nil {
		return nil, err
	}

	invalidatePattern(ctx, s.cache, listPattern(noteKind))
	return n, nil
}

// Update mutates the note, then invalidates its key and the list windows.
func (s *NoteService) Update(ctx context.Context, id int64, in model.NoteUpdate) (*model.Note, error) {
	n, err := s.repo.Update(ctx, id, in)
	if err != nil {
		return nil, err
	}

	invalidate(ctx, s.cache, entityKey(noteKind, id))
	invalidatePattern(ctx, s.cache, listPattern(noteKind))
	return n, nil
}

// Delete removes the note row and any cached representation.
func (s *NoteService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	invalidate(ctx, s.cache, entityKey(noteKind, id))
	invalidatePattern(ctx, s.cache, listPattern(noteKind))
	return nil
}
