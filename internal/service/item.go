package service

import (
	"context"
	"time"

	"catalog-rest-api/internal/cache"
	"catalog-rest-api/internal/model"
	"catalog-rest-api/internal/repository"
)

const itemKind = "items"

// ItemService provides item CRUD with read-through caching and
// write-triggered invalidation. The store is always the system of record;
// the cache only absorbs read load and may be absent.
type ItemService struct {
	repo  repository.ItemRepository
	cache cache.Cache
	ttl   time.Duration
}

// NewItemService creates a new item service. The cache may be nil, which
// runs every operation store-only. Returns nil if repo is nil (required
// dependency).
func NewItemService(repo repository.ItemRepository, c cache.Cache, ttl time.Duration) *ItemService {
	if repo == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ItemService{repo: repo, cache: c, ttl: ttl}
}

// Get returns the item by id, serving from cache when possible and
// repopulating the cache from the store on a miss.
func (s *ItemService) Get(ctx context.Context, id int64) (*model.Item, error) {
	key := entityKey(itemKind, id)
	if it, ok := fromCache[model.Item](ctx, s.cache, key); ok {
		return it, nil
	}

	it, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	toCache(ctx, s.cache, key, it, s.ttl)
	return it, nil
}

// List returns one pagination window of items, cached independently of
// other windows.
func (s *ItemService) List(ctx context.Context, skip, limit int) ([]model.Item, error) {
	key := listKey(itemKind, skip, limit)
	if items, ok := fromCache[[]model.Item](ctx, s.cache, key); ok {
		return *items, nil
	}

	items, err := s.repo.List(ctx, skip, limit)
	if err != nil {
		return nil, err
	}

	toCache(ctx, s.cache, key, &items, s.ttl)
	return items, nil
}

// Create inserts a new item and drops all cached list windows. No
// single-entity key exists yet, so none is deleted.
func (s *ItemService) Create(ctx context.Context, in model.ItemCreate) (*model.Item, error) {
	it, err := s.repo.Create(ctx, in)
	if err != nil {
		return nil, err
	}

	invalidatePattern(ctx, s.cache, listPattern(itemKind))
	return it, nil
}

// Update mutates the item in the store first; only a committed write
// invalidates the single-entity key and the list windows.
func (s *ItemService) Update(ctx context.Context, id int64, in model.ItemUpdate) (*model.Item, error) {
	it, err := s.repo.Update(ctx, id, in)
	if err != nil {
		return nil, err
	}

	invalidate(ctx, s.cache, entityKey(itemKind, id))
	invalidatePattern(ctx, s.cache, listPattern(itemKind))
	return it, nil
}

// Delete removes the item row and any cached representation. Deleting a
// missing id returns repository.ErrNotFound and touches nothing in the
// cache.
func (s *ItemService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	invalidate(ctx, s.cache, entityKey(itemKind, id))
	invalidatePattern(ctx, s.cache, listPattern(itemKind))
	return nil
}
