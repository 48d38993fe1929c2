package repository

import (
	"context"
	"errors"
	"time"

	"catalog-rest-api/internal/model"
)

// ErrNotFound reports that the requested entity does not exist in the store.
// It is a normal negative outcome, distinct from a connectivity or query
// failure, and is matched with errors.Is.
var ErrNotFound = errors.New("not found")

// ItemRepository defines item data access methods.
type ItemRepository interface {
	// Create inserts a new item; the store assigns id and timestamps.
	Create(ctx context.Context, in model.ItemCreate) (*model.Item, error)

	// GetByID retrieves an item, returning ErrNotFound if absent.
	GetByID(ctx context.Context, id int64) (*model.Item, error)

	// List returns items ordered by id within an offset/limit window.
	List(ctx context.Context, skip, limit int) ([]model.Item, error)

	// Update applies a partial update and refreshes updated_at.
	// Returns ErrNotFound if the item does not exist.
	Update(ctx context.Context, id int64, in model.ItemUpdate) (*model.Item, error)

	// Delete removes an item, returning ErrNotFound if absent.
	Delete(ctx context.Context, id int64) error
}

// NoteRepository defines note data access methods.
type NoteRepository interface {
	Create(ctx context.Context, in model.NoteCreate) (*model.Note, error)
	GetByID(ctx context.Context, id int64) (*model.Note, error)
	List(ctx context.Context, skip, limit int) ([]model.Note, error)
	Update(ctx context.Context, id int64, in model.NoteUpdate) (*model.Note, error)
	Delete(ctx context.Context, id int64) error
}

// AdvisoryLocker is the store-provided named mutex used for cross-process
// coordination at startup. The lock is advisory: it coordinates cooperating
// workers and has nothing to do with row-level locking.
type AdvisoryLocker interface {
	// AcquireLock tries to take the named lock, waiting up to wait.
	// It returns false (without error) when the wait elapses first.
	AcquireLock(ctx context.Context, name string, wait time.Duration) (bool, error)

	// ReleaseLock releases a lock previously acquired by this process.
	ReleaseLock(ctx context.Context, name string) error
}

// SchemaManager creates and verifies the entity tables.
type SchemaManager interface {
	// CreateTables creates all entity tables if absent. Idempotent.
	CreateTables(ctx context.Context) error

	// TablesExist reports whether every entity table is present.
	TablesExist(ctx context.Context) (bool, error)
}

// Store bundles everything a backend provides: typed CRUD per entity kind,
// the bootstrap mutex and schema management.
type Store interface {
	AdvisoryLocker
	SchemaManager

	Items() ItemRepository
	Notes() NoteRepository
	Close() error
}
