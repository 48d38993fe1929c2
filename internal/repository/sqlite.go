package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"catalog-rest-api/internal/model"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// SQLiteStore implements Store using SQLite, intended for development and
// single-host deployments. SQLite has no named server locks, so the
// advisory lock is a UNIQUE row in a dedicated lock table: the insert wins
// the lock, the delete releases it. Cross-process safety comes from the
// database file itself.
type SQLiteStore struct {
	db    *sql.DB
	items *sqliteItemRepository
	notes *sqliteNoteRepository
}

// NewSQLiteStore opens the SQLite database in WAL mode.
// dbPath is the path to the database file (e.g., "./data/catalog.db").
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	log.Printf("[SQLiteStore] Initialized with database: %s", dbPath)
	return &SQLiteStore{
		db:    db,
		items: &sqliteItemRepository{db: db},
		notes: &sqliteNoteRepository{db: db},
	}, nil
}

// Items returns the item repository.
func (s *SQLiteStore) Items() ItemRepository { return s.items }

// Notes returns the note repository.
func (s *SQLiteStore) Notes() NoteRepository { return s.notes }

func (s *SQLiteStore) ensureLockTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_locks (
			name TEXT PRIMARY KEY,
			acquired_at DATETIME NOT NULL
		)`)
	return err
}

// AcquireLock claims the named lock row, retrying until the wait elapses.
func (s *SQLiteStore) AcquireLock(ctx context.Context, name string, wait time.Duration) (bool, error) {
	if err := s.ensureLockTable(ctx); err != nil {
		return false, fmt.Errorf("failed to prepare lock table: %w", err)
	}

	deadline := time.Now().Add(wait)
	for {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO schema_locks (name, acquired_at) VALUES (?, ?)`,
			name, time.Now().UTC())
		if err == nil {
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, nil
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(lockPollInterval):
		}
	}
}

// ReleaseLock deletes the named lock row.
func (s *SQLiteStore) ReleaseLock(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM schema_locks WHERE name = ?`, name); err != nil {
		return fmt.Errorf("failed to release advisory lock: %w", err)
	}
	return nil
}

// CreateTables creates the entity tables if absent.
func (s *SQLiteStore) CreateTables(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		description TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS notes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);`

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// TablesExist reports whether both entity tables are present.
func (s *SQLiteStore) TablesExist(ctx context.Context) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sqlite_master
		WHERE type = 'table' AND name IN ('items', 'notes')`).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check tables: %w", err)
	}
	return count == 2, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// sqliteItemRepository implements ItemRepository using SQLite.
type sqliteItemRepository struct {
	db *sql.DB
}

func (r *sqliteItemRepository) Create(ctx context.Context, in model.ItemCreate) (*model.Item, error) {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO items (name, description, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		in.Name, in.Description, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *sqliteItemRepository) GetByID(ctx context.Context, id int64) (*model.Item, error) {
	query := `SELECT id, name, description, created_at, updated_at FROM items WHERE id = ?`

	var it model.Item
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&it.ID, &it.Name, &it.Description, &it.CreatedAt, &it.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("item %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return &it, nil
}

func (r *sqliteItemRepository) List(ctx context.Context, skip, limit int) ([]model.Item, error) {
	query := `
		SELECT id, name, description, created_at, updated_at
		FROM items ORDER BY id LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	items := make([]model.Item, 0, limit)
	for rows.Next() {
		var it model.Item
		if err := rows.Scan(&it.ID, &it.Name, &it.Description, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return items, nil
}

func (r *sqliteItemRepository) Update(ctx context.Context, id int64, in model.ItemUpdate) (*model.Item, error) {
	query := `
		UPDATE items SET
			name = COALESCE(?, name),
			description = COALESCE(?, description),
			updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, in.Name, in.Description, time.Now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update item: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to update item: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("item %d: %w", id, ErrNotFound)
	}
	return r.GetByID(ctx, id)
}

func (r *sqliteItemRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("item %d: %w", id, ErrNotFound)
	}
	return nil
}

// sqliteNoteRepository implements NoteRepository using SQLite.
type sqliteNoteRepository struct {
	db *sql.DB
}

func (r *sqliteNoteRepository) Create(ctx context.Context, in model.NoteCreate) (*model.Note, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO notes (title, content, created_at) VALUES (?, ?, ?)`,
		in.Title, in.Content, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *sqliteNoteRepository) GetByID(ctx context.Context, id int64) (*model.Note, error) {
	query := `SELECT id, title, content, created_at FROM notes WHERE id = ?`

	var n model.Note
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&n.ID, &n.Title, &n.Content, &n.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("note %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get note: %w", err)
	}
	return &n, nil
}

func (r *sqliteNoteRepository) List(ctx context.Context, skip, limit int) ([]model.Note, error) {
	query := `SELECT id, title, content, created_at FROM notes ORDER BY id LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	notes := make([]model.Note, 0, limit)
	for rows.Next() {
		var n model.Note
		if err := rows.Scan(&n.ID, &n.Title, &n.Content, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	return notes, nil
}

func (r *sqliteNoteRepository) Update(ctx context.Context, id int64, in model.NoteUpdate) (*model.Note, error) {
	query := `
		UPDATE notes SET
			title = COALESCE(?, title),
			content = COALESCE(?, content)
		WHERE id = ?`

	if _, err := r.db.ExecContext(ctx, query, in.Title, in.Content, id); err != nil {
		return nil, fmt.Errorf("failed to update note: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *sqliteNoteRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("note %d: %w", id, ErrNotFound)
	}
	return nil
}
