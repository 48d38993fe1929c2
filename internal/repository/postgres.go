package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"catalog-rest-api/internal/model"

	_ "github.com/lib/pq" // PostgreSQL driver
)

const lockPollInterval = 250 * time.Millisecond

// PostgresStore implements Store using PostgreSQL. The advisory lock maps
// onto pg_try_advisory_lock, which is session-scoped: the store pins a
// dedicated connection for the duration of a held lock.
type PostgresStore struct {
	db    *sql.DB
	items *postgresItemRepository
	notes *postgresNoteRepository

	mu       sync.Mutex
	lockConn *sql.Conn
}

// NewPostgresStore opens a PostgreSQL connection pool sized for the
// configured worker count and verifies connectivity.
func NewPostgresStore(dsn string, workers int) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL: %w", err)
	}

	maxOpen := workers * 5
	if maxOpen < 10 {
		maxOpen = 10
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen / 2)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	log.Printf("[PostgresStore] Initialized with pool: max=%d, idle=%d", maxOpen, maxOpen/2)
	return &PostgresStore{
		db:    db,
		items: &postgresItemRepository{db: db},
		notes: &postgresNoteRepository{db: db},
	}, nil
}

// Items returns the item repository.
func (s *PostgresStore) Items() ItemRepository { return s.items }

// Notes returns the note repository.
func (s *PostgresStore) Notes() NoteRepository { return s.notes }

// AcquireLock polls pg_try_advisory_lock on a pinned connection until the
// lock is granted or the wait elapses.
func (s *PostgresStore) AcquireLock(ctx context.Context, name string, wait time.Duration) (bool, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to pin lock connection: %w", err)
	}

	deadline := time.Now().Add(wait)
	for {
		var acquired bool
		err := conn.QueryRowContext(ctx,
			`SELECT pg_try_advisory_lock(hashtext($1))`, name).Scan(&acquired)
		if err != nil {
			conn.Close()
			return false, fmt.Errorf("failed to acquire advisory lock: %w", err)
		}
		if acquired {
			s.mu.Lock()
			s.lockConn = conn
			s.mu.Unlock()
			return true, nil
		}
		if time.Now().After(deadline) {
			conn.Close()
			return false, nil
		}

		select {
		case <-ctx.Done():
			conn.Close()
			return false, ctx.Err()
		case <-time.After(lockPollInterval):
		}
	}
}

// ReleaseLock releases the advisory lock and returns the pinned connection
// to the pool.
func (s *PostgresStore) ReleaseLock(ctx context.Context, name string) error {
	s.mu.Lock()
	conn := s.lockConn
	s.lockConn = nil
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	defer conn.Close()

	var released bool
	err := conn.QueryRowContext(ctx,
		`SELECT pg_advisory_unlock(hashtext($1))`, name).Scan(&released)
	if err != nil {
		return fmt.Errorf("failed to release advisory lock: %w", err)
	}
	return nil
}

// CreateTables creates the entity tables if absent.
func (s *PostgresStore) CreateTables(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS items (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE TABLE IF NOT EXISTS notes (
		id BIGSERIAL PRIMARY KEY,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// TablesExist reports whether both entity tables are present.
func (s *PostgresStore) TablesExist(ctx context.Context) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM information_schema.tables
		WHERE table_schema = 'public' AND table_name IN ('items', 'notes')`).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check tables: %w", err)
	}
	return count == 2, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// postgresItemRepository implements ItemRepository using PostgreSQL.
type postgresItemRepository struct {
	db *sql.DB
}

func (r *postgresItemRepository) Create(ctx context.Context, in model.ItemCreate) (*model.Item, error) {
	query := `
		INSERT INTO items (name, description)
		VALUES ($1, $2)
		RETURNING id, name, description, created_at, updated_at`

	var it model.Item
	err := r.db.QueryRowContext(ctx, query, in.Name, in.Description).
		Scan(&it.ID, &it.Name, &it.Description, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}
	return &it, nil
}

func (r *postgresItemRepository) GetByID(ctx context.Context, id int64) (*model.Item, error) {
	query := `SELECT id, name, description, created_at, updated_at FROM items WHERE id = $1`

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

func (r *postgresItemRepository) List(ctx context.Context, skip, limit int) ([]model.Item, error) {
	query := `
		SELECT id, name, description, created_at, updated_at
		FROM items ORDER BY id OFFSET $1 LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, skip, limit)
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

func (r *postgresItemRepository) Update(ctx context.Context, id int64, in model.ItemUpdate) (*model.Item, error) {
	query := `
		UPDATE items SET
			name = COALESCE($2::text, name),
			description = COALESCE($3::text, description),
			updated_at = NOW()
		WHERE id = $1
		RETURNING id, name, description, created_at, updated_at`

	var it model.Item
	err := r.db.QueryRowContext(ctx, query, id, in.Name, in.Description).
		Scan(&it.ID, &it.Name, &it.Description, &it.CreatedAt, &it.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("item %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update item: %w", err)
	}
	return &it, nil
}

func (r *postgresItemRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id)
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

// postgresNoteRepository implements NoteRepository using PostgreSQL.
type postgresNoteRepository struct {
	db *sql.DB
}

func (r *postgresNoteRepository) Create(ctx context.Context, in model.NoteCreate) (*model.Note, error) {
	query := `
		INSERT INTO notes (title, content)
		VALUES ($1, $2)
		RETURNING id, title, content, created_at`

	var n model.Note
	err := r.db.QueryRowContext(ctx, query, in.Title, in.Content).
		Scan(&n.ID, &n.Title, &n.Content, &n.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}
	return &n, nil
}

func (r *postgresNoteRepository) GetByID(ctx context.Context, id int64) (*model.Note, error) {
	query := `SELECT id, title, content, created_at FROM notes WHERE id = $1`

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

func (r *postgresNoteRepository) List(ctx context.Context, skip, limit int) ([]model.Note, error) {
	query := `SELECT id, title, content, created_at FROM notes ORDER BY id OFFSET $1 LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, skip, limit)
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

func (r *postgresNoteRepository) Update(ctx context.Context, id int64, in model.NoteUpdate) (*model.Note, error) {
	query := `
		UPDATE notes SET
			title = COALESCE($2::text, title),
			content = COALESCE($3::text, content)
		WHERE id = $1
		RETURNING id, title, content, created_at`

	var n model.Note
	err := r.db.QueryRowContext(ctx, query, id, in.Title, in.Content).
		Scan(&n.ID, &n.Title, &n.Content, &n.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("note %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update note: %w", err)
	}
	return &n, nil
}

func (r *postgresNoteRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM notes WHERE id = $1`, id)
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
