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

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

// MySQLStore implements Store using MySQL. The advisory lock maps onto
// GET_LOCK/RELEASE_LOCK, which are session-scoped: the store pins a
// dedicated connection for the duration of a held lock.
type MySQLStore struct {
	db    *sql.DB
	items *mysqlItemRepository
	notes *mysqlNoteRepository

	mu       sync.Mutex
	lockConn *sql.Conn
}

// NewMySQLStore opens a MySQL connection pool sized for the configured
// worker count and verifies connectivity.
func NewMySQLStore(dsn string, workers int) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL: %w", err)
	}

	maxOpen := workers * 5
	if maxOpen < 10 {
		maxOpen = 10
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen / 2)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	log.Printf("[MySQLStore] Initialized with pool: max=%d, idle=%d", maxOpen, maxOpen/2)
	return &MySQLStore{
		db:    db,
		items: &mysqlItemRepository{db: db},
		notes: &mysqlNoteRepository{db: db},
	}, nil
}

// Items returns the item repository.
func (s *MySQLStore) Items() ItemRepository { return s.items }

// Notes returns the note repository.
func (s *MySQLStore) Notes() NoteRepository { return s.notes }

// AcquireLock takes a named server-side lock via GET_LOCK, which itself
// blocks up to the wait. A pinned connection holds the lock.
func (s *MySQLStore) AcquireLock(ctx context.Context, name string, wait time.Duration) (bool, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to pin lock connection: %w", err)
	}

	waitSeconds := int(wait / time.Second)
	if waitSeconds < 1 {
		waitSeconds = 1
	}

	var acquired sql.NullInt64
	err = conn.QueryRowContext(ctx, `SELECT GET_LOCK(?, ?)`, name, waitSeconds).Scan(&acquired)
	if err != nil {
		conn.Close()
		return false, fmt.Errorf("failed to acquire advisory lock: %w", err)
	}
	if !acquired.Valid || acquired.Int64 != 1 {
		conn.Close()
		return false, nil
	}

	s.mu.Lock()
	s.lockConn = conn
	s.mu.Unlock()
	return true, nil
}

// ReleaseLock releases the named lock and returns the pinned connection to
// the pool.
func (s *MySQLStore) ReleaseLock(ctx context.Context, name string) error {
	s.mu.Lock()
	conn := s.lockConn
	s.lockConn = nil
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	defer conn.Close()

	var released sql.NullInt64
	if err := conn.QueryRowContext(ctx, `SELECT RELEASE_LOCK(?)`, name).Scan(&released); err != nil {
		return fmt.Errorf("failed to release advisory lock: %w", err)
	}
	return nil
}

// CreateTables creates the entity tables if absent.
func (s *MySQLStore) CreateTables(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS items (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			description TEXT,
			created_at TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
			updated_at TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6)
		)`,
		`CREATE TABLE IF NOT EXISTS notes (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			title VARCHAR(255) NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6)
		)`,
	}

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}
	return nil
}

// TablesExist reports whether both entity tables are present.
func (s *MySQLStore) TablesExist(ctx context.Context) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM information_schema.tables
		WHERE table_schema = DATABASE() AND table_name IN ('items', 'notes')`).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check tables: %w", err)
	}
	return count == 2, nil
}

// Close closes the database connection pool.
func (s *MySQLStore) Close() error {
	return s.db.Close()
}

// mysqlItemRepository implements ItemRepository using MySQL.
type mysqlItemRepository struct {
	db *sql.DB
}

func (r *mysqlItemRepository) Create(ctx context.Context, in model.ItemCreate) (*model.Item, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO items (name, description) VALUES (?, ?)`, in.Name, in.Description)
	if err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *mysqlItemRepository) GetByID(ctx context.Context, id int64) (*model.Item, error) {
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

func (r *mysqlItemRepository) List(ctx context.Context, skip, limit int) ([]model.Item, error) {
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

func (r *mysqlItemRepository) Update(ctx context.Context, id int64, in model.ItemUpdate) (*model.Item, error) {
	query := `
		UPDATE items SET
			name = COALESCE(?, name),
			description = COALESCE(?, description),
			updated_at = CURRENT_TIMESTAMP(6)
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, in.Name, in.Description, id)
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

func (r *mysqlItemRepository) Delete(ctx context.Context, id int64) error {
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

// mysqlNoteRepository implements NoteRepository using MySQL.
type mysqlNoteRepository struct {
	db *sql.DB
}

func (r *mysqlNoteRepository) Create(ctx context.Context, in model.NoteCreate) (*model.Note, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO notes (title, content) VALUES (?, ?)`, in.Title, in.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *mysqlNoteRepository) GetByID(ctx context.Context, id int64) (*model.Note, error) {
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

func (r *mysqlNoteRepository) List(ctx context.Context, skip, limit int) ([]model.Note, error) {
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

func (r *mysqlNoteRepository) Update(ctx context.Context, id int64, in model.NoteUpdate) (*model.Note, error) {
	query := `
		UPDATE notes SET
			title = COALESCE(?, title),
			content = COALESCE(?, content)
		WHERE id = ?`

	if _, err := r.db.ExecContext(ctx, query, in.Title, in.Content, id); err != nil {
		return nil, fmt.Errorf("failed to update note: %w", err)
	}
	// RowsAffected is unreliable for no-op updates without an update
	// timestamp column, so existence is settled by the re-read.
	return r.GetByID(ctx, id)
}

func (r *mysqlNoteRepository) Delete(ctx context.Context, id int64) error {
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
