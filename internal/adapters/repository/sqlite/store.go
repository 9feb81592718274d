// Package sqlite implements repository.Store on top of SQLite through the
// pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/juju/errors"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/okian/todoapi/internal/adapters/repository"
	"github.com/okian/todoapi/internal/adapters/repository/sqlite/migrations"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Store is a repository.Store persisted in a single SQLite database file.
type Store struct {
	db   *sql.DB
	path string
}

var _ repository.Store = (*Store)(nil)

// NewStore opens (creating if needed) the database at path and applies
// pending migrations.
func NewStore(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, errors.NotValidf("empty sqlite path")
	}

	dsn := MemoryPath
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, errors.Annotate(err, "creating data directory")
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Annotate(err, "opening database")
	}
	if path == MemoryPath {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(ctx, migrations.FS); err != nil {
		_ = db.Close()
		return nil, errors.Annotate(err, "running migrations")
	}
	return s, nil
}

// Path returns the database path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate runs every *.up.sql file newer than the recorded schema version.
func (s *Store) migrate(ctx context.Context, fsys fs.FS) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return errors.Annotate(err, "creating schema_migrations table")
	}

	var current int
	row := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&current); err != nil {
		return errors.Annotate(err, "getting current version")
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return errors.Annotate(err, "reading migrations directory")
	}
	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= current {
			continue
		}
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return errors.Annotatef(err, "reading migration %s", name)
		}
		if err := s.apply(ctx, version, string(content)); err != nil {
			return errors.Annotatef(err, "executing migration %s", name)
		}
	}
	return nil
}

func (s *Store) apply(ctx context.Context, version int, stmt string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Trace(err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return errors.Trace(err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(tx.Commit())
}

// GetAll implements repository.Store.GetAll.
func (s *Store) GetAll(ctx context.Context) ([]repository.TodoItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT item_key, name, is_complete FROM todo_items ORDER BY item_key
	`)
	if err != nil {
		return nil, errors.Annotate(err, "listing todo items")
	}
	defer rows.Close()

	items := make([]repository.TodoItem, 0)
	for rows.Next() {
		var item repository.TodoItem
		if err := rows.Scan(&item.Key, &item.Name, &item.IsComplete); err != nil {
			return nil, errors.Annotate(err, "scanning todo item")
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Annotate(err, "iterating todo items")
	}
	return items, nil
}

// Find implements repository.Store.Find.
func (s *Store) Find(ctx context.Context, key int64) (repository.TodoItem, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT item_key, name, is_complete FROM todo_items WHERE item_key = ?
	`, key)

	var item repository.TodoItem
	if err := row.Scan(&item.Key, &item.Name, &item.IsComplete); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.TodoItem{}, repository.NotFound(key)
		}
		return repository.TodoItem{}, errors.Annotatef(err, "finding todo item %d", key)
	}
	return item, nil
}

// Add implements repository.Store.Add.
func (s *Store) Add(ctx context.Context, item repository.TodoItem) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO todo_items (item_key, name, is_complete) VALUES (?, ?, ?)
		ON CONFLICT(item_key) DO NOTHING
	`, item.Key, item.Name, item.IsComplete)
	if err != nil {
		return errors.Annotatef(err, "adding todo item %d", item.Key)
	}
	if n, err := res.RowsAffected(); err != nil {
		return errors.Trace(err)
	} else if n == 0 {
		return repository.AlreadyExists(item.Key)
	}
	return nil
}

// Update implements repository.Store.Update.
func (s *Store) Update(ctx context.Context, item repository.TodoItem) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE todo_items SET name = ?, is_complete = ? WHERE item_key = ?
	`, item.Name, item.IsComplete, item.Key)
	if err != nil {
		return errors.Annotatef(err, "updating todo item %d", item.Key)
	}
	return affectedOrNotFound(res, item.Key)
}

// Remove implements repository.Store.Remove.
func (s *Store) Remove(ctx context.Context, key int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM todo_items WHERE item_key = ?", key)
	if err != nil {
		return errors.Annotatef(err, "removing todo item %d", key)
	}
	return affectedOrNotFound(res, key)
}

// Count implements repository.Store.Count.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM todo_items").Scan(&n); err != nil {
		return 0, errors.Annotate(err, "counting todo items")
	}
	return n, nil
}

// affectedOrNotFound maps a zero-row write to NotFound. An UPDATE that
// rewrites identical values still counts the row as changed in SQLite.
func affectedOrNotFound(res sql.Result, key int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Trace(err)
	}
	if n == 0 {
		return repository.NotFound(key)
	}
	return nil
}
