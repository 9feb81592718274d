package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/todoapi/internal/adapters/repository"
	"github.com/okian/todoapi/internal/adapters/repository/sqlite/migrations"
	"github.com/okian/todoapi/internal/adapters/repository/storetest"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(context.Background(), filepath.Join(t.TempDir(), "todo.db"))
	require.NoError(t, err)
	return s
}

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) repository.Store {
		return newTestStore(t)
	})
}

func TestMemoryDatabase(t *testing.T) {
	storetest.Run(t, func(t *testing.T) repository.Store {
		s, err := NewStore(context.Background(), MemoryPath)
		require.NoError(t, err)
		return s
	})
}

func TestNewStore_EmptyPath(t *testing.T) {
	_, err := NewStore(context.Background(), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.NotValid))
}

func TestNewStore_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "todo.db")
	s, err := NewStore(context.Background(), path)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, path, s.Path())
	assert.FileExists(t, path)
}

func TestStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "todo.db")

	s, err := NewStore(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Add(ctx, repository.TodoItem{Key: 5, Name: "persist", IsComplete: true}))
	require.NoError(t, s.Close())

	s, err = NewStore(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Find(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, repository.TodoItem{Key: 5, Name: "persist", IsComplete: true}, got)
}

func TestMigrate_RecordsVersion(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	defer s.Close()

	var version int
	require.NoError(t, s.db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&version))
	assert.Equal(t, 1, version)

	// A second run must be a no-op.
	require.NoError(t, s.migrate(ctx, migrations.FS))
	var n int
	require.NoError(t, s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&n))
	assert.Equal(t, 1, n)
}

func TestStore_UpdateSameValues(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	defer s.Close()

	item := repository.TodoItem{Key: 1, Name: "same"}
	require.NoError(t, s.Add(ctx, item))
	assert.NoError(t, s.Update(ctx, item))
}
