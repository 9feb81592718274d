// Package storetest holds a behavior suite every repository.Store backend
// must pass.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/todoapi/internal/adapters/repository"
)

// Factory returns a fresh, empty store. The suite closes it.
type Factory func(t *testing.T) repository.Store

// Run executes the suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("EmptyStore", func(t *testing.T) { testEmpty(t, newStore(t)) })
	t.Run("AddFind", func(t *testing.T) { testAddFind(t, newStore(t)) })
	t.Run("AddDuplicate", func(t *testing.T) { testAddDuplicate(t, newStore(t)) })
	t.Run("GetAllOrdered", func(t *testing.T) { testGetAllOrdered(t, newStore(t)) })
	t.Run("Update", func(t *testing.T) { testUpdate(t, newStore(t)) })
	t.Run("Remove", func(t *testing.T) { testRemove(t, newStore(t)) })
	t.Run("ConcurrentAdd", func(t *testing.T) { testConcurrentAdd(t, newStore(t)) })
	t.Run("CancelledContext", func(t *testing.T) { testCancelled(t, newStore(t)) })
}

func testEmpty(t *testing.T, s repository.Store) {
	defer closeStore(t, s)
	ctx := context.Background()

	items, err := s.GetAll(ctx)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = s.Find(ctx, 1)
	assert.True(t, errors.Is(err, errors.NotFound), "got %v", err)
}

func testAddFind(t *testing.T, s repository.Store) {
	defer closeStore(t, s)
	ctx := context.Background()

	item := repository.TodoItem{Key: 1, Name: "Buy milk", IsComplete: false}
	require.NoError(t, s.Add(ctx, item))

	got, err := s.Find(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, item, got)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func testAddDuplicate(t *testing.T, s repository.Store) {
	defer closeStore(t, s)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, repository.TodoItem{Key: 5, Name: "first"}))
	err := s.Add(ctx, repository.TodoItem{Key: 5, Name: "second"})
	assert.True(t, errors.Is(err, errors.AlreadyExists), "got %v", err)

	got, err := s.Find(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Name)
}

func testGetAllOrdered(t *testing.T, s repository.Store) {
	defer closeStore(t, s)
	ctx := context.Background()

	for _, k := range []int64{30, -2, 10, 0} {
		require.NoError(t, s.Add(ctx, repository.TodoItem{Key: k, Name: fmt.Sprint("item ", k)}))
	}

	items, err := s.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, items, 4)
	keys := make([]int64, len(items))
	for i, item := range items {
		keys[i] = item.Key
	}
	assert.Equal(t, []int64{-2, 0, 10, 30}, keys)
}

func testUpdate(t *testing.T, s repository.Store) {
	defer closeStore(t, s)
	ctx := context.Background()

	err := s.Update(ctx, repository.TodoItem{Key: 9, Name: "ghost"})
	assert.True(t, errors.Is(err, errors.NotFound), "got %v", err)

	require.NoError(t, s.Add(ctx, repository.TodoItem{Key: 9, Name: "Walk dog"}))
	require.NoError(t, s.Update(ctx, repository.TodoItem{Key: 9, Name: "Walk dog twice", IsComplete: true}))

	got, err := s.Find(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, repository.TodoItem{Key: 9, Name: "Walk dog twice", IsComplete: true}, got)
}

func testRemove(t *testing.T, s repository.Store) {
	defer closeStore(t, s)
	ctx := context.Background()

	err := s.Remove(ctx, 3)
	assert.True(t, errors.Is(err, errors.NotFound), "got %v", err)

	require.NoError(t, s.Add(ctx, repository.TodoItem{Key: 3, Name: "Pay rent"}))
	require.NoError(t, s.Remove(ctx, 3))

	_, err = s.Find(ctx, 3)
	assert.True(t, errors.Is(err, errors.NotFound), "got %v", err)

	err = s.Remove(ctx, 3)
	assert.True(t, errors.Is(err, errors.NotFound), "got %v", err)
}

func testConcurrentAdd(t *testing.T, s repository.Store) {
	defer closeStore(t, s)
	ctx := context.Background()

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Add(ctx, repository.TodoItem{Key: 77, Name: "race"}); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func testCancelled(t *testing.T, s repository.Store) {
	defer closeStore(t, s)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.GetAll(ctx)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, errors.NotFound))
}

func closeStore(t *testing.T, s repository.Store) {
	t.Helper()
	assert.NoError(t, s.Close())
}
