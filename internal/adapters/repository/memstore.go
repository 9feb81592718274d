package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/juju/errors"
)

// MemoryStore is a map-backed Store. It is safe for concurrent use.
type MemoryStore struct {
	mu     sync.RWMutex
	items  map[int64]TodoItem
	closed bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		items: make(map[int64]TodoItem),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetAll implements Store.GetAll.
func (s *MemoryStore) GetAll(ctx context.Context) ([]TodoItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	out := make([]TodoItem, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Find implements Store.Find.
func (s *MemoryStore) Find(ctx context.Context, key int64) (TodoItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return TodoItem{}, err
	}

	item, ok := s.items[key]
	if !ok {
		return TodoItem{}, NotFound(key)
	}
	return item, nil
}

// Add implements Store.Add.
func (s *MemoryStore) Add(ctx context.Context, item TodoItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}

	if _, ok := s.items[item.Key]; ok {
		return AlreadyExists(item.Key)
	}
	s.items[item.Key] = item
	return nil
}

// Update implements Store.Update.
func (s *MemoryStore) Update(ctx context.Context, item TodoItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}

	if _, ok := s.items[item.Key]; !ok {
		return NotFound(item.Key)
	}
	s.items[item.Key] = item
	return nil
}

// Remove implements Store.Remove.
func (s *MemoryStore) Remove(ctx context.Context, key int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}

	if _, ok := s.items[key]; !ok {
		return NotFound(key)
	}
	delete(s.items, key)
	return nil
}

// Count implements Store.Count.
func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return 0, err
	}
	return len(s.items), nil
}

// Close marks the store as closed; later calls fail.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// check must be called with s.mu held.
func (s *MemoryStore) check(ctx context.Context) error {
	if s.closed {
		return errors.New("memory store is closed")
	}
	return errors.Trace(ctx.Err())
}
