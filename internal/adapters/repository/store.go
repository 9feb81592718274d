// Package repository defines the todo item store interface, its errors and
// the in-memory backend.
package repository

import (
	"context"

	"github.com/okian/todoapi/internal/domain/model"
)

// Backend names accepted by configuration.
const (
	KindMemory = "memory"
	KindSQLite = "sqlite"
)

// TodoItem is the stored entity.
type TodoItem = model.TodoItem

// Store provides CRUD access to todo items keyed by TodoItem.Key.
type Store interface {
	// GetAll returns every stored item ordered by key.
	GetAll(ctx context.Context) ([]TodoItem, error)

	// Find returns the item stored under key.
	// Returns an error satisfying errors.Is(err, errors.NotFound) if absent.
	Find(ctx context.Context, key int64) (TodoItem, error)

	// Add stores a new item under item.Key.
	// Returns an errors.AlreadyExists error if the key is taken.
	Add(ctx context.Context, item TodoItem) error

	// Update replaces the stored item with the same key.
	// Returns an errors.NotFound error if the key is unknown.
	Update(ctx context.Context, item TodoItem) error

	// Remove deletes the item stored under key.
	// Returns an errors.NotFound error if the key is unknown.
	Remove(ctx context.Context, key int64) error

	// Count returns the number of stored items.
	Count(ctx context.Context) (int, error)

	// Close releases resources held by the store.
	Close() error
}
