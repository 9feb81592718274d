// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"sync"

	"github.com/juju/errors"

	"github.com/okian/todoapi/internal/adapters/repository"
	"github.com/okian/todoapi/internal/adapters/repository/sqlite"
	"github.com/okian/todoapi/internal/domain/model"
	"github.com/okian/todoapi/pkg/logger"
	"github.com/okian/todoapi/pkg/metrics"
)

// Mutation names reported to metrics.
const (
	opCreate = "create"
	opUpdate = "update"
	opDelete = "delete"
)

// ErrNotStarted is returned by item operations before Start or after Stop.
const ErrNotStarted = errors.ConstError("service not started")

// Service implements the API dependencies for the todo list.
type Service struct {
	mu sync.RWMutex

	store     repository.Store
	ownsStore bool

	// Configuration
	storeKind  string
	sqlitePath string
	seed       []model.TodoItem

	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStore injects a ready store. The service does not close it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithStoreKind selects the backend opened by Start: "memory" or "sqlite".
func WithStoreKind(kind string) Option {
	return func(s *Service) {
		if kind != "" {
			s.storeKind = kind
		}
	}
}

// WithSQLitePath sets the database file used by the sqlite backend.
func WithSQLitePath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.sqlitePath = path
		}
	}
}

// WithSeedItems adds items to the store on Start. Keys that already exist
// are left untouched.
func WithSeedItems(items ...model.TodoItem) Option {
	return func(s *Service) {
		s.seed = append(s.seed, items...)
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		storeKind:  repository.KindMemory,
		sqlitePath: "data/todo.db",
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start opens the configured store and seeds it.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting todo service...", logger.String("store", s.storeKind))

	if s.store == nil {
		store, err := s.openStore(ctx)
		if err != nil {
			return errors.Annotatef(err, "opening %s store", s.storeKind)
		}
		s.store = repository.Instrument(store, s.storeKind)
		s.ownsStore = true
	}

	for _, item := range s.seed {
		err := s.store.Add(ctx, item)
		switch {
		case err == nil:
		case errors.Is(err, errors.AlreadyExists):
			s.logger.Debug(ctx, "seed item already present", logger.Int64("key", item.Key))
		default:
			return errors.Annotatef(err, "seeding item %d", item.Key)
		}
	}

	count, err := s.store.Count(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	metrics.UpdateItemsTotal(count)

	s.started = true
	s.logger.Info(ctx, "todo service started",
		logger.String("store", s.storeKind),
		logger.Int("items", count),
	)

	return nil
}

func (s *Service) openStore(ctx context.Context) (repository.Store, error) {
	switch s.storeKind {
	case repository.KindMemory:
		return repository.NewMemoryStore(), nil
	case repository.KindSQLite:
		return sqlite.NewStore(ctx, s.sqlitePath)
	default:
		return nil, errors.NotSupportedf("store kind %q", s.storeKind)
	}
}

// Stop releases the store if the service opened it.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping todo service...")

	if s.ownsStore {
		if err := s.store.Close(); err != nil {
			s.logger.Error(ctx, "closing store", logger.Error(err))
		}
		s.store = nil
		s.ownsStore = false
	}

	s.started = false
	s.logger.Info(ctx, "todo service stopped")
}

// Started reports whether the service accepts requests.
func (s *Service) Started() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

func (s *Service) repo() (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

// ListAll returns every item in key order.
func (s *Service) ListAll(ctx context.Context) ([]model.TodoItem, error) {
	store, err := s.repo()
	if err != nil {
		return nil, err
	}
	items, err := store.GetAll(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return items, nil
}

// GetByID returns the item stored under id.
func (s *Service) GetByID(ctx context.Context, id int64) (model.TodoItem, error) {
	store, err := s.repo()
	if err != nil {
		return model.TodoItem{}, err
	}
	item, err := store.Find(ctx, id)
	if err != nil {
		return model.TodoItem{}, errors.Trace(err)
	}
	return item, nil
}

// Create stores item under its own key. A nil item is a bad request.
func (s *Service) Create(ctx context.Context, item *model.TodoItem) (model.TodoItem, error) {
	if item == nil {
		return model.TodoItem{}, errors.BadRequestf("todo item is required")
	}
	store, err := s.repo()
	if err != nil {
		return model.TodoItem{}, err
	}
	if err := store.Add(ctx, *item); err != nil {
		return model.TodoItem{}, errors.Trace(err)
	}

	metrics.RecordTodoMutation(opCreate)
	s.logger.Debug(ctx, "todo item created", logger.Int64("key", item.Key))
	return *item, nil
}

// Update replaces name and completion of the item stored under id. The
// body key must equal id; that is checked before any lookup.
func (s *Service) Update(ctx context.Context, id int64, item *model.TodoItem) error {
	if item == nil {
		return errors.BadRequestf("todo item is required")
	}
	if item.Key != id {
		return errors.BadRequestf("todo item key %d does not match id %d", item.Key, id)
	}
	store, err := s.repo()
	if err != nil {
		return err
	}

	current, err := store.Find(ctx, id)
	if err != nil {
		return errors.Trace(err)
	}
	if err := store.Update(ctx, current.Apply(*item)); err != nil {
		return errors.Trace(err)
	}

	metrics.RecordTodoMutation(opUpdate)
	s.logger.Debug(ctx, "todo item updated", logger.Int64("key", id))
	return nil
}

// Delete removes the item stored under id.
func (s *Service) Delete(ctx context.Context, id int64) error {
	store, err := s.repo()
	if err != nil {
		return err
	}
	if _, err := store.Find(ctx, id); err != nil {
		return errors.Trace(err)
	}
	if err := store.Remove(ctx, id); err != nil {
		return errors.Trace(err)
	}

	metrics.RecordTodoMutation(opDelete)
	s.logger.Debug(ctx, "todo item deleted", logger.Int64("key", id))
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started": s.started,
		"store":   s.storeKind,
	}

	if s.started {
		if count, err := s.store.Count(context.Background()); err == nil {
			stats["itemCount"] = count
		}
	}

	return stats
}
