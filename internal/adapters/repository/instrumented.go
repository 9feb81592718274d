package repository

import (
	"context"
	"time"

	"github.com/juju/errors"

	"github.com/okian/todoapi/pkg/metrics"
)

// instrumentedStore records per-operation metrics around another Store.
type instrumentedStore struct {
	next    Store
	backend string
}

// Instrument wraps store so every call is counted and timed under backend.
// The item gauge is refreshed after each successful mutation.
func Instrument(store Store, backend string) Store {
	return &instrumentedStore{next: store, backend: backend}
}

func (s *instrumentedStore) observe(op string, start time.Time, err error) {
	metrics.RecordRepositoryOperation(s.backend, op, resultOf(err), float64(time.Since(start).Microseconds())/1000)
}

func (s *instrumentedStore) refreshCount(ctx context.Context) {
	if n, err := s.next.Count(ctx); err == nil {
		metrics.UpdateItemsTotal(n)
	}
}

func (s *instrumentedStore) GetAll(ctx context.Context) ([]TodoItem, error) {
	start := time.Now()
	items, err := s.next.GetAll(ctx)
	s.observe("get_all", start, err)
	return items, err
}

func (s *instrumentedStore) Find(ctx context.Context, key int64) (TodoItem, error) {
	start := time.Now()
	item, err := s.next.Find(ctx, key)
	s.observe("find", start, err)
	return item, err
}

func (s *instrumentedStore) Add(ctx context.Context, item TodoItem) error {
	start := time.Now()
	err := s.next.Add(ctx, item)
	s.observe("add", start, err)
	if err == nil {
		s.refreshCount(ctx)
	}
	return err
}

func (s *instrumentedStore) Update(ctx context.Context, item TodoItem) error {
	start := time.Now()
	err := s.next.Update(ctx, item)
	s.observe("update", start, err)
	return err
}

func (s *instrumentedStore) Remove(ctx context.Context, key int64) error {
	start := time.Now()
	err := s.next.Remove(ctx, key)
	s.observe("remove", start, err)
	if err == nil {
		s.refreshCount(ctx)
	}
	return err
}

func (s *instrumentedStore) Count(ctx context.Context) (int, error) {
	start := time.Now()
	n, err := s.next.Count(ctx)
	s.observe("count", start, err)
	if err == nil {
		metrics.UpdateItemsTotal(n)
	}
	return n, err
}

func (s *instrumentedStore) Close() error {
	return s.next.Close()
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, errors.NotFound):
		return "not_found"
	case errors.Is(err, errors.AlreadyExists):
		return "conflict"
	default:
		return "error"
	}
}
