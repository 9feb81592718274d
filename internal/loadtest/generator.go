package loadtest

import (
	"github.com/google/uuid"

	"github.com/okian/todoapi/internal/domain/model"
)

// generateItems builds NumItems items with consecutive keys and unique names.
func generateItems(cfg Config) []model.TodoItem {
	items := make([]model.TodoItem, cfg.NumItems)
	for i := range items {
		items[i] = model.TodoItem{
			Key:  cfg.StartKey + int64(i),
			Name: "load-" + uuid.NewString(),
		}
	}
	return items
}

// completeEveryOther marks items at even indexes complete and returns them.
func completeEveryOther(items []model.TodoItem) []model.TodoItem {
	updated := make([]model.TodoItem, 0, (len(items)+1)/2)
	for i := 0; i < len(items); i += 2 {
		items[i].IsComplete = true
		updated = append(updated, items[i])
	}
	return updated
}
