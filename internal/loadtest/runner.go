package loadtest

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/juju/errors"

	"github.com/okian/todoapi/internal/domain/model"
	"github.com/okian/todoapi/pkg/logger"
)

// Run executes the complete load test and returns its statistics. A
// non-nil error means the service misbehaved or could not be reached.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	cfg := config.withDefaults()
	log := logger.Named("loadtest")
	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting todo load test",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("items", cfg.NumItems),
		logger.Int64("startKey", cfg.StartKey),
		logger.Int("workers", cfg.Workers),
		logger.String("timeout", cfg.Timeout.String()),
	)

	c := newClient(cfg.BaseURL, cfg.Timeout)

	// Step 1: Check service health
	if err := c.health(ctx); err != nil {
		return stats, errors.Annotate(err, "service health check failed")
	}

	// Step 2: Generate items
	items := generateItems(cfg)
	stats.Generated = len(items)
	if cfg.OutputFile != "" {
		if err := saveItemsToFile(cfg.OutputFile, items); err != nil {
			log.Warn(ctx, "failed to save items to file", logger.Error(err))
		}
	}

	// Step 3: Create items concurrently
	created := runPool(ctx, cfg.Workers, items, c.create)
	stats.Created = int(created.ok)
	stats.Conflicts = int(created.conflict)
	stats.Failed += int(created.failed)
	log.Info(ctx, "create phase completed",
		logger.Int("created", stats.Created),
		logger.Int("conflicts", stats.Conflicts),
		logger.Int64("failed", created.failed),
	)
	if created.conflict > 0 || created.failed > 0 {
		return finish(stats), errors.Errorf("create phase: %d conflicts, %d failures", created.conflict, created.failed)
	}

	// Step 4: Complete every other item
	updated := runPool(ctx, cfg.Workers, completeEveryOther(items), c.update)
	stats.Updated = int(updated.ok)
	stats.Failed += int(updated.failed)
	if updated.failed > 0 {
		return finish(stats), errors.Errorf("update phase: %d failures", updated.failed)
	}

	// Step 5: Verify the listing
	listed, err := c.list(ctx)
	if err != nil {
		return finish(stats), errors.Annotate(err, "listing items")
	}
	stats.Listed = len(listed)
	if err := verifyListing(listed, items); err != nil {
		return finish(stats), errors.Annotate(err, "verifying listing")
	}

	if cfg.KeepItems {
		displayFinalStats(ctx, log, finish(stats))
		return stats, nil
	}

	// Step 6: Delete everything created
	deleted := runPool(ctx, cfg.Workers, items, c.remove)
	stats.Deleted = int(deleted.ok)
	stats.Failed += int(deleted.failed)
	if deleted.failed > 0 {
		return finish(stats), errors.Errorf("delete phase: %d failures", deleted.failed)
	}

	// Step 7: Verify nothing is left behind
	listed, err = c.list(ctx)
	if err != nil {
		return finish(stats), errors.Annotate(err, "listing items after delete")
	}
	if err := verifyGone(listed, cfg.StartKey, cfg.NumItems); err != nil {
		return finish(stats), err
	}

	displayFinalStats(ctx, log, finish(stats))
	log.Info(ctx, "load test completed successfully")
	return stats, nil
}

func finish(stats *Stats) *Stats {
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	return stats
}

// saveItemsToFile writes the generated items as a JSON array.
func saveItemsToFile(filename string, items []model.TodoItem) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return errors.Annotate(err, "creating directory")
		}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return errors.Annotate(err, "marshalling items")
	}
	return errors.Trace(os.WriteFile(filename, data, filePermission))
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var requestsPerSecond float64
	requests := stats.Created + stats.Conflicts + stats.Updated + stats.Deleted + stats.Failed
	if stats.Duration > 0 {
		requestsPerSecond = float64(requests) / stats.Duration.Seconds()
	}

	log.Info(ctx, "final statistics",
		logger.Int("generated", stats.Generated),
		logger.Int("created", stats.Created),
		logger.Int("updated", stats.Updated),
		logger.Int("deleted", stats.Deleted),
		logger.Int("failed", stats.Failed),
		logger.Int("listed", stats.Listed),
		logger.String("duration", stats.Duration.String()),
		logger.Any("requestsPerSecond", requestsPerSecond),
	)
}
