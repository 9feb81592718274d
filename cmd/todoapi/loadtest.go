package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/todoapi/internal/loadtest"
	"github.com/okian/todoapi/pkg/logger"
)

// defaultLoadTestTimeout bounds a whole load test run.
const defaultLoadTestTimeout = 10 * time.Minute

func newLoadTestCmd() *cobra.Command {
	cfg := loadtest.Config{}

	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Drive a running server with concurrent CRUD traffic and verify the results",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(); err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), defaultLoadTestTimeout)
			defer cancel()

			stats, err := loadtest.Run(ctx, &cfg)
			if stats != nil {
				cmd.Printf("created=%d updated=%d deleted=%d failed=%d duration=%s\n",
					stats.Created, stats.Updated, stats.Deleted, stats.Failed, stats.Duration)
			}
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", "http://localhost:8080", "base URL of the service")
	f.IntVar(&cfg.NumItems, "items", loadtest.DefaultNumItems, "number of items to create")
	f.Int64Var(&cfg.StartKey, "start-key", loadtest.DefaultStartKey, "first key used by the run")
	f.IntVar(&cfg.Workers, "workers", loadtest.DefaultWorkers, "number of concurrent workers")
	f.DurationVar(&cfg.Timeout, "timeout", loadtest.DefaultTimeout, "HTTP request timeout")
	f.StringVar(&cfg.OutputFile, "output", "", "write generated items to this JSON file")
	f.BoolVar(&cfg.KeepItems, "keep", false, "keep the created items instead of deleting them")
	return cmd
}
