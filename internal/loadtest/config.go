// Package loadtest drives a running todo API with concurrent create,
// update, list and delete traffic and checks the results.
package loadtest

import "time"

// Config holds configuration for a load test run.
type Config struct {
	BaseURL    string        // Base URL of the service
	NumItems   int           // Number of items to create
	StartKey   int64         // First key used; keys are StartKey..StartKey+NumItems-1
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // Optional JSON file receiving the generated items
	KeepItems  bool          // Skip the delete phase
}

// Stats holds run statistics.
type Stats struct {
	Generated int
	Created   int
	Conflicts int
	Updated   int
	Deleted   int
	Failed    int
	Listed    int
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}

// outcome classifies a single request.
type outcome int

const (
	outcomeOK outcome = iota
	outcomeConflict
	outcomeFailed
)

// Defaults applied by Run to zero fields.
const (
	DefaultNumItems = 1000
	DefaultStartKey = 1_000_000
	DefaultWorkers  = 8
	DefaultTimeout  = 10 * time.Second

	workerChannelMultiplier = 2
	filePermission          = 0o600
)

func (c *Config) withDefaults() Config {
	out := *c
	if out.NumItems <= 0 {
		out.NumItems = DefaultNumItems
	}
	if out.StartKey == 0 {
		out.StartKey = DefaultStartKey
	}
	if out.Workers <= 0 {
		out.Workers = DefaultWorkers
	}
	if out.Timeout <= 0 {
		out.Timeout = DefaultTimeout
	}
	return out
}
