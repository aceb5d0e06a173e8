// Package scheduler holds the data model for persisted recurring triggers.
// The scheduling engine itself lives in internal/infrastructure/scheduler.
package scheduler

import (
	"time"

	"github.com/flowctl/flowctl/internal/domain/pipeline"
)

// Entry is a persisted record pairing a cron trigger with a full pipeline
// snapshot, so that entries survive restart without reloading
// configuration files.
type Entry struct {
	ID      string
	Pipeline pipeline.Pipeline
	Trigger  pipeline.Trigger
	Enabled  bool
}

// Status is a best-effort snapshot of the scheduler's running state.
type Status struct {
	Running    bool
	EntryCount int
	NextRuns   []time.Time
}
