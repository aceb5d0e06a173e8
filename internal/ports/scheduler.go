package ports

import (
	"context"

	"github.com/flowctl/flowctl/internal/domain/pipeline"
	domainscheduler "github.com/flowctl/flowctl/internal/domain/scheduler"
)

// Scheduler is a persistent catalogue of recurring cron triggers that fire
// Pipeline executions. schedulePipeline is only valid for cron triggers.
type Scheduler interface {
	SchedulePipeline(ctx context.Context, p pipeline.Pipeline, trigger pipeline.Trigger) (string, error)
	UnschedulePipeline(ctx context.Context, entryID string) (bool, error)
	Start(ctx context.Context) error
	Stop() error
	GetStatus() domainscheduler.Status
}
