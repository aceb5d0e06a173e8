package ports

import (
	"context"

	"github.com/flowctl/flowctl/internal/domain/execution"
)

// StateStore is the single mutable shared resource across components: a
// generic key/value surface plus purpose-built PipelineRun persistence.
// Both the file and relational backends satisfy this one contract.
type StateStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)

	SavePipelineRun(ctx context.Context, run *execution.PipelineRun) error
	GetPipelineRun(ctx context.Context, id string) (*execution.PipelineRun, error)
	GetPipelineRuns(ctx context.Context, pipelineName string, limit int) ([]*execution.PipelineRun, error)
	CleanupOldRuns(ctx context.Context, retentionDays int) (int, error)

	Close() error
}
