package ports

import (
	"context"

	"github.com/flowctl/flowctl/internal/domain/execution"
	"github.com/flowctl/flowctl/internal/domain/pipeline"
)

// Executor runs a Pipeline to completion under bounded concurrency. It
// never returns an error for task-level failure — that is recorded on the
// returned PipelineRun — only when no task can be released although some
// are not yet terminal (a deadlocked dependency graph, which means DAG
// validation was bypassed).
type Executor interface {
	ExecutePipeline(ctx context.Context, p *pipeline.Pipeline, executionID string, trigger pipeline.Trigger) (*execution.PipelineRun, error)
	Cancel(executionID string) bool
}

// DAGBuilder computes a level-by-level topological ordering of a
// Pipeline's tasks, used by the visualize CLI subcommand to render a
// Mermaid-style diagram.
type DAGBuilder interface {
	Build(p *pipeline.Pipeline) (*ExecutionGraph, error)
}

// ExecutionGraph is the leveled ordering of a Pipeline's tasks. Levels[0]
// contains every task with no dependencies; level i+1 contains every task
// whose dependencies are all satisfied by levels 0..i.
type ExecutionGraph struct {
	Levels [][]string
}
