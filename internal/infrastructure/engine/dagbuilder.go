package engine

import (
	"sort"

	"github.com/flowctl/flowctl/internal/domain/pipeline"
	"github.com/flowctl/flowctl/internal/ports"
	apperrors "github.com/flowctl/flowctl/pkg/errors"
)

// DAGBuilder computes a level-by-level topological ordering of a
// Pipeline's tasks using Kahn's algorithm, used by the visualize CLI
// subcommand. The Executor does not use it; it computes its ready sets
// directly from task statuses.
type DAGBuilder struct{}

// NewDAGBuilder constructs a DAGBuilder.
func NewDAGBuilder() *DAGBuilder {
	return &DAGBuilder{}
}

// Build returns the Pipeline's tasks partitioned into dependency levels.
// It assumes the Pipeline has already passed DAG validation; a cycle
// found here is reported as an execution error rather than silently
// producing an incomplete graph.
func (b *DAGBuilder) Build(p *pipeline.Pipeline) (*ports.ExecutionGraph, error) {
	inDegree := make(map[string]int, len(p.Tasks))
	dependents := make(map[string][]string, len(p.Tasks))

	for _, t := range p.Tasks {
		inDegree[t.ID] = len(t.DependsOn)
		for _, dep := range t.DependsOn {
			dependents[dep] = append(dependents[dep], t.ID)
		}
	}

	remaining := len(p.Tasks)
	var levels [][]string

	frontier := make([]string, 0)
	for _, t := range p.Tasks {
		if inDegree[t.ID] == 0 {
			frontier = append(frontier, t.ID)
		}
	}
	sort.Strings(frontier)

	for len(frontier) > 0 {
		levels = append(levels, frontier)
		remaining -= len(frontier)

		next := make([]string, 0)
		for _, id := range frontier {
			for _, dependent := range dependents[id] {
				inDegree[dependent]--
				if inDegree[dependent] == 0 {
					next = append(next, dependent)
				}
			}
		}
		sort.Strings(next)
		frontier = next
	}

	if remaining != 0 {
		return nil, apperrors.NewExecutionError("", errCycleAtRuntime)
	}

	return &ports.ExecutionGraph{Levels: levels}, nil
}

var errCycleAtRuntime = cycleAtRuntimeError{}

type cycleAtRuntimeError struct{}

func (cycleAtRuntimeError) Error() string {
	return "dependency graph contains a cycle; the parser should have rejected this pipeline"
}

var _ ports.DAGBuilder = (*DAGBuilder)(nil)
