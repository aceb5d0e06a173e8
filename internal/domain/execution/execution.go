// Package execution holds the mutable runtime records produced while a
// pipeline.Pipeline is executed: the per-task TaskExecution and the
// enclosing PipelineRun.
package execution

import (
	"time"

	"github.com/flowctl/flowctl/internal/domain/pipeline"
	"github.com/flowctl/flowctl/internal/domain/plugin"
)

// TaskStatus is the lifecycle state of a single TaskExecution.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskSuccess   TaskStatus = "success"
	TaskFailed    TaskStatus = "failed"
	TaskSkipped   TaskStatus = "skipped"
	TaskCancelled TaskStatus = "cancelled"
)

// IsTerminal reports whether the status will not change again without
// external intervention (a retry resets it back to TaskPending).
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskSuccess, TaskFailed, TaskSkipped, TaskCancelled:
		return true
	default:
		return false
	}
}

// SatisfiesDependency reports whether a task in this status counts as
// satisfied for the purpose of releasing its dependents.
func (s TaskStatus) SatisfiesDependency() bool {
	return s == TaskSuccess || s == TaskSkipped
}

// TaskExecution is the mutable runtime record of a Task within one
// PipelineRun.
type TaskExecution struct {
	TaskID      string
	Status      TaskStatus
	StartedAt   *time.Time
	CompletedAt *time.Time
	Attempts    int
	Result      *plugin.Result
}

// RunStatus is the terminal (or in-flight) status of a PipelineRun.
type RunStatus string

const (
	RunRunning        RunStatus = "running"
	RunSuccess        RunStatus = "success"
	RunFailed         RunStatus = "failed"
	RunCancelled      RunStatus = "cancelled"
	RunPartialSuccess RunStatus = "partial_success"
)

// PipelineRun is the mutable record of one pipeline execution.
type PipelineRun struct {
	ID           string
	PipelineName string
	Status       RunStatus
	StartedAt    time.Time
	CompletedAt  *time.Time
	Tasks        []TaskExecution
	Trigger      pipeline.Trigger
	Error        string
}

// TaskExecution looks up the execution record for a task id.
func (r *PipelineRun) TaskExecution(taskID string) (*TaskExecution, bool) {
	for i := range r.Tasks {
		if r.Tasks[i].TaskID == taskID {
			return &r.Tasks[i], true
		}
	}
	return nil, false
}

// AssignFinalStatus computes the run's terminal status from its tasks'
// statuses per the status-assignment table: any failed task fails the
// run; an all-skipped run is cancelled; a task still running at exit is
// reported as the "running (bug)" condition rather than silently
// swallowed; otherwise the run succeeded.
func AssignFinalStatus(tasks []TaskExecution) RunStatus {
	if len(tasks) == 0 {
		return RunSuccess
	}

	anyFailed := false
	anyRunning := false
	allSkipped := true

	for _, t := range tasks {
		switch t.Status {
		case TaskFailed:
			anyFailed = true
			allSkipped = false
		case TaskRunning, TaskPending:
			anyRunning = true
			allSkipped = false
		case TaskSkipped:
			// leaves allSkipped unchanged
		default:
			allSkipped = false
		}
	}

	switch {
	case anyFailed:
		return RunFailed
	case allSkipped:
		return RunCancelled
	case anyRunning:
		return RunRunning
	default:
		return RunSuccess
	}
}
