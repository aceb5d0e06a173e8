// Package engine implements the Pipeline Executor: the level-by-level,
// concurrency-gated scheduler that drives a validated pipeline.Pipeline
// to a terminal PipelineRun.
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	domainexec "github.com/flowctl/flowctl/internal/domain/execution"
	"github.com/flowctl/flowctl/internal/domain/pipeline"
	domainplugin "github.com/flowctl/flowctl/internal/domain/plugin"
	"github.com/flowctl/flowctl/internal/infrastructure/logging"
	"github.com/flowctl/flowctl/internal/ports"
	apperrors "github.com/flowctl/flowctl/pkg/errors"
)

// defaultTaskTimeoutMs is the deadline applied to a task that declares no
// timeout of its own.
const defaultTaskTimeoutMs = int64(30_000)

// Executor implements ports.Executor. It holds a single token-bucket
// concurrency gate for the lifetime of one pipeline run — unlike a
// per-level semaphore, the same gate is shared across every wave of the
// ready-set loop, so a slow retry in one wave does not grant extra
// parallelism to the next.
type Executor struct {
	registry ports.PluginRegistry
	store    ports.StateStore
	logger   ports.Logger

	defaultTaskTimeoutMs int64

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// ExecutorOption configures an Executor instance.
type ExecutorOption func(*Executor)

// WithExecutorLogger injects a logger.
func WithExecutorLogger(logger ports.Logger) ExecutorOption {
	return func(e *Executor) { e.logger = logger }
}

// WithExecutorDefaultTaskTimeout overrides the deadline applied to tasks
// that declare no timeout of their own.
func WithExecutorDefaultTaskTimeout(ms int64) ExecutorOption {
	return func(e *Executor) { e.defaultTaskTimeoutMs = ms }
}

// NewExecutor constructs an Executor around a plugin registry and state
// store.
func NewExecutor(registry ports.PluginRegistry, store ports.StateStore, opts ...ExecutorOption) *Executor {
	e := &Executor{
		registry:             registry,
		store:                store,
		logger:               logging.NewNoOpLogger(),
		defaultTaskTimeoutMs: defaultTaskTimeoutMs,
		cancels:              make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExecutePipeline drives p to a terminal PipelineRun. It never returns an
// error for task-level failure; it returns an error only for a deadlocked
// dependency graph, which indicates the Parser's DAG validation was
// bypassed.
func (e *Executor) ExecutePipeline(ctx context.Context, p *pipeline.Pipeline, executionID string, trigger pipeline.Trigger) (*domainexec.PipelineRun, error) {
	runCtx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.cancels[executionID] = cancel
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		delete(e.cancels, executionID)
		e.mu.Unlock()
		cancel()
	}()

	run := &domainexec.PipelineRun{
		ID:           executionID,
		PipelineName: p.Name,
		Status:       domainexec.RunRunning,
		StartedAt:    time.Now().UTC(),
		Trigger:      trigger,
	}
	for _, t := range p.Tasks {
		status := domainexec.TaskPending
		if !t.Enabled {
			status = domainexec.TaskSkipped
		}
		run.Tasks = append(run.Tasks, domainexec.TaskExecution{TaskID: t.ID, Status: status})
	}
	e.persist(runCtx, run)

	concurrency := p.Concurrency
	if concurrency <= 0 {
		concurrency = pipeline.DefaultConcurrency
	}
	gate := make(chan struct{}, concurrency)

	var deadlockErr error
	for {
		if allTerminal(run) {
			break
		}
		if runCtx.Err() != nil {
			markRemainingCancelled(run)
			break
		}

		ready := readyTasks(p, run)
		if len(ready) == 0 {
			deadlockErr = apperrors.NewExecutionError("", fmt.Errorf("deadlock: no ready tasks among %s", stuckTaskIDs(run)))
			break
		}

		var group errgroup.Group
		for _, id := range ready {
			taskID := id
			task, _ := p.GetTask(taskID)
			group.Go(func() error {
				e.runTask(runCtx, p, run, task, gate)
				return nil
			})
		}
		_ = group.Wait()

		propagateSkips(p, run)
		e.persist(runCtx, run)
	}

	if deadlockErr != nil {
		e.persist(ctx, run)
		return run, deadlockErr
	}

	if runCtx.Err() != nil {
		run.Status = domainexec.RunCancelled
	} else {
		run.Status = domainexec.AssignFinalStatus(run.Tasks)
	}
	completed := time.Now().UTC()
	run.CompletedAt = &completed
	e.persist(ctx, run)

	return run, nil
}

// Cancel requests cancellation of an in-flight execution. It refuses to
// dispatch further ready tasks and awaits already-running tasks to reach
// a terminal state; it never forcibly terminates a running plugin call.
func (e *Executor) Cancel(executionID string) bool {
	e.mu.Lock()
	cancel, ok := e.cancels[executionID]
	e.mu.Unlock()
	if !ok {
		return false
	}
	cancel()
	return true
}

func (e *Executor) runTask(runCtx context.Context, p *pipeline.Pipeline, run *domainexec.PipelineRun, task pipeline.Task, gate chan struct{}) {
	te, _ := run.TaskExecution(task.ID)
	if te == nil {
		return
	}

	select {
	case gate <- struct{}{}:
	case <-runCtx.Done():
		te.Status = domainexec.TaskCancelled
		return
	}
	defer func() { <-gate }()

	for {
		te.Status = domainexec.TaskRunning
		started := time.Now().UTC()
		te.StartedAt = &started
		te.Attempts++

		result := e.invoke(runCtx, p, run, task, te)
		te.Result = &result

		if result.Success {
			completed := time.Now().UTC()
			te.CompletedAt = &completed
			te.Status = domainexec.TaskSuccess
			return
		}

		if task.Retry != nil && te.Attempts < task.Retry.Attempts {
			te.Status = domainexec.TaskPending
			te.StartedAt = nil
			te.CompletedAt = nil

			delay := time.Duration(task.Retry.DelayMs) * time.Millisecond
			select {
			case <-time.After(delay):
				continue
			case <-runCtx.Done():
				te.Status = domainexec.TaskCancelled
				return
			}
		}

		completed := time.Now().UTC()
		te.CompletedAt = &completed
		te.Status = domainexec.TaskFailed
		return
	}
}

func (e *Executor) invoke(runCtx context.Context, p *pipeline.Pipeline, run *domainexec.PipelineRun, task pipeline.Task, te *domainexec.TaskExecution) domainplugin.Result {
	plug, ok := e.registry.Resolve(task.Plugin)
	if !ok {
		return domainplugin.Result{Success: false, Error: fmt.Sprintf("plugin %q is not registered", task.Plugin)}
	}

	timeoutMs := task.EffectiveTimeout(e.defaultTaskTimeoutMs)
	taskCtx := runCtx
	var cancelTask context.CancelFunc
	if timeoutMs > 0 {
		taskCtx, cancelTask = context.WithTimeout(runCtx, time.Duration(timeoutMs)*time.Millisecond)
	} else {
		taskCtx, cancelTask = context.WithCancel(runCtx)
	}
	defer cancelTask()

	ectx := ports.ExecutionContext{
		Pipeline:        p,
		Task:            &task,
		ExecutionID:     run.ID,
		Logger:          e.logger,
		State:           e.store,
		PreviousResults: collectPreviousResults(run),
		Variables:       p.Env,
	}

	result, err := plug.Execute(taskCtx, task.Config, ectx)
	if taskCtx.Err() == context.DeadlineExceeded {
		return domainplugin.Result{Success: false, Error: fmt.Sprintf("task exceeded timeout of %dms", timeoutMs)}
	}
	if err != nil {
		if result.Error == "" {
			result.Error = err.Error()
		}
		result.Success = false
	}
	return result
}

// persist saves run to the State Store. Per the StateError taxonomy entry,
// a failed save is logged and retried once before being given up on.
func (e *Executor) persist(ctx context.Context, run *domainexec.PipelineRun) {
	if e.store == nil {
		return
	}
	err := e.store.SavePipelineRun(ctx, run)
	if err == nil {
		return
	}
	e.logger.Warn(ctx, "failed to persist pipeline run, retrying once", "execution_id", run.ID, "error", err)

	if err := e.store.SavePipelineRun(ctx, run); err != nil {
		e.logger.Warn(ctx, "failed to persist pipeline run after retry", "execution_id", run.ID, "error", err)
	}
}

func readyTasks(p *pipeline.Pipeline, run *domainexec.PipelineRun) []string {
	var ready []string
	for _, t := range p.Tasks {
		te, ok := run.TaskExecution(t.ID)
		if !ok || te.Status != domainexec.TaskPending {
			continue
		}
		satisfied := true
		for _, dep := range t.DependsOn {
			depTE, ok := run.TaskExecution(dep)
			if !ok || !depTE.Status.SatisfiesDependency() {
				satisfied = false
				break
			}
		}
		if satisfied {
			ready = append(ready, t.ID)
		}
	}
	return ready
}

func allTerminal(run *domainexec.PipelineRun) bool {
	for _, te := range run.Tasks {
		if !te.Status.IsTerminal() {
			return false
		}
	}
	return true
}

// propagateSkips marks every not-yet-started task transitively downstream
// of a failed task as skipped, explaining which ancestor failed.
func propagateSkips(p *pipeline.Pipeline, run *domainexec.PipelineRun) {
	// failedAncestor maps every failed task, and every task skipped because
	// of one, to the failed task it traces back to.
	failedAncestor := make(map[string]string)
	for _, te := range run.Tasks {
		if te.Status == domainexec.TaskFailed {
			failedAncestor[te.TaskID] = te.TaskID
		}
	}

	changed := true
	for changed {
		changed = false
		for _, t := range p.Tasks {
			te, ok := run.TaskExecution(t.ID)
			if !ok || te.Status != domainexec.TaskPending {
				continue
			}
			for _, dep := range t.DependsOn {
				ancestor, blocked := failedAncestor[dep]
				if !blocked {
					continue
				}
				te.Status = domainexec.TaskSkipped
				te.Result = &domainplugin.Result{Success: false, Error: fmt.Sprintf("skipped: ancestor task %q failed", ancestor)}
				completed := time.Now().UTC()
				te.CompletedAt = &completed
				failedAncestor[t.ID] = ancestor
				changed = true
				break
			}
		}
	}
}

func markRemainingCancelled(run *domainexec.PipelineRun) {
	for i := range run.Tasks {
		if !run.Tasks[i].Status.IsTerminal() {
			run.Tasks[i].Status = domainexec.TaskCancelled
		}
	}
}

func stuckTaskIDs(run *domainexec.PipelineRun) string {
	var ids []string
	for _, te := range run.Tasks {
		if !te.Status.IsTerminal() {
			ids = append(ids, te.TaskID)
		}
	}
	return strings.Join(ids, ", ")
}

func collectPreviousResults(run *domainexec.PipelineRun) map[string]domainplugin.Result {
	out := make(map[string]domainplugin.Result)
	for _, te := range run.Tasks {
		if te.Status == domainexec.TaskSuccess && te.Result != nil {
			out[te.TaskID] = *te.Result
		}
	}
	return out
}

var _ ports.Executor = (*Executor)(nil)
