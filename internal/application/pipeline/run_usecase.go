// Package pipeline hosts the application-layer use cases that coordinate
// the Parser, Executor, State Store, and Notifier ports into the
// end-to-end flows the CLI exposes.
package pipeline

import (
	"context"

	"github.com/google/uuid"

	domainexec "github.com/flowctl/flowctl/internal/domain/execution"
	domainpipeline "github.com/flowctl/flowctl/internal/domain/pipeline"
	"github.com/flowctl/flowctl/internal/ports"
)

// RunUseCase loads, validates, executes, and notifies on a single pipeline
// run. Notifier fan-out lives here rather than in the Executor because the
// Executor has no notion of which sinks are configured for a run — only
// this layer, which owns the configured SinkConfig list, does.
type RunUseCase struct {
	loader   ports.ConfigLoader
	executor ports.Executor
	notifier ports.Notifier
	events   ports.EventPublisher
	logger   ports.Logger
	sinks    []ports.SinkConfig
}

// NewRunUseCase wires a RunUseCase. sinks is the list of notification
// targets consulted after every run, each filtered by its own "on" list.
func NewRunUseCase(loader ports.ConfigLoader, executor ports.Executor, notifier ports.Notifier, events ports.EventPublisher, logger ports.Logger, sinks []ports.SinkConfig) *RunUseCase {
	return &RunUseCase{loader: loader, executor: executor, notifier: notifier, events: events, logger: logger, sinks: sinks}
}

// Run loads the pipeline at configPath, rejects it if strict parsing
// surfaced errors, then executes it to completion and notifies every
// configured sink of the terminal outcome.
func (u *RunUseCase) Run(ctx context.Context, configPath string, strict bool) (*domainexec.PipelineRun, *ports.ParseResult, error) {
	result, err := u.loader.Load(ctx, configPath, strict)
	if err != nil {
		if u.logger != nil {
			u.logger.Warn(ctx, "failed to load pipeline config", "config_path", configPath, "error", err.Error())
		}
		return nil, result, err
	}
	if result.Pipeline == nil {
		return nil, result, nil
	}

	executionID := uuid.NewString()
	trigger := domainpipeline.ManualTrigger()

	u.publish(ctx, ports.EventPipelineStarted, map[string]interface{}{
		"pipeline":     result.Pipeline.Name,
		"execution_id": executionID,
	})

	run, err := u.executor.ExecutePipeline(ctx, result.Pipeline, executionID, trigger)
	if err != nil {
		u.publish(ctx, ports.EventPipelineFailed, map[string]interface{}{
			"pipeline":     result.Pipeline.Name,
			"execution_id": executionID,
			"error":        err.Error(),
		})
		u.notifyAll(ctx, ports.EventPipelineFailed, result.Pipeline.Name, executionID, err.Error())
		return run, result, err
	}

	u.emitTaskEvents(ctx, result.Pipeline.Name, executionID, run)

	finalEvent := ports.EventPipelineSucceeded
	message := "pipeline " + result.Pipeline.Name + " succeeded"
	if run.Status != domainexec.RunSuccess {
		finalEvent = ports.EventPipelineFailed
		message = "pipeline " + result.Pipeline.Name + " " + string(run.Status)
	}
	u.publish(ctx, finalEvent, map[string]interface{}{
		"pipeline":     result.Pipeline.Name,
		"execution_id": executionID,
		"status":       string(run.Status),
	})
	u.notifyAll(ctx, finalEvent, result.Pipeline.Name, executionID, message)

	return run, result, nil
}

func (u *RunUseCase) emitTaskEvents(ctx context.Context, pipelineName, executionID string, run *domainexec.PipelineRun) {
	for _, te := range run.Tasks {
		if te.Status != domainexec.TaskFailed {
			continue
		}
		errMsg := ""
		if te.Result != nil {
			errMsg = te.Result.Error
		}
		u.publish(ctx, ports.EventTaskFailed, map[string]interface{}{
			"pipeline":     pipelineName,
			"execution_id": executionID,
			"task_id":      te.TaskID,
			"error":        errMsg,
		})
		u.notifyOne(ctx, ports.EventTaskFailed, pipelineName, executionID, te.TaskID, errMsg)
	}
}

func (u *RunUseCase) notifyAll(ctx context.Context, event ports.NotifyEvent, pipelineName, executionID, message string) {
	u.notifyOne(ctx, event, pipelineName, executionID, "", message)
}

func (u *RunUseCase) notifyOne(ctx context.Context, event ports.NotifyEvent, pipelineName, executionID, taskID, message string) {
	if u.notifier == nil {
		return
	}
	notifyCtx := ports.NotifyContext{
		Event:        event,
		PipelineName: pipelineName,
		ExecutionID:  executionID,
		TaskID:       taskID,
		Message:      message,
	}
	for _, sink := range u.sinks {
		results := u.notifier.Send(ctx, sink, notifyCtx)
		for _, r := range results {
			if !r.Success && u.logger != nil {
				u.logger.Warn(ctx, "notification delivery failed", "service", r.Service, "error", r.Error)
			}
		}
	}
}

func (u *RunUseCase) publish(ctx context.Context, event ports.NotifyEvent, payload map[string]interface{}) {
	if u.events == nil {
		return
	}
	if err := u.events.Publish(ctx, runEvent{eventType: string(event), payload: payload}); err != nil && u.logger != nil {
		u.logger.Warn(ctx, "failed to publish domain event", "event_type", string(event), "error", err.Error())
	}
}

type runEvent struct {
	eventType string
	payload   map[string]interface{}
}

func (e runEvent) EventType() string                { return e.eventType }
func (e runEvent) Payload() map[string]interface{} { return e.payload }

var _ ports.DomainEvent = runEvent{}
