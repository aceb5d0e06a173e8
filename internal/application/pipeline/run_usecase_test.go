package pipeline

import (
	"context"
	"errors"
	"testing"

	domainexec "github.com/flowctl/flowctl/internal/domain/execution"
	domainpipeline "github.com/flowctl/flowctl/internal/domain/pipeline"
	domainplugin "github.com/flowctl/flowctl/internal/domain/plugin"
	"github.com/flowctl/flowctl/internal/infrastructure/events"
	"github.com/flowctl/flowctl/internal/infrastructure/logging"
	"github.com/flowctl/flowctl/internal/ports"
	"github.com/stretchr/testify/require"
)

type stubLoader struct {
	result *ports.ParseResult
	err    error
}

func (l *stubLoader) Load(ctx context.Context, path string, strict bool) (*ports.ParseResult, error) {
	return l.result, l.err
}

type stubExecutor struct {
	run *domainexec.PipelineRun
	err error
}

func (e *stubExecutor) ExecutePipeline(ctx context.Context, p *domainpipeline.Pipeline, executionID string, trigger domainpipeline.Trigger) (*domainexec.PipelineRun, error) {
	if e.err != nil {
		return nil, e.err
	}
	run := *e.run
	run.ID = executionID
	return &run, nil
}
func (e *stubExecutor) Cancel(executionID string) bool { return false }

type stubNotifier struct {
	sent []ports.NotifyContext
}

func (n *stubNotifier) Register(sink ports.NotifierSink) {}
func (n *stubNotifier) Send(ctx context.Context, config ports.SinkConfig, notifyCtx ports.NotifyContext) []ports.NotifyResult {
	n.sent = append(n.sent, notifyCtx)
	return []ports.NotifyResult{{Success: true, Service: config.Type}}
}

func samplePipeline() *domainpipeline.Pipeline {
	return &domainpipeline.Pipeline{Name: "demo", Version: "1", Tasks: []domainpipeline.Task{{ID: "a", Plugin: "http", Enabled: true}}}
}

func TestRunUseCaseSucceedsAndNotifies(t *testing.T) {
	loader := &stubLoader{result: &ports.ParseResult{Pipeline: samplePipeline()}}
	executor := &stubExecutor{run: &domainexec.PipelineRun{PipelineName: "demo", Status: domainexec.RunSuccess}}
	notifier := &stubNotifier{}
	pub := events.NewLoggingPublisher(logging.NewNoOpLogger())

	uc := NewRunUseCase(loader, executor, notifier, pub, logging.NewNoOpLogger(), []ports.SinkConfig{
		{Type: "log", On: []ports.NotifyEvent{ports.EventPipelineSucceeded, ports.EventPipelineFailed}},
	})

	run, result, err := uc.Run(context.Background(), "pipeline.yaml", true)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Equal(t, domainexec.RunSuccess, run.Status)
	require.Len(t, notifier.sent, 1)
	require.Equal(t, ports.EventPipelineSucceeded, notifier.sent[0].Event)
}

func TestRunUseCaseLoaderErrorShortCircuits(t *testing.T) {
	loader := &stubLoader{err: errors.New("bad config")}
	uc := NewRunUseCase(loader, &stubExecutor{}, &stubNotifier{}, nil, logging.NewNoOpLogger(), nil)

	run, _, err := uc.Run(context.Background(), "pipeline.yaml", true)
	require.Error(t, err)
	require.Nil(t, run)
}

func TestRunUseCaseNilPipelineReturnsResultWithoutExecuting(t *testing.T) {
	loader := &stubLoader{result: &ports.ParseResult{Errors: []string{"pipeline: missing required key"}}}
	executor := &stubExecutor{run: &domainexec.PipelineRun{}}
	uc := NewRunUseCase(loader, executor, &stubNotifier{}, nil, logging.NewNoOpLogger(), nil)

	run, result, err := uc.Run(context.Background(), "pipeline.yaml", false)
	require.NoError(t, err)
	require.Nil(t, run)
	require.NotEmpty(t, result.Errors)
}

func TestRunUseCaseExecutorErrorNotifiesFailure(t *testing.T) {
	loader := &stubLoader{result: &ports.ParseResult{Pipeline: samplePipeline()}}
	executor := &stubExecutor{err: errors.New("deadlock")}
	notifier := &stubNotifier{}
	uc := NewRunUseCase(loader, executor, notifier, nil, logging.NewNoOpLogger(), []ports.SinkConfig{
		{Type: "log", On: []ports.NotifyEvent{ports.EventPipelineFailed}},
	})

	_, _, err := uc.Run(context.Background(), "pipeline.yaml", true)
	require.Error(t, err)
	require.Len(t, notifier.sent, 1)
	require.Equal(t, ports.EventPipelineFailed, notifier.sent[0].Event)
}

func TestRunUseCaseEmitsTaskFailedEvents(t *testing.T) {
	loader := &stubLoader{result: &ports.ParseResult{Pipeline: samplePipeline()}}
	run := &domainexec.PipelineRun{
		PipelineName: "demo",
		Status:       domainexec.RunFailed,
		Tasks: []domainexec.TaskExecution{
			{TaskID: "a", Status: domainexec.TaskFailed, Result: &domainplugin.Result{Error: "boom"}},
		},
	}
	executor := &stubExecutor{run: run}
	notifier := &stubNotifier{}
	uc := NewRunUseCase(loader, executor, notifier, nil, logging.NewNoOpLogger(), []ports.SinkConfig{
		{Type: "log", On: []ports.NotifyEvent{ports.EventTaskFailed, ports.EventPipelineFailed}},
	})

	_, _, err := uc.Run(context.Background(), "pipeline.yaml", true)
	require.NoError(t, err)
	require.Len(t, notifier.sent, 2)
	require.Equal(t, ports.EventTaskFailed, notifier.sent[0].Event)
	require.Equal(t, ports.EventPipelineFailed, notifier.sent[1].Event)
}
