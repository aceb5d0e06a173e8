package scheduler

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	domainexec "github.com/flowctl/flowctl/internal/domain/execution"
	"github.com/flowctl/flowctl/internal/domain/pipeline"
	domainscheduler "github.com/flowctl/flowctl/internal/domain/scheduler"
	"github.com/flowctl/flowctl/internal/infrastructure/logging"
	"github.com/flowctl/flowctl/internal/infrastructure/store/file"
	"github.com/stretchr/testify/require"
)

type fakeExecutor struct {
	mu    sync.Mutex
	calls int
	block chan struct{}
}

func (e *fakeExecutor) ExecutePipeline(ctx context.Context, p *pipeline.Pipeline, executionID string, trigger pipeline.Trigger) (*domainexec.PipelineRun, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.block != nil {
		<-e.block
	}
	return &domainexec.PipelineRun{ID: executionID, PipelineName: p.Name, Status: domainexec.RunSuccess, Trigger: trigger}, nil
}

func (e *fakeExecutor) Cancel(executionID string) bool { return false }

func (e *fakeExecutor) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func newTestScheduler(t *testing.T, exec *fakeExecutor) (*Scheduler, *file.Store) {
	t.Helper()
	store := file.NewStore(filepath.Join(t.TempDir(), "state.json"))
	return NewScheduler(store, exec, logging.NewNoOpLogger()), store
}

func demoPipeline() pipeline.Pipeline {
	return pipeline.Pipeline{
		Name:    "demo",
		Version: "1",
		Tasks:   []pipeline.Task{{ID: "a", Plugin: "http", Enabled: true}},
	}
}

func cronTrigger(expr string) pipeline.Trigger {
	return pipeline.Trigger{Type: pipeline.TriggerCron, Cron: &pipeline.CronConfig{Expression: expr}}
}

func TestSchedulerSchedulePipelineRejectsNonCronTrigger(t *testing.T) {
	s, _ := newTestScheduler(t, &fakeExecutor{})
	_, err := s.SchedulePipeline(context.Background(), demoPipeline(), pipeline.ManualTrigger())
	require.Error(t, err)
}

func TestSchedulerSchedulePipelinePersistsEntry(t *testing.T) {
	s, store := newTestScheduler(t, &fakeExecutor{})
	ctx := context.Background()

	id, err := s.SchedulePipeline(ctx, demoPipeline(), cronTrigger("0 * * * *"))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	_, ok, err := store.Get(ctx, schedulerKey(id))
	require.NoError(t, err)
	require.True(t, ok)

	status := s.GetStatus()
	require.Equal(t, 1, status.EntryCount)
}

func TestSchedulerUnschedulePipelineRemovesEntry(t *testing.T) {
	s, store := newTestScheduler(t, &fakeExecutor{})
	ctx := context.Background()

	id, err := s.SchedulePipeline(ctx, demoPipeline(), cronTrigger("0 * * * *"))
	require.NoError(t, err)

	removed, err := s.UnschedulePipeline(ctx, id)
	require.NoError(t, err)
	require.True(t, removed)

	_, ok, err := store.Get(ctx, schedulerKey(id))
	require.NoError(t, err)
	require.False(t, ok)

	require.Equal(t, 0, s.GetStatus().EntryCount)
}

func TestSchedulerUnschedulePipelineUnknownIDReturnsFalse(t *testing.T) {
	s, _ := newTestScheduler(t, &fakeExecutor{})
	removed, err := s.UnschedulePipeline(context.Background(), "missing")
	require.NoError(t, err)
	require.False(t, removed)
}

func TestSchedulerStartReArmsPersistedEntries(t *testing.T) {
	exec := &fakeExecutor{}
	s, store := newTestScheduler(t, exec)
	ctx := context.Background()

	raw, err := json.Marshal(newEntry("re-armed", demoPipeline(), cronTrigger("0 * * * *")))
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, schedulerKey("re-armed"), raw))

	require.NoError(t, s.Start(ctx))
	defer s.Stop()

	require.Equal(t, 1, s.GetStatus().EntryCount)
	require.True(t, s.GetStatus().Running)
}

func TestSchedulerStartIsIdempotent(t *testing.T) {
	s, _ := newTestScheduler(t, &fakeExecutor{})
	ctx := context.Background()
	require.NoError(t, s.Start(ctx))
	defer s.Stop()
	require.NoError(t, s.Start(ctx))
	require.True(t, s.GetStatus().Running)
}

func TestSchedulerStopMarksNotRunning(t *testing.T) {
	s, _ := newTestScheduler(t, &fakeExecutor{})
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop())
	require.False(t, s.GetStatus().Running)
}

func TestSchedulerFireInvokesExecutor(t *testing.T) {
	exec := &fakeExecutor{}
	s, _ := newTestScheduler(t, exec)

	armed := &armedEntry{entry: newEntry("e1", demoPipeline(), cronTrigger("0 * * * *"))}
	s.fire(armed)

	require.Equal(t, 1, exec.callCount())
}

func TestSchedulerFireDropsConcurrentFireOfSameEntry(t *testing.T) {
	exec := &fakeExecutor{block: make(chan struct{})}
	s, _ := newTestScheduler(t, exec)

	armed := &armedEntry{entry: newEntry("e1", demoPipeline(), cronTrigger("0 * * * *"))}

	done := make(chan struct{})
	go func() {
		s.fire(armed)
		close(done)
	}()

	require.Eventually(t, func() bool { return exec.callCount() == 1 }, time.Second, time.Millisecond)

	s.fire(armed) // second fire while first is in flight: dropped, not queued
	require.Equal(t, 1, exec.callCount())

	close(exec.block)
	<-done
}

func TestSchedulerHousekeepingCleansUpOldRuns(t *testing.T) {
	s, store := newTestScheduler(t, &fakeExecutor{})
	ctx := context.Background()

	old := &domainexec.PipelineRun{ID: "old", PipelineName: "demo", StartedAt: time.Now().AddDate(0, 0, -40)}
	require.NoError(t, store.SavePipelineRun(ctx, old))

	s.runHousekeeping()

	_, err := store.GetPipelineRun(ctx, "old")
	require.Error(t, err)
}

func newEntry(id string, p pipeline.Pipeline, trigger pipeline.Trigger) domainscheduler.Entry {
	return domainscheduler.Entry{ID: id, Pipeline: p, Trigger: trigger, Enabled: true}
}
