package file

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	domainexec "github.com/flowctl/flowctl/internal/domain/execution"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "state.json"))
}

func TestStoreSetGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "foo", []byte("bar")))

	v, ok, err := store.Get(ctx, "foo")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "bar", string(v))
}

func TestStoreGetMissingKey(t *testing.T) {
	store := newTestStore(t)
	_, ok, err := store.Get(context.Background(), "missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStoreDeleteRemovesKey(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "foo", []byte("bar")))
	require.NoError(t, store.Delete(ctx, "foo"))

	_, ok, err := store.Get(ctx, "foo")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStoreListReturnsSortedPrefixMatches(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "scheduler:job:b", []byte("1")))
	require.NoError(t, store.Set(ctx, "scheduler:job:a", []byte("1")))
	require.NoError(t, store.Set(ctx, "other:key", []byte("1")))

	keys, err := store.List(ctx, "scheduler:job:")
	require.NoError(t, err)
	require.Equal(t, []string{"scheduler:job:a", "scheduler:job:b"}, keys)
}

func TestStoreSavePipelineRunAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run := &domainexec.PipelineRun{ID: "run-1", PipelineName: "demo", Status: domainexec.RunRunning, StartedAt: time.Now()}
	require.NoError(t, store.SavePipelineRun(ctx, run))

	got, err := store.GetPipelineRun(ctx, "run-1")
	require.NoError(t, err)
	require.Equal(t, "demo", got.PipelineName)
}

func TestStoreSavePipelineRunUpserts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run := &domainexec.PipelineRun{ID: "run-1", PipelineName: "demo", Status: domainexec.RunRunning, StartedAt: time.Now()}
	require.NoError(t, store.SavePipelineRun(ctx, run))

	run.Status = domainexec.RunSuccess
	require.NoError(t, store.SavePipelineRun(ctx, run))

	got, err := store.GetPipelineRun(ctx, "run-1")
	require.NoError(t, err)
	require.Equal(t, domainexec.RunSuccess, got.Status)

	runs, err := store.GetPipelineRuns(ctx, "demo", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
}

func TestStoreGetPipelineRunsDefaultsLimitWhenNonPositive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		run := &domainexec.PipelineRun{
			ID: fmt.Sprintf("run-%d", i), PipelineName: "demo",
			Status: domainexec.RunSuccess, StartedAt: time.Now().Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, store.SavePipelineRun(ctx, run))
	}

	runs, err := store.GetPipelineRuns(ctx, "demo", 0)
	require.NoError(t, err)
	require.Len(t, runs, 5)
}

func TestStoreCleanupOldRunsRemovesExpired(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	old := &domainexec.PipelineRun{ID: "old", PipelineName: "demo", StartedAt: time.Now().AddDate(0, 0, -30)}
	recent := &domainexec.PipelineRun{ID: "recent", PipelineName: "demo", StartedAt: time.Now()}
	require.NoError(t, store.SavePipelineRun(ctx, old))
	require.NoError(t, store.SavePipelineRun(ctx, recent))

	removed, err := store.CleanupOldRuns(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	_, err = store.GetPipelineRun(ctx, "old")
	require.Error(t, err)
	_, err = store.GetPipelineRun(ctx, "recent")
	require.NoError(t, err)
}

func TestStorePersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	ctx := context.Background()

	first := NewStore(path)
	require.NoError(t, first.Set(ctx, "foo", []byte("bar")))

	second := NewStore(path)
	v, ok, err := second.Get(ctx, "foo")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "bar", string(v))
}
