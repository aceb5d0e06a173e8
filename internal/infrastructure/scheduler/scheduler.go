// Package scheduler implements the Scheduler port: a persistent catalogue
// of cron-triggered Pipelines backed by a single robfig/cron/v3 instance.
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/flowctl/flowctl/internal/domain/pipeline"
	domainscheduler "github.com/flowctl/flowctl/internal/domain/scheduler"
	"github.com/flowctl/flowctl/internal/ports"
	apperrors "github.com/flowctl/flowctl/pkg/errors"
)

// schedulerKeyPrefix namespaces SchedulerEntry records within the shared
// State Store key space.
const schedulerKeyPrefix = "scheduler:job:"

func schedulerKey(entryID string) string {
	return schedulerKeyPrefix + entryID
}

// housekeepingSpec runs the retention sweep once a day at 03:17, an
// off-the-hour minute chosen to avoid colliding with on-the-hour user
// cron entries.
const housekeepingSpec = "17 3 * * *"

// armedEntry pairs a persisted entry with its live cron registration and
// an in-flight guard preventing the same entry from firing concurrently.
type armedEntry struct {
	entry    domainscheduler.Entry
	cronID   cron.EntryID
	inFlight atomic.Bool
}

// Scheduler implements ports.Scheduler over a single *cron.Cron instance.
type Scheduler struct {
	cronEngine    *cron.Cron
	store         ports.StateStore
	executor      ports.Executor
	logger        ports.Logger
	retentionDays int

	mu      sync.Mutex
	entries map[string]*armedEntry
	running bool
}

// Option customizes a Scheduler at construction.
type Option func(*Scheduler)

// WithRetentionDays overrides the default 30-day run retention window used
// by the daily housekeeping sweep.
func WithRetentionDays(days int) Option {
	return func(s *Scheduler) { s.retentionDays = days }
}

// NewScheduler constructs a Scheduler. Start must be called before any
// entry will actually fire.
func NewScheduler(store ports.StateStore, executor ports.Executor, logger ports.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		cronEngine:    cron.New(),
		store:         store,
		executor:      executor,
		logger:        logger,
		retentionDays: 30,
		entries:       make(map[string]*armedEntry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SchedulePipeline arms a new cron entry for p, valid only when trigger is
// a cron trigger.
func (s *Scheduler) SchedulePipeline(ctx context.Context, p pipeline.Pipeline, trigger pipeline.Trigger) (string, error) {
	if trigger.Type != pipeline.TriggerCron || trigger.Cron == nil {
		return "", apperrors.NewValidationError("trigger", "schedulePipeline requires a cron trigger", nil)
	}

	entry := domainscheduler.Entry{
		ID:       uuid.NewString(),
		Pipeline: p,
		Trigger:  trigger,
		Enabled:  true,
	}

	if err := s.persistEntry(ctx, entry); err != nil {
		return "", err
	}
	if err := s.arm(entry); err != nil {
		_ = s.store.Delete(ctx, schedulerKey(entry.ID))
		return "", err
	}
	return entry.ID, nil
}

// UnschedulePipeline stops and removes entryID, if present.
func (s *Scheduler) UnschedulePipeline(ctx context.Context, entryID string) (bool, error) {
	s.mu.Lock()
	armed, ok := s.entries[entryID]
	if ok {
		s.cronEngine.Remove(armed.cronID)
		delete(s.entries, entryID)
	}
	s.mu.Unlock()

	if !ok {
		return false, nil
	}
	if err := s.store.Delete(ctx, schedulerKey(entryID)); err != nil {
		return true, err
	}
	return true, nil
}

// Start loads every enabled persisted entry, re-arms its timer (entries
// already armed by SchedulePipeline in this process are left as they are),
// arms the daily housekeeping sweep, and marks the scheduler running. A
// second call is a no-op logged as a warning.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn(ctx, "scheduler already running, ignoring duplicate start")
		return nil
	}
	s.mu.Unlock()

	keys, err := s.store.List(ctx, schedulerKeyPrefix)
	if err != nil {
		return apperrors.NewStateError("scheduler_start", "", err)
	}
	for _, key := range keys {
		raw, ok, err := s.store.Get(ctx, key)
		if err != nil {
			return apperrors.NewStateError("scheduler_start", key, err)
		}
		if !ok {
			continue
		}
		var entry domainscheduler.Entry
		if err := json.Unmarshal(raw, &entry); err != nil {
			s.logger.Warn(ctx, "discarding unreadable scheduler entry", "key", key, "error", err.Error())
			continue
		}
		if !entry.Enabled {
			continue
		}
		s.mu.Lock()
		_, alreadyArmed := s.entries[entry.ID]
		s.mu.Unlock()
		if alreadyArmed {
			continue
		}
		if err := s.arm(entry); err != nil {
			s.logger.Warn(ctx, "failed to re-arm scheduler entry", "entry_id", entry.ID, "error", err.Error())
		}
	}

	s.mu.Lock()
	if _, err := s.cronEngine.AddFunc(housekeepingSpec, s.runHousekeeping); err != nil {
		s.mu.Unlock()
		return apperrors.NewExecutionError("", fmt.Errorf("arming housekeeping timer: %w", err))
	}
	s.running = true
	s.mu.Unlock()

	s.cronEngine.Start()
	return nil
}

// Stop stops every armed timer, including housekeeping, and marks the
// scheduler not running.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := s.cronEngine.Stop()
	<-ctx.Done()
	s.running = false
	return nil
}

// GetStatus returns a best-effort snapshot of the scheduler's state.
func (s *Scheduler) GetStatus() domainscheduler.Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := make(map[cron.EntryID]bool, len(s.entries))
	for _, armed := range s.entries {
		wanted[armed.cronID] = true
	}
	var next []time.Time
	for _, e := range s.cronEngine.Entries() {
		if wanted[e.ID] && !e.Next.IsZero() {
			next = append(next, e.Next)
		}
	}
	sort.Slice(next, func(i, j int) bool { return next[i].Before(next[j]) })
	if len(next) > 5 {
		next = next[:5]
	}

	return domainscheduler.Status{
		Running:    s.running,
		EntryCount: len(s.entries),
		NextRuns:   next,
	}
}

// arm registers entry with the underlying cron engine and records it in
// the in-memory catalogue. Caller must not hold s.mu.
func (s *Scheduler) arm(entry domainscheduler.Entry) error {
	spec := entry.Trigger.Cron.Expression
	if tz := entry.Trigger.Cron.Timezone; tz != "" {
		spec = fmt.Sprintf("CRON_TZ=%s %s", tz, spec)
	}

	armed := &armedEntry{entry: entry}

	s.mu.Lock()
	cronID, err := s.cronEngine.AddFunc(spec, func() { s.fire(armed) })
	if err != nil {
		s.mu.Unlock()
		return apperrors.NewValidationError("trigger.cron.expression", fmt.Sprintf("invalid cron expression %q", entry.Trigger.Cron.Expression), err)
	}
	armed.cronID = cronID
	s.entries[entry.ID] = armed
	s.mu.Unlock()
	return nil
}

// fire is invoked by the cron engine on every tick matching armed's
// expression. A tick that arrives while the previous firing of the same
// entry is still running is dropped and logged, never queued.
func (s *Scheduler) fire(armed *armedEntry) {
	if !armed.inFlight.CompareAndSwap(false, true) {
		s.logger.Warn(context.Background(), "dropping cron fire: previous run still in flight",
			"entry_id", armed.entry.ID, "pipeline", armed.entry.Pipeline.Name)
		return
	}
	defer armed.inFlight.Store(false)

	ctx := context.Background()
	executionID := uuid.NewString()
	run, err := s.executor.ExecutePipeline(ctx, &armed.entry.Pipeline, executionID, armed.entry.Trigger)
	if err != nil {
		s.logger.Error(ctx, "scheduled pipeline execution failed to start",
			"entry_id", armed.entry.ID, "pipeline", armed.entry.Pipeline.Name, "error", err.Error())
		return
	}
	s.logger.Info(ctx, "scheduled pipeline run finished",
		"entry_id", armed.entry.ID, "pipeline", armed.entry.Pipeline.Name,
		"execution_id", run.ID, "status", string(run.Status))
}

// runHousekeeping is the daily retention sweep armed by Start.
func (s *Scheduler) runHousekeeping() {
	ctx := context.Background()
	removed, err := s.store.CleanupOldRuns(ctx, s.retentionDays)
	if err != nil {
		s.logger.Error(ctx, "housekeeping sweep failed", "error", err.Error())
		return
	}
	s.logger.Info(ctx, "housekeeping sweep completed", "removed", removed)
}

func (s *Scheduler) persistEntry(ctx context.Context, entry domainscheduler.Entry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return apperrors.NewStateError("scheduler_persist", entry.ID, err)
	}
	if err := s.store.Set(ctx, schedulerKey(entry.ID), raw); err != nil {
		return apperrors.NewStateError("scheduler_persist", entry.ID, err)
	}
	return nil
}

var _ ports.Scheduler = (*Scheduler)(nil)
