// Package sqlstore implements the Relational State Store backend over
// database/sql via sqlx, with schema migrations applied through goose
// against a SQLite file.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/flowctl/flowctl/internal/domain/execution"
	"github.com/flowctl/flowctl/internal/domain/pipeline"
	domainplugin "github.com/flowctl/flowctl/internal/domain/plugin"
	"github.com/flowctl/flowctl/internal/ports"
	apperrors "github.com/flowctl/flowctl/pkg/errors"
)

// Store implements ports.StateStore against a SQLite database reached
// through database/sql, with sqlx handling scanning and binding.
type Store struct {
	db *sqlx.DB
}

// Open connects to the SQLite file at dsn, applies pending migrations,
// and returns a ready Store.
func Open(dsn string) (*Store, error) {
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, apperrors.NewStateError("open", dsn, err)
	}
	if err := goose.Up(db.DB, "migrations"); err != nil {
		return nil, apperrors.NewStateError("migrate", dsn, err)
	}
	return &Store{db: db}, nil
}

type kvRow struct {
	Key       string    `db:"key"`
	Value     []byte    `db:"value"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var row kvRow
	err := s.db.GetContext(ctx, &row, `SELECT key, value, updated_at FROM kv WHERE key = ?`, key)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperrors.NewStateError("get", key, err)
	}
	return row.Value, true, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().UTC())
	if err != nil {
		return apperrors.NewStateError("set", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return apperrors.NewStateError("delete", key, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := s.db.SelectContext(ctx, &keys, `SELECT key FROM kv WHERE key LIKE ? ORDER BY key`, prefix+"%")
	if err != nil {
		return nil, apperrors.NewStateError("list", prefix, err)
	}
	return keys, nil
}

type runRow struct {
	ID            string     `db:"id"`
	PipelineName  string     `db:"pipeline_name"`
	Status        string     `db:"status"`
	StartedAt     time.Time  `db:"started_at"`
	CompletedAt   *time.Time `db:"completed_at"`
	TriggerType   string     `db:"trigger_type"`
	TriggerConfig string     `db:"trigger_config"`
	ErrorText     string     `db:"error_text"`
}

type taskRow struct {
	RunID          string     `db:"run_id"`
	TaskID         string     `db:"task_id"`
	TaskName       string     `db:"task_name"`
	Status         string     `db:"status"`
	StartedAt      *time.Time `db:"started_at"`
	CompletedAt    *time.Time `db:"completed_at"`
	Attempts       int        `db:"attempts"`
	ResultSuccess  *bool      `db:"result_success"`
	ResultOutput   string     `db:"result_output"`
	ResultError    string     `db:"result_error"`
	ResultMetadata string     `db:"result_metadata"`
}

// SavePipelineRun upserts the run row and replaces its task rows inside a
// single transaction.
func (s *Store) SavePipelineRun(ctx context.Context, run *execution.PipelineRun) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperrors.NewStateError("save_run", run.ID, err)
	}
	defer tx.Rollback()

	triggerConfig, _ := json.Marshal(run.Trigger)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, pipeline_name, status, started_at, completed_at, trigger_type, trigger_config, error_text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			completed_at = excluded.completed_at,
			error_text = excluded.error_text
	`, run.ID, run.PipelineName, string(run.Status), run.StartedAt, run.CompletedAt, string(run.Trigger.Type), string(triggerConfig), run.Error)
	if err != nil {
		return apperrors.NewStateError("save_run", run.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE run_id = ?`, run.ID); err != nil {
		return apperrors.NewStateError("save_run", run.ID, err)
	}

	for _, te := range run.Tasks {
		var success *bool
		var output, resultErr, metadata string
		if te.Result != nil {
			success = &te.Result.Success
			if b, err := json.Marshal(te.Result.Output); err == nil {
				output = string(b)
			}
			resultErr = te.Result.Error
			if b, err := json.Marshal(te.Result.Metadata); err == nil {
				metadata = string(b)
			}
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO tasks (run_id, task_id, task_name, status, started_at, completed_at, attempts, result_success, result_output, result_error, result_metadata)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, run.ID, te.TaskID, te.TaskID, string(te.Status), te.StartedAt, te.CompletedAt, te.Attempts, success, output, resultErr, metadata)
		if err != nil {
			return apperrors.NewStateError("save_run", run.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewStateError("save_run", run.ID, err)
	}
	return nil
}

func (s *Store) GetPipelineRun(ctx context.Context, id string) (*execution.PipelineRun, error) {
	var row runRow
	err := s.db.GetContext(ctx, &row, `SELECT id, pipeline_name, status, started_at, completed_at, trigger_type, trigger_config, error_text FROM runs WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewStateError("get_run", id, sql.ErrNoRows)
	}
	if err != nil {
		return nil, apperrors.NewStateError("get_run", id, err)
	}

	var taskRows []taskRow
	if err := s.db.SelectContext(ctx, &taskRows, `SELECT run_id, task_id, task_name, status, started_at, completed_at, attempts, result_success, result_output, result_error, result_metadata FROM tasks WHERE run_id = ?`, id); err != nil {
		return nil, apperrors.NewStateError("get_run", id, err)
	}

	return hydrateRun(row, taskRows), nil
}

// defaultRunsLimit is applied when GetPipelineRuns is called with a
// non-positive limit, matching the file backend's default.
const defaultRunsLimit = 100

func (s *Store) GetPipelineRuns(ctx context.Context, pipelineName string, limit int) ([]*execution.PipelineRun, error) {
	if limit <= 0 {
		limit = defaultRunsLimit
	}
	query := `SELECT id, pipeline_name, status, started_at, completed_at, trigger_type, trigger_config, error_text FROM runs WHERE pipeline_name = ? ORDER BY started_at DESC LIMIT ?`
	args := []interface{}{pipelineName, limit}

	var rows []runRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperrors.NewStateError("list_runs", pipelineName, err)
	}

	runs := make([]*execution.PipelineRun, 0, len(rows))
	for _, row := range rows {
		var taskRows []taskRow
		if err := s.db.SelectContext(ctx, &taskRows, `SELECT run_id, task_id, task_name, status, started_at, completed_at, attempts, result_success, result_output, result_error, result_metadata FROM tasks WHERE run_id = ?`, row.ID); err != nil {
			return nil, apperrors.NewStateError("list_runs", pipelineName, err)
		}
		runs = append(runs, hydrateRun(row, taskRows))
	}
	return runs, nil
}

func (s *Store) CleanupOldRuns(ctx context.Context, retentionDays int) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	result, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, cutoff)
	if err != nil {
		return 0, apperrors.NewStateError("cleanup", "", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.NewStateError("cleanup", "", err)
	}
	return int(affected), nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func hydrateRun(row runRow, taskRows []taskRow) *execution.PipelineRun {
	run := &execution.PipelineRun{
		ID:           row.ID,
		PipelineName: row.PipelineName,
		Status:       execution.RunStatus(row.Status),
		StartedAt:    row.StartedAt,
		CompletedAt:  row.CompletedAt,
		Error:        row.ErrorText,
		Trigger:      pipeline.Trigger{Type: pipeline.TriggerType(row.TriggerType)},
	}
	_ = json.Unmarshal([]byte(row.TriggerConfig), &run.Trigger)

	for _, tr := range taskRows {
		te := execution.TaskExecution{
			TaskID:      tr.TaskID,
			Status:      execution.TaskStatus(tr.Status),
			StartedAt:   tr.StartedAt,
			CompletedAt: tr.CompletedAt,
			Attempts:    tr.Attempts,
		}
		if tr.ResultSuccess != nil {
			result := &domainplugin.Result{Error: tr.ResultError, Success: *tr.ResultSuccess}
			_ = json.Unmarshal([]byte(tr.ResultOutput), &result.Output)
			_ = json.Unmarshal([]byte(tr.ResultMetadata), &result.Metadata)
			te.Result = result
		}
		run.Tasks = append(run.Tasks, te)
	}
	return run
}

var _ ports.StateStore = (*Store)(nil)
