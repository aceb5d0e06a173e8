// Package file implements the File State Store backend: one JSON document
// on disk holding every pipeline run and scheduler entry, serialized
// through an in-process mutex and replaced atomically.
package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	domainexec "github.com/flowctl/flowctl/internal/domain/execution"
	"github.com/flowctl/flowctl/internal/ports"
	apperrors "github.com/flowctl/flowctl/pkg/errors"
)

// document is the single JSON structure persisted to disk.
type document struct {
	PipelineRuns []*domainexec.PipelineRun `json:"pipeline_runs"`
	Values       map[string][]byte         `json:"kv"`
}

// Store implements ports.StateStore by loading, mutating, and rewriting
// one JSON file per operation, guarded by an in-process mutex.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore constructs a Store backed by the file at path. The file is
// created empty on first write if it does not yet exist.
func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) load() (*document, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return &document{Values: map[string][]byte{}}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return &document{Values: map[string][]byte{}}, nil
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Values == nil {
		doc.Values = map[string][]byte{}
	}
	return &doc, nil
}

// save writes doc to disk atomically via a temp file in the same
// directory followed by os.Rename.
func (s *Store) save(doc *document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".flowctl-state-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, s.path)
}

// Get returns the value stored under key, if any.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, false, apperrors.NewStateError("get", key, err)
	}
	v, ok := doc.Values[key]
	return v, ok, nil
}

// Set stores value under key.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return apperrors.NewStateError("set", key, err)
	}
	doc.Values[key] = value
	if err := s.save(doc); err != nil {
		return apperrors.NewStateError("set", key, err)
	}
	return nil
}

// Delete removes key, if present.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return apperrors.NewStateError("delete", key, err)
	}
	delete(doc.Values, key)
	if err := s.save(doc); err != nil {
		return apperrors.NewStateError("delete", key, err)
	}
	return nil
}

// List returns every key beginning with prefix, sorted.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, apperrors.NewStateError("list", prefix, err)
	}
	var keys []string
	for k := range doc.Values {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// SavePipelineRun upserts run by id.
func (s *Store) SavePipelineRun(ctx context.Context, run *domainexec.PipelineRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return apperrors.NewStateError("save_run", run.ID, err)
	}

	replaced := false
	for i, existing := range doc.PipelineRuns {
		if existing.ID == run.ID {
			doc.PipelineRuns[i] = run
			replaced = true
			break
		}
	}
	if !replaced {
		doc.PipelineRuns = append(doc.PipelineRuns, run)
	}

	if err := s.save(doc); err != nil {
		return apperrors.NewStateError("save_run", run.ID, err)
	}
	return nil
}

// GetPipelineRun returns the run with the given id.
func (s *Store) GetPipelineRun(ctx context.Context, id string) (*domainexec.PipelineRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, apperrors.NewStateError("get_run", id, err)
	}
	for _, run := range doc.PipelineRuns {
		if run.ID == id {
			return run, nil
		}
	}
	return nil, apperrors.NewStateError("get_run", id, os.ErrNotExist)
}

// defaultRunsLimit is applied when GetPipelineRuns is called with a
// non-positive limit.
const defaultRunsLimit = 100

// GetPipelineRuns returns up to limit runs for pipelineName, most recent
// first. limit <= 0 falls back to defaultRunsLimit.
func (s *Store) GetPipelineRuns(ctx context.Context, pipelineName string, limit int) ([]*domainexec.PipelineRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, apperrors.NewStateError("list_runs", pipelineName, err)
	}

	if limit <= 0 {
		limit = defaultRunsLimit
	}

	var matches []*domainexec.PipelineRun
	for _, run := range doc.PipelineRuns {
		if run.PipelineName == pipelineName {
			matches = append(matches, run)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].StartedAt.After(matches[j].StartedAt) })
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// CleanupOldRuns deletes every run whose StartedAt is older than
// retentionDays and returns the count removed.
func (s *Store) CleanupOldRuns(ctx context.Context, retentionDays int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return 0, apperrors.NewStateError("cleanup", "", err)
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	kept := doc.PipelineRuns[:0]
	removed := 0
	for _, run := range doc.PipelineRuns {
		if run.StartedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, run)
	}
	doc.PipelineRuns = kept

	if err := s.save(doc); err != nil {
		return 0, apperrors.NewStateError("cleanup", "", err)
	}
	return removed, nil
}

// Close is a no-op for the file backend; every operation already flushes
// to disk.
func (s *Store) Close() error { return nil }

var _ ports.StateStore = (*Store)(nil)
