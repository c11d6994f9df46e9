package operations

import (
	"sort"
	"sync"
	"time"

	apierrors "supplypulse/internal/errors"
	"supplypulse/pkg/contracts/domain"
)

// DefaultMaxStoredRuns bounds how many finished runs the store keeps
// before evicting the oldest.
const DefaultMaxStoredRuns = 50

// RunStore is a bounded in-memory store of runs and their results.
// All reads return copies; the stored run is only ever mutated through
// Update while holding the lock.
type RunStore struct {
	mu      sync.RWMutex
	runs    map[string]*domain.Run
	results map[string]*domain.RunResult
	maxRuns int
}

// NewRunStore creates a store keeping at most maxRuns runs. A
// non-positive maxRuns falls back to DefaultMaxStoredRuns.
func NewRunStore(maxRuns int) *RunStore {
	if maxRuns <= 0 {
		maxRuns = DefaultMaxStoredRuns
	}
	return &RunStore{
		runs:    make(map[string]*domain.Run),
		results: make(map[string]*domain.RunResult),
		maxRuns: maxRuns,
	}
}

// Create registers a new run. The caller's run is copied in, so later
// mutations by the caller do not leak into the store.
func (s *RunStore) Create(run *domain.Run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = copyRun(run)
	s.evictLocked()
}

// Get returns a copy of the run, or ErrRunNotFound.
func (s *RunStore) Get(id string) (*domain.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, apierrors.ErrRunNotFound
	}
	return copyRun(run), nil
}

// List returns copies of stored runs, newest first. A zero status
// matches every run; limit <= 0 means no limit.
func (s *RunStore) List(status domain.RunStatus, limit int) []*domain.Run {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Run, 0, len(s.runs))
	for _, run := range s.runs {
		if status != "" && run.Status != status {
			continue
		}
		out = append(out, copyRun(run))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Update applies mutate to the stored run under the lock and returns a
// copy of the result. Returns ErrRunNotFound for unknown IDs.
func (s *RunStore) Update(id string, mutate func(*domain.Run)) (*domain.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, apierrors.ErrRunNotFound
	}
	mutate(run)
	return copyRun(run), nil
}

// SaveResult attaches the result tables of a completed (or partially
// completed) run. The result is stored as-is; results are written once
// and treated as immutable afterwards.
func (s *RunStore) SaveResult(id string, result *domain.RunResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[id]; !ok {
		return
	}
	s.results[id] = result
}

// Result returns the stored result for a run. ErrRunNotFound covers
// both an unknown run and a run that produced no result yet.
func (s *RunStore) Result(id string) (*domain.RunResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.results[id]
	if !ok {
		return nil, apierrors.ErrRunNotFound
	}
	return result, nil
}

// Len reports how many runs the store currently holds.
func (s *RunStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}

// evictLocked drops the oldest terminal runs once the store exceeds
// its capacity. Pending and running runs are never evicted.
func (s *RunStore) evictLocked() {
	if len(s.runs) <= s.maxRuns {
		return
	}

	type candidate struct {
		id      string
		created time.Time
	}
	var finished []candidate
	for id, run := range s.runs {
		if run.Status == domain.RunCompleted || run.Status == domain.RunFailed {
			finished = append(finished, candidate{id: id, created: run.CreatedAt})
		}
	}
	sort.Slice(finished, func(i, j int) bool {
		return finished[i].created.Before(finished[j].created)
	})

	excess := len(s.runs) - s.maxRuns
	for i := 0; i < excess && i < len(finished); i++ {
		delete(s.runs, finished[i].id)
		delete(s.results, finished[i].id)
	}
}

// copyRun deep-copies the mutable parts of a run so store reads stay
// isolated from in-place stage updates.
func copyRun(run *domain.Run) *domain.Run {
	out := *run

	out.Inputs = make([]domain.DatasetInput, len(run.Inputs))
	copy(out.Inputs, run.Inputs)

	out.Stages = make([]domain.StageState, len(run.Stages))
	for i, st := range run.Stages {
		out.Stages[i] = st
		if st.StartedAt != nil {
			t := *st.StartedAt
			out.Stages[i].StartedAt = &t
		}
		if st.EndedAt != nil {
			t := *st.EndedAt
			out.Stages[i].EndedAt = &t
		}
	}

	if run.Datasets != nil {
		out.Datasets = make(map[domain.DatasetKind]domain.DatasetStatus, len(run.Datasets))
		for k, v := range run.Datasets {
			out.Datasets[k] = v
		}
	}

	if run.StartedAt != nil {
		t := *run.StartedAt
		out.StartedAt = &t
	}
	if run.FinishedAt != nil {
		t := *run.FinishedAt
		out.FinishedAt = &t
	}
	return &out
}
