package memory

import (
	"context"
	"sort"
	"sync"

	"farcaster-tv/internal/domain"
	"farcaster-tv/internal/storage"
)

// MaxRuns bounds how many runs the in-memory store retains.
const MaxRuns = 1000

// RunStore is an in-memory implementation of storage.RunStore. Once
// MaxRuns is reached the oldest inserted run is dropped.
type RunStore struct {
	mu   sync.RWMutex
	runs []*domain.AggregationRun
	ids  map[string]bool
}

// NewRunStore creates a new in-memory run store.
func NewRunStore() *RunStore {
	return &RunStore{
		ids: make(map[string]bool),
	}
}

// Compile-time interface check.
var _ storage.RunStore = (*RunStore)(nil)

// Insert adds a run. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(_ context.Context, r *domain.AggregationRun) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ids[r.RunID] {
		return storage.ErrDuplicateKey
	}
	s.ids[r.RunID] = true

	runCopy := *r
	s.runs = append(s.runs, &runCopy)
	if len(s.runs) > MaxRuns {
		delete(s.ids, s.runs[0].RunID)
		s.runs[0] = nil
		s.runs = s.runs[1:]
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (s *RunStore) Recent(_ context.Context, limit int) ([]*domain.AggregationRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.AggregationRun, 0, len(s.runs))
	for _, r := range s.runs {
		runCopy := *r
		result = append(result, &runCopy)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].StartedAt > result[j].StartedAt
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
