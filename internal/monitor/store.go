package monitor

import (
	"context"
	"sync"

	"github.com/wonny/recap/backend/internal/contracts"
)

// RunStore keeps the most recent run summaries in memory
// ⭐ SSOT: 프로세스 메모리에만 보관 (영속화 없음)
type RunStore struct {
	mu      sync.RWMutex
	history []contracts.RunSummary // newest last
	max     int
	running map[string]bool
}

// NewRunStore creates a store holding at most max summaries
func NewRunStore(max int) *RunStore {
	if max <= 0 {
		max = 30
	}
	return &RunStore{max: max, running: make(map[string]bool)}
}

func (s *RunStore) StageStarted(ctx context.Context, runID string, stage contracts.Stage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running[runID] = true
}

func (s *RunStore) StageFinished(context.Context, string, contracts.PipelineResult) {}
func (s *RunStore) FetchFailed(context.Context, string, contracts.FetchFailure)     {}

func (s *RunStore) RunFinished(ctx context.Context, sum contracts.RunSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, sum.ID)
	s.history = append(s.history, sum)
	if len(s.history) > s.max {
		s.history = s.history[len(s.history)-s.max:]
	}
}

// Latest returns the most recently finished run
func (s *RunStore) Latest() (contracts.RunSummary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.history) == 0 {
		return contracts.RunSummary{}, false
	}
	return s.history[len(s.history)-1], true
}

// History returns up to n finished runs, newest first
func (s *RunStore) History(n int) []contracts.RunSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n <= 0 || n > len(s.history) {
		n = len(s.history)
	}
	out := make([]contracts.RunSummary, 0, n)
	for i := len(s.history) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.history[i])
	}
	return out
}

// Running reports whether any run has started but not finished
func (s *RunStore) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.running) > 0
}
