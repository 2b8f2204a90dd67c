package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/domain"
	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/storage"
)

// PathResultStore is an in-memory implementation of storage.PathResultStore.
type PathResultStore struct {
	mu   sync.RWMutex
	data []*domain.StoredPathResult
}

// NewPathResultStore creates a new in-memory path result store.
func NewPathResultStore() *PathResultStore {
	return &PathResultStore{}
}

// InsertBulk adds a batch of path results for a run.
func (s *PathResultStore) InsertBulk(_ context.Context, results []*domain.StoredPathResult) error {
	if len(results) == 0 {
		return nil
	}

	for _, r := range results {
		if r == nil || r.RunID == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range results {
		copy := *r
		s.data = append(s.data, &copy)
	}

	return nil
}

// GetByRunID retrieves all path results for a run, ordered by path_index ASC.
func (s *PathResultStore) GetByRunID(_ context.Context, runID string) ([]*domain.StoredPathResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.StoredPathResult
	for _, r := range s.data {
		if r.RunID == runID {
			copy := *r
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Result.PathIndex < result[j].Result.PathIndex
	})

	return result, nil
}

var _ storage.PathResultStore = (*PathResultStore)(nil)
