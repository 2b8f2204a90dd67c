package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/domain"
	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/storage"
)

// sweepKey identifies one sweep row: (run_id, parameter, value).
type sweepKey struct {
	runID     string
	parameter string
	value     float64
}

// SweepResultStore is an in-memory implementation of storage.SweepResultStore.
type SweepResultStore struct {
	mu   sync.RWMutex
	data map[sweepKey]*domain.StoredSweepRow
}

// NewSweepResultStore creates a new in-memory sweep result store.
func NewSweepResultStore() *SweepResultStore {
	return &SweepResultStore{
		data: make(map[sweepKey]*domain.StoredSweepRow),
	}
}

// InsertBulk adds the rows of one sweep. Fails the entire batch on any
// duplicate (run_id, parameter, value).
func (s *SweepResultStore) InsertBulk(_ context.Context, rows []*domain.StoredSweepRow) error {
	if len(rows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[sweepKey]struct{}, len(rows))
	for _, row := range rows {
		if row == nil || row.RunID == "" || row.Row.Parameter == "" {
			return storage.ErrInvalidInput
		}
		key := sweepKey{row.RunID, row.Row.Parameter, row.Row.Value}
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, row := range rows {
		copy := *row
		s.data[sweepKey{row.RunID, row.Row.Parameter, row.Row.Value}] = &copy
	}

	return nil
}

// GetByRunID retrieves all rows for a run, ordered by (parameter, value).
func (s *SweepResultStore) GetByRunID(_ context.Context, runID string) ([]*domain.StoredSweepRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.StoredSweepRow
	for _, row := range s.data {
		if row.RunID == runID {
			copy := *row
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Row.Parameter != result[j].Row.Parameter {
			return result[i].Row.Parameter < result[j].Row.Parameter
		}
		return result[i].Row.Value < result[j].Row.Value
	})

	return result, nil
}

var _ storage.SweepResultStore = (*SweepResultStore)(nil)
