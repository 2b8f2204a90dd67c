package storage

import (
	"context"

	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/domain"
)

// SimulationRunStore provides access to simulation_runs storage.
type SimulationRunStore interface {
	// Insert adds a new run record. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, run *domain.SimulationRun) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.SimulationRun, error)

	// List retrieves all runs, ordered by started_at ASC.
	List(ctx context.Context) ([]*domain.SimulationRun, error)
}

// SweepResultStore provides access to sweep_results storage.
type SweepResultStore interface {
	// InsertBulk adds the rows of one sweep. Fails the entire batch on any
	// duplicate (run_id, parameter, value).
	InsertBulk(ctx context.Context, rows []*domain.StoredSweepRow) error

	// GetByRunID retrieves all rows for a run, ordered by (parameter, value).
	GetByRunID(ctx context.Context, runID string) ([]*domain.StoredSweepRow, error)
}

// PathResultStore provides access to per-path outcome storage. Path results
// are high-volume append-only data; reads are whole-run scans.
type PathResultStore interface {
	// InsertBulk adds a batch of path results for a run.
	InsertBulk(ctx context.Context, results []*domain.StoredPathResult) error

	// GetByRunID retrieves all path results for a run, ordered by path_index ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.StoredPathResult, error)
}
