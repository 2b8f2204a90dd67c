package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/domain"
	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/observability"
	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/storage"
)

// SimulationRunStore implements storage.SimulationRunStore using PostgreSQL.
type SimulationRunStore struct {
	pool *Pool
}

// NewSimulationRunStore creates a new SimulationRunStore.
func NewSimulationRunStore(pool *Pool) *SimulationRunStore {
	return &SimulationRunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SimulationRunStore = (*SimulationRunStore)(nil)

// Insert adds a new run record. Returns ErrDuplicateKey if run_id exists.
func (s *SimulationRunStore) Insert(ctx context.Context, run *domain.SimulationRun) error {
	if run == nil || run.RunID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO simulation_runs (
			run_id, preset, fee_ppm, basefee_usd, block_time_sec,
			volatility_per_year, drift_per_year, num_paths, path_len, seed,
			started_at, finished_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12
		)
	`

	start := time.Now()
	_, err := s.pool.Exec(ctx, query,
		run.RunID, run.Preset, run.FeePPM, run.BasefeeUSD, run.BlockTimeSec,
		run.VolatilityPerYear, run.DriftPerYear, run.NumPaths, run.PathLen, int64(run.Seed),
		run.StartedAt, run.FinishedAt,
	)
	observability.RecordDBQuery("postgres", "insert_simulation_run", time.Since(start).Seconds(), err)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert simulation run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *SimulationRunStore) GetByID(ctx context.Context, runID string) (*domain.SimulationRun, error) {
	query := `
		SELECT
			run_id, preset, fee_ppm, basefee_usd, block_time_sec,
			volatility_per_year, drift_per_year, num_paths, path_len, seed,
			started_at, finished_at
		FROM simulation_runs
		WHERE run_id = $1
	`

	var (
		run  domain.SimulationRun
		seed int64
	)
	err := s.pool.QueryRow(ctx, query, runID).Scan(
		&run.RunID, &run.Preset, &run.FeePPM, &run.BasefeeUSD, &run.BlockTimeSec,
		&run.VolatilityPerYear, &run.DriftPerYear, &run.NumPaths, &run.PathLen, &seed,
		&run.StartedAt, &run.FinishedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get simulation run by id: %w", err)
	}
	run.Seed = uint64(seed)
	return &run, nil
}

// List retrieves all runs, ordered by started_at ASC.
func (s *SimulationRunStore) List(ctx context.Context) ([]*domain.SimulationRun, error) {
	query := `
		SELECT
			run_id, preset, fee_ppm, basefee_usd, block_time_sec,
			volatility_per_year, drift_per_year, num_paths, path_len, seed,
			started_at, finished_at
		FROM simulation_runs
		ORDER BY started_at ASC, run_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list simulation runs: %w", err)
	}
	defer rows.Close()

	var runs []*domain.SimulationRun
	for rows.Next() {
		var (
			run  domain.SimulationRun
			seed int64
		)
		err := rows.Scan(
			&run.RunID, &run.Preset, &run.FeePPM, &run.BasefeeUSD, &run.BlockTimeSec,
			&run.VolatilityPerYear, &run.DriftPerYear, &run.NumPaths, &run.PathLen, &seed,
			&run.StartedAt, &run.FinishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan simulation run row: %w", err)
		}
		run.Seed = uint64(seed)
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate simulation run rows: %w", err)
	}

	return runs, nil
}
