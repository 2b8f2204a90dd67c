package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/domain"
	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/observability"
	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/storage"
)

// SweepResultStore implements storage.SweepResultStore using PostgreSQL.
type SweepResultStore struct {
	pool *Pool
}

// NewSweepResultStore creates a new SweepResultStore.
func NewSweepResultStore(pool *Pool) *SweepResultStore {
	return &SweepResultStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SweepResultStore = (*SweepResultStore)(nil)

// InsertBulk adds the rows of one sweep inside a single transaction, so a
// duplicate (run_id, parameter, value) fails the entire batch.
func (s *SweepResultStore) InsertBulk(ctx context.Context, rows []*domain.StoredSweepRow) error {
	if len(rows) == 0 {
		return nil
	}
	for _, row := range rows {
		if row == nil || row.RunID == "" || row.Row.Parameter == "" {
			return storage.ErrInvalidInput
		}
	}

	query := `
		INSERT INTO sweep_results (
			run_id, parameter, value, num_paths,
			mean_volume_usd, mean_lp_fees_usd, mean_lvr_usd,
			mean_sbp_profit_usd, mean_basefees_usd, mean_num_trades,
			mean_lp_return, mean_hodl_return
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7,
			$8, $9, $10,
			$11, $12
		)
	`

	start := time.Now()
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin sweep result insert: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, row := range rows {
		r := row.Row.Result
		_, err := tx.Exec(ctx, query,
			row.RunID, row.Row.Parameter, row.Row.Value, r.NumPaths,
			r.Mean.VolumeUSD, r.Mean.LPFeesUSD, r.Mean.LVRUSD,
			r.Mean.SBPProfitUSD, r.Mean.BasefeesUSD, r.Mean.NumTrades,
			r.MeanLPReturn, r.MeanHODLReturn,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert sweep result row: %w", err)
		}
	}

	err = tx.Commit(ctx)
	observability.RecordDBQuery("postgres", "insert_sweep_results", time.Since(start).Seconds(), err)
	if err != nil {
		return fmt.Errorf("commit sweep result insert: %w", err)
	}
	return nil
}

// GetByRunID retrieves all rows for a run, ordered by (parameter, value).
func (s *SweepResultStore) GetByRunID(ctx context.Context, runID string) ([]*domain.StoredSweepRow, error) {
	query := `
		SELECT
			run_id, parameter, value, num_paths,
			mean_volume_usd, mean_lp_fees_usd, mean_lvr_usd,
			mean_sbp_profit_usd, mean_basefees_usd, mean_num_trades,
			mean_lp_return, mean_hodl_return
		FROM sweep_results
		WHERE run_id = $1
		ORDER BY parameter ASC, value ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get sweep results by run id: %w", err)
	}
	defer rows.Close()

	var out []*domain.StoredSweepRow
	for rows.Next() {
		var row domain.StoredSweepRow
		r := &row.Row.Result
		err := rows.Scan(
			&row.RunID, &row.Row.Parameter, &row.Row.Value, &r.NumPaths,
			&r.Mean.VolumeUSD, &r.Mean.LPFeesUSD, &r.Mean.LVRUSD,
			&r.Mean.SBPProfitUSD, &r.Mean.BasefeesUSD, &r.Mean.NumTrades,
			&r.MeanLPReturn, &r.MeanHODLReturn,
		)
		if err != nil {
			return nil, fmt.Errorf("scan sweep result row: %w", err)
		}
		out = append(out, &row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sweep result rows: %w", err)
	}

	return out, nil
}
