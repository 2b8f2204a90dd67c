package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/domain"
	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/observability"
	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/storage"
)

// PathResultStore implements storage.PathResultStore using ClickHouse.
// Path results are append-only MergeTree rows; uniqueness is not enforced.
type PathResultStore struct {
	conn *Conn
}

// NewPathResultStore creates a new PathResultStore.
func NewPathResultStore(conn *Conn) *PathResultStore {
	return &PathResultStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PathResultStore = (*PathResultStore)(nil)

// InsertBulk adds a batch of path results for a run.
func (s *PathResultStore) InsertBulk(ctx context.Context, results []*domain.StoredPathResult) error {
	if len(results) == 0 {
		return nil
	}
	for _, r := range results {
		if r == nil || r.RunID == "" || r.Result.PathIndex < 0 {
			return storage.ErrInvalidInput
		}
	}

	start := time.Now()
	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO path_results (
			run_id, path_index, volume_usd, lp_fees_usd, lvr_usd,
			sbp_profit_usd, basefees_usd, num_trades,
			final_price, lp_return, hodl_return
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range results {
		m := r.Result.Metrics
		err = batch.Append(
			r.RunID, uint32(r.Result.PathIndex), m.VolumeUSD, m.LPFeesUSD, m.LVRUSD,
			m.SBPProfitUSD, m.BasefeesUSD, uint32(m.NumTrades),
			r.Result.FinalPrice, r.Result.LPReturn, r.Result.HODLReturn,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	err = batch.Send()
	observability.RecordDBQuery("clickhouse", "insert_path_results", time.Since(start).Seconds(), err)
	if err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByRunID retrieves all path results for a run, ordered by path_index ASC.
func (s *PathResultStore) GetByRunID(ctx context.Context, runID string) ([]*domain.StoredPathResult, error) {
	query := `
		SELECT
			run_id, path_index, volume_usd, lp_fees_usd, lvr_usd,
			sbp_profit_usd, basefees_usd, num_trades,
			final_price, lp_return, hodl_return
		FROM path_results
		WHERE run_id = ?
		ORDER BY path_index ASC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query path results by run id: %w", err)
	}
	defer rows.Close()

	var results []*domain.StoredPathResult
	for rows.Next() {
		var (
			r         domain.StoredPathResult
			pathIndex uint32
			numTrades uint32
		)
		m := &r.Result.Metrics

		err := rows.Scan(
			&r.RunID, &pathIndex, &m.VolumeUSD, &m.LPFeesUSD, &m.LVRUSD,
			&m.SBPProfitUSD, &m.BasefeesUSD, &numTrades,
			&r.Result.FinalPrice, &r.Result.LPReturn, &r.Result.HODLReturn,
		)
		if err != nil {
			return nil, fmt.Errorf("scan path result row: %w", err)
		}

		r.Result.PathIndex = int(pathIndex)
		m.NumTrades = int64(numTrades)
		results = append(results, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate path result rows: %w", err)
	}

	return results, nil
}
