package simulation

import (
	"context"
	"errors"
	"fmt"

	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/domain"
	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/observability"
	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/pathgen"
	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/pool"
)

// Sweep errors
var (
	ErrNoSweepValues = errors.New("simulation: a sweep needs at least one parameter value")
)

// Sweep parameter names used in result rows and reports.
const (
	ParamBlockTimeSec = "block_time_sec"
	ParamFeeBps       = "fee_bps"
	ParamBasefeeUSD   = "basefee_usd"
	ParamDriftPerYear = "drift_per_year"
)

// Baseline captures the configuration shared by every point of a sweep: the
// pool, the path batch, and how the paths are simulated. Individual sweep
// helpers override one knob per point.
type Baseline struct {
	Pool  domain.PoolConfig
	Paths pathgen.Options

	// MaxBlocks, when positive, truncates every binned path to a common
	// block count, so sweep points with different block times stay
	// comparable per block.
	MaxBlocks int

	Policy  *PositionPolicy
	Workers int
}

func (b Baseline) factory() PoolFactory {
	cfg := b.Pool
	return func() (*pool.Pool, error) { return pool.New(cfg) }
}

func (b Baseline) aggregator(blockSize int) (*Aggregator, error) {
	return NewAggregator(AggregatorOptions{
		PoolFactory: b.factory(),
		BlockSize:   blockSize,
		MaxBlocks:   b.MaxBlocks,
		Policy:      b.Policy,
		Workers:     b.Workers,
	})
}

// runSweep evaluates configure at every value and collects one row per value.
func runSweep(ctx context.Context, parameter string, values []float64,
	configure func(value float64) (*Aggregator, *pathgen.Generator, error)) ([]domain.SweepRow, error) {

	if len(values) == 0 {
		return nil, ErrNoSweepValues
	}
	rows := make([]domain.SweepRow, 0, len(values))
	for _, value := range values {
		agg, gen, err := configure(value)
		if err != nil {
			return nil, fmt.Errorf("sweep %s=%v: %w", parameter, value, err)
		}
		result, err := agg.Run(ctx, gen)
		if err != nil {
			return nil, fmt.Errorf("sweep %s=%v: %w", parameter, value, err)
		}
		rows = append(rows, domain.SweepRow{Parameter: parameter, Value: value, Result: result})
		observability.RecordSweepRow()
	}
	return rows, nil
}

// SweepBlockTimes varies the block time while keeping the per-second price
// paths fixed: the same batch is re-simulated with only every blockTime-th
// price reaching the pool. Baseline.Paths must describe per-second steps.
func SweepBlockTimes(ctx context.Context, b Baseline, blockTimesSec []int) ([]domain.SweepRow, error) {
	values := make([]float64, len(blockTimesSec))
	for i, bt := range blockTimesSec {
		values[i] = float64(bt)
	}
	return runSweep(ctx, ParamBlockTimeSec, values, func(value float64) (*Aggregator, *pathgen.Generator, error) {
		gen, err := pathgen.New(b.Paths)
		if err != nil {
			return nil, nil, err
		}
		agg, err := b.aggregator(int(value))
		return agg, gen, err
	})
}

// SweepFeeBps varies the LP fee at a fixed block size.
func SweepFeeBps(ctx context.Context, b Baseline, blockSize int, feeBps []float64) ([]domain.SweepRow, error) {
	return runSweep(ctx, ParamFeeBps, feeBps, func(value float64) (*Aggregator, *pathgen.Generator, error) {
		gen, err := pathgen.New(b.Paths)
		if err != nil {
			return nil, nil, err
		}
		point := b
		point.Pool.FeePPM = domain.FeeBpsToPPM(value)
		agg, err := point.aggregator(blockSize)
		return agg, gen, err
	})
}

// SweepBasefees varies the fixed per-trade execution cost at a fixed block size.
func SweepBasefees(ctx context.Context, b Baseline, blockSize int, basefeesUSD []float64) ([]domain.SweepRow, error) {
	return runSweep(ctx, ParamBasefeeUSD, basefeesUSD, func(value float64) (*Aggregator, *pathgen.Generator, error) {
		gen, err := pathgen.New(b.Paths)
		if err != nil {
			return nil, nil, err
		}
		point := b
		point.Pool.BasefeeUSD = value
		agg, err := point.aggregator(blockSize)
		return agg, gen, err
	})
}

// SweepDrifts varies the annualized price drift. Baseline.Paths must use
// per-step parameters matching stepSec; the drift value is converted to a
// per-step mu for each point.
func SweepDrifts(ctx context.Context, b Baseline, stepSec float64, driftsPerYear []float64) ([]domain.SweepRow, error) {
	return runSweep(ctx, ParamDriftPerYear, driftsPerYear, func(value float64) (*Aggregator, *pathgen.Generator, error) {
		opts := b.Paths
		opts.MuPerStep = domain.DriftPerStep(value, stepSec)
		gen, err := pathgen.New(opts)
		if err != nil {
			return nil, nil, err
		}
		agg, err := b.aggregator(1)
		return agg, gen, err
	})
}
