package domain

import "time"

// PathResult holds the final cumulative outcome of driving one price path
// through a fresh pool. LPReturn and HODLReturn are populated only for
// concentrated-liquidity runs; for plain constant-product runs they are zero.
type PathResult struct {
	PathIndex int
	Metrics   PoolMetrics

	FinalPrice float64
	LPReturn   float64 // final position value / contributed value - 1
	HODLReturn float64 // value of initially-held assets at final price / contributed value - 1
}

// AggregateResult is the reduction of many path results into cross-path means.
type AggregateResult struct {
	NumPaths int

	Mean MeanMetrics

	MeanLPReturn   float64
	MeanHODLReturn float64
}

// SweepRow is one output row of a parameter sweep: the aggregate outcome at
// a single value of the varied parameter.
type SweepRow struct {
	Parameter string  // name of the varied parameter, e.g. "block_time_sec"
	Value     float64 // the parameter value for this row

	Result AggregateResult
}

// SimulationRun is the persisted record of one aggregator invocation.
type SimulationRun struct {
	RunID             string
	Preset            string
	FeePPM            int
	BasefeeUSD        float64
	BlockTimeSec      float64
	VolatilityPerYear float64
	DriftPerYear      float64
	NumPaths          int
	PathLen           int
	Seed              uint64

	StartedAt  time.Time
	FinishedAt time.Time
}

// StoredSweepRow is a SweepRow tagged with its owning run for persistence.
type StoredSweepRow struct {
	RunID string
	Row   SweepRow
}

// StoredPathResult is a PathResult tagged with its owning run for persistence.
type StoredPathResult struct {
	RunID  string
	Result PathResult
}
