// Package domain defines the core value types shared across the simulator:
// pool configuration, cumulative pool metrics, trade events and per-path
// results. All types are plain values with no behavior beyond validation.
package domain

import "errors"

// Validation errors.
var (
	ErrInvalidPoolValue  = errors.New("pool value must be positive")
	ErrInvalidPrice      = errors.New("reference price must be positive")
	ErrInvalidFee        = errors.New("fee must be in [0, 1000000) ppm")
	ErrInvalidBasefee    = errors.New("basefee must be non-negative")
	ErrInvalidTickParams = errors.New("tick spacing must be positive")
)

// PoolConfig holds the parameters needed to construct one simulated pool.
// TotalValueUSD is split evenly between the two reserves at ReferencePrice.
type PoolConfig struct {
	TotalValueUSD  float64 // combined value of both reserves, numeraire units
	ReferencePrice float64 // external price used to split value into reserves
	FeePPM         int     // LP fee in parts per million
	BasefeeUSD     float64 // fixed execution cost charged per arbitrage trade
	TickSpacing    int     // tick granularity for range positions

	// DynamicFeeProportion, when positive, replaces the static fee with a
	// per-trade fee proportional to the CEX/DEX price divergence.
	DynamicFeeProportion float64
}

// Validate checks the configuration invariants.
func (c PoolConfig) Validate() error {
	if c.TotalValueUSD <= 0 {
		return ErrInvalidPoolValue
	}
	if c.ReferencePrice <= 0 {
		return ErrInvalidPrice
	}
	if c.FeePPM < 0 || c.FeePPM >= 1_000_000 {
		return ErrInvalidFee
	}
	if c.BasefeeUSD < 0 {
		return ErrInvalidBasefee
	}
	if c.TickSpacing <= 0 {
		return ErrInvalidTickParams
	}
	return nil
}

// FeeBpsToPPM converts a fee in basis points to parts per million.
func FeeBpsToPPM(bps float64) int {
	return int(bps * 100)
}

// PoolMetrics are the cumulative counters owned by one pool instance.
// All fields are numeraire-denominated except NumTrades. Every field is
// monotonically non-decreasing: unprofitable trades are never recorded.
type PoolMetrics struct {
	VolumeUSD    float64 // total traded volume
	LPFeesUSD    float64 // fees earned by liquidity providers
	LVRUSD       float64 // loss-versus-rebalancing given up by the pool
	SBPProfitUSD float64 // arbitrageur profit net of fees and basefee
	BasefeesUSD  float64 // execution cost paid across all trades
	NumTrades    int64
}

// Add accumulates another metrics value into m.
func (m *PoolMetrics) Add(o PoolMetrics) {
	m.VolumeUSD += o.VolumeUSD
	m.LPFeesUSD += o.LPFeesUSD
	m.LVRUSD += o.LVRUSD
	m.SBPProfitUSD += o.SBPProfitUSD
	m.BasefeesUSD += o.BasefeesUSD
	m.NumTrades += o.NumTrades
}

// Scale divides every metric by n, producing a per-path mean.
func (m PoolMetrics) Scale(n float64) MeanMetrics {
	return MeanMetrics{
		VolumeUSD:    m.VolumeUSD / n,
		LPFeesUSD:    m.LPFeesUSD / n,
		LVRUSD:       m.LVRUSD / n,
		SBPProfitUSD: m.SBPProfitUSD / n,
		BasefeesUSD:  m.BasefeesUSD / n,
		NumTrades:    float64(m.NumTrades) / n,
	}
}

// MeanMetrics holds cross-path arithmetic means of the pool metrics.
// NumTrades becomes fractional once averaged.
type MeanMetrics struct {
	VolumeUSD    float64
	LPFeesUSD    float64
	LVRUSD       float64
	SBPProfitUSD float64
	BasefeesUSD  float64
	NumTrades    float64
}

// NoTradeReason explains why an arbitrage opportunity did not execute.
type NoTradeReason string

// No-trade reason codes. Both are normal outcomes, not errors.
const (
	// NoTradeInsideBand: the reference price is inside the no-arbitrage band.
	NoTradeInsideBand NoTradeReason = "INSIDE_BAND"
	// NoTradeUnprofitable: the band was cleared but the basefee friction
	// makes the trade a net loss for the arbitrageur.
	NoTradeUnprofitable NoTradeReason = "UNPROFITABLE"
)

// TradeEvent records the outcome of presenting one reference price to the
// arbitrage resolver. Exactly one event is produced per tick.
type TradeEvent struct {
	Executed bool
	Reason   NoTradeReason // set only when Executed is false

	CEXPrice    float64
	PriceBefore float64
	PriceAfter  float64 // equals PriceBefore when no trade executed

	// Per-trade economics, zero when no trade executed.
	DeltaX       float64
	DeltaY       float64
	LPFeeUSD     float64
	LVRUSD       float64
	SBPProfitUSD float64
	BasefeeUSD   float64
}
