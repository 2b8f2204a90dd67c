// Package pool implements the constant-product pool state machine and the
// arbitrage resolver that trades it against an external reference price.
//
// A Pool owns its reserves, fee parameters and cumulative metrics. The
// resolver is deliberately pessimistic: a trade executes only when the
// reference price clears the fee-induced no-arbitrage band AND the
// arbitrageur's profit remains positive after the fixed execution cost.
package pool

import (
	"errors"
	"fmt"
	"math"

	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/domain"
)

// Pool errors. All of them indicate configuration or logic bugs upstream;
// a no-trade outcome is reported through domain.TradeEvent, never as error.
var (
	ErrNonPositiveReserves = errors.New("pool: reserves must stay positive")
	ErrInvalidTargetPrice  = errors.New("pool: target price must be positive")
	ErrInvalidAmount       = errors.New("pool: swap amount must be positive")
	ErrInvalidFee          = errors.New("pool: fee out of range")
	ErrInvalidBasefee      = errors.New("pool: basefee must be non-negative")
)

const ppmScale = 1_000_000

// TradeObserver receives every executed arbitrage trade. It replaces mutable
// debug logging on the pool: presentation is the caller's concern.
type TradeObserver func(domain.TradeEvent)

// Pool is one constant-product liquidity pool holding a volatile asset X and
// a numeraire Y. price = reserveY/reserveX, liquidity = sqrt(reserveX*reserveY).
type Pool struct {
	feePPM     int
	feeFactor  float64
	basefeeUSD float64

	// dynamicFeeProportion, when positive, makes each arbitrage trade pay a
	// fee proportional to the CEX/DEX price divergence instead of the
	// static feePPM.
	dynamicFeeProportion float64

	tickSpacing int

	reserveX float64
	reserveY float64

	metrics  domain.PoolMetrics
	observer TradeObserver
}

// New creates a pool from a configuration, splitting the total value evenly
// between the two reserves at the reference price.
func New(cfg domain.PoolConfig) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("pool config: %w", err)
	}
	reserveY := cfg.TotalValueUSD / 2
	reserveX := reserveY / cfg.ReferencePrice
	return newPool(cfg, reserveX, reserveY)
}

// NewFromReserves creates a pool from explicit reserves, e.g. virtual
// reserves read from a live pool. TotalValueUSD and ReferencePrice in the
// configuration are ignored.
func NewFromReserves(cfg domain.PoolConfig, reserveX, reserveY float64) (*Pool, error) {
	if reserveX <= 0 || reserveY <= 0 {
		return nil, ErrNonPositiveReserves
	}
	cfg.TotalValueUSD = 2 * reserveY
	cfg.ReferencePrice = reserveY / reserveX
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("pool config: %w", err)
	}
	return newPool(cfg, reserveX, reserveY)
}

func newPool(cfg domain.PoolConfig, reserveX, reserveY float64) (*Pool, error) {
	return &Pool{
		feePPM:               cfg.FeePPM,
		feeFactor:            feeFactorFromPPM(cfg.FeePPM),
		basefeeUSD:           cfg.BasefeeUSD,
		dynamicFeeProportion: cfg.DynamicFeeProportion,
		tickSpacing:          cfg.TickSpacing,
		reserveX:             reserveX,
		reserveY:             reserveY,
	}, nil
}

func feeFactorFromPPM(ppm int) float64 {
	return float64(ppmScale) / float64(ppmScale-ppm)
}

// SetFeeBps changes the LP fee, given in basis points.
func (p *Pool) SetFeeBps(bps float64) error {
	ppm := domain.FeeBpsToPPM(bps)
	if ppm < 0 || ppm >= ppmScale {
		return ErrInvalidFee
	}
	p.feePPM = ppm
	p.feeFactor = feeFactorFromPPM(ppm)
	return nil
}

// SetBasefeeUSD changes the fixed per-trade execution cost.
func (p *Pool) SetBasefeeUSD(v float64) error {
	if v < 0 {
		return ErrInvalidBasefee
	}
	p.basefeeUSD = v
	return nil
}

// SetObserver installs a callback invoked for every executed arbitrage trade.
func (p *Pool) SetObserver(fn TradeObserver) { p.observer = fn }

// Price returns the pool's marginal price reserveY/reserveX.
func (p *Pool) Price() float64 { return p.reserveY / p.reserveX }

// Liquidity returns sqrt(reserveX * reserveY).
func (p *Pool) Liquidity() float64 { return math.Sqrt(p.reserveX * p.reserveY) }

// Reserves returns the current reserves (x, y).
func (p *Pool) Reserves() (float64, float64) { return p.reserveX, p.reserveY }

// FeePPM returns the static LP fee in parts per million.
func (p *Pool) FeePPM() int { return p.feePPM }

// FeeFactor returns the multiplicative fee inflation applied to trade inputs.
func (p *Pool) FeeFactor() float64 { return p.feeFactor }

// BasefeeUSD returns the fixed per-trade execution cost.
func (p *Pool) BasefeeUSD() float64 { return p.basefeeUSD }

// TickSpacing returns the pool's tick granularity for range positions.
func (p *Pool) TickSpacing() int { return p.tickSpacing }

// Metrics returns a copy of the cumulative metrics.
func (p *Pool) Metrics() domain.PoolMetrics { return p.metrics }

// AddLPFees credits fee income directly to the cumulative LP fee counter.
// Used by the position manager when re-attributing fee shares.
func (p *Pool) AddLPFees(v float64) { p.metrics.LPFeesUSD += v }

// SwapXForY swaps amountInX of the volatile asset into the pool and returns
// the numeraire amount paid out. The fee is deducted from the input before
// the constant-product formula applies; the fee is credited to LP fees at
// the pre-trade pool price.
//
// Fees are withdrawn rather than compounded into reserves, so the fee leg is
// linear in the input: splitting one swap into k smaller ones leaves the
// resulting price and the numeraire-side fee take unchanged, and only the
// pre-trade valuation of volatile-side fees shifts.
func (p *Pool) SwapXForY(amountInX float64) (float64, error) {
	if amountInX <= 0 {
		return 0, ErrInvalidAmount
	}
	amountInNet := amountInX / p.feeFactor

	price := p.Price()
	p.metrics.LPFeesUSD += (amountInX - amountInNet) * price
	p.reserveX += amountInNet
	yOut := amountInNet * p.reserveY / p.reserveX
	p.reserveY -= yOut
	if p.reserveY <= 0 {
		return 0, ErrNonPositiveReserves
	}

	p.metrics.VolumeUSD += amountInX * price
	p.metrics.BasefeesUSD += p.basefeeUSD
	p.metrics.NumTrades++
	return yOut, nil
}

// SwapYForX swaps amountInY of the numeraire into the pool and returns the
// volatile-asset amount paid out. Fee accounting mirrors SwapXForY.
func (p *Pool) SwapYForX(amountInY float64) (float64, error) {
	if amountInY <= 0 {
		return 0, ErrInvalidAmount
	}
	amountInNet := amountInY / p.feeFactor

	p.metrics.LPFeesUSD += amountInY - amountInNet
	p.reserveY += amountInNet
	xOut := amountInNet * p.reserveX / p.reserveY
	p.reserveX -= xOut
	if p.reserveX <= 0 {
		return 0, ErrNonPositiveReserves
	}

	p.metrics.VolumeUSD += amountInY
	p.metrics.BasefeesUSD += p.basefeeUSD
	p.metrics.NumTrades++
	return xOut, nil
}

// AmountsToTargetPrice computes the reserve deltas that move the pool's
// marginal price to targetPrice along the constant-product curve, holding
// the current liquidity fixed. Pure computation, no state change.
func (p *Pool) AmountsToTargetPrice(targetPrice float64) (deltaX, deltaY float64, err error) {
	if targetPrice <= 0 {
		return 0, 0, ErrInvalidTargetPrice
	}
	sqrtTarget := math.Sqrt(targetPrice)
	l := p.Liquidity()
	deltaX = l/sqrtTarget - p.reserveX
	deltaY = l*sqrtTarget - p.reserveY
	return deltaX, deltaY, nil
}
