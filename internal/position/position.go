// Package position manages a single concentrated-liquidity range position on
// top of a constant-product pool. The position owns a strict subset of the
// pool's liquidity between two tick bounds, accrues a proportional share of
// swap fees while the price moves through its range, and can be re-centered
// around the current price.
package position

import (
	"errors"
	"fmt"
	"math"

	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/domain"
	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/liquidity"
	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/pool"
)

// Position errors. ErrPositionTooLarge signals an invalid configuration (a
// position sized at or above the whole pool) and is fatal, not clamped.
var (
	ErrNoPosition       = errors.New("position: no active position")
	ErrPositionExists   = errors.New("position: a position is already active")
	ErrPositionTooLarge = errors.New("position: liquidity share must stay below 1")
	ErrInvalidRange     = errors.New("position: tick bounds must be increasing multiples of the tick spacing")
	ErrInvalidValue     = errors.New("position: contributed value must be positive")
)

// Manager owns at most one active range position over a pool.
type Manager struct {
	pool *pool.Pool

	active   bool
	tickLow  int
	tickHigh int
	liq      float64

	feesAccruedX float64
	feesAccruedY float64
}

// NewManager creates a position manager bound to a pool.
func NewManager(p *pool.Pool) *Manager {
	return &Manager{pool: p}
}

// Active reports whether a position is currently open.
func (m *Manager) Active() bool { return m.active }

// Ticks returns the active position's bounds.
func (m *Manager) Ticks() (low, high int) { return m.tickLow, m.tickHigh }

// Liquidity returns the active position's liquidity.
func (m *Manager) Liquidity() float64 { return m.liq }

// AccruedFees returns the fee income attributed to the position since the
// last withdrawal, in asset units (x, y).
func (m *Manager) AccruedFees() (x, y float64) { return m.feesAccruedX, m.feesAccruedY }

// AddPosition opens a position of the given numeraire value between the tick
// bounds. The value is optimally split into both assets at the current pool
// price before the range liquidity is computed. The resulting liquidity must
// be a strict subset of the pool's.
func (m *Manager) AddPosition(valueUSD float64, tickLow, tickHigh int) error {
	if m.active {
		return ErrPositionExists
	}
	if valueUSD <= 0 {
		return ErrInvalidValue
	}
	spacing := m.pool.TickSpacing()
	if tickLow >= tickHigh || tickLow%spacing != 0 || tickHigh%spacing != 0 {
		return ErrInvalidRange
	}

	sa := liquidity.ToSqrtPrice(tickLow)
	sb := liquidity.ToSqrtPrice(tickHigh)
	sp := math.Sqrt(m.pool.Price())

	x, y, err := liquidity.SplitValue(valueUSD, sp, sa, sb)
	if err != nil {
		return fmt.Errorf("split value: %w", err)
	}
	liq, err := liquidity.LiquidityForAmounts(x, y, sp, sa, sb)
	if err != nil {
		return fmt.Errorf("compute liquidity: %w", err)
	}

	share := liq / m.pool.Liquidity()
	if share < 0 || share >= 1 {
		return fmt.Errorf("%w: share=%v", ErrPositionTooLarge, share)
	}

	m.active = true
	m.tickLow = tickLow
	m.tickHigh = tickHigh
	m.liq = liq
	return nil
}

// PositionAssets returns the asset amounts (x, y) the active position
// currently represents. A pool price outside the range is clamped to the
// nearest range bound, so an out-of-range position is single-sided.
func (m *Manager) PositionAssets() (x, y float64, err error) {
	if !m.active {
		return 0, 0, ErrNoPosition
	}
	sa := liquidity.ToSqrtPrice(m.tickLow)
	sb := liquidity.ToSqrtPrice(m.tickHigh)
	sp := math.Sqrt(m.pool.Price())
	return liquidity.AmountX(m.liq, sp, sa, sb), liquidity.AmountY(m.liq, sp, sa, sb), nil
}

// RemovePosition withdraws the position: assets plus accrued fees, each
// valued at refPrice. The position and its fee accruals are zeroed.
func (m *Manager) RemovePosition(refPrice float64) (valueUSD float64, err error) {
	x, y, err := m.PositionAssets()
	if err != nil {
		return 0, err
	}
	valueUSD = x*refPrice + y + m.feesAccruedX*refPrice + m.feesAccruedY

	m.active = false
	m.tickLow, m.tickHigh = 0, 0
	m.liq = 0
	m.feesAccruedX, m.feesAccruedY = 0, 0
	return valueUSD, nil
}

// currentTick returns the pool price's tick index.
func (m *Manager) currentTick() int {
	return liquidity.ToTick(m.pool.Price())
}

// InRange reports whether the current tick sits inside the position's range
// with at least margin ticks of headroom on both sides.
func (m *Manager) InRange(margin int) bool {
	if !m.active {
		return false
	}
	return !m.BelowRange(margin) && !m.AboveRange(margin)
}

// BelowRange reports whether the current tick is within margin ticks of the
// lower bound, or below it.
func (m *Manager) BelowRange(margin int) bool {
	if !m.active {
		return false
	}
	return m.currentTick() < m.tickLow+margin
}

// AboveRange reports whether the current tick is within margin ticks of the
// upper bound, or above it.
func (m *Manager) AboveRange(margin int) bool {
	if !m.active {
		return false
	}
	return m.currentTick() >= m.tickHigh-margin
}

// Rebalance withdraws any active position at refPrice and re-adds it, plus
// extraValueUSD, in a range of widthTicks centered on the current tick and
// rounded to the tick spacing.
func (m *Manager) Rebalance(refPrice float64, widthTicks int, extraValueUSD float64) error {
	tick := m.currentTick()
	spacing := m.pool.TickSpacing()
	width := roundWidth(widthTicks, spacing)
	low := liquidity.RangeLow(tick-width/2, spacing)
	return m.replace(refPrice, low, low+width, extraValueUSD)
}

// RebalanceAbove is Rebalance with the new range anchored at the current
// tick's boundary and extending upward, leaving the price at the bottom of
// the range. Used when the price has broken out above the previous range.
func (m *Manager) RebalanceAbove(refPrice float64, widthTicks int, extraValueUSD float64) error {
	tick := m.currentTick()
	spacing := m.pool.TickSpacing()
	width := roundWidth(widthTicks, spacing)
	low := liquidity.RangeLow(tick, spacing)
	return m.replace(refPrice, low, low+width, extraValueUSD)
}

func (m *Manager) replace(refPrice float64, tickLow, tickHigh int, extraValueUSD float64) error {
	value := extraValueUSD
	if m.active {
		withdrawn, err := m.RemovePosition(refPrice)
		if err != nil {
			return err
		}
		value += withdrawn
	}
	return m.AddPosition(value, tickLow, tickHigh)
}

// roundWidth rounds a range width down to a positive multiple of spacing.
func roundWidth(width, spacing int) int {
	if width < spacing {
		return spacing
	}
	return width / spacing * spacing
}

// FeeShare approximates the fraction of a swap's fee this position earned,
// as the tick-count overlap between the swap's price interval and the
// position's range. This is a linear approximation over ticks, not an exact
// area-weighted attribution; downstream consumers depend on it as published.
func (m *Manager) FeeShare(priceBefore, priceAfter float64) float64 {
	if !m.active {
		return 0
	}
	logBase := math.Log(liquidity.TickBase)
	t0 := math.Log(priceBefore) / logBase
	t1 := math.Log(priceAfter) / logBase
	if t0 > t1 {
		t0, t1 = t1, t0
	}
	// A zero-width interval has no overlap to prorate: the position earns
	// the full fee when it covers the price, nothing otherwise.
	if t1 == t0 {
		if t0 < float64(m.tickLow) || t0 > float64(m.tickHigh) {
			return 0
		}
		return 1
	}
	lo := math.Max(t0, float64(m.tickLow))
	hi := math.Min(t1, float64(m.tickHigh))
	if hi <= lo {
		return 0
	}
	share := (hi - lo) / (t1 - t0)
	return math.Min(share, 1)
}

// MaybeArbitrage runs the pool's arbitrage resolver and, when a trade
// executes with an active position, re-attributes the position's fee share
// from the pool's cumulative LP fees to the position's accruals, in units of
// whichever asset flowed in.
func (m *Manager) MaybeArbitrage(cexPrice float64) (domain.TradeEvent, error) {
	ev, err := m.pool.MaybeArbitrage(cexPrice)
	if err != nil || !ev.Executed || !m.active {
		return ev, err
	}

	share := m.FeeShare(ev.PriceBefore, ev.PriceAfter)
	if share == 0 {
		return ev, nil
	}
	posFeeUSD := share * ev.LPFeeUSD
	if ev.DeltaX > 0 {
		m.feesAccruedX += posFeeUSD / cexPrice
	} else {
		m.feesAccruedY += posFeeUSD
	}
	m.pool.AddLPFees(-posFeeUSD)
	return ev, nil
}
