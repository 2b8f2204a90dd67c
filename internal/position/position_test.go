package position

import (
	"errors"
	"math"
	"testing"

	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/domain"
	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/liquidity"
	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/pool"
)

const (
	ethPrice     = 3000.0
	poolValueUSD = 1_000_000_000.0

	// Ticks bracketing the $3000 price (tick ~80068) by roughly +-10%.
	wideLow  = 79100
	wideHigh = 81030
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	p, err := pool.New(domain.PoolConfig{
		TotalValueUSD:  poolValueUSD,
		ReferencePrice: ethPrice,
		FeePPM:         500,
		BasefeeUSD:     10,
		TickSpacing:    10,
	})
	if err != nil {
		t.Fatalf("pool.New failed: %v", err)
	}
	return NewManager(p)
}

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

func TestAddRemoveRoundTrip(t *testing.T) {
	m := newTestManager(t)
	const value = 1_000_000.0

	if err := m.AddPosition(value, wideLow, wideHigh); err != nil {
		t.Fatalf("AddPosition failed: %v", err)
	}
	if !m.Active() {
		t.Fatal("position must be active after AddPosition")
	}

	x, y, err := m.PositionAssets()
	if err != nil {
		t.Fatalf("PositionAssets failed: %v", err)
	}
	if got := x*ethPrice + y; !almostEqual(got, value, 1e-9) {
		t.Errorf("position value = %v, want %v", got, value)
	}

	// Without intervening trades the withdrawal recovers the full value.
	out, err := m.RemovePosition(ethPrice)
	if err != nil {
		t.Fatalf("RemovePosition failed: %v", err)
	}
	if !almostEqual(out, value, 1e-9) {
		t.Errorf("withdrawn value = %v, want %v", out, value)
	}
	if m.Active() {
		t.Error("position must be inactive after RemovePosition")
	}
}

func TestAddPositionValidation(t *testing.T) {
	m := newTestManager(t)

	if _, err := m.RemovePosition(ethPrice); !errors.Is(err, ErrNoPosition) {
		t.Errorf("RemovePosition without a position: got %v, want ErrNoPosition", err)
	}
	if err := m.AddPosition(0, wideLow, wideHigh); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("zero value: got %v, want ErrInvalidValue", err)
	}
	if err := m.AddPosition(1e6, wideHigh, wideLow); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("inverted range: got %v, want ErrInvalidRange", err)
	}
	if err := m.AddPosition(1e6, wideLow+5, wideHigh); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("off-spacing bound: got %v, want ErrInvalidRange", err)
	}

	if err := m.AddPosition(1e6, wideLow, wideHigh); err != nil {
		t.Fatalf("AddPosition failed: %v", err)
	}
	if err := m.AddPosition(1e6, wideLow, wideHigh); !errors.Is(err, ErrPositionExists) {
		t.Errorf("second AddPosition: got %v, want ErrPositionExists", err)
	}
}

func TestAddPositionTooLarge(t *testing.T) {
	m := newTestManager(t)

	// $100M concentrated into a ~0.4% range carries more liquidity than the
	// whole full-range pool.
	err := m.AddPosition(100_000_000, 80050, 80090)
	if !errors.Is(err, ErrPositionTooLarge) {
		t.Errorf("got %v, want ErrPositionTooLarge", err)
	}
	if m.Active() {
		t.Error("a rejected position must not activate")
	}
}

func TestRangeChecks(t *testing.T) {
	m := newTestManager(t)

	if m.InRange(0) || m.BelowRange(0) || m.AboveRange(0) {
		t.Error("range checks must all be false without a position")
	}

	// Range entirely above the current tick: the price sits below it.
	if err := m.AddPosition(1e6, 80100, 80300); err != nil {
		t.Fatalf("AddPosition failed: %v", err)
	}
	if !m.BelowRange(0) || m.InRange(0) || m.AboveRange(0) {
		t.Error("price below the range must report BelowRange only")
	}
	if _, err := m.RemovePosition(ethPrice); err != nil {
		t.Fatalf("RemovePosition failed: %v", err)
	}

	// Wide bracketing range: in range, with margin headroom.
	if err := m.AddPosition(1e6, wideLow, wideHigh); err != nil {
		t.Fatalf("AddPosition failed: %v", err)
	}
	if !m.InRange(1) {
		t.Error("bracketing range must report InRange")
	}
	// A margin wide enough to swallow the headroom flips the check.
	if m.InRange(2000) {
		t.Error("an extreme margin must report the position as near an edge")
	}
}

func TestRebalanceContainsCurrentTick(t *testing.T) {
	m := newTestManager(t)
	const width = 400

	if err := m.Rebalance(ethPrice, width, 1e6); err != nil {
		t.Fatalf("Rebalance failed: %v", err)
	}
	low, high := m.Ticks()
	tick := liquidity.ToTick(m.pool.Price())
	if high-low != width {
		t.Errorf("range width = %d, want %d", high-low, width)
	}
	if !(low <= tick && tick < high) {
		t.Errorf("range [%d, %d) must contain the current tick %d", low, high, tick)
	}
	if low%10 != 0 || high%10 != 0 {
		t.Errorf("range bounds [%d, %d] must align to the tick spacing", low, high)
	}

	x, y, err := m.PositionAssets()
	if err != nil {
		t.Fatalf("PositionAssets failed: %v", err)
	}
	if got := x*ethPrice + y; !almostEqual(got, 1e6, 1e-9) {
		t.Errorf("rebalanced position value = %v, want 1e6", got)
	}
}

func TestRebalanceAboveAfterBreakout(t *testing.T) {
	m := newTestManager(t)
	const width = 400

	if err := m.Rebalance(ethPrice, width, 1e6); err != nil {
		t.Fatalf("Rebalance failed: %v", err)
	}

	// A 6% reference move (~580 ticks) pushes the pool price out the top of
	// the +-200 tick range.
	if _, err := m.MaybeArbitrage(ethPrice * 1.06); err != nil {
		t.Fatalf("MaybeArbitrage failed: %v", err)
	}
	if !m.AboveRange(1) {
		t.Fatal("price must have broken out above the range")
	}

	refPrice := m.pool.Price()
	if err := m.RebalanceAbove(refPrice, width, 0); err != nil {
		t.Fatalf("RebalanceAbove failed: %v", err)
	}
	low, high := m.Ticks()
	tick := liquidity.ToTick(m.pool.Price())
	if !(low <= tick && tick < high) {
		t.Errorf("new range [%d, %d) must contain the current tick %d", low, high, tick)
	}
	// The upward-shifted range starts at the current tick's boundary.
	if low != liquidity.RangeLow(tick, 10) {
		t.Errorf("range low = %d, want the current tick boundary %d", low, liquidity.RangeLow(tick, 10))
	}
}

func TestFeeShare(t *testing.T) {
	m := newTestManager(t)
	if got := m.FeeShare(3000, 3010); got != 0 {
		t.Errorf("fee share without a position = %v, want 0", got)
	}
	if err := m.AddPosition(1e6, wideLow, wideHigh); err != nil {
		t.Fatalf("AddPosition failed: %v", err)
	}

	tickPrice := func(tick float64) float64 { return math.Pow(liquidity.TickBase, tick) }

	cases := []struct {
		name          string
		before, after float64
		want          float64
	}{
		{"inside", tickPrice(79500), tickPrice(79700), 1},
		{"inside reversed", tickPrice(79700), tickPrice(79500), 1},
		{"outside below", tickPrice(78000), tickPrice(78500), 0},
		{"outside above", tickPrice(81100), tickPrice(81300), 0},
		{"partial overlap", tickPrice(79000), tickPrice(79300), 2.0 / 3.0},
		{"zero width inside", tickPrice(80000), tickPrice(80000), 1},
		{"zero width outside", tickPrice(78000), tickPrice(78000), 0},
	}
	for _, tc := range cases {
		if got := m.FeeShare(tc.before, tc.after); !almostEqual(got, tc.want, 1e-9) {
			t.Errorf("%s: fee share = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestMaybeArbitrageAttributesFees(t *testing.T) {
	m := newTestManager(t)
	if err := m.AddPosition(1e6, wideLow, wideHigh); err != nil {
		t.Fatalf("AddPosition failed: %v", err)
	}

	// The +0.1% move stays well inside the wide range, so the position earns
	// the full fee, in the numeraire for an upward move.
	ev, err := m.MaybeArbitrage(ethPrice * 1.001)
	if err != nil {
		t.Fatalf("MaybeArbitrage failed: %v", err)
	}
	if !ev.Executed {
		t.Fatal("the +0.1% move must execute")
	}

	feesX, feesY := m.AccruedFees()
	if feesX != 0 {
		t.Errorf("upward move must accrue fees in the numeraire, got x fees %v", feesX)
	}
	if !almostEqual(feesY, ev.LPFeeUSD, 1e-9) {
		t.Errorf("position fees = %v, want the full trade fee %v", feesY, ev.LPFeeUSD)
	}
	if pm := m.pool.Metrics(); !almostEqual(pm.LPFeesUSD+feesY, ev.LPFeeUSD, 1e-9) {
		t.Errorf("pool fees %v + position fees %v must sum to the trade fee %v",
			pm.LPFeesUSD, feesY, ev.LPFeeUSD)
	}

	// Withdrawal pays out assets plus the accrued fees.
	x, y, err := m.PositionAssets()
	if err != nil {
		t.Fatalf("PositionAssets failed: %v", err)
	}
	ref := m.pool.Price()
	out, err := m.RemovePosition(ref)
	if err != nil {
		t.Fatalf("RemovePosition failed: %v", err)
	}
	if want := x*ref + y + feesY; !almostEqual(out, want, 1e-9) {
		t.Errorf("withdrawn value = %v, want %v", out, want)
	}
}
