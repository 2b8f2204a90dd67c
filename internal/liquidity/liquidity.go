// Package liquidity implements the tick, price and range-liquidity math used
// by concentrated-liquidity positions. The formulas follow the Uniswap v3
// periphery LiquidityAmounts library, expressed over float64 since the
// simulator does not need on-chain fixed-point exactness.
package liquidity

import (
	"errors"
	"math"
)

// TickBase is the price ratio between two adjacent ticks.
const TickBase = 1.0001

// ErrInvalidRange is returned when a range's sqrt-price bounds are not
// strictly increasing.
var ErrInvalidRange = errors.New("liquidity: range bounds must satisfy sqrtLow < sqrtHigh")

// ToPrice converts a tick index to a price.
func ToPrice(tick int) float64 {
	return math.Pow(TickBase, float64(tick))
}

// ToSqrtPrice converts a tick index to sqrt(price). The exponent is halved
// with integer division, matching the reference implementation: for odd
// ticks this is off by half a tick, which is below the precision any range
// boundary needs.
func ToSqrtPrice(tick int) float64 {
	return math.Pow(TickBase, float64(floorDiv(tick, 2)))
}

// ToTick converts a price to the nearest tick index.
func ToTick(price float64) int {
	return int(math.Round(math.Log(price) / math.Log(TickBase)))
}

// RangeLow rounds a tick down to its range boundary for the given spacing.
func RangeLow(tick, spacing int) int {
	return floorDiv(tick, spacing) * spacing
}

// RangeHigh returns the next range boundary above RangeLow.
func RangeHigh(tick, spacing int) int {
	return RangeLow(tick, spacing) + spacing
}

// floorDiv is integer division rounding toward negative infinity, as Python's
// // operator behaves for the negative ticks below price 1.0.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// LiquidityX computes the liquidity of amount x of the volatile asset placed
// in the range [sa, sb] of sqrt prices.
func LiquidityX(x, sa, sb float64) float64 {
	return x * sa * sb / (sb - sa)
}

// LiquidityY computes the liquidity of amount y of the numeraire placed in
// the range [sa, sb] of sqrt prices.
func LiquidityY(y, sa, sb float64) float64 {
	return y / (sb - sa)
}

// LiquidityForAmounts computes the liquidity represented by amounts (x, y)
// in the range [sa, sb] at the current sqrt price sp. Strictly inside the
// range both assets contribute and the smaller side binds; at or outside the
// bounds the position is single-sided.
func LiquidityForAmounts(x, y, sp, sa, sb float64) (float64, error) {
	if sa >= sb {
		return 0, ErrInvalidRange
	}
	switch {
	case sp <= sa:
		return LiquidityX(x, sa, sb), nil
	case sp < sb:
		lx := LiquidityX(x, sp, sb)
		ly := LiquidityY(y, sa, sp)
		return math.Min(lx, ly), nil
	default:
		return LiquidityY(y, sa, sb), nil
	}
}

// AmountX returns the amount of the volatile asset represented by liquidity
// L in range [sa, sb] at sqrt price sp. A price outside the range is clamped
// to the nearest bound.
func AmountX(l, sp, sa, sb float64) float64 {
	sp = clamp(sp, sa, sb)
	return l * (sb - sp) / (sp * sb)
}

// AmountY returns the amount of the numeraire represented by liquidity L in
// range [sa, sb] at sqrt price sp, with the same clamping as AmountX.
func AmountY(l, sp, sa, sb float64) float64 {
	sp = clamp(sp, sa, sb)
	return l * (sp - sa)
}

// SplitValue splits value (denominated in the numeraire) into the amounts
// (x, y) that a position in range [sa, sb] holds at sqrt price sp, assuming
// the value is exchanged into both assets at the current price with no fee.
func SplitValue(value, sp, sa, sb float64) (x, y float64, err error) {
	if sa >= sb {
		return 0, 0, ErrInvalidRange
	}
	sp = clamp(sp, sa, sb)
	p := sp * sp

	// Amounts held by one unit of liquidity at this price.
	xUnit := (sb - sp) / (sp * sb)
	yUnit := sp - sa

	vUnit := xUnit*p + yUnit
	if vUnit <= 0 {
		return 0, 0, ErrInvalidRange
	}
	nUnits := value / vUnit
	return nUnits * xUnit, nUnits * yUnit, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(math.Min(v, hi), lo)
}
