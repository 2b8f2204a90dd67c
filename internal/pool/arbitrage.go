package pool

import (
	"math"

	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/domain"
)

// Band scan parameters, matching the original numerical inversion: 100k grid
// points over +-3% around the current pool price. The scan must be wide
// enough to contain both band edges for any realistic fee level.
const (
	bandScanPoints = 100_000
	bandScanWidth  = 1.03
)

// tradeFeeFactor returns the fee factor to apply for a trade against the
// given reference price. With a dynamic fee the factor grows with the
// CEX/DEX divergence; the second return is false when the dynamic fee
// saturates (fee fraction >= 1) and no trade is possible.
func (p *Pool) tradeFeeFactor(cexPrice float64) (float64, bool) {
	if p.dynamicFeeProportion <= 0 {
		return p.feeFactor, true
	}
	alpha := math.Abs(cexPrice/p.Price() - 1)
	feeFraction := p.dynamicFeeProportion * alpha
	if feeFraction >= 1 {
		return 0, false
	}
	return 1 / (1 - feeFraction), true
}

// TargetPrice returns the price an arbitrageur would move the pool to for
// the given reference price, or false when the reference price sits inside
// the no-arbitrage band and no trade is profitable before frictions.
//
// The band has multiplicative half-width equal to the fee factor: pushing
// the pool price beyond cexPrice/feeFactor (or below cexPrice*feeFactor on
// the way down) would cost more in fees than the price gap is worth.
func (p *Pool) TargetPrice(cexPrice float64) (float64, bool) {
	feeFactor, ok := p.tradeFeeFactor(cexPrice)
	if !ok {
		return 0, false
	}
	dexPrice := p.Price()
	if cexPrice > dexPrice {
		target := cexPrice / feeFactor
		if target < dexPrice {
			return 0, false
		}
		return target, true
	}
	target := cexPrice * feeFactor
	if target > dexPrice {
		return 0, false
	}
	return target, true
}

// MaybeArbitrage presents one external reference price to the pool and
// executes the rational arbitrage trade if one exists. The returned event
// describes the outcome for every call; err is non-nil only for domain
// errors (invalid reference price), never for a no-trade outcome.
func (p *Pool) MaybeArbitrage(cexPrice float64) (domain.TradeEvent, error) {
	ev := domain.TradeEvent{
		CEXPrice:    cexPrice,
		PriceBefore: p.Price(),
		PriceAfter:  p.Price(),
	}
	if cexPrice <= 0 {
		return ev, ErrInvalidTargetPrice
	}

	targetPrice, ok := p.TargetPrice(cexPrice)
	if !ok {
		// The CEX/DEX divergence is below the LP fee.
		ev.Reason = domain.NoTradeInsideBand
		return ev, nil
	}

	deltaX, deltaY, err := p.AmountsToTargetPrice(targetPrice)
	if err != nil {
		return ev, err
	}

	// The fee is charged on whichever asset flows into the pool and valued
	// at the reference price: LPs are assumed to withdraw fees and convert
	// them to the numeraire immediately rather than compound them.
	feeFactor, _ := p.tradeFeeFactor(cexPrice)
	var lpFee float64
	if deltaX > 0 {
		lpFee = (deltaX*feeFactor - deltaX) * cexPrice
	} else {
		lpFee = deltaY*feeFactor - deltaY
	}

	// LVR: the value the pool gives up by trading at its stale internal
	// price rather than at the reference price.
	lvr := -(deltaX*cexPrice + deltaY)
	sbpProfit := lvr - lpFee - p.basefeeUSD
	if sbpProfit <= 0 {
		// Band cleared, but the basefee friction eats the whole edge.
		ev.Reason = domain.NoTradeUnprofitable
		return ev, nil
	}

	newReserveX := p.reserveX + deltaX
	newReserveY := p.reserveY + deltaY
	if newReserveX <= 0 || newReserveY <= 0 {
		return ev, ErrNonPositiveReserves
	}
	p.reserveX = newReserveX
	p.reserveY = newReserveY

	p.metrics.VolumeUSD += math.Abs(deltaY) + lpFee
	p.metrics.LPFeesUSD += lpFee
	p.metrics.LVRUSD += lvr
	p.metrics.SBPProfitUSD += sbpProfit
	p.metrics.BasefeesUSD += p.basefeeUSD
	p.metrics.NumTrades++

	ev.Executed = true
	ev.PriceAfter = p.Price()
	ev.DeltaX = deltaX
	ev.DeltaY = deltaY
	ev.LPFeeUSD = lpFee
	ev.LVRUSD = lvr
	ev.SBPProfitUSD = sbpProfit
	ev.BasefeeUSD = p.basefeeUSD

	if p.observer != nil {
		p.observer(ev)
	}
	return ev, nil
}

// NoArbitrageRegion numerically inverts the no-arbitrage band: it scans a
// grid of reference prices around the current pool price and returns the
// first and last price for which TargetPrice reports no trade. This is a
// deliberate approximation of the band edges; the closed-form band is used
// as a test oracle against it.
func (p *Pool) NoArbitrageRegion() (low, high float64) {
	center := p.Price()
	lo := center / bandScanWidth
	hi := center * bandScanWidth
	step := (hi - lo) / float64(bandScanPoints-1)

	low, high = lo, lo
	for i := 0; i < bandScanPoints; i++ {
		price := lo + float64(i)*step
		if _, ok := p.TargetPrice(price); !ok {
			low = price
			break
		}
	}
	for i := bandScanPoints - 1; i >= 0; i-- {
		price := lo + float64(i)*step
		if _, ok := p.TargetPrice(price); !ok {
			high = price
			break
		}
	}
	return low, high
}
