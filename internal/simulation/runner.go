// Package simulation drives pools through price paths and reduces many
// independent paths into cross-path mean statistics.
package simulation

import (
	"errors"

	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/domain"
	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/pool"
	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/position"
)

// Runner errors
var (
	ErrEmptyPath        = errors.New("simulation: price path must not be empty")
	ErrInvalidBlockSize = errors.New("simulation: block size must be positive")
)

// PoolFactory creates one fresh pool per path, capturing the fee, basefee
// and liquidity configuration shared by the whole batch.
type PoolFactory func() (*pool.Pool, error)

// PositionPolicy enables the concentrated-liquidity variant of a run: a
// single range position is opened before the first tick and re-centered
// upward whenever the price approaches the top of its range.
type PositionPolicy struct {
	// ValueUSD is the numeraire value contributed to the position.
	ValueUSD float64
	// RangeWidthTicks is the position range width, rounded to tick spacing.
	RangeWidthTicks int
	// MarginTicks triggers a rebalance before the price actually leaves the
	// range.
	MarginTicks int
}

// RunPath feeds every price of the path, in order, into the pool's arbitrage
// resolver and returns the final cumulative outcome.
//
// With blockSize > 1 the prices are grouped into fixed-size blocks and only
// the last price of each block reaches the pool: intermediate prices never
// matter on-chain. A trailing partial block is discarded.
//
// A positive maxBlocks truncates the binned path to that many blocks, so
// runs with different block sizes can be normalized to a common block count.
// Zero means the whole path is used.
//
// A non-nil policy runs the concentrated-liquidity variant: the position is
// opened at the pool's current price, shifted upward whenever the price
// nears the top of its range, and withdrawn at the final path price. Any
// position or pool error aborts the path.
func RunPath(p *pool.Pool, prices []float64, blockSize, maxBlocks int, policy *PositionPolicy) (domain.PathResult, error) {
	var result domain.PathResult
	if blockSize < 1 {
		return result, ErrInvalidBlockSize
	}
	if blockSize > 1 {
		prices = lastPerBlock(prices, blockSize)
	}
	if maxBlocks > 0 && len(prices) > maxBlocks {
		prices = prices[:maxBlocks]
	}
	if len(prices) == 0 {
		return result, ErrEmptyPath
	}

	var (
		mgr                *position.Manager
		initialX, initialY float64
	)
	if policy != nil {
		mgr = position.NewManager(p)
		if err := mgr.Rebalance(p.Price(), policy.RangeWidthTicks, policy.ValueUSD); err != nil {
			return result, err
		}
		var err error
		initialX, initialY, err = mgr.PositionAssets()
		if err != nil {
			return result, err
		}
	}

	for _, price := range prices {
		if mgr != nil {
			if _, err := mgr.MaybeArbitrage(price); err != nil {
				return result, err
			}
			if mgr.AboveRange(policy.MarginTicks) {
				if err := mgr.RebalanceAbove(price, policy.RangeWidthTicks, 0); err != nil {
					return result, err
				}
			}
		} else {
			if _, err := p.MaybeArbitrage(price); err != nil {
				return result, err
			}
		}
	}

	finalPrice := prices[len(prices)-1]
	result.FinalPrice = finalPrice
	if mgr != nil {
		finalValue, err := mgr.RemovePosition(finalPrice)
		if err != nil {
			return result, err
		}
		result.LPReturn = finalValue/policy.ValueUSD - 1
		result.HODLReturn = (initialX*finalPrice+initialY)/policy.ValueUSD - 1
	}
	result.Metrics = p.Metrics()
	return result, nil
}

// lastPerBlock keeps the last price of each fixed-size block and drops a
// trailing partial block.
func lastPerBlock(prices []float64, blockSize int) []float64 {
	n := len(prices) / blockSize
	binned := make([]float64, 0, n)
	for i := blockSize - 1; i < len(prices); i += blockSize {
		binned = append(binned, prices[i])
	}
	return binned
}
