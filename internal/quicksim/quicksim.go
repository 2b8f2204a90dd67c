// Package quicksim estimates per-block arbitrage probabilities without
// simulating pool reserves. Only the pool's marginal price is tracked: a
// trade snaps it to the edge of the fee band around the reference price.
// This reproduces published arbitrage-probability tables orders of magnitude
// faster than the full reserve-level simulation, at the cost of ignoring
// trade sizes, execution costs and all revenue metrics.
package quicksim

import (
	"errors"
	"math"
	"math/rand/v2"
)

// Estimator errors
var (
	ErrInvalidBlocks   = errors.New("quicksim: block count must be positive")
	ErrInvalidFee      = errors.New("quicksim: fee must be in [0, 10000) bps")
	ErrInvalidSigma    = errors.New("quicksim: volatility must be non-negative")
	ErrInvalidDuration = errors.New("quicksim: block time must be positive")
)

// Options contains configuration for one probability estimate.
type Options struct {
	// BlockTimeSec is the (mean) interval between blocks.
	BlockTimeSec float64
	// FeeBps is the LP fee in basis points.
	FeeBps float64
	// SigmaPerSecond is the reference-price volatility per second.
	SigmaPerSecond float64
	// NumBlocks is the number of simulated blocks.
	NumBlocks int
	// Poisson draws exponentially distributed block times instead of fixed
	// intervals, scaling each price move by the square root of its block's
	// duration.
	Poisson bool
	// Seed fixes the random sequence.
	Seed uint64
}

// ArbProbability estimates the probability that a block contains an
// arbitrage trade. The reference price performs a random walk in
// multiplicative steps; the pool price starts uniformly inside the fee band
// and jumps to the band edge nearest the reference price whenever it falls
// outside the band.
func ArbProbability(opts Options) (float64, error) {
	if opts.NumBlocks < 1 {
		return 0, ErrInvalidBlocks
	}
	if opts.FeeBps < 0 || opts.FeeBps >= 10_000 {
		return 0, ErrInvalidFee
	}
	if opts.SigmaPerSecond < 0 {
		return 0, ErrInvalidSigma
	}
	if opts.BlockTimeSec <= 0 {
		return 0, ErrInvalidDuration
	}

	// feeFactor < 1 here: the band around a reference price c is
	// [c*feeFactor, c/feeFactor].
	feeFactor := (10_000 - opts.FeeBps) / 10_000
	sigma := opts.SigmaPerSecond * math.Sqrt(opts.BlockTimeSec)
	rng := rand.New(rand.NewPCG(opts.Seed, 0))

	cexPrice := 1.0
	poolPrice := cexPrice*feeFactor + rng.Float64()*(cexPrice/feeFactor-cexPrice*feeFactor)

	numTrades := 0
	for i := 0; i < opts.NumBlocks; i++ {
		factor := 1 + sigma*rng.NormFloat64()
		if opts.Poisson {
			factor = 1 + math.Sqrt(rng.ExpFloat64())*(factor-1)
		}
		cexPrice *= factor

		var targetPrice float64
		if cexPrice > poolPrice {
			targetPrice = cexPrice * feeFactor
			if targetPrice < poolPrice {
				continue
			}
		} else {
			targetPrice = cexPrice / feeFactor
			if targetPrice > poolPrice {
				continue
			}
		}
		numTrades++
		poolPrice = targetPrice
	}

	return float64(numTrades) / float64(opts.NumBlocks), nil
}
