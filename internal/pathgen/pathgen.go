// Package pathgen generates synthetic reference-price trajectories as
// geometric Brownian motion. Paths are deterministic given a seed and a path
// index, so a batch can be generated concurrently or re-generated for
// replay without storing the prices.
package pathgen

import (
	"errors"
	"math"
	"math/rand/v2"
)

// Generator errors
var (
	ErrInvalidSteps   = errors.New("pathgen: a path needs at least two prices")
	ErrInvalidPaths   = errors.New("pathgen: path count must be positive")
	ErrInvalidSigma   = errors.New("pathgen: volatility must be non-negative")
	ErrInvalidInitial = errors.New("pathgen: initial price range must be positive and ordered")
)

// Options contains configuration for creating a Generator.
type Options struct {
	// NumSteps is the number of prices per path, including the initial one.
	NumSteps int
	// NumPaths is the number of independent paths in the batch.
	NumPaths int
	// SigmaPerStep and MuPerStep are the GBM volatility and drift per step.
	SigmaPerStep float64
	MuPerStep    float64
	// Initial prices are drawn uniformly from [InitialLow, InitialHigh].
	// Setting both to the same value starts every path at that price.
	InitialLow  float64
	InitialHigh float64
	// BlockJitter scales each step's price change by the square root of an
	// exponentially distributed block time, modeling Poisson block arrival
	// instead of a fixed block interval.
	BlockJitter bool
	// Seed fixes the whole batch; each path additionally mixes in its index.
	Seed uint64
}

// Generator produces one batch of GBM price paths.
type Generator struct {
	opts Options
}

// New creates a path generator.
func New(opts Options) (*Generator, error) {
	if opts.NumSteps < 2 {
		return nil, ErrInvalidSteps
	}
	if opts.NumPaths < 1 {
		return nil, ErrInvalidPaths
	}
	if opts.SigmaPerStep < 0 {
		return nil, ErrInvalidSigma
	}
	if opts.InitialLow <= 0 || opts.InitialHigh < opts.InitialLow {
		return nil, ErrInvalidInitial
	}
	return &Generator{opts: opts}, nil
}

// NumPaths returns the batch size.
func (g *Generator) NumPaths() int { return g.opts.NumPaths }

// NumSteps returns the path length.
func (g *Generator) NumSteps() int { return g.opts.NumSteps }

// Path generates path pathIndex of the batch. Calling it twice with the same
// index yields the same prices.
func (g *Generator) Path(pathIndex int) []float64 {
	rng := rand.New(rand.NewPCG(g.opts.Seed, uint64(pathIndex)))

	prices := make([]float64, g.opts.NumSteps)
	price := g.opts.InitialLow
	if g.opts.InitialHigh > g.opts.InitialLow {
		price += rng.Float64() * (g.opts.InitialHigh - g.opts.InitialLow)
	}
	prices[0] = price

	mu, sigma := g.opts.MuPerStep, g.opts.SigmaPerStep
	for i := 1; i < g.opts.NumSteps; i++ {
		factor := math.Exp(mu - sigma*sigma/2 + sigma*rng.NormFloat64())
		if g.opts.BlockJitter {
			factor = 1 + math.Sqrt(rng.ExpFloat64())*(factor-1)
		}
		price *= factor
		prices[i] = price
	}
	return prices
}

// All generates the whole batch. Convenience for small batches; large runs
// should generate paths on demand inside their workers.
func (g *Generator) All() [][]float64 {
	paths := make([][]float64, g.opts.NumPaths)
	for i := range paths {
		paths[i] = g.Path(i)
	}
	return paths
}
