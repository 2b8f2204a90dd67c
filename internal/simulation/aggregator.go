package simulation

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/domain"
	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/observability"
	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/pathgen"
	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/storage"
)

// Aggregator errors
var (
	ErrNilPoolFactory = errors.New("simulation: pool factory is required")
)

// Aggregator runs a batch of independent price paths, each against a fresh
// pool, and reduces the per-path outcomes to cross-path means. Paths share
// no mutable state, so they run on a bounded worker pool.
type Aggregator struct {
	factory   PoolFactory
	blockSize int
	maxBlocks int
	policy    *PositionPolicy
	workers   int

	pathResultStore storage.PathResultStore
	runID           string
}

// AggregatorOptions contains configuration for creating an Aggregator.
type AggregatorOptions struct {
	PoolFactory PoolFactory

	// BlockSize groups path prices into blocks; only the last price of each
	// block reaches the pool. Zero or one means every price does.
	BlockSize int

	// MaxBlocks, when positive, truncates every binned path to that many
	// blocks. Batches that differ only in block size then simulate the same
	// block count, keeping per-block statistics comparable.
	MaxBlocks int

	// Policy, when non-nil, runs every path in the concentrated-liquidity
	// variant.
	Policy *PositionPolicy

	// Workers bounds the number of concurrently simulated paths.
	// Zero means GOMAXPROCS.
	Workers int

	// PathResultStore, when non-nil, persists every per-path outcome under
	// RunID after the batch completes.
	PathResultStore storage.PathResultStore
	RunID           string
}

// NewAggregator creates an aggregator.
func NewAggregator(opts AggregatorOptions) (*Aggregator, error) {
	if opts.PoolFactory == nil {
		return nil, ErrNilPoolFactory
	}
	if opts.BlockSize < 0 {
		return nil, ErrInvalidBlockSize
	}
	blockSize := opts.BlockSize
	if blockSize == 0 {
		blockSize = 1
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Aggregator{
		factory:         opts.PoolFactory,
		blockSize:       blockSize,
		maxBlocks:       opts.MaxBlocks,
		policy:          opts.Policy,
		workers:         workers,
		pathResultStore: opts.PathResultStore,
		runID:           opts.RunID,
	}, nil
}

// Run simulates every path of the generator's batch and returns the means.
// Any path error fails the whole batch: a partially simulated batch is not
// valid for averaging.
func (a *Aggregator) Run(ctx context.Context, gen *pathgen.Generator) (domain.AggregateResult, error) {
	numPaths := gen.NumPaths()
	results := make([]domain.PathResult, numPaths)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
		mu.Unlock()
	}

	indices := make(chan int)
	for w := 0; w < a.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				p, err := a.factory()
				if err != nil {
					fail(fmt.Errorf("path %d: create pool: %w", i, err))
					return
				}
				result, err := RunPath(p, gen.Path(i), a.blockSize, a.maxBlocks, a.policy)
				if err != nil {
					fail(fmt.Errorf("path %d: %w", i, err))
					return
				}
				result.PathIndex = i
				results[i] = result
				observability.RecordPathSimulated()
			}
		}()
	}

feed:
	for i := 0; i < numPaths; i++ {
		select {
		case indices <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(indices)
	wg.Wait()

	if firstErr != nil {
		return domain.AggregateResult{}, firstErr
	}
	if err := ctx.Err(); err != nil {
		return domain.AggregateResult{}, err
	}

	if a.pathResultStore != nil {
		stored := make([]*domain.StoredPathResult, numPaths)
		for i := range results {
			stored[i] = &domain.StoredPathResult{RunID: a.runID, Result: results[i]}
		}
		if err := a.pathResultStore.InsertBulk(ctx, stored); err != nil {
			return domain.AggregateResult{}, fmt.Errorf("persist path results: %w", err)
		}
	}

	var (
		total   domain.PoolMetrics
		sumLP   float64
		sumHODL float64
	)
	for _, r := range results {
		total.Add(r.Metrics)
		sumLP += r.LPReturn
		sumHODL += r.HODLReturn
	}
	n := float64(numPaths)
	observability.RecordAggregateComputed()
	return domain.AggregateResult{
		NumPaths:       numPaths,
		Mean:           total.Scale(n),
		MeanLPReturn:   sumLP / n,
		MeanHODLReturn: sumHODL / n,
	}, nil
}
