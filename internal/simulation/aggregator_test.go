package simulation

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/domain"
	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/pathgen"
	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/pool"
	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/storage/memory"
)

func testGenerator(t *testing.T, numPaths int) *pathgen.Generator {
	t.Helper()
	gen, err := pathgen.New(pathgen.Options{
		NumSteps:     600,
		NumPaths:     numPaths,
		SigmaPerStep: 0.001,
		InitialLow:   ethPrice * 0.999,
		InitialHigh:  ethPrice * 1.001,
		Seed:         123456,
	})
	if err != nil {
		t.Fatalf("pathgen.New failed: %v", err)
	}
	return gen
}

func testFactory() PoolFactory {
	return func() (*pool.Pool, error) { return pool.New(testPoolConfig()) }
}

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

func TestNewAggregatorValidation(t *testing.T) {
	if _, err := NewAggregator(AggregatorOptions{}); !errors.Is(err, ErrNilPoolFactory) {
		t.Errorf("missing factory: got %v, want ErrNilPoolFactory", err)
	}
	if _, err := NewAggregator(AggregatorOptions{PoolFactory: testFactory(), BlockSize: -1}); !errors.Is(err, ErrInvalidBlockSize) {
		t.Errorf("negative block size: got %v, want ErrInvalidBlockSize", err)
	}
}

func TestAggregatorMatchesSerialRun(t *testing.T) {
	const numPaths = 16
	gen := testGenerator(t, numPaths)

	// Serial reference reduction.
	var total domain.PoolMetrics
	for i := 0; i < numPaths; i++ {
		p, err := pool.New(testPoolConfig())
		if err != nil {
			t.Fatalf("pool.New failed: %v", err)
		}
		result, err := RunPath(p, gen.Path(i), 12, 0, nil)
		if err != nil {
			t.Fatalf("RunPath failed: %v", err)
		}
		total.Add(result.Metrics)
	}
	want := total.Scale(numPaths)

	agg, err := NewAggregator(AggregatorOptions{
		PoolFactory: testFactory(),
		BlockSize:   12,
		Workers:     4,
	})
	if err != nil {
		t.Fatalf("NewAggregator failed: %v", err)
	}
	got, err := agg.Run(context.Background(), gen)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if got.NumPaths != numPaths {
		t.Errorf("NumPaths = %d, want %d", got.NumPaths, numPaths)
	}
	if !almostEqual(got.Mean.LVRUSD, want.LVRUSD, 1e-12) ||
		!almostEqual(got.Mean.LPFeesUSD, want.LPFeesUSD, 1e-12) ||
		got.Mean.NumTrades != want.NumTrades {
		t.Errorf("concurrent means %+v differ from serial means %+v", got.Mean, want)
	}
}

func TestAggregatorFailsBatchOnError(t *testing.T) {
	gen := testGenerator(t, 8)

	calls := 0
	factory := func() (*pool.Pool, error) {
		calls++
		if calls == 3 {
			return nil, errors.New("boom")
		}
		return pool.New(testPoolConfig())
	}
	agg, err := NewAggregator(AggregatorOptions{PoolFactory: factory, Workers: 1})
	if err != nil {
		t.Fatalf("NewAggregator failed: %v", err)
	}
	if _, err := agg.Run(context.Background(), gen); err == nil {
		t.Error("a failing path must fail the whole batch")
	}
}

func TestAggregatorHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	agg, err := NewAggregator(AggregatorOptions{PoolFactory: testFactory(), Workers: 2})
	if err != nil {
		t.Fatalf("NewAggregator failed: %v", err)
	}
	if _, err := agg.Run(ctx, testGenerator(t, 64)); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled run: got %v, want context.Canceled", err)
	}
}

func TestAggregatorPersistsPathResults(t *testing.T) {
	const numPaths = 6
	store := memory.NewPathResultStore()

	agg, err := NewAggregator(AggregatorOptions{
		PoolFactory:     testFactory(),
		BlockSize:       12,
		Workers:         3,
		PathResultStore: store,
		RunID:           "run-1",
	})
	if err != nil {
		t.Fatalf("NewAggregator failed: %v", err)
	}
	result, err := agg.Run(context.Background(), testGenerator(t, numPaths))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	stored, err := store.GetByRunID(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("GetByRunID failed: %v", err)
	}
	if len(stored) != numPaths {
		t.Fatalf("stored %d path results, want %d", len(stored), numPaths)
	}

	var total domain.PoolMetrics
	for i, r := range stored {
		if r.Result.PathIndex != i {
			t.Errorf("stored result %d has path index %d", i, r.Result.PathIndex)
		}
		total.Add(r.Result.Metrics)
	}
	mean := total.Scale(numPaths)
	if !almostEqual(mean.LVRUSD, result.Mean.LVRUSD, 1e-12) {
		t.Errorf("stored results mean %v differs from returned mean %v",
			mean.LVRUSD, result.Mean.LVRUSD)
	}
}
