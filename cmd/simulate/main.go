package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/domain"
	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/observability"
	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/pathgen"
	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/pool"
	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/reporting"
	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/simulation"
	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/storage"
	chstore "github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/storage/clickhouse"
	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/storage/memory"
	pgstore "github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/storage/postgres"
)

func main() {
	// Scenario
	presetName := flag.String("preset", domain.PresetMainnet, "Scenario preset: mainnet, arbitrum, eip7781")
	numPaths := flag.Int("paths", 1000, "Number of Monte Carlo price paths")
	durationSec := flag.Int("duration-sec", 24*3600, "Simulated duration per path in seconds")
	blockTimeSec := flag.Int("block-time-sec", 0, "Block time override in seconds (0 uses preset)")
	feeBps := flag.Float64("fee-bps", 0, "LP fee override in basis points (0 uses preset)")
	basefeeUSD := flag.Float64("basefee-usd", -1, "Per-swap basefee override in USD (negative uses preset)")
	driftPerYear := flag.Float64("drift", 0, "Annualized price drift")
	seed := flag.Uint64("seed", 1, "Base seed of the path batch")
	workers := flag.Int("workers", 0, "Concurrent path workers (0 = GOMAXPROCS)")
	blockJitter := flag.Bool("poisson", false, "Jitter per-block price factors with exponential block times")

	// Concentrated-liquidity position
	positionValue := flag.Float64("position-value", 0, "Track an LP position of this USD value (0 disables)")
	positionWidth := flag.Int("position-width", 400, "Position range width in ticks")
	positionMargin := flag.Int("position-margin", 1, "Ticks of margin before a breakout rebalance")

	// Sweep
	sweepBlockTimes := flag.String("sweep-block-times", "", "Comma-separated block times to sweep, e.g. 2,12,600")

	// Storage
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage")
	persist := flag.Bool("persist", false, "Persist run, sweep rows and path results")
	runID := flag.String("run-id", "", "Run identifier for persistence (default derived from time)")

	// Output
	outputJSON := flag.Bool("json", false, "Output as JSON")
	outputCSV := flag.Bool("csv", false, "Output sweep rows as CSV")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address")

	flag.Parse()

	logger := log.New(os.Stderr, "[simulate] ", log.LstdFlags)

	preset, ok := domain.PresetByName(*presetName)
	if !ok {
		logger.Fatalf("Unknown preset: %s. Must be mainnet, arbitrum, or eip7781", *presetName)
	}

	poolCfg := preset.Pool
	if *feeBps > 0 {
		poolCfg.FeePPM = domain.FeeBpsToPPM(*feeBps)
	}
	if *basefeeUSD >= 0 {
		poolCfg.BasefeeUSD = *basefeeUSD
	}
	blockTime := preset.BlockTimeSec
	if *blockTimeSec > 0 {
		blockTime = float64(*blockTimeSec)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	if *metricsAddr != "" {
		go func() {
			if err := http.ListenAndServe(*metricsAddr, observability.Handler()); err != nil {
				logger.Printf("metrics server: %v", err)
			}
		}()
	}

	// Paths are generated per second and binned into blocks, so block-time
	// sweeps reuse identical price trajectories.
	refPool, err := pool.New(poolCfg)
	if err != nil {
		logger.Fatalf("invalid pool configuration: %v", err)
	}
	bandLow, bandHigh := refPool.NoArbitrageRegion()

	pathOpts := pathgen.Options{
		NumSteps:     *durationSec,
		NumPaths:     *numPaths,
		SigmaPerStep: domain.VolatilityPerStep(preset.VolatilityPerYear, 1),
		MuPerStep:    domain.DriftPerStep(*driftPerYear, 1),
		InitialLow:   bandLow,
		InitialHigh:  bandHigh,
		BlockJitter:  *blockJitter,
		Seed:         *seed,
	}

	var policy *simulation.PositionPolicy
	if *positionValue > 0 {
		policy = &simulation.PositionPolicy{
			ValueUSD:        *positionValue,
			RangeWidthTicks: *positionWidth,
			MarginTicks:     *positionMargin,
		}
	}

	// Stores
	var (
		runStore   storage.SimulationRunStore
		sweepStore storage.SweepResultStore
		pathStore  storage.PathResultStore
	)
	if *persist {
		if *useMemory {
			runStore = memory.NewSimulationRunStore()
			sweepStore = memory.NewSweepResultStore()
			pathStore = memory.NewPathResultStore()
		} else {
			if *postgresDSN == "" {
				logger.Fatal("--postgres-dsn is required when persisting without --use-memory")
			}
			pgPool, err := pgstore.NewPool(ctx, *postgresDSN)
			if err != nil {
				logger.Fatalf("connect to postgres: %v", err)
			}
			defer pgPool.Close()
			runStore = pgstore.NewSimulationRunStore(pgPool)
			sweepStore = pgstore.NewSweepResultStore(pgPool)

			if *clickhouseDSN != "" {
				conn, err := chstore.NewConn(ctx, *clickhouseDSN)
				if err != nil {
					logger.Fatalf("connect to clickhouse: %v", err)
				}
				defer conn.Close()
				pathStore = chstore.NewPathResultStore(conn)
			}
		}
	}

	id := *runID
	if id == "" {
		id = fmt.Sprintf("run-%d", time.Now().Unix())
	}

	startedAt := time.Now()

	baseline := simulation.Baseline{
		Pool:    poolCfg,
		Paths:   pathOpts,
		Policy:  policy,
		Workers: *workers,
	}

	var rows []domain.SweepRow
	if *sweepBlockTimes != "" {
		blockTimes, err := parseIntList(*sweepBlockTimes)
		if err != nil {
			logger.Fatalf("invalid --sweep-block-times: %v", err)
		}
		logger.Printf("Sweeping block times %v: preset=%s paths=%d duration=%ds",
			blockTimes, preset.Name, *numPaths, *durationSec)

		rows, err = simulation.SweepBlockTimes(ctx, baseline, blockTimes)
		if err != nil {
			logger.Fatalf("sweep failed: %v", err)
		}
	} else {
		logger.Printf("Running: preset=%s paths=%d duration=%ds block-time=%gs",
			preset.Name, *numPaths, *durationSec, blockTime)

		agg, err := simulation.NewAggregator(simulation.AggregatorOptions{
			PoolFactory:     func() (*pool.Pool, error) { return pool.New(poolCfg) },
			BlockSize:       int(blockTime),
			Policy:          policy,
			Workers:         *workers,
			PathResultStore: pathStore,
			RunID:           id,
		})
		if err != nil {
			logger.Fatalf("create aggregator: %v", err)
		}
		gen, err := pathgen.New(pathOpts)
		if err != nil {
			logger.Fatalf("create path generator: %v", err)
		}

		result, err := agg.Run(ctx, gen)
		if err != nil {
			logger.Fatalf("simulation failed: %v", err)
		}
		rows = []domain.SweepRow{{
			Parameter: simulation.ParamBlockTimeSec,
			Value:     blockTime,
			Result:    result,
		}}
	}
	observability.RecordSimulationRun("simulate", "ok", time.Since(startedAt).Seconds())

	if runStore != nil {
		run := &domain.SimulationRun{
			RunID:             id,
			Preset:            preset.Name,
			FeePPM:            poolCfg.FeePPM,
			BasefeeUSD:        poolCfg.BasefeeUSD,
			BlockTimeSec:      blockTime,
			VolatilityPerYear: preset.VolatilityPerYear,
			DriftPerYear:      *driftPerYear,
			NumPaths:          *numPaths,
			PathLen:           *durationSec,
			Seed:              *seed,
			StartedAt:         startedAt,
			FinishedAt:        time.Now(),
		}
		if err := runStore.Insert(ctx, run); err != nil {
			logger.Fatalf("persist run: %v", err)
		}

		stored := make([]*domain.StoredSweepRow, len(rows))
		for i, row := range rows {
			stored[i] = &domain.StoredSweepRow{RunID: id, Row: row}
		}
		if err := sweepStore.InsertBulk(ctx, stored); err != nil {
			logger.Fatalf("persist sweep rows: %v", err)
		}
		logger.Printf("Persisted run %s with %d rows", id, len(rows))
	}

	switch {
	case *outputJSON:
		output, _ := json.MarshalIndent(rows, "", "  ")
		fmt.Println(string(output))
	case *outputCSV:
		fmt.Print(reporting.RenderCSV(rows))
	default:
		printRows(rows, policy != nil)
	}
}

// parseIntList parses a comma-separated list of positive integers.
func parseIntList(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		if v < 1 {
			return nil, fmt.Errorf("value %d must be positive", v)
		}
		out = append(out, v)
	}
	return out, nil
}

// printRows outputs human-readable sweep results.
func printRows(rows []domain.SweepRow, withPosition bool) {
	fmt.Println()
	fmt.Println("=== Simulation Results (per-path means) ===")
	for _, row := range rows {
		r := row.Result
		fmt.Println()
		fmt.Printf("%s = %g (%d paths)\n", row.Parameter, row.Value, r.NumPaths)
		fmt.Printf("  Volume:        $%.2f\n", r.Mean.VolumeUSD)
		fmt.Printf("  LP Fees:       $%.2f\n", r.Mean.LPFeesUSD)
		fmt.Printf("  LVR:           $%.2f\n", r.Mean.LVRUSD)
		fmt.Printf("  SBP Profit:    $%.2f\n", r.Mean.SBPProfitUSD)
		fmt.Printf("  Basefees:      $%.2f\n", r.Mean.BasefeesUSD)
		fmt.Printf("  Trades:        %.2f\n", r.Mean.NumTrades)
		if withPosition {
			fmt.Printf("  LP Return:     %.4f%%\n", r.MeanLPReturn*100)
			fmt.Printf("  HODL Return:   %.4f%%\n", r.MeanHODLReturn*100)
		}
	}
}
