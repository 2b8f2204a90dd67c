// Command replicate reproduces the arbitrage probability and LP loss tables
// of the LVR-with-fees paper, first with the closed-form quick simulation
// and then with the full pool simulation.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/domain"
	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/pathgen"
	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/quicksim"
	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/simulation"
)

const secondsPerDay = 86400

func main() {
	blockTimesFlag := flag.String("block-times", "2,12,120,600", "Block times in seconds")
	feeBpsFlag := flag.String("fee-bps", "1,5,10,30,100", "Swap fees in basis points")
	basefeesFlag := flag.String("basefees", "0,10,30", "Basefee levels in USD for the full simulation")
	dailyVol := flag.Float64("daily-vol", 0.05, "Price volatility per day")
	numPaths := flag.Int("paths", 1000, "Number of price paths in the full simulation")
	nSeconds := flag.Int("seconds", 300000, "Simulated seconds per path; must divide by every block time")
	quickBlocks := flag.Int("quick-blocks", 10_000_000, "Number of blocks in each quick simulation")
	seed := flag.Uint64("seed", 123456, "Random seed")
	quickOnly := flag.Bool("quick-only", false, "Skip the full pool simulation")

	flag.Parse()

	logger := log.New(os.Stderr, "[replicate] ", log.LstdFlags)

	blockTimes, err := parseIntList(*blockTimesFlag)
	if err != nil {
		logger.Fatalf("invalid --block-times: %v", err)
	}
	feeBps, err := parseFloatList(*feeBpsFlag)
	if err != nil {
		logger.Fatalf("invalid --fee-bps: %v", err)
	}
	basefees, err := parseFloatList(*basefeesFlag)
	if err != nil {
		logger.Fatalf("invalid --basefees: %v", err)
	}
	for _, bt := range blockTimes {
		if *nSeconds%bt != 0 {
			logger.Fatalf("--seconds %d is not divisible by block time %d", *nSeconds, bt)
		}
	}

	sigmaPerSecond := *dailyVol / math.Sqrt(secondsPerDay)

	fmt.Println("Poisson-distributed blocks, quick simulation")
	runQuick(logger, blockTimes, feeBps, sigmaPerSecond, *quickBlocks, *seed, true)
	fmt.Println()

	fmt.Println("uniformly distributed blocks, quick simulation")
	runQuick(logger, blockTimes, feeBps, sigmaPerSecond, *quickBlocks, *seed, false)
	fmt.Println()

	if *quickOnly {
		return
	}

	for _, basefee := range basefees {
		fmt.Printf("uniformly distributed blocks, full DEX simulation, $%g swap basefees\n", basefee)
		runFull(logger, blockTimes, feeBps, sigmaPerSecond, basefee, *numPaths, *nSeconds, *seed)
		fmt.Println()
	}

	fmt.Println("all done!")
}

// runQuick estimates per-block arbitrage probability from the price band
// random walk alone, without simulating a pool.
func runQuick(logger *log.Logger, blockTimes []int, feeBps []float64,
	sigmaPerSecond float64, numBlocks int, seed uint64, poisson bool) {

	probs := make(map[int][]float64)
	for _, bt := range blockTimes {
		for _, fee := range feeBps {
			p, err := quicksim.ArbProbability(quicksim.Options{
				BlockTimeSec:   float64(bt),
				FeeBps:         fee,
				SigmaPerSecond: sigmaPerSecond,
				NumBlocks:      numBlocks,
				Poisson:        poisson,
				Seed:           seed,
			})
			if err != nil {
				logger.Fatalf("quick sim block-time=%d fee=%gbps: %v", bt, fee, err)
			}
			probs[bt] = append(probs[bt], p)
		}
	}
	printResults("arb prob %", blockTimes, feeBps, probs)
}

// runFull drives the pool simulation and reports the arbitrage probability
// alongside the LP loss normalized against LVR.
func runFull(logger *log.Logger, blockTimes []int, feeBps []float64,
	sigmaPerSecond, basefeeUSD float64, numPaths, nSeconds int, seed uint64) {

	ctx := context.Background()

	// Every path is truncated to the block count of the longest block time,
	// so the per-block statistics stay comparable across rows.
	maxBlockTime := blockTimes[0]
	for _, bt := range blockTimes {
		if bt > maxBlockTime {
			maxBlockTime = bt
		}
	}
	numBlocks := nSeconds / maxBlockTime

	pool := domain.PoolConfig{
		TotalValueUSD:  1_000_000_000,
		ReferencePrice: 3000,
		FeePPM:         500,
		BasefeeUSD:     basefeeUSD,
		TickSpacing:    10,
	}

	probs := make(map[int][]float64)
	losses := make(map[int][]float64)
	for _, bt := range blockTimes {
		baseline := simulation.Baseline{
			Pool: pool,
			Paths: pathgen.Options{
				NumSteps:     nSeconds,
				NumPaths:     numPaths,
				SigmaPerStep: sigmaPerSecond,
				InitialLow:   pool.ReferencePrice,
				InitialHigh:  pool.ReferencePrice,
				Seed:         seed,
			},
			MaxBlocks: numBlocks,
		}

		rows, err := simulation.SweepFeeBps(ctx, baseline, bt, feeBps)
		if err != nil {
			logger.Fatalf("full sim block-time=%d: %v", bt, err)
		}
		for _, row := range rows {
			mean := row.Result.Mean
			probs[bt] = append(probs[bt], mean.NumTrades/float64(numBlocks))
			losses[bt] = append(losses[bt], (mean.LVRUSD-mean.LPFeesUSD)/mean.LVRUSD)
		}
	}
	printResults("arb prob %", blockTimes, feeBps, probs)
	printResults("LP loss  %", blockTimes, feeBps, losses)
}

// printResults prints one table: fee levels as columns, block times as rows
// in descending order, values as percentages.
func printResults(msg string, blockTimes []int, feeBps []float64, data map[int][]float64) {
	fmt.Print("swap fee:                        ")
	for _, fee := range feeBps {
		fmt.Printf("%5s ", fmt.Sprintf("%gbp", fee))
	}
	fmt.Println()

	sorted := append([]int(nil), blockTimes...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
	for _, bt := range sorted {
		fmt.Printf("block time %5d sec, %s:", bt, msg)
		for _, v := range data[bt] {
			fmt.Printf("%5.1f ", 100*v)
		}
		fmt.Println()
	}
}

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

func parseFloatList(s string) ([]float64, error) {
	var out []float64
	for _, part := range strings.Split(s, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
