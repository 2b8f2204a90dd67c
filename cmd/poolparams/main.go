// Command poolparams fetches real-world simulation inputs: the virtual
// reserves and spot price of an on-chain Uniswap v3 pool, the average swap
// execution cost from recent basefees, and a realized volatility estimate
// from a CEX trade stream.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/livedata"
)

// The canonical WETH/USDC 5 bps pool on mainnet.
const defaultPoolAddress = "0x88e6a0c2ddd26feeb64f039a2c41296fcb3f5640"

func main() {
	rpcURL := flag.String("rpc-url", os.Getenv("PROVIDER_URL"), "Ethereum RPC endpoint (default $PROVIDER_URL)")
	poolAddress := flag.String("pool", defaultPoolAddress, "Uniswap v3 pool address")
	streamURL := flag.String("stream-url", "wss://stream.binance.com:9443/ws/ethusdt@trade",
		"CEX websocket trade stream; empty disables the volatility estimate")
	numTrades := flag.Int("trades", 2000, "Trades to collect for the volatility estimate")
	timeout := flag.Duration("timeout", 5*time.Minute, "Overall timeout")

	flag.Parse()

	logger := log.New(os.Stderr, "[poolparams] ", log.LstdFlags)

	if *rpcURL == "" {
		logger.Fatal("--rpc-url or PROVIDER_URL is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	client, err := livedata.NewChainClient(ctx, livedata.ChainClientOptions{
		RPCURL:      *rpcURL,
		PoolAddress: *poolAddress,
	})
	if err != nil {
		logger.Fatalf("connect to ethereum node: %v", err)
	}
	defer client.Close()

	state, err := client.FetchPoolState(ctx)
	if err != nil {
		logger.Fatalf("fetch pool state: %v", err)
	}
	fmt.Printf("price:                  $%.2f\n", state.SpotPriceUSD)
	fmt.Printf("total virtual reserves: $%.0f\n", state.TotalValueUSD)

	swapCost, err := client.SwapCostUSD(ctx, state.SpotPriceUSD)
	if err != nil {
		logger.Fatalf("estimate swap cost: %v", err)
	}
	fmt.Printf("swap cost:              $%.2f\n", swapCost)

	if *streamURL == "" {
		return
	}

	logger.Printf("Collecting %d trades from %s...", *numTrades, *streamURL)

	estimator := livedata.NewVolatilityEstimator()
	stream := livedata.NewTradeStream(livedata.TradeStreamOptions{
		URL:       *streamURL,
		MaxTrades: *numTrades,
	}, estimator)

	if err := stream.Run(ctx); err != nil {
		logger.Fatalf("trade stream: %v", err)
	}

	vol, err := estimator.AnnualizedVolatility()
	if err != nil {
		logger.Fatalf("volatility estimate: %v", err)
	}
	fmt.Printf("volatility:             %.4f (annualized, %d trades)\n", vol, estimator.NumTrades())
}
