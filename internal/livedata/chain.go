// Package livedata fetches real-world inputs for the simulator: Uniswap v3
// pool state and gas costs from an Ethereum node, and a realized volatility
// estimate from a CEX trade stream. The simulation core never fetches
// anything itself; this package produces plain values fed into pool and
// path generator constructors.
package livedata

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/observability"
)

// Chain client errors.
var (
	ErrNoPoolAddress = errors.New("pool address is required")
	ErrEmptyFeeData  = errors.New("fee history returned no basefees")
)

// Gas used by a plain Uniswap v3 swap, used for execution cost estimates.
const swapGasUnits = 150_000

// Number of recent blocks averaged for the basefee estimate.
const basefeeHistoryBlocks = 100

// Minimal Uniswap v3 pool ABI: only the read methods we call.
const uniswapV3PoolABI = `[
	{
		"inputs": [],
		"name": "slot0",
		"outputs": [
			{"internalType": "uint160", "name": "sqrtPriceX96", "type": "uint160"},
			{"internalType": "int24", "name": "tick", "type": "int24"},
			{"internalType": "uint16", "name": "observationIndex", "type": "uint16"},
			{"internalType": "uint16", "name": "observationCardinality", "type": "uint16"},
			{"internalType": "uint16", "name": "observationCardinalityNext", "type": "uint16"},
			{"internalType": "uint8", "name": "feeProtocol", "type": "uint8"},
			{"internalType": "bool", "name": "unlocked", "type": "bool"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "liquidity",
		"outputs": [
			{"internalType": "uint128", "name": "", "type": "uint128"}
		],
		"stateMutability": "view",
		"type": "function"
	}
]`

// PoolState is a snapshot of an on-chain pool expressed in simulator units:
// a spot price for the volatile asset and the combined virtual reserve value.
type PoolState struct {
	SqrtPriceX96 *big.Int
	Liquidity    *big.Int

	SpotPriceUSD  float64 // price of the volatile asset in numeraire units
	ReserveUSD    float64 // numeraire-side virtual reserve
	ReserveAsset  float64 // volatile-side virtual reserve
	TotalValueUSD float64 // both sides valued at the spot price
}

// ChainClientOptions configures a ChainClient. Token decimals default to the
// USDC/WETH layout of the canonical 5 bps pool.
type ChainClientOptions struct {
	RPCURL      string
	PoolAddress string

	Token0Decimals int // numeraire token, defaults to 6
	Token1Decimals int // volatile token, defaults to 18
}

// ChainClient reads Uniswap v3 pool state and basefee history from an
// Ethereum node.
type ChainClient struct {
	client   *ethclient.Client
	contract *bind.BoundContract

	token0Decimals int
	token1Decimals int
}

// NewChainClient connects to the node and binds the pool contract.
func NewChainClient(ctx context.Context, opts ChainClientOptions) (*ChainClient, error) {
	if opts.PoolAddress == "" {
		return nil, ErrNoPoolAddress
	}
	if opts.Token0Decimals == 0 {
		opts.Token0Decimals = 6
	}
	if opts.Token1Decimals == 0 {
		opts.Token1Decimals = 18
	}

	client, err := ethclient.DialContext(ctx, opts.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial ethereum node: %w", err)
	}

	poolABI, err := abi.JSON(strings.NewReader(uniswapV3PoolABI))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("parse pool abi: %w", err)
	}

	contract := bind.NewBoundContract(common.HexToAddress(opts.PoolAddress), poolABI, client, nil, nil)

	return &ChainClient{
		client:         client,
		contract:       contract,
		token0Decimals: opts.Token0Decimals,
		token1Decimals: opts.Token1Decimals,
	}, nil
}

// Close releases the underlying RPC connection.
func (c *ChainClient) Close() {
	c.client.Close()
}

// FetchPoolState reads slot0 and liquidity and derives the virtual reserves
// and spot price.
func (c *ChainClient) FetchPoolState(ctx context.Context) (*PoolState, error) {
	callOpts := &bind.CallOpts{Context: ctx}

	var slot0Out []interface{}
	start := time.Now()
	err := c.contract.Call(callOpts, &slot0Out, "slot0")
	observability.RecordChainCallLatency("slot0", time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("call slot0: %w", err)
	}
	sqrtPriceX96 := slot0Out[0].(*big.Int)

	var liquidityOut []interface{}
	start = time.Now()
	err = c.contract.Call(callOpts, &liquidityOut, "liquidity")
	observability.RecordChainCallLatency("liquidity", time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("call liquidity: %w", err)
	}
	liquidity := liquidityOut[0].(*big.Int)

	state := derivePoolState(sqrtPriceX96, liquidity, c.token0Decimals, c.token1Decimals)
	return state, nil
}

// SwapCostUSD estimates the execution cost of one swap from the average
// basefee over recent blocks, the fixed swap gas figure and the asset price.
func (c *ChainClient) SwapCostUSD(ctx context.Context, assetPriceUSD float64) (float64, error) {
	start := time.Now()
	history, err := c.client.FeeHistory(ctx, basefeeHistoryBlocks, nil, nil)
	observability.RecordChainCallLatency("fee_history", time.Since(start).Seconds())
	if err != nil {
		return 0, fmt.Errorf("fee history: %w", err)
	}

	return swapCostFromBasefees(history.BaseFee, assetPriceUSD)
}

// derivePoolState converts raw slot0/liquidity values into virtual reserves.
// With L the pool liquidity and sqrtP the raw sqrt price:
//
//	reserve0 = L / sqrtP    reserve1 = L * sqrtP
//
// both scaled out of the X96 fixed point and token decimals.
func derivePoolState(sqrtPriceX96, liquidity *big.Int, token0Decimals, token1Decimals int) *PoolState {
	q96 := new(big.Int).Lsh(big.NewInt(1), 96)
	q192 := new(big.Int).Lsh(big.NewInt(1), 192)

	// reserve0_x96 = liquidity * Q192 / sqrtPriceX96
	reserve0X96 := new(big.Int).Mul(liquidity, q192)
	reserve0X96.Div(reserve0X96, sqrtPriceX96)

	// reserve1_x96 = liquidity * sqrtPriceX96
	reserve1X96 := new(big.Int).Mul(liquidity, sqrtPriceX96)

	reserveUSD := bigToFloat(reserve0X96) / bigToFloat(q96) / math.Pow10(token0Decimals)
	reserveAsset := bigToFloat(reserve1X96) / bigToFloat(q96) / math.Pow10(token1Decimals)

	// Raw token1/token0 price, then flipped and decimal-adjusted so the
	// volatile asset is quoted in numeraire units.
	rawPrice := bigToFloat(sqrtPriceX96) * bigToFloat(sqrtPriceX96) / bigToFloat(q192)
	spotPrice := 1 / (rawPrice * math.Pow10(token0Decimals-token1Decimals))

	return &PoolState{
		SqrtPriceX96:  sqrtPriceX96,
		Liquidity:     liquidity,
		SpotPriceUSD:  spotPrice,
		ReserveUSD:    reserveUSD,
		ReserveAsset:  reserveAsset,
		TotalValueUSD: reserveUSD + reserveAsset*spotPrice,
	}
}

// swapCostFromBasefees averages the wei basefees and prices the fixed swap
// gas in numeraire units.
func swapCostFromBasefees(basefees []*big.Int, assetPriceUSD float64) (float64, error) {
	if len(basefees) == 0 {
		return 0, ErrEmptyFeeData
	}

	sum := new(big.Int)
	for _, fee := range basefees {
		sum.Add(sum, fee)
	}
	avgBasefee := bigToFloat(sum) / float64(len(basefees))

	return swapGasUnits * avgBasefee * assetPriceUSD * 1e-18, nil
}

func bigToFloat(v *big.Int) float64 {
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}
