package domain

import "math"

// SecondsPerYear is used to convert annualized volatility and drift to
// per-step values.
const SecondsPerYear = 365 * 24 * 60 * 60

// Preset identifiers.
const (
	PresetMainnet  = "mainnet"
	PresetArbitrum = "arbitrum"
	PresetEIP7781  = "eip7781"
)

// Preset bundles a pool configuration with the market parameters the
// published experiments used for it.
type Preset struct {
	Name string
	Pool PoolConfig

	BlockTimeSec      float64
	VolatilityPerYear float64
}

// Predefined presets matching the published experiment parameters:
// a $1B WETH/USDC 5bps pool at an ETH price of $3000.
var (
	// MainnetPreset models Ethereum mainnet: 12 second blocks, $10 swaps.
	MainnetPreset = Preset{
		Name: PresetMainnet,
		Pool: PoolConfig{
			TotalValueUSD:  1_000_000_000,
			ReferencePrice: 3000,
			FeePPM:         500,
			BasefeeUSD:     10,
			TickSpacing:    10,
		},
		BlockTimeSec:      12,
		VolatilityPerYear: 0.5,
	}

	// ArbitrumPreset models Arbitrum One: sub-second blocks, cheap swaps,
	// and the mainnet pool's liquidity reduced by the observed 2.56 ratio.
	ArbitrumPreset = Preset{
		Name: PresetArbitrum,
		Pool: PoolConfig{
			TotalValueUSD:  1_000_000_000 / 2.56,
			ReferencePrice: 3000,
			FeePPM:         500,
			BasefeeUSD:     0.1,
			TickSpacing:    10,
		},
		BlockTimeSec:      0.25,
		VolatilityPerYear: 0.5,
	}

	// EIP7781Preset models the proposed mainnet block-time reduction to
	// 8 seconds with proportionally cheaper swaps.
	EIP7781Preset = Preset{
		Name: PresetEIP7781,
		Pool: PoolConfig{
			TotalValueUSD:  1_000_000_000,
			ReferencePrice: 3000,
			FeePPM:         500,
			BasefeeUSD:     10 * 8.0 / 12.0,
			TickSpacing:    10,
		},
		BlockTimeSec:      8,
		VolatilityPerYear: 0.6072,
	}
)

// PresetByName returns the preset for a known name, or false.
func PresetByName(name string) (Preset, bool) {
	switch name {
	case PresetMainnet:
		return MainnetPreset, true
	case PresetArbitrum:
		return ArbitrumPreset, true
	case PresetEIP7781:
		return EIP7781Preset, true
	}
	return Preset{}, false
}

// VolatilityPerStep converts annualized volatility to the per-step sigma for
// steps of the given duration.
func VolatilityPerStep(volPerYear, stepSec float64) float64 {
	return volPerYear / math.Sqrt(SecondsPerYear) * math.Sqrt(stepSec)
}

// DriftPerStep converts annualized drift to the per-step mu for steps of the
// given duration.
func DriftPerStep(driftPerYear, stepSec float64) float64 {
	return driftPerYear / SecondsPerYear * stepSec
}
