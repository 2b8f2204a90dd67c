package quicksim

import "testing"

func baseOptions() Options {
	return Options{
		BlockTimeSec:   12,
		FeeBps:         5,
		SigmaPerSecond: 0.05 / 293.94, // 5% daily volatility
		NumBlocks:      200_000,
		Seed:           123456,
	}
}

func estimate(t *testing.T, opts Options) float64 {
	t.Helper()
	prob, err := ArbProbability(opts)
	if err != nil {
		t.Fatalf("ArbProbability failed: %v", err)
	}
	return prob
}

func TestArbProbabilityValidation(t *testing.T) {
	bad := []Options{
		{BlockTimeSec: 12, FeeBps: 5, SigmaPerSecond: 0.001, NumBlocks: 0},
		{BlockTimeSec: 12, FeeBps: -1, SigmaPerSecond: 0.001, NumBlocks: 100},
		{BlockTimeSec: 12, FeeBps: 10_000, SigmaPerSecond: 0.001, NumBlocks: 100},
		{BlockTimeSec: 12, FeeBps: 5, SigmaPerSecond: -0.001, NumBlocks: 100},
		{BlockTimeSec: 0, FeeBps: 5, SigmaPerSecond: 0.001, NumBlocks: 100},
	}
	for i, opts := range bad {
		if _, err := ArbProbability(opts); err == nil {
			t.Errorf("options %d: expected validation error", i)
		}
	}
}

func TestArbProbabilityDeterministic(t *testing.T) {
	opts := baseOptions()
	a := estimate(t, opts)
	b := estimate(t, opts)
	if a != b {
		t.Errorf("same seed produced different estimates: %v != %v", a, b)
	}
	if a <= 0 || a >= 1 {
		t.Errorf("probability %v outside (0, 1)", a)
	}

	opts.Seed = 99
	if c := estimate(t, opts); c == a {
		t.Error("different seeds should perturb the estimate")
	}
}

func TestArbProbabilityDecreasesWithFee(t *testing.T) {
	opts := baseOptions()
	var prev float64 = 1
	for _, feeBps := range []float64{1, 5, 10, 30, 100} {
		opts.FeeBps = feeBps
		prob := estimate(t, opts)
		if prob >= prev {
			t.Errorf("fee %vbps: probability %v should be below %v", feeBps, prob, prev)
		}
		prev = prob
	}
}

func TestArbProbabilityGrowsWithBlockTime(t *testing.T) {
	opts := baseOptions()

	opts.BlockTimeSec = 2
	short := estimate(t, opts)
	opts.BlockTimeSec = 600
	long := estimate(t, opts)

	// Longer blocks accumulate more volatility per block, so a block is more
	// likely to end outside the band.
	if long <= short {
		t.Errorf("600s blocks (%v) should arb more often per block than 2s blocks (%v)", long, short)
	}
}

func TestArbProbabilityPoissonDiffersFromUniform(t *testing.T) {
	opts := baseOptions()
	uniform := estimate(t, opts)

	opts.Poisson = true
	poisson := estimate(t, opts)

	if poisson == uniform {
		t.Error("Poisson block times should change the estimate")
	}
	if poisson <= 0 || poisson >= 1 {
		t.Errorf("probability %v outside (0, 1)", poisson)
	}
}
