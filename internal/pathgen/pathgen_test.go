package pathgen

import (
	"math"
	"testing"
)

func newTestGenerator(t *testing.T, opts Options) *Generator {
	t.Helper()
	g, err := New(opts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return g
}

func TestNewValidation(t *testing.T) {
	bad := []Options{
		{NumSteps: 1, NumPaths: 1, InitialLow: 3000, InitialHigh: 3000},
		{NumSteps: 10, NumPaths: 0, InitialLow: 3000, InitialHigh: 3000},
		{NumSteps: 10, NumPaths: 1, SigmaPerStep: -0.1, InitialLow: 3000, InitialHigh: 3000},
		{NumSteps: 10, NumPaths: 1, InitialLow: 0, InitialHigh: 3000},
		{NumSteps: 10, NumPaths: 1, InitialLow: 3000, InitialHigh: 2999},
	}
	for i, opts := range bad {
		if _, err := New(opts); err == nil {
			t.Errorf("options %d: expected validation error", i)
		}
	}
}

func TestPathDeterminism(t *testing.T) {
	opts := Options{
		NumSteps:     100,
		NumPaths:     4,
		SigmaPerStep: 0.001,
		InitialLow:   2990,
		InitialHigh:  3010,
		Seed:         1,
	}
	g := newTestGenerator(t, opts)

	a, b := g.Path(0), g.Path(0)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("path 0 not reproducible at step %d: %v != %v", i, a[i], b[i])
		}
	}

	c := g.Path(1)
	if a[0] == c[0] && a[len(a)-1] == c[len(c)-1] {
		t.Error("distinct path indexes should produce distinct paths")
	}

	other := newTestGenerator(t, Options{
		NumSteps:     opts.NumSteps,
		NumPaths:     opts.NumPaths,
		SigmaPerStep: opts.SigmaPerStep,
		InitialLow:   opts.InitialLow,
		InitialHigh:  opts.InitialHigh,
		Seed:         2,
	})
	d := other.Path(0)
	if a[0] == d[0] && a[len(a)-1] == d[len(d)-1] {
		t.Error("distinct seeds should produce distinct paths")
	}
}

func TestPathPricesPositiveAndSeededInBand(t *testing.T) {
	g := newTestGenerator(t, Options{
		NumSteps:     1000,
		NumPaths:     32,
		SigmaPerStep: 0.01,
		InitialLow:   2990,
		InitialHigh:  3010,
		Seed:         7,
	})
	for i := 0; i < g.NumPaths(); i++ {
		path := g.Path(i)
		if len(path) != 1000 {
			t.Fatalf("path %d has %d steps, want 1000", i, len(path))
		}
		if path[0] < 2990 || path[0] > 3010 {
			t.Errorf("path %d initial price %v outside the seeding band", i, path[0])
		}
		for j, p := range path {
			if p <= 0 {
				t.Fatalf("path %d has non-positive price %v at step %d", i, p, j)
			}
		}
	}
}

func TestZeroVolatilityPathIsFlat(t *testing.T) {
	for _, jitter := range []bool{false, true} {
		g := newTestGenerator(t, Options{
			NumSteps:    50,
			NumPaths:    1,
			InitialLow:  3000,
			InitialHigh: 3000,
			BlockJitter: jitter,
			Seed:        3,
		})
		for i, p := range g.Path(0) {
			if p != 3000 {
				t.Fatalf("jitter=%v: price %v at step %d, want 3000", jitter, p, i)
			}
		}
	}
}

// The mean log return of a long GBM path should sit near mu - sigma^2/2.
func TestLogReturnDrift(t *testing.T) {
	const (
		sigma = 0.01
		steps = 200_000
	)
	g := newTestGenerator(t, Options{
		NumSteps:     steps,
		NumPaths:     1,
		SigmaPerStep: sigma,
		InitialLow:   3000,
		InitialHigh:  3000,
		Seed:         11,
	})
	path := g.Path(0)

	mean := math.Log(path[len(path)-1]/path[0]) / float64(steps-1)
	want := -sigma * sigma / 2
	tol := 4 * sigma / math.Sqrt(steps-1)
	if math.Abs(mean-want) > tol {
		t.Errorf("mean log return = %v, want %v within %v", mean, want, tol)
	}
}

func TestBlockJitterChangesSteps(t *testing.T) {
	base := Options{
		NumSteps:     100,
		NumPaths:     1,
		SigmaPerStep: 0.01,
		InitialLow:   3000,
		InitialHigh:  3000,
		Seed:         5,
	}
	plain := newTestGenerator(t, base)

	jittered := base
	jittered.BlockJitter = true
	jit := newTestGenerator(t, jittered)

	a, b := plain.Path(0), jit.Path(0)
	if a[len(a)-1] == b[len(b)-1] {
		t.Error("block jitter should perturb the path")
	}
}

func TestAllMatchesPath(t *testing.T) {
	g := newTestGenerator(t, Options{
		NumSteps:     10,
		NumPaths:     3,
		SigmaPerStep: 0.001,
		InitialLow:   2990,
		InitialHigh:  3010,
		Seed:         9,
	})
	paths := g.All()
	if len(paths) != 3 {
		t.Fatalf("All returned %d paths, want 3", len(paths))
	}
	for i, path := range paths {
		single := g.Path(i)
		for j := range path {
			if path[j] != single[j] {
				t.Fatalf("path %d step %d: All=%v Path=%v", i, j, path[j], single[j])
			}
		}
	}
}
