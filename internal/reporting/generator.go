package reporting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/domain"
	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/storage"
)

// Generator builds reports from persisted runs and sweep results.
type Generator struct {
	runs   storage.SimulationRunStore
	sweeps storage.SweepResultStore
}

// NewGenerator creates a Generator over the given stores. The run store may
// be nil, in which case reports carry no run configuration.
func NewGenerator(runs storage.SimulationRunStore, sweeps storage.SweepResultStore) *Generator {
	return &Generator{runs: runs, sweeps: sweeps}
}

// Generate loads everything persisted for a run and assembles the report.
func (g *Generator) Generate(ctx context.Context, runID string) (*Report, error) {
	report := &Report{GeneratedAt: time.Now()}

	if g.runs != nil {
		run, err := g.runs.GetByID(ctx, runID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("load run %s: %w", runID, err)
		}
		report.Run = run
	}

	stored, err := g.sweeps.GetByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load sweep results for %s: %w", runID, err)
	}

	rows := make([]domain.SweepRow, 0, len(stored))
	for _, s := range stored {
		rows = append(rows, s.Row)
	}
	report.Sections = SectionsFromRows(rows)

	return report, nil
}
