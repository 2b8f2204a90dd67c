package reporting

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/domain"
	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/storage/memory"
)

func sampleRow(parameter string, value float64) domain.SweepRow {
	return domain.SweepRow{
		Parameter: parameter,
		Value:     value,
		Result: domain.AggregateResult{
			NumPaths: 50,
			Mean: domain.MeanMetrics{
				VolumeUSD:    2.5e6,
				LPFeesUSD:    1250,
				LVRUSD:       1800,
				SBPProfitUSD: 350,
				BasefeesUSD:  200,
				NumTrades:    18.2,
			},
			MeanLPReturn:   -0.0011,
			MeanHODLReturn: 0.0042,
		},
	}
}

func TestSectionsFromRows(t *testing.T) {
	rows := []domain.SweepRow{
		sampleRow("block_time_sec", 2),
		sampleRow("block_time_sec", 12),
		sampleRow("fee_bps", 5),
		sampleRow("block_time_sec", 600),
	}

	sections := SectionsFromRows(rows)

	if len(sections) != 2 {
		t.Fatalf("got %d sections, want 2", len(sections))
	}
	if sections[0].Parameter != "block_time_sec" || len(sections[0].Rows) != 3 {
		t.Errorf("first section = %s with %d rows, want block_time_sec with 3",
			sections[0].Parameter, len(sections[0].Rows))
	}
	if sections[1].Parameter != "fee_bps" || len(sections[1].Rows) != 1 {
		t.Errorf("second section = %s with %d rows, want fee_bps with 1",
			sections[1].Parameter, len(sections[1].Rows))
	}
	if sections[0].Rows[2].Value != 600 {
		t.Errorf("row order not preserved: got value %v", sections[0].Rows[2].Value)
	}
}

func TestRenderCSV(t *testing.T) {
	rows := []domain.SweepRow{
		sampleRow("fee_bps", 5),
		sampleRow("fee_bps", 30),
	}

	out := RenderCSV(rows)
	lines := strings.Split(strings.TrimSpace(out), "\n")

	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header plus 2 rows", len(lines))
	}
	if !strings.HasPrefix(lines[0], "parameter,value,num_paths,") {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if !strings.HasPrefix(lines[1], "fee_bps,5,50,") {
		t.Errorf("unexpected first row: %s", lines[1])
	}

	wantCols := strings.Count(lines[0], ",")
	for i, line := range lines[1:] {
		if strings.Count(line, ",") != wantCols {
			t.Errorf("row %d has wrong column count: %s", i, line)
		}
	}
}

func TestRenderMarkdown(t *testing.T) {
	report := &Report{
		GeneratedAt: time.Now(),
		Run: &domain.SimulationRun{
			RunID:        "run-001",
			Preset:       "eth-usd-500",
			FeePPM:       500,
			BlockTimeSec: 12,
			NumPaths:     100,
			PathLen:      7200,
			Seed:         123456,
		},
		Sections: SectionsFromRows([]domain.SweepRow{
			sampleRow("block_time_sec", 12),
		}),
	}

	out := RenderMarkdown(report)

	for _, want := range []string{
		"# Arbitrage Simulation Report",
		"## Run Configuration",
		"| Run ID | run-001 |",
		"## Sweep: block_time_sec",
		"| 12 | 50 |",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestRenderMarkdownEmpty(t *testing.T) {
	out := RenderMarkdown(&Report{GeneratedAt: time.Now()})
	if !strings.Contains(out, "No sweep results available.") {
		t.Errorf("empty report should say so, got:\n%s", out)
	}
}

func TestGeneratorBuildsReportFromStores(t *testing.T) {
	ctx := context.Background()
	runs := memory.NewSimulationRunStore()
	sweeps := memory.NewSweepResultStore()

	run := &domain.SimulationRun{
		RunID:     "run-xyz",
		Preset:    "eth-usd-500",
		FeePPM:    500,
		NumPaths:  100,
		StartedAt: time.Now(),
	}
	if err := runs.Insert(ctx, run); err != nil {
		t.Fatal(err)
	}

	stored := []*domain.StoredSweepRow{
		{RunID: "run-xyz", Row: sampleRow("fee_bps", 5)},
		{RunID: "run-xyz", Row: sampleRow("fee_bps", 30)},
		{RunID: "run-other", Row: sampleRow("fee_bps", 5)},
	}
	if err := sweeps.InsertBulk(ctx, stored); err != nil {
		t.Fatal(err)
	}

	gen := NewGenerator(runs, sweeps)
	report, err := gen.Generate(ctx, "run-xyz")
	if err != nil {
		t.Fatal(err)
	}

	if report.Run == nil || report.Run.RunID != "run-xyz" {
		t.Fatalf("report run = %+v, want run-xyz", report.Run)
	}
	if len(report.Sections) != 1 {
		t.Fatalf("got %d sections, want 1", len(report.Sections))
	}
	if len(report.Sections[0].Rows) != 2 {
		t.Errorf("got %d rows, want only the 2 belonging to run-xyz", len(report.Sections[0].Rows))
	}
}

func TestGeneratorUnknownRun(t *testing.T) {
	ctx := context.Background()
	gen := NewGenerator(memory.NewSimulationRunStore(), memory.NewSweepResultStore())

	report, err := gen.Generate(ctx, "missing-run")
	if err != nil {
		t.Fatal(err)
	}
	if report.Run != nil {
		t.Errorf("unknown run must yield nil Run, got %+v", report.Run)
	}
	if len(report.Sections) != 0 {
		t.Errorf("unknown run must yield no sections")
	}
}
