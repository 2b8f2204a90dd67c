package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders a report as a Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	sb.WriteString("# Arbitrage Simulation Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	if r.Run != nil {
		sb.WriteString("## Run Configuration\n\n")
		sb.WriteString("| Setting | Value |\n")
		sb.WriteString("|---------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Run ID | %s |\n", r.Run.RunID))
		sb.WriteString(fmt.Sprintf("| Preset | %s |\n", r.Run.Preset))
		sb.WriteString(fmt.Sprintf("| Fee (ppm) | %d |\n", r.Run.FeePPM))
		sb.WriteString(fmt.Sprintf("| Basefee (USD) | %g |\n", r.Run.BasefeeUSD))
		sb.WriteString(fmt.Sprintf("| Block Time (s) | %g |\n", r.Run.BlockTimeSec))
		sb.WriteString(fmt.Sprintf("| Volatility (per year) | %g |\n", r.Run.VolatilityPerYear))
		sb.WriteString(fmt.Sprintf("| Drift (per year) | %g |\n", r.Run.DriftPerYear))
		sb.WriteString(fmt.Sprintf("| Paths | %d |\n", r.Run.NumPaths))
		sb.WriteString(fmt.Sprintf("| Path Length | %d |\n", r.Run.PathLen))
		sb.WriteString(fmt.Sprintf("| Seed | %d |\n", r.Run.Seed))
		sb.WriteString("\n")
	}

	if len(r.Sections) == 0 {
		sb.WriteString("No sweep results available.\n")
		return sb.String()
	}

	for _, section := range r.Sections {
		sb.WriteString(fmt.Sprintf("## Sweep: %s\n\n", section.Parameter))
		sb.WriteString("| Value | Paths | Volume | LP Fees | LVR | SBP Profit | Basefees | Trades | LP Return | HODL Return |\n")
		sb.WriteString("|-------|-------|--------|---------|-----|------------|----------|--------|-----------|-------------|\n")
		for _, row := range section.Rows {
			res := row.Result
			sb.WriteString(fmt.Sprintf("| %g | %d | %.2f | %.2f | %.2f | %.2f | %.2f | %.2f | %.6f | %.6f |\n",
				row.Value, res.NumPaths,
				res.Mean.VolumeUSD, res.Mean.LPFeesUSD, res.Mean.LVRUSD,
				res.Mean.SBPProfitUSD, res.Mean.BasefeesUSD, res.Mean.NumTrades,
				res.MeanLPReturn, res.MeanHODLReturn))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
