package reporting

import (
	"fmt"
	"strings"

	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/domain"
)

// RenderCSV renders sweep rows as a CSV string.
func RenderCSV(rows []domain.SweepRow) string {
	var sb strings.Builder

	sb.WriteString("parameter,value,num_paths,mean_volume_usd,mean_lp_fees_usd,mean_lvr_usd,")
	sb.WriteString("mean_sbp_profit_usd,mean_basefees_usd,mean_num_trades,mean_lp_return,mean_hodl_return\n")

	for _, row := range rows {
		r := row.Result
		sb.WriteString(fmt.Sprintf("%s,%g,%d,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.8f,%.8f\n",
			row.Parameter,
			row.Value,
			r.NumPaths,
			r.Mean.VolumeUSD,
			r.Mean.LPFeesUSD,
			r.Mean.LVRUSD,
			r.Mean.SBPProfitUSD,
			r.Mean.BasefeesUSD,
			r.Mean.NumTrades,
			r.MeanLPReturn,
			r.MeanHODLReturn,
		))
	}

	return sb.String()
}
