package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders segment summaries as CSV string.
func RenderCSV(rows []SegmentRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("dimension,key,phase,count,no_data_count,win_rate,")
	sb.WriteString("median_return,trimmed_mean_return,expected_value,")
	sb.WriteString("lower_quartile_avg,max_loss,avg_win,avg_loss,total_pnl\n")

	// Rows
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%d,%d,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.2f\n",
			r.Dimension,
			r.Key,
			r.Phase,
			r.Count,
			r.NoDataCount,
			r.WinRate,
			r.MedianReturn,
			r.TrimmedMeanReturn,
			r.ExpectedValue,
			r.LowerQuartileAvg,
			r.MaxLoss,
			r.AvgWin,
			r.AvgLoss,
			r.TotalPnL,
		))
	}

	return sb.String()
}
