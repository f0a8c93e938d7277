package reporting

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Exit-Rule Simulation Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Phases: %d | Dimensions: %d\n\n", r.PhaseCount, r.DimensionCount))

	// Data Summary
	sb.WriteString("## Data Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Entries | %d |\n", r.DataSummary.TotalEntries))
	sb.WriteString(fmt.Sprintf("| Total Trades | %d |\n", r.DataSummary.TotalTrades))
	sb.WriteString(fmt.Sprintf("| No-Data Trades | %d |\n", r.DataSummary.NoDataTrades))
	if !r.DataSummary.DateRangeStart.IsZero() {
		sb.WriteString(fmt.Sprintf("| First Session | %s |\n", r.DataSummary.DateRangeStart.Format(dateLayout)))
		sb.WriteString(fmt.Sprintf("| Last Session | %s |\n", r.DataSummary.DateRangeEnd.Format(dateLayout)))
	}
	sb.WriteString("\n")

	// Phase Comparison
	sb.WriteString("## Phase Comparison\n\n")
	if len(r.PhaseComparison) > 0 {
		sb.WriteString("| Phase | Trades | NoData | WinRate | Median | EV | TotalPnL |\n")
		sb.WriteString("|-------|--------|--------|---------|--------|----|----------|\n")
		for _, p := range r.PhaseComparison {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %.4f | %.4f | %.4f | %.2f |\n",
				p.Phase, p.Count, p.NoDataCount,
				p.WinRate, p.MedianReturn, p.ExpectedValue, p.TotalPnL))
		}
	} else {
		sb.WriteString("No trades available.\n")
	}
	sb.WriteString("\n")

	// Segment Summaries
	sb.WriteString("## Segment Summaries\n\n")
	if len(r.SegmentRows) > 0 {
		sb.WriteString("| Dimension | Key | Phase | N | NoData | WinRate | Median | TrimMean | EV | LowQAvg | MaxLoss | TotalPnL |\n")
		sb.WriteString("|-----------|-----|-------|---|--------|---------|--------|----------|----|---------|---------|----------|\n")
		for _, s := range r.SegmentRows {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %d | %d | %.4f | %.4f | %.4f | %.4f | %.4f | %.4f | %.2f |\n",
				s.Dimension, s.Key, s.Phase,
				s.Count, s.NoDataCount, s.WinRate, s.MedianReturn, s.TrimmedMeanReturn,
				s.ExpectedValue, s.LowerQuartileAvg, s.MaxLoss, s.TotalPnL))
		}
	} else {
		sb.WriteString("No segment summaries available.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
