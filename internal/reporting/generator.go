package reporting

import (
	"context"
	"sort"
	"time"

	"daytrade-lab/internal/domain"
	"daytrade-lab/internal/segment"
	"daytrade-lab/internal/storage"
)

// Generator produces reports from stored data.
type Generator struct {
	entryStore   storage.EntryStore
	tradeStore   storage.TradeStore
	segmentStore storage.SegmentStatsStore
	now          func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(
	entryStore storage.EntryStore,
	tradeStore storage.TradeStore,
	segmentStore storage.SegmentStatsStore,
) *Generator {
	return &Generator{
		entryStore:   entryStore,
		tradeStore:   tradeStore,
		segmentStore: segmentStore,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a complete run report from stored entries, trades and
// segment summaries.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	entries, err := g.entryStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	trades, err := g.tradeStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	summaries, err := g.segmentStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	phaseSet := make(map[string]struct{})
	for _, t := range trades {
		phaseSet[t.Phase] = struct{}{}
	}
	dimensionSet := make(map[string]struct{})
	for _, s := range summaries {
		dimensionSet[s.Dimension] = struct{}{}
	}

	return &Report{
		GeneratedAt:     g.now(),
		PhaseCount:      len(phaseSet),
		DimensionCount:  len(dimensionSet),
		DataSummary:     generateDataSummary(entries, trades),
		PhaseComparison: generatePhaseComparison(trades),
		SegmentRows:     generateSegmentRows(summaries),
	}, nil
}

// generateDataSummary computes the data description from entries and trades.
func generateDataSummary(entries []*domain.Entry, trades []*domain.Trade) DataSummary {
	summary := DataSummary{
		TotalEntries: len(entries),
		TotalTrades:  len(trades),
	}

	for _, t := range trades {
		if t.NoData() {
			summary.NoDataTrades++
		}
	}

	for _, e := range entries {
		if summary.DateRangeStart.IsZero() || e.SessionDate.Before(summary.DateRangeStart) {
			summary.DateRangeStart = e.SessionDate
		}
		if e.SessionDate.After(summary.DateRangeEnd) {
			summary.DateRangeEnd = e.SessionDate
		}
	}
	return summary
}

// generatePhaseComparison summarizes the full trade sample per phase. This is
// the headline table; segment rows refine it by entry attribute.
func generatePhaseComparison(trades []*domain.Trade) []PhaseComparisonRow {
	byPhase := make(map[string][]*domain.Trade)
	noData := make(map[string]int)
	totalPnL := make(map[string]float64)

	for _, t := range trades {
		if t.NoData() {
			noData[t.Phase]++
			// Keep the phase visible even when every trade lacks bars.
			if _, ok := byPhase[t.Phase]; !ok {
				byPhase[t.Phase] = nil
			}
			continue
		}
		byPhase[t.Phase] = append(byPhase[t.Phase], t)
		totalPnL[t.Phase] += t.PnLPerLot
	}

	rows := make([]PhaseComparisonRow, 0, len(byPhase))
	for phase, sample := range byPhase {
		stats := segment.ComputeRobustStats(sample)
		rows = append(rows, PhaseComparisonRow{
			Phase:         phase,
			Count:         len(sample),
			NoDataCount:   noData[phase],
			WinRate:       stats.WinRate,
			MedianReturn:  stats.MedianReturn,
			ExpectedValue: stats.ExpectedValue,
			TotalPnL:      totalPnL[phase],
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Phase < rows[j].Phase
	})
	return rows
}

// generateSegmentRows flattens stored summaries preserving store order
// (dimension, key, phase).
func generateSegmentRows(summaries []*domain.SegmentStats) []SegmentRow {
	rows := make([]SegmentRow, len(summaries))
	for i, s := range summaries {
		rows[i] = SegmentRow{
			Dimension:         s.Dimension,
			Key:               s.Key,
			Phase:             s.Phase,
			Count:             s.Stats.Count,
			NoDataCount:       s.NoDataCount,
			WinRate:           s.Stats.WinRate,
			MedianReturn:      s.Stats.MedianReturn,
			TrimmedMeanReturn: s.Stats.TrimmedMeanReturn,
			ExpectedValue:     s.Stats.ExpectedValue,
			LowerQuartileAvg:  s.Stats.LowerQuartileAvg,
			MaxLoss:           s.Stats.MaxLoss,
			AvgWin:            s.Stats.AvgWin,
			AvgLoss:           s.Stats.AvgLoss,
			TotalPnL:          s.TotalPnL,
		}
	}
	return rows
}
