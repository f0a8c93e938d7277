package reporting

import (
	"context"
	"strings"
	"testing"
	"time"

	"daytrade-lab/internal/domain"
	"daytrade-lab/internal/storage/memory"
)

var testClock = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func boolPtr(v bool) *bool { return &v }

func setupTestData(t *testing.T) (*memory.EntryStore, *memory.TradeStore, *memory.SegmentStatsStore) {
	ctx := context.Background()

	entryStore := memory.NewEntryStore()
	tradeStore := memory.NewTradeStore()
	segmentStore := memory.NewSegmentStatsStore()

	day1 := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 2, 24, 0, 0, 0, 0, time.UTC)

	entries := []*domain.Entry{
		{Ticker: "7203", SessionDate: day1, EntryPrice: 1000, Direction: domain.DirectionLong},
		{Ticker: "9984", SessionDate: day1, EntryPrice: 8200, Direction: domain.DirectionLong},
		{Ticker: "7203", SessionDate: day2, EntryPrice: 1010, Direction: domain.DirectionLong},
	}
	for _, e := range entries {
		if err := entryStore.Insert(ctx, e); err != nil {
			t.Fatalf("Insert entry failed: %v", err)
		}
	}

	trades := []*domain.Trade{
		{TradeID: "t1", Ticker: "7203", SessionDate: day1, Phase: "phase1", PolicyID: "FIXED_TIME_11:30",
			Direction: domain.DirectionLong, EntryPrice: 1000, ExitPrice: 1020,
			ExitReason: domain.ExitReasonSessionClose, ReturnPct: 0.02, PnLPerLot: 2000, Win: boolPtr(true)},
		{TradeID: "t2", Ticker: "9984", SessionDate: day1, Phase: "phase1", PolicyID: "FIXED_TIME_11:30",
			Direction: domain.DirectionLong, EntryPrice: 8200, ExitPrice: 8036,
			ExitReason: domain.ExitReasonSessionClose, ReturnPct: -0.02, PnLPerLot: -16400, Win: boolPtr(false)},
		{TradeID: "t3", Ticker: "7203", SessionDate: day1, Phase: "phase4", PolicyID: "MULTI_STAGE_tp2_sl-4",
			Direction: domain.DirectionLong, EntryPrice: 1000, ExitPrice: 1020,
			ExitReason: domain.ExitReasonTakeProfit, ReturnPct: 0.02, PnLPerLot: 2000, Win: boolPtr(true)},
		{TradeID: "t4", Ticker: "7203", SessionDate: day2, Phase: "phase4", PolicyID: "MULTI_STAGE_tp2_sl-4",
			Direction: domain.DirectionLong, EntryPrice: 1010,
			ExitReason: domain.ExitReasonNoData},
	}
	for _, tr := range trades {
		if err := tradeStore.Insert(ctx, tr); err != nil {
			t.Fatalf("Insert trade failed: %v", err)
		}
	}

	summaries := []*domain.SegmentStats{
		{Dimension: "category", Key: "auto", Phase: "phase1",
			Stats:    domain.RobustStats{Count: 3, WinRate: 0.6667, MedianReturn: 0.02, ExpectedValue: 0.005, MaxLoss: -0.02},
			TotalPnL: 4500},
		{Dimension: "index_direction", Key: "up", Phase: "phase4",
			Stats:       domain.RobustStats{Count: 4, WinRate: 0.5, MedianReturn: 0.0, ExpectedValue: -0.001, MaxLoss: -0.04},
			TotalPnL:    -1200,
			NoDataCount: 1},
	}
	if err := segmentStore.InsertBulk(ctx, summaries); err != nil {
		t.Fatalf("Insert summaries failed: %v", err)
	}

	return entryStore, tradeStore, segmentStore
}

func TestGenerate_Metadata(t *testing.T) {
	entryStore, tradeStore, segmentStore := setupTestData(t)

	gen := NewGenerator(entryStore, tradeStore, segmentStore).
		WithClock(func() time.Time { return testClock })

	report, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if !report.GeneratedAt.Equal(testClock) {
		t.Errorf("GeneratedAt = %v, want injected clock", report.GeneratedAt)
	}
	if report.PhaseCount != 2 {
		t.Errorf("PhaseCount = %d, want 2", report.PhaseCount)
	}
	if report.DimensionCount != 2 {
		t.Errorf("DimensionCount = %d, want 2", report.DimensionCount)
	}
}

func TestGenerate_DataSummary(t *testing.T) {
	entryStore, tradeStore, segmentStore := setupTestData(t)

	gen := NewGenerator(entryStore, tradeStore, segmentStore)
	report, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	ds := report.DataSummary
	if ds.TotalEntries != 3 || ds.TotalTrades != 4 || ds.NoDataTrades != 1 {
		t.Errorf("DataSummary = %+v", ds)
	}
	if ds.DateRangeStart.Format("2006-01-02") != "2026-02-20" {
		t.Errorf("DateRangeStart = %v", ds.DateRangeStart)
	}
	if ds.DateRangeEnd.Format("2006-01-02") != "2026-02-24" {
		t.Errorf("DateRangeEnd = %v", ds.DateRangeEnd)
	}
}

func TestGenerate_PhaseComparison(t *testing.T) {
	entryStore, tradeStore, segmentStore := setupTestData(t)

	gen := NewGenerator(entryStore, tradeStore, segmentStore)
	report, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	rows := report.PhaseComparison
	if len(rows) != 2 {
		t.Fatalf("got %d phase rows, want 2", len(rows))
	}

	// Sorted by phase name
	if rows[0].Phase != "phase1" || rows[1].Phase != "phase4" {
		t.Fatalf("phase order = %s, %s", rows[0].Phase, rows[1].Phase)
	}

	p1 := rows[0]
	if p1.Count != 2 || p1.NoDataCount != 0 {
		t.Errorf("phase1 counts = %+v", p1)
	}
	if p1.WinRate != 0.5 {
		t.Errorf("phase1 win rate = %v, want 0.5", p1.WinRate)
	}
	if p1.MedianReturn != 0.0 {
		t.Errorf("phase1 median = %v, want 0", p1.MedianReturn)
	}
	if p1.TotalPnL != -14400 {
		t.Errorf("phase1 total pnl = %v, want -14400", p1.TotalPnL)
	}

	p4 := rows[1]
	if p4.Count != 1 || p4.NoDataCount != 1 {
		t.Errorf("phase4 counts = %+v", p4)
	}
	if p4.WinRate != 1.0 {
		t.Errorf("phase4 win rate = %v, want 1.0", p4.WinRate)
	}
}

func TestGenerate_SegmentRowsPreserveStoreOrder(t *testing.T) {
	entryStore, tradeStore, segmentStore := setupTestData(t)

	gen := NewGenerator(entryStore, tradeStore, segmentStore)
	report, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	rows := report.SegmentRows
	if len(rows) != 2 {
		t.Fatalf("got %d segment rows, want 2", len(rows))
	}
	if rows[0].Dimension != "category" || rows[1].Dimension != "index_direction" {
		t.Errorf("dimension order = %s, %s", rows[0].Dimension, rows[1].Dimension)
	}
	if rows[1].NoDataCount != 1 || rows[1].TotalPnL != -1200 {
		t.Errorf("segment row 1 = %+v", rows[1])
	}
}

func TestGenerate_EmptyStores(t *testing.T) {
	gen := NewGenerator(memory.NewEntryStore(), memory.NewTradeStore(), memory.NewSegmentStatsStore())

	report, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if report.PhaseCount != 0 || len(report.PhaseComparison) != 0 || len(report.SegmentRows) != 0 {
		t.Errorf("empty report = %+v", report)
	}
	if !report.DataSummary.DateRangeStart.IsZero() {
		t.Errorf("date range should be zero for empty data")
	}
}

func TestRenderCSV_DeterministicOrder(t *testing.T) {
	rows := []SegmentRow{
		{Dimension: "category", Key: "auto", Phase: "phase1", Count: 3, WinRate: 0.6667, TotalPnL: 4500},
		{Dimension: "category", Key: "tech", Phase: "phase1", Count: 5, WinRate: 0.4, TotalPnL: -900},
	}

	csv := RenderCSV(rows)
	lines := strings.Split(strings.TrimSpace(csv), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header + 2 rows", len(lines))
	}
	if !strings.HasPrefix(lines[0], "dimension,key,phase,count,no_data_count,win_rate") {
		t.Error("CSV header is incorrect")
	}
	if !strings.HasPrefix(lines[1], "category,auto,phase1,3,0,0.666700") {
		t.Errorf("CSV row 1 = %s", lines[1])
	}
	if !strings.HasPrefix(lines[2], "category,tech,phase1,5,0,0.400000") {
		t.Errorf("CSV row 2 = %s", lines[2])
	}
}

func TestRenderMarkdown_Sections(t *testing.T) {
	entryStore, tradeStore, segmentStore := setupTestData(t)

	gen := NewGenerator(entryStore, tradeStore, segmentStore).
		WithClock(func() time.Time { return testClock })
	report, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	md := RenderMarkdown(report)

	for _, want := range []string{
		"# Exit-Rule Simulation Report",
		"Generated: 2026-03-01T12:00:00Z",
		"## Data Summary",
		"| Total Entries | 3 |",
		"| No-Data Trades | 1 |",
		"| First Session | 2026-02-20 |",
		"## Phase Comparison",
		"| phase1 | 2 | 0 |",
		"## Segment Summaries",
		"| category | auto | phase1 |",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestRenderMarkdown_EmptyReport(t *testing.T) {
	md := RenderMarkdown(&Report{GeneratedAt: testClock})

	if !strings.Contains(md, "No trades available.") {
		t.Error("markdown missing empty phase placeholder")
	}
	if !strings.Contains(md, "No segment summaries available.") {
		t.Error("markdown missing empty segment placeholder")
	}
}
