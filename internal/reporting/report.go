package reporting

import "time"

// Report is the run summary rendered to CSV or Markdown.
type Report struct {
	// Metadata
	GeneratedAt    time.Time
	PhaseCount     int
	DimensionCount int

	// Data Summary
	DataSummary DataSummary

	// Phase Comparison (whole sample per phase, sorted by phase)
	PhaseComparison []PhaseComparisonRow

	// Segment Rows (sorted by dimension, key, phase)
	SegmentRows []SegmentRow
}

// DataSummary describes the data the run covered.
type DataSummary struct {
	TotalEntries   int
	TotalTrades    int
	NoDataTrades   int
	DateRangeStart time.Time // earliest session date
	DateRangeEnd   time.Time // latest session date
}

// PhaseComparisonRow compares exit phases over the full trade sample.
type PhaseComparisonRow struct {
	Phase         string
	Count         int
	NoDataCount   int
	WinRate       float64
	MedianReturn  float64
	ExpectedValue float64
	TotalPnL      float64
}

// SegmentRow is one stored segment summary flattened for rendering.
type SegmentRow struct {
	Dimension         string
	Key               string
	Phase             string
	Count             int
	NoDataCount       int
	WinRate           float64
	MedianReturn      float64
	TrimmedMeanReturn float64
	ExpectedValue     float64
	LowerQuartileAvg  float64
	MaxLoss           float64
	AvgWin            float64
	AvgLoss           float64
	TotalPnL          float64
}
