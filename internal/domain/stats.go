package domain

// RobustStats summarizes a return sample with outlier-resistant statistics.
// Mean and win-rate alone are too sensitive on the small trade samples that
// segment analysis typically produces.
type RobustStats struct {
	Count             int
	WinRate           float64 // wins / count, 0..1
	MeanReturn        float64
	MedianReturn      float64
	TrimmedMeanReturn float64 // mean after dropping the 5% tails; no-op below 20 samples
	AvgWin            float64 // mean return of winning trades, 0 when none
	AvgLoss           float64 // mean return of losing trades, 0 when none
	ExpectedValue     float64 // win_rate*avg_win + (1-win_rate)*avg_loss
	LowerQuartileAvg  float64 // mean of returns <= empirical 25th percentile
	MaxLoss           float64 // minimum return in the sample
}

// SegmentStats is the per (dimension, key, phase) aggregate over trades.
// Recomputed from scratch whenever the trade set changes; never mutated.
type SegmentStats struct {
	Dimension string // grouping dimension, e.g. "index_direction"
	Key       string // group key, e.g. "down" or "Q1"
	Phase     string

	Stats       RobustStats
	TotalPnL    float64 // sum of PnLPerLot across the sample
	NoDataCount int     // trades excluded from Stats for missing bars
}

// OmittedGroup records a (key, phase) group dropped from aggregation output
// for falling below the minimum sample size. Reported separately so the
// caller can distinguish omission from an empty group.
type OmittedGroup struct {
	Dimension string
	Key       string
	Phase     string
	Count     int
}
