package segment

import (
	"sort"

	"daytrade-lab/internal/domain"
)

// DefaultMinSampleSize is the smallest simulated-trade count a group needs
// to appear in the output. Below it the statistics are noise.
const DefaultMinSampleSize = 3

// Result is the output of one aggregation run. Segments carry the summaries
// that met the minimum sample size; Omitted records the groups that did not,
// so a missing segment is distinguishable from an empty one.
type Result struct {
	Segments []*domain.SegmentStats
	Omitted  []domain.OmittedGroup
}

// Aggregator groups trade outcomes along dimensions and summarizes each
// (dimension, key, phase) group.
type Aggregator struct {
	minSampleSize int
	less          func(a, b *domain.SegmentStats) bool
}

// NewAggregator creates an aggregator with the default minimum sample size.
func NewAggregator() *Aggregator {
	return &Aggregator{minSampleSize: DefaultMinSampleSize}
}

// NewAggregatorWithMinSample creates an aggregator with an explicit minimum
// sample size. Zero disables the omission rule.
func NewAggregatorWithMinSample(minSampleSize int) *Aggregator {
	return &Aggregator{minSampleSize: minSampleSize}
}

// WithSort replaces the default segment ordering (dimension ASC, phase ASC,
// total PnL DESC, key ASC) with a caller-supplied comparison.
func (a *Aggregator) WithSort(less func(x, y *domain.SegmentStats) bool) *Aggregator {
	a.less = less
	return a
}

type group struct {
	dimension string
	key       string
	phase     string

	simulated []*domain.Trade
	totalPnL  float64
	noData    int
}

// Aggregate computes segment summaries for every dimension over the full
// outcome set. No-data trades are counted per group but never enter the
// statistics or the PnL sum. The minimum sample size applies to simulated
// trades only.
//
// Output is deterministic: segments sort by dimension ASC, phase ASC, total
// PnL DESC, key ASC; omitted groups by dimension ASC, key ASC, phase ASC.
func (a *Aggregator) Aggregate(outcomes []TradeOutcome, dims []Dimension) *Result {
	groups := make(map[[3]string]*group)

	for _, dim := range dims {
		for _, o := range outcomes {
			key, ok := dim.Key(o)
			if !ok {
				continue
			}

			gk := [3]string{dim.Name, key, o.Trade.Phase}
			g := groups[gk]
			if g == nil {
				g = &group{dimension: dim.Name, key: key, phase: o.Trade.Phase}
				groups[gk] = g
			}

			if o.Trade.NoData() {
				g.noData++
				continue
			}
			g.simulated = append(g.simulated, o.Trade)
			g.totalPnL += o.Trade.PnLPerLot
		}
	}

	result := &Result{}
	for _, g := range groups {
		if len(g.simulated) < a.minSampleSize {
			result.Omitted = append(result.Omitted, domain.OmittedGroup{
				Dimension: g.dimension,
				Key:       g.key,
				Phase:     g.phase,
				Count:     len(g.simulated),
			})
			continue
		}

		result.Segments = append(result.Segments, &domain.SegmentStats{
			Dimension:   g.dimension,
			Key:         g.key,
			Phase:       g.phase,
			Stats:       ComputeRobustStats(g.simulated),
			TotalPnL:    g.totalPnL,
			NoDataCount: g.noData,
		})
	}

	less := a.less
	if less == nil {
		less = defaultSegmentLess
	}
	sort.SliceStable(result.Segments, func(i, j int) bool {
		return less(result.Segments[i], result.Segments[j])
	})
	sortOmitted(result.Omitted)
	return result
}

// defaultSegmentLess orders summaries for reporting: best total PnL first
// within each (dimension, phase) block.
func defaultSegmentLess(a, b *domain.SegmentStats) bool {
	if a.Dimension != b.Dimension {
		return a.Dimension < b.Dimension
	}
	if a.Phase != b.Phase {
		return a.Phase < b.Phase
	}
	if a.TotalPnL != b.TotalPnL {
		return a.TotalPnL > b.TotalPnL
	}
	return a.Key < b.Key
}

func sortOmitted(omitted []domain.OmittedGroup) {
	sort.Slice(omitted, func(i, j int) bool {
		a, b := omitted[i], omitted[j]
		if a.Dimension != b.Dimension {
			return a.Dimension < b.Dimension
		}
		if a.Key != b.Key {
			return a.Key < b.Key
		}
		return a.Phase < b.Phase
	})
}

// DefaultDimensions is the standard slicing set: index direction and
// volatility, selection rank, category, entry price band, and score
// quintile. The quintile dimension derives its boundaries from the outcome
// set itself.
func DefaultDimensions(outcomes []TradeOutcome) []Dimension {
	return []Dimension{
		IndexDirectionDimension(),
		IndexVolatilityDimension(DefaultVolatilityThreshold),
		RankBucketDimension(),
		CategoryDimension(),
		PriceBucketDimension(),
		QuintileDimension(outcomes),
	}
}
