package segment

import (
	"fmt"
	"math"
	"sort"

	"daytrade-lab/internal/domain"
)

// TradeOutcome pairs a simulated trade with the entry that produced it.
// Segment keys come from the entry; returns come from the trade.
type TradeOutcome struct {
	Entry *domain.Entry
	Trade *domain.Trade
}

// KeyFunc maps an outcome to its group key within a dimension. The second
// return value reports membership: outcomes missing the attribute (no index
// return, no rank, no score) fall outside the dimension entirely.
type KeyFunc func(o TradeOutcome) (string, bool)

// Dimension is one way of slicing the trade set.
type Dimension struct {
	Name string
	Key  KeyFunc
}

// IndexDirectionDimension groups by the sign of the reference index's
// same-day return.
func IndexDirectionDimension() Dimension {
	return Dimension{
		Name: "index_direction",
		Key: func(o TradeOutcome) (string, bool) {
			r := o.Entry.ReferenceIndexReturn
			if r == nil {
				return "", false
			}
			switch {
			case *r > 0:
				return "up", true
			case *r < 0:
				return "down", true
			default:
				return "flat", true
			}
		},
	}
}

// DefaultVolatilityThreshold splits calm from volatile index days.
const DefaultVolatilityThreshold = 0.01

// IndexVolatilityDimension groups by the magnitude of the reference index
// move: "high" at or above the threshold, "low" below it.
func IndexVolatilityDimension(threshold float64) Dimension {
	return Dimension{
		Name: "index_volatility",
		Key: func(o TradeOutcome) (string, bool) {
			r := o.Entry.ReferenceIndexReturn
			if r == nil {
				return "", false
			}
			if math.Abs(*r) >= threshold {
				return "high", true
			}
			return "low", true
		},
	}
}

// RankBucketDimension groups by selection rank: the top five picks, the next
// five, and the rest. Unranked entries (rank 0) fall outside the dimension.
func RankBucketDimension() Dimension {
	return Dimension{
		Name: "rank_bucket",
		Key: func(o TradeOutcome) (string, bool) {
			switch r := o.Entry.Rank; {
			case r <= 0:
				return "", false
			case r <= 5:
				return "1-5", true
			case r <= 10:
				return "6-10", true
			default:
				return "11+", true
			}
		},
	}
}

// CategoryDimension groups by the entry's selection category label.
func CategoryDimension() Dimension {
	return Dimension{
		Name: "category",
		Key: func(o TradeOutcome) (string, bool) {
			if o.Entry.Category == "" {
				return "", false
			}
			return o.Entry.Category, true
		},
	}
}

// priceBucketEdges are the entry-price band boundaries, ascending.
var priceBucketEdges = []float64{500, 1000, 3000, 10000}

// PriceBucketDimension groups by entry price band. Cheap stocks move in
// coarser relative ticks, which shifts how often a band threshold fills at
// its exact price.
func PriceBucketDimension() Dimension {
	return Dimension{
		Name: "price_bucket",
		Key: func(o TradeOutcome) (string, bool) {
			p := o.Entry.EntryPrice
			if p <= 0 {
				return "", false
			}
			prev := 0.0
			for _, edge := range priceBucketEdges {
				if p < edge {
					return fmt.Sprintf("%.0f-%.0f", prev, edge), true
				}
				prev = edge
			}
			return fmt.Sprintf("%.0f+", prev), true
		},
	}
}

// quintileLabels in ascending score order.
var quintileLabels = [5]string{"Q1", "Q2", "Q3", "Q4", "Q5"}

// QuintileDimension groups by predictive-score quintile. Boundaries are the
// empirical 20/40/60/80th percentiles of the scores present in outcomes;
// scores equal to a boundary land in the lower quintile. Unscored entries
// fall outside the dimension.
func QuintileDimension(outcomes []TradeOutcome) Dimension {
	var scores []float64
	for _, o := range outcomes {
		if o.Entry.PredictiveScore != nil {
			scores = append(scores, *o.Entry.PredictiveScore)
		}
	}

	bounds := quintileBoundaries(scores)

	return Dimension{
		Name: "score_quintile",
		Key: func(o TradeOutcome) (string, bool) {
			s := o.Entry.PredictiveScore
			if s == nil {
				return "", false
			}
			for i, b := range bounds {
				if *s <= b {
					return quintileLabels[i], true
				}
			}
			return quintileLabels[4], true
		},
	}
}

// quintileBoundaries computes the four inner percentile cut points from the
// score sample. An empty sample yields zero boundaries, which places every
// score in Q1 or Q5 by sign; callers with no scored entries never reach the
// key function anyway.
func quintileBoundaries(scores []float64) [4]float64 {
	sorted := make([]float64, len(scores))
	copy(sorted, scores)
	sort.Float64s(sorted)

	return [4]float64{
		computePercentile(sorted, 0.20),
		computePercentile(sorted, 0.40),
		computePercentile(sorted, 0.60),
		computePercentile(sorted, 0.80),
	}
}
