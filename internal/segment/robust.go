// Package segment groups simulated trades along entry attributes and
// summarizes each group with outlier-resistant statistics. Small segment
// samples make the plain mean close to useless, so every summary carries
// median, trimmed mean and tail statistics alongside it.
package segment

import (
	"sort"

	"daytrade-lab/internal/domain"
)

// ComputeRobustStats calculates the full statistics block from simulated
// trades. No-data trades must be filtered out by the caller; this function
// treats every input as a realized return.
func ComputeRobustStats(trades []*domain.Trade) domain.RobustStats {
	n := len(trades)
	if n == 0 {
		return domain.RobustStats{}
	}

	wins := 0
	returns := make([]float64, n)
	for i, t := range trades {
		returns[i] = t.ReturnPct
		if t.Win != nil && *t.Win {
			wins++
		}
	}

	sorted := make([]float64, n)
	copy(sorted, returns)
	sort.Float64s(sorted)

	winRate := float64(wins) / float64(n)
	avgWin, avgLoss := computeWinLossMeans(trades)

	return domain.RobustStats{
		Count:             n,
		WinRate:           winRate,
		MeanReturn:        computeMean(returns),
		MedianReturn:      computePercentile(sorted, 0.50),
		TrimmedMeanReturn: computeTrimmedMean(sorted),
		AvgWin:            avgWin,
		AvgLoss:           avgLoss,
		ExpectedValue:     winRate*avgWin + (1-winRate)*avgLoss,
		LowerQuartileAvg:  computeLowerQuartileAvg(sorted),
		MaxLoss:           sorted[0],
	}
}

// computeWinLossMeans calculates the mean return of winning and losing
// trades separately. A side with no trades contributes 0.
func computeWinLossMeans(trades []*domain.Trade) (avgWin, avgLoss float64) {
	var winSum, lossSum float64
	var winN, lossN int

	for _, t := range trades {
		if t.Win != nil && *t.Win {
			winSum += t.ReturnPct
			winN++
		} else {
			lossSum += t.ReturnPct
			lossN++
		}
	}

	if winN > 0 {
		avgWin = winSum / float64(winN)
	}
	if lossN > 0 {
		avgLoss = lossSum / float64(lossN)
	}
	return avgWin, avgLoss
}

// computeMean calculates the arithmetic mean of returns.
func computeMean(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range returns {
		sum += r
	}
	return sum / float64(len(returns))
}

// computePercentile uses linear interpolation.
// sorted must be pre-sorted ASC.
// p is percentile (0.25 = 25th percentile).
func computePercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// computeTrimmedMean calculates the mean after dropping the lowest and
// highest 5% of samples. The trim count floors to zero below 20 samples,
// where trimming would discard nothing but the extremes the statistic is
// supposed to keep in proportion.
func computeTrimmedMean(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}

	k := n / 20
	return computeMean(sorted[k : n-k])
}

// computeLowerQuartileAvg calculates the mean of all returns at or below the
// empirical 25th percentile. Ties with the percentile value are included.
func computeLowerQuartileAvg(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}

	q25 := computePercentile(sorted, 0.25)
	sum := 0.0
	count := 0
	for _, r := range sorted {
		if r > q25 {
			break
		}
		sum += r
		count++
	}
	if count == 0 {
		return sorted[0]
	}
	return sum / float64(count)
}
