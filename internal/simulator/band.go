package simulator

import (
	"daytrade-lab/internal/barseries"
	"daytrade-lab/internal/domain"
)

// BandSimulator exits at a take-profit or stop-loss band around the entry
// price, falling back to the session close. Either threshold may be absent;
// a stop-loss-only band is the classic "cut losses, ride to the close" rule.
type BandSimulator struct {
	TakeProfitPct *float64 // positive fraction, nil disables take-profit
	StopLossPct   *float64 // negative fraction, nil disables stop-loss

	policyID string
}

// NewBandSimulator creates a BandSimulator. Parameter validation happens in
// FromConfig; this constructor assumes a validated policy.
func NewBandSimulator(policy domain.ExitPolicy) *BandSimulator {
	return &BandSimulator{
		TakeProfitPct: policy.TakeProfitPct,
		StopLossPct:   policy.StopLossPct,
		policyID:      policy.ID(),
	}
}

// ID returns the policy identifier.
func (s *BandSimulator) ID() string {
	return s.policyID
}

// Simulate walks the session bars in chronological order. Within one bar the
// take-profit check runs before the stop-loss check: when a single bar's
// range straddles both thresholds the trade is recorded as a take-profit.
// This optimistic ordering is a deliberate policy choice kept for backtest
// reproducibility.
func (s *BandSimulator) Simulate(entry *domain.Entry, series *barseries.Series) *domain.Trade {
	if series.Insufficient() {
		return noDataTrade(entry, s.policyID)
	}

	if trade := s.walkBand(entry, series.Bars); trade != nil {
		return trade
	}

	last := series.LastBar()
	return buildTrade(entry, s.policyID, last.Close, last.Timestamp, domain.ExitReasonSessionClose)
}

// walkBand applies the band to a run of bars and returns the triggered trade,
// or nil when no threshold is touched.
func (s *BandSimulator) walkBand(entry *domain.Entry, bars []*domain.Bar) *domain.Trade {
	var tpPrice, slPrice float64
	if s.TakeProfitPct != nil {
		tpPrice = thresholdPrice(entry, *s.TakeProfitPct)
	}
	if s.StopLossPct != nil {
		slPrice = thresholdPrice(entry, *s.StopLossPct)
	}

	for _, b := range bars {
		if s.TakeProfitPct != nil && takeProfitTouched(entry, b, tpPrice) {
			return buildTrade(entry, s.policyID, tpPrice, b.Timestamp, domain.ExitReasonTakeProfit)
		}
		if s.StopLossPct != nil && stopLossTouched(entry, b, slPrice) {
			return buildTrade(entry, s.policyID, slPrice, b.Timestamp, domain.ExitReasonStopLoss)
		}
	}
	return nil
}

var _ Simulator = (*BandSimulator)(nil)
