package simulator

import (
	"daytrade-lab/internal/barseries"
	"daytrade-lab/internal/domain"
)

// MultiStageSimulator runs a band until a cutoff time, then consults the
// entry's reference index return: when the index is down and the position
// holds an unrealized gain below take-profit, it forces an exit at the first
// bar at or after the resume time ("cut gains early when the broader market
// turns"). Otherwise the band continues into the afternoon with a
// session-close fallback.
type MultiStageSimulator struct {
	TakeProfitPct float64 // positive fraction
	StopLossPct   float64 // negative fraction
	CutoffAt      domain.ClockTime
	ResumeAt      domain.ClockTime

	policyID string
}

// NewMultiStageSimulator creates a MultiStageSimulator from a validated policy.
func NewMultiStageSimulator(policy domain.ExitPolicy) *MultiStageSimulator {
	return &MultiStageSimulator{
		TakeProfitPct: *policy.TakeProfitPct,
		StopLossPct:   *policy.StopLossPct,
		CutoffAt:      *policy.CutoffAt,
		ResumeAt:      *policy.ResumeAt,
		policyID:      policy.ID(),
	}
}

// ID returns the policy identifier.
func (s *MultiStageSimulator) ID() string {
	return s.policyID
}

// Simulate runs the two-step state machine over the session bars:
// IN_BAND_WATCH until the cutoff, INDEX_CHECK at the cutoff, then either the
// forced exit or the remaining band/close logic.
func (s *MultiStageSimulator) Simulate(entry *domain.Entry, series *barseries.Series) *domain.Trade {
	if series.Insufficient() {
		return noDataTrade(entry, s.policyID)
	}

	band := &BandSimulator{
		TakeProfitPct: &s.TakeProfitPct,
		StopLossPct:   &s.StopLossPct,
		policyID:      s.policyID,
	}

	// IN_BAND_WATCH: morning bars up to the cutoff.
	morning := series.BarsUpTo(s.CutoffAt)
	if trade := band.walkBand(entry, morning); trade != nil {
		return trade
	}

	// INDEX_CHECK: no band trigger by the cutoff.
	if s.overrideTriggered(entry, morning) {
		exitBar := series.FirstAtOrAfter(s.ResumeAt)
		if exitBar == nil {
			exitBar = series.LastBar()
		}
		// The forced exit fills at the resume bar's open, the first
		// tradable price after the midday decision.
		return buildTrade(entry, s.policyID, exitBar.Open, exitBar.Timestamp, domain.ExitReasonIndexOverride)
	}

	// Fall through: the band continues over the afternoon bars.
	if trade := band.walkBand(entry, series.BarsAfter(s.CutoffAt)); trade != nil {
		return trade
	}

	last := series.LastBar()
	return buildTrade(entry, s.policyID, last.Close, last.Timestamp, domain.ExitReasonSessionClose)
}

// overrideTriggered applies the index-conditioned rule at the cutoff:
// reference index down AND unrealized return positive but short of the
// take-profit threshold. Entries without a reference index return never
// trigger the override.
func (s *MultiStageSimulator) overrideTriggered(entry *domain.Entry, morning []*domain.Bar) bool {
	if entry.ReferenceIndexReturn == nil || *entry.ReferenceIndexReturn >= 0 {
		return false
	}
	if len(morning) == 0 {
		return false
	}

	morningClose := morning[len(morning)-1].Close
	unrealized := positionReturn(entry, morningClose)
	return unrealized > 0 && unrealized < s.TakeProfitPct
}

var _ Simulator = (*MultiStageSimulator)(nil)
