package simulator

import (
	"daytrade-lab/internal/barseries"
	"daytrade-lab/internal/domain"
)

// FixedTimeSimulator exits at the close of the first bar at or after a target
// clock time. When no such bar exists the trade falls back to the session's
// last available bar, or to the daily bar's close when the target lies at or
// beyond the end of the intraday series.
type FixedTimeSimulator struct {
	ExitAt domain.ClockTime

	policyID string
}

// NewFixedTimeSimulator creates a FixedTimeSimulator from a validated policy.
func NewFixedTimeSimulator(policy domain.ExitPolicy) *FixedTimeSimulator {
	return &FixedTimeSimulator{
		ExitAt:   *policy.ExitAt,
		policyID: policy.ID(),
	}
}

// ID returns the policy identifier.
func (s *FixedTimeSimulator) ID() string {
	return s.policyID
}

// Simulate finds the exit bar and closes the position at its close price.
func (s *FixedTimeSimulator) Simulate(entry *domain.Entry, series *barseries.Series) *domain.Trade {
	if series.Insufficient() {
		return noDataTrade(entry, s.policyID)
	}

	if b := series.FirstAtOrAfter(s.ExitAt); b != nil {
		return buildTrade(entry, s.policyID, b.Close, b.Timestamp, domain.ExitReasonSessionClose)
	}

	// Target past the final intraday bar: prefer the daily close when the
	// session actually ran to its end, else the last bar we have.
	if series.Daily != nil {
		return buildTrade(entry, s.policyID, series.Daily.Close, series.Daily.Timestamp, domain.ExitReasonSessionClose)
	}

	last := series.LastBar()
	return buildTrade(entry, s.policyID, last.Close, last.Timestamp, domain.ExitReasonSessionClose)
}

var _ Simulator = (*FixedTimeSimulator)(nil)
