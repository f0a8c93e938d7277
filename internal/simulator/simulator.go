// Package simulator decides, for one entry under one exit policy, at what
// price, time and reason the position closes. Simulators are pure: the same
// entry, series and policy always produce an identical trade, and missing
// data yields a no_data trade rather than an error.
package simulator

import (
	"daytrade-lab/internal/barseries"
	"daytrade-lab/internal/domain"
)

// Simulator produces one trade outcome from an entry and its bar series.
type Simulator interface {
	// Simulate replays the session bars under the policy and returns the
	// resulting trade. A nil, empty or single-bar series produces a
	// no_data trade, never an error.
	Simulate(entry *domain.Entry, series *barseries.Series) *domain.Trade

	// ID returns the policy identifier (includes parameters).
	ID() string
}
