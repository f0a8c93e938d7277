package domain

import "time"

// Exit reason codes.
const (
	ExitReasonTakeProfit    = "take_profit"
	ExitReasonStopLoss      = "stop_loss"
	ExitReasonSessionClose  = "session_close"
	ExitReasonIndexOverride = "index_override"
	ExitReasonNoData        = "no_data"
)

// Trade is the outcome of simulating one (Entry, ExitPolicy) pair.
// Created once by the simulator and immutable thereafter.
type Trade struct {
	TradeID     string // deterministic hash
	Ticker      string
	SessionDate time.Time
	Phase       string // phase label from the catalog
	PolicyID    string // ExitPolicy.ID()

	Direction  Direction
	EntryPrice float64

	ExitPrice  float64 // zero when no_data
	ExitTime   time.Time
	ExitReason string

	ReturnPct float64 // signed fraction of entry price; zero when no_data
	PnLPerLot float64 // (exit - entry) * lot * direction sign
	Win       *bool   // nil when no_data, never false
}

// NoData reports whether the trade could not be simulated for lack of bars.
// No-data trades are counted separately in aggregates, never as losses.
func (t *Trade) NoData() bool {
	return t.ExitReason == ExitReasonNoData
}
