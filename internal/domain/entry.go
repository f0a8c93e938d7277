package domain

import "time"

// Direction of a candidate trade.
type Direction int

// Direction constants. The numeric value is the sign applied to price moves
// when computing position returns.
const (
	DirectionLong  Direction = 1
	DirectionShort Direction = -1
)

// Sign returns the direction as a float multiplier.
func (d Direction) Sign() float64 {
	return float64(d)
}

// String returns "long" or "short".
func (d Direction) String() string {
	if d == DirectionShort {
		return "short"
	}
	return "long"
}

// ParseDirection converts "long"/"short" to a Direction.
func ParseDirection(s string) (Direction, bool) {
	switch s {
	case "long":
		return DirectionLong, true
	case "short":
		return DirectionShort, true
	default:
		return 0, false
	}
}

// DefaultLotSize is the number of shares per lot when an entry does not
// specify one. Matches the standard exchange trading unit.
const DefaultLotSize = 100

// Entry is a candidate trade: buy (or sell short) at the session open.
// Created by the external signal-generation process; the simulation core
// consumes it read-only.
type Entry struct {
	Ticker      string
	SessionDate time.Time // calendar day of the session, midnight local
	EntryPrice  float64   // the session's opening price
	Direction   Direction
	LotSize     float64 // shares per lot; DefaultLotSize when zero

	// Selection metadata, used by index-conditioned policies and by
	// segment analysis. All optional.
	ReferenceIndexReturn *float64 // reference index same-day return, signed fraction
	PredictiveScore      *float64 // continuous score from the selection heuristic
	Category             string   // sector or selection category label
	Rank                 int      // selection rank, 1 = best; 0 when unranked
}

// Lot returns the effective lot size.
func (e *Entry) Lot() float64 {
	if e.LotSize > 0 {
		return e.LotSize
	}
	return DefaultLotSize
}

// Key returns the unique identity of the entry within a run.
func (e *Entry) Key() string {
	return e.Ticker + "|" + e.SessionDate.Format("2006-01-02")
}
