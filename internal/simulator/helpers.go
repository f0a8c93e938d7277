package simulator

import (
	"time"

	"daytrade-lab/internal/domain"
)

// positionReturn computes the signed position return for an exit price.
// Long: (exit-entry)/entry. Short: (entry-exit)/entry.
func positionReturn(entry *domain.Entry, exitPrice float64) float64 {
	return (exitPrice - entry.EntryPrice) / entry.EntryPrice * entry.Direction.Sign()
}

// thresholdPrice converts a signed return fraction into the price level that
// realizes it for the entry's direction. For a long +2% take-profit this is
// entry*(1.02); for a short it is entry*(0.98).
func thresholdPrice(entry *domain.Entry, frac float64) float64 {
	return entry.EntryPrice * (1 + frac*entry.Direction.Sign())
}

// touchesAbove reports whether the bar's range reaches up to price.
func touchesAbove(b *domain.Bar, price float64) bool {
	return b.High >= price
}

// touchesBelow reports whether the bar's range reaches down to price.
func touchesBelow(b *domain.Bar, price float64) bool {
	return b.Low <= price
}

// takeProfitTouched reports whether the bar touches the take-profit price.
// Profit for a long is above entry, for a short below.
func takeProfitTouched(entry *domain.Entry, b *domain.Bar, tpPrice float64) bool {
	if entry.Direction == domain.DirectionShort {
		return touchesBelow(b, tpPrice)
	}
	return touchesAbove(b, tpPrice)
}

// stopLossTouched reports whether the bar touches the stop-loss price.
func stopLossTouched(entry *domain.Entry, b *domain.Bar, slPrice float64) bool {
	if entry.Direction == domain.DirectionShort {
		return touchesAbove(b, slPrice)
	}
	return touchesBelow(b, slPrice)
}

// buildTrade constructs a complete Trade from the exit decision. The phase
// label and trade ID are stamped later by the orchestrator, which owns the
// phase catalog.
func buildTrade(entry *domain.Entry, policyID string, exitPrice float64, exitTime time.Time, reason string) *domain.Trade {
	ret := positionReturn(entry, exitPrice)
	win := ret > 0

	return &domain.Trade{
		Ticker:      entry.Ticker,
		SessionDate: entry.SessionDate,
		PolicyID:    policyID,

		Direction:  entry.Direction,
		EntryPrice: entry.EntryPrice,

		ExitPrice:  exitPrice,
		ExitTime:   exitTime,
		ExitReason: reason,

		ReturnPct: ret,
		PnLPerLot: (exitPrice - entry.EntryPrice) * entry.Lot() * entry.Direction.Sign(),
		Win:       &win,
	}
}

// noDataTrade constructs the soft-failure trade for a missing or too-short
// series. Win stays nil: a no_data trade is never a loss.
func noDataTrade(entry *domain.Entry, policyID string) *domain.Trade {
	return &domain.Trade{
		Ticker:      entry.Ticker,
		SessionDate: entry.SessionDate,
		PolicyID:    policyID,
		Direction:   entry.Direction,
		EntryPrice:  entry.EntryPrice,
		ExitReason:  domain.ExitReasonNoData,
	}
}
