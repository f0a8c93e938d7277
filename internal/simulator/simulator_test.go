package simulator

import (
	"time"

	"daytrade-lab/internal/barseries"
	"daytrade-lab/internal/domain"
)

var testSession = time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)

// makeBar creates a session bar at hh:mm on the test session date.
func makeBar(hh, mm int, open, high, low, close float64) *domain.Bar {
	return &domain.Bar{
		Ticker:    "7203.T",
		Timestamp: time.Date(2026, 2, 20, hh, mm, 0, 0, time.UTC),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     close,
		Volume:    1000,
		Interval:  domain.IntervalSession,
	}
}

// makeSeries wraps bars into a session series without re-filtering.
func makeSeries(bars ...*domain.Bar) *barseries.Series {
	return &barseries.Series{
		Ticker:      "7203.T",
		SessionDate: testSession,
		Bars:        bars,
	}
}

// longEntry creates a long entry at the given open price.
func longEntry(price float64) *domain.Entry {
	return &domain.Entry{
		Ticker:      "7203.T",
		SessionDate: testSession,
		EntryPrice:  price,
		Direction:   domain.DirectionLong,
	}
}

func shortEntry(price float64) *domain.Entry {
	e := longEntry(price)
	e.Direction = domain.DirectionShort
	return e
}

func fptr(f float64) *float64 { return &f }

func bandPolicy(tp, sl *float64) domain.ExitPolicy {
	return domain.ExitPolicy{
		PolicyType:    domain.PolicyTypeBand,
		TakeProfitPct: tp,
		StopLossPct:   sl,
	}
}

func multiStagePolicy(tp, sl float64) domain.ExitPolicy {
	cutoff := domain.ClockTime{Hour: 11, Minute: 30}
	resume := domain.ClockTime{Hour: 12, Minute: 30}
	return domain.ExitPolicy{
		PolicyType:    domain.PolicyTypeMultiStage,
		TakeProfitPct: &tp,
		StopLossPct:   &sl,
		CutoffAt:      &cutoff,
		ResumeAt:      &resume,
	}
}
