// Package barseries provides read-only ordered views of OHLCV bars for one
// ticker and trading session. The simulation core never mutates a series.
package barseries

import (
	"sort"
	"time"

	"daytrade-lab/internal/domain"
)

// Series is an ordered sequence of session bars for one ticker restricted to
// one trading session, plus the session's daily bar when available.
type Series struct {
	Ticker      string
	SessionDate time.Time
	Bars        []*domain.Bar // ascending by timestamp, strictly increasing
	Daily       *domain.Bar   // nil when the daily bar is unavailable
}

// NewSessionSeries builds a Series from raw bars. Bars are filtered to the
// ticker, session date and session window, sorted ascending, and de-duplicated
// by timestamp (first occurrence wins). Input order does not matter.
func NewSessionSeries(ticker string, date time.Time, bars []*domain.Bar, clock domain.SessionClock) *Series {
	s := &Series{Ticker: ticker, SessionDate: truncateToDay(date)}

	for _, b := range bars {
		if b == nil || b.Ticker != ticker {
			continue
		}
		if b.Interval == domain.IntervalDaily {
			if sameDay(b.Timestamp, s.SessionDate) && s.Daily == nil {
				s.Daily = b
			}
			continue
		}
		if !sameDay(b.Timestamp, s.SessionDate) || !clock.Contains(b.Timestamp) {
			continue
		}
		s.Bars = append(s.Bars, b)
	}

	sort.SliceStable(s.Bars, func(i, j int) bool {
		return s.Bars[i].Timestamp.Before(s.Bars[j].Timestamp)
	})

	// Drop duplicate timestamps, keeping the first.
	deduped := s.Bars[:0]
	var prev time.Time
	for i, b := range s.Bars {
		if i > 0 && b.Timestamp.Equal(prev) {
			continue
		}
		deduped = append(deduped, b)
		prev = b.Timestamp
	}
	s.Bars = deduped

	return s
}

// Len returns the number of session bars.
func (s *Series) Len() int {
	return len(s.Bars)
}

// Insufficient reports whether the series has no session bars to simulate.
// A single bar is enough: the entry fills at the session open and the bar's
// range can already trigger an exit.
func (s *Series) Insufficient() bool {
	return s == nil || len(s.Bars) == 0
}

// LastBar returns the final session bar, or nil for an empty series.
func (s *Series) LastBar() *domain.Bar {
	if s == nil || len(s.Bars) == 0 {
		return nil
	}
	return s.Bars[len(s.Bars)-1]
}

// FirstAtOrAfter returns the first bar whose time of day is at or after c,
// or nil when no such bar exists.
func (s *Series) FirstAtOrAfter(c domain.ClockTime) *domain.Bar {
	for _, b := range s.Bars {
		if minutesOfDay(b.Timestamp) >= c.Minutes() {
			return b
		}
	}
	return nil
}

// BarsUpTo returns the bars whose time of day is at or before c.
// The returned slice shares backing storage with the series.
func (s *Series) BarsUpTo(c domain.ClockTime) []*domain.Bar {
	for i, b := range s.Bars {
		if minutesOfDay(b.Timestamp) > c.Minutes() {
			return s.Bars[:i]
		}
	}
	return s.Bars
}

// BarsAfter returns the bars whose time of day is strictly after c.
func (s *Series) BarsAfter(c domain.ClockTime) []*domain.Bar {
	for i, b := range s.Bars {
		if minutesOfDay(b.Timestamp) > c.Minutes() {
			return s.Bars[i:]
		}
	}
	return nil
}

func minutesOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

func sameDay(t, day time.Time) bool {
	y1, m1, d1 := t.Date()
	y2, m2, d2 := day.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
