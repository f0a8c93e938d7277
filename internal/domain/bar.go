package domain

import "time"

// Interval identifies the sampling interval of a bar. The partition between
// session and daily bars is supplied by the caller, never inferred from
// timestamp density.
type Interval string

// Supported bar intervals.
const (
	IntervalSession Interval = "session" // fine-grained intraday, typically 5-minute
	IntervalDaily   Interval = "daily"   // one bar per trading day
)

// Bar represents one OHLCV observation for a ticker.
// Invariant: Low <= {Open, Close} <= High; bars for one ticker and interval
// are strictly increasing in Timestamp. Bars are immutable once stored.
type Bar struct {
	Ticker    string
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
	Interval  Interval
}

// SessionOf returns the calendar day of the bar in the bar's own location,
// truncated to midnight. Used as the session key for intraday bars.
func (b *Bar) SessionOf() time.Time {
	y, m, d := b.Timestamp.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, b.Timestamp.Location())
}
