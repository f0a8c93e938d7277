package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Policy type constants. ExitPolicy is a tagged union discriminated by these.
const (
	PolicyTypeFixedTime  = "FIXED_TIME"  // exit at a fixed clock time
	PolicyTypeBand       = "BAND"        // take-profit / stop-loss band
	PolicyTypeMultiStage = "MULTI_STAGE" // band, then index check at cutoff, then band + close
)

// ClockTime is a time of day within the trading session, exchange-local.
type ClockTime struct {
	Hour   int
	Minute int
}

// Minutes returns the time of day as minutes since midnight.
func (c ClockTime) Minutes() int {
	return c.Hour*60 + c.Minute
}

// Before reports whether c is strictly earlier in the day than other.
func (c ClockTime) Before(other ClockTime) bool {
	return c.Minutes() < other.Minutes()
}

// String renders the time as "HH:MM".
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// ParseClockTime parses "HH:MM" into a ClockTime.
func ParseClockTime(s string) (ClockTime, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return ClockTime{}, fmt.Errorf("parse clock time %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return ClockTime{}, fmt.Errorf("parse clock time %q: %w", s, err)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return ClockTime{}, fmt.Errorf("parse clock time %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return ClockTime{}, fmt.Errorf("parse clock time %q: out of range", s)
	}
	return ClockTime{Hour: h, Minute: m}, nil
}

// SessionClock defines the trading-session window bars must fall into.
type SessionClock struct {
	Open  ClockTime // first tradable bar
	Close ClockTime // last tradable bar
}

// DefaultSessionClock is the standard cash-session window.
var DefaultSessionClock = SessionClock{
	Open:  ClockTime{Hour: 9, Minute: 0},
	Close: ClockTime{Hour: 15, Minute: 30},
}

// Contains reports whether t's time of day falls inside the session window,
// boundaries inclusive.
func (s SessionClock) Contains(t time.Time) bool {
	m := t.Hour()*60 + t.Minute()
	return m >= s.Open.Minutes() && m <= s.Close.Minutes()
}

// ExitPolicy is a stateless configuration value object describing one exit
// strategy. Percentage thresholds are signed fractions of entry price
// (+0.02 = +2%). Many entries share one policy.
type ExitPolicy struct {
	PolicyType string

	// BAND and MULTI_STAGE parameters. For BAND at least one threshold is
	// required; MULTI_STAGE requires both.
	TakeProfitPct *float64 // positive fraction, e.g. 0.02
	StopLossPct   *float64 // negative fraction, e.g. -0.04

	// FIXED_TIME parameter.
	ExitAt *ClockTime

	// MULTI_STAGE parameters.
	CutoffAt *ClockTime // when the index check happens (morning close)
	ResumeAt *ClockTime // first bar eligible for the forced exit (afternoon open)
}

// ID returns a stable identifier that includes the policy parameters,
// suitable for keying trades and aggregates.
func (p ExitPolicy) ID() string {
	switch p.PolicyType {
	case PolicyTypeFixedTime:
		if p.ExitAt != nil {
			return fmt.Sprintf("FIXED_TIME_%s", p.ExitAt)
		}
		return "FIXED_TIME"
	case PolicyTypeBand:
		return fmt.Sprintf("BAND_tp%s_sl%s", fracLabel(p.TakeProfitPct), fracLabel(p.StopLossPct))
	case PolicyTypeMultiStage:
		id := fmt.Sprintf("MULTI_STAGE_tp%s_sl%s", fracLabel(p.TakeProfitPct), fracLabel(p.StopLossPct))
		if p.CutoffAt != nil {
			id += "_cut" + p.CutoffAt.String()
		}
		return id
	default:
		return p.PolicyType
	}
}

// fracLabel renders a fraction threshold as a percent label ("2", "-4", "none").
func fracLabel(f *float64) string {
	if f == nil {
		return "none"
	}
	return strconv.FormatFloat(*f*100, 'f', -1, 64)
}

// PhaseConfig pairs a phase label with its exit policy. The phase label is
// what downstream comparison tables key on.
type PhaseConfig struct {
	Name   string
	Policy ExitPolicy
}

// DefaultPhaseCatalog is the standard set of phases evaluated side by side
// for every entry: morning close, full-day close, three stop-loss bands, and
// the asymmetric band with the midday index check.
func DefaultPhaseCatalog() []PhaseConfig {
	morningClose := ClockTime{Hour: 11, Minute: 30}
	afternoonOpen := ClockTime{Hour: 12, Minute: 30}
	dayClose := ClockTime{Hour: 15, Minute: 30}

	return []PhaseConfig{
		{
			Name:   "phase1",
			Policy: ExitPolicy{PolicyType: PolicyTypeFixedTime, ExitAt: &morningClose},
		},
		{
			Name:   "phase2",
			Policy: ExitPolicy{PolicyType: PolicyTypeFixedTime, ExitAt: &dayClose},
		},
		{
			Name:   "phase3_1pct",
			Policy: ExitPolicy{PolicyType: PolicyTypeBand, StopLossPct: fracPtr(-0.01)},
		},
		{
			Name:   "phase3_2pct",
			Policy: ExitPolicy{PolicyType: PolicyTypeBand, StopLossPct: fracPtr(-0.02)},
		},
		{
			Name:   "phase3_3pct",
			Policy: ExitPolicy{PolicyType: PolicyTypeBand, StopLossPct: fracPtr(-0.03)},
		},
		{
			Name: "phase4",
			Policy: ExitPolicy{
				PolicyType:    PolicyTypeMultiStage,
				TakeProfitPct: fracPtr(0.02),
				StopLossPct:   fracPtr(-0.04),
				CutoffAt:      &morningClose,
				ResumeAt:      &afternoonOpen,
			},
		},
	}
}

func fracPtr(f float64) *float64 { return &f }
