// Package verification re-simulates stored trades and checks that the stored
// records match the replay. Simulations are deterministic given the same bars
// and policy, so any divergence points at mutated data or a changed catalog.
package verification

import (
	"context"
	"errors"
	"fmt"
	"math"

	"daytrade-lab/internal/barseries"
	"daytrade-lab/internal/domain"
	"daytrade-lab/internal/idhash"
	"daytrade-lab/internal/phase"
	"daytrade-lab/internal/simulator"
	"daytrade-lab/internal/storage"
)

// FloatTolerance is the tolerance for float64 comparisons.
const FloatTolerance = 1e-9

var (
	// ErrTradeNotFound is returned when the trade ID does not exist.
	ErrTradeNotFound = errors.New("trade not found")

	// ErrEntryNotFound is returned when no entry matches a stored trade.
	ErrEntryNotFound = errors.New("entry not found")
)

// FieldDivergence is a mismatch between a stored and a replayed value.
type FieldDivergence struct {
	Field    string
	Expected interface{} // stored value
	Actual   interface{} // replayed value
}

// Result is the outcome of verifying a single trade.
type Result struct {
	TradeID        string
	Match          bool
	Divergences    []FieldDivergence
	StoredReturn   float64
	ReplayedReturn float64
}

// Report aggregates results for a batch verification.
type Report struct {
	TotalTrades     int
	MatchedTrades   int
	DivergentTrades int
	Results         []Result
}

// Verifier replays stored trades against the current bar data and phase
// catalog.
type Verifier struct {
	entryStore storage.EntryStore
	tradeStore storage.TradeStore
	provider   barseries.Provider
	phases     map[string]simulator.Simulator
}

// Options configures a Verifier. Phases must be the same catalog the trades
// were simulated with.
type Options struct {
	EntryStore storage.EntryStore
	TradeStore storage.TradeStore
	Provider   barseries.Provider
	Phases     []phase.Phase
}

// New creates a Verifier.
func New(opts Options) *Verifier {
	phases := make(map[string]simulator.Simulator, len(opts.Phases))
	for _, p := range opts.Phases {
		phases[p.Name] = p.Sim
	}
	return &Verifier{
		entryStore: opts.EntryStore,
		tradeStore: opts.TradeStore,
		provider:   opts.Provider,
		phases:     phases,
	}
}

// VerifyTrade verifies one trade by ID: it loads the stored record, replays
// the simulation with the same entry and bars, and compares every field.
func (v *Verifier) VerifyTrade(ctx context.Context, tradeID string) (*Result, error) {
	stored, err := v.tradeStore.GetByID(ctx, tradeID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrTradeNotFound
		}
		return nil, err
	}

	replayed, err := v.replay(ctx, stored)
	if err != nil {
		return nil, err
	}

	divergences := CompareTrades(stored, replayed)
	return &Result{
		TradeID:        tradeID,
		Match:          len(divergences) == 0,
		Divergences:    divergences,
		StoredReturn:   stored.ReturnPct,
		ReplayedReturn: replayed.ReturnPct,
	}, nil
}

// VerifyAll verifies every stored trade. A trade that cannot be replayed is
// reported as divergent rather than failing the batch.
func (v *Verifier) VerifyAll(ctx context.Context) (*Report, error) {
	trades, err := v.tradeStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{
		TotalTrades: len(trades),
		Results:     make([]Result, 0, len(trades)),
	}

	for _, trade := range trades {
		result, err := v.VerifyTrade(ctx, trade.TradeID)
		if err != nil {
			report.Results = append(report.Results, Result{
				TradeID:      trade.TradeID,
				Match:        false,
				StoredReturn: trade.ReturnPct,
				Divergences: []FieldDivergence{
					{Field: "Error", Expected: nil, Actual: err.Error()},
				},
			})
			report.DivergentTrades++
			continue
		}

		report.Results = append(report.Results, *result)
		if result.Match {
			report.MatchedTrades++
		} else {
			report.DivergentTrades++
		}
	}

	return report, nil
}

// replay re-runs the simulation that produced the stored trade.
func (v *Verifier) replay(ctx context.Context, stored *domain.Trade) (*domain.Trade, error) {
	entry, err := v.findEntry(ctx, stored)
	if err != nil {
		return nil, err
	}

	sim, ok := v.phases[stored.Phase]
	if !ok {
		return nil, fmt.Errorf("unknown phase %q", stored.Phase)
	}

	series, err := v.provider.SessionSeries(ctx, stored.Ticker, stored.SessionDate)
	if err != nil {
		return nil, fmt.Errorf("load series for %s: %w", entry.Key(), err)
	}

	trade := sim.Simulate(entry, series)
	trade.Phase = stored.Phase
	trade.TradeID = idhash.ComputeTradeID(entry.Ticker, entry.SessionDate.Format("2006-01-02"), stored.Phase, trade.PolicyID)
	return trade, nil
}

func (v *Verifier) findEntry(ctx context.Context, stored *domain.Trade) (*domain.Entry, error) {
	entries, err := v.entryStore.GetBySessionDate(ctx, stored.SessionDate)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.Ticker == stored.Ticker {
			return e, nil
		}
	}
	return nil, ErrEntryNotFound
}

// CompareTrades compares a stored trade against its replay and returns the
// divergent fields. Floats compare within FloatTolerance.
func CompareTrades(stored, replayed *domain.Trade) []FieldDivergence {
	var divergences []FieldDivergence

	if stored.TradeID != replayed.TradeID {
		divergences = append(divergences, FieldDivergence{
			Field:    "TradeID",
			Expected: stored.TradeID,
			Actual:   replayed.TradeID,
		})
	}

	if stored.PolicyID != replayed.PolicyID {
		divergences = append(divergences, FieldDivergence{
			Field:    "PolicyID",
			Expected: stored.PolicyID,
			Actual:   replayed.PolicyID,
		})
	}

	if stored.Direction != replayed.Direction {
		divergences = append(divergences, FieldDivergence{
			Field:    "Direction",
			Expected: stored.Direction,
			Actual:   replayed.Direction,
		})
	}

	if !floatEquals(stored.EntryPrice, replayed.EntryPrice) {
		divergences = append(divergences, FieldDivergence{
			Field:    "EntryPrice",
			Expected: stored.EntryPrice,
			Actual:   replayed.EntryPrice,
		})
	}

	if !floatEquals(stored.ExitPrice, replayed.ExitPrice) {
		divergences = append(divergences, FieldDivergence{
			Field:    "ExitPrice",
			Expected: stored.ExitPrice,
			Actual:   replayed.ExitPrice,
		})
	}

	if !stored.ExitTime.Equal(replayed.ExitTime) {
		divergences = append(divergences, FieldDivergence{
			Field:    "ExitTime",
			Expected: stored.ExitTime,
			Actual:   replayed.ExitTime,
		})
	}

	if stored.ExitReason != replayed.ExitReason {
		divergences = append(divergences, FieldDivergence{
			Field:    "ExitReason",
			Expected: stored.ExitReason,
			Actual:   replayed.ExitReason,
		})
	}

	if !floatEquals(stored.ReturnPct, replayed.ReturnPct) {
		divergences = append(divergences, FieldDivergence{
			Field:    "ReturnPct",
			Expected: stored.ReturnPct,
			Actual:   replayed.ReturnPct,
		})
	}

	if !floatEquals(stored.PnLPerLot, replayed.PnLPerLot) {
		divergences = append(divergences, FieldDivergence{
			Field:    "PnLPerLot",
			Expected: stored.PnLPerLot,
			Actual:   replayed.PnLPerLot,
		})
	}

	if !boolPtrEquals(stored.Win, replayed.Win) {
		divergences = append(divergences, FieldDivergence{
			Field:    "Win",
			Expected: stored.Win,
			Actual:   replayed.Win,
		})
	}

	return divergences
}

// floatEquals compares two float64 values within FloatTolerance.
func floatEquals(a, b float64) bool {
	return math.Abs(a-b) <= FloatTolerance
}

// boolPtrEquals compares two *bool values. Both nil counts as equal.
func boolPtrEquals(a, b *bool) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}
