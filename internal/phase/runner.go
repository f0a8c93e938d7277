package phase

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"daytrade-lab/internal/barseries"
	"daytrade-lab/internal/domain"
	"daytrade-lab/internal/idhash"
	"daytrade-lab/internal/observability"
)

// DefaultWorkers is the simulation fan-out when the caller does not set one.
const DefaultWorkers = 4

// Runner simulates every catalog phase for batches of entries. Series load
// once per entry and are shared read-only across phases.
type Runner struct {
	phases   []Phase
	provider barseries.Provider
	workers  int
	log      zerolog.Logger
}

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	Phases   []Phase
	Provider barseries.Provider
	Workers  int // DefaultWorkers when zero
	Logger   zerolog.Logger
}

// NewRunner creates a phase runner.
func NewRunner(opts RunnerOptions) *Runner {
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Runner{
		phases:   opts.Phases,
		provider: opts.Provider,
		workers:  workers,
		log:      opts.Logger,
	}
}

// RunEntry simulates all phases for one entry. The returned trades follow
// the catalog's phase order and carry phase labels and deterministic IDs.
func (r *Runner) RunEntry(ctx context.Context, entry *domain.Entry) ([]*domain.Trade, error) {
	series, err := r.provider.SessionSeries(ctx, entry.Ticker, entry.SessionDate)
	if err != nil {
		return nil, fmt.Errorf("load series for %s: %w", entry.Key(), err)
	}

	trades := make([]*domain.Trade, 0, len(r.phases))
	for _, p := range r.phases {
		trade := p.Sim.Simulate(entry, series)
		trade.Phase = p.Name
		trade.TradeID = idhash.ComputeTradeID(entry.Ticker, entry.SessionDate.Format("2006-01-02"), p.Name, trade.PolicyID)
		trades = append(trades, trade)
		observability.RecordTradeSimulated(p.Name, trade.NoData())
	}
	return trades, nil
}

// BatchResult is the outcome of a batch run. Trades keep a deterministic
// order: entries in input order, phases in catalog order within each entry.
// A failed entry contributes an error message instead of trades.
type BatchResult struct {
	Trades []*domain.Trade
	Errors []string
}

// RunBatch simulates all phases for every entry using a bounded worker pool.
// One entry failing to load its series never aborts the batch.
func (r *Runner) RunBatch(ctx context.Context, entries []*domain.Entry) *BatchResult {
	type entryResult struct {
		trades []*domain.Trade
		err    error
	}

	results := make([]entryResult, len(entries))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < r.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				trades, err := r.RunEntry(ctx, entries[i])
				results[i] = entryResult{trades: trades, err: err}
			}
		}()
	}

dispatch:
	for i := range entries {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	out := &BatchResult{}
	for i, res := range results {
		if ctx.Err() != nil && res.trades == nil && res.err == nil {
			continue // never dispatched
		}
		if res.err != nil {
			r.log.Warn().Err(res.err).Str("entry", entries[i].Key()).Msg("entry simulation failed")
			observability.DefaultMetrics.EntryFailures.Inc()
			out.Errors = append(out.Errors, res.err.Error())
			continue
		}
		out.Trades = append(out.Trades, res.trades...)
	}

	if err := ctx.Err(); err != nil {
		out.Errors = append(out.Errors, err.Error())
	}
	return out
}
