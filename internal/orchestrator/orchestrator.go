// Package orchestrator provides E2E pipeline orchestration.
// It coordinates: load entries → phase simulation → trade persistence →
// segment aggregation → summary persistence.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"daytrade-lab/internal/domain"
	"daytrade-lab/internal/observability"
	"daytrade-lab/internal/phase"
	"daytrade-lab/internal/segment"
	"daytrade-lab/internal/storage"
)

// Orchestrator coordinates the E2E pipeline execution.
type Orchestrator struct {
	entryStore   storage.EntryStore
	tradeStore   storage.TradeStore
	segmentStore storage.SegmentStatsStore

	runner     *phase.Runner
	aggregator *segment.Aggregator

	volatilityThreshold float64
	log                 zerolog.Logger
}

// Options for creating Orchestrator.
type Options struct {
	// Required stores
	EntryStore   storage.EntryStore
	TradeStore   storage.TradeStore
	SegmentStore storage.SegmentStatsStore

	// Required simulation runner
	Runner *phase.Runner

	// MinSampleSize for segment aggregation; the default keeps groups of
	// three or more simulated trades.
	MinSampleSize int

	// VolatilityThreshold for the index volatility dimension;
	// segment.DefaultVolatilityThreshold when zero.
	VolatilityThreshold float64

	Logger zerolog.Logger
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	agg := segment.NewAggregator()
	if opts.MinSampleSize > 0 {
		agg = segment.NewAggregatorWithMinSample(opts.MinSampleSize)
	}
	threshold := opts.VolatilityThreshold
	if threshold <= 0 {
		threshold = segment.DefaultVolatilityThreshold
	}
	return &Orchestrator{
		entryStore:          opts.EntryStore,
		tradeStore:          opts.TradeStore,
		segmentStore:        opts.SegmentStore,
		runner:              opts.Runner,
		aggregator:          agg,
		volatilityThreshold: threshold,
		log:                 opts.Logger.With().Str("component", "orchestrator").Logger(),
	}
}

// RunResult contains results from orchestrator execution.
type RunResult struct {
	EntriesProcessed int
	TradesCreated    int
	SegmentsCreated  int
	GroupsOmitted    int
	Errors           []string
}

// Run executes the full E2E pipeline.
// Phases:
//  1. Load entries
//  2. Simulate every catalog phase per entry
//  3. Persist trades
//  4. Aggregate segments and persist summaries
//
// Re-runs are safe: already-stored trades and summaries are skipped, not
// errors.
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	start := time.Now()
	result, err := o.run(ctx)

	status := "success"
	if err != nil {
		status = "failure"
	}
	observability.RecordPipelineRun(status, time.Since(start).Seconds())
	return result, err
}

func (o *Orchestrator) run(ctx context.Context) (*RunResult, error) {
	result := &RunResult{}

	o.log.Info().Msg("loading entries")
	entries, err := o.entryStore.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}
	result.EntriesProcessed = len(entries)
	o.log.Info().Int("entries", len(entries)).Msg("entries loaded")

	if len(entries) == 0 {
		return result, nil
	}

	o.log.Info().Msg("running simulations")
	batch := o.runner.RunBatch(ctx, entries)
	result.Errors = append(result.Errors, batch.Errors...)
	if err := ctx.Err(); err != nil {
		return result, err
	}
	o.log.Info().Int("trades", len(batch.Trades)).Int("errors", len(batch.Errors)).Msg("simulations done")

	stored, storeErrs := o.storeTrades(ctx, batch.Trades)
	result.TradesCreated = stored
	result.Errors = append(result.Errors, storeErrs...)

	o.log.Info().Msg("aggregating segments")
	outcomes := buildOutcomes(entries, batch.Trades)
	agg := o.aggregator.Aggregate(outcomes, o.dimensions(outcomes))
	result.GroupsOmitted = len(agg.Omitted)

	created, aggErrs := o.storeSegments(ctx, agg.Segments)
	result.SegmentsCreated = created
	result.Errors = append(result.Errors, aggErrs...)

	observability.DefaultMetrics.SegmentsComputed.Add(float64(created))
	observability.DefaultMetrics.GroupsOmitted.Add(float64(len(agg.Omitted)))

	o.log.Info().
		Int("entries", result.EntriesProcessed).
		Int("trades", result.TradesCreated).
		Int("segments", result.SegmentsCreated).
		Int("omitted_groups", result.GroupsOmitted).
		Msg("pipeline completed")

	return result, nil
}

// storeTrades persists trades one by one so a re-run skips what already
// exists instead of failing the whole batch.
func (o *Orchestrator) storeTrades(ctx context.Context, trades []*domain.Trade) (int, []string) {
	var stored int
	var errs []string

	for _, t := range trades {
		err := o.tradeStore.Insert(ctx, t)
		if errors.Is(err, storage.ErrDuplicateKey) {
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("store trade %s: %v", t.TradeID, err))
			continue
		}
		stored++
	}
	return stored, errs
}

// storeSegments persists summaries, skipping any that a previous run with
// the same trade set already produced.
func (o *Orchestrator) storeSegments(ctx context.Context, segments []*domain.SegmentStats) (int, []string) {
	var stored int
	var errs []string

	for _, s := range segments {
		err := o.segmentStore.InsertBulk(ctx, []*domain.SegmentStats{s})
		if errors.Is(err, storage.ErrDuplicateKey) {
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("store segment %s/%s/%s: %v", s.Dimension, s.Key, s.Phase, err))
			continue
		}
		stored++
	}
	return stored, errs
}

// buildOutcomes joins trades back to their entries for segment analysis.
// Trades whose entry is missing from the batch are dropped; they cannot be
// attributed to any segment.
func buildOutcomes(entries []*domain.Entry, trades []*domain.Trade) []segment.TradeOutcome {
	byKey := make(map[string]*domain.Entry, len(entries))
	for _, e := range entries {
		byKey[e.Key()] = e
	}

	outcomes := make([]segment.TradeOutcome, 0, len(trades))
	for _, t := range trades {
		e := byKey[t.Ticker+"|"+t.SessionDate.Format("2006-01-02")]
		if e == nil {
			continue
		}
		outcomes = append(outcomes, segment.TradeOutcome{Entry: e, Trade: t})
	}
	return outcomes
}

// dimensions is the standard slicing set with the configured volatility
// threshold.
func (o *Orchestrator) dimensions(outcomes []segment.TradeOutcome) []segment.Dimension {
	return []segment.Dimension{
		segment.IndexDirectionDimension(),
		segment.IndexVolatilityDimension(o.volatilityThreshold),
		segment.RankBucketDimension(),
		segment.CategoryDimension(),
		segment.PriceBucketDimension(),
		segment.QuintileDimension(outcomes),
	}
}
