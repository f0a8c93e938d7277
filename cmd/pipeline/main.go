// Package main provides the E2E pipeline entry point.
// Executes: load entries → simulate exit phases → persist trades →
// aggregate segments → persist summaries.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"daytrade-lab/internal/barseries"
	"daytrade-lab/internal/config"
	"daytrade-lab/internal/domain"
	"daytrade-lab/internal/ingestion"
	"daytrade-lab/internal/orchestrator"
	"daytrade-lab/internal/phase"
	"daytrade-lab/internal/storage"
	chstore "daytrade-lab/internal/storage/clickhouse"
	"daytrade-lab/internal/storage/memory"
	"daytrade-lab/internal/storage/migrations"
	pgstore "daytrade-lab/internal/storage/postgres"
	"daytrade-lab/internal/verification"
)

type stores struct {
	entries  storage.EntryStore
	bars     storage.BarStore
	trades   storage.TradeStore
	segments storage.SegmentStatsStore
}

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to YAML config file")
	entriesCSV := flag.String("entries", "", "Optional entries CSV to import before the run")
	barsCSV := flag.String("bars", "", "Optional session bars CSV to import before the run")
	dailyCSV := flag.String("daily-bars", "", "Optional daily bars CSV to import before the run")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	workers := flag.Int("workers", 0, "Simulation worker count (config value when zero)")
	verify := flag.Bool("verify", false, "Re-simulate stored trades after the run and report divergences")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("cancelling pipeline")
		cancel()
	}()

	st, cleanup, err := createStores(ctx, cfg, *useMemory)
	if err != nil {
		log.Fatal().Err(err).Msg("create stores")
	}
	defer cleanup()

	if err := importCSVs(ctx, st, *entriesCSV, *barsCSV, *dailyCSV); err != nil {
		log.Fatal().Err(err).Msg("import csv data")
	}

	sim, err := buildSimulation(cfg, st, *workers, log)
	if err != nil {
		log.Fatal().Err(err).Msg("build pipeline")
	}

	result, err := sim.orchestrator.Run(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("pipeline failed")
	}

	fmt.Println("Pipeline completed:")
	fmt.Printf("  Entries:  %d\n", result.EntriesProcessed)
	fmt.Printf("  Trades:   %d\n", result.TradesCreated)
	fmt.Printf("  Segments: %d\n", result.SegmentsCreated)
	fmt.Printf("  Omitted:  %d\n", result.GroupsOmitted)
	if len(result.Errors) > 0 {
		fmt.Printf("  Errors:   %d\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("    - %s\n", e)
		}
	}

	if *verify {
		verifier := verification.New(verification.Options{
			EntryStore: st.entries,
			TradeStore: st.trades,
			Provider:   sim.provider,
			Phases:     sim.phases,
		})
		report, err := verifier.VerifyAll(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("verification failed")
		}
		fmt.Println("Verification:")
		fmt.Printf("  Checked:   %d\n", report.TotalTrades)
		fmt.Printf("  Matched:   %d\n", report.MatchedTrades)
		fmt.Printf("  Divergent: %d\n", report.DivergentTrades)
		for _, r := range report.Results {
			if r.Match {
				continue
			}
			for _, d := range r.Divergences {
				fmt.Printf("    - %s %s: stored=%v replayed=%v\n", r.TradeID, d.Field, d.Expected, d.Actual)
			}
		}
		if report.DivergentTrades > 0 {
			os.Exit(1)
		}
	}
}

// createStores wires memory stores or the PostgreSQL/ClickHouse pair with
// migrations applied.
func createStores(ctx context.Context, cfg *config.Config, useMemory bool) (*stores, func(), error) {
	if useMemory {
		return &stores{
			entries:  memory.NewEntryStore(),
			bars:     memory.NewBarStore(),
			trades:   memory.NewTradeStore(),
			segments: memory.NewSegmentStatsStore(),
		}, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	st := &stores{
		entries:  pgstore.NewEntryStore(pool),
		bars:     chstore.NewBarStore(chConn),
		trades:   pgstore.NewTradeStore(pool),
		segments: chstore.NewSegmentStatsStore(chConn),
	}
	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return st, cleanup, nil
}

// importCSVs loads the optional flat-file inputs into the stores.
func importCSVs(ctx context.Context, st *stores, entriesPath, barsPath, dailyPath string) error {
	if entriesPath != "" {
		entries, err := readEntriesFile(entriesPath)
		if err != nil {
			return err
		}
		if err := st.entries.InsertBulk(ctx, entries); err != nil {
			return fmt.Errorf("store entries: %w", err)
		}
	}
	for _, in := range []struct {
		path     string
		interval domain.Interval
	}{
		{barsPath, domain.IntervalSession},
		{dailyPath, domain.IntervalDaily},
	} {
		if in.path == "" {
			continue
		}
		bars, err := readBarsFile(in.path, in.interval)
		if err != nil {
			return err
		}
		if err := st.bars.InsertBulk(ctx, bars); err != nil {
			return fmt.Errorf("store %s bars: %w", in.interval, err)
		}
	}
	return nil
}

func readEntriesFile(path string) ([]*domain.Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ingestion.ReadEntries(f)
}

func readBarsFile(path string, interval domain.Interval) ([]*domain.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ingestion.ReadBars(f, interval)
}

// simulation bundles the orchestrator with the pieces verification reuses.
type simulation struct {
	orchestrator *orchestrator.Orchestrator
	phases       []phase.Phase
	provider     barseries.Provider
}

// buildSimulation assembles the runner and orchestrator from config.
func buildSimulation(cfg *config.Config, st *stores, workers int, log zerolog.Logger) (*simulation, error) {
	catalog, err := cfg.PhaseCatalog()
	if err != nil {
		return nil, err
	}
	phases, err := phase.FromCatalog(catalog)
	if err != nil {
		return nil, err
	}
	clock, err := cfg.SessionClock()
	if err != nil {
		return nil, err
	}

	if workers <= 0 {
		workers = cfg.Workers
	}

	provider := barseries.NewCachingProvider(barseries.NewStoreProvider(st.bars, clock))
	runner := phase.NewRunner(phase.RunnerOptions{
		Phases:   phases,
		Provider: provider,
		Workers:  workers,
		Logger:   log,
	})

	orch := orchestrator.New(orchestrator.Options{
		EntryStore:          st.entries,
		TradeStore:          st.trades,
		SegmentStore:        st.segments,
		Runner:              runner,
		MinSampleSize:       cfg.MinSampleSize,
		VolatilityThreshold: cfg.VolatilityThreshold,
		Logger:              log,
	})
	return &simulation{orchestrator: orch, phases: phases, provider: provider}, nil
}
