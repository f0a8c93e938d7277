// Package main imports entries and bars from CSV files or streams bars
// from a websocket provider into storage.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"daytrade-lab/internal/config"
	"daytrade-lab/internal/domain"
	"daytrade-lab/internal/ingestion"
	"daytrade-lab/internal/observability"
	chstore "daytrade-lab/internal/storage/clickhouse"
	"daytrade-lab/internal/storage/migrations"
	pgstore "daytrade-lab/internal/storage/postgres"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to YAML config file")
	entriesCSV := flag.String("entries", "", "Entries CSV file to import")
	barsCSV := flag.String("bars", "", "Session bars CSV file to import")
	dailyCSV := flag.String("daily-bars", "", "Daily bars CSV file to import")
	wsEndpoint := flag.String("ws-endpoint", os.Getenv("BAR_FEED_WS_ENDPOINT"), "Websocket bar feed endpoint; streams until interrupted")
	tickers := flag.String("tickers", "", "Comma-separated tickers to subscribe on the feed")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (empty disables)")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	if *entriesCSV == "" && *barsCSV == "" && *dailyCSV == "" && *wsEndpoint == "" {
		log.Fatal().Msg("nothing to do: pass --entries, --bars, --daily-bars or --ws-endpoint")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
	}()

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to postgres")
	}
	defer pool.Close()
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("postgres migrations")
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("clickhouse migrations")
	}
	defer chConn.Close()

	entryStore := pgstore.NewEntryStore(pool)
	barStore := chstore.NewBarStore(chConn)

	if *entriesCSV != "" {
		n, err := importEntries(ctx, entryStore, *entriesCSV)
		if err != nil {
			log.Fatal().Err(err).Msg("import entries")
		}
		observability.DefaultMetrics.EntriesImported.Add(float64(n))
		log.Info().Int("entries", n).Str("file", *entriesCSV).Msg("entries imported")
	}

	for _, in := range []struct {
		path     string
		interval domain.Interval
	}{
		{*barsCSV, domain.IntervalSession},
		{*dailyCSV, domain.IntervalDaily},
	} {
		if in.path == "" {
			continue
		}
		n, err := importBars(ctx, barStore, in.path, in.interval)
		if err != nil {
			log.Fatal().Err(err).Str("file", in.path).Msg("import bars")
		}
		log.Info().Int("bars", n).Str("interval", string(in.interval)).Str("file", in.path).Msg("bars imported")
	}

	if *wsEndpoint == "" {
		return
	}

	tickerList := splitTickers(*tickers)
	if len(tickerList) == 0 {
		log.Fatal().Msg("--tickers is required with --ws-endpoint")
	}

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				log.Error().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	feed := ingestion.NewBarFeed(*wsEndpoint, tickerList, domain.IntervalSession, barStore, nil, log)
	log.Info().Str("endpoint", *wsEndpoint).Strs("tickers", tickerList).Msg("starting bar feed")
	if err := feed.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("bar feed failed")
	}
	log.Info().Int("bars", feed.Stored()).Msg("bar feed stopped")
}

func importEntries(ctx context.Context, store *pgstore.EntryStore, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	entries, err := ingestion.ReadEntries(f)
	if err != nil {
		return 0, err
	}
	if err := store.InsertBulk(ctx, entries); err != nil {
		return 0, fmt.Errorf("store entries: %w", err)
	}
	return len(entries), nil
}

func importBars(ctx context.Context, store *chstore.BarStore, path string, interval domain.Interval) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	bars, err := ingestion.ReadBars(f, interval)
	if err != nil {
		return 0, err
	}
	if err := store.InsertBulk(ctx, bars); err != nil {
		return 0, fmt.Errorf("store bars: %w", err)
	}
	return len(bars), nil
}

func splitTickers(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
