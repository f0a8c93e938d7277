// Package main provides the unified service that runs all components
// together: an optional websocket bar feed (continuous), the simulation
// pipeline (scheduled), and report generation (scheduled), plus an HTTP
// endpoint for health, metrics, and status.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"daytrade-lab/internal/barseries"
	"daytrade-lab/internal/config"
	"daytrade-lab/internal/domain"
	"daytrade-lab/internal/ingestion"
	"daytrade-lab/internal/observability"
	"daytrade-lab/internal/orchestrator"
	"daytrade-lab/internal/phase"
	"daytrade-lab/internal/reporting"
	"daytrade-lab/internal/storage"
	chstore "daytrade-lab/internal/storage/clickhouse"
	"daytrade-lab/internal/storage/memory"
	"daytrade-lab/internal/storage/migrations"
	pgstore "daytrade-lab/internal/storage/postgres"
)

// Server holds all components of the unified service.
type Server struct {
	wsEndpoint       string
	tickers          []string
	outputDir        string
	pipelineInterval time.Duration
	reportInterval   time.Duration

	st        *stores
	orch      *orchestrator.Orchestrator
	generator *reporting.Generator
	log       zerolog.Logger

	// firstPipeline closes after the first pipeline run so reports never
	// render an empty store on startup.
	firstPipeline chan struct{}
	firstOnce     sync.Once

	mu              sync.Mutex
	started         time.Time
	lastPipelineRun time.Time
	lastReportRun   time.Time
	pipelineRunning bool
	reportRunning   bool
	pipelineRuns    int
	reportRuns      int
}

type stores struct {
	entries  storage.EntryStore
	bars     storage.BarStore
	trades   storage.TradeStore
	segments storage.SegmentStatsStore
}

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to YAML config file")
	wsEndpoint := flag.String("ws-endpoint", os.Getenv("BAR_FEED_WS_ENDPOINT"), "Optional websocket bar feed endpoint")
	tickers := flag.String("tickers", "", "Comma-separated tickers for the bar feed")
	outputDir := flag.String("output-dir", "output", "Output directory for reports")
	pipelineInterval := flag.Duration("pipeline-interval", 1*time.Hour, "Pipeline run interval")
	reportInterval := flag.Duration("report-interval", 6*time.Hour, "Report generation interval")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	httpAddr := flag.String("http-addr", ":9090", "HTTP address for health/metrics/status")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	tickerList := splitTickers(*tickers)
	if *wsEndpoint != "" && len(tickerList) == 0 {
		log.Fatal().Msg("--tickers is required when --ws-endpoint is set")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, cleanup, err := createStores(ctx, cfg, *useMemory)
	if err != nil {
		log.Fatal().Err(err).Msg("create stores")
	}
	defer cleanup()

	orch, err := buildOrchestrator(cfg, st, log)
	if err != nil {
		log.Fatal().Err(err).Msg("build pipeline")
	}

	server := &Server{
		wsEndpoint:       *wsEndpoint,
		tickers:          tickerList,
		outputDir:        *outputDir,
		pipelineInterval: *pipelineInterval,
		reportInterval:   *reportInterval,
		st:               st,
		orch:             orch,
		generator:        reporting.NewGenerator(st.entries, st.trades, st.segments),
		log:              log,
		firstPipeline:    make(chan struct{}),
		started:          time.Now(),
	}

	done := make(chan error, 1)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("initiating graceful shutdown")
		cancel()

		select {
		case sig := <-sigCh:
			log.Error().Str("signal", sig.String()).Msg("forcing immediate shutdown")
			os.Exit(1)
		case <-time.After(30 * time.Second):
			log.Error().Msg("graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	go server.serveHTTP(*httpAddr)

	err = server.Run(ctx)
	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("server error")
	}
	log.Info().Msg("shutdown complete")
}

func splitTickers(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
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

func buildOrchestrator(cfg *config.Config, st *stores, log zerolog.Logger) (*orchestrator.Orchestrator, error) {
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

	provider := barseries.NewCachingProvider(barseries.NewStoreProvider(st.bars, clock))
	runner := phase.NewRunner(phase.RunnerOptions{
		Phases:   phases,
		Provider: provider,
		Workers:  cfg.Workers,
		Logger:   log,
	})

	return orchestrator.New(orchestrator.Options{
		EntryStore:          st.entries,
		TradeStore:          st.trades,
		SegmentStore:        st.segments,
		Runner:              runner,
		MinSampleSize:       cfg.MinSampleSize,
		VolatilityThreshold: cfg.VolatilityThreshold,
		Logger:              log,
	}), nil
}

// Run starts all components and blocks until the context is cancelled or a
// component fails.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info().Msg("starting unified server")

	errCh := make(chan error, 3)

	if s.wsEndpoint != "" {
		go func() {
			if err := s.runFeed(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("bar feed: %w", err)
			}
		}()
	}

	go func() {
		if err := s.runPipelineScheduler(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("pipeline scheduler: %w", err)
		}
	}()

	go func() {
		if err := s.runReportScheduler(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("report scheduler: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// runFeed runs the continuous websocket bar feed.
func (s *Server) runFeed(ctx context.Context) error {
	s.log.Info().Str("endpoint", s.wsEndpoint).Strs("tickers", s.tickers).Msg("starting bar feed")
	feed := ingestion.NewBarFeed(s.wsEndpoint, s.tickers, domain.IntervalSession, s.st.bars, nil, s.log)
	return feed.Run(ctx)
}

// runPipelineScheduler runs the pipeline immediately and then on a ticker.
func (s *Server) runPipelineScheduler(ctx context.Context) error {
	s.log.Info().Dur("interval", s.pipelineInterval).Msg("starting pipeline scheduler")

	s.runPipeline(ctx)

	ticker := time.NewTicker(s.pipelineInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runPipeline(ctx)
		}
	}
}

func (s *Server) runPipeline(ctx context.Context) {
	s.mu.Lock()
	if s.pipelineRunning {
		s.mu.Unlock()
		s.log.Warn().Msg("pipeline already running, skipping")
		return
	}
	s.pipelineRunning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.pipelineRunning = false
		s.lastPipelineRun = time.Now()
		s.pipelineRuns++
		s.mu.Unlock()
		s.firstOnce.Do(func() { close(s.firstPipeline) })
	}()

	start := time.Now()
	result, err := s.orch.Run(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("pipeline run failed")
		return
	}

	s.log.Info().
		Dur("elapsed", time.Since(start)).
		Int("entries", result.EntriesProcessed).
		Int("trades", result.TradesCreated).
		Int("segments", result.SegmentsCreated).
		Int("errors", len(result.Errors)).
		Msg("pipeline run completed")
}

// runReportScheduler waits for the first pipeline run, then generates
// reports on a ticker.
func (s *Server) runReportScheduler(ctx context.Context) error {
	s.log.Info().Dur("interval", s.reportInterval).Msg("starting report scheduler")

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.firstPipeline:
	}

	s.runReport(ctx)

	ticker := time.NewTicker(s.reportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runReport(ctx)
		}
	}
}

func (s *Server) runReport(ctx context.Context) {
	s.mu.Lock()
	if s.reportRunning {
		s.mu.Unlock()
		s.log.Warn().Msg("report generation already running, skipping")
		return
	}
	s.reportRunning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.reportRunning = false
		s.lastReportRun = time.Now()
		s.reportRuns++
		s.mu.Unlock()
	}()

	start := time.Now()
	report, err := s.generator.Generate(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("report generation failed")
		return
	}

	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		s.log.Error().Err(err).Msg("create output directory")
		return
	}
	markdown := filepath.Join(s.outputDir, "REPORT.md")
	if err := os.WriteFile(markdown, []byte(reporting.RenderMarkdown(report)), 0o644); err != nil {
		s.log.Error().Err(err).Msg("write markdown report")
		return
	}
	csvPath := filepath.Join(s.outputDir, "segment_summaries.csv")
	if err := os.WriteFile(csvPath, []byte(reporting.RenderCSV(report.SegmentRows)), 0o644); err != nil {
		s.log.Error().Err(err).Msg("write segment csv")
		return
	}

	s.log.Info().
		Dur("elapsed", time.Since(start)).
		Str("dir", s.outputDir).
		Msg("reports generated")
}

// serveHTTP exposes health, metrics, and status endpoints.
func (s *Server) serveHTTP(addr string) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/status", s.handleStatus)

	s.log.Info().Str("addr", addr).Msg("starting HTTP server")
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log.Error().Err(err).Msg("HTTP server error")
	}
}

// StatusResponse is the JSON response for the /status endpoint.
type StatusResponse struct {
	Status          string    `json:"status"`
	Uptime          string    `json:"uptime"`
	LastPipelineRun time.Time `json:"last_pipeline_run,omitempty"`
	LastReportRun   time.Time `json:"last_report_run,omitempty"`
	PipelineRuns    int       `json:"pipeline_runs"`
	ReportRuns      int       `json:"report_runs"`
	PipelineRunning bool      `json:"pipeline_running"`
	ReportRunning   bool      `json:"report_running"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Status:          "running",
		Uptime:          time.Since(s.started).String(),
		LastPipelineRun: s.lastPipelineRun,
		LastReportRun:   s.lastReportRun,
		PipelineRuns:    s.pipelineRuns,
		ReportRuns:      s.reportRuns,
		PipelineRunning: s.pipelineRunning,
		ReportRunning:   s.reportRunning,
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
