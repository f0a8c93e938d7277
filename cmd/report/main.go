// Package main renders stored segment summaries as CSV or Markdown.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"daytrade-lab/internal/config"
	"daytrade-lab/internal/reporting"
	chstore "daytrade-lab/internal/storage/clickhouse"
	pgstore "daytrade-lab/internal/storage/postgres"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to YAML config file")
	outputDir := flag.String("output-dir", "", "Write report files here instead of stdout")
	format := flag.String("format", "markdown", "Output format when writing to stdout: markdown or csv")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to postgres")
	}
	defer pool.Close()

	chConn, err := chstore.NewConn(ctx, cfg.ClickhouseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to clickhouse")
	}
	defer chConn.Close()

	gen := reporting.NewGenerator(
		pgstore.NewEntryStore(pool),
		pgstore.NewTradeStore(pool),
		chstore.NewSegmentStatsStore(chConn),
	)

	report, err := gen.Generate(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("generate report")
	}

	if *outputDir != "" {
		if err := writeReportFiles(*outputDir, report); err != nil {
			log.Fatal().Err(err).Msg("write report files")
		}
		fmt.Printf("Report written:\n")
		fmt.Printf("  - %s\n", filepath.Join(*outputDir, "REPORT.md"))
		fmt.Printf("  - %s\n", filepath.Join(*outputDir, "segment_summaries.csv"))
		return
	}

	switch *format {
	case "markdown":
		fmt.Print(reporting.RenderMarkdown(report))
	case "csv":
		fmt.Print(reporting.RenderCSV(report.SegmentRows))
	default:
		log.Fatal().Str("format", *format).Msg("unknown format, want markdown or csv")
	}
}

func writeReportFiles(dir string, report *reporting.Report) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	md := filepath.Join(dir, "REPORT.md")
	if err := os.WriteFile(md, []byte(reporting.RenderMarkdown(report)), 0o644); err != nil {
		return err
	}
	csv := filepath.Join(dir, "segment_summaries.csv")
	return os.WriteFile(csv, []byte(reporting.RenderCSV(report.SegmentRows)), 0o644)
}
