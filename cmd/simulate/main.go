// Package main simulates one candidate entry through the full exit-phase
// catalog and prints the resulting trades as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"daytrade-lab/internal/barseries"
	"daytrade-lab/internal/config"
	"daytrade-lab/internal/domain"
	"daytrade-lab/internal/ingestion"
	"daytrade-lab/internal/phase"
	"daytrade-lab/internal/storage/memory"
)

// tradeJSON is the output row. The simulator's internal types carry no JSON
// tags; this keeps the CLI contract explicit.
type tradeJSON struct {
	TradeID    string  `json:"trade_id"`
	Phase      string  `json:"phase"`
	PolicyID   string  `json:"policy_id"`
	Ticker     string  `json:"ticker"`
	Date       string  `json:"session_date"`
	Direction  string  `json:"direction"`
	EntryPrice float64 `json:"entry_price"`
	ExitPrice  float64 `json:"exit_price"`
	ExitTime   string  `json:"exit_time,omitempty"`
	ExitReason string  `json:"exit_reason"`
	ReturnPct  float64 `json:"return_pct"`
	PnLPerLot  float64 `json:"pnl_per_lot"`
	Win        *bool   `json:"win"`
}

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to YAML config file")
	ticker := flag.String("ticker", "", "Ticker to simulate")
	date := flag.String("date", "", "Session date (YYYY-MM-DD)")
	price := flag.Float64("price", 0, "Entry price (session open)")
	direction := flag.String("direction", "long", "Trade direction: long or short")
	lot := flag.Float64("lot", 0, "Lot size (standard trading unit when zero)")
	indexReturn := flag.String("index-return", "", "Reference index same-day return, signed fraction")
	barsCSV := flag.String("bars", "", "Session bars CSV file")
	dailyCSV := flag.String("daily-bars", "", "Optional daily bars CSV file")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	if *ticker == "" || *date == "" || *price <= 0 || *barsCSV == "" {
		log.Fatal().Msg("--ticker, --date, --price and --bars are required")
	}

	entry, err := buildEntry(*ticker, *date, *price, *direction, *lot, *indexReturn)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid entry")
	}

	ctx := context.Background()

	barStore := memory.NewBarStore()
	if err := loadBars(ctx, barStore, *barsCSV, domain.IntervalSession); err != nil {
		log.Fatal().Err(err).Msg("load session bars")
	}
	if *dailyCSV != "" {
		if err := loadBars(ctx, barStore, *dailyCSV, domain.IntervalDaily); err != nil {
			log.Fatal().Err(err).Msg("load daily bars")
		}
	}

	catalog, err := cfg.PhaseCatalog()
	if err != nil {
		log.Fatal().Err(err).Msg("phase catalog")
	}
	phases, err := phase.FromCatalog(catalog)
	if err != nil {
		log.Fatal().Err(err).Msg("phase catalog")
	}
	clock, err := cfg.SessionClock()
	if err != nil {
		log.Fatal().Err(err).Msg("session clock")
	}

	runner := phase.NewRunner(phase.RunnerOptions{
		Phases:   phases,
		Provider: barseries.NewStoreProvider(barStore, clock),
		Logger:   log,
	})

	trades, err := runner.RunEntry(ctx, entry)
	if err != nil {
		log.Fatal().Err(err).Msg("simulation failed")
	}

	out := make([]tradeJSON, len(trades))
	for i, t := range trades {
		out[i] = toJSON(t)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatal().Err(err).Msg("encode output")
	}
}

func buildEntry(ticker, date string, price float64, direction string, lot float64, indexReturn string) (*domain.Entry, error) {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return nil, fmt.Errorf("parse date: %w", err)
	}
	dir, ok := domain.ParseDirection(direction)
	if !ok {
		return nil, fmt.Errorf("direction %q: want long or short", direction)
	}

	entry := &domain.Entry{
		Ticker:      ticker,
		SessionDate: day,
		EntryPrice:  price,
		Direction:   dir,
		LotSize:     lot,
	}
	if indexReturn != "" {
		var v float64
		if _, err := fmt.Sscanf(indexReturn, "%g", &v); err != nil {
			return nil, fmt.Errorf("parse index return: %w", err)
		}
		entry.ReferenceIndexReturn = &v
	}
	return entry, nil
}

func loadBars(ctx context.Context, store *memory.BarStore, path string, interval domain.Interval) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	bars, err := ingestion.ReadBars(f, interval)
	if err != nil {
		return err
	}
	return store.InsertBulk(ctx, bars)
}

func toJSON(t *domain.Trade) tradeJSON {
	row := tradeJSON{
		TradeID:    t.TradeID,
		Phase:      t.Phase,
		PolicyID:   t.PolicyID,
		Ticker:     t.Ticker,
		Date:       t.SessionDate.Format("2006-01-02"),
		Direction:  t.Direction.String(),
		EntryPrice: t.EntryPrice,
		ExitPrice:  t.ExitPrice,
		ExitReason: t.ExitReason,
		ReturnPct:  t.ReturnPct,
		PnLPerLot:  t.PnLPerLot,
		Win:        t.Win,
	}
	if !t.ExitTime.IsZero() {
		row.ExitTime = t.ExitTime.Format(time.RFC3339)
	}
	return row
}
