// Package ingestion imports entries and OHLCV bars from external sources:
// flat CSV files produced by the signal-generation process and a streaming
// websocket bar feed.
package ingestion

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"daytrade-lab/internal/domain"
)

const (
	sessionDateLayout = "2006-01-02"
)

// ReadEntries parses candidate entries from CSV. The header row names the
// columns; ticker, session_date and entry_price are required, everything
// else is optional (direction defaults to long, lot_size to the standard
// trading unit).
func ReadEntries(r io.Reader) ([]*domain.Entry, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read entries header: %w", err)
	}
	cols := columnIndex(header)
	for _, required := range []string{"ticker", "session_date", "entry_price"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("entries csv: missing column %q", required)
		}
	}

	var entries []*domain.Entry
	for row := 2; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("entries csv row %d: %w", row, err)
		}

		e, err := parseEntryRecord(cols, record)
		if err != nil {
			return nil, fmt.Errorf("entries csv row %d: %w", row, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func parseEntryRecord(cols map[string]int, record []string) (*domain.Entry, error) {
	field := func(name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	ticker := field("ticker")
	if ticker == "" {
		return nil, fmt.Errorf("empty ticker")
	}

	date, err := time.Parse(sessionDateLayout, field("session_date"))
	if err != nil {
		return nil, fmt.Errorf("session_date: %w", err)
	}

	price, err := strconv.ParseFloat(field("entry_price"), 64)
	if err != nil {
		return nil, fmt.Errorf("entry_price: %w", err)
	}
	if price <= 0 {
		return nil, fmt.Errorf("entry_price %v must be positive", price)
	}

	e := &domain.Entry{
		Ticker:      ticker,
		SessionDate: date,
		EntryPrice:  price,
		Direction:   domain.DirectionLong,
		Category:    field("category"),
	}

	if s := field("direction"); s != "" {
		dir, ok := domain.ParseDirection(s)
		if !ok {
			return nil, fmt.Errorf("direction %q: want long or short", s)
		}
		e.Direction = dir
	}
	if s := field("lot_size"); s != "" {
		lot, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("lot_size: %w", err)
		}
		e.LotSize = lot
	}
	if s := field("index_return"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("index_return: %w", err)
		}
		e.ReferenceIndexReturn = &v
	}
	if s := field("score"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("score: %w", err)
		}
		e.PredictiveScore = &v
	}
	if s := field("rank"); s != "" {
		rank, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("rank: %w", err)
		}
		e.Rank = rank
	}
	return e, nil
}

// ReadBars parses OHLCV bars from CSV. All bars in one file share the given
// interval; the caller supplies the session/daily partition, it is never
// inferred. Timestamps are RFC 3339.
func ReadBars(r io.Reader, interval domain.Interval) ([]*domain.Bar, error) {
	if interval != domain.IntervalSession && interval != domain.IntervalDaily {
		return nil, fmt.Errorf("bars csv: unknown interval %q", interval)
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read bars header: %w", err)
	}
	cols := columnIndex(header)
	for _, required := range []string{"ticker", "timestamp", "open", "high", "low", "close", "volume"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("bars csv: missing column %q", required)
		}
	}

	var bars []*domain.Bar
	for row := 2; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("bars csv row %d: %w", row, err)
		}

		b, err := parseBarRecord(cols, record, interval)
		if err != nil {
			return nil, fmt.Errorf("bars csv row %d: %w", row, err)
		}
		bars = append(bars, b)
	}
	return bars, nil
}

func parseBarRecord(cols map[string]int, record []string, interval domain.Interval) (*domain.Bar, error) {
	field := func(name string) string {
		idx := cols[name]
		if idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	ticker := field("ticker")
	if ticker == "" {
		return nil, fmt.Errorf("empty ticker")
	}

	ts, err := time.Parse(time.RFC3339, field("timestamp"))
	if err != nil {
		return nil, fmt.Errorf("timestamp: %w", err)
	}

	prices := make(map[string]float64, 4)
	for _, name := range []string{"open", "high", "low", "close"} {
		v, err := strconv.ParseFloat(field(name), 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		prices[name] = v
	}

	volume, err := strconv.ParseInt(field("volume"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("volume: %w", err)
	}

	b := &domain.Bar{
		Ticker:    ticker,
		Timestamp: ts,
		Open:      prices["open"],
		High:      prices["high"],
		Low:       prices["low"],
		Close:     prices["close"],
		Volume:    volume,
		Interval:  interval,
	}
	if err := validateBar(b); err != nil {
		return nil, err
	}
	return b, nil
}

// validateBar enforces the OHLC range invariant.
func validateBar(b *domain.Bar) error {
	if b.Low > b.High {
		return fmt.Errorf("bar %s@%s: low %v above high %v", b.Ticker, b.Timestamp.Format(time.RFC3339), b.Low, b.High)
	}
	if b.Open < b.Low || b.Open > b.High {
		return fmt.Errorf("bar %s@%s: open %v outside [%v, %v]", b.Ticker, b.Timestamp.Format(time.RFC3339), b.Open, b.Low, b.High)
	}
	if b.Close < b.Low || b.Close > b.High {
		return fmt.Errorf("bar %s@%s: close %v outside [%v, %v]", b.Ticker, b.Timestamp.Format(time.RFC3339), b.Close, b.Low, b.High)
	}
	if b.Volume < 0 {
		return fmt.Errorf("bar %s@%s: negative volume", b.Ticker, b.Timestamp.Format(time.RFC3339))
	}
	return nil
}

func columnIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return cols
}
