package ingestion

import (
	"strings"
	"testing"
	"time"

	"daytrade-lab/internal/domain"
)

func TestReadEntries_FullColumns(t *testing.T) {
	in := `ticker,session_date,entry_price,direction,lot_size,index_return,score,category,rank
7203,2026-02-20,1000.5,long,100,0.004,0.82,auto,1
9984,2026-02-20,8200,short,,-0.002,,tech,2
`
	entries, err := ReadEntries(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadEntries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}

	e := entries[0]
	if e.Ticker != "7203" || e.EntryPrice != 1000.5 || e.Direction != domain.DirectionLong {
		t.Errorf("entry 0 = %+v", e)
	}
	if !e.SessionDate.Equal(time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("session date = %v", e.SessionDate)
	}
	if e.ReferenceIndexReturn == nil || *e.ReferenceIndexReturn != 0.004 {
		t.Errorf("index return = %v", e.ReferenceIndexReturn)
	}
	if e.PredictiveScore == nil || *e.PredictiveScore != 0.82 {
		t.Errorf("score = %v", e.PredictiveScore)
	}
	if e.Category != "auto" || e.Rank != 1 || e.LotSize != 100 {
		t.Errorf("entry 0 metadata = %+v", e)
	}

	e = entries[1]
	if e.Direction != domain.DirectionShort {
		t.Errorf("entry 1 direction = %v", e.Direction)
	}
	if e.LotSize != 0 || e.Lot() != domain.DefaultLotSize {
		t.Errorf("entry 1 lot = %v (effective %v)", e.LotSize, e.Lot())
	}
	if e.PredictiveScore != nil {
		t.Errorf("entry 1 score should be nil, got %v", *e.PredictiveScore)
	}
}

func TestReadEntries_MinimalColumns(t *testing.T) {
	in := `ticker,session_date,entry_price
7203,2026-02-20,1000
`
	entries, err := ReadEntries(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadEntries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Direction != domain.DirectionLong {
		t.Errorf("direction should default to long, got %v", e.Direction)
	}
	if e.Rank != 0 || e.Category != "" || e.ReferenceIndexReturn != nil {
		t.Errorf("optional fields should be zero: %+v", e)
	}
}

func TestReadEntries_ColumnOrderIrrelevant(t *testing.T) {
	in := `entry_price,ticker,session_date
1000,7203,2026-02-20
`
	entries, err := ReadEntries(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadEntries: %v", err)
	}
	if entries[0].Ticker != "7203" || entries[0].EntryPrice != 1000 {
		t.Errorf("entry = %+v", entries[0])
	}
}

func TestReadEntries_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"missing required column", "ticker,session_date\n7203,2026-02-20\n"},
		{"bad date", "ticker,session_date,entry_price\n7203,Feb 20,1000\n"},
		{"bad price", "ticker,session_date,entry_price\n7203,2026-02-20,abc\n"},
		{"zero price", "ticker,session_date,entry_price\n7203,2026-02-20,0\n"},
		{"empty ticker", "ticker,session_date,entry_price\n,2026-02-20,1000\n"},
		{"bad direction", "ticker,session_date,entry_price,direction\n7203,2026-02-20,1000,up\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadEntries(strings.NewReader(tt.in)); err == nil {
				t.Errorf("ReadEntries succeeded, want error")
			}
		})
	}
}

func TestReadBars_Session(t *testing.T) {
	in := `ticker,timestamp,open,high,low,close,volume
7203,2026-02-20T09:00:00+09:00,1000,1010,995,1005,120000
7203,2026-02-20T09:05:00+09:00,1005,1008,1001,1002,80000
`
	bars, err := ReadBars(strings.NewReader(in), domain.IntervalSession)
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("got %d bars, want 2", len(bars))
	}

	b := bars[0]
	if b.Ticker != "7203" || b.Open != 1000 || b.High != 1010 || b.Low != 995 || b.Close != 1005 {
		t.Errorf("bar 0 = %+v", b)
	}
	if b.Volume != 120000 || b.Interval != domain.IntervalSession {
		t.Errorf("bar 0 volume/interval = %v/%v", b.Volume, b.Interval)
	}
	if b.Timestamp.Hour() != 9 || b.Timestamp.Minute() != 0 {
		t.Errorf("bar 0 timestamp = %v", b.Timestamp)
	}
}

func TestReadBars_DailyInterval(t *testing.T) {
	in := `ticker,timestamp,open,high,low,close,volume
7203,2026-02-20T00:00:00+09:00,1000,1030,990,1020,2400000
`
	bars, err := ReadBars(strings.NewReader(in), domain.IntervalDaily)
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if bars[0].Interval != domain.IntervalDaily {
		t.Errorf("interval = %v", bars[0].Interval)
	}
}

func TestReadBars_Errors(t *testing.T) {
	header := "ticker,timestamp,open,high,low,close,volume\n"
	tests := []struct {
		name string
		in   string
	}{
		{"missing column", "ticker,timestamp,open,high,low,close\n7203,2026-02-20T09:00:00Z,1,2,1,1\n"},
		{"bad timestamp", header + "7203,yesterday,1000,1010,995,1005,100\n"},
		{"low above high", header + "7203,2026-02-20T09:00:00Z,1000,995,1010,1000,100\n"},
		{"open outside range", header + "7203,2026-02-20T09:00:00Z,1020,1010,995,1005,100\n"},
		{"close outside range", header + "7203,2026-02-20T09:00:00Z,1000,1010,995,990,100\n"},
		{"negative volume", header + "7203,2026-02-20T09:00:00Z,1000,1010,995,1005,-5\n"},
		{"bad volume", header + "7203,2026-02-20T09:00:00Z,1000,1010,995,1005,lots\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadBars(strings.NewReader(tt.in), domain.IntervalSession); err == nil {
				t.Errorf("ReadBars succeeded, want error")
			}
		})
	}
}

func TestReadBars_UnknownInterval(t *testing.T) {
	if _, err := ReadBars(strings.NewReader("ticker\n"), domain.Interval("weekly")); err == nil {
		t.Errorf("ReadBars succeeded, want error")
	}
}
