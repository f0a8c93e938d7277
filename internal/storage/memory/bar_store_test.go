package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"daytrade-lab/internal/domain"
	"daytrade-lab/internal/storage"
)

func makeSessionBar(ticker string, hh, mm int, close float64) *domain.Bar {
	return &domain.Bar{
		Ticker:    ticker,
		Timestamp: time.Date(2026, 2, 20, hh, mm, 0, 0, time.UTC),
		Open:      close,
		High:      close,
		Low:       close,
		Close:     close,
		Volume:    100,
		Interval:  domain.IntervalSession,
	}
}

func makeDailyBar(ticker string, close float64) *domain.Bar {
	b := makeSessionBar(ticker, 15, 30, close)
	b.Interval = domain.IntervalDaily
	return b
}

func TestBarStore_InsertBulkAndGetSession(t *testing.T) {
	ctx := context.Background()
	store := NewBarStore()

	bars := []*domain.Bar{
		makeSessionBar("7203.T", 9, 5, 2),
		makeSessionBar("7203.T", 9, 0, 1),
		makeSessionBar("9984.T", 9, 0, 50),
		makeDailyBar("7203.T", 3),
	}
	if err := store.InsertBulk(ctx, bars); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetSession(ctx, "7203.T", day1)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 session bars, got %d", len(got))
	}
	// timestamp ASC; the daily bar is excluded
	if got[0].Close != 1 || got[1].Close != 2 {
		t.Fatalf("bars out of order: %v, %v", got[0].Close, got[1].Close)
	}
}

func TestBarStore_DailyPartition(t *testing.T) {
	ctx := context.Background()
	store := NewBarStore()

	if err := store.InsertBulk(ctx, []*domain.Bar{
		makeSessionBar("7203.T", 9, 0, 1),
		makeDailyBar("7203.T", 7),
	}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	daily, err := store.GetDaily(ctx, "7203.T", day1)
	if err != nil {
		t.Fatalf("GetDaily failed: %v", err)
	}
	if daily.Close != 7 {
		t.Fatalf("daily close = %v, want 7", daily.Close)
	}

	if _, err := store.GetDaily(ctx, "9984.T", day1); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBarStore_DuplicateKeyFailsBatch(t *testing.T) {
	ctx := context.Background()
	store := NewBarStore()

	if err := store.InsertBulk(ctx, []*domain.Bar{makeSessionBar("7203.T", 9, 0, 1)}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	// Same (ticker, interval, timestamp), different prices.
	batch := []*domain.Bar{
		makeSessionBar("7203.T", 9, 5, 2),
		makeSessionBar("7203.T", 9, 0, 99),
	}
	if err := store.InsertBulk(ctx, batch); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}

	// The 9:05 bar from the failed batch must not be visible.
	got, _ := store.GetSession(ctx, "7203.T", day1)
	if len(got) != 1 {
		t.Fatalf("expected 1 bar after failed batch, got %d", len(got))
	}
}

func TestBarStore_SameTimestampDifferentInterval(t *testing.T) {
	ctx := context.Background()
	store := NewBarStore()

	// A session bar and a daily bar may share a timestamp.
	if err := store.InsertBulk(ctx, []*domain.Bar{
		makeSessionBar("7203.T", 15, 30, 1),
		makeDailyBar("7203.T", 2),
	}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}
}
