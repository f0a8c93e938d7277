package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daytrade-lab/internal/domain"
	"daytrade-lab/internal/storage"
	"daytrade-lab/internal/storage/postgres"
)

func testTrade(id, ticker, phase string, date time.Time) *domain.Trade {
	win := true
	return &domain.Trade{
		TradeID:     id,
		Ticker:      ticker,
		SessionDate: date,
		Phase:       phase,
		PolicyID:    "BAND_tp2_sl-4",
		Direction:   domain.DirectionLong,
		EntryPrice:  1000,
		ExitPrice:   1020,
		ExitTime:    date.Add(10*time.Hour + 15*time.Minute),
		ExitReason:  domain.ExitReasonTakeProfit,
		ReturnPct:   0.02,
		PnLPerLot:   2000,
		Win:         &win,
	}
}

func TestTradeStore_RoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := postgres.NewTradeStore(pool)
	day := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)

	trade := testTrade("trade-1", "7203.T", "phase4", day)
	require.NoError(t, store.Insert(ctx, trade))

	assert.ErrorIs(t, store.Insert(ctx, testTrade("trade-1", "9984.T", "phase1", day)), storage.ErrDuplicateKey)

	got, err := store.GetByID(ctx, "trade-1")
	require.NoError(t, err)

	assert.Equal(t, "7203.T", got.Ticker)
	assert.Equal(t, "phase4", got.Phase)
	assert.Equal(t, "BAND_tp2_sl-4", got.PolicyID)
	assert.Equal(t, domain.DirectionLong, got.Direction)
	assert.Equal(t, 1020.0, got.ExitPrice)
	assert.Equal(t, domain.ExitReasonTakeProfit, got.ExitReason)
	assert.InDelta(t, 0.02, got.ReturnPct, 1e-12)
	assert.InDelta(t, 2000, got.PnLPerLot, 1e-9)
	require.NotNil(t, got.Win)
	assert.True(t, *got.Win)
	assert.True(t, got.ExitTime.Equal(trade.ExitTime), "exit time must round-trip")

	_, err = store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTradeStore_NoDataTrade(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := postgres.NewTradeStore(pool)
	day := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)

	trade := &domain.Trade{
		TradeID:     "trade-nd",
		Ticker:      "7203.T",
		SessionDate: day,
		Phase:       "phase1",
		PolicyID:    "FIXED_TIME_11:30",
		Direction:   domain.DirectionLong,
		EntryPrice:  1000,
		ExitReason:  domain.ExitReasonNoData,
	}
	require.NoError(t, store.Insert(ctx, trade))

	got, err := store.GetByID(ctx, "trade-nd")
	require.NoError(t, err)

	assert.Nil(t, got.Win, "no_data win must stay NULL")
	assert.True(t, got.ExitTime.IsZero(), "no_data exit time must stay unset")
	assert.Zero(t, got.ExitPrice)
}

func TestTradeStore_Queries(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := postgres.NewTradeStore(pool)
	day1 := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 2, 24, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.InsertBulk(ctx, []*domain.Trade{
		testTrade("t1", "9984.T", "phase1", day2),
		testTrade("t2", "7203.T", "phase1", day1),
		testTrade("t3", "9984.T", "phase1", day1),
		testTrade("t4", "7203.T", "phase2", day1),
	}))

	byPhase, err := store.GetByPhase(ctx, "phase1")
	require.NoError(t, err)
	require.Len(t, byPhase, 3)
	assert.Equal(t, "t2", byPhase[0].TradeID)
	assert.Equal(t, "t1", byPhase[2].TradeID, "later session last")

	byDay, err := store.GetBySessionDate(ctx, day1)
	require.NoError(t, err)
	require.Len(t, byDay, 3)
	assert.Equal(t, "phase2", byDay[2].Phase, "phase ASC")

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestTradeStore_InsertBulkAtomic(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := postgres.NewTradeStore(pool)
	day := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)

	batch := []*domain.Trade{
		testTrade("t1", "7203.T", "phase1", day),
		testTrade("t1", "9984.T", "phase1", day),
	}
	assert.ErrorIs(t, store.InsertBulk(ctx, batch), storage.ErrDuplicateKey)

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
