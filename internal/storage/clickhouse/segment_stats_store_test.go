package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daytrade-lab/internal/domain"
	"daytrade-lab/internal/storage"
)

func testSegmentStats(dimension, key, phase string) *domain.SegmentStats {
	return &domain.SegmentStats{
		Dimension: dimension,
		Key:       key,
		Phase:     phase,
		Stats: domain.RobustStats{
			Count:             42,
			WinRate:           0.55,
			MeanReturn:        0.004,
			MedianReturn:      0.002,
			TrimmedMeanReturn: 0.0035,
			AvgWin:            0.015,
			AvgLoss:           -0.009,
			ExpectedValue:     0.0042,
			LowerQuartileAvg:  -0.012,
			MaxLoss:           -0.04,
		},
		TotalPnL:    125000,
		NoDataCount: 3,
	}
}

func TestSegmentStatsStore_RoundTrip(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSegmentStatsStore(conn)

	require.NoError(t, store.InsertBulk(ctx, []*domain.SegmentStats{
		testSegmentStats("category", "tech", "phase1"),
		testSegmentStats("category", "retail", "phase1"),
		testSegmentStats("index_direction", "down", "phase4"),
	}))

	got, err := store.GetByDimension(ctx, "category")
	require.NoError(t, err)
	require.Len(t, got, 2)

	// key ASC
	assert.Equal(t, "retail", got[0].Key)
	assert.Equal(t, "tech", got[1].Key)

	st := got[1]
	assert.Equal(t, 42, st.Stats.Count)
	assert.InDelta(t, 0.55, st.Stats.WinRate, 1e-12)
	assert.InDelta(t, 0.0035, st.Stats.TrimmedMeanReturn, 1e-12)
	assert.InDelta(t, -0.04, st.Stats.MaxLoss, 1e-12)
	assert.InDelta(t, 125000, st.TotalPnL, 1e-6)
	assert.Equal(t, 3, st.NoDataCount)

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "category", all[0].Dimension)
	assert.Equal(t, "index_direction", all[2].Dimension)
}

func TestSegmentStatsStore_DuplicateDetection(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSegmentStatsStore(conn)

	require.NoError(t, store.InsertBulk(ctx, []*domain.SegmentStats{
		testSegmentStats("category", "tech", "phase1"),
	}))

	// Against stored rows.
	err := store.InsertBulk(ctx, []*domain.SegmentStats{
		testSegmentStats("category", "tech", "phase1"),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// Within one batch.
	err = store.InsertBulk(ctx, []*domain.SegmentStats{
		testSegmentStats("category", "auto", "phase1"),
		testSegmentStats("category", "auto", "phase1"),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// Same key under a different phase is fine.
	assert.NoError(t, store.InsertBulk(ctx, []*domain.SegmentStats{
		testSegmentStats("category", "tech", "phase2"),
	}))
}

func TestSegmentStatsStore_InvalidInput(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSegmentStatsStore(conn)

	err := store.InsertBulk(ctx, []*domain.SegmentStats{
		testSegmentStats("", "tech", "phase1"),
	})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
