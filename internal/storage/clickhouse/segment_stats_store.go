package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"daytrade-lab/internal/domain"
	"daytrade-lab/internal/storage"
)

// SegmentStatsStore implements storage.SegmentStatsStore using ClickHouse.
type SegmentStatsStore struct {
	conn *Conn
}

// NewSegmentStatsStore creates a new SegmentStatsStore.
func NewSegmentStatsStore(conn *Conn) *SegmentStatsStore {
	return &SegmentStatsStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SegmentStatsStore = (*SegmentStatsStore)(nil)

const selectSegmentColumns = `
	SELECT dimension, segment_key, phase,
	       sample_count, win_rate, mean_return, median_return, trimmed_mean_return,
	       avg_win, avg_loss, expected_value, lower_quartile_avg, max_loss,
	       total_pnl, no_data_count
	FROM segment_stats
`

// InsertBulk adds multiple segment summaries. Fails the entire batch on a
// duplicate (dimension, key, phase).
func (s *SegmentStatsStore) InsertBulk(ctx context.Context, stats []*domain.SegmentStats) error {
	if len(stats) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		dimension string
		segKey    string
		phase     string
	}
	seen := make(map[key]struct{}, len(stats))
	for _, st := range stats {
		if st == nil || st.Dimension == "" || st.Key == "" || st.Phase == "" {
			return storage.ErrInvalidInput
		}
		k := key{st.Dimension, st.Key, st.Phase}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, st := range stats {
		exists, err := s.exists(ctx, st.Dimension, st.Key, st.Phase)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO segment_stats (
			dimension, segment_key, phase,
			sample_count, win_rate, mean_return, median_return, trimmed_mean_return,
			avg_win, avg_loss, expected_value, lower_quartile_avg, max_loss,
			total_pnl, no_data_count
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, st := range stats {
		err = batch.Append(
			st.Dimension, st.Key, st.Phase,
			uint32(st.Stats.Count), st.Stats.WinRate, st.Stats.MeanReturn,
			st.Stats.MedianReturn, st.Stats.TrimmedMeanReturn,
			st.Stats.AvgWin, st.Stats.AvgLoss, st.Stats.ExpectedValue,
			st.Stats.LowerQuartileAvg, st.Stats.MaxLoss,
			st.TotalPnL, uint32(st.NoDataCount),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByDimension retrieves all summaries for one dimension, ordered by key
// ASC, phase ASC.
func (s *SegmentStatsStore) GetByDimension(ctx context.Context, dimension string) ([]*domain.SegmentStats, error) {
	query := selectSegmentColumns + `
		WHERE dimension = ?
		ORDER BY segment_key ASC, phase ASC
	`

	rows, err := s.conn.Query(ctx, query, dimension)
	if err != nil {
		return nil, fmt.Errorf("query segment stats by dimension: %w", err)
	}
	defer rows.Close()

	return scanSegmentStats(rows)
}

// GetAll retrieves all summaries ordered by dimension ASC, key ASC, phase ASC.
func (s *SegmentStatsStore) GetAll(ctx context.Context) ([]*domain.SegmentStats, error) {
	query := selectSegmentColumns + `
		ORDER BY dimension ASC, segment_key ASC, phase ASC
	`

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query all segment stats: %w", err)
	}
	defer rows.Close()

	return scanSegmentStats(rows)
}

// exists checks whether a summary with the given key already exists.
func (s *SegmentStatsStore) exists(ctx context.Context, dimension, segKey, phase string) (bool, error) {
	query := `
		SELECT count(*) FROM segment_stats
		WHERE dimension = ? AND segment_key = ? AND phase = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, dimension, segKey, phase).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanSegmentStats scans rows into a slice of SegmentStats.
func scanSegmentStats(rows driver.Rows) ([]*domain.SegmentStats, error) {
	var result []*domain.SegmentStats

	for rows.Next() {
		var st domain.SegmentStats
		var sampleCount, noDataCount uint32

		err := rows.Scan(
			&st.Dimension, &st.Key, &st.Phase,
			&sampleCount, &st.Stats.WinRate, &st.Stats.MeanReturn,
			&st.Stats.MedianReturn, &st.Stats.TrimmedMeanReturn,
			&st.Stats.AvgWin, &st.Stats.AvgLoss, &st.Stats.ExpectedValue,
			&st.Stats.LowerQuartileAvg, &st.Stats.MaxLoss,
			&st.TotalPnL, &noDataCount,
		)
		if err != nil {
			return nil, fmt.Errorf("scan segment stats row: %w", err)
		}

		st.Stats.Count = int(sampleCount)
		st.NoDataCount = int(noDataCount)
		result = append(result, &st)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate segment stats rows: %w", err)
	}

	return result, nil
}
