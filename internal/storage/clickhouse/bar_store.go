package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"daytrade-lab/internal/domain"
	"daytrade-lab/internal/storage"
)

// BarStore implements storage.BarStore using ClickHouse. MergeTree does not
// enforce uniqueness, so duplicate detection runs as explicit checks before
// the batch insert, matching the append-only contract.
type BarStore struct {
	conn *Conn
}

// NewBarStore creates a new BarStore.
func NewBarStore(conn *Conn) *BarStore {
	return &BarStore{conn: conn}
}

// Compile-time interface check.
var _ storage.BarStore = (*BarStore)(nil)

// InsertBulk adds multiple bars. Fails the entire batch on a duplicate
// (ticker, bar_interval, timestamp).
func (s *BarStore) InsertBulk(ctx context.Context, bars []*domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		ticker   string
		interval domain.Interval
		ts       int64
	}
	seen := make(map[key]struct{}, len(bars))
	for _, b := range bars {
		if b == nil || b.Ticker == "" || b.Timestamp.IsZero() {
			return storage.ErrInvalidInput
		}
		k := key{b.Ticker, b.Interval, b.Timestamp.UnixMilli()}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, b := range bars {
		exists, err := s.exists(ctx, b)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO bars (
			ticker, bar_interval, timestamp, open, high, low, close, volume
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, b := range bars {
		err = batch.Append(
			b.Ticker, string(b.Interval), b.Timestamp.UTC(),
			b.Open, b.High, b.Low, b.Close, b.Volume,
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

// GetSession retrieves the session-interval bars for a ticker on one trading
// day, ordered by timestamp ASC.
func (s *BarStore) GetSession(ctx context.Context, ticker string, date time.Time) ([]*domain.Bar, error) {
	dayStart, dayEnd := dayBounds(date)

	query := `
		SELECT ticker, bar_interval, timestamp, open, high, low, close, volume
		FROM bars
		WHERE ticker = ? AND bar_interval = ? AND timestamp >= ? AND timestamp < ?
		ORDER BY timestamp ASC
	`

	rows, err := s.conn.Query(ctx, query, ticker, string(domain.IntervalSession), dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("query session bars: %w", err)
	}
	defer rows.Close()

	var bars []*domain.Bar
	for rows.Next() {
		b, err := scanBar(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bar row: %w", err)
		}
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bar rows: %w", err)
	}
	return bars, nil
}

// GetDaily retrieves the daily bar for a ticker on one trading day.
// Returns ErrNotFound if it does not exist.
func (s *BarStore) GetDaily(ctx context.Context, ticker string, date time.Time) (*domain.Bar, error) {
	dayStart, dayEnd := dayBounds(date)

	query := `
		SELECT ticker, bar_interval, timestamp, open, high, low, close, volume
		FROM bars
		WHERE ticker = ? AND bar_interval = ? AND timestamp >= ? AND timestamp < ?
		LIMIT 1
	`

	rows, err := s.conn.Query(ctx, query, ticker, string(domain.IntervalDaily), dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("query daily bar: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("iterate daily bar rows: %w", err)
		}
		return nil, storage.ErrNotFound
	}
	b, err := scanBar(rows)
	if err != nil {
		return nil, fmt.Errorf("scan daily bar: %w", err)
	}
	return b, nil
}

// exists checks whether a bar with the same key already exists.
func (s *BarStore) exists(ctx context.Context, b *domain.Bar) (bool, error) {
	query := `
		SELECT count(*) FROM bars
		WHERE ticker = ? AND bar_interval = ? AND timestamp = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, b.Ticker, string(b.Interval), b.Timestamp.UTC()).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanBar scans the current row into a Bar.
func scanBar(rows driver.Rows) (*domain.Bar, error) {
	var b domain.Bar
	var intervalStr string
	var ts time.Time

	err := rows.Scan(&b.Ticker, &intervalStr, &ts, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume)
	if err != nil {
		return nil, err
	}

	b.Interval = domain.Interval(intervalStr)
	b.Timestamp = ts.UTC()
	return &b, nil
}

func dayBounds(date time.Time) (time.Time, time.Time) {
	y, m, d := date.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return start, start.Add(24 * time.Hour)
}
