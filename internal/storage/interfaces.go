package storage

import (
	"context"
	"time"

	"daytrade-lab/internal/domain"
)

// EntryStore provides access to candidate-entry storage.
// Entries are keyed by (ticker, session_date).
type EntryStore interface {
	// Insert adds a new entry. Returns ErrDuplicateKey if the key exists.
	Insert(ctx context.Context, e *domain.Entry) error

	// InsertBulk adds multiple entries atomically. Fails the entire batch
	// on any duplicate.
	InsertBulk(ctx context.Context, entries []*domain.Entry) error

	// GetBySessionDate retrieves all entries for a session, ordered by
	// rank ASC then ticker ASC.
	GetBySessionDate(ctx context.Context, date time.Time) ([]*domain.Entry, error)

	// GetAll retrieves all entries ordered by session_date ASC, ticker ASC.
	GetAll(ctx context.Context) ([]*domain.Entry, error)
}

// BarStore provides access to OHLCV bar storage. The interval partition is
// explicit: session bars and daily bars never mix in one result.
type BarStore interface {
	// InsertBulk adds multiple bars. Fails the entire batch on a duplicate
	// (ticker, interval, timestamp).
	InsertBulk(ctx context.Context, bars []*domain.Bar) error

	// GetSession retrieves the session-interval bars for a ticker on one
	// trading day, ordered by timestamp ASC.
	GetSession(ctx context.Context, ticker string, date time.Time) ([]*domain.Bar, error)

	// GetDaily retrieves the daily bar for a ticker on one trading day.
	// Returns ErrNotFound if it does not exist.
	GetDaily(ctx context.Context, ticker string, date time.Time) (*domain.Bar, error)
}

// TradeStore provides access to simulated-trade storage.
type TradeStore interface {
	// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
	Insert(ctx context.Context, t *domain.Trade) error

	// InsertBulk adds multiple trades atomically. Fails the entire batch
	// on any duplicate.
	InsertBulk(ctx context.Context, trades []*domain.Trade) error

	// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, tradeID string) (*domain.Trade, error)

	// GetByPhase retrieves all trades produced by one phase, ordered by
	// session_date ASC, ticker ASC.
	GetByPhase(ctx context.Context, phase string) ([]*domain.Trade, error)

	// GetBySessionDate retrieves all trades for one session, ordered by
	// phase ASC, ticker ASC.
	GetBySessionDate(ctx context.Context, date time.Time) ([]*domain.Trade, error)

	// GetAll retrieves all trades ordered by session_date ASC, phase ASC,
	// ticker ASC.
	GetAll(ctx context.Context) ([]*domain.Trade, error)
}

// SegmentStatsStore provides access to segment-summary storage.
type SegmentStatsStore interface {
	// InsertBulk adds multiple segment summaries. Fails the entire batch
	// on a duplicate (dimension, key, phase).
	InsertBulk(ctx context.Context, stats []*domain.SegmentStats) error

	// GetByDimension retrieves all summaries for one dimension, ordered by
	// key ASC, phase ASC.
	GetByDimension(ctx context.Context, dimension string) ([]*domain.SegmentStats, error)

	// GetAll retrieves all summaries ordered by dimension ASC, key ASC,
	// phase ASC.
	GetAll(ctx context.Context) ([]*domain.SegmentStats, error)
}
