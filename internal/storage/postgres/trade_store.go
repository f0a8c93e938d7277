package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"daytrade-lab/internal/domain"
	"daytrade-lab/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

const insertTradeQuery = `
	INSERT INTO trades (
		trade_id, ticker, session_date, phase, policy_id, direction,
		entry_price, exit_price, exit_time, exit_reason,
		return_pct, pnl_per_lot, win
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
`

const selectTradeColumns = `
	SELECT trade_id, ticker, session_date, phase, policy_id, direction,
	       entry_price, exit_price, exit_time, exit_reason,
	       return_pct, pnl_per_lot, win
	FROM trades
`

// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeStore) Insert(ctx context.Context, t *domain.Trade) error {
	if t == nil || t.TradeID == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, insertTradeQuery, tradeArgs(t)...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// InsertBulk adds multiple trades atomically. Fails the entire batch on any
// duplicate.
func (s *TradeStore) InsertBulk(ctx context.Context, trades []*domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, t := range trades {
		if t == nil || t.TradeID == "" {
			return storage.ErrInvalidInput
		}
		if _, err := tx.Exec(ctx, insertTradeQuery, tradeArgs(t)...); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert trade in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
func (s *TradeStore) GetByID(ctx context.Context, tradeID string) (*domain.Trade, error) {
	row := s.pool.QueryRow(ctx, selectTradeColumns+` WHERE trade_id = $1`, tradeID)
	t, err := scanTrade(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade by id: %w", err)
	}
	return t, nil
}

// GetByPhase retrieves all trades produced by one phase, ordered by
// session_date ASC, ticker ASC.
func (s *TradeStore) GetByPhase(ctx context.Context, phase string) ([]*domain.Trade, error) {
	query := selectTradeColumns + `
		WHERE phase = $1
		ORDER BY session_date ASC, ticker ASC
	`

	rows, err := s.pool.Query(ctx, query, phase)
	if err != nil {
		return nil, fmt.Errorf("get trades by phase: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// GetBySessionDate retrieves all trades for one session, ordered by phase
// ASC, ticker ASC.
func (s *TradeStore) GetBySessionDate(ctx context.Context, date time.Time) ([]*domain.Trade, error) {
	query := selectTradeColumns + `
		WHERE session_date = $1
		ORDER BY phase ASC, ticker ASC
	`

	rows, err := s.pool.Query(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("get trades by session date: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// GetAll retrieves all trades ordered by session_date ASC, phase ASC,
// ticker ASC.
func (s *TradeStore) GetAll(ctx context.Context) ([]*domain.Trade, error) {
	query := selectTradeColumns + `
		ORDER BY session_date ASC, phase ASC, ticker ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all trades: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

func tradeArgs(t *domain.Trade) []any {
	var exitTime *time.Time
	if !t.ExitTime.IsZero() {
		et := t.ExitTime
		exitTime = &et
	}
	return []any{
		t.TradeID,
		t.Ticker,
		t.SessionDate,
		t.Phase,
		t.PolicyID,
		t.Direction.String(),
		t.EntryPrice,
		t.ExitPrice,
		exitTime,
		t.ExitReason,
		t.ReturnPct,
		t.PnLPerLot,
		t.Win,
	}
}

// scanTrade scans a single row into a Trade.
func scanTrade(row pgx.Row) (*domain.Trade, error) {
	var t domain.Trade
	var directionStr string
	var exitTime *time.Time

	err := row.Scan(
		&t.TradeID,
		&t.Ticker,
		&t.SessionDate,
		&t.Phase,
		&t.PolicyID,
		&directionStr,
		&t.EntryPrice,
		&t.ExitPrice,
		&exitTime,
		&t.ExitReason,
		&t.ReturnPct,
		&t.PnLPerLot,
		&t.Win,
	)
	if err != nil {
		return nil, err
	}

	direction, ok := domain.ParseDirection(directionStr)
	if !ok {
		return nil, fmt.Errorf("bad direction %q", directionStr)
	}
	t.Direction = direction
	t.SessionDate = t.SessionDate.UTC()
	if exitTime != nil {
		t.ExitTime = exitTime.UTC()
	}
	return &t, nil
}

// scanTrades scans multiple rows into a slice of Trade.
func scanTrades(rows pgx.Rows) ([]*domain.Trade, error) {
	var trades []*domain.Trade

	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}
		trades = append(trades, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}

	return trades, nil
}
