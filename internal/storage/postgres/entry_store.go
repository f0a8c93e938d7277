package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"daytrade-lab/internal/domain"
	"daytrade-lab/internal/storage"
)

// EntryStore implements storage.EntryStore using PostgreSQL.
type EntryStore struct {
	pool *Pool
}

// NewEntryStore creates a new EntryStore.
func NewEntryStore(pool *Pool) *EntryStore {
	return &EntryStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EntryStore = (*EntryStore)(nil)

const insertEntryQuery = `
	INSERT INTO entries (
		ticker, session_date, entry_price, direction, lot_size,
		index_return, score, category, rank
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

// Insert adds a new entry. Returns ErrDuplicateKey if (ticker, session_date)
// exists.
func (s *EntryStore) Insert(ctx context.Context, e *domain.Entry) error {
	if e == nil || e.Ticker == "" || e.SessionDate.IsZero() {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, insertEntryQuery, entryArgs(e)...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

// InsertBulk adds multiple entries atomically. Fails the entire batch on any
// duplicate.
func (s *EntryStore) InsertBulk(ctx context.Context, entries []*domain.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range entries {
		if e == nil || e.Ticker == "" || e.SessionDate.IsZero() {
			return storage.ErrInvalidInput
		}
		if _, err := tx.Exec(ctx, insertEntryQuery, entryArgs(e)...); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert entry in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetBySessionDate retrieves all entries for a session, ordered by rank ASC
// then ticker ASC.
func (s *EntryStore) GetBySessionDate(ctx context.Context, date time.Time) ([]*domain.Entry, error) {
	query := `
		SELECT ticker, session_date, entry_price, direction, lot_size,
		       index_return, score, category, rank
		FROM entries
		WHERE session_date = $1
		ORDER BY rank ASC, ticker ASC
	`

	rows, err := s.pool.Query(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("get entries by session date: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// GetAll retrieves all entries ordered by session_date ASC, ticker ASC.
func (s *EntryStore) GetAll(ctx context.Context) ([]*domain.Entry, error) {
	query := `
		SELECT ticker, session_date, entry_price, direction, lot_size,
		       index_return, score, category, rank
		FROM entries
		ORDER BY session_date ASC, ticker ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func entryArgs(e *domain.Entry) []any {
	return []any{
		e.Ticker,
		e.SessionDate,
		e.EntryPrice,
		e.Direction.String(),
		e.Lot(),
		e.ReferenceIndexReturn,
		e.PredictiveScore,
		e.Category,
		e.Rank,
	}
}

// scanEntries scans rows into a slice of Entry.
func scanEntries(rows pgx.Rows) ([]*domain.Entry, error) {
	var entries []*domain.Entry

	for rows.Next() {
		var e domain.Entry
		var directionStr string

		err := rows.Scan(
			&e.Ticker,
			&e.SessionDate,
			&e.EntryPrice,
			&directionStr,
			&e.LotSize,
			&e.ReferenceIndexReturn,
			&e.PredictiveScore,
			&e.Category,
			&e.Rank,
		)
		if err != nil {
			return nil, fmt.Errorf("scan entry row: %w", err)
		}

		direction, ok := domain.ParseDirection(directionStr)
		if !ok {
			return nil, fmt.Errorf("scan entry row: bad direction %q", directionStr)
		}
		e.Direction = direction
		e.SessionDate = e.SessionDate.UTC()
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entry rows: %w", err)
	}

	return entries, nil
}
