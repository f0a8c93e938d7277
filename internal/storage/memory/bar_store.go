package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"daytrade-lab/internal/domain"
	"daytrade-lab/internal/storage"
)

// BarStore is an in-memory implementation of storage.BarStore.
type BarStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Bar // keyed by ticker|interval|timestamp
}

// NewBarStore creates a new in-memory bar store.
func NewBarStore() *BarStore {
	return &BarStore{
		data: make(map[string]*domain.Bar),
	}
}

func barKey(b *domain.Bar) string {
	return b.Ticker + "|" + string(b.Interval) + "|" + b.Timestamp.UTC().Format(time.RFC3339)
}

// InsertBulk adds multiple bars atomically. Fails the entire batch on a
// duplicate (ticker, interval, timestamp).
func (s *BarStore) InsertBulk(_ context.Context, bars []*domain.Bar) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(bars))
	for _, b := range bars {
		if b == nil || b.Ticker == "" || b.Timestamp.IsZero() {
			return storage.ErrInvalidInput
		}
		key := barKey(b)
		if _, dup := seen[key]; dup {
			return storage.ErrDuplicateKey
		}
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		seen[key] = struct{}{}
	}

	for _, b := range bars {
		barCopy := *b
		s.data[barKey(b)] = &barCopy
	}
	return nil
}

// GetSession retrieves the session-interval bars for a ticker on one trading
// day, ordered by timestamp ASC.
func (s *BarStore) GetSession(_ context.Context, ticker string, date time.Time) ([]*domain.Bar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Bar
	for _, b := range s.data {
		if b.Ticker == ticker && b.Interval == domain.IntervalSession && sameDay(b.Timestamp, date) {
			barCopy := *b
			result = append(result, &barCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})

	return result, nil
}

// GetDaily retrieves the daily bar for a ticker on one trading day.
// Returns ErrNotFound if it does not exist.
func (s *BarStore) GetDaily(_ context.Context, ticker string, date time.Time) (*domain.Bar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, b := range s.data {
		if b.Ticker == ticker && b.Interval == domain.IntervalDaily && sameDay(b.Timestamp, date) {
			barCopy := *b
			return &barCopy, nil
		}
	}
	return nil, storage.ErrNotFound
}

var _ storage.BarStore = (*BarStore)(nil)
