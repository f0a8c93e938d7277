package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"daytrade-lab/internal/domain"
	"daytrade-lab/internal/storage"
)

// TradeStore is an in-memory implementation of storage.TradeStore.
type TradeStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Trade // keyed by trade_id
}

// NewTradeStore creates a new in-memory trade store.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		data: make(map[string]*domain.Trade),
	}
}

// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeStore) Insert(_ context.Context, t *domain.Trade) error {
	if t == nil || t.TradeID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.TradeID]; exists {
		return storage.ErrDuplicateKey
	}

	tradeCopy := *t
	s.data[t.TradeID] = &tradeCopy
	return nil
}

// InsertBulk adds multiple trades atomically. Fails the entire batch on any
// duplicate.
func (s *TradeStore) InsertBulk(_ context.Context, trades []*domain.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(trades))
	for _, t := range trades {
		if t == nil || t.TradeID == "" {
			return storage.ErrInvalidInput
		}
		if _, dup := seen[t.TradeID]; dup {
			return storage.ErrDuplicateKey
		}
		if _, exists := s.data[t.TradeID]; exists {
			return storage.ErrDuplicateKey
		}
		seen[t.TradeID] = struct{}{}
	}

	for _, t := range trades {
		tradeCopy := *t
		s.data[t.TradeID] = &tradeCopy
	}
	return nil
}

// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
func (s *TradeStore) GetByID(_ context.Context, tradeID string) (*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.data[tradeID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	tradeCopy := *t
	return &tradeCopy, nil
}

// GetByPhase retrieves all trades produced by one phase, ordered by
// session_date ASC, ticker ASC.
func (s *TradeStore) GetByPhase(_ context.Context, phase string) ([]*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Trade
	for _, t := range s.data {
		if t.Phase == phase {
			tradeCopy := *t
			result = append(result, &tradeCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].SessionDate.Equal(result[j].SessionDate) {
			return result[i].SessionDate.Before(result[j].SessionDate)
		}
		return result[i].Ticker < result[j].Ticker
	})

	return result, nil
}

// GetBySessionDate retrieves all trades for one session, ordered by phase
// ASC, ticker ASC.
func (s *TradeStore) GetBySessionDate(_ context.Context, date time.Time) ([]*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Trade
	for _, t := range s.data {
		if sameDay(t.SessionDate, date) {
			tradeCopy := *t
			result = append(result, &tradeCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Phase != result[j].Phase {
			return result[i].Phase < result[j].Phase
		}
		return result[i].Ticker < result[j].Ticker
	})

	return result, nil
}

// GetAll retrieves all trades ordered by session_date ASC, phase ASC,
// ticker ASC.
func (s *TradeStore) GetAll(_ context.Context) ([]*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Trade, 0, len(s.data))
	for _, t := range s.data {
		tradeCopy := *t
		result = append(result, &tradeCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].SessionDate.Equal(result[j].SessionDate) {
			return result[i].SessionDate.Before(result[j].SessionDate)
		}
		if result[i].Phase != result[j].Phase {
			return result[i].Phase < result[j].Phase
		}
		return result[i].Ticker < result[j].Ticker
	})

	return result, nil
}

var _ storage.TradeStore = (*TradeStore)(nil)
