package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"daytrade-lab/internal/domain"
	"daytrade-lab/internal/storage"
)

// EntryStore is an in-memory implementation of storage.EntryStore.
type EntryStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Entry // keyed by Entry.Key()
}

// NewEntryStore creates a new in-memory entry store.
func NewEntryStore() *EntryStore {
	return &EntryStore{
		data: make(map[string]*domain.Entry),
	}
}

// Insert adds a new entry. Returns ErrDuplicateKey if (ticker, session_date) exists.
func (s *EntryStore) Insert(_ context.Context, e *domain.Entry) error {
	if e == nil || e.Ticker == "" || e.SessionDate.IsZero() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertLocked(e)
}

// InsertBulk adds multiple entries atomically. Fails the entire batch on any
// duplicate or invalid entry.
func (s *EntryStore) InsertBulk(_ context.Context, entries []*domain.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate the whole batch before touching the map.
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e == nil || e.Ticker == "" || e.SessionDate.IsZero() {
			return storage.ErrInvalidInput
		}
		key := e.Key()
		if _, dup := seen[key]; dup {
			return storage.ErrDuplicateKey
		}
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		seen[key] = struct{}{}
	}

	for _, e := range entries {
		if err := s.insertLocked(e); err != nil {
			return err
		}
	}
	return nil
}

func (s *EntryStore) insertLocked(e *domain.Entry) error {
	key := e.Key()
	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	entryCopy := *e
	s.data[key] = &entryCopy
	return nil
}

// GetBySessionDate retrieves all entries for a session, ordered by rank ASC
// then ticker ASC.
func (s *EntryStore) GetBySessionDate(_ context.Context, date time.Time) ([]*domain.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Entry
	for _, e := range s.data {
		if sameDay(e.SessionDate, date) {
			entryCopy := *e
			result = append(result, &entryCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Rank != result[j].Rank {
			return result[i].Rank < result[j].Rank
		}
		return result[i].Ticker < result[j].Ticker
	})

	return result, nil
}

// GetAll retrieves all entries ordered by session_date ASC, ticker ASC.
func (s *EntryStore) GetAll(_ context.Context) ([]*domain.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Entry, 0, len(s.data))
	for _, e := range s.data {
		entryCopy := *e
		result = append(result, &entryCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].SessionDate.Equal(result[j].SessionDate) {
			return result[i].SessionDate.Before(result[j].SessionDate)
		}
		return result[i].Ticker < result[j].Ticker
	})

	return result, nil
}

func sameDay(t, day time.Time) bool {
	y1, m1, d1 := t.Date()
	y2, m2, d2 := day.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

var _ storage.EntryStore = (*EntryStore)(nil)
