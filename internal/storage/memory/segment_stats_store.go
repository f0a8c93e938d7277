package memory

import (
	"context"
	"sort"
	"sync"

	"daytrade-lab/internal/domain"
	"daytrade-lab/internal/storage"
)

// SegmentStatsStore is an in-memory implementation of storage.SegmentStatsStore.
type SegmentStatsStore struct {
	mu   sync.RWMutex
	data map[string]*domain.SegmentStats // keyed by dimension|key|phase
}

// NewSegmentStatsStore creates a new in-memory segment stats store.
func NewSegmentStatsStore() *SegmentStatsStore {
	return &SegmentStatsStore{
		data: make(map[string]*domain.SegmentStats),
	}
}

func segmentKey(s *domain.SegmentStats) string {
	return s.Dimension + "|" + s.Key + "|" + s.Phase
}

// InsertBulk adds multiple segment summaries atomically. Fails the entire
// batch on a duplicate (dimension, key, phase).
func (s *SegmentStatsStore) InsertBulk(_ context.Context, stats []*domain.SegmentStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(stats))
	for _, st := range stats {
		if st == nil || st.Dimension == "" || st.Key == "" || st.Phase == "" {
			return storage.ErrInvalidInput
		}
		key := segmentKey(st)
		if _, dup := seen[key]; dup {
			return storage.ErrDuplicateKey
		}
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		seen[key] = struct{}{}
	}

	for _, st := range stats {
		statsCopy := *st
		s.data[segmentKey(st)] = &statsCopy
	}
	return nil
}

// GetByDimension retrieves all summaries for one dimension, ordered by key
// ASC, phase ASC.
func (s *SegmentStatsStore) GetByDimension(_ context.Context, dimension string) ([]*domain.SegmentStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SegmentStats
	for _, st := range s.data {
		if st.Dimension == dimension {
			statsCopy := *st
			result = append(result, &statsCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Key != result[j].Key {
			return result[i].Key < result[j].Key
		}
		return result[i].Phase < result[j].Phase
	})

	return result, nil
}

// GetAll retrieves all summaries ordered by dimension ASC, key ASC, phase ASC.
func (s *SegmentStatsStore) GetAll(_ context.Context) ([]*domain.SegmentStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.SegmentStats, 0, len(s.data))
	for _, st := range s.data {
		statsCopy := *st
		result = append(result, &statsCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Dimension != result[j].Dimension {
			return result[i].Dimension < result[j].Dimension
		}
		if result[i].Key != result[j].Key {
			return result[i].Key < result[j].Key
		}
		return result[i].Phase < result[j].Phase
	})

	return result, nil
}

var _ storage.SegmentStatsStore = (*SegmentStatsStore)(nil)
