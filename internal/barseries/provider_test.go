package barseries

import (
	"context"
	"testing"
	"time"

	"daytrade-lab/internal/domain"
	"daytrade-lab/internal/storage"
)

// fakeBarStore serves canned bars and counts calls.
type fakeBarStore struct {
	session []*domain.Bar
	daily   *domain.Bar
	calls   int
}

func (f *fakeBarStore) InsertBulk(ctx context.Context, bars []*domain.Bar) error {
	return nil
}

func (f *fakeBarStore) GetSession(ctx context.Context, ticker string, date time.Time) ([]*domain.Bar, error) {
	f.calls++
	return f.session, nil
}

func (f *fakeBarStore) GetDaily(ctx context.Context, ticker string, date time.Time) (*domain.Bar, error) {
	if f.daily == nil {
		return nil, storage.ErrNotFound
	}
	return f.daily, nil
}

func TestStoreProvider_MergesDailyBar(t *testing.T) {
	store := &fakeBarStore{
		session: []*domain.Bar{
			sessionBar("7203.T", 9, 0, 1),
			sessionBar("7203.T", 9, 5, 2),
		},
		daily: dailyBar("7203.T", 9),
	}
	p := NewStoreProvider(store, domain.DefaultSessionClock)

	s, err := p.SessionSeries(context.Background(), "7203.T", testDay)
	if err != nil {
		t.Fatalf("SessionSeries: %v", err)
	}
	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}
	if s.Daily == nil || s.Daily.Close != 9 {
		t.Fatalf("Daily = %+v, want close 9", s.Daily)
	}
}

func TestStoreProvider_MissingDailyBarTolerated(t *testing.T) {
	store := &fakeBarStore{
		session: []*domain.Bar{
			sessionBar("7203.T", 9, 0, 1),
			sessionBar("7203.T", 9, 5, 2),
		},
	}
	p := NewStoreProvider(store, domain.DefaultSessionClock)

	s, err := p.SessionSeries(context.Background(), "7203.T", testDay)
	if err != nil {
		t.Fatalf("SessionSeries: %v", err)
	}
	if s.Daily != nil {
		t.Fatalf("Daily = %+v, want nil", s.Daily)
	}
}

func TestCachingProvider_LoadsOnce(t *testing.T) {
	store := &fakeBarStore{
		session: []*domain.Bar{
			sessionBar("7203.T", 9, 0, 1),
			sessionBar("7203.T", 9, 5, 2),
		},
	}
	p := NewCachingProvider(NewStoreProvider(store, domain.DefaultSessionClock))

	first, err := p.SessionSeries(context.Background(), "7203.T", testDay)
	if err != nil {
		t.Fatalf("SessionSeries: %v", err)
	}
	second, err := p.SessionSeries(context.Background(), "7203.T", testDay)
	if err != nil {
		t.Fatalf("SessionSeries (cached): %v", err)
	}

	if store.calls != 1 {
		t.Fatalf("store calls = %d, want 1", store.calls)
	}
	if first != second {
		t.Fatal("cached call must return the same series")
	}
}
