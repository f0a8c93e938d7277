package barseries

import (
	"context"
	"errors"
	"sync"
	"time"

	"daytrade-lab/internal/domain"
	"daytrade-lab/internal/storage"
)

// Provider supplies the session series for one ticker and trading day.
// Implementations must be safe for concurrent use; the simulation core only
// reads from the series it receives.
type Provider interface {
	SessionSeries(ctx context.Context, ticker string, date time.Time) (*Series, error)
}

// StoreProvider loads series from a storage.BarStore. A missing daily bar is
// not an error; the series simply carries no daily bar.
type StoreProvider struct {
	bars  storage.BarStore
	clock domain.SessionClock
}

// NewStoreProvider creates a provider backed by a bar store.
func NewStoreProvider(bars storage.BarStore, clock domain.SessionClock) *StoreProvider {
	return &StoreProvider{bars: bars, clock: clock}
}

// SessionSeries builds the series for (ticker, date) from stored bars.
func (p *StoreProvider) SessionSeries(ctx context.Context, ticker string, date time.Time) (*Series, error) {
	session, err := p.bars.GetSession(ctx, ticker, date)
	if err != nil {
		return nil, err
	}

	all := session
	daily, err := p.bars.GetDaily(ctx, ticker, date)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	if daily != nil {
		all = append(append([]*domain.Bar{}, session...), daily)
	}

	return NewSessionSeries(ticker, date, all, p.clock), nil
}

var _ Provider = (*StoreProvider)(nil)

// CachingProvider memoizes series from an inner provider. Series are
// immutable once built, so concurrent readers share them without copying.
type CachingProvider struct {
	inner Provider

	mu    sync.RWMutex
	cache map[string]*Series
}

// NewCachingProvider wraps a provider with an in-memory series cache.
func NewCachingProvider(inner Provider) *CachingProvider {
	return &CachingProvider{
		inner: inner,
		cache: make(map[string]*Series),
	}
}

// SessionSeries returns the cached series when present, loading it once
// otherwise. Errors are not cached; a failed load is retried on next call.
func (p *CachingProvider) SessionSeries(ctx context.Context, ticker string, date time.Time) (*Series, error) {
	key := ticker + "|" + date.Format("2006-01-02")

	p.mu.RLock()
	s, ok := p.cache[key]
	p.mu.RUnlock()
	if ok {
		return s, nil
	}

	s, err := p.inner.SessionSeries(ctx, ticker, date)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.cache[key] = s
	p.mu.Unlock()

	return s, nil
}

var _ Provider = (*CachingProvider)(nil)
