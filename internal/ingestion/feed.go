package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"daytrade-lab/internal/domain"
	"daytrade-lab/internal/observability"
	"daytrade-lab/internal/storage"
)

// FeedConfig configures websocket feed behavior.
type FeedConfig struct {
	// ReconnectDelay is the initial delay before a reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay caps the backoff between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is the interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is the timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is the timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultFeedConfig returns the default feed configuration.
func DefaultFeedConfig() FeedConfig {
	return FeedConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// feedRequest is the subscribe message sent to the bar provider.
type feedRequest struct {
	Action   string   `json:"action"`
	Tickers  []string `json:"tickers"`
	Interval string   `json:"interval"`
}

// barMessage is one streamed bar from the provider.
type barMessage struct {
	Type      string  `json:"type"`
	Ticker    string  `json:"ticker"`
	Timestamp string  `json:"timestamp"` // RFC 3339
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    int64   `json:"volume"`
}

// BarFeed streams session bars from a websocket provider into a BarStore.
// It reconnects with exponential backoff and resubscribes after a drop.
// Duplicate bars (replays after reconnect) are skipped, not errors.
type BarFeed struct {
	endpoint string
	tickers  []string
	interval domain.Interval
	store    storage.BarStore
	config   FeedConfig
	log      zerolog.Logger

	conn   *websocket.Conn
	connMu sync.Mutex

	// Stored counts bars successfully written, for tests and status logs.
	stored   int
	storedMu sync.Mutex
}

// NewBarFeed creates a feed for the given tickers. A nil config uses
// DefaultFeedConfig.
func NewBarFeed(endpoint string, tickers []string, interval domain.Interval, store storage.BarStore, config *FeedConfig, log zerolog.Logger) *BarFeed {
	cfg := DefaultFeedConfig()
	if config != nil {
		cfg = *config
	}
	return &BarFeed{
		endpoint: endpoint,
		tickers:  tickers,
		interval: interval,
		store:    store,
		config:   cfg,
		log:      log.With().Str("component", "bar_feed").Logger(),
	}
}

// Stored returns the number of bars written so far.
func (f *BarFeed) Stored() int {
	f.storedMu.Lock()
	defer f.storedMu.Unlock()
	return f.stored
}

// Run connects, subscribes, and consumes bars until the context is
// cancelled. Connection drops trigger reconnect with exponential backoff;
// Run only returns on cancellation or a subscribe rejection.
func (f *BarFeed) Run(ctx context.Context) error {
	delay := f.config.ReconnectDelay

	for {
		err := f.runConn(ctx)
		if ctx.Err() != nil {
			f.closeConn()
			return ctx.Err()
		}
		if err != nil {
			var rejected *subscribeRejectedError
			if errors.As(err, &rejected) {
				return err
			}
			f.log.Warn().Err(err).Dur("retry_in", delay).Msg("feed connection lost")
			observability.DefaultMetrics.FeedReconnects.Inc()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > f.config.MaxReconnectDelay {
			delay = f.config.MaxReconnectDelay
		}
	}
}

// subscribeRejectedError marks a provider-side rejection that a reconnect
// cannot fix.
type subscribeRejectedError struct {
	reason string
}

func (e *subscribeRejectedError) Error() string {
	return fmt.Sprintf("subscribe rejected: %s", e.reason)
}

// runConn handles one connection lifetime: dial, subscribe, read until error.
func (f *BarFeed) runConn(ctx context.Context) error {
	if err := f.connect(ctx); err != nil {
		return err
	}
	defer f.closeConn()

	if err := f.subscribe(); err != nil {
		return err
	}
	f.log.Info().Strs("tickers", f.tickers).Str("interval", string(f.interval)).Msg("subscribed")

	pingCtx, cancelPing := context.WithCancel(ctx)
	defer cancelPing()
	go f.pingLoop(pingCtx)

	// Unblock the pending read when the caller cancels.
	go func() {
		<-pingCtx.Done()
		if ctx.Err() != nil {
			f.closeConn()
		}
	}()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		// Copy under the lock: the cancellation goroutine above nils
		// f.conn while a read is pending.
		f.connMu.Lock()
		conn := f.conn
		f.connMu.Unlock()
		if conn == nil {
			return ctx.Err()
		}

		conn.SetReadDeadline(time.Now().Add(f.config.ReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		if err := f.handleMessage(ctx, message); err != nil {
			return err
		}
	}
}

func (f *BarFeed) connect(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, f.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	f.connMu.Lock()
	f.conn = conn
	f.connMu.Unlock()
	return nil
}

func (f *BarFeed) closeConn() {
	f.connMu.Lock()
	defer f.connMu.Unlock()
	if f.conn != nil {
		f.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		f.conn.Close()
		f.conn = nil
	}
}

func (f *BarFeed) subscribe() error {
	req := feedRequest{
		Action:   "subscribe",
		Tickers:  f.tickers,
		Interval: string(f.interval),
	}

	f.connMu.Lock()
	defer f.connMu.Unlock()
	if f.conn == nil {
		return fmt.Errorf("not connected")
	}
	f.conn.SetWriteDeadline(time.Now().Add(f.config.WriteTimeout))
	if err := f.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}
	return nil
}

// handleMessage routes one provider message. Unknown message types are
// ignored so the provider can add heartbeats without breaking consumers.
func (f *BarFeed) handleMessage(ctx context.Context, message []byte) error {
	var msg barMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		f.log.Warn().Err(err).Msg("unparseable feed message")
		return nil
	}

	switch msg.Type {
	case "bar":
		return f.storeBar(ctx, &msg)
	case "error":
		var rej struct {
			Reason string `json:"reason"`
		}
		json.Unmarshal(message, &rej)
		return &subscribeRejectedError{reason: rej.Reason}
	default:
		return nil
	}
}

func (f *BarFeed) storeBar(ctx context.Context, msg *barMessage) error {
	ts, err := time.Parse(time.RFC3339, msg.Timestamp)
	if err != nil {
		f.log.Warn().Str("ticker", msg.Ticker).Str("timestamp", msg.Timestamp).Msg("bad bar timestamp, dropped")
		observability.RecordBarDropped("bad_timestamp")
		return nil
	}

	bar := &domain.Bar{
		Ticker:    msg.Ticker,
		Timestamp: ts,
		Open:      msg.Open,
		High:      msg.High,
		Low:       msg.Low,
		Close:     msg.Close,
		Volume:    msg.Volume,
		Interval:  f.interval,
	}
	if err := validateBar(bar); err != nil {
		f.log.Warn().Err(err).Msg("invalid bar, dropped")
		observability.RecordBarDropped("invalid")
		return nil
	}

	err = f.store.InsertBulk(ctx, []*domain.Bar{bar})
	if errors.Is(err, storage.ErrDuplicateKey) {
		// Replay after reconnect.
		f.log.Debug().Str("ticker", bar.Ticker).Time("ts", bar.Timestamp).Msg("duplicate bar skipped")
		observability.RecordBarDropped("duplicate")
		return nil
	}
	if err != nil {
		return fmt.Errorf("store bar: %w", err)
	}

	f.storedMu.Lock()
	f.stored++
	f.storedMu.Unlock()
	observability.RecordBarStored()
	return nil
}

// pingLoop keeps the connection alive while a connection is up.
func (f *BarFeed) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(f.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.connMu.Lock()
			if f.conn != nil {
				f.conn.SetWriteDeadline(time.Now().Add(f.config.WriteTimeout))
				f.conn.WriteMessage(websocket.PingMessage, nil)
			}
			f.connMu.Unlock()
		}
	}
}
