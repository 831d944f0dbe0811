package quotes

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"market-scanner/internal/errors"
	"market-scanner/internal/logging"
	"market-scanner/internal/models"
)

// FeedConfig holds feed client configuration.
type FeedConfig struct {
	URL          string
	APIKey       string
	PingInterval time.Duration
}

// Feed is the websocket live-price feed client. It maintains one connection,
// reauthenticates and resubscribes on reconnect, and writes every price event
// into the cache. Reconnection backs off exponentially up to 30 seconds.
type Feed struct {
	cfg    FeedConfig
	cache  *Cache
	logger zerolog.Logger

	mu         sync.RWMutex
	subscribed map[string]struct{}
	outbound   chan wireMsg
}

// NewFeed creates a feed client writing into cache.
func NewFeed(cfg FeedConfig, cache *Cache, logger zerolog.Logger) *Feed {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 45 * time.Second
	}
	return &Feed{
		cfg:        cfg,
		cache:      cache,
		logger:     logger,
		subscribed: make(map[string]struct{}),
		outbound:   make(chan wireMsg, 1024),
	}
}

type wireMsg struct {
	Action string `json:"action"`
	Params string `json:"params,omitempty"`
}

// priceEvent is one live-price snapshot on the wire.
type priceEvent struct {
	Ev        string  `json:"ev"` // "P"
	Code      string  `json:"code"`
	Name      string  `json:"name"`
	Sector    string  `json:"sector"`
	Type      string  `json:"type"`
	Live      float64 `json:"live"`
	PrevClose float64 `json:"prevClose"`
	Change    float64 `json:"change"`
	PctChange float64 `json:"pctChange"`
	High52    float64 `json:"high52"`
	Low52     float64 `json:"low52"`
	T         int64   `json:"t"` // epoch milliseconds
}

// Subscribe registers codes for price updates. If the connection is live the
// subscribe request is enqueued non-blocking; reconnects always replay the
// full set, so a full buffer loses nothing.
func (f *Feed) Subscribe(codes ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, code := range codes {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code == "" {
			continue
		}
		if _, ok := f.subscribed[code]; ok {
			continue
		}
		f.subscribed[code] = struct{}{}
		select {
		case f.outbound <- subscribeMsg(code):
		default:
		}
	}
}

// Unsubscribe removes codes from the resubscribe set and enqueues an
// unsubscribe for the live connection.
func (f *Feed) Unsubscribe(codes ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, code := range codes {
		code = strings.ToUpper(strings.TrimSpace(code))
		delete(f.subscribed, code)
		select {
		case f.outbound <- unsubscribeMsg(code):
		default:
		}
	}
}

func subscribeMsg(code string) wireMsg {
	return wireMsg{Action: "subscribe", Params: "P." + code}
}

func unsubscribeMsg(code string) wireMsg {
	return wireMsg{Action: "unsubscribe", Params: "P." + code}
}

// Run connects and keeps the feed alive until the context is cancelled.
func (f *Feed) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if err := f.runOnce(ctx); err != nil {
			logging.LogFeedEvent(f.logger, "disconnected", f.subscribedCount(), err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
			if backoff < 30*time.Second {
				backoff *= 2
			}
		}
	}
}

func (f *Feed) runOnce(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout:  10 * time.Second,
		EnableCompression: true,
	}
	conn, _, err := dialer.DialContext(ctx, f.cfg.URL, nil)
	if err != nil {
		return errors.NewFeedError("dial", f.cfg.URL, err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(wireMsg{Action: "auth", Params: f.cfg.APIKey}); err != nil {
		return errors.NewFeedError("auth", f.cfg.URL, err)
	}

	f.mu.RLock()
	for code := range f.subscribed {
		_ = conn.WriteJSON(subscribeMsg(code))
	}
	count := len(f.subscribed)
	f.mu.RUnlock()
	logging.LogFeedEvent(f.logger, "connected", count, nil)

	ping := time.NewTicker(f.cfg.PingInterval)
	defer ping.Stop()

	errCh := make(chan error, 1)
	go f.readLoop(conn, errCh)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ping.C:
			_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
		case msg := <-f.outbound:
			_ = conn.WriteJSON(msg)
		case err := <-errCh:
			return err
		}
	}
}

// readLoop decodes message batches and dispatches price events into the
// cache. Unknown event types are ignored.
func (f *Feed) readLoop(conn *websocket.Conn, errCh chan<- error) {
	for {
		var batch []json.RawMessage
		if err := conn.ReadJSON(&batch); err != nil {
			errCh <- errors.NewFeedError("read", f.cfg.URL, err)
			return
		}
		for _, raw := range batch {
			var ev struct {
				Ev string `json:"ev"`
			}
			_ = json.Unmarshal(raw, &ev)
			if ev.Ev != "P" {
				continue
			}
			var p priceEvent
			if err := json.Unmarshal(raw, &p); err != nil {
				continue
			}
			f.cache.Set(toRecord(p))
		}
	}
}

func toRecord(p priceEvent) models.LivePriceRecord {
	rec := models.LivePriceRecord{
		Code:      p.Code,
		Name:      p.Name,
		Sector:    p.Sector,
		Type:      models.InstrumentType(strings.ToUpper(p.Type)),
		Live:      p.Live,
		PrevClose: p.PrevClose,
		Change:    p.Change,
		PctChange: p.PctChange,
		High52:    p.High52,
		Low52:     p.Low52,
	}
	if rec.Type == "" {
		rec.Type = models.InstrumentShare
	}
	if p.T > 0 {
		rec.UpdatedAt = time.UnixMilli(p.T)
	}
	return rec
}

func (f *Feed) subscribedCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subscribed)
}
