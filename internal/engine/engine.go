// Package engine implements the alert aggregation, filtering and
// deduplication core. It resolves three independent signal sources — the
// backend scan documents, client-generated signals synthesized from live
// prices, and the per-user rule set — into deterministically ordered,
// deduplicated alert boards plus badge counts, and publishes a debounced
// change notification as upstream state moves.
package engine

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"market-scanner/internal/logging"
	"market-scanner/internal/models"
)

// PriceSource provides a point-in-time view of the live-price cache. The
// engine only ever reads it.
type PriceSource interface {
	Snapshot() map[string]models.LivePriceRecord
}

// ShareSource provides the user's current watchlist.
type ShareSource interface {
	Shares() []models.Share
}

// Config holds engine configuration.
type Config struct {
	UserID string
	// DebounceWindow collapses recomputation triggers arriving within the
	// window into a single pass and a single published update.
	DebounceWindow time.Duration
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{DebounceWindow: 500 * time.Millisecond}
}

// Engine is the alert engine service. Every computation is a pure function
// of the current snapshot of upstream state; the only state the engine owns
// is the stable-timestamp cache and the per-scope last-viewed marks.
type Engine struct {
	cfg    Config
	logger zerolog.Logger
	prices PriceSource
	shares ShareSource
	stamps *StampCache
	now    func() time.Time

	mu         sync.RWMutex
	rules      models.ScannerRules
	custom     models.ScanDocument
	movers     models.ScanDocument
	hilo       models.ScanDocument
	lastViewed map[ViewScope]time.Time

	subMu       sync.RWMutex
	subscribers map[string]chan BadgeCounts

	debMu   sync.Mutex
	pending bool
}

// New creates an engine over the given upstream sources.
func New(cfg Config, logger zerolog.Logger, prices PriceSource, shares ShareSource) *Engine {
	if cfg.DebounceWindow <= 0 {
		cfg.DebounceWindow = DefaultConfig().DebounceWindow
	}
	return &Engine{
		cfg:         cfg,
		logger:      logger,
		prices:      prices,
		shares:      shares,
		stamps:      NewStampCache(),
		now:         time.Now,
		lastViewed:  make(map[ViewScope]time.Time),
		subscribers: make(map[string]chan BadgeCounts),
	}
}

// SetRules installs a new rule set. Rule changes take effect on the next
// recomputation pass; this is the target of the preference-change
// subscription.
func (e *Engine) SetRules(rules models.ScannerRules) {
	e.mu.Lock()
	e.rules = rules
	e.mu.Unlock()
	e.Trigger()
}

// Rules returns the currently installed rule set.
func (e *Engine) Rules() models.ScannerRules {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rules
}

// SetDocuments installs freshly fetched scan documents. A failed fetch is
// represented by an empty document; completion is just another recomputation
// trigger.
func (e *Engine) SetDocuments(custom, movers, hilo models.ScanDocument) {
	e.mu.Lock()
	e.custom, e.movers, e.hilo = custom, movers, hilo
	e.mu.Unlock()
	e.Trigger()
}

// snapshot copies the upstream state one recomputation pass runs over.
type snapshot struct {
	prices map[string]models.LivePriceRecord
	shares map[string]models.Share
	muted  map[string]struct{}
	rules  models.ScannerRules
	custom models.ScanDocument
	movers models.ScanDocument
	hilo   models.ScanDocument
	now    time.Time
}

func (e *Engine) snapshot() snapshot {
	e.mu.RLock()
	s := snapshot{
		rules:  e.rules,
		custom: e.custom,
		movers: e.movers,
		hilo:   e.hilo,
	}
	e.mu.RUnlock()

	s.prices = e.prices.Snapshot()
	shareList := e.shares.Shares()
	s.shares = make(map[string]models.Share, len(shareList))
	s.muted = make(map[string]struct{})
	for _, share := range shareList {
		s.shares[share.Code] = share
		if share.Muted {
			s.muted[share.Code] = struct{}{}
		}
	}
	s.now = e.now()
	return s
}

// LocalAlerts computes the user's own alert board: pinned target alerts plus
// the fresh filtered set.
func (e *Engine) LocalAlerts() LocalResult {
	return e.localAlerts(e.snapshot())
}

func (e *Engine) localAlerts(s snapshot) LocalResult {
	norm := NewNormalizer(s.prices, s.shares)
	stale := &StalenessFilter{Prices: s.prices, Shares: s.shares, Now: s.now}

	var backend []models.Hit
	if s.rules.PersonalOn() {
		backend = stale.Apply(norm.NormalizeAll(s.custom.Hits))
	}

	generated, phantoms := e.generate(s)
	for _, p := range phantoms {
		e.logger.Debug().Str("code", p.Code).Float64("pct", p.Pct).Msg("Phantom hit suppressed")
	}

	merger := &LocalMerger{Eval: NewEvaluator(s.prices, s.shares, s.muted)}
	return merger.Merge(backend, generated, s.rules)
}

// GlobalAlerts computes the market-wide board. Strict threshold evaluation is
// the default; bypassStrict relaxes it for rule sets with no configured
// thresholds.
func (e *Engine) GlobalAlerts(bypassStrict bool) GlobalResult {
	return e.globalAlerts(e.snapshot(), !bypassStrict)
}

func (e *Engine) globalAlerts(s snapshot, strict bool) GlobalResult {
	norm := NewNormalizer(s.prices, s.shares)
	stale := &StalenessFilter{Prices: s.prices, Shares: s.shares, Now: s.now}

	moverHits := stale.Apply(norm.NormalizeAll(s.movers.Hits))
	hiloHits := stale.Apply(norm.NormalizeAll(s.hilo.Hits))
	generated, _ := e.generate(s)

	agg := &GlobalAggregator{
		Eval:   NewEvaluator(s.prices, s.shares, s.muted),
		Prices: s.prices,
		Stamps: e.stamps,
		Now:    s.now,
	}
	return agg.Aggregate(moverHits, hiloHits, generated, s.rules, strict)
}

func (e *Engine) generate(s snapshot) (hits, phantoms []models.Hit) {
	gen := &Generator{
		Prices: s.prices,
		Shares: s.shares,
		Stamps: e.stamps,
		UserID: e.cfg.UserID,
		Now:    s.now,
	}
	return gen.Generate(s.rules)
}

// BadgeCounts computes the new-since-last-viewed counts. Custom considers the
// local board only; Total considers local and global combined. Both scopes
// start at zero each session: no persistence across reloads, so every session
// shows a fresh badge.
func (e *Engine) BadgeCounts() BadgeCounts {
	s := e.snapshot()
	local := e.localAlerts(s)
	global := e.globalAlerts(s, true)

	e.mu.RLock()
	sinceTotal := e.lastViewed[ScopeTotal]
	sinceCustom := e.lastViewed[ScopeCustom]
	e.mu.RUnlock()

	return BadgeCounts{
		Custom: countNew(sinceCustom, local.Pinned, local.Fresh),
		Total: countNew(sinceTotal,
			local.Pinned, local.Fresh,
			global.Movers.Up, global.Movers.Down,
			global.Hilo.High, global.Hilo.Low),
	}
}

// MarkViewed advances a scope's last-viewed mark to now, zeroing its badge
// until newer alerts arrive.
func (e *Engine) MarkViewed(scope ViewScope) {
	e.mu.Lock()
	e.lastViewed[scope] = e.now()
	e.mu.Unlock()
	e.Trigger()
}

// Subscribe registers a badge-update listener and returns its token and
// channel. Sends are non-blocking; a slow listener misses updates rather than
// stalling the engine.
func (e *Engine) Subscribe() (string, <-chan BadgeCounts) {
	token := uuid.NewString()
	ch := make(chan BadgeCounts, 8)
	e.subMu.Lock()
	e.subscribers[token] = ch
	e.subMu.Unlock()
	return token, ch
}

// Unsubscribe removes a listener and closes its channel.
func (e *Engine) Unsubscribe(token string) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	if ch, ok := e.subscribers[token]; ok {
		close(ch)
		delete(e.subscribers, token)
	}
}

// Trigger requests a recomputation. Triggers within the debounce window
// coalesce: a single-slot pending flag queues at most one recompute, which
// runs over the latest state when the window elapses, so a burst of price
// updates produces one pass and one published update.
func (e *Engine) Trigger() {
	e.debMu.Lock()
	if e.pending {
		e.debMu.Unlock()
		return
	}
	e.pending = true
	e.debMu.Unlock()

	time.AfterFunc(e.cfg.DebounceWindow, e.firePending)
}

func (e *Engine) firePending() {
	e.debMu.Lock()
	e.pending = false
	e.debMu.Unlock()

	counts := e.BadgeCounts()
	logging.LogBadgeUpdate(e.logger, counts.Total, counts.Custom)
	e.publish(counts)
}

func (e *Engine) publish(counts BadgeCounts) {
	e.subMu.RLock()
	defer e.subMu.RUnlock()
	for _, ch := range e.subscribers {
		select {
		case ch <- counts:
		default:
		}
	}
}

// Close releases all subscriber channels.
func (e *Engine) Close() {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	for token, ch := range e.subscribers {
		close(ch)
		delete(e.subscribers, token)
	}
}
