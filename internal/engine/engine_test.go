package engine

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"market-scanner/internal/models"
)

type stubPrices map[string]models.LivePriceRecord

func (s stubPrices) Snapshot() map[string]models.LivePriceRecord {
	out := make(map[string]models.LivePriceRecord, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

type stubShares []models.Share

func (s stubShares) Shares() []models.Share { return s }

func newTestEngine(prices stubPrices, shares stubShares, rules models.ScannerRules, at time.Time) *Engine {
	e := New(Config{UserID: "u1", DebounceWindow: time.Millisecond}, zerolog.Nop(), prices, shares)
	e.now = func() time.Time { return at }
	e.rules = rules
	return e
}

func upRules(percent float64) models.ScannerRules {
	return models.ScannerRules{Up: models.DirectionRule{PercentThreshold: percent}}
}

func TestLocalAlertsDeterministicAcrossPasses(t *testing.T) {
	at := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
	prices := stubPrices{
		"BHP": {Code: "BHP", Sector: "MINING", Live: 42.0, PrevClose: 40.0},
		"CBA": {Code: "CBA", Sector: "BANKS", Live: 103.0, PrevClose: 100.0},
	}
	shares := stubShares{{Code: "BHP"}, {Code: "CBA"}}
	e := newTestEngine(prices, shares, upRules(2.0), at)

	first := e.LocalAlerts()
	second := e.LocalAlerts()

	if len(first.Fresh) != 2 {
		t.Fatalf("expected 2 fresh alerts, got %d", len(first.Fresh))
	}
	if len(first.Fresh) != len(second.Fresh) {
		t.Fatalf("pass sizes differ: %d vs %d", len(first.Fresh), len(second.Fresh))
	}
	for i := range first.Fresh {
		a, b := first.Fresh[i], second.Fresh[i]
		if a.Code != b.Code {
			t.Errorf("order changed at %d: %s vs %s", i, a.Code, b.Code)
		}
		if !a.Timestamp.Equal(b.Timestamp) {
			t.Errorf("timestamp changed for %s: %v vs %v", a.Code, a.Timestamp, b.Timestamp)
		}
	}
}

func TestLocalConsolidatesMoverAndTargetUnderTargetMaster(t *testing.T) {
	at := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
	// BHP dropped through its buy target today and also moved enough to be a
	// mover. One card should show, led by the target.
	prices := stubPrices{
		"BHP": {Code: "BHP", Live: 39.0, PrevClose: 41.0},
	}
	shares := stubShares{{
		Code:            "BHP",
		TargetPrice:     40.0,
		TargetDirection: models.TargetBelow,
	}}
	rules := models.ScannerRules{Down: models.DirectionRule{PercentThreshold: 2.0}}
	e := newTestEngine(prices, shares, rules, at)

	res := e.LocalAlerts()
	if len(res.Pinned) != 1 {
		t.Fatalf("expected 1 pinned alert, got %d", len(res.Pinned))
	}
	master := res.Pinned[0]
	if master.Intent != models.IntentTarget {
		t.Fatalf("master intent = %s, want target", master.Intent)
	}
	if len(master.Matches) != 2 {
		t.Fatalf("expected 2 contributors in Matches, got %d", len(master.Matches))
	}
	if len(res.Fresh) != 0 {
		t.Fatalf("mover should be consolidated away, fresh has %d", len(res.Fresh))
	}
	if master.TargetKind != models.TargetBuy {
		t.Errorf("target kind = %s, want buy", master.TargetKind)
	}
}

func TestBackendMoverAgesOutTargetDoesNot(t *testing.T) {
	at := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
	old := at.Add(-25 * time.Hour).UnixMilli()

	prices := stubPrices{
		// Static prices so the client generates nothing itself.
		"AAA": {Code: "AAA", Live: 10.0, PrevClose: 10.0},
		"BBB": {Code: "BBB", Live: 55.0, PrevClose: 55.0},
	}
	shares := stubShares{
		{Code: "AAA"},
		{Code: "BBB", TargetPrice: 50.0, TargetDirection: models.TargetAbove},
	}
	e := newTestEngine(prices, shares, upRules(1.0), at)
	e.custom = models.ScanDocument{Hits: []models.RawHit{
		{Code: "AAA", Intent: "mover", Pct: 4.0, Change: 0.4, Timestamp: old},
		{Code: "BBB", Intent: "target", TargetPrice: 50.0, TargetDirection: "above", Timestamp: old},
	}}

	res := e.LocalAlerts()
	for _, h := range res.Fresh {
		if h.Code == "AAA" {
			t.Errorf("25h-old mover survived the staleness pass")
		}
	}
	if len(res.Pinned) != 1 || res.Pinned[0].Code != "BBB" {
		t.Fatalf("target with a live condition should persist regardless of age, pinned=%v", res.Pinned)
	}
}

func TestWatchlistOverrideIsLocalOnly(t *testing.T) {
	at := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
	// XYZ is watchlist-owned but outside the sector whitelist. The override
	// shows it locally; the global board never honors the override.
	prices := stubPrices{
		"XYZ": {Code: "XYZ", Sector: "MINING", Live: 21.0, PrevClose: 20.0},
	}
	shares := stubShares{{Code: "XYZ", Sector: "MINING"}}
	rules := upRules(2.0)
	rules.ActiveFilters = []string{"TECH"}
	e := newTestEngine(prices, shares, rules, at)

	local := e.LocalAlerts()
	if len(local.Fresh) != 1 || local.Fresh[0].Code != "XYZ" {
		t.Fatalf("override should admit the owned share locally, fresh=%v", local.Fresh)
	}

	global := e.GlobalAlerts(false)
	for _, h := range append(global.Movers.Up, global.Movers.Down...) {
		if h.Code == "XYZ" {
			t.Fatalf("sector-excluded share leaked onto the global board")
		}
	}
}

func TestBadgeCountsResetOnMarkViewed(t *testing.T) {
	at := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
	prices := stubPrices{
		"BHP": {Code: "BHP", Live: 42.0, PrevClose: 40.0},
	}
	shares := stubShares{{Code: "BHP"}}
	e := newTestEngine(prices, shares, upRules(2.0), at)

	counts := e.BadgeCounts()
	if counts.Total == 0 || counts.Custom == 0 {
		t.Fatalf("expected non-zero badges, got %+v", counts)
	}

	e.MarkViewed(ScopeTotal)
	e.MarkViewed(ScopeCustom)

	counts = e.BadgeCounts()
	if counts.Total != 0 || counts.Custom != 0 {
		t.Fatalf("badges should zero after viewing, got %+v", counts)
	}
}

func TestBadgeCountsDeduplicateByCode(t *testing.T) {
	at := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
	// BHP qualifies as mover, target and 52-week high at once: one badge.
	prices := stubPrices{
		"BHP": {Code: "BHP", Live: 42.0, PrevClose: 40.0, High52: 42.0},
	}
	shares := stubShares{{
		Code:            "BHP",
		TargetPrice:     41.0,
		TargetDirection: models.TargetAbove,
	}}
	e := newTestEngine(prices, shares, upRules(2.0), at)

	counts := e.BadgeCounts()
	if counts.Custom != 1 {
		t.Fatalf("custom badge should count codes not cards, got %d", counts.Custom)
	}
}

func TestSubscribePublishesDebouncedUpdate(t *testing.T) {
	at := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
	prices := stubPrices{
		"BHP": {Code: "BHP", Live: 42.0, PrevClose: 40.0},
	}
	shares := stubShares{{Code: "BHP"}}
	e := newTestEngine(prices, shares, upRules(2.0), at)
	defer e.Close()

	token, updates := e.Subscribe()
	defer e.Unsubscribe(token)

	// A burst of triggers must collapse into one published update.
	for i := 0; i < 10; i++ {
		e.Trigger()
	}

	select {
	case counts := <-updates:
		if counts.Total == 0 {
			t.Errorf("published counts should reflect the board, got %+v", counts)
		}
	case <-time.After(time.Second):
		t.Fatal("no badge update published")
	}

	select {
	case <-updates:
		t.Fatal("burst of triggers produced more than one update")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestToggleGatesCategories(t *testing.T) {
	at := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
	prices := stubPrices{
		"BHP": {Code: "BHP", Live: 42.0, PrevClose: 40.0, High52: 42.0},
	}
	shares := stubShares{{Code: "BHP"}}

	off := false
	rules := upRules(2.0)
	rules.MoversEnabled = &off
	rules.HiloEnabled = &off
	e := newTestEngine(prices, shares, rules, at)

	res := e.LocalAlerts()
	if len(res.Fresh) != 0 || len(res.Pinned) != 0 {
		t.Fatalf("all categories off should yield nothing, got %+v", res)
	}

	global := e.GlobalAlerts(true)
	if len(global.Movers.Up) != 0 || len(global.Hilo.High) != 0 {
		t.Fatalf("global sections should be empty when toggled off")
	}
}
