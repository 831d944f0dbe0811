package engine

import (
	"testing"
	"time"

	"market-scanner/internal/models"
)

func newAggregator(prices map[string]models.LivePriceRecord, shares []models.Share) *GlobalAggregator {
	shareMap := make(map[string]models.Share, len(shares))
	for _, s := range shares {
		shareMap[s.Code] = s
	}
	return &GlobalAggregator{
		Eval:   NewEvaluator(prices, shareMap, nil),
		Prices: prices,
		Stamps: NewStampCache(),
		Now:    time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC),
	}
}

func moverHit(code string, pct, change float64) models.Hit {
	h := models.Hit{
		Code: code, Intent: models.IntentMover,
		Price: 10.0, Pct: pct, Change: change,
		Timestamp: time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC),
	}
	h.Direction = models.DirectionOf(pct)
	return h
}

func codesOf(hits []models.Hit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Code
	}
	return out
}

func TestMoverSortIsTwoTier(t *testing.T) {
	// Threshold-meeting movers rank by percent magnitude; the rest sink
	// below them and rank by dollar magnitude.
	a := newAggregator(nil, nil)
	rules := models.ScannerRules{Up: models.DirectionRule{PercentThreshold: 2.0, DollarThreshold: 0.1}}

	hits := []models.Hit{
		moverHit("DDD", 0.5, 80.0),
		moverHit("AAA", 5.0, 1.0),
		moverHit("CCC", 1.0, 50.0),
		moverHit("BBB", 3.0, 10.0),
	}
	a.sortMovers(hits, rules)

	want := []string{"AAA", "BBB", "DDD", "CCC"}
	got := codesOf(hits)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestAggregateStripsStilledHilo(t *testing.T) {
	prices := map[string]models.LivePriceRecord{
		"FLT": {Code: "FLT", Live: 20.0, PrevClose: 20.0, High52: 20.0},
		"WES": {Code: "WES", Live: 85.0, PrevClose: 84.0, High52: 85.0},
	}
	a := newAggregator(prices, nil)

	hilo := []models.Hit{
		{Code: "FLT", Intent: models.IntentHiloHigh, Direction: models.DirectionUp, Price: 20.0, Pct: 1.0, Timestamp: a.Now},
		{Code: "WES", Intent: models.IntentHiloHigh, Direction: models.DirectionUp, Price: 85.0, Pct: 1.2, Timestamp: a.Now},
	}

	res := a.Aggregate(nil, hilo, nil, models.ScannerRules{}, false)
	got := codesOf(res.Hilo.High)
	if len(got) != 1 || got[0] != "WES" {
		t.Fatalf("stilled hilo entry not stripped, got %v", got)
	}
}

func TestAggregateHydratesFromLivePrices(t *testing.T) {
	prices := map[string]models.LivePriceRecord{
		"BHP": {Code: "BHP", Live: 42.0, PrevClose: 40.0},
		"QAN": {Code: "QAN", Live: 5.70, PrevClose: 6.0},
		"WES": {Code: "WES", Live: 85.0, PrevClose: 84.0, High52: 85.0},
	}
	a := newAggregator(prices, nil)
	rules := models.ScannerRules{
		Up:   models.DirectionRule{PercentThreshold: 1.0},
		Down: models.DirectionRule{PercentThreshold: 1.0},
	}

	// Empty documents: the boards come from the live-price cache.
	res := a.Aggregate(nil, nil, nil, rules, true)

	if got := codesOf(res.Movers.Up); len(got) != 2 {
		t.Fatalf("hydrated movers up = %v", got)
	}
	if got := codesOf(res.Movers.Down); len(got) != 1 || got[0] != "QAN" {
		t.Fatalf("hydrated movers down = %v", got)
	}
	if got := codesOf(res.Hilo.High); len(got) != 1 || got[0] != "WES" {
		t.Fatalf("hydrated hilo high = %v", got)
	}
}

func TestAggregateMergesOwnHitsOverBackend(t *testing.T) {
	prices := map[string]models.LivePriceRecord{
		"BHP": {Code: "BHP", Live: 42.0, PrevClose: 40.0},
	}
	a := newAggregator(prices, []models.Share{{Code: "BHP"}})
	rules := models.ScannerRules{Up: models.DirectionRule{PercentThreshold: 1.0}}

	backend := []models.Hit{moverHit("BHP", 2.5, 1.0)}
	local := []models.Hit{{
		Code: "BHP", Intent: models.IntentMover, Direction: models.DirectionUp,
		Price: 42.0, Pct: 5.0, Change: 2.0, Timestamp: a.Now, UserID: "u1",
	}}

	res := a.Aggregate(backend, nil, local, rules, false)
	if len(res.Movers.Up) != 1 {
		t.Fatalf("merge produced duplicates: %v", res.Movers.Up)
	}
	h := res.Movers.Up[0]
	if !h.IsLocal || h.UserID != "u1" {
		t.Fatalf("local hit should replace the backend one, got %+v", h)
	}
}

func TestAggregateNoiseFilterExcludesETFs(t *testing.T) {
	prices := map[string]models.LivePriceRecord{
		"VAS": {Code: "VAS", Type: models.InstrumentETF, Live: 95.0, PrevClose: 90.0},
		"BHP": {Code: "BHP", Live: 42.0, PrevClose: 40.0},
	}
	a := newAggregator(prices, nil)
	rules := models.ScannerRules{Up: models.DirectionRule{PercentThreshold: 1.0}}

	res := a.Aggregate(nil, nil, nil, rules, false)
	for _, h := range res.Movers.Up {
		if h.Code == "VAS" {
			t.Fatalf("ETF leaked onto the global movers board")
		}
	}
	if len(res.Movers.Up) != 1 {
		t.Fatalf("expected only the share, got %v", codesOf(res.Movers.Up))
	}
}

func TestStampCacheFirstSeenWins(t *testing.T) {
	c := NewStampCache()
	t0 := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)

	got := c.Stamp("BHP-mover-up", t0)
	if !got.Equal(t0) {
		t.Fatalf("first stamp = %v, want %v", got, t0)
	}
	got = c.Stamp("BHP-mover-up", t0.Add(time.Hour))
	if !got.Equal(t0) {
		t.Fatalf("later stamp overwrote first-seen time: %v", got)
	}
	if !c.Seen("BHP-mover-up") || c.Seen("XYZ-mover-up") {
		t.Fatalf("Seen bookkeeping wrong")
	}
}
