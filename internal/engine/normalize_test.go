package engine

import (
	"testing"
	"time"

	"market-scanner/internal/models"
)

func TestResolveCode(t *testing.T) {
	cases := []struct {
		name string
		raw  models.RawHit
		want string
	}{
		{"plain code", models.RawHit{Code: "BHP"}, "BHP"},
		{"market suffix stripped", models.RawHit{Code: "bhp.ax"}, "BHP"},
		{"symbol fallback", models.RawHit{Symbol: "qan"}, "QAN"},
		{"ticker fallback", models.RawHit{Ticker: "WES.NZ"}, "WES"},
		{"code beats symbol", models.RawHit{Code: "BHP", Symbol: "QAN"}, "BHP"},
		{"token from name", models.RawHit{Name: "Breaking: CBA smashes records"}, "CBA"},
		{"nothing resolvable", models.RawHit{Name: "no ticker here"}, ""},
		{"whitespace only", models.RawHit{Code: "   "}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ResolveCode(tc.raw); got != tc.want {
				t.Errorf("ResolveCode(%+v) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestNormalizeFieldAliases(t *testing.T) {
	n := NewNormalizer(nil, nil)

	h, err := n.Normalize(models.RawHit{
		Code:          "BHP",
		Last:          41.5,
		ChangeAmount:  1.5,
		ChangePercent: 3.75,
	})
	if err != nil {
		t.Fatal(err)
	}
	if h.Price != 41.5 {
		t.Errorf("price from Last alias = %v", h.Price)
	}
	if h.Change != 1.5 {
		t.Errorf("change from ChangeAmount alias = %v", h.Change)
	}
	if h.Pct != 3.75 {
		t.Errorf("pct from ChangePercent alias = %v", h.Pct)
	}
	if h.Intent != models.IntentMover {
		t.Errorf("missing intent should default to mover, got %s", h.Intent)
	}
}

func TestNormalizeIntentAliases(t *testing.T) {
	cases := []struct {
		raw  models.RawHit
		want models.Intent
	}{
		{models.RawHit{Code: "A", Intent: "gainer"}, models.IntentMover},
		{models.RawHit{Code: "A", Intent: "loser"}, models.IntentMover},
		{models.RawHit{Code: "A", Kind: "price_target"}, models.IntentTarget},
		{models.RawHit{Code: "A", Type: "52w-high"}, models.IntentHiloHigh},
		{models.RawHit{Code: "A", Intent: "year-low"}, models.IntentHiloLow},
		{models.RawHit{Code: "A", Intent: "hilo", Direction: "down"}, models.IntentHiloLow},
		{models.RawHit{Code: "A", Intent: "hilo", Direction: "up"}, models.IntentHiloHigh},
		{models.RawHit{Code: "A", Intent: "hilo", Pct: -2.0}, models.IntentHiloLow},
		{models.RawHit{Code: "A", Intent: "something-new"}, models.IntentMover},
	}
	n := NewNormalizer(nil, nil)
	for _, tc := range cases {
		h, err := n.Normalize(tc.raw)
		if err != nil {
			t.Fatal(err)
		}
		if h.Intent != tc.want {
			t.Errorf("intent %q/%q/%q dir %q -> %s, want %s",
				tc.raw.Intent, tc.raw.Kind, tc.raw.Type, tc.raw.Direction, h.Intent, tc.want)
		}
	}
}

func TestNormalizeRefreshesPriceFromCache(t *testing.T) {
	prices := map[string]models.LivePriceRecord{
		"BHP": {Code: "BHP", Live: 42.5, PrevClose: 40.0},
	}
	n := NewNormalizer(prices, nil)

	// The raw price is stale by definition; the cache's live price wins
	// even when the raw record carries one.
	h, err := n.Normalize(models.RawHit{Code: "BHP", Price: 41.0, Pct: 2.5})
	if err != nil {
		t.Fatal(err)
	}
	if h.Price != 42.5 {
		t.Errorf("price not refreshed from cache: %v", h.Price)
	}
	if h.Pct != 2.5 {
		t.Errorf("present raw pct overwritten: %v", h.Pct)
	}
}

func TestNormalizeEnrichmentFillsOnlyMissingFields(t *testing.T) {
	prices := map[string]models.LivePriceRecord{
		"BHP": {Code: "BHP", Live: 42.0, Name: "BHP Group", Sector: "MINING", High52: 45.0},
	}
	shares := map[string]models.Share{
		"BHP": {Code: "BHP", Name: "My BHP", Sector: "RESOURCES"},
	}
	n := NewNormalizer(prices, shares)

	h, err := n.Normalize(models.RawHit{Code: "BHP", Sector: "MATERIALS", Pct: 1.0})
	if err != nil {
		t.Fatal(err)
	}
	if h.Sector != "MATERIALS" {
		t.Errorf("raw sector overwritten by enrichment: %q", h.Sector)
	}
	// Cache enrichment precedes the watchlist.
	if h.Name != "BHP Group" {
		t.Errorf("name = %q, want cache name", h.Name)
	}
	if h.High52 != 45.0 {
		t.Errorf("high52 not enriched: %v", h.High52)
	}
}

func TestNormalizeTargetEnrichedFromWatchlist(t *testing.T) {
	shares := map[string]models.Share{
		"BHP": {Code: "BHP", TargetPrice: 40.0, TargetDirection: models.TargetBelow, TargetKind: models.TargetBuy},
	}
	n := NewNormalizer(nil, shares)

	h, err := n.Normalize(models.RawHit{Code: "BHP", Intent: "target"})
	if err != nil {
		t.Fatal(err)
	}
	if h.Target != 40.0 || h.TargetDirection != models.TargetBelow || h.TargetKind != models.TargetBuy {
		t.Errorf("target fields not enriched: %+v", h)
	}
	if h.Direction != models.DirectionDown {
		t.Errorf("below-target direction = %s, want down", h.Direction)
	}
}

func TestNormalizeTimestampFromEpochMillis(t *testing.T) {
	n := NewNormalizer(nil, nil)
	at := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)

	h, err := n.Normalize(models.RawHit{Code: "BHP", Timestamp: at.UnixMilli()})
	if err != nil {
		t.Fatal(err)
	}
	if !h.Timestamp.Equal(at) {
		t.Errorf("timestamp = %v, want %v", h.Timestamp, at)
	}
}

func TestNormalizeAllDropsRecordsWithoutCode(t *testing.T) {
	n := NewNormalizer(nil, nil)
	hits := n.NormalizeAll([]models.RawHit{
		{Code: "BHP", Pct: 2.0},
		{Name: "no identity at all"},
		{Symbol: "QAN", Pct: -2.0},
	})
	if len(hits) != 2 {
		t.Fatalf("expected 2 normalized hits, got %d", len(hits))
	}
	if hits[0].Code != "BHP" || hits[1].Code != "QAN" {
		t.Fatalf("unexpected codes: %s, %s", hits[0].Code, hits[1].Code)
	}
}
