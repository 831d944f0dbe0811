package engine

import (
	"testing"
	"time"

	"market-scanner/internal/models"
)

func newGenerator(prices map[string]models.LivePriceRecord, shares []models.Share) *Generator {
	shareMap := make(map[string]models.Share, len(shares))
	for _, s := range shares {
		shareMap[s.Code] = s
	}
	return &Generator{
		Prices: prices,
		Shares: shareMap,
		Stamps: NewStampCache(),
		UserID: "u1",
		Now:    time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC),
	}
}

func intents(hits []models.Hit) map[models.Intent]int {
	out := make(map[models.Intent]int)
	for _, h := range hits {
		out[h.Intent]++
	}
	return out
}

func TestGenerateTargetRequiresCrossingToday(t *testing.T) {
	cases := []struct {
		name      string
		prevClose float64
		live      float64
		direction models.TargetDirection
		want      bool
	}{
		{"crossed down through buy target", 52.0, 49.0, models.TargetBelow, true},
		{"already below yesterday", 48.0, 47.0, models.TargetBelow, false},
		{"crossed up through sell target", 48.0, 51.0, models.TargetAbove, true},
		{"already above yesterday", 53.0, 54.0, models.TargetAbove, false},
		{"no previous close counts as crossed", 0, 49.0, models.TargetBelow, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := newGenerator(
				map[string]models.LivePriceRecord{
					"BHP": {Code: "BHP", Live: tc.live, PrevClose: tc.prevClose},
				},
				[]models.Share{{Code: "BHP", TargetPrice: 50.0, TargetDirection: tc.direction}},
			)
			hits, _ := g.Generate(models.ScannerRules{})
			got := intents(hits)[models.IntentTarget] > 0
			if got != tc.want {
				t.Errorf("target generated = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestGenerateSuppressesPhantoms(t *testing.T) {
	// The feed claims a 5% move but the prices say flat. The record is
	// phantom data: suppressed, flagged, never a displayed hit.
	g := newGenerator(
		map[string]models.LivePriceRecord{
			"GHO": {Code: "GHO", Live: 100.0, PrevClose: 100.0, PctChange: 5.0},
		},
		[]models.Share{{Code: "GHO"}},
	)
	rules := models.ScannerRules{Up: models.DirectionRule{PercentThreshold: 1.0}}

	hits, phantoms := g.Generate(rules)
	if len(hits) != 0 {
		t.Fatalf("phantom record produced visible hits: %v", hits)
	}
	if len(phantoms) != 1 || !phantoms[0].Phantom {
		t.Fatalf("expected 1 flagged phantom, got %v", phantoms)
	}
}

func TestGenerateHiloTolerance(t *testing.T) {
	cases := []struct {
		name string
		live float64
		want bool
	}{
		{"at the high", 85.0, true},
		{"within tolerance", 84.9995, true},
		{"just short", 84.98, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := newGenerator(
				map[string]models.LivePriceRecord{
					"WES": {Code: "WES", Live: tc.live, PrevClose: 84.0, High52: 85.0},
				},
				[]models.Share{{Code: "WES"}},
			)
			hits, _ := g.Generate(models.ScannerRules{})
			got := intents(hits)[models.IntentHiloHigh] > 0
			if got != tc.want {
				t.Errorf("hilo-high generated = %v, want %v (live %.4f)", got, tc.want, tc.live)
			}
		})
	}
}

func TestGenerateSkipsStaticInstruments(t *testing.T) {
	g := newGenerator(
		map[string]models.LivePriceRecord{
			"FLT": {Code: "FLT", Live: 20.0, PrevClose: 20.0, High52: 20.0},
		},
		[]models.Share{{Code: "FLT"}},
	)
	hits, _ := g.Generate(models.ScannerRules{Up: models.DirectionRule{PercentThreshold: 0.1}})
	if len(hits) != 0 {
		t.Fatalf("static instrument generated hits: %v", hits)
	}
}

func TestGenerateHonorsCategoryToggles(t *testing.T) {
	off := false
	rules := models.ScannerRules{
		Up:            models.DirectionRule{PercentThreshold: 1.0},
		MoversEnabled: &off,
	}
	g := newGenerator(
		map[string]models.LivePriceRecord{
			"BHP": {Code: "BHP", Live: 42.0, PrevClose: 40.0},
		},
		[]models.Share{{Code: "BHP"}},
	)
	hits, _ := g.Generate(rules)
	if n := intents(hits)[models.IntentMover]; n != 0 {
		t.Fatalf("movers toggled off but %d generated", n)
	}
}

func TestGenerateStampsAreStable(t *testing.T) {
	g := newGenerator(
		map[string]models.LivePriceRecord{
			"BHP": {Code: "BHP", Live: 42.0, PrevClose: 40.0},
		},
		[]models.Share{{Code: "BHP"}},
	)
	rules := models.ScannerRules{Up: models.DirectionRule{PercentThreshold: 1.0}}

	first, _ := g.Generate(rules)
	g.Now = g.Now.Add(time.Hour)
	second, _ := g.Generate(rules)

	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("expected 1 hit per pass, got %d and %d", len(first), len(second))
	}
	if !first[0].Timestamp.Equal(second[0].Timestamp) {
		t.Fatalf("persisting alert changed timestamp: %v vs %v", first[0].Timestamp, second[0].Timestamp)
	}
}
