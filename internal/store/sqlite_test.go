package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"market-scanner/internal/errors"
	"market-scanner/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "scanner.db"))
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDocumentRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc := models.ScanDocument{
		UpdatedAt: time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC),
		Hits: []models.RawHit{
			{Code: "BHP", Intent: "mover", Pct: 3.2, Change: 1.3},
			{Symbol: "QAN", Intent: "52w-low", Pct: -1.1},
		},
	}
	if err := s.SaveDocument(ctx, "movers", doc); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.GetDocument(ctx, "movers")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.UpdatedAt.Equal(doc.UpdatedAt) {
		t.Errorf("updated_at = %v, want %v", got.UpdatedAt, doc.UpdatedAt)
	}
	if len(got.Hits) != 2 || got.Hits[0].Code != "BHP" || got.Hits[1].Symbol != "QAN" {
		t.Errorf("hits round trip failed: %+v", got.Hits)
	}

	// Upsert replaces, never appends.
	doc.Hits = doc.Hits[:1]
	if err := s.SaveDocument(ctx, "movers", doc); err != nil {
		t.Fatalf("resave: %v", err)
	}
	got, err = s.GetDocument(ctx, "movers")
	if err != nil {
		t.Fatalf("reget: %v", err)
	}
	if len(got.Hits) != 1 {
		t.Errorf("upsert appended instead of replacing: %d hits", len(got.Hits))
	}
}

func TestGetDocumentMissing(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetDocument(context.Background(), "nope"); err != errors.ErrDataNotFound {
		t.Fatalf("err = %v, want ErrDataNotFound", err)
	}
}

func TestShareLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	share := models.Share{
		Code:            "bhp",
		Name:            "BHP Group",
		Sector:          "MINING",
		TargetPrice:     40.0,
		TargetDirection: models.TargetBelow,
		TargetKind:      models.TargetBuy,
		Units:           150,
	}
	if err := s.SaveShare(ctx, share); err != nil {
		t.Fatalf("save: %v", err)
	}

	shares, err := s.GetShares(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(shares) != 1 {
		t.Fatalf("expected 1 share, got %d", len(shares))
	}
	got := shares[0]
	if got.Code != "BHP" {
		t.Errorf("code not uppercased on save: %q", got.Code)
	}
	if got.TargetPrice != 40.0 || got.TargetDirection != models.TargetBelow || got.TargetKind != models.TargetBuy {
		t.Errorf("target fields lost: %+v", got)
	}

	// Mute via upsert.
	share.Muted = true
	if err := s.SaveShare(ctx, share); err != nil {
		t.Fatalf("mute: %v", err)
	}
	shares, _ = s.GetShares(ctx)
	if len(shares) != 1 || !shares[0].Muted {
		t.Fatalf("upsert did not persist mute: %+v", shares)
	}

	if err := s.DeleteShare(ctx, "BHP"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteShare(ctx, "BHP"); err != errors.ErrShareNotFound {
		t.Fatalf("second delete err = %v, want ErrShareNotFound", err)
	}
}

func TestSharesSortedByCode(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, code := range []string{"WES", "BHP", "QAN"} {
		if err := s.SaveShare(ctx, models.Share{Code: code}); err != nil {
			t.Fatal(err)
		}
	}
	shares, err := s.GetShares(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"BHP", "QAN", "WES"}
	for i, code := range want {
		if shares[i].Code != code {
			t.Fatalf("order[%d] = %s, want %s", i, shares[i].Code, code)
		}
	}
}

func TestRulesSnapshotLatestWins(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.GetLatestRulesSnapshot(ctx); err != errors.ErrDataNotFound {
		t.Fatalf("empty snapshot err = %v, want ErrDataNotFound", err)
	}

	first := models.ScannerRules{Up: models.DirectionRule{PercentThreshold: 2.0}}
	second := models.ScannerRules{Up: models.DirectionRule{PercentThreshold: 5.0}, MinPrice: 1.0}
	if err := s.SaveRulesSnapshot(ctx, first); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveRulesSnapshot(ctx, second); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetLatestRulesSnapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.Up.PercentThreshold != 5.0 || got.MinPrice != 1.0 {
		t.Fatalf("latest snapshot not returned: %+v", got)
	}
}

func TestAlertLogFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)

	entries := []models.AlertLogEntry{
		{ID: "1", At: base.Add(-2 * time.Hour), Code: "BHP", Intent: models.IntentMover, Direction: models.DirectionUp, Price: 42, Change: 2, Pct: 5, Scope: "local"},
		{ID: "2", At: base.Add(-time.Hour), Code: "QAN", Intent: models.IntentMover, Direction: models.DirectionDown, Price: 5.7, Change: -0.3, Pct: -5, Scope: "global"},
		{ID: "3", At: base, Code: "BHP", Intent: models.IntentTarget, Direction: models.DirectionDown, Price: 39, Change: -2, Pct: -4.9, Scope: "local"},
	}
	for _, e := range entries {
		if err := s.LogAlert(ctx, e); err != nil {
			t.Fatalf("log %s: %v", e.ID, err)
		}
	}

	got, err := s.GetAlertLog(ctx, AlertLogFilter{Code: "bhp"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("code filter: expected 2, got %d", len(got))
	}
	if got[0].ID != "3" {
		t.Errorf("newest-first ordering broken, first = %s", got[0].ID)
	}

	got, err = s.GetAlertLog(ctx, AlertLogFilter{Scope: "global"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Code != "QAN" {
		t.Fatalf("scope filter: %+v", got)
	}

	got, err = s.GetAlertLog(ctx, AlertLogFilter{Since: base.Add(-90 * time.Minute)})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("since filter: expected 2, got %d", len(got))
	}

	got, err = s.GetAlertLog(ctx, AlertLogFilter{Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "3" {
		t.Fatalf("limit: %+v", got)
	}
}

func TestSyncTimesPersistAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scanner.db")

	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}
	at := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
	if err := s.SetLastSync("documents", at); err != nil {
		t.Fatal(err)
	}
	if got := s.GetLastSync("documents"); !got.Equal(at) {
		t.Fatalf("in-memory sync time = %v", got)
	}
	s.Close()

	s2, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	if got := s2.GetLastSync("documents"); !got.Equal(at) {
		t.Fatalf("sync time lost on reopen: %v", got)
	}
	if !s2.GetLastSync("never-synced").IsZero() {
		t.Fatal("unknown data type should report zero time")
	}
}
