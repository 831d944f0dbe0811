package scandocs

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"market-scanner/internal/models"
)

// fakeSource serves canned documents and fails the names it is told to.
type fakeSource struct {
	docs map[string]models.ScanDocument
	fail map[string]bool
}

func (f *fakeSource) Fetch(_ context.Context, name string) (models.ScanDocument, error) {
	if f.fail[name] {
		return models.ScanDocument{}, fmt.Errorf("fetch %s: unavailable", name)
	}
	return f.docs[name], nil
}

func TestFetchAllDegradesPerDocument(t *testing.T) {
	at := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
	src := &fakeSource{
		docs: map[string]models.ScanDocument{
			DocCustomHits: {UpdatedAt: at, Hits: []models.RawHit{{Code: "BHP", Intent: "target"}}},
			DocDailyHilo:  {UpdatedAt: at, Hits: []models.RawHit{{Code: "WES", Intent: "52w-high"}}},
		},
		fail: map[string]bool{DocDailyMovers: true},
	}

	docs := FetchAll(context.Background(), src, zerolog.Nop())

	if len(docs.Custom.Hits) != 1 || docs.Custom.Hits[0].Code != "BHP" {
		t.Fatalf("custom document not fetched: %+v", docs.Custom)
	}
	if len(docs.Hilo.Hits) != 1 || docs.Hilo.Hits[0].Code != "WES" {
		t.Fatalf("hilo document not fetched: %+v", docs.Hilo)
	}
	if !docs.Movers.Empty() {
		t.Fatalf("failed fetch should leave the document empty: %+v", docs.Movers)
	}
}

func TestFetchAllEmptySource(t *testing.T) {
	src := &fakeSource{docs: map[string]models.ScanDocument{}, fail: map[string]bool{}}
	docs := FetchAll(context.Background(), src, zerolog.Nop())

	if !docs.Custom.Empty() || !docs.Movers.Empty() || !docs.Hilo.Empty() {
		t.Fatalf("expected all documents empty, got %+v", docs)
	}
}
