// Package scandocs fetches the three backend scan documents: the user's
// custom hits, the market-wide daily movers, and the daily 52-week
// highs/lows. Documents are individually fetchable and independently
// failable; a failed fetch degrades that document to empty and never blocks
// the others.
package scandocs

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"market-scanner/internal/logging"
	"market-scanner/internal/models"
)

// Names of the three logical scan documents.
const (
	DocCustomHits  = "custom-hits"
	DocDailyMovers = "daily-movers"
	DocDailyHilo   = "daily-hilo"
)

// Source fetches one scan document by name.
type Source interface {
	Fetch(ctx context.Context, name string) (models.ScanDocument, error)
}

// Documents bundles one fetch pass over all three documents.
type Documents struct {
	Custom models.ScanDocument
	Movers models.ScanDocument
	Hilo   models.ScanDocument
}

// FetchAll fetches the three documents concurrently and awaits them
// independently. A failure is logged and leaves that document empty, so the
// view degrades to fewer alerts for that category rather than failing the
// whole refresh.
func FetchAll(ctx context.Context, src Source, logger zerolog.Logger) Documents {
	var docs Documents
	targets := []struct {
		name string
		dst  *models.ScanDocument
	}{
		{DocCustomHits, &docs.Custom},
		{DocDailyMovers, &docs.Movers},
		{DocDailyHilo, &docs.Hilo},
	}

	var wg sync.WaitGroup
	for _, t := range targets {
		wg.Add(1)
		go func(name string, dst *models.ScanDocument) {
			defer wg.Done()
			start := time.Now()
			doc, err := src.Fetch(ctx, name)
			logging.LogDocumentFetch(logger, name, len(doc.Hits), time.Since(start), err)
			if err != nil {
				return
			}
			*dst = doc
		}(t.name, t.dst)
	}
	wg.Wait()
	return docs
}
