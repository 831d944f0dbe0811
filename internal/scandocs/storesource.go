package scandocs

import (
	"context"

	"market-scanner/internal/errors"
	"market-scanner/internal/models"
	"market-scanner/internal/store"
)

// StoreSource serves scan documents out of the local data store, for offline
// work and for replaying a previously fetched day.
type StoreSource struct {
	data store.DataStore
}

// NewStoreSource creates a store-backed document source.
func NewStoreSource(data store.DataStore) *StoreSource {
	return &StoreSource{data: data}
}

// Fetch returns the stored document by name. A missing document reads as
// unavailable, which callers degrade to empty.
func (s *StoreSource) Fetch(ctx context.Context, name string) (models.ScanDocument, error) {
	doc, err := s.data.GetDocument(ctx, name)
	if err != nil {
		if errors.Is(err, errors.ErrDataNotFound) {
			return models.ScanDocument{}, errors.NewDocumentError(name, "load", errors.ErrDocumentUnavailable)
		}
		return models.ScanDocument{}, errors.NewDocumentError(name, "load", err)
	}
	return doc, nil
}

// CachingSource wraps another source and writes every successful fetch into
// the data store so StoreSource has something to replay.
type CachingSource struct {
	inner Source
	data  store.DataStore
}

// NewCachingSource wraps inner with store-backed caching.
func NewCachingSource(inner Source, data store.DataStore) *CachingSource {
	return &CachingSource{inner: inner, data: data}
}

// Fetch delegates to the inner source and persists the result on success.
func (s *CachingSource) Fetch(ctx context.Context, name string) (models.ScanDocument, error) {
	doc, err := s.inner.Fetch(ctx, name)
	if err != nil {
		return doc, err
	}
	// Persist best-effort; a write failure must not fail the fetch.
	_ = s.data.SaveDocument(ctx, name, doc)
	return doc, nil
}
