// Package quotes provides the live-price cache and the websocket feed client
// that keeps it current.
package quotes

import (
	"sort"
	"strings"
	"sync"
	"time"

	"market-scanner/internal/models"
)

// Cache is the live-price cache: the latest snapshot per instrument. The feed
// writes to it; everything else only reads. Update listeners let consumers
// treat a price change as a recomputation trigger.
type Cache struct {
	mu        sync.RWMutex
	records   map[string]models.LivePriceRecord
	listeners []func(models.LivePriceRecord)
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{records: make(map[string]models.LivePriceRecord)}
}

// Set stores the latest snapshot for an instrument and notifies listeners.
func (c *Cache) Set(rec models.LivePriceRecord) {
	rec.Code = strings.ToUpper(strings.TrimSpace(rec.Code))
	if rec.Code == "" {
		return
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}

	c.mu.Lock()
	c.records[rec.Code] = rec
	listeners := c.listeners
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(rec)
	}
}

// SetAll stores a batch of snapshots.
func (c *Cache) SetAll(recs []models.LivePriceRecord) {
	for _, rec := range recs {
		c.Set(rec)
	}
}

// Get returns the latest snapshot for a code.
func (c *Cache) Get(code string) (models.LivePriceRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.records[strings.ToUpper(code)]
	return rec, ok
}

// Snapshot returns a copy of the full cache. The copy is safe to read for the
// duration of a recomputation pass while the feed keeps writing.
func (c *Cache) Snapshot() map[string]models.LivePriceRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]models.LivePriceRecord, len(c.records))
	for code, rec := range c.records {
		out[code] = rec
	}
	return out
}

// Codes returns all cached instrument codes, sorted.
func (c *Cache) Codes() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	codes := make([]string, 0, len(c.records))
	for code := range c.records {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Len returns the number of cached instruments.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// OnUpdate registers a listener invoked after every stored update. Listeners
// must not block.
func (c *Cache) OnUpdate(fn func(models.LivePriceRecord)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}
