package engine

import (
	"time"

	"market-scanner/internal/models"
)

// BadgeCounts are the new-since-last-viewed counts for the two badge scopes.
type BadgeCounts struct {
	Total  int `json:"total"`
	Custom int `json:"custom"`
}

// ViewScope names a badge scope for MarkViewed.
type ViewScope string

const (
	// ScopeTotal covers the combined local and global alert sets.
	ScopeTotal ViewScope = "total"
	// ScopeCustom covers the user's own local alert set only.
	ScopeCustom ViewScope = "custom"
)

// countNew deduplicates hits by code, first occurrence winning, and counts
// the entries whose stable timestamp is newer than the last-viewed mark.
// Counting raw per-source hits would double-count consolidated instruments.
func countNew(since time.Time, sets ...[]models.Hit) int {
	seen := make(map[string]struct{})
	count := 0
	for _, hits := range sets {
		for _, h := range hits {
			if _, dup := seen[h.Code]; dup {
				continue
			}
			seen[h.Code] = struct{}{}
			if h.Timestamp.After(since) {
				count++
			}
		}
	}
	return count
}
