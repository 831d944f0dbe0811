package engine

import (
	"time"

	"market-scanner/internal/models"
)

const (
	// FreshnessWindow is the rolling window outside which time-expiring
	// hits are dropped.
	FreshnessWindow = 24 * time.Hour

	// targetEpsilon absorbs float noise when re-validating a target
	// condition against the live price.
	targetEpsilon = 0.0001
)

// StalenessFilter drops hits that have aged out of the freshness window.
// Target hits are the exception: they are condition-persistent rather than
// time-expiring, surviving any age while the instrument still has a
// configured target whose condition the live price satisfies, and dropping
// the moment it does not, however fresh the hit is.
type StalenessFilter struct {
	Prices map[string]models.LivePriceRecord
	Shares map[string]models.Share
	Now    time.Time
}

// Apply returns the hits that are still presentable.
func (f *StalenessFilter) Apply(hits []models.Hit) []models.Hit {
	kept := make([]models.Hit, 0, len(hits))
	for _, h := range hits {
		if f.Keep(h) {
			kept = append(kept, h)
		}
	}
	return kept
}

// Keep reports whether one hit survives the staleness pass.
func (f *StalenessFilter) Keep(h models.Hit) bool {
	if h.Intent == models.IntentTarget {
		return f.targetConditionHolds(h)
	}
	if h.Timestamp.IsZero() {
		// Legacy zombie: a record that predates timestamping can never
		// be aged, so it is removed unconditionally.
		return false
	}
	return f.Now.Sub(h.Timestamp) <= FreshnessWindow
}

// targetConditionHolds re-validates a target hit against the current
// watchlist configuration and live price.
func (f *StalenessFilter) targetConditionHolds(h models.Hit) bool {
	share, ok := f.Shares[h.Code]
	if !ok || !share.HasTarget() {
		return false
	}

	live := h.Price
	if rec, ok := f.Prices[h.Code]; ok && rec.Live > 0 {
		live = rec.Live
	}
	if live <= 0 {
		return false
	}

	if share.TargetDirection == models.TargetAbove {
		return live >= share.TargetPrice-targetEpsilon
	}
	return live <= share.TargetPrice+targetEpsilon
}
