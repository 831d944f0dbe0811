package engine

import (
	"math"

	"market-scanner/internal/models"
)

// EvalOptions tune one rule-evaluation pass.
type EvalOptions struct {
	// Strict additionally requires that at least one numeric threshold be
	// explicitly configured (or the watchlist override be active) before
	// any mover-type hit can pass. It prevents an unconfigured rule set
	// from silently admitting everything.
	Strict bool

	// Global marks evaluation for the market-wide board, where the noise
	// filter applies and callers are expected to have forced the watchlist
	// override off.
	Global bool
}

// Evaluator applies the per-user rule set to candidate hits. It is a pure
// function of the snapshot it was built over: the live-price cache, the
// watchlist and the muted set are read, never written.
type Evaluator struct {
	Prices map[string]models.LivePriceRecord
	Shares map[string]models.Share
	Muted  map[string]struct{}
}

// NewEvaluator creates an evaluator over one snapshot of upstream state.
func NewEvaluator(prices map[string]models.LivePriceRecord, shares map[string]models.Share, muted map[string]struct{}) *Evaluator {
	return &Evaluator{Prices: prices, Shares: shares, Muted: muted}
}

// FilterHits returns the subset of hits that currently satisfy the rule set.
// Checks short-circuit in a fixed order: zombie, min-price, noise, mute,
// sector whitelist, hidden sectors, numeric thresholds.
func (e *Evaluator) FilterHits(hits []models.Hit, rules models.ScannerRules, opts EvalOptions) []models.Hit {
	kept := make([]models.Hit, 0, len(hits))
	for _, h := range hits {
		if e.Admit(h, rules, opts) {
			kept = append(kept, h)
		}
	}
	return kept
}

// Admit applies the ordered rule checks to one hit.
func (e *Evaluator) Admit(h models.Hit, rules models.ScannerRules, opts EvalOptions) bool {
	bypass := e.bypassEligible(h, rules)

	// 1. Zombie check: a mover whose movement rounds to zero on both axes
	// is residue from a snapshot that has since gone flat. Targets are
	// condition-persistent and hilo hits carry their own meaning, so
	// neither can be a zombie.
	if !h.Intent.IsHilo() && h.Intent != models.IntentTarget && roundsToZero(h.Pct) && roundsToZero(h.Change) {
		return false
	}

	// 2. Global minimum price floor.
	if rules.MinPrice > 0 && h.Price < rules.MinPrice && !bypass {
		return false
	}

	// 3. Noise filter: ETFs and indexes are excluded from market-wide
	// result sets unless the user holds them.
	if opts.Global && e.isNoise(h.Code) && !e.owned(h.Code) {
		return false
	}

	// 4. Mute filter.
	if _, muted := e.Muted[h.Code]; muted {
		return false
	}

	// 5. Sector whitelist. nil permits everything; an empty whitelist is
	// a deliberate block-all and must not be defaulted away.
	sector := e.resolveSector(h)
	if rules.ActiveFilters != nil && !bypass && !rules.SectorAllowed(sector) {
		return false
	}

	// 6. Hidden sectors: a secondary deny-list independent of the whitelist.
	if rules.SectorHidden(sector) && !bypass {
		return false
	}

	// 7. Numeric thresholds. Target and hilo hits are explicit,
	// self-validating events and always pass.
	if h.Intent == models.IntentTarget || h.Intent.IsHilo() {
		return true
	}
	if opts.Strict && !rules.Up.Configured() && !rules.Down.Configured() && !rules.OverrideOn() {
		return false
	}
	pct, change := e.LiveMovement(h)
	return meetsThreshold(rules, pct, change)
}

// LiveMovement returns the hit's percent and dollar movement, preferring the
// live-price cache over the values attached to the hit, which may be stale.
func (e *Evaluator) LiveMovement(h models.Hit) (pct, change float64) {
	pct, change = h.Pct, h.Change
	rec, ok := e.Prices[h.Code]
	if !ok {
		return pct, change
	}
	if rec.PctChange != 0 {
		pct = rec.PctChange
	} else if rec.Live > 0 && rec.PrevClose > 0 {
		pct = (rec.Live - rec.PrevClose) / rec.PrevClose * 100
	}
	if rec.Change != 0 {
		change = rec.Change
	} else if rec.Live > 0 && rec.PrevClose > 0 {
		change = rec.Live - rec.PrevClose
	}
	return pct, change
}

// meetsThreshold applies the directional mover thresholds. Only a non-zero
// threshold can admit a hit; both zero means the direction is disabled, not
// "match anything".
func meetsThreshold(rules models.ScannerRules, pct, change float64) bool {
	dir := models.DirectionOf(pct)
	if dir == models.DirectionNeutral {
		dir = models.DirectionOf(change)
	}
	rule := rules.RuleFor(dir)
	if rule.PercentThreshold > 0 && math.Abs(pct) >= rule.PercentThreshold {
		return true
	}
	if rule.DollarThreshold > 0 && math.Abs(change) >= rule.DollarThreshold {
		return true
	}
	return false
}

// bypassEligible reports whether a hit skips the sector and min-price checks:
// target hits always do, as do explicitly flagged hits and watchlist-owned
// instruments while the override is active. Numeric thresholds are never
// bypassed.
func (e *Evaluator) bypassEligible(h models.Hit, rules models.ScannerRules) bool {
	if h.Intent == models.IntentTarget || h.Bypass {
		return true
	}
	return e.owned(h.Code) && rules.OverrideOn()
}

func (e *Evaluator) owned(code string) bool {
	_, ok := e.Shares[code]
	return ok
}

func (e *Evaluator) isNoise(code string) bool {
	rec, ok := e.Prices[code]
	if !ok {
		return false
	}
	return rec.Type == models.InstrumentETF || rec.Type == models.InstrumentIndex
}

// resolveSector resolves a hit's sector from the hit itself, then the
// live-price cache, then the watchlist, in that order.
func (e *Evaluator) resolveSector(h models.Hit) string {
	if h.Sector != "" {
		return h.Sector
	}
	if rec, ok := e.Prices[h.Code]; ok && rec.Sector != "" {
		return rec.Sector
	}
	if share, ok := e.Shares[h.Code]; ok {
		return share.Sector
	}
	return ""
}

// roundsToZero reports whether a value rounds to exactly zero at two-decimal
// display precision.
func roundsToZero(v float64) bool {
	return math.Round(v*100) == 0
}
