package engine

import (
	"math"
	"sort"
	"time"

	"market-scanner/internal/models"
)

const (
	// phantomDivergence and phantomFloor define a phantom record: the
	// feed-reported percent contradicts the independently computed one by
	// more than a full point while the instrument is essentially flat.
	phantomDivergence = 1.0
	phantomFloor      = 0.1

	// hiloTolerance is how close the live price must be to the cached
	// 52-week bound to count as at the bound.
	hiloTolerance = 0.001
)

// Generator synthesizes target, mover and 52-week hits directly from the
// live-price cache for the user's own watchlist. Client-generated signals
// guarantee watchlist-priority alerts independent of backend latency and
// cover the case where backend data is absent or sparse.
type Generator struct {
	Prices map[string]models.LivePriceRecord
	Shares map[string]models.Share
	Stamps *StampCache
	UserID string
	Now    time.Time
}

// Generate walks the watchlist and emits every alert the live prices justify
// under the current rules. Suppressed phantom records are returned separately
// so they stay distinguishable for diagnostics; they are never displayed.
func (g *Generator) Generate(rules models.ScannerRules) (hits, phantoms []models.Hit) {
	codes := make([]string, 0, len(g.Shares))
	for code := range g.Shares {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		share := g.Shares[code]
		rec, ok := g.Prices[code]
		if !ok || rec.Live <= 0 {
			continue
		}

		var pct, change float64
		if rec.PrevClose > 0 {
			change = rec.Live - rec.PrevClose
			pct = change / rec.PrevClose * 100
		}

		// A reported percent that contradicts the independently computed
		// one on a flat instrument is phantom data; suppress it rather
		// than surface a self-contradicting card.
		if rec.PrevClose > 0 && isPhantom(rec.PctChange, pct) {
			p := g.build(share, rec, models.IntentMover, pct, change)
			p.Phantom = true
			phantoms = append(phantoms, p)
			continue
		}

		// Static instruments generate nothing.
		if rec.PrevClose > 0 && change == 0 {
			continue
		}

		if rules.MoversOn() && meetsThreshold(rules, pct, change) {
			hits = append(hits, g.build(share, rec, models.IntentMover, pct, change))
		}
		if rules.PersonalOn() && share.HasTarget() && targetCrossedToday(share, rec) {
			h := g.build(share, rec, models.IntentTarget, pct, change)
			h.Target = share.TargetPrice
			h.TargetDirection = share.TargetDirection
			h.TargetKind = inferTargetKind(share)
			hits = append(hits, h)
		}
		if rules.HiloOn() && g.hiloAdmitted(rules, rec.Live) {
			if rec.High52 > 0 && rec.Live >= rec.High52-hiloTolerance {
				hits = append(hits, g.build(share, rec, models.IntentHiloHigh, pct, change))
			}
			if rec.Low52 > 0 && rec.Live <= rec.Low52+hiloTolerance {
				hits = append(hits, g.build(share, rec, models.IntentHiloLow, pct, change))
			}
		}
	}
	return hits, phantoms
}

// build assembles one client-generated hit. The timestamp comes from the
// stamp cache keyed on the logical alert, so a persisting alert keeps its
// first-seen time across every recomputation pass.
func (g *Generator) build(share models.Share, rec models.LivePriceRecord, intent models.Intent, pct, change float64) models.Hit {
	h := models.Hit{
		Code:   share.Code,
		Name:   firstString(rec.Name, share.Name),
		Sector: firstString(rec.Sector, share.Sector),
		Price:  rec.Live,
		Change: change,
		Pct:    pct,
		High52: rec.High52,
		Low52:  rec.Low52,
		Intent: intent,
		UserID: g.UserID,
	}
	h.Direction = deriveDirection(h)
	if intent == models.IntentTarget {
		h.TargetDirection = share.TargetDirection
		if share.TargetDirection == models.TargetBelow {
			h.Direction = models.DirectionDown
		} else {
			h.Direction = models.DirectionUp
		}
	}
	h.Timestamp = g.Stamps.Stamp(h.Key(), g.Now)
	return h
}

// hiloAdmitted applies the 52-week price floor, which the watchlist override
// can waive.
func (g *Generator) hiloAdmitted(rules models.ScannerRules, live float64) bool {
	if rules.HiloMinPrice <= 0 || live >= rules.HiloMinPrice {
		return true
	}
	return rules.OverrideOn()
}

// targetCrossedToday reports whether the configured target was crossed today
// specifically: the previous close sat on the opposite side of the target (or
// there was no previous close), and the live price is now beyond it. Merely
// being beyond the target does not qualify.
func targetCrossedToday(share models.Share, rec models.LivePriceRecord) bool {
	t := share.TargetPrice
	if share.TargetDirection == models.TargetAbove {
		wasBelow := rec.PrevClose == 0 || rec.PrevClose < t
		return wasBelow && rec.Live >= t-targetEpsilon
	}
	wasAbove := rec.PrevClose == 0 || rec.PrevClose > t
	return wasAbove && rec.Live <= t+targetEpsilon
}

// inferTargetKind maps an unlabeled target onto its trading meaning: a target
// below the market reads as a buy level, a target above as a sell level. An
// explicit flag always wins.
func inferTargetKind(share models.Share) models.TargetKind {
	if share.TargetKind != "" {
		return share.TargetKind
	}
	if share.TargetDirection == models.TargetBelow {
		return models.TargetBuy
	}
	return models.TargetSell
}

// isPhantom flags a reported percent that diverges from the computed one by
// more than phantomDivergence while the computed movement is under
// phantomFloor.
func isPhantom(reported, computed float64) bool {
	if reported == 0 {
		return false
	}
	return math.Abs(reported-computed) > phantomDivergence && math.Abs(computed) < phantomFloor
}
