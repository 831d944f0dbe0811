package engine

import (
	"sort"

	"market-scanner/internal/models"
)

// directionLockEpsilon is the tolerance, in percentage points, beyond which a
// hit's reported direction contradicting the live-computed one gets the hit
// rejected. It keeps a "gain" card from showing on an instrument now trending
// down.
const directionLockEpsilon = 0.01

// LocalResult is the user's own alert board. Pinned alerts are the
// consolidated target masters, shown regardless of the current filter state
// because their condition re-validates on every pass; Fresh is the freshly
// computed, filtered, deduplicated remainder.
type LocalResult struct {
	Pinned []models.Hit
	Fresh  []models.Hit
}

// LocalMerger combines backend custom hits with client-generated hits for the
// same user into one deduplicated, priority-consolidated board.
type LocalMerger struct {
	Eval *Evaluator
}

// Merge deduplicates per code and intent family, with client-generated hits
// taking precedence over backend hits for the same key because they reflect
// the freshest live price. Survivors are re-validated, then grouped per code
// with the highest-priority contributor becoming the displayed master record
// and every contributor retained in Matches.
func (m *LocalMerger) Merge(backend, generated []models.Hit, rules models.ScannerRules) LocalResult {
	covered := make(map[string]struct{}, len(generated))
	for _, h := range generated {
		covered[dedupKey(h)] = struct{}{}
	}

	// Client hits first so equal-priority consolidation favors them.
	combined := make([]models.Hit, 0, len(generated)+len(backend))
	combined = append(combined, generated...)
	for _, h := range backend {
		if _, dup := covered[dedupKey(h)]; dup {
			continue
		}
		combined = append(combined, h)
	}

	kept := make([]models.Hit, 0, len(combined))
	for _, h := range combined {
		h = m.refresh(h)
		if !m.Eval.Admit(h, rules, EvalOptions{}) {
			continue
		}
		if h.Intent == models.IntentTarget && !m.targetStillValid(h) {
			continue
		}
		if !m.directionHolds(h) {
			continue
		}
		if m.isPhantomHit(h) {
			continue
		}
		kept = append(kept, h)
	}

	masters := consolidate(kept)
	sortLocal(masters)

	res := LocalResult{}
	for _, h := range masters {
		if h.Intent == models.IntentTarget {
			res.Pinned = append(res.Pinned, h)
		} else {
			res.Fresh = append(res.Fresh, h)
		}
	}
	return res
}

// refresh re-anchors a hit on the current live price before final filtering.
func (m *LocalMerger) refresh(h models.Hit) models.Hit {
	rec, ok := m.Eval.Prices[h.Code]
	if !ok {
		return h
	}
	if rec.Live > 0 {
		h.Price = rec.Live
	}
	if rec.Live > 0 && rec.PrevClose > 0 {
		h.Change = rec.Live - rec.PrevClose
		h.Pct = h.Change / rec.PrevClose * 100
	}
	return h
}

// targetStillValid re-checks a target card against the current watchlist
// configuration, dropping stale cards whose condition no longer holds at the
// present price.
func (m *LocalMerger) targetStillValid(h models.Hit) bool {
	share, ok := m.Eval.Shares[h.Code]
	if !ok || !share.HasTarget() {
		return false
	}
	live := h.Price
	if rec, ok := m.Eval.Prices[h.Code]; ok && rec.Live > 0 {
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

// directionHolds locks a mover's reported direction to the live-computed one.
func (m *LocalMerger) directionHolds(h models.Hit) bool {
	if h.Intent != models.IntentMover {
		return true
	}
	pct, change := m.Eval.LiveMovement(h)
	if pct == 0 {
		pct = change
	}
	switch h.Direction {
	case models.DirectionUp:
		return pct >= -directionLockEpsilon
	case models.DirectionDown:
		return pct <= directionLockEpsilon
	default:
		return true
	}
}

// isPhantomHit applies the same integrity guard as the generator to hits
// arriving from the backend.
func (m *LocalMerger) isPhantomHit(h models.Hit) bool {
	rec, ok := m.Eval.Prices[h.Code]
	if !ok || rec.PrevClose <= 0 || rec.Live <= 0 {
		return false
	}
	computed := (rec.Live - rec.PrevClose) / rec.PrevClose * 100
	return isPhantom(rec.PctChange, computed)
}

// consolidate groups hits per code. The highest-priority contributor becomes
// the master record; on equal priority the earlier hit wins, which favors
// client-generated data because callers list it first. Every contributor is
// retained in the master's Matches, in arrival order.
func consolidate(hits []models.Hit) []models.Hit {
	order := make([]string, 0, len(hits))
	groups := make(map[string][]models.Hit, len(hits))
	for _, h := range hits {
		if _, seen := groups[h.Code]; !seen {
			order = append(order, h.Code)
		}
		groups[h.Code] = append(groups[h.Code], h)
	}

	masters := make([]models.Hit, 0, len(order))
	for _, code := range order {
		group := groups[code]
		master := group[0]
		for _, h := range group[1:] {
			if h.Intent.Priority() > master.Intent.Priority() {
				master = h
			}
		}
		master.Matches = make([]models.Hit, 0, len(group))
		for _, h := range group {
			h.Matches = nil
			master.Matches = append(master.Matches, h)
		}
		masters = append(masters, master)
	}
	return masters
}

// sortLocal orders the board newest first, breaking ties by intent priority
// then code. Stable timestamps make this order deterministic across passes.
func sortLocal(hits []models.Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.After(b.Timestamp)
		}
		if a.Intent.Priority() != b.Intent.Priority() {
			return a.Intent.Priority() > b.Intent.Priority()
		}
		return a.Code < b.Code
	})
}

// dedupKey identifies a hit's code and intent family for cross-source
// deduplication. Both hilo bands collapse onto one family so a backend
// 52-week record cannot duplicate a client-generated one for the same code.
func dedupKey(h models.Hit) string {
	family := string(h.Intent)
	if h.Intent.IsHilo() {
		family = "hilo"
	}
	return h.Code + "|" + family
}
