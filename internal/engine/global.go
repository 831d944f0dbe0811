package engine

import (
	"math"
	"sort"
	"time"

	"market-scanner/internal/models"
)

const (
	// hydrateMoverLimit caps the client-side hydration at the top movers
	// per direction when the backend movers scan is absent or sparse.
	hydrateMoverLimit = 500

	// hydrateHiloLimit caps the client-side hydration per 52-week band.
	hydrateHiloLimit = 2500
)

// MoverBoards are the market-wide gainer and loser lists.
type MoverBoards struct {
	Up   []models.Hit
	Down []models.Hit
}

// HiloBoards are the market-wide 52-week high and low lists.
type HiloBoards struct {
	High []models.Hit
	Low  []models.Hit
}

// GlobalResult is the market-wide alert board.
type GlobalResult struct {
	Movers MoverBoards
	Hilo   HiloBoards
}

// GlobalAggregator merges the backend-wide scan results with the user's own
// qualifying hits into the market-wide board. Unlike local evaluation, the
// global board always enforces sector and min-price rules: the watchlist
// override is forced off before filtering, so merged-in local data can only
// satisfy the numeric thresholds.
type GlobalAggregator struct {
	Eval   *Evaluator
	Prices map[string]models.LivePriceRecord
	Stamps *StampCache
	Now    time.Time
}

// Aggregate builds the global board from the normalized mover and 52-week
// documents plus the user's own generated hits. When a document is sparse or
// unavailable it is hydrated client-side from the live-price cache.
func (a *GlobalAggregator) Aggregate(movers, hilo, local []models.Hit, rules models.ScannerRules, strict bool) GlobalResult {
	globalRules := rules.WithoutOverride()
	opts := EvalOptions{Global: true, Strict: strict}

	var res GlobalResult
	if rules.MoversOn() {
		if len(movers) == 0 {
			movers = a.hydrateMovers()
		}
		combined := mergeOwn(movers, local, models.IntentMover)
		kept := a.Eval.FilterHits(combined, globalRules, opts)
		up, down := splitByDirection(kept)
		a.sortMovers(up, globalRules)
		a.sortMovers(down, globalRules)
		res.Movers = MoverBoards{Up: up, Down: down}
	}
	if rules.HiloOn() {
		if len(hilo) == 0 {
			hilo = a.hydrateHilo()
		}
		combined := mergeOwn(hilo, local, models.IntentHiloHigh, models.IntentHiloLow)
		kept := a.Eval.FilterHits(combined, globalRules, opts)
		kept = a.stripStillHilo(kept)
		high, low := splitHilo(kept)
		a.sortHilo(high)
		a.sortHilo(low)
		res.Hilo = HiloBoards{High: high, Low: low}
	}
	return res
}

// mergeOwn folds the user's own qualifying hits of the wanted intents into
// the backend list, flagged local so the user never misses their holdings on
// the global view. Deduplication is per code: a local hit replaces a backend
// one for the same instrument because it reflects the freshest live price.
func mergeOwn(backend, local []models.Hit, intents ...models.Intent) []models.Hit {
	wanted := make(map[models.Intent]struct{}, len(intents))
	for _, in := range intents {
		wanted[in] = struct{}{}
	}

	index := make(map[string]int, len(backend))
	merged := make([]models.Hit, 0, len(backend)+len(local))
	for _, h := range backend {
		if _, dup := index[h.Code]; dup {
			continue
		}
		index[h.Code] = len(merged)
		merged = append(merged, h)
	}
	for _, h := range local {
		if _, ok := wanted[h.Intent]; !ok {
			continue
		}
		h.IsLocal = true
		h.Bypass = false
		if i, dup := index[h.Code]; dup {
			merged[i] = h
			continue
		}
		index[h.Code] = len(merged)
		merged = append(merged, h)
	}
	return merged
}

// hydrateMovers ranks the entire live-price cache by movement and emits the
// top movers per direction as synthetic hits.
func (a *GlobalAggregator) hydrateMovers() []models.Hit {
	var up, down []models.Hit
	for _, code := range sortedCodes(a.Prices) {
		rec := a.Prices[code]
		h, ok := a.hydrated(rec, models.IntentMover)
		if !ok || h.Pct == 0 {
			continue
		}
		if h.Pct > 0 {
			up = append(up, h)
		} else {
			down = append(down, h)
		}
	}
	byPctMagnitude(up)
	byPctMagnitude(down)
	return append(capHits(up, hydrateMoverLimit), capHits(down, hydrateMoverLimit)...)
}

// hydrateHilo scans the live-price cache for instruments at their 52-week
// bounds and emits the top entries per band.
func (a *GlobalAggregator) hydrateHilo() []models.Hit {
	var high, low []models.Hit
	for _, code := range sortedCodes(a.Prices) {
		rec := a.Prices[code]
		if rec.High52 > 0 && rec.Live >= rec.High52-hiloTolerance {
			if h, ok := a.hydrated(rec, models.IntentHiloHigh); ok {
				high = append(high, h)
			}
		}
		if rec.Low52 > 0 && rec.Live > 0 && rec.Live <= rec.Low52+hiloTolerance {
			if h, ok := a.hydrated(rec, models.IntentHiloLow); ok {
				low = append(low, h)
			}
		}
	}
	byPctMagnitude(high)
	byPctMagnitude(low)
	return append(capHits(high, hydrateHiloLimit), capHits(low, hydrateHiloLimit)...)
}

// hydrated builds one synthetic hit from a live-price record. Timestamps come
// from the stamp cache so hydrated boards stay stably ordered across passes.
func (a *GlobalAggregator) hydrated(rec models.LivePriceRecord, intent models.Intent) (models.Hit, bool) {
	if rec.Live <= 0 {
		return models.Hit{}, false
	}
	var pct, change float64
	if rec.PctChange != 0 || rec.Change != 0 {
		pct, change = rec.PctChange, rec.Change
	} else if rec.PrevClose > 0 {
		change = rec.Live - rec.PrevClose
		pct = change / rec.PrevClose * 100
	}
	h := models.Hit{
		Code:   rec.Code,
		Name:   rec.Name,
		Sector: rec.Sector,
		Price:  rec.Live,
		Change: change,
		Pct:    pct,
		High52: rec.High52,
		Low52:  rec.Low52,
		Intent: intent,
	}
	h.Direction = deriveDirection(h)
	h.Timestamp = a.Stamps.Stamp(h.Key(), a.Now)
	return h, true
}

// stripStillHilo removes 52-week entries whose live-computed movement is
// exactly zero: a backend snapshot can report a high/low hit that has since
// stopped moving.
func (a *GlobalAggregator) stripStillHilo(hits []models.Hit) []models.Hit {
	kept := make([]models.Hit, 0, len(hits))
	for _, h := range hits {
		pct := h.Pct
		if rec, ok := a.Prices[h.Code]; ok {
			if rec.PctChange != 0 {
				pct = rec.PctChange
			} else if rec.Live > 0 && rec.PrevClose > 0 {
				pct = (rec.Live - rec.PrevClose) / rec.PrevClose * 100
			} else {
				pct = 0
			}
		}
		if pct == 0 {
			continue
		}
		kept = append(kept, h)
	}
	return kept
}

// sortMovers applies the two-tier comparator: hits meeting the percent
// threshold for their direction sort among themselves by percent magnitude
// descending with dollar magnitude breaking ties; the remainder sort below
// them by dollar magnitude descending.
func (a *GlobalAggregator) sortMovers(hits []models.Hit, rules models.ScannerRules) {
	meets := func(h models.Hit) bool {
		pct, _ := a.Eval.LiveMovement(h)
		rule := rules.RuleFor(h.Direction)
		return rule.PercentThreshold > 0 && math.Abs(pct) >= rule.PercentThreshold
	}
	sort.SliceStable(hits, func(i, j int) bool {
		x, y := hits[i], hits[j]
		mx, my := meets(x), meets(y)
		if mx != my {
			return mx
		}
		px, cx := a.Eval.LiveMovement(x)
		py, cy := a.Eval.LiveMovement(y)
		if mx {
			if math.Abs(px) != math.Abs(py) {
				return math.Abs(px) > math.Abs(py)
			}
		}
		if math.Abs(cx) != math.Abs(cy) {
			return math.Abs(cx) > math.Abs(cy)
		}
		return x.Code < y.Code
	})
}

// sortHilo orders a 52-week list purely by percent magnitude descending.
func (a *GlobalAggregator) sortHilo(hits []models.Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		px, _ := a.Eval.LiveMovement(hits[i])
		py, _ := a.Eval.LiveMovement(hits[j])
		if math.Abs(px) != math.Abs(py) {
			return math.Abs(px) > math.Abs(py)
		}
		return hits[i].Code < hits[j].Code
	})
}

func splitByDirection(hits []models.Hit) (up, down []models.Hit) {
	for _, h := range hits {
		if h.Direction == models.DirectionDown {
			down = append(down, h)
		} else {
			up = append(up, h)
		}
	}
	return up, down
}

func splitHilo(hits []models.Hit) (high, low []models.Hit) {
	for _, h := range hits {
		if h.Intent == models.IntentHiloLow {
			low = append(low, h)
		} else {
			high = append(high, h)
		}
	}
	return high, low
}

func byPctMagnitude(hits []models.Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if math.Abs(hits[i].Pct) != math.Abs(hits[j].Pct) {
			return math.Abs(hits[i].Pct) > math.Abs(hits[j].Pct)
		}
		return hits[i].Code < hits[j].Code
	})
}

func capHits(hits []models.Hit, limit int) []models.Hit {
	if len(hits) > limit {
		return hits[:limit]
	}
	return hits
}

func sortedCodes(prices map[string]models.LivePriceRecord) []string {
	codes := make([]string, 0, len(prices))
	for code := range prices {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
