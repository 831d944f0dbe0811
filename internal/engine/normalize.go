package engine

import (
	"regexp"
	"strings"
	"time"

	"market-scanner/internal/errors"
	"market-scanner/internal/models"
)

// marketSuffixRe matches exchange suffixes such as ".AX" or ".NZ" appended to
// instrument codes by some upstream producers.
var marketSuffixRe = regexp.MustCompile(`\.[A-Za-z]{1,4}$`)

// codeTokenRe extracts a bare 3-4 letter uppercase code token from free text.
var codeTokenRe = regexp.MustCompile(`\b[A-Z]{3,4}\b`)

// Normalizer canonicalizes raw signal records into the common Hit shape.
// All field-alias resolution lives here; downstream code assumes the
// canonical shape only.
type Normalizer struct {
	Prices map[string]models.LivePriceRecord
	Shares map[string]models.Share
}

// NewNormalizer creates a normalizer over a snapshot of the live-price cache
// and the user's watchlist.
func NewNormalizer(prices map[string]models.LivePriceRecord, shares map[string]models.Share) *Normalizer {
	return &Normalizer{Prices: prices, Shares: shares}
}

// NormalizeAll normalizes a batch of raw hits, dropping records with no
// resolvable code. A record without an identity cannot be displayed or
// deduplicated, so the drop is silent.
func (n *Normalizer) NormalizeAll(raws []models.RawHit) []models.Hit {
	hits := make([]models.Hit, 0, len(raws))
	for _, raw := range raws {
		h, err := n.Normalize(raw)
		if err != nil {
			continue
		}
		hits = append(hits, h)
	}
	return hits
}

// Normalize canonicalizes one raw signal record. It resolves the instrument
// code from the most specific field present, normalizes the intent aliases,
// and enriches missing fields from the live-price cache first and the
// watchlist second. Enrichment only fills fields the raw record lacks; an
// already-present non-zero raw value is never overwritten, with one
// exception: price is always refreshed to the live cache's current value,
// because the live price is the trust source for display and re-validation.
func (n *Normalizer) Normalize(raw models.RawHit) (models.Hit, error) {
	code := ResolveCode(raw)
	if code == "" {
		return models.Hit{}, errors.ErrNoCode
	}

	h := models.Hit{
		Code:   code,
		Name:   raw.Name,
		Sector: firstString(raw.Sector, raw.Industry),
		Price:  firstFloat(raw.Price, raw.Last, raw.Live),
		Change: firstFloat(raw.Change, raw.ChangeAmount),
		Pct:    firstFloat(raw.Pct, raw.PctChange, raw.Percent, raw.ChangePercent),
		High52: raw.High52,
		Low52:  raw.Low52,
		Target: firstFloat(raw.Target, raw.TargetPrice),
		UserID: raw.UserID,
		Bypass: raw.Bypass,
	}
	h.Intent = normalizeIntent(raw, h.Pct, h.Change)
	h.TargetDirection = normalizeTargetDirection(raw.TargetDirection)
	h.TargetKind = normalizeTargetKind(raw.BuySell)
	if raw.Timestamp > 0 {
		h.Timestamp = time.UnixMilli(raw.Timestamp)
	}

	rec, haveRec := n.Prices[code]
	share, haveShare := n.Shares[code]

	if haveRec {
		// Live price wins unconditionally.
		if rec.Live > 0 {
			h.Price = rec.Live
		}
		if h.Change == 0 {
			h.Change = rec.Change
		}
		if h.Pct == 0 {
			h.Pct = rec.PctChange
		}
		if h.High52 == 0 {
			h.High52 = rec.High52
		}
		if h.Low52 == 0 {
			h.Low52 = rec.Low52
		}
		if h.Name == "" {
			h.Name = rec.Name
		}
		if h.Sector == "" {
			h.Sector = rec.Sector
		}
	}
	if haveShare {
		if h.Name == "" {
			h.Name = share.Name
		}
		if h.Sector == "" {
			h.Sector = share.Sector
		}
		if h.Intent == models.IntentTarget {
			if h.Target == 0 {
				h.Target = share.TargetPrice
			}
			if h.TargetDirection == "" {
				h.TargetDirection = share.TargetDirection
			}
			if h.TargetKind == "" {
				h.TargetKind = share.TargetKind
			}
		}
	}

	h.Direction = deriveDirection(h)
	return h, nil
}

// ResolveCode resolves the canonical instrument code for a raw record: the
// most specific code field present wins, the market suffix is stripped, and
// as a last resort a 3-4 letter uppercase token is extracted from the
// free-text name field.
func ResolveCode(raw models.RawHit) string {
	for _, candidate := range []string{raw.Code, raw.ShareName, raw.Symbol, raw.Ticker} {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		return strings.ToUpper(marketSuffixRe.ReplaceAllString(candidate, ""))
	}
	if raw.Name != "" {
		if token := codeTokenRe.FindString(raw.Name); token != "" {
			return token
		}
	}
	return ""
}

// deriveDirection re-derives a hit's direction. Mover and hilo directions are
// never trusted from the source record: they come from the sign of the
// current movement. Target hits map their configured side onto a direction so
// the logical alert key stays stable while the condition persists.
func deriveDirection(h models.Hit) models.Direction {
	switch h.Intent {
	case models.IntentTarget:
		if h.TargetDirection == models.TargetBelow {
			return models.DirectionDown
		}
		return models.DirectionUp
	case models.IntentHiloHigh:
		return models.DirectionUp
	case models.IntentHiloLow:
		return models.DirectionDown
	default:
		if d := models.DirectionOf(h.Pct); d != models.DirectionNeutral {
			return d
		}
		return models.DirectionOf(h.Change)
	}
}

// normalizeIntent maps the drifted intent aliases onto the canonical set.
func normalizeIntent(raw models.RawHit, pct, change float64) models.Intent {
	v := strings.ToLower(firstString(raw.Intent, raw.Kind, raw.Type))
	switch v {
	case "target", "price-target", "price_target", "target-hit", "targethit":
		return models.IntentTarget
	case "mover", "move", "gainer", "loser", "momentum", "":
		return models.IntentMover
	case "hilo-high", "52w-high", "52week-high", "high", "year-high":
		return models.IntentHiloHigh
	case "hilo-low", "52w-low", "52week-low", "low", "year-low":
		return models.IntentHiloLow
	case "hilo", "52w", "52week", "year":
		// Bare hilo records carry the band in the direction field, or
		// failing that in the sign of the movement.
		d := strings.ToLower(raw.Direction)
		if d == "down" || d == "low" || (d == "" && (pct < 0 || change < 0)) {
			return models.IntentHiloLow
		}
		return models.IntentHiloHigh
	default:
		return models.IntentMover
	}
}

func normalizeTargetDirection(v string) models.TargetDirection {
	switch strings.ToLower(v) {
	case "above", "over", "up":
		return models.TargetAbove
	case "below", "under", "down":
		return models.TargetBelow
	default:
		return ""
	}
}

func normalizeTargetKind(v string) models.TargetKind {
	switch strings.ToLower(v) {
	case "buy", "b":
		return models.TargetBuy
	case "sell", "s":
		return models.TargetSell
	default:
		return ""
	}
}

func firstString(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func firstFloat(values ...float64) float64 {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}
