package models

import "strings"

// DirectionRule holds the numeric thresholds for one movement direction.
// A zero threshold means that check is disabled, not "match anything".
type DirectionRule struct {
	PercentThreshold float64 `json:"percentThreshold" mapstructure:"percent_threshold"`
	DollarThreshold  float64 `json:"dollarThreshold" mapstructure:"dollar_threshold"`
}

// Configured reports whether at least one threshold is set for the direction.
func (r DirectionRule) Configured() bool {
	return r.PercentThreshold > 0 || r.DollarThreshold > 0
}

// ScannerRules is the per-user scanner configuration.
//
// Boolean toggles are pointers so that an absent value can default to true;
// ActiveFilters distinguishes nil (all sectors permitted) from an empty slice
// (block every non-bypassing item). That distinction must never be collapsed.
type ScannerRules struct {
	Up   DirectionRule `json:"up" mapstructure:"up"`
	Down DirectionRule `json:"down" mapstructure:"down"`

	MinPrice     float64 `json:"minPrice" mapstructure:"min_price"`
	HiloMinPrice float64 `json:"hiloMinPrice" mapstructure:"hilo_min_price"`

	MoversEnabled    *bool `json:"moversEnabled,omitempty" mapstructure:"movers_enabled"`
	HiloEnabled      *bool `json:"hiloEnabled,omitempty" mapstructure:"hilo_enabled"`
	PersonalEnabled  *bool `json:"personalEnabled,omitempty" mapstructure:"personal_enabled"`
	ExcludePortfolio *bool `json:"excludePortfolio,omitempty" mapstructure:"exclude_portfolio"`

	ActiveFilters []string `json:"activeFilters" mapstructure:"active_filters"`
	HiddenSectors []string `json:"hiddenSectors" mapstructure:"hidden_sectors"`
}

// MoversOn reports whether mover alerts are enabled (default true).
func (r ScannerRules) MoversOn() bool { return boolOr(r.MoversEnabled, true) }

// HiloOn reports whether 52-week alerts are enabled (default true).
func (r ScannerRules) HiloOn() bool { return boolOr(r.HiloEnabled, true) }

// PersonalOn reports whether personal/custom alerts are enabled (default true).
func (r ScannerRules) PersonalOn() bool { return boolOr(r.PersonalEnabled, true) }

// OverrideOn reports whether the watchlist override is active (default true).
// Under the override, watchlist-owned instruments bypass sector and min-price
// checks for local alerts; numeric thresholds are never bypassed.
func (r ScannerRules) OverrideOn() bool { return boolOr(r.ExcludePortfolio, true) }

// RuleFor returns the threshold rule for a movement direction. Neutral
// movement matches neither direction and gets an empty rule.
func (r ScannerRules) RuleFor(d Direction) DirectionRule {
	switch d {
	case DirectionUp:
		return r.Up
	case DirectionDown:
		return r.Down
	default:
		return DirectionRule{}
	}
}

// SectorAllowed applies the sector whitelist. A nil whitelist permits every
// sector; an empty one permits none.
func (r ScannerRules) SectorAllowed(sector string) bool {
	if r.ActiveFilters == nil {
		return true
	}
	for _, s := range r.ActiveFilters {
		if strings.EqualFold(s, sector) {
			return true
		}
	}
	return false
}

// SectorHidden applies the secondary deny-list.
func (r ScannerRules) SectorHidden(sector string) bool {
	for _, s := range r.HiddenSectors {
		if strings.EqualFold(s, sector) {
			return true
		}
	}
	return false
}

// WithoutOverride returns a copy of the rules with the watchlist override
// forced off. The global board always evaluates with this.
func (r ScannerRules) WithoutOverride() ScannerRules {
	off := false
	r.ExcludePortfolio = &off
	return r
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
