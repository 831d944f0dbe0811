package models

import "time"

// Intent classifies what a hit is alerting about.
type Intent string

const (
	// IntentTarget is a watchlist target-price alert.
	IntentTarget Intent = "target"
	// IntentMover is a percent/dollar movement alert.
	IntentMover Intent = "mover"
	// IntentHiloHigh is a 52-week high alert.
	IntentHiloHigh Intent = "hilo-high"
	// IntentHiloLow is a 52-week low alert.
	IntentHiloLow Intent = "hilo-low"
)

// IsHilo reports whether the intent is a 52-week high or low.
func (i Intent) IsHilo() bool {
	return i == IntentHiloHigh || i == IntentHiloLow
}

// Priority orders intents when several hits for the same instrument are
// consolidated into one entry. Higher wins.
type Priority int

const (
	PriorityOther Priority = iota
	PriorityHilo
	PriorityMover
	PriorityTarget
)

// Priority returns the consolidation priority of the intent.
func (i Intent) Priority() Priority {
	switch i {
	case IntentTarget:
		return PriorityTarget
	case IntentMover:
		return PriorityMover
	case IntentHiloHigh, IntentHiloLow:
		return PriorityHilo
	default:
		return PriorityOther
	}
}

// Hit is one alert candidate in canonical shape. Everything downstream of the
// normalizer assumes this shape only.
type Hit struct {
	Code   string
	Name   string
	Sector string

	Price  float64
	Change float64
	Pct    float64
	High52 float64
	Low52  float64

	Intent    Intent
	Direction Direction

	Target          float64
	TargetDirection TargetDirection
	TargetKind      TargetKind

	// Timestamp is stable per logical alert key for the lifetime of the
	// session; sort order and new-since-viewed detection depend on it.
	Timestamp time.Time
	UserID    string

	Bypass  bool
	IsLocal bool
	Phantom bool

	// Matches holds the underlying raw hits consolidated into this entry,
	// set only after dedup.
	Matches []Hit
}

// Key identifies the logical alert this hit represents. Two hits with the
// same key are the same alert rebuilt on different recomputation passes.
func (h Hit) Key() string {
	return h.Code + "-" + string(h.Intent) + "-" + string(h.Direction)
}
