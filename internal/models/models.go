// Package models provides domain models for the scanner application.
package models

import (
	"time"
)

// InstrumentType classifies a listed instrument.
type InstrumentType string

const (
	InstrumentShare InstrumentType = "SHARE"
	InstrumentETF   InstrumentType = "ETF"
	InstrumentIndex InstrumentType = "INDEX"
)

// Direction represents the direction of a price movement.
type Direction string

const (
	DirectionUp      Direction = "up"
	DirectionDown    Direction = "down"
	DirectionNeutral Direction = "neutral"
)

// DirectionOf derives a movement direction from a signed percent or dollar
// change. Mover and hilo directions are never trusted from the source record;
// they are re-derived from the sign at evaluation time.
func DirectionOf(value float64) Direction {
	switch {
	case value > 0:
		return DirectionUp
	case value < 0:
		return DirectionDown
	default:
		return DirectionNeutral
	}
}

// TargetDirection is the side of a target price that triggers an alert.
type TargetDirection string

const (
	TargetAbove TargetDirection = "above"
	TargetBelow TargetDirection = "below"
)

// TargetKind is the buy/sell meaning attached to a target alert.
type TargetKind string

const (
	TargetBuy  TargetKind = "buy"
	TargetSell TargetKind = "sell"
)

// LivePriceRecord is the latest snapshot for one instrument as served by the
// live-price cache. The engine only ever reads these.
type LivePriceRecord struct {
	Code      string
	Name      string
	Sector    string
	Type      InstrumentType
	Live      float64
	PrevClose float64
	Change    float64
	PctChange float64
	High52    float64
	Low52     float64
	UpdatedAt time.Time
}

// Share is a user-owned watchlist entry.
type Share struct {
	Code            string          `yaml:"code"`
	Name            string          `yaml:"name,omitempty"`
	Sector          string          `yaml:"sector,omitempty"`
	TargetPrice     float64         `yaml:"target_price,omitempty"`
	TargetDirection TargetDirection `yaml:"target_direction,omitempty"`
	TargetKind      TargetKind      `yaml:"target_kind,omitempty"`
	Muted           bool            `yaml:"muted,omitempty"`
	Units           float64         `yaml:"units,omitempty"`
}

// HasTarget reports whether the share has a configured target price.
func (s Share) HasTarget() bool {
	return s.TargetPrice > 0 && (s.TargetDirection == TargetAbove || s.TargetDirection == TargetBelow)
}

// RawHit is one signal record as it appears in a scan document. Upstream
// producers have drifted over time, so the same fact can arrive under several
// field names; alias resolution happens in the normalizer and nowhere else.
type RawHit struct {
	Code      string `json:"code,omitempty"`
	ShareName string `json:"shareName,omitempty"`
	Symbol    string `json:"symbol,omitempty"`
	Ticker    string `json:"ticker,omitempty"`
	Name      string `json:"name,omitempty"`
	Sector    string `json:"sector,omitempty"`
	Industry  string `json:"industry,omitempty"`

	Price float64 `json:"price,omitempty"`
	Last  float64 `json:"last,omitempty"`
	Live  float64 `json:"live,omitempty"`

	Change        float64 `json:"change,omitempty"`
	ChangeAmount  float64 `json:"changeAmount,omitempty"`
	Pct           float64 `json:"pct,omitempty"`
	PctChange     float64 `json:"pctChange,omitempty"`
	Percent       float64 `json:"percent,omitempty"`
	ChangePercent float64 `json:"changePercent,omitempty"`

	High52 float64 `json:"high52,omitempty"`
	Low52  float64 `json:"low52,omitempty"`

	Intent    string `json:"intent,omitempty"`
	Type      string `json:"type,omitempty"`
	Kind      string `json:"kind,omitempty"`
	Direction string `json:"direction,omitempty"`

	Target          float64 `json:"target,omitempty"`
	TargetPrice     float64 `json:"targetPrice,omitempty"`
	TargetDirection string  `json:"targetDirection,omitempty"`
	BuySell         string  `json:"buySell,omitempty"`

	Timestamp int64  `json:"timestamp,omitempty"` // epoch milliseconds
	UserID    string `json:"userId,omitempty"`
	Bypass    bool   `json:"bypass,omitempty"`
}

// ScanDocument is one of the three backend scan documents: custom hits for a
// user, market-wide daily movers, or market-wide 52-week highs/lows.
type ScanDocument struct {
	UpdatedAt time.Time `json:"updatedAt"`
	Hits      []RawHit  `json:"hits"`
}

// Empty reports whether the document carries no hits.
func (d ScanDocument) Empty() bool {
	return len(d.Hits) == 0
}

// AlertLogEntry records one alert that was presented to the user.
type AlertLogEntry struct {
	ID        string
	At        time.Time
	Code      string
	Intent    Intent
	Direction Direction
	Price     float64
	Change    float64
	Pct       float64
	Scope     string // "local" or "global"
}
