// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"market-scanner/internal/models"
)

// DataStore defines the interface for data persistence: scan documents for
// offline work, the watchlist, rules snapshots, and the alert log.
type DataStore interface {
	// Scan documents
	SaveDocument(ctx context.Context, name string, doc models.ScanDocument) error
	GetDocument(ctx context.Context, name string) (models.ScanDocument, error)

	// Watchlist
	SaveShare(ctx context.Context, share models.Share) error
	DeleteShare(ctx context.Context, code string) error
	GetShares(ctx context.Context) ([]models.Share, error)

	// Rules snapshots
	SaveRulesSnapshot(ctx context.Context, rules models.ScannerRules) error
	GetLatestRulesSnapshot(ctx context.Context) (models.ScannerRules, error)

	// Alert log
	LogAlert(ctx context.Context, entry models.AlertLogEntry) error
	GetAlertLog(ctx context.Context, filter AlertLogFilter) ([]models.AlertLogEntry, error)

	// Sync
	GetLastSync(dataType string) time.Time
	SetLastSync(dataType string, t time.Time) error

	// Lifecycle
	Close() error
}

// AlertLogFilter represents filters for querying the alert log.
type AlertLogFilter struct {
	Code  string
	Scope string
	Since time.Time
	Limit int
}
