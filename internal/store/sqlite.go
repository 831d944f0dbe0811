// Package store provides data persistence implementations.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"market-scanner/internal/errors"
	"market-scanner/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db        *sql.DB
	mu        sync.RWMutex
	syncTimes map[string]time.Time
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{
		db:        db,
		syncTimes: make(map[string]time.Time),
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := store.loadSyncTimes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load sync times: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Scan documents: the three backend scan feeds kept for offline work
	CREATE TABLE IF NOT EXISTS documents (
		name TEXT PRIMARY KEY,
		updated_at DATETIME NOT NULL,
		hits TEXT NOT NULL,
		stored_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Watchlist shares
	CREATE TABLE IF NOT EXISTS shares (
		code TEXT PRIMARY KEY,
		name TEXT,
		sector TEXT,
		target_price REAL DEFAULT 0,
		target_direction TEXT DEFAULT '',
		target_kind TEXT DEFAULT '',
		muted INTEGER DEFAULT 0,
		units REAL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Rules snapshots, newest row wins
	CREATE TABLE IF NOT EXISTS rules_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		rules TEXT NOT NULL,
		taken_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Alert log: every alert presented to the user
	CREATE TABLE IF NOT EXISTS alert_log (
		id TEXT PRIMARY KEY,
		at DATETIME NOT NULL,
		code TEXT NOT NULL,
		intent TEXT NOT NULL,
		direction TEXT NOT NULL,
		price REAL NOT NULL,
		change REAL NOT NULL,
		pct REAL NOT NULL,
		scope TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Sync times
	CREATE TABLE IF NOT EXISTS sync_times (
		data_type TEXT PRIMARY KEY,
		synced_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_alert_log_code ON alert_log(code);
	CREATE INDEX IF NOT EXISTS idx_alert_log_at ON alert_log(at);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) loadSyncTimes() error {
	rows, err := s.db.Query(`SELECT data_type, synced_at FROM sync_times`)
	if err != nil {
		return err
	}
	defer rows.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	for rows.Next() {
		var dataType string
		var syncedAt time.Time
		if err := rows.Scan(&dataType, &syncedAt); err != nil {
			return err
		}
		s.syncTimes[dataType] = syncedAt
	}
	return rows.Err()
}

// SaveDocument upserts one scan document, hits serialized as JSON.
func (s *SQLiteStore) SaveDocument(ctx context.Context, name string, doc models.ScanDocument) error {
	hits, err := json.Marshal(doc.Hits)
	if err != nil {
		return errors.Wrapf(err, "marshaling document %s", name)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (name, updated_at, hits) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET updated_at = excluded.updated_at, hits = excluded.hits
	`, name, doc.UpdatedAt, string(hits))
	if err != nil {
		return errors.Wrapf(err, "saving document %s", name)
	}
	return nil
}

// GetDocument returns one scan document by name.
func (s *SQLiteStore) GetDocument(ctx context.Context, name string) (models.ScanDocument, error) {
	var doc models.ScanDocument
	var hits string

	row := s.db.QueryRowContext(ctx, `SELECT updated_at, hits FROM documents WHERE name = ?`, name)
	if err := row.Scan(&doc.UpdatedAt, &hits); err != nil {
		if err == sql.ErrNoRows {
			return doc, errors.ErrDataNotFound
		}
		return doc, errors.Wrapf(err, "loading document %s", name)
	}

	if err := json.Unmarshal([]byte(hits), &doc.Hits); err != nil {
		return doc, errors.Wrapf(err, "decoding document %s", name)
	}
	return doc, nil
}

// SaveShare upserts one watchlist share.
func (s *SQLiteStore) SaveShare(ctx context.Context, share models.Share) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shares (code, name, sector, target_price, target_direction, target_kind, muted, units)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			name = excluded.name,
			sector = excluded.sector,
			target_price = excluded.target_price,
			target_direction = excluded.target_direction,
			target_kind = excluded.target_kind,
			muted = excluded.muted,
			units = excluded.units,
			updated_at = CURRENT_TIMESTAMP
	`, strings.ToUpper(share.Code), share.Name, share.Sector,
		share.TargetPrice, string(share.TargetDirection), string(share.TargetKind),
		boolToInt(share.Muted), share.Units)
	if err != nil {
		return errors.Wrapf(err, "saving share %s", share.Code)
	}
	return nil
}

// DeleteShare removes one watchlist share.
func (s *SQLiteStore) DeleteShare(ctx context.Context, code string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM shares WHERE code = ?`, strings.ToUpper(code))
	if err != nil {
		return errors.Wrapf(err, "deleting share %s", code)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.ErrShareNotFound
	}
	return nil
}

// GetShares returns all watchlist shares sorted by code.
func (s *SQLiteStore) GetShares(ctx context.Context) ([]models.Share, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT code, name, sector, target_price, target_direction, target_kind, muted, units
		FROM shares ORDER BY code
	`)
	if err != nil {
		return nil, errors.Wrap(err, "loading shares")
	}
	defer rows.Close()

	var shares []models.Share
	for rows.Next() {
		var share models.Share
		var dir, kind string
		var muted int
		if err := rows.Scan(&share.Code, &share.Name, &share.Sector,
			&share.TargetPrice, &dir, &kind, &muted, &share.Units); err != nil {
			return nil, errors.Wrap(err, "scanning share")
		}
		share.TargetDirection = models.TargetDirection(dir)
		share.TargetKind = models.TargetKind(kind)
		share.Muted = muted != 0
		shares = append(shares, share)
	}
	return shares, rows.Err()
}

// SaveRulesSnapshot appends a rules snapshot.
func (s *SQLiteStore) SaveRulesSnapshot(ctx context.Context, rules models.ScannerRules) error {
	data, err := json.Marshal(rules)
	if err != nil {
		return errors.Wrap(err, "marshaling rules")
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO rules_snapshots (rules) VALUES (?)`, string(data))
	if err != nil {
		return errors.Wrap(err, "saving rules snapshot")
	}
	return nil
}

// GetLatestRulesSnapshot returns the most recent rules snapshot.
func (s *SQLiteStore) GetLatestRulesSnapshot(ctx context.Context) (models.ScannerRules, error) {
	var rules models.ScannerRules
	var data string

	row := s.db.QueryRowContext(ctx, `SELECT rules FROM rules_snapshots ORDER BY id DESC LIMIT 1`)
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return rules, errors.ErrDataNotFound
		}
		return rules, errors.Wrap(err, "loading rules snapshot")
	}
	if err := json.Unmarshal([]byte(data), &rules); err != nil {
		return rules, errors.Wrap(err, "decoding rules snapshot")
	}
	return rules, nil
}

// LogAlert appends one presented alert to the log.
func (s *SQLiteStore) LogAlert(ctx context.Context, entry models.AlertLogEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alert_log (id, at, code, intent, direction, price, change, pct, scope)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.At, entry.Code, string(entry.Intent), string(entry.Direction),
		entry.Price, entry.Change, entry.Pct, entry.Scope)
	if err != nil {
		return errors.Wrapf(err, "logging alert %s", entry.Code)
	}
	return nil
}

// GetAlertLog queries the alert log, newest first.
func (s *SQLiteStore) GetAlertLog(ctx context.Context, filter AlertLogFilter) ([]models.AlertLogEntry, error) {
	query := `SELECT id, at, code, intent, direction, price, change, pct, scope FROM alert_log WHERE 1=1`
	var args []interface{}

	if filter.Code != "" {
		query += ` AND code = ?`
		args = append(args, strings.ToUpper(filter.Code))
	}
	if filter.Scope != "" {
		query += ` AND scope = ?`
		args = append(args, filter.Scope)
	}
	if !filter.Since.IsZero() {
		query += ` AND at >= ?`
		args = append(args, filter.Since)
	}
	query += ` ORDER BY at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying alert log")
	}
	defer rows.Close()

	var entries []models.AlertLogEntry
	for rows.Next() {
		var e models.AlertLogEntry
		var intent, direction string
		if err := rows.Scan(&e.ID, &e.At, &e.Code, &intent, &direction,
			&e.Price, &e.Change, &e.Pct, &e.Scope); err != nil {
			return nil, errors.Wrap(err, "scanning alert log entry")
		}
		e.Intent = models.Intent(intent)
		e.Direction = models.Direction(direction)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetLastSync returns the last sync time for a data type.
func (s *SQLiteStore) GetLastSync(dataType string) time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.syncTimes[dataType]
}

// SetLastSync records the last sync time for a data type.
func (s *SQLiteStore) SetLastSync(dataType string, t time.Time) error {
	s.mu.Lock()
	s.syncTimes[dataType] = t
	s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO sync_times (data_type, synced_at) VALUES (?, ?)
		ON CONFLICT(data_type) DO UPDATE SET synced_at = excluded.synced_at
	`, dataType, t)
	return err
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
