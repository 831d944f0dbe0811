// Package watchlist manages the user's share list: the codes being watched,
// their target configuration, mute flags and held units.
package watchlist

import (
	"context"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"market-scanner/internal/errors"
	"market-scanner/internal/models"
	"market-scanner/internal/store"
)

// Store holds the watchlist in memory, persisting every mutation through the
// data store when one is attached.
type Store struct {
	mu     sync.RWMutex
	shares map[string]models.Share
	data   store.DataStore
	logger zerolog.Logger
}

// NewStore creates a watchlist store. data may be nil for a purely in-memory
// list.
func NewStore(data store.DataStore, logger zerolog.Logger) *Store {
	return &Store{
		shares: make(map[string]models.Share),
		data:   data,
		logger: logger,
	}
}

// Load populates the list from the data store.
func (s *Store) Load(ctx context.Context) error {
	if s.data == nil {
		return nil
	}
	shares, err := s.data.GetShares(ctx)
	if err != nil {
		return errors.Wrap(err, "loading watchlist")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shares = make(map[string]models.Share, len(shares))
	for _, share := range shares {
		s.shares[share.Code] = share
	}
	return nil
}

// Shares returns the watchlist sorted by code.
func (s *Store) Shares() []models.Share {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Share, 0, len(s.shares))
	for _, share := range s.shares {
		out = append(out, share)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Get returns one share by code.
func (s *Store) Get(code string) (models.Share, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	share, ok := s.shares[normalize(code)]
	return share, ok
}

// Codes returns the watched instrument codes, sorted.
func (s *Store) Codes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	codes := make([]string, 0, len(s.shares))
	for code := range s.shares {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// MutedSet returns the set of muted codes for O(1) mute checks.
func (s *Store) MutedSet() map[string]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	muted := make(map[string]struct{})
	for code, share := range s.shares {
		if share.Muted {
			muted[code] = struct{}{}
		}
	}
	return muted
}

// Add inserts or replaces a share.
func (s *Store) Add(ctx context.Context, share models.Share) error {
	share.Code = normalize(share.Code)
	if share.Code == "" {
		return errors.ErrNoCode
	}
	s.mu.Lock()
	s.shares[share.Code] = share
	s.mu.Unlock()
	return s.persist(ctx, share)
}

// Remove deletes a share by code.
func (s *Store) Remove(ctx context.Context, code string) error {
	code = normalize(code)
	s.mu.Lock()
	_, ok := s.shares[code]
	delete(s.shares, code)
	s.mu.Unlock()
	if !ok {
		return errors.ErrShareNotFound
	}
	if s.data != nil {
		return s.data.DeleteShare(ctx, code)
	}
	return nil
}

// SetTarget configures a target price on a share.
func (s *Store) SetTarget(ctx context.Context, code string, price float64, dir models.TargetDirection, kind models.TargetKind) error {
	return s.update(ctx, code, func(share *models.Share) {
		share.TargetPrice = price
		share.TargetDirection = dir
		share.TargetKind = kind
	})
}

// ClearTarget removes a share's target configuration.
func (s *Store) ClearTarget(ctx context.Context, code string) error {
	return s.update(ctx, code, func(share *models.Share) {
		share.TargetPrice = 0
		share.TargetDirection = ""
		share.TargetKind = ""
	})
}

// SetMuted flips a share's mute flag.
func (s *Store) SetMuted(ctx context.Context, code string, muted bool) error {
	return s.update(ctx, code, func(share *models.Share) {
		share.Muted = muted
	})
}

// SetUnits records the held units for a share.
func (s *Store) SetUnits(ctx context.Context, code string, units float64) error {
	return s.update(ctx, code, func(share *models.Share) {
		share.Units = units
	})
}

func (s *Store) update(ctx context.Context, code string, fn func(*models.Share)) error {
	code = normalize(code)
	s.mu.Lock()
	share, ok := s.shares[code]
	if !ok {
		s.mu.Unlock()
		return errors.ErrShareNotFound
	}
	fn(&share)
	s.shares[code] = share
	s.mu.Unlock()
	return s.persist(ctx, share)
}

func (s *Store) persist(ctx context.Context, share models.Share) error {
	if s.data == nil {
		return nil
	}
	return s.data.SaveShare(ctx, share)
}

// watchlistFile is the YAML import/export shape.
type watchlistFile struct {
	Shares []models.Share `yaml:"shares"`
}

// ImportYAML merges shares from a YAML file into the list and returns how
// many were imported.
func (s *Store) ImportYAML(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, errors.Wrapf(err, "reading %s", path)
	}

	var file watchlistFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return 0, errors.Wrapf(err, "parsing %s", path)
	}

	imported := 0
	for _, share := range file.Shares {
		if err := s.Add(ctx, share); err != nil {
			s.logger.Warn().Err(err).Str("code", share.Code).Msg("Skipping watchlist entry")
			continue
		}
		imported++
	}
	return imported, nil
}

// ExportYAML writes the list to a YAML file.
func (s *Store) ExportYAML(path string) error {
	file := watchlistFile{Shares: s.Shares()}
	data, err := yaml.Marshal(file)
	if err != nil {
		return errors.Wrap(err, "encoding watchlist")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	return nil
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
