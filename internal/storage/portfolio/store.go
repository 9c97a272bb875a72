// Package portfolio persists per-profile portfolio state documents so
// bankrolls and open positions survive restarts.
package portfolio

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/polypulse/engine/internal/domain"
)

// Store reads and writes one JSON document per profile. Whole-document
// writes with no concurrent-writer protection; a profile is assumed to have
// a single writer at a time.
type Store struct {
	dir string
}

// NewStore creates the store under dir, creating the directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create portfolio state dir")
	}
	return &Store{dir: dir}, nil
}

// Load returns the profile's state, seeding a fresh document with the given
// bankroll on first access.
func (s *Store) Load(profile string, seedBankroll decimal.Decimal) (domain.PortfolioState, error) {
	payload, err := os.ReadFile(s.path(profile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			state := domain.NewPortfolioState(seedBankroll, time.Now().UTC())
			if err := s.Save(profile, state); err != nil {
				return domain.PortfolioState{}, err
			}
			return state, nil
		}
		return domain.PortfolioState{}, errors.Wrapf(err, "read portfolio state for %s", profile)
	}

	var state domain.PortfolioState
	if err := json.Unmarshal(payload, &state); err != nil {
		return domain.PortfolioState{}, errors.Wrapf(err, "decode portfolio state for %s", profile)
	}
	if state.OpenPositions == nil {
		state.OpenPositions = []domain.Position{}
	}
	return state, nil
}

// Save overwrites the profile's document atomically via temp file and
// stamps UpdatedAt.
func (s *Store) Save(profile string, state domain.PortfolioState) error {
	state.UpdatedAt = time.Now().UTC()

	payload, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "encode portfolio state for %s", profile)
	}

	path := s.path(profile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return errors.Wrapf(err, "write portfolio state temp file for %s", profile)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrapf(err, "persist portfolio state for %s", profile)
	}
	return nil
}

// Exists reports whether the profile has a persisted document.
func (s *Store) Exists(profile string) bool {
	_, err := os.Stat(s.path(profile))
	return err == nil
}

func (s *Store) path(profile string) string {
	return filepath.Join(s.dir, fmt.Sprintf("state.%s.json", sanitizeProfile(profile)))
}

func sanitizeProfile(profile string) string {
	profile = strings.TrimSpace(strings.ToLower(profile))
	if profile == "" {
		return "default"
	}

	var b strings.Builder
	for _, r := range profile {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}
