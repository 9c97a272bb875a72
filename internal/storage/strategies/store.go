// Package strategies persists the registry of scoring parameter sets.
//
// The registry is a single JSON document: every mutation loads the whole
// file, updates it and writes it back atomically. Last writer wins; the
// process is assumed to be the only writer.
package strategies

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/polypulse/engine/internal/domain"
)

// ErrUnknownStrategy is returned by SetActive for an id not in the registry.
var ErrUnknownStrategy = errors.New("unknown strategy")

const registryFileName = "strategies.json"

// Registry is the stored document: all configs plus the active-id pointer.
type Registry struct {
	Active     string                  `json:"active"`
	Strategies []domain.StrategyConfig `json:"strategies"`
}

// Store is a file-backed strategy registry.
type Store struct {
	path string
}

// NewStore creates the store under dir, creating the directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create strategies dir")
	}
	return &Store{path: filepath.Join(dir, registryFileName)}, nil
}

// List returns the whole registry, seeding it with the default strategy on
// first use.
func (s *Store) List() (Registry, error) {
	return s.load()
}

// Add upserts a config by normalized id, filling missing params with
// defaults. The active pointer is left untouched.
func (s *Store) Add(cfg domain.StrategyConfig) (domain.StrategyConfig, error) {
	reg, err := s.load()
	if err != nil {
		return domain.StrategyConfig{}, err
	}

	normalized := domain.StrategyConfig{
		ID:      domain.NormalizeStrategyID(cfg.ID, cfg.Name, time.Now()),
		Name:    cfg.Name,
		Enabled: cfg.Enabled,
		Params:  cfg.Params.FillDefaults(),
	}
	if normalized.Name == "" {
		normalized.Name = normalized.ID
	}

	kept := reg.Strategies[:0]
	for _, existing := range reg.Strategies {
		if existing.ID != normalized.ID {
			kept = append(kept, existing)
		}
	}
	reg.Strategies = append(kept, normalized)

	if err := s.save(reg); err != nil {
		return domain.StrategyConfig{}, err
	}
	return normalized, nil
}

// SetActive moves the active pointer. Fails with ErrUnknownStrategy when the
// id is not registered; nothing is mutated in that case.
func (s *Store) SetActive(strategyID string) (Registry, error) {
	reg, err := s.load()
	if err != nil {
		return Registry{}, err
	}

	found := false
	for _, cfg := range reg.Strategies {
		if cfg.ID == strategyID {
			found = true
			break
		}
	}
	if !found {
		return Registry{}, errors.Wrapf(ErrUnknownStrategy, "id %s", strategyID)
	}

	reg.Active = strategyID
	if err := s.save(reg); err != nil {
		return Registry{}, err
	}
	return reg, nil
}

// Active resolves the active pointer. A dangling pointer falls back to the
// first available config; callers never receive "no config".
func (s *Store) Active() (domain.StrategyConfig, error) {
	reg, err := s.load()
	if err != nil {
		return domain.StrategyConfig{}, err
	}

	for _, cfg := range reg.Strategies {
		if cfg.ID == reg.Active {
			return cfg, nil
		}
	}
	if len(reg.Strategies) > 0 {
		return reg.Strategies[0], nil
	}
	return domain.DefaultStrategy(), nil
}

func (s *Store) load() (Registry, error) {
	payload, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			seeded := Registry{
				Active:     domain.DefaultStrategy().ID,
				Strategies: []domain.StrategyConfig{domain.DefaultStrategy()},
			}
			if err := s.save(seeded); err != nil {
				return Registry{}, err
			}
			return seeded, nil
		}
		return Registry{}, errors.Wrap(err, "read strategy registry")
	}

	var reg Registry
	if err := json.Unmarshal(payload, &reg); err != nil {
		return Registry{}, errors.Wrap(err, "decode strategy registry")
	}
	return reg, nil
}

func (s *Store) save(reg Registry) error {
	payload, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode strategy registry")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return errors.Wrap(err, "write strategy registry temp file")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrap(err, "persist strategy registry")
	}
	return nil
}
