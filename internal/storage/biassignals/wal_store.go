// Package biassignals keeps the bounded append-only log of externally
// submitted bias signals.
package biassignals

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"github.com/polypulse/engine/internal/domain"
)

const (
	keyPrefix = "bias_"

	// Capacity is bounded at ~200 entries: old segments are dropped once
	// maxSegments*segmentLimit is exceeded.
	segmentLimit = 20
	maxSegments  = 10
)

// WALStore is the bias-signal ring log.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewWALStore opens (or creates) the log under dir.
func NewWALStore(dir string) (*WALStore, error) {
	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           keyPrefix,
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init bias signal WAL")
	}
	return &WALStore{wal: wal}, nil
}

// Append writes one normalized signal. Signals are never updated or removed
// individually; aging out happens by segment rotation.
func (s *WALStore) Append(sig domain.BiasSignal) error {
	if s == nil || s.wal == nil {
		return errors.New("bias signal store is not initialized")
	}

	payload, err := json.Marshal(sig)
	if err != nil {
		return errors.Wrap(err, "marshal bias signal")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	return s.wal.Write(nextIndex, keyPrefix+sig.Symbol, payload)
}

// Recent returns the signals whose timestamp is within maxAge of now, oldest
// first.
func (s *WALStore) Recent(maxAge time.Duration, now time.Time) ([]domain.BiasSignal, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("bias signal store is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := now.Add(-maxAge)

	var out []domain.BiasSignal
	for msg := range s.wal.Iterator() {
		var sig domain.BiasSignal
		if err := json.Unmarshal(msg.Value, &sig); err != nil {
			continue
		}
		if sig.Timestamp.Before(cutoff) {
			continue
		}
		out = append(out, sig)
	}
	return out, nil
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
