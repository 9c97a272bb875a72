// Package signallog persists the per-cycle scored signal audit log, one row
// per asset per cycle.
package signallog

import (
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"github.com/polypulse/engine/internal/domain"
)

const (
	keyPrefix    = "signal_"
	segmentLimit = 1000
	maxSegments  = 100
)

// WALStore is the signal audit log.
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
		return nil, errors.Wrap(err, "init signal WAL")
	}
	return &WALStore{wal: wal}, nil
}

// AppendBatch writes one row per signal, all stamped with the same cycle
// timestamp.
func (s *WALStore) AppendBatch(rows []domain.SignalRow) error {
	if s == nil || s.wal == nil {
		return errors.New("signal log is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range rows {
		payload, err := json.Marshal(row)
		if err != nil {
			return errors.Wrap(err, "marshal signal row")
		}

		nextIndex := s.wal.CurrentIndex() + 1
		if err := s.wal.Write(nextIndex, keyPrefix+row.Signal.MarketID, payload); err != nil {
			return errors.Wrapf(err, "append signal row for %s", row.Signal.MarketID)
		}
	}
	return nil
}

// RowsAfter returns all rows written after the provided index, in order.
func (s *WALStore) RowsAfter(index uint64) ([]domain.SignalRowRecord, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("signal log is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}

	records := make([]domain.SignalRowRecord, 0, current-index)
	for idx := index + 1; idx <= current; idx++ {
		_, payload, err := s.wal.Get(idx)
		if err != nil {
			continue
		}

		var row domain.SignalRow
		if err := json.Unmarshal(payload, &row); err != nil {
			return nil, errors.Wrap(err, "decode signal row")
		}
		records = append(records, domain.SignalRowRecord{Index: idx, Row: row})
	}
	return records, nil
}

// currentIndex returns the latest index stored.
func (s *WALStore) currentIndex() uint64 {
	if s == nil || s.wal == nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.wal.CurrentIndex()
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
