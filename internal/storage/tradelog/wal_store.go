// Package tradelog persists the append-only audit log of position opens and
// closes, one logical write per event.
package tradelog

import (
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"github.com/polypulse/engine/internal/domain"
)

const (
	keyPrefix    = "trade_"
	segmentLimit = 1000
	maxSegments  = 100
)

// WALStore is the trade audit log.
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
		return nil, errors.Wrap(err, "init trade WAL")
	}
	return &WALStore{wal: wal}, nil
}

// Append writes one immutable audit row.
func (s *WALStore) Append(row domain.TradeRecord) error {
	if s == nil || s.wal == nil {
		return errors.New("trade log is not initialized")
	}
	if row.MarketID == "" {
		return errors.New("trade record market id is required")
	}

	payload, err := json.Marshal(row)
	if err != nil {
		return errors.Wrap(err, "marshal trade record")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	return s.wal.Write(nextIndex, keyPrefix+row.MarketID, payload)
}

// RowsAfter returns all rows written after the provided index, in order.
func (s *WALStore) RowsAfter(index uint64) ([]domain.TradeRecordRecord, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("trade log is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}

	records := make([]domain.TradeRecordRecord, 0, current-index)
	for idx := index + 1; idx <= current; idx++ {
		_, payload, err := s.wal.Get(idx)
		if err != nil {
			continue
		}

		var row domain.TradeRecord
		if err := json.Unmarshal(payload, &row); err != nil {
			return nil, errors.Wrap(err, "decode trade record")
		}
		records = append(records, domain.TradeRecordRecord{Index: idx, Row: row})
	}
	return records, nil
}

// All returns every retained row, oldest first.
func (s *WALStore) All() ([]domain.TradeRecord, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("trade log is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.TradeRecord
	for msg := range s.wal.Iterator() {
		var row domain.TradeRecord
		if err := json.Unmarshal(msg.Value, &row); err != nil {
			continue
		}
		out = append(out, row)
	}
	return out, nil
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
