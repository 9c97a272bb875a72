package signallog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/polypulse/engine/internal/domain"
)

func TestWALStore_AppendBatchKeepsOrder(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ts := time.Now().UTC().Format(time.RFC3339)
	rows := []domain.SignalRow{
		{Timestamp: ts, Profile: "sim_100", Signal: domain.Signal{MarketID: "BTCUSD", Action: domain.ActionLong, FinalScore: 0.5}},
		{Timestamp: ts, Profile: "sim_100", Signal: domain.Signal{MarketID: "ETHUSD", Action: domain.ActionHold, FinalScore: 0.01}},
		{Timestamp: ts, Profile: "sim_100", Signal: domain.Signal{MarketID: "SOLUSD", Action: domain.ActionShort, FinalScore: -0.3}},
	}
	require.NoError(t, store.AppendBatch(rows))

	stored, err := store.RowsAfter(0)
	require.NoError(t, err)
	require.Len(t, stored, 3)
	require.Equal(t, "BTCUSD", stored[0].Row.Signal.MarketID)
	require.Equal(t, "SOLUSD", stored[2].Row.Signal.MarketID)
	require.Equal(t, ts, stored[2].Row.Timestamp)
	require.Equal(t, uint64(3), store.currentIndex())
}

func TestWALStore_RowsAfterHighIndexIsEmpty(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	rows, err := store.RowsAfter(10)
	require.NoError(t, err)
	require.Empty(t, rows)
}
