package biassignals

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/polypulse/engine/internal/domain"
)

func TestWALStore_RecentFiltersByAge(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	now := time.Now().UTC()

	require.NoError(t, store.Append(domain.BiasSignal{
		Timestamp: now.Add(-5 * time.Minute), Symbol: "BTC", Side: "LONG", Confidence: 0.8,
	}))
	require.NoError(t, store.Append(domain.BiasSignal{
		Timestamp: now.Add(-2 * time.Hour), Symbol: "ETH", Side: "SHORT", Confidence: 0.6,
	}))

	recent, err := store.Recent(30*time.Minute, now)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	require.Equal(t, "BTC", recent[0].Symbol)
	require.Equal(t, 0.8, recent[0].Confidence)
}

func TestWALStore_RecentEmptyLog(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	recent, err := store.Recent(time.Hour, time.Now())
	require.NoError(t, err)
	require.Empty(t, recent)
}

func TestWALStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	now := time.Now().UTC()

	store, err := NewWALStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Append(domain.BiasSignal{Timestamp: now, Symbol: "SOL", Side: "BUY", Confidence: 1}))
	require.NoError(t, store.Close())

	reopened, err := NewWALStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	recent, err := reopened.Recent(time.Hour, now)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	require.Equal(t, "SOL", recent[0].Symbol)
}
