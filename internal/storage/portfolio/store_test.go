package portfolio

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/polypulse/engine/internal/domain"
)

func TestStore_LoadSeedsFreshProfile(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	require.False(t, store.Exists("sim_100"))

	state, err := store.Load("sim_100", decimal.NewFromInt(100))
	require.NoError(t, err)
	require.True(t, state.Bankroll.Equal(decimal.NewFromInt(100)))
	require.NotNil(t, state.OpenPositions)
	require.Empty(t, state.OpenPositions)
	require.True(t, store.Exists("sim_100"))
}

func TestStore_RoundTripWithPositions(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	state, err := store.Load("sim_1000", decimal.NewFromInt(1000))
	require.NoError(t, err)

	state.Bankroll = decimal.NewFromFloat(953.5)
	state.RealizedPnl = decimal.NewFromFloat(-6.5)
	state.ClosedTrades = 2
	state.Wins = 1
	state.Losses = 1
	state.OpenPositions = append(state.OpenPositions, domain.Position{
		ID:         "pos1",
		MarketID:   "BTCUSD",
		Side:       domain.ActionLong,
		Stake:      decimal.NewFromInt(40),
		Units:      decimal.NewFromFloat(0.0008),
		EntryPrice: decimal.NewFromInt(50000),
		OpenedAt:   time.Now().UTC(),
	})
	require.NoError(t, store.Save("sim_1000", state))

	loaded, err := store.Load("sim_1000", decimal.NewFromInt(1000))
	require.NoError(t, err)
	require.True(t, loaded.Bankroll.Equal(state.Bankroll))
	require.True(t, loaded.RealizedPnl.Equal(state.RealizedPnl))
	require.Equal(t, 2, loaded.ClosedTrades)
	require.Len(t, loaded.OpenPositions, 1)
	require.Equal(t, "BTCUSD", loaded.OpenPositions[0].MarketID)
	require.True(t, loaded.OpenPositions[0].Units.Equal(decimal.NewFromFloat(0.0008)))
	require.False(t, loaded.UpdatedAt.IsZero())
}

func TestStore_ProfilesAreIsolated(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	a, err := store.Load("sim_100", decimal.NewFromInt(100))
	require.NoError(t, err)
	a.Bankroll = decimal.NewFromInt(42)
	require.NoError(t, store.Save("sim_100", a))

	b, err := store.Load("sim_1000", decimal.NewFromInt(1000))
	require.NoError(t, err)
	require.True(t, b.Bankroll.Equal(decimal.NewFromInt(1000)))
}

func TestSanitizeProfile(t *testing.T) {
	require.Equal(t, "default", sanitizeProfile("  "))
	require.Equal(t, "sim_100", sanitizeProfile("SIM_100"))
	require.Equal(t, "a_b_c", sanitizeProfile("a/b c"))
}
