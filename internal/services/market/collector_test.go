package market

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/polypulse/engine/internal/domain"
)

type fetcherStub struct {
	failing map[string]bool
}

func (f *fetcherStub) Name() string { return "stub" }

func (f *fetcherStub) FetchQuote(ctx context.Context, entry UniverseEntry) (domain.AssetSnapshot, error) {
	if f.failing[entry.Label] {
		return domain.AssetSnapshot{}, errors.New("boom")
	}
	return domain.AssetSnapshot{Label: entry.Label, Class: entry.Class, Price: 100}, nil
}

func TestCollector_FetchDropsFailedSymbols(t *testing.T) {
	universe := []UniverseEntry{
		{Symbol: "BTC-USD", Label: "BTCUSD", Class: domain.ClassCrypto},
		{Symbol: "ETH-USD", Label: "ETHUSD", Class: domain.ClassCrypto},
		{Symbol: "EURUSD=X", Label: "EURUSD", Class: domain.ClassForex},
	}
	c := NewCollector(&fetcherStub{failing: map[string]bool{"ETHUSD": true}}, universe, zap.NewNop())

	tape, err := c.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, tape, 2)

	byLabel := domain.TapeByLabel(tape)
	require.Contains(t, byLabel, "BTCUSD")
	require.Contains(t, byLabel, "EURUSD")
	require.NotContains(t, byLabel, "ETHUSD")
}

func TestCollector_FetchPreservesUniverseOrder(t *testing.T) {
	c := NewCollector(&fetcherStub{}, nil, zap.NewNop())

	tape, err := c.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, tape, len(DefaultUniverse()))
	for i, entry := range DefaultUniverse() {
		require.Equal(t, entry.Label, tape[i].Label)
	}
}

func TestPctChange(t *testing.T) {
	require.InDelta(t, 0.1, pctChange(110, 100), 1e-9)
	require.InDelta(t, -0.5, pctChange(50, 100), 1e-9)
	require.Zero(t, pctChange(100, 0))
}
