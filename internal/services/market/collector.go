// Package market collects the per-cycle tape: one price/momentum snapshot
// per tracked asset, best effort.
package market

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/polypulse/engine/internal/domain"
)

// UniverseEntry names one tracked instrument. Symbol is the venue ticker,
// Label the engine-wide identifier (unique within the universe).
type UniverseEntry struct {
	Symbol string                 `yaml:"symbol"`
	Label  string                 `yaml:"label"`
	Class  domain.InstrumentClass `yaml:"class"`
}

// DefaultUniverse is the tracked set when the config names none.
func DefaultUniverse() []UniverseEntry {
	return []UniverseEntry{
		{Symbol: "BTC-USD", Label: "BTCUSD", Class: domain.ClassCrypto},
		{Symbol: "ETH-USD", Label: "ETHUSD", Class: domain.ClassCrypto},
		{Symbol: "SOL-USD", Label: "SOLUSD", Class: domain.ClassCrypto},
		{Symbol: "EURUSD=X", Label: "EURUSD", Class: domain.ClassForex},
		{Symbol: "GBPUSD=X", Label: "GBPUSD", Class: domain.ClassForex},
		{Symbol: "USDJPY=X", Label: "USDJPY", Class: domain.ClassForex},
	}
}

// QuoteFetcher resolves one universe entry to a snapshot.
type QuoteFetcher interface {
	Name() string
	FetchQuote(ctx context.Context, entry UniverseEntry) (domain.AssetSnapshot, error)
}

// outcome is the explicit per-symbol result of one sub-fetch. Collecting
// these first and filtering afterwards keeps the "ignore individual
// failures" policy visible instead of implicit.
type outcome struct {
	entry    UniverseEntry
	snapshot domain.AssetSnapshot
	err      error
}

// Collector fans out across the universe and joins unconditionally. A failed
// symbol is logged and dropped; the batch it returns is simply smaller.
type Collector struct {
	fetcher  QuoteFetcher
	universe []UniverseEntry
	logger   *zap.Logger
}

// NewCollector builds a collector over the given universe.
func NewCollector(fetcher QuoteFetcher, universe []UniverseEntry, logger *zap.Logger) *Collector {
	if len(universe) == 0 {
		universe = DefaultUniverse()
	}
	return &Collector{fetcher: fetcher, universe: universe, logger: logger}
}

// Fetch returns the best-effort tape for this cycle. It never fails for a
// single missing symbol; the error return covers only a nil fetcher.
func (c *Collector) Fetch(ctx context.Context) ([]domain.AssetSnapshot, error) {
	outcomes := make([]outcome, len(c.universe))

	var wg sync.WaitGroup
	for i, entry := range c.universe {
		wg.Add(1)
		go func(i int, entry UniverseEntry) {
			defer wg.Done()
			snapshot, err := c.fetcher.FetchQuote(ctx, entry)
			outcomes[i] = outcome{entry: entry, snapshot: snapshot, err: err}
		}(i, entry)
	}
	wg.Wait()

	tape := make([]domain.AssetSnapshot, 0, len(outcomes))
	for _, out := range outcomes {
		if out.err != nil {
			c.logger.Warn("tape fetch failed, dropping symbol",
				zap.String("provider", c.fetcher.Name()),
				zap.String("label", out.entry.Label),
				zap.Error(out.err))
			continue
		}
		tape = append(tape, out.snapshot)
	}
	return tape, nil
}
