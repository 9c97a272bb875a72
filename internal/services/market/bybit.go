package market

import (
	"context"
	"sort"
	"strconv"

	bybit "github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"

	"github.com/polypulse/engine/internal/domain"
)

// BybitFetcher reads 5m spot klines from Bybit v5. Crypto only, like the
// Binance fetcher.
type BybitFetcher struct {
	client *bybit.Client
}

// NewBybitFetcher wraps an initialized Bybit client.
func NewBybitFetcher(client *bybit.Client) *BybitFetcher {
	return &BybitFetcher{client: client}
}

func (f *BybitFetcher) Name() string { return "bybit" }

// FetchQuote derives price and 1h/4h change from the last 4h of 5m klines.
func (f *BybitFetcher) FetchQuote(_ context.Context, entry UniverseEntry) (domain.AssetSnapshot, error) {
	if entry.Class != domain.ClassCrypto {
		return domain.AssetSnapshot{}, errors.Errorf("bybit: unsupported instrument class %s for %s", entry.Class, entry.Label)
	}

	symbol := binanceSymbol(entry.Label) // Bybit spot uses the same USDT tickers
	limit := barsPerFourHours + 1

	result, err := f.client.V5().Market().GetKline(bybit.V5GetKlineParam{
		Category: bybit.CategoryV5Spot,
		Symbol:   bybit.SymbolV5(symbol),
		Interval: bybit.Interval("5"),
		Limit:    &limit,
	})
	if err != nil {
		return domain.AssetSnapshot{}, errors.Wrapf(err, "bybit klines for %s", symbol)
	}
	if result == nil || len(result.Result.List) < minBars {
		return domain.AssetSnapshot{}, errors.Errorf("bybit %s: insufficient bars", symbol)
	}

	// Bybit returns newest first; normalize to ascending start time.
	items := make([]bybit.V5GetKlineItem, len(result.Result.List))
	copy(items, result.Result.List)
	sort.Slice(items, func(i, j int) bool { return items[i].StartTime < items[j].StartTime })

	closes := make([]float64, 0, len(items))
	for i, k := range items {
		c, err := strconv.ParseFloat(k.Close, 64)
		if err != nil {
			return domain.AssetSnapshot{}, errors.Wrapf(err, "bybit %s: parse close at index %d", symbol, i)
		}
		closes = append(closes, c)
	}

	last := closes[len(closes)-1]
	oneHourAgo := closes[maxIndex(0, len(closes)-barsPerHour)]
	fourHoursAgo := closes[0]

	return domain.AssetSnapshot{
		Label:    entry.Label,
		Symbol:   symbol,
		Class:    entry.Class,
		Price:    last,
		Change1h: pctChange(last, oneHourAgo),
		Change4h: pctChange(last, fourHoursAgo),
		Bars:     len(closes),
	}, nil
}
