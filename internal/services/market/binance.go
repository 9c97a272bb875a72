package market

import (
	"context"
	"strconv"
	"strings"

	"github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"

	"github.com/polypulse/engine/internal/domain"
)

// BinanceFetcher reads 5m klines from Binance spot. Only crypto entries are
// supported; forex symbols surface an error that the collector absorbs like
// any other per-symbol failure.
type BinanceFetcher struct {
	client *binance.Client
}

// NewBinanceFetcher wraps an initialized Binance client. Public kline
// endpoints work with empty credentials.
func NewBinanceFetcher(client *binance.Client) *BinanceFetcher {
	return &BinanceFetcher{client: client}
}

func (f *BinanceFetcher) Name() string { return "binance" }

// FetchQuote derives price and 1h/4h change from the last 4h of 5m klines.
func (f *BinanceFetcher) FetchQuote(ctx context.Context, entry UniverseEntry) (domain.AssetSnapshot, error) {
	if entry.Class != domain.ClassCrypto {
		return domain.AssetSnapshot{}, errors.Errorf("binance: unsupported instrument class %s for %s", entry.Class, entry.Label)
	}

	symbol := binanceSymbol(entry.Label)

	klines, err := f.client.NewKlinesService().
		Symbol(symbol).
		Interval("5m").
		Limit(barsPerFourHours + 1).
		Do(ctx)
	if err != nil {
		return domain.AssetSnapshot{}, errors.Wrapf(err, "binance klines for %s", symbol)
	}
	if len(klines) < minBars {
		return domain.AssetSnapshot{}, errors.Errorf("binance %s: insufficient bars (%d)", symbol, len(klines))
	}

	closes := make([]float64, 0, len(klines))
	for i, k := range klines {
		c, err := strconv.ParseFloat(k.Close, 64)
		if err != nil {
			return domain.AssetSnapshot{}, errors.Wrapf(err, "binance %s: parse close at index %d", symbol, i)
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

// binanceSymbol maps an engine label like BTCUSD to the venue's USDT pair.
func binanceSymbol(label string) string {
	return strings.TrimSuffix(label, "USD") + "USDT"
}
