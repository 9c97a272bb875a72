package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"

	"github.com/polypulse/engine/internal/domain"
)

const (
	yahooChartURL = "https://query1.finance.yahoo.com/v8/finance/chart/%s?range=1d&interval=5m"
	yahooUA       = "polypulse/0.2"

	// 5m bars: 12 bars back is one hour, 48 bars back is four.
	barsPerHour      = 12
	barsPerFourHours = 48
	minBars          = 4
)

// YahooFetcher reads intraday bars from the Yahoo Finance chart API. It
// covers the whole default universe, crypto and forex alike.
type YahooFetcher struct {
	client *http.Client
}

// NewYahooFetcher creates a fetcher with a bounded request timeout.
func NewYahooFetcher(timeout time.Duration) *YahooFetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &YahooFetcher{client: &http.Client{Timeout: timeout}}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

type yahooChart struct {
	Chart struct {
		Result []struct {
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
	} `json:"chart"`
}

// FetchQuote derives price and 1h/4h fractional change from the close series.
func (f *YahooFetcher) FetchQuote(ctx context.Context, entry UniverseEntry) (domain.AssetSnapshot, error) {
	u := fmt.Sprintf(yahooChartURL, url.PathEscape(entry.Symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.AssetSnapshot{}, errors.Wrap(err, "build yahoo request")
	}
	req.Header.Set("User-Agent", yahooUA)

	resp, err := f.client.Do(req)
	if err != nil {
		return domain.AssetSnapshot{}, errors.Wrapf(err, "yahoo fetch %s", entry.Symbol)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return domain.AssetSnapshot{}, errors.Errorf("yahoo %s: status %d", entry.Symbol, resp.StatusCode)
	}

	var chart yahooChart
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return domain.AssetSnapshot{}, errors.Wrapf(err, "yahoo decode %s", entry.Symbol)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return domain.AssetSnapshot{}, errors.Errorf("yahoo %s: no chart data", entry.Symbol)
	}

	closes := make([]float64, 0, len(chart.Chart.Result[0].Indicators.Quote[0].Close))
	for _, c := range chart.Chart.Result[0].Indicators.Quote[0].Close {
		if c != nil {
			closes = append(closes, *c)
		}
	}
	if len(closes) < minBars {
		return domain.AssetSnapshot{}, errors.Errorf("yahoo %s: insufficient bars (%d)", entry.Symbol, len(closes))
	}

	last := closes[len(closes)-1]
	oneHourAgo := closes[maxIndex(0, len(closes)-barsPerHour)]
	fourHoursAgo := closes[maxIndex(0, len(closes)-barsPerFourHours)]

	return domain.AssetSnapshot{
		Label:    entry.Label,
		Symbol:   entry.Symbol,
		Class:    entry.Class,
		Price:    last,
		Change1h: pctChange(last, oneHourAgo),
		Change4h: pctChange(last, fourHoursAgo),
		Bars:     len(closes),
	}, nil
}

func pctChange(current, previous float64) float64 {
	if current == 0 || previous == 0 {
		return 0
	}
	return (current - previous) / previous
}

func maxIndex(min, v int) int {
	if v < min {
		return min
	}
	return v
}
