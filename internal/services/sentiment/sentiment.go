// Package sentiment blends crypto news headline tone with the Fear & Greed
// index into one score in [-1, 1]. Every sub-fetch is best effort: a dead
// feed just contributes nothing.
package sentiment

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/polypulse/engine/internal/domain"
)

const (
	fearGreedURL = "https://api.alternative.me/fng/?limit=1"
	userAgent    = "polypulse/0.2"

	headlineWeight  = 0.7
	fearGreedWeight = 0.3

	maxTitlesPerFeed = 30
	sampleSize       = 6
)

var defaultFeeds = []string{
	"https://www.coindesk.com/arc/outboundfeeds/rss/",
	"https://cointelegraph.com/rss",
	"https://decrypt.co/feed",
	"https://www.theblock.co/rss.xml",
}

var positiveWords = []string{
	"surge", "rally", "bull", "breakout", "approval", "inflow", "beat",
	"growth", "higher", "adoption", "record high", "recovery",
}

var negativeWords = []string{
	"crash", "drop", "bear", "selloff", "hack", "exploit", "outflow",
	"ban", "lawsuit", "lower", "liquidation", "recession", "fraud",
}

var (
	titleRe  = regexp.MustCompile(`(?i)<title><!\[CDATA\[(.*?)\]\]></title>|<title>(.*?)</title>`)
	sourceRe = regexp.MustCompile(`(?i)^(coindesk|cointelegraph|decrypt|the block)`)
)

// Collector fetches and blends the sentiment snapshot for one cycle.
type Collector struct {
	client *http.Client
	feeds  []string
	logger *zap.Logger
}

// NewCollector builds a collector over the given feeds (defaults when empty).
func NewCollector(timeout time.Duration, feeds []string, logger *zap.Logger) *Collector {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if len(feeds) == 0 {
		feeds = defaultFeeds
	}
	return &Collector{
		client: &http.Client{Timeout: timeout},
		feeds:  feeds,
		logger: logger,
	}
}

// Fetch returns the blended snapshot: 70% normalized headline tone, 30%
// Fear & Greed regime. It never fails; missing sources score zero.
func (c *Collector) Fetch(ctx context.Context) (domain.SentimentSnapshot, error) {
	var allTitles []string
	for _, feed := range c.feeds {
		titles, err := c.fetchFeedTitles(ctx, feed)
		if err != nil {
			c.logger.Warn("sentiment feed failed, skipping", zap.String("feed", feed), zap.Error(err))
			continue
		}
		allTitles = append(allTitles, titles...)
	}

	headlineNorm := 0.0
	if len(allTitles) > 0 {
		total := 0.0
		for _, t := range allTitles {
			total += scoreHeadline(t)
		}
		headlineNorm = clamp(total/float64(len(allTitles))/2, -1, 1)
	}

	fearGreed := c.fetchFearGreed(ctx)

	blended := headlineWeight*headlineNorm + fearGreedWeight*fearGreed

	sample := allTitles
	if len(sample) > sampleSize {
		sample = sample[:sampleSize]
	}

	return domain.SentimentSnapshot{
		Score: round3(blended),
		Components: domain.SentimentComponents{
			Headlines: round3(headlineNorm),
			FearGreed: round3(fearGreed),
		},
		Sample: sample,
	}, nil
}

func (c *Collector) fetchFeedTitles(ctx context.Context, feedURL string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return extractTitles(string(body)), nil
}

// extractTitles pulls item titles from RSS XML, dropping channel titles that
// just repeat the source name.
func extractTitles(xml string) []string {
	var titles []string
	for _, m := range titleRe.FindAllStringSubmatch(xml, -1) {
		if len(titles) >= maxTitlesPerFeed {
			break
		}
		title := strings.TrimSpace(m[1])
		if title == "" {
			title = strings.TrimSpace(m[2])
		}
		if title == "" || sourceRe.MatchString(title) {
			continue
		}
		titles = append(titles, title)
	}
	return titles
}

// scoreHeadline counts positive minus negative keyword hits.
func scoreHeadline(text string) float64 {
	t := strings.ToLower(text)
	s := 0.0
	for _, w := range positiveWords {
		if strings.Contains(t, w) {
			s++
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(t, w) {
			s--
		}
	}
	return s
}

type fngResponse struct {
	Data []struct {
		Value string `json:"value"`
	} `json:"data"`
}

// fetchFearGreed maps the 0-100 index to [-1, 1]; any failure scores zero.
func (c *Collector) fetchFearGreed(ctx context.Context) float64 {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fearGreedURL, nil)
	if err != nil {
		return 0
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("fear & greed fetch failed", zap.Error(err))
		return 0
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return 0
	}

	var out fngResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || len(out.Data) == 0 {
		return 0
	}

	value := 50.0
	if v, err := strconv.ParseFloat(out.Data[0].Value, 64); err == nil {
		value = v
	}
	return clamp((value-50)/50, -1, 1)
}

func clamp(v, min, max float64) float64 {
	return math.Max(min, math.Min(max, v))
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
