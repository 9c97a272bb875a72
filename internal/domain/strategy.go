package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// StrategyParams are the scoring weights and decision thresholds of one
// strategy. Zero-valued fields are filled with defaults on upsert so the
// scorer always receives a fully populated value.
type StrategyParams struct {
	MomentumWeight  float64 `json:"momentumWeight" yaml:"momentum_weight"`
	SentimentWeight float64 `json:"sentimentWeight" yaml:"sentiment_weight"`
	LongThreshold   float64 `json:"longThreshold" yaml:"long_threshold"`
	ShortThreshold  float64 `json:"shortThreshold" yaml:"short_threshold"`
}

// StrategyConfig is one named parameter set in the registry.
type StrategyConfig struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Enabled bool           `json:"enabled"`
	Params  StrategyParams `json:"params"`
}

// Defaults for params omitted on upsert.
const (
	DefaultMomentumWeight  = 0.75
	DefaultSentimentWeight = 0.25
	DefaultLongThreshold   = 0.2
	DefaultShortThreshold  = -0.2
)

// DefaultStrategy is the config the registry is seeded with on first use.
// Its thresholds are tighter than the upsert defaults: the seed is tuned for
// the default momentum universe.
func DefaultStrategy() StrategyConfig {
	return StrategyConfig{
		ID:      "default_momo_sentiment_v1",
		Name:    "Momentum + News Sentiment v1",
		Enabled: true,
		Params: StrategyParams{
			MomentumWeight:  0.75,
			SentimentWeight: 0.25,
			LongThreshold:   0.08,
			ShortThreshold:  -0.08,
		},
	}
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// NormalizeStrategyID derives the registry key from an explicit id or, when
// absent, the display name: lower-cased with whitespace collapsed to
// underscores. An empty id and name yields a timestamped fallback.
func NormalizeStrategyID(id, name string, now time.Time) string {
	source := id
	if source == "" {
		source = name
	}
	if source == "" {
		source = fmt.Sprintf("strategy_%d", now.UnixMilli())
	}
	return strings.ToLower(whitespaceRe.ReplaceAllString(strings.TrimSpace(source), "_"))
}

// FillDefaults returns a copy with any zero param replaced by its default.
func (p StrategyParams) FillDefaults() StrategyParams {
	if p.MomentumWeight == 0 {
		p.MomentumWeight = DefaultMomentumWeight
	}
	if p.SentimentWeight == 0 {
		p.SentimentWeight = DefaultSentimentWeight
	}
	if p.LongThreshold == 0 {
		p.LongThreshold = DefaultLongThreshold
	}
	if p.ShortThreshold == 0 {
		p.ShortThreshold = DefaultShortThreshold
	}
	return p
}
