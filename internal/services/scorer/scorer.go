// Package scorer converts asset snapshots into classified trading signals.
// Scoring is pure: no I/O, no clock, no side effects.
package scorer

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/polypulse/engine/internal/domain"
)

const (
	change1hScale = 0.01
	change4hScale = 0.03

	weight1h = 0.65
	weight4h = 0.35

	biasPerSignal = 0.15
	biasCap       = 0.3

	confidenceHighCut   = 0.75
	confidenceMediumCut = 0.45
)

// Score computes the signal for one asset under the given sentiment score,
// strategy params and recent bias signals. All numeric outputs are rounded
// to 3 decimal places for stable auditing. A missing or non-positive price
// yields zero momentum terms rather than an error.
func Score(asset domain.AssetSnapshot, sentiment float64, params domain.StrategyParams, bias []domain.BiasSignal) domain.Signal {
	var momentum float64
	if asset.Price > 0 {
		m1h := clamp(asset.Change1h/change1hScale, -1, 1)
		m4h := clamp(asset.Change4h/change4hScale, -1, 1)
		momentum = weight1h*m1h + weight4h*m4h
	}

	sentimentAdj := 0.0
	if asset.Class == domain.ClassCrypto {
		sentimentAdj = sentiment
	}

	biasAdj := biasForAsset(asset, bias)

	finalScore := params.MomentumWeight*momentum + params.SentimentWeight*sentimentAdj + biasAdj

	return domain.Signal{
		MarketID:   asset.Label,
		Title:      fmt.Sprintf("%s (%s)", asset.Label, asset.Class),
		Action:     Classify(finalScore, params.LongThreshold, params.ShortThreshold),
		Confidence: confidenceTier(finalScore),
		FinalScore: round3(finalScore),
		Components: domain.SignalComponents{
			Momentum:  round3(momentum),
			Sentiment: round3(sentimentAdj),
			Bias:      round3(biasAdj),
		},
		Price:    asset.Price,
		Class:    asset.Class,
		Change1h: asset.Change1h,
		Change4h: asset.Change4h,
	}
}

// Classify maps a final score to an action under the given thresholds.
func Classify(finalScore, longThreshold, shortThreshold float64) domain.Action {
	switch {
	case finalScore > longThreshold:
		return domain.ActionLong
	case finalScore < shortThreshold:
		return domain.ActionShort
	default:
		return domain.ActionHold
	}
}

// biasForAsset sums the directional nudges of bias signals matching the
// asset label. Matching is by substring, tried both with and without a
// trailing "USD" suffix, so "BTC" submissions match "BTCUSD".
func biasForAsset(asset domain.AssetSnapshot, bias []domain.BiasSignal) float64 {
	trimmed := strings.TrimSuffix(asset.Label, "USD")

	total := 0.0
	matched := false
	for _, b := range bias {
		if b.Symbol == "" {
			continue
		}
		if !strings.Contains(b.Symbol, trimmed) && !strings.Contains(b.Symbol, asset.Label) {
			continue
		}
		matched = true
		c := clamp(b.Confidence, 0, 1)
		if b.Bullish() {
			total += biasPerSignal * c
		} else if b.Bearish() {
			total -= biasPerSignal * c
		}
	}
	if !matched {
		return 0
	}
	return clamp(total, -biasCap, biasCap)
}

func confidenceTier(finalScore float64) domain.Confidence {
	abs := math.Abs(finalScore)
	switch {
	case abs > confidenceHighCut:
		return domain.ConfidenceHigh
	case abs > confidenceMediumCut:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}

// TopTrades returns the highest-|finalScore| non-HOLD signals, at most count,
// ties broken by original ordering.
func TopTrades(signals []domain.Signal, count int) []domain.Signal {
	directional := make([]domain.Signal, 0, len(signals))
	for _, s := range signals {
		if s.Actionable() {
			directional = append(directional, s)
		}
	}

	sort.SliceStable(directional, func(i, j int) bool {
		return math.Abs(directional[i].FinalScore) > math.Abs(directional[j].FinalScore)
	})

	if len(directional) > count {
		directional = directional[:count]
	}
	return directional
}

// TopTradesWithFallback behaves like TopTrades but never returns an empty
// slice while any signal exists: when nothing is actionable it takes the
// highest-|momentum| signals and synthesizes a direction from momentum's
// sign.
func TopTradesWithFallback(signals []domain.Signal, count int) []domain.Signal {
	directional := TopTrades(signals, count)
	if len(directional) > 0 {
		return directional
	}

	fallback := make([]domain.Signal, len(signals))
	copy(fallback, signals)
	sort.SliceStable(fallback, func(i, j int) bool {
		return math.Abs(fallback[i].Components.Momentum) > math.Abs(fallback[j].Components.Momentum)
	})
	if len(fallback) > count {
		fallback = fallback[:count]
	}

	for i := range fallback {
		if fallback[i].Components.Momentum >= 0 {
			fallback[i].Action = domain.ActionLong
		} else {
			fallback[i].Action = domain.ActionShort
		}
		if fallback[i].Confidence == "" {
			fallback[i].Confidence = domain.ConfidenceLow
		}
	}
	return fallback
}

func clamp(v, min, max float64) float64 {
	return math.Max(min, math.Min(max, v))
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
