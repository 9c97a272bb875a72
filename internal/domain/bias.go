package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// BiasSignal is an externally submitted directional opinion on one symbol,
// normalized on ingestion and kept in a bounded append-only log.
type BiasSignal struct {
	Timestamp  time.Time       `json:"ts"`
	Symbol     string          `json:"symbol"`
	Side       string          `json:"side"`
	Confidence float64         `json:"confidence"`
	Source     string          `json:"source"`
	Raw        json.RawMessage `json:"raw,omitempty"`
}

// BiasSubmission is the shape accepted at the webhook boundary. Ticker and
// Action are aliases some upstreams use for Symbol and Side.
type BiasSubmission struct {
	Symbol     string   `json:"symbol"`
	Ticker     string   `json:"ticker"`
	Side       string   `json:"side"`
	Action     string   `json:"action"`
	Confidence *float64 `json:"confidence"`
}

const defaultBiasConfidence = 0.5

// NormalizeBias converts a raw submission into the stored form: symbol and
// side upper-cased, confidence clamped to [0, 1] with a 0.5 default.
func NormalizeBias(sub BiasSubmission, raw json.RawMessage, source string, now time.Time) BiasSignal {
	symbol := sub.Symbol
	if symbol == "" {
		symbol = sub.Ticker
	}
	side := sub.Side
	if side == "" {
		side = sub.Action
	}

	confidence := defaultBiasConfidence
	if sub.Confidence != nil {
		confidence = *sub.Confidence
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return BiasSignal{
		Timestamp:  now,
		Symbol:     strings.ToUpper(strings.TrimSpace(symbol)),
		Side:       strings.ToUpper(strings.TrimSpace(side)),
		Confidence: confidence,
		Source:     source,
		Raw:        raw,
	}
}

// Bullish reports whether the side nudges the score upward.
func (b BiasSignal) Bullish() bool {
	return strings.Contains(b.Side, "LONG") || strings.Contains(b.Side, "BUY")
}

// Bearish reports whether the side nudges the score downward.
func (b BiasSignal) Bearish() bool {
	return strings.Contains(b.Side, "SHORT") || strings.Contains(b.Side, "SELL")
}
