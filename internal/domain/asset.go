// Package domain defines the core data structures shared across the engine.
package domain

// InstrumentClass distinguishes how an asset reacts to global sentiment.
type InstrumentClass string

const (
	ClassCrypto InstrumentClass = "crypto"
	ClassForex  InstrumentClass = "forex"
)

// AssetSnapshot is one asset's slice of the market tape for a single cycle.
// Label is unique within a batch.
type AssetSnapshot struct {
	Label    string          `json:"label"`
	Symbol   string          `json:"symbol"`
	Class    InstrumentClass `json:"kind"`
	Price    float64         `json:"price"`
	Change1h float64         `json:"change1h"`
	Change4h float64         `json:"change4h"`
	Bars     int             `json:"bars"`
}

// TapeByLabel indexes a tape batch for close evaluation and entry lookups.
func TapeByLabel(tape []AssetSnapshot) map[string]AssetSnapshot {
	out := make(map[string]AssetSnapshot, len(tape))
	for _, a := range tape {
		out[a.Label] = a
	}
	return out
}
