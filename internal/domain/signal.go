package domain

// Action is the direction a signal recommends.
type Action string

const (
	ActionLong  Action = "LONG"
	ActionShort Action = "SHORT"
	ActionHold  Action = "HOLD"
)

// Confidence tiers derived from |finalScore|.
type Confidence string

const (
	ConfidenceLow    Confidence = "LOW"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceHigh   Confidence = "HIGH"
)

// SignalComponents is the additive breakdown of a final score.
type SignalComponents struct {
	Momentum  float64 `json:"momentum"`
	Sentiment float64 `json:"sentiment"`
	Bias      float64 `json:"bias"`
}

// Signal is a scored trading signal for one asset in one cycle. The scorer's
// own Action classification is advisory; the orchestrator re-classifies it
// against adaptive thresholds before trading.
type Signal struct {
	MarketID   string           `json:"marketId"`
	Title      string           `json:"title"`
	Action     Action           `json:"action"`
	Confidence Confidence       `json:"confidence"`
	FinalScore float64          `json:"finalScore"`
	Components SignalComponents `json:"components"`
	Price      float64          `json:"price"`
	Class      InstrumentClass  `json:"kind"`
	Change1h   float64          `json:"change1h"`
	Change4h   float64          `json:"change4h"`
}

// Actionable reports whether the signal proposes a direction.
func (s Signal) Actionable() bool {
	return s.Action == ActionLong || s.Action == ActionShort
}

// SignalRow is one audited signal with the cycle timestamp attached.
type SignalRow struct {
	Timestamp string `json:"ts"`
	Profile   string `json:"profile"`
	Signal    Signal `json:"signal"`
}

// SignalRowRecord bundles a stored row with its log index.
type SignalRowRecord struct {
	Index uint64
	Row   SignalRow
}
