package domain

// SentimentComponents breaks the blended score into its sources.
type SentimentComponents struct {
	Headlines float64 `json:"headlines"`
	FearGreed float64 `json:"fearGreed"`
}

// SentimentSnapshot is the global market mood for one cycle. Score is in [-1, 1].
type SentimentSnapshot struct {
	Score      float64             `json:"score"`
	Components SentimentComponents `json:"components"`
	Sample     []string            `json:"sample"`
}

// Mood returns a human label for the blended score.
func (s SentimentSnapshot) Mood() string {
	switch {
	case s.Score > 0:
		return "Bullish"
	case s.Score < 0:
		return "Bearish"
	default:
		return "Neutral"
	}
}
