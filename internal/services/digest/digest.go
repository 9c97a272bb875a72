// Package digest renders a run summary into the notification text and
// delivers it. The engine hands over a structured summary; everything
// presentation-ish lives here.
package digest

import (
	"fmt"
	"strings"
	"time"

	"github.com/polypulse/engine/internal/services/engine"
)

// Format renders the digest text for one run summary.
func Format(s engine.Summary, generatedAt time.Time) string {
	var lines []string

	lines = append(lines, "PolyPulse Digest (Paper Trading)")
	lines = append(lines, fmt.Sprintf("Time: %s", generatedAt.Format("2006-01-02 15:04:05 MST")))
	lines = append(lines, fmt.Sprintf("Bankroll: $%s | Open: %d | W/L: %d/%d",
		s.State.Bankroll.StringFixed(2), len(s.State.OpenPositions), s.State.Wins, s.State.Losses))
	lines = append(lines, fmt.Sprintf("Session: cycle %d/%d, target +$%s", s.Cycle, s.MaxCycles, s.TargetProfit.String()))
	if s.Strategy != "" {
		lines = append(lines, fmt.Sprintf("Strategy: %s", s.Strategy))
	}
	lines = append(lines, fmt.Sprintf("News sentiment: %.3f (%s)", s.Sentiment.Score, sampleLine(s.Sentiment.Sample)))
	lines = append(lines, "")
	lines = append(lines, "Top 3 trades:")

	if len(s.TopSignals) == 0 {
		lines = append(lines, "- No high-conviction setup this cycle.")
	} else {
		for _, sig := range s.TopSignals {
			lines = append(lines, fmt.Sprintf("- %s %s", sig.Title, sig.Action))
			lines = append(lines, fmt.Sprintf("  score %.3f (%s) | px %.4f | 1h %.2f%% | 4h %.2f%%",
				sig.FinalScore, sig.Confidence, sig.Price, sig.Change1h*100, sig.Change4h*100))
			lines = append(lines, fmt.Sprintf("  components: momentum %.3f, sentiment %.3f, bias %.3f",
				sig.Components.Momentum, sig.Components.Sentiment, sig.Components.Bias))
		}
	}

	if len(s.Opened) > 0 {
		lines = append(lines, "", "Opened:")
		for _, p := range s.Opened {
			lines = append(lines, fmt.Sprintf("- %s %s stake $%s @ %s",
				p.Side, p.Title, p.Stake.StringFixed(2), p.EntryPrice.String()))
		}
	}
	if len(s.Closed) > 0 {
		lines = append(lines, "", "Closed:")
		for _, c := range s.Closed {
			sign := ""
			if c.Pnl.Sign() >= 0 {
				sign = "+"
			}
			lines = append(lines, fmt.Sprintf("- %s %s PnL %s$%s (%s)",
				c.Side, c.Title, sign, c.Pnl.StringFixed(2), c.Reason))
		}
	}

	if s.TargetReached {
		lines = append(lines, "", fmt.Sprintf("Session target reached: +$%s (target +$%s).",
			s.SessionPnl.StringFixed(2), s.TargetProfit.String()))
	}

	lines = append(lines, "", "Paper mode only. No real orders placed.")
	return strings.Join(lines, "\n")
}

func sampleLine(sample []string) string {
	if len(sample) == 0 {
		return "n/a"
	}
	if len(sample) > 2 {
		sample = sample[:2]
	}
	return strings.Join(sample, " | ")
}
