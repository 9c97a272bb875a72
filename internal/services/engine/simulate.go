package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/polypulse/engine/internal/domain"
)

// SimulationProfile pairs a profile name with its seed bankroll.
type SimulationProfile struct {
	Profile  string
	Bankroll decimal.Decimal
}

// DefaultSimulationProfiles are the three standard bankroll tiers.
func DefaultSimulationProfiles() []SimulationProfile {
	return []SimulationProfile{
		{Profile: "sim_100", Bankroll: decimal.NewFromInt(100)},
		{Profile: "sim_1000", Bankroll: decimal.NewFromInt(1000)},
		{Profile: "sim_10000", Bankroll: decimal.NewFromInt(10000)},
	}
}

// RunSimulations runs the standard bankroll tiers sequentially, each with a
// +$5 session target over up to 6 cycles. Profiles own distinct persisted
// documents, so runs cannot interfere.
func (e *Engine) RunSimulations(ctx context.Context, observer domain.Observer) ([]Summary, error) {
	profiles := DefaultSimulationProfiles()

	emit := observer
	if emit == nil {
		emit = func(domain.ProgressEvent) {}
	}

	summaries := make([]Summary, 0, len(profiles))
	for i, p := range profiles {
		emit(domain.ProgressEvent{
			Type:    domain.EventLog,
			Message: fmt.Sprintf("--- Simulation %d/%d: $%s bankroll ---", i+1, len(profiles), p.Bankroll.String()),
		})

		summary, err := e.Run(ctx, RunParams{
			Profile:      p.Profile,
			Bankroll:     p.Bankroll,
			TargetProfit: decimal.NewFromInt(5),
			MaxCycles:    6,
			Interval:     10 * time.Second,
			Observer:     observer,
		})
		if err != nil {
			return summaries, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}
