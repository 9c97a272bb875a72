package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PortfolioState is the whole persisted document for one profile. It is
// mutated in place across a run and overwritten as a unit each cycle;
// single-writer-per-profile is assumed.
type PortfolioState struct {
	Bankroll      decimal.Decimal `json:"bankroll"`
	OpenPositions []Position      `json:"openPositions"`
	ClosedTrades  int             `json:"closedTrades"`
	Wins          int             `json:"wins"`
	Losses        int             `json:"losses"`
	RealizedPnl   decimal.Decimal `json:"realizedPnl"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// NewPortfolioState seeds a fresh profile with the given bankroll.
func NewPortfolioState(bankroll decimal.Decimal, now time.Time) PortfolioState {
	return PortfolioState{
		Bankroll:      bankroll,
		OpenPositions: []Position{},
		RealizedPnl:   decimal.Zero,
		UpdatedAt:     now,
	}
}

// HasOpen reports whether a position with the given market id and side is
// already open. The orchestrator uses it to prevent pyramiding.
func (s *PortfolioState) HasOpen(marketID string, side Action) bool {
	for _, p := range s.OpenPositions {
		if p.MarketID == marketID && p.Side == side {
			return true
		}
	}
	return false
}

// OpenExposure sums the stakes currently committed to open positions.
func (s *PortfolioState) OpenExposure() decimal.Decimal {
	total := decimal.Zero
	for _, p := range s.OpenPositions {
		total = total.Add(p.Stake)
	}
	return total
}
