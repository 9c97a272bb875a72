package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is one open paper trade. It is owned exclusively by a single
// profile's PortfolioState: created by the ledger's open, removed by close,
// never mutated in between.
type Position struct {
	ID         string          `json:"id"`
	MarketID   string          `json:"marketId"`
	Title      string          `json:"title"`
	Side       Action          `json:"side"`
	Stake      decimal.Decimal `json:"stake"`
	Units      decimal.Decimal `json:"units"`
	EntryPrice decimal.Decimal `json:"entryPrice"`
	OpenedAt   time.Time       `json:"openedAt"`
}

// PnL computes the signed profit for the given market price:
// (current - entry) * units, negated for shorts.
func (p Position) PnL(currentPrice decimal.Decimal) decimal.Decimal {
	pnl := currentPrice.Sub(p.EntryPrice).Mul(p.Units)
	if p.Side == ActionShort {
		return pnl.Neg()
	}
	return pnl
}

// ClosedPosition is the terminal record produced when a position leaves the
// open list.
type ClosedPosition struct {
	Position
	ExitPrice decimal.Decimal `json:"exitPrice"`
	Pnl       decimal.Decimal `json:"pnl"`
	Reason    string          `json:"reason"`
}
