// Package ledger owns the position lifecycle: stake sizing and opening,
// and the once-per-cycle close evaluation. A position only ever moves
// OPEN -> closed(target|timeout); closed positions are never reopened.
package ledger

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/polypulse/engine/internal/domain"
	"github.com/polypulse/engine/pkg/id"
)

const (
	reasonTarget  = "target"
	reasonTimeout = "timeout"
	reasonSignal  = "signal"
)

// RiskConfig sizes a new position from the current bankroll.
type RiskConfig struct {
	RiskPct  decimal.Decimal
	MinStake decimal.Decimal
	MaxStake decimal.Decimal
}

// CloseRules bound how long a position may run.
type CloseRules struct {
	ProfitTarget   decimal.Decimal
	MaxHoldMinutes float64
}

// auditLog receives one immutable row per open/close event.
type auditLog interface {
	Append(row domain.TradeRecord) error
}

// Ledger applies open/close transitions to a profile's portfolio state.
type Ledger struct {
	profile string
	audit   auditLog
	logger  *zap.Logger
}

// New creates a ledger bound to one profile and its audit log.
func New(profile string, audit auditLog, logger *zap.Logger) *Ledger {
	return &Ledger{profile: profile, audit: audit, logger: logger}
}

// Open sizes and opens a position for the signal at the asset's price.
// Returns (nil, nil), a skip rather than a failure, when the bankroll cannot
// cover the desired stake or the entry price is not positive. On success the
// bankroll debit and the position append happen together, and an OPEN audit
// row is written.
func (l *Ledger) Open(state *domain.PortfolioState, signal domain.Signal, asset domain.AssetSnapshot, risk RiskConfig, now time.Time) (*domain.Position, error) {
	desiredStake := state.Bankroll.Mul(risk.RiskPct)
	if desiredStake.LessThan(risk.MinStake) {
		desiredStake = risk.MinStake
	}
	if desiredStake.GreaterThan(risk.MaxStake) {
		desiredStake = risk.MaxStake
	}

	if state.Bankroll.LessThan(desiredStake) {
		return nil, nil
	}

	entryPrice := decimal.NewFromFloat(asset.Price)
	if !entryPrice.IsPositive() {
		return nil, nil
	}

	pos := domain.Position{
		ID:         id.New(),
		MarketID:   signal.MarketID,
		Title:      signal.Title,
		Side:       signal.Action,
		Stake:      desiredStake,
		Units:      desiredStake.Div(entryPrice),
		EntryPrice: entryPrice,
		OpenedAt:   now,
	}

	state.Bankroll = state.Bankroll.Sub(desiredStake)
	state.OpenPositions = append(state.OpenPositions, pos)

	if err := l.audit.Append(domain.TradeRecord{
		Timestamp:  now,
		Event:      domain.TradeEventOpen,
		Profile:    l.profile,
		PositionID: pos.ID,
		MarketID:   pos.MarketID,
		Title:      pos.Title,
		Side:       pos.Side,
		Stake:      pos.Stake.StringFixed(2),
		Entry:      pos.EntryPrice.String(),
		Reason:     reasonSignal,
	}); err != nil {
		return nil, errors.Wrapf(err, "audit open for %s", pos.MarketID)
	}

	l.logger.Info("position opened",
		zap.String("market", pos.MarketID),
		zap.String("side", string(pos.Side)),
		zap.String("stake", pos.Stake.StringFixed(2)),
		zap.String("entry", pos.EntryPrice.String()))

	return &pos, nil
}

// EvaluateCloses walks every open position once against the latest prices.
// Positions without a current price carry over unchanged. The profit target
// is checked before the hold timeout. On close, crediting the proceeds and
// removing the position happen in the same step, so the stake is never
// counted twice; pnl >= 0 counts as a win, zero included.
func (l *Ledger) EvaluateCloses(state *domain.PortfolioState, prices map[string]domain.AssetSnapshot, rules CloseRules, now time.Time) ([]domain.ClosedPosition, error) {
	stillOpen := state.OpenPositions[:0:0]
	var closed []domain.ClosedPosition

	for _, pos := range state.OpenPositions {
		asset, ok := prices[pos.MarketID]
		if !ok {
			stillOpen = append(stillOpen, pos)
			continue
		}

		currentPrice := decimal.NewFromFloat(asset.Price)
		pnl := pos.PnL(currentPrice)
		ageMinutes := now.Sub(pos.OpenedAt).Minutes()

		var reason string
		switch {
		case pnl.GreaterThanOrEqual(rules.ProfitTarget):
			reason = reasonTarget
		case ageMinutes >= rules.MaxHoldMinutes:
			reason = reasonTimeout
		default:
			stillOpen = append(stillOpen, pos)
			continue
		}

		state.Bankroll = state.Bankroll.Add(pos.Stake).Add(pnl)
		state.RealizedPnl = state.RealizedPnl.Add(pnl)
		state.ClosedTrades++
		if pnl.GreaterThanOrEqual(decimal.Zero) {
			state.Wins++
		} else {
			state.Losses++
		}

		if err := l.audit.Append(domain.TradeRecord{
			Timestamp:  now,
			Event:      domain.TradeEventClose,
			Profile:    l.profile,
			PositionID: pos.ID,
			MarketID:   pos.MarketID,
			Title:      pos.Title,
			Side:       pos.Side,
			Stake:      pos.Stake.StringFixed(2),
			Entry:      pos.EntryPrice.String(),
			Exit:       currentPrice.String(),
			Pnl:        pnl.StringFixed(2),
			Reason:     reason,
		}); err != nil {
			return nil, errors.Wrapf(err, "audit close for %s", pos.MarketID)
		}

		l.logger.Info("position closed",
			zap.String("market", pos.MarketID),
			zap.String("side", string(pos.Side)),
			zap.String("pnl", pnl.StringFixed(2)),
			zap.String("reason", reason))

		closed = append(closed, domain.ClosedPosition{
			Position:  pos,
			ExitPrice: currentPrice,
			Pnl:       pnl,
			Reason:    reason,
		})
	}

	state.OpenPositions = stillOpen
	return closed, nil
}
