// Package analytics aggregates the audit logs and profile documents into
// dashboard views. It only ever reads; all state mutation stays in the
// ledger and orchestrator.
package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/polypulse/engine/internal/domain"
)

// ProfileStats is one leaderboard row.
type ProfileStats struct {
	Profile      string          `json:"profile"`
	Start        decimal.Decimal `json:"start"`
	Bankroll     decimal.Decimal `json:"bankroll"`
	RealizedPnl  decimal.Decimal `json:"realizedPnl"`
	RoiPct       float64         `json:"roiPct"`
	TotalTrades  int             `json:"totalTrades"`
	WinRate      float64         `json:"winRate"`
	OpenExposure decimal.Decimal `json:"openExposure"`
	Wins         int             `json:"wins"`
	Losses       int             `json:"losses"`
}

// SymbolPnl aggregates closed-trade pnl per market.
type SymbolPnl struct {
	Symbol string          `json:"symbol"`
	Pnl    decimal.Decimal `json:"pnl"`
	Trades int             `json:"trades"`
}

// EquityPoint is one step of the cumulative realized-pnl curve.
type EquityPoint struct {
	Timestamp string          `json:"ts"`
	Pnl       decimal.Decimal `json:"pnl"`
}

// Dashboard is the aggregate view over history.
type Dashboard struct {
	Leaderboard  []ProfileStats `json:"leaderboard"`
	BestSymbol   *SymbolPnl     `json:"bestSymbol"`
	WorstSymbol  *SymbolPnl     `json:"worstSymbol"`
	ClosedTrades int            `json:"closedTrades"`
	EquityCurve  []EquityPoint  `json:"equityCurve"`
}

const equityCurveLimit = 100

// tradeReader supplies the retained trade audit rows, oldest first.
type tradeReader interface {
	All() ([]domain.TradeRecord, error)
}

// stateReader exposes persisted profile documents.
type stateReader interface {
	Exists(profile string) bool
	Load(profile string, seedBankroll decimal.Decimal) (domain.PortfolioState, error)
}

// Service computes dashboards on demand.
type Service struct {
	trades   tradeReader
	states   stateReader
	profiles map[string]decimal.Decimal // profile -> seed bankroll
}

// NewService tracks the given profiles (name -> seed bankroll).
func NewService(trades tradeReader, states stateReader, profiles map[string]decimal.Decimal) *Service {
	return &Service{trades: trades, states: states, profiles: profiles}
}

// Compute builds the dashboard from whatever history exists.
func (s *Service) Compute() (Dashboard, error) {
	rows, err := s.trades.All()
	if err != nil {
		return Dashboard{}, err
	}

	var leaderboard []ProfileStats
	for profile, start := range s.profiles {
		if !s.states.Exists(profile) {
			continue
		}
		state, err := s.states.Load(profile, start)
		if err != nil {
			return Dashboard{}, err
		}
		leaderboard = append(leaderboard, profileStats(profile, start, state))
	}
	sort.Slice(leaderboard, func(i, j int) bool {
		return leaderboard[i].RealizedPnl.GreaterThan(leaderboard[j].RealizedPnl)
	})

	closed := make([]domain.TradeRecord, 0, len(rows))
	for _, row := range rows {
		if row.Event == domain.TradeEventClose {
			closed = append(closed, row)
		}
	}

	bySymbol := make(map[string]*SymbolPnl)
	for _, row := range closed {
		pnl, err := decimal.NewFromString(row.Pnl)
		if err != nil {
			continue
		}
		agg, ok := bySymbol[row.MarketID]
		if !ok {
			agg = &SymbolPnl{Symbol: row.MarketID}
			bySymbol[row.MarketID] = agg
		}
		agg.Pnl = agg.Pnl.Add(pnl)
		agg.Trades++
	}

	symbols := make([]SymbolPnl, 0, len(bySymbol))
	for _, agg := range bySymbol {
		symbols = append(symbols, *agg)
	}
	sort.Slice(symbols, func(i, j int) bool { return symbols[i].Pnl.GreaterThan(symbols[j].Pnl) })

	dashboard := Dashboard{
		Leaderboard:  leaderboard,
		ClosedTrades: len(closed),
		EquityCurve:  equityCurve(closed),
	}
	if len(symbols) > 0 {
		best := symbols[0]
		worst := symbols[len(symbols)-1]
		dashboard.BestSymbol = &best
		dashboard.WorstSymbol = &worst
	}
	return dashboard, nil
}

func profileStats(profile string, start decimal.Decimal, state domain.PortfolioState) ProfileStats {
	winRate := 0.0
	if state.ClosedTrades > 0 {
		winRate = float64(state.Wins) / float64(state.ClosedTrades) * 100
	}

	roi := 0.0
	if start.IsPositive() {
		roiDec, _ := state.RealizedPnl.Div(start).Mul(decimal.NewFromInt(100)).Round(2).Float64()
		roi = roiDec
	}

	return ProfileStats{
		Profile:      profile,
		Start:        start,
		Bankroll:     state.Bankroll,
		RealizedPnl:  state.RealizedPnl,
		RoiPct:       roi,
		TotalTrades:  state.ClosedTrades,
		WinRate:      winRate,
		OpenExposure: state.OpenExposure(),
		Wins:         state.Wins,
		Losses:       state.Losses,
	}
}

func equityCurve(closed []domain.TradeRecord) []EquityPoint {
	if len(closed) > equityCurveLimit {
		closed = closed[len(closed)-equityCurveLimit:]
	}

	running := decimal.Zero
	curve := make([]EquityPoint, 0, len(closed))
	for _, row := range closed {
		pnl, err := decimal.NewFromString(row.Pnl)
		if err != nil {
			continue
		}
		running = running.Add(pnl)
		curve = append(curve, EquityPoint{
			Timestamp: row.Timestamp.UTC().Format(time.RFC3339),
			Pnl:       running,
		})
	}
	return curve
}
