package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/polypulse/engine/internal/domain"
)

type auditStub struct {
	rows []domain.TradeRecord
}

func (a *auditStub) Append(row domain.TradeRecord) error {
	a.rows = append(a.rows, row)
	return nil
}

func newTestLedger() (*Ledger, *auditStub) {
	audit := &auditStub{}
	return New("test", audit, zap.NewNop()), audit
}

func defaultRisk() RiskConfig {
	return RiskConfig{
		RiskPct:  decimal.NewFromFloat(0.02),
		MinStake: decimal.NewFromInt(20),
		MaxStake: decimal.NewFromInt(50),
	}
}

func TestLedger_OpenSizesStakeFromBankroll(t *testing.T) {
	led, audit := newTestLedger()
	state := domain.NewPortfolioState(decimal.NewFromInt(1000), time.Now())

	signal := domain.Signal{MarketID: "BTCUSD", Title: "BTCUSD (crypto)", Action: domain.ActionLong}
	asset := domain.AssetSnapshot{Label: "BTCUSD", Price: 100}

	pos, err := led.Open(&state, signal, asset, defaultRisk(), time.Now())
	require.NoError(t, err)
	require.NotNil(t, pos)

	// 2% of 1000 is exactly the 20 floor
	require.True(t, pos.Stake.Equal(decimal.NewFromInt(20)), "stake %s", pos.Stake)
	require.True(t, pos.Units.Equal(decimal.NewFromFloat(0.2)), "units %s", pos.Units)
	require.True(t, state.Bankroll.Equal(decimal.NewFromInt(980)), "bankroll %s", state.Bankroll)
	require.Len(t, state.OpenPositions, 1)
	require.NotEmpty(t, pos.ID)

	require.Len(t, audit.rows, 1)
	require.Equal(t, domain.TradeEventOpen, audit.rows[0].Event)
	require.Equal(t, "signal", audit.rows[0].Reason)
}

func TestLedger_OpenClampsStakeToMax(t *testing.T) {
	led, _ := newTestLedger()
	state := domain.NewPortfolioState(decimal.NewFromInt(100000), time.Now())

	pos, err := led.Open(&state, domain.Signal{MarketID: "BTCUSD", Action: domain.ActionLong},
		domain.AssetSnapshot{Label: "BTCUSD", Price: 50000}, defaultRisk(), time.Now())
	require.NoError(t, err)
	require.NotNil(t, pos)
	require.True(t, pos.Stake.Equal(decimal.NewFromInt(50)), "stake %s", pos.Stake)
}

func TestLedger_OpenSkipsWhenUnderfunded(t *testing.T) {
	led, audit := newTestLedger()
	state := domain.NewPortfolioState(decimal.NewFromInt(10), time.Now())

	pos, err := led.Open(&state, domain.Signal{MarketID: "BTCUSD", Action: domain.ActionLong},
		domain.AssetSnapshot{Label: "BTCUSD", Price: 100}, defaultRisk(), time.Now())
	require.NoError(t, err)
	require.Nil(t, pos)
	require.True(t, state.Bankroll.Equal(decimal.NewFromInt(10)))
	require.Empty(t, state.OpenPositions)
	require.Empty(t, audit.rows)
}

func TestLedger_OpenSkipsZeroPrice(t *testing.T) {
	led, _ := newTestLedger()
	state := domain.NewPortfolioState(decimal.NewFromInt(1000), time.Now())

	pos, err := led.Open(&state, domain.Signal{MarketID: "BTCUSD", Action: domain.ActionLong},
		domain.AssetSnapshot{Label: "BTCUSD", Price: 0}, defaultRisk(), time.Now())
	require.NoError(t, err)
	require.Nil(t, pos)
	require.Empty(t, state.OpenPositions)
}

func TestLedger_EvaluateClosesProfitTarget(t *testing.T) {
	led, audit := newTestLedger()
	now := time.Now()

	state := domain.NewPortfolioState(decimal.NewFromInt(900), now)
	state.OpenPositions = []domain.Position{{
		ID:         "pos1",
		MarketID:   "BTCUSD",
		Side:       domain.ActionLong,
		Stake:      decimal.NewFromInt(100),
		Units:      decimal.NewFromInt(10),
		EntryPrice: decimal.NewFromInt(10),
		OpenedAt:   now,
	}}

	prices := map[string]domain.AssetSnapshot{"BTCUSD": {Label: "BTCUSD", Price: 10.6}}
	rules := CloseRules{ProfitTarget: decimal.NewFromInt(5), MaxHoldMinutes: 5}

	closed, err := led.EvaluateCloses(&state, prices, rules, now)
	require.NoError(t, err)
	require.Len(t, closed, 1)
	require.Equal(t, "target", closed[0].Reason)
	require.True(t, closed[0].Pnl.Equal(decimal.NewFromInt(6)), "pnl %s", closed[0].Pnl)

	// stake returned exactly once: 900 + 100 + 6
	require.True(t, state.Bankroll.Equal(decimal.NewFromInt(1006)), "bankroll %s", state.Bankroll)
	require.Equal(t, 1, state.Wins)
	require.Equal(t, 0, state.Losses)
	require.Equal(t, 1, state.ClosedTrades)
	require.Empty(t, state.OpenPositions)

	require.Len(t, audit.rows, 1)
	require.Equal(t, domain.TradeEventClose, audit.rows[0].Event)
	require.Equal(t, "6.00", audit.rows[0].Pnl)

	// a second pass over the same state is a no-op
	closed, err = led.EvaluateCloses(&state, prices, rules, now)
	require.NoError(t, err)
	require.Empty(t, closed)
	require.True(t, state.Bankroll.Equal(decimal.NewFromInt(1006)))
	require.Equal(t, 1, state.ClosedTrades)
}

func TestLedger_EvaluateClosesTimeoutLoss(t *testing.T) {
	led, _ := newTestLedger()
	now := time.Now()

	state := domain.NewPortfolioState(decimal.NewFromInt(900), now)
	state.OpenPositions = []domain.Position{{
		ID:         "pos1",
		MarketID:   "ETHUSD",
		Side:       domain.ActionLong,
		Stake:      decimal.NewFromInt(100),
		Units:      decimal.NewFromInt(10),
		EntryPrice: decimal.NewFromInt(10),
		OpenedAt:   now.Add(-6 * time.Minute),
	}}

	prices := map[string]domain.AssetSnapshot{"ETHUSD": {Label: "ETHUSD", Price: 9.8}}
	rules := CloseRules{ProfitTarget: decimal.NewFromInt(5), MaxHoldMinutes: 5}

	closed, err := led.EvaluateCloses(&state, prices, rules, now)
	require.NoError(t, err)
	require.Len(t, closed, 1)
	require.Equal(t, "timeout", closed[0].Reason)
	require.True(t, closed[0].Pnl.Equal(decimal.NewFromInt(-2)), "pnl %s", closed[0].Pnl)
	require.True(t, state.Bankroll.Equal(decimal.NewFromInt(998)), "bankroll %s", state.Bankroll)
	require.Equal(t, 1, state.Losses)
}

func TestLedger_EvaluateClosesZeroPnlCountsAsWin(t *testing.T) {
	led, _ := newTestLedger()
	now := time.Now()

	state := domain.NewPortfolioState(decimal.NewFromInt(900), now)
	state.OpenPositions = []domain.Position{{
		ID:         "pos1",
		MarketID:   "BTCUSD",
		Side:       domain.ActionShort,
		Stake:      decimal.NewFromInt(100),
		Units:      decimal.NewFromInt(10),
		EntryPrice: decimal.NewFromInt(10),
		OpenedAt:   now.Add(-10 * time.Minute),
	}}

	prices := map[string]domain.AssetSnapshot{"BTCUSD": {Label: "BTCUSD", Price: 10}}
	rules := CloseRules{ProfitTarget: decimal.NewFromInt(5), MaxHoldMinutes: 5}

	closed, err := led.EvaluateCloses(&state, prices, rules, now)
	require.NoError(t, err)
	require.Len(t, closed, 1)
	require.True(t, closed[0].Pnl.IsZero())
	require.Equal(t, 1, state.Wins)
	require.Equal(t, 0, state.Losses)
}

func TestLedger_EvaluateClosesCarriesOverMissingPrice(t *testing.T) {
	led, audit := newTestLedger()
	now := time.Now()

	state := domain.NewPortfolioState(decimal.NewFromInt(900), now)
	state.OpenPositions = []domain.Position{{
		ID:         "pos1",
		MarketID:   "SOLUSD",
		Side:       domain.ActionLong,
		Stake:      decimal.NewFromInt(100),
		Units:      decimal.NewFromInt(10),
		EntryPrice: decimal.NewFromInt(10),
		OpenedAt:   now.Add(-time.Hour),
	}}

	closed, err := led.EvaluateCloses(&state, map[string]domain.AssetSnapshot{},
		CloseRules{ProfitTarget: decimal.NewFromInt(5), MaxHoldMinutes: 5}, now)
	require.NoError(t, err)
	require.Empty(t, closed)
	require.Len(t, state.OpenPositions, 1)
	require.Empty(t, audit.rows)
}

func TestLedger_ShortPnlNegated(t *testing.T) {
	pos := domain.Position{
		Side:       domain.ActionShort,
		Units:      decimal.NewFromInt(10),
		EntryPrice: decimal.NewFromInt(10),
	}
	require.True(t, pos.PnL(decimal.NewFromFloat(9.5)).Equal(decimal.NewFromInt(5)))
	require.True(t, pos.PnL(decimal.NewFromFloat(10.5)).Equal(decimal.NewFromInt(-5)))
}
