// Package engine drives the fetch -> score -> trade -> persist cycle for one
// profile at a time.
package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/polypulse/engine/internal/domain"
	"github.com/polypulse/engine/internal/services/ledger"
	"github.com/polypulse/engine/internal/services/scorer"
)

const (
	defaultBiasWindow  = 30 * time.Minute
	defaultMaxHoldMins = 5
	candidateCount     = 3

	// Below this mean |momentum| the market counts as calm and thresholds
	// tighten toward zero.
	calmVolatilityCut = 0.12
	thresholdTighten  = 0.7
	minTightenedLong  = 0.04
	minTightenedShort = -0.04
)

// TapeProvider supplies the best-effort market batch for a cycle.
type TapeProvider interface {
	Fetch(ctx context.Context) ([]domain.AssetSnapshot, error)
}

// SentimentProvider supplies the global sentiment snapshot for a cycle.
type SentimentProvider interface {
	Fetch(ctx context.Context) (domain.SentimentSnapshot, error)
}

// StrategySource resolves the active scoring config.
type StrategySource interface {
	Active() (domain.StrategyConfig, error)
}

// BiasSource returns recently submitted bias signals.
type BiasSource interface {
	Recent(maxAge time.Duration, now time.Time) ([]domain.BiasSignal, error)
}

// SignalAudit receives the scored batch each cycle.
type SignalAudit interface {
	AppendBatch(rows []domain.SignalRow) error
}

// TradeAudit receives one row per open/close event.
type TradeAudit interface {
	Append(row domain.TradeRecord) error
}

// StateStore loads and persists per-profile portfolio documents.
type StateStore interface {
	Load(profile string, seedBankroll decimal.Decimal) (domain.PortfolioState, error)
	Save(profile string, state domain.PortfolioState) error
}

// Engine wires the collaborators of the decision loop.
type Engine struct {
	tape      TapeProvider
	sentiment SentimentProvider
	strategy  StrategySource
	bias      BiasSource
	signals   SignalAudit
	trades    TradeAudit
	states    StateStore
	logger    *zap.Logger
}

// New creates an engine.
func New(tape TapeProvider, sentiment SentimentProvider, strategy StrategySource, bias BiasSource,
	signals SignalAudit, trades TradeAudit, states StateStore, logger *zap.Logger) *Engine {
	return &Engine{
		tape:      tape,
		sentiment: sentiment,
		strategy:  strategy,
		bias:      bias,
		signals:   signals,
		trades:    trades,
		states:    states,
		logger:    logger,
	}
}

// RunParams configures one multi-cycle run for a single profile.
type RunParams struct {
	Profile      string
	Bankroll     decimal.Decimal
	TargetProfit decimal.Decimal
	MaxCycles    int
	Interval     time.Duration
	Risk         ledger.RiskConfig
	BiasWindow   time.Duration
	Observer     domain.Observer
}

// Adaptive is the per-cycle threshold decision.
type Adaptive struct {
	Volatility float64 `json:"vol"`
	LongT      float64 `json:"longT"`
	ShortT     float64 `json:"shortT"`
}

// Summary is the structured result handed to digest formatting. The engine
// itself never formats or delivers text.
type Summary struct {
	Profile       string                   `json:"profile"`
	Cycle         int                      `json:"cycle"`
	MaxCycles     int                      `json:"maxCycles"`
	Strategy      string                   `json:"strategy"`
	State         domain.PortfolioState    `json:"state"`
	Sentiment     domain.SentimentSnapshot `json:"sentiment"`
	TopSignals    []domain.Signal          `json:"topSignals"`
	AllSignals    []domain.Signal          `json:"allSignals"`
	Opened        []domain.Position        `json:"opened"`
	Closed        []domain.ClosedPosition  `json:"closed"`
	Adaptive      Adaptive                 `json:"adaptive"`
	TargetProfit  decimal.Decimal          `json:"targetProfit"`
	SessionPnl    decimal.Decimal          `json:"sessionPnl"`
	TargetReached bool                     `json:"targetReached"`
}

// Run executes up to MaxCycles iterations, stopping early once the session's
// realized pnl reaches the target. Any failure aborts the remainder of the
// run; state persisted by earlier steps stands.
func (e *Engine) Run(ctx context.Context, params RunParams) (Summary, error) {
	params = withDefaults(params)
	emit := params.Observer
	if emit == nil {
		emit = func(domain.ProgressEvent) {}
	}

	state, err := e.states.Load(params.Profile, params.Bankroll)
	if err != nil {
		return Summary{}, errors.Wrap(err, "load portfolio state")
	}
	startRealized := state.RealizedPnl

	led := ledger.New(params.Profile, e.trades, e.logger)

	emit(logEvent(fmt.Sprintf("Starting trading cycle (%s, $%s)", params.Profile, params.Bankroll.String())))

	var summary Summary
	for cycle := 1; cycle <= params.MaxCycles; cycle++ {
		summary, err = e.runCycle(ctx, params, &state, led, cycle, startRealized, emit)
		if err != nil {
			return summary, err
		}

		if summary.TargetReached {
			emit(logEvent(fmt.Sprintf("Session target reached: +$%s", summary.SessionPnl.StringFixed(2))))
			break
		}

		emit(logEvent(fmt.Sprintf("Cycle %d complete. Bankroll: $%s", cycle, state.Bankroll.StringFixed(2))))
		if cycle < params.MaxCycles {
			emit(logEvent(fmt.Sprintf("Waiting %s before next cycle...", params.Interval)))
			select {
			case <-time.After(params.Interval):
			case <-ctx.Done():
				return summary, ctx.Err()
			}
		}
	}

	emit(logEvent("Trading session complete!"))
	return summary, nil
}

// runCycle performs one iteration over its own consistent snapshot of
// inputs; nothing is re-fetched mid-iteration.
func (e *Engine) runCycle(ctx context.Context, params RunParams, state *domain.PortfolioState,
	led *ledger.Ledger, cycle int, startRealized decimal.Decimal, emit domain.Observer) (Summary, error) {

	emit(logEvent(fmt.Sprintf("Cycle %d/%d: Fetching market data & sentiment...", cycle, params.MaxCycles)))

	tape, sent, err := e.fetchInputs(ctx)
	if err != nil {
		return Summary{}, err
	}

	emit(domain.ProgressEvent{Type: domain.EventTape, Data: tape})
	emit(logEvent(fmt.Sprintf("Market tape: %d assets fetched", len(tape))))
	emit(domain.ProgressEvent{Type: domain.EventSentiment, Data: sent})
	emit(logEvent(fmt.Sprintf("Sentiment: %s (%.3f)", sent.Mood(), sent.Score)))

	strategy, err := e.strategy.Active()
	if err != nil {
		return Summary{}, errors.Wrap(err, "resolve active strategy")
	}

	now := time.Now().UTC()
	biasSignals, err := e.bias.Recent(params.BiasWindow, now)
	if err != nil {
		return Summary{}, errors.Wrap(err, "load recent bias signals")
	}

	emit(logEvent("Scoring signals..."))
	signals := make([]domain.Signal, 0, len(tape))
	for _, asset := range tape {
		signals = append(signals, scorer.Score(asset, sent.Score, strategy.Params, biasSignals))
	}

	adaptive := adaptThresholds(signals, strategy.Params)
	for i := range signals {
		signals[i].Action = scorer.Classify(signals[i].FinalScore, adaptive.LongT, adaptive.ShortT)
	}

	rows := make([]domain.SignalRow, 0, len(signals))
	ts := now.Format(time.RFC3339)
	for _, s := range signals {
		rows = append(rows, domain.SignalRow{Timestamp: ts, Profile: params.Profile, Signal: s})
	}
	if err := e.signals.AppendBatch(rows); err != nil {
		return Summary{}, errors.Wrap(err, "audit signal batch")
	}

	emit(domain.ProgressEvent{Type: domain.EventSignals, Data: signals})
	emit(logEvent(fmt.Sprintf("Signals scored: %d actionable out of %d", countActionable(signals), len(signals))))

	prices := domain.TapeByLabel(tape)

	emit(logEvent("Checking positions for closes..."))
	closed, err := led.EvaluateCloses(state, prices, ledger.CloseRules{
		ProfitTarget:   params.TargetProfit,
		MaxHoldMinutes: defaultMaxHoldMins,
	}, now)
	if err != nil {
		return Summary{}, err
	}
	if len(closed) > 0 {
		emit(logEvent(fmt.Sprintf("Closed %d position(s)", len(closed))))
	}

	top := scorer.TopTradesWithFallback(signals, candidateCount)

	opened := make([]domain.Position, 0, len(top))
	for _, s := range top {
		if state.HasOpen(s.MarketID, s.Action) {
			continue
		}
		asset, ok := prices[s.MarketID]
		if !ok {
			continue
		}
		pos, err := led.Open(state, s, asset, params.Risk, now)
		if err != nil {
			return Summary{}, err
		}
		if pos != nil {
			opened = append(opened, *pos)
		}
	}
	if len(opened) > 0 {
		emit(logEvent(fmt.Sprintf("Opened %d position(s)", len(opened))))
	}

	emit(domain.ProgressEvent{Type: domain.EventTrades, Data: domain.TradesPayload{Opened: opened, Closed: closed}})

	if err := e.states.Save(params.Profile, *state); err != nil {
		return Summary{}, errors.Wrap(err, "persist portfolio state")
	}
	emit(domain.ProgressEvent{Type: domain.EventState, Data: domain.StatePayload{Profile: params.Profile, PortfolioState: *state}})

	sessionPnl := state.RealizedPnl.Sub(startRealized)

	return Summary{
		Profile:       params.Profile,
		Cycle:         cycle,
		MaxCycles:     params.MaxCycles,
		Strategy:      strategy.Name,
		State:         *state,
		Sentiment:     sent,
		TopSignals:    top,
		AllSignals:    signals,
		Opened:        opened,
		Closed:        closed,
		Adaptive:      adaptive,
		TargetProfit:  params.TargetProfit,
		SessionPnl:    sessionPnl,
		TargetReached: sessionPnl.GreaterThanOrEqual(params.TargetProfit),
	}, nil
}

// fetchInputs obtains tape and sentiment concurrently and joins
// unconditionally. Partial per-item failures were already absorbed upstream;
// only a wholesale provider failure aborts the run.
func (e *Engine) fetchInputs(ctx context.Context) ([]domain.AssetSnapshot, domain.SentimentSnapshot, error) {
	var (
		tape    []domain.AssetSnapshot
		tapeErr error
		sent    domain.SentimentSnapshot
		sentErr error
	)

	done := make(chan struct{}, 2)
	go func() {
		tape, tapeErr = e.tape.Fetch(ctx)
		done <- struct{}{}
	}()
	go func() {
		sent, sentErr = e.sentiment.Fetch(ctx)
		done <- struct{}{}
	}()
	<-done
	<-done

	if tapeErr != nil {
		return nil, domain.SentimentSnapshot{}, errors.Wrap(tapeErr, "fetch market tape")
	}
	if sentErr != nil {
		return nil, domain.SentimentSnapshot{}, errors.Wrap(sentErr, "fetch sentiment")
	}
	return tape, sent, nil
}

// adaptThresholds tightens decision boundaries toward zero in calm markets,
// using mean |momentum| across the batch as the volatility proxy.
func adaptThresholds(signals []domain.Signal, params domain.StrategyParams) Adaptive {
	vol := 0.0
	if len(signals) > 0 {
		for _, s := range signals {
			vol += math.Abs(s.Components.Momentum)
		}
		vol /= float64(len(signals))
	}

	longT := params.LongThreshold
	shortT := params.ShortThreshold
	if vol < calmVolatilityCut {
		longT = math.Max(minTightenedLong, params.LongThreshold*thresholdTighten)
		shortT = math.Min(minTightenedShort, params.ShortThreshold*thresholdTighten)
	}

	return Adaptive{Volatility: vol, LongT: longT, ShortT: shortT}
}

func countActionable(signals []domain.Signal) int {
	n := 0
	for _, s := range signals {
		if s.Actionable() {
			n++
		}
	}
	return n
}

func logEvent(message string) domain.ProgressEvent {
	return domain.ProgressEvent{Type: domain.EventLog, Message: message}
}

func withDefaults(params RunParams) RunParams {
	if params.Profile == "" {
		params.Profile = "default"
	}
	if params.Bankroll.IsZero() {
		params.Bankroll = decimal.NewFromInt(10000)
	}
	if params.TargetProfit.IsZero() {
		params.TargetProfit = decimal.NewFromInt(5)
	}
	if params.MaxCycles < 1 {
		params.MaxCycles = 1
	}
	if params.Interval <= 0 {
		params.Interval = 30 * time.Second
	}
	if params.BiasWindow <= 0 {
		params.BiasWindow = defaultBiasWindow
	}
	if params.Risk.RiskPct.IsZero() {
		params.Risk = DefaultRisk(params.Bankroll)
	}
	return params
}

// DefaultRisk sizes stakes at 2% of bankroll within [20, max(50, 5% of the
// seed bankroll)].
func DefaultRisk(bankroll decimal.Decimal) ledger.RiskConfig {
	maxStake := bankroll.Mul(decimal.NewFromFloat(0.05))
	floor := decimal.NewFromInt(50)
	if maxStake.LessThan(floor) {
		maxStake = floor
	}
	return ledger.RiskConfig{
		RiskPct:  decimal.NewFromFloat(0.02),
		MinStake: decimal.NewFromInt(20),
		MaxStake: maxStake,
	}
}
