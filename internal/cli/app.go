package cli

import (
	"path/filepath"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/polypulse/engine/config"
	"github.com/polypulse/engine/internal/analytics"
	"github.com/polypulse/engine/internal/services/digest"
	"github.com/polypulse/engine/internal/services/engine"
	"github.com/polypulse/engine/internal/services/market"
	"github.com/polypulse/engine/internal/services/sentiment"
	"github.com/polypulse/engine/internal/storage/biassignals"
	"github.com/polypulse/engine/internal/storage/portfolio"
	"github.com/polypulse/engine/internal/storage/signallog"
	"github.com/polypulse/engine/internal/storage/strategies"
	"github.com/polypulse/engine/internal/storage/tradelog"
)

const fetchTimeout = 20 * time.Second

// app is the wired object graph for one process.
type app struct {
	cfg        config.Config
	logger     *zap.Logger
	eng        *engine.Engine
	strategies *strategies.Store
	states     *portfolio.Store
	bias       *biassignals.WALStore
	signals    *signallog.WALStore
	trades     *tradelog.WALStore
	analytics  *analytics.Service
	sender     *digest.TelegramSender
}

// buildApp constructs every component under cfg.DataDir. The digest sender
// is nil when delivery is disabled.
func buildApp(cfg config.Config, logger *zap.Logger) (*app, error) {
	strategyStore, err := strategies.NewStore(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	stateStore, err := portfolio.NewStore(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	biasStore, err := biassignals.NewWALStore(filepath.Join(cfg.DataDir, "bias"))
	if err != nil {
		return nil, err
	}
	signalStore, err := signallog.NewWALStore(filepath.Join(cfg.DataDir, "signals"))
	if err != nil {
		return nil, err
	}
	tradeStore, err := tradelog.NewWALStore(filepath.Join(cfg.DataDir, "trades"))
	if err != nil {
		return nil, err
	}

	fetcher, err := newFetcher(cfg.Provider)
	if err != nil {
		return nil, err
	}
	tape := market.NewCollector(fetcher, cfg.Universe, logger)
	news := sentiment.NewCollector(fetchTimeout, cfg.Feeds, logger)

	eng := engine.New(tape, news, strategyStore, biasStore, signalStore, tradeStore, stateStore, logger)

	profiles := map[string]decimal.Decimal{cfg.Profile: cfg.Bankroll}
	for _, p := range engine.DefaultSimulationProfiles() {
		profiles[p.Profile] = p.Bankroll
	}
	stats := analytics.NewService(tradeStore, stateStore, profiles)

	var sender *digest.TelegramSender
	if cfg.SendDigest {
		sender, err = digest.NewTelegramSender(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			return nil, err
		}
	}

	return &app{
		cfg:        cfg,
		logger:     logger,
		eng:        eng,
		strategies: strategyStore,
		states:     stateStore,
		bias:       biasStore,
		signals:    signalStore,
		trades:     tradeStore,
		analytics:  stats,
		sender:     sender,
	}, nil
}

func (a *app) close() {
	for _, c := range []interface{ Close() error }{a.bias, a.signals, a.trades} {
		if err := c.Close(); err != nil {
			a.logger.Warn("close store", zap.Error(err))
		}
	}
}

// runParams maps the configuration onto one engine run.
func (a *app) runParams() engine.RunParams {
	return engine.RunParams{
		Profile:      a.cfg.Profile,
		Bankroll:     a.cfg.Bankroll,
		TargetProfit: a.cfg.TargetProfit,
		MaxCycles:    a.cfg.MaxCycles,
		Interval:     a.cfg.Interval,
		BiasWindow:   a.cfg.BiasWindow,
		Risk:         engine.DefaultRisk(a.cfg.Bankroll),
	}
}

func newFetcher(provider string) (market.QuoteFetcher, error) {
	switch provider {
	case "yahoo":
		return market.NewYahooFetcher(fetchTimeout), nil
	case "binance":
		return market.NewBinanceFetcher(binance.NewClient("", "")), nil
	case "bybit":
		return market.NewBybitFetcher(bybit.NewClient()), nil
	default:
		return nil, errors.Errorf("unknown market provider %q", provider)
	}
}
