// Package config assembles runtime settings from defaults, an optional yaml
// file and environment variables (highest precedence). Secrets only ever
// come from the environment.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/polypulse/engine/internal/services/market"
)

// Telegram holds digest delivery credentials.
type Telegram struct {
	BotToken string
	ChatID   string
}

// Config is the fully resolved runtime configuration. Every field carries a
// usable value after Load.
type Config struct {
	DataDir       string
	HTTPAddr      string
	WebhookSecret string
	Provider      string // yahoo, binance or bybit
	Universe      []market.UniverseEntry
	Feeds         []string

	Profile      string
	Bankroll     decimal.Decimal
	TargetProfit decimal.Decimal
	MaxCycles    int
	Interval     time.Duration
	BiasWindow   time.Duration

	Schedule   string // cron spec for scheduled runs, empty disables
	SendDigest bool
	Telegram   Telegram
}

// fileConfig is the yaml shape: money and durations as strings, converted
// after parsing.
type fileConfig struct {
	DataDir      string                 `yaml:"data_dir"`
	HTTPAddr     string                 `yaml:"http_addr"`
	Provider     string                 `yaml:"provider"`
	Universe     []market.UniverseEntry `yaml:"universe"`
	Feeds        []string               `yaml:"feeds"`
	Profile      string                 `yaml:"profile"`
	Bankroll     string                 `yaml:"bankroll"`
	TargetProfit string                 `yaml:"target_profit"`
	MaxCycles    int                    `yaml:"max_cycles"`
	Interval     string                 `yaml:"interval"`
	BiasWindow   string                 `yaml:"bias_window"`
	Schedule     string                 `yaml:"schedule"`
	SendDigest   *bool                  `yaml:"send_digest"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		DataDir:      "data",
		HTTPAddr:     ":8080",
		Provider:     "yahoo",
		Universe:     market.DefaultUniverse(),
		Profile:      "default",
		Bankroll:     decimal.NewFromInt(10000),
		TargetProfit: decimal.NewFromInt(5),
		MaxCycles:    6,
		Interval:     30 * time.Second,
		BiasWindow:   30 * time.Minute,
	}
}

// Load resolves the configuration: defaults, then the yaml file at path (if
// any), then environment variables. A .env file in the working directory is
// loaded first when present.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	explicitDigest := false

	if path != "" {
		payload, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrapf(err, "read config %s", path)
		}

		var fc fileConfig
		if err := yaml.Unmarshal(payload, &fc); err != nil {
			return Config{}, errors.Wrapf(err, "parse config %s", path)
		}
		if err := applyFile(&cfg, fc, &explicitDigest); err != nil {
			return Config{}, errors.Wrapf(err, "config %s", path)
		}
	}

	applyEnv(&cfg, &explicitDigest)

	// Setting both credentials implies delivery unless send_digest said
	// otherwise. An explicit true without credentials is left standing so the
	// missing secrets surface as an error at wiring time instead of silently
	// skipping delivery.
	if !explicitDigest && cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		cfg.SendDigest = true
	}

	if len(cfg.Universe) == 0 {
		cfg.Universe = market.DefaultUniverse()
	}
	switch cfg.Provider {
	case "yahoo", "binance", "bybit":
	default:
		return Config{}, errors.Errorf("unknown provider %q (want yahoo, binance or bybit)", cfg.Provider)
	}
	if cfg.Bankroll.Sign() <= 0 {
		return Config{}, errors.Errorf("bankroll must be positive, got %s", cfg.Bankroll)
	}
	if cfg.MaxCycles < 1 {
		cfg.MaxCycles = 1
	}
	return cfg, nil
}

func applyFile(cfg *Config, fc fileConfig, explicitDigest *bool) error {
	if fc.DataDir != "" {
		cfg.DataDir = fc.DataDir
	}
	if fc.HTTPAddr != "" {
		cfg.HTTPAddr = fc.HTTPAddr
	}
	if fc.Provider != "" {
		cfg.Provider = fc.Provider
	}
	if len(fc.Universe) > 0 {
		cfg.Universe = fc.Universe
	}
	if len(fc.Feeds) > 0 {
		cfg.Feeds = fc.Feeds
	}
	if fc.Profile != "" {
		cfg.Profile = fc.Profile
	}
	if fc.Bankroll != "" {
		bankroll, err := decimal.NewFromString(fc.Bankroll)
		if err != nil {
			return errors.Wrapf(err, "invalid bankroll %q", fc.Bankroll)
		}
		cfg.Bankroll = bankroll
	}
	if fc.TargetProfit != "" {
		target, err := decimal.NewFromString(fc.TargetProfit)
		if err != nil {
			return errors.Wrapf(err, "invalid target_profit %q", fc.TargetProfit)
		}
		cfg.TargetProfit = target
	}
	if fc.MaxCycles > 0 {
		cfg.MaxCycles = fc.MaxCycles
	}
	if fc.Interval != "" {
		interval, err := time.ParseDuration(fc.Interval)
		if err != nil {
			return errors.Wrapf(err, "invalid interval %q", fc.Interval)
		}
		cfg.Interval = interval
	}
	if fc.BiasWindow != "" {
		window, err := time.ParseDuration(fc.BiasWindow)
		if err != nil {
			return errors.Wrapf(err, "invalid bias_window %q", fc.BiasWindow)
		}
		cfg.BiasWindow = window
	}
	if fc.Schedule != "" {
		cfg.Schedule = fc.Schedule
	}
	if fc.SendDigest != nil {
		cfg.SendDigest = *fc.SendDigest
		*explicitDigest = true
	}
	return nil
}

func applyEnv(cfg *Config, explicitDigest *bool) {
	if v := os.Getenv("POLYPULSE_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("POLYPULSE_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("POLYPULSE_PROVIDER"); v != "" {
		cfg.Provider = v
	}
	if v := os.Getenv("POLYPULSE_PROFILE"); v != "" {
		cfg.Profile = v
	}
	if v := os.Getenv("POLYPULSE_BANKROLL"); v != "" {
		if bankroll, err := decimal.NewFromString(v); err == nil {
			cfg.Bankroll = bankroll
		}
	}
	if v := os.Getenv("POLYPULSE_MAX_CYCLES"); v != "" {
		if cycles, err := strconv.Atoi(v); err == nil {
			cfg.MaxCycles = cycles
		}
	}
	if v := os.Getenv("POLYPULSE_SCHEDULE"); v != "" {
		cfg.Schedule = v
	}
	if v := os.Getenv("POLYPULSE_SEND_DIGEST"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.SendDigest = enabled
			*explicitDigest = true
		}
	}
	if v := os.Getenv("SIGNAL_WEBHOOK_SECRET"); v != "" {
		cfg.WebhookSecret = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
}
