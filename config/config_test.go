package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.Equal(t, "yahoo", cfg.Provider)
	require.Equal(t, ":8080", cfg.HTTPAddr)
	require.True(t, cfg.Bankroll.Equal(decimal.NewFromInt(10000)))
	require.Equal(t, 6, cfg.MaxCycles)
	require.Equal(t, 30*time.Second, cfg.Interval)
	require.Equal(t, 30*time.Minute, cfg.BiasWindow)
	require.Len(t, cfg.Universe, 6)
}

func TestLoad_YamlOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
provider: bybit
profile: sim_1000
bankroll: "1000"
max_cycles: 3
interval: 10s
universe:
  - symbol: BTCUSDT
    label: BTCUSD
    class: crypto
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "bybit", cfg.Provider)
	require.Equal(t, "sim_1000", cfg.Profile)
	require.True(t, cfg.Bankroll.Equal(decimal.NewFromInt(1000)))
	require.Equal(t, 3, cfg.MaxCycles)
	require.Equal(t, 10*time.Second, cfg.Interval)
	require.Len(t, cfg.Universe, 1)
	require.Equal(t, "BTCUSD", cfg.Universe[0].Label)
}

func TestLoad_EnvWins(t *testing.T) {
	t.Setenv("POLYPULSE_PROVIDER", "binance")
	t.Setenv("POLYPULSE_BANKROLL", "250")
	t.Setenv("SIGNAL_WEBHOOK_SECRET", "hush")
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("TELEGRAM_CHAT_ID", "chat")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "binance", cfg.Provider)
	require.True(t, cfg.Bankroll.Equal(decimal.NewFromInt(250)))
	require.Equal(t, "hush", cfg.WebhookSecret)
	require.True(t, cfg.SendDigest)
}

func TestLoad_SendDigestExplicitWithoutCreds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("send_digest: true\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.True(t, cfg.SendDigest)
	require.Empty(t, cfg.Telegram.BotToken)
	require.Empty(t, cfg.Telegram.ChatID)
}

func TestLoad_SendDigestEnvDisablesDespiteCreds(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("TELEGRAM_CHAT_ID", "chat")
	t.Setenv("POLYPULSE_SEND_DIGEST", "false")

	cfg, err := Load("")
	require.NoError(t, err)
	require.False(t, cfg.SendDigest)
}

func TestLoad_RejectsUnknownProvider(t *testing.T) {
	t.Setenv("POLYPULSE_PROVIDER", "kraken")
	_, err := Load("")
	require.Error(t, err)
}
