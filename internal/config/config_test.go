package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv(EnvTelegramToken, "")
	t.Setenv(EnvTelegramChat, "")
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.yaml", "app:\n  env: test\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.App.Env)
	assert.Equal(t, "text", cfg.App.LogFormat)
	assert.Equal(t, "binance", cfg.Market.Source)
	assert.Equal(t, "1h", cfg.Market.Timeframe)
	assert.Equal(t, 30, cfg.Market.UniverseMax)
	assert.Equal(t, "classification", cfg.Scoring.Mode)
	assert.Equal(t, 1.0, cfg.Scoring.Threshold)
	assert.Equal(t, 5, cfg.Alert.MaxPerCycle)
	assert.Equal(t, 60, cfg.Alert.WindowMinutes)
	assert.Equal(t, 0.05, cfg.Ledger.Fraction)
	assert.Equal(t, 10.0, cfg.Ledger.MinTrade)
	assert.Equal(t, "balance", cfg.Ledger.SizingBasis)
	assert.True(t, cfg.Position.Enabled)
	assert.Equal(t, 5.0, cfg.Position.StopLossPct)
	assert.Equal(t, "volatility", cfg.Position.TargetMode)
	assert.Equal(t, 2.5, cfg.Position.MinTargetPct)
	assert.Equal(t, 3.0, cfg.Position.VolatilityFactor)
	assert.Equal(t, 5, cfg.Position.MonitorMinutes)
	assert.Equal(t, 120, cfg.Resolver.IntervalMinutes)
	assert.Equal(t, 24, cfg.Resolver.CooldownHours)
	assert.Equal(t, 2, cfg.Schedule.SummaryIntervalHours)
	assert.False(t, cfg.Notify.Telegram.Enabled)
}

func TestLoadKeepsExplicitValues(t *testing.T) {
	t.Setenv(EnvTelegramToken, "")
	t.Setenv(EnvTelegramChat, "")
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.yaml", `
position:
  enabled: false
  target_mode: fixed
  fixed_target_pct: 10
schedule:
  offset_seconds: 0
  run_immediately: false
market:
  symbols: ["btcusdt", "ETH/USDT", "BTC/USDT"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.False(t, cfg.Position.Enabled)
	assert.Equal(t, "fixed", cfg.Position.TargetMode)
	assert.Equal(t, 0, cfg.Schedule.OffsetSeconds)
	assert.False(t, cfg.Schedule.RunImmediately)
	assert.Equal(t, []string{"BTC/USDT", "ETH/USDT"}, cfg.Market.Symbols)
}

func TestLoadResolvesIncludes(t *testing.T) {
	t.Setenv(EnvTelegramToken, "")
	t.Setenv(EnvTelegramChat, "")
	dir := t.TempDir()
	writeConfig(t, dir, "ledger.yaml", "ledger:\n  initial_balance: 250\n  sizing_basis: principal\n")
	path := writeConfig(t, dir, "config.yaml", "include:\n  - ledger.yaml\nalert:\n  max_per_cycle: 3\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 250.0, cfg.Ledger.InitialBalance)
	assert.Equal(t, "principal", cfg.Ledger.SizingBasis)
	assert.Equal(t, 3, cfg.Alert.MaxPerCycle)
}

func TestLoadEnvEnablesTelegram(t *testing.T) {
	t.Setenv(EnvTelegramToken, "token")
	t.Setenv(EnvTelegramChat, "42")
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.yaml", "app:\n  env: prod\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Notify.Telegram.Enabled)
	assert.Equal(t, "token", cfg.Notify.Telegram.BotToken)
	assert.Equal(t, "42", cfg.Notify.Telegram.ChatID)
}

func TestLoadRejectsInvalidSections(t *testing.T) {
	t.Setenv(EnvTelegramToken, "")
	t.Setenv(EnvTelegramChat, "")
	cases := map[string]string{
		"scoring mode":    "scoring:\n  mode: ranking\n",
		"rule regression": "scoring:\n  mode: regression\n",
		"linear no path":  "scoring:\n  provider: linear\n",
		"redis no addr":   "alert:\n  window_backend: redis\n",
		"sizing basis":    "ledger:\n  sizing_basis: equity\n",
		"target mode":     "position:\n  target_mode: trailing\n",
		"short candles":   "market:\n  candle_limit: 20\n",
		"log format":      "app:\n  log_format: xml\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			path := writeConfig(t, dir, "config.yaml", body)
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}
