package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"options-scanner/internal/analysis/screener"
	apperrors "options-scanner/internal/errors"
	"options-scanner/internal/models"
	"options-scanner/internal/strategy"
)

const testConfig = `
schwab:
  access_token: file-token
  requests_per_second: 5
  timeout: 10s
notifications:
  level: trades_only
  telegram:
    enabled: true
    chat_id: "1234"
storage:
  driver: sqlite
  path: /tmp/scanner-test.db
scanner:
  concurrency: 8
`

const testStrategies = `
strategies:
  - enabled: true
    strategyType: put_credit_spread
    alias: Weekly puts
    securities: [spy, QQQ]
    maxTradesToSend: 5
    filter:
      targetDTE: 30
      minReturnOnRisk: 12
      shortLeg:
        maxDelta: 0.2
  - enabled: false
    strategyType: IRON_CONDOR
    securities: [IWM]
  - enabled: true
    strategyType: TECH_CALL_CREDIT_SPREAD
    securitiesFile: lists/tech.yaml
    technicalFilter:
      rsiCondition: OVERBOUGHT
      minVolume: 500000
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"SCHWAB_ACCESS_TOKEN", "FINNHUB_API_KEY", "TELEGRAM_BOT_TOKEN",
		"TELEGRAM_CHAT_ID", "DATABASE_URL", "REDIS_ADDR"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.yaml"), testConfig)
	writeFile(t, filepath.Join(dir, "strategies.yaml"), testStrategies)
	writeFile(t, filepath.Join(dir, ".env"), "TELEGRAM_BOT_TOKEN=env-bot\nREDIS_ADDR=localhost:6380\n")
	t.Setenv("SCHWAB_ACCESS_TOKEN", "env-token")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.Schwab.AccessToken)
	assert.Equal(t, 5, cfg.Schwab.RequestsPerSecond)
	assert.Equal(t, 10*time.Second, cfg.Schwab.Timeout)
	assert.Equal(t, "env-bot", cfg.Notifications.Telegram.BotToken)
	assert.Equal(t, "1234", cfg.Notifications.Telegram.ChatID)
	assert.Equal(t, "trades_only", cfg.Notifications.Level)
	assert.Equal(t, "localhost:6380", cfg.Redis.Addr)
	assert.Equal(t, 8, cfg.Scanner.Concurrency)
	assert.Equal(t, 8760*time.Hour, cfg.Scanner.EarningsHorizon)
	assert.Equal(t, "earnings:", cfg.Redis.Prefix)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 30*time.Second, cfg.Storage.QueryTimeout)

	require.Len(t, cfg.Strategies, 3)
	assert.Equal(t, strategy.PutCreditSpread, cfg.Strategies[0].Kind())
	require.NotNil(t, cfg.Strategies[2].TechnicalFilter)
	assert.Equal(t, screener.RSIOverbought, cfg.Strategies[2].TechnicalFilter.RSI)
	assert.Equal(t, int64(500000), cfg.Strategies[2].TechnicalFilter.MinVolume)
	assert.Len(t, cfg.EnabledStrategies(), 2)
}

func TestLoad_DatabaseURLSwitchesToPostgres(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.yaml"), testConfig)
	writeFile(t, filepath.Join(dir, "strategies.yaml"), "strategies: []\n")
	t.Setenv("DATABASE_URL", "postgres://scanner@localhost/scanner?sslmode=disable")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, "postgres://scanner@localhost/scanner?sslmode=disable", cfg.Storage.DSN)
}

func TestLoad_CreatesTemplates(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	_, err := Load(dir)
	assert.ErrorIs(t, err, ErrTemplateCreated)
	assert.FileExists(t, filepath.Join(dir, "config.yaml"))

	_, err = Load(dir)
	assert.ErrorIs(t, err, ErrTemplateCreated)
	assert.FileExists(t, filepath.Join(dir, "strategies.yaml"))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.NotEmpty(t, cfg.EnabledStrategies())

	configs, err := cfg.ScanConfigs(strategy.NewRegistry())
	require.NoError(t, err)
	require.Len(t, configs, 1)
	assert.Equal(t, []string{"SPY", "QQQ", "IWM"}, configs[0].Securities)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad driver", func(c *Config) { c.Storage.Driver = "mysql" }},
		{"bad level", func(c *Config) { c.Notifications.Level = "loud" }},
		{"negative concurrency", func(c *Config) { c.Scanner.Concurrency = -1 }},
		{"missing type", func(c *Config) {
			c.Strategies = []StrategyEntry{{Enabled: true, Securities: []string{"SPY"}}}
		}},
		{"missing securities", func(c *Config) {
			c.Strategies = []StrategyEntry{{Enabled: true, StrategyType: "IRON_CONDOR"}}
		}},
		{"bad technical filter", func(c *Config) {
			c.Strategies = []StrategyEntry{{
				Enabled:         true,
				StrategyType:    "TECH_PUT_CREDIT_SPREAD",
				Securities:      []string{"SPY"},
				TechnicalFilter: &screener.Conditions{RSI: "SIDEWAYS"},
			}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), apperrors.ErrConfigInvalid)
		})
	}

	assert.NoError(t, (&Config{}).Validate())
	disabled := &Config{Strategies: []StrategyEntry{{StrategyType: "IRON_CONDOR"}}}
	assert.NoError(t, disabled.Validate())
}

func TestDecodeFilter(t *testing.T) {
	registry := strategy.NewRegistry()

	filter, err := DecodeFilter(registry, strategy.PutCreditSpread, map[string]interface{}{
		"targetdte":    30,
		"maxLossLimit": "500",
		"shortLeg":     map[string]interface{}{"maxDelta": 0.2},
	})
	require.NoError(t, err)
	f, ok := filter.(*models.CreditSpreadFilter)
	require.True(t, ok)
	assert.Equal(t, 30, f.TargetDTE)
	assert.Equal(t, 500.0, f.MaxLossLimit)
	require.NotNil(t, f.ShortLeg)
	require.NotNil(t, f.ShortLeg.MaxDelta)
	assert.Equal(t, 0.2, *f.ShortLeg.MaxDelta)
	assert.Nil(t, f.LongLeg)
	assert.True(t, f.IgnoreEarnings)

	leap, err := DecodeFilter(registry, strategy.LongCallLeapTopN, nil)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultTopTradesCount, leap.(*models.LongCallLeapFilter).TopTradesCount)

	_, err = DecodeFilter(registry, strategy.PutCreditSpread, map[string]interface{}{"wingWidth": 5})
	assert.ErrorIs(t, err, apperrors.ErrConfigInvalid)

	_, err = DecodeFilter(registry, "STRADDLE", nil)
	assert.ErrorIs(t, err, apperrors.ErrUnknownStrategy)
}

func TestLoadSecurities(t *testing.T) {
	dir := t.TempDir()
	list := filepath.Join(dir, "list.yaml")
	writeFile(t, list, "- AAPL\n- MSFT\n")
	doc := filepath.Join(dir, "doc.yaml")
	writeFile(t, doc, "securities:\n  - NVDA\n")

	got, err := LoadSecurities(list)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, got)

	got, err = LoadSecurities(doc)
	require.NoError(t, err)
	assert.Equal(t, []string{"NVDA"}, got)

	_, err = LoadSecurities(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestScanConfigs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "lists", "tech.yaml"), "- AAPL\n- MSFT\n")

	cfg := &Config{Dir: dir, Strategies: []StrategyEntry{
		{Enabled: true, StrategyType: "put_credit_spread", Alias: "Puts", Securities: []string{"SPY"}, MaxTradesToSend: 5},
		{Enabled: false, StrategyType: "IRON_CONDOR", Securities: []string{"IWM"}},
		{Enabled: true, StrategyType: "TECH_CALL_CREDIT_SPREAD", Securities: []string{"QQQ"}, SecuritiesFile: "lists/tech.yaml",
			TechnicalFilter: &screener.Conditions{RSI: screener.RSIOverbought}},
	}}

	configs, err := cfg.ScanConfigs(strategy.NewRegistry())
	require.NoError(t, err)
	require.Len(t, configs, 2)

	assert.Equal(t, strategy.PutCreditSpread, configs[0].Kind)
	assert.Equal(t, "Puts", configs[0].Name())
	assert.Equal(t, 5, configs[0].MaxTradesToSend)
	assert.IsType(t, &models.CreditSpreadFilter{}, configs[0].Filter)

	assert.Equal(t, strategy.TechCallCreditSpread, configs[1].Kind)
	assert.Equal(t, []string{"QQQ", "AAPL", "MSFT"}, configs[1].Securities)
	require.NotNil(t, configs[1].TechnicalFilter)

	cfg.Strategies = []StrategyEntry{{Enabled: true, StrategyType: "STRADDLE", Securities: []string{"SPY"}}}
	_, err = cfg.ScanConfigs(strategy.NewRegistry())
	assert.ErrorIs(t, err, apperrors.ErrUnknownStrategy)
}
