package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrTemplateCreated is returned by Load when a missing file was replaced by
// a template that needs editing.
var ErrTemplateCreated = errors.New("config file not found, created template")

const configTemplate = `# Options Scanner Configuration

schwab:
  # Prefer SCHWAB_ACCESS_TOKEN in .env
  access_token: ""
  requests_per_second: 2
  timeout: 30s
  max_retries: 3

finnhub:
  # Prefer FINNHUB_API_KEY in .env
  api_key: ""
  requests_per_second: 1

notifications:
  # Notification level: all, trades_only, errors_only
  level: all
  # Print notifications to the terminal
  console: true
  telegram:
    enabled: false
    bot_token: ""
    chat_id: ""
  webhook:
    enabled: false
    url: ""

storage:
  # sqlite or postgres (DATABASE_URL switches to postgres)
  driver: sqlite
  # Defaults to data/scanner.db in this directory
  # path: /var/lib/options-scanner/scanner.db

redis:
  # Leave empty to keep the earnings calendar in memory only
  addr: ""
  db: 0
  ttl: 720h

logging:
  level: info
  console: true
  file: false

scanner:
  # Symbols fetched in parallel per strategy
  concurrency: 4
  # How far ahead the earnings calendar is fetched
  earnings_horizon: 8760h
  # Serve /metrics and /healthz, e.g. ":9090"
  metrics_addr: ""
`

const strategiesTemplate = `# Options Scanner Strategies
# strategyType: PUT_CREDIT_SPREAD, CALL_CREDIT_SPREAD, IRON_CONDOR,
# BULLISH_BROKEN_WING_BUTTERFLY, BULLISH_ZEBRA, LONG_CALL_LEAP, LONG_CALL_LEAP_TOP_N,
# TECH_PUT_CREDIT_SPREAD, TECH_CALL_CREDIT_SPREAD, BULLISH_LONG_PUT_CREDIT_SPREAD,
# BULLISH_LONG_IRON_CONDOR

strategies:
  - enabled: true
    strategyType: PUT_CREDIT_SPREAD
    alias: Weekly put spreads
    securities: [SPY, QQQ, IWM]
    maxTradesToSend: 10
    filter:
      targetDTE: 30
      maxLossLimit: 1000
      minReturnOnRisk: 12
      shortLeg:
        maxDelta: 0.20
      longLeg:
        maxDelta: 0.10

  - enabled: false
    strategyType: TECH_PUT_CREDIT_SPREAD
    alias: Oversold put spreads
    securitiesFile: securities/large-caps.yaml
    technicalFilter:
      rsiCondition: OVERSOLD
      bollingerCondition: LOWER_BAND
      minVolume: 1000000
    filter:
      minDTE: 20
      maxDTE: 45
      minReturnOnRisk: 15

  - enabled: false
    strategyType: LONG_CALL_LEAP_TOP_N
    securities: [AAPL, MSFT, GOOGL]
    filter:
      minDTE: 365
      marginInterestRate: 6.0
      savingsInterestRate: 4.0
      topTradesCount: 3
`

func createTemplateConfig(configDir string) error {
	return writeTemplate(configDir, "config.yaml", configTemplate, 0644)
}

func createTemplateStrategies(configDir string) error {
	return writeTemplate(configDir, "strategies.yaml", strategiesTemplate, 0644)
}

func writeTemplate(configDir, name, content string, perm os.FileMode) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, name)
	if err := os.WriteFile(path, []byte(content), perm); err != nil {
		return fmt.Errorf("writing %s template: %w", name, err)
	}

	return fmt.Errorf("%w at %s", ErrTemplateCreated, path)
}
