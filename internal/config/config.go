// Package config provides configuration management for the options scanner.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	apperrors "options-scanner/internal/errors"
	"options-scanner/internal/logging"
	"options-scanner/internal/notify"
	"options-scanner/internal/provider"
	"options-scanner/internal/store"
)

// Config holds all application configuration.
type Config struct {
	Schwab        provider.SchwabConfig  `mapstructure:"schwab"`
	Finnhub       provider.FinnhubConfig `mapstructure:"finnhub"`
	Notifications notify.Config          `mapstructure:"notifications"`
	Storage       store.Config           `mapstructure:"storage"`
	Redis         RedisConfig            `mapstructure:"redis"`
	Logging       logging.LogConfig      `mapstructure:"logging"`
	Scanner       ScannerConfig          `mapstructure:"scanner"`
	Strategies    []StrategyEntry        `mapstructure:"-"` // Loaded separately

	// Dir is the directory the files were read from.
	Dir string `mapstructure:"-"`
}

// RedisConfig holds the earnings calendar cache settings. An empty Addr
// keeps the cache in memory only.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// ScannerConfig holds execution settings.
type ScannerConfig struct {
	Concurrency     int           `mapstructure:"concurrency"`
	EarningsHorizon time.Duration `mapstructure:"earnings_horizon"`
	MetricsAddr     string        `mapstructure:"metrics_addr"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/options-scanner"
	}
	return filepath.Join(home, ".config", "options-scanner")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	if err := loadDotEnv(configDir); err != nil {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := &Config{Dir: configDir}

	if err := loadConfigFile(configDir, cfg); err != nil {
		return nil, fmt.Errorf("loading config.yaml: %w", err)
	}

	strategies, err := loadStrategies(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading strategies.yaml: %w", err)
	}
	cfg.Strategies = strategies

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// loadDotEnv reads configDir/.env, then ./.env. Variables already set in the
// environment win.
func loadDotEnv(configDir string) error {
	for _, path := range []string{filepath.Join(configDir, ".env"), ".env"} {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper, configDir string) {
	logDefaults := logging.DefaultLogConfig()
	v.SetDefault("logging.level", logDefaults.Level)
	v.SetDefault("logging.console", logDefaults.Console)
	v.SetDefault("logging.file", logDefaults.File)
	v.SetDefault("logging.file_path", logDefaults.FilePath)
	v.SetDefault("logging.max_size", logDefaults.MaxSize)
	v.SetDefault("logging.max_backups", logDefaults.MaxBackups)
	v.SetDefault("logging.max_age", logDefaults.MaxAge)

	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.path", filepath.Join(configDir, "data", "scanner.db"))
	v.SetDefault("storage.query_timeout", "30s")

	v.SetDefault("redis.prefix", "earnings:")
	v.SetDefault("redis.ttl", "720h")

	v.SetDefault("notifications.level", string(notify.LevelAll))
	v.SetDefault("notifications.console", true)

	v.SetDefault("scanner.concurrency", 4)
	v.SetDefault("scanner.earnings_horizon", "8760h")
}

func loadConfigFile(configDir string, cfg *Config) error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	setDefaults(v, configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
		// Config file not found, create template
		return createTemplateConfig(configDir)
	}

	return v.Unmarshal(cfg)
}

func loadStrategies(configDir string) ([]StrategyEntry, error) {
	v := viper.New()
	v.SetConfigName("strategies")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		return nil, createTemplateStrategies(configDir)
	}

	var entries []StrategyEntry
	if err := v.UnmarshalKey("strategies", &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SCHWAB_ACCESS_TOKEN"); v != "" {
		cfg.Schwab.AccessToken = v
	}
	if v := os.Getenv("FINNHUB_API_KEY"); v != "" {
		cfg.Finnhub.APIKey = v
	}

	// Telegram
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Notifications.Telegram.ChatID = v
	}

	// Storage: a database URL switches to Postgres
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Storage.DSN = v
		cfg.Storage.Driver = "postgres"
	}

	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Storage.Driver) {
	case "", "sqlite", "sqlite3", "postgres", "postgresql":
	default:
		return apperrors.NewValidationError("storage.driver", c.Storage.Driver, "must be sqlite or postgres")
	}

	switch notify.NotificationLevel(c.Notifications.Level) {
	case "", notify.LevelAll, notify.LevelTradesOnly, notify.LevelErrorsOnly:
	default:
		return apperrors.NewValidationError("notifications.level", c.Notifications.Level,
			"must be all, trades_only or errors_only")
	}

	if c.Scanner.Concurrency < 0 {
		return apperrors.NewValidationError("scanner.concurrency", c.Scanner.Concurrency, "must be non-negative")
	}

	for i, entry := range c.Strategies {
		if err := entry.Validate(); err != nil {
			return fmt.Errorf("strategies[%d]: %w", i, err)
		}
	}

	return nil
}

// EnabledStrategies returns the entries with Enabled set, in file order.
func (c *Config) EnabledStrategies() []StrategyEntry {
	var out []StrategyEntry
	for _, e := range c.Strategies {
		if e.Enabled {
			out = append(out, e)
		}
	}
	return out
}
