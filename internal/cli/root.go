// Package cli provides the command-line interface for the options scanner.
package cli

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"options-scanner/internal/config"
	"options-scanner/internal/logging"
	"options-scanner/internal/strategy"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2026-01-01"
)

// skipConfig marks commands that run without loading configuration.
const skipConfig = "skip-config"

// App holds the application dependencies.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Registry *strategy.Registry
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(logger zerolog.Logger) *cobra.Command {
	app := &App{
		Logger:   logger,
		Registry: strategy.NewRegistry(),
	}

	rootCmd := &cobra.Command{
		Use:   "scanner",
		Short: "Options strategy scanner",
		Long: `Options Scanner evaluates option chains against configured strategies
(credit spreads, iron condors, broken-wing butterflies, ZEBRAs and LEAPs)
and reports the best candidates by return on risk.

Strategies are configured in strategies.yaml; application settings in config.yaml.
Both live in the config directory (default: ~/.config/options-scanner).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipConfig] == "true" {
				return nil
			}
			return app.load(cmd)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/options-scanner)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newScanCmd(app))
	rootCmd.AddCommand(newStrategiesCmd(app))
	rootCmd.AddCommand(newChainCmd(app))
	rootCmd.AddCommand(newHistoryCmd(app))

	return rootCmd
}

// load reads configuration and rebuilds the logger from it.
func (a *App) load(cmd *cobra.Command) error {
	dir, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(dir)
	if err != nil {
		if errors.Is(err, config.ErrTemplateCreated) {
			NewOutput(cmd).Warning("%v", err)
			NewOutput(cmd).Println("Edit the template and run the command again.")
		}
		return err
	}
	a.Config = cfg

	debug, _ := cmd.Flags().GetBool("debug")
	if debug {
		cfg.Logging.Level = "debug"
	}
	a.Logger = logging.NewLoggerWithConfig(cfg.Logging)
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Annotations: map[string]string{skipConfig: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("Options Scanner v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(redacted(app.Config))
			}
			return showConfig(output, app.Config)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:         "path",
		Short:       "Show configuration directory path",
		Annotations: map[string]string{skipConfig: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			dir, _ := cmd.Flags().GetString("config")
			if dir == "" {
				dir = config.DefaultConfigDir()
			}
			if output.IsJSON() {
				output.JSON(map[string]string{"path": dir})
			} else {
				output.Println(dir)
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files and strategy filters",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			configs, err := app.Config.ScanConfigs(app.Registry)
			if err != nil {
				output.Error("Strategy validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"valid": true, "strategies": len(configs)})
			}
			output.Success("✓ Configuration is valid (%d enabled strategies)", len(configs))
			return nil
		},
	})

	return cmd
}

func secret(s string) string {
	if s == "" {
		return "(not set)"
	}
	return "********"
}

// redacted returns a copy of cfg with credentials masked.
func redacted(cfg *config.Config) config.Config {
	c := *cfg
	c.Schwab.AccessToken = secret(c.Schwab.AccessToken)
	c.Finnhub.APIKey = secret(c.Finnhub.APIKey)
	c.Notifications.Telegram.BotToken = secret(c.Notifications.Telegram.BotToken)
	c.Redis.Password = secret(c.Redis.Password)
	if c.Storage.DSN != "" {
		c.Storage.DSN = secret(c.Storage.DSN)
	}
	return c
}

func showConfig(output *Output, cfg *config.Config) error {
	output.Bold("Providers")
	output.Printf("  Schwab token:    %s\n", secret(cfg.Schwab.AccessToken))
	output.Printf("  Finnhub key:     %s\n", secret(cfg.Finnhub.APIKey))
	output.Println()

	output.Bold("Storage")
	output.Printf("  Driver:          %s\n", cfg.Storage.Driver)
	if cfg.Storage.Driver == "postgres" {
		output.Printf("  DSN:             %s\n", secret(cfg.Storage.DSN))
	} else {
		output.Printf("  Path:            %s\n", cfg.Storage.Path)
	}
	output.Printf("  Redis:           %s\n", orDash(cfg.Redis.Addr))
	output.Println()

	output.Bold("Scanner")
	output.Printf("  Concurrency:     %d\n", cfg.Scanner.Concurrency)
	output.Printf("  Earnings horizon: %s\n", cfg.Scanner.EarningsHorizon)
	output.Printf("  Metrics address: %s\n", orDash(cfg.Scanner.MetricsAddr))
	output.Printf("  Strategies:      %d enabled of %d\n", len(cfg.EnabledStrategies()), len(cfg.Strategies))
	output.Println()

	output.Bold("Notifications")
	output.Printf("  Level:           %s\n", cfg.Notifications.Level)
	output.Printf("  Console:         %v\n", cfg.Notifications.Console)
	output.Printf("  Webhook:         %v\n", cfg.Notifications.Webhook.Enabled)
	output.Printf("  Telegram:        %v\n", cfg.Notifications.Telegram.Enabled)

	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// Execute runs the root command.
func Execute(logger zerolog.Logger) error {
	if err := NewRootCmd(logger).Execute(); err != nil {
		return fmt.Errorf("scanner: %w", err)
	}
	return nil
}
