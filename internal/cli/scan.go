package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"

	apperrors "options-scanner/internal/errors"
	"options-scanner/internal/metrics"
	"options-scanner/internal/models"
	"options-scanner/internal/scanner"
	"options-scanner/pkg/utils"
)

func newScanCmd(app *App) *cobra.Command {
	var (
		indices     []int
		symbols     []string
		dryRun      bool
		csvPath     string
		metricsAddr string
		chainsDir   string
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run the enabled strategies",
		Long: `Run the enabled strategies from strategies.yaml and report the best trades.

Use --strategy to run only some strategies (numbers from 'scanner strategies')
and --symbols to replace their securities.`,
		Example: `  scanner scan
  scanner scan --strategy 1 --symbols SPY,QQQ --dry-run
  scanner scan --csv trades.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			configs, err := app.Config.ScanConfigs(app.Registry)
			if err != nil {
				return err
			}
			configs, err = selectConfigs(configs, indices, symbols)
			if err != nil {
				return err
			}
			if len(configs) == 0 {
				output.Warning("No enabled strategies")
				return nil
			}

			if status := utils.GetMarketStatus(time.Now()); status != utils.MarketOpen && !output.IsJSON() {
				output.Warning("Market is %s; quotes may be stale", strings.ToLower(strings.ReplaceAll(string(status), "_", "-")))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc := app.buildServices(ctx, serviceOptions{dryRun: dryRun, chainsDir: chainsDir})
			defer svc.Close()

			if metricsAddr == "" {
				metricsAddr = app.Config.Scanner.MetricsAddr
			}
			if metricsAddr != "" {
				server := metrics.NewServer(metricsAddr, svc.metrics, app.Logger)
				server.Start()
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = server.Shutdown(shutdownCtx)
				}()
			}

			result, err := svc.runner.Execute(ctx, configs)
			if err != nil {
				return err
			}

			if svc.notifier != nil && result.TotalTradesFound > 0 {
				if err := svc.notifier.SendExecutionSummary(context.WithoutCancel(ctx), result.Summary()); err != nil {
					app.Logger.Warn().Err(err).Msg("Failed to send execution summary")
				}
			}

			if csvPath != "" {
				if err := writeCSV(csvPath, TradeRows(result)); err != nil {
					return err
				}
			}

			if output.IsJSON() {
				return output.JSON(result)
			}
			renderExecution(output, result)
			if csvPath != "" {
				output.Dim("Trades written to %s", csvPath)
			}
			return nil
		},
	}

	cmd.Flags().IntSliceVar(&indices, "strategy", nil, "strategy numbers to run (default: all enabled)")
	cmd.Flags().StringSliceVar(&symbols, "symbols", nil, "replace each strategy's securities")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "do not notify or persist results")
	cmd.Flags().StringVar(&csvPath, "csv", "", "write trades to a CSV file")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address during the scan")
	cmd.Flags().StringVar(&chainsDir, "chains-dir", "", "read option chains from SYMBOL.json files instead of the API")

	return cmd
}

// selectConfigs keeps the 1-based indices (all when empty) and optionally
// replaces the securities of each kept config.
func selectConfigs(configs []scanner.StrategyConfig, indices []int, symbols []string) ([]scanner.StrategyConfig, error) {
	selected := configs
	if len(indices) > 0 {
		selected = make([]scanner.StrategyConfig, 0, len(indices))
		for _, i := range indices {
			if i < 1 || i > len(configs) {
				return nil, apperrors.NewValidationError("strategy", i,
					fmt.Sprintf("must be between 1 and %d", len(configs)))
			}
			selected = append(selected, configs[i-1])
		}
	}
	if len(symbols) > 0 {
		out := make([]scanner.StrategyConfig, len(selected))
		for i, c := range selected {
			c.Securities = symbols
			out[i] = c
		}
		selected = out
	}
	return selected, nil
}

func writeCSV(path string, rows []TradeRow) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating csv file: %w", err)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&rows, file); err != nil {
		return fmt.Errorf("writing csv file: %w", err)
	}
	return nil
}

func renderExecution(output *Output, result *models.ExecutionResult) {
	output.Bold("Execution %s", result.ExecutionID)

	summary := NewTable(output, "Strategy", "Symbols", "Screened", "Errors", "Trades", "Time")
	for _, r := range result.Results {
		summary.AddRow(
			TruncateString(r.DisplayName(), 32),
			fmt.Sprint(r.SymbolsScanned),
			fmt.Sprint(r.SymbolsScreened),
			fmt.Sprint(r.SymbolErrors),
			fmt.Sprint(r.TradesFound),
			FormatDuration(time.Duration(r.ExecutionTimeMs)*time.Millisecond),
		)
	}
	summary.Render()
	output.Println()

	for _, r := range result.Results {
		if r.TradesFound == 0 {
			continue
		}
		output.Bold("%s", r.DisplayName())
		trades := NewTable(output, "#", "Symbol", "Expiry", "DTE", "Legs", "Credit", "Max Loss", "RoR", "Break-even")
		n := 0
		for _, group := range r.Groups {
			for _, trade := range group.Trades {
				n++
				s := trade.Summary()
				be := fmt.Sprintf("%s (%s)", utils.FormatUSD(s.BreakEvenPrice), utils.FormatPercent(s.BreakEvenPercent))
				if s.UpperBreakEvenPrice > 0 {
					be += " / " + utils.FormatUSD(s.UpperBreakEvenPrice)
				}
				trades.AddRow(
					fmt.Sprint(n),
					s.Symbol,
					s.ExpiryDate,
					fmt.Sprint(s.DTE),
					DescribeLegs(trade.Legs()),
					FormatPremium(s.NetCredit),
					utils.FormatUSD(s.MaxLoss),
					fmt.Sprintf("%.2f%%", s.ReturnOnRisk),
					be,
				)
			}
		}
		trades.Render()
		output.Println()
	}

	status := "completed"
	if result.Cancelled {
		status = "cancelled"
	}
	output.Info("Scan %s: %d trades, %s chain fetches in %s", status, result.TotalTradesFound,
		utils.FormatCount(result.ChainFetches), FormatDuration(time.Duration(result.DurationMs)*time.Millisecond))
}
