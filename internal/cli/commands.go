package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"options-scanner/internal/models"
	"options-scanner/internal/store"
	"options-scanner/pkg/utils"
)

func newStrategiesCmd(app *App) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "strategies",
		Short: "List configured strategies",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			entries := app.Config.EnabledStrategies()
			if all {
				entries = app.Config.Strategies
			}
			if output.IsJSON() {
				return output.JSON(entries)
			}
			if len(entries) == 0 {
				output.Warning("No strategies configured in %s", app.Config.Dir)
				return nil
			}

			table := NewTable(output, "#", "Type", "Alias", "Securities", "Technical", "Max trades", "Enabled")
			n := 0
			for _, e := range entries {
				index := "-"
				if e.Enabled {
					n++
					index = fmt.Sprint(n)
				}
				securities := strings.Join(e.Securities, ",")
				if e.SecuritiesFile != "" {
					securities = strings.TrimSpace(securities + " " + e.SecuritiesFile)
				}
				technical := "-"
				if e.TechnicalFilter != nil {
					technical = e.TechnicalFilter.Summary()
				}
				maxTrades := "all"
				if e.MaxTradesToSend > 0 {
					maxTrades = fmt.Sprint(e.MaxTradesToSend)
				}
				table.AddRow(index, string(e.Kind()), orDash(e.Alias), TruncateString(securities, 40),
					TruncateString(technical, 40), maxTrades, fmt.Sprint(e.Enabled))
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "include disabled strategies")
	return cmd
}

func newChainCmd(app *App) *cobra.Command {
	var (
		dte       int
		chainsDir string
	)

	cmd := &cobra.Command{
		Use:   "chain SYMBOL",
		Short: "Show an option chain",
		Long:  "List the expiries of SYMBOL, or the quotes at the expiry nearest --dte.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			symbol := strings.ToUpper(args[0])

			provider, _ := app.chainProvider(chainsDir)
			chain, err := provider.FetchChain(cmd.Context(), symbol)
			if err != nil {
				return err
			}
			chain.ScrubInvalidQuotes()

			if !cmd.Flags().Changed("dte") {
				return renderExpiries(output, chain)
			}

			expiry, err := chain.ExpiryNearestTo(dte)
			if err != nil {
				return fmt.Errorf("%s: %w", symbol, err)
			}
			return renderQuotes(output, chain, expiry)
		},
	}

	cmd.Flags().IntVar(&dte, "dte", 0, "show quotes at the expiry nearest this many days")
	cmd.Flags().StringVar(&chainsDir, "chains-dir", "", "read option chains from SYMBOL.json files instead of the API")
	return cmd
}

func renderExpiries(output *Output, chain *models.OptionChain) error {
	expiries := chain.Expiries()
	if output.IsJSON() {
		return output.JSON(map[string]interface{}{
			"symbol":          chain.Symbol,
			"underlyingPrice": chain.UnderlyingPrice,
			"expiries":        expiries,
		})
	}

	output.Bold("%s @ %s", chain.Symbol, utils.FormatUSD(chain.UnderlyingPrice))
	table := NewTable(output, "Expiry", "DTE", "Call strikes", "Put strikes")
	for _, key := range expiries {
		table.AddRow(key.Date, fmt.Sprint(key.DTE),
			fmt.Sprint(len(chain.OptionsForExpiry(models.Call, key))),
			fmt.Sprint(len(chain.OptionsForExpiry(models.Put, key))))
	}
	table.Render()
	return nil
}

// renderQuotes shows calls and puts side by side for each strike.
func renderQuotes(output *Output, chain *models.OptionChain, expiry models.ExpirationKey) error {
	calls := models.NewStrikeLadder(chain.OptionsForExpiry(models.Call, expiry))
	puts := models.NewStrikeLadder(chain.OptionsForExpiry(models.Put, expiry))

	type row struct {
		Strike float64             `json:"strike"`
		Call   *models.OptionQuote `json:"call,omitempty"`
		Put    *models.OptionQuote `json:"put,omitempty"`
	}
	byStrike := make(map[float64]*row)
	var strikes []float64
	add := func(ladder models.StrikeLadder, isCall bool) {
		for i, strike := range ladder.Strikes {
			r, ok := byStrike[strike]
			if !ok {
				r = &row{Strike: strike}
				byStrike[strike] = r
				strikes = append(strikes, strike)
			}
			q := ladder.Quote(i)
			if isCall {
				r.Call = &q
			} else {
				r.Put = &q
			}
		}
	}
	add(calls, true)
	add(puts, false)
	sort.Float64s(strikes)

	rows := make([]row, 0, len(strikes))
	for _, s := range strikes {
		rows = append(rows, *byStrike[s])
	}

	if output.IsJSON() {
		return output.JSON(map[string]interface{}{
			"symbol": chain.Symbol,
			"expiry": expiry,
			"quotes": rows,
		})
	}

	output.Bold("%s @ %s  %s (%d DTE)", chain.Symbol, utils.FormatUSD(chain.UnderlyingPrice), expiry.Date, expiry.DTE)
	table := NewTable(output, "Call bid", "Call ask", "Call δ", "Strike", "Put bid", "Put ask", "Put δ", "Put OI")
	for _, r := range rows {
		cells := []string{"", "", ""}
		if r.Call != nil {
			cells = []string{fmt.Sprintf("%.2f", r.Call.Bid), fmt.Sprintf("%.2f", r.Call.Ask), fmt.Sprintf("%.2f", r.Call.Delta)}
		}
		cells = append(cells, utils.FormatStrike(r.Strike))
		if r.Put != nil {
			cells = append(cells, fmt.Sprintf("%.2f", r.Put.Bid), fmt.Sprintf("%.2f", r.Put.Ask),
				fmt.Sprintf("%.2f", r.Put.Delta), utils.FormatCount(r.Put.OpenInterest))
		} else {
			cells = append(cells, "", "", "", "")
		}
		table.AddRow(cells...)
	}
	table.Render()
	return nil
}

func newHistoryCmd(app *App) *cobra.Command {
	var (
		limit       int
		executionID string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent scan executions",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()

			dataStore, err := store.Open(ctx, app.Config.Storage)
			if err != nil {
				return err
			}
			defer dataStore.Close()

			if executionID != "" {
				results, err := dataStore.StrategyResults(ctx, executionID)
				if err != nil {
					return err
				}
				if output.IsJSON() {
					return output.JSON(results)
				}
				table := NewTable(output, "Strategy", "Kind", "Symbols", "Errors", "Trades", "Time")
				for _, r := range results {
					name := r.Alias
					if name == "" {
						name = r.StrategyName
					}
					table.AddRow(name, r.StrategyKind, fmt.Sprint(r.SymbolsScanned), fmt.Sprint(r.SymbolErrors),
						fmt.Sprint(r.TradesFound), FormatDuration(time.Duration(r.ExecutionTimeMs)*time.Millisecond))
				}
				table.Render()
				return nil
			}

			executions, err := dataStore.RecentExecutions(ctx, limit)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(executions)
			}
			if len(executions) == 0 {
				output.Dim("No executions recorded")
				return nil
			}

			table := NewTable(output, "Execution", "Time", "Strategies", "Trades", "Fetches", "Duration", "Status")
			for _, e := range executions {
				status := "ok"
				if e.Cancelled {
					status = "cancelled"
				}
				table.AddRow(e.ExecutionID, e.Timestamp.In(utils.NewYork).Format("2006-01-02 15:04 MST"),
					fmt.Sprint(e.StrategiesRun), fmt.Sprint(e.TotalTradesFound), fmt.Sprint(e.ChainFetches),
					FormatDuration(time.Duration(e.DurationMs)*time.Millisecond), status)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "number of executions to show")
	cmd.Flags().StringVar(&executionID, "execution", "", "show the strategy results of one execution")
	return cmd
}
