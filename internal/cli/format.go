package cli

import (
	"fmt"
	"strings"
	"time"

	"options-scanner/internal/models"
	"options-scanner/pkg/utils"
)

// TradeRow is the flat form of a trade used for tables and CSV export.
type TradeRow struct {
	ExecutionID     string  `csv:"execution_id" json:"executionId"`
	Strategy        string  `csv:"strategy" json:"strategy"`
	Symbol          string  `csv:"symbol" json:"symbol"`
	Expiry          string  `csv:"expiry" json:"expiry"`
	DTE             int     `csv:"dte" json:"dte"`
	Underlying      float64 `csv:"underlying" json:"underlying"`
	Legs            string  `csv:"legs" json:"legs"`
	NetCredit       float64 `csv:"net_credit" json:"netCredit"`
	MaxLoss         float64 `csv:"max_loss" json:"maxLoss"`
	ReturnOnRisk    float64 `csv:"return_on_risk" json:"returnOnRisk"`
	BreakEven       float64 `csv:"break_even" json:"breakEven"`
	BreakEvenPct    float64 `csv:"break_even_pct" json:"breakEvenPct"`
	UpperBreakEven  float64 `csv:"upper_break_even" json:"upperBreakEven"`
	UpperBreakEvPct float64 `csv:"upper_break_even_pct" json:"upperBreakEvenPct"`
}

// TradeRows flattens every trade of an execution in result and group order.
func TradeRows(exec *models.ExecutionResult) []TradeRow {
	var rows []TradeRow
	for _, result := range exec.Results {
		for _, trade := range result.Trades() {
			s := trade.Summary()
			rows = append(rows, TradeRow{
				ExecutionID:     exec.ExecutionID,
				Strategy:        result.DisplayName(),
				Symbol:          s.Symbol,
				Expiry:          s.ExpiryDate,
				DTE:             s.DTE,
				Underlying:      s.UnderlyingPrice,
				Legs:            DescribeLegs(trade.Legs()),
				NetCredit:       s.NetCredit,
				MaxLoss:         s.MaxLoss,
				ReturnOnRisk:    s.ReturnOnRisk,
				BreakEven:       s.BreakEvenPrice,
				BreakEvenPct:    s.BreakEvenPercent,
				UpperBreakEven:  s.UpperBreakEvenPrice,
				UpperBreakEvPct: s.UpperBreakEvenPercent,
			})
		}
	}
	return rows
}

// DescribeLegs renders legs compactly, e.g. "-95P +94P" or "+2x100C -110C".
func DescribeLegs(legs []models.TradeLeg) string {
	parts := make([]string, 0, len(legs))
	for _, leg := range legs {
		sign := "+"
		if leg.Action == models.Sell {
			sign = "-"
		}
		qty := ""
		if leg.Quantity > 1 {
			qty = fmt.Sprintf("%dx", leg.Quantity)
		}
		side := "C"
		if leg.OptionType == models.Put {
			side = "P"
		}
		parts = append(parts, sign+qty+utils.FormatStrike(leg.Strike)+side)
	}
	return strings.Join(parts, " ")
}

// FormatPremium shows a credit as positive dollars and a debit in parentheses.
func FormatPremium(netCredit float64) string {
	if netCredit < 0 {
		return "(" + utils.FormatUSD(-netCredit) + ")"
	}
	return utils.FormatUSD(netCredit)
}

// FormatDuration formats a duration in human-readable form.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}

// TruncateString truncates a string to the specified length.
func TruncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
