// Package utils provides shared utility functions.
package utils

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.AmericanEnglish)

// FormatUSD formats an amount as dollars with thousands separators.
func FormatUSD(amount float64) string {
	if amount < 0 {
		return printer.Sprintf("-$%.2f", -amount)
	}
	return printer.Sprintf("$%.2f", amount)
}

// FormatPercent formats a percentage with sign.
func FormatPercent(value float64) string {
	sign := ""
	if value > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, value)
}

// FormatStrike drops the fractional part of whole strikes.
func FormatStrike(strike float64) string {
	if strike == math.Trunc(strike) {
		return fmt.Sprintf("%.0f", strike)
	}
	return fmt.Sprintf("%.2f", strike)
}

// FormatCompact formats a number in compact form (K/M).
func FormatCompact(amount float64) string {
	abs := math.Abs(amount)
	switch {
	case abs >= 1_000_000:
		return fmt.Sprintf("%.2fM", amount/1_000_000)
	case abs >= 1_000:
		return fmt.Sprintf("%.1fK", amount/1_000)
	default:
		return fmt.Sprintf("%.0f", amount)
	}
}

// FormatCount formats an integer with thousands separators.
func FormatCount(n int64) string {
	return printer.Sprintf("%d", n)
}
