// Package models provides domain models for the options scanner.
package models

import (
	"time"
)

// OptionType identifies the side of an option chain.
type OptionType string

const (
	Call OptionType = "CALL"
	Put  OptionType = "PUT"
)

// ContractMultiplier is the number of shares one option contract controls.
const ContractMultiplier = 100.0

// Candle represents OHLCV data for a time period.
type Candle struct {
	Timestamp time.Time `json:"datetime"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}

// EarningsEvent represents a scheduled earnings report.
type EarningsEvent struct {
	Symbol          string    `json:"symbol"`
	Date            time.Time `json:"date"`
	Hour            string    `json:"hour,omitempty"` // bmo, amc, dmh
	Quarter         int       `json:"quarter,omitempty"`
	Year            int       `json:"year,omitempty"`
	EPSEstimate     *float64  `json:"epsEstimate,omitempty"`
	RevenueEstimate *float64  `json:"revenueEstimate,omitempty"`
}
