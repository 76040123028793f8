// Package strategy enumerates multi-leg option trade candidates from chain
// snapshots.
package strategy

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"options-scanner/internal/metrics"
	"options-scanner/internal/models"
)

// Kind tags a strategy in configuration.
type Kind string

const (
	PutCreditSpread            Kind = "PUT_CREDIT_SPREAD"
	TechPutCreditSpread        Kind = "TECH_PUT_CREDIT_SPREAD"
	BullishLongPutCreditSpread Kind = "BULLISH_LONG_PUT_CREDIT_SPREAD"
	CallCreditSpread           Kind = "CALL_CREDIT_SPREAD"
	TechCallCreditSpread       Kind = "TECH_CALL_CREDIT_SPREAD"
	IronCondor                 Kind = "IRON_CONDOR"
	BullishLongIronCondor      Kind = "BULLISH_LONG_IRON_CONDOR"
	BullishBrokenWingButterfly Kind = "BULLISH_BROKEN_WING_BUTTERFLY"
	BullishZebra               Kind = "BULLISH_ZEBRA"
	LongCallLeap               Kind = "LONG_CALL_LEAP"
	LongCallLeapTopN           Kind = "LONG_CALL_LEAP_TOP_N"
)

var displayNames = map[Kind]string{
	PutCreditSpread:            "Put Credit Spread",
	TechPutCreditSpread:        "Tech Put Credit Spread",
	BullishLongPutCreditSpread: "Bullish Long Put Credit Spread",
	CallCreditSpread:           "Call Credit Spread",
	TechCallCreditSpread:       "Tech Call Credit Spread",
	IronCondor:                 "Iron Condor",
	BullishLongIronCondor:      "Bullish Long Iron Condor",
	BullishBrokenWingButterfly: "Bullish Broken Wing Butterfly",
	BullishZebra:               "Bullish ZEBRA",
	LongCallLeap:               "Long Call LEAP",
	LongCallLeapTopN:           "Long Call LEAP Top N",
}

// DisplayName returns the human readable name of k.
func (k Kind) DisplayName() string {
	if name, ok := displayNames[k]; ok {
		return name
	}
	return string(k)
}

// Strategy finds trade candidates in one chain snapshot. Implementations are
// safe for concurrent use across symbols.
type Strategy interface {
	Kind() Kind
	Name() string
	FindTrades(ctx context.Context, chain *models.OptionChain) ([]models.TradeCandidate, error)
}

// EarningsSource reports the next earnings event for a symbol before a date.
// A nil event means none is scheduled.
type EarningsSource interface {
	NextEarnings(ctx context.Context, symbol string, before time.Time) (*models.EarningsEvent, error)
}

// VolatilitySource returns the annualised historical volatility of a symbol in percent.
type VolatilitySource interface {
	HistoricalVolatility(ctx context.Context, symbol string) (float64, error)
}

// Deps are the collaborators strategies may consult. Earnings and Volatility
// may be nil; the corresponding checks are then skipped.
type Deps struct {
	Earnings   EarningsSource
	Volatility VolatilitySource
	Logger     zerolog.Logger
	Metrics    *metrics.Registry
}

// finder enumerates candidates at a single expiry.
type finder interface {
	findValidTrades(chain *models.OptionChain, expiry models.ExpirationKey) []models.TradeCandidate
}
