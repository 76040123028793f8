package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"options-scanner/internal/models"
)

var testExpiry = models.ExpirationKey{Date: "2026-01-16", DTE: 30}

type q struct {
	strike    float64
	bid       float64
	ask       float64
	delta     float64
	extrinsic float64
}

func strikeMap(optionType models.OptionType, expiry models.ExpirationKey, quotes []q) models.StrikeMap {
	m := models.StrikeMap{}
	for _, x := range quotes {
		m[fmt.Sprintf("%.1f", x.strike)] = []models.OptionQuote{{
			PutCall:          optionType,
			Bid:              x.bid,
			Ask:              x.ask,
			Mark:             (x.bid + x.ask) / 2,
			Delta:            x.delta,
			StrikePrice:      x.strike,
			ExpirationDate:   expiry.Date,
			DaysToExpiration: expiry.DTE,
			ExtrinsicValue:   x.extrinsic,
		}}
	}
	return m
}

func testChain(price float64, puts, calls []q) *models.OptionChain {
	return &models.OptionChain{
		Symbol:          "TEST",
		UnderlyingPrice: price,
		PutExpDateMap:   models.ExpiryMap{testExpiry: strikeMap(models.Put, testExpiry, puts)},
		CallExpDateMap:  models.ExpiryMap{testExpiry: strikeMap(models.Call, testExpiry, calls)},
	}
}

func testDeps() Deps {
	return Deps{Logger: zerolog.Nop()}
}

type stubEarnings struct {
	event *models.EarningsEvent
	err   error
	calls int
}

func (s *stubEarnings) NextEarnings(_ context.Context, symbol string, before time.Time) (*models.EarningsEvent, error) {
	s.calls++
	return s.event, s.err
}

type stubVolatility struct {
	hv  float64
	err error
}

func (s stubVolatility) HistoricalVolatility(context.Context, string) (float64, error) {
	return s.hv, s.err
}

func mustBuild(kind Kind, filter models.Filter, deps Deps) Strategy {
	s, err := NewRegistry().Build(kind, filter, deps)
	if err != nil {
		panic(err)
	}
	return s
}
