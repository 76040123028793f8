package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLegFilter_Passes(t *testing.T) {
	quote := OptionQuote{Delta: -0.25, Mark: 1.5, OpenInterest: 500, TotalVolume: 20, Volatility: 35}

	tests := []struct {
		name   string
		filter *LegFilter
		want   bool
	}{
		{name: "nil filter", filter: nil, want: true},
		{name: "empty filter", filter: &LegFilter{}, want: true},
		{name: "delta in range", filter: &LegFilter{MinDelta: Float(0.2), MaxDelta: Float(0.3)}, want: true},
		{name: "delta above max", filter: &LegFilter{MaxDelta: Float(0.2)}, want: false},
		{name: "delta below min", filter: &LegFilter{MinDelta: Float(0.3)}, want: false},
		{name: "premium below min", filter: &LegFilter{MinPremium: Float(2)}, want: false},
		{name: "premium above max", filter: &LegFilter{MaxPremium: Float(1)}, want: false},
		{name: "open interest", filter: &LegFilter{MinOpenInterest: Int64(1000)}, want: false},
		{name: "volume", filter: &LegFilter{MinVolume: Int64(10)}, want: true},
		{name: "volatility ceiling", filter: &LegFilter{MaxVolatility: Float(30)}, want: false},
		{name: "volatility floor", filter: &LegFilter{MinVolatility: Float(30)}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Passes(quote))
		})
	}
}

func TestStrategyFilter_Checks(t *testing.T) {
	f := DefaultStrategyFilter()
	assert.True(t, f.IgnoreEarnings)
	assert.Equal(t, 6.0, f.MarginInterestRate)
	assert.Equal(t, 10.0, f.SavingsInterestRate)

	assert.True(t, f.PassesMaxLoss(1e9))
	f.MaxLossLimit = 400
	assert.True(t, f.PassesMaxLoss(360))
	assert.False(t, f.PassesMaxLoss(401))

	f.MinReturnOnRisk = 20
	assert.True(t, f.PassesMinReturnOnRisk(140, 360))
	assert.False(t, f.PassesMinReturnOnRisk(70, 360))
	assert.True(t, f.PassesMinReturnOnRisk(0, 0))

	f.MaxTotalDebit = 500
	assert.True(t, f.PassesDebitLimit(500))
	assert.False(t, f.PassesDebitLimit(501))

	f.MinTotalCredit = 50
	f.MaxTotalCredit = 200
	assert.False(t, f.PassesCreditLimits(40))
	assert.True(t, f.PassesCreditLimits(140))
	assert.False(t, f.PassesCreditLimits(250))
}

func TestIronCondorFilter_Sides(t *testing.T) {
	shared := &LegFilter{MaxDelta: Float(0.3)}
	callShort := &LegFilter{MaxDelta: Float(0.2)}
	f := IronCondorFilter{
		StrategyFilter: StrategyFilter{TargetDTE: 30, MaxLossLimit: 800, MinReturnOnRisk: 25},
		ShortLeg:       shared,
		CallShortLeg:   callShort,
	}

	put := f.PutSide()
	assert.Same(t, shared, put.ShortLeg)
	assert.Equal(t, 0.0, put.MinReturnOnRisk)
	assert.Equal(t, 800.0, put.MaxLossLimit)
	assert.Equal(t, 30, put.TargetDTE)
	assert.True(t, put.IgnoreEarnings)

	call := f.CallSide()
	assert.Same(t, callShort, call.ShortLeg)
}

func TestBreakEvenCAGR(t *testing.T) {
	assert.Equal(t, 0.0, BreakEvenCAGR(10, 0))
	assert.InDelta(t, 10.0, BreakEvenCAGR(10, 365), 1e-9)
	assert.InDelta(t, 4.8809, BreakEvenCAGR(10, 730), 1e-3)
}
