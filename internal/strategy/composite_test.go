package strategy

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"options-scanner/internal/models"
)

func condorChain() *models.OptionChain {
	return testChain(100,
		[]q{
			{strike: 90, bid: 0.80, ask: 0.90, delta: -0.12},
			{strike: 95, bid: 2.00, ask: 2.10, delta: -0.25},
		},
		[]q{
			{strike: 105, bid: 2.00, ask: 2.10, delta: 0.25},
			{strike: 110, bid: 0.80, ask: 0.90, delta: 0.12},
		},
	)
}

func TestIronCondor_CombinesSpreads(t *testing.T) {
	filter := &models.IronCondorFilter{StrategyFilter: models.DefaultStrategyFilter()}
	filter.TargetDTE = 30
	filter.MinReturnOnRisk = 50

	trades, err := mustBuild(IronCondor, filter, testDeps()).FindTrades(context.Background(), condorChain())
	require.NoError(t, err)
	require.Len(t, trades, 1)

	condor := trades[0].(models.IronCondor)
	assert.InDelta(t, 220.0, condor.NetCredit, 1e-9)
	assert.InDelta(t, 280.0, condor.MaxLoss, 1e-9)
	assert.InDelta(t, 78.571, condor.ReturnOnRisk, 1e-3)
	assert.InDelta(t, 92.8, condor.BreakEvenPrice, 1e-9)
	assert.InDelta(t, 107.2, condor.UpperBreakEvenPrice, 1e-9)
	assert.InDelta(t, 7.2, condor.BreakEvenPercent, 1e-9)
	assert.InDelta(t, 7.2, condor.UpperBreakEvenPercent, 1e-9)
	assert.Len(t, condor.Legs(), 4)
}

func TestIronCondor_MinReturnAppliesToCombinedCredit(t *testing.T) {
	filter := &models.IronCondorFilter{StrategyFilter: models.DefaultStrategyFilter()}
	filter.TargetDTE = 30
	// Each wing alone returns 110/390 = 28%, the condor returns 78%.
	filter.MinReturnOnRisk = 40

	trades, err := mustBuild(IronCondor, filter, testDeps()).FindTrades(context.Background(), condorChain())
	require.NoError(t, err)
	assert.Len(t, trades, 1)

	filter.MinReturnOnRisk = 80
	trades, err = mustBuild(IronCondor, filter, testDeps()).FindTrades(context.Background(), condorChain())
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestIronCondor_MaxLossLimit(t *testing.T) {
	filter := &models.IronCondorFilter{StrategyFilter: models.DefaultStrategyFilter()}
	filter.TargetDTE = 30
	filter.MaxLossLimit = 250

	trades, err := mustBuild(IronCondor, filter, testDeps()).FindTrades(context.Background(), condorChain())
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestBrokenWingButterfly_Economics(t *testing.T) {
	chain := testChain(100, nil, []q{
		{strike: 100, bid: 5.00, ask: 5.20, delta: 0.50},
		{strike: 105, bid: 3.00, ask: 3.10, delta: 0.35},
		{strike: 115, bid: 1.00, ask: 1.10, delta: 0.15},
	})
	filter := &models.BrokenWingButterflyFilter{StrategyFilter: models.DefaultStrategyFilter()}
	filter.TargetDTE = 30

	trades, err := mustBuild(BullishBrokenWingButterfly, filter, testDeps()).FindTrades(context.Background(), chain)
	require.NoError(t, err)
	require.Len(t, trades, 1)

	bwb := trades[0].(models.BrokenWingButterfly)
	// debit = (5.20 + 1.10 - 6.00) * 100
	assert.InDelta(t, 30.0, bwb.TotalDebit, 1e-9)
	assert.InDelta(t, 500.0, bwb.LowerWingWidth, 1e-9)
	assert.InDelta(t, 1000.0, bwb.UpperWingWidth, 1e-9)
	assert.InDelta(t, 530.0, bwb.MaxLossUpside, 1e-9)
	assert.InDelta(t, 30.0, bwb.MaxLossDownside, 1e-9)
	assert.InDelta(t, 530.0, bwb.MaxLoss, 1e-9)
	assert.InDelta(t, 470.0, bwb.MaxProfit, 1e-9)
	assert.InDelta(t, 470.0/530.0*100, bwb.ReturnOnRisk, 1e-9)
	assert.InDelta(t, 100.3, bwb.BreakEvenPrice, 1e-9)

	legs := bwb.Legs()
	require.Len(t, legs, 3)
	assert.Equal(t, 2, legs[1].Quantity)
	assert.Equal(t, models.Sell, legs[1].Action)

	filter.MaxTotalDebit = 20
	trades, err = mustBuild(BullishBrokenWingButterfly, filter, testDeps()).FindTrades(context.Background(), chain)
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestBrokenWingButterfly_LegFilters(t *testing.T) {
	chain := testChain(100, nil, []q{
		{strike: 100, bid: 5.00, ask: 5.20, delta: 0.50},
		{strike: 105, bid: 3.00, ask: 3.10, delta: 0.35},
		{strike: 115, bid: 1.00, ask: 1.10, delta: 0.15},
	})
	filter := &models.BrokenWingButterflyFilter{StrategyFilter: models.DefaultStrategyFilter()}
	filter.TargetDTE = 30
	filter.Leg2Short = &models.LegFilter{MaxDelta: models.Float(0.30)}

	trades, err := mustBuild(BullishBrokenWingButterfly, filter, testDeps()).FindTrades(context.Background(), chain)
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestZebra_ReturnOnRiskIsZeroAndMinReturnIgnored(t *testing.T) {
	chain := testChain(100, nil, []q{
		{strike: 90, bid: 12.00, ask: 12.20, delta: 0.75, extrinsic: 2.2},
		{strike: 100, bid: 5.00, ask: 5.20, delta: 0.50, extrinsic: 5.0},
	})
	filter := &models.ZebraFilter{StrategyFilter: models.DefaultStrategyFilter()}
	filter.TargetDTE = 30
	filter.MinReturnOnRisk = 50

	trades, err := mustBuild(BullishZebra, filter, testDeps()).FindTrades(context.Background(), chain)
	require.NoError(t, err)
	require.Len(t, trades, 1)

	zebra := trades[0].(models.ZebraTrade)
	assert.InDelta(t, 1940.0, zebra.NetDebit, 1e-9)
	assert.InDelta(t, 1940.0, zebra.MaxLoss, 1e-9)
	assert.Equal(t, 0.0, zebra.ReturnOnRisk)
	assert.InDelta(t, -0.6, zebra.NetExtrinsicValue, 1e-9)
	assert.InDelta(t, 109.4, zebra.BreakEvenPrice, 1e-9)
	assert.Equal(t, 2, zebra.Legs()[0].Quantity)

	filter.MaxNetExtrinsicValue = models.Float(-1)
	trades, err = mustBuild(BullishZebra, filter, testDeps()).FindTrades(context.Background(), chain)
	require.NoError(t, err)
	assert.Empty(t, trades)

	// The cap is exclusive: net extrinsic must stay strictly below it.
	boundary := testChain(100, nil, []q{
		{strike: 90, bid: 12.00, ask: 12.20, delta: 0.75, extrinsic: 2.0},
		{strike: 100, bid: 5.00, ask: 5.20, delta: 0.50, extrinsic: 3.0},
	})
	filter.MaxNetExtrinsicValue = models.Float(1.0)
	trades, err = mustBuild(BullishZebra, filter, testDeps()).FindTrades(context.Background(), boundary)
	require.NoError(t, err)
	assert.Empty(t, trades)

	filter.MaxNetExtrinsicValue = models.Float(1.01)
	trades, err = mustBuild(BullishZebra, filter, testDeps()).FindTrades(context.Background(), boundary)
	require.NoError(t, err)
	assert.Len(t, trades, 1)
}

// Feature: options-scanner, Property 4: Iron condor short strikes never overlap
func TestProperty_IronCondorNoOverlap(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	filter := &models.IronCondorFilter{StrategyFilter: models.DefaultStrategyFilter()}
	filter.TargetDTE = 30
	condor := mustBuild(IronCondor, filter, testDeps())

	properties.Property("put short strike < call short strike", prop.ForAll(
		func(puts, calls []q) bool {
			trades, err := condor.FindTrades(context.Background(), testChain(100, puts, calls))
			if err != nil {
				return false
			}
			for _, trade := range trades {
				ic := trade.(models.IronCondor)
				if ic.PutSpread.ShortStrike >= ic.CallSpread.ShortStrike {
					return false
				}
				want := math.Max(ic.PutSpread.Width(), ic.CallSpread.Width()) - ic.NetCredit
				if math.Abs(ic.MaxLoss-want) > 1e-9 {
					return false
				}
			}
			return true
		},
		ladderGen(models.Put),
		ladderGen(models.Call),
	))

	properties.TestingRun(t)
}

// Feature: options-scanner, Property 5: Butterfly legs ascend and max loss is the worse side
func TestProperty_ButterflyOrdering(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	filter := &models.BrokenWingButterflyFilter{StrategyFilter: models.DefaultStrategyFilter()}
	filter.TargetDTE = 30
	bwb := mustBuild(BullishBrokenWingButterfly, filter, testDeps())

	properties.Property("leg1 < leg2 < leg3 and maxLoss = max(upside, downside)", prop.ForAll(
		func(calls []q) bool {
			trades, err := bwb.FindTrades(context.Background(), testChain(100, nil, calls))
			if err != nil {
				return false
			}
			for _, trade := range trades {
				b := trade.(models.BrokenWingButterfly)
				if !(b.Leg1Strike < b.Leg2Strike && b.Leg2Strike < b.Leg3Strike) {
					return false
				}
				if b.MaxLoss != math.Max(b.MaxLossUpside, b.MaxLossDownside) {
					return false
				}
			}
			return true
		},
		ladderGen(models.Call),
	))

	properties.TestingRun(t)
}
