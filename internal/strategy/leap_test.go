package strategy

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"options-scanner/internal/models"
)

var leapExpiry = models.ExpirationKey{Date: "2027-01-15", DTE: 365}

func leapChain() *models.OptionChain {
	short := models.ExpirationKey{Date: "2026-01-16", DTE: 30}
	return &models.OptionChain{
		Symbol:          "LEAP",
		UnderlyingPrice: 100,
		CallExpDateMap: models.ExpiryMap{
			leapExpiry: strikeMap(models.Call, leapExpiry, []q{
				{strike: 70, bid: 30.8, ask: 31, delta: 0.9},
				{strike: 80, bid: 21.8, ask: 22, delta: 0.85},
				{strike: 100, bid: 9.8, ask: 10, delta: 0.55},
			}),
			short: strikeMap(models.Call, short, []q{
				{strike: 80, bid: 20.1, ask: 20.3, delta: 0.95},
			}),
		},
	}
}

func TestLongCallLeap_CostOfCarry(t *testing.T) {
	filter := models.DefaultLongCallLeapFilter()
	filter.MinDTE = 300

	trades, err := mustBuild(LongCallLeap, &filter, testDeps()).FindTrades(context.Background(), leapChain())
	require.NoError(t, err)
	require.Len(t, trades, 2)

	byStrike := map[float64]models.LongCallLeap{}
	for _, trade := range trades {
		l := trade.(models.LongCallLeap)
		assert.Equal(t, 365, l.DTE)
		byStrike[l.Strike] = l
	}

	l := byStrike[80]
	assert.InDelta(t, 20.0, l.IntrinsicValue, 1e-9)
	assert.InDelta(t, 2.0, l.ExtrinsicValue, 1e-9)
	assert.InDelta(t, 3.0, l.MarginInterestCost, 1e-9)
	assert.InDelta(t, 2.8, l.SavingsInterest, 1e-9)
	assert.InDelta(t, 2.0, l.CostOfOption, 1e-9)
	assert.InDelta(t, 5.8, l.CostOfBuying, 1e-9)
	assert.InDelta(t, 65.517, l.CostSavingsPercent, 1e-3)
	assert.InDelta(t, 102.0, l.BreakEvenPrice, 1e-9)
	assert.InDelta(t, 2.0, l.BreakEvenPercent, 1e-9)
	assert.InDelta(t, 2.0, l.BreakEvenCAGR(), 1e-9)
	assert.InDelta(t, 2.0, l.OptionPricePercent, 1e-9)
	assert.InDelta(t, -2200.0, l.NetCredit, 1e-9)
	assert.InDelta(t, 2200.0, l.MaxLoss, 1e-9)

	_, hasATM := byStrike[100]
	assert.False(t, hasATM, "at-the-money call costs more than carrying the stock")
}

func TestLongCallLeap_QualityFilters(t *testing.T) {
	filter := models.DefaultLongCallLeapFilter()
	filter.MinDTE = 300
	filter.MaxOptionPricePercent = models.Float(25)
	filter.MinCostSavingsPercent = models.Float(70)

	trades, err := mustBuild(LongCallLeap, &filter, testDeps()).FindTrades(context.Background(), leapChain())
	require.NoError(t, err)
	// 80 strike fails savings (65.5%), 70 strike fails price (31 > 25).
	assert.Empty(t, trades)
}

func TestLongCallLeap_TopNRelaxes(t *testing.T) {
	filter := models.DefaultLongCallLeapFilter()
	filter.MinDTE = 300
	filter.TopTradesCount = 2
	filter.MaxOptionPricePercent = models.Float(25)
	filter.MinCostSavingsPercent = models.Float(70)

	trades, err := mustBuild(LongCallLeapTopN, &filter, testDeps()).FindTrades(context.Background(), leapChain())
	require.NoError(t, err)
	require.Len(t, trades, 2)

	// Same DTE, so cost savings decide: 70 strike (79.6%) before 80 (65.5%).
	assert.Equal(t, 70.0, trades[0].(models.LongCallLeap).Strike)
	assert.Equal(t, 80.0, trades[1].(models.LongCallLeap).Strike)
}

func TestSelectTopN_StopsOnceEnough(t *testing.T) {
	mk := func(dte int, strike, savings float64) models.LongCallLeap {
		l := models.LongCallLeap{Strike: strike, CostSavingsPercent: savings}
		l.DTE = dte
		l.ExpiryDate = fmt.Sprintf("d%d", dte)
		return l
	}
	l1, l2, l3 := mk(400, 80, 10), mk(730, 80, 5), mk(400, 90, 20)

	filter := models.DefaultLongCallLeapFilter()
	filter.TopTradesCount = 3
	filter.MaxCAGRForBreakEven = models.Float(5)
	filter.MaxOptionPricePercent = models.Float(30)
	filter.MinCostSavingsPercent = models.Float(10)

	var calls []models.LongCallLeapFilter
	scan := func(f models.LongCallLeapFilter) []models.LongCallLeap {
		calls = append(calls, f)
		switch {
		case f.MaxOptionPricePercent == nil:
			return []models.LongCallLeap{l1, l2, l3}
		case f.MaxCAGRForBreakEven == nil:
			return []models.LongCallLeap{l1, l2}
		default:
			return []models.LongCallLeap{l1}
		}
	}

	got := selectTopN(filter, scan, zerolog.Nop())

	require.Len(t, calls, 3)
	assert.NotNil(t, calls[2].MinCostSavingsPercent, "last level not needed")
	assert.Equal(t, []models.LongCallLeap{l2, l3, l1}, got)
}

// Feature: options-scanner, Property 6: Top-N relaxation keeps hard constraints and never duplicates
func TestProperty_TopNRelaxation(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("size = min(topN, available), hard constraints fixed, unique (expiry, strike)", prop.ForAll(
		func(topN int, sizes []int, minDTE int, maxDTE int) bool {
			sort.Ints(sizes)
			filter := models.DefaultLongCallLeapFilter()
			filter.TopTradesCount = topN
			filter.MinDTE = minDTE
			filter.MaxDTE = maxDTE
			filter.IgnoreEarnings = false
			filter.LongCall = &models.LegFilter{MinDelta: models.Float(0.6)}
			filter.MaxCAGRForBreakEven = models.Float(8)
			filter.MaxOptionPricePercent = models.Float(40)
			filter.MinCostSavingsPercent = models.Float(20)

			// Each level sees a superset of the previous one, as loosening a
			// filter does in practice.
			level := 0
			var seen []models.LongCallLeapFilter
			scan := func(f models.LongCallLeapFilter) []models.LongCallLeap {
				seen = append(seen, f)
				n := sizes[level]
				level++
				out := make([]models.LongCallLeap, n)
				for i := range out {
					out[i].Strike = float64(50 + i*5)
					out[i].DTE = 300 + (i%3)*100
					out[i].ExpiryDate = fmt.Sprintf("exp-%d", out[i].DTE)
				}
				return out
			}

			got := selectTopN(filter, scan, zerolog.Nop())

			want := topN
			if sizes[len(seen)-1] < want {
				want = sizes[len(seen)-1]
			}
			if len(got) != want {
				return false
			}
			for _, f := range seen {
				if f.MinDTE != minDTE || f.MaxDTE != maxDTE || f.TargetDTE != 0 ||
					f.IgnoreEarnings || f.LongCall != filter.LongCall ||
					f.MarginInterestRate != filter.MarginInterestRate ||
					f.CostEfficiencyPercent != filter.CostEfficiencyPercent {
					return false
				}
			}
			keys := map[leapKey]bool{}
			for _, l := range got {
				if keys[keyOf(l)] {
					return false
				}
				keys[keyOf(l)] = true
			}
			for i := 1; i < len(got); i++ {
				if got[i-1].DTE < got[i].DTE {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 6),
		gen.SliceOfN(4, gen.IntRange(0, 8)),
		gen.IntRange(0, 300),
		gen.IntRange(400, 1000),
	))

	properties.TestingRun(t)
}
