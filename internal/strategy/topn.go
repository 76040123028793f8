package strategy

import (
	"sort"

	"github.com/rs/zerolog"

	"options-scanner/internal/models"
)

// relaxationLevel drops one quality filter. Levels apply cumulatively, in order.
type relaxationLevel struct {
	name  string
	relax func(f *models.LongCallLeapFilter)
}

var relaxationLevels = []relaxationLevel{
	{name: "max_cagr_for_break_even", relax: func(f *models.LongCallLeapFilter) { f.MaxCAGRForBreakEven = nil }},
	{name: "max_option_price_percent", relax: func(f *models.LongCallLeapFilter) { f.MaxOptionPricePercent = nil }},
	{name: "min_cost_savings_percent", relax: func(f *models.LongCallLeapFilter) { f.MinCostSavingsPercent = nil }},
}

type leapKey struct {
	expiry string
	strike float64
}

func keyOf(l models.LongCallLeap) leapKey {
	return leapKey{expiry: l.ExpiryDate, strike: l.Strike}
}

// selectTopN runs scan with the strict filter and, while fewer than topN
// candidates exist, with progressively relaxed copies of it. Results are merged
// without repeating an (expiry, strike) pair, ranked, and cut to topN.
func selectTopN(
	filter models.LongCallLeapFilter,
	scan func(models.LongCallLeapFilter) []models.LongCallLeap,
	logger zerolog.Logger,
) []models.LongCallLeap {
	topN := filter.TopTradesCount
	if topN <= 0 {
		topN = models.DefaultTopTradesCount
	}

	seen := make(map[leapKey]struct{})
	var pool []models.LongCallLeap
	merge := func(found []models.LongCallLeap) int {
		added := 0
		for _, l := range found {
			k := keyOf(l)
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			pool = append(pool, l)
			added++
		}
		return added
	}

	merge(scan(filter))

	relaxed := filter
	for _, level := range relaxationLevels {
		if len(pool) >= topN {
			break
		}
		level.relax(&relaxed)
		added := merge(scan(relaxed))
		logger.Debug().
			Str("relaxed", level.name).
			Int("added", added).
			Int("pool", len(pool)).
			Int("top_n", topN).
			Msg("Relaxed LEAP filter")
	}

	sortLeaps(pool)
	if len(pool) > topN {
		pool = pool[:topN]
	}
	return pool
}

// sortLeaps orders by DTE descending, cost savings descending, option price
// percent ascending, then break-even CAGR ascending.
func sortLeaps(leaps []models.LongCallLeap) {
	sort.SliceStable(leaps, func(i, j int) bool {
		a, b := leaps[i], leaps[j]
		if a.DTE != b.DTE {
			return a.DTE > b.DTE
		}
		if a.CostSavingsPercent != b.CostSavingsPercent {
			return a.CostSavingsPercent > b.CostSavingsPercent
		}
		if a.OptionPricePercent != b.OptionPricePercent {
			return a.OptionPricePercent < b.OptionPricePercent
		}
		return a.BreakEvenCAGR() < b.BreakEvenCAGR()
	})
}
