package strategy

import (
	"context"
	"math"

	"options-scanner/internal/models"
)

const daysPerYear = 365.0

// leapFinder evaluates long calls at one expiry against the cost of carrying
// the stock on margin.
type leapFinder struct {
	name   string
	filter models.LongCallLeapFilter
}

func (f leapFinder) leaps(chain *models.OptionChain, expiry models.ExpirationKey) []models.LongCallLeap {
	price := chain.UnderlyingPrice
	if price <= 0 {
		return nil
	}
	ladder := models.NewStrikeLadder(chain.OptionsForExpiry(models.Call, expiry))

	efficiency := f.filter.CostEfficiencyPercent
	if efficiency <= 0 {
		efficiency = models.DefaultCostEfficiencyPercent
	}
	years := float64(expiry.DTE) / daysPerYear
	marginRate := f.filter.MarginInterestRate / 100
	savingsRate := f.filter.SavingsInterestRate / 100

	var out []models.LongCallLeap
	for i := 0; i < ladder.Len(); i++ {
		call := ladder.Quote(i)
		strike := ladder.Strikes[i]
		if !f.filter.LongCall.Passes(call) {
			continue
		}

		premium := call.Ask
		if premium <= 0 {
			continue
		}
		if f.filter.MaxOptionPricePercent != nil && premium > price*(*f.filter.MaxOptionPricePercent)/100 {
			continue
		}
		maxLoss := premium * models.ContractMultiplier
		if !f.filter.PassesMaxLoss(maxLoss) {
			continue
		}

		intrinsic := math.Max(0, price-strike)
		extrinsic := premium - intrinsic

		// Per share: half the stock bought on margin, the other half paid in
		// cash that could otherwise earn savings interest.
		marginInterest := 0.5 * price * marginRate * years
		dividend := price * (chain.DividendYield / 100) * years
		savingsInterest := (0.5*price - premium) * savingsRate * years
		costOfOption := extrinsic + dividend
		costOfBuying := marginInterest + savingsInterest

		if costOfOption > costOfBuying*efficiency/100 {
			continue
		}

		breakEven := strike + premium
		breakEvenPct := (breakEven - price) / price * 100
		cagr := models.BreakEvenCAGR(breakEvenPct, expiry.DTE)
		if f.filter.MaxCAGRForBreakEven != nil && cagr > *f.filter.MaxCAGRForBreakEven {
			continue
		}

		savingsPct := 0.0
		if costOfBuying > 0 {
			savingsPct = (costOfBuying - costOfOption) / costOfBuying * 100
		}
		if f.filter.MinCostSavingsPercent != nil && savingsPct < *f.filter.MinCostSavingsPercent {
			continue
		}

		summary := models.NewTradeSummary(f.name, chain, expiry)
		summary.NetCredit = -maxLoss
		summary.MaxLoss = maxLoss
		summary.BreakEvenPrice = breakEven
		summary.BreakEvenPercent = breakEvenPct

		out = append(out, models.LongCallLeap{
			TradeSummary:       summary,
			Strike:             strike,
			LongCall:           call,
			Premium:            premium,
			IntrinsicValue:     intrinsic,
			ExtrinsicValue:     extrinsic,
			MarginInterestCost: marginInterest,
			DividendCost:       dividend,
			SavingsInterest:    savingsInterest,
			CostOfOption:       costOfOption,
			CostOfBuying:       costOfBuying,
			CostSavingsPercent: savingsPct,
			OptionPricePercent: costOfOption / price * 100,
		})
	}
	return out
}

// leapExpiries returns the expiries a LEAP scan covers: the nearest one when
// TargetDTE is set, otherwise every expiry with DTE above MinDTE (and at most
// MaxDTE when set).
func leapExpiries(chain *models.OptionChain, filter models.StrategyFilter) []models.ExpirationKey {
	if filter.TargetDTE > 0 {
		return chain.ExpiriesInRange(filter.TargetDTE, 0, 0)
	}
	var out []models.ExpirationKey
	for _, key := range chain.Expiries() {
		if key.DTE <= filter.MinDTE {
			continue
		}
		if filter.MaxDTE > 0 && key.DTE > filter.MaxDTE {
			continue
		}
		out = append(out, key)
	}
	return out
}

// leapStrategy scans every qualifying expiry at once. With topN set it ranks
// the pool and relaxes quality filters until enough candidates exist.
type leapStrategy struct {
	guard
	kind   Kind
	filter models.LongCallLeapFilter
	topN   bool
}

func newLeapStrategy(kind Kind, filter models.LongCallLeapFilter, topN bool, deps Deps) *leapStrategy {
	return &leapStrategy{
		guard:  newGuard(kind, filter.StrategyFilter, deps),
		kind:   kind,
		filter: filter,
		topN:   topN,
	}
}

// Kind implements Strategy.
func (s *leapStrategy) Kind() Kind { return s.kind }

// Name implements Strategy.
func (s *leapStrategy) Name() string { return s.kind.DisplayName() }

// FindTrades implements Strategy.
func (s *leapStrategy) FindTrades(ctx context.Context, chain *models.OptionChain) ([]models.TradeCandidate, error) {
	if !s.volatilityOK(ctx, chain.Symbol) {
		return nil, nil
	}

	var expiries []models.ExpirationKey
	for _, expiry := range leapExpiries(chain, s.filter.StrategyFilter) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s.earningsBlocked(ctx, chain.Symbol, expiry) {
			continue
		}
		expiries = append(expiries, expiry)
	}
	if len(expiries) == 0 {
		s.logger.Debug().Str("symbol", chain.Symbol).Int("min_dte", s.filter.MinDTE).Msg("No LEAP expiry in range")
		return nil, nil
	}

	scan := func(filter models.LongCallLeapFilter) []models.LongCallLeap {
		f := leapFinder{name: s.Name(), filter: filter}
		var out []models.LongCallLeap
		for _, expiry := range expiries {
			out = append(out, f.leaps(chain, expiry)...)
		}
		return out
	}

	var leaps []models.LongCallLeap
	if s.topN {
		leaps = selectTopN(s.filter, scan, s.logger.With().Str("symbol", chain.Symbol).Logger())
	} else {
		leaps = scan(s.filter)
	}

	out := make([]models.TradeCandidate, len(leaps))
	for i, l := range leaps {
		out[i] = l
	}
	return out, nil
}
