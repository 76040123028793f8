package strategy

import "options-scanner/internal/models"

// zebraFinder enumerates 2x1 call ratios: buy two at the lower strike, sell one
// at the higher strike. MinReturnOnRisk is not applied because the structure
// reports no return on risk.
type zebraFinder struct {
	name   string
	filter models.ZebraFilter
}

func (f zebraFinder) findValidTrades(chain *models.OptionChain, expiry models.ExpirationKey) []models.TradeCandidate {
	price := chain.UnderlyingPrice
	if price <= 0 {
		return nil
	}
	ladder := models.NewStrikeLadder(chain.OptionsForExpiry(models.Call, expiry))

	var out []models.TradeCandidate
	for i := 0; i < ladder.Len(); i++ {
		long := ladder.Quote(i)
		if !f.filter.LongCall.Passes(long) {
			continue
		}
		for j := i + 1; j < ladder.Len(); j++ {
			short := ladder.Quote(j)
			if !f.filter.ShortCall.Passes(short) {
				continue
			}

			netDebit := (2*long.Ask - short.Bid) * models.ContractMultiplier
			if !f.filter.PassesDebitLimit(netDebit) || !f.filter.PassesMaxLoss(netDebit) {
				continue
			}
			netExtrinsic := 2*long.ExtrinsicValue - short.ExtrinsicValue
			if f.filter.MaxNetExtrinsicValue != nil && netExtrinsic >= *f.filter.MaxNetExtrinsicValue {
				continue
			}

			breakEven := ladder.Strikes[i] + netDebit/models.ContractMultiplier
			breakEvenPct := (breakEven - price) / price * 100
			if !f.filter.PassesMaxBreakEvenPercent(breakEvenPct) {
				continue
			}

			summary := models.NewTradeSummary(f.name, chain, expiry)
			summary.NetCredit = -netDebit
			summary.MaxLoss = netDebit
			summary.BreakEvenPrice = breakEven
			summary.BreakEvenPercent = breakEvenPct

			out = append(out, models.ZebraTrade{
				TradeSummary:      summary,
				LongStrike:        ladder.Strikes[i],
				ShortStrike:       ladder.Strikes[j],
				LongCall:          long,
				ShortCall:         short,
				NetDebit:          netDebit,
				NetExtrinsicValue: netExtrinsic,
			})
		}
	}
	return out
}
