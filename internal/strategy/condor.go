package strategy

import (
	"math"

	"options-scanner/internal/models"
)

// condorFinder pairs every valid put credit spread with every valid call
// credit spread at the same expiry.
type condorFinder struct {
	name   string
	filter models.IronCondorFilter
	puts   putSpreadFinder
	calls  callSpreadFinder
}

func newCondorFinder(name string, filter models.IronCondorFilter) condorFinder {
	return condorFinder{
		name:   name,
		filter: filter,
		puts:   putSpreadFinder{name: name, filter: filter.PutSide()},
		calls:  callSpreadFinder{name: name, filter: filter.CallSide()},
	}
}

func (f condorFinder) findValidTrades(chain *models.OptionChain, expiry models.ExpirationKey) []models.TradeCandidate {
	puts := f.puts.spreads(chain, expiry)
	if len(puts) == 0 {
		return nil
	}
	calls := f.calls.spreads(chain, expiry)
	if len(calls) == 0 {
		return nil
	}

	price := chain.UnderlyingPrice
	var out []models.TradeCandidate
	for _, put := range puts {
		for _, call := range calls {
			if put.ShortStrike >= call.ShortStrike {
				continue
			}

			totalCredit := put.NetCredit + call.NetCredit
			maxRisk := math.Max(put.Width(), call.Width()) - totalCredit
			if maxRisk <= 0 || !f.filter.PassesMaxLoss(maxRisk) {
				continue
			}
			if !f.filter.PassesMinReturnOnRisk(totalCredit, maxRisk) || !f.filter.PassesCreditLimits(totalCredit) {
				continue
			}

			lower := put.ShortStrike - totalCredit/models.ContractMultiplier
			upper := call.ShortStrike + totalCredit/models.ContractMultiplier

			summary := models.NewTradeSummary(f.name, chain, expiry)
			summary.NetCredit = totalCredit
			summary.MaxLoss = maxRisk
			summary.ReturnOnRisk = totalCredit / maxRisk * 100
			summary.BreakEvenPrice = lower
			summary.BreakEvenPercent = (price - lower) / price * 100
			summary.UpperBreakEvenPrice = upper
			summary.UpperBreakEvenPercent = (upper - price) / price * 100

			out = append(out, models.IronCondor{
				TradeSummary: summary,
				PutSpread:    put,
				CallSpread:   call,
			})
		}
	}
	return out
}
