package strategy

import (
	"math"

	"options-scanner/internal/models"
)

// butterflyFinder enumerates call broken-wing butterflies: long leg1, short
// two leg2, long leg3, with leg1 < leg2 < leg3.
type butterflyFinder struct {
	name   string
	filter models.BrokenWingButterflyFilter
}

func (f butterflyFinder) findValidTrades(chain *models.OptionChain, expiry models.ExpirationKey) []models.TradeCandidate {
	price := chain.UnderlyingPrice
	if price <= 0 {
		return nil
	}
	ladder := models.NewStrikeLadder(chain.OptionsForExpiry(models.Call, expiry))
	n := ladder.Len()

	var out []models.TradeCandidate
	for i := 0; i < n; i++ {
		leg1 := ladder.Quote(i)
		if !f.filter.Leg1Long.PassesMinDelta(leg1) {
			continue
		}
		for j := i + 1; j < n; j++ {
			leg2 := ladder.Quote(j)
			if !f.filter.Leg2Short.PassesMaxDelta(leg2) {
				continue
			}
			for k := j + 1; k < n; k++ {
				leg3 := ladder.Quote(k)
				if !f.filter.Leg3Long.PassesDelta(leg3) {
					continue
				}

				totalDebit := (leg1.Ask + leg3.Ask - 2*leg2.Bid) * models.ContractMultiplier
				if !f.filter.PassesDebitLimit(totalDebit) {
					continue
				}

				lowerWidth := (ladder.Strikes[j] - ladder.Strikes[i]) * models.ContractMultiplier
				upperWidth := (ladder.Strikes[k] - ladder.Strikes[j]) * models.ContractMultiplier
				upside := (upperWidth - lowerWidth) + totalDebit
				downside := totalDebit
				maxLoss := math.Max(upside, downside)
				if !f.filter.PassesMaxLoss(maxLoss) {
					continue
				}

				maxProfit := lowerWidth - totalDebit
				returnOnRisk := 0.0
				if maxProfit > 0 && maxLoss > 0 {
					returnOnRisk = maxProfit / maxLoss * 100
				}
				breakEven := ladder.Strikes[i] + totalDebit/models.ContractMultiplier

				summary := models.NewTradeSummary(f.name, chain, expiry)
				summary.NetCredit = -totalDebit
				summary.MaxLoss = maxLoss
				summary.ReturnOnRisk = returnOnRisk
				summary.BreakEvenPrice = breakEven
				summary.BreakEvenPercent = (breakEven - price) / price * 100

				out = append(out, models.BrokenWingButterfly{
					TradeSummary:    summary,
					Leg1Strike:      ladder.Strikes[i],
					Leg2Strike:      ladder.Strikes[j],
					Leg3Strike:      ladder.Strikes[k],
					Leg1:            leg1,
					Leg2:            leg2,
					Leg3:            leg3,
					TotalDebit:      totalDebit,
					LowerWingWidth:  lowerWidth,
					UpperWingWidth:  upperWidth,
					MaxLossUpside:   upside,
					MaxLossDownside: downside,
					MaxProfit:       maxProfit,
				})
			}
		}
	}
	return out
}
