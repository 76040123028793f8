package strategy

import "options-scanner/internal/models"

// putSpreadFinder enumerates every (short, long) put pair with the long strike
// below the short strike.
type putSpreadFinder struct {
	name   string
	filter models.CreditSpreadFilter
}

func (f putSpreadFinder) findValidTrades(chain *models.OptionChain, expiry models.ExpirationKey) []models.TradeCandidate {
	spreads := f.spreads(chain, expiry)
	out := make([]models.TradeCandidate, len(spreads))
	for i, s := range spreads {
		out[i] = s
	}
	return out
}

func (f putSpreadFinder) spreads(chain *models.OptionChain, expiry models.ExpirationKey) []models.PutCreditSpread {
	price := chain.UnderlyingPrice
	if price <= 0 {
		return nil
	}
	ladder := models.NewStrikeLadder(chain.OptionsForExpiry(models.Put, expiry))

	var out []models.PutCreditSpread
	for i := 0; i < ladder.Len(); i++ {
		short := ladder.Quote(i)
		if !f.filter.ShortLeg.Passes(short) {
			continue
		}
		for j := 0; j < i; j++ {
			long := ladder.Quote(j)
			if !f.filter.LongLeg.Passes(long) {
				continue
			}

			netCredit := (short.Bid - long.Ask) * models.ContractMultiplier
			if netCredit <= 0 {
				continue
			}
			width := (ladder.Strikes[i] - ladder.Strikes[j]) * models.ContractMultiplier
			maxLoss := width - netCredit
			if maxLoss <= 0 || !f.filter.PassesMaxLoss(maxLoss) {
				continue
			}
			if !f.filter.PassesMinReturnOnRisk(netCredit, maxLoss) || !f.filter.PassesCreditLimits(netCredit) {
				continue
			}

			breakEven := ladder.Strikes[i] - netCredit/models.ContractMultiplier
			breakEvenPct := (price - breakEven) / price * 100
			if !f.filter.PassesMaxBreakEvenPercent(breakEvenPct) {
				continue
			}

			summary := models.NewTradeSummary(f.name, chain, expiry)
			summary.NetCredit = netCredit
			summary.MaxLoss = maxLoss
			summary.ReturnOnRisk = netCredit / maxLoss * 100
			summary.BreakEvenPrice = breakEven
			summary.BreakEvenPercent = breakEvenPct

			out = append(out, models.PutCreditSpread{
				TradeSummary: summary,
				ShortStrike:  ladder.Strikes[i],
				LongStrike:   ladder.Strikes[j],
				ShortPut:     short,
				LongPut:      long,
			})
		}
	}
	return out
}

// callSpreadFinder enumerates every (short, long) call pair with an
// out-of-the-money short strike and a higher long strike.
type callSpreadFinder struct {
	name   string
	filter models.CreditSpreadFilter
}

func (f callSpreadFinder) findValidTrades(chain *models.OptionChain, expiry models.ExpirationKey) []models.TradeCandidate {
	spreads := f.spreads(chain, expiry)
	out := make([]models.TradeCandidate, len(spreads))
	for i, s := range spreads {
		out[i] = s
	}
	return out
}

func (f callSpreadFinder) spreads(chain *models.OptionChain, expiry models.ExpirationKey) []models.CallCreditSpread {
	price := chain.UnderlyingPrice
	if price <= 0 {
		return nil
	}
	ladder := models.NewStrikeLadder(chain.OptionsForExpiry(models.Call, expiry))

	var out []models.CallCreditSpread
	for i := 0; i < ladder.Len(); i++ {
		if ladder.Strikes[i] <= price {
			continue
		}
		short := ladder.Quote(i)
		if !f.filter.ShortLeg.Passes(short) {
			continue
		}
		for j := i + 1; j < ladder.Len(); j++ {
			long := ladder.Quote(j)
			if !f.filter.LongLeg.Passes(long) {
				continue
			}

			netCredit := (short.Bid - long.Ask) * models.ContractMultiplier
			if netCredit <= 0 {
				continue
			}
			width := (ladder.Strikes[j] - ladder.Strikes[i]) * models.ContractMultiplier
			maxLoss := width - netCredit
			if maxLoss <= 0 || !f.filter.PassesMaxLoss(maxLoss) {
				continue
			}
			if !f.filter.PassesMinReturnOnRisk(netCredit, maxLoss) || !f.filter.PassesCreditLimits(netCredit) {
				continue
			}

			breakEven := ladder.Strikes[i] + netCredit/models.ContractMultiplier
			breakEvenPct := (breakEven - price) / price * 100
			if !f.filter.PassesMaxBreakEvenPercent(breakEvenPct) {
				continue
			}

			summary := models.NewTradeSummary(f.name, chain, expiry)
			summary.NetCredit = netCredit
			summary.MaxLoss = maxLoss
			summary.ReturnOnRisk = netCredit / maxLoss * 100
			summary.BreakEvenPrice = breakEven
			summary.BreakEvenPercent = breakEvenPct

			out = append(out, models.CallCreditSpread{
				TradeSummary: summary,
				ShortStrike:  ladder.Strikes[i],
				LongStrike:   ladder.Strikes[j],
				ShortCall:    short,
				LongCall:     long,
			})
		}
	}
	return out
}
