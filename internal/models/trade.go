package models

import "math"

// LegAction is the side of a leg.
type LegAction string

const (
	Buy  LegAction = "BUY"
	Sell LegAction = "SELL"
)

// TradeLeg is one option position within a trade candidate.
type TradeLeg struct {
	Action       LegAction  `json:"action"`
	OptionType   OptionType `json:"optionType"`
	Quantity     int        `json:"quantity"`
	Strike       float64    `json:"strike"`
	Bid          float64    `json:"bid"`
	Ask          float64    `json:"ask"`
	Mark         float64    `json:"mark"`
	Delta        float64    `json:"delta"`
	OpenInterest int64      `json:"openInterest"`
	Contract     string     `json:"contract,omitempty"`
}

func legFrom(action LegAction, qty int, strike float64, q OptionQuote) TradeLeg {
	return TradeLeg{
		Action:       action,
		OptionType:   q.PutCall,
		Quantity:     qty,
		Strike:       strike,
		Bid:          q.Bid,
		Ask:          q.Ask,
		Mark:         q.Mark,
		Delta:        q.Delta,
		OpenInterest: q.OpenInterest,
		Contract:     q.Symbol,
	}
}

// TradeSummary carries the economics every candidate reports. Dollar amounts
// are per one structure (100-share multiplier applied). NetCredit is negative
// for debit structures.
type TradeSummary struct {
	Strategy         string        `json:"strategy"`
	Symbol           string        `json:"symbol"`
	Expiry           ExpirationKey `json:"-"`
	ExpiryDate       string        `json:"expiryDate"`
	DTE              int           `json:"dte"`
	UnderlyingPrice  float64       `json:"underlyingPrice"`
	NetCredit        float64       `json:"netCredit"`
	MaxLoss          float64       `json:"maxLoss"`
	ReturnOnRisk     float64       `json:"returnOnRisk"`
	BreakEvenPrice   float64       `json:"breakEvenPrice"`
	BreakEvenPercent float64       `json:"breakEvenPercent"`

	// Set only for two-sided structures.
	UpperBreakEvenPrice   float64 `json:"upperBreakEvenPrice,omitempty"`
	UpperBreakEvenPercent float64 `json:"upperBreakEvenPercent,omitempty"`
}

// Summary returns the common economics.
func (s TradeSummary) Summary() TradeSummary { return s }

// NewTradeSummary fills the identifying fields of a summary.
func NewTradeSummary(strategy string, chain *OptionChain, expiry ExpirationKey) TradeSummary {
	return TradeSummary{
		Strategy:        strategy,
		Symbol:          chain.Symbol,
		Expiry:          expiry,
		ExpiryDate:      expiry.Date,
		DTE:             expiry.DTE,
		UnderlyingPrice: chain.UnderlyingPrice,
	}
}

// TradeCandidate is a fully computed multi-leg structure. Candidates are
// immutable once built.
type TradeCandidate interface {
	Summary() TradeSummary
	Legs() []TradeLeg
}

// PutCreditSpread sells a higher strike put and buys a lower strike put.
type PutCreditSpread struct {
	TradeSummary
	ShortStrike float64     `json:"shortStrike"`
	LongStrike  float64     `json:"longStrike"`
	ShortPut    OptionQuote `json:"shortPut"`
	LongPut     OptionQuote `json:"longPut"`
}

// Width returns the dollar distance between the strikes.
func (t PutCreditSpread) Width() float64 {
	return (t.ShortStrike - t.LongStrike) * ContractMultiplier
}

// Legs implements TradeCandidate.
func (t PutCreditSpread) Legs() []TradeLeg {
	return []TradeLeg{
		legFrom(Sell, 1, t.ShortStrike, t.ShortPut),
		legFrom(Buy, 1, t.LongStrike, t.LongPut),
	}
}

// CallCreditSpread sells an out-of-the-money call and buys a higher strike call.
type CallCreditSpread struct {
	TradeSummary
	ShortStrike float64     `json:"shortStrike"`
	LongStrike  float64     `json:"longStrike"`
	ShortCall   OptionQuote `json:"shortCall"`
	LongCall    OptionQuote `json:"longCall"`
}

// Width returns the dollar distance between the strikes.
func (t CallCreditSpread) Width() float64 {
	return (t.LongStrike - t.ShortStrike) * ContractMultiplier
}

// Legs implements TradeCandidate.
func (t CallCreditSpread) Legs() []TradeLeg {
	return []TradeLeg{
		legFrom(Sell, 1, t.ShortStrike, t.ShortCall),
		legFrom(Buy, 1, t.LongStrike, t.LongCall),
	}
}

// IronCondor pairs a put credit spread with a call credit spread at one expiry.
type IronCondor struct {
	TradeSummary
	PutSpread  PutCreditSpread  `json:"putSpread"`
	CallSpread CallCreditSpread `json:"callSpread"`
}

// Legs implements TradeCandidate.
func (t IronCondor) Legs() []TradeLeg {
	return append(t.PutSpread.Legs(), t.CallSpread.Legs()...)
}

// BrokenWingButterfly buys leg1, sells two leg2 and buys leg3 calls, with a
// wider upper wing.
type BrokenWingButterfly struct {
	TradeSummary
	Leg1Strike      float64     `json:"leg1Strike"`
	Leg2Strike      float64     `json:"leg2Strike"`
	Leg3Strike      float64     `json:"leg3Strike"`
	Leg1            OptionQuote `json:"leg1"`
	Leg2            OptionQuote `json:"leg2"`
	Leg3            OptionQuote `json:"leg3"`
	TotalDebit      float64     `json:"totalDebit"`
	LowerWingWidth  float64     `json:"lowerWingWidth"`
	UpperWingWidth  float64     `json:"upperWingWidth"`
	MaxLossUpside   float64     `json:"maxLossUpside"`
	MaxLossDownside float64     `json:"maxLossDownside"`
	MaxProfit       float64     `json:"maxProfit"`
}

// Legs implements TradeCandidate.
func (t BrokenWingButterfly) Legs() []TradeLeg {
	return []TradeLeg{
		legFrom(Buy, 1, t.Leg1Strike, t.Leg1),
		legFrom(Sell, 2, t.Leg2Strike, t.Leg2),
		legFrom(Buy, 1, t.Leg3Strike, t.Leg3),
	}
}

// ZebraTrade buys two lower strike calls and sells one higher strike call.
// ReturnOnRisk is always zero: the structure has no fixed profit target.
type ZebraTrade struct {
	TradeSummary
	LongStrike        float64     `json:"longStrike"`
	ShortStrike       float64     `json:"shortStrike"`
	LongCall          OptionQuote `json:"longCall"`
	ShortCall         OptionQuote `json:"shortCall"`
	NetDebit          float64     `json:"netDebit"`
	NetExtrinsicValue float64     `json:"netExtrinsicValue"`
}

// Legs implements TradeCandidate.
func (t ZebraTrade) Legs() []TradeLeg {
	return []TradeLeg{
		legFrom(Buy, 2, t.LongStrike, t.LongCall),
		legFrom(Sell, 1, t.ShortStrike, t.ShortCall),
	}
}

// LongCallLeap is a long-dated call bought as a stock substitute.
type LongCallLeap struct {
	TradeSummary
	Strike   float64     `json:"strike"`
	LongCall OptionQuote `json:"longCall"`
	Premium  float64     `json:"premium"`

	IntrinsicValue     float64 `json:"intrinsicValue"`
	ExtrinsicValue     float64 `json:"extrinsicValue"`
	MarginInterestCost float64 `json:"marginInterestCost"`
	DividendCost       float64 `json:"dividendCost"`
	SavingsInterest    float64 `json:"savingsInterest"`
	CostOfOption       float64 `json:"costOfOption"`
	CostOfBuying       float64 `json:"costOfBuying"`
	CostSavingsPercent float64 `json:"costSavingsPercent"`
	OptionPricePercent float64 `json:"optionPricePercent"`
}

// Legs implements TradeCandidate.
func (t LongCallLeap) Legs() []TradeLeg {
	return []TradeLeg{legFrom(Buy, 1, t.Strike, t.LongCall)}
}

// BreakEvenCAGR is the annualised percent move needed to reach break-even by
// expiry. Zero when DTE <= 0.
func (t LongCallLeap) BreakEvenCAGR() float64 {
	return BreakEvenCAGR(t.BreakEvenPercent, t.DTE)
}

// BreakEvenCAGR annualises a break-even percent over dte days.
func BreakEvenCAGR(breakEvenPercent float64, dte int) float64 {
	if dte <= 0 {
		return 0
	}
	base := 1 + breakEvenPercent/100
	if base <= 0 {
		return -100
	}
	years := float64(dte) / 365.0
	return (math.Pow(base, 1/years) - 1) * 100
}
