package models

// LegFilter constrains a single leg of a structure. Nil bounds are unconstrained
// and a nil *LegFilter passes every quote.
type LegFilter struct {
	MinDelta        *float64 `mapstructure:"minDelta" json:"minDelta,omitempty"`
	MaxDelta        *float64 `mapstructure:"maxDelta" json:"maxDelta,omitempty"`
	MinPremium      *float64 `mapstructure:"minPremium" json:"minPremium,omitempty"`
	MaxPremium      *float64 `mapstructure:"maxPremium" json:"maxPremium,omitempty"`
	MinOpenInterest *int64   `mapstructure:"minOpenInterest" json:"minOpenInterest,omitempty"`
	MinVolume       *int64   `mapstructure:"minVolume" json:"minVolume,omitempty"`
	MinVolatility   *float64 `mapstructure:"minVolatility" json:"minVolatility,omitempty"`
	MaxVolatility   *float64 `mapstructure:"maxVolatility" json:"maxVolatility,omitempty"`
}

// Passes reports whether q satisfies every set bound. Delta bounds apply to |delta|
// and premium bounds to the mark.
func (f *LegFilter) Passes(q OptionQuote) bool {
	if f == nil {
		return true
	}
	if !f.PassesDelta(q) {
		return false
	}
	if f.MinPremium != nil && q.Mark < *f.MinPremium {
		return false
	}
	if f.MaxPremium != nil && q.Mark > *f.MaxPremium {
		return false
	}
	if f.MinOpenInterest != nil && q.OpenInterest < *f.MinOpenInterest {
		return false
	}
	if f.MinVolume != nil && q.TotalVolume < *f.MinVolume {
		return false
	}
	if f.MinVolatility != nil && q.Volatility < *f.MinVolatility {
		return false
	}
	if f.MaxVolatility != nil && q.Volatility > *f.MaxVolatility {
		return false
	}
	return true
}

// PassesMinDelta checks only the lower delta bound.
func (f *LegFilter) PassesMinDelta(q OptionQuote) bool {
	return f == nil || f.MinDelta == nil || q.AbsDelta() >= *f.MinDelta
}

// PassesMaxDelta checks only the upper delta bound.
func (f *LegFilter) PassesMaxDelta(q OptionQuote) bool {
	return f == nil || f.MaxDelta == nil || q.AbsDelta() <= *f.MaxDelta
}

// PassesDelta checks both delta bounds.
func (f *LegFilter) PassesDelta(q OptionQuote) bool {
	return f.PassesMinDelta(q) && f.PassesMaxDelta(q)
}

// StrategyFilter holds the filters shared by every strategy.
type StrategyFilter struct {
	// TargetDTE > 0 selects the single nearest expiry; otherwise MinDTE..MaxDTE
	// selects a window (MaxDTE 0 is unbounded).
	TargetDTE int `mapstructure:"targetDTE" json:"targetDTE,omitempty"`
	MinDTE    int `mapstructure:"minDTE" json:"minDTE,omitempty"`
	MaxDTE    int `mapstructure:"maxDTE" json:"maxDTE,omitempty"`

	// Zero means unset for the dollar limits below.
	MaxLossLimit    float64 `mapstructure:"maxLossLimit" json:"maxLossLimit,omitempty"`
	MinReturnOnRisk float64 `mapstructure:"minReturnOnRisk" json:"minReturnOnRisk,omitempty"`
	MaxTotalDebit   float64 `mapstructure:"maxTotalDebit" json:"maxTotalDebit,omitempty"`
	MaxTotalCredit  float64 `mapstructure:"maxTotalCredit" json:"maxTotalCredit,omitempty"`
	MinTotalCredit  float64 `mapstructure:"minTotalCredit" json:"minTotalCredit,omitempty"`

	MaxBreakEvenPercent *float64 `mapstructure:"maxBreakEvenPercent" json:"maxBreakEvenPercent,omitempty"`

	IgnoreEarnings bool `mapstructure:"ignoreEarnings" json:"ignoreEarnings"`

	// LEAP cost-of-carry inputs, annual percentages.
	MarginInterestRate    float64  `mapstructure:"marginInterestRate" json:"marginInterestRate"`
	SavingsInterestRate   float64  `mapstructure:"savingsInterestRate" json:"savingsInterestRate"`
	MaxOptionPricePercent *float64 `mapstructure:"maxOptionPricePercent" json:"maxOptionPricePercent,omitempty"`
	MaxCAGRForBreakEven   *float64 `mapstructure:"maxCAGRForBreakEven" json:"maxCAGRForBreakEven,omitempty"`

	MinHistoricalVolatility *float64 `mapstructure:"minHistoricalVolatility" json:"minHistoricalVolatility,omitempty"`
}

// DefaultStrategyFilter returns a filter with the documented defaults.
func DefaultStrategyFilter() StrategyFilter {
	return StrategyFilter{
		IgnoreEarnings:      true,
		MarginInterestRate:  6.0,
		SavingsInterestRate: 10.0,
	}
}

// PassesMaxLoss reports whether maxLoss is within MaxLossLimit (when set).
func (f StrategyFilter) PassesMaxLoss(maxLoss float64) bool {
	return f.MaxLossLimit <= 0 || maxLoss <= f.MaxLossLimit
}

// PassesMinReturnOnRisk reports whether profit is at least MinReturnOnRisk
// percent of maxLoss. A non-positive maxLoss always passes.
func (f StrategyFilter) PassesMinReturnOnRisk(profit, maxLoss float64) bool {
	if maxLoss <= 0 {
		return true
	}
	return profit >= maxLoss*f.MinReturnOnRisk/100
}

// PassesDebitLimit reports whether debit is within MaxTotalDebit (when set).
func (f StrategyFilter) PassesDebitLimit(debit float64) bool {
	return f.MaxTotalDebit <= 0 || debit <= f.MaxTotalDebit
}

// PassesCreditLimits checks MinTotalCredit and MaxTotalCredit (when set).
func (f StrategyFilter) PassesCreditLimits(credit float64) bool {
	if f.MinTotalCredit > 0 && credit < f.MinTotalCredit {
		return false
	}
	return f.MaxTotalCredit <= 0 || credit <= f.MaxTotalCredit
}

// PassesMaxBreakEvenPercent checks MaxBreakEvenPercent (when set).
func (f StrategyFilter) PassesMaxBreakEvenPercent(pct float64) bool {
	return f.MaxBreakEvenPercent == nil || pct <= *f.MaxBreakEvenPercent
}

// Filter is implemented by every strategy-specific filter variant.
type Filter interface {
	Base() StrategyFilter
}

// Base implements Filter.
func (f StrategyFilter) Base() StrategyFilter { return f }

// CreditSpreadFilter configures put and call credit spreads.
type CreditSpreadFilter struct {
	StrategyFilter `mapstructure:",squash"`
	ShortLeg       *LegFilter `mapstructure:"shortLeg" json:"shortLeg,omitempty"`
	LongLeg        *LegFilter `mapstructure:"longLeg" json:"longLeg,omitempty"`
}

// IronCondorFilter configures iron condors. PutShortLeg/CallShortLeg fall back
// to ShortLeg, and the long legs to LongLeg, when unset.
type IronCondorFilter struct {
	StrategyFilter `mapstructure:",squash"`
	ShortLeg       *LegFilter `mapstructure:"shortLeg" json:"shortLeg,omitempty"`
	LongLeg        *LegFilter `mapstructure:"longLeg" json:"longLeg,omitempty"`
	PutShortLeg    *LegFilter `mapstructure:"putShortLeg" json:"putShortLeg,omitempty"`
	PutLongLeg     *LegFilter `mapstructure:"putLongLeg" json:"putLongLeg,omitempty"`
	CallShortLeg   *LegFilter `mapstructure:"callShortLeg" json:"callShortLeg,omitempty"`
	CallLongLeg    *LegFilter `mapstructure:"callLongLeg" json:"callLongLeg,omitempty"`
}

// PutSide returns the credit spread filter used for the put wing.
func (f IronCondorFilter) PutSide() CreditSpreadFilter {
	return CreditSpreadFilter{
		StrategyFilter: f.legBase(),
		ShortLeg:       firstLeg(f.PutShortLeg, f.ShortLeg),
		LongLeg:        firstLeg(f.PutLongLeg, f.LongLeg),
	}
}

// CallSide returns the credit spread filter used for the call wing.
func (f IronCondorFilter) CallSide() CreditSpreadFilter {
	return CreditSpreadFilter{
		StrategyFilter: f.legBase(),
		ShortLeg:       firstLeg(f.CallShortLeg, f.ShortLeg),
		LongLeg:        firstLeg(f.CallLongLeg, f.LongLeg),
	}
}

// legBase keeps DTE and max-loss but removes the return and credit thresholds,
// which apply to the combined condor instead.
func (f IronCondorFilter) legBase() StrategyFilter {
	base := f.StrategyFilter
	base.MinReturnOnRisk = 0
	base.IgnoreEarnings = true
	base.MinTotalCredit = 0
	base.MaxTotalCredit = 0
	base.MaxBreakEvenPercent = nil
	return base
}

// BrokenWingButterflyFilter configures call broken-wing butterflies.
type BrokenWingButterflyFilter struct {
	StrategyFilter `mapstructure:",squash"`
	Leg1Long       *LegFilter `mapstructure:"leg1Long" json:"leg1Long,omitempty"`
	Leg2Short      *LegFilter `mapstructure:"leg2Short" json:"leg2Short,omitempty"`
	Leg3Long       *LegFilter `mapstructure:"leg3Long" json:"leg3Long,omitempty"`
}

// ZebraFilter configures the 2x1 call ZEBRA.
type ZebraFilter struct {
	StrategyFilter       `mapstructure:",squash"`
	ShortCall            *LegFilter `mapstructure:"shortCall" json:"shortCall,omitempty"`
	LongCall             *LegFilter `mapstructure:"longCall" json:"longCall,omitempty"`
	MaxNetExtrinsicValue *float64   `mapstructure:"maxNetExtrinsicValue" json:"maxNetExtrinsicValue,omitempty"`
}

// Default LEAP ranking settings.
const (
	DefaultCostEfficiencyPercent = 90.0
	DefaultTopTradesCount        = 3
)

// LongCallLeapFilter configures LEAP scans.
type LongCallLeapFilter struct {
	StrategyFilter        `mapstructure:",squash"`
	LongCall              *LegFilter `mapstructure:"longCall" json:"longCall,omitempty"`
	MinCostSavingsPercent *float64   `mapstructure:"minCostSavingsPercent" json:"minCostSavingsPercent,omitempty"`
	// CostEfficiencyPercent is the largest option carrying cost accepted, as a
	// percent of the carrying cost of the stock bought on margin.
	CostEfficiencyPercent float64 `mapstructure:"costEfficiencyPercent" json:"costEfficiencyPercent"`
	TopTradesCount        int     `mapstructure:"topTradesCount" json:"topTradesCount"`
}

// DefaultLongCallLeapFilter returns a LEAP filter with defaults applied.
func DefaultLongCallLeapFilter() LongCallLeapFilter {
	return LongCallLeapFilter{
		StrategyFilter:        DefaultStrategyFilter(),
		CostEfficiencyPercent: DefaultCostEfficiencyPercent,
		TopTradesCount:        DefaultTopTradesCount,
	}
}

func firstLeg(filters ...*LegFilter) *LegFilter {
	for _, f := range filters {
		if f != nil {
			return f
		}
	}
	return nil
}

// Float returns a pointer to v, for building optional bounds.
func Float(v float64) *float64 { return &v }

// Int64 returns a pointer to v, for building optional bounds.
func Int64(v int64) *int64 { return &v }
