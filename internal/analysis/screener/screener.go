// Package screener gates symbols on technical conditions before their option
// chains are scanned.
package screener

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"options-scanner/internal/analysis/indicators"
	"options-scanner/internal/models"
)

// RSICondition selects the RSI state a symbol must be in.
type RSICondition string

const (
	RSIOversold         RSICondition = "OVERSOLD"
	RSIOverbought       RSICondition = "OVERBOUGHT"
	RSIBullishCrossover RSICondition = "BULLISH_CROSSOVER"
	RSIBearishCrossover RSICondition = "BEARISH_CROSSOVER"
)

// BollingerCondition selects the band the close must touch.
type BollingerCondition string

const (
	BollingerLowerBand BollingerCondition = "LOWER_BAND"
	BollingerUpperBand BollingerCondition = "UPPER_BAND"
)

// Conditions is a technical filter. Unset fields are not checked.
type Conditions struct {
	RSI                 RSICondition       `mapstructure:"rsiCondition" json:"rsiCondition,omitempty"`
	RSIPeriod           int                `mapstructure:"rsiPeriod" json:"rsiPeriod,omitempty"`
	OversoldThreshold   float64            `mapstructure:"oversoldThreshold" json:"oversoldThreshold,omitempty"`
	OverboughtThreshold float64            `mapstructure:"overboughtThreshold" json:"overboughtThreshold,omitempty"`
	Bollinger           BollingerCondition `mapstructure:"bollingerCondition" json:"bollingerCondition,omitempty"`
	BollingerPeriod     int                `mapstructure:"bollingerPeriod" json:"bollingerPeriod,omitempty"`
	BollingerStdDev     float64            `mapstructure:"bollingerStdDev" json:"bollingerStdDev,omitempty"`
	MinVolume           int64              `mapstructure:"minVolume" json:"minVolume,omitempty"`
	PriceBelowMA20      bool               `mapstructure:"requirePriceBelowMA20" json:"requirePriceBelowMA20,omitempty"`
	PriceAboveMA20      bool               `mapstructure:"requirePriceAboveMA20" json:"requirePriceAboveMA20,omitempty"`
	PriceBelowMA50      bool               `mapstructure:"requirePriceBelowMA50" json:"requirePriceBelowMA50,omitempty"`
	PriceAboveMA50      bool               `mapstructure:"requirePriceAboveMA50" json:"requirePriceAboveMA50,omitempty"`
	PriceBelowMA100     bool               `mapstructure:"requirePriceBelowMA100" json:"requirePriceBelowMA100,omitempty"`
	PriceAboveMA100     bool               `mapstructure:"requirePriceAboveMA100" json:"requirePriceAboveMA100,omitempty"`
	PriceBelowMA200     bool               `mapstructure:"requirePriceBelowMA200" json:"requirePriceBelowMA200,omitempty"`
	PriceAboveMA200     bool               `mapstructure:"requirePriceAboveMA200" json:"requirePriceAboveMA200,omitempty"`
}

// WithDefaults fills the standard periods and thresholds.
func (c Conditions) WithDefaults() Conditions {
	if c.RSIPeriod <= 0 {
		c.RSIPeriod = 14
	}
	if c.OversoldThreshold <= 0 {
		c.OversoldThreshold = 30
	}
	if c.OverboughtThreshold <= 0 {
		c.OverboughtThreshold = 70
	}
	if c.BollingerPeriod <= 0 {
		c.BollingerPeriod = 20
	}
	if c.BollingerStdDev <= 0 {
		c.BollingerStdDev = 2
	}
	return c
}

// Validate checks the condition names.
func (c Conditions) Validate() error {
	switch c.RSI {
	case "", RSIOversold, RSIOverbought, RSIBullishCrossover, RSIBearishCrossover:
	default:
		return fmt.Errorf("unknown RSI condition %q", c.RSI)
	}
	switch c.Bollinger {
	case "", BollingerLowerBand, BollingerUpperBand:
	default:
		return fmt.Errorf("unknown Bollinger condition %q", c.Bollinger)
	}
	return nil
}

// Summary returns a one-line description.
func (c Conditions) Summary() string {
	var parts []string
	if c.RSI != "" {
		parts = append(parts, "RSI: "+string(c.RSI))
	}
	if c.Bollinger != "" {
		parts = append(parts, "Bollinger: "+string(c.Bollinger))
	}
	if c.MinVolume > 0 {
		parts = append(parts, fmt.Sprintf("Volume >= %d", c.MinVolume))
	}
	for _, ma := range c.movingAverages() {
		if ma.below {
			parts = append(parts, fmt.Sprintf("Price < MA%d", ma.period))
		} else {
			parts = append(parts, fmt.Sprintf("Price > MA%d", ma.period))
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, " | ")
}

type maRequirement struct {
	period int
	below  bool
}

func (c Conditions) movingAverages() []maRequirement {
	var out []maRequirement
	add := func(set bool, period int, below bool) {
		if set {
			out = append(out, maRequirement{period: period, below: below})
		}
	}
	add(c.PriceBelowMA20, 20, true)
	add(c.PriceAboveMA20, 20, false)
	add(c.PriceBelowMA50, 50, true)
	add(c.PriceAboveMA50, 50, false)
	add(c.PriceBelowMA100, 100, true)
	add(c.PriceAboveMA100, 100, false)
	add(c.PriceBelowMA200, 200, true)
	add(c.PriceAboveMA200, 200, false)
	return out
}

// Evaluate reports whether candles satisfy every set condition. The reason
// names the first failed check.
func Evaluate(candles []models.Candle, cond Conditions) (bool, string, error) {
	cond = cond.WithDefaults()
	if len(candles) == 0 {
		return false, "", indicators.ErrInsufficientData
	}
	last := candles[len(candles)-1]

	if cond.MinVolume > 0 && last.Volume < cond.MinVolume {
		return false, fmt.Sprintf("volume %d below %d", last.Volume, cond.MinVolume), nil
	}

	if cond.RSI != "" {
		values, err := indicators.NewRSI(cond.RSIPeriod).Calculate(candles)
		if err != nil {
			return false, "", err
		}
		cur := values[len(values)-1]
		prev := values[len(values)-2]
		var ok bool
		switch cond.RSI {
		case RSIOversold:
			ok = cur < cond.OversoldThreshold
		case RSIOverbought:
			ok = cur > cond.OverboughtThreshold
		case RSIBullishCrossover:
			ok = len(values) > cond.RSIPeriod+1 && prev <= cond.OversoldThreshold && cur > cond.OversoldThreshold
		case RSIBearishCrossover:
			ok = len(values) > cond.RSIPeriod+1 && prev >= cond.OverboughtThreshold && cur < cond.OverboughtThreshold
		}
		if !ok {
			return false, fmt.Sprintf("RSI %.2f not %s", cur, cond.RSI), nil
		}
	}

	if cond.Bollinger != "" {
		bands, err := indicators.NewBollingerBands(cond.BollingerPeriod, cond.BollingerStdDev).Calculate(candles)
		if err != nil {
			return false, "", err
		}
		var ok bool
		switch cond.Bollinger {
		case BollingerLowerBand:
			ok = last.Close <= indicators.Last(bands.Lower)
		case BollingerUpperBand:
			ok = last.Close >= indicators.Last(bands.Upper)
		}
		if !ok {
			return false, fmt.Sprintf("close %.2f not at %s", last.Close, cond.Bollinger), nil
		}
	}

	for _, ma := range cond.movingAverages() {
		values, err := indicators.NewSMA(ma.period).Calculate(candles)
		if err != nil {
			return false, "", err
		}
		avg := indicators.Last(values)
		if (ma.below && last.Close >= avg) || (!ma.below && last.Close <= avg) {
			return false, fmt.Sprintf("close %.2f vs MA%d %.2f", last.Close, ma.period, avg), nil
		}
	}

	return true, "", nil
}

// Screener applies technical conditions to symbols.
type Screener struct {
	history     *HistoryCache
	concurrency int
	logger      zerolog.Logger
}

// NewScreener creates a Screener reading candles from history.
func NewScreener(history *HistoryCache, concurrency int, logger zerolog.Logger) *Screener {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Screener{
		history:     history,
		concurrency: concurrency,
		logger:      logger.With().Str("component", "screener").Logger(),
	}
}

// Screen returns the symbols that pass cond, in input order. Symbols whose
// history cannot be loaded or evaluated are logged and excluded.
func (s *Screener) Screen(ctx context.Context, symbols []string, cond Conditions) ([]string, error) {
	passed := make([]bool, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, symbol := range symbols {
		i, symbol := i, symbol
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			candles, err := s.history.History(gctx, symbol)
			if err != nil {
				s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Price history unavailable, excluding symbol")
				return nil
			}
			ok, reason, err := Evaluate(candles, cond)
			if err != nil {
				s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Technical evaluation failed, excluding symbol")
				return nil
			}
			if !ok {
				s.logger.Debug().Str("symbol", symbol).Str("reason", reason).Msg("Symbol filtered out")
				return nil
			}
			passed[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []string
	for i, symbol := range symbols {
		if passed[i] {
			out = append(out, symbol)
		}
	}
	s.logger.Info().
		Int("symbols", len(symbols)).
		Int("passed", len(out)).
		Str("conditions", cond.Summary()).
		Msg("Technical screening complete")
	return out, nil
}
