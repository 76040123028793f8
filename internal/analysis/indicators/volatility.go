package indicators

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	"options-scanner/internal/models"
)

// TradingDaysPerYear annualises daily volatility.
const TradingDaysPerYear = 252

// Bands holds Bollinger band series aligned with the input candles.
type Bands struct {
	Middle []float64
	Upper  []float64
	Lower  []float64
}

// BollingerBands calculates Bollinger Bands.
type BollingerBands struct {
	period    int
	stdDevMul float64
}

// NewBollingerBands creates a new Bollinger Bands indicator.
func NewBollingerBands(period int, stdDevMul float64) *BollingerBands {
	return &BollingerBands{
		period:    period,
		stdDevMul: stdDevMul,
	}
}

func (b *BollingerBands) Name() string {
	return fmt.Sprintf("BollingerBands_%d_%.1f", b.period, b.stdDevMul)
}

func (b *BollingerBands) Period() int {
	return b.period
}

func (b *BollingerBands) Calculate(candles []models.Candle) (*Bands, error) {
	if b.period <= 0 || b.stdDevMul <= 0 {
		return nil, ErrInvalidPeriod
	}
	if len(candles) < b.period {
		return nil, ErrInsufficientData
	}

	n := len(candles)
	closes := closePrices(candles)
	bands := &Bands{
		Middle: make([]float64, n),
		Upper:  make([]float64, n),
		Lower:  make([]float64, n),
	}

	for i := b.period - 1; i < n; i++ {
		window := closes[i-b.period+1 : i+1]
		sma := mean(window)
		sd := stdDev(window)

		bands.Middle[i] = sma
		bands.Upper[i] = sma + b.stdDevMul*sd
		bands.Lower[i] = sma - b.stdDevMul*sd
	}

	return bands, nil
}

// HistoricalVolatility returns the annualised volatility of daily log returns
// as a percentage, using the sample standard deviation.
func HistoricalVolatility(candles []models.Candle) (float64, error) {
	if len(candles) < 3 {
		return 0, ErrInsufficientData
	}

	returns := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		prev, cur := candles[i-1].Close, candles[i].Close
		if prev <= 0 || cur <= 0 {
			return 0, fmt.Errorf("non-positive close at index %d: %w", i, ErrInsufficientData)
		}
		returns = append(returns, math.Log(cur/prev))
	}

	sd, err := stats.StandardDeviationSample(returns)
	if err != nil {
		return 0, err
	}
	return sd * math.Sqrt(TradingDaysPerYear) * 100, nil
}
