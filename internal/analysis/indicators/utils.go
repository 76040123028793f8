// Package indicators implements the technical indicators used to screen
// symbols before option chains are requested.
package indicators

import (
	"errors"

	"github.com/montanaflynn/stats"

	"options-scanner/internal/models"
)

var (
	// ErrInsufficientData is returned when there's not enough data for calculation.
	ErrInsufficientData = errors.New("insufficient data for calculation")
	// ErrInvalidPeriod is returned when the period is invalid.
	ErrInvalidPeriod = errors.New("invalid period")
)

// Indicator produces one value per candle. Values before the warm-up period
// are zero.
type Indicator interface {
	Name() string
	Period() int
	Calculate(candles []models.Candle) ([]float64, error)
}

// mean calculates the arithmetic mean of a slice of float64.
func mean(values []float64) float64 {
	m, err := stats.Mean(values)
	if err != nil {
		return 0
	}
	return m
}

// stdDev calculates the population standard deviation.
func stdDev(values []float64) float64 {
	sd, err := stats.StandardDeviationPopulation(values)
	if err != nil {
		return 0
	}
	return sd
}

// closePrices extracts close prices from candles.
func closePrices(candles []models.Candle) []float64 {
	prices := make([]float64, len(candles))
	for i, c := range candles {
		prices[i] = c.Close
	}
	return prices
}

// Last returns the final value of a series, or zero when it is empty.
func Last(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return values[len(values)-1]
}
