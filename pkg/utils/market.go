package utils

import (
	"time"
)

// NewYork is the timezone of US equity option markets.
var NewYork *time.Location

func init() {
	var err error
	NewYork, err = time.LoadLocation("America/New_York")
	if err != nil {
		NewYork = time.FixedZone("ET", -5*60*60)
	}
}

// MarketStatus represents the state of the US options session.
type MarketStatus string

const (
	MarketPreOpen MarketStatus = "PRE_OPEN"
	MarketOpen    MarketStatus = "OPEN"
	MarketClosed  MarketStatus = "CLOSED"
)

// GetMarketStatus returns the session state at t.
func GetMarketStatus(t time.Time) MarketStatus {
	now := t.In(NewYork)
	if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
		return MarketClosed
	}

	minutes := now.Hour()*60 + now.Minute()
	switch {
	case minutes >= 4*60 && minutes < 9*60+30:
		return MarketPreOpen
	case minutes >= 9*60+30 && minutes < 16*60:
		return MarketOpen
	default:
		return MarketClosed
	}
}

// IsMarketOpen returns true if the regular session is open at t.
func IsMarketOpen(t time.Time) bool {
	return GetMarketStatus(t) == MarketOpen
}

// GetNextMarketOpen returns the next regular session open after t.
func GetNextMarketOpen(t time.Time) time.Time {
	now := t.In(NewYork)
	next := time.Date(now.Year(), now.Month(), now.Day(), 9, 30, 0, 0, NewYork)
	if !now.Before(next) {
		next = next.AddDate(0, 0, 1)
	}
	for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// TradingDate returns the New York calendar date of t at midnight UTC.
func TradingDate(t time.Time) time.Time {
	ny := t.In(NewYork)
	return time.Date(ny.Year(), ny.Month(), ny.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysUntil returns whole calendar days from the trading date of now to date.
func DaysUntil(now, date time.Time) int {
	from := TradingDate(now)
	to := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}
