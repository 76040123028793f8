package screener

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"options-scanner/internal/models"
)

type stubHistory struct {
	mu    sync.Mutex
	data  map[string][]models.Candle
	calls map[string]int
}

func newStubHistory(data map[string][]models.Candle) *stubHistory {
	return &stubHistory{data: data, calls: make(map[string]int)}
}

func (s *stubHistory) PriceHistory(ctx context.Context, symbol string) ([]models.Candle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[symbol]++
	candles, ok := s.data[symbol]
	if !ok {
		return nil, errors.New("no history")
	}
	return candles, nil
}

func series(closes ...float64) []models.Candle {
	start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	out := make([]models.Candle, len(closes))
	for i, c := range closes {
		out[i] = models.Candle{Timestamp: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 2_000_000}
	}
	return out
}

func ramp(from float64, step float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = from + step*float64(i)
	}
	return out
}

func TestEvaluate_RSI(t *testing.T) {
	falling := series(ramp(200, -2, 30)...)
	rising := series(ramp(100, 2, 30)...)

	ok, _, err := Evaluate(falling, Conditions{RSI: RSIOversold})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, reason, err := Evaluate(rising, Conditions{RSI: RSIOversold})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, reason, "OVERSOLD")

	ok, _, err = Evaluate(rising, Conditions{RSI: RSIOverbought})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluate_RSICrossover(t *testing.T) {
	// A long decline followed by one sharp up day lifts RSI out of oversold.
	closes := append(ramp(200, -1, 30), 200)
	ok, _, err := Evaluate(series(closes...), Conditions{RSI: RSIBullishCrossover})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _, err = Evaluate(series(ramp(200, -1, 30)...), Conditions{RSI: RSIBullishCrossover})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluate_Bollinger(t *testing.T) {
	closes := append(ramp(100, 0, 25), 90)
	ok, _, err := Evaluate(series(closes...), Conditions{Bollinger: BollingerLowerBand})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _, err = Evaluate(series(closes...), Conditions{Bollinger: BollingerUpperBand})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluate_MovingAveragesAndVolume(t *testing.T) {
	rising := series(ramp(100, 1, 60)...)

	ok, _, err := Evaluate(rising, Conditions{PriceAboveMA20: true, PriceAboveMA50: true})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _, err = Evaluate(rising, Conditions{PriceBelowMA20: true})
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = Evaluate(rising, Conditions{PriceAboveMA200: true})
	assert.Error(t, err)

	ok, reason, err := Evaluate(rising, Conditions{MinVolume: 5_000_000})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, reason, "volume")

	ok, _, err = Evaluate(rising, Conditions{})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestConditions_Validate(t *testing.T) {
	assert.NoError(t, Conditions{RSI: RSIOversold, Bollinger: BollingerLowerBand}.Validate())
	assert.Error(t, Conditions{RSI: "SIDEWAYS"}.Validate())
	assert.Error(t, Conditions{Bollinger: "MIDDLE"}.Validate())
	assert.Equal(t, "RSI: OVERSOLD | Bollinger: LOWER_BAND | Price < MA50", Conditions{
		RSI: RSIOversold, Bollinger: BollingerLowerBand, PriceBelowMA50: true,
	}.Summary())
}

func TestScreener_Screen(t *testing.T) {
	source := newStubHistory(map[string][]models.Candle{
		"AAA": series(ramp(200, -2, 30)...),
		"BBB": series(ramp(100, 2, 30)...),
		"CCC": series(ramp(300, -3, 30)...),
	})
	history := NewHistoryCache(source, zerolog.Nop())
	s := NewScreener(history, 2, zerolog.Nop())

	got, err := s.Screen(context.Background(), []string{"CCC", "BBB", "MISSING", "AAA"}, Conditions{RSI: RSIOversold})
	require.NoError(t, err)
	assert.Equal(t, []string{"CCC", "AAA"}, got)

	// History is reused for the volatility lookup.
	hv, err := history.HistoricalVolatility(context.Background(), "aaa")
	require.NoError(t, err)
	assert.Greater(t, hv, 0.0)
	assert.Equal(t, 1, source.calls["AAA"])
	assert.Equal(t, 3, history.Size())
}

func TestScreener_CancelledContext(t *testing.T) {
	history := NewHistoryCache(newStubHistory(nil), zerolog.Nop())
	s := NewScreener(history, 1, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Screen(ctx, []string{"AAA"}, Conditions{})
	assert.ErrorIs(t, err, context.Canceled)
}
