package screener

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"options-scanner/internal/analysis/indicators"
	"options-scanner/internal/models"
)

// HistorySource returns daily candles for a symbol, oldest first.
type HistorySource interface {
	PriceHistory(ctx context.Context, symbol string) ([]models.Candle, error)
}

// HistoryCache memoises price history for one execution. It also serves
// historical volatility to the strategy guard.
type HistoryCache struct {
	source HistorySource
	logger zerolog.Logger

	mu      sync.RWMutex
	candles map[string][]models.Candle
	group   singleflight.Group
}

// NewHistoryCache creates an empty cache over source.
func NewHistoryCache(source HistorySource, logger zerolog.Logger) *HistoryCache {
	return &HistoryCache{
		source:  source,
		logger:  logger.With().Str("component", "history_cache").Logger(),
		candles: make(map[string][]models.Candle),
	}
}

// History returns the cached candles for symbol, fetching on first use.
// Failed fetches are not stored.
func (h *HistoryCache) History(ctx context.Context, symbol string) ([]models.Candle, error) {
	symbol = strings.ToUpper(symbol)

	h.mu.RLock()
	candles, ok := h.candles[symbol]
	h.mu.RUnlock()
	if ok {
		return candles, nil
	}

	v, err, _ := h.group.Do(symbol, func() (interface{}, error) {
		candles, err := h.source.PriceHistory(ctx, symbol)
		if err != nil {
			return nil, err
		}
		h.mu.Lock()
		h.candles[symbol] = candles
		h.mu.Unlock()
		h.logger.Debug().Str("symbol", symbol).Int("candles", len(candles)).Msg("Price history cached")
		return candles, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.Candle), nil
}

// HistoricalVolatility returns the annualised volatility percentage for
// symbol.
func (h *HistoryCache) HistoricalVolatility(ctx context.Context, symbol string) (float64, error) {
	candles, err := h.History(ctx, symbol)
	if err != nil {
		return 0, err
	}
	return indicators.HistoricalVolatility(candles)
}

// Size returns the number of cached symbols.
func (h *HistoryCache) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.candles)
}
