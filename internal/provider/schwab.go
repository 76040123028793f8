package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"options-scanner/internal/chain"
	apperrors "options-scanner/internal/errors"
	"options-scanner/internal/models"
)

// DefaultSchwabBaseURL is the Schwab market data API root.
const DefaultSchwabBaseURL = "https://api.schwabapi.com/marketdata/v1"

// SchwabConfig configures the Schwab market data client.
type SchwabConfig struct {
	ClientConfig `mapstructure:",squash"`
	AccessToken  string `mapstructure:"access_token"`
}

// SchwabClient fetches option chains and daily price history.
type SchwabClient struct {
	client *httpClient
	token  string
}

// NewSchwabClient creates a SchwabClient.
func NewSchwabClient(cfg SchwabConfig, logger zerolog.Logger) *SchwabClient {
	return &SchwabClient{
		client: newHTTPClient("schwab", cfg.ClientConfig.withDefaults(DefaultSchwabBaseURL), logger),
		token:  cfg.AccessToken,
	}
}

func (s *SchwabClient) header() (http.Header, error) {
	if s.token == "" {
		return nil, apperrors.NewValidationError("schwab.access_token", "", "access token not configured")
	}
	h := http.Header{}
	h.Set("Authorization", "Bearer "+s.token)
	return h, nil
}

// FetchChain implements chain.Provider.
func (s *SchwabClient) FetchChain(ctx context.Context, symbol string) (*models.OptionChain, error) {
	symbol = strings.ToUpper(symbol)
	header, err := s.header()
	if err != nil {
		return nil, apperrors.NewChainFetchError(symbol, "CONFIG", err)
	}

	query := url.Values{}
	query.Set("symbol", symbol)
	query.Set("contractType", "ALL")
	query.Set("strategy", "SINGLE")
	query.Set("includeUnderlyingQuote", "false")

	body, err := s.client.getRaw(ctx, "/chains", query, header)
	if err != nil {
		return nil, apperrors.NewChainFetchError(symbol, "", err)
	}
	return chain.DecodeChain(symbol, body)
}

type priceHistoryResponse struct {
	Symbol  string `json:"symbol"`
	Empty   bool   `json:"empty"`
	Candles []struct {
		Open     float64 `json:"open"`
		High     float64 `json:"high"`
		Low      float64 `json:"low"`
		Close    float64 `json:"close"`
		Volume   int64   `json:"volume"`
		Datetime int64   `json:"datetime"`
	} `json:"candles"`
}

// PriceHistory returns one year of daily candles, oldest first.
func (s *SchwabClient) PriceHistory(ctx context.Context, symbol string) ([]models.Candle, error) {
	symbol = strings.ToUpper(symbol)
	header, err := s.header()
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("symbol", symbol)
	query.Set("periodType", "year")
	query.Set("period", "1")
	query.Set("frequencyType", "daily")
	query.Set("frequency", "1")

	var resp priceHistoryResponse
	if err := s.client.getJSON(ctx, "/pricehistory", query, header, &resp); err != nil {
		return nil, apperrors.NewDataError("price_history", symbol, "fetch failed", fmt.Errorf("%w: %w", apperrors.ErrHistoryFetch, err))
	}
	if resp.Empty || len(resp.Candles) == 0 {
		return nil, apperrors.NewDataError("price_history", symbol, "no candles", apperrors.ErrInsufficientData)
	}

	candles := make([]models.Candle, len(resp.Candles))
	for i, c := range resp.Candles {
		candles[i] = models.Candle{
			Timestamp: time.UnixMilli(c.Datetime).UTC(),
			Open:      c.Open,
			High:      c.High,
			Low:       c.Low,
			Close:     c.Close,
			Volume:    c.Volume,
		}
	}
	return candles, nil
}
